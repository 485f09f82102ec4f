package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
	"github.com/vncsmyrnk/groupchoice/internal/core/ports"
)

type SurveyHandler struct {
	service ports.SurveyService
}

func NewSurveyHandler(service ports.SurveyService) *SurveyHandler {
	return &SurveyHandler{
		service: service,
	}
}

type createSurveyRequest struct {
	Title         string          `json:"title" validate:"required,max=300"`
	Question      string          `json:"question" validate:"required,max=1000"`
	Description   string          `json:"description" validate:"max=5000"`
	Method        string          `json:"method" validate:"required,oneof=ranked_choice five_stones"`
	Choices       []choiceRequest `json:"choices" validate:"required,dive"`
	IsAnonymous   bool            `json:"is_anonymous"`
	ResultsPublic bool            `json:"results_public"`
	Deadline      *time.Time      `json:"deadline"`
}

type choiceRequest struct {
	Text string `json:"text" validate:"required,max=500"`
	URL  string `json:"url" validate:"omitempty,url"`
}

type issueInvitationRequest struct {
	Email     string     `json:"email" validate:"omitempty,email"`
	UserID    *uuid.UUID `json:"user_id"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type invitationResponse struct {
	*domain.TokenGrant
	Token string `json:"token"`
}

func (h *SurveyHandler) CreateSurvey(w http.ResponseWriter, r *http.Request) {
	identity := identityFrom(r)
	if !identity.IsAuthenticated() {
		writeError(w, domain.ErrAuthRequired)
		return
	}

	var req createSurveyRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	input := ports.CreateSurveyInput{
		OwnerID:     *identity.UserID,
		Title:       req.Title,
		Question:    req.Question,
		Description: req.Description,
		Method:      domain.VotingMethod(req.Method),
		Choices: lo.Map(req.Choices, func(c choiceRequest, _ int) ports.ChoiceInput {
			return ports.ChoiceInput{Text: c.Text, URL: c.URL}
		}),
		IsAnonymous:   req.IsAnonymous,
		ResultsPublic: req.ResultsPublic,
		Deadline:      req.Deadline,
	}

	survey, err := h.service.Create(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, survey)
}

func (h *SurveyHandler) GetSurvey(w http.ResponseWriter, r *http.Request) {
	surveyID, ok := surveyIDParam(w, r)
	if !ok {
		return
	}

	survey, err := h.service.GetSurvey(r.Context(), surveyID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, survey)
}

func (h *SurveyHandler) IssueInvitation(w http.ResponseWriter, r *http.Request) {
	surveyID, ok := surveyIDParam(w, r)
	if !ok {
		return
	}
	identity := identityFrom(r)
	if !identity.IsAuthenticated() {
		writeError(w, domain.ErrAuthRequired)
		return
	}

	var req issueInvitationRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	grant, token, err := h.service.IssueInvitation(r.Context(), ports.IssueInvitationInput{
		SurveyID:  surveyID,
		Requester: identity,
		Email:     req.Email,
		UserID:    req.UserID,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, invitationResponse{TokenGrant: grant, Token: token})
}
