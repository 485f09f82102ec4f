package http

import (
	"net/http"

	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
	"github.com/vncsmyrnk/groupchoice/internal/core/ports"
)

type ResponseHandler struct {
	service ports.TallyingService
}

func NewResponseHandler(service ports.TallyingService) *ResponseHandler {
	return &ResponseHandler{
		service: service,
	}
}

type submitResponseRequest struct {
	Ranked []domain.RankedEntry `json:"ranked"`
	Stones []domain.StonesEntry `json:"stones"`
}

type visibilityResponse struct {
	ResultsPublic bool `json:"results_public"`
}

// SubmitResponse only checks the body is well-formed JSON. Ballot rules
// belong to the tallying service so their errors carry stable tags.
func (h *ResponseHandler) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	surveyID, ok := surveyIDParam(w, r)
	if !ok {
		return
	}

	var req submitResponseRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	response, err := h.service.SubmitResponse(r.Context(), ports.SubmitResponseInput{
		SurveyID:  surveyID,
		Requester: requesterFrom(r),
		Ballot:    domain.BallotInput{Ranked: req.Ranked, Stones: req.Stones},
		IPAddress: clientIP(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, response)
}

func (h *ResponseHandler) ListResponses(w http.ResponseWriter, r *http.Request) {
	surveyID, ok := surveyIDParam(w, r)
	if !ok {
		return
	}

	responses, err := h.service.ListResponses(r.Context(), surveyID, identityFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, responses)
}

func (h *ResponseHandler) GetResponseStatus(w http.ResponseWriter, r *http.Request) {
	surveyID, ok := surveyIDParam(w, r)
	if !ok {
		return
	}

	status, err := h.service.GetResponseStatus(r.Context(), surveyID, requesterFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (h *ResponseHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	surveyID, ok := surveyIDParam(w, r)
	if !ok {
		return
	}

	results, err := h.service.GetResults(r.Context(), surveyID, identityFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

func (h *ResponseHandler) ToggleResultsVisibility(w http.ResponseWriter, r *http.Request) {
	surveyID, ok := surveyIDParam(w, r)
	if !ok {
		return
	}

	public, err := h.service.ToggleResultsVisibility(r.Context(), surveyID, identityFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, visibilityResponse{ResultsPublic: public})
}
