package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
	"github.com/vncsmyrnk/groupchoice/internal/core/ports"
)

const defaultInvitationTTL = 30 * 24 * time.Hour

type surveyService struct {
	repo        ports.SurveyRepository
	invitations ports.InvitationRepository
	clock       ports.Clock
	logger      zerolog.Logger
}

func NewSurveyService(repo ports.SurveyRepository, invitations ports.InvitationRepository, clock ports.Clock, logger zerolog.Logger) ports.SurveyService {
	return &surveyService{
		repo:        repo,
		invitations: invitations,
		clock:       clock,
		logger:      logger.With().Str("component", "surveys").Logger(),
	}
}

func (s *surveyService) Create(ctx context.Context, input ports.CreateSurveyInput) (*domain.Survey, error) {
	title := strings.TrimSpace(input.Title)
	question := strings.TrimSpace(input.Question)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidSurvey)
	}
	if question == "" {
		return nil, fmt.Errorf("%w: question is required", domain.ErrInvalidSurvey)
	}
	if !input.Method.Valid() {
		return nil, domain.ErrUnsupportedMethod
	}

	now := s.clock.Now()
	if input.Deadline != nil && !input.Deadline.After(now) {
		return nil, fmt.Errorf("%w: deadline must be in the future", domain.ErrInvalidSurvey)
	}

	surveyID := uuid.New()
	survey := &domain.Survey{
		ID:            surveyID,
		Title:         title,
		Question:      question,
		Description:   strings.TrimSpace(input.Description),
		Method:        input.Method,
		IsAnonymous:   input.IsAnonymous,
		ResultsPublic: input.ResultsPublic,
		Deadline:      input.Deadline,
		IsActive:      true,
		OwnerID:       input.OwnerID,
		CreatedAt:     now,
	}

	for _, c := range input.Choices {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			return nil, fmt.Errorf("%w: choice text is required", domain.ErrInvalidSurvey)
		}
		survey.Choices = append(survey.Choices, domain.Choice{
			ID:       uuid.New(),
			SurveyID: surveyID,
			Text:     text,
			URL:      strings.TrimSpace(c.URL),
			Position: len(survey.Choices),
		})
	}

	switch survey.Method {
	case domain.MethodRankedChoice:
		if n := len(survey.Choices); n < domain.MinRankedChoices || n > domain.MaxRankedChoices {
			return nil, fmt.Errorf("%w: ranked choice surveys need %d to %d choices",
				domain.ErrInvalidSurvey, domain.MinRankedChoices, domain.MaxRankedChoices)
		}
	case domain.MethodFiveStones:
		if len(survey.Choices) != domain.FiveStonesChoices {
			return nil, fmt.Errorf("%w: five stones surveys need exactly %d choices",
				domain.ErrInvalidSurvey, domain.FiveStonesChoices)
		}
	}

	if err := s.repo.Save(ctx, survey); err != nil {
		return nil, domain.Internal("save survey", err)
	}

	s.logger.Info().Str("survey_id", survey.ID.String()).Str("method", string(survey.Method)).Msg("survey created")
	return survey, nil
}

func (s *surveyService) GetSurvey(ctx context.Context, id uuid.UUID) (*domain.Survey, error) {
	survey, err := s.repo.GetSurvey(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSurveyNotFound) {
			return nil, err
		}
		return nil, domain.Internal("get survey", err)
	}
	return survey, nil
}

func (s *surveyService) IssueInvitation(ctx context.Context, input ports.IssueInvitationInput) (*domain.TokenGrant, string, error) {
	survey, err := s.GetSurvey(ctx, input.SurveyID)
	if err != nil {
		return nil, "", err
	}
	if !survey.CanManage(input.Requester) {
		return nil, "", domain.ErrNotAuthorized
	}

	now := s.clock.Now()
	expiresAt := input.ExpiresAt
	if expiresAt == nil {
		if survey.Deadline != nil {
			expiresAt = survey.Deadline
		} else {
			t := now.Add(defaultInvitationTTL)
			expiresAt = &t
		}
	}

	token, err := generateSurveyToken()
	if err != nil {
		return nil, "", domain.Internal("generate survey token", err)
	}

	grant := &domain.TokenGrant{
		ID:        uuid.New(),
		SurveyID:  survey.ID,
		Email:     strings.TrimSpace(input.Email),
		UserID:    input.UserID,
		TokenHash: domain.HashToken(token),
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}
	if err := s.invitations.Create(ctx, grant); err != nil {
		return nil, "", domain.Internal("create invitation", err)
	}

	s.logger.Info().Str("survey_id", survey.ID.String()).Str("grant_id", grant.ID.String()).Msg("invitation issued")
	return grant, token, nil
}
