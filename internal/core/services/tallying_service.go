package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
	"github.com/vncsmyrnk/groupchoice/internal/core/ports"
)

type tallyingService struct {
	surveys     ports.SurveyDirectory
	ledger      ports.ResponseLedger
	invitations ports.InvitationRepository
	gate        *EligibilityGate
	validator   *BallotValidator
	engine      TallyEngine
	clock       ports.Clock
	logger      zerolog.Logger
}

func NewTallyingService(
	surveys ports.SurveyDirectory,
	identities ports.IdentityProvider,
	ledger ports.ResponseLedger,
	invitations ports.InvitationRepository,
	clock ports.Clock,
	logger zerolog.Logger,
) ports.TallyingService {
	return &tallyingService{
		surveys:     surveys,
		ledger:      ledger,
		invitations: invitations,
		gate:        NewEligibilityGate(identities, ledger, clock),
		validator:   NewBallotValidator(),
		engine:      NewTallyEngine(),
		clock:       clock,
		logger:      logger.With().Str("component", "tallying").Logger(),
	}
}

func (s *tallyingService) SubmitResponse(ctx context.Context, input ports.SubmitResponseInput) (*domain.Response, error) {
	survey, err := s.getSurvey(ctx, input.SurveyID)
	if err != nil {
		return nil, err
	}

	respondent, err := s.gate.Check(ctx, survey, input.Requester)
	if err != nil {
		s.reject(survey.ID, err)
		return nil, err
	}

	ballot, err := s.validator.Validate(survey, input.Ballot)
	if err != nil {
		s.reject(survey.ID, err)
		return nil, err
	}

	response := &domain.Response{
		ID:            uuid.New(),
		SurveyID:      survey.ID,
		RespondentKey: respondent.Key,
		GrantID:       respondent.GrantID,
		Ballot:        ballot,
		SubmittedAt:   s.clock.Now(),
	}
	if !survey.IsAnonymous {
		response.UserID = respondent.UserID
		response.IPAddress = input.IPAddress
	}

	if err := s.ledger.Append(ctx, response); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.reject(survey.ID, domain.ErrAlreadyResponded)
			return nil, domain.ErrAlreadyResponded
		}
		s.logger.Error().Err(err).Str("survey_id", survey.ID.String()).Msg("failed to append response")
		return nil, domain.Internal("append response", err)
	}

	s.consumeGrants(ctx, survey.ID, respondent)

	s.logger.Info().
		Str("survey_id", survey.ID.String()).
		Str("response_id", response.ID.String()).
		Str("method", string(survey.Method)).
		Msg("response recorded")

	return response, nil
}

func (s *tallyingService) GetResults(ctx context.Context, surveyID uuid.UUID, requester domain.Identity) (*domain.ResultSet, error) {
	survey, err := s.getSurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if !survey.ResultsPublic && !survey.CanManage(requester) {
		return nil, domain.ErrNotAuthorized
	}

	responses, err := s.ledger.ListBySurvey(ctx, surveyID)
	if err != nil {
		return nil, domain.Internal("list responses", err)
	}

	return s.engine.Tally(survey, responses), nil
}

func (s *tallyingService) GetResponseStatus(ctx context.Context, surveyID uuid.UUID, requester domain.Requester) (domain.ResponseStatus, error) {
	survey, err := s.getSurvey(ctx, surveyID)
	if err != nil {
		return domain.ResponseStatus{}, err
	}

	respondent, grant, err := s.gate.Resolve(ctx, survey, requester)
	if err != nil {
		if errors.Is(err, domain.ErrAuthRequired) {
			return domain.ResponseStatus{}, nil
		}
		return domain.ResponseStatus{}, err
	}

	responded, err := s.gate.hasResponded(ctx, survey, respondent, grant)
	if err != nil {
		return domain.ResponseStatus{}, err
	}

	return domain.ResponseStatus{
		HasResponded: responded,
		CanRespond:   !responded && survey.IsActive && !survey.IsExpired(s.clock.Now()),
	}, nil
}

func (s *tallyingService) ListResponses(ctx context.Context, surveyID uuid.UUID, requester domain.Identity) ([]domain.Response, error) {
	survey, err := s.getSurvey(ctx, surveyID)
	if err != nil {
		return nil, err
	}
	if !survey.CanManage(requester) {
		return nil, domain.ErrNotAuthorized
	}
	if survey.IsAnonymous {
		return nil, domain.ErrResponsesHidden
	}

	responses, err := s.ledger.ListBySurvey(ctx, surveyID)
	if err != nil {
		return nil, domain.Internal("list responses", err)
	}
	return responses, nil
}

func (s *tallyingService) ToggleResultsVisibility(ctx context.Context, surveyID uuid.UUID, requester domain.Identity) (bool, error) {
	survey, err := s.getSurvey(ctx, surveyID)
	if err != nil {
		return false, err
	}
	if !survey.CanManage(requester) {
		return false, domain.ErrNotAuthorized
	}

	public := !survey.ResultsPublic
	if err := s.surveys.SetResultsPublic(ctx, surveyID, public); err != nil {
		if errors.Is(err, domain.ErrSurveyNotFound) {
			return false, err
		}
		return false, domain.Internal("set results visibility", err)
	}

	s.logger.Info().Str("survey_id", surveyID.String()).Bool("results_public", public).Msg("results visibility changed")
	return public, nil
}

func (s *tallyingService) getSurvey(ctx context.Context, id uuid.UUID) (*domain.Survey, error) {
	survey, err := s.surveys.GetSurvey(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrSurveyNotFound) {
			return nil, err
		}
		return nil, domain.Internal("get survey", err)
	}
	return survey, nil
}

// consumeGrants marks the grant that was used, and any grant linked to the
// responding user, as used. The response is already recorded, so failures
// here are only logged.
func (s *tallyingService) consumeGrants(ctx context.Context, surveyID uuid.UUID, respondent domain.Respondent) {
	if s.invitations == nil {
		return
	}
	if respondent.GrantID != nil {
		if err := s.invitations.MarkUsed(ctx, *respondent.GrantID); err != nil {
			s.logger.Warn().Err(err).Str("survey_id", surveyID.String()).Msg("failed to mark invitation used")
		}
	}
	if respondent.UserID != nil {
		if err := s.invitations.MarkUsedByUser(ctx, surveyID, *respondent.UserID); err != nil {
			s.logger.Warn().Err(err).Str("survey_id", surveyID.String()).Msg("failed to mark user invitations used")
		}
	}
}

func (s *tallyingService) reject(surveyID uuid.UUID, err error) {
	s.logger.Info().
		Str("survey_id", surveyID.String()).
		Str("code", domain.CodeOf(err)).
		Msg("response rejected")
}
