package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
)

// ResponseLedger is the append-only store of accepted ballots. Append must
// check and insert in one atomic step: a second response for the same
// (survey, respondent key) fails with domain.ErrConflict and stores nothing.
type ResponseLedger interface {
	Append(ctx context.Context, response *domain.Response) error
	HasResponded(ctx context.Context, surveyID uuid.UUID, respondentKey string) (bool, error)
	ListBySurvey(ctx context.Context, surveyID uuid.UUID) ([]domain.Response, error)
}

type SubmitResponseInput struct {
	SurveyID  uuid.UUID
	Requester domain.Requester
	Ballot    domain.BallotInput
	IPAddress string
}

type TallyingService interface {
	SubmitResponse(ctx context.Context, input SubmitResponseInput) (*domain.Response, error)
	GetResults(ctx context.Context, surveyID uuid.UUID, requester domain.Identity) (*domain.ResultSet, error)
	GetResponseStatus(ctx context.Context, surveyID uuid.UUID, requester domain.Requester) (domain.ResponseStatus, error)
	ListResponses(ctx context.Context, surveyID uuid.UUID, requester domain.Identity) ([]domain.Response, error)
	ToggleResultsVisibility(ctx context.Context, surveyID uuid.UUID, requester domain.Identity) (bool, error)
}

type CleanupService interface {
	PurgeExpiredInvitations(ctx context.Context) (int64, error)
}
