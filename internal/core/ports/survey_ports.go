package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
)

// SurveyDirectory is the read side of survey metadata the engine consumes.
// The results-visibility flag is the only field the engine ever writes.
type SurveyDirectory interface {
	GetSurvey(ctx context.Context, id uuid.UUID) (*domain.Survey, error)
	SetResultsPublic(ctx context.Context, id uuid.UUID, public bool) error
}

type SurveyRepository interface {
	SurveyDirectory
	Save(ctx context.Context, survey *domain.Survey) error
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

type CreateSurveyInput struct {
	OwnerID       uuid.UUID
	Title         string
	Question      string
	Description   string
	Method        domain.VotingMethod
	Choices       []ChoiceInput
	IsAnonymous   bool
	ResultsPublic bool
	Deadline      *time.Time
}

type ChoiceInput struct {
	Text string
	URL  string
}

type IssueInvitationInput struct {
	SurveyID  uuid.UUID
	Requester domain.Identity
	Email     string
	UserID    *uuid.UUID
	ExpiresAt *time.Time
}

type SurveyService interface {
	Create(ctx context.Context, input CreateSurveyInput) (*domain.Survey, error)
	GetSurvey(ctx context.Context, id uuid.UUID) (*domain.Survey, error)
	// IssueInvitation returns the stored grant and the raw token. The raw
	// token is not recoverable afterwards.
	IssueInvitation(ctx context.Context, input IssueInvitationInput) (*domain.TokenGrant, string, error)
}
