package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
)

// IdentityProvider resolves survey access tokens into grants. Unknown tokens,
// tokens scoped to another survey and expired grants all yield
// domain.ErrInvalidToken.
type IdentityProvider interface {
	ResolveToken(ctx context.Context, surveyID uuid.UUID, token string) (*domain.TokenGrant, error)
}

type InvitationRepository interface {
	Create(ctx context.Context, grant *domain.TokenGrant) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.TokenGrant, error)
	MarkUsed(ctx context.Context, grantID uuid.UUID) error
	MarkUsedByUser(ctx context.Context, surveyID, userID uuid.UUID) error
	DeleteExpired(ctx context.Context, surveyID uuid.UUID, before time.Time) (int64, error)
}

// Authenticator turns a bearer access token into the caller's identity.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (domain.Identity, error)
}
