package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
)

// UserRepository backs identity resolution for access tokens: the subject of
// a token must still exist, and admin rights come from the stored record.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
}

// TokenPayload is what a verified sign-in credential vouches for.
type TokenPayload struct {
	Email string
	Name  string
}

type TokenVerifier interface {
	Verify(ctx context.Context, token string, clientID string) (*TokenPayload, error)
}

type UserService interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	// LoginWithGoogle verifies a Google ID token, creates the user on first
	// sign-in and returns a fresh access token for it.
	LoginWithGoogle(ctx context.Context, credential string) (*domain.User, string, error)
}
