package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
	"github.com/vncsmyrnk/groupchoice/internal/core/ports"
)

type UserService struct {
	repo           ports.UserRepository
	identity       *IdentityService
	verifier       ports.TokenVerifier
	googleClientID string
}

func NewUserService(repo ports.UserRepository, identity *IdentityService, verifier ports.TokenVerifier, googleClientID string) *UserService {
	return &UserService{
		repo:           repo,
		identity:       identity,
		verifier:       verifier,
		googleClientID: googleClientID,
	}
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Internal("get user", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// LoginWithGoogle is the only way to obtain an access token. Without a
// configured client id every credential is refused, since the audience
// could not be checked.
func (s *UserService) LoginWithGoogle(ctx context.Context, credential string) (*domain.User, string, error) {
	if s.verifier == nil || s.googleClientID == "" {
		return nil, "", fmt.Errorf("%w: google sign-in is not configured", domain.ErrInvalidCredential)
	}

	payload, err := s.verifier.Verify(ctx, credential, s.googleClientID)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", domain.ErrInvalidCredential, err)
	}

	user, err := s.findOrCreate(ctx, payload.Email, payload.Name)
	if err != nil {
		return nil, "", err
	}

	token, err := s.identity.IssueAccessToken(user)
	if err != nil {
		return nil, "", domain.Internal("issue access token", err)
	}
	return user, token, nil
}

func (s *UserService) findOrCreate(ctx context.Context, email, name string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("%w: no email in credential", domain.ErrInvalidCredential)
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, domain.Internal("get user", err)
	}
	if user != nil {
		return user, nil
	}

	user = &domain.User{
		Email: email,
		Name:  strings.TrimSpace(name),
	}
	err = s.repo.Create(ctx, user)
	if errors.Is(err, domain.ErrConflict) {
		// a concurrent first sign-in for the same email won the insert
		user, err = s.repo.GetByEmail(ctx, email)
		if err == nil && user == nil {
			err = errors.New("user missing after conflicting insert")
		}
	}
	if err != nil {
		return nil, domain.Internal("create user", err)
	}
	return user, nil
}
