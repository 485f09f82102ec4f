package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
	"github.com/vncsmyrnk/groupchoice/internal/core/ports"
)

const accessTokenTTL = 24 * time.Hour

var errInvalidAccessToken = errors.New("invalid access token")

// IdentityService resolves both kinds of credentials the engine accepts:
// signed access tokens for registered users and survey access tokens for
// invitees.
type IdentityService struct {
	userRepo    ports.UserRepository
	invitations ports.InvitationRepository
	jwtSecret   []byte
	clock       ports.Clock
}

func NewIdentityService(userRepo ports.UserRepository, invitations ports.InvitationRepository, jwtSecret string, clock ports.Clock) *IdentityService {
	return &IdentityService{
		userRepo:    userRepo,
		invitations: invitations,
		jwtSecret:   []byte(jwtSecret),
		clock:       clock,
	}
}

func (s *IdentityService) ResolveToken(ctx context.Context, surveyID uuid.UUID, token string) (*domain.TokenGrant, error) {
	grant, err := s.invitations.GetByTokenHash(ctx, domain.HashToken(token))
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	if grant == nil || grant.SurveyID != surveyID {
		return nil, domain.ErrInvalidToken
	}
	if grant.IsExpired(s.clock.Now()) {
		return nil, domain.ErrInvalidToken
	}
	return grant, nil
}

func (s *IdentityService) Authenticate(ctx context.Context, accessToken string) (domain.Identity, error) {
	token, err := jwt.Parse(accessToken, func(t *jwt.Token) (any, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return domain.Anonymous(), fmt.Errorf("%w: %w", errInvalidAccessToken, err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return domain.Anonymous(), fmt.Errorf("%w: %w", errInvalidAccessToken, err)
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return domain.Anonymous(), fmt.Errorf("%w: bad subject", errInvalidAccessToken)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return domain.Anonymous(), fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || user.DeletedAt != nil {
		return domain.Anonymous(), domain.ErrUserNotFound
	}

	identity := domain.UserIdentity(user.ID)
	identity.IsAdmin = user.IsAdmin
	return identity, nil
}

func (s *IdentityService) IssueAccessToken(user *domain.User) (string, error) {
	now := s.clock.Now()
	claims := jwt.MapClaims{
		"sub":   user.ID.String(),
		"email": user.Email,
		"exp":   now.Add(accessTokenTTL).Unix(),
		"iat":   now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func generateSurveyToken() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
