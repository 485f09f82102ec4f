package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
	"github.com/vncsmyrnk/groupchoice/internal/core/ports"
)

type invitationRepository struct {
	db *sql.DB
}

func NewInvitationRepository(db *sql.DB) ports.InvitationRepository {
	return &invitationRepository{
		db: db,
	}
}

func (r *invitationRepository) Create(ctx context.Context, grant *domain.TokenGrant) error {
	if grant.ID == uuid.Nil {
		grant.ID = uuid.New()
	}
	query := `
		INSERT INTO survey_invitations (id, survey_id, email, user_id, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		grant.ID, grant.SurveyID, grant.Email, grant.UserID, grant.TokenHash, grant.ExpiresAt, grant.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConflict
		}
		return fmt.Errorf("failed to insert invitation: %w", err)
	}
	return nil
}

func (r *invitationRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.TokenGrant, error) {
	query := `
		SELECT id, survey_id, email, user_id, token_hash, is_used, used_at, expires_at, created_at
		FROM survey_invitations
		WHERE token_hash = $1
	`
	grant := &domain.TokenGrant{}
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&grant.ID, &grant.SurveyID, &grant.Email, &grant.UserID, &grant.TokenHash,
		&grant.IsUsed, &grant.UsedAt, &grant.ExpiresAt, &grant.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return grant, nil
}

func (r *invitationRepository) MarkUsed(ctx context.Context, grantID uuid.UUID) error {
	query := `UPDATE survey_invitations SET is_used = TRUE, used_at = NOW() WHERE id = $1 AND NOT is_used`
	if _, err := r.db.ExecContext(ctx, query, grantID); err != nil {
		return fmt.Errorf("failed to mark invitation used: %w", err)
	}
	return nil
}

func (r *invitationRepository) MarkUsedByUser(ctx context.Context, surveyID, userID uuid.UUID) error {
	query := `
		UPDATE survey_invitations SET is_used = TRUE, used_at = NOW()
		WHERE survey_id = $1 AND user_id = $2 AND NOT is_used
	`
	if _, err := r.db.ExecContext(ctx, query, surveyID, userID); err != nil {
		return fmt.Errorf("failed to mark user invitations used: %w", err)
	}
	return nil
}

func (r *invitationRepository) DeleteExpired(ctx context.Context, surveyID uuid.UUID, before time.Time) (int64, error) {
	query := `
		DELETE FROM survey_invitations
		WHERE survey_id = $1 AND NOT is_used AND expires_at IS NOT NULL AND expires_at < $2
	`
	res, err := r.db.ExecContext(ctx, query, surveyID, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired invitations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}
