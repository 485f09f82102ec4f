package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
	"github.com/vncsmyrnk/groupchoice/internal/core/ports"
)

type InvitationRepository struct {
	mu     sync.RWMutex
	grants map[uuid.UUID]domain.TokenGrant
	clock  ports.Clock
}

func NewInvitationRepository(clock ports.Clock) *InvitationRepository {
	return &InvitationRepository{
		grants: make(map[uuid.UUID]domain.TokenGrant),
		clock:  clock,
	}
}

func (r *InvitationRepository) Create(ctx context.Context, grant *domain.TokenGrant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if grant.ID == uuid.Nil {
		grant.ID = uuid.New()
	}
	_, taken := lo.FindKeyBy(r.grants, func(_ uuid.UUID, g domain.TokenGrant) bool {
		return g.TokenHash == grant.TokenHash
	})
	if taken {
		return domain.ErrConflict
	}
	r.grants[grant.ID] = *grant
	return nil
}

func (r *InvitationRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.TokenGrant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	grant, ok := lo.Find(lo.Values(r.grants), func(g domain.TokenGrant) bool {
		return g.TokenHash == tokenHash
	})
	if !ok {
		return nil, nil
	}
	return &grant, nil
}

func (r *InvitationRepository) MarkUsed(ctx context.Context, grantID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	grant, ok := r.grants[grantID]
	if !ok || grant.IsUsed {
		return nil
	}
	r.markUsed(&grant)
	r.grants[grantID] = grant
	return nil
}

func (r *InvitationRepository) MarkUsedByUser(ctx context.Context, surveyID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, grant := range r.grants {
		if grant.SurveyID != surveyID || grant.UserID == nil || *grant.UserID != userID || grant.IsUsed {
			continue
		}
		r.markUsed(&grant)
		r.grants[id] = grant
	}
	return nil
}

func (r *InvitationRepository) DeleteExpired(ctx context.Context, surveyID uuid.UUID, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var deleted int64
	for id, grant := range r.grants {
		if grant.SurveyID != surveyID || grant.IsUsed || grant.ExpiresAt == nil || !grant.ExpiresAt.Before(before) {
			continue
		}
		delete(r.grants, id)
		deleted++
	}
	return deleted, nil
}

func (r *InvitationRepository) markUsed(grant *domain.TokenGrant) {
	grant.IsUsed = true
	grant.UsedAt = lo.ToPtr(r.clock.Now().UTC())
}
