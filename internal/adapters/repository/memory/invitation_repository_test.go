package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
)

type stoppedClock time.Time

func (c stoppedClock) Now() time.Time {
	return time.Time(c)
}

func TestInvitationRepository_MarkUsed(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	repo := NewInvitationRepository(stoppedClock(now))
	surveyID, userID := uuid.New(), uuid.New()

	byToken := &domain.TokenGrant{SurveyID: surveyID, TokenHash: domain.HashToken("a"), CreatedAt: now}
	byUser := &domain.TokenGrant{SurveyID: surveyID, UserID: &userID, TokenHash: domain.HashToken("b"), CreatedAt: now}
	require.NoError(t, repo.Create(ctx, byToken))
	require.NoError(t, repo.Create(ctx, byUser))
	assert.ErrorIs(t, repo.Create(ctx, &domain.TokenGrant{SurveyID: surveyID, TokenHash: domain.HashToken("a")}), domain.ErrConflict)

	require.NoError(t, repo.MarkUsed(ctx, byToken.ID))
	require.NoError(t, repo.MarkUsedByUser(ctx, surveyID, userID))

	for _, token := range []string{"a", "b"} {
		grant, err := repo.GetByTokenHash(ctx, domain.HashToken(token))
		require.NoError(t, err)
		require.NotNil(t, grant)
		assert.True(t, grant.IsUsed)
		require.NotNil(t, grant.UsedAt)
		assert.Equal(t, now, *grant.UsedAt)
	}
}

func TestInvitationRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	repo := NewInvitationRepository(stoppedClock(now))
	surveyID := uuid.New()

	stale := &domain.TokenGrant{SurveyID: surveyID, TokenHash: domain.HashToken("stale"), ExpiresAt: lo.ToPtr(now.Add(-48 * time.Hour))}
	used := &domain.TokenGrant{SurveyID: surveyID, TokenHash: domain.HashToken("used"), ExpiresAt: lo.ToPtr(now.Add(-48 * time.Hour))}
	fresh := &domain.TokenGrant{SurveyID: surveyID, TokenHash: domain.HashToken("fresh"), ExpiresAt: lo.ToPtr(now.Add(time.Hour))}
	for _, g := range []*domain.TokenGrant{stale, used, fresh} {
		require.NoError(t, repo.Create(ctx, g))
	}
	require.NoError(t, repo.MarkUsed(ctx, used.ID))

	n, err := repo.DeleteExpired(ctx, surveyID, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	gone, err := repo.GetByTokenHash(ctx, domain.HashToken("stale"))
	require.NoError(t, err)
	assert.Nil(t, gone)
}
