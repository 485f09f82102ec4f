// Package cache decorates the survey directory with a read-through local
// cache. Surveys are read on every submission and result request, and the
// visibility flag is the only field that changes after creation.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/marshaler"
	"github.com/eko/gocache/lib/v4/store"
	ristrettostore "github.com/eko/gocache/store/ristretto/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
	"github.com/vncsmyrnk/groupchoice/internal/core/ports"
)

const surveyTag = "survey"

// NewStore builds the ristretto-backed store shared by the cache decorators.
func NewStore() (store.StoreInterface, error) {
	client, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     1 << 26,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create ristretto cache: %w", err)
	}
	return ristrettostore.NewRistretto(client), nil
}

type SurveyCache struct {
	next    ports.SurveyRepository
	marshal *marshaler.Marshaler
	ttl     time.Duration
	logger  zerolog.Logger
}

func NewSurveyCache(next ports.SurveyRepository, s store.StoreInterface, ttl time.Duration, logger zerolog.Logger) *SurveyCache {
	return &SurveyCache{
		next:    next,
		marshal: marshaler.New(cache.New[any](s)),
		ttl:     ttl,
		logger:  logger.With().Str("component", "survey_cache").Logger(),
	}
}

func (c *SurveyCache) GetSurvey(ctx context.Context, id uuid.UUID) (*domain.Survey, error) {
	key := surveyKey(id)
	if cached, err := c.marshal.Get(ctx, key, new(domain.Survey)); err == nil {
		return cached.(*domain.Survey), nil
	}

	survey, err := c.next.GetSurvey(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := c.marshal.Set(ctx, key, survey,
		store.WithExpiration(c.ttl),
		store.WithTags([]string{surveyTag}),
	); err != nil {
		c.logger.Debug().Err(err).Str("survey_id", id.String()).Msg("failed to cache survey")
	}
	return survey, nil
}

func (c *SurveyCache) SetResultsPublic(ctx context.Context, id uuid.UUID, public bool) error {
	if err := c.next.SetResultsPublic(ctx, id, public); err != nil {
		return err
	}
	c.invalidate(ctx, id)
	return nil
}

func (c *SurveyCache) Save(ctx context.Context, survey *domain.Survey) error {
	if err := c.next.Save(ctx, survey); err != nil {
		return err
	}
	c.invalidate(ctx, survey.ID)
	return nil
}

func (c *SurveyCache) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	return c.next.ListIDs(ctx)
}

func (c *SurveyCache) invalidate(ctx context.Context, id uuid.UUID) {
	if err := c.marshal.Delete(ctx, surveyKey(id)); err != nil {
		c.logger.Debug().Err(err).Str("survey_id", id.String()).Msg("failed to evict survey")
	}
}

func surveyKey(id uuid.UUID) string {
	return fmt.Sprintf("survey#%s", id)
}
