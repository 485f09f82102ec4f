package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vncsmyrnk/groupchoice/internal/core/ports"
)

type cleanupService struct {
	surveys     ports.SurveyRepository
	invitations ports.InvitationRepository
	retention   time.Duration
	clock       ports.Clock
	logger      zerolog.Logger
}

// NewCleanupService purges unused invitations whose expiry passed more than
// retention ago.
func NewCleanupService(surveys ports.SurveyRepository, invitations ports.InvitationRepository, retention time.Duration, clock ports.Clock, logger zerolog.Logger) ports.CleanupService {
	return &cleanupService{
		surveys:     surveys,
		invitations: invitations,
		retention:   retention,
		clock:       clock,
		logger:      logger.With().Str("component", "cleanup").Logger(),
	}
}

func (s *cleanupService) PurgeExpiredInvitations(ctx context.Context) (int64, error) {
	ids, err := s.surveys.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch all surveys: %w", err)
	}

	before := s.clock.Now().Add(-s.retention)

	var (
		wg      sync.WaitGroup
		deleted atomic.Int64
	)
	errChan := make(chan error, len(ids))

	for _, id := range ids {
		wg.Add(1)
		go func(surveyID uuid.UUID) {
			defer wg.Done()
			n, err := s.invitations.DeleteExpired(ctx, surveyID, before)
			if err != nil {
				errChan <- fmt.Errorf("failed to purge invitations of survey %s: %w", surveyID, err)
				return
			}
			if n > 0 {
				s.logger.Debug().Str("survey_id", surveyID.String()).Int64("deleted", n).Msg("expired invitations purged")
			}
			deleted.Add(n)
		}(id)
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		if err != nil {
			return deleted.Load(), err
		}
	}

	return deleted.Load(), nil
}
