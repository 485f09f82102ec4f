package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
)

type ledgerKey struct {
	surveyID      uuid.UUID
	respondentKey string
}

// ResponseLedger keeps responses per survey in submission order. The key set
// and the append happen under one lock, which is what makes Append atomic.
type ResponseLedger struct {
	mu        sync.RWMutex
	keys      map[ledgerKey]struct{}
	responses map[uuid.UUID][]domain.Response
}

func NewResponseLedger() *ResponseLedger {
	return &ResponseLedger{
		keys:      make(map[ledgerKey]struct{}),
		responses: make(map[uuid.UUID][]domain.Response),
	}
}

func (l *ResponseLedger) Append(ctx context.Context, response *domain.Response) error {
	key := ledgerKey{surveyID: response.SurveyID, respondentKey: response.RespondentKey}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.keys[key]; ok {
		return domain.ErrConflict
	}
	l.keys[key] = struct{}{}
	l.responses[response.SurveyID] = append(l.responses[response.SurveyID], cloneResponse(*response))
	return nil
}

func (l *ResponseLedger) HasResponded(ctx context.Context, surveyID uuid.UUID, respondentKey string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	_, ok := l.keys[ledgerKey{surveyID: surveyID, respondentKey: respondentKey}]
	return ok, nil
}

func (l *ResponseLedger) ListBySurvey(ctx context.Context, surveyID uuid.UUID) ([]domain.Response, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	stored := l.responses[surveyID]
	out := make([]domain.Response, 0, len(stored))
	for _, r := range stored {
		out = append(out, cloneResponse(r))
	}
	return out, nil
}

func cloneResponse(r domain.Response) domain.Response {
	r.Ballot.Ranking = slices.Clone(r.Ballot.Ranking)
	r.Ballot.Stones = slices.Clone(r.Ballot.Stones)
	return r
}
