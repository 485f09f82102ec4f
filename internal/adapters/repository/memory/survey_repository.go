// Package memory holds mutex-guarded in-process implementations of the
// storage ports. They back the unit tests and the STORAGE=memory server mode.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
)

type SurveyRepository struct {
	mu      sync.RWMutex
	surveys map[uuid.UUID]domain.Survey
	order   []uuid.UUID
}

func NewSurveyRepository() *SurveyRepository {
	return &SurveyRepository{
		surveys: make(map[uuid.UUID]domain.Survey),
	}
}

func (r *SurveyRepository) Save(ctx context.Context, survey *domain.Survey) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.surveys[survey.ID]; !ok {
		r.order = append(r.order, survey.ID)
	}
	r.surveys[survey.ID] = cloneSurvey(*survey)
	return nil
}

func (r *SurveyRepository) GetSurvey(ctx context.Context, id uuid.UUID) (*domain.Survey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	survey, ok := r.surveys[id]
	if !ok {
		return nil, domain.ErrSurveyNotFound
	}
	out := cloneSurvey(survey)
	return &out, nil
}

func (r *SurveyRepository) SetResultsPublic(ctx context.Context, id uuid.UUID, public bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	survey, ok := r.surveys[id]
	if !ok {
		return domain.ErrSurveyNotFound
	}
	survey.ResultsPublic = public
	r.surveys[id] = survey
	return nil
}

func (r *SurveyRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order), nil
}

func cloneSurvey(s domain.Survey) domain.Survey {
	s.Choices = slices.Clone(s.Choices)
	if s.Deadline != nil {
		s.Deadline = lo.ToPtr(*s.Deadline)
	}
	return s
}
