package services

import (
	"sort"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
)

// BallotValidator re-checks every submitted ballot from scratch. Nothing the
// client computed (remaining stones, drag order) is trusted.
type BallotValidator struct{}

func NewBallotValidator() *BallotValidator {
	return &BallotValidator{}
}

func (v *BallotValidator) Validate(survey *domain.Survey, input domain.BallotInput) (domain.Ballot, error) {
	switch survey.Method {
	case domain.MethodRankedChoice:
		return v.validateRanked(survey, input.Ranked)
	case domain.MethodFiveStones:
		return v.validateStones(survey, input.Stones)
	default:
		return domain.Ballot{}, domain.ErrUnsupportedMethod
	}
}

func (v *BallotValidator) validateRanked(survey *domain.Survey, entries []domain.RankedEntry) (domain.Ballot, error) {
	index := survey.ChoiceIndex()
	seen := make(map[uuid.UUID]struct{}, len(entries))
	for _, e := range entries {
		if _, ok := index[e.ChoiceID]; !ok {
			return domain.Ballot{}, domain.NewChoiceError(domain.ErrUnknownChoice, e.ChoiceID)
		}
		if _, dup := seen[e.ChoiceID]; dup {
			return domain.Ballot{}, domain.NewChoiceError(domain.ErrDuplicateChoice, e.ChoiceID)
		}
		seen[e.ChoiceID] = struct{}{}
	}
	if len(entries) < domain.MinRankedChoices {
		return domain.Ballot{}, domain.NewSumError(domain.ErrInsufficientChoices, len(entries))
	}

	sorted := make([]domain.RankedEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rank < sorted[j].Rank
	})
	for i, e := range sorted {
		if e.Rank != i+1 {
			return domain.Ballot{}, domain.NewChoiceError(domain.ErrInvalidRank, e.ChoiceID)
		}
	}

	return domain.Ballot{
		Method: domain.MethodRankedChoice,
		Ranking: lo.Map(sorted, func(e domain.RankedEntry, _ int) uuid.UUID {
			return e.ChoiceID
		}),
	}, nil
}

func (v *BallotValidator) validateStones(survey *domain.Survey, entries []domain.StonesEntry) (domain.Ballot, error) {
	index := survey.ChoiceIndex()
	allocation := make([]int, len(survey.Choices))
	seen := make(map[uuid.UUID]struct{}, len(entries))
	for _, e := range entries {
		i, ok := index[e.ChoiceID]
		if !ok {
			return domain.Ballot{}, domain.NewChoiceError(domain.ErrUnknownChoice, e.ChoiceID)
		}
		if _, dup := seen[e.ChoiceID]; dup {
			return domain.Ballot{}, domain.NewChoiceError(domain.ErrDuplicateChoice, e.ChoiceID)
		}
		seen[e.ChoiceID] = struct{}{}
		if e.Stones < 0 || e.Stones > domain.StonesPerBallot {
			return domain.Ballot{}, domain.NewChoiceError(domain.ErrStonesOutOfRange, e.ChoiceID)
		}
		allocation[i] = e.Stones
	}

	// choices left out of the payload hold zero stones
	switch sum := lo.Sum(allocation); {
	case sum < domain.StonesPerBallot:
		return domain.Ballot{}, domain.NewSumError(domain.ErrStonesNotExhausted, sum)
	case sum > domain.StonesPerBallot:
		return domain.Ballot{}, domain.NewSumError(domain.ErrStonesOverAllocated, sum)
	}

	return domain.Ballot{
		Method: domain.MethodFiveStones,
		Stones: lo.Map(survey.Choices, func(c domain.Choice, i int) domain.StonesEntry {
			return domain.StonesEntry{ChoiceID: c.ID, Stones: allocation[i]}
		}),
	}, nil
}
