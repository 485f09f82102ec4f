package services

import (
	"sort"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
)

// TallyEngine aggregates ballots into a ResultSet. It is a pure function of
// the survey and the response list and is safe to call concurrently.
type TallyEngine struct{}

func NewTallyEngine() TallyEngine {
	return TallyEngine{}
}

func (e TallyEngine) Tally(survey *domain.Survey, responses []domain.Response) *domain.ResultSet {
	results := lo.Map(survey.Choices, func(c domain.Choice, _ int) domain.ChoiceResult {
		return domain.ChoiceResult{ChoiceID: c.ID, Text: c.Text, URL: c.URL}
	})
	index := survey.ChoiceIndex()

	set := &domain.ResultSet{
		SurveyID:       survey.ID,
		Method:         survey.Method,
		TotalResponses: len(responses),
		Ranking:        []uuid.UUID{},
	}

	switch survey.Method {
	case domain.MethodRankedChoice:
		set.Scoring = domain.ScoringBorda
		e.tallyBorda(results, index, responses)
	case domain.MethodFiveStones:
		set.Scoring = domain.ScoringStonesSum
		set.TotalStones = len(responses) * domain.StonesPerBallot
		e.tallyStones(results, index, responses)
	}

	if len(responses) == 0 {
		set.Results = results
		return set
	}

	// declared order is the tie-break, so the sort must be stable
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	for i := range results {
		results[i].Rank = i + 1
		set.Ranking = append(set.Ranking, results[i].ChoiceID)
	}
	set.Results = results
	return set
}

func (e TallyEngine) tallyBorda(results []domain.ChoiceResult, index map[uuid.UUID]int, responses []domain.Response) {
	n := len(results)
	for _, r := range responses {
		for pos, choiceID := range r.Ballot.Ranking {
			i, ok := index[choiceID]
			if !ok {
				continue
			}
			rank := pos + 1
			results[i].Score += domain.BordaPoints(n, rank)
			results[i].Rankings = append(results[i].Rankings, rank)
		}
	}
}

func (e TallyEngine) tallyStones(results []domain.ChoiceResult, index map[uuid.UUID]int, responses []domain.Response) {
	for i := range results {
		results[i].Histogram = make([]int, domain.StonesPerBallot+1)
		results[i].Distribution = []int{}
	}
	for _, r := range responses {
		for _, s := range r.Ballot.Stones {
			i, ok := index[s.ChoiceID]
			if !ok || s.Stones < 0 || s.Stones > domain.StonesPerBallot {
				continue
			}
			results[i].Score += s.Stones
			results[i].Distribution = append(results[i].Distribution, s.Stones)
			results[i].Histogram[s.Stones]++
		}
	}
	for i := range results {
		if len(responses) > 0 {
			results[i].Average = float64(results[i].Score) / float64(len(responses))
		}
	}
}
