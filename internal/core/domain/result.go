package domain

import "github.com/google/uuid"

// ResultSet is derived on every read from the responses visible at that
// moment. It is never stored.
type ResultSet struct {
	SurveyID       uuid.UUID      `json:"survey_id"`
	Method         VotingMethod   `json:"method"`
	Scoring        string         `json:"scoring"`
	TotalResponses int            `json:"total_responses"`
	TotalStones    int            `json:"total_stones,omitempty"`
	Results        []ChoiceResult `json:"results"`
	Ranking        []uuid.UUID    `json:"ranking"`
}

type ChoiceResult struct {
	ChoiceID uuid.UUID `json:"choice_id"`
	Text     string    `json:"text"`
	URL      string    `json:"url,omitempty"`
	Score    int       `json:"score"`
	Rank     int       `json:"rank,omitempty"`

	// ranked choice only
	Rankings []int `json:"rankings,omitempty"`

	// five stones only
	Average      float64 `json:"average"`
	Distribution []int   `json:"distribution,omitempty"`
	Histogram    []int   `json:"histogram,omitempty"`
}

const (
	ScoringBorda     = "borda_count"
	ScoringStonesSum = "stones_sum"
)
