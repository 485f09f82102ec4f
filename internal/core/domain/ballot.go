package domain

import (
	"time"

	"github.com/google/uuid"
)

type RankedEntry struct {
	ChoiceID uuid.UUID `json:"choice_id"`
	Rank     int       `json:"rank"`
}

type StonesEntry struct {
	ChoiceID uuid.UUID `json:"choice_id"`
	Stones   int       `json:"stones"`
}

// BallotInput is a ballot exactly as the client sent it. Only the field
// matching the survey's method is read.
type BallotInput struct {
	Ranked []RankedEntry `json:"ranked,omitempty"`
	Stones []StonesEntry `json:"stones,omitempty"`
}

// Ballot is a validated, normalized ballot. Ranking lists choice ids with
// rank 1 first. Stones holds one entry per survey choice in declared order.
type Ballot struct {
	Method  VotingMethod  `json:"method"`
	Ranking []uuid.UUID   `json:"ranking,omitempty"`
	Stones  []StonesEntry `json:"stones,omitempty"`
}

// BordaPoints is what a choice at the given 1-based rank earns when n choices
// are in play.
func BordaPoints(n, rank int) int {
	if rank < 1 || rank > n {
		return 0
	}
	return n - rank + 1
}

type Response struct {
	ID            uuid.UUID  `json:"id"`
	SurveyID      uuid.UUID  `json:"survey_id"`
	RespondentKey string     `json:"-"`
	UserID        *uuid.UUID `json:"user_id,omitempty"`
	GrantID       *uuid.UUID `json:"-"`
	Ballot        Ballot     `json:"ballot"`
	SubmittedAt   time.Time  `json:"submitted_at"`
	IPAddress     string     `json:"-"`
}

type ResponseStatus struct {
	HasResponded bool `json:"has_responded"`
	CanRespond   bool `json:"can_respond"`
}
