package domain

import (
	"time"

	"github.com/google/uuid"
)

type VotingMethod string

const (
	MethodRankedChoice VotingMethod = "ranked_choice"
	MethodFiveStones   VotingMethod = "five_stones"
)

const (
	MinRankedChoices  = 2
	MaxRankedChoices  = 10
	FiveStonesChoices = 3
	StonesPerBallot   = 5
)

func (m VotingMethod) Valid() bool {
	return m == MethodRankedChoice || m == MethodFiveStones
}

type Survey struct {
	ID            uuid.UUID    `json:"id"`
	Title         string       `json:"title"`
	Question      string       `json:"question"`
	Description   string       `json:"description,omitempty"`
	Method        VotingMethod `json:"method"`
	Choices       []Choice     `json:"choices"`
	IsAnonymous   bool         `json:"is_anonymous"`
	ResultsPublic bool         `json:"results_public"`
	Deadline      *time.Time   `json:"deadline,omitempty"`
	IsActive      bool         `json:"is_active"`
	OwnerID       uuid.UUID    `json:"owner_id"`
	CreatedAt     time.Time    `json:"created_at"`
}

// Choice order is the survey's declared order. It decides initial display and
// breaks score ties, it never contributes points.
type Choice struct {
	ID       uuid.UUID `json:"id"`
	SurveyID uuid.UUID `json:"survey_id"`
	Text     string    `json:"text"`
	URL      string    `json:"url,omitempty"`
	Position int       `json:"position"`
}

func (s *Survey) IsExpired(now time.Time) bool {
	return s.Deadline != nil && now.After(*s.Deadline)
}

func (s *Survey) IsOwnedBy(identity Identity) bool {
	return identity.UserID != nil && *identity.UserID == s.OwnerID
}

// CanManage reports whether identity may read private results, list
// responses or flip the visibility flag.
func (s *Survey) CanManage(identity Identity) bool {
	return identity.IsAdmin || s.IsOwnedBy(identity)
}

func (s *Survey) ChoiceIndex() map[uuid.UUID]int {
	index := make(map[uuid.UUID]int, len(s.Choices))
	for i, c := range s.Choices {
		index[c.ID] = i
	}
	return index
}
