package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Identity is the caller as seen by the Identity Provider. The zero value is
// an anonymous caller.
type Identity struct {
	UserID  *uuid.UUID
	IsAdmin bool
}

func Anonymous() Identity {
	return Identity{}
}

func UserIdentity(id uuid.UUID) Identity {
	return Identity{UserID: &id}
}

func (i Identity) IsAuthenticated() bool {
	return i.UserID != nil
}

// Requester is everything a submission or status call carries about who is
// asking: the resolved identity and an optional survey access token.
type Requester struct {
	Identity Identity
	Token    string
}

// TokenGrant is a survey-scoped access grant issued to an invitee. Only the
// sha256 of the raw token is ever stored.
type TokenGrant struct {
	ID        uuid.UUID  `json:"id"`
	SurveyID  uuid.UUID  `json:"survey_id"`
	Email     string     `json:"email,omitempty"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	TokenHash string     `json:"-"`
	IsUsed    bool       `json:"is_used"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (g *TokenGrant) IsExpired(now time.Time) bool {
	return g.ExpiresAt != nil && now.After(*g.ExpiresAt)
}

func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// Respondent is the resolved submitter of a ballot. Key is what the ledger
// enforces uniqueness on, UserID and GrantID are only bookkeeping.
type Respondent struct {
	Key     string
	UserID  *uuid.UUID
	GrantID *uuid.UUID
}

// RespondentKey derives the per-survey dedup key. Grants linked to a user
// share that user's key so a person answers once whichever way they arrive.
func RespondentKey(surveyID uuid.UUID, userID *uuid.UUID, grantID *uuid.UUID) string {
	var subject string
	switch {
	case userID != nil:
		subject = "user:" + userID.String()
	case grantID != nil:
		subject = "token:" + grantID.String()
	default:
		return ""
	}
	return HashToken(surveyID.String() + ":" + subject)
}
