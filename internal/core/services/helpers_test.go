package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/groupchoice/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
	"github.com/vncsmyrnk/groupchoice/internal/core/ports"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

func newSurvey(method domain.VotingMethod, n int) *domain.Survey {
	surveyID := uuid.New()
	survey := &domain.Survey{
		ID:        surveyID,
		Title:     "Team lunch",
		Question:  "Where should we eat?",
		Method:    method,
		IsActive:  true,
		OwnerID:   uuid.New(),
		CreatedAt: testNow.Add(-time.Hour),
	}
	for i := 0; i < n; i++ {
		survey.Choices = append(survey.Choices, domain.Choice{
			ID:       uuid.New(),
			SurveyID: surveyID,
			Text:     fmt.Sprintf("Choice %c", 'A'+i),
			Position: i,
		})
	}
	return survey
}

func rankedBallot(choices ...domain.Choice) domain.BallotInput {
	var input domain.BallotInput
	for i, c := range choices {
		input.Ranked = append(input.Ranked, domain.RankedEntry{ChoiceID: c.ID, Rank: i + 1})
	}
	return input
}

func stonesBallot(survey *domain.Survey, stones ...int) domain.BallotInput {
	var input domain.BallotInput
	for i, s := range stones {
		input.Stones = append(input.Stones, domain.StonesEntry{ChoiceID: survey.Choices[i].ID, Stones: s})
	}
	return input
}

func userRequester() domain.Requester {
	return domain.Requester{Identity: domain.UserIdentity(uuid.New())}
}

type testEnv struct {
	clock       *fixedClock
	surveys     *memory.SurveyRepository
	ledger      *memory.ResponseLedger
	invitations *memory.InvitationRepository
	users       *memory.UserRepository
	identity    *IdentityService
	tallying    ports.TallyingService
	surveySvc   ports.SurveyService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clock := &fixedClock{now: testNow}
	env := &testEnv{
		clock:       clock,
		surveys:     memory.NewSurveyRepository(),
		ledger:      memory.NewResponseLedger(),
		invitations: memory.NewInvitationRepository(clock),
		users:       memory.NewUserRepository(),
	}
	env.identity = NewIdentityService(env.users, env.invitations, "test-secret", env.clock)
	env.tallying = NewTallyingService(env.surveys, env.identity, env.ledger, env.invitations, env.clock, zerolog.Nop())
	env.surveySvc = NewSurveyService(env.surveys, env.invitations, env.clock, zerolog.Nop())
	return env
}

func (e *testEnv) seed(t *testing.T, survey *domain.Survey) {
	t.Helper()
	require.NoError(t, e.surveys.Save(context.Background(), survey))
}

// invite issues a grant on behalf of the survey owner and returns the raw token.
func (e *testEnv) invite(t *testing.T, survey *domain.Survey, userID *uuid.UUID) (*domain.TokenGrant, string) {
	t.Helper()
	grant, token, err := e.surveySvc.IssueInvitation(context.Background(), ports.IssueInvitationInput{
		SurveyID:  survey.ID,
		Requester: domain.UserIdentity(survey.OwnerID),
		UserID:    userID,
	})
	require.NoError(t, err)
	return grant, token
}
