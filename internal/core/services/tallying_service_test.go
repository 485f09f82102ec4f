package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
	"github.com/vncsmyrnk/groupchoice/internal/core/ports"
)

func submit(env *testEnv, survey *domain.Survey, requester domain.Requester, ballot domain.BallotInput) (*domain.Response, error) {
	return env.tallying.SubmitResponse(context.Background(), ports.SubmitResponseInput{
		SurveyID:  survey.ID,
		Requester: requester,
		Ballot:    ballot,
		IPAddress: "203.0.113.7",
	})
}

func TestTallyingService_SubmitResponse(t *testing.T) {
	t.Run("records a ranked ballot", func(t *testing.T) {
		env := newTestEnv(t)
		survey := newSurvey(domain.MethodRankedChoice, 3)
		env.seed(t, survey)
		requester := userRequester()

		response, err := submit(env, survey, requester, rankedBallot(survey.Choices[2], survey.Choices[0]))
		require.NoError(t, err)
		assert.Equal(t, survey.ID, response.SurveyID)
		assert.Equal(t, testNow, response.SubmittedAt)
		assert.Equal(t, requester.Identity.UserID, response.UserID)
		assert.Equal(t, "203.0.113.7", response.IPAddress)
		assert.Equal(t, []uuid.UUID{survey.Choices[2].ID, survey.Choices[0].ID}, response.Ballot.Ranking)

		stored, err := env.ledger.ListBySurvey(context.Background(), survey.ID)
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, response.ID, stored[0].ID)
	})

	t.Run("anonymous survey drops who and where", func(t *testing.T) {
		env := newTestEnv(t)
		survey := newSurvey(domain.MethodFiveStones, 3)
		survey.IsAnonymous = true
		env.seed(t, survey)

		response, err := submit(env, survey, userRequester(), stonesBallot(survey, 1, 2, 2))
		require.NoError(t, err)
		assert.Nil(t, response.UserID)
		assert.Empty(t, response.IPAddress)
		assert.NotEmpty(t, response.RespondentKey)
	})

	t.Run("second submission is already responded", func(t *testing.T) {
		env := newTestEnv(t)
		survey := newSurvey(domain.MethodRankedChoice, 3)
		env.seed(t, survey)
		requester := userRequester()

		_, err := submit(env, survey, requester, rankedBallot(survey.Choices...))
		require.NoError(t, err)
		_, err = submit(env, survey, requester, rankedBallot(survey.Choices...))
		assert.ErrorIs(t, err, domain.ErrAlreadyResponded)
	})

	t.Run("eligibility runs before validation", func(t *testing.T) {
		env := newTestEnv(t)
		survey := newSurvey(domain.MethodFiveStones, 3)
		survey.Deadline = ptr(testNow.Add(-time.Hour))
		env.seed(t, survey)

		_, err := submit(env, survey, userRequester(), stonesBallot(survey, 9, 9, 9))
		assert.ErrorIs(t, err, domain.ErrSurveyExpired)
	})

	t.Run("invalid ballot stores nothing", func(t *testing.T) {
		env := newTestEnv(t)
		survey := newSurvey(domain.MethodFiveStones, 3)
		env.seed(t, survey)
		requester := userRequester()

		_, err := submit(env, survey, requester, stonesBallot(survey, 2, 2, 2))
		require.ErrorIs(t, err, domain.ErrStonesOverAllocated)

		stored, err := env.ledger.ListBySurvey(context.Background(), survey.ID)
		require.NoError(t, err)
		assert.Empty(t, stored)

		_, err = submit(env, survey, requester, stonesBallot(survey, 1, 2, 2))
		assert.NoError(t, err)
	})

	t.Run("unknown survey", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := submit(env, newSurvey(domain.MethodRankedChoice, 3), userRequester(), domain.BallotInput{})
		assert.ErrorIs(t, err, domain.ErrSurveyNotFound)
	})

	t.Run("token submission consumes the grant", func(t *testing.T) {
		env := newTestEnv(t)
		survey := newSurvey(domain.MethodRankedChoice, 3)
		env.seed(t, survey)
		grant, token := env.invite(t, survey, nil)

		_, err := submit(env, survey, domain.Requester{Token: token}, rankedBallot(survey.Choices...))
		require.NoError(t, err)

		stored, err := env.invitations.GetByTokenHash(context.Background(), grant.TokenHash)
		require.NoError(t, err)
		assert.True(t, stored.IsUsed)
		assert.NotNil(t, stored.UsedAt)

		_, err = submit(env, survey, domain.Requester{Token: token}, rankedBallot(survey.Choices...))
		assert.ErrorIs(t, err, domain.ErrAlreadyResponded)
	})

	t.Run("login submission consumes linked grants", func(t *testing.T) {
		env := newTestEnv(t)
		survey := newSurvey(domain.MethodRankedChoice, 3)
		env.seed(t, survey)
		requester := userRequester()
		grant, token := env.invite(t, survey, requester.Identity.UserID)

		_, err := submit(env, survey, requester, rankedBallot(survey.Choices...))
		require.NoError(t, err)

		stored, err := env.invitations.GetByTokenHash(context.Background(), grant.TokenHash)
		require.NoError(t, err)
		assert.True(t, stored.IsUsed)

		_, err = submit(env, survey, domain.Requester{Token: token}, rankedBallot(survey.Choices...))
		assert.ErrorIs(t, err, domain.ErrAlreadyResponded)
	})

	t.Run("unlinked token then session counts once", func(t *testing.T) {
		env := newTestEnv(t)
		survey := newSurvey(domain.MethodRankedChoice, 3)
		env.seed(t, survey)
		_, token := env.invite(t, survey, nil)
		requester := userRequester()

		withToken := requester
		withToken.Token = token
		_, err := submit(env, survey, withToken, rankedBallot(survey.Choices...))
		require.NoError(t, err)

		_, err = submit(env, survey, requester, rankedBallot(survey.Choices...))
		assert.ErrorIs(t, err, domain.ErrAlreadyResponded)

		status, err := env.tallying.GetResponseStatus(context.Background(), survey.ID, requester)
		require.NoError(t, err)
		assert.True(t, status.HasResponded)

		responses, err := env.ledger.ListBySurvey(context.Background(), survey.ID)
		require.NoError(t, err)
		assert.Len(t, responses, 1)
	})

	t.Run("session then unlinked token counts once", func(t *testing.T) {
		env := newTestEnv(t)
		survey := newSurvey(domain.MethodRankedChoice, 3)
		env.seed(t, survey)
		_, token := env.invite(t, survey, nil)
		requester := userRequester()

		_, err := submit(env, survey, requester, rankedBallot(survey.Choices...))
		require.NoError(t, err)

		requester.Token = token
		_, err = submit(env, survey, requester, rankedBallot(survey.Choices...))
		assert.ErrorIs(t, err, domain.ErrAlreadyResponded)
	})
}

func TestTallyingService_ConcurrentSubmissions(t *testing.T) {
	const attempts = 32

	env := newTestEnv(t)
	survey := newSurvey(domain.MethodFiveStones, 3)
	env.seed(t, survey)
	requester := userRequester()

	var (
		wg       sync.WaitGroup
		start    = make(chan struct{})
		mu       sync.Mutex
		accepted int
		rejected int
		others   []error
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := submit(env, survey, requester, stonesBallot(survey, 5, 0, 0))

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case errors.Is(err, domain.ErrAlreadyResponded):
				rejected++
			default:
				others = append(others, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Empty(t, others)
	assert.Equal(t, 1, accepted)
	assert.Equal(t, attempts-1, rejected)

	stored, err := env.ledger.ListBySurvey(context.Background(), survey.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

// racingLedger reports no prior response, so only Append can catch the
// duplicate.
type racingLedger struct {
	ports.ResponseLedger
}

func (racingLedger) HasResponded(ctx context.Context, surveyID uuid.UUID, respondentKey string) (bool, error) {
	return false, nil
}

func TestTallyingService_ConflictMapsToAlreadyResponded(t *testing.T) {
	env := newTestEnv(t)
	survey := newSurvey(domain.MethodRankedChoice, 3)
	env.seed(t, survey)
	svc := NewTallyingService(env.surveys, env.identity, racingLedger{env.ledger}, env.invitations, env.clock, zerolog.Nop())

	requester := userRequester()
	input := ports.SubmitResponseInput{SurveyID: survey.ID, Requester: requester, Ballot: rankedBallot(survey.Choices...)}

	_, err := svc.SubmitResponse(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.SubmitResponse(context.Background(), input)
	assert.ErrorIs(t, err, domain.ErrAlreadyResponded)
	assert.NotErrorIs(t, err, domain.ErrConflict)
}

func TestTallyingService_GetResults(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, public bool) (*testEnv, *domain.Survey) {
		env := newTestEnv(t)
		survey := newSurvey(domain.MethodRankedChoice, 3)
		survey.ResultsPublic = public
		env.seed(t, survey)

		a, b, c := survey.Choices[0], survey.Choices[1], survey.Choices[2]
		_, err := submit(env, survey, userRequester(), rankedBallot(a, b, c))
		require.NoError(t, err)
		_, err = submit(env, survey, userRequester(), rankedBallot(b, a, c))
		require.NoError(t, err)
		return env, survey
	}

	t.Run("owner sees private results", func(t *testing.T) {
		env, survey := setup(t, false)

		set, err := env.tallying.GetResults(ctx, survey.ID, domain.UserIdentity(survey.OwnerID))
		require.NoError(t, err)
		assert.Equal(t, 2, set.TotalResponses)
		assert.Equal(t, []uuid.UUID{survey.Choices[0].ID, survey.Choices[1].ID, survey.Choices[2].ID}, set.Ranking)
		assert.Equal(t, 5, set.Results[0].Score)
		assert.Equal(t, 5, set.Results[1].Score)
		assert.Equal(t, 2, set.Results[2].Score)
	})

	t.Run("admin sees private results", func(t *testing.T) {
		env, survey := setup(t, false)
		admin := domain.UserIdentity(uuid.New())
		admin.IsAdmin = true

		_, err := env.tallying.GetResults(ctx, survey.ID, admin)
		assert.NoError(t, err)
	})

	t.Run("others are refused private results", func(t *testing.T) {
		env, survey := setup(t, false)

		_, err := env.tallying.GetResults(ctx, survey.ID, domain.UserIdentity(uuid.New()))
		assert.ErrorIs(t, err, domain.ErrNotAuthorized)

		_, err = env.tallying.GetResults(ctx, survey.ID, domain.Anonymous())
		assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	})

	t.Run("anyone sees public results", func(t *testing.T) {
		env, survey := setup(t, true)

		_, err := env.tallying.GetResults(ctx, survey.ID, domain.Anonymous())
		assert.NoError(t, err)
	})

	t.Run("idempotent read", func(t *testing.T) {
		env, survey := setup(t, true)

		first, err := env.tallying.GetResults(ctx, survey.ID, domain.Anonymous())
		require.NoError(t, err)
		second, err := env.tallying.GetResults(ctx, survey.ID, domain.Anonymous())
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestTallyingService_GetResponseStatus(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	survey := newSurvey(domain.MethodRankedChoice, 3)
	env.seed(t, survey)
	requester := userRequester()

	status, err := env.tallying.GetResponseStatus(ctx, survey.ID, requester)
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseStatus{HasResponded: false, CanRespond: true}, status)

	_, err = submit(env, survey, requester, rankedBallot(survey.Choices...))
	require.NoError(t, err)

	status, err = env.tallying.GetResponseStatus(ctx, survey.ID, requester)
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseStatus{HasResponded: true, CanRespond: false}, status)

	status, err = env.tallying.GetResponseStatus(ctx, survey.ID, domain.Requester{})
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseStatus{}, status)

	_, err = env.tallying.GetResponseStatus(ctx, survey.ID, domain.Requester{Token: "bogus"})
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	env.clock.now = testNow.Add(time.Hour)
	closed := newSurvey(domain.MethodRankedChoice, 3)
	closed.Deadline = ptr(testNow)
	env.seed(t, closed)

	status, err = env.tallying.GetResponseStatus(ctx, closed.ID, requester)
	require.NoError(t, err)
	assert.Equal(t, domain.ResponseStatus{HasResponded: false, CanRespond: false}, status)
}

func TestTallyingService_ListResponses(t *testing.T) {
	ctx := context.Background()

	t.Run("owner lists responses", func(t *testing.T) {
		env := newTestEnv(t)
		survey := newSurvey(domain.MethodFiveStones, 3)
		env.seed(t, survey)
		_, err := submit(env, survey, userRequester(), stonesBallot(survey, 5, 0, 0))
		require.NoError(t, err)

		responses, err := env.tallying.ListResponses(ctx, survey.ID, domain.UserIdentity(survey.OwnerID))
		require.NoError(t, err)
		assert.Len(t, responses, 1)
	})

	t.Run("non owner is refused", func(t *testing.T) {
		env := newTestEnv(t)
		survey := newSurvey(domain.MethodFiveStones, 3)
		env.seed(t, survey)

		_, err := env.tallying.ListResponses(ctx, survey.ID, domain.UserIdentity(uuid.New()))
		assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	})

	t.Run("anonymous survey hides responses", func(t *testing.T) {
		env := newTestEnv(t)
		survey := newSurvey(domain.MethodFiveStones, 3)
		survey.IsAnonymous = true
		env.seed(t, survey)

		_, err := env.tallying.ListResponses(ctx, survey.ID, domain.UserIdentity(survey.OwnerID))
		assert.ErrorIs(t, err, domain.ErrResponsesHidden)
	})
}

func TestTallyingService_ToggleResultsVisibility(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	survey := newSurvey(domain.MethodRankedChoice, 3)
	env.seed(t, survey)
	owner := domain.UserIdentity(survey.OwnerID)

	_, err := env.tallying.ToggleResultsVisibility(ctx, survey.ID, domain.UserIdentity(uuid.New()))
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	public, err := env.tallying.ToggleResultsVisibility(ctx, survey.ID, owner)
	require.NoError(t, err)
	assert.True(t, public)

	_, err = env.tallying.GetResults(ctx, survey.ID, domain.Anonymous())
	assert.NoError(t, err)

	public, err = env.tallying.ToggleResultsVisibility(ctx, survey.ID, owner)
	require.NoError(t, err)
	assert.False(t, public)
}
