package services

import (
	"context"
	"errors"

	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
	"github.com/vncsmyrnk/groupchoice/internal/core/ports"
)

// EligibilityGate decides whether a new submission is allowed right now. The
// checks run in a fixed order and the first failure wins:
// survey active, deadline, identity resolution, no prior response.
type EligibilityGate struct {
	identities ports.IdentityProvider
	ledger     ports.ResponseLedger
	clock      ports.Clock
}

func NewEligibilityGate(identities ports.IdentityProvider, ledger ports.ResponseLedger, clock ports.Clock) *EligibilityGate {
	return &EligibilityGate{
		identities: identities,
		ledger:     ledger,
		clock:      clock,
	}
}

func (g *EligibilityGate) Check(ctx context.Context, survey *domain.Survey, requester domain.Requester) (domain.Respondent, error) {
	if !survey.IsActive {
		return domain.Respondent{}, domain.ErrSurveyInactive
	}
	if survey.IsExpired(g.clock.Now()) {
		return domain.Respondent{}, domain.ErrSurveyExpired
	}

	respondent, grant, err := g.Resolve(ctx, survey, requester)
	if err != nil {
		return domain.Respondent{}, err
	}

	responded, err := g.hasResponded(ctx, survey, respondent, grant)
	if err != nil {
		return domain.Respondent{}, err
	}
	if responded {
		return domain.Respondent{}, domain.ErrAlreadyResponded
	}

	return respondent, nil
}

// Resolve maps the requester to the respondent whose key the ledger dedups
// on. A supplied token always takes precedence over the session identity.
func (g *EligibilityGate) Resolve(ctx context.Context, survey *domain.Survey, requester domain.Requester) (domain.Respondent, *domain.TokenGrant, error) {
	if requester.Token != "" {
		grant, err := g.identities.ResolveToken(ctx, survey.ID, requester.Token)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidToken) {
				return domain.Respondent{}, nil, domain.ErrInvalidToken
			}
			return domain.Respondent{}, nil, domain.Internal("resolve token", err)
		}
		if grant.SurveyID != survey.ID || grant.IsExpired(g.clock.Now()) {
			return domain.Respondent{}, nil, domain.ErrInvalidToken
		}

		// a signed-in user keeps one key whichever way they arrive
		userID := grant.UserID
		if userID == nil {
			userID = requester.Identity.UserID
		}
		return domain.Respondent{
			Key:     domain.RespondentKey(survey.ID, userID, &grant.ID),
			UserID:  userID,
			GrantID: &grant.ID,
		}, grant, nil
	}

	if !requester.Identity.IsAuthenticated() {
		return domain.Respondent{}, nil, domain.ErrAuthRequired
	}
	return domain.Respondent{
		Key:    domain.RespondentKey(survey.ID, requester.Identity.UserID, nil),
		UserID: requester.Identity.UserID,
	}, nil, nil
}

func (g *EligibilityGate) hasResponded(ctx context.Context, survey *domain.Survey, respondent domain.Respondent, grant *domain.TokenGrant) (bool, error) {
	if grant != nil && grant.IsUsed {
		return true, nil
	}
	responded, err := g.ledger.HasResponded(ctx, survey.ID, respondent.Key)
	if err != nil {
		return false, domain.Internal("check existing response", err)
	}
	return responded, nil
}
