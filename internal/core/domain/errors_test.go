package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	tests := []struct {
		err  error
		code string
		kind Kind
	}{
		{ErrSurveyExpired, "SURVEY_EXPIRED", KindEligibility},
		{ErrAlreadyResponded, "ALREADY_RESPONDED", KindEligibility},
		{fmt.Errorf("wrapped: %w", ErrInvalidToken), "INVALID_TOKEN", KindEligibility},
		{NewChoiceError(ErrUnknownChoice, uuid.New()), "UNKNOWN_CHOICE", KindValidation},
		{NewSumError(ErrStonesNotExhausted, 4), "STONES_NOT_EXHAUSTED", KindValidation},
		{ErrNotAuthorized, "NOT_AUTHORIZED", KindAuthorization},
		{fmt.Errorf("%w: %w", ErrInvalidCredential, errors.New("bad audience")), "INVALID_CREDENTIAL", KindAuthorization},
		{ErrSurveyNotFound, "SURVEY_NOT_FOUND", KindNotFound},
		{Internal("get survey", errors.New("dial tcp: refused")), "INTERNAL", KindInfrastructure},
		{errors.New("unclassified"), "INTERNAL", KindInfrastructure},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.code, CodeOf(tt.err))
			assert.Equal(t, tt.kind, KindOf(tt.err))
		})
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := NewSumError(ErrStonesOverAllocated, 6)
	assert.Equal(t, "more than 5 stones allocated: got 6", err.Error())
	assert.ErrorIs(t, err, ErrStonesOverAllocated)
}

func TestInternalNil(t *testing.T) {
	assert.NoError(t, Internal("op", nil))
}

func TestRespondentKey(t *testing.T) {
	surveyID := uuid.New()
	userID := uuid.New()
	grantID := uuid.New()

	userKey := RespondentKey(surveyID, &userID, nil)
	assert.Equal(t, userKey, RespondentKey(surveyID, &userID, &grantID))
	assert.NotEqual(t, userKey, RespondentKey(surveyID, nil, &grantID))
	assert.NotEqual(t, userKey, RespondentKey(uuid.New(), &userID, nil))
	assert.Empty(t, RespondentKey(surveyID, nil, nil))
	assert.Len(t, userKey, 64)
}

func TestBordaPoints(t *testing.T) {
	assert.Equal(t, 3, BordaPoints(3, 1))
	assert.Equal(t, 1, BordaPoints(3, 3))
	assert.Zero(t, BordaPoints(3, 4))
	assert.Zero(t, BordaPoints(3, 0))
}
