package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrSurveyNotFound = errors.New("survey not found")
	ErrInvalidSurvey  = errors.New("invalid survey")
	ErrUserNotFound   = errors.New("user not found")

	ErrInvalidCredential = errors.New("sign-in credential could not be verified")

	// eligibility, checked in this order
	ErrSurveyInactive   = errors.New("survey is not active")
	ErrSurveyExpired    = errors.New("survey deadline has passed")
	ErrInvalidToken     = errors.New("invalid or expired access token")
	ErrAuthRequired     = errors.New("authentication or access token required")
	ErrAlreadyResponded = errors.New("a response was already recorded for this survey")

	// ballot validation
	ErrUnknownChoice       = errors.New("choice does not belong to this survey")
	ErrInsufficientChoices = errors.New("at least two choices must be ranked")
	ErrDuplicateChoice     = errors.New("choice appears more than once")
	ErrInvalidRank         = errors.New("ranks must run 1..n without gaps or repeats")
	ErrStonesOutOfRange    = errors.New("stones per choice must be between 0 and 5")
	ErrStonesNotExhausted  = errors.New("all 5 stones must be allocated")
	ErrStonesOverAllocated = errors.New("more than 5 stones allocated")
	ErrUnsupportedMethod   = errors.New("unsupported voting method")

	ErrConflict        = errors.New("conflicting record")
	ErrNotAuthorized   = errors.New("not authorized")
	ErrResponsesHidden = errors.New("individual responses are not available for anonymous surveys")
	ErrInternal        = errors.New("internal server error")
)

// ValidationError carries enough detail for a caller to fix one ballot field
// without starting over.
type ValidationError struct {
	Err      error
	ChoiceID *uuid.UUID
	Sum      *int
}

func (e *ValidationError) Error() string {
	switch {
	case e.ChoiceID != nil:
		return fmt.Sprintf("%s: %s", e.Err, e.ChoiceID)
	case e.Sum != nil:
		return fmt.Sprintf("%s: got %d", e.Err, *e.Sum)
	default:
		return e.Err.Error()
	}
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func NewChoiceError(err error, id uuid.UUID) error {
	return &ValidationError{Err: err, ChoiceID: &id}
}

func NewSumError(err error, sum int) error {
	return &ValidationError{Err: err, Sum: &sum}
}

// Internal marks err as an opaque infrastructure failure while keeping the
// original cause reachable through errors.Is/As.
func Internal(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrInternal, err)
}

type Kind int

const (
	KindUnknown Kind = iota
	KindEligibility
	KindValidation
	KindConflict
	KindAuthorization
	KindNotFound
	KindInfrastructure
)

type codedError struct {
	err  error
	code string
	kind Kind
}

var codes = []codedError{
	{ErrSurveyInactive, "SURVEY_INACTIVE", KindEligibility},
	{ErrSurveyExpired, "SURVEY_EXPIRED", KindEligibility},
	{ErrInvalidToken, "INVALID_TOKEN", KindEligibility},
	{ErrAuthRequired, "AUTH_REQUIRED", KindEligibility},
	{ErrAlreadyResponded, "ALREADY_RESPONDED", KindEligibility},
	{ErrUnknownChoice, "UNKNOWN_CHOICE", KindValidation},
	{ErrInsufficientChoices, "INSUFFICIENT_CHOICES", KindValidation},
	{ErrDuplicateChoice, "DUPLICATE_CHOICE", KindValidation},
	{ErrInvalidRank, "INVALID_RANK", KindValidation},
	{ErrStonesOutOfRange, "STONES_OUT_OF_RANGE", KindValidation},
	{ErrStonesNotExhausted, "STONES_NOT_EXHAUSTED", KindValidation},
	{ErrStonesOverAllocated, "STONES_OVER_ALLOCATED", KindValidation},
	{ErrUnsupportedMethod, "UNSUPPORTED_METHOD", KindValidation},
	{ErrInvalidSurvey, "INVALID_SURVEY", KindValidation},
	{ErrConflict, "CONFLICT", KindConflict},
	{ErrInvalidCredential, "INVALID_CREDENTIAL", KindAuthorization},
	{ErrNotAuthorized, "NOT_AUTHORIZED", KindAuthorization},
	{ErrResponsesHidden, "RESPONSES_HIDDEN", KindAuthorization},
	{ErrSurveyNotFound, "SURVEY_NOT_FOUND", KindNotFound},
	{ErrUserNotFound, "USER_NOT_FOUND", KindNotFound},
	{ErrInternal, "INTERNAL", KindInfrastructure},
}

// CodeOf returns the stable machine-readable tag for err. Unclassified errors
// are reported as INTERNAL.
func CodeOf(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "INTERNAL"
}

func KindOf(err error) Kind {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.kind
		}
	}
	return KindInfrastructure
}
