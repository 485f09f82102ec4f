package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vncsmyrnk/groupchoice/internal/core/domain"
)

const codeInvalidRequest = "INVALID_REQUEST"

type errorResponse struct {
	Error    string     `json:"error"`
	Message  string     `json:"message"`
	ChoiceID *uuid.UUID `json:"choice_id,omitempty"`
	Sum      *int       `json:"sum,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: codeInvalidRequest, Message: message})
}

// writeError renders err as the JSON error envelope. Internal failures never
// leak their cause to the client.
func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	body := errorResponse{
		Error:   domain.CodeOf(err),
		Message: err.Error(),
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		body.ChoiceID = verr.ChoiceID
		body.Sum = verr.Sum
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("request failed")
		body.Error = domain.CodeOf(domain.ErrInternal)
		body.Message = "internal error"
	}

	writeJSON(w, status, body)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrAlreadyResponded):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAuthRequired), errors.Is(err, domain.ErrInvalidCredential):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrSurveyInactive), errors.Is(err, domain.ErrSurveyExpired):
		return http.StatusGone
	}

	switch domain.KindOf(err) {
	case domain.KindEligibility, domain.KindAuthorization:
		return http.StatusForbidden
	case domain.KindValidation:
		return http.StatusUnprocessableEntity
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
