package api

import (
	"errors"
	"net/http"

	"github.com/ledesport/podio/internal/adapters/repository"
	"github.com/ledesport/podio/internal/domain/ranking"
	"github.com/ledesport/podio/internal/domain/scoring"
	"github.com/ledesport/podio/internal/domain/workflow"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// mapError translates domain errors to HTTP status codes and envelopes.
// Invalid transitions surface the current state and the valid next
// operations so callers can recover without guessing.
func mapError(err error) (int, errorBody) {
	var invalid *workflow.InvalidTransitionError
	if errors.As(err, &invalid) {
		return http.StatusConflict, errorBody{
			Code:    "invalid_state_transition",
			Message: invalid.Error(),
			State:   string(invalid.Current),
			Allowed: invalid.Allowed,
		}
	}
	var unauthorized *workflow.UnauthorizedError
	if errors.As(err, &unauthorized) {
		return http.StatusForbidden, errorBody{Code: "forbidden", Message: unauthorized.Error()}
	}
	var confErr *scoring.ConfigurationError
	if errors.As(err, &confErr) {
		return http.StatusInternalServerError, errorBody{Code: "configuration_error", Message: confErr.Error()}
	}

	switch {
	case errors.Is(err, workflow.ErrConcurrentModification):
		return http.StatusConflict, errorBody{Code: "concurrent_modification", Message: err.Error()}
	case errors.Is(err, workflow.ErrJustificationRequired),
		errors.Is(err, workflow.ErrModificationRequired),
		errors.Is(err, ErrBadRequest),
		errors.Is(err, repository.ErrInvalidAthlete),
		errors.Is(err, repository.ErrInvalidRecord),
		errors.Is(err, ranking.ErrUnknownCategory):
		return http.StatusBadRequest, errorBody{Code: "bad_request", Message: err.Error()}
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, ranking.ErrUnranked):
		return http.StatusNotFound, errorBody{Code: "not_found", Message: err.Error()}
	case errors.Is(err, repository.ErrWrongRecipient):
		return http.StatusForbidden, errorBody{Code: "forbidden", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorBody{Code: "internal_error", Message: err.Error()}
	}
}
