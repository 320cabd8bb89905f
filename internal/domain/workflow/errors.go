package workflow

import (
	"errors"
	"fmt"

	"github.com/ledesport/podio/internal/domain/model"
)

// Sentinel kinds for workflow errors.
var (
	// ErrConcurrentModification marks a lost optimistic-version race where
	// the operation would still be valid; the caller may re-fetch and retry.
	ErrConcurrentModification = errors.New("recommendation modified concurrently")

	// ErrJustificationRequired rejects a modify without a non-empty
	// justificacion.
	ErrJustificationRequired = errors.New("justification is required for modify")

	// ErrModificationRequired rejects a modify without an audit payload.
	ErrModificationRequired = errors.New("modification payload is required for modify")
)

// InvalidTransitionError identifies the current state, the attempted
// operation, and the operations that would be allowed instead.
type InvalidTransitionError struct {
	RecommendationID string
	Current          model.Estado
	Attempted        model.Operation
	Allowed          []model.Operation
}

func (e *InvalidTransitionError) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("invalid transition %s on %s: state %s is terminal", e.Attempted, e.RecommendationID, e.Current)
	}
	return fmt.Sprintf("invalid transition %s on %s: state is %s, allowed: %v", e.Attempted, e.RecommendationID, e.Current, e.Allowed)
}

// UnauthorizedError rejects a transition whose actor fails the role or
// review-holder guard.
type UnauthorizedError struct {
	Role      model.Role
	Attempted model.Operation
	Reason    string
}

func (e *UnauthorizedError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("role %s may not %s: %s", e.Role, e.Attempted, e.Reason)
	}
	return fmt.Sprintf("role %s may not %s", e.Role, e.Attempted)
}
