// Package workflow implements the recommendation lifecycle state machine:
// PENDIENTE -> EN_PROCESO -> {CUMPLIDA, RECHAZADA, MODIFICADA}, with
// role-gated transitions and an optimistic version check that linearizes
// concurrent dispositions on a single entity.
package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ledesport/podio/internal/domain/model"
	"github.com/ledesport/podio/pkg/logger"
	"github.com/ledesport/podio/pkg/metrics"
)

// allowed is the transition table. Terminal states have no entry.
var allowed = map[model.Estado][]model.Operation{
	model.Pendiente: {model.OpBeginReview},
	model.EnProceso: {model.OpApprove, model.OpReject, model.OpModify},
}

// target maps each operation to the state it lands in.
var target = map[model.Operation]model.Estado{
	model.OpBeginReview: model.EnProceso,
	model.OpApprove:     model.Cumplida,
	model.OpReject:      model.Rechazada,
	model.OpModify:      model.Modificada,
}

// event maps each operation to the event kind the dispatcher fans out.
var event = map[model.Operation]model.EventKind{
	model.OpBeginReview: model.EventReviewStarted,
	model.OpApprove:     model.EventRecommendationApproved,
	model.OpReject:      model.EventRecommendationRejected,
	model.OpModify:      model.EventRecommendationModified,
}

// Actor is the caller identity and role used as transition guard input.
// The identity itself is established by an external collaborator.
type Actor struct {
	ID   string
	Role model.Role
}

// Request carries the operation and its payload.
type Request struct {
	Op model.Operation
	// Comment is the approve comentario or the reject motivo.
	Comment string
	// Alternative is the optional reject accionAlternativa.
	Alternative string
	// Modification is the audit payload for modify; persisted verbatim,
	// never applied automatically.
	Modification *model.Modification
	// Justification is mandatory and non-empty for modify.
	Justification string
}

// Store is the persistence contract for recommendations. Update must apply
// only when the stored version equals expectedVersion and must return
// repository-level ErrVersionConflict otherwise; the engine maps that to the
// caller-facing error taxonomy.
type Store interface {
	Get(ctx context.Context, id string) (model.Recommendation, error)
	Create(ctx context.Context, rec model.Recommendation) error
	Update(ctx context.Context, rec model.Recommendation, expectedVersion int64) error
}

// VersionConflict is implemented by store errors that signal a lost
// optimistic-version race.
type VersionConflict interface {
	VersionConflict() bool
}

// EventSink receives transition events for fan-out. Publishing happens after
// the state change is durably applied, so a transition either completes
// (apply + notify) or fails before any state is written.
type EventSink interface {
	Publish(ctx context.Context, ev model.Event)
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithClock overrides the transition timestamp source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.logger = log
		}
	}
}

// Engine validates and applies recommendation transitions.
type Engine struct {
	store  Store
	sink   EventSink
	now    func() time.Time
	logger logger.Logger
}

// New creates a workflow engine.
func New(store Store, sink EventSink, opts ...Option) *Engine {
	e := &Engine{
		store:  store,
		sink:   sink,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.Get().Named("workflow"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GenerateParams describe a system-triggered recommendation.
type GenerateParams struct {
	AthleteID   string
	AnalysisRef string
	Suggestion  model.Suggestion
	// OriginID links the new entity back to a MODIFICADA original when the
	// modification content spawns a fresh PENDIENTE. The spawn is a new
	// entity, never a reopened one.
	OriginID string
}

// Generate creates a new PENDIENTE recommendation. Only the system trigger
// path calls this; the creator is fixed to the algorithm.
func (e *Engine) Generate(ctx context.Context, p GenerateParams) (model.Recommendation, error) {
	now := e.now()
	rec := model.Recommendation{
		ID:          uuid.NewString(),
		AthleteID:   p.AthleteID,
		AnalysisRef: p.AnalysisRef,
		Suggestion:  p.Suggestion,
		Estado:      model.Pendiente,
		Creator:     model.CreatorAlgorithm,
		OriginID:    p.OriginID,
		Version:     1,
		CreatedAt:   now,
		Transitions: []model.Transition{{
			To:    model.Pendiente,
			Actor: model.CreatorAlgorithm,
			At:    now,
		}},
	}
	if err := e.store.Create(ctx, rec); err != nil {
		return model.Recommendation{}, err
	}
	metrics.RecordRecommendationGenerated(string(p.Suggestion.Trigger))
	e.publish(ctx, rec, model.EventRecommendationPending, p.Suggestion.Summary)
	return rec, nil
}

// Transition applies one operation to a recommendation. Invalid attempts
// fail with an InvalidTransitionError naming the current state and the
// allowed next operations; they never silently no-op. Two simultaneous
// dispositions resolve to exactly one winner via the version check.
func (e *Engine) Transition(ctx context.Context, id string, actor Actor, req Request) (model.Recommendation, error) {
	rec, err := e.store.Get(ctx, id)
	if err != nil {
		return model.Recommendation{}, err
	}

	next, err := e.validate(rec, actor, req)
	if err != nil {
		metrics.RecordTransitionRejected(string(req.Op))
		return model.Recommendation{}, err
	}

	expected := rec.Version
	now := e.now()
	e.apply(&rec, actor, req, next, now)
	rec.Version++

	if err := e.store.Update(ctx, rec, expected); err != nil {
		var vc VersionConflict
		if errors.As(err, &vc) && vc.VersionConflict() {
			return model.Recommendation{}, e.loserError(ctx, id, req)
		}
		return model.Recommendation{}, err
	}

	metrics.RecordTransitionApplied(string(req.Op), string(next))
	e.logger.Info(ctx, "recommendation transition applied",
		logger.String("recommendationID", rec.ID),
		logger.String("op", string(req.Op)),
		logger.String("estado", string(next)),
		logger.String("actor", actor.ID),
	)
	e.publish(ctx, rec, event[req.Op], req.Comment)
	return rec, nil
}

// validate runs the guard chain: state, role, review holder, payload.
func (e *Engine) validate(rec model.Recommendation, actor Actor, req Request) (model.Estado, error) {
	next, ok := target[req.Op]
	if !ok {
		return "", &InvalidTransitionError{
			RecommendationID: rec.ID,
			Current:          rec.Estado,
			Attempted:        req.Op,
			Allowed:          allowedOps(rec.Estado),
		}
	}
	if !operationAllowed(rec.Estado, req.Op) {
		return "", &InvalidTransitionError{
			RecommendationID: rec.ID,
			Current:          rec.Estado,
			Attempted:        req.Op,
			Allowed:          allowedOps(rec.Estado),
		}
	}

	// Every transition is committee-gated. The check lives inside the
	// operation so the state machine cannot be bypassed by a new entry
	// point.
	if actor.Role != model.RoleComiteTecnico {
		return "", &UnauthorizedError{Role: actor.Role, Attempted: req.Op}
	}

	switch req.Op {
	case model.OpApprove, model.OpReject, model.OpModify:
		// Disposition requires currently holding the review.
		if rec.Reviewer != actor.ID {
			return "", &UnauthorizedError{Role: actor.Role, Attempted: req.Op, Reason: "actor does not hold the review"}
		}
	case model.OpBeginReview:
	}

	if req.Op == model.OpModify {
		if strings.TrimSpace(req.Justification) == "" {
			return "", ErrJustificationRequired
		}
		if req.Modification == nil || len(req.Modification.Payload) == 0 {
			return "", ErrModificationRequired
		}
	}
	return next, nil
}

// apply mutates the in-memory copy; persistence happens in Transition.
func (e *Engine) apply(rec *model.Recommendation, actor Actor, req Request, next model.Estado, now time.Time) {
	comment := req.Comment
	switch req.Op {
	case model.OpBeginReview:
		rec.Reviewer = actor.ID
	case model.OpApprove:
		rec.Comment = req.Comment
	case model.OpReject:
		rec.Comment = req.Comment
		rec.Alternative = req.Alternative
	case model.OpModify:
		rec.Comment = req.Justification
		rec.Modification = req.Modification
		comment = req.Justification
	}
	rec.Transitions = append(rec.Transitions, model.Transition{
		From:    rec.Estado,
		To:      next,
		Op:      req.Op,
		Actor:   actor.ID,
		Comment: comment,
		At:      now,
	})
	rec.Estado = next
}

// loserError re-fetches the entity so the losing caller sees why it lost:
// if the state moved on, the operation is invalid there; if only the
// version moved, the caller may re-fetch and retry.
func (e *Engine) loserError(ctx context.Context, id string, req Request) error {
	current, err := e.store.Get(ctx, id)
	if err != nil {
		return ErrConcurrentModification
	}
	if !operationAllowed(current.Estado, req.Op) {
		return &InvalidTransitionError{
			RecommendationID: current.ID,
			Current:          current.Estado,
			Attempted:        req.Op,
			Allowed:          allowedOps(current.Estado),
		}
	}
	return ErrConcurrentModification
}

func (e *Engine) publish(ctx context.Context, rec model.Recommendation, kind model.EventKind, detail string) {
	if e.sink == nil {
		return
	}
	e.sink.Publish(ctx, model.Event{
		ID:               uuid.NewString(),
		Kind:             kind,
		AthleteID:        rec.AthleteID,
		RecommendationID: rec.ID,
		Detail:           detail,
		At:               e.now(),
	})
}

func operationAllowed(state model.Estado, op model.Operation) bool {
	for _, a := range allowed[state] {
		if a == op {
			return true
		}
	}
	return false
}

func allowedOps(state model.Estado) []model.Operation {
	return append([]model.Operation(nil), allowed[state]...)
}
