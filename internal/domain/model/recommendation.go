package model

import (
	"encoding/json"
	"time"
)

// Estado is the workflow state of a recommendation.
type Estado string

// Workflow states. PENDIENTE and EN_PROCESO are the only non-terminal
// states; the rest are terminal with respect to further transition.
const (
	Pendiente  Estado = "PENDIENTE"
	EnProceso  Estado = "EN_PROCESO"
	Cumplida   Estado = "CUMPLIDA"
	Rechazada  Estado = "RECHAZADA"
	Modificada Estado = "MODIFICADA"
)

// Terminal reports whether no further transition is allowed from e.
func (e Estado) Terminal() bool {
	switch e {
	case Cumplida, Rechazada, Modificada:
		return true
	default:
		return false
	}
}

// Operation is a workflow transition operation.
type Operation string

// Transition operations accepted by the workflow engine.
const (
	OpBeginReview Operation = "beginReview"
	OpApprove     Operation = "approve"
	OpReject      Operation = "reject"
	OpModify      Operation = "modify"
)

// TriggerKind names the deterministic condition that generated a
// recommendation or alert.
type TriggerKind string

// Trigger kinds evaluated by the analysis pipeline.
const (
	TriggerNegativeTrend TriggerKind = "negative_trend"
	TriggerOverload      TriggerKind = "overload"
	TriggerScoreDrop     TriggerKind = "score_drop"
	TriggerAilment       TriggerKind = "ailment"
)

// Suggestion is the structured content generated for a recommendation.
type Suggestion struct {
	Trigger  TriggerKind `json:"trigger"`
	Exercise string      `json:"exercise,omitempty"`
	Summary  string      `json:"summary"`
	Value    float64     `json:"value"`
}

// Modification is the audit payload recorded by the modify operation. The
// payload is stored verbatim as an opaque, versioned blob; Kind tags the
// known modification shapes so the trail stays inspectable.
type Modification struct {
	Kind          string          `json:"kind"`
	SchemaVersion int             `json:"schema_version"`
	Payload       json.RawMessage `json:"payload"`
}

// Transition is one audit entry in a recommendation's history.
type Transition struct {
	From    Estado    `json:"from"`
	To      Estado    `json:"to"`
	Op      Operation `json:"op"`
	Actor   string    `json:"actor"`
	Comment string    `json:"comment,omitempty"`
	At      time.Time `json:"at"`
}

// CreatorAlgorithm is the fixed creator of system-generated recommendations.
const CreatorAlgorithm = "algorithm"

// Recommendation is the workflow entity. All mutation goes through the
// guarded transition operations; Version backs the optimistic check that
// linearizes concurrent dispositions. Entities are never deleted;
// superseded ones are marked, not removed.
type Recommendation struct {
	ID           string        `json:"id"`
	AthleteID    string        `json:"athlete_id"`
	AnalysisRef  string        `json:"analysis_ref"`
	Suggestion   Suggestion    `json:"suggestion"`
	Estado       Estado        `json:"estado"`
	Creator      string        `json:"creator"`
	Reviewer     string        `json:"reviewer,omitempty"`
	Comment      string        `json:"comment,omitempty"`
	Alternative  string        `json:"alternative,omitempty"`
	Modification *Modification `json:"modification,omitempty"`
	// OriginID links an entity spawned from a MODIFICADA disposition back
	// to the original for audit.
	OriginID    string       `json:"origin_id,omitempty"`
	Version     int64        `json:"version"`
	CreatedAt   time.Time    `json:"created_at"`
	Transitions []Transition `json:"transitions"`
}

// Clone returns a deep copy so stored entities are never aliased by callers.
func (r Recommendation) Clone() Recommendation {
	out := r
	if r.Modification != nil {
		m := *r.Modification
		m.Payload = append(json.RawMessage(nil), r.Modification.Payload...)
		out.Modification = &m
	}
	out.Transitions = append([]Transition(nil), r.Transitions...)
	return out
}
