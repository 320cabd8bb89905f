// Package repository defines the store contracts and their in-memory and
// Postgres-backed implementations.
package repository

import (
	"context"

	"github.com/ledesport/podio/internal/domain/model"
)

// Directory is the athlete/coach/committee lookup surface.
type Directory interface {
	PutAthlete(ctx context.Context, a model.Athlete) error
	Athlete(ctx context.Context, id string) (model.Athlete, error)
	AthletesInCategory(ctx context.Context, category model.WeightCategory) ([]model.Athlete, error)
	CoachOf(ctx context.Context, athleteID string) (string, error)
	RegisterCommitteeMember(ctx context.Context, memberID string) error
	CommitteeMembers(ctx context.Context) ([]string, error)
	Count(ctx context.Context) int
}

// TestStore holds immutable physical-test snapshots.
type TestStore interface {
	AppendTest(ctx context.Context, t model.PhysicalTest) error
	// TestHistory returns the athlete's tests ordered by test date.
	TestHistory(ctx context.Context, athleteID string) ([]model.PhysicalTest, error)
}

// RecordStore holds append-only post-training records.
type RecordStore interface {
	AppendRecord(ctx context.Context, r model.PostTrainingRecord) error
	// RecordHistory returns the athlete's records ordered by session date.
	RecordHistory(ctx context.Context, athleteID string) ([]model.PostTrainingRecord, error)
}

// RecommendationStore persists workflow entities. Update applies only when
// the stored version equals expectedVersion; otherwise it returns
// ErrVersionConflict so concurrent dispositions resolve to one winner.
type RecommendationStore interface {
	Create(ctx context.Context, rec model.Recommendation) error
	Get(ctx context.Context, id string) (model.Recommendation, error)
	Update(ctx context.Context, rec model.Recommendation, expectedVersion int64) error
	// HasOpen reports whether a non-terminal recommendation already exists
	// for the same athlete, trigger kind and exercise. The trigger scan
	// uses it so repeated scans do not re-raise an open condition.
	HasOpen(ctx context.Context, athleteID string, trigger model.TriggerKind, exercise string) (bool, error)
	ListByAthlete(ctx context.Context, athleteID string) ([]model.Recommendation, error)
}

// NotificationFilter narrows a notification listing.
type NotificationFilter struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}

// NotificationStore persists inbox records. Notifications mutate only via
// MarkRead and are never deleted here.
type NotificationStore interface {
	Append(ctx context.Context, n model.Notification) error
	List(ctx context.Context, recipient string, f NotificationFilter) ([]model.Notification, error)
	MarkRead(ctx context.Context, id, recipient string) error
	Count(ctx context.Context) int
}
