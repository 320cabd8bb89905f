package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/ledesport/podio/internal/domain/model"
)

// MemoryDirectory implements Directory in memory.
type MemoryDirectory struct {
	mu        sync.RWMutex
	athletes  map[string]model.Athlete
	committee []string
}

// NewMemoryDirectory creates an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{athletes: make(map[string]model.Athlete)}
}

// PutAthlete inserts or replaces an athlete record. Replacing is how a
// re-classification (category change) arrives; rankings are derived on
// demand so no further invalidation is needed.
func (d *MemoryDirectory) PutAthlete(ctx context.Context, a model.Athlete) error {
	if a.ID == "" || !a.Category.Valid() {
		return ErrInvalidAthlete
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.athletes[a.ID] = a
	return nil
}

// Athlete returns one athlete by id.
func (d *MemoryDirectory) Athlete(ctx context.Context, id string) (model.Athlete, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.athletes[id]
	if !ok {
		return model.Athlete{}, ErrNotFound
	}
	return a, nil
}

// AthletesInCategory lists athletes in a band, ordered by id so callers see
// a deterministic sequence regardless of map iteration order.
func (d *MemoryDirectory) AthletesInCategory(ctx context.Context, category model.WeightCategory) ([]model.Athlete, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []model.Athlete
	for _, a := range d.athletes {
		if a.Category == category {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CoachOf returns the athlete's coach id.
func (d *MemoryDirectory) CoachOf(ctx context.Context, athleteID string) (string, error) {
	a, err := d.Athlete(ctx, athleteID)
	if err != nil {
		return "", err
	}
	return a.CoachID, nil
}

// RegisterCommitteeMember adds a committee inbox address.
func (d *MemoryDirectory) RegisterCommitteeMember(ctx context.Context, memberID string) error {
	if memberID == "" {
		return ErrInvalidAthlete
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, m := range d.committee {
		if m == memberID {
			return nil
		}
	}
	d.committee = append(d.committee, memberID)
	return nil
}

// CommitteeMembers lists the registered committee inboxes.
func (d *MemoryDirectory) CommitteeMembers(ctx context.Context) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.committee...), nil
}

// Count returns the number of athletes tracked.
func (d *MemoryDirectory) Count(ctx context.Context) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.athletes)
}

// MemoryTestStore implements TestStore in memory.
type MemoryTestStore struct {
	mu    sync.RWMutex
	tests map[string][]model.PhysicalTest
}

// NewMemoryTestStore creates an empty test store.
func NewMemoryTestStore() *MemoryTestStore {
	return &MemoryTestStore{tests: make(map[string][]model.PhysicalTest)}
}

// AppendTest stores an immutable test snapshot.
func (s *MemoryTestStore) AppendTest(ctx context.Context, t model.PhysicalTest) error {
	if t.ID == "" || t.AthleteID == "" {
		return ErrInvalidRecord
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := t
	cp.Metrics = make(map[string]float64, len(t.Metrics))
	for k, v := range t.Metrics {
		cp.Metrics[k] = v
	}
	s.tests[t.AthleteID] = append(s.tests[t.AthleteID], cp)
	return nil
}

// TestHistory returns the athlete's tests ordered by test date, id on ties.
func (s *MemoryTestStore) TestHistory(ctx context.Context, athleteID string) ([]model.PhysicalTest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]model.PhysicalTest(nil), s.tests[athleteID]...)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TakenAt.Equal(out[j].TakenAt) {
			return out[i].TakenAt.Before(out[j].TakenAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// MemoryRecordStore implements RecordStore in memory.
type MemoryRecordStore struct {
	mu      sync.RWMutex
	records map[string][]model.PostTrainingRecord
}

// NewMemoryRecordStore creates an empty record store.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{records: make(map[string][]model.PostTrainingRecord)}
}

// AppendRecord stores one post-training entry.
func (s *MemoryRecordStore) AppendRecord(ctx context.Context, r model.PostTrainingRecord) error {
	if r.ID == "" || r.AthleteID == "" {
		return ErrInvalidRecord
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := r
	cp.AilmentIDs = append([]string(nil), r.AilmentIDs...)
	s.records[r.AthleteID] = append(s.records[r.AthleteID], cp)
	return nil
}

// RecordHistory returns the athlete's records ordered by session date.
func (s *MemoryRecordStore) RecordHistory(ctx context.Context, athleteID string) ([]model.PostTrainingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]model.PostTrainingRecord(nil), s.records[athleteID]...)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.Before(out[j].RecordedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// MemoryRecommendationStore implements RecommendationStore with an
// in-process optimistic version check.
type MemoryRecommendationStore struct {
	mu   sync.Mutex
	recs map[string]model.Recommendation
}

// NewMemoryRecommendationStore creates an empty recommendation store.
func NewMemoryRecommendationStore() *MemoryRecommendationStore {
	return &MemoryRecommendationStore{recs: make(map[string]model.Recommendation)}
}

// Create inserts a new entity.
func (s *MemoryRecommendationStore) Create(ctx context.Context, rec model.Recommendation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.recs[rec.ID]; exists {
		return ErrAlreadyExists
	}
	s.recs[rec.ID] = rec.Clone()
	return nil
}

// Get returns a copy of the entity.
func (s *MemoryRecommendationStore) Get(ctx context.Context, id string) (model.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return model.Recommendation{}, ErrNotFound
	}
	return rec.Clone(), nil
}

// Update replaces the entity only when the stored version still equals
// expectedVersion. The check and the write happen under one lock so two
// concurrent dispositions resolve to exactly one winner.
func (s *MemoryRecommendationStore) Update(ctx context.Context, rec model.Recommendation, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.recs[rec.ID]
	if !ok {
		return ErrNotFound
	}
	if current.Version != expectedVersion {
		return ErrVersionConflict
	}
	s.recs[rec.ID] = rec.Clone()
	return nil
}

// HasOpen reports whether a non-terminal entity exists for the same
// athlete/trigger/exercise.
func (s *MemoryRecommendationStore) HasOpen(ctx context.Context, athleteID string, trigger model.TriggerKind, exercise string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.recs {
		if rec.AthleteID != athleteID || rec.Estado.Terminal() {
			continue
		}
		if rec.Suggestion.Trigger == trigger && rec.Suggestion.Exercise == exercise {
			return true, nil
		}
	}
	return false, nil
}

// ListByAthlete returns the athlete's recommendations ordered by creation.
func (s *MemoryRecommendationStore) ListByAthlete(ctx context.Context, athleteID string) ([]model.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Recommendation
	for _, rec := range s.recs {
		if rec.AthleteID == athleteID {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Count returns the number of recommendations tracked.
func (s *MemoryRecommendationStore) Count(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recs)
}

// MemoryNotificationStore implements NotificationStore in memory.
type MemoryNotificationStore struct {
	mu          sync.RWMutex
	byID        map[string]*model.Notification
	byRecipient map[string][]string
}

// NewMemoryNotificationStore creates an empty notification store.
func NewMemoryNotificationStore() *MemoryNotificationStore {
	return &MemoryNotificationStore{
		byID:        make(map[string]*model.Notification),
		byRecipient: make(map[string][]string),
	}
}

// Append stores one notification.
func (s *MemoryNotificationStore) Append(ctx context.Context, n model.Notification) error {
	if n.ID == "" || n.Recipient == "" {
		return ErrInvalidRecord
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[n.ID]; exists {
		return ErrAlreadyExists
	}
	cp := n
	s.byID[n.ID] = &cp
	s.byRecipient[n.Recipient] = append(s.byRecipient[n.Recipient], n.ID)
	return nil
}

// List returns a recipient's notifications, newest first.
func (s *MemoryNotificationStore) List(ctx context.Context, recipient string, f NotificationFilter) ([]model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byRecipient[recipient]
	out := make([]model.Notification, 0, len(ids))
	// Stored in append order; walk backwards for newest first.
	for i := len(ids) - 1; i >= 0; i-- {
		n := s.byID[ids[i]]
		if f.UnreadOnly && n.Read {
			continue
		}
		out = append(out, *n)
	}
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []model.Notification{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(out) {
		out = out[:f.Limit]
	}
	return out, nil
}

// MarkRead flips the read flag. Only the addressed recipient may flip it.
func (s *MemoryNotificationStore) MarkRead(ctx context.Context, id, recipient string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if n.Recipient != recipient {
		return ErrWrongRecipient
	}
	n.Read = true
	return nil
}

// Count returns the number of notifications tracked.
func (s *MemoryNotificationStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
