// Package app provides the core service that wires the scoring, ranking,
// analysis, workflow and dispatch components behind the external surface.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	eventqueue "github.com/ledesport/podio/internal/adapters/mq/queue"
	workerpool "github.com/ledesport/podio/internal/adapters/mq/worker"
	"github.com/ledesport/podio/internal/adapters/repository"
	"github.com/ledesport/podio/internal/domain/analysis"
	"github.com/ledesport/podio/internal/domain/dedupe"
	"github.com/ledesport/podio/internal/domain/dispatch"
	"github.com/ledesport/podio/internal/domain/model"
	"github.com/ledesport/podio/internal/domain/ranking"
	"github.com/ledesport/podio/internal/domain/scoring"
	"github.com/ledesport/podio/internal/domain/workflow"
	"github.com/ledesport/podio/pkg/logger"
	"github.com/ledesport/podio/pkg/metrics"
)

// EventPublisher mirrors events to an external stream. Optional.
type EventPublisher interface {
	Publish(ctx context.Context, ev model.Event) error
	Close() error
}

// Service implements the engine's external operations.
type Service struct {
	mu sync.RWMutex

	// Stores
	directory     repository.Directory
	tests         repository.TestStore
	records       repository.RecordStore
	recs          repository.RecommendationStore
	notifications repository.NotificationStore

	// Core components
	calc       scoring.Calculator
	ranker     *ranking.Engine
	aggregator *analysis.Aggregator
	engine     *workflow.Engine
	dispatcher *dispatch.Dispatcher
	deduper    dedupe.Deduper
	queue      eventqueue.Queue
	workers    *workerpool.Pool
	publisher  EventPublisher

	// Configuration
	workerCount  int
	queueSize    int
	dedupeSize   int
	references   map[model.WeightCategory]scoring.CategoryReferences
	cutPoints    map[model.WeightCategory]ranking.CutPoints
	thresholds   analysis.Thresholds
	minSamples   int
	recentWindow int
	policy       dispatch.Policy
	maxPageSize  int

	// Scan state: previous scores and classifications, used to detect
	// score drops and ranking changes between scans.
	prevScores map[string]decimal.Decimal
	prevClass  map[string]model.Classification

	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// WithWorkerCount sets the number of dispatch workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize bounds the event queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the delivery dedupe cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithReferences sets the per-category scoring reference ranges.
func WithReferences(refs map[model.WeightCategory]scoring.CategoryReferences) Option {
	return func(s *Service) {
		s.references = refs
	}
}

// WithCutPoints sets the per-category classification cut points.
func WithCutPoints(cuts map[model.WeightCategory]ranking.CutPoints) Option {
	return func(s *Service) {
		s.cutPoints = cuts
	}
}

// WithTrendThresholds sets the trigger thresholds.
func WithTrendThresholds(th analysis.Thresholds) Option {
	return func(s *Service) {
		s.thresholds = th
	}
}

// WithAnalysisWindow tunes the aggregator sample requirements.
func WithAnalysisWindow(minSamples, recentWindow int) Option {
	return func(s *Service) {
		if minSamples > 1 {
			s.minSamples = minSamples
		}
		if recentWindow > 0 {
			s.recentWindow = recentWindow
		}
	}
}

// WithDispatchPolicy sets the notification fan-out policy.
func WithDispatchPolicy(p dispatch.Policy) Option {
	return func(s *Service) {
		s.policy = p
	}
}

// WithMaxPageSize caps notification listing pages.
func WithMaxPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxPageSize = n
		}
	}
}

// WithWorkflowStores injects external recommendation/notification stores
// (e.g. the Postgres-backed ones) in place of the in-memory defaults.
func WithWorkflowStores(recs repository.RecommendationStore, notifications repository.NotificationStore) Option {
	return func(s *Service) {
		if recs != nil {
			s.recs = recs
		}
		if notifications != nil {
			s.notifications = notifications
		}
	}
}

// WithEventPublisher mirrors workflow events to an external stream.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  4,
		queueSize:    10_000,
		dedupeSize:   100_000,
		minSamples:   2,
		recentWindow: 3,
		maxPageSize:  100,
		prevScores:   make(map[string]decimal.Decimal),
		prevClass:    make(map[string]model.Classification),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("app")
	}

	s.directory = repository.NewMemoryDirectory()
	s.tests = repository.NewMemoryTestStore()
	s.records = repository.NewMemoryRecordStore()
	if s.recs == nil {
		s.recs = repository.NewMemoryRecommendationStore()
	}
	if s.notifications == nil {
		s.notifications = repository.NewMemoryNotificationStore()
	}

	s.calc = scoring.NewReferenceCalculator(scoring.WithReferences(s.references))
	s.ranker = ranking.New(s.directory, s.tests, s.calc,
		ranking.WithCutPoints(s.cutPoints),
		ranking.WithLogger(s.logger.Named("ranking")),
	)
	s.aggregator = analysis.NewAggregator(s.records,
		analysis.WithMinSamples(s.minSamples),
		analysis.WithRecentWindow(s.recentWindow),
	)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.dispatcher = dispatch.New(s.directory, s.notifications, s.deduper,
		dispatch.WithPolicy(s.policy),
		dispatch.WithLogger(s.logger.Named("dispatch")),
	)
	s.engine = workflow.New(s.recs, &eventSink{service: s},
		workflow.WithLogger(s.logger.Named("workflow")),
	)
	s.workers = workerpool.NewPool(s.workerCount, s.queue, s.dispatcher)
	s.workers.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "engine started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping engine...")

	if s.queue != nil && !s.queue.IsClosed() {
		_ = s.queue.Close()
	}
	if s.workers != nil {
		s.workers.Stop()
	}
	if s.publisher != nil {
		_ = s.publisher.Close()
	}
	s.started = false
	s.logger.Info(ctx, "engine stopped")
}

// eventSink routes workflow events into the dispatch queue and, when
// configured, mirrors them to the external stream.
type eventSink struct {
	service *Service
}

func (es *eventSink) Publish(ctx context.Context, ev model.Event) {
	es.service.publishEvent(ctx, ev)
}

func (s *Service) publishEvent(ctx context.Context, ev model.Event) {
	if !s.queue.Enqueue(ctx, ev) {
		s.logger.Warn(ctx, "event queue full, dropping event",
			logger.String("eventID", ev.ID),
			logger.String("kind", string(ev.Kind)),
		)
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logger.Warn(ctx, "stream publish failed", logger.Error(err))
		}
	}
}

// RegisterAthlete inserts or replaces an athlete record.
func (s *Service) RegisterAthlete(ctx context.Context, a model.Athlete) error {
	return s.directory.PutAthlete(ctx, a)
}

// RegisterCommitteeMember adds a committee inbox address.
func (s *Service) RegisterCommitteeMember(ctx context.Context, memberID string) error {
	return s.directory.RegisterCommitteeMember(ctx, memberID)
}

// IngestPhysicalTest stores a test snapshot and runs a synchronous trigger
// scan for the athlete.
func (s *Service) IngestPhysicalTest(ctx context.Context, t model.PhysicalTest) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := s.tests.AppendTest(ctx, t); err != nil {
		return err
	}
	return s.ScanAthlete(ctx, t.AthleteID)
}

// IngestPostTrainingRecord stores a session entry, raises an ailment alert
// when the record links ailments, and runs a synchronous trigger scan.
func (s *Service) IngestPostTrainingRecord(ctx context.Context, r model.PostTrainingRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if err := s.records.AppendRecord(ctx, r); err != nil {
		return err
	}
	if len(r.AilmentIDs) > 0 {
		// The event id is derived from the record so a re-ingested record
		// cannot double-alert.
		s.publishEvent(ctx, model.Event{
			ID:        "ailment-" + r.ID,
			Kind:      model.EventAilmentAlert,
			AthleteID: r.AthleteID,
			Detail:    fmt.Sprintf("ailment reported after session %s", r.SessionID),
			At:        time.Now().UTC(),
		})
	}
	return s.ScanAthlete(ctx, r.AthleteID)
}

// ComputeRanking computes the full ranking for one category.
func (s *Service) ComputeRanking(ctx context.Context, category model.WeightCategory) (ranking.Result, error) {
	start := time.Now()
	result, err := s.ranker.Rank(ctx, category)
	metrics.RecordRankingLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordScoringError()
		return ranking.Result{}, err
	}
	metrics.RecordRankingComputed()
	return result, nil
}

// ComputeRankingFor returns one athlete's entry plus neighbors.
func (s *Service) ComputeRankingFor(ctx context.Context, athleteID string) (ranking.Neighborhood, error) {
	return s.ranker.RankFor(ctx, athleteID)
}

// AnalyzePerformance returns the athlete's per-exercise signals.
func (s *Service) AnalyzePerformance(ctx context.Context, athleteID string) ([]analysis.Signal, error) {
	if _, err := s.directory.Athlete(ctx, athleteID); err != nil {
		return nil, err
	}
	return s.aggregator.Analyze(ctx, athleteID)
}

// GetRecommendation loads one workflow entity.
func (s *Service) GetRecommendation(ctx context.Context, id string) (model.Recommendation, error) {
	return s.recs.Get(ctx, id)
}

// ListRecommendations returns the athlete's recommendations.
func (s *Service) ListRecommendations(ctx context.Context, athleteID string) ([]model.Recommendation, error) {
	return s.recs.ListByAthlete(ctx, athleteID)
}

// Transition applies one workflow operation.
func (s *Service) Transition(ctx context.Context, id string, actor workflow.Actor, req workflow.Request) (model.Recommendation, error) {
	return s.engine.Transition(ctx, id, actor, req)
}

// SpawnFromModification creates a new PENDIENTE entity carrying the
// modification content of a MODIFICADA original. The original stays frozen.
func (s *Service) SpawnFromModification(ctx context.Context, originID string) (model.Recommendation, error) {
	origin, err := s.recs.Get(ctx, originID)
	if err != nil {
		return model.Recommendation{}, err
	}
	if origin.Estado != model.Modificada || origin.Modification == nil {
		return model.Recommendation{}, &workflow.InvalidTransitionError{
			RecommendationID: originID,
			Current:          origin.Estado,
			Attempted:        "spawn",
		}
	}
	return s.engine.Generate(ctx, workflow.GenerateParams{
		AthleteID:   origin.AthleteID,
		AnalysisRef: origin.AnalysisRef,
		Suggestion:  origin.Suggestion,
		OriginID:    origin.ID,
	})
}

// ListNotifications lists a recipient's inbox.
func (s *Service) ListNotifications(ctx context.Context, recipient string, f repository.NotificationFilter) ([]model.Notification, error) {
	if f.Limit <= 0 || f.Limit > s.maxPageSize {
		f.Limit = s.maxPageSize
	}
	return s.notifications.List(ctx, recipient, f)
}

// MarkRead flips the read flag for the addressed recipient.
func (s *Service) MarkRead(ctx context.Context, id, recipient string) error {
	return s.notifications.MarkRead(ctx, id, recipient)
}

// Scan runs the full trigger re-scan: recompute category rankings, detect
// score drops and classification changes, and evaluate per-athlete signals.
func (s *Service) Scan(ctx context.Context) error {
	for _, category := range model.WeightCategories() {
		if err := s.scanCategory(ctx, category); err != nil {
			return err
		}
	}
	return nil
}

// ScanAthlete evaluates trigger conditions for a single athlete, invoked
// synchronously after each ingestion.
func (s *Service) ScanAthlete(ctx context.Context, athleteID string) error {
	signals, err := s.aggregator.Analyze(ctx, athleteID)
	if err != nil {
		return err
	}
	triggers := analysis.EvaluateSignals(athleteID, signals, s.thresholds)
	for _, t := range triggers {
		if err := s.raiseTrigger(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// scanCategory recomputes one category and evaluates score-drop and
// ranking-change conditions against the previous scan.
func (s *Service) scanCategory(ctx context.Context, category model.WeightCategory) error {
	result, err := s.ComputeRanking(ctx, category)
	if err != nil {
		// Per-category scoring problems must not stop the scan of other
		// categories unless the configuration itself is broken.
		var confErr *scoring.ConfigurationError
		if errors.As(err, &confErr) {
			return err
		}
		s.logger.Warn(ctx, "category scan skipped", logger.String("category", string(category)), logger.Error(err))
		return nil
	}

	now := time.Now().UTC()
	for _, entry := range result.Entries {
		s.mu.Lock()
		prev, hadPrev := s.prevScores[entry.AthleteID]
		prevClass, hadClass := s.prevClass[entry.AthleteID]
		s.prevScores[entry.AthleteID] = entry.Score
		s.prevClass[entry.AthleteID] = entry.Classification
		s.mu.Unlock()

		if hadPrev {
			pf, _ := prev.Float64()
			cf, _ := entry.Score.Float64()
			if t, ok := analysis.EvaluateScoreDrop(entry.AthleteID, pf, cf, s.thresholds); ok {
				if err := s.raiseTrigger(ctx, t); err != nil {
					return err
				}
			}
		}
		if hadClass && prevClass != entry.Classification {
			s.publishEvent(ctx, model.Event{
				ID:        fmt.Sprintf("rank|%s|%s|%s", entry.AthleteID, entry.Classification, now.Format("2006-01-02")),
				Kind:      model.EventRankingUpdated,
				AthleteID: entry.AthleteID,
				Category:  category,
				Detail:    fmt.Sprintf("classification changed %s -> %s (rank %d)", prevClass, entry.Classification, entry.Rank),
				At:        now,
			})
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
	return nil
}

// raiseTrigger turns one trigger into a PENDIENTE recommendation unless an
// open one already covers the same condition. Overload triggers also raise
// a coach-facing alert.
func (s *Service) raiseTrigger(ctx context.Context, t analysis.Trigger) error {
	open, err := s.recs.HasOpen(ctx, t.AthleteID, t.Kind, t.Exercise)
	if err != nil {
		return err
	}
	if open {
		return nil
	}

	if t.Kind == model.TriggerOverload {
		s.publishEvent(ctx, model.Event{
			ID:        fmt.Sprintf("overload|%s|%s", t.AthleteID, t.Exercise),
			Kind:      model.EventOverloadAlert,
			AthleteID: t.AthleteID,
			Detail:    t.Justification,
			At:        time.Now().UTC(),
		})
	}

	_, err = s.engine.Generate(ctx, workflow.GenerateParams{
		AthleteID:   t.AthleteID,
		AnalysisRef: fmt.Sprintf("analysis/%s", t.AthleteID),
		Suggestion: model.Suggestion{
			Trigger:  t.Kind,
			Exercise: t.Exercise,
			Summary:  t.Justification,
			Value:    t.Value,
		},
	})
	return err
}

// DedupeSize returns the number of delivery keys currently tracked.
func (s *Service) DedupeSize() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Stats returns service statistics for monitoring.
func (s *Service) Stats(ctx context.Context) map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}
	if s.started {
		stats["queueLength"] = s.queue.Len(ctx)
		stats["athletes"] = s.directory.Count(ctx)
		stats["notifications"] = s.notifications.Count(ctx)
		stats["dedupeEntries"] = s.deduper.Size()
		metrics.UpdateQueueSize(s.queue.Len(ctx))
	}
	return stats
}
