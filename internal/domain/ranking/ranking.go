// Package ranking orders athletes within a weight category by score and
// assigns rank position and fitness classification.
package ranking

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/ledesport/podio/internal/domain/model"
	"github.com/ledesport/podio/internal/domain/scoring"
	"github.com/ledesport/podio/pkg/logger"
)

// Entry is one derived ranking row. It is recomputed on demand from the
// current test history, never persisted as source of truth.
type Entry struct {
	AthleteID      string               `json:"athlete_id"`
	Category       model.WeightCategory `json:"category"`
	Score          decimal.Decimal      `json:"score"`
	Rank           int                  `json:"rank"`
	Classification model.Classification `json:"classification"`
}

// EmptyReason explains an empty ranking result.
type EmptyReason string

// Reasons attached to empty results.
const (
	ReasonNone              EmptyReason = ""
	ReasonNoAthletes        EmptyReason = "no_athletes_in_category"
	ReasonNoQualifyingTests EmptyReason = "no_qualifying_tests"
)

// Result is a full-category ranking. Reason is set when Entries is empty.
type Result struct {
	Category model.WeightCategory `json:"category"`
	Entries  []Entry              `json:"entries"`
	Reason   EmptyReason          `json:"reason,omitempty"`
}

// Neighborhood is a single athlete's ranking entry plus its immediate
// neighbors in the category order.
type Neighborhood struct {
	Above *Entry `json:"above,omitempty"`
	Entry Entry  `json:"entry"`
	Below *Entry `json:"below,omitempty"`
}

// CutPoints are category-specific classification thresholds: the top Apto
// entries are APTO, the next Reserva entries RESERVA, the remainder NO_APTO.
// Configured externally; federation policy changes season to season.
type CutPoints struct {
	Apto    int `koanf:"apto" json:"apto"`
	Reserva int `koanf:"reserva" json:"reserva"`
}

// Directory lists athletes per category.
type Directory interface {
	Athlete(ctx context.Context, id string) (model.Athlete, error)
	AthletesInCategory(ctx context.Context, category model.WeightCategory) ([]model.Athlete, error)
}

// TestSource provides the ordered physical-test history for an athlete.
type TestSource interface {
	TestHistory(ctx context.Context, athleteID string) ([]model.PhysicalTest, error)
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithCutPoints sets the per-category classification cut points.
func WithCutPoints(cuts map[model.WeightCategory]CutPoints) Option {
	return func(e *Engine) {
		e.cuts = make(map[model.WeightCategory]CutPoints, len(cuts))
		for cat, c := range cuts {
			e.cuts[cat] = c
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

// Engine computes category rankings. Output ordering is a total order
// (score desc, athlete id asc), deterministic regardless of the iteration
// order of the underlying store.
type Engine struct {
	directory Directory
	tests     TestSource
	calc      scoring.Calculator
	cuts      map[model.WeightCategory]CutPoints
	logger    logger.Logger
}

// New creates a ranking engine.
func New(directory Directory, tests TestSource, calc scoring.Calculator, opts ...Option) *Engine {
	e := &Engine{
		directory: directory,
		tests:     tests,
		calc:      calc,
		cuts:      make(map[model.WeightCategory]CutPoints),
		logger:    logger.Get().Named("ranking"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rank computes the full ranking for one category. Athletes with no
// qualifying tests are excluded, not given a zero score. The computation is
// pure and safe to abandon on ctx cancellation.
func (e *Engine) Rank(ctx context.Context, category model.WeightCategory) (Result, error) {
	if !category.Valid() {
		return Result{}, ErrUnknownCategory
	}

	athletes, err := e.directory.AthletesInCategory(ctx, category)
	if err != nil {
		return Result{}, err
	}
	if len(athletes) == 0 {
		return Result{Category: category, Reason: ReasonNoAthletes}, nil
	}

	entries := make([]Entry, 0, len(athletes))
	for _, a := range athletes {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}
		if !a.Active {
			continue
		}

		history, err := e.tests.TestHistory(ctx, a.ID)
		if err != nil {
			return Result{}, err
		}
		score, err := e.calc.Score(ctx, history, category)
		if errors.Is(err, scoring.ErrNoQualifyingTests) {
			e.logger.Debug(ctx, "athlete excluded from ranking",
				logger.String("athleteID", a.ID),
				logger.String("category", string(category)),
			)
			continue
		}
		if err != nil {
			// Configuration errors are fatal for the whole category.
			return Result{}, err
		}
		entries = append(entries, Entry{AthleteID: a.ID, Category: category, Score: score})
	}

	if len(entries) == 0 {
		return Result{Category: category, Reason: ReasonNoQualifyingTests}, nil
	}

	sort.Slice(entries, func(i, j int) bool {
		if c := entries[i].Score.Cmp(entries[j].Score); c != 0 {
			return c > 0
		}
		return entries[i].AthleteID < entries[j].AthleteID
	})

	cuts := e.cuts[category]
	for i := range entries {
		entries[i].Rank = i + 1
		entries[i].Classification = classify(i, cuts)
	}
	return Result{Category: category, Entries: entries}, nil
}

// RankFor returns one athlete's entry plus its immediate neighbors. It runs
// the same computation path as Rank so the scores are identical to a
// full-category run; there is no shortcut with different rounding.
func (e *Engine) RankFor(ctx context.Context, athleteID string) (Neighborhood, error) {
	athlete, err := e.directory.Athlete(ctx, athleteID)
	if err != nil {
		return Neighborhood{}, err
	}

	result, err := e.Rank(ctx, athlete.Category)
	if err != nil {
		return Neighborhood{}, err
	}

	for i := range result.Entries {
		if result.Entries[i].AthleteID != athleteID {
			continue
		}
		n := Neighborhood{Entry: result.Entries[i]}
		if i > 0 {
			above := result.Entries[i-1]
			n.Above = &above
		}
		if i < len(result.Entries)-1 {
			below := result.Entries[i+1]
			n.Below = &below
		}
		return n, nil
	}
	return Neighborhood{}, ErrUnranked
}

// classify maps a zero-based position to a classification via cut points.
// Unconfigured cut points classify everyone NO_APTO rather than guessing.
func classify(position int, cuts CutPoints) model.Classification {
	switch {
	case position < cuts.Apto:
		return model.Apto
	case position < cuts.Apto+cuts.Reserva:
		return model.Reserva
	default:
		return model.NoApto
	}
}
