// Package scoring converts raw physical-test metrics into a normalized
// performance score per athlete per weight category.
package scoring

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledesport/podio/internal/domain/model"
)

// scorePlaces is the fixed precision carried end-to-end. Scores are rounded
// half-even to two decimal places so ordering and tie-breaks are
// reproducible across runs.
const scorePlaces = 2

// Reference is the externally configured expectation for one metric within a
// weight category. Values are normalized against [Min, Max] and weighted by
// Weight in the composite.
type Reference struct {
	Min    float64 `koanf:"min" json:"min"`
	Max    float64 `koanf:"max" json:"max"`
	Weight float64 `koanf:"weight" json:"weight"`
}

// CategoryReferences maps metric name to its reference range for one category.
type CategoryReferences map[string]Reference

// Calculator computes a composite score from a test history.
type Calculator interface {
	// Score computes the score for category from history. It is a pure
	// function of its inputs and the injected reference configuration.
	Score(ctx context.Context, history []model.PhysicalTest, category model.WeightCategory) (decimal.Decimal, error)
}

// Option applies a configuration option to the ReferenceCalculator.
type Option func(*ReferenceCalculator)

// WithReferences sets the per-category reference configuration.
func WithReferences(refs map[model.WeightCategory]CategoryReferences) Option {
	return func(c *ReferenceCalculator) {
		c.refs = make(map[model.WeightCategory]CategoryReferences, len(refs))
		for cat, r := range refs {
			cr := make(CategoryReferences, len(r))
			for name, ref := range r {
				cr[name] = ref
			}
			c.refs[cat] = cr
		}
	}
}

// ReferenceCalculator implements Calculator against injected per-category
// reference ranges.
type ReferenceCalculator struct {
	refs map[model.WeightCategory]CategoryReferences
}

// NewReferenceCalculator creates a calculator with configuration options.
func NewReferenceCalculator(opts ...Option) *ReferenceCalculator {
	c := &ReferenceCalculator{
		refs: make(map[model.WeightCategory]CategoryReferences),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Score computes the weighted composite of normalized metric values for the
// given category. Tests taken outside the declared category are excluded.
// For a metric measured in several qualifying tests, the most recent
// measurement wins; ties on the test date are broken by test id so the
// result never depends on input order.
func (c *ReferenceCalculator) Score(ctx context.Context, history []model.PhysicalTest, category model.WeightCategory) (decimal.Decimal, error) {
	refs, ok := c.refs[category]
	if !ok || len(refs) == 0 {
		return decimal.Zero, &ConfigurationError{Category: category, Reason: "no reference ranges configured"}
	}

	latest := latestQualifying(history, category)
	if len(latest) == 0 {
		return decimal.Zero, ErrNoQualifyingTests
	}

	// Iterate metrics in sorted name order for deterministic accumulation.
	names := make([]string, 0, len(refs))
	for name := range refs {
		names = append(names, name)
	}
	sort.Strings(names)

	weighted := decimal.Zero
	totalWeight := decimal.Zero
	for _, name := range names {
		select {
		case <-ctx.Done():
			return decimal.Zero, ctx.Err()
		default:
		}

		ref := refs[name]
		if ref.Max <= ref.Min {
			return decimal.Zero, &ConfigurationError{Category: category, Metric: name, Reason: "reference range is empty or inverted"}
		}
		if ref.Weight <= 0 {
			return decimal.Zero, &ConfigurationError{Category: category, Metric: name, Reason: "non-positive metric weight"}
		}

		value, ok := latest[name]
		if !ok {
			// Metric never measured for this athlete; it contributes
			// nothing rather than a misleading zero.
			continue
		}

		norm := normalize(value, ref.Min, ref.Max)
		w := decimal.NewFromFloat(ref.Weight)
		weighted = weighted.Add(norm.Mul(w))
		totalWeight = totalWeight.Add(w)
	}

	if totalWeight.IsZero() {
		return decimal.Zero, ErrNoQualifyingTests
	}

	score := weighted.Div(totalWeight).Mul(decimal.NewFromInt(100))
	return score.RoundBank(scorePlaces), nil
}

// normalize maps value onto [0, 1] against the reference range, clamped.
func normalize(value, min, max float64) decimal.Decimal {
	v := decimal.NewFromFloat(value)
	lo := decimal.NewFromFloat(min)
	hi := decimal.NewFromFloat(max)
	if v.LessThanOrEqual(lo) {
		return decimal.Zero
	}
	if v.GreaterThanOrEqual(hi) {
		return decimal.NewFromInt(1)
	}
	// Div uses decimal.DivisionPrecision (16) internally; the composite is
	// rounded once at the end.
	return v.Sub(lo).Div(hi.Sub(lo))
}

// latestQualifying collapses the history into metric -> most recent value,
// considering only tests taken in the declared category.
func latestQualifying(history []model.PhysicalTest, category model.WeightCategory) map[string]float64 {
	type stamp struct {
		at time.Time
		id string
	}
	latest := make(map[string]float64)
	seen := make(map[string]stamp)
	for _, t := range history {
		if t.Category != category {
			continue
		}
		for name, value := range t.Metrics {
			s, ok := seen[name]
			if !ok || t.TakenAt.After(s.at) || (t.TakenAt.Equal(s.at) && t.ID > s.id) {
				seen[name] = stamp{at: t.TakenAt, id: t.ID}
				latest[name] = value
			}
		}
	}
	return latest
}
