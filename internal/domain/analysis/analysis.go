// Package analysis computes per-exercise trend and consistency signals from
// historical post-training records.
package analysis

import (
	"context"
	"math"
	"sort"

	"github.com/ledesport/podio/internal/domain/model"
)

// Outcome marks whether a signal could be computed.
type Outcome string

// Signal outcomes. InsufficientData is a typed "cannot compute" result, not
// an error: a single sample has no slope worth reporting.
const (
	OutcomeOK               Outcome = "ok"
	OutcomeInsufficientData Outcome = "insufficient_data"
)

// Signal is the per-exercise trend view consumed by dashboards and by the
// trigger evaluation that seeds recommendations.
type Signal struct {
	Exercise     string  `json:"exercise"`
	Samples      int     `json:"samples"`
	Outcome      Outcome `json:"outcome"`
	Slope        float64 `json:"slope"`
	Baseline     float64 `json:"baseline"`
	Recent       float64 `json:"recent"`
	Variance     float64 `json:"variance"`
	MeanExertion float64 `json:"mean_exertion"`
}

// RecordSource provides the append-only post-training history per athlete.
type RecordSource interface {
	RecordHistory(ctx context.Context, athleteID string) ([]model.PostTrainingRecord, error)
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithMinSamples sets how many sessions an exercise needs before a trend is
// reported.
func WithMinSamples(n int) Option {
	return func(a *Aggregator) {
		if n > 1 {
			a.minSamples = n
		}
	}
}

// WithRecentWindow sets the size of the recent window compared against the
// prior baseline.
func WithRecentWindow(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.recentWindow = n
		}
	}
}

// Aggregator groups an athlete's records by exercise and derives signals.
type Aggregator struct {
	records      RecordSource
	minSamples   int
	recentWindow int
}

// NewAggregator creates an aggregator with configuration options.
func NewAggregator(records RecordSource, opts ...Option) *Aggregator {
	a := &Aggregator{
		records:      records,
		minSamples:   2,
		recentWindow: 3,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze computes one signal per exercise the athlete has trained,
// ordered by exercise name for deterministic output. Sessions the athlete
// did not attend carry no load sample and are skipped.
func (a *Aggregator) Analyze(ctx context.Context, athleteID string) ([]Signal, error) {
	history, err := a.records.RecordHistory(ctx, athleteID)
	if err != nil {
		return nil, err
	}

	byExercise := make(map[string][]model.PostTrainingRecord)
	for _, r := range history {
		if !r.Attended || r.Exercise == "" {
			continue
		}
		byExercise[r.Exercise] = append(byExercise[r.Exercise], r)
	}

	names := make([]string, 0, len(byExercise))
	for name := range byExercise {
		names = append(names, name)
	}
	sort.Strings(names)

	signals := make([]Signal, 0, len(names))
	for _, name := range names {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		signals = append(signals, a.signalFor(name, byExercise[name]))
	}
	return signals, nil
}

// signalFor derives the signal for one exercise series.
func (a *Aggregator) signalFor(exercise string, series []model.PostTrainingRecord) Signal {
	sort.Slice(series, func(i, j int) bool {
		if !series[i].RecordedAt.Equal(series[j].RecordedAt) {
			return series[i].RecordedAt.Before(series[j].RecordedAt)
		}
		return series[i].ID < series[j].ID
	})

	s := Signal{Exercise: exercise, Samples: len(series)}
	if len(series) < a.minSamples {
		s.Outcome = OutcomeInsufficientData
		return s
	}
	s.Outcome = OutcomeOK

	loads := make([]float64, len(series))
	var exertion float64
	for i, r := range series {
		loads[i] = r.Load
		exertion += r.PerceivedExertion
	}
	s.MeanExertion = exertion / float64(len(series))

	recent := a.recentWindow
	if recent > len(loads) {
		recent = len(loads)
	}
	split := len(loads) - recent
	if split > 0 {
		s.Baseline = mean(loads[:split])
	} else {
		s.Baseline = mean(loads)
	}
	s.Recent = mean(loads[split:])
	s.Slope = slope(loads)
	s.Variance = variance(loads)
	return s
}

// slope is the ordinary least squares slope of load over session index.
func slope(ys []float64) float64 {
	n := float64(len(ys))
	var sumX, sumY, sumXY, sumXX float64
	for i, y := range ys {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

func mean(ys []float64) float64 {
	if len(ys) == 0 {
		return 0
	}
	var sum float64
	for _, y := range ys {
		sum += y
	}
	return sum / float64(len(ys))
}

// variance is the population variance, the consistency indicator.
func variance(ys []float64) float64 {
	if len(ys) == 0 {
		return 0
	}
	m := mean(ys)
	var sum float64
	for _, y := range ys {
		d := y - m
		sum += d * d
	}
	v := sum / float64(len(ys))
	if math.IsNaN(v) {
		return 0
	}
	return v
}
