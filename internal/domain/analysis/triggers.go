package analysis

import (
	"fmt"

	"github.com/ledesport/podio/internal/domain/model"
)

// Thresholds are the externally configured trigger cut-offs.
type Thresholds struct {
	// NegativeSlope fires the negative-trend trigger when an exercise
	// slope falls at or below this value (expected negative).
	NegativeSlope float64 `koanf:"negative_slope" json:"negative_slope"`
	// OverloadExertion fires the overload trigger when mean perceived
	// exertion reaches this value.
	OverloadExertion float64 `koanf:"overload_exertion" json:"overload_exertion"`
	// ScoreDropPercent fires the score-drop trigger when a recomputed
	// score falls by at least this percentage against the previous scan.
	ScoreDropPercent float64 `koanf:"score_drop_percent" json:"score_drop_percent"`
	// MinSessions gates trend/overload triggers on series length.
	MinSessions int `koanf:"min_sessions" json:"min_sessions"`
}

// Trigger is a deterministic condition met by an athlete's signals; each one
// seeds a candidate PENDIENTE recommendation or alert.
type Trigger struct {
	Kind          model.TriggerKind
	AthleteID     string
	Exercise      string
	Value         float64
	Justification string
}

// EvaluateSignals derives triggers from per-exercise signals. Signals with
// an insufficient-data outcome never trigger.
func EvaluateSignals(athleteID string, signals []Signal, th Thresholds) []Trigger {
	var out []Trigger
	for _, s := range signals {
		if s.Outcome != OutcomeOK || s.Samples < th.MinSessions {
			continue
		}
		if th.NegativeSlope < 0 && s.Slope <= th.NegativeSlope {
			out = append(out, Trigger{
				Kind:          model.TriggerNegativeTrend,
				AthleteID:     athleteID,
				Exercise:      s.Exercise,
				Value:         s.Slope,
				Justification: fmt.Sprintf("sustained negative trend on %s: slope %.2f over %d sessions", s.Exercise, s.Slope, s.Samples),
			})
		}
		if th.OverloadExertion > 0 && s.MeanExertion >= th.OverloadExertion {
			out = append(out, Trigger{
				Kind:          model.TriggerOverload,
				AthleteID:     athleteID,
				Exercise:      s.Exercise,
				Value:         s.MeanExertion,
				Justification: fmt.Sprintf("overload signal on %s: mean exertion %.1f over %d sessions", s.Exercise, s.MeanExertion, s.Samples),
			})
		}
	}
	return out
}

// EvaluateScoreDrop compares a recomputed score against the previous one and
// fires when the drop reaches the configured percentage. Scores are the
// fixed-precision values produced by the scoring package, passed here as
// floats for the percentage check only.
func EvaluateScoreDrop(athleteID string, previous, current float64, th Thresholds) (Trigger, bool) {
	if th.ScoreDropPercent <= 0 || previous <= 0 || current >= previous {
		return Trigger{}, false
	}
	drop := (previous - current) / previous * 100
	if drop < th.ScoreDropPercent {
		return Trigger{}, false
	}
	return Trigger{
		Kind:          model.TriggerScoreDrop,
		AthleteID:     athleteID,
		Value:         drop,
		Justification: fmt.Sprintf("score dropped %.1f%% (%.2f -> %.2f) since previous scan", drop, previous, current),
	}, true
}
