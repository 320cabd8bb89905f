package model

import "time"

// PhysicalTest is an immutable snapshot of named metric values measured for
// an athlete on a given date. Created once, never mutated; historical tests
// remain available for trend analysis. Category records the athlete's
// declared weight band at test time; tests taken outside the current band
// are excluded from scoring.
type PhysicalTest struct {
	ID        string             `json:"id"`
	AthleteID string             `json:"athlete_id"`
	Category  WeightCategory     `json:"category"`
	Metrics   map[string]float64 `json:"metrics"`
	TakenAt   time.Time          `json:"taken_at"`
	CoachID   string             `json:"coach_id"`
}

// PostTrainingRecord is an append-only per-session entry, the basis for
// per-exercise trend analysis.
type PostTrainingRecord struct {
	ID                string    `json:"id"`
	AthleteID         string    `json:"athlete_id"`
	SessionID         string    `json:"session_id"`
	Exercise          string    `json:"exercise"`
	Load              float64   `json:"load"`
	PerceivedExertion float64   `json:"perceived_exertion"`
	Attended          bool      `json:"attended"`
	AilmentIDs        []string  `json:"ailment_ids,omitempty"`
	RecordedAt        time.Time `json:"recorded_at"`
}
