// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Defaults come from New; file and env layers override them.
// - Reference ranges, cut points and trend thresholds are data, not code:
//   they ship in the config file because federation policy changes season
//   to season.
package config

import (
	"github.com/ledesport/podio/internal/domain/analysis"
	"github.com/ledesport/podio/internal/domain/model"
	"github.com/ledesport/podio/internal/domain/ranking"
	"github.com/ledesport/podio/internal/domain/scoring"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory event queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of dispatch workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets the size of the (event, recipient) dedupe cache.
	DedupeSize int `koanf:"dedupe_size"`

	// ScanSpec is the cron spec for the periodic trigger re-scan.
	// Empty disables the scheduler; ingestion-time scans still run.
	ScanSpec string `koanf:"scan_spec"`

	// MaxPageSize caps notification listing page sizes.
	MaxPageSize int `koanf:"max_page_size"`

	// PostgresDSN switches recommendation/notification persistence to
	// Postgres when set; empty keeps the in-memory stores.
	PostgresDSN string `koanf:"postgres_dsn"`

	// KafkaBrokers/KafkaTopic enable mirroring workflow events to Kafka.
	KafkaBrokers []string `koanf:"kafka_brokers"`
	KafkaTopic   string   `koanf:"kafka_topic"`

	// NotifyAthleteOnDisposition includes athletes in disposition fan-out.
	NotifyAthleteOnDisposition bool `koanf:"notify_athlete_on_disposition"`

	// FeedbackRecipient receives rejection reasons for model feedback.
	FeedbackRecipient string `koanf:"feedback_recipient"`

	// References holds per-category, per-metric reference ranges,
	// keyed by weight category name.
	References map[string]scoring.CategoryReferences `koanf:"references"`

	// CutPoints holds per-category classification thresholds.
	CutPoints map[string]ranking.CutPoints `koanf:"cut_points"`

	// Trend holds the trigger thresholds.
	Trend analysis.Thresholds `koanf:"trend"`

	// AnalysisMinSamples and AnalysisRecentWindow tune the aggregator.
	AnalysisMinSamples   int `koanf:"analysis_min_samples"`
	AnalysisRecentWindow int `koanf:"analysis_recent_window"`
}

// New creates a Config with defaults. Reference ranges and cut points have
// no defaults on purpose: guessing federation policy would be worse than
// failing fast.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		QueueSize:            10_000,
		WorkerCount:          4,
		DedupeSize:           100_000,
		ScanSpec:             "@every 15m",
		MaxPageSize:          100,
		FeedbackRecipient:    "model-feedback",
		AnalysisMinSamples:   2,
		AnalysisRecentWindow: 3,
		Trend: analysis.Thresholds{
			NegativeSlope:    -1.0,
			OverloadExertion: 8.5,
			ScoreDropPercent: 10,
			MinSessions:      3,
		},
	}
}

// ReferenceMap converts the raw category keys to typed weight categories.
func (c *Config) ReferenceMap() (map[model.WeightCategory]scoring.CategoryReferences, error) {
	out := make(map[model.WeightCategory]scoring.CategoryReferences, len(c.References))
	for name, refs := range c.References {
		cat := model.WeightCategory(name)
		if !cat.Valid() {
			return nil, invalidCategoryError(name)
		}
		out[cat] = refs
	}
	return out, nil
}

// CutPointMap converts the raw category keys to typed weight categories.
func (c *Config) CutPointMap() (map[model.WeightCategory]ranking.CutPoints, error) {
	out := make(map[model.WeightCategory]ranking.CutPoints, len(c.CutPoints))
	for name, cuts := range c.CutPoints {
		cat := model.WeightCategory(name)
		if !cat.Valid() {
			return nil, invalidCategoryError(name)
		}
		out[cat] = cuts
	}
	return out, nil
}
