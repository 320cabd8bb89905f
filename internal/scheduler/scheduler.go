// Package scheduler runs the periodic trigger re-scan that looks for new
// threshold breaches between ingestions.
package scheduler

import (
	"context"

	"github.com/robfig/cron"

	"github.com/ledesport/podio/pkg/logger"
	"github.com/ledesport/podio/pkg/metrics"
)

// Scanner is the re-scan entry point, implemented by the app service.
type Scanner interface {
	Scan(ctx context.Context) error
}

// Scheduler drives a Scanner on a cron spec.
type Scheduler struct {
	c       *cron.Cron
	spec    string
	scanner Scanner
	logger  logger.Logger
}

// New creates a scheduler. The spec uses cron syntax, e.g. "@every 15m".
func New(spec string, scanner Scanner) *Scheduler {
	return &Scheduler{
		c:       cron.New(),
		spec:    spec,
		scanner: scanner,
		logger:  logger.Get().Named("scheduler"),
	}
}

// Start registers the job and starts the cron loop. The scan runs with ctx
// so shutdown abandons an in-flight scan safely; the scan itself is pure
// until it creates recommendations.
func (s *Scheduler) Start(ctx context.Context) error {
	err := s.c.AddFunc(s.spec, func() {
		metrics.RecordScanStarted()
		if err := s.scanner.Scan(ctx); err != nil {
			metrics.RecordScanError()
			s.logger.Error(ctx, "trigger scan failed", logger.Error(err))
			return
		}
		s.logger.Debug(ctx, "trigger scan completed")
	})
	if err != nil {
		return err
	}
	s.c.Start()
	s.logger.Info(ctx, "scheduler started", logger.String("spec", s.spec))
	return nil
}

// Stop halts the cron loop; a running job finishes on its own.
func (s *Scheduler) Stop() {
	s.c.Stop()
}
