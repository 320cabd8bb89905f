package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ledesport/podio/internal/adapters/http/api"
	"github.com/ledesport/podio/internal/adapters/repository"
	"github.com/ledesport/podio/internal/adapters/stream"
	"github.com/ledesport/podio/internal/app"
	"github.com/ledesport/podio/internal/config"
	"github.com/ledesport/podio/internal/domain/dispatch"
	"github.com/ledesport/podio/internal/scheduler"
	"github.com/ledesport/podio/pkg/logger"
)

// HTTP server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	refs, err := cfg.ReferenceMap()
	if err != nil {
		log.Error(ctx, "invalid reference configuration", logger.Error(err))
		return
	}
	cuts, err := cfg.CutPointMap()
	if err != nil {
		log.Error(ctx, "invalid cut point configuration", logger.Error(err))
		return
	}

	opts := []app.Option{
		app.WithLogger(log),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.QueueSize),
		app.WithDedupeSize(cfg.DedupeSize),
		app.WithReferences(refs),
		app.WithCutPoints(cuts),
		app.WithTrendThresholds(cfg.Trend),
		app.WithAnalysisWindow(cfg.AnalysisMinSamples, cfg.AnalysisRecentWindow),
		app.WithMaxPageSize(cfg.MaxPageSize),
		app.WithDispatchPolicy(dispatch.Policy{
			NotifyAthleteOnDisposition: cfg.NotifyAthleteOnDisposition,
			FeedbackRecipient:          cfg.FeedbackRecipient,
		}),
	}

	// Durable workflow persistence when a DSN is configured.
	if cfg.PostgresDSN != "" {
		db, err := repository.OpenPG(cfg.PostgresDSN)
		if err != nil {
			log.Error(ctx, "postgres connection failed", logger.Error(err))
			return
		}
		defer db.Close()
		pg := repository.NewPGStore(db)
		opts = append(opts, app.WithWorkflowStores(pg, pg))
		log.Info(ctx, "using postgres-backed workflow stores")
	}

	// Mirror workflow events to Kafka when brokers are configured.
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic != "" {
		pub, err := stream.NewPublisher(stream.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		if err != nil {
			log.Error(ctx, "kafka publisher setup failed", logger.Error(err))
			return
		}
		opts = append(opts, app.WithEventPublisher(pub))
		log.Info(ctx, "mirroring events to kafka", logger.String("topic", cfg.KafkaTopic))
	}

	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		log.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	// Periodic trigger re-scan.
	if cfg.ScanSpec != "" {
		sched := scheduler.New(cfg.ScanSpec, svc)
		if err := sched.Start(ctx); err != nil {
			log.Error(ctx, "failed to start scheduler", logger.Error(err))
			return
		}
		defer sched.Stop()
	}

	apiServer := api.NewServer(svc, svc)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           apiServer.Router(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info(ctx, "shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "HTTP shutdown failed", logger.Error(err))
	}
}
