// Package worker runs the asynchronous notification fan-out: workers drain
// the event queue and hand each event to the dispatcher.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/ledesport/podio/internal/domain/model"
	"github.com/ledesport/podio/pkg/logger"
	"github.com/ledesport/podio/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount    = 4
	workerShutdownTimeout = 5 * time.Second
)

// Event is what workers read off the queue.
type Event = model.Event

// Dispatcher fans one event out to notifications.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev model.Event) ([]model.Notification, error)
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes events until stopped.
type Worker struct {
	queue      Queue
	dispatcher Dispatcher
	name       string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewWorker creates a worker with configuration options.
func NewWorker(queue Queue, dispatcher Dispatcher, opts ...Option) *Worker {
	w := &Worker{
		queue:      queue,
		dispatcher: dispatcher,
		name:       "worker",
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := w.process(ctx, ev); err != nil {
				w.logger.Error(ctx, "event dispatch failed", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *Worker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process handles a single event.
func (w *Worker) process(ctx context.Context, ev Event) error {
	start := time.Now()
	notifications, err := w.dispatcher.Dispatch(ctx, ev)
	metrics.RecordDispatchLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordDispatchError()
		w.logger.Error(ctx, "dispatch failed for event",
			logger.String("eventID", ev.ID),
			logger.String("kind", string(ev.Kind)),
			logger.Error(err),
		)
		return fmt.Errorf("dispatch event %s: %w", ev.ID, err)
	}
	w.logger.Debug(ctx, "event processed",
		logger.String("eventID", ev.ID),
		logger.Int("notifications", len(notifications)),
	)
	return nil
}

// Pool manages multiple workers draining one queue.
type Pool struct {
	workers []*Worker
	logger  logger.Logger
}

// NewPool creates a worker pool.
func NewPool(workerCount int, queue Queue, dispatcher Dispatcher) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
		if workerCount > defaultWorkerCount {
			workerCount = defaultWorkerCount
		}
	}

	pool := &Pool{
		workers: make([]*Worker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewWorker(queue, dispatcher, WithName("worker-"+strconv.Itoa(i)))
	}
	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop stops all workers, waiting briefly for each to drain.
func (p *Pool) Stop() {
	for _, w := range p.workers {
		select {
		case <-w.done:
		default:
			close(w.shutdown)
		}
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}
