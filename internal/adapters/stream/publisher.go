// Package stream mirrors workflow events onto a Kafka topic for external
// consumers (dashboards, data warehouse). Publishing is best-effort and
// never blocks a transition: the durable state change happens first.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/ledesport/podio/internal/domain/model"
)

// Config contains configurable parameters for the publisher.
type Config struct {
	// Brokers is the list of Kafka broker addresses (host:port).
	Brokers []string

	// Topic is the topic transition events are written to.
	Topic string

	// MaxAttempts is how many times a publish is retried on transient
	// error. Defaults to 3 if <= 0.
	MaxAttempts int

	// WriteTimeout is the per-attempt timeout. Defaults to 10s if zero.
	WriteTimeout time.Duration
}

// Publisher wraps a kafka-go Writer with retry-on-transient-error publish.
type Publisher struct {
	writer      *kafka.Writer
	maxAttempts int
}

// NewPublisher constructs a Publisher. Returns an error if required params
// are missing.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("stream: at least one broker required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("stream: topic required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	// Key-hash balancing keeps events for one recommendation on one
	// partition, preserving per-entity order.
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Publisher{writer: w, maxAttempts: cfg.MaxAttempts}, nil
}

// Publish writes one event, retrying transient failures.
func (p *Publisher) Publish(ctx context.Context, ev model.Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("stream: marshal event: %w", err)
	}
	key := ev.RecommendationID
	if key == "" {
		key = ev.AthleteID
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: value,
		Time:  ev.At,
	}

	var lastErr error
	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		if err := p.writer.WriteMessages(ctx, msg); err != nil {
			lastErr = err
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt+1) * 100 * time.Millisecond):
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("stream: publish after %d attempts: %w", p.maxAttempts, lastErr)
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
