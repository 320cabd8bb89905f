// Package dispatch converts workflow events and alert conditions into
// prioritized, addressed notification records.
package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ledesport/podio/internal/domain/dedupe"
	"github.com/ledesport/podio/internal/domain/model"
	"github.com/ledesport/podio/pkg/logger"
	"github.com/ledesport/podio/pkg/metrics"
)

// Recipients resolves event subjects to inbox addresses by role and
// relationship.
type Recipients interface {
	CoachOf(ctx context.Context, athleteID string) (string, error)
	CommitteeMembers(ctx context.Context) ([]string, error)
}

// Inbox persists notifications.
type Inbox interface {
	Append(ctx context.Context, n model.Notification) error
}

// Policy controls optional fan-out targets.
type Policy struct {
	// NotifyAthleteOnDisposition includes the subject athlete's own inbox
	// for disposition results.
	NotifyAthleteOnDisposition bool
	// FeedbackRecipient receives rejection reasons for future-model
	// feedback. Empty disables the feedback copy.
	FeedbackRecipient string
}

// Option applies a configuration option to the Dispatcher.
type Option func(*Dispatcher)

// WithPolicy sets the fan-out policy.
func WithPolicy(p Policy) Option {
	return func(d *Dispatcher) {
		d.policy = p
	}
}

// WithClock overrides the notification timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		if now != nil {
			d.now = now
		}
	}
}

// WithLogger sets a custom logger for the dispatcher.
func WithLogger(log logger.Logger) Option {
	return func(d *Dispatcher) {
		if log != nil {
			d.logger = log
		}
	}
}

// Dispatcher fans events out to inboxes. Delivery is idempotent per
// (event, recipient); priority is deterministic from the event kind and is
// never caller-supplied.
type Dispatcher struct {
	recipients Recipients
	inbox      Inbox
	deduper    dedupe.Deduper
	policy     Policy
	now        func() time.Time
	logger     logger.Logger
}

// New creates a dispatcher.
func New(recipients Recipients, inbox Inbox, deduper dedupe.Deduper, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		recipients: recipients,
		inbox:      inbox,
		deduper:    deduper,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger.Get().Named("dispatch"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch maps one event to zero or more notifications and persists them.
func (d *Dispatcher) Dispatch(ctx context.Context, ev model.Event) ([]model.Notification, error) {
	recipients, err := d.recipientsFor(ctx, ev)
	if err != nil {
		return nil, err
	}

	ntype, priority := classifyEvent(ev.Kind)
	created := make([]model.Notification, 0, len(recipients))
	for _, recipient := range recipients {
		if recipient == "" {
			continue
		}
		key := dedupe.Key{EventID: ev.ID, Recipient: recipient}
		if d.deduper.SeenAndRecord(ctx, key) {
			metrics.RecordNotificationDeduped()
			continue
		}

		n := model.Notification{
			ID:         uuid.NewString(),
			Recipient:  recipient,
			Type:       ntype,
			Priority:   priority,
			PayloadRef: payloadRef(ev),
			Message:    ev.Detail,
			CreatedAt:  d.now(),
		}
		if err := d.inbox.Append(ctx, n); err != nil {
			// Allow redelivery of this pair after a failed write.
			d.deduper.Unrecord(ctx, key)
			return created, err
		}
		metrics.RecordNotificationDispatched(string(ntype), string(priority))
		created = append(created, n)
	}

	d.logger.Debug(ctx, "event dispatched",
		logger.String("eventID", ev.ID),
		logger.String("kind", string(ev.Kind)),
		logger.Int("notifications", len(created)),
	)
	return created, nil
}

// recipientsFor resolves the fan-out targets for an event kind.
func (d *Dispatcher) recipientsFor(ctx context.Context, ev model.Event) ([]string, error) {
	switch ev.Kind {
	case model.EventRecommendationPending:
		// New PENDIENTE items go to the committee and the subject's coach.
		committee, err := d.recipients.CommitteeMembers(ctx)
		if err != nil {
			return nil, err
		}
		coach, err := d.recipients.CoachOf(ctx, ev.AthleteID)
		if err != nil {
			return nil, err
		}
		return append(committee, coach), nil

	case model.EventReviewStarted:
		coach, err := d.recipients.CoachOf(ctx, ev.AthleteID)
		if err != nil {
			return nil, err
		}
		return []string{coach}, nil

	case model.EventRecommendationApproved, model.EventRecommendationModified:
		return d.dispositionRecipients(ctx, ev)

	case model.EventRecommendationRejected:
		recipients, err := d.dispositionRecipients(ctx, ev)
		if err != nil {
			return nil, err
		}
		// Rejection reasons also feed the originator context.
		if d.policy.FeedbackRecipient != "" {
			recipients = append(recipients, d.policy.FeedbackRecipient)
		}
		return recipients, nil

	case model.EventAilmentAlert, model.EventOverloadAlert:
		coach, err := d.recipients.CoachOf(ctx, ev.AthleteID)
		if err != nil {
			return nil, err
		}
		return []string{coach}, nil

	case model.EventRankingUpdated:
		coach, err := d.recipients.CoachOf(ctx, ev.AthleteID)
		if err != nil {
			return nil, err
		}
		return []string{coach}, nil

	default:
		return nil, nil
	}
}

func (d *Dispatcher) dispositionRecipients(ctx context.Context, ev model.Event) ([]string, error) {
	coach, err := d.recipients.CoachOf(ctx, ev.AthleteID)
	if err != nil {
		return nil, err
	}
	recipients := []string{coach}
	if d.policy.NotifyAthleteOnDisposition && ev.AthleteID != "" {
		recipients = append(recipients, ev.AthleteID)
	}
	return recipients, nil
}

// classifyEvent maps an event kind to notification type and priority. The
// mapping is fixed here so priority can never be inflated by input.
func classifyEvent(kind model.EventKind) (model.NotificationType, model.Priority) {
	switch kind {
	case model.EventAilmentAlert:
		return model.TipoAlerta, model.PrioridadCritica
	case model.EventOverloadAlert:
		return model.TipoAlerta, model.PrioridadAlta
	case model.EventRecommendationPending:
		return model.TipoRecomendacion, model.PrioridadMedia
	case model.EventRecommendationApproved,
		model.EventRecommendationRejected,
		model.EventRecommendationModified:
		return model.TipoRecomendacion, model.PrioridadMedia
	case model.EventReviewStarted:
		return model.TipoInformativa, model.PrioridadBaja
	case model.EventRankingUpdated:
		return model.TipoInformativa, model.PrioridadBaja
	default:
		return model.TipoInformativa, model.PrioridadBaja
	}
}

// payloadRef points the notification at its subject entity.
func payloadRef(ev model.Event) string {
	if ev.RecommendationID != "" {
		return ev.RecommendationID
	}
	return ev.ID
}
