package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	id "claimdesk/pkg/domain"
)

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByClaim(ctx context.Context, claimRequestID id.ClaimRequestID) ([]Event, error)
}

// Sink receives a copy of every event after it is stored, e.g. a Kafka topic.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

// Publisher stamps events and writes them to the store, then to each sink.
// It is append-only.
type Publisher struct {
	store Store
	sinks []Sink
	now   func() time.Time
}

type Option func(*Publisher)

// WithSink forwards events to an additional destination.
func WithSink(sink Sink) Option {
	return func(p *Publisher) {
		if sink != nil {
			p.sinks = append(p.sinks, sink)
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		p.now = now
	}
}

func NewPublisher(store Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit records the event. Sinks are attempted even when the store fails; the
// returned error joins every failure.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}
	event.Category = AuditEvent(event.Action).Category()

	var errs []error
	if p.store != nil {
		if err := p.store.Append(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ListByClaim returns the trail of a single claim request.
func (p *Publisher) ListByClaim(ctx context.Context, claimRequestID id.ClaimRequestID) ([]Event, error) {
	return p.store.ListByClaim(ctx, claimRequestID)
}
