// Package notify fans out committed lifecycle transitions to downstream
// consumers (chat, dashboards). Delivery is fire-and-forget: a committed
// transition is never rolled back because a sink failed, so sinks report
// errors to the log and nothing else.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Record is the plain transition summary handed to sinks after commit.
type Record struct {
	DelegationID uuid.UUID   `json:"delegation_id"`
	EventID      uuid.UUID   `json:"event_id"`
	EventType    string      `json:"event_type"`
	Summary      string      `json:"summary"`
	ActorName    string      `json:"actor_name"`
	NotifyIDs    []uuid.UUID `json:"notify_ids,omitempty"`
	OccurredAt   time.Time   `json:"occurred_at"`
}

// Sink delivers one record to one destination.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, rec Record) error
}

// Dispatcher fans a record out to every registered sink.
type Dispatcher struct {
	sinks []Sink
}

func NewDispatcher(sinks ...Sink) *Dispatcher {
	return &Dispatcher{sinks: sinks}
}

// Register adds a sink. Not safe for concurrent use with Dispatch; wire
// all sinks before serving.
func (d *Dispatcher) Register(s Sink) {
	d.sinks = append(d.sinks, s)
}

// Dispatch delivers rec to every sink. Failures are logged per sink and
// never propagated to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, rec Record) {
	for _, s := range d.sinks {
		if err := s.Deliver(ctx, rec); err != nil {
			log.Warn().
				Err(err).
				Str("sink", s.Name()).
				Str("delegation_id", rec.DelegationID.String()).
				Str("event_type", rec.EventType).
				Msg("notify: delivery failed")
		}
	}
}

// LogSink writes each record to the structured log. Always registered so
// every transition leaves at least one observable trace.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Deliver(_ context.Context, rec Record) error {
	log.Info().
		Str("delegation_id", rec.DelegationID.String()).
		Str("event_id", rec.EventID.String()).
		Str("event_type", rec.EventType).
		Str("actor", rec.ActorName).
		Msg(rec.Summary)
	return nil
}
