package eventbus

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/reflex/go/internal/events"
	"github.com/mcdev12/reflex/go/internal/round"
)

// ErrRelayFull is returned when the relay buffer cannot take another event.
var ErrRelayFull = errors.New("relay buffer full")

// Relay forwards session lifecycle events to a Publisher from a background worker.
// Enqueueing never blocks the caller.
type Relay struct {
	publisher Publisher
	clock     clockwork.Clock
	queue     chan *events.Event
	dropped   atomic.Int64
	published atomic.Int64
}

func NewRelay(publisher Publisher, clock clockwork.Clock, buffer int) *Relay {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if buffer <= 0 {
		buffer = 1
	}
	return &Relay{
		publisher: publisher,
		clock:     clock,
		queue:     make(chan *events.Event, buffer),
	}
}

// Start publishes queued events until ctx is cancelled, then drains what is left.
func (r *Relay) Start(ctx context.Context) {
	log.Info().Msg("event relay started")
	for {
		select {
		case <-ctx.Done():
			r.drain(context.WithoutCancel(ctx))
			log.Info().
				Int64("published", r.published.Load()).
				Int64("dropped", r.dropped.Load()).
				Msg("event relay stopped")
			return
		case ev := <-r.queue:
			r.publish(ctx, ev)
		}
	}
}

func (r *Relay) drain(ctx context.Context) {
	for {
		select {
		case ev := <-r.queue:
			r.publish(ctx, ev)
		default:
			return
		}
	}
}

func (r *Relay) publish(ctx context.Context, ev *events.Event) {
	if err := r.publisher.Publish(ctx, ev); err != nil {
		log.Error().
			Err(err).
			Str("event_id", ev.ID).
			Str("event_type", string(ev.Type)).
			Msg("failed to publish event")
		return
	}
	r.published.Add(1)
}

// Enqueue queues an event for publication.
func (r *Relay) Enqueue(ev *events.Event) error {
	select {
	case r.queue <- ev:
		return nil
	default:
		r.dropped.Add(1)
		return ErrRelayFull
	}
}

// Stats reports how many events were published and dropped.
func (r *Relay) Stats() (published, dropped int64) {
	return r.published.Load(), r.dropped.Load()
}

// Renderer returns a round.Renderer that relays session start and finish for a table.
func (r *Relay) Renderer(tableID uuid.UUID) round.Renderer {
	return &relayRenderer{relay: r, tableID: tableID}
}

type relayRenderer struct {
	round.NopRenderer
	relay   *Relay
	tableID uuid.UUID
}

func (rr *relayRenderer) SessionStarted(info round.SessionInfo) {
	rr.enqueue(events.TypeSessionStarted, info)
}

func (rr *relayRenderer) SessionFinished(res round.Result) {
	rr.enqueue(events.TypeSessionFinished, res)
}

func (rr *relayRenderer) enqueue(typ events.Type, payload any) {
	ev, err := events.New(rr.tableID, typ, payload, rr.relay.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("event_type", string(typ)).Msg("failed to build relay event")
		return
	}
	if err := rr.relay.Enqueue(ev); err != nil {
		log.Warn().
			Str("table_id", rr.tableID.String()).
			Str("event_type", string(typ)).
			Msg("relay buffer full, dropping event")
	}
}
