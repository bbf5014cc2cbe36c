package eventbus

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/reflex/go/internal/events"
)

// Publisher delivers session events to an external bus.
type Publisher interface {
	Publish(ctx context.Context, event *events.Event) error
	Close() error
}

// LogPublisher logs events instead of publishing them. Used when no bus is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, event *events.Event) error {
	log.Info().
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Str("table_id", event.TableID).
		RawJSON("data", event.Data).
		Msg("session event")
	return nil
}

func (LogPublisher) Close() error { return nil }
