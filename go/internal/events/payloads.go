package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/reflex/go/internal/round"
)

// Event is the envelope shared by the websocket gateway and the event bus.
type Event struct {
	ID        string          `json:"id"`        // Event UUID
	TableID   string          `json:"table_id"`  // Table UUID
	Type      Type            `json:"type"`      // Event type
	Timestamp time.Time       `json:"timestamp"` // Event creation time
	Data      json.RawMessage `json:"data"`      // Event-specific payload
}

// Type names an event.
type Type string

const (
	TypeSessionStarted  Type = "session_started"
	TypeSlotChanged     Type = "slot_changed"
	TypeRoundChanged    Type = "round_changed"
	TypeScoreChanged    Type = "score_changed"
	TypeTimeRemaining   Type = "time_remaining"
	TypeTone            Type = "tone"
	TypeSessionFinished Type = "session_finished"
	TypeError           Type = "error"
)

// SlotChangedPayload is the payload for a slot_changed event
type SlotChangedPayload struct {
	Slot   int    `json:"slot"`
	Zone   string `json:"zone,omitempty"`
	Active bool   `json:"active"`
}

// RoundChangedPayload is the payload for a round_changed event
type RoundChangedPayload struct {
	round.RoundState
	Status RoundStatus `json:"status"`
}

// TimeRemainingPayload is the payload for a time_remaining event
type TimeRemainingPayload struct {
	RemainingMs int64 `json:"remaining_ms"`
	Seconds     int   `json:"seconds"`
}

// TonePayload is the payload for a tone event
type TonePayload struct {
	Kind round.ToneKind `json:"kind"`
}

// ErrorPayload is the payload for an error event
type ErrorPayload struct {
	Message string `json:"message"`
}

// RoundStatus is the status line shown for the duel round.
type RoundStatus string

const (
	RoundWaiting RoundStatus = "waiting"
	RoundGo      RoundStatus = "go"
	RoundFinal   RoundStatus = "final"
)

// StatusFor maps a round state to its status line.
func StatusFor(r round.RoundState) RoundStatus {
	switch {
	case r.Armed && r.Final:
		return RoundFinal
	case r.Armed:
		return RoundGo
	default:
		return RoundWaiting
	}
}

// NewTimeRemaining rounds the countdown up to whole seconds for display.
func NewTimeRemaining(d time.Duration) TimeRemainingPayload {
	if d < 0 {
		d = 0
	}
	return TimeRemainingPayload{
		RemainingMs: d.Milliseconds(),
		Seconds:     int((d + time.Second - 1) / time.Second),
	}
}

// New marshals payload into an event envelope.
func New(tableID uuid.UUID, typ Type, payload any, now time.Time) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", typ, err)
	}
	return &Event{
		ID:        uuid.NewString(),
		TableID:   tableID.String(),
		Type:      typ,
		Timestamp: now.UTC(),
		Data:      data,
	}, nil
}

// ParsePayload parses event data into the appropriate payload struct
func ParsePayload(event *Event) (interface{}, error) {
	var target interface{}
	switch event.Type {
	case TypeSessionStarted:
		target = &round.SessionInfo{}
	case TypeSlotChanged:
		target = &SlotChangedPayload{}
	case TypeRoundChanged:
		target = &RoundChangedPayload{}
	case TypeScoreChanged:
		target = &round.Score{}
	case TypeTimeRemaining:
		target = &TimeRemainingPayload{}
	case TypeTone:
		target = &TonePayload{}
	case TypeSessionFinished:
		target = &round.Result{}
	case TypeError:
		target = &ErrorPayload{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", event.Type)
	}
	if err := json.Unmarshal(event.Data, target); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", event.Type, err)
	}
	return target, nil
}
