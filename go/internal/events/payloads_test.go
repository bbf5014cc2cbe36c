package events

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/reflex/go/internal/round"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		state round.RoundState
		want  RoundStatus
	}{
		{round.RoundState{}, RoundWaiting},
		{round.RoundState{Armed: true, Number: 2}, RoundGo},
		{round.RoundState{Armed: true, Final: true, Number: 6}, RoundFinal},
		{round.RoundState{Claimed: true, Number: 3}, RoundWaiting},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.state); got != tc.want {
			t.Fatalf("%+v: expected %s, got %s", tc.state, tc.want, got)
		}
	}
}

func TestNewTimeRemainingRoundsUp(t *testing.T) {
	cases := map[time.Duration]int{
		0:                        0,
		-time.Second:             0,
		100 * time.Millisecond:   1,
		time.Second:              1,
		29900 * time.Millisecond: 30,
	}
	for d, want := range cases {
		if got := NewTimeRemaining(d).Seconds; got != want {
			t.Fatalf("%s: expected %d, got %d", d, want, got)
		}
	}
}

func TestNewAndParsePayload(t *testing.T) {
	table := uuid.New()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	ev, err := New(table, TypeRoundChanged, RoundChangedPayload{
		RoundState: round.RoundState{Armed: true, Final: true, Number: 6},
		Status:     RoundFinal,
	}, now)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if ev.TableID != table.String() || !ev.Timestamp.Equal(now) {
		t.Fatalf("unexpected envelope: %+v", ev)
	}

	parsed, err := ParsePayload(ev)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	payload, ok := parsed.(*RoundChangedPayload)
	if !ok {
		t.Fatalf("unexpected payload type %T", parsed)
	}
	if !payload.Final || payload.Number != 6 || payload.Status != RoundFinal {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestParsePayloadUnknownType(t *testing.T) {
	if _, err := ParsePayload(&Event{Type: "mystery", Data: []byte("{}")}); err == nil {
		t.Fatal("expected error for unknown type")
	}
}
