package gateway

import (
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/reflex/go/internal/events"
	"github.com/mcdev12/reflex/go/internal/round"
)

// Table is one game table: a Runner plus the websocket room that watches it.
type Table struct {
	ID        uuid.UUID
	Runner    *round.Runner
	CreatedAt time.Time
}

// broadcaster turns scheduler notifications into table events. It runs on the
// table's Runner goroutine and only enqueues, so it never blocks the scheduler.
type broadcaster struct {
	tableID uuid.UUID
	cm      *ConnectionManager
	clock   clockwork.Clock
	slots   int
	mode    round.Mode
}

var (
	_ round.Renderer = (*broadcaster)(nil)
	_ round.Audio    = (*broadcaster)(nil)
)

func (b *broadcaster) emit(typ events.Type, payload any) {
	ev, err := events.New(b.tableID, typ, payload, b.clock.Now())
	if err != nil {
		log.Error().Err(err).Str("table_id", b.tableID.String()).Msg("failed to build event")
		return
	}
	b.cm.BroadcastToTable(b.tableID, ev)
}

func (b *broadcaster) SessionStarted(info round.SessionInfo) {
	b.mode = info.Mode
	b.slots = info.Slots
	b.emit(events.TypeSessionStarted, info)
}

func (b *broadcaster) SlotStateChanged(slot round.SlotID, active bool) {
	payload := events.SlotChangedPayload{Slot: int(slot), Active: active}
	if b.mode == round.ModeDuel {
		payload.Zone = round.ZoneName(slot)
	}
	b.emit(events.TypeSlotChanged, payload)
}

func (b *broadcaster) RoundChanged(r round.RoundState) {
	b.emit(events.TypeRoundChanged, events.RoundChangedPayload{RoundState: r, Status: events.StatusFor(r)})
}

func (b *broadcaster) ScoreChanged(score round.Score) {
	b.emit(events.TypeScoreChanged, score)
}

func (b *broadcaster) TimeRemaining(remaining time.Duration) {
	b.emit(events.TypeTimeRemaining, events.NewTimeRemaining(remaining))
}

func (b *broadcaster) SessionFinished(res round.Result) {
	b.emit(events.TypeSessionFinished, res)
}

func (b *broadcaster) PlayTone(kind round.ToneKind) error {
	b.emit(events.TypeTone, events.TonePayload{Kind: kind})
	return nil
}
