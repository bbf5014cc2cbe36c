package eventbus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/reflex/go/internal/events"
	"github.com/mcdev12/reflex/go/internal/round"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []*events.Event
	fail   bool
	seen   chan struct{}
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{seen: make(chan struct{}, 16)}
}

func (p *capturePublisher) Publish(ctx context.Context, ev *events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	defer func() { p.seen <- struct{}{} }()
	if p.fail {
		return errors.New("bus down")
	}
	p.events = append(p.events, ev)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) snapshot() []*events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*events.Event(nil), p.events...)
}

func waitSeen(t *testing.T, p *capturePublisher, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-p.seen:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d publishes", i, n)
		}
	}
}

func TestRelayPublishesLifecycleEvents(t *testing.T) {
	pub := newCapturePublisher()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	relay := NewRelay(pub, clock, 8)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Start(ctx)

	table := uuid.New()
	renderer := relay.Renderer(table)
	renderer.SessionStarted(round.SessionInfo{Mode: round.ModeGrid, Slots: 9})
	renderer.ScoreChanged(round.Score{Points: 5})
	renderer.SessionFinished(round.Result{Mode: round.ModeGrid, Score: round.Score{Points: 5}})

	waitSeen(t, pub, 2)

	got := pub.snapshot()
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Type != events.TypeSessionStarted || got[1].Type != events.TypeSessionFinished {
		t.Fatalf("unexpected event order: %s, %s", got[0].Type, got[1].Type)
	}
	if got[1].TableID != table.String() || !got[1].Timestamp.Equal(clock.Now()) {
		t.Fatalf("unexpected envelope: %+v", got[1])
	}
	if _, dropped := relay.Stats(); dropped != 0 {
		t.Fatalf("expected nothing dropped, got %d", dropped)
	}
}

func TestRelayDropsWhenFull(t *testing.T) {
	relay := NewRelay(newCapturePublisher(), clockwork.NewFakeClock(), 1)

	ev := &events.Event{ID: uuid.NewString(), Type: events.TypeSessionStarted}
	if err := relay.Enqueue(ev); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := relay.Enqueue(ev); !errors.Is(err, ErrRelayFull) {
		t.Fatalf("expected ErrRelayFull, got %v", err)
	}
	if _, dropped := relay.Stats(); dropped != 1 {
		t.Fatalf("expected 1 dropped, got %d", dropped)
	}
}

func TestRelayDrainsOnShutdown(t *testing.T) {
	pub := newCapturePublisher()
	relay := NewRelay(pub, clockwork.NewFakeClock(), 4)

	for i := 0; i < 3; i++ {
		if err := relay.Enqueue(&events.Event{ID: uuid.NewString(), Type: events.TypeSessionFinished}); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	relay.Start(ctx)

	if got := len(pub.snapshot()); got != 3 {
		t.Fatalf("expected queued events drained, got %d", got)
	}
}

func TestRelayKeepsRunningAfterPublishError(t *testing.T) {
	pub := newCapturePublisher()
	pub.fail = true
	relay := NewRelay(pub, clockwork.NewFakeClock(), 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go relay.Start(ctx)

	renderer := relay.Renderer(uuid.New())
	renderer.SessionFinished(round.Result{})
	waitSeen(t, pub, 1)

	pub.mu.Lock()
	pub.fail = false
	pub.mu.Unlock()

	renderer.SessionFinished(round.Result{})
	waitSeen(t, pub, 1)

	if got := len(pub.snapshot()); got != 1 {
		t.Fatalf("expected one successful publish, got %d", got)
	}
}

func TestSubjectFor(t *testing.T) {
	cfg := DefaultJetStreamConfig()
	if got := subjectFor(cfg.SubjectPrefix, events.TypeSessionFinished); got != "reflex.events.session_finished" {
		t.Fatalf("unexpected subject %s", got)
	}
}
