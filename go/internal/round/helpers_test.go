package round

import (
	"context"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

var testEpoch = time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC)

// recordingRenderer keeps every notification for assertions.
type recordingRenderer struct {
	mu        sync.Mutex
	started   []SessionInfo
	slots     []slotChange
	rounds    []RoundState
	scores    []Score
	remaining []time.Duration
	results   []Result
}

type slotChange struct {
	slot   SlotID
	active bool
}

func (r *recordingRenderer) SessionStarted(info SessionInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, info)
}

func (r *recordingRenderer) SlotStateChanged(slot SlotID, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots = append(r.slots, slotChange{slot: slot, active: active})
}

func (r *recordingRenderer) RoundChanged(round RoundState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rounds = append(r.rounds, round)
}

func (r *recordingRenderer) ScoreChanged(score Score) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scores = append(r.scores, score)
}

func (r *recordingRenderer) TimeRemaining(remaining time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remaining = append(r.remaining, remaining)
}

func (r *recordingRenderer) SessionFinished(result Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func (r *recordingRenderer) lastResult(t *testing.T) Result {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.results) == 0 {
		t.Fatal("expected a session result")
	}
	return r.results[len(r.results)-1]
}

// recordingAudio counts tones by kind.
type recordingAudio struct {
	tones []ToneKind
}

func (a *recordingAudio) PlayTone(kind ToneKind) error {
	a.tones = append(a.tones, kind)
	return nil
}

// memoryBest is a BestScoreStore that counts writes.
type memoryBest struct {
	values map[string]int
	sets   int
}

func newMemoryBest() *memoryBest {
	return &memoryBest{values: make(map[string]int)}
}

func (m *memoryBest) GetBest(ctx context.Context, key BoardKey) (int, bool, error) {
	v, ok := m.values[key.String()]
	return v, ok, nil
}

func (m *memoryBest) SetBest(ctx context.Context, key BoardKey, value int) error {
	m.sets++
	m.values[key.String()] = value
	return nil
}

type testHarness struct {
	clock    *clockwork.FakeClock
	renderer *recordingRenderer
	audio    *recordingAudio
	best     *memoryBest
	sched    *Scheduler
}

func newHarness(seed uint64) *testHarness {
	h := &testHarness{
		clock:    clockwork.NewFakeClockAt(testEpoch),
		renderer: &recordingRenderer{},
		audio:    &recordingAudio{},
		best:     newMemoryBest(),
	}
	h.sched = NewScheduler(Dependencies{
		Clock:    h.clock,
		Rand:     rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		Renderer: h.renderer,
		Audio:    h.audio,
		Best:     h.best,
	})
	return h
}

// advance moves virtual time forward and fires every timer that became due.
func (h *testHarness) advance(d time.Duration) {
	h.clock.Advance(d)
	h.sched.RunDue(context.Background())
}

// advanceTo moves virtual time to an offset from the session start.
func (h *testHarness) advanceTo(t *testing.T, offset time.Duration) {
	t.Helper()
	target := h.sched.session.StartTime.Add(offset)
	d := target.Sub(h.clock.Now())
	if d < 0 {
		t.Fatalf("cannot move time backwards to offset %s", offset)
	}
	h.advance(d)
}

// fixedRand returns the same values forever.
type fixedRand struct {
	f float64
	n int
}

func (r fixedRand) Float64() float64 { return r.f }
func (r fixedRand) IntN(n int) int {
	if r.n >= n {
		return n - 1
	}
	return r.n
}
