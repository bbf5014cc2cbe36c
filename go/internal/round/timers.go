package round

import (
	"container/heap"
	"time"

	"github.com/jonboulle/clockwork"
)

// Clock is the interface we use for time operations.
// In production, use clockwork.NewRealClock(). In tests, a FakeClock.
type Clock interface {
	Now() time.Time
	NewTimer(d time.Duration) clockwork.Timer
}

// TimerHandle identifies a pending timer so it can be cancelled.
type TimerHandle uint64

type eventKind int

const (
	evTerminal eventKind = iota
	evTick
	evArmRound
	evArmFinal
	evFinalFallback
	evSpawnWave
	evSlotExpire
)

func (k eventKind) String() string {
	switch k {
	case evTerminal:
		return "terminal"
	case evTick:
		return "tick"
	case evArmRound:
		return "arm_round"
	case evArmFinal:
		return "arm_final"
	case evFinalFallback:
		return "final_fallback"
	case evSpawnWave:
		return "spawn_wave"
	case evSlotExpire:
		return "slot_expire"
	default:
		return "unknown"
	}
}

// event is the payload carried by a timer.
type event struct {
	kind eventKind
	slot SlotID
}

type timerEntry struct {
	handle TimerHandle
	at     time.Time
	ev     event
	index  int
}

// timerQueue is a min-heap of pending timers ordered by deadline, then by
// scheduling order. It is not safe for concurrent use.
type timerQueue struct {
	items    []*timerEntry
	byHandle map[TimerHandle]*timerEntry
	next     TimerHandle
}

func newTimerQueue() *timerQueue {
	return &timerQueue{byHandle: make(map[TimerHandle]*timerEntry)}
}

func (q *timerQueue) Len() int { return len(q.items) }

func (q *timerQueue) Less(i, j int) bool {
	if q.items[i].at.Equal(q.items[j].at) {
		return q.items[i].handle < q.items[j].handle
	}
	return q.items[i].at.Before(q.items[j].at)
}

func (q *timerQueue) Swap(i, j int) {
	q.items[i], q.items[j] = q.items[j], q.items[i]
	q.items[i].index = i
	q.items[j].index = j
}

func (q *timerQueue) Push(x any) {
	e := x.(*timerEntry)
	e.index = len(q.items)
	q.items = append(q.items, e)
}

func (q *timerQueue) Pop() any {
	old := q.items
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	q.items = old[:n-1]
	return e
}

// schedule registers ev to fire at the given instant.
func (q *timerQueue) schedule(at time.Time, ev event) TimerHandle {
	q.next++
	e := &timerEntry{handle: q.next, at: at, ev: ev}
	heap.Push(q, e)
	q.byHandle[e.handle] = e
	return e.handle
}

// cancel removes a pending timer. It reports false when the handle is
// unknown, already fired or already cancelled.
func (q *timerQueue) cancel(h TimerHandle) bool {
	e, ok := q.byHandle[h]
	if !ok {
		return false
	}
	heap.Remove(q, e.index)
	delete(q.byHandle, h)
	return true
}

// cancelAll drops every pending timer and returns how many were dropped.
func (q *timerQueue) cancelAll() int {
	n := len(q.items)
	q.items = nil
	q.byHandle = make(map[TimerHandle]*timerEntry)
	return n
}

// popDue removes and returns the earliest timer whose deadline is not after now.
func (q *timerQueue) popDue(now time.Time) (*timerEntry, bool) {
	if len(q.items) == 0 || q.items[0].at.After(now) {
		return nil, false
	}
	e := heap.Pop(q).(*timerEntry)
	delete(q.byHandle, e.handle)
	return e, true
}

func (q *timerQueue) nextDeadline() (time.Time, bool) {
	if len(q.items) == 0 {
		return time.Time{}, false
	}
	return q.items[0].at, true
}
