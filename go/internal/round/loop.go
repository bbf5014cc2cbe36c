package round

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ErrRunnerStopped is returned when a command reaches a Runner whose loop has exited.
var ErrRunnerStopped = errors.New("runner stopped")

type command struct {
	name  string
	apply func(ctx context.Context, s *Scheduler)
	done  chan struct{}
}

// Runner owns a Scheduler on a single goroutine. Timer firings and commands
// are serialized, so the Scheduler never sees concurrent callers.
type Runner struct {
	id    string
	sched *Scheduler
	cmds  chan command
	done  chan struct{}
}

// NewRunner wraps a scheduler. Call Run to start the loop.
func NewRunner(sched *Scheduler) *Runner {
	return &Runner{
		id:    uuid.New().String()[:8], // short ID for logging
		sched: sched,
		cmds:  make(chan command),
		done:  make(chan struct{}),
	}
}

// Run loops until ctx is cancelled, sleeping until the next timer deadline or
// the next command. A running session is stopped on shutdown.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)

	log.Info().Str("runner", r.id).Msg("runner started")

	timer := r.sched.clock.NewTimer(time.Hour)
	defer timer.Stop()
	timerCh := r.rearm(timer)

	for {
		select {
		case <-ctx.Done():
			r.sched.Stop(context.WithoutCancel(ctx))
			log.Info().Str("runner", r.id).Msg("runner shutting down")
			return nil

		case <-timerCh:
			r.sched.RunDue(ctx)
			timerCh = r.rearm(timer)

		case c := <-r.cmds:
			log.Debug().Str("runner", r.id).Str("command", c.name).Msg("applying command")
			// Settle everything already due so input is judged against current state.
			r.sched.RunDue(ctx)
			c.apply(ctx, r.sched)
			timerCh = r.rearm(timer)
			close(c.done)
		}
	}
}

// rearm points the loop timer at the earliest pending deadline. It returns a
// nil channel when nothing is scheduled.
func (r *Runner) rearm(timer clockwork.Timer) <-chan time.Time {
	stopAndDrainTimer(timer)

	deadline, ok := r.sched.NextDeadline()
	if !ok {
		return nil
	}
	wait := deadline.Sub(r.sched.clock.Now())
	if wait < 0 {
		wait = 0
	}
	timer.Reset(wait)
	return timer.Chan()
}

// stopAndDrainTimer safely stops a timer and drains its channel so a stale
// fire is never observed after Reset.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}

// do hands fn to the loop and waits until it has been applied.
func (r *Runner) do(ctx context.Context, name string, fn func(ctx context.Context, s *Scheduler)) error {
	c := command{name: name, apply: fn, done: make(chan struct{})}

	select {
	case r.cmds <- c:
	case <-r.done:
		return ErrRunnerStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-c.done:
		return nil
	case <-r.done:
		return ErrRunnerStopped
	}
}

// Start begins a session, stopping any running one first.
func (r *Runner) Start(ctx context.Context, cfg SessionConfig) (uuid.UUID, error) {
	var (
		id       uuid.UUID
		startErr error
	)
	err := r.do(ctx, "start", func(ctx context.Context, s *Scheduler) {
		id, startErr = s.Start(ctx, cfg)
	})
	if err != nil {
		return uuid.Nil, err
	}
	return id, startErr
}

// Stop aborts the running session, if any.
func (r *Runner) Stop(ctx context.Context) error {
	return r.do(ctx, "stop", func(ctx context.Context, s *Scheduler) {
		s.Stop(ctx)
	})
}

// Input forwards a tap to the scheduler.
func (r *Runner) Input(ctx context.Context, slot SlotID) error {
	return r.do(ctx, "input", func(ctx context.Context, s *Scheduler) {
		s.Input(ctx, slot)
	})
}

// Snapshot returns the scheduler state after settling due timers.
func (r *Runner) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := r.do(ctx, "snapshot", func(ctx context.Context, s *Scheduler) {
		snap = s.Snapshot()
	})
	return snap, err
}

// Done is closed once Run has returned.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}
