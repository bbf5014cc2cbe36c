// Package round runs timed reaction-game sessions: beep duels and grid
// "tap the lit cell" games share one scheduler core with a policy per mode.
package round

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Dependencies wires a Scheduler to its collaborators. Nil fields fall back to
// a real clock, a randomly seeded source and no-op collaborators.
type Dependencies struct {
	Clock    Clock
	Rand     Rand
	Renderer Renderer
	Audio    Audio
	Best     BestScoreStore
}

// Scheduler owns one session at a time and every timer it schedules.
// It is not safe for concurrent use; Runner serializes access in production.
type Scheduler struct {
	clock    Clock
	rng      Rand
	renderer Renderer
	audio    Audio
	best     BestScoreStore

	timers  *timerQueue
	session *Session
	policy  modePolicy
}

// modePolicy is the variant-specific part of a session.
type modePolicy interface {
	start(ctx context.Context, s *Scheduler)
	fire(ctx context.Context, s *Scheduler, ev event)
	input(ctx context.Context, s *Scheduler, slot SlotID)
	stop(s *Scheduler)
	finish(ctx context.Context, s *Scheduler, res *Result)
}

// NewScheduler creates an idle scheduler.
func NewScheduler(deps Dependencies) *Scheduler {
	s := &Scheduler{
		clock:    deps.Clock,
		rng:      deps.Rand,
		renderer: deps.Renderer,
		audio:    deps.Audio,
		best:     deps.Best,
		timers:   newTimerQueue(),
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if s.renderer == nil {
		s.renderer = NopRenderer{}
	}
	if s.audio == nil {
		s.audio = NopAudio{}
	}
	return s
}

func policyFor(mode Mode) modePolicy {
	if mode == ModeDuel {
		return duelPolicy{}
	}
	return gridPolicy{}
}

// Start begins a new session. A running session is stopped first.
func (s *Scheduler) Start(ctx context.Context, cfg SessionConfig) (uuid.UUID, error) {
	if err := cfg.Validate(); err != nil {
		return uuid.Nil, err
	}

	if s.Running() {
		s.Stop(ctx)
	}
	s.timers.cancelAll()

	now := s.clock.Now()
	s.session = newSession(cfg, now)
	s.policy = policyFor(cfg.Mode)

	info := SessionInfo{
		SessionID: s.session.ID,
		Mode:      cfg.Mode,
		Slots:     cfg.Slots(),
		Duration:  cfg.Duration,
		StartedAt: now,
	}
	if cfg.Mode == ModeGrid {
		info.Board = cfg.Board.String()
		info.Difficulty = cfg.Difficulty
	}
	s.notify("session_started", func() { s.renderer.SessionStarted(info) })
	s.notify("score_changed", func() { s.renderer.ScoreChanged(s.session.Score) })
	s.notify("time_remaining", func() { s.renderer.TimeRemaining(cfg.Duration) })

	s.policy.start(ctx, s)
	if cfg.TickInterval > 0 {
		s.schedule(cfg.TickInterval, event{kind: evTick})
	}

	log.Info().
		Str("session_id", s.session.ID.String()).
		Str("mode", string(cfg.Mode)).
		Dur("duration", cfg.Duration).
		Int("pending_timers", s.timers.Len()).
		Msg("session started")

	return s.session.ID, nil
}

// Stop aborts a running session without persisting anything.
// It is a no-op when no session is running.
func (s *Scheduler) Stop(ctx context.Context) {
	if !s.Running() {
		return
	}

	cancelled := s.timers.cancelAll()
	s.policy.stop(s)
	s.session.Status = StatusIdle

	log.Info().
		Str("session_id", s.session.ID.String()).
		Int("cancelled_timers", cancelled).
		Msg("session stopped")
}

// Input adjudicates a tap on a slot or duel zone. Input outside a running
// session or on an unknown slot is ignored.
func (s *Scheduler) Input(ctx context.Context, slot SlotID) {
	if !s.Running() {
		log.Debug().Int("slot", int(slot)).Msg("input ignored - no running session")
		return
	}
	if slot < 0 || int(slot) >= s.session.Config.Slots() {
		log.Debug().
			Str("session_id", s.session.ID.String()).
			Int("slot", int(slot)).
			Msg("input ignored - unknown slot")
		return
	}
	s.policy.input(ctx, s, slot)
}

// RunDue fires every timer whose deadline is not after the clock's now and
// returns how many fired.
func (s *Scheduler) RunDue(ctx context.Context) int {
	fired := 0
	for {
		e, ok := s.timers.popDue(s.clock.Now())
		if !ok {
			return fired
		}
		fired++
		s.dispatch(ctx, e.ev)
	}
}

func (s *Scheduler) dispatch(ctx context.Context, ev event) {
	if !s.Running() {
		return
	}

	log.Debug().
		Str("session_id", s.session.ID.String()).
		Str("event", ev.kind.String()).
		Int("slot", int(ev.slot)).
		Msg("timer fired")

	switch ev.kind {
	case evTick:
		remaining := s.TimeRemaining()
		s.notify("time_remaining", func() { s.renderer.TimeRemaining(remaining) })
		if remaining > 0 {
			s.schedule(s.session.Config.TickInterval, event{kind: evTick})
		}
	case evTerminal:
		s.finish(ctx, ReasonTimeUp)
	default:
		s.policy.fire(ctx, s, ev)
	}
}

// finish ends a running session and raises the result.
func (s *Scheduler) finish(ctx context.Context, reason FinishReason) {
	sess := s.session
	s.timers.cancelAll()
	sess.Status = StatusFinished

	res := Result{
		SessionID:  sess.ID,
		Mode:       sess.Config.Mode,
		Score:      sess.Score,
		Reason:     reason,
		StartedAt:  sess.StartTime,
		FinishedAt: s.clock.Now(),
	}
	s.policy.finish(ctx, s, &res)

	s.notify("time_remaining", func() { s.renderer.TimeRemaining(0) })
	s.notify("session_finished", func() { s.renderer.SessionFinished(res) })

	log.Info().
		Str("session_id", sess.ID.String()).
		Str("reason", string(reason)).
		Int("points", res.Score.Points).
		Int("blue", res.Score.Blue).
		Int("red", res.Score.Red).
		Str("winner", string(res.Winner)).
		Bool("new_best", res.NewBest).
		Msg("session finished")
}

// schedule registers ev to fire after d from the clock's now.
func (s *Scheduler) schedule(d time.Duration, ev event) TimerHandle {
	return s.timers.schedule(s.clock.Now().Add(d), ev)
}

// scheduleAt registers ev to fire at an absolute instant.
func (s *Scheduler) scheduleAt(at time.Time, ev event) TimerHandle {
	return s.timers.schedule(at, ev)
}

// notify runs a renderer call; a panicking collaborator never aborts a transition.
func (s *Scheduler) notify(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("notification", name).
				Msg("renderer failed")
		}
	}()
	fn()
}

func (s *Scheduler) playTone(kind ToneKind) {
	s.notify("play_tone", func() {
		if err := s.audio.PlayTone(kind); err != nil {
			log.Debug().Err(err).Str("tone", string(kind)).Msg("tone failed")
		}
	})
}

// Running reports whether a session is in progress.
func (s *Scheduler) Running() bool {
	return s.session != nil && s.session.Status == StatusRunning
}

// PendingTimers returns how many timers are scheduled.
func (s *Scheduler) PendingTimers() int {
	return s.timers.Len()
}

// NextDeadline returns the earliest pending timer deadline.
func (s *Scheduler) NextDeadline() (time.Time, bool) {
	return s.timers.nextDeadline()
}

// TimeRemaining is recomputed from the absolute start time so timer latency
// never accumulates into the countdown.
func (s *Scheduler) TimeRemaining() time.Duration {
	if !s.Running() {
		return 0
	}
	end := s.session.StartTime.Add(s.session.Config.Duration)
	remaining := end.Sub(s.clock.Now())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Snapshot copies the current state.
func (s *Scheduler) Snapshot() Snapshot {
	if s.session == nil {
		return Snapshot{Status: StatusIdle, ActiveSlots: []SlotID{}}
	}
	sess := s.session
	return Snapshot{
		SessionID:     sess.ID,
		Mode:          sess.Config.Mode,
		Status:        sess.Status,
		Score:         sess.Score,
		ActiveSlots:   sess.activeSlotIDs(),
		Round:         sess.Round,
		BeepTimes:     append([]time.Duration(nil), sess.BeepTimes...),
		TimeRemaining: s.TimeRemaining(),
		PendingTimers: s.timers.Len(),
		StartedAt:     sess.StartTime,
	}
}
