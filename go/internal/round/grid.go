package round

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// gridPolicy lights random cells in waves; tapping a lit cell scores, tapping
// a dark one costs points.
type gridPolicy struct{}

func (gridPolicy) start(ctx context.Context, s *Scheduler) {
	sess := s.session
	cfg := sess.Config
	s.scheduleAt(sess.StartTime.Add(cfg.FirstSpawnDelay), event{kind: evSpawnWave})
	s.scheduleAt(sess.StartTime.Add(cfg.Duration), event{kind: evTerminal})
}

func (p gridPolicy) fire(ctx context.Context, s *Scheduler, ev event) {
	switch ev.kind {
	case evSpawnWave:
		p.spawnWave(s)
	case evSlotExpire:
		p.deactivate(s, ev.slot)
	}
}

// spawnWave tops the board up to the concurrent limit and reschedules itself
// one interval after the actual firing time.
func (p gridPolicy) spawnWave(s *Scheduler) {
	sess := s.session
	cfg := sess.Config
	now := s.clock.Now()

	want := cfg.Concurrent - len(sess.ActiveSlots)
	picked := PickSlots(s.rng, cfg.Board.Slots(), want, sess.ActiveSlots)
	for _, slot := range picked {
		p.activate(s, slot, now)
	}

	s.schedule(cfg.SpawnInterval, event{kind: evSpawnWave})

	log.Debug().
		Str("session_id", sess.ID.String()).
		Int("spawned", len(picked)).
		Int("active", len(sess.ActiveSlots)).
		Msg("spawn wave")
}

// activate lights a slot. Re-activating a lit slot is a no-op.
func (gridPolicy) activate(s *Scheduler, slot SlotID, now time.Time) {
	sess := s.session
	if _, lit := sess.ActiveSlots[slot]; lit {
		return
	}

	h := s.schedule(sess.Config.ActiveDuration, event{kind: evSlotExpire, slot: slot})
	sess.ActiveSlots[slot] = activeSlot{
		expiresAt: now.Add(sess.Config.ActiveDuration),
		timer:     h,
	}
	s.notify("slot_state_changed", func() { s.renderer.SlotStateChanged(slot, true) })
}

func (gridPolicy) deactivate(s *Scheduler, slot SlotID) {
	sess := s.session
	if _, lit := sess.ActiveSlots[slot]; !lit {
		return
	}
	delete(sess.ActiveSlots, slot)
	s.notify("slot_state_changed", func() { s.renderer.SlotStateChanged(slot, false) })
}

func (p gridPolicy) input(ctx context.Context, s *Scheduler, slot SlotID) {
	sess := s.session
	cfg := sess.Config

	if a, lit := sess.ActiveSlots[slot]; lit {
		s.timers.cancel(a.timer)
		p.deactivate(s, slot)
		p.award(s, cfg.CorrectPoints)
		return
	}
	p.award(s, cfg.IncorrectPoints)
}

func (gridPolicy) award(s *Scheduler, points int) {
	sess := s.session
	sess.Score.Points += points
	score := sess.Score
	s.notify("score_changed", func() { s.renderer.ScoreChanged(score) })
}

func (p gridPolicy) stop(s *Scheduler) {
	for _, slot := range s.session.activeSlotIDs() {
		p.deactivate(s, slot)
	}
}

// finish clears the board and settles the best score. The stored best only
// ever grows; a read failure skips the write rather than risk lowering it.
func (p gridPolicy) finish(ctx context.Context, s *Scheduler, res *Result) {
	p.stop(s)

	cfg := s.session.Config
	res.Board = cfg.Board.String()
	res.Difficulty = cfg.Difficulty

	if s.best == nil {
		return
	}

	key := cfg.BoardKey()
	candidate := max(res.Score.Points, 0)

	prev, found, err := s.best.GetBest(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key.String()).Msg("failed to read best score")
		return
	}

	best := prev
	if !found || candidate > prev {
		if err := s.best.SetBest(ctx, key, candidate); err != nil {
			log.Warn().Err(err).Str("key", key.String()).Msg("failed to persist best score")
		} else {
			res.NewBest = true
			best = candidate
		}
	}
	res.BestScore = &best
}
