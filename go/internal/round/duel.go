package round

import (
	"context"

	"github.com/rs/zerolog/log"
)

// duelPolicy plays the two-player beep duel: after each beep the first tap
// scores, taps before a beep are penalised, and the terminal round ends the game.
type duelPolicy struct{}

func (duelPolicy) start(ctx context.Context, s *Scheduler) {
	sess := s.session
	cfg := sess.Config

	sess.BeepTimes = GenerateBeepTimes(s.rng, cfg.Beeps, cfg.Duration)
	for _, offset := range sess.BeepTimes {
		s.scheduleAt(sess.StartTime.Add(offset), event{kind: evArmRound})
	}
	s.scheduleAt(sess.StartTime.Add(cfg.Duration+cfg.FinalDelay), event{kind: evArmFinal})

	s.notify("round_changed", func() { s.renderer.RoundChanged(sess.Round) })
}

func (p duelPolicy) fire(ctx context.Context, s *Scheduler, ev event) {
	sess := s.session

	switch ev.kind {
	case evArmRound:
		p.arm(s, false)
	case evArmFinal:
		p.arm(s, true)
		s.schedule(sess.Config.FinalGrace, event{kind: evFinalFallback})
	case evFinalFallback:
		if sess.Round.Final && !sess.Round.Claimed {
			log.Info().
				Str("session_id", sess.ID.String()).
				Msg("terminal round expired untapped")
			s.finish(ctx, ReasonFinalExpired)
		}
	}
}

func (duelPolicy) arm(s *Scheduler, final bool) {
	sess := s.session
	sess.Round = RoundState{
		Armed:  true,
		Final:  final,
		Number: sess.Round.Number + 1,
	}
	round := sess.Round
	s.notify("round_changed", func() { s.renderer.RoundChanged(round) })

	if final {
		s.playTone(ToneFinal)
	} else {
		s.playTone(ToneNormal)
	}
}

func (duelPolicy) disarm(s *Scheduler) {
	sess := s.session
	sess.Round.Armed = false
	sess.Round.Final = false
	round := sess.Round
	s.notify("round_changed", func() { s.renderer.RoundChanged(round) })
}

func (p duelPolicy) input(ctx context.Context, s *Scheduler, zone SlotID) {
	sess := s.session
	cfg := sess.Config

	if !sess.Round.Armed {
		p.award(s, zone, cfg.EarlyPenalty)
		return
	}
	if sess.Round.Claimed {
		return
	}
	sess.Round.Claimed = true

	if sess.Round.Final {
		p.award(s, zone, cfg.FinalPoints)
		s.finish(ctx, ReasonFinalClaimed)
		return
	}

	p.award(s, zone, cfg.RoundPoints)
	p.disarm(s)
}

func (duelPolicy) award(s *Scheduler, zone SlotID, points int) {
	sess := s.session
	if zone == Blue {
		sess.Score.Blue += points
	} else {
		sess.Score.Red += points
	}
	score := sess.Score

	log.Debug().
		Str("session_id", sess.ID.String()).
		Str("zone", ZoneName(zone)).
		Int("points", points).
		Msg("duel points awarded")

	s.notify("score_changed", func() { s.renderer.ScoreChanged(score) })
}

func (p duelPolicy) stop(s *Scheduler) {
	if s.session.Round.Armed {
		p.disarm(s)
	}
}

func (duelPolicy) finish(ctx context.Context, s *Scheduler, res *Result) {
	res.Winner = DecideWinner(res.Score)
}
