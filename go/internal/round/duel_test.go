package round

import (
	"context"
	"testing"
	"time"
)

func duelTestConfig() SessionConfig {
	cfg := DefaultDuelConfig()
	cfg.TickInterval = 0
	cfg.RoundPoints = 5
	cfg.EarlyPenalty = -2
	cfg.FinalPoints = 12
	return cfg
}

func TestDuelScoringScenario(t *testing.T) {
	ctx := context.Background()
	h := newHarness(7)
	cfg := duelTestConfig()

	if _, err := h.sched.Start(ctx, cfg); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Tap before any beep.
	h.sched.Input(ctx, Blue)
	if got := h.sched.Snapshot().Score.Blue; got != -2 {
		t.Fatalf("expected blue -2 after early tap, got %d", got)
	}

	beeps := h.sched.Snapshot().BeepTimes
	if len(beeps) != 5 {
		t.Fatalf("expected 5 beeps, got %d", len(beeps))
	}

	h.advanceTo(t, beeps[0])
	if !h.sched.Snapshot().Round.Armed {
		t.Fatal("expected round armed after first beep")
	}

	h.sched.Input(ctx, Red)
	snap := h.sched.Snapshot()
	if snap.Score.Red != 5 {
		t.Fatalf("expected red 5, got %d", snap.Score.Red)
	}
	if snap.Round.Armed {
		t.Fatal("expected round disarmed after claim")
	}

	h.advanceTo(t, cfg.Duration)
	snap = h.sched.Snapshot()
	if !snap.Round.Armed || !snap.Round.Final {
		t.Fatalf("expected terminal round armed, got %+v", snap.Round)
	}

	h.sched.Input(ctx, Blue)
	snap = h.sched.Snapshot()
	if snap.Status != StatusFinished {
		t.Fatalf("expected finished, got %s", snap.Status)
	}
	if snap.Score.Blue != 10 || snap.Score.Red != 5 {
		t.Fatalf("expected blue 10 red 5, got %+v", snap.Score)
	}
	if snap.PendingTimers != 0 {
		t.Fatalf("expected no pending timers after finish, got %d", snap.PendingTimers)
	}

	res := h.renderer.lastResult(t)
	if res.Winner != WinnerBlue {
		t.Fatalf("expected blue to win, got %q", res.Winner)
	}
	if res.Reason != ReasonFinalClaimed {
		t.Fatalf("expected final_claimed, got %s", res.Reason)
	}
}

func TestDuelClaimedRoundIgnoresSecondTap(t *testing.T) {
	ctx := context.Background()
	h := newHarness(11)

	if _, err := h.sched.Start(ctx, duelTestConfig()); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.advanceTo(t, h.sched.Snapshot().BeepTimes[0])

	// A non-final claim disarms at once, so force the claimed flag to reach the guard.
	h.sched.session.Round.Claimed = true
	h.sched.Input(ctx, Blue)

	if got := h.sched.Snapshot().Score; got.Blue != 0 || got.Red != 0 {
		t.Fatalf("expected no score change on claimed round, got %+v", got)
	}
}

func TestDuelTonesFollowRounds(t *testing.T) {
	ctx := context.Background()
	h := newHarness(3)
	cfg := duelTestConfig()

	if _, err := h.sched.Start(ctx, cfg); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.advanceTo(t, cfg.Duration)

	if len(h.audio.tones) != 6 {
		t.Fatalf("expected 6 tones, got %d", len(h.audio.tones))
	}
	for i, tone := range h.audio.tones[:5] {
		if tone != ToneNormal {
			t.Fatalf("tone %d: expected normal, got %s", i, tone)
		}
	}
	if h.audio.tones[5] != ToneFinal {
		t.Fatalf("expected final tone last, got %s", h.audio.tones[5])
	}
	if got := h.sched.Snapshot().Round.Number; got != 6 {
		t.Fatalf("expected round number 6, got %d", got)
	}
}

func TestDuelTerminalRoundExpiresWithoutScoreChange(t *testing.T) {
	ctx := context.Background()
	h := newHarness(5)
	cfg := duelTestConfig()

	if _, err := h.sched.Start(ctx, cfg); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.sched.Input(ctx, Red)

	h.advanceTo(t, cfg.Duration)
	if h.sched.Snapshot().Status != StatusRunning {
		t.Fatal("expected session to keep running during the grace window")
	}

	h.advance(cfg.FinalGrace - time.Millisecond)
	if h.sched.Snapshot().Status != StatusRunning {
		t.Fatal("expected session running just before grace expires")
	}

	h.advance(time.Millisecond)
	snap := h.sched.Snapshot()
	if snap.Status != StatusFinished {
		t.Fatalf("expected finished after grace, got %s", snap.Status)
	}
	if snap.Score.Red != -2 || snap.Score.Blue != 0 {
		t.Fatalf("expected scores unchanged by fallback, got %+v", snap.Score)
	}

	res := h.renderer.lastResult(t)
	if res.Reason != ReasonFinalExpired {
		t.Fatalf("expected final_expired, got %s", res.Reason)
	}
	if res.Winner != WinnerBlue {
		t.Fatalf("expected blue to win 0 to -2, got %q", res.Winner)
	}
}

func TestDuelFinalDelayPostponesTerminalRound(t *testing.T) {
	ctx := context.Background()
	h := newHarness(9)
	cfg := duelTestConfig()
	cfg.FinalDelay = 2 * time.Second

	if _, err := h.sched.Start(ctx, cfg); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.advanceTo(t, cfg.Duration)
	if h.sched.Snapshot().Round.Final {
		t.Fatal("terminal round armed before final delay elapsed")
	}
	h.advance(cfg.FinalDelay)
	if !h.sched.Snapshot().Round.Final {
		t.Fatal("expected terminal round armed after final delay")
	}
}

func TestDuelTieWhenScoresEqual(t *testing.T) {
	if got := DecideWinner(Score{Blue: 3, Red: 3}); got != WinnerTie {
		t.Fatalf("expected tie, got %q", got)
	}
	if got := DecideWinner(Score{Blue: -2, Red: 5}); got != WinnerRed {
		t.Fatalf("expected red, got %q", got)
	}
}

func TestDuelStopDisarmsRound(t *testing.T) {
	ctx := context.Background()
	h := newHarness(13)

	if _, err := h.sched.Start(ctx, duelTestConfig()); err != nil {
		t.Fatalf("start: %v", err)
	}
	h.advanceTo(t, h.sched.Snapshot().BeepTimes[0])

	h.sched.Stop(ctx)
	snap := h.sched.Snapshot()
	if snap.Status != StatusIdle {
		t.Fatalf("expected idle after stop, got %s", snap.Status)
	}
	if snap.Round.Armed {
		t.Fatal("expected round disarmed after stop")
	}
	if snap.PendingTimers != 0 {
		t.Fatalf("expected no pending timers, got %d", snap.PendingTimers)
	}
	if len(h.renderer.results) != 0 {
		t.Fatal("stop must not raise a session result")
	}

	h.sched.Input(ctx, Blue)
	if got := h.sched.Snapshot().Score.Blue; got != 0 {
		t.Fatalf("expected input ignored after stop, got blue %d", got)
	}
}
