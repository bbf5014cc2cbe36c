package round

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by Start when a SessionConfig cannot drive a session.
var ErrInvalidConfig = errors.New("invalid session config")

// Mode selects the game variant a session plays.
type Mode string

const (
	ModeDuel Mode = "duel"
	ModeGrid Mode = "grid"
)

// BoardShape is the grid layout for grid sessions.
type BoardShape struct {
	Rows int `json:"rows" yaml:"rows"`
	Cols int `json:"cols" yaml:"cols"`
}

// Slots returns the number of addressable cells.
func (b BoardShape) Slots() int {
	return b.Rows * b.Cols
}

func (b BoardShape) String() string {
	return fmt.Sprintf("%dx%d", b.Rows, b.Cols)
}

// ParseBoardShape parses the "RxC" form produced by BoardShape.String.
func ParseBoardShape(s string) (BoardShape, error) {
	var b BoardShape
	if _, err := fmt.Sscanf(s, "%dx%d", &b.Rows, &b.Cols); err != nil {
		return BoardShape{}, fmt.Errorf("parse board shape %q: %w", s, err)
	}
	if b.Rows <= 0 || b.Cols <= 0 {
		return BoardShape{}, fmt.Errorf("parse board shape %q: dimensions must be positive", s)
	}
	return b, nil
}

// BeepSchedule controls how duel beep times are drawn.
type BeepSchedule struct {
	Count       int           `yaml:"count"`
	Margin      time.Duration `yaml:"margin"`       // no beep closer than this to start or end
	MinGap      time.Duration `yaml:"min_gap"`      // minimum distance between consecutive beeps
	MaxAttempts int           `yaml:"max_attempts"` // rejection sampling bound
}

// SessionConfig holds the immutable parameters of one run.
type SessionConfig struct {
	Mode         Mode
	Duration     time.Duration
	TickInterval time.Duration // countdown refresh, 0 disables ticks

	// Grid
	Board           BoardShape
	Difficulty      string
	Concurrent      int           // max slots lit at once
	ActiveDuration  time.Duration // how long a lit slot stays lit
	SpawnInterval   time.Duration // delay between waves, measured from the previous wave
	FirstSpawnDelay time.Duration
	CorrectPoints   int
	IncorrectPoints int

	// Duel
	Beeps        BeepSchedule
	RoundPoints  int
	EarlyPenalty int
	FinalPoints  int
	FinalDelay   time.Duration // terminal round arms at Duration+FinalDelay
	FinalGrace   time.Duration // terminal round resolves untapped after this window
}

// Slots returns how many input targets the mode exposes.
func (c SessionConfig) Slots() int {
	if c.Mode == ModeDuel {
		return duelZones
	}
	return c.Board.Slots()
}

// BoardKey returns the best-score key for grid sessions.
func (c SessionConfig) BoardKey() BoardKey {
	return BoardKey{Board: c.Board, Difficulty: c.Difficulty}
}

// Validate reports whether the config can drive a session.
func (c SessionConfig) Validate() error {
	if c.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidConfig)
	}
	if c.TickInterval < 0 {
		return fmt.Errorf("%w: tick interval must not be negative", ErrInvalidConfig)
	}

	switch c.Mode {
	case ModeGrid:
		if c.Board.Slots() <= 0 {
			return fmt.Errorf("%w: board %s has no slots", ErrInvalidConfig, c.Board)
		}
		if c.Concurrent <= 0 || c.Concurrent > c.Board.Slots() {
			return fmt.Errorf("%w: concurrent slots %d out of range for board %s", ErrInvalidConfig, c.Concurrent, c.Board)
		}
		if c.ActiveDuration <= 0 || c.SpawnInterval <= 0 {
			return fmt.Errorf("%w: active duration and spawn interval must be positive", ErrInvalidConfig)
		}
		if c.FirstSpawnDelay < 0 {
			return fmt.Errorf("%w: first spawn delay must not be negative", ErrInvalidConfig)
		}
	case ModeDuel:
		if c.Beeps.Count < 0 || c.Beeps.Margin < 0 || c.Beeps.MinGap < 0 {
			return fmt.Errorf("%w: beep schedule values must not be negative", ErrInvalidConfig)
		}
		if 2*c.Beeps.Margin >= c.Duration {
			return fmt.Errorf("%w: beep margin %s leaves no window in %s", ErrInvalidConfig, c.Beeps.Margin, c.Duration)
		}
		if c.FinalDelay < 0 || c.FinalGrace <= 0 {
			return fmt.Errorf("%w: final delay must not be negative and grace must be positive", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, c.Mode)
	}
	return nil
}

// DefaultDuelConfig returns the classic 30 second beep duel.
func DefaultDuelConfig() SessionConfig {
	return SessionConfig{
		Mode:         ModeDuel,
		Duration:     30 * time.Second,
		TickInterval: 100 * time.Millisecond,
		Beeps: BeepSchedule{
			Count:       5,
			Margin:      2 * time.Second,
			MinGap:      2 * time.Second,
			MaxAttempts: 200,
		},
		RoundPoints:  5,
		EarlyPenalty: -2,
		FinalPoints:  12,
		FinalGrace:   3 * time.Second,
	}
}

// Difficulty tunes how fast grid slots appear and vanish.
type Difficulty struct {
	Name           string        `yaml:"name"`
	Concurrent     int           `yaml:"concurrent"`
	ActiveDuration time.Duration `yaml:"active_duration"`
	SpawnInterval  time.Duration `yaml:"spawn_interval"`
}

// DefaultDifficulties are used when no preset file overrides them.
var DefaultDifficulties = []Difficulty{
	{Name: "easy", Concurrent: 1, ActiveDuration: 1200 * time.Millisecond, SpawnInterval: 1000 * time.Millisecond},
	{Name: "normal", Concurrent: 2, ActiveDuration: 900 * time.Millisecond, SpawnInterval: 800 * time.Millisecond},
	{Name: "hard", Concurrent: 3, ActiveDuration: 650 * time.Millisecond, SpawnInterval: 600 * time.Millisecond},
}

// DefaultGridConfig returns a 30 second grid session for the given board and difficulty.
func DefaultGridConfig(board BoardShape, d Difficulty) SessionConfig {
	concurrent := d.Concurrent
	if concurrent > board.Slots() {
		concurrent = board.Slots()
	}
	return SessionConfig{
		Mode:            ModeGrid,
		Duration:        30 * time.Second,
		TickInterval:    100 * time.Millisecond,
		Board:           board,
		Difficulty:      d.Name,
		Concurrent:      concurrent,
		ActiveDuration:  d.ActiveDuration,
		SpawnInterval:   d.SpawnInterval,
		CorrectPoints:   5,
		IncorrectPoints: -2,
	}
}
