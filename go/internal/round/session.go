package round

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
)

// SlotID addresses a grid cell or a duel zone.
type SlotID int

// Duel zones.
const (
	Blue SlotID = 0
	Red  SlotID = 1

	duelZones = 2
)

// ZoneName returns the duel side name for a zone slot.
func ZoneName(id SlotID) string {
	switch id {
	case Blue:
		return "blue"
	case Red:
		return "red"
	default:
		return fmt.Sprintf("slot-%d", int(id))
	}
}

// Score is the running score of a session. Grid sessions use Points,
// duel sessions use Blue and Red.
type Score struct {
	Points int `json:"points"`
	Blue   int `json:"blue"`
	Red    int `json:"red"`
}

// RoundState is the duel beep round.
type RoundState struct {
	Armed   bool `json:"armed"`
	Claimed bool `json:"claimed"`
	Final   bool `json:"final"`
	Number  int  `json:"number"` // 1-based index of the last armed round
}

// Winner names the duel winner.
type Winner string

const (
	WinnerNone Winner = ""
	WinnerBlue Winner = "blue"
	WinnerRed  Winner = "red"
	WinnerTie  Winner = "tie"
)

// DecideWinner compares duel scores; equal scores are a tie.
func DecideWinner(s Score) Winner {
	switch {
	case s.Blue > s.Red:
		return WinnerBlue
	case s.Red > s.Blue:
		return WinnerRed
	default:
		return WinnerTie
	}
}

// BoardKey identifies a best-score bucket.
type BoardKey struct {
	Board      BoardShape
	Difficulty string
}

// String returns the composite storage key.
func (k BoardKey) String() string {
	return fmt.Sprintf("best_%s_%s", k.Board, k.Difficulty)
}

// FinishReason tells why a session left Running.
type FinishReason string

const (
	ReasonTimeUp       FinishReason = "time_up"
	ReasonFinalClaimed FinishReason = "final_claimed"
	ReasonFinalExpired FinishReason = "final_expired"
)

// Result is raised when a session finishes.
type Result struct {
	SessionID  uuid.UUID    `json:"session_id"`
	Mode       Mode         `json:"mode"`
	Board      string       `json:"board,omitempty"`
	Difficulty string       `json:"difficulty,omitempty"`
	Score      Score        `json:"score"`
	Winner     Winner       `json:"winner,omitempty"`
	BestScore  *int         `json:"best_score,omitempty"`
	NewBest    bool         `json:"new_best"`
	Reason     FinishReason `json:"reason"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
}

// SessionInfo is raised when a session starts.
type SessionInfo struct {
	SessionID  uuid.UUID     `json:"session_id"`
	Mode       Mode          `json:"mode"`
	Board      string        `json:"board,omitempty"`
	Difficulty string        `json:"difficulty,omitempty"`
	Slots      int           `json:"slots"`
	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"started_at"`
}

// Session is the mutable state of one run. It is owned by a Scheduler.
type Session struct {
	ID          uuid.UUID
	Config      SessionConfig
	Status      Status
	StartTime   time.Time
	Score       Score
	ActiveSlots map[SlotID]activeSlot
	Round       RoundState
	BeepTimes   []time.Duration
}

type activeSlot struct {
	expiresAt time.Time
	timer     TimerHandle
}

func newSession(cfg SessionConfig, now time.Time) *Session {
	return &Session{
		ID:          uuid.New(),
		Config:      cfg,
		Status:      StatusRunning,
		StartTime:   now,
		ActiveSlots: make(map[SlotID]activeSlot),
	}
}

// Snapshot is a read-only copy of scheduler state.
type Snapshot struct {
	SessionID     uuid.UUID       `json:"session_id"`
	Mode          Mode            `json:"mode,omitempty"`
	Status        Status          `json:"status"`
	Score         Score           `json:"score"`
	ActiveSlots   []SlotID        `json:"active_slots"`
	Round         RoundState      `json:"round"`
	BeepTimes     []time.Duration `json:"beep_times,omitempty"`
	TimeRemaining time.Duration   `json:"time_remaining"`
	PendingTimers int             `json:"pending_timers"`
	StartedAt     time.Time       `json:"started_at"`
}

func (s *Session) activeSlotIDs() []SlotID {
	ids := make([]SlotID, 0, len(s.ActiveSlots))
	for id := range s.ActiveSlots {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
