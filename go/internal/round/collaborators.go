package round

import (
	"context"
	"time"
)

// Renderer receives state notifications. Implementations must not call back
// into the Scheduler synchronously.
type Renderer interface {
	SessionStarted(info SessionInfo)
	SlotStateChanged(slot SlotID, active bool)
	RoundChanged(round RoundState)
	ScoreChanged(score Score)
	TimeRemaining(remaining time.Duration)
	SessionFinished(result Result)
}

// ToneKind selects which beep to play.
type ToneKind string

const (
	ToneNormal ToneKind = "normal"
	ToneFinal  ToneKind = "final"
)

// Audio plays tones. Errors are logged and otherwise ignored.
type Audio interface {
	PlayTone(kind ToneKind) error
}

// BestScoreStore persists the best grid score per board key.
type BestScoreStore interface {
	GetBest(ctx context.Context, key BoardKey) (int, bool, error)
	SetBest(ctx context.Context, key BoardKey, value int) error
}

// Rand is the random source used for spawning and beep scheduling.
// *math/rand/v2.Rand satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

// NopRenderer ignores every notification. Embed it to implement a subset of Renderer.
type NopRenderer struct{}

func (NopRenderer) SessionStarted(SessionInfo)    {}
func (NopRenderer) SlotStateChanged(SlotID, bool) {}
func (NopRenderer) RoundChanged(RoundState)       {}
func (NopRenderer) ScoreChanged(Score)            {}
func (NopRenderer) TimeRemaining(time.Duration)   {}
func (NopRenderer) SessionFinished(Result)        {}

// NopAudio plays nothing.
type NopAudio struct{}

func (NopAudio) PlayTone(ToneKind) error { return nil }

// MultiRenderer fans every notification out to several renderers in order.
type MultiRenderer []Renderer

func (m MultiRenderer) SessionStarted(info SessionInfo) {
	for _, r := range m {
		r.SessionStarted(info)
	}
}

func (m MultiRenderer) SlotStateChanged(slot SlotID, active bool) {
	for _, r := range m {
		r.SlotStateChanged(slot, active)
	}
}

func (m MultiRenderer) RoundChanged(round RoundState) {
	for _, r := range m {
		r.RoundChanged(round)
	}
}

func (m MultiRenderer) ScoreChanged(score Score) {
	for _, r := range m {
		r.ScoreChanged(score)
	}
}

func (m MultiRenderer) TimeRemaining(remaining time.Duration) {
	for _, r := range m {
		r.TimeRemaining(remaining)
	}
}

func (m MultiRenderer) SessionFinished(result Result) {
	for _, r := range m {
		r.SessionFinished(result)
	}
}
