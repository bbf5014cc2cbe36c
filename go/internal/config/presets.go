package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/mcdev12/reflex/go/internal/round"
)

// ErrUnknownPreset is returned when a preset, board or difficulty is not configured.
var ErrUnknownPreset = errors.New("unknown preset")

// DuelPreset holds the duel rules.
type DuelPreset struct {
	Duration     time.Duration      `yaml:"duration"`
	TickInterval time.Duration      `yaml:"tick_interval"`
	Beeps        round.BeepSchedule `yaml:"beeps"`
	RoundPoints  int                `yaml:"round_points"`
	EarlyPenalty int                `yaml:"early_penalty"`
	FinalPoints  int                `yaml:"final_points"`
	FinalDelay   time.Duration      `yaml:"final_delay"`
	FinalGrace   time.Duration      `yaml:"final_grace"`
}

// GridPreset holds the grid rules shared by every board.
type GridPreset struct {
	Duration        time.Duration      `yaml:"duration"`
	TickInterval    time.Duration      `yaml:"tick_interval"`
	FirstSpawnDelay time.Duration      `yaml:"first_spawn_delay"`
	CorrectPoints   int                `yaml:"correct_points"`
	IncorrectPoints int                `yaml:"incorrect_points"`
	Boards          []string           `yaml:"boards"`
	Difficulties    []round.Difficulty `yaml:"difficulties"`
}

// Presets is the game catalogue.
type Presets struct {
	Duel DuelPreset `yaml:"duel"`
	Grid GridPreset `yaml:"grid"`
}

// PresetInfo describes one selectable preset.
type PresetInfo struct {
	Name       string     `json:"name"`
	Mode       round.Mode `json:"mode"`
	Board      string     `json:"board,omitempty"`
	Difficulty string     `json:"difficulty,omitempty"`
}

// DefaultPresets mirrors the built-in round defaults.
func DefaultPresets() Presets {
	duel := round.DefaultDuelConfig()
	grid := round.DefaultGridConfig(round.BoardShape{Rows: 3, Cols: 3}, round.DefaultDifficulties[0])

	difficulties := make([]round.Difficulty, len(round.DefaultDifficulties))
	copy(difficulties, round.DefaultDifficulties)

	return Presets{
		Duel: DuelPreset{
			Duration:     duel.Duration,
			TickInterval: duel.TickInterval,
			Beeps:        duel.Beeps,
			RoundPoints:  duel.RoundPoints,
			EarlyPenalty: duel.EarlyPenalty,
			FinalPoints:  duel.FinalPoints,
			FinalDelay:   duel.FinalDelay,
			FinalGrace:   duel.FinalGrace,
		},
		Grid: GridPreset{
			Duration:        grid.Duration,
			TickInterval:    grid.TickInterval,
			FirstSpawnDelay: grid.FirstSpawnDelay,
			CorrectPoints:   grid.CorrectPoints,
			IncorrectPoints: grid.IncorrectPoints,
			Boards:          []string{"3x3", "4x4", "5x5"},
			Difficulties:    difficulties,
		},
	}
}

// LoadPresets reads a YAML preset file. A missing file yields the defaults;
// keys absent from the file keep their default values.
func LoadPresets(path string) (Presets, error) {
	presets := DefaultPresets()
	if path == "" {
		return presets, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Msg("preset file not found, using defaults")
		return presets, nil
	}
	if err != nil {
		return Presets{}, fmt.Errorf("failed to read preset file: %w", err)
	}
	if err := yaml.Unmarshal(data, &presets); err != nil {
		return Presets{}, fmt.Errorf("failed to parse preset file: %w", err)
	}
	if err := presets.validate(); err != nil {
		return Presets{}, err
	}

	log.Info().
		Str("path", path).
		Int("boards", len(presets.Grid.Boards)).
		Int("difficulties", len(presets.Grid.Difficulties)).
		Msg("loaded presets")
	return presets, nil
}

func (p Presets) validate() error {
	if err := p.DuelConfig().Validate(); err != nil {
		return fmt.Errorf("duel preset: %w", err)
	}
	for _, b := range p.Grid.Boards {
		for _, d := range p.Grid.Difficulties {
			cfg, err := p.GridConfig(b, d.Name)
			if err != nil {
				return fmt.Errorf("grid preset %s/%s: %w", b, d.Name, err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("grid preset %s/%s: %w", b, d.Name, err)
			}
		}
	}
	return nil
}

// DuelConfig builds a duel session config.
func (p Presets) DuelConfig() round.SessionConfig {
	d := p.Duel
	return round.SessionConfig{
		Mode:         round.ModeDuel,
		Duration:     d.Duration,
		TickInterval: d.TickInterval,
		Beeps:        d.Beeps,
		RoundPoints:  d.RoundPoints,
		EarlyPenalty: d.EarlyPenalty,
		FinalPoints:  d.FinalPoints,
		FinalDelay:   d.FinalDelay,
		FinalGrace:   d.FinalGrace,
	}
}

// GridConfig builds a grid session config for a configured board and difficulty.
func (p Presets) GridConfig(board, difficulty string) (round.SessionConfig, error) {
	if !p.hasBoard(board) {
		return round.SessionConfig{}, fmt.Errorf("%w: board %q", ErrUnknownPreset, board)
	}
	shape, err := round.ParseBoardShape(board)
	if err != nil {
		return round.SessionConfig{}, err
	}
	diff, ok := p.difficulty(difficulty)
	if !ok {
		return round.SessionConfig{}, fmt.Errorf("%w: difficulty %q", ErrUnknownPreset, difficulty)
	}

	cfg := round.DefaultGridConfig(shape, diff)
	cfg.Duration = p.Grid.Duration
	cfg.TickInterval = p.Grid.TickInterval
	cfg.FirstSpawnDelay = p.Grid.FirstSpawnDelay
	cfg.CorrectPoints = p.Grid.CorrectPoints
	cfg.IncorrectPoints = p.Grid.IncorrectPoints
	return cfg, nil
}

// Resolve builds a session config from a preset name: "duel" or "<board>_<difficulty>".
func (p Presets) Resolve(name string) (round.SessionConfig, error) {
	if name == string(round.ModeDuel) {
		return p.DuelConfig(), nil
	}
	board, difficulty, ok := strings.Cut(name, "_")
	if !ok {
		return round.SessionConfig{}, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return p.GridConfig(board, difficulty)
}

// List returns every selectable preset, duel first then boards by difficulty.
func (p Presets) List() []PresetInfo {
	out := []PresetInfo{{Name: string(round.ModeDuel), Mode: round.ModeDuel}}
	boards := append([]string(nil), p.Grid.Boards...)
	sort.Strings(boards)
	for _, b := range boards {
		for _, d := range p.Grid.Difficulties {
			out = append(out, PresetInfo{
				Name:       b + "_" + d.Name,
				Mode:       round.ModeGrid,
				Board:      b,
				Difficulty: d.Name,
			})
		}
	}
	return out
}

func (p Presets) hasBoard(board string) bool {
	for _, b := range p.Grid.Boards {
		if b == board {
			return true
		}
	}
	return false
}

func (p Presets) difficulty(name string) (round.Difficulty, bool) {
	for _, d := range p.Grid.Difficulties {
		if d.Name == name {
			return d, true
		}
	}
	return round.Difficulty{}, false
}
