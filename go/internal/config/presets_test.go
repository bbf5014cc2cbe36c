package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mcdev12/reflex/go/internal/round"
)

func writePresets(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "presets.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadPresetsMissingFileUsesDefaults(t *testing.T) {
	p, err := LoadPresets(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if p.Duel.Beeps.Count != 5 || len(p.Grid.Difficulties) != 3 {
		t.Fatalf("expected defaults, got %+v", p)
	}
}

func TestLoadPresetsShippedFile(t *testing.T) {
	p, err := LoadPresets("../../config/presets.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(p.List()) != 1+3*3 {
		t.Fatalf("expected 10 presets, got %d", len(p.List()))
	}

	cfg, err := p.Resolve("4x4_hard")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Concurrent != 3 || cfg.ActiveDuration != 650*time.Millisecond || cfg.Board.Slots() != 16 {
		t.Fatalf("unexpected grid config: %+v", cfg)
	}
}

func TestLoadPresetsOverridesPartially(t *testing.T) {
	path := writePresets(t, `
duel:
  final_points: 20
  final_delay: 1500ms
grid:
  boards: ["2x2"]
  difficulties:
    - name: frantic
      concurrent: 4
      active_duration: 400ms
      spawn_interval: 300ms
`)
	p, err := LoadPresets(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	duel := p.DuelConfig()
	if duel.FinalPoints != 20 || duel.FinalDelay != 1500*time.Millisecond {
		t.Fatalf("expected overrides, got %+v", duel)
	}
	if duel.RoundPoints != 5 || duel.Beeps.MinGap != 2*time.Second {
		t.Fatalf("expected untouched defaults, got %+v", duel)
	}

	grid, err := p.Resolve("2x2_frantic")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if grid.Concurrent != 4 || grid.BoardKey().String() != "best_2x2_frantic" {
		t.Fatalf("unexpected grid config: %+v", grid)
	}
}

func TestLoadPresetsRejectsInvalid(t *testing.T) {
	path := writePresets(t, `
duel:
  duration: 3s
  beeps:
    margin: 2s
`)
	_, err := LoadPresets(path)
	if !errors.Is(err, round.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadPresetsRejectsMalformedYAML(t *testing.T) {
	path := writePresets(t, "duel: [")
	if _, err := LoadPresets(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestResolveUnknownPreset(t *testing.T) {
	p := DefaultPresets()
	for _, name := range []string{"chess", "9x9_easy", "3x3_impossible"} {
		if _, err := p.Resolve(name); !errors.Is(err, ErrUnknownPreset) {
			t.Fatalf("%s: expected ErrUnknownPreset, got %v", name, err)
		}
	}
}

func TestResolveDuel(t *testing.T) {
	cfg, err := DefaultPresets().Resolve("duel")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Mode != round.ModeDuel || cfg.Validate() != nil {
		t.Fatalf("unexpected duel config: %+v", cfg)
	}
}
