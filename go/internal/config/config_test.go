package config

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseEnvDefaults(t *testing.T) {
	cfg, err := ParseEnv()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Port != "8080" || cfg.ShutdownTimeout != 10*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Level() != zerolog.InfoLevel {
		t.Fatalf("expected info level, got %s", cfg.Level())
	}
}

func TestParseEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("NATS_URL", "nats://bus:4222")

	cfg, err := ParseEnv()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Port != "9090" || cfg.NATSURL != "nats://bus:4222" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.Level() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %s", cfg.Level())
	}
}

func TestParseEnvWrapsErrors(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "soon")

	_, err := ParseEnv()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestLevelFallsBackToInfo(t *testing.T) {
	if got := (Config{LogLevel: "loud"}).Level(); got != zerolog.InfoLevel {
		t.Fatalf("expected info, got %s", got)
	}
}
