package main

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/mcdev12/reflex/go/internal/bestscore"
	"github.com/mcdev12/reflex/go/internal/dbconfig"
	"github.com/mcdev12/reflex/go/internal/history"
	"github.com/mcdev12/reflex/go/internal/round"
)

// Stores holds the persistence layer selected by DB_DRIVER.
type Stores struct {
	Best    round.BestScoreStore
	History *history.Repository

	closers []func()
}

func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func setupStores(ctx context.Context, cfg dbconfig.Config) (*Stores, error) {
	switch cfg.Driver {
	case dbconfig.DriverMemory:
		log.Warn().Msg("using in-memory best scores, history disabled")
		return &Stores{Best: bestscore.NewMemoryStore()}, nil
	case dbconfig.DriverSQLite:
		return setupSQLite(ctx, cfg)
	case dbconfig.DriverPostgres:
		return setupPostgres(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

func setupSQLite(ctx context.Context, cfg dbconfig.Config) (*Stores, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	best := bestscore.NewSQLStore(db, nil)
	hist := history.NewRepository(db, dbconfig.DriverSQLite)
	if err := migrate(ctx, best, hist); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("path", cfg.Path).Msg("connected to sqlite")
	return &Stores{
		Best:    best,
		History: hist,
		closers: []func(){func() { db.Close() }},
	}, nil
}

func setupPostgres(ctx context.Context, cfg dbconfig.Config) (*Stores, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	best, err := bestscore.NewPostgresStore(ctx, cfg.DSN())
	if err != nil {
		db.Close()
		return nil, err
	}
	hist := history.NewRepository(db, dbconfig.DriverPostgres)
	if err := migrate(ctx, best, hist); err != nil {
		best.Close()
		db.Close()
		return nil, err
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("connected to postgres")
	return &Stores{
		Best:    best,
		History: hist,
		closers: []func(){func() { db.Close() }, best.Close},
	}, nil
}

type migrator interface {
	Migrate(ctx context.Context) error
}

func migrate(ctx context.Context, ms ...migrator) error {
	for _, m := range ms {
		if err := m.Migrate(ctx); err != nil {
			return err
		}
	}
	return nil
}
