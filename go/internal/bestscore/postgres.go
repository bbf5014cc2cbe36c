package bestscore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/reflex/go/internal/round"
)

// PostgresStore keeps best scores in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pool and verifies it with a ping.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS best_scores (
			board_key TEXT PRIMARY KEY,
			board TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			score INTEGER NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("best score migration failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetBest(ctx context.Context, key round.BoardKey) (int, bool, error) {
	var score int
	err := s.pool.QueryRow(ctx, `SELECT score FROM best_scores WHERE board_key = $1`, key.String()).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get best score %s: %w", key, err)
	}
	return score, true, nil
}

// SetBest upserts the score; the WHERE clause keeps concurrent writers monotonic.
func (s *PostgresStore) SetBest(ctx context.Context, key round.BoardKey, value int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO best_scores (board_key, board, difficulty, score, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (board_key) DO UPDATE SET score = EXCLUDED.score, updated_at = EXCLUDED.updated_at
		WHERE best_scores.score < EXCLUDED.score`,
		key.String(), key.Board.String(), key.Difficulty, value)
	if err != nil {
		return fmt.Errorf("failed to set best score %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
