package bestscore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/reflex/go/internal/round"
	"github.com/mcdev12/reflex/go/internal/sqlutil"
)

// SQLStore keeps best scores in SQLite.
type SQLStore struct {
	db    *sql.DB
	clock clockwork.Clock
}

func NewSQLStore(db *sql.DB, clock clockwork.Clock) *SQLStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SQLStore{db: db, clock: clock}
}

// Migrate creates the best score table.
func (s *SQLStore) Migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS best_scores (
			board_key TEXT PRIMARY KEY,
			board TEXT NOT NULL,
			difficulty TEXT NOT NULL,
			score INTEGER NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	}
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("best score migration failed: %w", err)
		}
	}
	return nil
}

// queries binds best score statements to a transaction.
type queries struct {
	tx *sql.Tx
}

func (q queries) get(ctx context.Context, key string) (int, bool, error) {
	var score int
	err := q.tx.QueryRowContext(ctx, `SELECT score FROM best_scores WHERE board_key = ?`, key).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return score, true, nil
}

func (q queries) put(ctx context.Context, key round.BoardKey, score int, at time.Time) error {
	_, err := q.tx.ExecContext(ctx, `
		INSERT INTO best_scores (board_key, board, difficulty, score, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(board_key) DO UPDATE SET score = excluded.score, updated_at = excluded.updated_at`,
		key.String(), key.Board.String(), key.Difficulty, score, at.UTC())
	return err
}

func (s *SQLStore) GetBest(ctx context.Context, key round.BoardKey) (int, bool, error) {
	var score int
	err := s.db.QueryRowContext(ctx, `SELECT score FROM best_scores WHERE board_key = ?`, key.String()).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get best score %s: %w", key, err)
	}
	return score, true, nil
}

func (s *SQLStore) SetBest(ctx context.Context, key round.BoardKey, value int) error {
	written := false
	err := sqlutil.Run(ctx, s.db, func(tx *sql.Tx) queries { return queries{tx: tx} }, func(q queries) error {
		cur, ok, err := q.get(ctx, key.String())
		if err != nil {
			return err
		}
		if ok && value <= cur {
			return nil
		}
		written = true
		return q.put(ctx, key, value, s.clock.Now())
	})
	if err != nil {
		return fmt.Errorf("failed to set best score %s: %w", key, err)
	}
	if written {
		log.Debug().Str("key", key.String()).Int("score", value).Msg("best score stored")
	}
	return nil
}
