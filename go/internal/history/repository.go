// Package history records finished sessions.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sqlc-dev/pqtype"

	"github.com/mcdev12/reflex/go/internal/round"
	"github.com/mcdev12/reflex/go/internal/sqlutil"
)

const (
	DefaultLimit = 20
	MaxLimit     = 200

	recordTimeout = 2 * time.Second
)

// Entry is one finished session.
type Entry struct {
	SessionID  uuid.UUID          `json:"session_id"`
	TableID    uuid.UUID          `json:"table_id"`
	Mode       round.Mode         `json:"mode"`
	BoardKey   string             `json:"board_key,omitempty"`
	Score      round.Score        `json:"score"`
	Winner     round.Winner       `json:"winner,omitempty"`
	BestScore  *int               `json:"best_score,omitempty"`
	NewBest    bool               `json:"new_best"`
	Reason     round.FinishReason `json:"reason"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Detail     json.RawMessage    `json:"detail,omitempty"`
}

// Repository stores session history through database/sql. driver is
// "sqlite" or "postgres".
type Repository struct {
	db     *sql.DB
	driver string
}

func NewRepository(db *sql.DB, driver string) *Repository {
	return &Repository{db: db, driver: driver}
}

func (r *Repository) q(query string) string {
	return sqlutil.Rebind(r.driver, query)
}

// Migrate creates the history table.
func (r *Repository) Migrate(ctx context.Context) error {
	timeType, jsonType := "DATETIME", "BLOB"
	if r.driver == "postgres" {
		timeType, jsonType = "TIMESTAMPTZ", "JSONB"
	}
	migrations := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS session_history (
			id TEXT PRIMARY KEY,
			table_id TEXT NOT NULL,
			mode TEXT NOT NULL,
			board_key TEXT,
			points INTEGER NOT NULL,
			blue INTEGER NOT NULL,
			red INTEGER NOT NULL,
			winner TEXT,
			best_score INTEGER,
			new_best BOOLEAN NOT NULL,
			reason TEXT NOT NULL,
			started_at %[1]s NOT NULL,
			finished_at %[1]s NOT NULL,
			detail %[2]s
		)`, timeType, jsonType),
		`CREATE INDEX IF NOT EXISTS idx_session_history_finished ON session_history(finished_at)`,
	}
	for _, m := range migrations {
		if _, err := r.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("history migration failed: %w", err)
		}
	}
	return nil
}

// Record stores a finished session.
func (r *Repository) Record(ctx context.Context, tableID uuid.UUID, res round.Result) error {
	detail, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to marshal session detail: %w", err)
	}

	boardKey := ""
	if res.Mode == round.ModeGrid {
		boardKey = fmt.Sprintf("%s_%s", res.Board, res.Difficulty)
	}

	_, err = r.db.ExecContext(ctx, r.q(`
		INSERT INTO session_history (
			id, table_id, mode, board_key, points, blue, red, winner,
			best_score, new_best, reason, started_at, finished_at, detail
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		res.SessionID.String(),
		tableID.String(),
		string(res.Mode),
		sqlutil.ToNullString(boardKey),
		res.Score.Points,
		res.Score.Blue,
		res.Score.Red,
		sqlutil.ToNullString(string(res.Winner)),
		sqlutil.ToNullInt(res.BestScore),
		res.NewBest,
		string(res.Reason),
		res.StartedAt.UTC(),
		res.FinishedAt.UTC(),
		pqtype.NullRawMessage{RawMessage: detail, Valid: len(detail) > 0},
	)
	if err != nil {
		return fmt.Errorf("failed to record session %s: %w", res.SessionID, err)
	}
	return nil
}

// ListRecent returns the most recently finished sessions, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	rows, err := r.db.QueryContext(ctx, r.q(`
		SELECT id, table_id, mode, board_key, points, blue, red, winner,
			best_score, new_best, reason, started_at, finished_at, detail
		FROM session_history
		ORDER BY finished_at DESC, id
		LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                 Entry
			id, tableID, mode string
			reason            string
			boardKey, winner  sql.NullString
			best              sql.NullInt64
			detail            pqtype.NullRawMessage
		)
		if err := rows.Scan(
			&id, &tableID, &mode, &boardKey,
			&e.Score.Points, &e.Score.Blue, &e.Score.Red, &winner,
			&best, &e.NewBest, &reason, &e.StartedAt, &e.FinishedAt, &detail,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if e.SessionID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid session id %q: %w", id, err)
		}
		if e.TableID, err = uuid.Parse(tableID); err != nil {
			return nil, fmt.Errorf("invalid table id %q: %w", tableID, err)
		}
		e.Mode = round.Mode(mode)
		e.Reason = round.FinishReason(reason)
		e.BoardKey = sqlutil.FromNullString(boardKey, "")
		e.Winner = round.Winner(sqlutil.FromNullString(winner, ""))
		e.BestScore = sqlutil.FromNullInt(best)
		if detail.Valid {
			e.Detail = detail.RawMessage
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history: %w", err)
	}
	return out, nil
}

// Renderer returns a round.Renderer that records every finished session of a table.
func (r *Repository) Renderer(tableID uuid.UUID) round.Renderer {
	return &recorder{repo: r, tableID: tableID}
}

type recorder struct {
	round.NopRenderer
	repo    *Repository
	tableID uuid.UUID
}

func (rec *recorder) SessionFinished(res round.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := rec.repo.Record(ctx, rec.tableID, res); err != nil {
		log.Error().Err(err).Str("table_id", rec.tableID.String()).Msg("failed to record session history")
	}
}
