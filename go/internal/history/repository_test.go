package history

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mcdev12/reflex/go/internal/round"
)

var epoch = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func openRepository(t *testing.T) *Repository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db, "sqlite")
	if err := repo.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo
}

func gridResult(points int, finished time.Time) round.Result {
	best := points
	return round.Result{
		SessionID:  uuid.New(),
		Mode:       round.ModeGrid,
		Board:      "3x3",
		Difficulty: "normal",
		Score:      round.Score{Points: points},
		BestScore:  &best,
		NewBest:    true,
		Reason:     round.ReasonTimeUp,
		StartedAt:  finished.Add(-30 * time.Second),
		FinishedAt: finished,
	}
}

func TestRecordAndListRecent(t *testing.T) {
	repo := openRepository(t)
	ctx := context.Background()
	table := uuid.New()

	first := gridResult(10, epoch)
	duel := round.Result{
		SessionID:  uuid.New(),
		Mode:       round.ModeDuel,
		Score:      round.Score{Blue: 10, Red: 5},
		Winner:     round.WinnerBlue,
		Reason:     round.ReasonFinalClaimed,
		StartedAt:  epoch,
		FinishedAt: epoch.Add(time.Minute),
	}
	for _, res := range []round.Result{first, duel} {
		if err := repo.Record(ctx, table, res); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := repo.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}

	if got[0].SessionID != duel.SessionID || got[0].Winner != round.WinnerBlue || got[0].BestScore != nil {
		t.Fatalf("expected duel first, got %+v", got[0])
	}
	if got[0].BoardKey != "" || got[0].TableID != table {
		t.Fatalf("unexpected duel entry: %+v", got[0])
	}
	if got[1].BoardKey != "3x3_normal" || got[1].BestScore == nil || *got[1].BestScore != 10 || !got[1].NewBest {
		t.Fatalf("unexpected grid entry: %+v", got[1])
	}
	if !got[1].FinishedAt.Equal(epoch) {
		t.Fatalf("expected finish %s, got %s", epoch, got[1].FinishedAt)
	}
	if len(got[1].Detail) == 0 {
		t.Fatal("expected detail JSON")
	}
}

func TestListRecentLimit(t *testing.T) {
	repo := openRepository(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := repo.Record(ctx, uuid.New(), gridResult(i, epoch.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	got, err := repo.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].Score.Points != 4 || got[1].Score.Points != 3 {
		t.Fatalf("expected the two newest, got %+v", got)
	}
}

func TestRecorderRendererWritesOnFinish(t *testing.T) {
	repo := openRepository(t)
	table := uuid.New()

	repo.Renderer(table).SessionFinished(gridResult(7, epoch))

	got, err := repo.ListRecent(context.Background(), 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].TableID != table || got[0].Score.Points != 7 {
		t.Fatalf("unexpected history: %+v", got)
	}
}
