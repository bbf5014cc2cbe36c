package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/mcdev12/reflex/go/internal/config"
	"github.com/mcdev12/reflex/go/internal/dbconfig"
	"github.com/mcdev12/reflex/go/internal/round"
)

func TestSetupStoresSQLite(t *testing.T) {
	ctx := context.Background()
	stores, err := setupStores(ctx, dbconfig.Config{
		Driver: dbconfig.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "reflex.db"),
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer stores.Close()

	if stores.History == nil {
		t.Fatal("expected history on sqlite")
	}
	key := round.BoardKey{Board: round.BoardShape{Rows: 4, Cols: 4}, Difficulty: "hard"}
	if err := stores.Best.SetBest(ctx, key, 12); err != nil {
		t.Fatalf("set best: %v", err)
	}
	if got, ok, err := stores.Best.GetBest(ctx, key); err != nil || !ok || got != 12 {
		t.Fatalf("expected 12, got %d ok=%v err=%v", got, ok, err)
	}
	if _, err := stores.History.ListRecent(ctx, 5); err != nil {
		t.Fatalf("list history: %v", err)
	}
}

func TestSetupStoresMemory(t *testing.T) {
	stores, err := setupStores(context.Background(), dbconfig.Config{Driver: dbconfig.DriverMemory})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if stores.Best == nil || stores.History != nil {
		t.Fatalf("unexpected stores: %+v", stores)
	}
}

func TestServerServesHealthAndPresets(t *testing.T) {
	stores, err := setupStores(context.Background(), dbconfig.Config{Driver: dbconfig.DriverMemory})
	if err != nil {
		t.Fatalf("setup stores: %v", err)
	}

	cfg := config.Config{Port: "0", RelayBuffer: 8, ShutdownTimeout: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	services, err := setupServices(ctx, cfg, config.DefaultPresets(), stores)
	if err != nil {
		t.Fatalf("setup services: %v", err)
	}
	services.Start(ctx)
	defer func() {
		cancel()
		services.Wait(context.Background())
		services.Close()
	}()

	srv := httptest.NewServer(setupServer(cfg, services).Handler)
	defer srv.Close()

	for _, path := range []string{"/health", "/api/v1/presets", "/api/v1/tables"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, resp.StatusCode)
		}
	}

	// Memory storage records no history.
	resp, err := http.Get(srv.URL + "/api/v1/history")
	if err != nil {
		t.Fatalf("GET history: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 without history, got %d", resp.StatusCode)
	}
}
