package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/reflex/go/internal/round"
)

// Routes builds the HTTP surface: websocket join, REST state and health.
func (s *Service) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/ws/table", s.handleTableConnection)
	r.Get("/ws/stats", s.handleConnectionStats)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/tables", s.handleListTables)
		r.Post("/tables", s.handleCreateTable)
		r.Get("/tables/{tableID}/state", s.handleTableState)
		r.Get("/best/{board}/{difficulty}", s.handleBestScore)
		r.Get("/presets", s.handlePresets)
		r.Get("/history", s.handleHistory)
	})

	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		log.Error().Err(err).Msg("failed to write health check response")
	}
}

// handleTableConnection joins a table's websocket room, creating the table when absent
func (s *Service) handleTableConnection(w http.ResponseWriter, r *http.Request) {
	tableIDStr := r.URL.Query().Get("table_id")
	if tableIDStr == "" {
		http.Error(w, "table_id is required", http.StatusBadRequest)
		return
	}

	tableID, err := uuid.Parse(tableIDStr)
	if err != nil {
		http.Error(w, "invalid table_id format", http.StatusBadRequest)
		return
	}

	playerID := r.URL.Query().Get("player_id")
	if playerID == "" {
		playerID = "anonymous"
	}

	if _, err := s.EnsureTable(tableID); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	// The upgrader writes its own error response on failure.
	if _, err := s.cm.UpgradeConnection(w, r, playerID, tableID); err != nil {
		log.Error().
			Err(err).
			Str("table_id", tableID.String()).
			Str("player_id", playerID).
			Msg("failed to upgrade WebSocket connection")
	}
}

func (s *Service) handleConnectionStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cm.Stats())
}

func (s *Service) handleListTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tables": s.TableIDs()})
}

func (s *Service) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	t, err := s.EnsureTable(uuid.New())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"table_id": t.ID})
}

func (s *Service) handleTableState(w http.ResponseWriter, r *http.Request) {
	tableID, err := uuid.Parse(chi.URLParam(r, "tableID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid table id"))
		return
	}
	t, err := s.Table(tableID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	snap, err := t.Runner.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

type bestScoreResponse struct {
	Key        string `json:"key"`
	Board      string `json:"board"`
	Difficulty string `json:"difficulty"`
	Best       *int   `json:"best"`
}

func (s *Service) handleBestScore(w http.ResponseWriter, r *http.Request) {
	if s.deps.Best == nil {
		writeError(w, http.StatusNotFound, errors.New("best scores are not stored"))
		return
	}
	board, err := round.ParseBoardShape(chi.URLParam(r, "board"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	key := round.BoardKey{Board: board, Difficulty: chi.URLParam(r, "difficulty")}

	value, ok, err := s.deps.Best.GetBest(r.Context(), key)
	if err != nil {
		log.Error().Err(err).Str("key", key.String()).Msg("failed to read best score")
		writeError(w, http.StatusInternalServerError, errors.New("failed to read best score"))
		return
	}

	resp := bestScoreResponse{Key: key.String(), Board: board.String(), Difficulty: key.Difficulty}
	if ok {
		resp.Best = &value
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Service) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"presets": s.deps.Presets.List()})
}

func (s *Service) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeError(w, http.StatusNotFound, errors.New("history is not recorded"))
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, errors.New("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	entries, err := s.deps.History.ListRecent(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list history")
		writeError(w, http.StatusInternalServerError, errors.New("failed to list history"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": entries})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
