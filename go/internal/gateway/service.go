package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/reflex/go/internal/config"
	"github.com/mcdev12/reflex/go/internal/events"
	"github.com/mcdev12/reflex/go/internal/history"
	"github.com/mcdev12/reflex/go/internal/round"
)

// ErrTableNotFound is returned for unknown table ids.
var ErrTableNotFound = errors.New("table not found")

// TableRenderers builds extra renderers attached to every new table.
type TableRenderers func(tableID uuid.UUID) round.Renderer

// HistoryLister lists finished sessions.
type HistoryLister interface {
	ListRecent(ctx context.Context, limit int) ([]history.Entry, error)
}

// Config holds gateway configuration
type Config struct {
	ConnectionConfig ConnectionConfig
}

// Dependencies are the collaborators shared by all tables.
type Dependencies struct {
	Clock     clockwork.Clock
	Presets   config.Presets
	Best      round.BestScoreStore
	History   HistoryLister
	Renderers []TableRenderers
}

// Service owns the tables and their websocket rooms.
type Service struct {
	cm   *ConnectionManager
	deps Dependencies

	mu     sync.RWMutex
	tables map[uuid.UUID]*Table

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(cfg Config, deps Dependencies) *Service {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		deps:   deps,
		tables: make(map[uuid.UUID]*Table),
		ctx:    ctx,
		cancel: cancel,
	}
	s.cm = NewConnectionManager(cfg.ConnectionConfig, s.handleClientMessage)
	return s
}

// Start runs the connection manager until ctx is cancelled, then stops every table.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("gateway service started")

	s.cm.Start(ctx)

	s.cancel()
	s.wg.Wait()
	log.Info().Msg("gateway service stopped")
	return nil
}

// Table returns an existing table.
func (s *Service) Table(id uuid.UUID) (*Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, id)
	}
	return t, nil
}

// TableIDs lists table ids in a stable order.
func (s *Service) TableIDs() []uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(s.tables))
	for id := range s.tables {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// EnsureTable returns the table with id, creating it and starting its Runner when absent.
func (s *Service) EnsureTable(id uuid.UUID) (*Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tables[id]; ok {
		return t, nil
	}
	if s.ctx.Err() != nil {
		return nil, fmt.Errorf("gateway stopped: %w", s.ctx.Err())
	}

	b := &broadcaster{tableID: id, cm: s.cm, clock: s.deps.Clock}
	renderers := round.MultiRenderer{b}
	for _, build := range s.deps.Renderers {
		if r := build(id); r != nil {
			renderers = append(renderers, r)
		}
	}

	sched := round.NewScheduler(round.Dependencies{
		Clock:    s.deps.Clock,
		Renderer: renderers,
		Audio:    b,
		Best:     s.deps.Best,
	})
	t := &Table{
		ID:        id,
		Runner:    round.NewRunner(sched),
		CreatedAt: s.deps.Clock.Now(),
	}
	s.tables[id] = t

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := t.Runner.Run(s.ctx); err != nil {
			log.Error().Err(err).Str("table_id", id.String()).Msg("table runner failed")
		}
	}()

	log.Info().Str("table_id", id.String()).Msg("table created")
	return t, nil
}

// ResolveStart turns a start message into a session config.
func (s *Service) ResolveStart(msg ClientMessage) (round.SessionConfig, error) {
	if msg.Preset != "" {
		return s.deps.Presets.Resolve(msg.Preset)
	}
	switch msg.Mode {
	case round.ModeDuel:
		return s.deps.Presets.DuelConfig(), nil
	case round.ModeGrid:
		return s.deps.Presets.GridConfig(msg.Board, msg.Difficulty)
	default:
		return round.SessionConfig{}, fmt.Errorf("%w: mode %q", config.ErrUnknownPreset, msg.Mode)
	}
}

// Stats reports connection statistics.
func (s *Service) Stats() ConnectionStats {
	return s.cm.Stats()
}

// ClientMessage is a command sent by a websocket client.
type ClientMessage struct {
	Type       string     `json:"type"`
	Preset     string     `json:"preset,omitempty"`
	Mode       round.Mode `json:"mode,omitempty"`
	Board      string     `json:"board,omitempty"`
	Difficulty string     `json:"difficulty,omitempty"`
	Slot       *int       `json:"slot,omitempty"`
}

const (
	MessageStart = "start"
	MessageTap   = "tap"
	MessageStop  = "stop"
)

func (s *Service) handleClientMessage(c *Connection, raw []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		s.sendError(c, fmt.Errorf("invalid message: %w", err))
		return
	}

	t, err := s.Table(c.TableID)
	if err != nil {
		s.sendError(c, err)
		return
	}

	ctx := s.ctx
	switch msg.Type {
	case MessageStart:
		cfg, err := s.ResolveStart(msg)
		if err != nil {
			s.sendError(c, err)
			return
		}
		id, err := t.Runner.Start(ctx, cfg)
		if err != nil {
			s.sendError(c, err)
			return
		}
		log.Info().
			Str("table_id", t.ID.String()).
			Str("session_id", id.String()).
			Str("player_id", c.PlayerID).
			Str("mode", string(cfg.Mode)).
			Msg("session started by player")
	case MessageTap:
		if msg.Slot == nil {
			s.sendError(c, errors.New("tap requires a slot"))
			return
		}
		if err := t.Runner.Input(ctx, round.SlotID(*msg.Slot)); err != nil {
			s.sendError(c, err)
		}
	case MessageStop:
		if err := t.Runner.Stop(ctx); err != nil {
			s.sendError(c, err)
		}
	default:
		s.sendError(c, fmt.Errorf("unknown message type %q", msg.Type))
	}
}

func (s *Service) sendError(c *Connection, err error) {
	log.Debug().Err(err).Str("connection_id", c.ID).Msg("rejecting client message")
	ev, buildErr := events.New(c.TableID, events.TypeError, events.ErrorPayload{Message: err.Error()}, s.deps.Clock.Now())
	if buildErr != nil {
		log.Error().Err(buildErr).Msg("failed to build error event")
		return
	}
	s.cm.SendToConnection(c, ev)
}
