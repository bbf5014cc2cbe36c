package main

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/reflex/go/internal/config"
	"github.com/mcdev12/reflex/go/internal/eventbus"
	"github.com/mcdev12/reflex/go/internal/gateway"
	"github.com/mcdev12/reflex/go/internal/round"
)

type Services struct {
	Gateway   *gateway.Service
	Relay     *eventbus.Relay
	publisher eventbus.Publisher

	wg sync.WaitGroup
}

func setupServices(ctx context.Context, cfg config.Config, presets config.Presets, stores *Stores) (*Services, error) {
	// Wire up dependency injection chain
	// Storage → event relay → gateway tables
	clock := clockwork.NewRealClock()

	var publisher eventbus.Publisher = eventbus.LogPublisher{}
	if cfg.NATSURL != "" {
		jsCfg := eventbus.DefaultJetStreamConfig()
		jsCfg.URL = cfg.NATSURL
		js, err := eventbus.NewJetStreamPublisher(ctx, jsCfg)
		if err != nil {
			return nil, err
		}
		publisher = js
	}
	relay := eventbus.NewRelay(publisher, clock, cfg.RelayBuffer)

	renderers := []gateway.TableRenderers{relay.Renderer}
	deps := gateway.Dependencies{
		Clock:   clock,
		Presets: presets,
		Best:    stores.Best,
	}
	if stores.History != nil {
		deps.History = stores.History
		renderers = append(renderers, func(id uuid.UUID) round.Renderer {
			return stores.History.Renderer(id)
		})
	}
	deps.Renderers = renderers

	gw := gateway.NewService(gateway.Config{ConnectionConfig: gateway.DefaultConnectionConfig()}, deps)

	return &Services{
		Gateway:   gw,
		Relay:     relay,
		publisher: publisher,
	}, nil
}

// Start launches the background workers; they stop when ctx is cancelled.
func (s *Services) Start(ctx context.Context) {
	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.Relay.Start(ctx)
	}()
	go func() {
		defer s.wg.Done()
		if err := s.Gateway.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()
}

// Wait blocks until the workers stop or ctx expires.
func (s *Services) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Msg("timed out waiting for services to stop")
	}
}

func (s *Services) Close() {
	if err := s.publisher.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close event publisher")
	}
}
