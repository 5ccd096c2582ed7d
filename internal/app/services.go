package app

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/dokzlo13/huectl/internal/bridge"
	"github.com/dokzlo13/huectl/internal/config"
	"github.com/dokzlo13/huectl/internal/mqtt"
	"github.com/dokzlo13/huectl/internal/store"
)

// Services is a container for all daemon services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	Store *store.Store
	Relay *mqtt.Relay

	// High-level services
	MQTT    *MQTTService
	Journal *JournalService
	Health  *HealthService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config, session bridge.Session) (*Services, error) {
	s := &Services{cfg: cfg}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	s.Store = st

	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), int(cfg.RateLimitRPS))
	s.Relay = mqtt.NewRelay(session, st, limiter)

	s.MQTT = NewMQTTService(cfg, s.Relay)
	s.Journal = NewJournalService(cfg, st)
	s.Health = NewHealthService(cfg)

	return s, nil
}

// Start starts all services in the correct order.
// The onFatalError callback is called when a service fails underneath us.
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	if err := s.MQTT.Start(ctx); err != nil {
		return err
	}

	s.Journal.Start(ctx)
	s.Health.Start(ctx, onFatalError)

	return nil
}

// Stop gracefully stops all services.
func (s *Services) Stop() error {
	s.Close()
	return nil
}

// Close releases all resources.
func (s *Services) Close() {
	if s.MQTT != nil {
		s.MQTT.Stop()
	}
	if s.Store != nil {
		s.Store.Close()
	}
}
