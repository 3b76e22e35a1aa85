// Package web serves the status API, the manual trigger and the metrics endpoint.
package web

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/config"
	fiberlog "github.com/wandeltn/hausmeistersteuerung-user-sync/internal/logger/adapter/fiber"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/web/handler"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/web/handler/dashboard"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/web/handler/students"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/web/handler/syncapi"
)

const (
	// HealthPath is the load balancer check alive endpoint.
	HealthPath = "/health"

	// MetricsPath serves the prometheus registry.
	MetricsPath = "/metrics"
)

// Service represents the web service.
type Service struct {
	App   *fiber.App
	cfg   *config.Config
	alive atomic.Bool
}

// Start serves on addr until Shutdown is called.
func (s *Service) Start(addr string) error {
	log.Info().Str("addr", addr).Msg("starting http server")

	err := s.App.Listen(addr, fiber.ListenConfig{DisableStartupMessage: true})
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// Drain lets the health check fail for ShutDownTime seconds,
// so load balancers remove this instance before the server stops.
func (s *Service) Drain(ctx context.Context) {
	if s.cfg.DevMode || s.cfg.Webserver.ShutDownTime <= 0 {
		return
	}

	log.Info().Msgf(
		"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
		s.cfg.Webserver.ShutDownTime,
	)

	s.alive.Store(false)

	select {
	case <-time.After(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second):
	case <-ctx.Done():
	}
}

// Shutdown stops the http server.
func (s *Service) Shutdown(ctx context.Context) error {
	log.Info().Msg("stopping http server ...")

	if err := s.App.ShutdownWithContext(ctx); err != nil {
		return err
	}

	log.Info().Msg("http server was stopped")

	return nil
}

// Health answers 200 while alive and 503 while draining.
func (s *Service) Health(c fiber.Ctx) error {
	if !s.alive.Load() {
		return c.Status(fiber.StatusServiceUnavailable).SendString("shutting down")
	}

	return c.SendString("OK")
}

// New creates the web service.
func New(cfg *config.Config, deps *handler.Deps) *Service {
	if cfg == nil {
		panic("config cannot be nil")
	}

	if !deps.Valid() {
		panic("deps are incomplete")
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        cfg.Title,
			CaseSensitive:  true,
			Immutable:      true,
		},
	)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New())
	}

	app.Use(fiberlog.New(fiberlog.Config{
		Config:        cfg.Log,
		CheckAliveURI: HealthPath,
	}))

	service := &Service{
		App: app,
		cfg: cfg,
	}
	service.alive.Store(true)

	app.Get(HealthPath, service.Health)
	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	syncapi.Handler.Init(app, cfg, deps)
	students.Handler.Init(app, cfg, deps)
	dashboard.Handler.Init(app, cfg, deps)

	return service
}
