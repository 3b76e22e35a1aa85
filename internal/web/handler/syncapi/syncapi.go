// Package syncapi exposes the sync status, the audit log and the manual full cycle trigger.
package syncapi

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/config"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller/syncstate"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/reconciler"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/scheduler"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/web/handler"
)

const (
	// Path is the prefix of the sync endpoints.
	Path = handler.APIPath + "sync"

	// StatusPath answers the current health.
	StatusPath = Path + "/status"

	// FullPath starts a full cycle.
	FullPath = Path + "/full"

	// LogsPath lists the newest audit entries.
	LogsPath = Path + "/logs"

	// DefaultLogLimit is used when no limit is requested.
	DefaultLogLimit = 50

	// MaxLogLimit caps the limit query parameter.
	MaxLogLimit = 500
)

// Status is the body of StatusPath.
type Status struct {
	reconciler.Health
	LastIncremental *syncstate.Cycle    `json:"lastIncremental,omitempty"`
	LastFull        *syncstate.Cycle    `json:"lastFull,omitempty"`
	Next            *scheduler.NextRuns `json:"next,omitempty"`
}

// Trigger is the body of FullPath.
type Trigger struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Service is the sync handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Handler is the sync handler.
var Handler = Service{}

// Init registers the sync routes.
func (s *Service) Init(app *fiber.App, cfg *config.Config, deps *handler.Deps) {
	if app == nil || cfg == nil || !deps.Valid() {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.deps = deps

	app.Get(StatusPath, s.Status)
	app.Post(FullPath, s.Full)
	app.Get(LogsPath, s.Logs)
}

// Status answers the health derived from the newest audit entry.
func (s *Service) Status(c fiber.Ctx) error {
	h, err := s.deps.Sync.HealthStatus(c.Context())
	if err != nil {
		log.Error().Err(err).Msg("can't fetch sync status")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch sync status"})
	}

	out := Status{Health: h}

	if st, err := s.deps.Store.SyncState(c.Context()); err != nil {
		log.Warn().Err(err).Msg("can't load sync state")
	} else {
		out.LastIncremental = st.LastIncremental
		out.LastFull = st.LastFull
	}

	if s.deps.Schedule != nil {
		next := s.deps.Schedule.Next()
		out.Next = &next
	}

	return c.JSON(out)
}

// Full starts a full cycle in the background. It answers 202 when the cycle
// started and 409 when another cycle is still running.
func (s *Service) Full(c fiber.Ctx) error {
	err := s.deps.Sync.RunFullCycleNow(s.deps.Base)

	switch {
	case errors.Is(err, reconciler.ErrCycleInProgress):
		return c.Status(fiber.StatusConflict).JSON(Trigger{Message: "Sync already in progress"})
	case err != nil:
		log.Error().Err(err).Msg("can't start full sync")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to start full sync"})
	}

	log.Info().Str("ip", c.IP()).Msg("manual full sync started")

	return c.Status(fiber.StatusAccepted).JSON(Trigger{Success: true, Message: "Full sync started"})
}

// Logs lists the newest audit entries, newest first.
func (s *Service) Logs(c fiber.Ctx) error {
	limit := DefaultLogLimit

	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit must be a positive number"})
		}

		limit = min(n, MaxLogLimit)
	}

	logs, err := s.deps.Store.RecentSyncLogs(c.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("can't fetch sync logs")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch sync logs"})
	}

	return c.JSON(logs)
}
