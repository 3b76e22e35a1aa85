// Package dashboard provides the headline numbers of the sync.
package dashboard

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/config"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/report"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/web/handler"
)

// Path is the path of the dashboard stats endpoint.
const Path = handler.APIPath + "dashboard/stats"

// Service is the dashboard handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Handler is the dashboard handler.
var Handler = Service{}

// Init initializes the dashboard handler.
func (s *Service) Init(app *fiber.App, cfg *config.Config, deps *handler.Deps) {
	if app == nil || cfg == nil || !deps.Valid() {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.deps = deps

	app.Get(Path, s.Get)
}

// Get answers the dashboard numbers.
func (s *Service) Get(c fiber.Ctx) error {
	d, err := report.BuildDashboard(
		c.Context(), s.deps.Now(), s.deps.Calendar, s.deps.Namer, s.deps.Users, s.deps.Store,
	)
	if err != nil {
		log.Error().Err(err).Msg("can't build dashboard stats")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch dashboard stats"})
	}

	return c.JSON(d)
}
