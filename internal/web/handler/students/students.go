// Package students lists the directory users that are not excluded.
package students

import (
	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog/log"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/config"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/report"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/web/handler"
)

// Path is the path of the students endpoint.
const Path = handler.APIPath + "students"

// Service is the students handler service.
type Service struct {
	handler.Service
	deps *handler.Deps
}

// Handler is the students handler.
var Handler = Service{}

// Init registers the students route.
func (s *Service) Init(app *fiber.App, cfg *config.Config, deps *handler.Deps) {
	if app == nil || cfg == nil || !deps.Valid() {
		log.Fatal().Msg(handler.ErrNilACDFatalLogMsg)
		return
	}

	s.deps = deps

	app.Get(Path, s.Get)
}

// Get answers the students as JSON array.
func (s *Service) Get(c fiber.Ctx) error {
	students, err := report.Students(c.Context(), s.deps.Users, s.deps.Store)
	if err != nil {
		log.Error().Err(err).Msg("can't fetch students")

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch students"})
	}

	return c.JSON(students)
}
