package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/config"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller/syncstate"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/models"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/reconciler"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/report"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/scheduler"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/timetable"
)

// Service is the interface for a web handler service.
type Service interface {
	Init(app *fiber.App, cfg *config.Config, deps *Deps)
}

// Syncer is the reconciler as seen by the handlers.
type Syncer interface {
	HealthStatus(ctx context.Context) (reconciler.Health, error)
	RunFullCycleNow(ctx context.Context) error
}

// Store is the read side of the schedule store.
type Store interface {
	report.Store
	RecentSyncLogs(ctx context.Context, limit int) ([]models.SyncLog, error)
	SyncState(ctx context.Context) (syncstate.State, error)
}

// NextRunner reports the next scheduled cycles.
type NextRunner interface {
	Next() scheduler.NextRuns
}

// Deps are the collaborators shared by all handlers.
type Deps struct {
	Sync     Syncer
	Store    Store
	Users    report.Users
	Calendar *timetable.Calculator
	Namer    timetable.SlotNamer
	// Schedule is nil when the scheduler is not running, e.g. in tests.
	Schedule NextRunner
	Now      func() time.Time
	// Base outlives single requests. Cycles started over HTTP run under it.
	Base context.Context //nolint:containedctx
}

// Valid reports whether every required collaborator is set.
func (d *Deps) Valid() bool {
	return d != nil && d.Sync != nil && d.Store != nil && d.Users != nil &&
		d.Calendar != nil && d.Namer != nil && d.Now != nil && d.Base != nil
}
