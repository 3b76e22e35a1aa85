// Package daemon wires the sync service together and runs it until a signal arrives.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/config"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/logger"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/scheduler"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/web"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/web/handler"
)

// stopTimeout bounds how long shutdown waits for a running cycle and open requests.
const stopTimeout = 30 * time.Second

// Daemon represents the main application daemon.
type Daemon struct {
	cfg        *config.Config
	core       *Core
	scheduler  *scheduler.Scheduler
	webService *web.Service
	cancel     context.CancelFunc
	ctx        context.Context //nolint:containedctx
}

// New creates a new Daemon instance with the provided configuration.
func New(cfg *config.Config) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("config is nil") //nolint:err113
	}

	ctx, cancel := context.WithCancel(context.Background())

	core, err := Build(ctx, cfg)
	if err != nil {
		cancel()
		return nil, err
	}

	sched, err := scheduler.New(core.Reconciler, cfg.Sync, core.Calendar.Location(), logger.Component("scheduler"))
	if err != nil {
		cancel()
		return nil, err
	}

	d := &Daemon{
		cfg:       cfg,
		core:      core,
		scheduler: sched,
		cancel:    cancel,
		ctx:       ctx,
	}

	if cfg.Webserver.Enabled {
		d.webService = web.New(cfg, &handler.Deps{
			Sync:     core.Reconciler,
			Store:    core.Store,
			Users:    core.Directory,
			Calendar: core.Calendar,
			Namer:    core.Namer,
			Schedule: sched,
			Now:      time.Now,
			Base:     ctx,
		})
	}

	return d, nil
}

// Start runs the scheduler and the web service and blocks until SIGINT or SIGTERM.
func (d *Daemon) Start() error {
	sigCtx, stop := signal.NotifyContext(d.ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d.scheduler.Start()

	webErr := make(chan error, 1)

	if d.webService != nil {
		go func() {
			webErr <- d.webService.Start(fmt.Sprintf(":%d", d.cfg.Webserver.Port))
		}()
	}

	var runErr error

	select {
	case <-sigCtx.Done():
		log.Info().Msg("shutdown requested")
	case runErr = <-webErr:
		log.Error().Err(runErr).Msg("http server failed")
	}

	return errors.Join(runErr, d.shutdown())
}

// shutdown drains the web service, waits for a running cycle and closes the database.
func (d *Daemon) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	var errs []error

	if d.webService != nil {
		d.webService.Drain(ctx)
	}

	if err := d.scheduler.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
	}

	// cancels manual cycles started over http
	d.cancel()
	d.core.Reconciler.Wait()

	if d.webService != nil {
		if err := d.webService.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop http server: %w", err))
		}
	}

	if err := d.core.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}

	log.Info().Msg("good bye")

	return errors.Join(errs...)
}
