// Package scheduler triggers reconciliation cycles on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/config"
	cronlog "github.com/wandeltn/hausmeistersteuerung-user-sync/internal/logger/adapter/cron"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/reconciler"
)

const (
	// DefaultIncrementalSpec runs an incremental cycle every minute.
	DefaultIncrementalSpec = "* * * * *"
	// DefaultFullSpec runs a full cycle at minute 0 of every hour.
	DefaultFullSpec = "0 * * * *"
)

// ErrInvalidSpec is returned for a cron expression the parser rejects.
var ErrInvalidSpec = errors.New("invalid cron spec")

// Runner runs cycles. It must skip a trigger while another cycle is in flight.
type Runner interface {
	Incremental(ctx context.Context) (reconciler.Report, error)
	Full(ctx context.Context) (reconciler.Report, error)
}

// NextRuns holds the next activation of each schedule.
type NextRuns struct {
	Incremental time.Time `json:"incremental"`
	Full        time.Time `json:"full"`
}

// Scheduler owns the cron instance. Create it with New.
type Scheduler struct {
	cron       *cron.Cron
	runner     Runner
	runOnStart bool
	log        zerolog.Logger

	incrementalID cron.EntryID
	fullID        cron.EntryID

	ctx    context.Context //nolint:containedctx
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New registers the incremental and full schedules, evaluated in loc.
// Empty specs fall back to the defaults.
func New(runner Runner, cfg config.Sync, loc *time.Location, log zerolog.Logger) (*Scheduler, error) {
	cl := cronlog.New(log)

	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl)),
		),
		runner:     runner,
		runOnStart: cfg.RunOnStart,
		log:        log,
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())

	var err error

	s.incrementalID, err = s.add(orDefault(cfg.IncrementalSpec, DefaultIncrementalSpec), reconciler.Incremental)
	if err != nil {
		return nil, err
	}

	s.fullID, err = s.add(orDefault(cfg.FullSpec, DefaultFullSpec), reconciler.Full)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func orDefault(spec, def string) string {
	if spec == "" {
		return def
	}

	return spec
}

func (s *Scheduler) add(spec string, kind reconciler.Kind) (cron.EntryID, error) {
	id, err := s.cron.AddFunc(spec, func() { s.trigger(kind) })
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q: %w", ErrInvalidSpec, kind, spec, err)
	}

	return id, nil
}

// trigger runs one cycle. Failures are logged by the reconciler, skips are expected.
func (s *Scheduler) trigger(kind reconciler.Kind) {
	var err error

	if kind == reconciler.Full {
		_, err = s.runner.Full(s.ctx)
	} else {
		_, err = s.runner.Incremental(s.ctx)
	}

	if errors.Is(err, reconciler.ErrCycleInProgress) {
		s.log.Debug().Str("cycle", string(kind)).Msg("trigger skipped, cycle in flight")
	}
}

// Start runs an incremental cycle right away when configured to, then starts the cron.
func (s *Scheduler) Start() {
	if s.runOnStart {
		s.wg.Add(1)

		go func() {
			defer s.wg.Done()
			s.trigger(reconciler.Incremental)
		}()
	}

	s.cron.Start()

	next := s.Next()
	s.log.Info().
		Time("next_incremental", next.Incremental).
		Time("next_full", next.Full).
		Msg("scheduler started")
}

// Stop stops the cron and waits for a running cycle. When ctx expires first the
// running cycle is cancelled and ctx's error returned.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := make(chan struct{})

	go func() {
		<-s.cron.Stop().Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		s.log.Info().Msg("scheduler stopped")

		return nil
	case <-ctx.Done():
		s.cancel()
		<-done

		return ctx.Err()
	}
}

// Next returns the next activation times. They are zero before Start.
func (s *Scheduler) Next() NextRuns {
	return NextRuns{
		Incremental: s.cron.Entry(s.incrementalID).Next,
		Full:        s.cron.Entry(s.fullID).Next,
	}
}
