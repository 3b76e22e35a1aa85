// Package reconciler converges identity provider group membership with the
// weekly schedule. It owns the last known membership cache and guarantees that
// at most one cycle runs at a time.
package reconciler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller/syncstate"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/models"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/timetable"
)

const defaultConcurrency = 4

// Store is the schedule data a cycle reads and the audit trail it writes.
type Store interface {
	ListAssignments(ctx context.Context) ([]models.ScheduleAssignment, error)
	ClassGroupMemberIDs(ctx context.Context, groupID uint) ([]string, error)
	AppendSyncLog(ctx context.Context, entry models.SyncLog) error
	RecentSyncLogs(ctx context.Context, limit int) ([]models.SyncLog, error)
	RecordCycle(ctx context.Context, c syncstate.Cycle) error
}

// Directory mutates provider group membership. Retries and timeouts are its business.
type Directory interface {
	ListGroupMembers(ctx context.Context, group string) ([]string, error)
	AddMember(ctx context.Context, studentID, group string) error
	RemoveMember(ctx context.Context, studentID, group string) error
}

// Kind of a cycle.
type Kind string

const (
	// Incremental cycles diff the active slots against the cache.
	Incremental Kind = syncstate.KindIncremental
	// Full cycles diff every assignment against the provider.
	Full Kind = syncstate.KindFull
)

// Reconciler runs incremental and full cycles.
type Reconciler struct {
	store       Store
	dir         Directory
	cal         *timetable.Calculator
	namer       timetable.SlotNamer
	cache       *MembershipCache
	now         func() time.Time
	concurrency int
	log         zerolog.Logger

	running    atomic.Bool
	background sync.WaitGroup
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithNow replaces the clock.
func WithNow(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

// WithConcurrency bounds how many groups are mutated in parallel.
func WithConcurrency(n int) Option {
	return func(r *Reconciler) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the logger, the global one tagged with the component is the default.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Reconciler) { r.log = l }
}

// New returns a Reconciler with an empty membership cache.
func New(store Store, dir Directory, cal *timetable.Calculator, namer timetable.SlotNamer, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:       store,
		dir:         dir,
		cal:         cal,
		namer:       namer,
		cache:       NewMembershipCache(),
		now:         time.Now,
		concurrency: defaultConcurrency,
		log:         log.Logger.With().Str("component", "reconciler").Logger(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Cache exposes the membership cache for reporting.
func (r *Reconciler) Cache() *MembershipCache {
	return r.cache
}

// Running reports whether a cycle is in flight.
func (r *Reconciler) Running() bool {
	return r.running.Load()
}

// Incremental runs one incremental cycle unless another cycle is in flight.
func (r *Reconciler) Incremental(ctx context.Context) (Report, error) {
	if !r.acquire(Incremental) {
		return Report{}, ErrCycleInProgress
	}
	defer r.release()

	return r.run(ctx, Incremental)
}

// Full runs one full cycle unless another cycle is in flight.
func (r *Reconciler) Full(ctx context.Context) (Report, error) {
	if !r.acquire(Full) {
		return Report{}, ErrCycleInProgress
	}
	defer r.release()

	return r.run(ctx, Full)
}

// RunFullCycleNow starts a full cycle in the background and returns at once.
// It returns ErrCycleInProgress instead when any cycle is running.
func (r *Reconciler) RunFullCycleNow(ctx context.Context) error {
	if !r.acquire(Full) {
		return ErrCycleInProgress
	}

	r.background.Add(1)

	go func() {
		defer r.background.Done()
		defer r.release()

		_, _ = r.run(ctx, Full)
	}()

	return nil
}

// Wait blocks until background cycles started by RunFullCycleNow are done.
func (r *Reconciler) Wait() {
	r.background.Wait()
}

func (r *Reconciler) acquire(kind Kind) bool {
	if r.running.CompareAndSwap(false, true) {
		return true
	}

	cyclesTotal.WithLabelValues(string(kind), "skipped").Inc()
	r.log.Debug().Str("cycle", string(kind)).Msg("cycle still in flight, skipping trigger")

	return false
}

func (r *Reconciler) release() {
	r.running.Store(false)
}
