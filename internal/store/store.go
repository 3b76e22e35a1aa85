// Package store exposes the schedule database through the operations the
// reconciler and the status API consume.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller/assignment"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller/classgroup"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller/exclusion"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller/synclog"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller/syncstate"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/models"
)

// ErrUnavailable wraps every failure reading or writing the database.
var ErrUnavailable = errors.New("schedule store unavailable")

// Store is backed by gorm.
type Store struct {
	db *gorm.DB
}

// New returns a Store on db.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying connection for administrative commands.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// ListAssignments returns every schedule assignment.
func (s *Store) ListAssignments(ctx context.Context) ([]models.ScheduleAssignment, error) {
	out, err := assignment.GetAll(ctx, s.db)

	return out, unavailable("list assignments", err)
}

// ClassGroupMemberIDs returns the current members of a class group.
func (s *Store) ClassGroupMemberIDs(ctx context.Context, groupID uint) ([]string, error) {
	out, err := classgroup.MemberIDs(ctx, s.db, groupID)

	return out, unavailable(fmt.Sprintf("list members of class group %d", groupID), err)
}

// ListExclusions returns every excluded student.
func (s *Store) ListExclusions(ctx context.Context) ([]models.UserExclusion, error) {
	out, err := exclusion.GetAll(ctx, s.db)

	return out, unavailable("list exclusions", err)
}

// AppendSyncLog appends one audit entry.
func (s *Store) AppendSyncLog(ctx context.Context, entry models.SyncLog) error {
	return unavailable("append sync log", synclog.Append(ctx, s.db, &entry))
}

// RecentSyncLogs returns up to limit entries, most recent first.
func (s *Store) RecentSyncLogs(ctx context.Context, limit int) ([]models.SyncLog, error) {
	out, err := synclog.Recent(ctx, s.db, limit)

	return out, unavailable("read sync log", err)
}

// SyncStats counts audit entries written at or after since.
func (s *Store) SyncStats(ctx context.Context, since time.Time) (synclog.Stats, error) {
	st, err := synclog.CountSince(ctx, s.db, since)

	return st, unavailable("count sync log", err)
}

// RecordCycle persists the summary of a finished cycle.
func (s *Store) RecordCycle(ctx context.Context, c syncstate.Cycle) error {
	return unavailable("record cycle", syncstate.Record(ctx, s.db, c))
}

// SyncState returns the summaries of the last cycles.
func (s *Store) SyncState(ctx context.Context) (syncstate.State, error) {
	st, err := syncstate.Load(ctx, s.db)

	return st, unavailable("load sync state", err)
}

// Counts is a snapshot of the table sizes shown on the dashboard.
type Counts struct {
	Assignments int64 `json:"assignments"`
	ClassGroups int64 `json:"classGroups"`
	Exclusions  int64 `json:"exclusions"`
}

// Counts returns the number of assignments, class groups and exclusions.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var (
		c   Counts
		err error
	)

	if c.Assignments, err = assignment.Count(ctx, s.db); err != nil {
		return c, unavailable("count assignments", err)
	}

	if c.ClassGroups, err = classgroup.Count(ctx, s.db); err != nil {
		return c, unavailable("count class groups", err)
	}

	exclusions, err := exclusion.GetAll(ctx, s.db)
	c.Exclusions = int64(len(exclusions))

	return c, unavailable("count exclusions", err)
}

func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
