// Package report builds the read-only views shown by the CLI and the status API.
// Exclusions only ever filter these views, the reconciler does not read them.
package report

import (
	"context"
	"time"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller/synclog"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/models"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/directory"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/store"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/timetable"
)

// Users lists directory accounts.
type Users interface {
	ListUsers(ctx context.Context) ([]directory.User, error)
}

// Store is the schedule data the reports read.
type Store interface {
	ListAssignments(ctx context.Context) ([]models.ScheduleAssignment, error)
	ClassGroupMemberIDs(ctx context.Context, groupID uint) ([]string, error)
	ListExclusions(ctx context.Context) ([]models.UserExclusion, error)
	Counts(ctx context.Context) (store.Counts, error)
	SyncStats(ctx context.Context, since time.Time) (synclog.Stats, error)
}

// StatsWindow is how far back the dashboard counts audit entries.
const StatsWindow = 24 * time.Hour

// ActiveSlot is a slot open right now.
type ActiveSlot struct {
	DayOfWeek    int    `json:"dayOfWeek"`
	BlockNumber  int    `json:"blockNumber"`
	Label        string `json:"label"`
	GroupName    string `json:"groupName"`
	StudentCount int    `json:"studentCount"`
}

// Dashboard are the headline numbers.
type Dashboard struct {
	TotalStudents    int          `json:"totalStudents"`
	TotalClassGroups int64        `json:"totalClassGroups"`
	TotalAssignments int64        `json:"totalAssignments"`
	TotalExclusions  int64        `json:"totalExclusions"`
	ActiveBlocks     []ActiveSlot `json:"activeBlocks"`
	// LastDay counts the audit entries of the last StatsWindow.
	LastDay synclog.Stats `json:"lastDay"`
}

// Students returns the directory users that are not excluded.
func Students(ctx context.Context, users Users, st Store) ([]directory.User, error) {
	all, err := users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	exclusions, err := st.ListExclusions(ctx)
	if err != nil {
		return nil, err
	}

	excluded := make(map[string]bool, len(exclusions))
	for _, e := range exclusions {
		excluded[e.StudentID] = true
	}

	out := make([]directory.User, 0, len(all))

	for _, u := range all {
		if !excluded[u.ID] {
			out = append(out, u)
		}
	}

	return out, nil
}

// BuildDashboard counts students, groups and assignments and lists the slots
// open at now with the number of distinct students scheduled into each.
func BuildDashboard(
	ctx context.Context,
	now time.Time,
	cal *timetable.Calculator,
	namer timetable.SlotNamer,
	users Users,
	st Store,
) (Dashboard, error) {
	d := Dashboard{ActiveBlocks: []ActiveSlot{}}

	students, err := Students(ctx, users, st)
	if err != nil {
		return d, err
	}

	d.TotalStudents = len(students)

	counts, err := st.Counts(ctx)
	if err != nil {
		return d, err
	}

	d.TotalClassGroups = counts.ClassGroups
	d.TotalAssignments = counts.Assignments
	d.TotalExclusions = counts.Exclusions

	if d.LastDay, err = st.SyncStats(ctx, now.Add(-StatsWindow)); err != nil {
		return d, err
	}

	day, ok := cal.Day(now)
	if !ok {
		return d, nil
	}

	active := cal.ActiveBlocks(now)
	if len(active) == 0 {
		return d, nil
	}

	assignments, err := st.ListAssignments(ctx)
	if err != nil {
		return d, err
	}

	for _, number := range active {
		ids := map[string]struct{}{}

		for _, a := range assignments {
			if a.DayOfWeek != day || a.BlockNumber != number || !a.Valid() {
				continue
			}

			if a.StudentID != nil {
				ids[*a.StudentID] = struct{}{}
				continue
			}

			members, err := st.ClassGroupMemberIDs(ctx, *a.ClassGroupID)
			if err != nil {
				return d, err
			}

			for _, id := range members {
				ids[id] = struct{}{}
			}
		}

		b, _ := cal.Block(number)

		d.ActiveBlocks = append(d.ActiveBlocks, ActiveSlot{
			DayOfWeek:    day,
			BlockNumber:  number,
			Label:        b.Label,
			GroupName:    namer.SlotGroupName(day, number),
			StudentCount: len(ids),
		})
	}

	return d, nil
}
