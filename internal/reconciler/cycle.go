package reconciler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller/syncstate"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/models"
)

// Report summarises a finished cycle.
type Report struct {
	ID           string    `json:"id"`
	Kind         Kind      `json:"kind"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
	ActiveBlocks []int     `json:"activeBlocks,omitempty"`
	Groups       int       `json:"groups"`
	Added        int       `json:"added"`
	Removed      int       `json:"removed"`
	Failed       int       `json:"failed"`
}

// baseline returns the membership a group is diffed against.
type baseline func(ctx context.Context, group string) (set, error)

type tally struct {
	added, removed, failed int
}

func (r *Reconciler) run(ctx context.Context, kind Kind) (rep Report, err error) {
	rep = Report{ID: uuid.NewString(), Kind: kind, StartedAt: r.now()}
	l := r.log.With().Str("cycle_id", rep.ID).Str("cycle", string(kind)).Logger()

	l.Debug().Msg("cycle started")

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}

		rep.FinishedAt = r.now()
		r.finish(ctx, &l, &rep, err)
	}()

	if kind == Full {
		err = r.full(ctx, &l, &rep)
	} else {
		err = r.incremental(ctx, &l, &rep)
	}

	return rep, err
}

// finish writes the cycle outcome to metrics, the audit log and the sync state.
// None of these writes can fail the cycle.
func (r *Reconciler) finish(ctx context.Context, l *zerolog.Logger, rep *Report, err error) {
	cycleDuration.WithLabelValues(string(rep.Kind)).Observe(rep.FinishedAt.Sub(rep.StartedAt).Seconds())
	cyclesTotal.WithLabelValues(string(rep.Kind), outcome(err == nil)).Inc()
	cachedGroups.Set(float64(r.cache.Len()))

	cycle := syncstate.Cycle{
		ID:         rep.ID,
		Kind:       string(rep.Kind),
		StartedAt:  rep.StartedAt,
		FinishedAt: rep.FinishedAt,
		Groups:     rep.Groups,
		Added:      rep.Added,
		Removed:    rep.Removed,
		Failed:     rep.Failed,
	}

	if err != nil {
		cycle.Error = err.Error()

		l.Error().Err(err).
			Int("added", rep.Added).
			Int("removed", rep.Removed).
			Int("failed", rep.Failed).
			Msg("cycle failed")

		prefix := "Sync error: "
		if rep.Kind == Full {
			prefix = "Full sync error: "
		}

		if aerr := r.store.AppendSyncLog(ctx, models.SyncLog{
			Timestamp: r.now(),
			Action:    models.ActionError,
			Details:   prefix + err.Error(),
			Success:   false,
		}); aerr != nil {
			l.Error().Err(aerr).Msg("can't write cycle error to the audit log")
		}
	} else {
		l.Info().
			Int("groups", rep.Groups).
			Int("added", rep.Added).
			Int("removed", rep.Removed).
			Int("failed", rep.Failed).
			Dur("took", rep.FinishedAt.Sub(rep.StartedAt)).
			Msg("cycle finished")
	}

	if serr := r.store.RecordCycle(ctx, cycle); serr != nil {
		l.Warn().Err(serr).Msg("can't record sync state")
	}
}

func (r *Reconciler) incremental(ctx context.Context, l *zerolog.Logger, rep *Report) error {
	now := r.now()

	assignments, err := r.store.ListAssignments(ctx)
	if err != nil {
		return err
	}

	desired := r.seed()

	day, school := r.cal.Day(now)
	active := r.cal.ActiveBlocks(now)
	rep.ActiveBlocks = active
	activeBlocks.Set(float64(len(active)))

	if school && len(active) > 0 {
		res := resolver{store: r.store, members: map[uint][]string{}}

		for _, a := range assignments {
			if a.DayOfWeek != day || !slices.Contains(active, a.BlockNumber) {
				continue
			}

			if err := r.contribute(ctx, l, &res, desired, a); err != nil {
				return err
			}
		}
	}

	return r.apply(ctx, l, rep, desired, func(_ context.Context, group string) (set, error) {
		return r.cache.get(group), nil
	})
}

func (r *Reconciler) full(ctx context.Context, l *zerolog.Logger, rep *Report) error {
	assignments, err := r.store.ListAssignments(ctx)
	if err != nil {
		return err
	}

	desired := r.seed()
	res := resolver{store: r.store, members: map[uint][]string{}}

	for _, a := range assignments {
		if err := r.contribute(ctx, l, &res, desired, a); err != nil {
			return err
		}
	}

	return r.apply(ctx, l, rep, desired, func(ctx context.Context, group string) (set, error) {
		ids, err := r.dir.ListGroupMembers(ctx, group)
		if err != nil {
			return nil, err
		}

		return newSet(ids...), nil
	})
}

// seed returns an empty desired set for every slot group, so that members of
// slots without assignments get removed.
func (r *Reconciler) seed() map[string]set {
	desired := map[string]set{}

	for _, s := range r.cal.Slots() {
		desired[r.namer.SlotGroupName(s.Day, s.Block)] = set{}
	}

	return desired
}

// resolver memoises class group members for one cycle.
type resolver struct {
	store   Store
	members map[uint][]string
}

func (res *resolver) resolve(ctx context.Context, groupID uint) ([]string, error) {
	if ids, ok := res.members[groupID]; ok {
		return ids, nil
	}

	ids, err := res.store.ClassGroupMemberIDs(ctx, groupID)
	if err != nil {
		return nil, err
	}

	res.members[groupID] = ids

	return ids, nil
}

func (r *Reconciler) contribute(
	ctx context.Context,
	l *zerolog.Logger,
	res *resolver,
	desired map[string]set,
	a models.ScheduleAssignment,
) error {
	if !a.Valid() {
		l.Warn().Uint("assignment", a.ID).Msg("skipping assignment without exactly one reference")
		return nil
	}

	name := r.namer.SlotGroupName(a.DayOfWeek, a.BlockNumber)
	if desired[name] == nil {
		desired[name] = set{}
	}

	if a.StudentID != nil {
		desired[name][*a.StudentID] = struct{}{}
		return nil
	}

	ids, err := res.resolve(ctx, *a.ClassGroupID)
	if err != nil {
		return err
	}

	for _, id := range ids {
		desired[name][id] = struct{}{}
	}

	return nil
}

// apply converges every desired or cached group. Groups run in parallel,
// the mutations of a single group run in order.
func (r *Reconciler) apply(
	ctx context.Context,
	l *zerolog.Logger,
	rep *Report,
	desired map[string]set,
	base baseline,
) error {
	groups := make([]string, 0, len(desired))
	for g := range desired {
		groups = append(groups, g)
	}

	for _, g := range r.cache.Groups() {
		if _, ok := desired[g]; !ok {
			groups = append(groups, g)
		}
	}

	slices.Sort(groups)
	rep.Groups = len(groups)

	var (
		mu sync.Mutex
		eg errgroup.Group
	)

	eg.SetLimit(r.concurrency)

	for _, group := range groups {
		want := desired[group]

		eg.Go(func() (err error) {
			var t tally

			defer func() {
				if p := recover(); p != nil {
					err = fmt.Errorf("%w: group %s: %v", ErrPanic, group, p)
				}

				mu.Lock()
				rep.Added += t.added
				rep.Removed += t.removed
				rep.Failed += t.failed
				mu.Unlock()
			}()

			return r.syncGroup(ctx, l, rep.Kind, group, want, base, &t)
		})
	}

	return eg.Wait()
}

// syncGroup diffs one group and applies the difference. The cache ends up as
// baseline plus confirmed adds minus confirmed removes. A failing audit write
// does not stop the remaining mutations, it is returned at the end.
func (r *Reconciler) syncGroup(
	ctx context.Context,
	l *zerolog.Logger,
	kind Kind,
	group string,
	want set,
	base baseline,
	t *tally,
) error {
	have, err := base(ctx, group)
	if err != nil {
		t.failed++

		l.Error().Err(err).Str("group", group).Msg("can't read group members")

		return r.audit(ctx, models.SyncLog{
			Action:    models.ActionError,
			GroupName: group,
			Details:   fmt.Sprintf("Full sync: failed to read members of %s: %v", group, err),
		})
	}

	members := make(set, len(have))
	for id := range have {
		members[id] = struct{}{}
	}

	var auditErr error

	for _, id := range want.minus(have) {
		err := r.dir.AddMember(ctx, id, group)
		mutationsTotal.WithLabelValues(string(models.ActionAddUser), outcome(err == nil)).Inc()

		if err == nil {
			members[id] = struct{}{}
			t.added++

			l.Info().Str("student", id).Str("group", group).Msg("added user to group")
		} else {
			t.failed++

			l.Error().Err(err).Str("student", id).Str("group", group).Msg("can't add user to group")
		}

		auditErr = errors.Join(auditErr, r.audit(ctx, models.SyncLog{
			Action:    models.ActionAddUser,
			StudentID: id,
			GroupName: group,
			Details:   details(kind, models.ActionAddUser, err),
			Success:   err == nil,
		}))
	}

	for _, id := range have.minus(want) {
		err := r.dir.RemoveMember(ctx, id, group)
		mutationsTotal.WithLabelValues(string(models.ActionRemoveUser), outcome(err == nil)).Inc()

		if err == nil {
			delete(members, id)
			t.removed++

			l.Info().Str("student", id).Str("group", group).Msg("removed user from group")
		} else {
			t.failed++

			l.Error().Err(err).Str("student", id).Str("group", group).Msg("can't remove user from group")
		}

		auditErr = errors.Join(auditErr, r.audit(ctx, models.SyncLog{
			Action:    models.ActionRemoveUser,
			StudentID: id,
			GroupName: group,
			Details:   details(kind, models.ActionRemoveUser, err),
			Success:   err == nil,
		}))
	}

	r.cache.put(group, members)

	return auditErr
}

func (r *Reconciler) audit(ctx context.Context, entry models.SyncLog) error {
	entry.Timestamp = r.now()

	if err := r.store.AppendSyncLog(ctx, entry); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}

	return nil
}

func details(kind Kind, action models.SyncAction, err error) string {
	var msg string

	switch {
	case kind == Full && action == models.ActionAddUser && err == nil:
		msg = "Full sync: added user"
	case kind == Full && action == models.ActionAddUser:
		msg = "Full sync: failed to add user"
	case kind == Full && err == nil:
		msg = "Full sync: removed user"
	case kind == Full:
		msg = "Full sync: failed to remove user"
	case action == models.ActionAddUser && err == nil:
		msg = "Added user to group for current lesson"
	case action == models.ActionAddUser:
		msg = "Failed to add user to group"
	case err == nil:
		msg = "Removed user from group after lesson ended"
	default:
		msg = "Failed to remove user from group"
	}

	if err != nil {
		msg += ": " + err.Error()
	}

	return msg
}
