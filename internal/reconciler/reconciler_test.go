package reconciler_test

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/config"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller/assignment"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller/classgroup"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller/syncstate"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/dbtest"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/models"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/reconciler"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/store"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/timetable"
)

var errBoom = errors.New("boom")

// fakeDirectory keeps group membership in memory.
type fakeDirectory struct {
	mu      sync.Mutex
	groups  map[string]map[string]bool
	failAdd map[string]error
	failRm  map[string]error
	listErr map[string]error
	panicOn string
	mutates int

	block   chan struct{}
	started chan struct{}
	once    sync.Once
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		groups:  map[string]map[string]bool{},
		failAdd: map[string]error{},
		failRm:  map[string]error{},
		listErr: map[string]error{},
	}
}

func (d *fakeDirectory) seed(group string, ids ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.groups[group] == nil {
		d.groups[group] = map[string]bool{}
	}

	for _, id := range ids {
		d.groups[group][id] = true
	}
}

func (d *fakeDirectory) members(group string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []string
	for id := range d.groups[group] {
		out = append(out, id)
	}

	slices.Sort(out)

	return out
}

func (d *fakeDirectory) mutations() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.mutates
}

func (d *fakeDirectory) ListGroupMembers(_ context.Context, group string) ([]string, error) {
	d.mu.Lock()
	err := d.listErr[group]
	d.mu.Unlock()

	if err != nil {
		return nil, err
	}

	return d.members(group), nil
}

func (d *fakeDirectory) AddMember(_ context.Context, studentID, group string) error {
	if d.block != nil {
		d.once.Do(func() { close(d.started) })
		<-d.block
	}

	if d.panicOn != "" && studentID == d.panicOn {
		panic("directory exploded")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.mutates++

	if err := d.failAdd[studentID]; err != nil {
		return err
	}

	if d.groups[group] == nil {
		d.groups[group] = map[string]bool{}
	}

	d.groups[group][studentID] = true

	return nil
}

func (d *fakeDirectory) RemoveMember(_ context.Context, studentID, group string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.mutates++

	if err := d.failRm[studentID]; err != nil {
		return err
	}

	delete(d.groups[group], studentID)

	return nil
}

// failingStore fails every read and optionally every audit write.
type failingStore struct {
	mu          sync.Mutex
	appendErr   error
	entries     []models.SyncLog
	cycles      []syncstate.Cycle
	assignments []models.ScheduleAssignment
	listErr     error
}

func (s *failingStore) ListAssignments(context.Context) ([]models.ScheduleAssignment, error) {
	return s.assignments, s.listErr
}

func (s *failingStore) ClassGroupMemberIDs(context.Context, uint) ([]string, error) {
	return nil, store.ErrUnavailable
}

func (s *failingStore) AppendSyncLog(_ context.Context, entry models.SyncLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.appendErr != nil {
		return s.appendErr
	}

	s.entries = append(s.entries, entry)

	return nil
}

func (s *failingStore) RecentSyncLogs(context.Context, int) ([]models.SyncLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := slices.Clone(s.entries)
	slices.Reverse(out)

	return out, nil
}

func (s *failingStore) RecordCycle(_ context.Context, c syncstate.Cycle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cycles = append(s.cycles, c)

	return nil
}

type panicNamer struct{}

func (panicNamer) SlotGroupName(int, int) string { panic("namer exploded") }

type fixture struct {
	db    *store.Store
	dir   *fakeDirectory
	rec   *reconciler.Reconciler
	now   time.Time
	group uint
}

func calculator(t *testing.T) *timetable.Calculator {
	t.Helper()

	cal, err := timetable.New(config.Schedule{Location: "Europe/Berlin", PaddingMinutes: 15})
	require.NoError(t, err)

	return cal
}

// monday returns a time on Monday 2026-03-02 in Berlin.
func monday(hour, minute int) time.Time {
	loc, _ := time.LoadLocation("Europe/Berlin")
	return time.Date(2026, 3, 2, hour, minute, 0, 0, loc)
}

// newFixture assigns student 42 and class group 7a (students 1 and 2)
// to Monday block 0.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	gdb := dbtest.Open(t)
	ctx := context.Background()

	g, err := classgroup.Create(ctx, gdb, classgroup.Input{Name: "7a"})
	require.NoError(t, err)
	require.NoError(t, classgroup.AddMember(ctx, gdb, g.ID, "1"))
	require.NoError(t, classgroup.AddMember(ctx, gdb, g.ID, "2"))

	_, err = assignment.Create(ctx, gdb, assignment.Input{StudentID: "42"})
	require.NoError(t, err)
	_, err = assignment.Create(ctx, gdb, assignment.Input{ClassGroupID: g.ID})
	require.NoError(t, err)

	cal := calculator(t)
	namer, err := timetable.NewTemplateNamer(timetable.DefaultTemplate, cal)
	require.NoError(t, err)

	f := &fixture{
		db:    store.New(gdb),
		dir:   newFakeDirectory(),
		now:   monday(8, 0),
		group: g.ID,
	}
	f.rec = reconciler.New(f.db, f.dir, cal, namer, reconciler.WithNow(func() time.Time { return f.now }))

	return f
}

func (f *fixture) logs(t *testing.T) []models.SyncLog {
	t.Helper()

	logs, err := f.db.RecentSyncLogs(context.Background(), 100)
	require.NoError(t, err)

	return logs
}

func TestIncrementalGrantsAndRevokes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rep, err := f.rec.Incremental(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Added)
	assert.Equal(t, []int{0}, rep.ActiveBlocks)
	assert.Equal(t, []string{"1", "2", "42"}, f.dir.members("Lesson-0-0"))
	assert.Equal(t, []string{"1", "2", "42"}, f.rec.Cache().Members("Lesson-0-0"))

	logs := f.logs(t)
	require.Len(t, logs, 3)

	for _, l := range logs {
		assert.Equal(t, models.ActionAddUser, l.Action)
		assert.Equal(t, "Lesson-0-0", l.GroupName)
		assert.Equal(t, "Added user to group for current lesson", l.Details)
		assert.True(t, l.Success)
	}

	// nothing changed, nothing to do
	rep, err = f.rec.Incremental(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Added)
	assert.Zero(t, rep.Removed)
	assert.Equal(t, 3, f.dir.mutations())

	f.now = monday(9, 56)

	rep, err = f.rec.Incremental(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Removed)
	assert.Equal(t, []int{1}, rep.ActiveBlocks)
	assert.Empty(t, f.dir.members("Lesson-0-0"))
	assert.Zero(t, f.rec.Cache().Len())

	logs = f.logs(t)
	require.Len(t, logs, 6)
	assert.Equal(t, models.ActionRemoveUser, logs[0].Action)
	assert.Equal(t, "Removed user from group after lesson ended", logs[0].Details)

	st, err := f.db.SyncState(ctx)
	require.NoError(t, err)
	require.NotNil(t, st.LastIncremental)
	assert.Equal(t, 3, st.LastIncremental.Removed)
	assert.Nil(t, st.LastFull)
}

func TestIncrementalOutsideSchoolHours(t *testing.T) {
	testCases := []struct {
		name string
		now  time.Time
	}{
		{name: "before the first block", now: monday(7, 44)},
		{name: "lunch gap", now: monday(13, 40)},
		{name: "saturday", now: monday(10, 0).AddDate(0, 0, 5)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.now = tc.now

			rep, err := f.rec.Incremental(context.Background())
			require.NoError(t, err)
			assert.Zero(t, rep.Added)
			assert.Zero(t, f.dir.mutations())
			assert.Empty(t, f.logs(t))
		})
	}
}

func TestIncrementalPartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.dir.failAdd["2"] = errBoom

	rep, err := f.rec.Incremental(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Added)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, []string{"1", "42"}, f.rec.Cache().Members("Lesson-0-0"))

	var failed []models.SyncLog

	for _, l := range f.logs(t) {
		if !l.Success {
			failed = append(failed, l)
		}
	}

	require.Len(t, failed, 1)
	assert.Equal(t, "2", failed[0].StudentID)
	assert.Equal(t, "Failed to add user to group: boom", failed[0].Details)

	assert.Equal(t, 3, f.dir.mutations())

	// the failed add is retried by the next cycle
	delete(f.dir.failAdd, "2")

	rep, err = f.rec.Incremental(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Added)
	assert.Equal(t, []string{"1", "2", "42"}, f.dir.members("Lesson-0-0"))
}

func TestIncrementalRemoveFailureKeepsCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.rec.Incremental(ctx)
	require.NoError(t, err)

	for _, id := range []string{"1", "2", "42"} {
		f.dir.mu.Lock()
		f.dir.failRm[id] = errBoom
		f.dir.mu.Unlock()
	}

	f.now = monday(9, 56)

	rep, err := f.rec.Incremental(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Removed)
	assert.Equal(t, 3, rep.Failed)
	assert.Equal(t, []string{"1", "2", "42"}, f.rec.Cache().Members("Lesson-0-0"))
	assert.Equal(t, []string{"1", "2", "42"}, f.dir.members("Lesson-0-0"))

	var failed []string

	for _, l := range f.logs(t) {
		if l.Action == models.ActionRemoveUser && !l.Success {
			failed = append(failed, l.StudentID)
			assert.Equal(t, "Failed to remove user from group: boom", l.Details)
		}
	}

	slices.Sort(failed)
	assert.Equal(t, []string{"1", "2", "42"}, failed)

	// the next cycle retries the removals
	f.dir.mu.Lock()
	clear(f.dir.failRm)
	f.dir.mu.Unlock()

	rep, err = f.rec.Incremental(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Removed)
	assert.Empty(t, f.dir.members("Lesson-0-0"))
	assert.Zero(t, f.rec.Cache().Len())
}

func TestFullConverges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := assignment.Create(ctx, f.db.DB(), assignment.Input{DayOfWeek: 4, BlockNumber: 3, StudentID: "7"})
	require.NoError(t, err)

	f.dir.seed("Lesson-0-0", "42")
	f.dir.seed("Lesson-1-2", "stray")

	// the full cycle ignores the clock
	f.now = monday(20, 0).AddDate(0, 0, 6)

	rep, err := f.rec.Full(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Added)
	assert.Equal(t, 1, rep.Removed)
	assert.Equal(t, 20, rep.Groups)

	assert.Equal(t, []string{"1", "2", "42"}, f.dir.members("Lesson-0-0"))
	assert.Equal(t, []string{"7"}, f.dir.members("Lesson-4-3"))
	assert.Empty(t, f.dir.members("Lesson-1-2"))
	assert.Equal(t, []string{"1", "2", "42"}, f.rec.Cache().Members("Lesson-0-0"))

	for _, l := range f.logs(t) {
		assert.Contains(t, []string{"Full sync: added user", "Full sync: removed user"}, l.Details)
	}

	st, err := f.db.SyncState(ctx)
	require.NoError(t, err)
	require.NotNil(t, st.LastFull)
	assert.Equal(t, 3, st.LastFull.Added)

	rep, err = f.rec.Full(ctx)
	require.NoError(t, err)
	assert.Zero(t, rep.Added)
	assert.Zero(t, rep.Removed)
}

func TestFullListFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.dir.listErr["Lesson-0-0"] = errBoom
	f.dir.seed("Lesson-1-2", "stray")

	rep, err := f.rec.Full(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Failed)
	assert.Equal(t, 1, rep.Removed)
	assert.Empty(t, f.dir.members("Lesson-0-0"))
	assert.Empty(t, f.rec.Cache().Members("Lesson-0-0"))

	logs := f.logs(t)

	var found bool

	for _, l := range logs {
		if l.Action == models.ActionError {
			found = true

			assert.Equal(t, "Lesson-0-0", l.GroupName)
			assert.Contains(t, l.Details, "boom")
		}
	}

	assert.True(t, found)
}

func TestCycleMutualExclusion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.dir.block = make(chan struct{})
	f.dir.started = make(chan struct{})

	done := make(chan error, 1)

	go func() {
		_, err := f.rec.Incremental(ctx)
		done <- err
	}()

	<-f.dir.started

	assert.True(t, f.rec.Running())

	_, err := f.rec.Full(ctx)
	require.ErrorIs(t, err, reconciler.ErrCycleInProgress)

	_, err = f.rec.Incremental(ctx)
	require.ErrorIs(t, err, reconciler.ErrCycleInProgress)

	require.ErrorIs(t, f.rec.RunFullCycleNow(ctx), reconciler.ErrCycleInProgress)

	close(f.dir.block)
	require.NoError(t, <-done)
	assert.False(t, f.rec.Running())

	require.NoError(t, f.rec.RunFullCycleNow(ctx))
	f.rec.Wait()
	assert.False(t, f.rec.Running())

	st, err := f.db.SyncState(ctx)
	require.NoError(t, err)
	require.NotNil(t, st.LastFull)
}

func TestCycleStoreFailure(t *testing.T) {
	testCases := []struct {
		name      string
		kind      reconciler.Kind
		appendErr error
		prefix    string
	}{
		{name: "incremental", kind: reconciler.Incremental, prefix: "Sync error: "},
		{name: "full", kind: reconciler.Full, prefix: "Full sync error: "},
		{name: "audit log down too", kind: reconciler.Incremental, appendErr: errBoom},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := &failingStore{listErr: store.ErrUnavailable, appendErr: tc.appendErr}
			cal := calculator(t)
			rec := reconciler.New(s, newFakeDirectory(), cal, timetable.FixedNamer("Test"),
				reconciler.WithNow(func() time.Time { return monday(8, 0) }))

			var err error
			if tc.kind == reconciler.Full {
				_, err = rec.Full(context.Background())
			} else {
				_, err = rec.Incremental(context.Background())
			}

			require.ErrorIs(t, err, store.ErrUnavailable)
			assert.False(t, rec.Running())

			require.Len(t, s.cycles, 1)
			assert.NotEmpty(t, s.cycles[0].Error)

			if tc.appendErr != nil {
				assert.Empty(t, s.entries)
				return
			}

			require.Len(t, s.entries, 1)
			assert.Equal(t, models.ActionError, s.entries[0].Action)
			assert.False(t, s.entries[0].Success)
			assert.Equal(t, tc.prefix+err.Error(), s.entries[0].Details)

			h, herr := rec.HealthStatus(context.Background())
			require.NoError(t, herr)
			assert.False(t, h.Healthy)
			require.NotNil(t, h.LastSync)
		})
	}
}

func TestCycleClassGroupFailureAborts(t *testing.T) {
	gid := uint(3)
	s := &failingStore{assignments: []models.ScheduleAssignment{{ID: 1, ClassGroupID: &gid}}}
	dir := newFakeDirectory()
	rec := reconciler.New(s, dir, calculator(t), timetable.FixedNamer("Test"),
		reconciler.WithNow(func() time.Time { return monday(8, 0) }))

	_, err := rec.Incremental(context.Background())
	require.ErrorIs(t, err, store.ErrUnavailable)
	assert.Zero(t, dir.mutations())
}

func TestCycleAuditFailureContinues(t *testing.T) {
	student := "42"
	s := &failingStore{
		appendErr:   errBoom,
		assignments: []models.ScheduleAssignment{{ID: 1, StudentID: &student}},
	}
	dir := newFakeDirectory()
	rec := reconciler.New(s, dir, calculator(t), timetable.FixedNamer("Test"),
		reconciler.WithNow(func() time.Time { return monday(8, 0) }))

	rep, err := rec.Incremental(context.Background())
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, rep.Added)
	assert.Equal(t, []string{"42"}, dir.members("Test"))
	assert.Equal(t, []string{"42"}, rec.Cache().Members("Test"))
}

func TestCycleSkipsInvalidAssignments(t *testing.T) {
	student := "42"
	gid := uint(1)
	s := &failingStore{assignments: []models.ScheduleAssignment{
		{ID: 1},
		{ID: 2, StudentID: &student, ClassGroupID: &gid},
		{ID: 3, StudentID: &student, BlockNumber: 0},
	}}
	dir := newFakeDirectory()
	rec := reconciler.New(s, dir, calculator(t), timetable.FixedNamer("Test"),
		reconciler.WithNow(func() time.Time { return monday(8, 0) }))

	rep, err := rec.Incremental(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Added)
	assert.Equal(t, 1, rep.Groups)
}

func TestCyclePanicRecovery(t *testing.T) {
	t.Run("outside the group workers", func(t *testing.T) {
		s := &failingStore{}
		rec := reconciler.New(s, newFakeDirectory(), calculator(t), panicNamer{},
			reconciler.WithNow(func() time.Time { return monday(8, 0) }))

		_, err := rec.Incremental(context.Background())
		require.ErrorIs(t, err, reconciler.ErrPanic)
		assert.False(t, rec.Running())
		require.Len(t, s.entries, 1)
		assert.Equal(t, models.ActionError, s.entries[0].Action)
	})

	t.Run("inside a group worker", func(t *testing.T) {
		f := newFixture(t)
		f.dir.panicOn = "2"

		rep, err := f.rec.Incremental(context.Background())
		require.ErrorIs(t, err, reconciler.ErrPanic)
		assert.Equal(t, 1, rep.Added)
		assert.False(t, f.rec.Running())

		// the next cycle still works
		f.dir.panicOn = ""

		_, err = f.rec.Incremental(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2", "42"}, f.dir.members("Lesson-0-0"))
	})
}

func TestHealthStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	h, err := f.rec.HealthStatus(ctx)
	require.NoError(t, err)
	assert.True(t, h.Healthy)
	assert.Nil(t, h.LastSync)
	assert.Equal(t, 1, h.ActiveBlocks)
	assert.Zero(t, h.CachedGroups)

	_, err = f.rec.Incremental(ctx)
	require.NoError(t, err)

	f.now = monday(9, 55)

	h, err = f.rec.HealthStatus(ctx)
	require.NoError(t, err)
	assert.True(t, h.Healthy)
	require.NotNil(t, h.LastSync)
	assert.Equal(t, 2, h.ActiveBlocks)
	assert.Equal(t, 1, h.CachedGroups)

	f.now = monday(9, 0).AddDate(0, 0, 6)

	h, err = f.rec.HealthStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, h.ActiveBlocks)
}
