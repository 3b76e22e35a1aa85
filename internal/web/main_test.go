package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/config"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/controller/exclusion"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/dbtest"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/db/models"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/directory"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/reconciler"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/scheduler"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/store"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/timetable"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/web"
	"github.com/wandeltn/hausmeistersteuerung-user-sync/internal/web/handler"
)

type fakeSyncer struct {
	health    reconciler.Health
	healthErr error
	runErr    error
	runs      int
}

func (f *fakeSyncer) HealthStatus(context.Context) (reconciler.Health, error) {
	return f.health, f.healthErr
}

func (f *fakeSyncer) RunFullCycleNow(context.Context) error {
	f.runs++
	return f.runErr
}

type fakeUsers struct{}

func (fakeUsers) ListUsers(context.Context) ([]directory.User, error) {
	return []directory.User{{ID: "1", Username: "anna"}, {ID: "99", Username: "janitor"}}, nil
}

type fakeSchedule struct{ next scheduler.NextRuns }

func (f fakeSchedule) Next() scheduler.NextRuns { return f.next }

type env struct {
	svc    *web.Service
	syncer *fakeSyncer
	store  *store.Store
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db := dbtest.Open(t)
	st := store.New(db)

	_, err := exclusion.Add(context.Background(), db, "99", "staff")
	require.NoError(t, err)

	cal, err := timetable.New(config.Schedule{Location: "Europe/Berlin", PaddingMinutes: 15})
	require.NoError(t, err)

	syncer := &fakeSyncer{health: reconciler.Health{Healthy: true, ActiveBlocks: 1}}

	cfg := &config.Config{Title: "test", Webserver: config.Webserver{ShutDownTime: 1}}
	deps := &handler.Deps{
		Sync:     syncer,
		Store:    st,
		Users:    fakeUsers{},
		Calendar: cal,
		Namer:    timetable.FixedNamer("Test"),
		Schedule: fakeSchedule{next: scheduler.NextRuns{Full: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}},
		Now:      func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, cal.Location()) },
		Base:     context.Background(),
	}

	return &env{svc: web.New(cfg, deps), syncer: syncer, store: st}
}

func (e *env) do(t *testing.T, method, path string) (int, []byte) {
	t.Helper()

	resp, err := e.svc.App.Test(httptest.NewRequest(method, path, nil))
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, body
}

func TestHealth(t *testing.T) {
	e := newEnv(t)

	code, body := e.do(t, http.MethodGet, web.HealthPath)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", string(body))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e.svc.Drain(ctx)

	code, _ = e.do(t, http.MethodGet, web.HealthPath)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestSyncStatus(t *testing.T) {
	e := newEnv(t)

	code, body := e.do(t, http.MethodGet, "/api/sync/status")
	require.Equal(t, http.StatusOK, code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, true, got["isHealthy"])
	assert.Nil(t, got["lastSync"])
	assert.InDelta(t, 1, got["activeBlocks"], 0)
	assert.Contains(t, got, "next")

	e.syncer.healthErr = store.ErrUnavailable

	code, _ = e.do(t, http.MethodGet, "/api/sync/status")
	assert.Equal(t, http.StatusInternalServerError, code)
}

func TestSyncFull(t *testing.T) {
	testCases := []struct {
		name     string
		runErr   error
		wantCode int
	}{
		{name: "started", wantCode: http.StatusAccepted},
		{name: "in progress", runErr: reconciler.ErrCycleInProgress, wantCode: http.StatusConflict},
		{name: "broken", runErr: errors.New("boom"), wantCode: http.StatusInternalServerError},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			e.syncer.runErr = tc.runErr

			code, _ := e.do(t, http.MethodPost, "/api/sync/full")
			assert.Equal(t, tc.wantCode, code)
			assert.Equal(t, 1, e.syncer.runs)
		})
	}
}

func TestSyncLogs(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, e.store.AppendSyncLog(ctx, models.SyncLog{
			Timestamp: time.Now(),
			Action:    models.ActionAddUser,
			StudentID: id,
			GroupName: "Test",
			Success:   true,
		}))
	}

	testCases := []struct {
		name     string
		query    string
		wantCode int
		wantLen  int
	}{
		{name: "default limit", query: "", wantCode: http.StatusOK, wantLen: 3},
		{name: "limit", query: "?limit=2", wantCode: http.StatusOK, wantLen: 2},
		{name: "not a number", query: "?limit=abc", wantCode: http.StatusBadRequest},
		{name: "zero", query: "?limit=0", wantCode: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := e.do(t, http.MethodGet, "/api/sync/logs"+tc.query)
			require.Equal(t, tc.wantCode, code)

			if tc.wantCode != http.StatusOK {
				return
			}

			var logs []models.SyncLog
			require.NoError(t, json.Unmarshal(body, &logs))
			assert.Len(t, logs, tc.wantLen)
			assert.Equal(t, "3", logs[0].StudentID)
		})
	}
}

func TestStudents(t *testing.T) {
	e := newEnv(t)

	code, body := e.do(t, http.MethodGet, "/api/students")
	require.Equal(t, http.StatusOK, code)

	var users []directory.User
	require.NoError(t, json.Unmarshal(body, &users))
	require.Len(t, users, 1)
	assert.Equal(t, "anna", users[0].Username)
}

func TestDashboard(t *testing.T) {
	e := newEnv(t)

	code, body := e.do(t, http.MethodGet, "/api/dashboard/stats")
	require.Equal(t, http.StatusOK, code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))
	assert.InDelta(t, 1, got["totalStudents"], 0)
	assert.InDelta(t, 1, got["totalExclusions"], 0)
	assert.Len(t, got["activeBlocks"], 1)
	assert.Contains(t, got, "lastDay")
}

func TestMetrics(t *testing.T) {
	e := newEnv(t)

	code, body := e.do(t, http.MethodGet, web.MetricsPath)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body), "go_goroutines")
}
