package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tekradar/userstate/internal/codec"
	"github.com/tekradar/userstate/internal/collector"
	"github.com/tekradar/userstate/internal/config"
	"github.com/tekradar/userstate/internal/logging"
	"github.com/tekradar/userstate/internal/preferences"
	"github.com/tekradar/userstate/internal/scheduler"
	"github.com/tekradar/userstate/internal/userstate"
)

var now = time.Date(2020, 6, 22, 0, 0, 0, 0, time.UTC)

type testServer struct {
	srv      *Server
	state    *userstate.Store
	prefs    *preferences.MemoryStore
	registry *collector.Registry
	queue    *scheduler.TaskQueue
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger, _ := test.NewNullLogger()
	log := logrus.NewEntry(logger)

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Store.Backend = config.BackendRedis
	cfg.Store.Redis.URL = "redis://:hunter2@cache:6379/0"

	prefs := preferences.NewMemoryStore()
	state := userstate.New(prefs, codec.JSON{}, logging.NopTracer{}, testclock.NewClock(now))
	registry := collector.NewRegistry(log)
	registry.Register(collector.NewUserStateCollector(state, true, log))
	queue := scheduler.NewTaskQueue(1, log)

	return &testServer{
		srv:      NewServer(cfg, registry, state, queue, log),
		state:    state,
		prefs:    prefs,
		registry: registry,
		queue:    queue,
	}
}

func (ts *testServer) do(method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealthAndReady(t *testing.T) {
	ts := newTestServer(t)

	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusServiceUnavailable, ts.do(http.MethodGet, "/ready").Code)

	ts.srv.SetReady(true)
	rec := ts.do(http.MethodGet, "/ready")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestConfigIsRedacted(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/config")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hunter2")
	assert.Contains(t, rec.Body.String(), `"url": "****"`)
}

func TestStateSnapshot(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)
	require.NoError(t, ts.state.SetStartDate(ctx, now.Add(-48*time.Hour)))
	require.NoError(t, ts.state.SaveLastUpdateDate(ctx, userstate.PrivacyPolicy, now))
	require.NoError(t, ts.state.SetLastProcessedTimestamp(ctx, "US", 1000))

	rec := ts.do(http.MethodGet, "/api/v1/state")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		StartDate         time.Time             `json:"start_date"`
		DaysOfUse         int                   `json:"days_of_use"`
		Terms             map[string]*time.Time `json:"terms"`
		AllAgreed         bool                  `json:"all_agreed"`
		RegionCheckpoints map[string]int64      `json:"region_checkpoints"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.True(t, now.Add(-48*time.Hour).Equal(body.StartDate))
	assert.Equal(t, 2, body.DaysOfUse)
	assert.Nil(t, body.Terms["terms_of_service"])
	require.NotNil(t, body.Terms["privacy_policy"])
	assert.True(t, now.Equal(*body.Terms["privacy_policy"]))
	assert.False(t, body.AllAgreed)
	assert.Equal(t, map[string]int64{"US": 1000}, body.RegionCheckpoints)
}

func TestStateSnapshotFarFutureDates(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)
	require.NoError(t, ts.state.SetStartDate(ctx, time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, ts.state.SaveLastUpdateDate(ctx, userstate.TermsOfService, time.Date(-1, 1, 1, 0, 0, 0, 0, time.UTC)))

	rec := ts.do(http.MethodGet, "/api/v1/state")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		StartDate string             `json:"start_date"`
		Terms     map[string]*string `json:"terms"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "10000-01-01T00:00:00Z", body.StartDate)
	require.NotNil(t, body.Terms["terms_of_service"])
	assert.Equal(t, "-0001-01-01T00:00:00Z", *body.Terms["terms_of_service"])
}

func TestStateSnapshotMalformed(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.prefs.Set(context.Background(), "last_process_tek_timestamp", "[]"))

	rec := ts.do(http.MethodGet, "/api/v1/state")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "malformed")
}

func TestStateRejectsWrites(t *testing.T) {
	ts := newTestServer(t)
	assert.Equal(t, http.StatusMethodNotAllowed, ts.do(http.MethodPost, "/api/v1/state").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, ts.do(http.MethodGet, "/api/v1/refresh").Code)
}

func TestRefreshQueuesCollectorRun(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/v1/refresh")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	// The queue holds one item and nothing is draining it.
	rec = ts.do(http.MethodPost, "/api/v1/refresh")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)
	require.NoError(t, ts.state.SetLastProcessedTimestamp(ctx, "JP", 2000))
	require.NoError(t, ts.registry.RunAll(ctx))

	rec := ts.do(http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `userstate_region_last_processed_timestamp{region="JP"} 2000`), body)
	assert.Contains(t, body, "go_goroutines")
}
