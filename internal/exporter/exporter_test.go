package exporter

import (
	"context"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tekradar/userstate/internal/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Store.Backend = config.BackendMemory
	cfg.Server.ListenAddress = "127.0.0.1:0"
	return cfg
}

func nullLogger() *logrus.Entry {
	logger, _ := test.NewNullLogger()
	return logrus.NewEntry(logger)
}

func TestRunCollectsAndShutsDown(t *testing.T) {
	now := time.Date(2020, 6, 22, 0, 0, 0, 0, time.UTC)
	clk := testclock.NewClock(now)

	e, err := newExporter(context.Background(), testConfig(), clk, nullLogger())
	require.NoError(t, err)
	require.NoError(t, e.State().SetStartDate(context.Background(), now.Add(-72*time.Hour)))
	require.NoError(t, e.State().SetLastProcessedTimestamp(context.Background(), "US", 1000))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	// The scheduled task runs once immediately.
	require.Eventually(t, func() bool {
		return testutil.CollectAndCount(e.registry, "userstate_region_last_processed_timestamp") == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(e.registry, "userstate_days_of_use"))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(20 * time.Second):
		t.Fatal("exporter did not shut down")
	}
}

func TestCollectorDisabledSchedulesNothing(t *testing.T) {
	cfg := testConfig()
	cfg.Collector.Enabled = false

	e, err := newExporter(context.Background(), cfg, testclock.NewClock(time.Now()), nullLogger())
	require.NoError(t, err)
	assert.Equal(t, 0, testutil.CollectAndCount(e.registry, "userstate_days_of_use"))
	require.NoError(t, e.prefs.Close())
}

func TestNewExporterStoreError(t *testing.T) {
	cfg := testConfig()
	cfg.Store.Backend = config.BackendRedis
	cfg.Store.Redis.URL = "not-a-url"

	_, err := NewExporter(context.Background(), cfg, nullLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "opening preference store")
}
