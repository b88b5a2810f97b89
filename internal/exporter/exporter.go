// Package exporter wires together the preference store, user state,
// collectors, scheduler, and HTTP server into a single orchestrator.
package exporter

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/tekradar/userstate/internal/codec"
	"github.com/tekradar/userstate/internal/collector"
	"github.com/tekradar/userstate/internal/config"
	"github.com/tekradar/userstate/internal/logging"
	"github.com/tekradar/userstate/internal/preferences"
	"github.com/tekradar/userstate/internal/scheduler"
	"github.com/tekradar/userstate/internal/server"
	"github.com/tekradar/userstate/internal/userstate"
)

// refreshQueueSize bounds pending /api/v1/refresh requests.
const refreshQueueSize = 4

var collectorEnabled = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "userstate_collector_enabled",
	Help: "Whether a collector is enabled (1) or disabled (0).",
}, []string{"collector_type"})

func init() {
	prometheus.MustRegister(collectorEnabled)
}

// Exporter is the main application orchestrator for the serve command.
type Exporter struct {
	config    *config.Config
	prefs     preferences.Store
	state     *userstate.Store
	registry  *collector.Registry
	scheduler *scheduler.Scheduler
	queue     *scheduler.TaskQueue
	server    *server.Server
	logger    *logrus.Entry
}

// NewExporter creates and initialises the exporter:
//  1. Opens the configured preference store.
//  2. Builds the user state on top of it.
//  3. Creates and registers the user state collector.
//  4. Creates the scheduler, refresh queue and HTTP server.
func NewExporter(ctx context.Context, cfg *config.Config, logger *logrus.Entry) (*Exporter, error) {
	return newExporter(ctx, cfg, clock.WallClock, logger)
}

func newExporter(ctx context.Context, cfg *config.Config, clk clock.Clock, logger *logrus.Entry) (*Exporter, error) {
	log := logger.WithField("component", "exporter")

	// --- 1. Store ---
	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	prefs, err := preferences.Open(openCtx, cfg.Store, log)
	if err != nil {
		return nil, fmt.Errorf("opening preference store: %w", err)
	}
	log.WithField("backend", cfg.Store.Backend).Info("using preference store")

	// --- 2. User state ---
	state := userstate.New(prefs, codec.JSON{}, logging.NewMethodTracer(logger), clk)

	// --- 3. Collectors ---
	registry := collector.NewRegistry(log)
	userCollector := collector.NewUserStateCollector(state, cfg.Collector.Enabled, log)
	registry.Register(userCollector)

	// --- 4. Scheduler, queue, server ---
	sched := scheduler.NewScheduler(clk, log)
	if cfg.Collector.Enabled {
		collectorEnabled.WithLabelValues(userCollector.Name()).Set(1)

		interval := cfg.Collector.Interval()
		if interval <= 0 {
			interval = 60 * time.Second
		}
		sched.AddTask(scheduler.NewTask(userCollector.Name(), interval, userCollector.Run, log))

		log.WithFields(logrus.Fields{
			"collector": userCollector.Name(),
			"interval":  interval,
		}).Info("collector registered")
	} else {
		collectorEnabled.WithLabelValues(userCollector.Name()).Set(0)
		log.WithField("collector", userCollector.Name()).Info("collector disabled, skipping")
	}

	queue := scheduler.NewTaskQueue(refreshQueueSize, log)
	srv := server.NewServer(cfg, registry, state, queue, log)

	return &Exporter{
		config:    cfg,
		prefs:     prefs,
		state:     state,
		registry:  registry,
		scheduler: sched,
		queue:     queue,
		server:    srv,
		logger:    log,
	}, nil
}

// Run starts the HTTP server, scheduler and refresh queue, then blocks until
// ctx is cancelled. On cancellation it performs a graceful shutdown.
func (e *Exporter) Run(ctx context.Context) error {
	if err := e.server.Start(ctx); err != nil {
		e.closeStore()
		return fmt.Errorf("starting server: %w", err)
	}

	e.scheduler.Start(ctx)
	e.scheduler.Go(func() { e.queue.Start(ctx) })

	e.server.SetReady(true)
	e.logger.Info("exporter is ready")

	<-ctx.Done()

	e.logger.Info("shutting down exporter")
	e.server.SetReady(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := e.server.Stop(shutdownCtx); err != nil {
		e.logger.WithError(err).Error("error during server shutdown")
	}

	e.scheduler.Stop()
	e.closeStore()

	return nil
}

// State returns the user state served by the exporter.
func (e *Exporter) State() *userstate.Store {
	return e.state
}

func (e *Exporter) closeStore() {
	if err := e.prefs.Close(); err != nil {
		e.logger.WithError(err).Error("error closing store")
	}
}
