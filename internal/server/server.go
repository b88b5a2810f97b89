// Package server provides the HTTP server exposing /metrics, /health, /ready,
// /config and the read-only user state API.
package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/pprof"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/tekradar/userstate/internal/collector"
	"github.com/tekradar/userstate/internal/config"
	"github.com/tekradar/userstate/internal/scheduler"
)

// Server is the HTTP server exposing metrics and the state endpoints.
type Server struct {
	httpServer *http.Server
	registry   *collector.Registry
	state      collector.StateReader
	queue      *scheduler.TaskQueue
	config     *config.Config
	ready      atomic.Bool
	logger     *logrus.Entry
}

// NewServer creates a server configured from cfg. registry is served on
// /metrics alongside the default gatherer; queue receives refresh requests.
func NewServer(cfg *config.Config, registry *collector.Registry, state collector.StateReader, queue *scheduler.TaskQueue, logger *logrus.Entry) *Server {
	s := &Server{
		registry: registry,
		state:    state,
		queue:    queue,
		config:   cfg,
		logger:   logger.WithField("component", "server"),
	}

	mux := http.NewServeMux()

	// --- Prometheus metrics ---
	// The default gatherer carries the Go/process collectors and the
	// preference store operation metrics.
	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(registry)
	mux.Handle("/metrics", promhttp.HandlerFor(
		prometheus.Gatherers{promRegistry, prometheus.DefaultGatherer},
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	))

	// --- Health / readiness ---
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)

	// --- Config (redacted) ---
	mux.HandleFunc("/config", s.handleConfig)

	// --- User state ---
	mux.HandleFunc("/api/v1/state", s.handleState)
	mux.HandleFunc("/api/v1/refresh", s.handleRefresh)

	// --- pprof ---
	if cfg.Server.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
		s.logger.Info("pprof endpoints enabled under /debug/pprof/")
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the server's request multiplexer.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving HTTP in a background goroutine and returns once the
// listener has had a moment to bind.
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("starting HTTP server")

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("HTTP server error")
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(100 * time.Millisecond):
	}

	return nil
}

// Stop performs a graceful shutdown of the HTTP server. The provided context
// controls the maximum time to wait for in-flight requests to complete.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

// SetReady updates the readiness state exposed by the /ready endpoint.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// --- HTTP handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if s.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not_ready"}`))
	}
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	data, err := s.config.RedactedJSON()
	if err != nil {
		s.logger.WithError(err).Error("failed to encode config")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}
