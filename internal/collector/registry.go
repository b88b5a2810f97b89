// Package collector exposes the persisted user state as Prometheus metrics.
package collector

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Collector is the interface all metric collectors implement.
type Collector interface {
	// Name returns the human-readable name of the collector (e.g. "user_state").
	Name() string
	// Enabled reports whether this collector is active per configuration.
	Enabled() bool
	// Describe sends the super-set of all possible metric descriptors.
	Describe(ch chan<- *prometheus.Desc)
	// Collect sends the most recently observed metric values.
	Collect(ch chan<- prometheus.Metric)
	// Run reads the current state and refreshes the observations sent by
	// Collect. It is called periodically by the scheduler.
	Run(ctx context.Context) error
}

// Registry holds all registered collectors and implements
// prometheus.Collector so it can be registered with a prometheus.Registry
// directly.
type Registry struct {
	collectors []Collector
	mu         sync.RWMutex
	logger     *logrus.Entry
}

var _ prometheus.Collector = (*Registry)(nil)

// NewRegistry creates an empty Registry.
func NewRegistry(logger *logrus.Entry) *Registry {
	return &Registry{
		logger: logger,
	}
}

// Register adds a collector to the registry.
func (r *Registry) Register(c Collector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collectors = append(r.collectors, c)
	r.logger.WithFields(logrus.Fields{
		"collector": c.Name(),
		"enabled":   c.Enabled(),
	}).Info("registered collector")
}

// Collectors returns a snapshot of all registered collectors.
func (r *Registry) Collectors() []Collector {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Collector, len(r.collectors))
	copy(out, r.collectors)
	return out
}

// Describe implements prometheus.Collector for every registered collector,
// enabled or not.
func (r *Registry) Describe(ch chan<- *prometheus.Desc) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.collectors {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector for enabled collectors only.
func (r *Registry) Collect(ch chan<- prometheus.Metric) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.collectors {
		if c.Enabled() {
			c.Collect(ch)
		}
	}
}

// RunAll runs every enabled collector in registration order and returns the
// first error.
func (r *Registry) RunAll(ctx context.Context) error {
	for _, c := range r.Collectors() {
		if !c.Enabled() {
			continue
		}
		r.logger.WithField("collector", c.Name()).Debug("running collector")
		if err := c.Run(ctx); err != nil {
			r.logger.WithFields(logrus.Fields{
				"collector": c.Name(),
				"error":     err,
			}).Error("collector run failed")
			return err
		}
	}
	return nil
}
