package preferences

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operational metrics.
var (
	operationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "userstate_preference_operations_total",
		Help: "Total preference store operations.",
	}, []string{"backend", "operation", "result"})
	operationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "userstate_preference_operation_duration_seconds",
		Help:    "Duration of preference store operations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "operation"})
)

func init() {
	prometheus.MustRegister(
		operationsTotal,
		operationDuration,
	)
}

// InstrumentedStore wraps a Store and records operation counts and latency.
type InstrumentedStore struct {
	next    Store
	backend string
}

var _ Store = (*InstrumentedStore)(nil)

// Instrumented wraps next, labelling its metrics with backend.
func Instrumented(next Store, backend string) *InstrumentedStore {
	return &InstrumentedStore{next: next, backend: backend}
}

func (s *InstrumentedStore) observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	operationsTotal.WithLabelValues(s.backend, op, result).Inc()
	operationDuration.WithLabelValues(s.backend, op).Observe(time.Since(start).Seconds())
}

func (s *InstrumentedStore) Get(ctx context.Context, key string) (string, bool, error) {
	start := time.Now()
	v, ok, err := s.next.Get(ctx, key)
	s.observe("get", start, err)
	return v, ok, err
}

func (s *InstrumentedStore) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	err := s.next.Set(ctx, key, value)
	s.observe("set", start, err)
	return err
}

func (s *InstrumentedStore) Remove(ctx context.Context, key string) error {
	start := time.Now()
	err := s.next.Remove(ctx, key)
	s.observe("remove", start, err)
	return err
}

func (s *InstrumentedStore) Contains(ctx context.Context, key string) (bool, error) {
	start := time.Now()
	ok, err := s.next.Contains(ctx, key)
	s.observe("contains", start, err)
	return ok, err
}

func (s *InstrumentedStore) Close() error {
	return s.next.Close()
}
