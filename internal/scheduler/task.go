package scheduler

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
)

// Task is a unit of work executed every Interval.
type Task struct {
	// Name is used in log messages.
	Name string
	// Interval is the wait between the end of one run and the start of the next.
	Interval time.Duration
	// RunFunc is executed on each run. Errors are logged and do not stop the loop.
	RunFunc func(ctx context.Context) error
	logger  *logrus.Entry
}

// NewTask creates a new periodic task.
func NewTask(name string, interval time.Duration, runFunc func(ctx context.Context) error, logger *logrus.Entry) *Task {
	return &Task{
		Name:     name,
		Interval: interval,
		RunFunc:  runFunc,
		logger:   logger.WithField("task", name),
	}
}

// Run executes the task immediately and then once per Interval on clk until
// ctx is done.
func (t *Task) Run(ctx context.Context, clk clock.Clock) {
	t.logger.WithField("interval", t.Interval).Info("task started")

	for {
		t.execute(ctx, clk)

		select {
		case <-ctx.Done():
			t.logger.Info("task stopping (context cancelled)")
			return
		case <-clk.After(t.Interval):
		}
	}
}

func (t *Task) execute(ctx context.Context, clk clock.Clock) {
	start := clk.Now()
	err := t.RunFunc(ctx)
	log := t.logger.WithField("duration", clk.Now().Sub(start).Round(time.Millisecond))
	if err != nil {
		log.WithError(err).Error("task execution failed")
		return
	}
	log.Debug("task execution completed")
}
