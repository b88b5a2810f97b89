// Package scheduler runs the user state collectors at a fixed interval, with
// on-demand refreshes through a task queue.
package scheduler

import (
	"context"
	"sync"

	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
)

// Scheduler manages a set of periodic tasks, running each in its own goroutine.
type Scheduler struct {
	tasks  []*Task
	clock  clock.Clock
	logger *logrus.Entry
	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewScheduler creates a scheduler whose tasks wait on clk between runs.
func NewScheduler(clk clock.Clock, logger *logrus.Entry) *Scheduler {
	return &Scheduler{
		clock:  clk,
		logger: logger.WithField("component", "scheduler"),
	}
}

// AddTask registers a task to be started when Start is called.
// It must be called before Start.
func (s *Scheduler) AddTask(task *Task) {
	s.tasks = append(s.tasks, task)
}

// Go runs fn in a goroutine tracked by the scheduler, so Stop waits for it.
func (s *Scheduler) Go(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

// Start launches a goroutine for every registered task. Each runs until ctx
// is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.logger.WithField("task_count", len(s.tasks)).Info("starting scheduler")

	for _, t := range s.tasks {
		task := t
		s.Go(func() { task.Run(ctx, s.clock) })
	}
}

// Stop cancels all running tasks and blocks until every goroutine has returned.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}
