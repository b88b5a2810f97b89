package scheduler

import (
	"context"

	"github.com/sirupsen/logrus"
)

// TaskQueue runs on-demand work (e.g. a refresh requested over HTTP) one item
// at a time, in FIFO order.
type TaskQueue struct {
	ch     chan func(ctx context.Context)
	logger *logrus.Entry
}

// NewTaskQueue creates a queue holding at most bufferSize pending items.
func NewTaskQueue(bufferSize int, logger *logrus.Entry) *TaskQueue {
	if bufferSize < 1 {
		bufferSize = 16
	}
	return &TaskQueue{
		ch:     make(chan func(ctx context.Context), bufferSize),
		logger: logger.WithField("component", "task_queue"),
	}
}

// Enqueue schedules fn and reports whether it was accepted. A full queue
// drops fn.
func (q *TaskQueue) Enqueue(fn func(ctx context.Context)) bool {
	select {
	case q.ch <- fn:
		q.logger.Debug("task enqueued")
		return true
	default:
		q.logger.Warn("task queue full, dropping task")
		return false
	}
}

// Start processes queued items until ctx is cancelled. A panicking item is
// logged and does not stop the queue.
func (q *TaskQueue) Start(ctx context.Context) {
	q.logger.Info("task queue started")
	for {
		select {
		case <-ctx.Done():
			q.logger.Info("task queue stopping (context cancelled)")
			return
		case fn := <-q.ch:
			func() {
				defer func() {
					if r := recover(); r != nil {
						q.logger.WithField("panic", r).Error("queued task panicked")
					}
				}()
				fn(ctx)
			}()
		}
	}
}
