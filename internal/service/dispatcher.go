package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/edupay-dashboard/pkg/jobs"
)

// Dispatcher runs fetch tasks off the mutating goroutine.
type Dispatcher interface {
	Dispatch(kind string, task func()) error
}

// InlineDispatcher runs tasks on the caller's goroutine.
type InlineDispatcher struct{}

// Dispatch runs task immediately.
func (InlineDispatcher) Dispatch(_ string, task func()) error {
	task()
	return nil
}

const fetchJobType = "fetch"

// QueueDispatcher hands tasks to a worker pool. Fetches are never retried:
// a failed fetch surfaces to the view, which offers an explicit retry.
type QueueDispatcher struct {
	queue *jobs.Queue
}

// NewQueueDispatcher builds a dispatcher on top of a jobs.Queue.
func NewQueueDispatcher(cfg jobs.QueueConfig) *QueueDispatcher {
	cfg.MaxRetries = -1
	queue := jobs.NewQueue(fetchJobType, func(_ context.Context, job jobs.Job) error {
		task, ok := job.Payload.(func())
		if !ok {
			return fmt.Errorf("unexpected payload %T", job.Payload)
		}
		task()
		return nil
	}, cfg)
	return &QueueDispatcher{queue: queue}
}

// Start launches the workers.
func (d *QueueDispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop drains the workers.
func (d *QueueDispatcher) Stop() {
	d.queue.Stop()
}

// Dispatch enqueues task.
func (d *QueueDispatcher) Dispatch(kind string, task func()) error {
	return d.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: kind, Payload: task})
}
