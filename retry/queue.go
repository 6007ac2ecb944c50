package retry

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

const (
	// ATLookupCapacity bounds concurrent trade AT address lookups.
	ATLookupCapacity = 10
	// FileReaderCapacity makes decoding of resource bodies strictly sequential.
	FileReaderCapacity = 1
)

// Queue is a bounded-concurrency admission queue. Waiters are admitted in
// FIFO order and a slot is released on every exit path of a task.
type Queue struct {
	name     string
	capacity int64
	sem      *semaphore.Weighted
	running  atomic.Int64
	waiting  atomic.Int64
}

// NewQueue creates a queue admitting at most capacity tasks at once.
func NewQueue(name string, capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{
		name:     name,
		capacity: int64(capacity),
		sem:      semaphore.NewWeighted(int64(capacity)),
	}
}

// Capacity returns the configured slot count.
func (q *Queue) Capacity() int { return int(q.capacity) }

// Running returns the number of tasks currently holding a slot.
func (q *Queue) Running() int { return int(q.running.Load()) }

// Waiting returns the number of tasks queued for a slot.
func (q *Queue) Waiting() int { return int(q.waiting.Load()) }

// Enqueue waits for a slot, runs task and releases the slot, even if task
// fails or panics. A context cancelled while waiting abandons the wait
// without running task.
func Enqueue[T any](ctx context.Context, q *Queue, task func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	q.waiting.Add(1)
	err := q.sem.Acquire(ctx, 1)
	q.waiting.Add(-1)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Enqueue",
			"queue":    q.name,
			"error":    err.Error(),
		}).Debug("Abandoned queue wait")
		return zero, err
	}

	q.running.Add(1)
	defer func() {
		q.running.Add(-1)
		q.sem.Release(1)
	}()

	return task(ctx)
}
