// Package queue provides the task queue that decouples job submission from
// background processing. Each enqueued task references a persisted request by
// ID; the payload itself is never carried on the queue so workers always
// re-read current persisted state.
//
// Delivery semantics are at-least-once with late acknowledgment: a dequeued
// task stays unacknowledged until the worker commits its result. A Nack (or
// a worker crash before Ack in a brokered deployment) causes redelivery with
// an incremented attempt counter, up to a configured cap. The queue makes no
// ordering promise across tasks.
package queue

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// Common queue errors.
var (
	// ErrQueueFull is returned by Enqueue when the buffer is at capacity.
	ErrQueueFull = errors.New("queue full")
	// ErrClosed is returned when the queue has been shut down.
	ErrClosed = errors.New("queue closed")
)

// Task is one unit of background work: process the request identified by
// RequestID on behalf of UserID. ID is the queue-internal task identifier
// surfaced to clients for operational tracing only; polling never needs it.
type Task struct {
	ID        string
	RequestID string
	UserID    string
	Attempt   int
}

// Queue is an in-process, buffered task queue with explicit Ack/Nack.
// It is safe for concurrent use by one producer side (HTTP handlers) and
// many consumer goroutines (the worker pool).
type Queue struct {
	tasks       chan Task
	maxAttempts int

	mu     sync.Mutex
	closed bool
}

// New constructs a Queue with the given buffer size and redelivery cap.
// size values <= 0 are coerced to 1; maxAttempts values <= 0 are coerced to 1
// (deliver once, never redeliver).
func New(size, maxAttempts int) *Queue {
	if size <= 0 {
		size = 1
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Queue{
		tasks:       make(chan Task, size),
		maxAttempts: maxAttempts,
	}
}

// Enqueue places a work item referencing requestID onto the queue and returns
// the generated task ID. It never blocks: when the buffer is full it returns
// ErrQueueFull and the caller decides how to surface the backpressure.
func (q *Queue) Enqueue(requestID, userID string) (string, error) {
	t := Task{
		ID:        uuid.NewString(),
		RequestID: requestID,
		UserID:    userID,
		Attempt:   1,
	}

	// The lock is held across the send so Close cannot close the channel
	// between the closed check and the send.
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return "", ErrClosed
	}
	select {
	case q.tasks <- t:
		return t.ID, nil
	default:
		return "", ErrQueueFull
	}
}

// Dequeue blocks until a task is available, the context is cancelled, or the
// queue is closed and drained. Exactly one consumer receives each delivery.
func (q *Queue) Dequeue(ctx context.Context) (Task, error) {
	select {
	case t, ok := <-q.tasks:
		if !ok {
			return Task{}, ErrClosed
		}
		return t, nil
	case <-ctx.Done():
		return Task{}, ctx.Err()
	}
}

// Nack reports a failed processing attempt. When the task has attempts left
// it is redelivered (with Attempt incremented) and Nack returns true; when
// the cap is reached, or the queue is closed or full, the task is dropped and
// Nack returns false so the caller can record a terminal failure.
func (q *Queue) Nack(t Task) bool {
	if t.Attempt >= q.maxAttempts {
		return false
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}

	t.Attempt++
	select {
	case q.tasks <- t:
		return true
	default:
		return false
	}
}

// Close stops accepting new tasks. Consumers drain whatever is buffered and
// then receive ErrClosed.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.tasks)
}

// Len reports the number of buffered, undelivered tasks.
func (q *Queue) Len() int { return len(q.tasks) }
