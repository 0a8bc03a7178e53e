package queue

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestEnqueueDequeue_Roundtrip(t *testing.T) {
	q := New(4, 3)

	id, err := q.Enqueue("req-1", "user-1")
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty task id")
	}

	got, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if got.ID != id || got.RequestID != "req-1" || got.UserID != "user-1" {
		t.Fatalf("unexpected task: %+v", got)
	}
	if got.Attempt != 1 {
		t.Fatalf("first delivery should have attempt=1, got %d", got.Attempt)
	}
}

func TestEnqueue_Full(t *testing.T) {
	q := New(1, 1)
	if _, err := q.Enqueue("a", "u"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := q.Enqueue("b", "u"); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
}

func TestDequeue_ContextCancel(t *testing.T) {
	q := New(1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline, got %v", err)
	}
}

func TestNack_RedeliversWithIncrementedAttempt(t *testing.T) {
	q := New(2, 3)
	_, _ = q.Enqueue("req-1", "u")

	task, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue: %v", err)
	}

	if !q.Nack(task) {
		t.Fatal("expected redelivery below the attempt cap")
	}

	redelivered, err := q.Dequeue(context.Background())
	if err != nil {
		t.Fatalf("dequeue redelivery: %v", err)
	}
	if redelivered.Attempt != 2 {
		t.Fatalf("attempt = %d, want 2", redelivered.Attempt)
	}
	if redelivered.ID != task.ID {
		t.Fatalf("redelivery must keep the task id: %q vs %q", redelivered.ID, task.ID)
	}
}

func TestNack_ExhaustedAttempts(t *testing.T) {
	q := New(2, 2)
	_, _ = q.Enqueue("req-1", "u")

	task, _ := q.Dequeue(context.Background())
	if !q.Nack(task) {
		t.Fatal("attempt 1 of 2 should be redelivered")
	}
	task, _ = q.Dequeue(context.Background())
	if q.Nack(task) {
		t.Fatal("attempt 2 of 2 must not be redelivered")
	}
}

func TestClose_DrainsThenErrClosed(t *testing.T) {
	q := New(2, 1)
	_, _ = q.Enqueue("req-1", "u")
	q.Close()

	// Buffered task still delivered.
	if _, err := q.Dequeue(context.Background()); err != nil {
		t.Fatalf("dequeue after close: %v", err)
	}
	// Then the queue reports closed.
	if _, err := q.Dequeue(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}

	if _, err := q.Enqueue("req-2", "u"); !errors.Is(err, ErrClosed) {
		t.Fatalf("enqueue after close: expected ErrClosed, got %v", err)
	}
	if q.Nack(Task{ID: "x", Attempt: 0}) {
		t.Fatal("nack after close must not redeliver")
	}
}

func TestLen(t *testing.T) {
	q := New(4, 1)
	if q.Len() != 0 {
		t.Fatalf("len = %d, want 0", q.Len())
	}
	_, _ = q.Enqueue("a", "u")
	_, _ = q.Enqueue("b", "u")
	if q.Len() != 2 {
		t.Fatalf("len = %d, want 2", q.Len())
	}
}
