package repo

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIdempotency_RoundtripAndExpiry(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	rec, err := CreateIdempotency(ctx, db, "u1", "key-1", "req-1", 202, time.Hour)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.RequestID != "req-1" {
		t.Fatalf("request id = %q", rec.RequestID)
	}

	got, err := GetIdempotency(ctx, db, "u1", "key-1", now)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.RequestID != "req-1" {
		t.Fatalf("replay maps to %q, want req-1", got.RequestID)
	}

	// Expired records behave like missing ones.
	if _, err := GetIdempotency(ctx, db, "u1", "key-1", now.Add(2*time.Hour)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired key, got %v", err)
	}
}

func TestIdempotency_KeyScopedPerUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := CreateIdempotency(ctx, db, "u1", "shared-key", "req-1", 202, time.Hour); err != nil {
		t.Fatalf("create u1: %v", err)
	}
	// Same key, different user: allowed.
	if _, err := CreateIdempotency(ctx, db, "u2", "shared-key", "req-2", 202, time.Hour); err != nil {
		t.Fatalf("create u2: %v", err)
	}
	// Same (user, key): rejected.
	if _, err := CreateIdempotency(ctx, db, "u1", "shared-key", "req-3", 202, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	got, _ := GetIdempotency(ctx, db, "u2", "shared-key", now)
	if got.RequestID != "req-2" {
		t.Fatalf("u2 replay maps to %q, want req-2", got.RequestID)
	}
}
