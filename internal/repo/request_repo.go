// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Request
// model: the persisted record of one submitted revision job.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a request is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
//
// Ownership: every lookup is scoped to the owning user. A request that
// exists but belongs to someone else behaves exactly like a missing row,
// so callers cannot learn about other tenants' jobs.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cspark/dearai-backend/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateRequest inserts a new Request row owned by userID. The request ID is
// a randomly generated UUID (string), CreatedAt is set to UTC, and the status
// starts as pending. recipientID may be nil when the submitted recipient
// matched none of the user's contacts.
func CreateRequest(ctx context.Context, db *gorm.DB, userID, payload, recipientEmail string, recipientID *string) (*domain.Request, error) {
	r := &domain.Request{
		ID:             uuid.NewString(),
		UserID:         userID,
		Payload:        payload,
		RecipientEmail: recipientEmail,
		RecipientID:    recipientID,
		Status:         domain.StatusPending,
		CreatedAt:      time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	return r, nil
}

// GetRequest fetches a single request by its ID and owner (userID). If the
// record does not exist or is owned by another user, it returns ErrNotFound.
func GetRequest(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Request, error) {
	var r domain.Request
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&r).Error
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRequestsPage returns a paginated slice of a user's requests, ordered by
// creation time descending. Use CountRequests to obtain the total for
// pagination metadata.
func ListRequestsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Request, error) {
	var out []domain.Request
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// CountRequests returns the total number of requests owned by userID.
func CountRequests(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// UpdateRequestStatus transitions a request to the given status, recording a
// failure reason when one is supplied. If no rows are affected (request
// missing), it returns ErrNotFound.
//
// Only the background worker calls this; the orchestrator never mutates a
// request after creation.
func UpdateRequestStatus(ctx context.Context, db *gorm.DB, id, status, reason string) error {
	res := db.WithContext(ctx).
		Model(&domain.Request{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "failure_reason": reason})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
