// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Result
// model: the persisted output of a completed revision.
//
// A Result is written exactly once by the background worker and is immutable
// afterwards. The unique index on request_id gives first-write-wins semantics
// when duplicate queue delivery causes two workers to race: the second insert
// fails with ErrDuplicate and the caller treats the job as already done.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cspark/dearai-backend/internal/domain"
)

// ErrDuplicate indicates that a row violating a uniqueness constraint was
// inserted, e.g. a second Result for the same request.
var ErrDuplicate = errors.New("duplicate")

// CreateResult inserts the revision output for requestID. It returns
// ErrDuplicate when a result already exists for that request.
func CreateResult(ctx context.Context, db *gorm.DB, requestID, title, body string) (*domain.Result, error) {
	res := &domain.Result{
		ID:        uuid.NewString(),
		RequestID: requestID,
		Title:     title,
		Body:      body,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(res).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return res, nil
}

// GetResultForUser fetches the result for a request, joining through the
// requests table so only the owning user can read it. A result that exists
// for another user's request behaves like a missing row.
func GetResultForUser(ctx context.Context, db *gorm.DB, requestID, userID string) (*domain.Result, error) {
	var res domain.Result
	err := db.WithContext(ctx).
		Joins("JOIN requests ON requests.id = results.request_id").
		Where("results.request_id = ? AND requests.user_id = ?", requestID, userID).
		First(&res).Error
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// isUniqueViolation detects unique-constraint violations across drivers
// that may not map to gorm.ErrDuplicatedKey.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// glebarez/sqlite often returns plain-text errors for UNIQUE violations.
	low := strings.ToLower(err.Error())
	return strings.Contains(low, "unique constraint failed") ||
		strings.Contains(low, "constraint failed: unique") ||
		strings.Contains(low, "duplicate key")
}
