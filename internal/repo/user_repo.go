// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model,
// including the per-user exclusion keyword list consumed by the revision
// engine.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cspark/dearai-backend/internal/domain"
)

// GetUser fetches a user by ID, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	if err := db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// UpsertUserByEmail finds the user with the given email or creates one with
// a fresh UUID. Used by the OAuth callback, which only knows the verified
// email identity.
func UpsertUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err == nil {
		return &u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	u = domain.User{
		ID:        uuid.NewString(),
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	u.SetKeywords(nil)
	if err := db.WithContext(ctx).Create(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserKeywords returns the user's exclusion keyword list. A user without
// keywords yields an empty slice.
func GetUserKeywords(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	u, err := GetUser(ctx, db, userID)
	if err != nil {
		return nil, err
	}
	return u.Keywords(), nil
}

// SetUserKeywords replaces the user's exclusion keyword list. If no rows are
// affected (user missing), it returns ErrNotFound.
func SetUserKeywords(ctx context.Context, db *gorm.DB, userID string, keywords []string) error {
	u := domain.User{}
	u.SetKeywords(keywords)
	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ?", userID).
		Update("filter_keywords", u.FilterKeywords)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
