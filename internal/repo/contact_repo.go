// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Contact
// model (the user's address book).
//
// Functions:
//
//   - CreateContact(ctx, db, userID, email, name, group) -> *domain.Contact, error
//   - ListContacts(ctx, db, userID) -> []domain.Contact, error
//   - ListContactGroups(ctx, db, userID) -> []string, error
//   - GetContact(ctx, db, id, userID) -> *domain.Contact, error
//   - FindContactByEmail(ctx, db, userID, email) -> *domain.Contact, error
//   - UpdateContact(ctx, db, id, userID, fields) -> error
//   - DeleteContact(ctx, db, id, userID) -> error
//
// All lookups are scoped to the owning user; a contact owned by someone else
// behaves like a missing row.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cspark/dearai-backend/internal/domain"
)

// CreateContact inserts a new Contact row owned by userID.
func CreateContact(ctx context.Context, db *gorm.DB, userID, email, name, group string) (*domain.Contact, error) {
	c := &domain.Contact{
		ID:        uuid.NewString(),
		UserID:    userID,
		Email:     email,
		Name:      name,
		Group:     group,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// ListContacts returns all contacts belonging to userID, ordered by name.
// It returns an empty slice if the user has no contacts.
func ListContacts(ctx context.Context, db *gorm.DB, userID string) ([]domain.Contact, error) {
	var out []domain.Contact
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("name asc").
		Find(&out).Error
	return out, err
}

// ListContactGroups returns the distinct non-empty group names across the
// user's contacts.
func ListContactGroups(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	var groups []string
	res := db.WithContext(ctx).
		Model(&domain.Contact{}).
		Where("user_id = ? AND group_name <> ''", userID).
		Distinct("group_name").
		Pluck("group_name", &groups)
	if res.Error != nil {
		return nil, res.Error
	}
	return groups, nil
}

// GetContact fetches a single contact by its ID and owner (userID). If the
// record does not exist, it returns ErrNotFound.
func GetContact(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Contact, error) {
	var c domain.Contact
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindContactByEmail resolves a submitted recipient identifier against the
// user's address book by exact email match. A miss returns ErrNotFound; the
// caller decides whether that is an error (for the job pipeline it is not).
func FindContactByEmail(ctx context.Context, db *gorm.DB, userID, email string) (*domain.Contact, error) {
	var c domain.Contact
	err := db.WithContext(ctx).
		Where("user_id = ? AND email = ?", userID, email).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateContact applies the given column updates to a contact, enforcing
// user ownership. If no rows are affected, it returns ErrNotFound.
func UpdateContact(ctx context.Context, db *gorm.DB, id, userID string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Contact{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteContact soft-deletes a contact owned by userID. If no rows are
// affected, it returns ErrNotFound.
func DeleteContact(ctx context.Context, db *gorm.DB, id, userID string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Contact{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
