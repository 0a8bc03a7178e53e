// Package services – ContactService
//
// This file implements the ContactService, which manages the user's address
// book. It normalizes input, enforces ownership rules, and coordinates
// repository operations for creating, listing, updating, and deleting
// contacts. Service-level errors (e.g., ErrContactNotFound) are returned for
// predictable cases so handlers can map them to HTTP results consistently.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/cspark/dearai-backend/internal/domain"
	"github.com/cspark/dearai-backend/internal/repo"
)

// ContactUpdate carries the optional fields of a PATCH; nil pointers are
// left untouched.
type ContactUpdate struct {
	Name  *string
	Email *string
	Group *string
}

// ContactService provides address-book operations scoped to a user.
type ContactService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
}

// NewContactService constructs a ContactService.
func NewContactService(db *gorm.DB) *ContactService {
	return &ContactService{DB: db}
}

// Create inserts a new contact owned by userID.
func (s *ContactService) Create(ctx context.Context, userID, email, name, group string) (*domain.Contact, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	group = strings.TrimSpace(group)
	return repo.CreateContact(ctx, s.DB, userID, email, name, group)
}

// List returns all contacts for a user, ordered by name.
func (s *ContactService) List(ctx context.Context, userID string) ([]domain.Contact, error) {
	return repo.ListContacts(ctx, s.DB, userID)
}

// Groups returns the distinct non-empty group names across the user's
// contacts.
func (s *ContactService) Groups(ctx context.Context, userID string) ([]string, error) {
	return repo.ListContactGroups(ctx, s.DB, userID)
}

// Update applies partial changes to a contact, ensuring it exists and
// belongs to the given user.
func (s *ContactService) Update(ctx context.Context, userID, contactID string, upd ContactUpdate) (*domain.Contact, error) {
	fields := map[string]any{}
	if upd.Name != nil {
		fields["name"] = strings.TrimSpace(*upd.Name)
	}
	if upd.Email != nil {
		fields["email"] = strings.TrimSpace(*upd.Email)
	}
	if upd.Group != nil {
		fields["group_name"] = strings.TrimSpace(*upd.Group)
	}

	if err := repo.UpdateContact(ctx, s.DB, contactID, userID, fields); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, err
	}
	return repo.GetContact(ctx, s.DB, contactID, userID)
}

// Delete removes a contact owned by userID.
func (s *ContactService) Delete(ctx context.Context, userID, contactID string) error {
	if err := repo.DeleteContact(ctx, s.DB, contactID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrContactNotFound
		}
		return err
	}
	return nil
}
