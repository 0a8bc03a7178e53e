// Package services – KeywordService
//
// This file implements the KeywordService, which manages the per-user
// exclusion keyword list consumed by the revision engine. Add merges new
// keywords into the existing set (deduplicated, order preserved for existing
// entries); Replace overwrites the list wholesale. The list is read fresh by
// the background worker at processing time, so edits made after submission
// still apply to queued jobs.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/cspark/dearai-backend/internal/repo"
)

// KeywordService provides exclusion-keyword operations scoped to a user.
type KeywordService struct {
	DB *gorm.DB
}

// NewKeywordService constructs a KeywordService.
func NewKeywordService(db *gorm.DB) *KeywordService {
	return &KeywordService{DB: db}
}

// List returns the user's exclusion keywords (empty slice when none).
func (s *KeywordService) List(ctx context.Context, userID string) ([]string, error) {
	kw, err := repo.GetUserKeywords(ctx, s.DB, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return kw, nil
}

// Add merges the given keywords into the user's list and returns the merged
// result. Blank entries are dropped; duplicates are ignored.
func (s *KeywordService) Add(ctx context.Context, userID string, keywords []string) ([]string, error) {
	existing, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(existing))
	merged := make([]string, 0, len(existing)+len(keywords))
	for _, k := range existing {
		seen[k] = struct{}{}
		merged = append(merged, k)
	}
	for _, k := range keywords {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		merged = append(merged, k)
	}

	if err := repo.SetUserKeywords(ctx, s.DB, userID, merged); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return merged, nil
}

// Replace overwrites the user's keyword list and returns the stored value.
func (s *KeywordService) Replace(ctx context.Context, userID string, keywords []string) ([]string, error) {
	clean := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			clean = append(clean, k)
		}
	}

	if err := repo.SetUserKeywords(ctx, s.DB, userID, clean); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return clean, nil
}
