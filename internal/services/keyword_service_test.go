package services

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/cspark/dearai-backend/internal/repo"
)

func seedUser(t *testing.T, svc *KeywordService, email string) string {
	t.Helper()
	u, err := repo.UpsertUserByEmail(context.Background(), svc.DB, email)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u.ID
}

func TestKeyword_ListEmpty(t *testing.T) {
	db := newTestDB(t)
	svc := NewKeywordService(db)
	uid := seedUser(t, svc, "a@x.example")

	kw, err := svc.List(context.Background(), uid)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(kw) != 0 {
		t.Fatalf("expected empty list, got %v", kw)
	}
}

func TestKeyword_AddMergesAndDedupes(t *testing.T) {
	db := newTestDB(t)
	svc := NewKeywordService(db)
	uid := seedUser(t, svc, "a@x.example")
	ctx := context.Background()

	if _, err := svc.Add(ctx, uid, []string{"asap", " urgent ", ""}); err != nil {
		t.Fatalf("add: %v", err)
	}
	got, err := svc.Add(ctx, uid, []string{"urgent", "fyi"})
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	want := []string{"asap", "urgent", "fyi"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("merged = %v, want %v", got, want)
	}

	stored, _ := svc.List(ctx, uid)
	if !reflect.DeepEqual(stored, want) {
		t.Fatalf("stored = %v, want %v", stored, want)
	}
}

func TestKeyword_Replace(t *testing.T) {
	db := newTestDB(t)
	svc := NewKeywordService(db)
	uid := seedUser(t, svc, "a@x.example")
	ctx := context.Background()

	_, _ = svc.Add(ctx, uid, []string{"old"})
	got, err := svc.Replace(ctx, uid, []string{" new ", ""})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"new"}) {
		t.Fatalf("replaced = %v", got)
	}
}

func TestKeyword_UnknownUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewKeywordService(db)

	if _, err := svc.List(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("list: expected ErrUserNotFound, got %v", err)
	}
	if _, err := svc.Replace(context.Background(), "ghost", []string{"x"}); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("replace: expected ErrUserNotFound, got %v", err)
	}
}
