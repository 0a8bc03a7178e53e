package services

import (
	"context"
	"errors"
	"testing"

	"github.com/cspark/dearai-backend/internal/repo"
)

func TestContact_CreateAndList(t *testing.T) {
	db := newTestDB(t)
	svc := NewContactService(db)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1", " zoe@corp.example ", " Zoe ", "sales"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, "u1", "adam@corp.example", "Adam", "eng"); err != nil {
		t.Fatalf("create: %v", err)
	}

	items, err := svc.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
	// Ordered by name; input was trimmed.
	if items[0].Name != "Adam" || items[1].Name != "Zoe" {
		t.Fatalf("unexpected order: %q, %q", items[0].Name, items[1].Name)
	}
	if items[1].Email != "zoe@corp.example" {
		t.Fatalf("email not trimmed: %q", items[1].Email)
	}
}

func TestContact_Groups(t *testing.T) {
	db := newTestDB(t)
	svc := NewContactService(db)
	ctx := context.Background()

	_, _ = svc.Create(ctx, "u1", "a@x.example", "A", "eng")
	_, _ = svc.Create(ctx, "u1", "b@x.example", "B", "eng")
	_, _ = svc.Create(ctx, "u1", "c@x.example", "C", "sales")
	_, _ = svc.Create(ctx, "u1", "d@x.example", "D", "")
	_, _ = svc.Create(ctx, "u2", "e@x.example", "E", "foreign")

	groups, err := svc.Groups(ctx, "u1")
	if err != nil {
		t.Fatalf("groups: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("groups = %v, want [eng sales]", groups)
	}
	for _, g := range groups {
		if g != "eng" && g != "sales" {
			t.Fatalf("unexpected group %q", g)
		}
	}
}

func TestContact_Update(t *testing.T) {
	db := newTestDB(t)
	svc := NewContactService(db)
	ctx := context.Background()

	ct, _ := svc.Create(ctx, "u1", "a@x.example", "A", "eng")

	name := "Alice"
	got, err := svc.Update(ctx, "u1", ct.ID, ContactUpdate{Name: &name})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Name != "Alice" || got.Email != "a@x.example" || got.Group != "eng" {
		t.Fatalf("partial update went wrong: %+v", got)
	}
}

func TestContact_UpdateForeignOrMissing(t *testing.T) {
	db := newTestDB(t)
	svc := NewContactService(db)
	ctx := context.Background()

	ct, _ := svc.Create(ctx, "owner", "a@x.example", "A", "")

	name := "X"
	if _, err := svc.Update(ctx, "intruder", ct.ID, ContactUpdate{Name: &name}); !errors.Is(err, ErrContactNotFound) {
		t.Fatalf("foreign update: expected ErrContactNotFound, got %v", err)
	}
	if _, err := svc.Update(ctx, "owner", "nope", ContactUpdate{Name: &name}); !errors.Is(err, ErrContactNotFound) {
		t.Fatalf("missing update: expected ErrContactNotFound, got %v", err)
	}
}

func TestContact_Delete(t *testing.T) {
	db := newTestDB(t)
	svc := NewContactService(db)
	ctx := context.Background()

	ct, _ := svc.Create(ctx, "u1", "a@x.example", "A", "")
	if err := svc.Delete(ctx, "u1", ct.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, "u1", ct.ID); !errors.Is(err, ErrContactNotFound) {
		t.Fatalf("second delete: expected ErrContactNotFound, got %v", err)
	}

	// Deleted contacts no longer resolve as recipients.
	if _, err := repo.FindContactByEmail(ctx, db, "u1", "a@x.example"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("deleted contact still resolvable: %v", err)
	}
}
