package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yigit/campuskizuna/internal/app/models"
	"github.com/yigit/campuskizuna/internal/pkg/apperrors"
)

func newClassrooms() *MemoryCollection[models.Classroom] {
	return NewMemoryCollection("classrooms", (*models.Classroom).GetID, classroomIndexes...)
}

func TestMemoryCollectionInsertAndFind(t *testing.T) {
	ctx := context.Background()
	c := newClassrooms()

	if err := c.Insert(ctx, &models.Classroom{ID: "bca_2a", Department: "BCA", Semester: 2, StudentIDs: []string{"student01"}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := c.Insert(ctx, &models.Classroom{ID: "bca_2b", Department: "BCA", Semester: 2}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := c.Insert(ctx, &models.Classroom{ID: "bca_4a", Department: "BCA", Semester: 4}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	err := c.Insert(ctx, &models.Classroom{ID: "bca_2a"})
	if !errors.Is(err, apperrors.ErrResourceAlreadyExists) {
		t.Fatalf("duplicate insert err = %v, want ErrResourceAlreadyExists", err)
	}

	got, err := c.Find(ctx, Where{"department": "BCA", "semester": 2})
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if len(got) != 2 || got[0].ID != "bca_2a" || got[1].ID != "bca_2b" {
		t.Fatalf("Find returned %d docs, want bca_2a and bca_2b", len(got))
	}

	members, err := c.Find(ctx, Where{"studentIds": Member("student01")})
	if err != nil {
		t.Fatalf("Find member: %v", err)
	}
	if len(members) != 1 || members[0].ID != "bca_2a" {
		t.Fatalf("member filter returned %v", members)
	}

	if _, err := c.Find(ctx, Where{"name": "x"}); err == nil {
		t.Fatal("expected error for unindexed field")
	}
}

func TestMemoryCollectionReturnsCopies(t *testing.T) {
	ctx := context.Background()
	c := newClassrooms()
	_ = c.Insert(ctx, &models.Classroom{ID: "bca_2a", StudentIDs: []string{"student01"}})

	first, _ := c.FindByID(ctx, "bca_2a")
	first.StudentIDs = append(first.StudentIDs, "student02")

	second, _ := c.FindByID(ctx, "bca_2a")
	if len(second.StudentIDs) != 1 {
		t.Fatalf("stored document was mutated through a returned copy: %v", second.StudentIDs)
	}
}

func TestMemoryCollectionReplaceAndDelete(t *testing.T) {
	ctx := context.Background()
	c := newClassrooms()

	if err := c.Replace(ctx, &models.Classroom{ID: "missing"}); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Fatalf("Replace missing err = %v", err)
	}

	_ = c.Insert(ctx, &models.Classroom{ID: "bca_2a", Name: "BCA 2A"})
	if err := c.Replace(ctx, &models.Classroom{ID: "bca_2a", Name: "BCA Section A"}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	got, _ := c.FindByID(ctx, "bca_2a")
	if got.Name != "BCA Section A" {
		t.Fatalf("Name = %q after replace", got.Name)
	}

	if err := c.Delete(ctx, "bca_2a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.FindByID(ctx, "bca_2a"); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Fatalf("FindByID after delete err = %v", err)
	}
	if err := c.Delete(ctx, "bca_2a"); !errors.Is(err, apperrors.ErrResourceNotFound) {
		t.Fatalf("second Delete err = %v", err)
	}
}

func TestMemoryCollectionSaveAllUpserts(t *testing.T) {
	ctx := context.Background()
	c := newClassrooms()
	_ = c.Insert(ctx, &models.Classroom{ID: "a", Name: "old"})

	if err := c.SaveAll(ctx, &models.Classroom{ID: "a", Name: "new"}, &models.Classroom{ID: "b", Name: "fresh"}); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	all, _ := c.Find(ctx, nil)
	if len(all) != 2 || all[0].Name != "new" || all[1].Name != "fresh" {
		t.Fatalf("unexpected docs after SaveAll: %+v", all)
	}

	_ = c.DeleteAll(ctx, "a", "b", "unknown")
	all, _ = c.Find(ctx, nil)
	if len(all) != 0 {
		t.Fatalf("DeleteAll left %d docs", len(all))
	}
}

func TestMemorySessionStoreExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	store := NewMemorySessionStore(func() time.Time { return now })

	_ = store.Save(ctx, &models.Session{ID: "live", State: models.StateActive, ExpiresAt: now.Add(time.Hour)})
	_ = store.Save(ctx, &models.Session{ID: "stale", State: models.StateRoleSelection, ExpiresAt: now.Add(-time.Minute)})

	if _, err := store.Get(ctx, "live"); err != nil {
		t.Fatalf("Get live: %v", err)
	}
	if _, err := store.Get(ctx, "stale"); !errors.Is(err, apperrors.ErrSessionNotFound) {
		t.Fatalf("Get stale err = %v", err)
	}

	removed, _ := store.DeleteExpired(ctx, now)
	if removed != 1 {
		t.Fatalf("DeleteExpired removed %d, want 1", removed)
	}
}
