package repo

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-issue-board/internal/domain"
)

func newIssueRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("issue_repo_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

func issueTables() []any {
	return []any{&domain.Issue{}, &domain.IssueLabel{}, &domain.Label{}}
}

func TestCreateIssue_SetsIDAndDefaults(t *testing.T) {
	db := newIssueRepoDB(t, issueTables()...)
	ctx := context.Background()

	is, err := CreateIssue(ctx, db, &domain.Issue{
		ProjectID: "p1",
		StatusID:  "s1",
		Title:     "Fix login",
		Priority:  domain.PriorityMedium,
		OwnerID:   "u1",
		Position:  0,
	})
	if err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}
	if is.ID == "" {
		t.Fatalf("expected generated ID")
	}
	got, err := GetIssue(ctx, db, is.ID)
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if got.Title != "Fix login" || got.StatusID != "s1" {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestGetIssue_PreloadsLabels(t *testing.T) {
	db := newIssueRepoDB(t, issueTables()...)
	ctx := context.Background()

	is, err := CreateIssue(ctx, db, &domain.Issue{ProjectID: "p1", StatusID: "s1", Title: "x", Priority: domain.PriorityLow, OwnerID: "u1"})
	if err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}
	lbl := domain.Label{ID: "l1", ProjectID: "p1", Name: "bug", Color: "#ff0000"}
	if err := db.Create(&lbl).Error; err != nil {
		t.Fatalf("seed label: %v", err)
	}
	if err := AttachLabel(ctx, db, is.ID, "l1"); err != nil {
		t.Fatalf("AttachLabel: %v", err)
	}
	// Re-attach must not fail.
	if err := AttachLabel(ctx, db, is.ID, "l1"); err != nil {
		t.Fatalf("re-AttachLabel: %v", err)
	}

	got, err := GetIssue(ctx, db, is.ID)
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if len(got.Labels) != 1 || got.Labels[0].Name != "bug" {
		t.Fatalf("expected one label 'bug', got %#v", got.Labels)
	}

	if err := DetachLabel(ctx, db, is.ID, "l1"); err != nil {
		t.Fatalf("DetachLabel: %v", err)
	}
	if err := DetachLabel(ctx, db, is.ID, "l1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second detach, got %v", err)
	}
}

func TestListIssuesByProject_BoardOrder(t *testing.T) {
	db := newIssueRepoDB(t, issueTables()...)
	ctx := context.Background()

	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	seed := []domain.Issue{
		{ID: "i3", ProjectID: "p1", StatusID: "s2", Title: "c", Priority: "LOW", OwnerID: "u1", Position: 0, CreatedAt: t0},
		{ID: "i1", ProjectID: "p1", StatusID: "s1", Title: "a", Priority: "LOW", OwnerID: "u1", Position: 1, CreatedAt: t0},
		{ID: "i2", ProjectID: "p1", StatusID: "s1", Title: "b", Priority: "LOW", OwnerID: "u1", Position: 0, CreatedAt: t0},
		{ID: "ix", ProjectID: "p2", StatusID: "s9", Title: "other", Priority: "LOW", OwnerID: "u1", Position: 0, CreatedAt: t0},
	}
	for i := range seed {
		if err := db.Create(&seed[i]).Error; err != nil {
			t.Fatalf("seed %s: %v", seed[i].ID, err)
		}
	}

	list, err := ListIssuesByProject(ctx, db, "p1")
	if err != nil {
		t.Fatalf("ListIssuesByProject: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 issues, got %d", len(list))
	}
	// Within s1 position ascending, then s2.
	if list[0].ID != "i2" || list[1].ID != "i1" || list[2].ID != "i3" {
		t.Fatalf("unexpected order: %s %s %s", list[0].ID, list[1].ID, list[2].ID)
	}
}

func TestMoveIssue_OnlyTouchesPlacement(t *testing.T) {
	db := newIssueRepoDB(t, issueTables()...)
	ctx := context.Background()

	is, err := CreateIssue(ctx, db, &domain.Issue{ProjectID: "p1", StatusID: "s1", Title: "keep me", Priority: "HIGH", OwnerID: "u1", Position: 2})
	if err != nil {
		t.Fatalf("CreateIssue: %v", err)
	}
	if err := MoveIssue(ctx, db, is.ID, "s2", 5); err != nil {
		t.Fatalf("MoveIssue: %v", err)
	}
	got, err := GetIssue(ctx, db, is.ID)
	if err != nil {
		t.Fatalf("GetIssue: %v", err)
	}
	if got.StatusID != "s2" || got.Position != 5 {
		t.Fatalf("placement not updated: %+v", got)
	}
	if got.Title != "keep me" || got.Priority != "HIGH" {
		t.Fatalf("non-placement fields changed: %+v", got)
	}
}

func TestMoveIssue_NotFound(t *testing.T) {
	db := newIssueRepoDB(t, issueTables()...)
	if err := MoveIssue(context.Background(), db, "missing", "s1", 0); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNextPosition_EmptyAndOccupied(t *testing.T) {
	db := newIssueRepoDB(t, issueTables()...)
	ctx := context.Background()

	pos, err := NextPosition(ctx, db, "s1")
	if err != nil {
		t.Fatalf("NextPosition empty: %v", err)
	}
	if pos != 0 {
		t.Fatalf("expected 0 for empty column, got %d", pos)
	}

	for i, id := range []string{"a", "b", "c"} {
		is := domain.Issue{ID: id, ProjectID: "p1", StatusID: "s1", Title: id, Priority: "LOW", OwnerID: "u1", Position: i}
		if err := db.Create(&is).Error; err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	pos, err = NextPosition(ctx, db, "s1")
	if err != nil {
		t.Fatalf("NextPosition occupied: %v", err)
	}
	if pos != 3 {
		t.Fatalf("expected max+1 = 3, got %d", pos)
	}

	// Soft-deleted rows must not count.
	if err := DeleteIssue(ctx, db, "c"); err != nil {
		t.Fatalf("DeleteIssue: %v", err)
	}
	pos, err = NextPosition(ctx, db, "s1")
	if err != nil {
		t.Fatalf("NextPosition after delete: %v", err)
	}
	if pos != 2 {
		t.Fatalf("expected 2 after deleting top issue, got %d", pos)
	}
}

func TestCountLiveIssues_IgnoresSoftDeleted(t *testing.T) {
	db := newIssueRepoDB(t, issueTables()...)
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		is := domain.Issue{ID: id, ProjectID: "p1", StatusID: "s1", Title: id, Priority: "LOW", OwnerID: "u1"}
		if err := db.Create(&is).Error; err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
	if err := DeleteIssue(ctx, db, "b"); err != nil {
		t.Fatalf("DeleteIssue: %v", err)
	}
	n, err := CountLiveIssues(ctx, db, "p1")
	if err != nil {
		t.Fatalf("CountLiveIssues: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 live issue, got %d", n)
	}
}
