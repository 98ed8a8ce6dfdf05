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

func newProjectRepoDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("project_repo_test_%d.db", time.Now().UnixNano()))
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

func TestCreateProject_RoundTrip(t *testing.T) {
	db := newProjectRepoDB(t, &domain.Project{})
	ctx := context.Background()

	p, err := CreateProject(ctx, db, "team1", "Website", "marketing site")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if p.ID == "" || p.TeamID != "team1" {
		t.Fatalf("unexpected project: %+v", p)
	}
	got, err := GetProject(ctx, db, p.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got.Name != "Website" || got.Archived() {
		t.Fatalf("round-trip mismatch: %+v", got)
	}
}

func TestSetProjectArchived_SetAndClear(t *testing.T) {
	db := newProjectRepoDB(t, &domain.Project{})
	ctx := context.Background()

	p, err := CreateProject(ctx, db, "team1", "P", "")
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if err := SetProjectArchived(ctx, db, p.ID, true); err != nil {
		t.Fatalf("archive: %v", err)
	}
	got, _ := GetProject(ctx, db, p.ID)
	if !got.Archived() {
		t.Fatalf("expected archived, got %+v", got)
	}
	if err := SetProjectArchived(ctx, db, p.ID, false); err != nil {
		t.Fatalf("unarchive: %v", err)
	}
	got, _ = GetProject(ctx, db, p.ID)
	if got.Archived() {
		t.Fatalf("expected unarchived, got %+v", got)
	}
}

func TestUpdateProject_NotFound(t *testing.T) {
	db := newProjectRepoDB(t, &domain.Project{})
	err := UpdateProject(context.Background(), db, "missing", map[string]any{"name": "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListStatuses_OrderedByPosition(t *testing.T) {
	db := newProjectRepoDB(t, &domain.Status{})
	ctx := context.Background()

	names := []struct {
		name string
		pos  int
	}{{"Done", 2}, {"Backlog", 0}, {"In Progress", 1}}
	for _, s := range names {
		if _, err := CreateStatus(ctx, db, "p1", s.name, s.pos, nil); err != nil {
			t.Fatalf("CreateStatus %s: %v", s.name, err)
		}
	}
	if _, err := CreateStatus(ctx, db, "p2", "Other", 0, nil); err != nil {
		t.Fatalf("CreateStatus other: %v", err)
	}

	list, err := ListStatuses(ctx, db, "p1")
	if err != nil {
		t.Fatalf("ListStatuses: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 statuses, got %d", len(list))
	}
	if list[0].Name != "Backlog" || list[1].Name != "In Progress" || list[2].Name != "Done" {
		t.Fatalf("unexpected order: %s %s %s", list[0].Name, list[1].Name, list[2].Name)
	}
}

func TestGetStatusByName(t *testing.T) {
	db := newProjectRepoDB(t, &domain.Status{})
	ctx := context.Background()

	wip := 3
	if _, err := CreateStatus(ctx, db, "p1", "In Progress", 1, &wip); err != nil {
		t.Fatalf("CreateStatus: %v", err)
	}
	s, err := GetStatusByName(ctx, db, "p1", "In Progress")
	if err != nil {
		t.Fatalf("GetStatusByName: %v", err)
	}
	if s.WIPLimit == nil || *s.WIPLimit != 3 {
		t.Fatalf("expected wip limit 3, got %+v", s.WIPLimit)
	}
	if _, err := GetStatusByName(ctx, db, "p1", "Missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLabels_CRUD(t *testing.T) {
	db := newProjectRepoDB(t, &domain.Label{})
	ctx := context.Background()

	l, err := CreateLabel(ctx, db, "p1", "bug", "#ff0000")
	if err != nil {
		t.Fatalf("CreateLabel: %v", err)
	}
	if err := UpdateLabel(ctx, db, l.ID, map[string]any{"color": "#00ff00"}); err != nil {
		t.Fatalf("UpdateLabel: %v", err)
	}
	got, err := GetLabel(ctx, db, l.ID)
	if err != nil {
		t.Fatalf("GetLabel: %v", err)
	}
	if got.Color != "#00ff00" {
		t.Fatalf("expected updated color, got %q", got.Color)
	}
	if err := DeleteLabel(ctx, db, l.ID); err != nil {
		t.Fatalf("DeleteLabel: %v", err)
	}
	if _, err := GetLabel(ctx, db, l.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
