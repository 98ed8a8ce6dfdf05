package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-issue-board/internal/domain"
	"github.com/tbourn/go-issue-board/internal/repo"
)

// ---------- test helpers ----------

func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

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
	err = db.AutoMigrate(
		&domain.Team{}, &domain.TeamMember{},
		&domain.Project{}, &domain.Status{}, &domain.Label{},
		&domain.Issue{}, &domain.IssueLabel{},
		&domain.Comment{}, &domain.Subtask{},
		&domain.Notification{},
	)
	if err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// workspace is a seeded team+project fixture with the default columns.
type workspace struct {
	Team     *domain.Team
	Project  *domain.Project
	Statuses map[string]*domain.Status // keyed by column name
}

// seedWorkspace creates a team owned by ownerID with the given extra members
// (userID → role) and one project with the default columns.
func seedWorkspace(t *testing.T, db *gorm.DB, ownerID string, members map[string]string) *workspace {
	t.Helper()
	ctx := context.Background()

	team, err := NewTeamService(db, nil).Create(ctx, ownerID, "Acme")
	if err != nil {
		t.Fatalf("seed team: %v", err)
	}
	for uid, role := range members {
		if _, err := repo.AddMember(ctx, db, team.ID, uid, role); err != nil {
			t.Fatalf("seed member %s: %v", uid, err)
		}
	}
	project, err := NewProjectService(db).Create(ctx, ownerID, team.ID, "Website", "the main site")
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}

	statuses, err := repo.ListStatuses(ctx, db, project.ID)
	if err != nil {
		t.Fatalf("list statuses: %v", err)
	}
	byName := make(map[string]*domain.Status, len(statuses))
	for i := range statuses {
		byName[statuses[i].Name] = &statuses[i]
	}
	return &workspace{Team: team, Project: project, Statuses: byName}
}

func notificationsFor(t *testing.T, db *gorm.DB, userID string) []domain.Notification {
	t.Helper()
	var out []domain.Notification
	if err := db.Where("user_id = ?", userID).Find(&out).Error; err != nil {
		t.Fatalf("load notifications: %v", err)
	}
	return out
}

// ---------- TeamService ----------

func TestTeamService_Create_CreatorBecomesOwner(t *testing.T) {
	db := newSvcDB(t)
	s := NewTeamService(db, nil)
	ctx := context.Background()

	team, err := s.Create(ctx, "u1", "  Platform   Team ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if team.Name != "Platform Team" || team.OwnerID != "u1" {
		t.Fatalf("unexpected team: %+v", team)
	}
	m, err := repo.GetMembership(ctx, db, team.ID, "u1")
	if err != nil {
		t.Fatalf("membership: %v", err)
	}
	if m.Role != domain.RoleOwner {
		t.Fatalf("creator should be OWNER, got %s", m.Role)
	}
}

func TestTeamService_Create_EmptyName(t *testing.T) {
	db := newSvcDB(t)
	s := NewTeamService(db, nil)
	if _, err := s.Create(context.Background(), "u1", "   "); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestTeamService_Get_HiddenFromNonMembers(t *testing.T) {
	db := newSvcDB(t)
	ws := seedWorkspace(t, db, "u-owner", nil)
	s := NewTeamService(db, nil)
	ctx := context.Background()

	if _, err := s.Get(ctx, "u-owner", ws.Team.ID); err != nil {
		t.Fatalf("owner Get: %v", err)
	}
	if _, err := s.Get(ctx, "u-stranger", ws.Team.ID); !errors.Is(err, ErrTeamNotFound) {
		t.Fatalf("stranger should see not-found, got %v", err)
	}
}

func TestTeamService_UpdateName_RoleMatrix(t *testing.T) {
	db := newSvcDB(t)
	ws := seedWorkspace(t, db, "u-owner", map[string]string{
		"u-admin":  domain.RoleAdmin,
		"u-member": domain.RoleMember,
	})
	s := NewTeamService(db, nil)
	ctx := context.Background()

	if err := s.UpdateName(ctx, "u-member", ws.Team.ID, "Renamed"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("MEMBER rename should be forbidden, got %v", err)
	}
	if err := s.UpdateName(ctx, "u-admin", ws.Team.ID, "Renamed"); err != nil {
		t.Fatalf("ADMIN rename: %v", err)
	}
	team, err := repo.GetTeam(ctx, db, ws.Team.ID)
	if err != nil {
		t.Fatalf("reload team: %v", err)
	}
	if team.Name != "Renamed" {
		t.Fatalf("rename not applied: %q", team.Name)
	}
}

func TestTeamService_AddMember(t *testing.T) {
	db := newSvcDB(t)
	ws := seedWorkspace(t, db, "u-owner", map[string]string{
		"u-admin":  domain.RoleAdmin,
		"u-member": domain.RoleMember,
	})
	s := NewTeamService(db, NewNotificationService(db))
	ctx := context.Background()

	if _, err := s.AddMember(ctx, "u-member", ws.Team.ID, "u-new", ""); !errors.Is(err, ErrForbidden) {
		t.Fatalf("MEMBER adding should be forbidden, got %v", err)
	}
	if _, err := s.AddMember(ctx, "u-admin", ws.Team.ID, "u-new", domain.RoleOwner); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("granting OWNER should be rejected, got %v", err)
	}

	m, err := s.AddMember(ctx, "u-admin", ws.Team.ID, "u-new", "")
	if err != nil {
		t.Fatalf("AddMember: %v", err)
	}
	if m.Role != domain.RoleMember {
		t.Fatalf("default role should be MEMBER, got %s", m.Role)
	}
	if _, err := s.AddMember(ctx, "u-admin", ws.Team.ID, "u-new", ""); !errors.Is(err, ErrMemberExists) {
		t.Fatalf("re-adding should report ErrMemberExists, got %v", err)
	}

	ns := notificationsFor(t, db, "u-new")
	if len(ns) != 1 || ns[0].Type != domain.NotifyMemberAdded {
		t.Fatalf("expected one member-added notification, got %#v", ns)
	}
}

func TestTeamService_RemoveMember_RoleMatrix(t *testing.T) {
	db := newSvcDB(t)
	ws := seedWorkspace(t, db, "u-owner", map[string]string{
		"u-admin":  domain.RoleAdmin,
		"u-admin2": domain.RoleAdmin,
		"u-member": domain.RoleMember,
	})
	s := NewTeamService(db, nil)
	ctx := context.Background()

	if err := s.RemoveMember(ctx, "u-admin", ws.Team.ID, "u-admin2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("ADMIN removing ADMIN should be forbidden, got %v", err)
	}
	if err := s.RemoveMember(ctx, "u-owner", ws.Team.ID, "u-owner"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("self-removal should be forbidden, got %v", err)
	}
	if err := s.RemoveMember(ctx, "u-admin", ws.Team.ID, "u-member"); err != nil {
		t.Fatalf("ADMIN removing MEMBER: %v", err)
	}
	if err := s.RemoveMember(ctx, "u-owner", ws.Team.ID, "u-admin2"); err != nil {
		t.Fatalf("OWNER removing ADMIN: %v", err)
	}
	if err := s.RemoveMember(ctx, "u-owner", ws.Team.ID, "u-member"); !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("removing a gone member should report ErrMemberNotFound, got %v", err)
	}
}

func TestTeamService_ChangeRole_OwnerOnly(t *testing.T) {
	db := newSvcDB(t)
	ws := seedWorkspace(t, db, "u-owner", map[string]string{
		"u-admin":  domain.RoleAdmin,
		"u-member": domain.RoleMember,
	})
	s := NewTeamService(db, NewNotificationService(db))
	ctx := context.Background()

	if err := s.ChangeRole(ctx, "u-admin", ws.Team.ID, "u-member", domain.RoleAdmin); !errors.Is(err, ErrForbidden) {
		t.Fatalf("ADMIN changing roles should be forbidden, got %v", err)
	}
	if err := s.ChangeRole(ctx, "u-owner", ws.Team.ID, "u-member", "SUPREME"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("bogus role should be rejected, got %v", err)
	}
	if err := s.ChangeRole(ctx, "u-owner", ws.Team.ID, "u-member", domain.RoleAdmin); err != nil {
		t.Fatalf("promote to ADMIN: %v", err)
	}
	m, _ := repo.GetMembership(ctx, db, ws.Team.ID, "u-member")
	if m.Role != domain.RoleAdmin {
		t.Fatalf("promotion not applied: %s", m.Role)
	}
	if ns := notificationsFor(t, db, "u-member"); len(ns) != 1 || ns[0].Type != domain.NotifyRoleChanged {
		t.Fatalf("expected role-changed notification, got %#v", ns)
	}
}

func TestTeamService_ChangeRole_OwnershipTransfer(t *testing.T) {
	db := newSvcDB(t)
	ws := seedWorkspace(t, db, "u-owner", map[string]string{
		"u-admin": domain.RoleAdmin,
	})
	s := NewTeamService(db, nil)
	ctx := context.Background()

	if err := s.ChangeRole(ctx, "u-owner", ws.Team.ID, "u-admin", domain.RoleOwner); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	newOwner, _ := repo.GetMembership(ctx, db, ws.Team.ID, "u-admin")
	oldOwner, _ := repo.GetMembership(ctx, db, ws.Team.ID, "u-owner")
	if newOwner.Role != domain.RoleOwner || oldOwner.Role != domain.RoleAdmin {
		t.Fatalf("roles not swapped: new=%s old=%s", newOwner.Role, oldOwner.Role)
	}
	team, _ := repo.GetTeam(ctx, db, ws.Team.ID)
	if team.OwnerID != "u-admin" {
		t.Fatalf("team owner_id not updated: %s", team.OwnerID)
	}
}

func TestTeamService_Delete_OwnerOnly(t *testing.T) {
	db := newSvcDB(t)
	ws := seedWorkspace(t, db, "u-owner", map[string]string{
		"u-admin": domain.RoleAdmin,
	})
	s := NewTeamService(db, nil)
	ctx := context.Background()

	if err := s.Delete(ctx, "u-admin", ws.Team.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("ADMIN delete should be forbidden, got %v", err)
	}
	if err := s.Delete(ctx, "u-owner", ws.Team.ID); err != nil {
		t.Fatalf("OWNER delete: %v", err)
	}
	if _, err := repo.GetTeam(ctx, db, ws.Team.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("team should be soft-deleted, got %v", err)
	}
}
