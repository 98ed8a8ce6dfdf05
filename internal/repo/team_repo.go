// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for teams and
// team memberships.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic, only CRUD
// persistence and query composition.
//
// Error semantics:
//   - When a row is not found, functions return gorm.ErrRecordNotFound
//     (also exported here as ErrNotFound for convenience).
//   - On DB errors (constraint violations, connectivity issues, etc.),
//     the raw gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-issue-board/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateTeam inserts a new Team row owned by ownerID with the given name.
// The team ID is a randomly generated UUID, and CreatedAt is set to UTC.
func CreateTeam(ctx context.Context, db *gorm.DB, ownerID, name string) (*domain.Team, error) {
	t := &domain.Team{
		ID:        uuid.NewString(),
		Name:      name,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(t).Error; err != nil {
		return nil, err
	}
	return t, nil
}

// GetTeam fetches a single team by its ID, or ErrNotFound if missing.
func GetTeam(ctx context.Context, db *gorm.DB, id string) (*domain.Team, error) {
	var t domain.Team
	if err := db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTeamsForUser returns the teams where userID has a live membership,
// ordered by creation time descending.
func ListTeamsForUser(ctx context.Context, db *gorm.DB, userID string) ([]domain.Team, error) {
	var out []domain.Team
	err := db.WithContext(ctx).
		Joins("JOIN team_members ON team_members.team_id = teams.id AND team_members.deleted_at IS NULL").
		Where("team_members.user_id = ?", userID).
		Order("teams.created_at desc").
		Find(&out).Error
	return out, err
}

// UpdateTeamName renames a team. Returns ErrNotFound when no row matched.
func UpdateTeamName(ctx context.Context, db *gorm.DB, id, name string) error {
	res := db.WithContext(ctx).
		Model(&domain.Team{}).
		Where("id = ?", id).
		Update("name", name)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteTeam soft-deletes a team.
func DeleteTeam(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&domain.Team{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetMembership fetches the live membership row for (teamID, userID), or
// ErrNotFound when the user is not a member.
func GetMembership(ctx context.Context, db *gorm.DB, teamID, userID string) (*domain.TeamMember, error) {
	var m domain.TeamMember
	err := db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// AddMember inserts a membership row. When a soft-deleted row exists for the
// same (teamID, userID) pair it is restored instead (re-joining a team), with
// the role reset to the given value.
func AddMember(ctx context.Context, db *gorm.DB, teamID, userID, role string) (*domain.TeamMember, error) {
	// Restore path: unique index covers soft-deleted rows too on this driver.
	var prior domain.TeamMember
	err := db.WithContext(ctx).Unscoped().
		Where("team_id = ? AND user_id = ?", teamID, userID).
		First(&prior).Error
	if err == nil {
		res := db.WithContext(ctx).Unscoped().
			Model(&domain.TeamMember{}).
			Where("id = ?", prior.ID).
			Updates(map[string]any{"deleted_at": nil, "role": role})
		if res.Error != nil {
			return nil, res.Error
		}
		prior.Role = role
		prior.DeletedAt = gorm.DeletedAt{}
		return &prior, nil
	}

	m := &domain.TeamMember{
		ID:        uuid.NewString(),
		TeamID:    teamID,
		UserID:    userID,
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return m, nil
}

// ListMembers returns all live memberships of a team, oldest first.
func ListMembers(ctx context.Context, db *gorm.DB, teamID string) ([]domain.TeamMember, error) {
	var out []domain.TeamMember
	err := db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// RemoveMember soft-deletes a membership row.
func RemoveMember(ctx context.Context, db *gorm.DB, teamID, userID string) error {
	res := db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&domain.TeamMember{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UpdateMemberRole changes the role of a live membership row.
func UpdateMemberRole(ctx context.Context, db *gorm.DB, teamID, userID, role string) error {
	res := db.WithContext(ctx).
		Model(&domain.TeamMember{}).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
