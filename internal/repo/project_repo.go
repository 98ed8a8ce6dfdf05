// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for projects,
// statuses, and labels.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-issue-board/internal/domain"
)

// CreateProject inserts a new Project row under teamID.
func CreateProject(ctx context.Context, db *gorm.DB, teamID, name, description string) (*domain.Project, error) {
	p := &domain.Project{
		ID:          uuid.NewString(),
		TeamID:      teamID,
		Name:        name,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(p).Error; err != nil {
		return nil, err
	}
	return p, nil
}

// GetProject fetches a project by ID, or ErrNotFound if missing/soft-deleted.
func GetProject(ctx context.Context, db *gorm.DB, id string) (*domain.Project, error) {
	var p domain.Project
	if err := db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects returns the live projects of a team, newest first.
func ListProjects(ctx context.Context, db *gorm.DB, teamID string) ([]domain.Project, error) {
	var out []domain.Project
	err := db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("created_at desc").
		Find(&out).Error
	return out, err
}

// UpdateProject applies a partial column update to a project.
func UpdateProject(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// SetProjectArchived sets or clears the archived_at marker.
func SetProjectArchived(ctx context.Context, db *gorm.DB, id string, archived bool) error {
	var val any
	if archived {
		val = time.Now().UTC()
	}
	return UpdateProject(ctx, db, id, map[string]any{"archived_at": val})
}

// DeleteProject soft-deletes a project.
func DeleteProject(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&domain.Project{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

//
// Statuses
//

// CreateStatus inserts a new board column.
func CreateStatus(ctx context.Context, db *gorm.DB, projectID, name string, position int, wipLimit *int) (*domain.Status, error) {
	s := &domain.Status{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      name,
		Position:  position,
		WIPLimit:  wipLimit,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetStatus fetches a status by ID.
func GetStatus(ctx context.Context, db *gorm.DB, id string) (*domain.Status, error) {
	var s domain.Status
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// GetStatusByName fetches a project's status by its display name.
func GetStatusByName(ctx context.Context, db *gorm.DB, projectID, name string) (*domain.Status, error) {
	var s domain.Status
	err := db.WithContext(ctx).
		Where("project_id = ? AND name = ?", projectID, name).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// ListStatuses returns a project's columns ordered by position.
func ListStatuses(ctx context.Context, db *gorm.DB, projectID string) ([]domain.Status, error) {
	var out []domain.Status
	err := db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("position asc").
		Find(&out).Error
	return out, err
}

// UpdateStatus applies a partial column update to a status.
func UpdateStatus(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Status{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteStatus soft-deletes a column.
func DeleteStatus(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&domain.Status{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

//
// Labels
//

// CreateLabel inserts a project-scoped label.
func CreateLabel(ctx context.Context, db *gorm.DB, projectID, name, color string) (*domain.Label, error) {
	l := &domain.Label{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		Name:      name,
		Color:     color,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		return nil, err
	}
	return l, nil
}

// GetLabel fetches a label by ID.
func GetLabel(ctx context.Context, db *gorm.DB, id string) (*domain.Label, error) {
	var l domain.Label
	if err := db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLabels returns a project's labels ordered by name.
func ListLabels(ctx context.Context, db *gorm.DB, projectID string) ([]domain.Label, error) {
	var out []domain.Label
	err := db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("name asc").
		Find(&out).Error
	return out, err
}

// UpdateLabel applies a partial column update to a label.
func UpdateLabel(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Label{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteLabel soft-deletes a label.
func DeleteLabel(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&domain.Label{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
