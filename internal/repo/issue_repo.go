// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for issues and
// their label attachments.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-issue-board/internal/domain"
)

// CreateIssue inserts a new issue row. Position placement is the caller's
// responsibility (see NextPosition).
func CreateIssue(ctx context.Context, db *gorm.DB, in *domain.Issue) (*domain.Issue, error) {
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	if err := db.WithContext(ctx).Omit("Labels").Create(in).Error; err != nil {
		return nil, err
	}
	return in, nil
}

// GetIssue fetches an issue by ID with its labels preloaded.
func GetIssue(ctx context.Context, db *gorm.DB, id string) (*domain.Issue, error) {
	var is domain.Issue
	err := db.WithContext(ctx).
		Preload("Labels").
		Where("id = ?", id).
		First(&is).Error
	if err != nil {
		return nil, err
	}
	return &is, nil
}

// ListIssuesByProject returns a project's live issues ordered for board
// rendering: by status, then position, then creation time as a stable
// tiebreaker for duplicate positions.
func ListIssuesByProject(ctx context.Context, db *gorm.DB, projectID string) ([]domain.Issue, error) {
	var out []domain.Issue
	err := db.WithContext(ctx).
		Preload("Labels").
		Where("project_id = ?", projectID).
		Order("status_id asc, position asc, created_at asc").
		Find(&out).Error
	return out, err
}

// ListIssuesByStatus returns the live issues of one column ordered by position.
func ListIssuesByStatus(ctx context.Context, db *gorm.DB, statusID string) ([]domain.Issue, error) {
	var out []domain.Issue
	err := db.WithContext(ctx).
		Where("status_id = ?", statusID).
		Order("position asc, created_at asc").
		Find(&out).Error
	return out, err
}

// ListRecentIssues returns up to limit live issues of a project, newest
// first, optionally excluding one issue. Used to bound duplicate-detection
// candidate sets.
func ListRecentIssues(ctx context.Context, db *gorm.DB, projectID, excludeID string, limit int) ([]domain.Issue, error) {
	q := db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("created_at desc").
		Limit(limit)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var out []domain.Issue
	err := q.Find(&out).Error
	return out, err
}

// UpdateIssue applies a partial column update to an issue.
func UpdateIssue(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Issue{}).
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

// MoveIssue updates only the board placement columns of one issue. Nothing
// else on the row changes, and sibling issues are never touched.
func MoveIssue(ctx context.Context, db *gorm.DB, id, statusID string, position int) error {
	return UpdateIssue(ctx, db, id, map[string]any{
		"status_id": statusID,
		"position":  position,
	})
}

// DeleteIssue soft-deletes an issue.
func DeleteIssue(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&domain.Issue{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountLiveIssues returns the number of non-deleted issues in a project.
func CountLiveIssues(ctx context.Context, db *gorm.DB, projectID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Issue{}).
		Where("project_id = ?", projectID).
		Count(&n).Error
	return n, err
}

// NextPosition returns max(position)+1 among the live issues of a column,
// or 0 for an empty column.
func NextPosition(ctx context.Context, db *gorm.DB, statusID string) (int, error) {
	var row struct {
		Position int
	}
	res := db.WithContext(ctx).
		Model(&domain.Issue{}).
		Select("position").
		Where("status_id = ?", statusID).
		Order("position DESC").
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, nil
	}
	return row.Position + 1, nil
}

// AttachLabel links a label to an issue. Re-attaching is a no-op.
func AttachLabel(ctx context.Context, db *gorm.DB, issueID, labelID string) error {
	row := domain.IssueLabel{IssueID: issueID, LabelID: labelID, CreatedAt: time.Now().UTC()}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}

// DetachLabel removes a label from an issue. Returns ErrNotFound when the
// pair was not attached.
func DetachLabel(ctx context.Context, db *gorm.DB, issueID, labelID string) error {
	res := db.WithContext(ctx).
		Where("issue_id = ? AND label_id = ?", issueID, labelID).
		Delete(&domain.IssueLabel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
