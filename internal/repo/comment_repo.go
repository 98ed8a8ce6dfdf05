// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for comments and
// subtasks under issues.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-issue-board/internal/domain"
)

// CreateComment inserts a comment on an issue.
func CreateComment(ctx context.Context, db *gorm.DB, issueID, authorID, content string) (*domain.Comment, error) {
	c := &domain.Comment{
		ID:        uuid.NewString(),
		IssueID:   issueID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// GetComment fetches a comment by ID.
func GetComment(ctx context.Context, db *gorm.DB, id string) (*domain.Comment, error) {
	var c domain.Comment
	if err := db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComments returns an issue's comments oldest first.
func ListComments(ctx context.Context, db *gorm.DB, issueID string) ([]domain.Comment, error) {
	var out []domain.Comment
	err := db.WithContext(ctx).
		Where("issue_id = ?", issueID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// UpdateComment replaces the content of a comment.
func UpdateComment(ctx context.Context, db *gorm.DB, id, content string) error {
	res := db.WithContext(ctx).
		Model(&domain.Comment{}).
		Where("id = ?", id).
		Update("content", content)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteComment soft-deletes a comment.
func DeleteComment(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&domain.Comment{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

//
// Subtasks
//

// CreateSubtask inserts a checklist item under an issue.
func CreateSubtask(ctx context.Context, db *gorm.DB, issueID, title string) (*domain.Subtask, error) {
	s := &domain.Subtask{
		ID:        uuid.NewString(),
		IssueID:   issueID,
		Title:     title,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// GetSubtask fetches a subtask by ID.
func GetSubtask(ctx context.Context, db *gorm.DB, id string) (*domain.Subtask, error) {
	var s domain.Subtask
	if err := db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListSubtasks returns an issue's subtasks oldest first.
func ListSubtasks(ctx context.Context, db *gorm.DB, issueID string) ([]domain.Subtask, error) {
	var out []domain.Subtask
	err := db.WithContext(ctx).
		Where("issue_id = ?", issueID).
		Order("created_at asc").
		Find(&out).Error
	return out, err
}

// UpdateSubtask applies a partial column update to a subtask.
func UpdateSubtask(ctx context.Context, db *gorm.DB, id string, fields map[string]any) error {
	res := db.WithContext(ctx).
		Model(&domain.Subtask{}).
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

// DeleteSubtask soft-deletes a subtask.
func DeleteSubtask(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Delete(&domain.Subtask{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
