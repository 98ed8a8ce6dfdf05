// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for in-app
// notifications.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-issue-board/internal/domain"
)

// CreateNotification inserts a notification addressed to userID.
func CreateNotification(ctx context.Context, db *gorm.DB, userID, typ, title, message, link string) (*domain.Notification, error) {
	n := &domain.Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		Link:      link,
		CreatedAt: time.Now().UTC(),
	}
	if err := db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, err
	}
	return n, nil
}

// ListNotifications returns a page of the user's notifications, newest first.
// When unreadOnly is set, read notifications are filtered out.
func ListNotifications(ctx context.Context, db *gorm.DB, userID string, unreadOnly bool, limit, offset int) ([]domain.Notification, error) {
	q := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Offset(offset)
	if unreadOnly {
		q = q.Where("read_at IS NULL")
	}
	var out []domain.Notification
	err := q.Find(&out).Error
	return out, err
}

// CountUnread returns the user's unread notification count.
func CountUnread(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Count(&n).Error
	return n, err
}

// MarkNotificationRead stamps read_at on one of the user's notifications.
// Already-read rows are left untouched but do not produce an error, so the
// operation is idempotent. ErrNotFound means the row does not exist or
// belongs to another user.
func MarkNotificationRead(ctx context.Context, db *gorm.DB, userID, id string, now time.Time) error {
	var n domain.Notification
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&n).Error
	if err != nil {
		return err
	}
	if n.ReadAt != nil {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ?", id).
		Update("read_at", now).Error
}

// MarkAllNotificationsRead stamps read_at on every unread notification of the
// user and returns how many rows were updated.
func MarkAllNotificationsRead(ctx context.Context, db *gorm.DB, userID string, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userID).
		Update("read_at", now)
	return res.RowsAffected, res.Error
}

// DeleteNotification soft-deletes one of the user's notifications.
func DeleteNotification(ctx context.Context, db *gorm.DB, userID, id string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
