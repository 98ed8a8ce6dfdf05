package domain

import (
	"time"

	"gorm.io/gorm"
)

// Notification types stored in the type column.
const (
	NotifyIssueAssigned = "ISSUE_ASSIGNED"
	NotifyCommentAdded  = "COMMENT_ADDED"
	NotifyRoleChanged   = "ROLE_CHANGED"
	NotifyMemberAdded   = "MEMBER_ADDED"
)

// Notification is an in-app message delivered to a single user. ReadAt is nil
// until the user acknowledges it.
type Notification struct {
	ID        string         `json:"id"      gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id" gorm:"type:varchar(64);not null;index:idx_user_notifications,priority:1"`
	Type      string         `json:"type"    gorm:"type:varchar(32);not null"`
	Title     string         `json:"title"   gorm:"type:varchar(255);not null"`
	Message   string         `json:"message" gorm:"type:text"`
	Link      string         `json:"link"    gorm:"type:varchar(512)"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_user_notifications,priority:2"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"       gorm:"index"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }
