// Package domain – issue aggregate.
//
// Issue, IssueLabel, Comment, and Subtask are mapped with GORM. Position is a
// plain integer ordering within a status column; duplicate positions are
// tolerated (the board sorts stably and last write wins), so no uniqueness
// constraint exists on (status_id, position).
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Issue priorities, stored verbatim.
const (
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"
)

// Issue represents a ticket on a project board.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - ProjectID / StatusID: board placement; StatusID determines the column.
//   - Position: order within the column, ascending. Not required to be
//     contiguous or unique.
//   - OwnerID: the creating user. AssigneeID is optional.
//   - DueDate: optional deadline, date precision.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker.
type Issue struct {
	ID          string         `json:"id"          gorm:"type:char(36);primaryKey"`
	ProjectID   string         `json:"project_id"  gorm:"type:char(36);not null;index:idx_project_issues,priority:1"`
	StatusID    string         `json:"status_id"   gorm:"type:char(36);not null;index:idx_project_issues,priority:2"`
	Title       string         `json:"title"       gorm:"type:varchar(255);not null"`
	Description string         `json:"description" gorm:"type:text"`
	Priority    string         `json:"priority"    gorm:"type:varchar(8);not null;default:'MEDIUM';check:priority IN ('HIGH','MEDIUM','LOW')"`
	OwnerID     string         `json:"owner_id"    gorm:"type:varchar(64);not null;index"`
	AssigneeID  *string        `json:"assignee_id,omitempty" gorm:"type:varchar(64);index"`
	DueDate     *time.Time     `json:"due_date,omitempty"`
	Position    int            `json:"position"    gorm:"not null;default:0"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"           gorm:"index"`

	Project Project `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	// Labels is populated via the issue_labels join table.
	Labels []Label `json:"labels,omitempty" gorm:"many2many:issue_labels;"`
}

// TableName returns the database table name for Issue.
func (Issue) TableName() string { return "issues" }

// IssueLabel is the join row between issues and labels.
type IssueLabel struct {
	IssueID   string    `json:"issue_id" gorm:"type:char(36);primaryKey"`
	LabelID   string    `json:"label_id" gorm:"type:char(36);primaryKey"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for IssueLabel.
func (IssueLabel) TableName() string { return "issue_labels" }

// Comment is a user-authored note on an issue.
type Comment struct {
	ID        string         `json:"id"        gorm:"type:char(36);primaryKey"`
	IssueID   string         `json:"issue_id"  gorm:"type:char(36);not null;index:idx_issue_comments,priority:1"`
	AuthorID  string         `json:"author_id" gorm:"type:varchar(64);not null"`
	Content   string         `json:"content"   gorm:"type:text;not null"`
	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_issue_comments,priority:2"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"         gorm:"index"`

	// Issue is the parent ticket. Comments are cascade-deleted if their issue
	// is removed.
	Issue Issue `json:"-" gorm:"foreignKey:IssueID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Comment.
func (Comment) TableName() string { return "comments" }

// Subtask is a checklist item under an issue.
type Subtask struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	IssueID     string         `json:"issue_id"     gorm:"type:char(36);not null;index"`
	Title       string         `json:"title"        gorm:"type:varchar(255);not null"`
	IsCompleted bool           `json:"is_completed" gorm:"not null;default:false"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`

	Issue Issue `json:"-" gorm:"foreignKey:IssueID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Subtask.
func (Subtask) TableName() string { return "subtasks" }
