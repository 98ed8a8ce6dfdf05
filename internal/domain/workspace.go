// Package domain defines the persistence models for teams, projects, issues,
// and the AI bookkeeping tables. These types are mapped with GORM and form
// the core data layer of the issue tracker.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// Team roles, ordered by privilege. Role strings are stored verbatim in the
// team_members table and checked by the service layer.
const (
	RoleOwner  = "OWNER"
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

// Team represents a workspace that owns projects. Membership and roles live
// in TeamMember rows; OwnerID is denormalized for quick ownership checks.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Name: human-readable team name.
//   - OwnerID: identifier of the creating user; also present as an OWNER row
//     in team_members.
//   - CreatedAt / UpdatedAt: timestamps managed by GORM.
//   - DeletedAt: soft deletion marker (retains row for audit/history).
type Team struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string         `json:"name"       gorm:"type:varchar(255);not null"`
	OwnerID   string         `json:"owner_id"   gorm:"type:varchar(64);not null;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`
}

// TableName returns the database table name for Team.
func (Team) TableName() string { return "teams" }

// TeamMember links a user to a team with a role. A user can be a member of a
// team at most once (enforced by unique index); re-adding a removed member
// restores the soft-deleted row.
type TeamMember struct {
	ID        string         `json:"id"      gorm:"type:char(36);primaryKey"`
	TeamID    string         `json:"team_id" gorm:"type:char(36);not null;index;uniqueIndex:ux_team_user"`
	UserID    string         `json:"user_id" gorm:"type:varchar(64);not null;index;uniqueIndex:ux_team_user"`
	Role      string         `json:"role"    gorm:"type:varchar(16);not null;check:role IN ('OWNER','ADMIN','MEMBER')"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"       gorm:"index"`

	// Team is the owning workspace. Memberships are cascade-deleted if the
	// team is removed.
	Team Team `json:"-" gorm:"foreignKey:TeamID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for TeamMember.
func (TeamMember) TableName() string { return "team_members" }

// Project is a kanban board inside a team. Archiving freezes its issues
// (mutations are rejected while ArchivedAt is set) without deleting anything.
type Project struct {
	ID          string         `json:"id"          gorm:"type:char(36);primaryKey"`
	TeamID      string         `json:"team_id"     gorm:"type:char(36);not null;index"`
	Name        string         `json:"name"        gorm:"type:varchar(255);not null"`
	Description string         `json:"description" gorm:"type:text"`
	ArchivedAt  *time.Time     `json:"archived_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"           gorm:"index"`

	Team Team `json:"-" gorm:"foreignKey:TeamID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Project.
func (Project) TableName() string { return "projects" }

// Archived reports whether the project is currently archived.
func (p *Project) Archived() bool { return p.ArchivedAt != nil }

// Status is an ordered kanban column. WIPLimit is advisory only: the board
// flags columns over the limit but moves are never blocked on it.
type Status struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	ProjectID string         `json:"project_id" gorm:"type:char(36);not null;index"`
	Name      string         `json:"name"       gorm:"type:varchar(64);not null"`
	Position  int            `json:"position"   gorm:"not null;default:0"`
	WIPLimit  *int           `json:"wip_limit,omitempty" gorm:"column:wip_limit"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	Project Project `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Status.
func (Status) TableName() string { return "project_statuses" }

// Label is a project-scoped tag attachable to issues.
type Label struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	ProjectID string         `json:"project_id" gorm:"type:char(36);not null;index"`
	Name      string         `json:"name"       gorm:"type:varchar(64);not null"`
	Color     string         `json:"color"      gorm:"type:varchar(16);not null;default:'#808080'"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	Project Project `json:"-" gorm:"foreignKey:ProjectID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Label.
func (Label) TableName() string { return "labels" }
