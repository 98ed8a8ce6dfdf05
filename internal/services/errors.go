// Package services defines the business logic for teams, projects, issues,
// comments, subtasks, and notifications. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler/controller layer.
package services

import "errors"

// Lookup errors. Each one also covers "exists but not accessible to the
// caller": services hide rows the caller is not allowed to see.
var (
	// ErrTeamNotFound indicates that the requested team does not exist or is
	// not accessible to the current user.
	ErrTeamNotFound = errors.New("team not found")

	// ErrProjectNotFound indicates that the requested project does not exist
	// or is not accessible to the current user.
	ErrProjectNotFound = errors.New("project not found")

	// ErrStatusNotFound indicates that the requested status column does not
	// exist in the project.
	ErrStatusNotFound = errors.New("status not found")

	// ErrLabelNotFound indicates that the requested label does not exist in
	// the project.
	ErrLabelNotFound = errors.New("label not found")

	// ErrIssueNotFound indicates that the requested issue does not exist or
	// is not accessible to the current user.
	ErrIssueNotFound = errors.New("issue not found")

	// ErrCommentNotFound indicates that the requested comment does not exist.
	ErrCommentNotFound = errors.New("comment not found")

	// ErrSubtaskNotFound indicates that the requested subtask does not exist.
	ErrSubtaskNotFound = errors.New("subtask not found")

	// ErrMemberNotFound indicates that the target user has no live membership
	// in the team.
	ErrMemberNotFound = errors.New("member not found")

	// ErrNotificationNotFound indicates that the notification does not exist
	// or belongs to another user.
	ErrNotificationNotFound = errors.New("notification not found")
)

// Permission and state errors.
var (
	// ErrForbidden is returned when the caller's team role does not allow the
	// attempted operation.
	ErrForbidden = errors.New("operation not allowed for this role")

	// ErrProjectArchived is returned when a mutation targets an archived
	// project. Archived projects are read-only.
	ErrProjectArchived = errors.New("project is archived")

	// ErrIssueLimit is returned when creating an issue would exceed the
	// per-project live issue cap.
	ErrIssueLimit = errors.New("project issue limit reached")

	// ErrStatusNotEmpty is returned when deleting a status column that still
	// holds live issues.
	ErrStatusNotEmpty = errors.New("status still has issues")

	// ErrMemberExists is returned when adding a user who already has a live
	// membership in the team.
	ErrMemberExists = errors.New("user is already a member")
)

// Validation errors.
var (
	// ErrEmptyName is returned when a required name field is blank after
	// normalization.
	ErrEmptyName = errors.New("name is empty")

	// ErrEmptyTitle is returned when a required title field is blank after
	// normalization.
	ErrEmptyTitle = errors.New("title is empty")

	// ErrEmptyContent is returned when a comment body is blank.
	ErrEmptyContent = errors.New("content is empty")

	// ErrInvalidRole is returned when a role value is outside the allowed set
	// for the operation.
	ErrInvalidRole = errors.New("invalid role")

	// ErrInvalidPriority is returned when a priority value is outside
	// {HIGH, MEDIUM, LOW}.
	ErrInvalidPriority = errors.New("invalid priority")
)
