// Package services – IssueService
//
// This file implements IssueService, the application-level component that
// owns the lifecycle of issues: creation (with the per-project live-issue
// cap and end-of-Backlog placement), board assembly via the pure reducer,
// field and label updates, drag-and-drop moves, and soft deletion.
//
// Mutations on archived projects are rejected. Successful mutations
// invalidate the issue's AI response cache so the next AI request sees fresh
// data; assignment changes notify the assignee.
//
// Observability: public methods are OpenTelemetry-instrumented; spans include
// issue/project/user identifiers.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-issue-board/internal/board"
	"github.com/tbourn/go-issue-board/internal/domain"
	"github.com/tbourn/go-issue-board/internal/repo"
)

// defaultMaxLiveIssues caps live issues per project unless configured.
const defaultMaxLiveIssues = 200

// defaultStatusName is where new issues land when no column is specified.
const defaultStatusName = "Backlog"

// CacheInvalidator clears cached AI responses for an issue after a mutation.
// Satisfied by ai.Cache.
type CacheInvalidator interface {
	InvalidateIssue(ctx context.Context, issueID string) error
}

// IssueService coordinates issue persistence, board assembly, and moves.
type IssueService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Notify delivers assignment notifications. Optional.
	Notify *NotificationService
	// Cache invalidates AI responses on mutation. Optional.
	Cache CacheInvalidator

	// MaxLiveIssues caps live issues per project.
	MaxLiveIssues int64
	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
}

// NewIssueService constructs an IssueService with sane defaults.
func NewIssueService(db *gorm.DB, notify *NotificationService, cache CacheInvalidator) *IssueService {
	return &IssueService{
		DB:            db,
		Notify:        notify,
		Cache:         cache,
		MaxLiveIssues: defaultMaxLiveIssues,
		TitleMaxLen:   255,
	}
}

// issueAccess loads the issue and the caller's role in its project's team.
// Non-members cannot observe whether an issue exists.
func issueAccess(ctx context.Context, db *gorm.DB, issueID, userID string) (*domain.Issue, *domain.Project, string, error) {
	issue, err := repo.GetIssue(ctx, db, issueID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, "", ErrIssueNotFound
		}
		return nil, nil, "", err
	}
	p, role, err := projectAccess(ctx, db, issue.ProjectID, userID)
	if err != nil {
		if errors.Is(err, ErrProjectNotFound) {
			// Membership gate: the issue stays invisible too.
			return nil, nil, "", ErrIssueNotFound
		}
		return nil, nil, "", err
	}
	return issue, p, role, nil
}

// projectAccess loads the project and the caller's role in its team.
func projectAccess(ctx context.Context, db *gorm.DB, projectID, userID string) (*domain.Project, string, error) {
	p, err := repo.GetProject(ctx, db, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrProjectNotFound
		}
		return nil, "", err
	}
	m, err := repo.GetMembership(ctx, db, p.TeamID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrProjectNotFound
		}
		return nil, "", err
	}
	return p, m.Role, nil
}

// invalidate clears the issue's AI cache entries. Best-effort.
func (s *IssueService) invalidate(ctx context.Context, issueID string) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.InvalidateIssue(ctx, issueID); err != nil {
		log.Warn().Err(err).Str("issue_id", issueID).Msg("ai cache invalidation failed")
	}
}

func validPriority(p string) bool {
	return p == domain.PriorityHigh || p == domain.PriorityMedium || p == domain.PriorityLow
}

// CreateIssueInput carries the fields accepted at issue creation.
type CreateIssueInput struct {
	Title       string
	Description string
	Priority    string
	StatusID    string
	AssigneeID  *string
	DueDate     *time.Time
	LabelIDs    []string
}

// Create inserts an issue at the end of its column. The caller must be a team
// member, the project must not be archived, and the project must be under the
// live-issue cap. When no status is given the issue lands in Backlog (or the
// project's first column).
func (s *IssueService) Create(ctx context.Context, userID, projectID string, in CreateIssueInput) (*domain.Issue, error) {
	tr := otel.Tracer("services/IssueService")
	ctx, span := tr.Start(ctx, "Create",
		trace.WithAttributes(
			attribute.String("project.id", projectID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	title := normalizeName(in.Title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	title = clipRunes(title, s.TitleMaxLen)
	priority := in.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !validPriority(priority) {
		return nil, ErrInvalidPriority
	}

	p, _, err := projectAccess(ctx, s.DB, projectID, userID)
	if err != nil {
		return nil, err
	}
	if p.ArchivedAt != nil {
		return nil, ErrProjectArchived
	}

	max := s.MaxLiveIssues
	if max <= 0 {
		max = defaultMaxLiveIssues
	}
	live, err := repo.CountLiveIssues(ctx, s.DB, projectID)
	if err != nil {
		return nil, err
	}
	if live >= max {
		return nil, ErrIssueLimit
	}

	status, err := s.resolveStatus(ctx, projectID, in.StatusID)
	if err != nil {
		return nil, err
	}
	for _, labelID := range in.LabelIDs {
		l, err := repo.GetLabel(ctx, s.DB, labelID)
		if err != nil || l.ProjectID != projectID {
			return nil, ErrLabelNotFound
		}
	}

	var created *domain.Issue
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		position, err := repo.NextPosition(ctx, tx, status.ID)
		if err != nil {
			return err
		}
		issue, err := repo.CreateIssue(ctx, tx, &domain.Issue{
			ProjectID:   projectID,
			StatusID:    status.ID,
			Title:       title,
			Description: in.Description,
			Priority:    priority,
			OwnerID:     userID,
			AssigneeID:  in.AssigneeID,
			DueDate:     in.DueDate,
			Position:    position,
		})
		if err != nil {
			return err
		}
		for _, labelID := range in.LabelIDs {
			if err := repo.AttachLabel(ctx, tx, issue.ID, labelID); err != nil {
				return err
			}
		}
		created = issue
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyAssignment(ctx, created, userID)
	return repo.GetIssue(ctx, s.DB, created.ID)
}

// resolveStatus picks the target column for a new issue: the explicit status
// when given (and owned by the project), otherwise Backlog, otherwise the
// project's first column.
func (s *IssueService) resolveStatus(ctx context.Context, projectID, statusID string) (*domain.Status, error) {
	if statusID != "" {
		st, err := repo.GetStatus(ctx, s.DB, statusID)
		if err != nil || st.ProjectID != projectID {
			return nil, ErrStatusNotFound
		}
		return st, nil
	}
	if st, err := repo.GetStatusByName(ctx, s.DB, projectID, defaultStatusName); err == nil {
		return st, nil
	}
	statuses, err := repo.ListStatuses(ctx, s.DB, projectID)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return nil, ErrStatusNotFound
	}
	return &statuses[0], nil
}

// notifyAssignment tells the assignee about the issue unless they assigned
// it to themselves.
func (s *IssueService) notifyAssignment(ctx context.Context, issue *domain.Issue, actorID string) {
	if s.Notify == nil || issue.AssigneeID == nil || *issue.AssigneeID == actorID {
		return
	}
	s.Notify.Push(ctx, *issue.AssigneeID, domain.NotifyIssueAssigned,
		"issue assigned",
		"You were assigned: "+issue.Title,
		"/issues/"+issue.ID)
}

// IssueDetail is an issue plus its subtasks and comment count.
type IssueDetail struct {
	Issue        domain.Issue     `json:"issue"`
	Subtasks     []domain.Subtask `json:"subtasks"`
	CommentCount int64            `json:"comment_count"`
}

// Get returns the issue with labels, subtasks, and comment count.
func (s *IssueService) Get(ctx context.Context, userID, issueID string) (*IssueDetail, error) {
	tr := otel.Tracer("services/IssueService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.String("issue.id", issueID)),
	)
	defer span.End()

	issue, _, _, err := issueAccess(ctx, s.DB, issueID, userID)
	if err != nil {
		return nil, err
	}
	subtasks, err := repo.ListSubtasks(ctx, s.DB, issueID)
	if err != nil {
		return nil, err
	}
	var comments int64
	if err := s.DB.WithContext(ctx).Model(&domain.Comment{}).
		Where("issue_id = ?", issueID).Count(&comments).Error; err != nil {
		return nil, err
	}
	return &IssueDetail{Issue: *issue, Subtasks: subtasks, CommentCount: comments}, nil
}

// Board returns the project's issues grouped into ordered columns.
func (s *IssueService) Board(ctx context.Context, userID, projectID string) ([]board.Column, error) {
	tr := otel.Tracer("services/IssueService")
	ctx, span := tr.Start(ctx, "Board",
		trace.WithAttributes(attribute.String("project.id", projectID)),
	)
	defer span.End()

	if _, _, err := projectAccess(ctx, s.DB, projectID, userID); err != nil {
		return nil, err
	}
	statuses, err := repo.ListStatuses(ctx, s.DB, projectID)
	if err != nil {
		return nil, err
	}
	issues, err := repo.ListIssuesByProject(ctx, s.DB, projectID)
	if err != nil {
		return nil, err
	}
	return board.Columns(statuses, issues), nil
}

// BoardStats returns the live issue count and latest update time, used by the
// HTTP layer to derive an ETag for board responses.
func (s *IssueService) BoardStats(ctx context.Context, userID, projectID string) (int64, *time.Time, error) {
	if _, _, err := projectAccess(ctx, s.DB, projectID, userID); err != nil {
		return 0, nil, err
	}
	return repo.IssuesStats(ctx, s.DB, projectID)
}

// UpdateIssueInput carries the mutable issue fields. Nil pointers leave the
// corresponding field untouched; the Clear flags reset nullable fields.
type UpdateIssueInput struct {
	Title         *string
	Description   *string
	Priority      *string
	AssigneeID    *string
	ClearAssignee bool
	DueDate       *time.Time
	ClearDueDate  bool
	LabelIDs      *[]string
}

// Update changes issue fields and/or replaces its label set. The project must
// not be archived. A new assignee is notified; the AI cache for the issue is
// invalidated on success.
func (s *IssueService) Update(ctx context.Context, userID, issueID string, in UpdateIssueInput) (*domain.Issue, error) {
	tr := otel.Tracer("services/IssueService")
	ctx, span := tr.Start(ctx, "Update",
		trace.WithAttributes(attribute.String("issue.id", issueID)),
	)
	defer span.End()

	issue, p, _, err := issueAccess(ctx, s.DB, issueID, userID)
	if err != nil {
		return nil, err
	}
	if p.ArchivedAt != nil {
		return nil, ErrProjectArchived
	}

	fields := map[string]any{}
	if in.Title != nil {
		t := normalizeName(*in.Title)
		if t == "" {
			return nil, ErrEmptyTitle
		}
		fields["title"] = clipRunes(t, s.TitleMaxLen)
	}
	if in.Description != nil {
		fields["description"] = *in.Description
	}
	if in.Priority != nil {
		if !validPriority(*in.Priority) {
			return nil, ErrInvalidPriority
		}
		fields["priority"] = *in.Priority
	}
	var newAssignee *string
	switch {
	case in.ClearAssignee:
		fields["assignee_id"] = nil
	case in.AssigneeID != nil:
		fields["assignee_id"] = *in.AssigneeID
		if issue.AssigneeID == nil || *issue.AssigneeID != *in.AssigneeID {
			newAssignee = in.AssigneeID
		}
	}
	switch {
	case in.ClearDueDate:
		fields["due_date"] = nil
	case in.DueDate != nil:
		fields["due_date"] = *in.DueDate
	}

	if in.LabelIDs != nil {
		for _, labelID := range *in.LabelIDs {
			l, err := repo.GetLabel(ctx, s.DB, labelID)
			if err != nil || l.ProjectID != issue.ProjectID {
				return nil, ErrLabelNotFound
			}
		}
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(fields) > 0 {
			if err := repo.UpdateIssue(ctx, tx, issueID, fields); err != nil {
				return err
			}
		}
		if in.LabelIDs != nil {
			if err := s.replaceLabels(ctx, tx, issue, *in.LabelIDs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, issueID)
	updated, err := repo.GetIssue(ctx, s.DB, issueID)
	if err != nil {
		return nil, err
	}
	if newAssignee != nil {
		s.notifyAssignment(ctx, updated, userID)
	}
	return updated, nil
}

// replaceLabels reconciles the issue's label set against want.
func (s *IssueService) replaceLabels(ctx context.Context, tx *gorm.DB, issue *domain.Issue, want []string) error {
	wanted := make(map[string]struct{}, len(want))
	for _, id := range want {
		wanted[id] = struct{}{}
	}
	current := make(map[string]struct{}, len(issue.Labels))
	for _, l := range issue.Labels {
		current[l.ID] = struct{}{}
		if _, keep := wanted[l.ID]; !keep {
			if err := repo.DetachLabel(ctx, tx, issue.ID, l.ID); err != nil {
				return err
			}
		}
	}
	for id := range wanted {
		if _, have := current[id]; !have {
			if err := repo.AttachLabel(ctx, tx, issue.ID, id); err != nil {
				return err
			}
		}
	}
	return nil
}

// Move places the issue into the given column at the given position. Only the
// moved issue's row changes; siblings keep their positions (duplicates are
// tolerated and resolved by creation-time ordering). The project must not be
// archived and the target column must belong to it.
func (s *IssueService) Move(ctx context.Context, userID, issueID, statusID string, position int) error {
	tr := otel.Tracer("services/IssueService")
	ctx, span := tr.Start(ctx, "Move",
		trace.WithAttributes(
			attribute.String("issue.id", issueID),
			attribute.String("status.id", statusID),
			attribute.Int("position", position),
		),
	)
	defer span.End()

	issue, p, _, err := issueAccess(ctx, s.DB, issueID, userID)
	if err != nil {
		return err
	}
	if p.ArchivedAt != nil {
		return ErrProjectArchived
	}
	st, err := repo.GetStatus(ctx, s.DB, statusID)
	if err != nil || st.ProjectID != issue.ProjectID {
		return ErrStatusNotFound
	}
	if err := repo.MoveIssue(ctx, s.DB, issueID, statusID, position); err != nil {
		return err
	}
	s.invalidate(ctx, issueID)
	return nil
}

// Delete soft-deletes an issue. Allowed for the issue owner and for team
// ADMINs and the OWNER.
func (s *IssueService) Delete(ctx context.Context, userID, issueID string) error {
	tr := otel.Tracer("services/IssueService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("issue.id", issueID)),
	)
	defer span.End()

	issue, _, role, err := issueAccess(ctx, s.DB, issueID, userID)
	if err != nil {
		return err
	}
	if issue.OwnerID != userID && !roleAtLeast(role, domain.RoleAdmin) {
		return ErrForbidden
	}
	if err := repo.DeleteIssue(ctx, s.DB, issueID); err != nil {
		return err
	}
	s.invalidate(ctx, issueID)
	return nil
}
