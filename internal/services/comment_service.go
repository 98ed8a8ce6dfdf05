// Package services – CommentService
//
// This file implements CommentService, which owns comments and subtasks under
// issues. Mutations follow the same archived-project guard as issues, authors
// own their comments, and new comments notify the issue owner and assignee.
// Comment and subtask changes invalidate the issue's AI response cache since
// both feed the summarization and suggestion prompts.
package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-issue-board/internal/domain"
	"github.com/tbourn/go-issue-board/internal/repo"
)

// CommentService coordinates comments and subtasks.
type CommentService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Notify delivers comment notifications. Optional.
	Notify *NotificationService
	// Cache invalidates AI responses on mutation. Optional.
	Cache CacheInvalidator
}

// NewCommentService constructs a CommentService.
func NewCommentService(db *gorm.DB, notify *NotificationService, cache CacheInvalidator) *CommentService {
	return &CommentService{DB: db, Notify: notify, Cache: cache}
}

func (s *CommentService) invalidate(ctx context.Context, issueID string) {
	if s.Cache == nil {
		return
	}
	// Same best-effort policy as IssueService.
	_ = s.Cache.InvalidateIssue(ctx, issueID)
}

// AddComment appends a comment to an issue. The caller must be a team member
// and the project must not be archived. The issue owner and assignee are
// notified unless they authored the comment.
func (s *CommentService) AddComment(ctx context.Context, userID, issueID, content string) (*domain.Comment, error) {
	tr := otel.Tracer("services/CommentService")
	ctx, span := tr.Start(ctx, "AddComment",
		trace.WithAttributes(
			attribute.String("issue.id", issueID),
			attribute.String("user.id", userID),
		),
	)
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	issue, p, _, err := issueAccess(ctx, s.DB, issueID, userID)
	if err != nil {
		return nil, err
	}
	if p.ArchivedAt != nil {
		return nil, ErrProjectArchived
	}

	c, err := repo.CreateComment(ctx, s.DB, issueID, userID, content)
	if err != nil {
		return nil, err
	}
	s.notifyWatchers(ctx, issue, userID)
	s.invalidate(ctx, issueID)
	return c, nil
}

// notifyWatchers tells the issue owner and assignee about a new comment,
// skipping the author and duplicate recipients.
func (s *CommentService) notifyWatchers(ctx context.Context, issue *domain.Issue, authorID string) {
	if s.Notify == nil {
		return
	}
	recipients := []string{issue.OwnerID}
	if issue.AssigneeID != nil && *issue.AssigneeID != issue.OwnerID {
		recipients = append(recipients, *issue.AssigneeID)
	}
	for _, uid := range recipients {
		if uid == authorID {
			continue
		}
		s.Notify.Push(ctx, uid, domain.NotifyCommentAdded,
			"new comment",
			"New comment on: "+issue.Title,
			"/issues/"+issue.ID)
	}
}

// ListComments returns the issue's comments, oldest first.
func (s *CommentService) ListComments(ctx context.Context, userID, issueID string) ([]domain.Comment, error) {
	tr := otel.Tracer("services/CommentService")
	ctx, span := tr.Start(ctx, "ListComments",
		trace.WithAttributes(attribute.String("issue.id", issueID)),
	)
	defer span.End()

	if _, _, _, err := issueAccess(ctx, s.DB, issueID, userID); err != nil {
		return nil, err
	}
	return repo.ListComments(ctx, s.DB, issueID)
}

// UpdateComment edits a comment's content. Authors only.
func (s *CommentService) UpdateComment(ctx context.Context, userID, commentID, content string) error {
	tr := otel.Tracer("services/CommentService")
	ctx, span := tr.Start(ctx, "UpdateComment",
		trace.WithAttributes(attribute.String("comment.id", commentID)),
	)
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyContent
	}
	c, err := repo.GetComment(ctx, s.DB, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return err
	}
	_, p, _, err := issueAccess(ctx, s.DB, c.IssueID, userID)
	if err != nil {
		return err
	}
	if p.ArchivedAt != nil {
		return ErrProjectArchived
	}
	if c.AuthorID != userID {
		return ErrForbidden
	}
	if err := repo.UpdateComment(ctx, s.DB, commentID, content); err != nil {
		return err
	}
	s.invalidate(ctx, c.IssueID)
	return nil
}

// DeleteComment removes a comment. Allowed for the author and for team ADMINs
// and the OWNER.
func (s *CommentService) DeleteComment(ctx context.Context, userID, commentID string) error {
	tr := otel.Tracer("services/CommentService")
	ctx, span := tr.Start(ctx, "DeleteComment",
		trace.WithAttributes(attribute.String("comment.id", commentID)),
	)
	defer span.End()

	c, err := repo.GetComment(ctx, s.DB, commentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return err
	}
	_, _, role, err := issueAccess(ctx, s.DB, c.IssueID, userID)
	if err != nil {
		return err
	}
	if c.AuthorID != userID && !roleAtLeast(role, domain.RoleAdmin) {
		return ErrForbidden
	}
	if err := repo.DeleteComment(ctx, s.DB, commentID); err != nil {
		return err
	}
	s.invalidate(ctx, c.IssueID)
	return nil
}

//
// Subtasks
//

// AddSubtask appends a checklist item to an issue.
func (s *CommentService) AddSubtask(ctx context.Context, userID, issueID, title string) (*domain.Subtask, error) {
	tr := otel.Tracer("services/CommentService")
	ctx, span := tr.Start(ctx, "AddSubtask",
		trace.WithAttributes(attribute.String("issue.id", issueID)),
	)
	defer span.End()

	title = normalizeName(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}
	_, p, _, err := issueAccess(ctx, s.DB, issueID, userID)
	if err != nil {
		return nil, err
	}
	if p.ArchivedAt != nil {
		return nil, ErrProjectArchived
	}
	st, err := repo.CreateSubtask(ctx, s.DB, issueID, title)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx, issueID)
	return st, nil
}

// ListSubtasks returns the issue's checklist, oldest first.
func (s *CommentService) ListSubtasks(ctx context.Context, userID, issueID string) ([]domain.Subtask, error) {
	tr := otel.Tracer("services/CommentService")
	ctx, span := tr.Start(ctx, "ListSubtasks",
		trace.WithAttributes(attribute.String("issue.id", issueID)),
	)
	defer span.End()

	if _, _, _, err := issueAccess(ctx, s.DB, issueID, userID); err != nil {
		return nil, err
	}
	return repo.ListSubtasks(ctx, s.DB, issueID)
}

// UpdateSubtask changes a subtask's title and/or completion flag. Nil
// pointers leave fields untouched.
func (s *CommentService) UpdateSubtask(ctx context.Context, userID, subtaskID string, title *string, isCompleted *bool) error {
	tr := otel.Tracer("services/CommentService")
	ctx, span := tr.Start(ctx, "UpdateSubtask",
		trace.WithAttributes(attribute.String("subtask.id", subtaskID)),
	)
	defer span.End()

	st, err := repo.GetSubtask(ctx, s.DB, subtaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubtaskNotFound
		}
		return err
	}
	_, p, _, err := issueAccess(ctx, s.DB, st.IssueID, userID)
	if err != nil {
		return err
	}
	if p.ArchivedAt != nil {
		return ErrProjectArchived
	}

	fields := map[string]any{}
	if title != nil {
		t := normalizeName(*title)
		if t == "" {
			return ErrEmptyTitle
		}
		fields["title"] = t
	}
	if isCompleted != nil {
		fields["is_completed"] = *isCompleted
	}
	if len(fields) == 0 {
		return nil
	}
	if err := repo.UpdateSubtask(ctx, s.DB, subtaskID, fields); err != nil {
		return err
	}
	s.invalidate(ctx, st.IssueID)
	return nil
}

// DeleteSubtask removes a checklist item.
func (s *CommentService) DeleteSubtask(ctx context.Context, userID, subtaskID string) error {
	tr := otel.Tracer("services/CommentService")
	ctx, span := tr.Start(ctx, "DeleteSubtask",
		trace.WithAttributes(attribute.String("subtask.id", subtaskID)),
	)
	defer span.End()

	st, err := repo.GetSubtask(ctx, s.DB, subtaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubtaskNotFound
		}
		return err
	}
	if _, _, _, err := issueAccess(ctx, s.DB, st.IssueID, userID); err != nil {
		return err
	}
	if err := repo.DeleteSubtask(ctx, s.DB, subtaskID); err != nil {
		return err
	}
	s.invalidate(ctx, st.IssueID)
	return nil
}
