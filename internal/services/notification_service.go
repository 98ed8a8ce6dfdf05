// Package services – NotificationService
//
// This file implements NotificationService, the in-app notification inbox.
// Other services call Push to deliver membership, assignment, and comment
// events; delivery is best-effort and never fails the triggering operation.
// Titles are normalized to title case via golang.org/x/text so stored rows
// render consistently regardless of how callers phrase them.
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

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-issue-board/internal/domain"
	"github.com/tbourn/go-issue-board/internal/repo"
)

// NotificationService manages a user's notification inbox and delivers new
// notifications on behalf of other services.
type NotificationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// TitleLocale controls title casing; English when unset.
	TitleLocale language.Tag
	// Now returns the current time; defaults to time.Now. Tests pin it.
	Now func() time.Time
}

// NewNotificationService constructs a NotificationService.
func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{DB: db, TitleLocale: language.English}
}

func (s *NotificationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *NotificationService) caser() cases.Caser {
	tag := s.TitleLocale
	if tag == language.Und {
		tag = language.English
	}
	return cases.Title(tag)
}

// Push stores a notification for userID. Failures are logged and swallowed;
// notifications never abort the operation that triggered them.
func (s *NotificationService) Push(ctx context.Context, userID, typ, title, message, link string) {
	title = s.caser().String(normalizeName(title))
	if _, err := repo.CreateNotification(ctx, s.DB, userID, typ, title, message, link); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Str("type", typ).
			Msg("notification delivery failed")
	}
}

// Inbox is one page of a user's notifications plus the unread total.
type Inbox struct {
	Items  []domain.Notification `json:"items"`
	Unread int64                 `json:"unread"`
}

// List returns a page of the caller's notifications, newest first, along with
// the unread count. unreadOnly narrows the page to unread rows.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) (*Inbox, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Bool("unread_only", unreadOnly),
		),
	)
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	items, err := repo.ListNotifications(ctx, s.DB, userID, unreadOnly, pageSize, offset)
	if err != nil {
		return nil, err
	}
	unread, err := repo.CountUnread(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	return &Inbox{Items: items, Unread: unread}, nil
}

// MarkRead marks one notification as read. Marking an already-read
// notification is a no-op; another user's notification reports not found.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "MarkRead",
		trace.WithAttributes(attribute.String("notification.id", id)),
	)
	defer span.End()

	err := repo.MarkNotificationRead(ctx, s.DB, userID, id, s.now())
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotificationNotFound
	}
	return err
}

// MarkAllRead marks every unread notification as read and returns how many
// rows changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "MarkAllRead",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	return repo.MarkAllNotificationsRead(ctx, s.DB, userID, s.now())
}

// Delete removes one of the caller's notifications.
func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	tr := otel.Tracer("services/NotificationService")
	ctx, span := tr.Start(ctx, "Delete",
		trace.WithAttributes(attribute.String("notification.id", id)),
	)
	defer span.End()

	err := repo.DeleteNotification(ctx, s.DB, userID, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotificationNotFound
	}
	return err
}
