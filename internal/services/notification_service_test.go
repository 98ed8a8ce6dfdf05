package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/tbourn/go-issue-board/internal/domain"
)

func TestNotificationService_Push_TitleCases(t *testing.T) {
	db := newSvcDB(t)
	s := NewNotificationService(db)

	s.Push(context.Background(), "u1", domain.NotifyRoleChanged, "  role   changed ", "msg", "/teams/t1")

	ns := notificationsFor(t, db, "u1")
	if len(ns) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(ns))
	}
	if ns[0].Title != "Role Changed" {
		t.Fatalf("title not normalized: %q", ns[0].Title)
	}
	if ns[0].ReadAt != nil {
		t.Fatalf("new notifications start unread")
	}
}

func TestNotificationService_List_PagesAndCountsUnread(t *testing.T) {
	db := newSvcDB(t)
	s := NewNotificationService(db)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		s.Push(ctx, "u1", domain.NotifyCommentAdded, fmt.Sprintf("n%d", i), "", "")
	}
	s.Push(ctx, "u2", domain.NotifyCommentAdded, "someone else's", "", "")

	inbox, err := s.List(ctx, "u1", false, 1, 3)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(inbox.Items) != 3 || inbox.Unread != 5 {
		t.Fatalf("page 1: items=%d unread=%d", len(inbox.Items), inbox.Unread)
	}
	inbox, err = s.List(ctx, "u1", false, 2, 3)
	if err != nil {
		t.Fatalf("List page 2: %v", err)
	}
	if len(inbox.Items) != 2 {
		t.Fatalf("page 2: items=%d", len(inbox.Items))
	}

	// Bogus paging falls back to the defaults.
	inbox, err = s.List(ctx, "u1", false, 0, -1)
	if err != nil {
		t.Fatalf("List defaults: %v", err)
	}
	if len(inbox.Items) != 5 {
		t.Fatalf("default page: items=%d", len(inbox.Items))
	}
}

func TestNotificationService_List_UnreadOnly(t *testing.T) {
	db := newSvcDB(t)
	s := NewNotificationService(db)
	ctx := context.Background()

	s.Push(ctx, "u1", domain.NotifyCommentAdded, "a", "", "")
	s.Push(ctx, "u1", domain.NotifyCommentAdded, "b", "", "")
	all, _ := s.List(ctx, "u1", false, 1, 10)
	if err := s.MarkRead(ctx, "u1", all.Items[0].ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	inbox, err := s.List(ctx, "u1", true, 1, 10)
	if err != nil {
		t.Fatalf("List unread: %v", err)
	}
	if len(inbox.Items) != 1 || inbox.Unread != 1 {
		t.Fatalf("unread page: items=%d unread=%d", len(inbox.Items), inbox.Unread)
	}
	if inbox.Items[0].ID == all.Items[0].ID {
		t.Fatalf("read notification leaked into unread page")
	}
}

func TestNotificationService_MarkRead(t *testing.T) {
	db := newSvcDB(t)
	s := NewNotificationService(db)
	pinned := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.Now = func() time.Time { return pinned }
	ctx := context.Background()

	s.Push(ctx, "u1", domain.NotifyIssueAssigned, "a", "", "")
	n := notificationsFor(t, db, "u1")[0]

	if err := s.MarkRead(ctx, "u1", n.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	got := notificationsFor(t, db, "u1")[0]
	if got.ReadAt == nil || !got.ReadAt.Equal(pinned) {
		t.Fatalf("read_at not stamped: %v", got.ReadAt)
	}

	// Idempotent on re-read, not-found for other users' rows.
	if err := s.MarkRead(ctx, "u1", n.ID); err != nil {
		t.Fatalf("second MarkRead: %v", err)
	}
	if err := s.MarkRead(ctx, "u2", n.ID); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("foreign MarkRead should report not-found, got %v", err)
	}
}

func TestNotificationService_MarkAllRead(t *testing.T) {
	db := newSvcDB(t)
	s := NewNotificationService(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		s.Push(ctx, "u1", domain.NotifyCommentAdded, "x", "", "")
	}
	n, err := s.MarkAllRead(ctx, "u1")
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 rows marked, got %d", n)
	}
	n, err = s.MarkAllRead(ctx, "u1")
	if err != nil || n != 0 {
		t.Fatalf("second pass should touch nothing, got n=%d err=%v", n, err)
	}
}

func TestNotificationService_Delete(t *testing.T) {
	db := newSvcDB(t)
	s := NewNotificationService(db)
	ctx := context.Background()

	s.Push(ctx, "u1", domain.NotifyCommentAdded, "x", "", "")
	n := notificationsFor(t, db, "u1")[0]

	if err := s.Delete(ctx, "u2", n.ID); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("foreign delete should report not-found, got %v", err)
	}
	if err := s.Delete(ctx, "u1", n.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "u1", n.ID); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("double delete should report not-found, got %v", err)
	}
}
