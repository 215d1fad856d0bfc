package service

import (
	"testing"
	"time"

	"github.com/planora-app/planora-backend/internal/handlers/ws"
	"github.com/planora-app/planora-backend/internal/models"
	"github.com/planora-app/planora-backend/internal/testutil"
)

func newNotificationFixture(t *testing.T, onlineIDs ...uint) (*NotificationService, *MockNotificationRepository, *MockLivePush) {
	t.Helper()
	h := testutil.NewTestHelper(t)
	userRepo := NewMockUserRepository()
	userRepo.Add(h.CreateTestUser(1, "alice"))
	notifRepo := NewMockNotificationRepository()
	live := NewMockLivePush(onlineIDs...)
	return NewNotificationService(notifRepo, userRepo, live), notifRepo, live
}

func TestCreateNotification_CoercesUnknownType(t *testing.T) {
	svc, _, _ := newNotificationFixture(t)

	n, err := svc.Create(CreateNotificationInput{UserID: 1, Type: "bogus", Title: "t"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n == nil {
		t.Fatal("expected notification")
	}
	if n.Type != models.NotificationSystem {
		t.Fatalf("type = %q, want system", n.Type)
	}
}

func TestCreateNotification_SoftFailsWithoutUser(t *testing.T) {
	svc, notifRepo, _ := newNotificationFixture(t)

	n, err := svc.Create(CreateNotificationInput{UserID: 0, Title: "no user"})
	if err != nil {
		t.Fatalf("Create with zero user: %v", err)
	}
	if n != nil {
		t.Fatal("expected nil notification for zero user")
	}

	n, err = svc.Create(CreateNotificationInput{UserID: 42, Title: "unknown user"})
	if err != nil {
		t.Fatalf("Create with unknown user: %v", err)
	}
	if n != nil {
		t.Fatal("expected nil notification for unknown user")
	}

	// Neither attempt left a row behind.
	if len(notifRepo.notifications) != 0 {
		t.Fatalf("stored %d notifications, want 0", len(notifRepo.notifications))
	}
}

func TestCreateNotification_PushesWhenOnline(t *testing.T) {
	svc, _, live := newNotificationFixture(t, 1)

	if _, err := svc.Create(CreateNotificationInput{UserID: 1, Title: "t"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got := live.PushesFor(1, ws.EventNotificationNew); got != 1 {
		t.Fatalf("pushes = %d, want 1", got)
	}
}

func TestCreateNotification_NoPushWhenOffline(t *testing.T) {
	svc, _, live := newNotificationFixture(t)

	if _, err := svc.Create(CreateNotificationInput{UserID: 1, Title: "t"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(live.pushes) != 0 {
		t.Fatalf("pushes = %d, want 0", len(live.pushes))
	}
}

func TestListFor_UnreadFilter(t *testing.T) {
	svc, notifRepo, _ := newNotificationFixture(t)

	read := &models.Notification{UserID: 1, Title: "read", IsRead: true}
	unread := &models.Notification{UserID: 1, Title: "unread"}
	_ = notifRepo.Create(read)
	_ = notifRepo.Create(unread)

	all, err := svc.ListFor(1, NotificationFilterAll, 50)
	if err != nil {
		t.Fatalf("ListFor all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("all = %d, want 2", len(all))
	}

	onlyUnread, err := svc.ListFor(1, NotificationFilterUnread, 50)
	if err != nil {
		t.Fatalf("ListFor unread: %v", err)
	}
	if len(onlyUnread) != 1 || onlyUnread[0].Title != "unread" {
		t.Fatalf("unread filter returned %d rows", len(onlyUnread))
	}
}

func TestListFor_HidesOutOfWindowAnnouncements(t *testing.T) {
	svc, notifRepo, _ := newNotificationFixture(t)

	future := testutil.NewTestHelper(t).CreateTestAnnouncement(10, 1, "future")
	future.StartDate = time.Now().Add(time.Hour)
	notifRepo.AddAnnouncement(future)

	annID := future.ID
	_ = notifRepo.Create(&models.Notification{UserID: 1, Title: "from future announcement", AnnouncementID: &annID})
	_ = notifRepo.Create(&models.Notification{UserID: 1, Title: "plain"})

	rows, err := svc.ListFor(1, NotificationFilterAll, 50)
	if err != nil {
		t.Fatalf("ListFor: %v", err)
	}
	if len(rows) != 1 || rows[0].Title != "plain" {
		t.Fatalf("expected only the plain notification, got %d rows", len(rows))
	}

	count, err := svc.UnreadCount(1)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("unread count = %d, want 1", count)
	}

	// Once the window opens the same row becomes visible.
	future.StartDate = time.Now().Add(-time.Minute)
	rows, err = svc.ListFor(1, NotificationFilterAll, 50)
	if err != nil {
		t.Fatalf("ListFor after window opens: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows after window opens, got %d", len(rows))
	}
}

func TestMarkRead_Idempotent(t *testing.T) {
	svc, notifRepo, _ := newNotificationFixture(t)

	n := testutil.NewTestHelper(t).CreateTestNotification(1, "t")
	_ = notifRepo.Create(n)

	if err := svc.MarkRead(n.ID, 1); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	firstReadAt := n.ReadAt
	if !n.IsRead || firstReadAt == nil {
		t.Fatal("expected notification to be read")
	}

	if err := svc.MarkRead(n.ID, 1); err != nil {
		t.Fatalf("second MarkRead: %v", err)
	}
	if n.ReadAt != firstReadAt {
		t.Fatal("second mark-read changed read timestamp")
	}
}

func TestMarkAllRead(t *testing.T) {
	svc, notifRepo, _ := newNotificationFixture(t)
	h := testutil.NewTestHelper(t)

	_ = notifRepo.Create(h.CreateTestNotification(1, "a"))
	_ = notifRepo.Create(h.CreateTestNotification(1, "b"))
	_ = notifRepo.Create(h.CreateTestNotification(2, "someone else"))

	marked, err := svc.MarkAllRead(1)
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if marked != 2 {
		t.Fatalf("marked = %d, want 2", marked)
	}

	count, err := svc.UnreadCount(1)
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 0 {
		t.Fatalf("unread count = %d, want 0", count)
	}
}
