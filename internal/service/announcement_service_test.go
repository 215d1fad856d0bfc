package service

import (
	"errors"
	"testing"
	"time"

	"github.com/planora-app/planora-backend/internal/handlers/ws"
	"github.com/planora-app/planora-backend/internal/models"
	"github.com/planora-app/planora-backend/internal/testutil"
)

func newAnnouncementFixture(t *testing.T, onlineIDs ...uint) (*AnnouncementService, *MockAnnouncementRepository, *MockNotificationRepository, *MockAuditLogRepository, *MockLivePush) {
	t.Helper()
	h := testutil.NewTestHelper(t)
	userRepo := NewMockUserRepository()
	admin := h.CreateTestUser(1, "admin")
	admin.Role = models.RoleAdmin
	userRepo.Add(admin)
	userRepo.Add(h.CreateTestUser(2, "bob"))
	userRepo.Add(h.CreateTestUser(3, "carol"))
	banned := h.CreateTestUser(4, "banned")
	banned.IsBanned = true
	userRepo.Add(banned)

	notifRepo := NewMockNotificationRepository()
	auditRepo := NewMockAuditLogRepository()
	annRepo := NewMockAnnouncementRepository(notifRepo, auditRepo)
	live := NewMockLivePush(onlineIDs...)
	return NewAnnouncementService(annRepo, userRepo, live), annRepo, notifRepo, auditRepo, live
}

func TestPublish_MaterializesNotificationsAndAudit(t *testing.T) {
	svc, _, notifRepo, auditRepo, _ := newAnnouncementFixture(t)

	ann, err := svc.Publish(1, PublishAnnouncementInput{
		Title:     "Maintenance",
		Content:   "Scheduled downtime",
		StartDate: time.Now().Add(-time.Minute),
		TargetAll: true,
	}, "127.0.0.1")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if ann.ID == 0 {
		t.Fatal("expected persisted announcement")
	}

	// TargetAll resolves to every non-banned user, admin included.
	if len(notifRepo.notifications) != 3 {
		t.Fatalf("stored %d notifications, want 3", len(notifRepo.notifications))
	}
	for _, n := range notifRepo.notifications {
		if n.AnnouncementID == nil || *n.AnnouncementID != ann.ID {
			t.Fatal("notification missing announcement link")
		}
		if n.UserID == 4 {
			t.Fatal("banned user received a notification")
		}
	}

	if len(auditRepo.entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(auditRepo.entries))
	}
	if auditRepo.entries[0].Action != models.AuditActionPublishAnnouncement {
		t.Fatalf("audit action = %q", auditRepo.entries[0].Action)
	}
	if auditRepo.entries[0].TargetID != ann.ID {
		t.Fatal("audit entry not linked to announcement")
	}
}

func TestPublish_PushesOnlineTargetsOnly(t *testing.T) {
	svc, _, _, _, live := newAnnouncementFixture(t, 2)

	_, err := svc.Publish(1, PublishAnnouncementInput{
		Title:     "hello",
		Content:   "body",
		StartDate: time.Now().Add(-time.Minute),
		TargetIDs: []uint{2, 3},
	}, "")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if got := live.PushesFor(2, ws.EventNotificationNew); got != 1 {
		t.Fatalf("online target pushes = %d, want 1", got)
	}
	if got := live.PushesFor(3, ws.EventNotificationNew); got != 0 {
		t.Fatalf("offline target pushes = %d, want 0", got)
	}
}

func TestPublish_OpenWindowRecordsActivation(t *testing.T) {
	svc, annRepo, _, _, live := newAnnouncementFixture(t, 2)

	ann, err := svc.Publish(1, PublishAnnouncementInput{
		Title:     "live now",
		Content:   "body",
		StartDate: time.Now().Add(-time.Minute),
		TargetIDs: []uint{2},
	}, "")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := live.PushesFor(2, ws.EventNotificationNew); got != 1 {
		t.Fatalf("pushes = %d, want 1", got)
	}

	// The publish itself was the activation. The stored row must carry the
	// marker the sweep checks, or the next tick would find start_date inside
	// its trailing window and push the same notification again.
	stored, err := annRepo.FindByID(ann.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if stored.LastNotifiedAt == nil || stored.LastNotifiedAt.Before(stored.StartDate) {
		t.Fatal("open-window publish did not record its activation; the sweep would re-emit it")
	}
}

func TestPublish_FutureWindowSkipsPush(t *testing.T) {
	svc, _, notifRepo, _, live := newAnnouncementFixture(t, 2, 3)

	ann, err := svc.Publish(1, PublishAnnouncementInput{
		Title:     "later",
		Content:   "body",
		StartDate: time.Now().Add(time.Hour),
		TargetIDs: []uint{2, 3},
	}, "")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// Rows exist already, but the live push waits for the activation sweep.
	if len(notifRepo.notifications) != 2 {
		t.Fatalf("stored %d notifications, want 2", len(notifRepo.notifications))
	}
	if len(live.pushes) != 0 {
		t.Fatalf("pushes = %d, want 0", len(live.pushes))
	}
	if ann.LastNotifiedAt != nil {
		t.Fatal("future-dated announcement must leave activation to the sweep")
	}
}

func TestPublish_DeduplicatesExplicitTargets(t *testing.T) {
	svc, _, notifRepo, _, _ := newAnnouncementFixture(t)

	_, err := svc.Publish(1, PublishAnnouncementInput{
		Title:     "dedup",
		Content:   "body",
		StartDate: time.Now(),
		TargetIDs: []uint{2, 2, 0, 3, 2},
	}, "")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(notifRepo.notifications) != 2 {
		t.Fatalf("stored %d notifications, want 2", len(notifRepo.notifications))
	}
}

func TestPublish_NoTargets(t *testing.T) {
	svc, _, _, _, _ := newAnnouncementFixture(t)

	_, err := svc.Publish(1, PublishAnnouncementInput{
		Title:     "empty",
		Content:   "body",
		StartDate: time.Now(),
		TargetIDs: []uint{0},
	}, "")
	if !errors.Is(err, ErrNoTargets) {
		t.Fatalf("err = %v, want ErrNoTargets", err)
	}
}

func TestPublish_RepoFailureEmitsNothing(t *testing.T) {
	svc, annRepo, notifRepo, auditRepo, live := newAnnouncementFixture(t, 2)
	annRepo.publishErr = errors.New("tx failed")

	_, err := svc.Publish(1, PublishAnnouncementInput{
		Title:     "doomed",
		Content:   "body",
		StartDate: time.Now(),
		TargetIDs: []uint{2},
	}, "")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(notifRepo.notifications) != 0 || len(auditRepo.entries) != 0 || len(live.pushes) != 0 {
		t.Fatal("failed publish left side effects behind")
	}
}

func TestDelete_RemovesGeneratedNotifications(t *testing.T) {
	svc, _, notifRepo, auditRepo, _ := newAnnouncementFixture(t)

	ann, err := svc.Publish(1, PublishAnnouncementInput{
		Title:     "temp",
		Content:   "body",
		StartDate: time.Now(),
		TargetIDs: []uint{2, 3},
	}, "")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	_ = notifRepo.Create(&models.Notification{UserID: 2, Title: "unrelated"})

	if err := svc.Delete(1, ann.ID, ""); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	for _, n := range notifRepo.notifications {
		if n.AnnouncementID != nil && *n.AnnouncementID == ann.ID {
			t.Fatal("generated notification survived announcement deletion")
		}
	}
	if len(notifRepo.notifications) != 1 {
		t.Fatalf("remaining notifications = %d, want 1", len(notifRepo.notifications))
	}
	// Publish + delete leave two audit entries.
	if len(auditRepo.entries) != 2 {
		t.Fatalf("audit entries = %d, want 2", len(auditRepo.entries))
	}
}
