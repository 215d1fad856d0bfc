package testutil

import (
	"os"
	"testing"
	"time"

	"github.com/planora-app/planora-backend/internal/models"
)

// TestHelper builds fully-populated fixture rows so each test only spells out
// the fields it actually cares about.
type TestHelper struct {
	t *testing.T
}

func NewTestHelper(t *testing.T) *TestHelper {
	t.Helper()
	return &TestHelper{t: t}
}

// CreateTestUser returns an active regular user; callers flip Role or IsBanned
// as the scenario needs.
func (h *TestHelper) CreateTestUser(id uint, username string) *models.User {
	return &models.User{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hashed_password_123",
		FullName:     "Test " + username,
		Role:         models.RoleUser,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

// CreateTestNotification returns an unread notification with no ID so the
// repository assigns one.
func (h *TestHelper) CreateTestNotification(userID uint, title string) *models.Notification {
	return &models.Notification{
		UserID:  userID,
		Type:    models.NotificationSystem,
		Title:   title,
		Message: title + " body",
	}
}

// CreateTestAnnouncement returns an active all-targets announcement whose
// window opened a minute ago.
func (h *TestHelper) CreateTestAnnouncement(id, createdBy uint, title string) *models.SystemAnnouncement {
	return &models.SystemAnnouncement{
		ID:        id,
		CreatedBy: createdBy,
		Title:     title,
		Content:   title + " body",
		Type:      models.NotificationSystem,
		StartDate: time.Now().Add(-time.Minute),
		IsActive:  true,
		TargetAll: true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

// SetupTestEnv sets the environment the auth stack requires.
func (h *TestHelper) SetupTestEnv() {
	os.Setenv("JWT_SECRET", "test-secret-key-for-testing-only")
}

func (h *TestHelper) TeardownTestEnv() {
	os.Unsetenv("JWT_SECRET")
}
