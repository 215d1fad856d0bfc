package repository

import (
	"time"

	"github.com/planora-app/planora-backend/internal/models"
)

// UserRepositoryInterface defines the contract for user repository operations
type UserRepositoryInterface interface {
	Create(user *models.User) error
	FindByEmail(email string) (*models.User, error)
	FindByUsername(username string) (*models.User, error)
	FindByID(id uint) (*models.User, error)
	Update(user *models.User) error
	UpdateOnlineStatus(userID uint, isOnline bool) error
	SearchUsers(query string, limit int) ([]models.User, error)
	ListActiveIDs() ([]uint, error)
	List(filter UserFilter) ([]models.User, int64, error)
}

// ConversationRepositoryInterface defines the contract for conversation lookups
type ConversationRepositoryInterface interface {
	FindByUsers(userA, userB uint) (*models.Conversation, error)
	ListForUser(userID uint) ([]ConversationRow, error)
	TotalUnread(userID uint) (int64, error)
}

// MessageRepositoryInterface defines the contract for message repository operations
type MessageRepositoryInterface interface {
	// Create persists the message and, in the same transaction, upserts the
	// canonical conversation row: last-message pointer, last activity, and the
	// recipient's unread counter.
	Create(message *models.Message) error
	FindByID(id uint) (*models.Message, error)
	FindConversationPage(userID, peerID uint, beforeID uint, limit int) ([]models.Message, error)
	// MarkConversationRead flips unread rows from peer to user and zeroes the
	// user's unread counter for that pair. Returns rows flipped.
	MarkConversationRead(userID, peerID uint) (int64, error)
	DeleteOwn(messageID, senderID uint) (int64, error)
}

// NotificationRepositoryInterface defines the contract for notification operations
type NotificationRepositoryInterface interface {
	Create(notification *models.Notification) error
	// ListVisible excludes rows whose linked announcement is outside its
	// activation window or deactivated, re-derived at read time.
	ListVisible(userID uint, unreadOnly bool, limit int) ([]models.Notification, error)
	FindByAnnouncementForUsers(announcementID uint, userIDs []uint) ([]models.Notification, error)
	MarkRead(notificationID, userID uint) error
	MarkAllRead(userID uint) (int64, error)
	UnreadCount(userID uint) (int64, error)
}

// AnnouncementRepositoryInterface defines the contract for system announcements
type AnnouncementRepositoryInterface interface {
	// Publish atomically inserts the announcement, its audit log entry, and the
	// eagerly materialized per-target notification rows.
	Publish(announcement *models.SystemAnnouncement, audit *models.AuditLog, notifications []models.Notification) error
	FindByID(id uint) (*models.SystemAnnouncement, error)
	List(limit, offset int) ([]models.SystemAnnouncement, int64, error)
	// DeleteWithNotifications atomically removes the announcement, its generated
	// notification rows, and writes the audit entry.
	DeleteWithNotifications(id uint, audit *models.AuditLog) error
	DueForActivation(since, until time.Time) ([]models.SystemAnnouncement, error)
	MarkNotified(id uint, at time.Time) error
}

// AccountStatusRepositoryInterface defines transactional account transitions.
// Each method commits the durable mutation and its audit entry together, or
// neither.
type AccountStatusRepositoryInterface interface {
	SetBanStatus(userID uint, banned bool, reason string, bannedAt *time.Time, audit *models.AuditLog) error
	SetRole(userID uint, role string, audit *models.AuditLog) error
	SoftDelete(userID uint, audit *models.AuditLog) error
}

// AuditLogRepositoryInterface defines the contract for audit log reads
type AuditLogRepositoryInterface interface {
	Create(entry *models.AuditLog) error
	List(filter AuditLogFilter) ([]models.AuditLog, int64, error)
}

// RefreshTokenRepositoryInterface defines the contract for refresh token operations
type RefreshTokenRepositoryInterface interface {
	Create(token *models.RefreshToken) error
	FindValidByHash(tokenHash string) (*models.RefreshToken, error)
	RevokeByHash(tokenHash string) error
}
