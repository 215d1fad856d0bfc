package repository

import (
	"time"

	"github.com/planora-app/planora-backend/internal/models"
	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

// ListVisible returns the user's notifications, newest first. Rows generated by
// a system announcement are visible only while that announcement is active and
// inside its window; the check runs at read time even though the rows were
// materialized eagerly at publish time.
func (r *NotificationRepository) ListVisible(userID uint, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	now := time.Now()
	q := r.db.Model(&models.Notification{}).
		Joins("LEFT JOIN system_announcements a ON a.id = notifications.announcement_id AND a.deleted_at IS NULL").
		Where("notifications.user_id = ?", userID).
		Where("notifications.announcement_id IS NULL OR (a.is_active = ? AND a.start_date <= ? AND (a.end_date IS NULL OR a.end_date >= ?))",
			true, now, now)
	if unreadOnly {
		q = q.Where("notifications.is_read = ?", false)
	}

	var notifications []models.Notification
	err := q.Order("notifications.created_at DESC").Limit(limit).Find(&notifications).Error
	return notifications, err
}

// FindByAnnouncementForUsers fetches the materialized rows of one announcement
// restricted to the given users, used by the activation sweep's live push.
func (r *NotificationRepository) FindByAnnouncementForUsers(announcementID uint, userIDs []uint) ([]models.Notification, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var notifications []models.Notification
	err := r.db.Where("announcement_id = ? AND user_id IN ?", announcementID, userIDs).
		Find(&notifications).Error
	return notifications, err
}

// MarkRead is idempotent; flipping an already-read row is a no-op.
func (r *NotificationRepository) MarkRead(notificationID, userID uint) error {
	return r.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", notificationID, userID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		}).Error
}

func (r *NotificationRepository) MarkAllRead(userID uint) (int64, error) {
	res := r.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) UnreadCount(userID uint) (int64, error) {
	now := time.Now()
	var count int64
	err := r.db.Model(&models.Notification{}).
		Joins("LEFT JOIN system_announcements a ON a.id = notifications.announcement_id AND a.deleted_at IS NULL").
		Where("notifications.user_id = ? AND notifications.is_read = ?", userID, false).
		Where("notifications.announcement_id IS NULL OR (a.is_active = ? AND a.start_date <= ? AND (a.end_date IS NULL OR a.end_date >= ?))",
			true, now, now).
		Count(&count).Error
	return count, err
}
