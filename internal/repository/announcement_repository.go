package repository

import (
	"time"

	"github.com/planora-app/planora-backend/internal/models"
	"gorm.io/gorm"
)

type AnnouncementRepository struct {
	db *gorm.DB
}

func NewAnnouncementRepository(db *gorm.DB) *AnnouncementRepository {
	return &AnnouncementRepository{db: db}
}

// Publish commits the announcement, its audit log entry, and the eagerly
// materialized notification rows atomically. A failure anywhere rolls back
// everything; callers broadcast only after this returns nil.
func (r *AnnouncementRepository) Publish(announcement *models.SystemAnnouncement, audit *models.AuditLog, notifications []models.Notification) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(announcement).Error; err != nil {
			return err
		}

		audit.TargetID = announcement.ID
		if err := tx.Create(audit).Error; err != nil {
			return err
		}

		if len(notifications) == 0 {
			return nil
		}
		for i := range notifications {
			notifications[i].AnnouncementID = &announcement.ID
		}
		return tx.CreateInBatches(notifications, 200).Error
	})
}

func (r *AnnouncementRepository) FindByID(id uint) (*models.SystemAnnouncement, error) {
	var announcement models.SystemAnnouncement
	err := r.db.First(&announcement, id).Error
	return &announcement, err
}

func (r *AnnouncementRepository) List(limit, offset int) ([]models.SystemAnnouncement, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var total int64
	if err := r.db.Model(&models.SystemAnnouncement{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var announcements []models.SystemAnnouncement
	err := r.db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&announcements).Error
	return announcements, total, err
}

// DeleteWithNotifications removes the announcement, cascades the hard delete of
// its generated notification rows, and records the audit entry, atomically.
func (r *AnnouncementRepository) DeleteWithNotifications(id uint, audit *models.AuditLog) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("announcement_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&models.SystemAnnouncement{}, id).Error; err != nil {
			return err
		}
		return tx.Create(audit).Error
	})
}

// DueForActivation returns active announcements whose start date fell inside
// (since, until]. The trailing window tolerates sweep jitter; de-duplication is
// the caller's job via LastNotifiedAt.
func (r *AnnouncementRepository) DueForActivation(since, until time.Time) ([]models.SystemAnnouncement, error) {
	var announcements []models.SystemAnnouncement
	err := r.db.Where("is_active = ? AND start_date > ? AND start_date <= ?", true, since, until).
		Find(&announcements).Error
	return announcements, err
}

func (r *AnnouncementRepository) MarkNotified(id uint, at time.Time) error {
	return r.db.Model(&models.SystemAnnouncement{}).Where("id = ?", id).
		Update("last_notified_at", at).Error
}
