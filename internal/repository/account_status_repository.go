package repository

import (
	"time"

	"github.com/planora-app/planora-backend/internal/models"
	"gorm.io/gorm"
)

// AccountStatusRepository effects administrator transitions on user accounts.
// Every method couples the status mutation with its audit log entry in one
// transaction: a crash or error leaves neither change, never one without the
// other.
type AccountStatusRepository struct {
	db *gorm.DB
}

func NewAccountStatusRepository(db *gorm.DB) *AccountStatusRepository {
	return &AccountStatusRepository{db: db}
}

func (r *AccountStatusRepository) SetBanStatus(userID uint, banned bool, reason string, bannedAt *time.Time, audit *models.AuditLog) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
			"is_banned":  banned,
			"ban_reason": reason,
			"banned_at":  bannedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(audit).Error
	})
}

func (r *AccountStatusRepository) SetRole(userID uint, role string, audit *models.AuditLog) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", userID).Update("role", role)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(audit).Error
	})
}

func (r *AccountStatusRepository) SoftDelete(userID uint, audit *models.AuditLog) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.User{}, userID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(audit).Error
	})
}
