package repository

import (
	"github.com/planora-app/planora-backend/internal/models"
	"gorm.io/gorm"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

func (r *AuditLogRepository) Create(entry *models.AuditLog) error {
	return r.db.Create(entry).Error
}

// AuditLogFilter narrows audit log listings; all filters are parameterized.
type AuditLogFilter struct {
	ActorID  uint
	Action   string
	TargetID uint
	Limit    int
	Offset   int
}

func (r *AuditLogRepository) List(filter AuditLogFilter) ([]models.AuditLog, int64, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}

	q := r.db.Model(&models.AuditLog{})
	if filter.ActorID != 0 {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if filter.TargetID != 0 {
		q = q.Where("target_id = ?", filter.TargetID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.AuditLog
	err := q.Order("created_at DESC").Limit(filter.Limit).Offset(filter.Offset).Find(&entries).Error
	return entries, total, err
}
