package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SystemAnnouncement is an admin-authored broadcast. One Notification row is
// materialized per target at publish time; visibility is re-checked at read
// time against the activation window and the active flag.
type SystemAnnouncement struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	CreatedBy uint `gorm:"not null;index" json:"created_by"`

	Title   string           `gorm:"type:varchar(255);not null" json:"title"`
	Content string           `gorm:"type:text;not null" json:"content"`
	Type    NotificationType `gorm:"type:varchar(20);not null;default:'system'" json:"type"`

	StartDate time.Time  `gorm:"not null;index" json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	IsActive  bool       `gorm:"default:true;index" json:"is_active"`

	// TargetAll true means every non-banned user; otherwise TargetIDs holds an
	// explicit JSON array of user IDs.
	TargetAll bool           `gorm:"default:false" json:"target_all"`
	TargetIDs datatypes.JSON `json:"target_ids,omitempty"`

	// Set by the activation sweep after its live push so a late or overlapping
	// tick cannot emit the same activation twice.
	LastNotifiedAt *time.Time `json:"last_notified_at,omitempty"`
}

// ActiveAt reports whether the announcement is visible at the given instant.
func (a *SystemAnnouncement) ActiveAt(t time.Time) bool {
	if !a.IsActive {
		return false
	}
	if a.StartDate.After(t) {
		return false
	}
	if a.EndDate != nil && a.EndDate.Before(t) {
		return false
	}
	return true
}

// ResolvedTargetIDs decodes the explicit target list. Empty for TargetAll rows.
func (a *SystemAnnouncement) ResolvedTargetIDs() ([]uint, error) {
	if a.TargetAll || len(a.TargetIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	if err := json.Unmarshal(a.TargetIDs, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SetTargetIDs encodes an explicit target list.
func (a *SystemAnnouncement) SetTargetIDs(ids []uint) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	a.TargetIDs = datatypes.JSON(raw)
	return nil
}

type AnnouncementResponse struct {
	ID        uint             `json:"id"`
	CreatedBy uint             `json:"created_by"`
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	Type      NotificationType `json:"type"`
	StartDate time.Time        `json:"start_date"`
	EndDate   *time.Time       `json:"end_date"`
	IsActive  bool             `json:"is_active"`
	TargetAll bool             `json:"target_all"`
	CreatedAt time.Time        `json:"created_at"`
}

func (a *SystemAnnouncement) ToResponse() AnnouncementResponse {
	return AnnouncementResponse{
		ID:        a.ID,
		CreatedBy: a.CreatedBy,
		Title:     a.Title,
		Content:   a.Content,
		Type:      a.Type,
		StartDate: a.StartDate,
		EndDate:   a.EndDate,
		IsActive:  a.IsActive,
		TargetAll: a.TargetAll,
		CreatedAt: a.CreatedAt,
	}
}
