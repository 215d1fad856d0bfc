package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	AuditActionBanUser             = "ban_user"
	AuditActionUnbanUser           = "unban_user"
	AuditActionPromoteUser         = "promote_user"
	AuditActionDemoteUser          = "demote_user"
	AuditActionDeleteUser          = "delete_user"
	AuditActionPublishAnnouncement = "publish_announcement"
	AuditActionDeleteAnnouncement  = "delete_announcement"
)

// AuditLog is an immutable record of an administrator action, written in the
// same transaction as the state change it describes.
type AuditLog struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	ActorID     uint           `gorm:"not null;index" json:"actor_id"`
	Action      string         `gorm:"type:varchar(50);not null;index" json:"action"`
	TargetType  string         `gorm:"type:varchar(30);not null" json:"target_type"`
	TargetID    uint           `gorm:"index" json:"target_id"`
	Description string         `gorm:"type:text" json:"description"`
	Details     datatypes.JSON `json:"details,omitempty"`
	IPAddress   string         `gorm:"type:varchar(45)" json:"ip_address"`
}

// NewAuditLog builds an entry, marshaling the detail payload to JSON. A detail
// payload that cannot be marshaled is dropped rather than failing the action.
func NewAuditLog(actorID uint, action, targetType string, targetID uint, description string, details interface{}) *AuditLog {
	entry := &AuditLog{
		ActorID:     actorID,
		Action:      action,
		TargetType:  targetType,
		TargetID:    targetID,
		Description: description,
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Details = datatypes.JSON(raw)
		}
	}
	return entry
}
