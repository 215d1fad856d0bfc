package models

import (
	"time"
)

type NotificationType string

const (
	NotificationTask    NotificationType = "task"
	NotificationEvent   NotificationType = "event"
	NotificationMessage NotificationType = "message"
	NotificationSystem  NotificationType = "system"
	NotificationSprint  NotificationType = "sprint"
)

// NormalizeNotificationType coerces unknown input to the system type instead of
// rejecting it; notification delivery must never fail on a bad label.
func NormalizeNotificationType(s string) NotificationType {
	switch NotificationType(s) {
	case NotificationTask, NotificationEvent, NotificationMessage, NotificationSystem, NotificationSprint:
		return NotificationType(s)
	default:
		return NotificationSystem
	}
}

// Notification belongs to exactly one user. Rows are never destroyed; read state
// is the only mutable field. Rows generated by a system announcement carry
// AnnouncementID and are removed only when an admin deletes that announcement.
type Notification struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	UserID uint             `gorm:"not null;index" json:"user_id"`
	Type   NotificationType `gorm:"type:varchar(20);not null;default:'system'" json:"type"`

	Title       string `gorm:"type:varchar(255);not null" json:"title"`
	Message     string `gorm:"type:text" json:"message"`
	RedirectURL string `json:"redirect_url,omitempty"`
	RelatedID   *uint  `json:"related_id,omitempty"`

	AnnouncementID *uint               `gorm:"index" json:"announcement_id,omitempty"`
	Announcement   *SystemAnnouncement `gorm:"foreignKey:AnnouncementID" json:"-"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at"`
}

type NotificationResponse struct {
	ID          uint             `json:"id"`
	UserID      uint             `json:"user_id"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	RedirectURL string           `json:"redirect_url,omitempty"`
	RelatedID   *uint            `json:"related_id,omitempty"`
	IsRead      bool             `json:"is_read"`
	CreatedAt   time.Time        `json:"created_at"`
}

func (n *Notification) ToResponse() NotificationResponse {
	return NotificationResponse{
		ID:          n.ID,
		UserID:      n.UserID,
		Type:        n.Type,
		Title:       n.Title,
		Message:     n.Message,
		RedirectURL: n.RedirectURL,
		RelatedID:   n.RelatedID,
		IsRead:      n.IsRead,
		CreatedAt:   n.CreatedAt,
	}
}
