package models

import (
	"time"

	"gorm.io/gorm"
)

type MessageType string

const (
	TextMessage  MessageType = "text"
	ImageMessage MessageType = "image"
	FileMessage  MessageType = "file"
)

// NormalizeMessageType coerces anything outside the closed enum to text, the
// same policy NormalizeNotificationType applies to notification labels.
func NormalizeMessageType(s string) MessageType {
	switch MessageType(s) {
	case TextMessage, ImageMessage, FileMessage:
		return MessageType(s)
	default:
		return TextMessage
	}
}

// Message is immutable once sent: only the read-state fields change, and only
// the sender may delete it.
type Message struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	SenderID    uint `gorm:"not null;index" json:"sender_id"`
	Sender      User `gorm:"foreignKey:SenderID" json:"sender"`
	RecipientID uint `gorm:"not null;index" json:"recipient_id"`

	Content     string      `gorm:"type:text;not null" json:"content"`
	MessageType MessageType `gorm:"type:varchar(20);default:'text'" json:"message_type"`
	// Object storage key when MessageType is image or file.
	AttachmentKey string `json:"attachment_key,omitempty"`

	IsRead bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt *time.Time `json:"read_at"`
}

// ConversationOf derives the owning canonical pair; it is not stored per-message.
func (m *Message) ConversationOf() (uint, uint) {
	return CanonicalPair(m.SenderID, m.RecipientID)
}

type MessageResponse struct {
	ID            uint         `json:"id"`
	SenderID      uint         `json:"sender_id"`
	Sender        UserResponse `json:"sender"`
	RecipientID   uint         `json:"recipient_id"`
	Content       string       `json:"content"`
	MessageType   MessageType  `json:"message_type"`
	AttachmentKey string       `json:"attachment_key,omitempty"`
	IsRead        bool         `json:"is_read"`
	CreatedAt     time.Time    `json:"created_at"`
}

func (m *Message) ToResponse() MessageResponse {
	return MessageResponse{
		ID:            m.ID,
		SenderID:      m.SenderID,
		Sender:        m.Sender.ToResponse(),
		RecipientID:   m.RecipientID,
		Content:       m.Content,
		MessageType:   m.MessageType,
		AttachmentKey: m.AttachmentKey,
		IsRead:        m.IsRead,
		CreatedAt:     m.CreatedAt,
	}
}
