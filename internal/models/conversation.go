package models

import (
	"time"
)

// Conversation is the canonical record for a 1:1 thread. The participant pair is
// stored ordered as (min, max) so that a lookup never depends on argument order:
// exactly one row exists per unordered pair.
type Conversation struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	User1ID uint `gorm:"not null;uniqueIndex:idx_conversation_pair;index" json:"user1_id"`
	User2ID uint `gorm:"not null;uniqueIndex:idx_conversation_pair;index" json:"user2_id"`

	LastMessageID *uint     `json:"last_message_id"`
	LastMessage   *Message  `gorm:"foreignKey:LastMessageID" json:"last_message,omitempty"`
	LastActivity  time.Time `gorm:"index" json:"last_activity"`

	// One unread counter per side of the pair. Never negative.
	UnreadForUser1 int `gorm:"default:0" json:"unread_for_user1"`
	UnreadForUser2 int `gorm:"default:0" json:"unread_for_user2"`
}

// CanonicalPair orders two user IDs as (min, max).
func CanonicalPair(a, b uint) (uint, uint) {
	if a > b {
		return b, a
	}
	return a, b
}

// NewConversation builds a conversation row with the pair in canonical order.
func NewConversation(a, b uint) *Conversation {
	u1, u2 := CanonicalPair(a, b)
	return &Conversation{User1ID: u1, User2ID: u2}
}

// HasParticipant reports whether userID is one side of the pair.
func (c *Conversation) HasParticipant(userID uint) bool {
	return c.User1ID == userID || c.User2ID == userID
}

// PeerOf returns the other participant. Callers must pass a participant.
func (c *Conversation) PeerOf(userID uint) uint {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// UnreadFor returns this user's side of the unread counter.
func (c *Conversation) UnreadFor(userID uint) int {
	if c.User1ID == userID {
		return c.UnreadForUser1
	}
	return c.UnreadForUser2
}

// IncrementUnreadFor bumps the counter of the given participant by one.
func (c *Conversation) IncrementUnreadFor(userID uint) {
	if c.User1ID == userID {
		c.UnreadForUser1++
		return
	}
	c.UnreadForUser2++
}

// ResetUnreadFor zeroes the counter of the given participant.
func (c *Conversation) ResetUnreadFor(userID uint) {
	if c.User1ID == userID {
		c.UnreadForUser1 = 0
		return
	}
	c.UnreadForUser2 = 0
}

// UnreadColumnFor maps a participant to their counter column name.
func (c *Conversation) UnreadColumnFor(userID uint) string {
	if c.User1ID == userID {
		return "unread_for_user1"
	}
	return "unread_for_user2"
}
