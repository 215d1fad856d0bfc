package repository

import (
	"strings"
	"time"

	"github.com/planora-app/planora-backend/internal/models"
	"gorm.io/gorm"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// FindByUsers looks up the canonical row for an unordered pair. Argument order
// does not matter.
func (r *ConversationRepository) FindByUsers(userA, userB uint) (*models.Conversation, error) {
	u1, u2 := models.CanonicalPair(userA, userB)
	var conv models.Conversation
	err := r.db.Where("user1_id = ? AND user2_id = ?", u1, u2).First(&conv).Error
	return &conv, err
}

// ConversationRow is a denormalized row for the conversation list: one row per
// peer with the requester's unread counter, a last-message preview, and the
// peer's display profile.
//
// NOTE: deliberately not the full models.User / models.Message shape, to avoid
// leaking sensitive peer fields and to keep this a single query.
type ConversationRow struct {
	ConversationID uint      `gorm:"column:conversation_id" json:"conversation_id"`
	LastActivity   time.Time `gorm:"column:last_activity" json:"last_activity"`
	UnreadCount    int64     `gorm:"column:unread_count" json:"unread_count"`

	PeerID       uint       `gorm:"column:peer_id" json:"peer_id"`
	PeerUsername string     `gorm:"column:peer_username" json:"peer_username"`
	PeerFullName string     `gorm:"column:peer_full_name" json:"peer_full_name"`
	PeerAvatar   string     `gorm:"column:peer_avatar" json:"peer_avatar"`
	PeerIsOnline bool       `gorm:"column:peer_is_online" json:"peer_is_online"`
	PeerLastSeen *time.Time `gorm:"column:peer_last_seen" json:"peer_last_seen"`

	MessageID        *uint      `gorm:"column:message_id" json:"message_id"`
	MessageSenderID  *uint      `gorm:"column:message_sender_id" json:"message_sender_id"`
	MessageContent   string     `gorm:"column:message_content" json:"message_content"`
	MessageType      string     `gorm:"column:message_type" json:"message_type"`
	MessageCreatedAt *time.Time `gorm:"column:message_created_at" json:"message_created_at"`
}

func (r *ConversationRepository) ListForUser(userID uint) ([]ConversationRow, error) {
	query := strings.TrimSpace(`
SELECT
	c.id AS conversation_id,
	c.last_activity,
	CASE WHEN c.user1_id = ? THEN c.unread_for_user1 ELSE c.unread_for_user2 END AS unread_count,
	peer.id AS peer_id,
	peer.username AS peer_username,
	peer.full_name AS peer_full_name,
	peer.avatar AS peer_avatar,
	peer.is_online AS peer_is_online,
	peer.last_seen AS peer_last_seen,
	m.id AS message_id,
	m.sender_id AS message_sender_id,
	m.content AS message_content,
	m.message_type AS message_type,
	m.created_at AS message_created_at
FROM conversations c
JOIN users peer ON peer.id = CASE WHEN c.user1_id = ? THEN c.user2_id ELSE c.user1_id END
LEFT JOIN messages m ON m.id = c.last_message_id AND m.deleted_at IS NULL
WHERE c.user1_id = ? OR c.user2_id = ?
ORDER BY c.last_activity DESC, c.id DESC
`)

	var rows []ConversationRow
	err := r.db.Raw(query, userID, userID, userID, userID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// TotalUnread sums the requester's side of every conversation counter, for the
// badge in the app shell.
func (r *ConversationRepository) TotalUnread(userID uint) (int64, error) {
	var total int64
	err := r.db.Model(&models.Conversation{}).
		Select("COALESCE(SUM(CASE WHEN user1_id = ? THEN unread_for_user1 ELSE unread_for_user2 END), 0)", userID).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Scan(&total).Error
	return total, err
}
