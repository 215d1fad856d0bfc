package repository

import (
	"time"

	"github.com/planora-app/planora-backend/internal/models"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create persists the message and maintains the owning conversation row in one
// transaction: find-or-create the canonical pair, advance the last-message
// pointer and activity timestamp, and bump the recipient's unread counter by
// exactly one. The sender's counter is untouched.
func (r *MessageRepository) Create(message *models.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}

		u1, u2 := message.ConversationOf()
		var conv models.Conversation
		err := tx.Where("user1_id = ? AND user2_id = ?", u1, u2).First(&conv).Error
		if err == gorm.ErrRecordNotFound {
			conv = *models.NewConversation(u1, u2)
			if err := tx.Create(&conv).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}

		return tx.Model(&conv).Updates(map[string]interface{}{
			"last_message_id": message.ID,
			"last_activity":   message.CreatedAt,
			conv.UnreadColumnFor(message.RecipientID): gorm.Expr(conv.UnreadColumnFor(message.RecipientID) + " + 1"),
		}).Error
	})
}

func (r *MessageRepository) FindByID(id uint) (*models.Message, error) {
	var message models.Message
	err := r.db.Preload("Sender").First(&message, id).Error
	return &message, err
}

// FindConversationPage returns up to limit messages of the pair older than
// beforeID (0 means newest page), in chronological order.
func (r *MessageRepository) FindConversationPage(userID, peerID uint, beforeID uint, limit int) ([]models.Message, error) {
	q := r.db.Preload("Sender").
		Where("(sender_id = ? AND recipient_id = ?) OR (sender_id = ? AND recipient_id = ?)",
			userID, peerID, peerID, userID)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}

	var messages []models.Message
	err := q.Order("created_at DESC").Limit(limit).Find(&messages).Error
	if err != nil {
		return nil, err
	}

	// Reverse to chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// MarkConversationRead acknowledges everything peer sent to user: flips the
// unread message rows and zeroes user's counter on the conversation, together.
func (r *MessageRepository) MarkConversationRead(userID, peerID uint) (int64, error) {
	var flipped int64
	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Message{}).
			Where("sender_id = ? AND recipient_id = ? AND is_read = ?", peerID, userID, false).
			Updates(map[string]interface{}{
				"is_read": true,
				"read_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		flipped = res.RowsAffected

		u1, u2 := models.CanonicalPair(userID, peerID)
		var conv models.Conversation
		err := tx.Where("user1_id = ? AND user2_id = ?", u1, u2).First(&conv).Error
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return tx.Model(&conv).Update(conv.UnreadColumnFor(userID), 0).Error
	})
	return flipped, err
}

// DeleteOwn removes a message only when requester is its sender. Zero rows
// means not found or not owned; callers do not distinguish the two.
func (r *MessageRepository) DeleteOwn(messageID, senderID uint) (int64, error) {
	res := r.db.Where("id = ? AND sender_id = ?", messageID, senderID).Delete(&models.Message{})
	return res.RowsAffected, res.Error
}
