package service

import (
	"errors"

	"github.com/planora-app/planora-backend/internal/models"
	"github.com/planora-app/planora-backend/internal/repository"
	"gorm.io/gorm"
)

var (
	// ErrInvalidReceiver is returned when the recipient does not exist or was
	// deleted; surfaced from the store's existence check before persisting.
	ErrInvalidReceiver = errors.New("invalid receiver")
	// ErrMessageNotFound covers both a missing message and one owned by someone
	// else: authorization failure is indistinguishable from non-existence.
	ErrMessageNotFound = errors.New("message not found")
)

type MessageService struct {
	messageRepo repository.MessageRepositoryInterface
	convRepo    repository.ConversationRepositoryInterface
	userRepo    repository.UserRepositoryInterface
}

func NewMessageService(messageRepo repository.MessageRepositoryInterface, convRepo repository.ConversationRepositoryInterface, userRepo repository.UserRepositoryInterface) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		convRepo:    convRepo,
		userRepo:    userRepo,
	}
}

type SendMessageInput struct {
	RecipientID   uint               `json:"recipient_id"`
	Content       string             `json:"content"`
	MessageType   models.MessageType `json:"message_type"`
	AttachmentKey string             `json:"attachment_key"`
}

// SendMessage persists the message and updates the owning conversation
// (last-message pointer, last activity, receiver unread +1). The caller pushes
// the live event; offline receivers pick the row up on their next poll.
func (s *MessageService) SendMessage(senderID uint, input SendMessageInput) (*models.Message, error) {
	if _, err := s.userRepo.FindByID(input.RecipientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidReceiver
		}
		return nil, err
	}

	message := &models.Message{
		SenderID:      senderID,
		RecipientID:   input.RecipientID,
		Content:       input.Content,
		MessageType:   models.NormalizeMessageType(string(input.MessageType)),
		AttachmentKey: input.AttachmentKey,
	}

	if err := s.messageRepo.Create(message); err != nil {
		return nil, err
	}

	// Reload with sender display metadata.
	return s.messageRepo.FindByID(message.ID)
}

// ResolveConversation returns the canonical row for the unordered pair, or nil
// when the two users have never talked. (A,B) and (B,A) resolve identically.
func (s *MessageService) ResolveConversation(userA, userB uint) (*models.Conversation, error) {
	conv, err := s.convRepo.FindByUsers(userA, userB)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// ListMessages returns up to limit messages of the thread older than beforeID,
// oldest first. Opening a thread implies consumption: everything the peer sent
// is marked read and the caller's unread counter resets to zero.
func (s *MessageService) ListMessages(userID, peerID uint, beforeID uint, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	messages, err := s.messageRepo.FindConversationPage(userID, peerID, beforeID, limit)
	if err != nil {
		return nil, err
	}

	if _, err := s.messageRepo.MarkConversationRead(userID, peerID); err != nil {
		return nil, err
	}

	return messages, nil
}

// MarkConversationRead acknowledges the thread without fetching it.
func (s *MessageService) MarkConversationRead(userID, peerID uint) (int64, error) {
	return s.messageRepo.MarkConversationRead(userID, peerID)
}

// ListConversations returns one row per thread the user participates in,
// most recent activity first.
func (s *MessageService) ListConversations(userID uint) ([]repository.ConversationRow, error) {
	return s.convRepo.ListForUser(userID)
}

// TotalUnread sums the user's unread counters across all threads.
func (s *MessageService) TotalUnread(userID uint) (int64, error) {
	return s.convRepo.TotalUnread(userID)
}

// DeleteMessage removes a message the requester sent. Someone else's message
// reports ErrMessageNotFound, never a permission error.
func (s *MessageService) DeleteMessage(messageID, requesterID uint) error {
	affected, err := s.messageRepo.DeleteOwn(messageID, requesterID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrMessageNotFound
	}
	return nil
}
