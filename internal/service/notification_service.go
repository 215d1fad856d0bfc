package service

import (
	"errors"
	"log"

	"github.com/planora-app/planora-backend/internal/handlers/ws"
	"github.com/planora-app/planora-backend/internal/models"
	"github.com/planora-app/planora-backend/internal/repository"
	"gorm.io/gorm"
)

const (
	NotificationFilterAll    = "all"
	NotificationFilterUnread = "unread"
)

type NotificationService struct {
	notifRepo repository.NotificationRepositoryInterface
	userRepo  repository.UserRepositoryInterface
	live      LivePush
}

func NewNotificationService(notifRepo repository.NotificationRepositoryInterface, userRepo repository.UserRepositoryInterface, live LivePush) *NotificationService {
	return &NotificationService{
		notifRepo: notifRepo,
		userRepo:  userRepo,
		live:      live,
	}
}

type CreateNotificationInput struct {
	UserID      uint   `json:"user_id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Message     string `json:"message"`
	RedirectURL string `json:"redirect_url"`
	RelatedID   *uint  `json:"related_id"`
}

// Create persists a notification and pushes it live if the user is connected.
// It fails soft: a missing or unknown user logs and returns nil rather than an
// error, because delivery must never abort the business operation that asked
// for it. An unknown type is coerced to system.
func (s *NotificationService) Create(input CreateNotificationInput) (*models.Notification, error) {
	if input.UserID == 0 {
		log.Printf("Skipping notification %q: no user", input.Title)
		return nil, nil
	}
	if _, err := s.userRepo.FindByID(input.UserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("Skipping notification %q: user %d not found", input.Title, input.UserID)
			return nil, nil
		}
		return nil, err
	}

	notification := &models.Notification{
		UserID:      input.UserID,
		Type:        models.NormalizeNotificationType(input.Type),
		Title:       input.Title,
		Message:     input.Message,
		RedirectURL: input.RedirectURL,
		RelatedID:   input.RelatedID,
	}

	if err := s.notifRepo.Create(notification); err != nil {
		return nil, err
	}

	if s.live != nil && s.live.IsOnline(input.UserID) {
		_ = s.live.Push(input.UserID, ws.EventNotificationNew, notification.ToResponse())
	}

	return notification, nil
}

// ListFor returns the user's visible notifications, optionally unread only.
// Visibility of announcement-generated rows is re-derived at read time.
func (s *NotificationService) ListFor(userID uint, filter string, limit int) ([]models.Notification, error) {
	return s.notifRepo.ListVisible(userID, filter == NotificationFilterUnread, limit)
}

func (s *NotificationService) MarkRead(notificationID, userID uint) error {
	return s.notifRepo.MarkRead(notificationID, userID)
}

func (s *NotificationService) MarkAllRead(userID uint) (int64, error) {
	return s.notifRepo.MarkAllRead(userID)
}

func (s *NotificationService) UnreadCount(userID uint) (int64, error) {
	return s.notifRepo.UnreadCount(userID)
}
