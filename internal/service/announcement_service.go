package service

import (
	"errors"
	"log"
	"time"

	"github.com/planora-app/planora-backend/internal/handlers/ws"
	"github.com/planora-app/planora-backend/internal/models"
	"github.com/planora-app/planora-backend/internal/repository"
)

var ErrNoTargets = errors.New("announcement has no target users")

type AnnouncementService struct {
	annRepo  repository.AnnouncementRepositoryInterface
	userRepo repository.UserRepositoryInterface
	live     LivePush
}

func NewAnnouncementService(annRepo repository.AnnouncementRepositoryInterface, userRepo repository.UserRepositoryInterface, live LivePush) *AnnouncementService {
	return &AnnouncementService{
		annRepo:  annRepo,
		userRepo: userRepo,
		live:     live,
	}
}

type PublishAnnouncementInput struct {
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	Type      string     `json:"type"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	TargetAll bool       `json:"target_all"`
	TargetIDs []uint     `json:"target_ids"`
}

// Publish commits the announcement, one audit log entry, and one eagerly
// materialized notification row per resolved target, all in a single
// transaction. Only after commit are online targets pushed notification:new;
// offline targets find their row on the next poll.
func (s *AnnouncementService) Publish(adminID uint, input PublishAnnouncementInput, ip string) (*models.SystemAnnouncement, error) {
	targets, err := s.resolveTargets(input.TargetAll, input.TargetIDs)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, ErrNoTargets
	}

	now := time.Now()
	announcement := &models.SystemAnnouncement{
		CreatedBy: adminID,
		Title:     input.Title,
		Content:   input.Content,
		Type:      models.NormalizeNotificationType(input.Type),
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
		IsActive:  true,
		TargetAll: input.TargetAll,
	}
	if !input.TargetAll {
		if err := announcement.SetTargetIDs(targets); err != nil {
			return nil, err
		}
	}

	// An already-open window means this publish IS the activation. Persist the
	// marker in the same transaction so the sweep sees the announcement as
	// delivered and does not emit it a second time.
	activeNow := announcement.ActiveAt(now)
	if activeNow {
		announcement.LastNotifiedAt = &now
	}

	notifications := make([]models.Notification, 0, len(targets))
	for _, userID := range targets {
		notifications = append(notifications, models.Notification{
			UserID:  userID,
			Type:    announcement.Type,
			Title:   announcement.Title,
			Message: announcement.Content,
		})
	}

	audit := models.NewAuditLog(adminID, models.AuditActionPublishAnnouncement, "announcement", 0,
		"Published system announcement: "+input.Title,
		map[string]interface{}{
			"title":      input.Title,
			"target_all": input.TargetAll,
			"targets":    len(targets),
			"start_date": input.StartDate,
		})
	audit.IPAddress = ip

	if err := s.annRepo.Publish(announcement, audit, notifications); err != nil {
		return nil, err
	}

	// Commit is done; live push is best-effort and only for announcements whose
	// window is already open. Future-dated ones are the activation sweep's job.
	if s.live != nil && activeNow {
		pushed := 0
		for i := range notifications {
			if s.live.IsOnline(notifications[i].UserID) {
				_ = s.live.Push(notifications[i].UserID, ws.EventNotificationNew, notifications[i].ToResponse())
				pushed++
			}
		}
		log.Printf("Announcement %d published to %d targets (%d live)", announcement.ID, len(targets), pushed)
	}

	return announcement, nil
}

func (s *AnnouncementService) resolveTargets(all bool, ids []uint) ([]uint, error) {
	if all {
		return s.userRepo.ListActiveIDs()
	}
	// De-duplicate an explicit list; one notification row per target.
	seen := make(map[uint]struct{}, len(ids))
	targets := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		targets = append(targets, id)
	}
	return targets, nil
}

func (s *AnnouncementService) List(limit, offset int) ([]models.SystemAnnouncement, int64, error) {
	return s.annRepo.List(limit, offset)
}

// Delete removes the announcement and cascades removal of its generated
// notification rows, with an audit entry in the same transaction.
func (s *AnnouncementService) Delete(adminID, announcementID uint, ip string) error {
	announcement, err := s.annRepo.FindByID(announcementID)
	if err != nil {
		return err
	}

	audit := models.NewAuditLog(adminID, models.AuditActionDeleteAnnouncement, "announcement", announcement.ID,
		"Deleted system announcement: "+announcement.Title, nil)
	audit.IPAddress = ip

	return s.annRepo.DeleteWithNotifications(announcement.ID, audit)
}
