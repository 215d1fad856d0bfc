package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/planora-app/planora-backend/internal/handlers/ws"
	"github.com/planora-app/planora-backend/internal/models"
	"github.com/planora-app/planora-backend/internal/repository"
	"github.com/planora-app/planora-backend/internal/service"
)

const (
	// DefaultInterval is the sweep period; DefaultWindow trails two periods so a
	// late tick cannot miss an activation.
	DefaultInterval = 60 * time.Second
	DefaultWindow   = 2 * DefaultInterval
)

// Scheduler sweeps for system announcements whose activation time has just
// elapsed and pushes their pre-materialized notification rows to targets that
// are online right now. It never creates data; publish already did. Offline
// targets see their row on the next poll.
type Scheduler struct {
	annRepo   repository.AnnouncementRepositoryInterface
	notifRepo repository.NotificationRepositoryInterface
	live      service.LivePush
	interval  time.Duration
	window    time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewScheduler(annRepo repository.AnnouncementRepositoryInterface, notifRepo repository.NotificationRepositoryInterface, live service.LivePush) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		annRepo:   annRepo,
		notifRepo: notifRepo,
		live:      live,
		interval:  DefaultInterval,
		window:    DefaultWindow,
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (s *Scheduler) Start() {
	log.Printf("Announcement scheduler started (interval %s, window %s)", s.interval, s.window)
	go s.run()
}

func (s *Scheduler) Stop() {
	s.cancel()
	log.Println("Announcement scheduler stopped")
}

func (s *Scheduler) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Tick(time.Now())
		}
	}
}

// Tick runs one sweep. Any failure is logged and isolated: a bad row must
// never stop the ticker.
func (s *Scheduler) Tick(now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Scheduler tick recovered from panic: %v", r)
		}
	}()

	due, err := s.annRepo.DueForActivation(now.Add(-s.window), now)
	if err != nil {
		log.Printf("Scheduler: querying due announcements failed: %v", err)
		return
	}

	for i := range due {
		if err := s.activate(&due[i], now); err != nil {
			log.Printf("Scheduler: announcement %d activation failed: %v", due[i].ID, err)
		}
	}
}

func (s *Scheduler) activate(ann *models.SystemAnnouncement, now time.Time) error {
	// The trailing window re-queries announcements across ticks; the marker is
	// what actually prevents a double emission for the same activation.
	if ann.LastNotifiedAt != nil && !ann.LastNotifiedAt.Before(ann.StartDate) {
		return nil
	}

	online := s.live.OnlineUserIDs()
	targets, err := s.intersectTargets(ann, online)
	if err != nil {
		return err
	}

	if len(targets) > 0 {
		notifications, err := s.notifRepo.FindByAnnouncementForUsers(ann.ID, targets)
		if err != nil {
			return err
		}
		for i := range notifications {
			_ = s.live.Push(notifications[i].UserID, ws.EventNotificationNew, notifications[i].ToResponse())
		}
		log.Printf("Scheduler: announcement %d activated, pushed to %d online targets", ann.ID, len(notifications))
	}

	return s.annRepo.MarkNotified(ann.ID, now)
}

// intersectTargets reduces the announcement's target set to currently online
// users; offline targets already hold their durable notification row.
func (s *Scheduler) intersectTargets(ann *models.SystemAnnouncement, online []uint) ([]uint, error) {
	if ann.TargetAll {
		return online, nil
	}

	ids, err := ann.ResolvedTargetIDs()
	if err != nil {
		return nil, err
	}
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	targets := make([]uint, 0, len(online))
	for _, id := range online {
		if _, ok := set[id]; ok {
			targets = append(targets, id)
		}
	}
	return targets, nil
}
