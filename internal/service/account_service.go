package service

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/planora-app/planora-backend/internal/handlers/ws"
	"github.com/planora-app/planora-backend/internal/models"
	"github.com/planora-app/planora-backend/internal/repository"
)

var (
	// ErrProtectedAccount guards the root administrator from ban, role change
	// and deletion, checked before every transition.
	ErrProtectedAccount = errors.New("account is protected")
	ErrAlreadyBanned    = errors.New("user is already banned")
	ErrNotBanned        = errors.New("user is not banned")
	ErrAlreadyInRole    = errors.New("user already has that role")
)

// AccountService effects administrator account transitions: ban, unban,
// promote, demote, delete. Each runs as one transaction (status change + audit
// entry) and broadcasts the targeted event only after commit, so a client is
// never told about state that could still roll back. Live delivery is
// best-effort; the per-request status middleware is the authoritative net.
type AccountService struct {
	userRepo   repository.UserRepositoryInterface
	statusRepo repository.AccountStatusRepositoryInterface
	live       LivePush
}

func NewAccountService(userRepo repository.UserRepositoryInterface, statusRepo repository.AccountStatusRepositoryInterface, live LivePush) *AccountService {
	return &AccountService{
		userRepo:   userRepo,
		statusRepo: statusRepo,
		live:       live,
	}
}

// rootAdminID is the account no administrator action may target.
func rootAdminID() uint {
	if v := os.Getenv("ROOT_ADMIN_ID"); v != "" {
		if id, err := strconv.ParseUint(v, 10, 32); err == nil && id > 0 {
			return uint(id)
		}
	}
	return 1
}

func (s *AccountService) loadTarget(targetID uint) (*models.User, error) {
	user, err := s.userRepo.FindByID(targetID)
	if err != nil {
		return nil, err
	}
	if user.ID == rootAdminID() {
		return nil, ErrProtectedAccount
	}
	return user, nil
}

func (s *AccountService) BanUser(actorID, targetID uint, reason, ip string) error {
	user, err := s.loadTarget(targetID)
	if err != nil {
		return err
	}
	if user.IsBanned {
		return ErrAlreadyBanned
	}

	now := time.Now()
	audit := models.NewAuditLog(actorID, models.AuditActionBanUser, "user", user.ID,
		"Banned user "+user.Username,
		map[string]interface{}{"reason": reason})
	audit.IPAddress = ip

	if err := s.statusRepo.SetBanStatus(user.ID, true, reason, &now, audit); err != nil {
		return err
	}

	log.Printf("User %d (%s) banned by %d: %s", user.ID, user.Username, actorID, reason)

	if s.live != nil {
		_ = s.live.Push(user.ID, ws.EventUserBanned, ws.BanPayload{
			UserID:    user.ID,
			Username:  user.Username,
			BanReason: reason,
		})
	}
	return nil
}

func (s *AccountService) UnbanUser(actorID, targetID uint, ip string) error {
	user, err := s.loadTarget(targetID)
	if err != nil {
		return err
	}
	if !user.IsBanned {
		return ErrNotBanned
	}

	audit := models.NewAuditLog(actorID, models.AuditActionUnbanUser, "user", user.ID,
		"Unbanned user "+user.Username, nil)
	audit.IPAddress = ip

	if err := s.statusRepo.SetBanStatus(user.ID, false, "", nil, audit); err != nil {
		return err
	}

	log.Printf("User %d (%s) unbanned by %d", user.ID, user.Username, actorID)
	return nil
}

func (s *AccountService) PromoteUser(actorID, targetID uint, ip string) error {
	return s.changeRole(actorID, targetID, models.RoleAdmin, models.AuditActionPromoteUser, ip)
}

func (s *AccountService) DemoteUser(actorID, targetID uint, ip string) error {
	return s.changeRole(actorID, targetID, models.RoleUser, models.AuditActionDemoteUser, ip)
}

func (s *AccountService) changeRole(actorID, targetID uint, newRole, action, ip string) error {
	user, err := s.loadTarget(targetID)
	if err != nil {
		return err
	}
	if user.Role == newRole {
		return ErrAlreadyInRole
	}
	oldRole := user.Role

	audit := models.NewAuditLog(actorID, action, "user", user.ID,
		"Changed role of "+user.Username+" from "+oldRole+" to "+newRole,
		map[string]interface{}{"old_role": oldRole, "new_role": newRole})
	audit.IPAddress = ip

	if err := s.statusRepo.SetRole(user.ID, newRole, audit); err != nil {
		return err
	}

	log.Printf("User %d (%s) role changed %s -> %s by %d", user.ID, user.Username, oldRole, newRole, actorID)

	// The client reacts with a full reload so server-side permissions are
	// recomputed; the payload spares it a follow-up fetch.
	if s.live != nil {
		_ = s.live.Push(user.ID, ws.EventRoleChanged, ws.RoleChangedPayload{
			UserID:   user.ID,
			Username: user.Username,
			OldRole:  oldRole,
			NewRole:  newRole,
		})
	}
	return nil
}

func (s *AccountService) DeleteUser(actorID, targetID uint, reason, ip string) error {
	user, err := s.loadTarget(targetID)
	if err != nil {
		return err
	}

	audit := models.NewAuditLog(actorID, models.AuditActionDeleteUser, "user", user.ID,
		"Deleted account of "+user.Username,
		map[string]interface{}{"reason": reason})
	audit.IPAddress = ip

	if err := s.statusRepo.SoftDelete(user.ID, audit); err != nil {
		return err
	}

	log.Printf("User %d (%s) deleted by %d", user.ID, user.Username, actorID)

	if s.live != nil {
		_ = s.live.Push(user.ID, ws.EventAccountDeleted, ws.AccountDeletedPayload{
			UserID:   user.ID,
			Username: user.Username,
			Reason:   reason,
		})
	}
	return nil
}
