package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/planora-app/planora-backend/internal/cache"
	"github.com/planora-app/planora-backend/internal/httpx"
	"github.com/planora-app/planora-backend/internal/repository"
	"github.com/planora-app/planora-backend/internal/service"
	"github.com/planora-app/planora-backend/internal/validation"
	"gorm.io/gorm"
)

type AdminHandler struct {
	accountService      *service.AccountService
	announcementService *service.AnnouncementService
	userService         *service.UserService
	auditRepo           repository.AuditLogRepositoryInterface
	userCache           *cache.UserCache
	live                service.LivePush
}

func NewAdminHandler(accountService *service.AccountService, announcementService *service.AnnouncementService, userService *service.UserService, auditRepo repository.AuditLogRepositoryInterface, userCache *cache.UserCache, live service.LivePush) *AdminHandler {
	return &AdminHandler{
		accountService:      accountService,
		announcementService: announcementService,
		userService:         userService,
		auditRepo:           auditRepo,
		userCache:           userCache,
		live:                live,
	}
}

// Stats reports presence for the admin dashboard. Redis holds the view that
// survives restarts; when it is down we fall back to the in-process registry.
func (h *AdminHandler) Stats(c *fiber.Ctx) error {
	onlineIDs, err := h.userCache.GetOnlineUsers()
	if err != nil || onlineIDs == nil {
		if h.live != nil {
			onlineIDs = h.live.OnlineUserIDs()
		}
	}
	onlineCount, err := h.userCache.GetOnlineCount()
	if err != nil || onlineCount == 0 {
		onlineCount = int64(len(onlineIDs))
	}
	if onlineIDs == nil {
		onlineIDs = []uint{}
	}

	return c.JSON(fiber.Map{
		"online_count":    onlineCount,
		"online_user_ids": onlineIDs,
	})
}

func targetUserID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}

func accountError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrProtectedAccount):
		return httpx.Forbidden(c, "protected_account", "This account cannot be modified")
	case errors.Is(err, service.ErrAlreadyBanned):
		return httpx.Conflict(c, "already_banned", "User is already banned")
	case errors.Is(err, service.ErrNotBanned):
		return httpx.Conflict(c, "not_banned", "User is not banned")
	case errors.Is(err, service.ErrAlreadyInRole):
		return httpx.Conflict(c, "already_in_role", "User already has that role")
	case errors.Is(err, gorm.ErrRecordNotFound):
		return httpx.NotFound(c, "user_not_found", "User not found")
	default:
		return httpx.Internal(c, "account_update_failed")
	}
}

func (h *AdminHandler) BanUser(c *fiber.Ctx) error {
	actorID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	targetID, err := targetUserID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user id")
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.BodyParser(&body)
	body.Reason = validation.TrimAndLimit(body.Reason, 500)

	if err := h.accountService.BanUser(actorID, targetID, body.Reason, c.IP()); err != nil {
		return accountError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *AdminHandler) UnbanUser(c *fiber.Ctx) error {
	actorID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	targetID, err := targetUserID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user id")
	}

	if err := h.accountService.UnbanUser(actorID, targetID, c.IP()); err != nil {
		return accountError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *AdminHandler) PromoteUser(c *fiber.Ctx) error {
	actorID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	targetID, err := targetUserID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user id")
	}

	if err := h.accountService.PromoteUser(actorID, targetID, c.IP()); err != nil {
		return accountError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *AdminHandler) DemoteUser(c *fiber.Ctx) error {
	actorID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	targetID, err := targetUserID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user id")
	}

	if err := h.accountService.DemoteUser(actorID, targetID, c.IP()); err != nil {
		return accountError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	actorID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}
	targetID, err := targetUserID(c)
	if err != nil {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user id")
	}

	var body struct {
		Reason string `json:"reason"`
	}
	_ = c.BodyParser(&body)
	body.Reason = validation.TrimAndLimit(body.Reason, 500)

	if err := h.accountService.DeleteUser(actorID, targetID, body.Reason, c.IP()); err != nil {
		return accountError(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	filter := repository.UserFilter{
		Query:  c.Query("q"),
		Role:   c.Query("role"),
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}
	if bannedStr := c.Query("banned"); bannedStr != "" {
		banned := bannedStr == "true" || bannedStr == "1"
		filter.Banned = &banned
	}

	users, total, err := h.userService.ListUsers(filter)
	if err != nil {
		return httpx.Internal(c, "list_users_failed")
	}

	responses := make([]interface{}, len(users))
	for i, u := range users {
		responses[i] = u.ToAdminResponse()
	}

	return c.JSON(fiber.Map{
		"users": responses,
		"total": total,
	})
}

func (h *AdminHandler) ListAuditLog(c *fiber.Ctx) error {
	filter := repository.AuditLogFilter{
		Action: c.Query("action"),
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
	}
	if actorStr := c.Query("actor_id"); actorStr != "" {
		if id, err := strconv.ParseUint(actorStr, 10, 32); err == nil {
			filter.ActorID = uint(id)
		}
	}
	if targetStr := c.Query("target_id"); targetStr != "" {
		if id, err := strconv.ParseUint(targetStr, 10, 32); err == nil {
			filter.TargetID = uint(id)
		}
	}

	entries, total, err := h.auditRepo.List(filter)
	if err != nil {
		return httpx.Internal(c, "list_audit_log_failed")
	}

	return c.JSON(fiber.Map{
		"entries": entries,
		"total":   total,
	})
}

func (h *AdminHandler) PublishAnnouncement(c *fiber.Ctx) error {
	adminID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input service.PublishAnnouncementInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	input.Title = validation.TrimAndLimit(input.Title, validation.MaxTitleLength())
	input.Content = validation.TrimAndLimit(input.Content, validation.MaxAnnouncementLength())
	if input.Title == "" || input.Content == "" {
		return httpx.BadRequest(c, "missing_fields", "Title and content are required")
	}
	if input.StartDate.IsZero() {
		input.StartDate = time.Now()
	}
	if input.EndDate != nil && input.EndDate.Before(input.StartDate) {
		return httpx.BadRequest(c, "invalid_window", "end_date must be after start_date")
	}

	announcement, err := h.announcementService.Publish(adminID, input, c.IP())
	if err != nil {
		if errors.Is(err, service.ErrNoTargets) {
			return httpx.BadRequest(c, "no_targets", "Announcement has no target users")
		}
		return httpx.Internal(c, "publish_announcement_failed")
	}

	return c.Status(fiber.StatusCreated).JSON(announcement.ToResponse())
}

func (h *AdminHandler) ListAnnouncements(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	announcements, total, err := h.announcementService.List(limit, offset)
	if err != nil {
		return httpx.Internal(c, "list_announcements_failed")
	}

	responses := make([]interface{}, len(announcements))
	for i, a := range announcements {
		responses[i] = a.ToResponse()
	}

	return c.JSON(fiber.Map{
		"announcements": responses,
		"total":         total,
	})
}

func (h *AdminHandler) DeleteAnnouncement(c *fiber.Ctx) error {
	adminID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	annID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || annID == 0 {
		return httpx.BadRequest(c, "invalid_announcement_id", "Invalid announcement id")
	}

	if err := h.announcementService.Delete(adminID, uint(annID), c.IP()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return httpx.NotFound(c, "announcement_not_found", "Announcement not found")
		}
		return httpx.Internal(c, "delete_announcement_failed")
	}

	return c.JSON(fiber.Map{"ok": true})
}
