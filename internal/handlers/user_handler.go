package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/planora-app/planora-backend/internal/cache"
	"github.com/planora-app/planora-backend/internal/httpx"
	"github.com/planora-app/planora-backend/internal/service"
	"github.com/planora-app/planora-backend/internal/validation"
)

type UserHandler struct {
	userService *service.UserService
	userCache   *cache.UserCache
	live        service.LivePush
}

func NewUserHandler(userService *service.UserService, userCache *cache.UserCache, live service.LivePush) *UserHandler {
	return &UserHandler{userService: userService, userCache: userCache, live: live}
}

// GetCurrentUser gets the authenticated user's profile
func (h *UserHandler) GetCurrentUser(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	return c.JSON(fiber.Map{
		"user": user.ToResponse(),
	})
}

// UpdateProfile updates user profile information
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input service.UpdateProfileInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	if input.Username != "" && !validation.ValidateUsername(input.Username) {
		return httpx.BadRequest(c, "invalid_username", "Invalid username")
	}
	if input.FullName != "" {
		input.FullName = validation.TrimAndLimit(input.FullName, 80)
	}

	user, err := h.userService.UpdateProfile(userID, input)
	if err != nil {
		return httpx.BadRequest(c, "update_profile_failed", err.Error())
	}

	return c.JSON(fiber.Map{
		"user": user.ToResponse(),
	})
}

// GetUser returns another user's public profile along with their presence.
// Redis answers presence first so the flag stays consistent across instances;
// the in-process registry covers the case where Redis is down.
func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return httpx.BadRequest(c, "invalid_user_id", "Invalid user id")
	}

	user, err := h.userService.GetUserByID(uint(id))
	if err != nil {
		return httpx.NotFound(c, "user_not_found", "User not found")
	}

	online := h.userCache.IsUserOnline(user.ID)
	if !online && h.live != nil {
		online = h.live.IsOnline(user.ID)
	}

	return c.JSON(fiber.Map{
		"user":   user.ToResponse(),
		"online": online,
	})
}

// SearchUsers searches for users by username or full name
func (h *UserHandler) SearchUsers(c *fiber.Ctx) error {
	query := c.Query("q")
	if query == "" {
		return httpx.BadRequest(c, "missing_query", "Search query is required")
	}

	limit := 20
	if l := c.QueryInt("limit", 20); l > 0 && l <= 50 {
		limit = l
	}

	users, err := h.userService.SearchUsers(query, limit)
	if err != nil {
		return httpx.Internal(c, "search_users_failed")
	}

	responses := make([]interface{}, len(users))
	for i, user := range users {
		responses[i] = user.ToResponse()
	}

	return c.JSON(fiber.Map{
		"users": responses,
	})
}
