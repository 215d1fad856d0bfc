package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/planora-app/planora-backend/internal/httpx"
	"github.com/planora-app/planora-backend/internal/repository"
	"gorm.io/gorm"
)

// AccountActive re-derives ban and role state from the durable user row on
// every authenticated request. The live ban/role-change events are best-effort
// and a client may miss one mid-reconnect; this check is the authoritative
// safety net: a missed socket event delays enforcement by at most one request.
func AccountActive(userRepo repository.UserRepositoryInterface) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := httpx.LocalUint(c, "userID")
		if err != nil {
			return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
		}

		user, err := userRepo.FindByID(userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return httpx.Unauthorized(c, "account_not_found", "Account no longer exists")
			}
			return httpx.Internal(c, "account_lookup_failed")
		}

		if user.IsBanned {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":      "Account is banned",
				"code":       "account_banned",
				"ban_reason": user.BanReason,
			})
		}

		// The durable role wins over whatever the token claimed; a demotion
		// takes effect even while old access tokens are still in the wild.
		c.Locals("role", user.Role)
		c.Locals("currentUser", user)

		return c.Next()
	}
}
