package handlers

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/planora-app/planora-backend/internal/httpx"
	"github.com/planora-app/planora-backend/internal/service"
	"github.com/planora-app/planora-backend/internal/validation"
)

const (
	accessCookieName  = "planora_access"
	refreshCookieName = "planora_refresh"
	csrfCookieName    = "planora_csrf"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func cookieSecure() bool {
	return strings.ToLower(strings.TrimSpace(os.Getenv("COOKIE_SECURE"))) != "false"
}

func setAuthCookies(c *fiber.Ctx, result *service.AuthResponse) {
	secure := cookieSecure()
	c.Cookie(&fiber.Cookie{
		Name:     accessCookieName,
		Value:    result.Token,
		Path:     "/",
		HTTPOnly: true,
		Secure:   secure,
		SameSite: "Lax",
		Expires:  time.Now().Add(15 * time.Minute),
	})
	c.Cookie(&fiber.Cookie{
		Name:     refreshCookieName,
		Value:    result.RefreshToken,
		Path:     "/api/auth",
		HTTPOnly: true,
		Secure:   secure,
		SameSite: "Lax",
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})
	// Double-submit token; readable by the frontend.
	c.Cookie(&fiber.Cookie{
		Name:     csrfCookieName,
		Value:    uuid.NewString(),
		Path:     "/",
		HTTPOnly: false,
		Secure:   secure,
		SameSite: "Lax",
		Expires:  time.Now().Add(30 * 24 * time.Hour),
	})
}

func clearAuthCookies(c *fiber.Ctx) {
	expired := time.Now().Add(-time.Hour)
	c.Cookie(&fiber.Cookie{Name: accessCookieName, Value: "", Path: "/", HTTPOnly: true, Expires: expired})
	c.Cookie(&fiber.Cookie{Name: refreshCookieName, Value: "", Path: "/api/auth", HTTPOnly: true, Expires: expired})
	c.Cookie(&fiber.Cookie{Name: csrfCookieName, Value: "", Path: "/", Expires: expired})
}

// CSRF issues the double-submit token for clients that have not logged in yet
// (registration and login are state-changing POSTs too).
func (h *AuthHandler) CSRF(c *fiber.Ctx) error {
	token := c.Cookies(csrfCookieName)
	if token == "" {
		token = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     csrfCookieName,
			Value:    token,
			Path:     "/",
			HTTPOnly: false,
			Secure:   cookieSecure(),
			SameSite: "Lax",
			Expires:  time.Now().Add(30 * 24 * time.Hour),
		})
	}
	return c.JSON(fiber.Map{"csrf_token": token})
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input service.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	input.Email = validation.NormalizeEmail(input.Email)
	if !validation.ValidateEmail(input.Email) {
		return httpx.BadRequest(c, "invalid_email", "Invalid email address")
	}
	if !validation.ValidateUsername(input.Username) {
		return httpx.BadRequest(c, "invalid_username", "Invalid username")
	}
	if !validation.ValidatePassword(input.Password) {
		return httpx.BadRequest(c, "weak_password", "Password does not meet requirements")
	}
	input.FullName = validation.TrimAndLimit(input.FullName, 80)

	result, err := h.authService.Register(input)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			return httpx.Conflict(c, "email_taken", "Email is already registered")
		}
		if errors.Is(err, service.ErrUsernameTaken) {
			return httpx.Conflict(c, "username_taken", "Username is already taken")
		}
		return httpx.Internal(c, "register_failed")
	}

	setAuthCookies(c, result)
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input service.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}
	input.Email = validation.NormalizeEmail(input.Email)
	if input.Email == "" || input.Password == "" {
		return httpx.BadRequest(c, "missing_credentials", "Email and password are required")
	}

	result, err := h.authService.Login(input)
	if err != nil {
		var banned *service.ErrAccountBanned
		if errors.As(err, &banned) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":      "Account is banned",
				"code":       "account_banned",
				"ban_reason": banned.Reason,
			})
		}
		return httpx.Unauthorized(c, "invalid_credentials", "Invalid email or password")
	}

	setAuthCookies(c, result)
	return c.JSON(result)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	raw := c.Cookies(refreshCookieName)
	if raw == "" {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := c.BodyParser(&body); err == nil {
			raw = body.RefreshToken
		}
	}
	if raw == "" {
		return httpx.Unauthorized(c, "missing_refresh_token", "Missing refresh token")
	}

	result, err := h.authService.Refresh(raw)
	if err != nil {
		var banned *service.ErrAccountBanned
		if errors.As(err, &banned) {
			clearAuthCookies(c)
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error":      "Account is banned",
				"code":       "account_banned",
				"ban_reason": banned.Reason,
			})
		}
		clearAuthCookies(c)
		return httpx.Unauthorized(c, "invalid_refresh_token", "Invalid or expired refresh token")
	}

	setAuthCookies(c, result)
	return c.JSON(result)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if raw := c.Cookies(refreshCookieName); raw != "" {
		_ = h.authService.Logout(raw)
	}
	clearAuthCookies(c)
	return c.JSON(fiber.Map{"ok": true})
}
