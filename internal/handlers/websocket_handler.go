package handlers

import (
	"log"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/planora-app/planora-backend/internal/cache"
	"github.com/planora-app/planora-backend/internal/handlers/ws"
	"github.com/planora-app/planora-backend/internal/service"
)

const readDeadline = 120 * time.Second

type WebSocketHandler struct {
	userService *service.UserService
	hub         *ws.Hub
	userCache   *cache.UserCache
}

func NewWebSocketHandler(userService *service.UserService, userCache *cache.UserCache) *WebSocketHandler {
	return &WebSocketHandler{
		userService: userService,
		hub:         ws.NewHub(),
		userCache:   userCache,
	}
}

// GetHub returns the hub instance (useful for sending events from other handlers)
func (h *WebSocketHandler) GetHub() *ws.Hub {
	return h.hub
}

func (h *WebSocketHandler) HandleWebSocket(c *websocket.Conn) {
	userID := c.Locals("userID").(uint)

	client := h.hub.Register(userID, c)

	// Update user status to online
	go func() {
		if h.userCache != nil {
			if err := h.userCache.SetUserOnline(userID); err != nil {
				log.Printf("Failed to set user %d online in cache: %v", userID, err)
			}
		}
		if err := h.userService.SetUserOnline(userID); err != nil {
			log.Printf("Failed to set user %d online in DB: %v", userID, err)
		}
	}()

	defer func() {
		h.hub.Unregister(client)
		// Mark offline only when the last device disconnects.
		if h.hub.IsOnline(userID) {
			return
		}
		go func() {
			if h.userCache != nil {
				if err := h.userCache.SetUserOffline(userID); err != nil {
					log.Printf("Failed to set user %d offline in cache: %v", userID, err)
				}
			}
			if err := h.userService.SetUserOffline(userID); err != nil {
				log.Printf("Failed to set user %d offline in DB: %v", userID, err)
			}
		}()
	}()

	_ = c.SetReadDeadline(time.Now().Add(readDeadline))
	c.SetPongHandler(func(string) error {
		h.hub.MarkPong(client)
		if h.userCache != nil {
			_ = h.userCache.SetUserOnline(userID)
		}
		return c.SetReadDeadline(time.Now().Add(readDeadline))
	})

	log.Printf("User %d connected via WebSocket", userID)

	// The channel is push-only; the read loop exists to surface pongs, close
	// frames, and dead peers.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Error reading from user %d: %v", userID, err)
			}
			break
		}
		_ = c.SetReadDeadline(time.Now().Add(readDeadline))
	}

	log.Printf("User %d disconnected from WebSocket", userID)
}
