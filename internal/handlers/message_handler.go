package handlers

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/planora-app/planora-backend/internal/cache"
	"github.com/planora-app/planora-backend/internal/handlers/ws"
	"github.com/planora-app/planora-backend/internal/httpx"
	"github.com/planora-app/planora-backend/internal/service"
	"github.com/planora-app/planora-backend/internal/validation"
)

type MessageHandler struct {
	messageService *service.MessageService
	convCache      *cache.ConversationCache
	live           service.LivePush
}

func NewMessageHandler(messageService *service.MessageService, convCache *cache.ConversationCache, live service.LivePush) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		convCache:      convCache,
		live:           live,
	}
}

func (h *MessageHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input service.SendMessageInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_request_body", "Invalid request body")
	}

	input.Content = validation.TrimAndLimit(input.Content, validation.MaxMessageLength())
	if input.Content == "" && input.AttachmentKey == "" {
		return httpx.BadRequest(c, "missing_content", "Content is required")
	}
	if input.RecipientID == 0 {
		return httpx.BadRequest(c, "missing_recipient", "recipient_id is required")
	}
	if input.RecipientID == userID {
		return httpx.BadRequest(c, "invalid_recipient", "Cannot message yourself")
	}

	message, err := h.messageService.SendMessage(userID, input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidReceiver) {
			return httpx.BadRequest(c, "invalid_recipient", "Recipient does not exist")
		}
		return httpx.Internal(c, "send_message_failed")
	}

	// Conversation lists and unread totals changed for both sides.
	h.convCache.Invalidate(userID, input.RecipientID)

	// Live delivery is best-effort; the receiver finds the row on the next
	// poll if the push misses.
	if h.live != nil && h.live.IsOnline(input.RecipientID) {
		if err := h.live.Push(input.RecipientID, ws.EventMessageNew, ws.MessagePayload{
			Message:  message.ToResponse(),
			SenderID: userID,
		}); err != nil {
			log.Printf("Failed to push message %d to user %d: %v", message.ID, input.RecipientID, err)
		}
	}

	return c.Status(fiber.StatusCreated).JSON(message.ToResponse())
}

func (h *MessageHandler) GetMessages(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	peerIDStr := c.Query("peer_id")
	if peerIDStr == "" {
		return httpx.BadRequest(c, "missing_peer", "peer_id is required")
	}
	peerID, err := strconv.ParseUint(peerIDStr, 10, 32)
	if err != nil || peerID == 0 {
		return httpx.BadRequest(c, "invalid_peer", "Invalid peer_id")
	}

	limit := 50
	if l := c.QueryInt("limit", 50); l > 0 && l <= 100 {
		limit = l
	}

	var beforeID uint
	if cursorStr := c.Query("cursor"); cursorStr != "" {
		cursor, err := strconv.ParseUint(cursorStr, 10, 32)
		if err != nil {
			return httpx.BadRequest(c, "invalid_cursor", "Invalid cursor")
		}
		beforeID = uint(cursor)
	}

	messages, err := h.messageService.ListMessages(userID, uint(peerID), beforeID, limit)
	if err != nil {
		return httpx.Internal(c, "fetch_messages_failed")
	}

	// Reading the page acknowledged it; cached unread totals are stale now.
	h.convCache.Invalidate(userID)

	responses := make([]interface{}, len(messages))
	for i, msg := range messages {
		responses[i] = msg.ToResponse()
	}

	result := fiber.Map{
		"messages": responses,
		"count":    len(messages),
	}
	if len(messages) > 0 {
		// Messages are chronological; the first element is the oldest of this
		// page and the cursor for loading older ones.
		result["next_cursor"] = messages[0].ID
	}

	return c.JSON(result)
}

func (h *MessageHandler) GetConversations(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	if rows, ok := h.convCache.GetConversationList(userID); ok {
		return c.JSON(fiber.Map{"conversations": rows, "count": len(rows)})
	}

	rows, err := h.messageService.ListConversations(userID)
	if err != nil {
		return httpx.Internal(c, "fetch_conversations_failed")
	}
	if len(rows) > 0 {
		_ = h.convCache.SetConversationList(userID, rows)
	}

	return c.JSON(fiber.Map{"conversations": rows, "count": len(rows)})
}

// GetConversation resolves the thread with one peer. Either ordering of the
// pair lands on the same row; users who never talked get a null conversation,
// not a created one.
func (h *MessageHandler) GetConversation(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	peerID, err := strconv.ParseUint(c.Params("peerID"), 10, 32)
	if err != nil || peerID == 0 {
		return httpx.BadRequest(c, "invalid_peer", "Invalid peer id")
	}

	conv, err := h.messageService.ResolveConversation(userID, uint(peerID))
	if err != nil {
		return httpx.Internal(c, "fetch_conversation_failed")
	}
	if conv == nil {
		return c.JSON(fiber.Map{"conversation": nil})
	}

	return c.JSON(fiber.Map{
		"conversation": conv,
		"unread":       conv.UnreadFor(userID),
	})
}

func (h *MessageHandler) MarkConversationRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	peerID, err := strconv.ParseUint(c.Params("peerID"), 10, 32)
	if err != nil || peerID == 0 {
		return httpx.BadRequest(c, "invalid_peer", "Invalid peer id")
	}

	marked, err := h.messageService.MarkConversationRead(userID, uint(peerID))
	if err != nil {
		return httpx.Internal(c, "mark_read_failed")
	}
	h.convCache.Invalidate(userID)

	return c.JSON(fiber.Map{"marked": marked})
}

func (h *MessageHandler) GetUnreadTotal(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	if total, ok := h.convCache.GetUnreadTotal(userID); ok {
		return c.JSON(fiber.Map{"unread": total})
	}

	total, err := h.messageService.TotalUnread(userID)
	if err != nil {
		return httpx.Internal(c, "fetch_unread_failed")
	}
	_ = h.convCache.SetUnreadTotal(userID, total)

	return c.JSON(fiber.Map{"unread": total})
}

func (h *MessageHandler) DeleteMessage(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	messageID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || messageID == 0 {
		return httpx.BadRequest(c, "invalid_message_id", "Invalid message id")
	}

	if err := h.messageService.DeleteMessage(uint(messageID), userID); err != nil {
		if errors.Is(err, service.ErrMessageNotFound) {
			return httpx.NotFound(c, "message_not_found", "Message not found")
		}
		return httpx.Internal(c, "delete_message_failed")
	}

	return c.JSON(fiber.Map{"ok": true})
}
