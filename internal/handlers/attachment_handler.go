package handlers

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/planora-app/planora-backend/internal/httpx"
	"github.com/planora-app/planora-backend/internal/storage"
)

type AttachmentHandler struct {
	s3 *storage.S3Storage
}

func NewAttachmentHandler(s3 *storage.S3Storage) *AttachmentHandler {
	return &AttachmentHandler{s3: s3}
}

func normalizeETag(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "W/")
	v = strings.Trim(v, "\"")
	return v
}

// Upload accepts an image attachment, re-encodes it, and stores it under a
// per-user key. The returned attachment_key goes into the message body.
func (h *AttachmentHandler) Upload(c *fiber.Ctx) error {
	if h.s3 == nil {
		return httpx.Error(c, fiber.StatusServiceUnavailable, "storage_not_configured", "Storage not configured")
	}

	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return httpx.BadRequest(c, "missing_file", "file is required")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return httpx.BadRequest(c, "invalid_file", "Invalid file upload")
	}
	defer f.Close()

	data, contentType, size, err := storage.ProcessAttachmentImage(f, storage.DefaultAttachmentOptions())
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return httpx.BadRequest(c, "attachment_too_large", "Attachment is too large")
		}
		if errors.Is(err, storage.ErrUnsupported) {
			return httpx.BadRequest(c, "attachment_unsupported", "Unsupported image type")
		}
		if errors.Is(err, storage.ErrInvalidImage) {
			return httpx.BadRequest(c, "attachment_invalid", "Invalid image")
		}
		return httpx.Internal(c, "attachment_process_failed")
	}

	key := fmt.Sprintf("attachments/%d/%s.jpg", userID, uuid.NewString())
	if _, err := h.s3.PutObject(c.Context(), key, bytes.NewReader(data), size, contentType); err != nil {
		log.Printf("Failed to store attachment %q for user %d: %v", key, userID, err)
		return httpx.Internal(c, "attachment_upload_failed")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"attachment_key": key,
		"content_type":   contentType,
		"size":           size,
	})
}

// Delete removes a stored attachment. Keys are namespaced per uploader, so a
// user may only delete objects under their own prefix.
func (h *AttachmentHandler) Delete(c *fiber.Ctx) error {
	if h.s3 == nil {
		return httpx.Error(c, fiber.StatusServiceUnavailable, "storage_not_configured", "Storage not configured")
	}

	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	key, err := storage.SafeJoinObjectKey("attachments", strings.TrimSpace(c.Params("*")))
	if err != nil {
		return httpx.NotFound(c, "not_found", "Not found")
	}
	if !strings.HasPrefix(key, fmt.Sprintf("attachments/%d/", userID)) {
		return httpx.Forbidden(c, "not_owner", "Cannot delete another user's attachment")
	}

	if err := h.s3.DeleteObject(c.Context(), key); err != nil {
		log.Printf("Failed to delete attachment %q for user %d: %v", key, userID, err)
		return httpx.Internal(c, "attachment_delete_failed")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Get streams a stored attachment object back to the client.
func (h *AttachmentHandler) Get(c *fiber.Ctx) error {
	if h.s3 == nil {
		return httpx.Error(c, fiber.StatusServiceUnavailable, "storage_not_configured", "Storage not configured")
	}

	keyParam := strings.TrimSpace(c.Params("*"))
	key, err := storage.SafeJoinObjectKey("attachments", keyParam)
	if err != nil {
		return httpx.NotFound(c, "not_found", "Not found")
	}

	obj, st, err := h.s3.GetObject(c.Context(), key)
	if err != nil {
		// Hide details.
		var resp minio.ErrorResponse
		if errors.As(err, &resp) {
			if resp.StatusCode == 404 || resp.Code == "NoSuchKey" || resp.Code == "NoSuchObject" {
				return httpx.NotFound(c, "not_found", "Not found")
			}
		}
		log.Printf("Failed to fetch attachment %q: %v", key, err)
		return httpx.Internal(c, "attachment_fetch_failed")
	}

	if st.ETag != "" {
		c.Set("ETag", "\""+st.ETag+"\"")
		if inm := normalizeETag(c.Get("If-None-Match")); inm != "" && inm == normalizeETag(st.ETag) {
			_ = obj.Close()
			return c.SendStatus(fiber.StatusNotModified)
		}
	}

	c.Set("Cache-Control", "private, max-age=31536000, immutable")
	if st.ContentType != "" {
		c.Type(st.ContentType)
	} else {
		c.Type("image/jpeg")
	}
	if st.Size > 0 {
		c.Set("Content-Length", strconv.FormatInt(st.Size, 10))
	}

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			_ = obj.Close()
		}()
		if _, copyErr := io.Copy(w, obj); copyErr != nil {
			log.Printf("Attachment stream error key=%q err=%v", key, copyErr)
			return
		}
		_ = w.Flush()
	})
	return nil
}
