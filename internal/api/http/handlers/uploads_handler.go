package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/feedx-service/internal/storage"
	apperrors "github.com/spec-kit/feedx-service/pkg/util/errorutil"
)

// UploadsHandler accepts single proof file uploads onto local disk.
type UploadsHandler struct {
	store *storage.DiskStore
}

// NewUploadsHandler constructs handler.
func NewUploadsHandler(store *storage.DiskStore) *UploadsHandler {
	return &UploadsHandler{store: store}
}

// Upload handles POST /api/upload with one multipart "file" part.
func (h *UploadsHandler) Upload(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("no file uploaded", map[string]any{"file": "required"})
	}

	stored, err := h.store.Save(c.UserContext(), formFiles([]*multipart.FileHeader{fh})[0])
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return apperrors.NewDomainError("PAYLOAD_TOO_LARGE", fmt.Sprintf("%s is too large", fh.Filename), http.StatusRequestEntityTooLarge, nil)
	case errors.Is(err, storage.ErrUnsupportedType):
		return apperrors.NewValidationError(fmt.Sprintf("%s is not a supported format", fh.Filename), map[string]any{"file": err.Error()})
	case err != nil:
		return apperrors.NewInternalError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": stored})
}
