package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/campaign-support/internal/api/dto"
	"github.com/spec-kit/campaign-support/internal/uploader"
	apperrors "github.com/spec-kit/campaign-support/pkg/util"
)

// UploadsHandler proxies attachment uploads to the external uploader. The
// returned url and kind are what the caller passes along with its next
// message append.
type UploadsHandler struct {
	uploader uploader.Client
}

// NewUploadsHandler constructs handler.
func NewUploadsHandler(client uploader.Client) *UploadsHandler {
	return &UploadsHandler{uploader: client}
}

// Upload POST /uploads.
func (h *UploadsHandler) Upload(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("multipart field 'file' required", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return apperrors.NewValidationError("unreadable file", nil)
	}
	defer file.Close() //nolint:errcheck

	stored, err := h.uploader.Upload(c.UserContext(), uploader.Upload{
		FileName: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Content:  file,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.UploadResponse{
		URL:  stored.URL,
		Kind: stored.Kind,
	}})
}
