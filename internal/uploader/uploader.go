// Package uploader is the thin adapter over the external file-upload
// collaborator. Uploading is always a separate step preceding the message
// append: a failed upload surfaces an error and the pending reply is never
// appended, a crash after upload leaves at worst an orphaned blob.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/spec-kit/campaign-support/internal/config"
	"github.com/spec-kit/campaign-support/internal/domain"
	apperrors "github.com/spec-kit/campaign-support/pkg/util"
)

// Upload describes a file to be stored.
type Upload struct {
	FileName string
	MimeType string
	Content  io.Reader
}

// Stored is the uploader's response: the stored URL plus the media kind
// classified client-side from the declared MIME type.
type Stored struct {
	URL  string
	Kind domain.AttachmentKind
}

// Client stores raw files with the external collaborator.
type Client interface {
	Upload(ctx context.Context, upload Upload) (*Stored, error)
}

type httpClient struct {
	endpoint string
	client   *http.Client
	maxBytes int64
}

// NewHTTPClient builds a Client talking to the configured upload endpoint.
func NewHTTPClient(cfg config.UploaderConfig) Client {
	return &httpClient{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout()},
		maxBytes: cfg.MaxUploadBytes,
	}
}

func (c *httpClient) Upload(ctx context.Context, upload Upload) (*Stored, error) {
	if c.endpoint == "" {
		return nil, apperrors.NewUploadError(fmt.Errorf("uploader endpoint not configured"))
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", upload.FileName)
	if err != nil {
		return nil, apperrors.NewUploadError(err)
	}

	reader := upload.Content
	if c.maxBytes > 0 {
		reader = io.LimitReader(reader, c.maxBytes+1)
	}
	written, err := io.Copy(part, reader)
	if err != nil {
		return nil, apperrors.NewUploadError(err)
	}
	if c.maxBytes > 0 && written > c.maxBytes {
		return nil, apperrors.NewValidationError("file exceeds upload size limit", map[string]any{
			"max_bytes": c.maxBytes,
		})
	}
	if err := writer.Close(); err != nil {
		return nil, apperrors.NewUploadError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, apperrors.NewUploadError(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, apperrors.NewUploadError(err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.NewUploadError(fmt.Errorf("uploader returned status %d", resp.StatusCode))
	}

	var payload struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, apperrors.NewUploadError(err)
	}
	if payload.URL == "" {
		return nil, apperrors.NewUploadError(fmt.Errorf("uploader response missing url"))
	}

	return &Stored{
		URL:  payload.URL,
		Kind: domain.KindFromMIME(upload.MimeType),
	}, nil
}
