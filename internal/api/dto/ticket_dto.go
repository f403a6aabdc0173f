package dto

import (
	"time"

	"github.com/spec-kit/campaign-support/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// CreateMessageRequest payload. Either body or an attachment must be set.
type CreateMessageRequest struct {
	Body       string             `json:"body"`
	Attachment *AttachmentRequest `json:"attachment,omitempty"`
}

// AttachmentRequest references a previously uploaded file.
type AttachmentRequest struct {
	URL  string                `json:"url"`
	Kind domain.AttachmentKind `json:"kind"`
}

// TicketSummary response for list views.
type TicketSummary struct {
	ID         string              `json:"id"`
	OwnerID    string              `json:"owner_id"`
	Subject    string              `json:"subject"`
	Status     domain.TicketStatus `json:"status"`
	Unread     *bool               `json:"unread,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	LastUpdate time.Time           `json:"last_update"`
}

// TicketDetailResponse provides a ticket with its full thread.
type TicketDetailResponse struct {
	ID         string              `json:"id"`
	OwnerID    string              `json:"owner_id"`
	Subject    string              `json:"subject"`
	Status     domain.TicketStatus `json:"status"`
	Unread     *bool               `json:"unread,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	LastUpdate time.Time           `json:"last_update"`
	Messages   []MessageResponse   `json:"messages"`
}

// MessageResponse represents one thread entry.
type MessageResponse struct {
	ID         string              `json:"id"`
	SenderID   string              `json:"sender_id"`
	SenderRole domain.SenderRole   `json:"sender_role"`
	Body       string              `json:"body"`
	Attachment *AttachmentResponse `json:"attachment,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	URL  string                `json:"url"`
	Kind domain.AttachmentKind `json:"kind"`
}

// UploadResponse is returned by the upload endpoint.
type UploadResponse struct {
	URL  string                `json:"url"`
	Kind domain.AttachmentKind `json:"kind"`
}
