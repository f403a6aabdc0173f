package domain

import (
	"strings"
	"time"
)

// AttachmentKind is the coarse media classification shown in thread views.
type AttachmentKind string

const (
	AttachmentKindImage AttachmentKind = "IMAGE"
	AttachmentKindVideo AttachmentKind = "VIDEO"
	AttachmentKindVoice AttachmentKind = "VOICE"
	AttachmentKindFile  AttachmentKind = "FILE"
)

// Attachment references an uploaded file by URL plus its media kind.
type Attachment struct {
	URL  string
	Kind AttachmentKind
}

// Message is one entry in a ticket thread. A message carries non-empty Text,
// an Attachment, or both; never neither.
type Message struct {
	ID         string
	TicketID   string
	SenderID   string
	SenderRole SenderRole
	Text       string
	Attachment *Attachment
	CreatedAt  time.Time
}

// KindFromMIME maps a declared MIME type to its attachment kind by prefix.
func KindFromMIME(mimeType string) AttachmentKind {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return AttachmentKindImage
	case strings.HasPrefix(mimeType, "video/"):
		return AttachmentKindVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return AttachmentKindVoice
	default:
		return AttachmentKindFile
	}
}
