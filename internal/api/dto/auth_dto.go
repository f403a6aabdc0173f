package dto

import (
	"time"

	"github.com/spec-kit/campaign-support/internal/domain"
)

// RegisterCandidateRequest payload.
type RegisterCandidateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest payload shared by both roles.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse carries the issued token.
type AuthResponse struct {
	SubjectID string            `json:"subject_id"`
	Role      domain.SenderRole `json:"role"`
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
}
