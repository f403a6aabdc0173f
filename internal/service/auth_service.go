package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/campaign-support/internal/auth"
	"github.com/spec-kit/campaign-support/internal/config"
	"github.com/spec-kit/campaign-support/internal/domain"
	"github.com/spec-kit/campaign-support/internal/repository"
	apperrors "github.com/spec-kit/campaign-support/pkg/util"
)

const minPasswordLength = 8

// AuthService handles registration and login for both roles. Accounts are
// always created with a caller-chosen password; there are no default
// credentials and passwords are never echoed back.
type AuthService struct {
	candidates repository.CandidateRepository
	admins     repository.AdminRepository
	tokens     *auth.TokenManager
	bcryptCost int
}

// AuthDependencies bundles repositories for auth service.
type AuthDependencies struct {
	CandidateRepo repository.CandidateRepository
	AdminRepo     repository.AdminRepository
}

// AuthResult is the outcome of a successful login or registration.
type AuthResult struct {
	SubjectID string
	Role      domain.SenderRole
	Token     string
	ExpiresAt time.Time
}

// NewAuthService constructs the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		candidates: deps.CandidateRepo,
		admins:     deps.AdminRepo,
		tokens:     auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokens
}

// RegisterCandidate creates a candidate account and issues a token.
func (s *AuthService) RegisterCandidate(ctx context.Context, name, email, password string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return nil, apperrors.NewValidationError("name and email required", nil)
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.NewValidationError("password too short", map[string]any{
			"min_length": minPasswordLength,
		})
	}

	if _, err := s.candidates.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	candidate := &domain.Candidate{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Status:       domain.CandidateStatusActive,
	}
	if err := s.candidates.Create(ctx, candidate); err != nil {
		return nil, err
	}
	return s.issue(candidate.ID, domain.RoleCandidate)
}

// LoginCandidate authenticates a candidate by email and password.
func (s *AuthService) LoginCandidate(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	candidate, err := s.candidates.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if candidate.Status != domain.CandidateStatusActive {
		return nil, apperrors.NewForbidden("account suspended")
	}
	if err := auth.ComparePassword(candidate.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issue(candidate.ID, domain.RoleCandidate)
}

// LoginAdmin authenticates a platform administrator.
func (s *AuthService) LoginAdmin(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	admin, err := s.admins.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := auth.ComparePassword(admin.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	return s.issue(admin.ID, domain.RoleAdmin)
}

func (s *AuthService) issue(subjectID string, role domain.SenderRole) (*AuthResult, error) {
	token, expiresAt, err := s.tokens.GenerateToken(subjectID, role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		SubjectID: subjectID,
		Role:      role,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}
