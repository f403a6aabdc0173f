package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestToDomainErrorMapsNoRowsToNotFound(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("query ticket: %w", pgx.ErrNoRows)
	domainErr := ToDomainError(wrapped)
	if domainErr.Code != "NOT_FOUND" {
		t.Errorf("code: got %s, want NOT_FOUND", domainErr.Code)
	}
	if domainErr.HTTPStatus != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", domainErr.HTTPStatus, http.StatusNotFound)
	}
}

func TestToDomainErrorPassesThroughDomainErrors(t *testing.T) {
	t.Parallel()

	original := NewValidationError("bad input", map[string]any{"field": "subject"})
	mapped := ToDomainError(original)
	if mapped.Code != "VALIDATION_FAILED" || mapped.HTTPStatus != http.StatusBadRequest {
		t.Errorf("got %+v", mapped)
	}
	if !IsValidation(original) {
		t.Error("IsValidation should report true")
	}
}

func TestToDomainErrorWrapsUnknownErrors(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk on fire")
	mapped := ToDomainError(cause)
	if mapped.Code != "INTERNAL_ERROR" {
		t.Errorf("code: got %s, want INTERNAL_ERROR", mapped.Code)
	}
	if !errors.Is(mapped, cause) {
		t.Error("mapped error should wrap the cause")
	}
}

func TestUploadError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")
	err := NewUploadError(cause)
	domainErr := ToDomainError(err)
	if domainErr.Code != "UPLOAD_FAILED" {
		t.Errorf("code: got %s, want UPLOAD_FAILED", domainErr.Code)
	}
	if domainErr.HTTPStatus != http.StatusBadGateway {
		t.Errorf("status: got %d, want %d", domainErr.HTTPStatus, http.StatusBadGateway)
	}
	if !errors.Is(err, cause) {
		t.Error("upload error should wrap the transport cause")
	}
}
