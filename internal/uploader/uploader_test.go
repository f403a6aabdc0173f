package uploader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spec-kit/campaign-support/internal/config"
	"github.com/spec-kit/campaign-support/internal/domain"
	apperrors "github.com/spec-kit/campaign-support/pkg/util"
)

func TestUploadReturnsURLAndKind(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		if header.Filename != "photo.png" {
			t.Errorf("filename: got %q, want %q", header.Filename, "photo.png")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"url":"https://cdn.example.com/u/photo.png"}`))
	}))
	defer server.Close()

	client := NewHTTPClient(config.UploaderConfig{Endpoint: server.URL, TimeoutSeconds: 5})
	stored, err := client.Upload(context.Background(), Upload{
		FileName: "photo.png",
		MimeType: "image/png",
		Content:  strings.NewReader("fake-png-bytes"),
	})
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if stored.URL != "https://cdn.example.com/u/photo.png" {
		t.Errorf("URL: got %q", stored.URL)
	}
	if stored.Kind != domain.AttachmentKindImage {
		t.Errorf("Kind: got %s, want IMAGE", stored.Kind)
	}
}

func TestUploadServerErrorYieldsUploadError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewHTTPClient(config.UploaderConfig{Endpoint: server.URL, TimeoutSeconds: 5})
	_, err := client.Upload(context.Background(), Upload{
		FileName: "doc.pdf",
		MimeType: "application/pdf",
		Content:  strings.NewReader("bytes"),
	})
	if err == nil {
		t.Fatal("expected error for 500 response")
	}
	if code := apperrors.ToDomainError(err).Code; code != "UPLOAD_FAILED" {
		t.Errorf("error code: got %s, want UPLOAD_FAILED", code)
	}
}

func TestUploadOversizeRejected(t *testing.T) {
	t.Parallel()

	client := NewHTTPClient(config.UploaderConfig{
		Endpoint:       "http://127.0.0.1:0",
		TimeoutSeconds: 5,
		MaxUploadBytes: 4,
	})
	_, err := client.Upload(context.Background(), Upload{
		FileName: "big.bin",
		MimeType: "application/octet-stream",
		Content:  strings.NewReader("more than four bytes"),
	})
	if err == nil {
		t.Fatal("expected error for oversize upload")
	}
	if !apperrors.IsValidation(err) {
		t.Errorf("error: got %v, want validation error", err)
	}
}

func TestUploadWithoutEndpointFails(t *testing.T) {
	t.Parallel()

	client := NewHTTPClient(config.UploaderConfig{})
	_, err := client.Upload(context.Background(), Upload{
		FileName: "x", MimeType: "text/plain", Content: strings.NewReader("x"),
	})
	if err == nil {
		t.Fatal("expected error when endpoint unset")
	}
}
