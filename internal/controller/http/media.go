package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vadim/postpilot/internal/httpx/response"
	"github.com/vadim/postpilot/internal/storage"
	"github.com/vadim/postpilot/internal/telemetry"
)

// MediaUploader defines the interface for uploading media
type MediaUploader interface {
	Upload(ctx context.Context, in storage.UploadInput) (*storage.UploadOutput, error)
}

// MediaHandler handles media upload HTTP requests
type MediaHandler struct {
	uploader MediaUploader
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(uploader MediaUploader) *MediaHandler {
	return &MediaHandler{uploader: uploader}
}

// RegisterRoutes registers media routes
func (h *MediaHandler) RegisterRoutes(r chi.Router) {
	r.Post("/media/upload", h.Upload())
}

// UploadResponse represents the response from upload endpoint
type UploadResponse struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

// multipartOverhead allows for form boundaries and headers around the file part
const multipartOverhead = 1 << 20

// Upload handles POST /media/upload
func (h *MediaHandler) Upload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, storage.MaxUploadSize+multipartOverhead)

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			response.BadRequest(w, "file too large or invalid multipart form")
			return
		}
		defer r.MultipartForm.RemoveAll()

		file, header, err := r.FormFile("file")
		if err != nil {
			response.BadRequest(w, "missing file in request")
			return
		}
		defer file.Close()

		// The content type is sniffed from the bytes; the client's header is not trusted
		result, err := h.uploader.Upload(r.Context(), storage.UploadInput{
			Reader: file,
			Size:   header.Size,
		})
		switch {
		case errors.Is(err, storage.ErrUnsupportedType), errors.Is(err, storage.ErrEmptyUpload):
			response.Error(w, http.StatusUnsupportedMediaType, err.Error())
			return
		case errors.Is(err, storage.ErrTooLarge):
			response.Error(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		case err != nil:
			telemetry.FromContext(r.Context()).Error("media upload failed", "error", err)
			response.InternalError(w, "failed to upload file")
			return
		}

		response.Created(w, UploadResponse{
			URL:         result.URL,
			Key:         result.Key,
			ContentType: result.ContentType,
			Size:        result.Size,
		})
	}
}
