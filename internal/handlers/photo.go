package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"cleancity-backend/internal/middleware"
	"cleancity-backend/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

var allowedMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// PhotoHandler handles photo HTTP requests
type PhotoHandler struct {
	photoService *services.PhotoService
	wsHub        *services.WSHub
	maxFileSize  int64
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(photoService *services.PhotoService, wsHub *services.WSHub, maxFileSize int64) *PhotoHandler {
	return &PhotoHandler{
		photoService: photoService,
		wsHub:        wsHub,
		maxFileSize:  maxFileSize,
	}
}

// Upload handles POST /api/photos/{occurrenceId} with a multipart "photo"
// field.
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	occurrenceID := chi.URLParam(r, "occurrenceId")

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFileSize)
	file, header, err := r.FormFile("photo")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondBadRequest(w, "File too large")
			return
		}
		respondBadRequest(w, "No file provided")
		return
	}
	defer file.Close()

	mimeType := header.Header.Get("Content-Type")
	if !allowedMimeTypes[mimeType] {
		respondBadRequest(w, "Invalid file type. Only JPEG, PNG and WebP are allowed.")
		return
	}

	photo, err := h.photoService.Upload(r.Context(), occurrenceID, userID, &services.PhotoUpload{
		FileName: header.Filename,
		MimeType: mimeType,
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		log.Error().Err(err).
			Str("occurrence_id", occurrenceID).
			Str("user_id", userID).
			Msg("Failed to upload photo")
		respondError(w, err)
		return
	}

	log.Info().Str("photo_id", photo.ID).Str("occurrence_id", occurrenceID).Msg("Photo uploaded")
	h.wsHub.SendToUser(userID, services.EventPhotoNew, photo)
	respondData(w, http.StatusCreated, photo)
}

// List handles GET /api/photos/{occurrenceId}
func (h *PhotoHandler) List(w http.ResponseWriter, r *http.Request) {
	occurrenceID := chi.URLParam(r, "occurrenceId")

	photos, err := h.photoService.ListByOccurrence(r.Context(), occurrenceID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, photos)
}

// Download handles GET /api/photos/download/{photoId}
func (h *PhotoHandler) Download(w http.ResponseWriter, r *http.Request) {
	photoID := chi.URLParam(r, "photoId")

	if _, err := h.photoService.ResolvePath(r.Context(), photoID); err != nil {
		respondError(w, err)
		return
	}

	photo, rc, err := h.photoService.Open(r.Context(), photoID)
	if err != nil {
		respondError(w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", photo.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", photo.FileName))
	if _, err := io.Copy(w, rc); err != nil {
		log.Error().Err(err).Str("photo_id", photoID).Msg("Failed to stream photo")
	}
}

// Delete handles DELETE /api/photos/{photoId}
func (h *PhotoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	photoID := chi.URLParam(r, "photoId")

	if err := h.photoService.Delete(r.Context(), photoID, userID); err != nil {
		log.Error().Err(err).Str("photo_id", photoID).Str("user_id", userID).Msg("Failed to delete photo")
		respondError(w, err)
		return
	}

	log.Info().Str("photo_id", photoID).Str("user_id", userID).Msg("Photo deleted")
	respondMessage(w, "Photo deleted successfully")
}
