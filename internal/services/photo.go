package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"cleancity-backend/internal/apperr"
	"cleancity-backend/internal/models"
	"cleancity-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// PhotoUpload carries an incoming file.
type PhotoUpload struct {
	FileName string
	MimeType string
	Size     int64
	Body     io.Reader
}

// PhotoService binds uploaded files to occurrences. Upload and delete are
// owner-only; share grants never authorize photo management.
type PhotoService struct {
	photos      PhotoStore
	occurrences OccurrenceStore
	files       storage.Store
}

// NewPhotoService creates a new photo service
func NewPhotoService(photos PhotoStore, occurrences OccurrenceStore, files storage.Store) *PhotoService {
	return &PhotoService{
		photos:      photos,
		occurrences: occurrences,
		files:       files,
	}
}

// Upload stores the file bytes and a metadata row. The caller must own the
// occurrence; a missing occurrence is indistinguishable from a foreign one.
func (s *PhotoService) Upload(ctx context.Context, occurrenceID, actingUserID string, upload *PhotoUpload) (*models.Photo, error) {
	occurrence, err := s.occurrences.GetByID(ctx, occurrenceID)
	if err != nil || occurrence.UserID != actingUserID {
		return nil, apperr.Forbidden("Only the owner can upload photos to this occurrence")
	}

	photoID := uuid.New().String()
	storedName := fmt.Sprintf("%s%s", photoID, filepath.Ext(upload.FileName))

	path, size, err := s.files.Write(ctx, storedName, upload.Body)
	if err != nil {
		return nil, apperr.Internal("failed to store photo file", err)
	}

	photo := &models.Photo{
		ID:           photoID,
		OccurrenceID: occurrenceID,
		UserID:       actingUserID,
		FileName:     upload.FileName,
		FilePath:     path,
		FileSize:     size,
		MimeType:     upload.MimeType,
		CreatedAt:    time.Now(),
	}

	if err := s.photos.Create(ctx, photo); err != nil {
		// Don't leave an orphan file behind a failed insert.
		if delErr := s.files.Delete(ctx, path); delErr != nil {
			log.Error().Err(delErr).Str("file_path", path).Msg("Failed to clean up photo file")
		}
		return nil, err
	}

	return photo, nil
}

// ListByOccurrence returns an occurrence's photos, newest first.
func (s *PhotoService) ListByOccurrence(ctx context.Context, occurrenceID string) ([]*models.Photo, error) {
	return s.photos.ListByOccurrence(ctx, occurrenceID)
}

// Delete removes the file and the metadata row. Only the uploader may
// delete. An already-absent file is fine; the row is always removed.
func (s *PhotoService) Delete(ctx context.Context, photoID, actingUserID string) error {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil || photo.UserID != actingUserID {
		return apperr.Forbidden("Only the uploader can delete this photo")
	}

	if err := s.files.Delete(ctx, photo.FilePath); err != nil {
		return apperr.Internal("failed to delete photo file", err)
	}

	return s.photos.Delete(ctx, photoID)
}

// ResolvePath returns the stored path for a photo. A missing row or a
// missing file both surface as NotFound.
func (s *PhotoService) ResolvePath(ctx context.Context, photoID string) (string, error) {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return "", err
	}

	exists, err := s.files.Exists(ctx, photo.FilePath)
	if err != nil {
		return "", apperr.Internal("failed to check photo file", err)
	}
	if !exists {
		return "", apperr.NotFound("Photo not found")
	}

	return photo.FilePath, nil
}

// Open streams the photo's bytes for download.
func (s *PhotoService) Open(ctx context.Context, photoID string) (*models.Photo, io.ReadCloser, error) {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.files.Open(ctx, photo.FilePath)
	if err != nil {
		return nil, nil, apperr.NotFound("Photo not found")
	}
	return photo, rc, nil
}
