package services

import (
	"context"
	"time"

	"cleancity-backend/internal/apperr"
	"cleancity-backend/internal/models"
	"cleancity-backend/internal/repository"
	"cleancity-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// OccurrenceStore is the occurrence persistence the services depend on.
type OccurrenceStore interface {
	Create(ctx context.Context, o *models.Occurrence) error
	GetByID(ctx context.Context, id string) (*models.Occurrence, error)
	List(ctx context.Context, limit, offset int) ([]*models.Occurrence, int, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Occurrence, int, error)
	ListByBounds(ctx context.Context, minLat, maxLat, minLon, maxLon float64) ([]*models.Occurrence, error)
	Update(ctx context.Context, id string, p *repository.UpdateParams) (*models.Occurrence, error)
	UpdateStatus(ctx context.Context, id string, status models.OccurrenceStatus) (*models.Occurrence, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.OccurrenceStats, error)
}

// PhotoStore is the photo persistence shared by the occurrence and photo
// services.
type PhotoStore interface {
	Create(ctx context.Context, photo *models.Photo) error
	GetByID(ctx context.Context, id string) (*models.Photo, error)
	ListByOccurrence(ctx context.Context, occurrenceID string) ([]*models.Photo, error)
	Delete(ctx context.Context, id string) error
}

// CreateOccurrenceInput carries the fields accepted at creation.
type CreateOccurrenceInput struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	Address        *string  `json:"address"`
	AccelerometerX *float64 `json:"accelerometer_x"`
	AccelerometerY *float64 `json:"accelerometer_y"`
	AccelerometerZ *float64 `json:"accelerometer_z"`
	Temperature    *float64 `json:"temperature"`
	Humidity       *float64 `json:"humidity"`
	Pressure       *float64 `json:"pressure"`
}

// UpdateOccurrenceInput carries the partial-update fields; nil means leave
// unchanged.
type UpdateOccurrenceInput struct {
	Title          *string  `json:"title"`
	Description    *string  `json:"description"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
	Address        *string  `json:"address"`
	AccelerometerX *float64 `json:"accelerometer_x"`
	AccelerometerY *float64 `json:"accelerometer_y"`
	AccelerometerZ *float64 `json:"accelerometer_z"`
	Temperature    *float64 `json:"temperature"`
	Humidity       *float64 `json:"humidity"`
	Pressure       *float64 `json:"pressure"`
}

// OccurrenceService handles the occurrence lifecycle. Mutation is
// owner-only; share grants never authorize it.
type OccurrenceService struct {
	occurrences OccurrenceStore
	photos      PhotoStore
	shares      ShareStore
	files       storage.Store
}

// NewOccurrenceService creates a new occurrence service
func NewOccurrenceService(occurrences OccurrenceStore, photos PhotoStore, shares ShareStore, files storage.Store) *OccurrenceService {
	return &OccurrenceService{
		occurrences: occurrences,
		photos:      photos,
		shares:      shares,
		files:       files,
	}
}

// Create persists a new occurrence owned by ownerID with status PENDING.
func (s *OccurrenceService) Create(ctx context.Context, ownerID string, in *CreateOccurrenceInput) (*models.Occurrence, error) {
	now := time.Now()
	o := &models.Occurrence{
		ID:             uuid.New().String(),
		UserID:         ownerID,
		Title:          in.Title,
		Description:    in.Description,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		Address:        in.Address,
		AccelerometerX: in.AccelerometerX,
		AccelerometerY: in.AccelerometerY,
		AccelerometerZ: in.AccelerometerZ,
		Temperature:    in.Temperature,
		Humidity:       in.Humidity,
		Pressure:       in.Pressure,
		Status:         models.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.occurrences.Create(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// GetByID returns an occurrence enriched with its photos and grants.
func (s *OccurrenceService) GetByID(ctx context.Context, id string) (*models.OccurrenceDetail, error) {
	o, err := s.occurrences.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	photos, err := s.photos.ListByOccurrence(ctx, id)
	if err != nil {
		return nil, err
	}
	shares, err := s.shares.ListByOccurrence(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.OccurrenceDetail{Occurrence: *o, Photos: photos, Shares: shares}, nil
}

// List returns a page of all occurrences, newest first.
func (s *OccurrenceService) List(ctx context.Context, page, limit int) ([]*models.Occurrence, int, error) {
	limit, offset := pageToLimitOffset(page, limit, 50)
	return s.occurrences.List(ctx, limit, offset)
}

// ListByUser returns a page of a user's own occurrences, newest first.
func (s *OccurrenceService) ListByUser(ctx context.Context, userID string, page, limit int) ([]*models.Occurrence, int, error) {
	limit, offset := pageToLimitOffset(page, limit, 10)
	return s.occurrences.ListByUser(ctx, userID, limit, offset)
}

// ListByBounds returns occurrences inside the inclusive box; public read.
func (s *OccurrenceService) ListByBounds(ctx context.Context, minLat, maxLat, minLon, maxLon float64) ([]*models.Occurrence, error) {
	return s.occurrences.ListByBounds(ctx, minLat, maxLat, minLon, maxLon)
}

// Update applies a partial update. Only the owner may update; grants, even
// ADMIN, do not authorize mutation.
func (s *OccurrenceService) Update(ctx context.Context, id, actingUserID string, in *UpdateOccurrenceInput) (*models.Occurrence, error) {
	o, err := s.occurrences.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.UserID != actingUserID {
		return nil, apperr.Forbidden("Only the owner can update this occurrence")
	}
	return s.occurrences.Update(ctx, id, &repository.UpdateParams{
		Title:          in.Title,
		Description:    in.Description,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		Address:        in.Address,
		AccelerometerX: in.AccelerometerX,
		AccelerometerY: in.AccelerometerY,
		AccelerometerZ: in.AccelerometerZ,
		Temperature:    in.Temperature,
		Humidity:       in.Humidity,
		Pressure:       in.Pressure,
	})
}

// UpdateStatus sets the verification status.
func (s *OccurrenceService) UpdateStatus(ctx context.Context, id string, status models.OccurrenceStatus) (*models.Occurrence, error) {
	if !models.ValidStatus(status) {
		return nil, apperr.InvalidInput("Invalid status")
	}
	return s.occurrences.UpdateStatus(ctx, id, status)
}

// Delete removes an occurrence with its photos (files and rows) and share
// grants. Only the owner may delete.
func (s *OccurrenceService) Delete(ctx context.Context, id, actingUserID string) error {
	o, err := s.occurrences.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if o.UserID != actingUserID {
		return apperr.Forbidden("Only the owner can delete this occurrence")
	}

	// Photo files live outside the database and are not covered by the
	// cascade; remove them first. A failed file delete is logged, not
	// fatal: the row cascade must still happen.
	photos, err := s.photos.ListByOccurrence(ctx, id)
	if err != nil {
		return err
	}
	for _, photo := range photos {
		if err := s.files.Delete(ctx, photo.FilePath); err != nil {
			log.Error().Err(err).
				Str("photo_id", photo.ID).
				Str("file_path", photo.FilePath).
				Msg("Failed to delete photo file")
		}
	}

	return s.occurrences.Delete(ctx, id)
}

// Stats returns the status partition of all occurrences.
func (s *OccurrenceService) Stats(ctx context.Context) (*models.OccurrenceStats, error) {
	return s.occurrences.Stats(ctx)
}

func pageToLimitOffset(page, limit, defaultLimit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > 100 {
		limit = 100
	}
	return limit, (page - 1) * limit
}
