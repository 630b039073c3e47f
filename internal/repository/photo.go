package repository

import (
	"context"
	"errors"
	"fmt"

	"cleancity-backend/internal/apperr"
	"cleancity-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PhotoRepository handles database operations for photos
type PhotoRepository struct {
	db *pgxpool.Pool
}

// NewPhotoRepository creates a new photo repository
func NewPhotoRepository(db *pgxpool.Pool) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Create creates a new photo
func (r *PhotoRepository) Create(ctx context.Context, photo *models.Photo) error {
	query := `
		INSERT INTO photos (id, occurrence_id, user_id, file_name, file_path, file_size, mime_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		photo.ID, photo.OccurrenceID, photo.UserID, photo.FileName,
		photo.FilePath, photo.FileSize, photo.MimeType, photo.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create photo: %w", err)
	}
	return nil
}

// GetByID retrieves a photo by ID
func (r *PhotoRepository) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	query := `
		SELECT id, occurrence_id, user_id, file_name, file_path, file_size, mime_type, created_at
		FROM photos
		WHERE id = $1
	`
	var photo models.Photo
	err := r.db.QueryRow(ctx, query, id).Scan(
		&photo.ID, &photo.OccurrenceID, &photo.UserID, &photo.FileName,
		&photo.FilePath, &photo.FileSize, &photo.MimeType, &photo.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Photo not found")
		}
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}
	return &photo, nil
}

// ListByOccurrence retrieves photos for an occurrence newest first
func (r *PhotoRepository) ListByOccurrence(ctx context.Context, occurrenceID string) ([]*models.Photo, error) {
	query := `
		SELECT id, occurrence_id, user_id, file_name, file_path, file_size, mime_type, created_at
		FROM photos
		WHERE occurrence_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, occurrenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list photos: %w", err)
	}
	defer rows.Close()

	var photos []*models.Photo
	for rows.Next() {
		var photo models.Photo
		err := rows.Scan(
			&photo.ID, &photo.OccurrenceID, &photo.UserID, &photo.FileName,
			&photo.FilePath, &photo.FileSize, &photo.MimeType, &photo.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, &photo)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photos: %w", err)
	}

	return photos, nil
}

// Delete deletes a photo row by ID
func (r *PhotoRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM photos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("Photo not found")
	}
	return nil
}
