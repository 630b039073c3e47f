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

// ShareRepository handles database operations for share grants
type ShareRepository struct {
	db *pgxpool.Pool
}

// NewShareRepository creates a new share repository
func NewShareRepository(db *pgxpool.Pool) *ShareRepository {
	return &ShareRepository{db: db}
}

// Upsert creates a grant or, when one already exists for the
// (occurrence_id, shared_with_id) pair, updates its permission in place.
// The unique constraint makes the operation atomic under concurrent calls.
func (r *ShareRepository) Upsert(ctx context.Context, share *models.SharedOccurrence) (*models.SharedOccurrence, error) {
	query := `
		INSERT INTO shared_occurrences (id, occurrence_id, shared_by_id, shared_with_id, permission, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (occurrence_id, shared_with_id)
		DO UPDATE SET permission = EXCLUDED.permission
		RETURNING id, occurrence_id, shared_by_id, shared_with_id, permission, created_at
	`
	var result models.SharedOccurrence
	err := r.db.QueryRow(ctx, query,
		share.ID, share.OccurrenceID, share.SharedByID, share.SharedWithID,
		share.Permission, share.CreatedAt,
	).Scan(
		&result.ID, &result.OccurrenceID, &result.SharedByID,
		&result.SharedWithID, &result.Permission, &result.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert share: %w", err)
	}
	return &result, nil
}

// GetByID retrieves a grant by ID
func (r *ShareRepository) GetByID(ctx context.Context, id string) (*models.SharedOccurrence, error) {
	query := `
		SELECT id, occurrence_id, shared_by_id, shared_with_id, permission, created_at
		FROM shared_occurrences
		WHERE id = $1
	`
	var share models.SharedOccurrence
	err := r.db.QueryRow(ctx, query, id).Scan(
		&share.ID, &share.OccurrenceID, &share.SharedByID,
		&share.SharedWithID, &share.Permission, &share.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Share not found")
		}
		return nil, fmt.Errorf("failed to get share: %w", err)
	}
	return &share, nil
}

// Exists reports whether a grant exists for the (occurrence, user) pair
func (r *ShareRepository) Exists(ctx context.Context, occurrenceID, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM shared_occurrences WHERE occurrence_id = $1 AND shared_with_id = $2)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, occurrenceID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check share existence: %w", err)
	}
	return exists, nil
}

const shareDetailColumns = `s.id, s.occurrence_id, s.shared_by_id, s.shared_with_id, s.permission, s.created_at,
	o.id, o.user_id, o.title, o.description, o.latitude, o.longitude, o.address,
	o.accelerometer_x, o.accelerometer_y, o.accelerometer_z, o.temperature, o.humidity, o.pressure,
	o.status, o.created_at, o.updated_at,
	u.id, u.email, u.full_name`

func collectShareDetails(rows pgx.Rows, counterpartIsSharer bool) ([]*models.ShareDetail, error) {
	defer rows.Close()
	var details []*models.ShareDetail
	for rows.Next() {
		var d models.ShareDetail
		var o models.Occurrence
		var u models.PublicUser
		err := rows.Scan(
			&d.ID, &d.OccurrenceID, &d.SharedByID, &d.SharedWithID, &d.Permission, &d.CreatedAt,
			&o.ID, &o.UserID, &o.Title, &o.Description, &o.Latitude, &o.Longitude, &o.Address,
			&o.AccelerometerX, &o.AccelerometerY, &o.AccelerometerZ,
			&o.Temperature, &o.Humidity, &o.Pressure,
			&o.Status, &o.CreatedAt, &o.UpdatedAt,
			&u.ID, &u.Email, &u.FullName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan share detail: %w", err)
		}
		d.Occurrence = &o
		if counterpartIsSharer {
			d.SharedBy = &u
		} else {
			d.SharedWith = &u
		}
		details = append(details, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating share details: %w", err)
	}
	return details, nil
}

// ListSharedWith retrieves grants where the user is the recipient, enriched
// with the occurrence and the sharer's public identity, newest first.
func (r *ShareRepository) ListSharedWith(ctx context.Context, userID string) ([]*models.ShareDetail, error) {
	query := `
		SELECT ` + shareDetailColumns + `
		FROM shared_occurrences s
		JOIN occurrences o ON o.id = s.occurrence_id
		JOIN users u ON u.id = s.shared_by_id
		WHERE s.shared_with_id = $1
		ORDER BY s.created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares with user: %w", err)
	}
	return collectShareDetails(rows, true)
}

// ListSharedBy retrieves grants where the user is the sharer, enriched with
// the occurrence and the recipient's public identity, newest first.
func (r *ShareRepository) ListSharedBy(ctx context.Context, userID string) ([]*models.ShareDetail, error) {
	query := `
		SELECT ` + shareDetailColumns + `
		FROM shared_occurrences s
		JOIN occurrences o ON o.id = s.occurrence_id
		JOIN users u ON u.id = s.shared_with_id
		WHERE s.shared_by_id = $1
		ORDER BY s.created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares by user: %w", err)
	}
	return collectShareDetails(rows, false)
}

// ListByOccurrence retrieves all grants on an occurrence
func (r *ShareRepository) ListByOccurrence(ctx context.Context, occurrenceID string) ([]*models.SharedOccurrence, error) {
	query := `
		SELECT id, occurrence_id, shared_by_id, shared_with_id, permission, created_at
		FROM shared_occurrences
		WHERE occurrence_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, occurrenceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list occurrence shares: %w", err)
	}
	defer rows.Close()

	var shares []*models.SharedOccurrence
	for rows.Next() {
		var share models.SharedOccurrence
		err := rows.Scan(
			&share.ID, &share.OccurrenceID, &share.SharedByID,
			&share.SharedWithID, &share.Permission, &share.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan share: %w", err)
		}
		shares = append(shares, &share)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating shares: %w", err)
	}
	return shares, nil
}

// Delete deletes a grant by ID
func (r *ShareRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM shared_occurrences WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete share: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("Share not found")
	}
	return nil
}
