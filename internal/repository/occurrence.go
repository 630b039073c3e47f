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

const occurrenceColumns = `id, user_id, title, description, latitude, longitude, address,
	accelerometer_x, accelerometer_y, accelerometer_z, temperature, humidity, pressure,
	status, created_at, updated_at`

// OccurrenceRepository handles database operations for occurrences
type OccurrenceRepository struct {
	db *pgxpool.Pool
}

// NewOccurrenceRepository creates a new occurrence repository
func NewOccurrenceRepository(db *pgxpool.Pool) *OccurrenceRepository {
	return &OccurrenceRepository{db: db}
}

func scanOccurrence(row pgx.Row) (*models.Occurrence, error) {
	var o models.Occurrence
	err := row.Scan(
		&o.ID, &o.UserID, &o.Title, &o.Description, &o.Latitude, &o.Longitude, &o.Address,
		&o.AccelerometerX, &o.AccelerometerY, &o.AccelerometerZ,
		&o.Temperature, &o.Humidity, &o.Pressure,
		&o.Status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Occurrence not found")
		}
		return nil, fmt.Errorf("failed to scan occurrence: %w", err)
	}
	return &o, nil
}

func collectOccurrences(rows pgx.Rows) ([]*models.Occurrence, error) {
	defer rows.Close()
	var occurrences []*models.Occurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, err
		}
		occurrences = append(occurrences, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating occurrences: %w", err)
	}
	return occurrences, nil
}

// Create creates a new occurrence
func (r *OccurrenceRepository) Create(ctx context.Context, o *models.Occurrence) error {
	query := `
		INSERT INTO occurrences (id, user_id, title, description, latitude, longitude, address,
			accelerometer_x, accelerometer_y, accelerometer_z, temperature, humidity, pressure,
			status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.db.Exec(ctx, query,
		o.ID, o.UserID, o.Title, o.Description, o.Latitude, o.Longitude, o.Address,
		o.AccelerometerX, o.AccelerometerY, o.AccelerometerZ,
		o.Temperature, o.Humidity, o.Pressure,
		o.Status, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create occurrence: %w", err)
	}
	return nil
}

// GetByID retrieves an occurrence by ID
func (r *OccurrenceRepository) GetByID(ctx context.Context, id string) (*models.Occurrence, error) {
	query := `SELECT ` + occurrenceColumns + ` FROM occurrences WHERE id = $1`
	return scanOccurrence(r.db.QueryRow(ctx, query, id))
}

// List retrieves occurrences newest first with pagination
func (r *OccurrenceRepository) List(ctx context.Context, limit, offset int) ([]*models.Occurrence, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM occurrences`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count occurrences: %w", err)
	}

	query := `SELECT ` + occurrenceColumns + `
		FROM occurrences
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list occurrences: %w", err)
	}
	occurrences, err := collectOccurrences(rows)
	if err != nil {
		return nil, 0, err
	}
	return occurrences, total, nil
}

// ListByUser retrieves a user's occurrences newest first with pagination
func (r *OccurrenceRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*models.Occurrence, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM occurrences WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count user occurrences: %w", err)
	}

	query := `SELECT ` + occurrenceColumns + `
		FROM occurrences
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list user occurrences: %w", err)
	}
	occurrences, err := collectOccurrences(rows)
	if err != nil {
		return nil, 0, err
	}
	return occurrences, total, nil
}

// ListByBounds retrieves occurrences inside an inclusive lat/lon box
func (r *OccurrenceRepository) ListByBounds(ctx context.Context, minLat, maxLat, minLon, maxLon float64) ([]*models.Occurrence, error) {
	query := `SELECT ` + occurrenceColumns + `
		FROM occurrences
		WHERE latitude BETWEEN $1 AND $2
		  AND longitude BETWEEN $3 AND $4`
	rows, err := r.db.Query(ctx, query, minLat, maxLat, minLon, maxLon)
	if err != nil {
		return nil, fmt.Errorf("failed to list occurrences by bounds: %w", err)
	}
	return collectOccurrences(rows)
}

// UpdateParams carries the partial-update fields for an occurrence. Nil
// pointers leave the column unchanged.
type UpdateParams struct {
	Title          *string
	Description    *string
	Latitude       *float64
	Longitude      *float64
	Address        *string
	AccelerometerX *float64
	AccelerometerY *float64
	AccelerometerZ *float64
	Temperature    *float64
	Humidity       *float64
	Pressure       *float64
}

// Update applies a partial update and returns the resulting row
func (r *OccurrenceRepository) Update(ctx context.Context, id string, p *UpdateParams) (*models.Occurrence, error) {
	query := `
		UPDATE occurrences
		SET title = COALESCE($2, title),
		    description = COALESCE($3, description),
		    latitude = COALESCE($4, latitude),
		    longitude = COALESCE($5, longitude),
		    address = COALESCE($6, address),
		    accelerometer_x = COALESCE($7, accelerometer_x),
		    accelerometer_y = COALESCE($8, accelerometer_y),
		    accelerometer_z = COALESCE($9, accelerometer_z),
		    temperature = COALESCE($10, temperature),
		    humidity = COALESCE($11, humidity),
		    pressure = COALESCE($12, pressure),
		    updated_at = now()
		WHERE id = $1
		RETURNING ` + occurrenceColumns
	return scanOccurrence(r.db.QueryRow(ctx, query, id,
		p.Title, p.Description, p.Latitude, p.Longitude, p.Address,
		p.AccelerometerX, p.AccelerometerY, p.AccelerometerZ,
		p.Temperature, p.Humidity, p.Pressure,
	))
}

// UpdateStatus sets the status of an occurrence
func (r *OccurrenceRepository) UpdateStatus(ctx context.Context, id string, status models.OccurrenceStatus) (*models.Occurrence, error) {
	query := `
		UPDATE occurrences
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + occurrenceColumns
	return scanOccurrence(r.db.QueryRow(ctx, query, id, status))
}

// Delete deletes an occurrence; dependent photos and shares are removed by
// the schema's ON DELETE CASCADE.
func (r *OccurrenceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.Exec(ctx, `DELETE FROM occurrences WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete occurrence: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("Occurrence not found")
	}
	return nil
}

// Stats aggregates occurrence counts by status
func (r *OccurrenceRepository) Stats(ctx context.Context) (*models.OccurrenceStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'PENDING'),
		       COUNT(*) FILTER (WHERE status = 'VERIFIED'),
		       COUNT(*) FILTER (WHERE status = 'RESOLVED')
		FROM occurrences
	`
	var stats models.OccurrenceStats
	err := r.db.QueryRow(ctx, query).Scan(&stats.Total, &stats.Pending, &stats.Verified, &stats.Resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to get occurrence stats: %w", err)
	}
	return &stats, nil
}
