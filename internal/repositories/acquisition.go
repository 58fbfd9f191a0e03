package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tunedl/internal/models"
	"github.com/desertthunder/tunedl/internal/shared"
	"github.com/mattn/go-sqlite3"
)

// AcquisitionRepository persists per-track outcomes in the acquisitions table.
type AcquisitionRepository struct {
	db *sql.DB
}

// NewAcquisitionRepository creates a new AcquisitionRepository with the given database connection
func NewAcquisitionRepository(db *sql.DB) *AcquisitionRepository {
	return &AcquisitionRepository{db: db}
}

// ErrDuplicateAcquisition is returned when a job already has an outcome at the same position.
var ErrDuplicateAcquisition = errors.New("acquisition already recorded")

// Create inserts the record with a generated ID. The job it references must already exist.
func (r *AcquisitionRepository) Create(ctx context.Context, a *models.AcquisitionRecord) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO acquisitions (
			id, job_id, position, track_id, title, artist, path, disposition, error_message, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		id,
		a.JobID(),
		a.Position(),
		a.TrackID(),
		a.Title(),
		a.Artist(),
		a.Path(),
		a.Disposition(),
		nullString(a.ErrorMessage()),
		a.CreatedAt(),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: job %s position %d", ErrDuplicateAcquisition, a.JobID(), a.Position())
		}
		return fmt.Errorf("failed to insert acquisition: %w", err)
	}

	a.SetID(id)
	return nil
}

// ListByJob returns the outcomes recorded for a job in track order.
func (r *AcquisitionRepository) ListByJob(ctx context.Context, jobID string) ([]*models.AcquisitionRecord, error) {
	query := `
		SELECT id, job_id, position, track_id, title, artist, path, disposition, error_message, created_at
		FROM acquisitions
		WHERE job_id = ?
		ORDER BY position
	`

	rows, err := r.db.QueryContext(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to query acquisitions: %w", err)
	}
	defer rows.Close()

	var records []*models.AcquisitionRecord
	for rows.Next() {
		var (
			id, job, trackID, title, artist, path, disposition string
			position                                           int
			errorMessage                                       sql.NullString
			createdAt                                          time.Time
		)
		if err := rows.Scan(&id, &job, &position, &trackID, &title, &artist, &path, &disposition, &errorMessage, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan acquisition: %w", err)
		}

		record := models.NewAcquisitionRecord(job, position, trackID, title, artist, path, disposition)
		record.SetID(id)
		record.SetCreatedAt(createdAt)
		if errorMessage.Valid {
			record.SetErrorMessage(errorMessage.String)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// Counts returns the number of recorded outcomes per disposition for a job.
func (r *AcquisitionRepository) Counts(ctx context.Context, jobID string) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT disposition, COUNT(*)
		FROM acquisitions
		WHERE job_id = ?
		GROUP BY disposition
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to count acquisitions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var disposition string
		var n int
		if err := rows.Scan(&disposition, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[disposition] = n
	}

	return counts, rows.Err()
}
