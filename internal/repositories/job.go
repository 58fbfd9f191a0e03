package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/tunedl/internal/models"
	"github.com/desertthunder/tunedl/internal/shared"
)

// JobRepository persists [models.JobRecord] rows in the jobs table.
//
// Rows are never soft deleted: history is pruned by deleting jobs, which cascades to their acquisitions.
type JobRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.JobRecord] = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository with the given database connection
func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

const jobColumns = `
	id, sequence, reference, kind, item_name, folder, status,
	tracks_total, error_message, created_at, updated_at, completed_at
`

// Create inserts a new job with the next sequence number. The record keeps the id it was created with.
func (r *JobRepository) Create(ctx context.Context, job *models.JobRecord) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "jobs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}
	job.SetSequence(sequence)

	query := `
		INSERT INTO jobs (` + jobColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		job.ID(),
		sequence,
		job.Reference(),
		job.Kind(),
		job.ItemName(),
		job.Folder(),
		job.Status(),
		job.TracksTotal(),
		nullString(job.ErrorMessage()),
		job.CreatedAt(),
		job.UpdatedAt(),
		job.CompletedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}

	return nil
}

// Get retrieves a job by ID. A missing job matches [shared.ErrJobNotFound].
func (r *JobRepository) Get(ctx context.Context, id string) (*models.JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = ?`
	return r.scan(r.db.QueryRowContext(ctx, query, id))
}

// Update writes the mutable fields of job back to the database.
func (r *JobRepository) Update(ctx context.Context, job *models.JobRecord) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	job.SetUpdatedAt(now)

	query := `
		UPDATE jobs
		SET kind = ?, item_name = ?, folder = ?, status = ?, tracks_total = ?,
			error_message = ?, updated_at = ?, completed_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		job.Kind(),
		job.ItemName(),
		job.Folder(),
		job.Status(),
		job.TracksTotal(),
		nullString(job.ErrorMessage()),
		now,
		job.CompletedAt(),
		job.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrJobNotFound, job.ID())
	}

	return nil
}

// Delete removes a job and, through the foreign key, its acquisitions.
func (r *JobRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrJobNotFound, id)
	}

	return nil
}

// List returns the most recent jobs, newest first. A limit of zero or less returns every job.
func (r *JobRepository) List(ctx context.Context, limit int) ([]*models.JobRecord, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs ORDER BY sequence DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.JobRecord
	for rows.Next() {
		job, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return jobs, nil
}

// scanner is satisfied by both [sql.Row] and [sql.Rows].
type scanner interface {
	Scan(dest ...any) error
}

func (r *JobRepository) scan(row scanner) (*models.JobRecord, error) {
	var (
		id           string
		sequence     int
		reference    string
		kind         string
		itemName     string
		folder       string
		status       string
		tracksTotal  int
		errorMessage sql.NullString
		createdAt    time.Time
		updatedAt    time.Time
		completedAt  sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &reference, &kind, &itemName, &folder, &status,
		&tracksTotal, &errorMessage, &createdAt, &updatedAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan job: %w", err)
	}

	job := models.NewJobRecord(id, reference, status)
	job.SetSequence(sequence)
	job.SetItem(kind, itemName, folder)
	job.SetTracksTotal(tracksTotal)
	job.SetCreatedAt(createdAt)
	job.SetUpdatedAt(updatedAt)
	if errorMessage.Valid {
		job.SetErrorMessage(errorMessage.String)
	}
	if completedAt.Valid {
		job.SetCompletedAt(&completedAt.Time)
	}

	return job, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
