package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/tunedl/internal/models"
	"github.com/desertthunder/tunedl/internal/shared"
	"github.com/desertthunder/tunedl/internal/tasks"
)

// History implements [tasks.JobHistory] and [tasks.Recorder] on top of the job and acquisition repositories.
type History struct {
	jobs         *JobRepository
	acquisitions *AcquisitionRepository
}

// NewHistory creates a History backed by db. Migrations must already be applied.
func NewHistory(db *sql.DB) *History {
	return &History{
		jobs:         NewJobRepository(db),
		acquisitions: NewAcquisitionRepository(db),
	}
}

// Jobs returns the underlying job repository.
func (h *History) Jobs() *JobRepository { return h.jobs }

// Acquisitions returns the underlying acquisition repository.
func (h *History) Acquisitions() *AcquisitionRepository { return h.acquisitions }

// SaveJob upserts a snapshot: the first save for an id creates the row, later saves update it.
func (h *History) SaveJob(ctx context.Context, job tasks.Job) error {
	record, err := h.jobs.Get(ctx, job.ID)
	switch {
	case errors.Is(err, shared.ErrJobNotFound):
		record = models.NewJobRecord(job.ID, job.Reference, string(job.Status))
		record.SetCreatedAt(job.CreatedAt)
		apply(record, job)
		return h.jobs.Create(ctx, record)
	case err != nil:
		return err
	}

	apply(record, job)
	return h.jobs.Update(ctx, record)
}

func apply(record *models.JobRecord, job tasks.Job) {
	record.SetItem(string(job.Kind), job.Name, job.Folder)
	record.SetStatus(string(job.Status))
	record.SetTracksTotal(job.TracksTotal)
	record.SetErrorMessage(job.Error)
	record.SetUpdatedAt(job.UpdatedAt)
	record.SetCompletedAt(job.CompletedAt)
}

// RecordOutcome stores one terminal track outcome. Recording the same position twice is not an error.
func (h *History) RecordOutcome(ctx context.Context, jobID string, outcome tasks.TrackOutcome) error {
	record := models.NewAcquisitionRecord(
		jobID,
		outcome.Position,
		outcome.Track.ID,
		outcome.Title,
		outcome.Artist,
		outcome.Path,
		string(outcome.Disposition),
	)
	if outcome.Err != nil {
		record.SetErrorMessage(outcome.Err.Error())
	}

	if err := h.acquisitions.Create(ctx, record); err != nil {
		if errors.Is(err, ErrDuplicateAcquisition) {
			return nil
		}
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

// Entry is a persisted job with its outcome counts.
type Entry struct {
	Job    *models.JobRecord
	Counts map[string]int
}

// Recent returns up to limit jobs, newest first, with their per-disposition counts.
func (h *History) Recent(ctx context.Context, limit int) ([]Entry, error) {
	jobs, err := h.jobs.List(ctx, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(jobs))
	for _, job := range jobs {
		counts, err := h.acquisitions.Counts(ctx, job.ID())
		if err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Job: job, Counts: counts})
	}
	return entries, nil
}
