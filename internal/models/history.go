package models

import (
	"fmt"
	"time"
)

// JobRecord is the persisted summary of a submitted job.
type JobRecord struct {
	id           string
	sequence     int
	reference    string
	kind         string
	itemName     string
	folder       string
	status       string
	tracksTotal  int
	errorMessage string
	createdAt    time.Time
	updatedAt    time.Time
	completedAt  *time.Time
}

// NewJobRecord creates a [JobRecord] for a job that has just been submitted.
func NewJobRecord(id, reference, status string) *JobRecord {
	now := time.Now()
	return &JobRecord{
		id:        id,
		reference: reference,
		status:    status,
		createdAt: now,
		updatedAt: now,
	}
}

func (j *JobRecord) ID() string              { return j.id }
func (j *JobRecord) Sequence() int           { return j.sequence }
func (j *JobRecord) Reference() string       { return j.reference }
func (j *JobRecord) Kind() string            { return j.kind }
func (j *JobRecord) ItemName() string        { return j.itemName }
func (j *JobRecord) Folder() string          { return j.folder }
func (j *JobRecord) Status() string          { return j.status }
func (j *JobRecord) TracksTotal() int        { return j.tracksTotal }
func (j *JobRecord) ErrorMessage() string    { return j.errorMessage }
func (j *JobRecord) CreatedAt() time.Time    { return j.createdAt }
func (j *JobRecord) UpdatedAt() time.Time    { return j.updatedAt }
func (j *JobRecord) CompletedAt() *time.Time { return j.completedAt }

func (j *JobRecord) SetSequence(seq int)         { j.sequence = seq }
func (j *JobRecord) SetStatus(status string)     { j.status = status }
func (j *JobRecord) SetErrorMessage(msg string)  { j.errorMessage = msg }
func (j *JobRecord) SetCreatedAt(t time.Time)    { j.createdAt = t }
func (j *JobRecord) SetUpdatedAt(t time.Time)    { j.updatedAt = t }
func (j *JobRecord) SetCompletedAt(t *time.Time) { j.completedAt = t }
func (j *JobRecord) SetTracksTotal(n int)        { j.tracksTotal = n }

// SetItem records what the reference resolved to.
func (j *JobRecord) SetItem(kind, name, folder string) {
	j.kind = kind
	j.itemName = name
	j.folder = folder
}

// Validate checks required fields.
func (j *JobRecord) Validate() error {
	if j.id == "" {
		return fmt.Errorf("job id is required")
	}
	if j.reference == "" {
		return fmt.Errorf("job reference is required")
	}
	if j.status == "" {
		return fmt.Errorf("job status is required")
	}
	return nil
}

// AcquisitionRecord is the persisted outcome for one track of a job.
type AcquisitionRecord struct {
	id           string
	jobID        string
	position     int
	trackID      string
	title        string
	artist       string
	path         string
	disposition  string
	errorMessage string
	createdAt    time.Time
}

// NewAcquisitionRecord creates an [AcquisitionRecord]. position is 1-based within the job.
func NewAcquisitionRecord(jobID string, position int, trackID, title, artist, path, disposition string) *AcquisitionRecord {
	return &AcquisitionRecord{
		jobID:       jobID,
		position:    position,
		trackID:     trackID,
		title:       title,
		artist:      artist,
		path:        path,
		disposition: disposition,
		createdAt:   time.Now(),
	}
}

func (a *AcquisitionRecord) ID() string           { return a.id }
func (a *AcquisitionRecord) JobID() string        { return a.jobID }
func (a *AcquisitionRecord) Position() int        { return a.position }
func (a *AcquisitionRecord) TrackID() string      { return a.trackID }
func (a *AcquisitionRecord) Title() string        { return a.title }
func (a *AcquisitionRecord) Artist() string       { return a.artist }
func (a *AcquisitionRecord) Path() string         { return a.path }
func (a *AcquisitionRecord) Disposition() string  { return a.disposition }
func (a *AcquisitionRecord) ErrorMessage() string { return a.errorMessage }
func (a *AcquisitionRecord) CreatedAt() time.Time { return a.createdAt }

func (a *AcquisitionRecord) SetID(id string)            { a.id = id }
func (a *AcquisitionRecord) SetErrorMessage(msg string) { a.errorMessage = msg }
func (a *AcquisitionRecord) SetCreatedAt(t time.Time)   { a.createdAt = t }

// Validate checks required fields.
func (a *AcquisitionRecord) Validate() error {
	if a.jobID == "" {
		return fmt.Errorf("acquisition job id is required")
	}
	if a.position < 1 {
		return fmt.Errorf("acquisition position must be positive, got %d", a.position)
	}
	if a.path == "" {
		return fmt.Errorf("acquisition path is required")
	}
	if a.disposition == "" {
		return fmt.Errorf("acquisition disposition is required")
	}
	return nil
}
