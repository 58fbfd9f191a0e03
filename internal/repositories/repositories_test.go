package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/tunedl/internal/models"
	"github.com/desertthunder/tunedl/internal/reference"
	"github.com/desertthunder/tunedl/internal/shared"
	"github.com/desertthunder/tunedl/internal/tasks"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func TestJobRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewJobRepository(db)
		job := models.NewJobRecord("job-1", "https://open.spotify.com/playlist/x", "queued")

		if err := repo.Create(ctx, job); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}
		if job.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", job.Sequence())
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewJobRepository(db)
		job := models.NewJobRecord("job-1", "ref", "running")
		job.SetItem("album", "Meteora", "Album - Meteora - Linkin Park")
		job.SetTracksTotal(13)

		if err := repo.Create(ctx, job); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}

		retrieved, err := repo.Get(ctx, "job-1")
		if err != nil {
			t.Fatalf("failed to get job: %v", err)
		}

		if retrieved.Kind() != "album" || retrieved.ItemName() != "Meteora" || retrieved.TracksTotal() != 13 {
			t.Errorf("unexpected job %+v", retrieved)
		}
		if retrieved.CompletedAt() != nil {
			t.Error("expected no completion time")
		}
	})

	t.Run("Get NotFound", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		_, err := NewJobRepository(db).Get(ctx, "missing")
		if !errors.Is(err, shared.ErrJobNotFound) {
			t.Errorf("expected ErrJobNotFound, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewJobRepository(db)
		job := models.NewJobRecord("job-1", "ref", "running")
		if err := repo.Create(ctx, job); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}

		done := time.Now()
		job.SetStatus("failed")
		job.SetErrorMessage("boom")
		job.SetCompletedAt(&done)
		if err := repo.Update(ctx, job); err != nil {
			t.Fatalf("failed to update job: %v", err)
		}

		retrieved, err := repo.Get(ctx, "job-1")
		if err != nil {
			t.Fatalf("failed to get job: %v", err)
		}
		if retrieved.Status() != "failed" || retrieved.ErrorMessage() != "boom" || retrieved.CompletedAt() == nil {
			t.Errorf("unexpected job %+v", retrieved)
		}
	})

	t.Run("Update NotFound", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		err := NewJobRepository(db).Update(ctx, models.NewJobRecord("missing", "ref", "running"))
		if !errors.Is(err, shared.ErrJobNotFound) {
			t.Errorf("expected ErrJobNotFound, got %v", err)
		}
	})

	t.Run("ValidationError", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if err := NewJobRepository(db).Create(ctx, models.NewJobRecord("", "ref", "queued")); err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewJobRepository(db)
		for _, id := range []string{"a", "b", "c"} {
			if err := repo.Create(ctx, models.NewJobRecord(id, "ref", "completed")); err != nil {
				t.Fatalf("failed to create job %s: %v", id, err)
			}
		}

		jobs, err := repo.List(ctx, 2)
		if err != nil {
			t.Fatalf("failed to list jobs: %v", err)
		}
		if len(jobs) != 2 || jobs[0].ID() != "c" || jobs[1].ID() != "b" {
			t.Errorf("expected newest two jobs first, got %d", len(jobs))
		}

		all, _ := repo.List(ctx, 0)
		if len(all) != 3 {
			t.Errorf("expected 3 jobs, got %d", len(all))
		}
	})

	t.Run("Delete cascades", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		jobs := NewJobRepository(db)
		acquisitions := NewAcquisitionRepository(db)
		if err := jobs.Create(ctx, models.NewJobRecord("job-1", "ref", "completed")); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}
		if err := acquisitions.Create(ctx, models.NewAcquisitionRecord("job-1", 1, "t1", "Numb", "Linkin Park", "/m/a.mp3", "downloaded")); err != nil {
			t.Fatalf("failed to create acquisition: %v", err)
		}

		if err := jobs.Delete(ctx, "job-1"); err != nil {
			t.Fatalf("failed to delete job: %v", err)
		}
		if err := jobs.Delete(ctx, "job-1"); !errors.Is(err, shared.ErrJobNotFound) {
			t.Errorf("expected ErrJobNotFound on second delete, got %v", err)
		}

		records, err := acquisitions.ListByJob(ctx, "job-1")
		if err != nil {
			t.Fatalf("failed to list acquisitions: %v", err)
		}
		if len(records) != 0 {
			t.Errorf("expected acquisitions to be deleted, got %d", len(records))
		}
	})
}

func TestAcquisitionRepository(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*sql.DB, *AcquisitionRepository) {
		db := setupTestDB(t)
		if err := NewJobRepository(db).Create(ctx, models.NewJobRecord("job-1", "ref", "running")); err != nil {
			t.Fatalf("failed to create job: %v", err)
		}
		return db, NewAcquisitionRepository(db)
	}

	t.Run("Create and list", func(t *testing.T) {
		db, repo := setup(t)
		defer db.Close()

		second := models.NewAcquisitionRecord("job-1", 2, "t2", "Faint", "Linkin Park", "/m/b.mp3", "failed")
		second.SetErrorMessage("no results")
		first := models.NewAcquisitionRecord("job-1", 1, "t1", "Numb", "Linkin Park", "/m/a.mp3", "downloaded")

		for _, rec := range []*models.AcquisitionRecord{second, first} {
			if err := repo.Create(ctx, rec); err != nil {
				t.Fatalf("failed to create acquisition: %v", err)
			}
			if rec.ID() == "" {
				t.Error("expected ID to be set after creation")
			}
		}

		records, err := repo.ListByJob(ctx, "job-1")
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(records) != 2 || records[0].Title() != "Numb" || records[1].ErrorMessage() != "no results" {
			t.Errorf("unexpected records %+v", records)
		}
	})

	t.Run("duplicate position", func(t *testing.T) {
		db, repo := setup(t)
		defer db.Close()

		rec := models.NewAcquisitionRecord("job-1", 1, "t1", "Numb", "Linkin Park", "/m/a.mp3", "downloaded")
		if err := repo.Create(ctx, rec); err != nil {
			t.Fatalf("failed to create acquisition: %v", err)
		}
		dup := models.NewAcquisitionRecord("job-1", 1, "t1", "Numb", "Linkin Park", "/m/a.mp3", "already_present")
		if err := repo.Create(ctx, dup); !errors.Is(err, ErrDuplicateAcquisition) {
			t.Errorf("expected ErrDuplicateAcquisition, got %v", err)
		}
	})

	t.Run("unknown job", func(t *testing.T) {
		db, repo := setup(t)
		defer db.Close()

		rec := models.NewAcquisitionRecord("nope", 1, "t1", "Numb", "Linkin Park", "/m/a.mp3", "downloaded")
		if err := repo.Create(ctx, rec); err == nil {
			t.Error("expected foreign key violation")
		}
	})

	t.Run("Counts", func(t *testing.T) {
		db, repo := setup(t)
		defer db.Close()

		for i, d := range []string{"downloaded", "downloaded", "failed", "already_present"} {
			rec := models.NewAcquisitionRecord("job-1", i+1, "", "T", "A", "/m/x.mp3", d)
			if err := repo.Create(ctx, rec); err != nil {
				t.Fatalf("failed to create acquisition: %v", err)
			}
		}

		counts, err := repo.Counts(ctx, "job-1")
		if err != nil {
			t.Fatalf("failed to count: %v", err)
		}
		if counts["downloaded"] != 2 || counts["failed"] != 1 || counts["already_present"] != 1 {
			t.Errorf("unexpected counts %v", counts)
		}
	})
}

func TestHistory(t *testing.T) {
	ctx := context.Background()

	t.Run("SaveJob upserts", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		history := NewHistory(db)
		now := time.Now()
		job := tasks.Job{ID: "job-1", Reference: "ref", Status: tasks.StatusQueued, CreatedAt: now, UpdatedAt: now}

		if err := history.SaveJob(ctx, job); err != nil {
			t.Fatalf("failed first save: %v", err)
		}

		job.Status = tasks.StatusCompleted
		job.Kind = reference.KindPlaylist
		job.Name = "Road Trip"
		job.Folder = "Playlist - Road Trip"
		job.TracksTotal = 3
		job.CompletedAt = &now
		if err := history.SaveJob(ctx, job); err != nil {
			t.Fatalf("failed second save: %v", err)
		}

		jobs, err := history.Jobs().List(ctx, 0)
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(jobs) != 1 {
			t.Fatalf("expected a single row, got %d", len(jobs))
		}
		if jobs[0].Status() != "completed" || jobs[0].Folder() != "Playlist - Road Trip" || jobs[0].CompletedAt() == nil {
			t.Errorf("unexpected row %+v", jobs[0])
		}
	})

	t.Run("RecordOutcome ignores duplicates", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		history := NewHistory(db)
		now := time.Now()
		if err := history.SaveJob(ctx, tasks.Job{ID: "job-1", Reference: "ref", Status: tasks.StatusRunning, CreatedAt: now, UpdatedAt: now}); err != nil {
			t.Fatalf("failed to save job: %v", err)
		}

		outcome := tasks.TrackOutcome{
			Position:    1,
			Track:       models.TrackDescriptor{ID: "t1"},
			Artist:      "Linkin Park",
			Title:       "Numb",
			Path:        "/m/Linkin Park - Numb.mp3",
			Disposition: tasks.DispositionFailed,
			Err:         errors.New("no results"),
		}
		for range 2 {
			if err := history.RecordOutcome(ctx, "job-1", outcome); err != nil {
				t.Fatalf("failed to record outcome: %v", err)
			}
		}

		entries, err := history.Recent(ctx, 10)
		if err != nil {
			t.Fatalf("failed to load history: %v", err)
		}
		if len(entries) != 1 || entries[0].Counts["failed"] != 1 {
			t.Errorf("unexpected entries %+v", entries)
		}

		records, _ := history.Acquisitions().ListByJob(ctx, "job-1")
		if len(records) != 1 || records[0].ErrorMessage() != "no results" || records[0].TrackID() != "t1" {
			t.Errorf("unexpected records %+v", records)
		}
	})
}

func TestNextSequence(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	seq1, err := NextSequence(context.Background(), db, "jobs")
	if err != nil {
		t.Fatalf("failed to get first sequence: %v", err)
	}

	if seq1 != 1 {
		t.Errorf("expected first sequence to be 1, got %d", seq1)
	}

	seq2, err := NextSequence(context.Background(), db, "jobs")
	if err != nil {
		t.Fatalf("failed to get second sequence: %v", err)
	}

	if seq2 != 2 {
		t.Errorf("expected second sequence to be 2, got %d", seq2)
	}

	if _, err := NextSequence(context.Background(), db, "missing"); err == nil {
		t.Error("expected error for a table without a sequence")
	}
}
