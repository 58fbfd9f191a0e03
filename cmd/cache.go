package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/tunedl/internal/repositories"
	"github.com/desertthunder/tunedl/internal/tasks"
	"github.com/urfave/cli/v3"
)

type historyJSON struct {
	ID          string         `json:"id"`
	Sequence    int            `json:"sequence"`
	Reference   string         `json:"reference"`
	Kind        string         `json:"kind,omitempty"`
	Name        string         `json:"name,omitempty"`
	Folder      string         `json:"folder,omitempty"`
	Status      string         `json:"status"`
	TracksTotal int            `json:"tracks_total"`
	Counts      map[string]int `json:"counts"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

type acquisitionJSON struct {
	Position    int    `json:"position"`
	TrackID     string `json:"track_id,omitempty"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Path        string `json:"path"`
	Disposition string `json:"disposition"`
	Error       string `json:"error,omitempty"`
}

// History lists recorded jobs, or the per-track outcomes of one job with --job.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	history := repositories.NewHistory(db)
	if id := cmd.String("job"); id != "" {
		return r.jobHistory(ctx, cmd, history, id)
	}

	entries, err := history.Recent(ctx, cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	if cmd.Bool("json") {
		out := make([]historyJSON, 0, len(entries))
		for _, e := range entries {
			out = append(out, historyJSON{
				ID:          e.Job.ID(),
				Sequence:    e.Job.Sequence(),
				Reference:   e.Job.Reference(),
				Kind:        e.Job.Kind(),
				Name:        e.Job.ItemName(),
				Folder:      e.Job.Folder(),
				Status:      e.Job.Status(),
				TracksTotal: e.Job.TracksTotal(),
				Counts:      e.Counts,
				Error:       e.Job.ErrorMessage(),
				CreatedAt:   e.Job.CreatedAt(),
			})
		}
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	if len(entries) == 0 {
		r.writePlain("No jobs recorded yet\n")
		return nil
	}

	for _, e := range entries {
		j := e.Job
		name := j.Folder()
		if name == "" {
			name = j.Reference()
		}
		r.writePlain("#%d %s  %-9s %s\n", j.Sequence(), j.CreatedAt().Local().Format("2006-01-02 15:04"), j.Status(), name)
		if j.ErrorMessage() != "" {
			r.writePlain("    %s\n", j.ErrorMessage())
			continue
		}
		r.writePlain("    %d tracks: %d downloaded, %d already present, %d untagged, %d failed\n    id %s\n",
			j.TracksTotal(),
			e.Counts[string(tasks.DispositionDownloaded)],
			e.Counts[string(tasks.DispositionPresent)],
			e.Counts[string(tasks.DispositionTagFailed)],
			e.Counts[string(tasks.DispositionFailed)],
			j.ID())
	}
	return nil
}

func (r *Runner) jobHistory(ctx context.Context, cmd *cli.Command, history *repositories.History, id string) error {
	job, err := history.Jobs().Get(ctx, id)
	if err != nil {
		return err
	}
	records, err := history.Acquisitions().ListByJob(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to list acquisitions: %w", err)
	}

	if cmd.Bool("json") {
		out := make([]acquisitionJSON, 0, len(records))
		for _, a := range records {
			out = append(out, acquisitionJSON{
				Position:    a.Position(),
				TrackID:     a.TrackID(),
				Title:       a.Title(),
				Artist:      a.Artist(),
				Path:        a.Path(),
				Disposition: a.Disposition(),
				Error:       a.ErrorMessage(),
			})
		}
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("#%d %s (%s)", job.Sequence(), job.Folder(), job.Status()))
	for _, a := range records {
		r.writePlain("%3d. %-16s %s - %s\n", a.Position(), a.Disposition(), a.Artist(), a.Title())
		if a.ErrorMessage() != "" {
			r.writePlain("     %s\n", a.ErrorMessage())
		}
	}
	return nil
}
