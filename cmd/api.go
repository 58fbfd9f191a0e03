package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tunedl/internal/services"
	"github.com/desertthunder/tunedl/internal/shared"
	"github.com/desertthunder/tunedl/internal/tasks"
	"github.com/desertthunder/tunedl/internal/ui"
	"github.com/urfave/cli/v3"
)

// Watch follows a job on a running server through its progress endpoint.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("job-id")
	if id == "" {
		return fmt.Errorf("%w: job id is required", shared.ErrMissingArgument)
	}

	baseURL := cmd.String("server")
	if baseURL == "" {
		config, err := r.loadConfig(cmd)
		if err != nil {
			return err
		}
		baseURL = fmt.Sprintf("http://127.0.0.1:%d", config.Server.Port)
	}

	api := services.NewAPIService(baseURL, r.httpClient)
	if err := api.Health(ctx); err != nil {
		return fmt.Errorf("%w: server at %s is not reachable: %w", shared.ErrServiceUnavailable, baseURL, err)
	}

	plain := cmd.Bool("plain") || !r.interactive()
	if !plain {
		if err := r.redirectLogs(); err != nil {
			return err
		}
	}

	snap, err := r.follow(ctx, "Watching "+id, ui.RemoteSource(api, id), plain)
	if err != nil {
		return err
	}

	if plain {
		r.writePlain("status: %s\n", snap.Status)
	}
	if snap.Status == string(tasks.StatusFailed) {
		return fmt.Errorf("job %s failed", id)
	}
	return nil
}
