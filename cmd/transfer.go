package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/desertthunder/tunedl/internal/server"
	"github.com/desertthunder/tunedl/internal/shared"
	"github.com/desertthunder/tunedl/internal/tasks"
	"github.com/desertthunder/tunedl/internal/ui"
	"github.com/urfave/cli/v3"
)

// Serve starts the HTTP API and blocks until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.IsSet("host") {
		config.Server.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		config.Server.Port = cmd.Int("port")
	}
	if err := config.Validate(); err != nil {
		return err
	}

	sess, err := r.newSession(ctx, config, "")
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("downloads go to", "root", sess.root, "history", config.Download.History)
	return server.New(sess.orch, r.logger).ListenAndServe(ctx, config.Server.Addr())
}

// Download submits every reference to an in-process orchestrator and watches the jobs one after another.
//
// All jobs start immediately; only the watching is sequential. Quitting the watcher early leaves the
// remaining jobs unwatched and returns.
func (r *Runner) Download(ctx context.Context, cmd *cli.Command) error {
	refs := cmd.Args().Slice()
	if len(refs) == 0 {
		return fmt.Errorf("%w: at least one reference is required", shared.ErrMissingArgument)
	}

	plain := cmd.Bool("plain") || !r.interactive()
	if !plain {
		if err := r.redirectLogs(); err != nil {
			return err
		}
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	sess, err := r.newSession(ctx, config, cmd.String("root"))
	if err != nil {
		return err
	}
	defer sess.Close()

	ids := make([]string, len(refs))
	for i, ref := range refs {
		ids[i] = sess.orch.Submit(ctx, ref)
		r.logger.Info("job submitted", "job", ids[i], "reference", ref)
	}

	var failed int
	for i, id := range ids {
		snap, err := r.follow(ctx, "Downloading "+refs[i], ui.LocalSource(sess.orch, id), plain)
		if err != nil {
			return err
		}
		if !snap.Done() {
			r.writePlain("Stopped watching; %d job(s) were still running\n", len(ids)-i)
			return nil
		}

		job, err := sess.orch.Wait(ctx, id)
		if err != nil {
			return err
		}
		r.printJob(job, sess.root)

		if job.Status == tasks.StatusFailed {
			failed++
			continue
		}
		if cmd.Bool("open") && job.Folder != "" {
			if err := shared.OpenPath(filepath.Join(sess.root, job.Folder)); err != nil {
				r.logger.Warn("could not open folder", "folder", job.Folder, "error", err)
			}
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d downloads failed", failed, len(ids))
	}
	return nil
}

func (r *Runner) printJob(job tasks.Job, root string) {
	if job.Status == tasks.StatusFailed {
		r.writePlain("✗ %s: %s\n", job.Reference, job.Error)
		return
	}
	r.writePlain("✓ %s: %d downloaded, %d already present, %d untagged, %d failed\n",
		job.Folder, job.Downloaded, job.Present, job.TagFailed, job.Failed)
	r.writePlain("  %s\n", filepath.Join(root, job.Folder))
}
