package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/tunedl/internal/shared"
	"github.com/desertthunder/tunedl/internal/ui"
	"golang.org/x/term"
)

const tuiLogPath = "./tmp/tunedl-tui.log"

// redirectLogs points the logger at [tuiLogPath] so log lines don't interfere with the watcher.
func (r *Runner) redirectLogs() error {
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)
	return nil
}

// interactive reports whether output is a terminal the watcher can take over.
func (r *Runner) interactive() bool {
	f, ok := r.output.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// follow watches source until its job ends, with the interactive watcher or as plain lines.
func (r *Runner) follow(ctx context.Context, title string, source ui.Source, plain bool) (ui.Snapshot, error) {
	if plain {
		return ui.Follow(ctx, r.output, source, r.interval)
	}

	snap, err := ui.Watch(ctx, title, source, r.interval)
	if err != nil {
		return snap, fmt.Errorf("error running watcher: %w", err)
	}
	return snap, nil
}
