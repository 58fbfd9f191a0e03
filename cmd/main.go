package main

import (
	"context"
	"os"

	"github.com/desertthunder/tunedl/internal/shared"
	"github.com/urfave/cli/v3"
)

const version = "0.1.0"

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	if err := newApp(runner).Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}

func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "tunedl",
		Usage:    "Download Spotify playlists, albums and tracks as tagged audio files",
		Version:  version,
		Commands: r.register(),
	}
}
