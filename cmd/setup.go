package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/tunedl/internal/retrieval"
	"github.com/desertthunder/tunedl/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the embedded example config to --config.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if err := shared.CreateConfigFile(configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", configPath)
	r.writePlain("✓ Config written to %s\n", configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Fill in credentials.spotify.client_id and client_secret (or export SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET)\n")
	r.writePlain("2. Run 'tunedl setup check' to verify yt-dlp and ffmpeg\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", config.Database.Path)
	r.writePlain("✓ Database ready at %s\n", config.Database.Path)
	return nil
}

// SetupCheck resolves yt-dlp and ffmpeg and prints their paths and versions.
func (r *Runner) SetupCheck(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}

	bins, err := retrieval.CheckDependencies(config.Download.YtDlpPath, config.Download.FFmpegPath)
	if err != nil {
		return err
	}

	r.writePlainHeader("External tools")
	for _, tool := range []struct{ name, path, flag string }{
		{retrieval.YtDlpBinary, bins.YtDlp, "--version"},
		{retrieval.FFmpegBinary, bins.FFmpeg, "-version"},
	} {
		version, err := retrieval.Version(ctx, tool.path, tool.flag)
		if err != nil {
			return fmt.Errorf("%w: %s found at %s but failed to run: %w", shared.ErrMissingDependency, tool.name, tool.path, err)
		}
		r.writePlain("✓ %-7s %s\n  %s\n", tool.name, version, tool.path)
	}

	root, err := config.Download.RootDir()
	if err != nil {
		return err
	}
	r.writePlainln("Downloads go to %s", root)

	if !config.Credentials.Spotify.Configured() {
		r.writePlain("✗ Spotify credentials are not set\n")
	}
	return nil
}
