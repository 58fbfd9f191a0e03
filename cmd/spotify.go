package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/tunedl/internal/formatter"
	"github.com/desertthunder/tunedl/internal/models"
	"github.com/desertthunder/tunedl/internal/reference"
	"github.com/desertthunder/tunedl/internal/services"
	"github.com/desertthunder/tunedl/internal/shared"
	"github.com/urfave/cli/v3"
)

// Info looks up a reference and prints the item with its tracks.
func (r *Runner) Info(ctx context.Context, cmd *cli.Command) error {
	input := cmd.StringArg("reference")
	if input == "" {
		return fmt.Errorf("%w: reference is required", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	catalog, err := r.getCatalog(ctx, config)
	if err != nil {
		return err
	}

	r.logger.Debug("looking up item", "reference", input, "catalog", catalog.Name())

	info, tracks, err := services.Lookup(ctx, catalog, input)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"item_info":    info,
			"tracks_count": len(tracks),
			"tracks":       tracks,
		}, cmd.Bool("pretty"))
	}

	if output := cmd.String("output"); output != "" {
		return r.export(ctx, format, info, tracks, output)
	}

	data, err := formatter.Render(format, info, tracks)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

func (r *Runner) export(ctx context.Context, format formatter.Format, info *models.ItemInfo, tracks []models.TrackDescriptor, output string) error {
	if format != formatter.FormatMarkdown {
		if err := formatter.WriteExport(format, info, tracks, output); err != nil {
			return err
		}
		r.writePlain("✓ Wrote %s\n", output)
		return nil
	}

	result, err := formatter.WriteMarkdownExport(ctx, r.httpClient, info, tracks, output)
	if err != nil {
		return err
	}
	if result.CoverErr != nil {
		r.logger.Warn("cover image not saved", "error", result.CoverErr)
	}

	r.writePlain("✓ Exported to %s\n", result.Directory)
	for _, f := range result.Files {
		r.writePlain("  %s\n", f)
	}
	return nil
}

// Search queries the catalog and lists the hits.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: query is required", shared.ErrMissingArgument)
	}

	kind, err := reference.ParseKind(cmd.String("type"))
	if err != nil {
		return err
	}
	limit := cmd.Int("limit")
	if limit < 1 {
		return fmt.Errorf("%w: limit must be positive, got %d", shared.ErrInvalidArgument, limit)
	}

	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	catalog, err := r.getCatalog(ctx, config)
	if err != nil {
		return err
	}

	results, err := catalog.Search(ctx, query, kind, limit)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		if results == nil {
			results = []models.SearchResult{}
		}
		return r.writeJSON(results, cmd.Bool("pretty"))
	}

	r.writePlain("Found %d %ss for %q:\n\n", len(results), kind, query)
	for i, res := range results {
		line := fmt.Sprintf("%d. %s", i+1, res.Name)
		switch {
		case len(res.Artists) > 0:
			line += " by " + strings.Join(res.Artists, ", ")
		case res.Owner != "":
			line += " by " + res.Owner
		}
		if res.TotalTracks > 0 {
			line += fmt.Sprintf(" (%d tracks)", res.TotalTracks)
		}
		r.writePlain("%s\n", line)
		if res.URL != "" {
			r.writePlain("   %s\n", res.URL)
		}
	}
	return nil
}
