// package formatter renders catalog items, track listings and progress events as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/desertthunder/tunedl/internal/ledger"
	"github.com/desertthunder/tunedl/internal/models"
	"github.com/desertthunder/tunedl/internal/reference"
	"github.com/desertthunder/tunedl/internal/shared"
)

// Format names an output format accepted by [Render].
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
)

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatMarkdown, FormatCSV:
		return f, nil
	case "md":
		return FormatMarkdown, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unsupported format %q (text, markdown, csv)", shared.ErrInvalidArgument, s)
	}
}

// Render formats info and its tracks in format.
func Render(format Format, info *models.ItemInfo, tracks []models.TrackDescriptor) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(tracks)
	case FormatMarkdown:
		return ExportToMarkdown(info, tracks, "")
	default:
		return ExportToText(info, tracks)
	}
}

// FormatDuration renders milliseconds as m:ss, or h:mm:ss past the hour.
func FormatDuration(ms int) string {
	total := ms / 1000
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// title is the heading of an item, e.g. "Playlist: Chill" or "Album: Meteora by Linkin Park".
func title(info *models.ItemInfo) string {
	label := "Item"
	switch info.Kind {
	case reference.KindPlaylist:
		label = "Playlist"
	case reference.KindAlbum:
		label = "Album"
	case reference.KindTrack:
		label = "Track"
	}
	if info.Kind == reference.KindPlaylist || len(info.Artists) == 0 {
		return fmt.Sprintf("%s: %s", label, info.Name)
	}
	return fmt.Sprintf("%s: %s by %s", label, info.Name, strings.Join(info.Artists, ", "))
}

// ExportToCSV converts tracks to CSV with columns: Position, ID, Title, Artists, Album, Track, Disc, Duration
func ExportToCSV(tracks []models.TrackDescriptor) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Title", "Artists", "Album", "Track", "Disc", "Duration"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range tracks {
		record := []string{
			strconv.Itoa(i + 1),
			track.ID,
			track.Title,
			track.ArtistNames(),
			track.AlbumTitle,
			strconv.Itoa(track.TrackNumber),
			strconv.Itoa(track.DiscNumber),
			FormatDuration(track.DurationMS),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts an item and its tracks to Markdown with an optional cover image
func ExportToMarkdown(info *models.ItemInfo, tracks []models.TrackDescriptor, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", title(info))

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if info.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", info.Description)
	}
	if info.Owner != "" {
		fmt.Fprintf(&buf, "**Owner**: %s\n", info.Owner)
	}
	if info.ReleaseDate != "" {
		fmt.Fprintf(&buf, "**Released**: %s\n", info.ReleaseDate)
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(tracks))

	buf.WriteString("## Tracks\n\n")
	for i, track := range tracks {
		albumPart := ""
		if track.AlbumTitle != "" && info.Kind != reference.KindAlbum {
			albumPart = fmt.Sprintf(" (%s)", track.AlbumTitle)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, track.ArtistNames(), track.Title, albumPart, FormatDuration(track.DurationMS))
	}

	return buf.Bytes(), nil
}

// ExportToText converts an item and its tracks to plain text
func ExportToText(info *models.ItemInfo, tracks []models.TrackDescriptor) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(title(info) + "\n")
	if info.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", info.Description)
	}
	if info.Owner != "" {
		fmt.Fprintf(&buf, "Owner: %s\n", info.Owner)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(tracks))

	for i, track := range tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, track.ArtistNames(), track.Title)
	}

	return buf.Bytes(), nil
}

// FormatEvent renders a progress event as a single line: "15:04:05 [success] message".
func FormatEvent(e ledger.Event) string {
	return fmt.Sprintf("%s [%s] %s", e.Timestamp.Format("15:04:05"), e.Severity, e.Message)
}

// ToJSON marshals v, indented when pretty is set.
func ToJSON(v any, pretty bool) ([]byte, error) {
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrMissingArgument)
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
	CoverErr   error // set when the cover could not be downloaded or saved
}

// WriteMarkdownExport writes {outputDir}/README.md and, when the item has an image, {outputDir}/cover.jpg.
//
// A failed cover download is reported in the result and does not fail the export.
func WriteMarkdownExport(ctx context.Context, client *http.Client, info *models.ItemInfo, tracks []models.TrackDescriptor, outputDir string) (*MarkdownExportResult, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if info.ImageURL != "" {
		imageData, err := DownloadImage(ctx, client, info.ImageURL)
		if err == nil {
			coverPath := filepath.Join(outputDir, "cover.jpg")
			if err = os.WriteFile(coverPath, imageData, 0644); err == nil {
				coverImageFilename = "cover.jpg"
				result.CoverImage = coverPath
				result.Files = append(result.Files, coverPath)
			}
		}
		result.CoverErr = err
	}

	mdData, err := ExportToMarkdown(info, tracks, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteExport renders info and tracks in format and writes them to path.
func WriteExport(format Format, info *models.ItemInfo, tracks []models.TrackDescriptor, path string) error {
	data, err := Render(format, info, tracks)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return nil
}
