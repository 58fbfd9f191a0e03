// Package tagging writes ID3v2 metadata and embedded cover art to acquired audio files.
package tagging

import (
	"context"
	"fmt"

	"github.com/desertthunder/tunedl/internal/shared"
)

// Tags are the metadata written to one file. Empty fields and a zero TrackNumber are not written.
type Tags struct {
	Artist      string
	Title       string
	Album       string
	AlbumArtist string
	TrackNumber int
	DiscNumber  int
	CoverURL    string
}

// Tagger writes [Tags] to the file at path.
//
// A returned [*CoverError] means the text frames were saved and only the cover art is missing.
// Any other error means the tags could not be written at all.
type Tagger interface {
	Tag(ctx context.Context, path string, tags Tags) error
}

// CoverError reports that cover art could not be fetched or embedded.
type CoverError struct {
	URL string
	Err error
}

func (e *CoverError) Error() string {
	return fmt.Sprintf("could not add album art from %s: %v", e.URL, e.Err)
}

func (e *CoverError) Unwrap() []error { return []error{shared.ErrTagging, e.Err} }
