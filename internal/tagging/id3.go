package tagging

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/bogem/id3v2"
	"github.com/desertthunder/tunedl/internal/shared"
)

// ID3Tagger implements [Tagger] for MP3 files.
type ID3Tagger struct {
	client       *http.Client
	coverMaxSize int
}

// NewID3Tagger creates a tagger that fetches cover art with client. A nil client uses [http.DefaultClient].
func NewID3Tagger(client *http.Client, coverMaxSize int) *ID3Tagger {
	if client == nil {
		client = http.DefaultClient
	}
	if coverMaxSize <= 0 {
		coverMaxSize = DefaultCoverMaxSize
	}
	return &ID3Tagger{client: client, coverMaxSize: coverMaxSize}
}

// Tag writes text frames and, when tags.CoverURL is set, a front cover picture.
//
// The cover is fetched before the file is opened; if that fails the text frames are still saved
// and a [*CoverError] is returned.
func (t *ID3Tagger) Tag(ctx context.Context, path string, tags Tags) error {
	var cover []byte
	var coverErr error
	if tags.CoverURL != "" {
		cover, coverErr = t.cover(ctx, tags.CoverURL)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", shared.ErrTagging, path, err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	setText(tag, tags)

	if cover != nil {
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/jpeg",
			PictureType: id3v2.PTFrontCover,
			Description: "Cover",
			Picture:     cover,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("%w: save %s: %v", shared.ErrTagging, path, err)
	}
	return coverErr
}

func (t *ID3Tagger) cover(ctx context.Context, url string) ([]byte, error) {
	data, err := FetchCover(ctx, t.client, url)
	if err != nil {
		return nil, &CoverError{URL: url, Err: err}
	}
	prepared, err := PrepareCover(data, t.coverMaxSize)
	if err != nil {
		return nil, &CoverError{URL: url, Err: err}
	}
	return prepared, nil
}

func setText(tag *id3v2.Tag, tags Tags) {
	if tags.Artist != "" {
		tag.SetArtist(tags.Artist)
	}
	if tags.Title != "" {
		tag.SetTitle(tags.Title)
	}
	if tags.Album != "" {
		tag.SetAlbum(tags.Album)
	}
	if tags.AlbumArtist != "" {
		tag.AddTextFrame("TPE2", id3v2.EncodingUTF8, tags.AlbumArtist)
	}
	if tags.TrackNumber > 0 {
		tag.AddTextFrame("TRCK", id3v2.EncodingUTF8, strconv.Itoa(tags.TrackNumber))
	}
	if tags.DiscNumber > 0 {
		tag.AddTextFrame("TPOS", id3v2.EncodingUTF8, strconv.Itoa(tags.DiscNumber))
	}
}
