// package services defines interface Catalog for reading music catalogs over HTTP
//
// Spotify (client credentials), tunedl's own API (via [APIService])
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/tunedl/internal/models"
	"github.com/desertthunder/tunedl/internal/reference"
	"github.com/desertthunder/tunedl/internal/shared"
	"golang.org/x/sync/errgroup"
)

// Catalog defines the read-only operations the acquisition pipeline needs from a music catalog.
type Catalog interface {
	// ItemInfo returns the summary of a playlist, album or track.
	ItemInfo(ctx context.Context, kind reference.Kind, id string) (*models.ItemInfo, error)

	// Tracks returns every track of the item in upstream order, following pagination until exhausted.
	// For [reference.KindTrack] it returns a one element list.
	Tracks(ctx context.Context, kind reference.Kind, id string) ([]models.TrackDescriptor, error)

	// Track retrieves a single track by ID.
	Track(ctx context.Context, id string) (*models.TrackDescriptor, error)

	// Search runs a free text query restricted to one item kind.
	Search(ctx context.Context, query string, kind reference.Kind, limit int) ([]models.SearchResult, error)

	// Name returns the name of the catalog (e.g., "Spotify")
	Name() string
}

const (
	DefaultSearchKind  = reference.KindPlaylist
	DefaultSearchLimit = 10
	maxSearchLimit     = 50
)

// CatalogError is returned for every failed catalog call. It matches [shared.ErrCatalog] and its cause.
type CatalogError struct {
	Op     string
	Status int // HTTP status, 0 when no response was received
	Err    error
}

func (e *CatalogError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("catalog %s failed (status %d): %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("catalog %s failed: %v", e.Op, e.Err)
}

func (e *CatalogError) Unwrap() []error { return []error{shared.ErrCatalog, e.Err} }

// statusError maps an upstream status to the closest sentinel.
func statusError(status int, message string) error {
	var base error
	switch {
	case status == http.StatusNotFound:
		base = shared.ErrItemNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		base = shared.ErrMissingCredentials
	case status == http.StatusTooManyRequests || status >= 500:
		base = shared.ErrServiceUnavailable
	default:
		base = shared.ErrAPIRequest
	}

	if message == "" {
		return base
	}
	return fmt.Errorf("%w: %s", base, message)
}

// notFound reports whether err means the id does not exist for the tried kind.
// Spotify answers 400 "invalid id" for some kind mismatches.
func notFound(err error) bool {
	var ce *CatalogError
	if errors.As(err, &ce) && ce.Status == http.StatusBadRequest {
		return true
	}
	return errors.Is(err, shared.ErrItemNotFound)
}

// InferKind resolves the kind of a bare id by probing track, album and playlist in that order.
//
// Exactly one successful lookup fixes the kind. No match, or an id that matches more than one kind,
// is an invalid reference. A lookup failure other than not-found is returned as is.
func InferKind(ctx context.Context, catalog Catalog, id string) (reference.Kind, error) {
	lookups := []struct {
		kind reference.Kind
		fn   func() error
	}{
		{reference.KindTrack, func() error { _, err := catalog.Track(ctx, id); return err }},
		{reference.KindAlbum, func() error { _, err := catalog.ItemInfo(ctx, reference.KindAlbum, id); return err }},
		{reference.KindPlaylist, func() error { _, err := catalog.ItemInfo(ctx, reference.KindPlaylist, id); return err }},
	}

	var matched []reference.Kind
	for _, p := range lookups {
		err := p.fn()
		switch {
		case err == nil:
			matched = append(matched, p.kind)
		case notFound(err):
		default:
			return reference.KindUnknown, err
		}
	}

	if len(matched) != 1 {
		return reference.KindUnknown, &reference.InvalidReferenceError{Input: id, Reason: "cannot infer item kind"}
	}
	return matched[0], nil
}

// Resolve parses input and, for bare ids, infers the kind through catalog.
func Resolve(ctx context.Context, catalog Catalog, input string) (reference.Reference, error) {
	ref, err := reference.Parse(input)
	if err != nil {
		return ref, err
	}
	if ref.Kind != reference.KindUnknown {
		return ref, nil
	}

	kind, err := InferKind(ctx, catalog, ref.ID)
	if err != nil {
		return ref, err
	}
	ref.Kind = kind
	return ref, nil
}

// Lookup resolves input and fetches the item and its tracks concurrently.
func Lookup(ctx context.Context, catalog Catalog, input string) (*models.ItemInfo, []models.TrackDescriptor, error) {
	ref, err := Resolve(ctx, catalog, input)
	if err != nil {
		return nil, nil, err
	}

	var info *models.ItemInfo
	var tracks []models.TrackDescriptor

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		info, err = catalog.ItemInfo(gctx, ref.Kind, ref.ID)
		return err
	})
	g.Go(func() error {
		var err error
		tracks, err = catalog.Tracks(gctx, ref.Kind, ref.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return info, tracks, nil
}
