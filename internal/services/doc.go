// Package services defines the [Catalog] interface for music catalogs and implements it for Spotify.
//
// # Catalog Interface
//
// The acquisition pipeline only reads from a catalog: item summaries, ordered track listings,
// single tracks and free text search. Keeping this behind an interface lets tests substitute a stub.
//
// # Spotify Implementation
//
// [SpotifyService] authenticates with the OAuth2 client credentials grant, so no user login is
// involved. The token source refreshes the app token on expiry. Requests are paced by a token
// bucket limiter sized from the catalog.requests_per_second setting.
//
// Track listings page through `next` links until exhausted and preserve upstream order:
//   - Playlist entries that are episodes, or null (removed or local files), are skipped
//   - Album listings omit the album object, so each track is filled in from the album itself
//
// # Bare IDs
//
// A bare 22 character id carries no kind. [InferKind] tries track, album and playlist and accepts
// the kind only when exactly one lookup succeeds. [Resolve] combines parsing with inference.
//
// # Error Handling
//
// Every failed catalog call returns a [*CatalogError], which matches [shared.ErrCatalog] and a
// status specific sentinel:
//   - [shared.ErrItemNotFound] : 404
//   - [shared.ErrMissingCredentials] : 401 or 403
//   - [shared.ErrServiceUnavailable] : 429, 5xx or transport failures
//   - [shared.ErrAPIRequest] : any other non-2xx status
//
// Catalog errors are never retried.
//
// # API Client
//
// [APIService] talks to a running tunedl server; the watch command uses it to submit and poll jobs.
package services
