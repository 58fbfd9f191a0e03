// Spotify Web API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/tunedl/internal/models"
	"github.com/desertthunder/tunedl/internal/reference"
	"github.com/desertthunder/tunedl/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
	spotifyOpenURL  = "https://open.spotify.com"

	playlistPageSize = 100
	albumPageSize    = 50
)

// SpotifyImage represents an image resource. Spotify lists the widest image first.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track. Album is empty for album track listings.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	TrackNumber int             `json:"track_number"`
	DiscNumber  int             `json:"disc_number"`
	IsLocal     bool            `json:"is_local"`
}

type trackPage struct {
	Items []SpotifyTrack `json:"items"`
	Total int            `json:"total"`
	Next  *string        `json:"next"`
}

// SpotifyAlbum represents a Spotify album. Tracks is only populated by the album endpoint.
type SpotifyAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Images      []SpotifyImage  `json:"images"`
	Tracks      *trackPage      `json:"tracks,omitempty"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyPlaylistItem is one entry of a playlist. Track is nil for removed or local items
// and may be a podcast episode.
type SpotifyPlaylistItem struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

type playlistItemPage struct {
	Items []SpotifyPlaylistItem `json:"items"`
	Total int                   `json:"total"`
	Next  *string               `json:"next"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Owner       Owner            `json:"owner"`
	Tracks      playlistItemPage `json:"tracks"`
	Images      []SpotifyImage   `json:"images"`
}

type spotifyErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyOpts configures [NewSpotifyService]. Zero values fall back to the public Spotify endpoints.
type SpotifyOpts struct {
	ClientID          string
	ClientSecret      string
	Market            string
	RequestsPerSecond float64
	BaseURL           string
	TokenURL          string
	HTTPClient        *http.Client // used for token and API requests
}

// SpotifyService implements [Catalog] against the Spotify Web API.
//
// It authenticates with the client credentials grant; [clientcredentials.Config] fetches and
// refreshes the app token transparently. Every request waits on a [rate.Limiter].
type SpotifyService struct {
	baseURL    string
	market     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSpotifyService creates a Spotify catalog client from app credentials.
func NewSpotifyService(ctx context.Context, opts SpotifyOpts) (*SpotifyService, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("%w: missing spotify client_id", shared.ErrMissingCredentials)
	}
	if opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing spotify client_secret", shared.ErrMissingCredentials)
	}

	tokenURL := opts.TokenURL
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	if opts.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, opts.HTTPClient)
	}

	config := &clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     tokenURL,
	}

	return &SpotifyService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		market:     opts.Market,
		httpClient: config.Client(ctx),
		limiter:    newLimiter(opts.RequestsPerSecond),
	}, nil
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// get performs a rate limited, authenticated GET. endpoint is either a path relative to the
// API base or an absolute `next` URL returned by a previous page.
func (s *SpotifyService) get(ctx context.Context, op, endpoint string, query url.Values, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return &CatalogError{Op: op, Err: err}
	}

	apiURL := endpoint
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		apiURL = s.baseURL + endpoint
	}
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
	if err != nil {
		return &CatalogError{Op: op, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &CatalogError{Op: op, Err: fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var body spotifyErrorBody
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return &CatalogError{Op: op, Status: resp.StatusCode, Err: statusError(resp.StatusCode, body.Error.Message)}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &CatalogError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

func (s *SpotifyService) marketQuery() url.Values {
	q := url.Values{}
	if s.market != "" {
		q.Set("market", s.market)
	}
	return q
}

func (s *SpotifyService) track(ctx context.Context, id string) (*SpotifyTrack, error) {
	var track SpotifyTrack
	if err := s.get(ctx, "track", "/tracks/"+url.PathEscape(id), s.marketQuery(), &track); err != nil {
		return nil, err
	}
	return &track, nil
}

func (s *SpotifyService) album(ctx context.Context, id string) (*SpotifyAlbum, error) {
	var album SpotifyAlbum
	if err := s.get(ctx, "album", "/albums/"+url.PathEscape(id), s.marketQuery(), &album); err != nil {
		return nil, err
	}
	return &album, nil
}

func (s *SpotifyService) playlist(ctx context.Context, id string) (*SpotifyPlaylist, error) {
	q := s.marketQuery()
	q.Set("fields", "id,name,description,owner(id,display_name),images,tracks.total")

	var playlist SpotifyPlaylist
	if err := s.get(ctx, "playlist", "/playlists/"+url.PathEscape(id), q, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// ItemInfo retrieves the summary of a playlist, album or track.
func (s *SpotifyService) ItemInfo(ctx context.Context, kind reference.Kind, id string) (*models.ItemInfo, error) {
	switch kind {
	case reference.KindPlaylist:
		p, err := s.playlist(ctx, id)
		if err != nil {
			return nil, err
		}
		return &models.ItemInfo{
			Kind:        reference.KindPlaylist,
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Owner:       p.Owner.DisplayName,
			TotalTracks: p.Tracks.Total,
			ImageURL:    firstImage(p.Images),
		}, nil
	case reference.KindAlbum:
		a, err := s.album(ctx, id)
		if err != nil {
			return nil, err
		}
		return &models.ItemInfo{
			Kind:        reference.KindAlbum,
			ID:          a.ID,
			Name:        a.Name,
			Artists:     artistNames(a.Artists),
			ReleaseDate: a.ReleaseDate,
			TotalTracks: a.TotalTracks,
			ImageURL:    firstImage(a.Images),
		}, nil
	case reference.KindTrack:
		t, err := s.track(ctx, id)
		if err != nil {
			return nil, err
		}
		return &models.ItemInfo{
			Kind:        reference.KindTrack,
			ID:          t.ID,
			Name:        t.Name,
			Artists:     artistNames(t.Artists),
			TotalTracks: 1,
			DurationMS:  t.DurationMS,
			ImageURL:    firstImage(t.Album.Images),
		}, nil
	default:
		return nil, &CatalogError{Op: "item info", Err: fmt.Errorf("%w: unsupported item type %q", shared.ErrInvalidArgument, kind)}
	}
}

// Tracks retrieves all tracks of a playlist, album or single track.
func (s *SpotifyService) Tracks(ctx context.Context, kind reference.Kind, id string) ([]models.TrackDescriptor, error) {
	switch kind {
	case reference.KindPlaylist:
		return s.playlistTracks(ctx, id)
	case reference.KindAlbum:
		return s.albumTracks(ctx, id)
	case reference.KindTrack:
		t, err := s.Track(ctx, id)
		if err != nil {
			return nil, err
		}
		return []models.TrackDescriptor{*t}, nil
	default:
		return nil, &CatalogError{Op: "tracks", Err: fmt.Errorf("%w: unsupported item type %q", shared.ErrInvalidArgument, kind)}
	}
}

// Track retrieves a single track by ID.
func (s *SpotifyService) Track(ctx context.Context, id string) (*models.TrackDescriptor, error) {
	t, err := s.track(ctx, id)
	if err != nil {
		return nil, err
	}
	d := t.descriptor(nil)
	return &d, nil
}

// playlistTracks pages through the playlist items, skipping episodes and removed or local entries.
func (s *SpotifyService) playlistTracks(ctx context.Context, id string) ([]models.TrackDescriptor, error) {
	q := s.marketQuery()
	q.Set("limit", strconv.Itoa(playlistPageSize))
	q.Set("additional_types", "track")

	var tracks []models.TrackDescriptor
	endpoint := "/playlists/" + url.PathEscape(id) + "/tracks"

	for {
		var page playlistItemPage
		if err := s.get(ctx, "playlist tracks", endpoint, q, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track == nil || item.Track.ID == "" {
				continue
			}
			if item.Track.Type != "" && item.Track.Type != "track" {
				continue
			}
			tracks = append(tracks, item.Track.descriptor(nil))
		}

		if page.Next == nil || *page.Next == "" {
			break
		}
		endpoint, q = *page.Next, nil
	}

	return tracks, nil
}

// albumTracks fetches the album once for its context, then follows the embedded track page.
// Album track listings omit the album, so each descriptor is filled from it.
func (s *SpotifyService) albumTracks(ctx context.Context, id string) ([]models.TrackDescriptor, error) {
	album, err := s.album(ctx, id)
	if err != nil {
		return nil, err
	}

	var tracks []models.TrackDescriptor
	page := album.Tracks
	for page != nil {
		for _, t := range page.Items {
			tracks = append(tracks, t.descriptor(album))
		}

		if page.Next == nil || *page.Next == "" {
			break
		}

		var next trackPage
		if err := s.get(ctx, "album tracks", *page.Next, nil, &next); err != nil {
			return nil, err
		}
		page = &next
	}

	return tracks, nil
}

type searchPage struct {
	Items []json.RawMessage `json:"items"`
}

// Search queries the catalog for items of one kind. kind defaults to playlist and limit to 10.
func (s *SpotifyService) Search(ctx context.Context, query string, kind reference.Kind, limit int) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	if kind == "" || kind == reference.KindUnknown {
		kind = DefaultSearchKind
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	q := s.marketQuery()
	q.Set("q", query)
	q.Set("type", string(kind))
	q.Set("limit", strconv.Itoa(limit))

	var response map[string]searchPage
	if err := s.get(ctx, "search", "/search", q, &response); err != nil {
		return nil, err
	}

	results := []models.SearchResult{}
	for _, raw := range response[string(kind)+"s"].Items {
		if string(raw) == "null" {
			continue
		}
		result, err := searchResult(kind, raw)
		if err != nil {
			return nil, &CatalogError{Op: "search", Err: fmt.Errorf("failed to decode result: %w", err)}
		}
		results = append(results, result)
	}
	return results, nil
}

func searchResult(kind reference.Kind, raw json.RawMessage) (models.SearchResult, error) {
	result := models.SearchResult{Kind: kind}

	switch kind {
	case reference.KindPlaylist:
		var p SpotifyPlaylist
		if err := json.Unmarshal(raw, &p); err != nil {
			return result, err
		}
		result.ID, result.Name = p.ID, p.Name
		result.Owner = p.Owner.DisplayName
		result.TotalTracks = p.Tracks.Total
		result.ImageURL = firstImage(p.Images)
	case reference.KindAlbum:
		var a SpotifyAlbum
		if err := json.Unmarshal(raw, &a); err != nil {
			return result, err
		}
		result.ID, result.Name = a.ID, a.Name
		result.Artists = artistNames(a.Artists)
		result.TotalTracks = a.TotalTracks
		result.ImageURL = firstImage(a.Images)
	case reference.KindTrack:
		var t SpotifyTrack
		if err := json.Unmarshal(raw, &t); err != nil {
			return result, err
		}
		result.ID, result.Name = t.ID, t.Name
		result.Artists = artistNames(t.Artists)
		result.ImageURL = firstImage(t.Album.Images)
	}

	result.URL = fmt.Sprintf("%s/%s/%s", spotifyOpenURL, kind, result.ID)
	return result, nil
}

// descriptor converts t, taking album context from album when the listing omitted it.
func (t SpotifyTrack) descriptor(album *SpotifyAlbum) models.TrackDescriptor {
	a := t.Album
	if album != nil {
		a = *album
	}

	return models.TrackDescriptor{
		ID:           t.ID,
		Title:        t.Name,
		Artists:      artistNames(t.Artists),
		AlbumTitle:   a.Name,
		AlbumArtists: artistNames(a.Artists),
		TrackNumber:  t.TrackNumber,
		DiscNumber:   t.DiscNumber,
		DurationMS:   t.DurationMS,
		AlbumArtURL:  firstImage(a.Images),
	}
}

func artistNames(artists []SpotifyArtist) []string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names
}

func firstImage(images []SpotifyImage) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}
