package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/tunedl/internal/models"
	"github.com/desertthunder/tunedl/internal/reference"
	"github.com/desertthunder/tunedl/internal/shared"
)

// spotifyStub serves a token endpoint and canned API responses keyed by path.
func spotifyStub(t *testing.T, routes map[string]string) (*httptest.Server, *SpotifyService) {
	t.Helper()

	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/token" {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"test-token","token_type":"bearer","expires_in":3600}`))
			return
		}

		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("expected bearer token, got %q", got)
		}

		body, ok := routes[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"status":404,"message":"Resource not found"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(strings.ReplaceAll(body, "{{base}}", server.URL)))
	}))
	t.Cleanup(server.Close)

	srv, err := NewSpotifyService(context.Background(), SpotifyOpts{
		ClientID:     "id",
		ClientSecret: "secret",
		BaseURL:      server.URL + "/v1",
		TokenURL:     server.URL + "/api/token",
		HTTPClient:   server.Client(),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return server, srv
}

func TestNewSpotifyService(t *testing.T) {
	tt := []struct {
		name string
		opts SpotifyOpts
		err  bool
	}{
		{name: "Valid Credentials", opts: SpotifyOpts{ClientID: "id", ClientSecret: "secret"}},
		{name: "Missing Client ID", opts: SpotifyOpts{ClientSecret: "secret"}, err: true},
		{name: "Missing Client Secret", opts: SpotifyOpts{ClientID: "id"}, err: true},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			srv, err := NewSpotifyService(context.Background(), tc.opts)
			if tc.err {
				if !errors.Is(err, shared.ErrMissingCredentials) {
					t.Errorf("expected ErrMissingCredentials, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if srv.baseURL != spotifyBaseURL {
				t.Errorf("expected default base URL, got %s", srv.baseURL)
			}
			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}
		})
	}
}

func TestSpotifyService(t *testing.T) {
	const playlistID = "37i9dQZF1DXcBWIGoYBM5M"
	const albumID = "2noRn2Aes5aoNVsU6iWThc"
	const trackID = "4uLU6hMCjMI75M1A2tKUQC"

	routes := map[string]string{
		"/v1/playlists/" + playlistID: `{"id":"` + playlistID + `","name":"Today's Top Hits","description":"The hottest tracks",
			"owner":{"id":"spotify","display_name":"Spotify"},"tracks":{"total":3},"images":[{"url":"https://i.scdn.co/pl.jpg"}]}`,
		"/v1/playlists/" + playlistID + "/tracks": `{"total":3,"next":"{{base}}/v1/playlists/` + playlistID + `/tracks/page2","items":[
			{"track":{"id":"t1","name":"First","type":"track","track_number":1,"disc_number":1,"duration_ms":1000,
				"artists":[{"name":"Artist A"}],"album":{"name":"Album A","artists":[{"name":"Artist A"}],"images":[{"url":"https://i.scdn.co/a.jpg"}]}}},
			{"track":null},
			{"track":{"id":"e1","name":"Podcast","type":"episode"}}]}`,
		"/v1/playlists/" + playlistID + "/tracks/page2": `{"total":3,"next":null,"items":[
			{"track":{"id":"t2","name":"Second","type":"track","artists":[{"name":"Artist B"},{"name":"Artist C"}],"album":{"name":"Album B"}}}]}`,
		"/v1/albums/" + albumID: `{"id":"` + albumID + `","name":"Discovery","release_date":"2001-03-12","total_tracks":3,
			"artists":[{"name":"Daft Punk"}],"images":[{"url":"https://i.scdn.co/disc.jpg"}],
			"tracks":{"total":3,"next":"{{base}}/v1/albums/` + albumID + `/tracks/page2","items":[
				{"id":"a1","name":"One More Time","track_number":1,"disc_number":1,"artists":[{"name":"Daft Punk"}]},
				{"id":"a2","name":"Aerodynamic","track_number":2,"disc_number":1,"artists":[{"name":"Daft Punk"}]}]}}`,
		"/v1/albums/" + albumID + "/tracks/page2": `{"total":3,"next":null,"items":[
			{"id":"a3","name":"Digital Love","track_number":3,"disc_number":1,"artists":[{"name":"Daft Punk"}]}]}`,
		"/v1/tracks/" + trackID: `{"id":"` + trackID + `","name":"Numb","type":"track","duration_ms":185586,"track_number":13,
			"artists":[{"name":"Linkin Park"}],"album":{"name":"Meteora","artists":[{"name":"Linkin Park"}],"images":[{"url":"https://i.scdn.co/m.jpg"}]}}`,
		"/v1/search": `{"playlists":{"items":[null,{"id":"p1","name":"Chill","owner":{"display_name":"me"},"tracks":{"total":12}}]}}`,
	}

	_, srv := spotifyStub(t, routes)
	ctx := context.Background()

	t.Run("playlist ItemInfo", func(t *testing.T) {
		info, err := srv.ItemInfo(ctx, reference.KindPlaylist, playlistID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if info.Name != "Today's Top Hits" || info.Owner != "Spotify" || info.TotalTracks != 3 {
			t.Errorf("unexpected info %+v", info)
		}
		if info.ImageURL != "https://i.scdn.co/pl.jpg" {
			t.Errorf("expected first image, got %s", info.ImageURL)
		}
	})

	t.Run("playlist tracks follow pages and skip non-tracks", func(t *testing.T) {
		tracks, err := srv.Tracks(ctx, reference.KindPlaylist, playlistID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d: %+v", len(tracks), tracks)
		}
		if tracks[0].ID != "t1" || tracks[1].ID != "t2" {
			t.Errorf("expected upstream order, got %s, %s", tracks[0].ID, tracks[1].ID)
		}
		if tracks[0].AlbumTitle != "Album A" || tracks[0].AlbumArtURL != "https://i.scdn.co/a.jpg" {
			t.Errorf("expected album context, got %+v", tracks[0])
		}
		if tracks[1].ArtistNames() != "Artist B, Artist C" {
			t.Errorf("unexpected artists %v", tracks[1].Artists)
		}
	})

	t.Run("album tracks carry album context", func(t *testing.T) {
		tracks, err := srv.Tracks(ctx, reference.KindAlbum, albumID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 3 {
			t.Fatalf("expected 3 tracks, got %d", len(tracks))
		}
		for i, track := range tracks {
			if track.TrackNumber != i+1 {
				t.Errorf("expected track number %d, got %d", i+1, track.TrackNumber)
			}
			if track.AlbumTitle != "Discovery" || track.PrimaryAlbumArtist() != "Daft Punk" {
				t.Errorf("expected album context on %s, got %+v", track.ID, track)
			}
			if track.AlbumArtURL != "https://i.scdn.co/disc.jpg" {
				t.Errorf("expected album art on %s", track.ID)
			}
		}
	})

	t.Run("album ItemInfo", func(t *testing.T) {
		info, err := srv.ItemInfo(ctx, reference.KindAlbum, albumID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if info.ReleaseDate != "2001-03-12" || info.TotalTracks != 3 || len(info.Artists) != 1 {
			t.Errorf("unexpected info %+v", info)
		}
	})

	t.Run("single track", func(t *testing.T) {
		tracks, err := srv.Tracks(ctx, reference.KindTrack, trackID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 1 || tracks[0].Title != "Numb" || tracks[0].AlbumTitle != "Meteora" {
			t.Errorf("unexpected tracks %+v", tracks)
		}

		info, err := srv.ItemInfo(ctx, reference.KindTrack, trackID)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if info.DurationMS != 185586 {
			t.Errorf("expected duration, got %d", info.DurationMS)
		}
	})

	t.Run("Search skips null items", func(t *testing.T) {
		results, err := srv.Search(ctx, "chill", "", 0)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
		if results[0].Kind != reference.KindPlaylist || results[0].TotalTracks != 12 {
			t.Errorf("unexpected result %+v", results[0])
		}
		if results[0].URL != "https://open.spotify.com/playlist/p1" {
			t.Errorf("unexpected url %s", results[0].URL)
		}
	})

	t.Run("Search requires query", func(t *testing.T) {
		if _, err := srv.Search(ctx, "  ", reference.KindTrack, 5); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("not found is CatalogError", func(t *testing.T) {
		_, err := srv.Track(ctx, "0000000000000000000000")

		var ce *CatalogError
		if !errors.As(err, &ce) {
			t.Fatalf("expected CatalogError, got %v", err)
		}
		if ce.Status != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", ce.Status)
		}
		if !errors.Is(err, shared.ErrCatalog) || !errors.Is(err, shared.ErrItemNotFound) {
			t.Errorf("expected catalog and not found sentinels, got %v", err)
		}
		if !strings.Contains(err.Error(), "Resource not found") {
			t.Errorf("expected upstream message, got %v", err)
		}
	})

	t.Run("unsupported kind", func(t *testing.T) {
		if _, err := srv.Tracks(ctx, reference.KindUnknown, trackID); !errors.Is(err, shared.ErrCatalog) {
			t.Errorf("expected ErrCatalog, got %v", err)
		}
	})
}

// stubCatalog answers lookups from a set of known ids per kind.
type stubCatalog struct {
	known map[reference.Kind]map[string]bool
	err   error
}

func (s *stubCatalog) lookup(kind reference.Kind, id string) error {
	if s.err != nil {
		return s.err
	}
	if s.known[kind][id] {
		return nil
	}
	return &CatalogError{Op: string(kind), Status: http.StatusNotFound, Err: shared.ErrItemNotFound}
}

func (s *stubCatalog) ItemInfo(_ context.Context, kind reference.Kind, id string) (*models.ItemInfo, error) {
	if err := s.lookup(kind, id); err != nil {
		return nil, err
	}
	return &models.ItemInfo{Kind: kind, ID: id}, nil
}

func (s *stubCatalog) Tracks(context.Context, reference.Kind, string) ([]models.TrackDescriptor, error) {
	return nil, nil
}

func (s *stubCatalog) Track(_ context.Context, id string) (*models.TrackDescriptor, error) {
	if err := s.lookup(reference.KindTrack, id); err != nil {
		return nil, err
	}
	return &models.TrackDescriptor{ID: id}, nil
}

func (s *stubCatalog) Search(context.Context, string, reference.Kind, int) ([]models.SearchResult, error) {
	return nil, nil
}

func (s *stubCatalog) Name() string { return "stub" }

func TestInferKind(t *testing.T) {
	const id = "4uLU6hMCjMI75M1A2tKUQC"

	tt := []struct {
		name    string
		catalog *stubCatalog
		want    reference.Kind
		invalid bool
	}{
		{
			name:    "Track Only",
			catalog: &stubCatalog{known: map[reference.Kind]map[string]bool{reference.KindTrack: {id: true}}},
			want:    reference.KindTrack,
		},
		{
			name:    "Playlist Only",
			catalog: &stubCatalog{known: map[reference.Kind]map[string]bool{reference.KindPlaylist: {id: true}}},
			want:    reference.KindPlaylist,
		},
		{
			name:    "No Match",
			catalog: &stubCatalog{},
			invalid: true,
		},
		{
			name: "Ambiguous",
			catalog: &stubCatalog{known: map[reference.Kind]map[string]bool{
				reference.KindTrack: {id: true},
				reference.KindAlbum: {id: true},
			}},
			invalid: true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			kind, err := InferKind(context.Background(), tc.catalog, id)
			if tc.invalid {
				if !errors.Is(err, reference.ErrInvalidReference) {
					t.Fatalf("expected ErrInvalidReference, got %v", err)
				}
				if !strings.Contains(err.Error(), "cannot infer item kind") {
					t.Errorf("expected inference message, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if kind != tc.want {
				t.Errorf("expected %s, got %s", tc.want, kind)
			}
		})
	}

	t.Run("upstream failure is returned", func(t *testing.T) {
		catalog := &stubCatalog{err: &CatalogError{Op: "track", Status: http.StatusUnauthorized, Err: shared.ErrMissingCredentials}}
		_, err := InferKind(context.Background(), catalog, id)
		if !errors.Is(err, shared.ErrCatalog) || errors.Is(err, reference.ErrInvalidReference) {
			t.Errorf("expected catalog error, got %v", err)
		}
	})
}

func TestResolve(t *testing.T) {
	catalog := &stubCatalog{known: map[reference.Kind]map[string]bool{reference.KindAlbum: {"2noRn2Aes5aoNVsU6iWThc": true}}}

	tt := []struct {
		input string
		kind  reference.Kind
		err   bool
	}{
		{input: "https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", kind: reference.KindTrack},
		{input: "2noRn2Aes5aoNVsU6iWThc", kind: reference.KindAlbum},
		{input: "not-a-valid-link", err: true},
	}

	for _, tc := range tt {
		t.Run(tc.input, func(t *testing.T) {
			ref, err := Resolve(context.Background(), catalog, tc.input)
			if tc.err {
				if !errors.Is(err, reference.ErrInvalidReference) {
					t.Errorf("expected ErrInvalidReference, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if ref.Kind != tc.kind {
				t.Errorf("expected %s, got %s", tc.kind, ref.Kind)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	const id = "2noRn2Aes5aoNVsU6iWThc"
	catalog := &stubCatalog{known: map[reference.Kind]map[string]bool{reference.KindAlbum: {id: true}}}

	t.Run("resolves and fetches", func(t *testing.T) {
		info, _, err := Lookup(context.Background(), catalog, "https://open.spotify.com/album/"+id)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if info.Kind != reference.KindAlbum || info.ID != id {
			t.Errorf("unexpected info %+v", info)
		}
	})

	t.Run("invalid reference", func(t *testing.T) {
		if _, _, err := Lookup(context.Background(), catalog, "not-a-valid-link"); !errors.Is(err, reference.ErrInvalidReference) {
			t.Errorf("expected ErrInvalidReference, got %v", err)
		}
	})

	t.Run("catalog failure", func(t *testing.T) {
		_, _, err := Lookup(context.Background(), catalog, "https://open.spotify.com/playlist/"+id)
		if !errors.Is(err, shared.ErrItemNotFound) {
			t.Errorf("expected ErrItemNotFound, got %v", err)
		}
	})
}

func TestStatusError(t *testing.T) {
	tt := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, shared.ErrItemNotFound},
		{http.StatusUnauthorized, shared.ErrMissingCredentials},
		{http.StatusTooManyRequests, shared.ErrServiceUnavailable},
		{http.StatusBadGateway, shared.ErrServiceUnavailable},
		{http.StatusBadRequest, shared.ErrAPIRequest},
	}

	for _, tc := range tt {
		t.Run(fmt.Sprint(tc.status), func(t *testing.T) {
			if err := statusError(tc.status, "msg"); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
