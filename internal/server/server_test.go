package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/tunedl/internal/ledger"
	"github.com/desertthunder/tunedl/internal/models"
	"github.com/desertthunder/tunedl/internal/reference"
	"github.com/desertthunder/tunedl/internal/services"
	"github.com/desertthunder/tunedl/internal/shared"
	"github.com/desertthunder/tunedl/internal/tasks"
	tu "github.com/desertthunder/tunedl/internal/testing"
)

const playlistID = "37i9dQZF1DXcBWIGoYBM5M"

func tracks(n int) []models.TrackDescriptor {
	out := make([]models.TrackDescriptor, n)
	for i := range n {
		out[i] = models.TrackDescriptor{
			ID:         fmt.Sprintf("t%d", i+1),
			Title:      fmt.Sprintf("Song %d", i+1),
			Artists:    []string{"Artist", "Guest"},
			AlbumTitle: "Album",
			DurationMS: 1000 * (i + 1),
		}
	}
	return out
}

type fixture struct {
	server  *httptest.Server
	catalog *tu.MockCatalog
	orch    *tasks.Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := shared.NewLogger(io.Discard)
	catalog := tu.NewMockCatalog()
	catalog.AddItem(models.ItemInfo{Kind: reference.KindPlaylist, ID: playlistID, Name: "Today's Top Hits", Owner: "spotify", TotalTracks: 7}, tracks(7))

	engine := tasks.NewEngine(tasks.EngineOpts{
		Root:      t.TempDir(),
		Retriever: &tu.MockRetriever{},
		Tagger:    &tu.MockTagger{},
		Ledger:    ledger.New(ledger.DefaultCapacity),
		Logger:    logger,
	})
	orch := tasks.NewOrchestrator(tasks.OrchestratorOpts{Catalog: catalog, Engine: engine, Logger: logger})

	srv := httptest.NewServer(New(orch, logger))
	t.Cleanup(srv.Close)

	return &fixture{server: srv, catalog: catalog, orch: orch}
}

func (f *fixture) get(t *testing.T, path string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(f.server.URL + path)
	if err != nil {
		t.Fatalf("GET %s failed: %v", path, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, decode(t, resp.Body)
}

func decode(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	return body
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	status, body := f.get(t, "/api/health")

	if status != http.StatusOK {
		t.Errorf("expected 200, got %d", status)
	}
	if body["status"] != "healthy" || body["service"] != "tunedl" {
		t.Errorf("unexpected body %v", body)
	}
	if f.catalog.Calls() != 0 {
		t.Error("expected health check to make no downstream calls")
	}
}

func TestInfo(t *testing.T) {
	t.Run("playlist preview", func(t *testing.T) {
		f := newFixture(t)
		status, body := f.get(t, "/api/spotify/info?url=https://open.spotify.com/playlist/"+playlistID)

		if status != http.StatusOK || body["success"] != true {
			t.Fatalf("unexpected response %d %v", status, body)
		}

		data := body["data"].(map[string]any)
		if data["tracks_count"] != float64(7) {
			t.Errorf("expected 7 tracks, got %v", data["tracks_count"])
		}
		preview := data["tracks_preview"].([]any)
		if len(preview) != 5 {
			t.Errorf("expected 5 preview tracks, got %d", len(preview))
		}
		first := preview[0].(map[string]any)
		if first["name"] != "Song 1" || first["duration_ms"] != float64(1000) {
			t.Errorf("unexpected preview entry %v", first)
		}

		info := data["item_info"].(map[string]any)
		if info["name"] != "Today's Top Hits" || info["type"] != "playlist" || info["owner"] != "spotify" {
			t.Errorf("unexpected item info %v", info)
		}
	})

	t.Run("invalid link", func(t *testing.T) {
		f := newFixture(t)
		status, body := f.get(t, "/api/spotify/info?url=not-a-valid-link")

		if status != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", status)
		}
		if body["success"] != false || !strings.Contains(body["error"].(string), "Invalid Spotify link format") {
			t.Errorf("unexpected body %v", body)
		}
	})

	t.Run("missing parameter", func(t *testing.T) {
		f := newFixture(t)
		status, body := f.get(t, "/api/spotify/info")

		if status != http.StatusBadRequest || !strings.Contains(body["error"].(string), "Missing URL parameter") {
			t.Errorf("unexpected response %d %v", status, body)
		}
	})

	t.Run("catalog failure", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.Err = fmt.Errorf("%w: rate limited", shared.ErrCatalog)
		status, _ := f.get(t, "/api/spotify/info?url=https://open.spotify.com/playlist/"+playlistID)

		if status != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", status)
		}
	})

	t.Run("unexpected failure", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.Err = errors.New("disk on fire")
		status, _ := f.get(t, "/api/spotify/info?url=https://open.spotify.com/playlist/"+playlistID)

		if status != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", status)
		}
	})
}

func TestItem(t *testing.T) {
	f := newFixture(t)
	status, body := f.get(t, "/api/spotify/item?url=spotify.com/playlist/"+playlistID)

	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}

	items := body["tracks"].([]any)
	if len(items) != 7 {
		t.Fatalf("expected 7 tracks, got %d", len(items))
	}
	first := items[0].(map[string]any)
	if first["artist_names"] != "Artist, Guest" || first["type"] != "playlist_track" || first["album"] != "Album" {
		t.Errorf("unexpected track %v", first)
	}
}

func TestSearch(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		f := newFixture(t)
		f.catalog.Results = []models.SearchResult{{Kind: reference.KindPlaylist, ID: playlistID, Name: "Hits"}}

		status, body := f.get(t, "/api/spotify/search?q=hits")
		if status != http.StatusOK {
			t.Fatalf("expected 200, got %d", status)
		}
		if body["type"] != string(services.DefaultSearchKind) || body["query"] != "hits" {
			t.Errorf("unexpected body %v", body)
		}
		if results := body["results"].([]any); len(results) != 1 {
			t.Errorf("expected 1 result, got %d", len(results))
		}
	})

	t.Run("empty results are a list", func(t *testing.T) {
		f := newFixture(t)
		_, body := f.get(t, "/api/spotify/search?q=nothing&type=album")
		if results, ok := body["results"].([]any); !ok || len(results) != 0 {
			t.Errorf("expected empty list, got %v", body["results"])
		}
	})

	tt := []struct {
		name  string
		query string
	}{
		{name: "missing query", query: ""},
		{name: "bad type", query: "q=x&type=artist"},
		{name: "bad limit", query: "q=x&limit=lots"},
		{name: "zero limit", query: "q=x&limit=0"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			status, body := f.get(t, "/api/spotify/search?"+tc.query)
			if status != http.StatusBadRequest || body["success"] != false {
				t.Errorf("expected 400 failure, got %d %v", status, body)
			}
		})
	}
}

func TestDownload(t *testing.T) {
	t.Run("start and poll", func(t *testing.T) {
		f := newFixture(t)

		resp, err := http.Post(f.server.URL+"/api/download/start", "application/json",
			strings.NewReader(`{"url":"https://open.spotify.com/playlist/`+playlistID+`"}`))
		if err != nil {
			t.Fatalf("POST failed: %v", err)
		}
		body := decode(t, resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("expected 202, got %d", resp.StatusCode)
		}
		if body["message"] != "Download started" {
			t.Errorf("unexpected message %v", body["message"])
		}
		id, _ := body["download_id"].(string)
		if id == "" {
			t.Fatal("expected a download id")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := f.orch.Wait(ctx, id); err != nil {
			t.Fatalf("job did not finish: %v", err)
		}

		status, progress := f.get(t, "/api/download/progress/"+id)
		if status != http.StatusOK || progress["status"] != "completed" {
			t.Fatalf("unexpected progress %d %v", status, progress)
		}

		events := progress["progress"].([]any)
		first := events[0].(map[string]any)
		if first["type"] != "info" || first["message"] != "Downloading playlist: Today's Top Hits (7 tracks)" {
			t.Errorf("unexpected first event %v", first)
		}
		last := events[len(events)-1].(map[string]any)
		if last["type"] != "success" || !strings.Contains(last["message"].(string), "'Playlist - Today's Top Hits'") {
			t.Errorf("unexpected last event %v", last)
		}
	})

	t.Run("missing body", func(t *testing.T) {
		f := newFixture(t)
		resp, err := http.Post(f.server.URL+"/api/download/start", "application/json", bytes.NewReader([]byte(`{}`)))
		if err != nil {
			t.Fatalf("POST failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", resp.StatusCode)
		}
	})

	t.Run("unknown id has empty progress", func(t *testing.T) {
		f := newFixture(t)
		status, body := f.get(t, "/api/download/progress/nope")

		if status != http.StatusOK || body["status"] != string(tasks.StatusUnknown) {
			t.Errorf("unexpected response %d %v", status, body)
		}
		if events, ok := body["progress"].([]any); !ok || len(events) != 0 {
			t.Errorf("expected empty progress list, got %v", body["progress"])
		}
	})
}

func TestRouting(t *testing.T) {
	f := newFixture(t)

	t.Run("unknown path", func(t *testing.T) {
		status, body := f.get(t, "/api/nope")
		if status != http.StatusNotFound || body["error"] != "Endpoint not found" {
			t.Errorf("unexpected response %d %v", status, body)
		}
	})

	t.Run("wrong method", func(t *testing.T) {
		resp, err := http.Post(f.server.URL+"/api/health", "application/json", nil)
		if err != nil {
			t.Fatalf("POST failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", resp.StatusCode)
		}
	})

	t.Run("CORS preflight", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodOptions, f.server.URL+"/api/download/start", nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("OPTIONS failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("expected 204, got %d", resp.StatusCode)
		}
		if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
			t.Errorf("expected wildcard origin, got %q", got)
		}
	})
}

func TestRecover(t *testing.T) {
	logger := shared.NewLogger(io.Discard)
	router := NewBasicRouter()
	router.Use(Logging(logger), Recover(logger), CORS)
	router.HandleFunc(http.MethodGet, "/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"success":false`) {
		t.Errorf("expected JSON failure body, got %s", rec.Body.String())
	}
}

func TestBasicRouter(t *testing.T) {
	var router Router = NewBasicRouter()
	router.Use(CORS)
	router.Handle(http.MethodGet, "/items/{id}", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"id": r.PathValue("id")})
	}))

	tt := []struct {
		name   string
		method string
		path   string
		status int
		body   string
	}{
		{name: "matching route", method: http.MethodGet, path: "/items/42", status: http.StatusOK, body: `"id":"42"`},
		{name: "wrong method", method: http.MethodDelete, path: "/items/42", status: http.StatusMethodNotAllowed, body: "Method not allowed"},
		{name: "unknown path", method: http.MethodGet, path: "/nope", status: http.StatusNotFound, body: "Endpoint not found"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))

			if rec.Code != tc.status {
				t.Errorf("expected %d, got %d", tc.status, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tc.body) {
				t.Errorf("expected body to contain %q, got %s", tc.body, rec.Body.String())
			}
			if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
				t.Error("expected middleware to run")
			}
		})
	}
}

func TestAPIServiceAgainstServer(t *testing.T) {
	f := newFixture(t)
	client := services.NewAPIService(f.server.URL, f.server.Client())
	ctx := context.Background()

	if err := client.Health(ctx); err != nil {
		t.Fatalf("health failed: %v", err)
	}

	id, err := client.Start(ctx, "https://open.spotify.com/playlist/"+playlistID)
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := f.orch.Wait(waitCtx, id); err != nil {
		t.Fatalf("job did not finish: %v", err)
	}

	progress, err := client.Progress(ctx, id)
	if err != nil {
		t.Fatalf("progress failed: %v", err)
	}
	if progress.Status != "completed" || len(progress.Progress) == 0 {
		t.Errorf("unexpected progress %+v", progress)
	}
	if progress.Progress[0].Severity != ledger.Info {
		t.Errorf("expected first event to be info, got %s", progress.Progress[0].Severity)
	}
}
