package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/desertthunder/tunedl/internal/ledger"
	"github.com/desertthunder/tunedl/internal/models"
	"github.com/desertthunder/tunedl/internal/reference"
	"github.com/desertthunder/tunedl/internal/services"
	"github.com/desertthunder/tunedl/internal/shared"
	"github.com/desertthunder/tunedl/internal/tasks"
)

// previewSize is the number of tracks the info endpoint lists.
const previewSize = 5


func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}

// fail maps err onto the error taxonomy: bad input is 400, upstream catalog failures 502, anything else 500.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shared.ErrInvalidReference),
		errors.Is(err, shared.ErrMissingArgument),
		errors.Is(err, shared.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, shared.ErrCatalog):
		status = http.StatusBadGateway
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, err.Error())
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "tunedl"})
}

// lookup resolves the url query parameter and fetches the item with its tracks.
func (s *Server) lookup(r *http.Request) (*models.ItemInfo, []models.TrackDescriptor, error) {
	input := r.URL.Query().Get("url")
	if input == "" {
		return nil, nil, fmt.Errorf("%w: Missing URL parameter", shared.ErrMissingArgument)
	}
	return services.Lookup(r.Context(), s.orch.Catalog(), input)
}

type trackJSON struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []string `json:"artists"`
	ArtistNames string   `json:"artist_names"`
	Album       string   `json:"album"`
	DurationMS  int      `json:"duration_ms"`
	TrackNumber int      `json:"track_number"`
	DiscNumber  int      `json:"disc_number"`
	Type        string   `json:"type"`
}

// trackType labels a track by the kind of item it was listed under.
func trackType(kind reference.Kind) string {
	switch kind {
	case reference.KindPlaylist:
		return "playlist_track"
	case reference.KindAlbum:
		return "album_track"
	default:
		return "single_track"
	}
}

func (s *Server) item(w http.ResponseWriter, r *http.Request) {
	info, tracks, err := s.lookup(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := make([]trackJSON, 0, len(tracks))
	for _, t := range tracks {
		artists := t.Artists
		if artists == nil {
			artists = []string{}
		}
		out = append(out, trackJSON{
			ID:          t.ID,
			Name:        t.Title,
			Artists:     artists,
			ArtistNames: t.ArtistNames(),
			Album:       t.AlbumTitle,
			DurationMS:  t.DurationMS,
			TrackNumber: t.TrackNumber,
			DiscNumber:  t.DiscNumber,
			Type:        trackType(info.Kind),
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"item_info": info,
		"tracks":    out,
	})
}

type previewJSON struct {
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	DurationMS int      `json:"duration_ms"`
}

func (s *Server) info(w http.ResponseWriter, r *http.Request) {
	info, tracks, err := s.lookup(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	data := map[string]any{
		"item_info":    info,
		"tracks_count": len(tracks),
	}
	if info.Kind != reference.KindTrack {
		preview := make([]previewJSON, 0, previewSize)
		for _, t := range tracks[:min(previewSize, len(tracks))] {
			artists := t.Artists
			if artists == nil {
				artists = []string{}
			}
			preview = append(preview, previewJSON{Name: t.Title, Artists: artists, DurationMS: t.DurationMS})
		}
		data["tracks_preview"] = preview
	}

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": data})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := q.Get("q")
	if query == "" {
		s.fail(w, r, fmt.Errorf(`%w: Missing search query parameter "q"`, shared.ErrMissingArgument))
		return
	}

	kind := services.DefaultSearchKind
	if raw := q.Get("type"); raw != "" {
		k, err := reference.ParseKind(raw)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		kind = k
	}

	limit := services.DefaultSearchLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.fail(w, r, fmt.Errorf("%w: limit must be a positive integer, got %q", shared.ErrInvalidArgument, raw))
			return
		}
		limit = n
	}

	results, err := s.orch.Catalog().Search(r.Context(), query, kind, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"query":   query,
		"type":    kind,
		"results": results,
	})
}

func (s *Server) start(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.URL == "" {
		s.fail(w, r, fmt.Errorf("%w: Missing URL in request body", shared.ErrMissingArgument))
		return
	}

	id := s.orch.Submit(r.Context(), body.URL)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"success":     true,
		"download_id": id,
		"message":     "Download started",
	})
}

func (s *Server) progress(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	status := string(tasks.StatusUnknown)
	if job, ok := s.orch.Job(id); ok {
		status = string(job.Status)
	}

	events := s.orch.Ledger().Query(id)
	if events == nil {
		events = []ledger.Event{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"download_id": id,
		"progress":    events,
		"status":      status,
	})
}
