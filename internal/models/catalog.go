package models

import (
	"encoding/json"
	"strings"

	"github.com/desertthunder/tunedl/internal/reference"
)

// TrackDescriptor is a track as listed by the catalog. It is not modified after it is fetched.
type TrackDescriptor struct {
	ID           string   `json:"id"`
	Title        string   `json:"name"`
	Artists      []string `json:"artists"`
	AlbumTitle   string   `json:"album"`
	AlbumArtists []string `json:"album_artists,omitempty"`
	TrackNumber  int      `json:"track_number"`
	DiscNumber   int      `json:"disc_number"`
	DurationMS   int      `json:"duration_ms"`
	AlbumArtURL  string   `json:"album_art_url,omitempty"`
}

// PrimaryArtist returns the first credited artist, or "" when there is none.
func (t TrackDescriptor) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// ArtistNames joins all credited artists with ", ".
func (t TrackDescriptor) ArtistNames() string {
	return strings.Join(t.Artists, ", ")
}

// PrimaryAlbumArtist returns the first album artist, or "" when there is none.
func (t TrackDescriptor) PrimaryAlbumArtist() string {
	if len(t.AlbumArtists) == 0 {
		return ""
	}
	return t.AlbumArtists[0]
}

// ItemInfo describes a playlist, album or track as a whole.
//
// Fields that don't apply to Kind are left zero and omitted from JSON.
type ItemInfo struct {
	Kind        reference.Kind
	ID          string
	Name        string
	Description string
	Owner       string   // playlists
	Artists     []string // albums and tracks
	ReleaseDate string   // albums
	TotalTracks int      // playlists and albums
	DurationMS  int      // tracks
	ImageURL    string
}

// MarshalJSON renders the per-kind shape clients of the HTTP API expect.
func (i ItemInfo) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"id":   i.ID,
		"name": i.Name,
		"type": string(i.Kind),
	}
	if i.ImageURL != "" {
		out["image_url"] = i.ImageURL
	}

	switch i.Kind {
	case reference.KindPlaylist:
		out["description"] = i.Description
		out["owner"] = i.Owner
		out["tracks_total"] = i.TotalTracks
	case reference.KindAlbum:
		out["artists"] = nonNil(i.Artists)
		out["release_date"] = i.ReleaseDate
		out["total_tracks"] = i.TotalTracks
	case reference.KindTrack:
		out["artists"] = nonNil(i.Artists)
		out["duration_ms"] = i.DurationMS
	}
	return json.Marshal(out)
}

// SearchResult is one hit from a catalog search.
type SearchResult struct {
	Kind        reference.Kind `json:"type"`
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Artists     []string       `json:"artists,omitempty"`
	Owner       string         `json:"owner,omitempty"`
	TotalTracks int            `json:"total_tracks,omitempty"`
	ImageURL    string         `json:"image_url,omitempty"`
	URL         string         `json:"url,omitempty"`
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
