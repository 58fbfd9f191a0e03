package models

import (
	"encoding/json"
	"testing"

	"github.com/desertthunder/tunedl/internal/reference"
)

func TestItemInfoJSON(t *testing.T) {
	tt := []struct {
		name    string
		info    ItemInfo
		present []string
		absent  []string
	}{
		{
			name:    "playlist",
			info:    ItemInfo{Kind: reference.KindPlaylist, ID: "p", Name: "Mix", Owner: "me", TotalTracks: 3},
			present: []string{"id", "name", "type", "description", "owner", "tracks_total"},
			absent:  []string{"artists", "release_date", "duration_ms"},
		},
		{
			name:    "album",
			info:    ItemInfo{Kind: reference.KindAlbum, ID: "a", Name: "Discovery", ReleaseDate: "2001-03-12", TotalTracks: 14},
			present: []string{"artists", "release_date", "total_tracks"},
			absent:  []string{"owner", "tracks_total"},
		},
		{
			name:    "track",
			info:    ItemInfo{Kind: reference.KindTrack, ID: "t", Name: "One More Time", Artists: []string{"Daft Punk"}, DurationMS: 320357},
			present: []string{"artists", "duration_ms"},
			absent:  []string{"total_tracks", "tracks_total"},
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.info)
			if err != nil {
				t.Fatalf("marshal failed: %v", err)
			}

			var got map[string]any
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal failed: %v", err)
			}

			if got["type"] != tc.name {
				t.Errorf("expected type %s, got %v", tc.name, got["type"])
			}
			for _, key := range tc.present {
				if _, ok := got[key]; !ok {
					t.Errorf("expected key %q in %s", key, data)
				}
			}
			for _, key := range tc.absent {
				if _, ok := got[key]; ok {
					t.Errorf("unexpected key %q in %s", key, data)
				}
			}
		})
	}

	t.Run("album artists never null", func(t *testing.T) {
		data, _ := json.Marshal(ItemInfo{Kind: reference.KindAlbum})
		var got map[string]any
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if _, ok := got["artists"].([]any); !ok {
			t.Errorf("expected artists array, got %v", got["artists"])
		}
	})
}

func TestTrackDescriptor(t *testing.T) {
	track := TrackDescriptor{Artists: []string{"Simon", "Garfunkel"}, AlbumArtists: []string{"Simon & Garfunkel"}}

	if track.PrimaryArtist() != "Simon" {
		t.Errorf("expected Simon, got %s", track.PrimaryArtist())
	}
	if track.ArtistNames() != "Simon, Garfunkel" {
		t.Errorf("expected joined names, got %s", track.ArtistNames())
	}
	if track.PrimaryAlbumArtist() != "Simon & Garfunkel" {
		t.Errorf("expected album artist, got %s", track.PrimaryAlbumArtist())
	}

	var empty TrackDescriptor
	if empty.PrimaryArtist() != "" || empty.PrimaryAlbumArtist() != "" {
		t.Error("expected empty primary artists for empty descriptor")
	}
}

func TestRecordValidate(t *testing.T) {
	if err := NewJobRecord("id", "ref", "queued").Validate(); err != nil {
		t.Errorf("expected valid job record, got %v", err)
	}
	if err := NewJobRecord("", "ref", "queued").Validate(); err == nil {
		t.Error("expected error for missing id")
	}
	if err := NewAcquisitionRecord("job", 0, "", "t", "a", "/p", "failed").Validate(); err == nil {
		t.Error("expected error for zero position")
	}
	if err := NewAcquisitionRecord("job", 1, "", "t", "a", "/p", "failed").Validate(); err != nil {
		t.Errorf("expected valid acquisition, got %v", err)
	}
}
