// Package reference parses user-supplied catalog references (bare ids or share links) into a kind and id.
package reference

import (
	"fmt"
	"regexp"

	"github.com/desertthunder/tunedl/internal/shared"
)

// Kind is the type of catalog item a reference points at.
type Kind string

const (
	KindTrack    Kind = "track"
	KindAlbum    Kind = "album"
	KindPlaylist Kind = "playlist"
	KindUnknown  Kind = "unknown"
)

// Valid reports whether k names a concrete catalog item type.
func (k Kind) Valid() bool {
	switch k {
	case KindTrack, KindAlbum, KindPlaylist:
		return true
	default:
		return false
	}
}

// ParseKind converts a user-facing kind name, as used in search requests.
func ParseKind(s string) (Kind, error) {
	if k := Kind(s); k.Valid() {
		return k, nil
	}
	return KindUnknown, fmt.Errorf("%w: unsupported item type %q", shared.ErrInvalidArgument, s)
}

// ErrInvalidReference is matched by every error returned from [Parse].
var ErrInvalidReference = shared.ErrInvalidReference

// InvalidReferenceError carries the input that could not be parsed.
type InvalidReferenceError struct {
	Input  string
	Reason string
}

func (e *InvalidReferenceError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %q", e.Reason, e.Input)
	}
	return fmt.Sprintf("Invalid Spotify link format. Please provide a valid Spotify playlist, album, or track link: %q", e.Input)
}

func (e *InvalidReferenceError) Unwrap() error { return ErrInvalidReference }

// Reference is a parsed catalog reference.
type Reference struct {
	Kind Kind
	ID   string
}

func (r Reference) String() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.ID)
}

var bareID = regexp.MustCompile(`^[a-zA-Z0-9]{22}$`)

// patterns are tried in order; the first match wins.
var patterns = []struct {
	re   *regexp.Regexp
	kind Kind
}{
	{regexp.MustCompile(`spotify\.com/playlist/([a-zA-Z0-9]{22})`), KindPlaylist},
	{regexp.MustCompile(`open\.spotify\.com/playlist/([a-zA-Z0-9]{22})`), KindPlaylist},
	{regexp.MustCompile(`spotify\.com/album/([a-zA-Z0-9]{22})`), KindAlbum},
	{regexp.MustCompile(`open\.spotify\.com/album/([a-zA-Z0-9]{22})`), KindAlbum},
	{regexp.MustCompile(`spotify\.com/track/([a-zA-Z0-9]{22})`), KindTrack},
	{regexp.MustCompile(`open\.spotify\.com/track/([a-zA-Z0-9]{22})`), KindTrack},
}

// Parse resolves input into a [Reference].
//
// A bare 22 character alphanumeric id yields [KindUnknown]; callers must infer or reject the kind.
// Share links for playlists, albums and tracks, with or without the "open." host prefix, yield the
// kind fixed by the path segment. Anything else fails with an [*InvalidReferenceError].
func Parse(input string) (Reference, error) {
	if bareID.MatchString(input) {
		return Reference{Kind: KindUnknown, ID: input}, nil
	}

	for _, p := range patterns {
		if m := p.re.FindStringSubmatch(input); m != nil {
			return Reference{Kind: p.kind, ID: m[1]}, nil
		}
	}

	return Reference{}, &InvalidReferenceError{Input: input}
}
