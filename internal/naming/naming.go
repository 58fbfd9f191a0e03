// Package naming turns catalog text into path components that are safe on every major filesystem.
package naming

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Unknown is returned for text that is not valid UTF-8.
const Unknown = "unknown"

// hostile lists the characters rejected by at least one of NTFS, HFS+ or ext4 path rules.
const hostile = `<>:"/\|?*`

// Normalize strips path-hostile characters and control characters (code points below 32), trims surrounding
// whitespace and composes the result to NFC.
//
// Normalize is total: input that is not valid UTF-8 yields [Unknown], and every other input yields a
// (possibly empty) cleaned string.
func Normalize(text string) string {
	if !utf8.ValidString(text) {
		return Unknown
	}

	cleaned := strings.Map(func(r rune) rune {
		if r < 32 || strings.ContainsRune(hostile, r) {
			return -1
		}
		return r
	}, text)

	return norm.NFC.String(strings.TrimSpace(cleaned))
}

// OrDefault normalizes text and substitutes fallback when nothing usable is left.
func OrDefault(text, fallback string) string {
	if n := Normalize(text); n != "" {
		return n
	}
	return fallback
}
