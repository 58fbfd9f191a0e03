package naming

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tt := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain", input: "Daft Punk", want: "Daft Punk"},
		{name: "hostile characters", input: `AC/DC: Back <In> "Black"?|*\`, want: "ACDC Back In Black"},
		{name: "control characters", input: "Line\x00One\tTwo\nThree\x1f", want: "LineOneTwoThree"},
		{name: "surrounding whitespace", input: "   Intro   ", want: "Intro"},
		{name: "empty", input: "", want: ""},
		{name: "only control characters", input: "\x01\x02\x03", want: ""},
		{name: "unicode kept", input: "Sigur Rós – Hoppípolla", want: "Sigur Rós – Hoppípolla"},
		{name: "decomposed is composed", input: "Beyonce\u0301", want: "Beyonc\u00e9"},
		{name: "invalid utf8", input: "bad\xff\xfebytes", want: Unknown},
		{name: "lone continuation byte", input: "\x80", want: Unknown},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := Normalize(tc.input); got != tc.want {
				t.Errorf("Normalize(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeProperties(t *testing.T) {
	inputs := []string{"", " ", "a/b", "\x7f", "\u200b", strings.Repeat("?", 64), "日本語", "\xc3\x28"}

	for _, in := range inputs {
		first := Normalize(in)
		if second := Normalize(in); first != second {
			t.Errorf("Normalize(%q) not deterministic: %q vs %q", in, first, second)
		}
		if strings.ContainsAny(first, hostile) {
			t.Errorf("Normalize(%q) = %q still contains hostile characters", in, first)
		}
		for _, r := range first {
			if r < 32 {
				t.Errorf("Normalize(%q) = %q still contains control character %U", in, first, r)
			}
		}
		if Normalize(first) != first {
			t.Errorf("Normalize is not idempotent for %q", in)
		}
	}
}

func TestOrDefault(t *testing.T) {
	if got := OrDefault("***", "unknown_artist"); got != "unknown_artist" {
		t.Errorf("expected fallback, got %q", got)
	}
	if got := OrDefault(" Björk ", "unknown_artist"); got != "Björk" {
		t.Errorf("expected Björk, got %q", got)
	}
}
