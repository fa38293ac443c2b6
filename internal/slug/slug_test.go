package slug

import (
	"strings"
	"testing"
)

func TestMake(t *testing.T) {
	cases := map[string]string{
		"Home":                  "home",
		"  About Us!  ":         "about-us",
		"Spring -- Sale 2026":   "spring-sale-2026",
		"Café au lait":          "caf-au-lait",
		"🚀🚀":                    Fallback,
		"":                      Fallback,
		"Already-kebab-case":    "already-kebab-case",
		"under_score/and.slash": "under-score-and-slash",
	}
	for in, want := range cases {
		if got := Make(in); got != want {
			t.Errorf("Make(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMakeTruncates(t *testing.T) {
	in := strings.Repeat("a", MaxLen-1) + " b"
	got := Make(in)
	if len(got) > MaxLen || strings.HasSuffix(got, "-") {
		t.Fatalf("Make produced %q (%d bytes)", got, len(got))
	}
}
