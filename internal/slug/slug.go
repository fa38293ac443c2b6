// internal/slug/slug.go
//
// URL slug helper.
//
// Make(title) converts arbitrary text into a URL-safe slug restricted to
// ASCII a-z, 0-9, and "-".  The gateway calls it when a create request
// carries a title or name but no slug.
//
// Rules
// -----
// 1. Lower-case everything.
// 2. Convert any run of non-[a-z0-9] characters to one "-".  That strips
//    spaces, punctuation, emoji, and non-ASCII.
// 3. Trim leading / trailing "-".
// 4. Cap at MaxLen bytes, trimming a dash left at the cut.
// 5. If the result is empty, return Fallback.
package slug

import "strings"

const (
	MaxLen   = 100
	Fallback = "item"
)

// Make converts title → lower-kebab ASCII.
func Make(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	lastWasDash := false
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastWasDash = false
		case !lastWasDash:
			b.WriteRune('-')
			lastWasDash = true
		}
	}

	s := strings.Trim(b.String(), "-")
	if len(s) > MaxLen {
		s = strings.TrimRight(s[:MaxLen], "-")
	}
	if s == "" {
		return Fallback
	}
	return s
}
