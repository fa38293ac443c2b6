// internal/acl/permissions.go
//
// Permission scopes for API keys.
//
// Context
// -------
// Every API key carries a flat list of scope strings shaped
// `<resource>:<action>`, for example `pages:read` or `blog:write`.  The
// gateway asks exactly one question of that list: is the required scope
// present?  Order and duplicates are irrelevant, so the list is folded into
// a set once per request.
//
// Notes
// -----
// • Matching is exact after trimming surrounding whitespace.
// • An empty required string is never granted.
// • Oxford commas, two spaces after periods.
package acl

import (
	"sort"
	"strings"
)

// Conventional verbs used by the route table.
const (
	VerbRead  = "read"
	VerbWrite = "write"
)

// Permissions is an unordered set of scope strings.
type Permissions map[string]struct{}

// New folds scopes into a set.  Blank entries are dropped.
func New(scopes ...string) Permissions {
	p := make(Permissions, len(scopes))
	for _, s := range scopes {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		p[s] = struct{}{}
	}
	return p
}

// Has reports whether required is in the set.
func (p Permissions) Has(required string) bool {
	if required == "" {
		return false
	}
	_, ok := p[required]
	return ok
}

// List returns the scopes sorted, for storage and display.
func (p Permissions) List() []string {
	out := make([]string, 0, len(p))
	for s := range p {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Required builds the scope string for resource + verb.
func Required(resource, verb string) string {
	return resource + ":" + verb
}

// Valid reports whether s has the `<resource>:<action>` shape with both
// halves non-empty.
func Valid(s string) bool {
	res, act, ok := strings.Cut(s, ":")
	return ok && res != "" && act != "" && !strings.ContainsAny(s, " \t")
}
