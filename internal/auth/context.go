// internal/auth/context.go
//
// Authenticated caller carried through the request context.
//
// Usage
// -----
//     // After Authenticate succeeds.
//     ctx = auth.WithCaller(ctx, caller)
//
//     // Downstream code retrieves it.
//     c, ok := auth.CallerFrom(ctx)
//
// Notes
// -----
// • A Caller always names exactly one tenant.  Handlers scope every query to
//   Caller.TenantID and never to a tenant taken from request data.
// • Oxford commas, two spaces after periods.

package auth

import (
	"context"

	"github.com/yanizio/adept-gateway/internal/acl"
)

// Caller is the validated principal for one request.
type Caller struct {
	KeyID       string
	TenantID    string
	Permissions acl.Permissions
	// Anonymous is true for tenant-only callers admitted by the public form
	// submission route.  They hold no permissions.
	Anonymous bool
}

// HasPermission reports whether the caller holds required.
func (c *Caller) HasPermission(required string) bool {
	if c == nil {
		return false
	}
	return c.Permissions.Has(required)
}

// callerKey is unexported to avoid context-key collisions.
type callerKey struct{}

// WithCaller returns a new context carrying c.
func WithCaller(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom extracts the caller from ctx.  It returns (nil, false) if none
// is set.
func CallerFrom(ctx context.Context) (*Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(*Caller)
	return c, ok && c != nil
}
