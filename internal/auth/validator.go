// internal/auth/validator.go
//
// API key + tenant credential validation.
//
// Context
// -------
// Every gateway request presents two headers: `X-API-Key` and
// `X-Tenant-ID`.  Authenticate turns that pair into a *Caller or one of three
// sentinel errors:
//
//   • ErrMissingCredentials – either header absent.
//   • ErrInvalidKey         – no active key with that hash in that tenant.
//   • ErrExpired            – key found but its expiry has passed.
//
// The store lookup filters on tenant, so a key issued to tenant A never
// validates when presented with tenant B's identifier.
//
// Bookkeeping
// -----------
// On success the key's last-used timestamp is written before returning.
// The write is advisory: concurrent requests race on it (last write wins),
// and a failed write is logged and counted but does not fail the request.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/yanizio/adept-gateway/internal/acl"
	"github.com/yanizio/adept-gateway/internal/apikey"
	"github.com/yanizio/adept-gateway/internal/logger"
	"github.com/yanizio/adept-gateway/internal/metrics"
)

// Credential headers.
const (
	HeaderAPIKey   = "X-API-Key"
	HeaderTenantID = "X-Tenant-ID"
)

var (
	ErrMissingCredentials = errors.New("missing API key or tenant ID")
	ErrInvalidKey         = errors.New("invalid API key")
	ErrExpired            = errors.New("API key expired")
)

// Credentials reads the two credential headers, trimmed.
func Credentials(r *http.Request) (key, tenantID string) {
	return strings.TrimSpace(r.Header.Get(HeaderAPIKey)),
		strings.TrimSpace(r.Header.Get(HeaderTenantID))
}

// Validator authenticates callers against an apikey.Store.
type Validator struct {
	keys apikey.Store
	now  func() time.Time
}

// NewValidator returns a Validator backed by keys.
func NewValidator(keys apikey.Store) *Validator {
	return &Validator{keys: keys, now: time.Now}
}

// Authenticate validates rawKey within tenantID.  Errors other than the
// three sentinels come from the store and should be treated as internal.
func (v *Validator) Authenticate(ctx context.Context, rawKey, tenantID string) (*Caller, error) {
	if rawKey == "" || tenantID == "" {
		metrics.AuthFailuresTotal.WithLabelValues("missing").Inc()
		return nil, ErrMissingCredentials
	}

	rec, err := v.keys.Lookup(ctx, apikey.Hash(rawKey), tenantID)
	if errors.Is(err, apikey.ErrNotFound) {
		metrics.AuthFailuresTotal.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	now := v.now()
	if rec.Expired(now) {
		metrics.AuthFailuresTotal.WithLabelValues("expired").Inc()
		return nil, ErrExpired
	}

	if err := v.keys.Touch(ctx, rec.ID, now); err != nil {
		metrics.KeyTouchErrorsTotal.Inc()
		logger.FromContext(ctx).Warnw("api key last-used write failed",
			"key_id", rec.ID, "tenant", rec.TenantID, "err", err)
	}

	return &Caller{
		KeyID:       rec.ID,
		TenantID:    rec.TenantID,
		Permissions: acl.New(rec.Permissions...),
	}, nil
}

// Anonymous returns the tenant-only caller used by the public submission
// route.  It carries no permissions.
func Anonymous(tenantID string) (*Caller, error) {
	if tenantID == "" {
		metrics.AuthFailuresTotal.WithLabelValues("missing").Inc()
		return nil, ErrMissingCredentials
	}
	return &Caller{TenantID: tenantID, Permissions: acl.New(), Anonymous: true}, nil
}
