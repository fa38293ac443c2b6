// internal/apikey/record.go
//
// `api_key` table row model and store contracts.
//
// Context
// -------
// An API key binds a caller to exactly one tenant and a set of permission
// scopes.  The raw key is shown once at creation time and never stored; the
// table keeps its SHA-256 hex digest plus a short prefix for operators.
//
// Schema reference
//
//	CREATE TABLE api_key (
//	    id            CHAR(36)     PRIMARY KEY,
//	    key_hash      CHAR(64)     NOT NULL,
//	    key_prefix    VARCHAR(16)  NOT NULL,
//	    tenant_id     VARCHAR(128) NOT NULL,
//	    name          VARCHAR(128) NOT NULL DEFAULT '',
//	    permissions   JSON         NOT NULL,
//	    active        TINYINT(1)   NOT NULL DEFAULT 1,
//	    expires_at    DATETIME(6)  NULL,
//	    last_used_at  DATETIME(6)  NULL,
//	    created_at    DATETIME(6)  NOT NULL,
//	    UNIQUE KEY uq_api_key_hash_tenant (key_hash, tenant_id)
//	);
//
// Notes
// -----
// • The unique key spans (key_hash, tenant_id): one literal key under two
//   tenants is two distinct principals.
// • Nullable timestamps are `*time.Time`; callers must nil-check before use.
package apikey

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no active key matches the lookup.
var ErrNotFound = errors.New("api key not found")

// Record mirrors one row in the `api_key` table.
type Record struct {
	ID          string     `db:"id"           json:"id"`
	KeyHash     string     `db:"key_hash"     json:"-"`
	KeyPrefix   string     `db:"key_prefix"   json:"key_prefix"`
	TenantID    string     `db:"tenant_id"    json:"tenant_id"`
	Name        string     `db:"name"         json:"name"`
	Permissions Scopes     `db:"permissions"  json:"permissions"`
	Active      bool       `db:"active"       json:"active"`
	ExpiresAt   *time.Time `db:"expires_at"   json:"expires_at,omitempty"`
	LastUsedAt  *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
}

// Expired reports whether the key carries an expiry earlier than now.
func (r *Record) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && r.ExpiresAt.Before(now)
}

// Scopes is a permission list persisted as a JSON array.
type Scopes []string

// Value implements driver.Valuer.
func (s Scopes) Value() (driver.Value, error) {
	if s == nil {
		s = Scopes{}
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JSON text or bytes.
func (s *Scopes) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("apikey: cannot scan %T into Scopes", src)
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("apikey: permissions column: %w", err)
	}
	*s = out
	return nil
}

// Store is what the credential validator needs.
type Store interface {
	// Lookup returns the active key matching keyHash within tenantID, or
	// ErrNotFound.
	Lookup(ctx context.Context, keyHash, tenantID string) (*Record, error)
	// Touch records a successful authentication.
	Touch(ctx context.Context, id string, at time.Time) error
}

// Admin adds the out-of-band management operations used by adeptctl.
type Admin interface {
	Store
	Create(ctx context.Context, rec *Record) error
	Revoke(ctx context.Context, id string) error
	ListByTenant(ctx context.Context, tenantID string) ([]Record, error)
}
