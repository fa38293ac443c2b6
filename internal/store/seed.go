// internal/store/seed.go
//
// YAML fixtures for the memory driver.
//
// File shape
// ----------
//
//	keys:
//	  - key: dev-t1-editor          # raw key, hashed on load
//	    tenant: t1
//	    name: local editor
//	    permissions: [pages:read, pages:write]
//	    ttl: 720h                   # optional, Go duration
//	records:
//	  Page:
//	    - {tenant_id: t1, slug: home, title: Home, status: published}
//
// Notes
// -----
// • Seeds go through the same Create paths as live traffic, so ids and
//   timestamps are store-assigned.
// • Unknown top-level keys are rejected to catch typos early.
package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yanizio/adept-gateway/internal/acl"
	"github.com/yanizio/adept-gateway/internal/apikey"
)

// SeedKey is one API key fixture.
type SeedKey struct {
	Key         string   `yaml:"key"`
	Tenant      string   `yaml:"tenant"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
	TTL         string   `yaml:"ttl"`
}

// Seed is the decoded fixture file.
type Seed struct {
	Keys    []SeedKey                   `yaml:"keys"`
	Records map[string][]map[string]any `yaml:"records"`
}

// LoadSeed reads and decodes path.
func LoadSeed(path string) (*Seed, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var s Seed
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("seed %s: %w", path, err)
	}
	return &s, nil
}

// Apply writes the fixtures into records and keys.  It returns the number of
// keys and records created.
func (s *Seed) Apply(ctx context.Context, records Store, keys apikey.Admin, now time.Time) (int, int, error) {
	for i, k := range s.Keys {
		if k.Key == "" || k.Tenant == "" {
			return 0, 0, fmt.Errorf("seed key #%d: key and tenant are required", i)
		}
		for _, p := range k.Permissions {
			if !acl.Valid(p) {
				return 0, 0, fmt.Errorf("seed key #%d: bad permission %q", i, p)
			}
		}
		var ttl time.Duration
		if k.TTL != "" {
			d, err := time.ParseDuration(k.TTL)
			if err != nil {
				return 0, 0, fmt.Errorf("seed key #%d: ttl: %w", i, err)
			}
			ttl = d
		}
		if err := keys.Create(ctx, apikey.NewRecord(k.Key, k.Tenant, k.Name, k.Permissions, ttl, now)); err != nil {
			return 0, 0, fmt.Errorf("seed key #%d: %w", i, err)
		}
	}

	// Deterministic order keeps created_date stable across restarts.
	entities := make([]string, 0, len(s.Records))
	for e := range s.Records {
		entities = append(entities, e)
	}
	sort.Strings(entities)

	n := 0
	for _, e := range entities {
		for i, rec := range s.Records[e] {
			if _, ok := rec[FieldTenant].(string); !ok {
				return len(s.Keys), n, fmt.Errorf("seed %s #%d: tenant_id is required", e, i)
			}
			if _, err := records.Create(ctx, e, rec); err != nil {
				return len(s.Keys), n, fmt.Errorf("seed %s #%d: %w", e, i, err)
			}
			n++
		}
	}
	return len(s.Keys), n, nil
}
