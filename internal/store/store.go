// internal/store/store.go
//
// Tenant-scoped record store contract.
//
// Context
// -------
// Content records (pages, products, blog posts, forms, and form submissions)
// are schemaless JSON objects grouped by entity name.  The gateway never
// talks to a database directly; it asks a Store to filter, create, or
// update records.  Two implementations ship with the repo:
//
//   • MemoryStore – maps guarded by a RWMutex, used for dev and tests.
//   • SQLStore    – one MySQL table with a JSON column, queries built with
//                   Masterminds/squirrel.
//
// Store-managed fields
// --------------------
//   id            uuid v4, assigned on Create
//   created_date  RFC 3339 (nanosecond, UTC), assigned on Create
//   updated_date  RFC 3339 (nanosecond, UTC), refreshed on every write
//
// `id`, `tenant_id`, and `created_date` are immutable after Create.  Update
// takes the tenant explicitly and never touches a record owned by another
// tenant; such a record looks exactly like a missing one.
//
// Notes
// -----
// • Values are normalised through encoding/json before storage, so numbers
//   come back as float64 and timestamps as strings in both implementations.
// • Fields in timeFields are rewritten to fixed-width UTC on write, so their
//   text order is their chronological order in every backend.
// • Filter and sort field names must match fieldPattern in every backend.
// • Oxford commas, two spaces after periods.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Entity names understood by the gateway.
const (
	EntityPage       = "Page"
	EntityProduct    = "Product"
	EntityBlogPost   = "BlogPost"
	EntityForm       = "Form"
	EntitySubmission = "FormSubmission"
)

// Store-managed field names.
const (
	FieldID      = "id"
	FieldTenant  = "tenant_id"
	FieldCreated = "created_date"
	FieldUpdated = "updated_date"
)

// ErrNotFound is returned by Update when no record matches id within the
// tenant.
var ErrNotFound = errors.New("record not found")

// ErrBadField is returned for filter or sort keys outside fieldPattern.
var ErrBadField = errors.New("store: invalid field name")

// fieldPattern restricts field names that end up inside SQL text.
var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// timeFields hold client-supplied instants that lists sort on.
var timeFields = []string{"published_date"}

// timeLayout is fixed-width UTC with nanoseconds.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Record is one stored object.
type Record map[string]any

// Filter is a conjunction of field equality predicates.
type Filter map[string]any

// Store is the collaborator consumed by the gateway handlers.
type Store interface {
	// Filter returns records of entity whose fields equal every value in f.
	// sort names one field, prefixed with "-" for descending order; empty
	// keeps insertion order.  limit <= 0 means no limit.
	Filter(ctx context.Context, entity string, f Filter, sort string, limit int) ([]Record, error)

	// Create persists rec and returns the stored copy including
	// store-managed fields.
	Create(ctx context.Context, entity string, rec Record) (Record, error)

	// Update shallow-merges patch into the record identified by id within
	// tenantID.  It returns ErrNotFound when the record is missing or owned
	// by another tenant.
	Update(ctx context.Context, entity, tenantID, id string, patch Record) (Record, error)
}

// immutable lists the fields Update never overwrites.
var immutable = map[string]struct{}{
	FieldID:      {},
	FieldTenant:  {},
	FieldCreated: {},
	FieldUpdated: {},
}

// Timestamp renders t the way every store writes it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// normalize deep-copies v through encoding/json and canonicalises
// timeFields.
func normalize(v map[string]any) (Record, error) {
	if v == nil {
		return Record{}, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("store: encode record: %w", err)
	}
	out := Record{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("store: decode record: %w", err)
	}
	for _, f := range timeFields {
		if s, ok := out[f].(string); ok {
			out[f] = canonicalTime(s)
		}
	}
	return out, nil
}

// canonicalTime rewrites an RFC 3339 instant as UTC in timeLayout.  Other
// strings, date-only values included, are returned unchanged.
func canonicalTime(s string) string {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return t.UTC().Format(timeLayout)
}

// checkFields rejects filter keys and a sort field outside fieldPattern.
func checkFields(f Filter, sortBy string) error {
	for k := range f {
		if !fieldPattern.MatchString(k) {
			return fmt.Errorf("%w: %q", ErrBadField, k)
		}
	}
	if sortBy != "" && !fieldPattern.MatchString(strings.TrimPrefix(sortBy, "-")) {
		return fmt.Errorf("%w: %q", ErrBadField, sortBy)
	}
	return nil
}

// merge applies patch to base, skipping immutable fields.
func merge(base, patch Record, now time.Time) Record {
	for k, v := range patch {
		if _, ok := immutable[k]; ok {
			continue
		}
		base[k] = v
	}
	base[FieldUpdated] = Timestamp(now)
	return base
}

// stringField returns rec[k] when it is a string.
func stringField(rec Record, k string) string {
	s, _ := rec[k].(string)
	return s
}
