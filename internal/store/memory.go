package store

import (
	"cmp"
	"context"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps records per entity in insertion order.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]Record // entity → records
	now     func() time.Time
	last    time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]Record), now: time.Now}
}

func (m *MemoryStore) Filter(_ context.Context, entity string, f Filter, sortBy string, limit int) ([]Record, error) {
	if err := checkFields(f, sortBy); err != nil {
		return nil, err
	}
	want, err := normalize(f)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	out := make([]Record, 0, 8)
	for _, rec := range m.records[entity] {
		if matches(rec, want) {
			cp, err := normalize(rec)
			if err != nil {
				m.mu.RUnlock()
				return nil, err
			}
			out = append(out, cp)
		}
	}
	m.mu.RUnlock()

	sortRecords(out, sortBy)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Create(_ context.Context, entity string, rec Record) (Record, error) {
	stored, err := normalize(rec)
	if err != nil {
		return nil, err
	}
	stored[FieldID] = uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	ts := Timestamp(m.tick())
	stored[FieldCreated] = ts
	stored[FieldUpdated] = ts
	m.records[entity] = append(m.records[entity], stored)
	return normalize(stored)
}

func (m *MemoryStore) Update(_ context.Context, entity, tenantID, id string, patch Record) (Record, error) {
	p, err := normalize(patch)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, rec := range m.records[entity] {
		if stringField(rec, FieldID) != id || stringField(rec, FieldTenant) != tenantID {
			continue
		}
		m.records[entity][i] = merge(rec, p, m.tick())
		return normalize(m.records[entity][i])
	}
	return nil, ErrNotFound
}

// tick returns now, nudged forward so successive writes never share a
// timestamp.  Callers hold mu.
func (m *MemoryStore) tick() time.Time {
	t := m.now().UTC()
	if !t.After(m.last) {
		t = m.last.Add(time.Nanosecond)
	}
	m.last = t
	return t
}

// Len reports how many records of entity are stored.
func (m *MemoryStore) Len(entity string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records[entity])
}

/*──────────────────────────── matching ─────────────────────────────────────*/

func matches(rec Record, f Record) bool {
	for k, v := range f {
		got, ok := rec[k]
		if !ok || !reflect.DeepEqual(got, v) {
			return false
		}
	}
	return true
}

/*──────────────────────────── ordering ─────────────────────────────────────*/

// sortRecords orders recs by field, "-field" for descending.  Records
// missing the field sort last in both directions.
func sortRecords(recs []Record, field string) {
	if field == "" {
		return
	}
	desc := strings.HasPrefix(field, "-")
	field = strings.TrimPrefix(field, "-")

	sort.SliceStable(recs, func(i, j int) bool {
		a, aok := recs[i][field]
		b, bok := recs[j][field]
		switch {
		case a == nil || !aok:
			return false
		case b == nil || !bok:
			return true
		}
		c := compare(a, b)
		if desc {
			return c > 0
		}
		return c < 0
	})
}

// compare orders two JSON values.  Values of different kinds order by
// rank; strings that both parse as times compare as instants.
func compare(a, b any) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}
	switch av := a.(type) {
	case float64:
		return cmp.Compare(av, b.(float64))
	case bool:
		bv := b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		}
		return 1
	case string:
		bv := b.(string)
		if ra == rankTime {
			ta, _ := parseTime(av)
			tb, _ := parseTime(bv)
			return ta.Compare(tb)
		}
		return strings.Compare(av, bv)
	}
	return 0
}

// Kind ranks used by compare.
const (
	rankNumber = iota
	rankBool
	rankTime
	rankString
	rankOther
)

func rank(v any) int {
	switch t := v.(type) {
	case float64:
		return rankNumber
	case bool:
		return rankBool
	case string:
		if _, err := parseTime(t); err == nil {
			return rankTime
		}
		return rankString
	}
	return rankOther
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}
