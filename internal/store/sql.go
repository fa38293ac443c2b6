// internal/store/sql.go
//
// MySQL-backed record store.
//
// Context
// -------
// All entities share one table.  The full record lives in the `data` JSON
// column; `id`, `entity`, `tenant_id`, and the two timestamps are copied into
// real columns so the hot predicates (entity + tenant) hit an index.
//
// Predicates on any other field compare JSON values:
//
//	JSON_EXTRACT(data, '$.status') = CAST('"published"' AS JSON)
//
// Field names are interpolated into JSON paths and ORDER BY clauses, so they
// must match fieldPattern.  Values always travel as bound parameters.
//
// Notes
// -----
// • Update runs SELECT … FOR UPDATE and UPDATE inside one transaction so the
//   merge never loses a concurrent write to the same record.
// • Statements are built with Masterminds/squirrel using `?` placeholders.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Schema creates the entity_record table.  adeptctl migrate runs it.
const Schema = `CREATE TABLE IF NOT EXISTS entity_record (
    id            CHAR(36)     PRIMARY KEY,
    entity        VARCHAR(64)  NOT NULL,
    tenant_id     VARCHAR(128) NOT NULL,
    data          JSON         NOT NULL,
    created_date  DATETIME(6)  NOT NULL,
    updated_date  DATETIME(6)  NOT NULL,
    KEY ix_entity_record_scope (entity, tenant_id, created_date)
)`

const table = "entity_record"

// columnFields are matched against real columns instead of the JSON body.
var columnFields = map[string]struct{}{
	FieldID:     {},
	FieldTenant: {},
}

// SQLStore implements Store over *sqlx.DB.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore wraps db.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

func (s *SQLStore) Filter(ctx context.Context, entity string, f Filter, sortBy string, limit int) ([]Record, error) {
	if err := checkFields(f, sortBy); err != nil {
		return nil, err
	}
	want, err := normalize(f)
	if err != nil {
		return nil, err
	}

	q := sq.Select("data").From(table).Where(sq.Eq{"entity": entity})

	keys := make([]string, 0, len(want))
	for k := range want {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, ok := columnFields[k]; ok {
			q = q.Where(sq.Eq{k: want[k]})
			continue
		}
		v, err := json.Marshal(want[k])
		if err != nil {
			return nil, fmt.Errorf("store: encode filter %s: %w", k, err)
		}
		q = q.Where("JSON_EXTRACT(data, ?) = CAST(? AS JSON)", "$."+k, string(v))
	}

	if sortBy != "" {
		order, err := orderClause(sortBy)
		if err != nil {
			return nil, err
		}
		q = q.OrderBy(order)
	}
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build filter: %w", err)
	}

	var docs []string
	if err := s.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, fmt.Errorf("store: filter %s: %w", entity, err)
	}

	out := make([]Record, 0, len(docs))
	for _, d := range docs {
		rec := Record{}
		if err := json.Unmarshal([]byte(d), &rec); err != nil {
			return nil, fmt.Errorf("store: decode %s row: %w", entity, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// orderClause renders "field" or "-field" as an ORDER BY expression.  JSON
// fields compare as text; timeFields are stored fixed-width UTC for this.
func orderClause(sortBy string) (string, error) {
	dir := "ASC"
	if strings.HasPrefix(sortBy, "-") {
		dir = "DESC"
		sortBy = sortBy[1:]
	}
	if !fieldPattern.MatchString(sortBy) {
		return "", fmt.Errorf("%w: %q", ErrBadField, sortBy)
	}
	switch sortBy {
	case FieldCreated, FieldUpdated, FieldID, FieldTenant:
		return sortBy + " " + dir, nil
	}
	return fmt.Sprintf("JSON_UNQUOTE(JSON_EXTRACT(data, '$.%s')) %s", sortBy, dir), nil
}

func (s *SQLStore) Create(ctx context.Context, entity string, rec Record) (Record, error) {
	stored, err := normalize(rec)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	id := uuid.NewString()
	stored[FieldID] = id
	stored[FieldCreated] = Timestamp(now)
	stored[FieldUpdated] = Timestamp(now)

	doc, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("store: encode %s: %w", entity, err)
	}

	query, args, err := sq.Insert(table).
		Columns("id", "entity", "tenant_id", "data", "created_date", "updated_date").
		Values(id, entity, stringField(stored, FieldTenant), string(doc), now, now).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build insert: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("store: insert %s: %w", entity, err)
	}
	return stored, nil
}

func (s *SQLStore) Update(ctx context.Context, entity, tenantID, id string, patch Record) (rec Record, err error) {
	p, err := normalize(patch)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("store: begin update: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	sel, args, err := sq.Select("data").From(table).
		Where(sq.Eq{"entity": entity}).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"tenant_id": tenantID}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build select: %w", err)
	}

	var doc string
	if err = tx.GetContext(ctx, &doc, sel, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
			return nil, err
		}
		return nil, fmt.Errorf("store: load %s: %w", entity, err)
	}

	current := Record{}
	if err = json.Unmarshal([]byte(doc), &current); err != nil {
		return nil, fmt.Errorf("store: decode %s row: %w", entity, err)
	}
	now := s.now().UTC()
	current = merge(current, p, now)

	out, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("store: encode %s: %w", entity, err)
	}

	upd, args, err := sq.Update(table).
		Set("data", string(out)).
		Set("updated_date", now).
		Where(sq.Eq{"entity": entity}).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("store: build update: %w", err)
	}
	if _, err = tx.ExecContext(ctx, upd, args...); err != nil {
		return nil, fmt.Errorf("store: update %s: %w", entity, err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("store: commit update: %w", err)
	}
	return current, nil
}
