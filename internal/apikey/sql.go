// internal/apikey/sql.go
//
// MySQL-backed key store.
//
// Context
// -------
// Each helper executes exactly one parameterised statement against the
// `api_key` table.  Lookup filters on key hash, tenant, and the active flag
// in SQL, so an inactive or foreign-tenant key is indistinguishable from a
// missing one.
//
// Notes
// -----
// • Column list matches the fields in `Record`; update both together.
// • Errors other than “no rows” are returned wrapped so callers can log them.
package apikey

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Schema creates the api_key table.  adeptctl migrate runs it.
const Schema = `CREATE TABLE IF NOT EXISTS api_key (
    id            CHAR(36)     PRIMARY KEY,
    key_hash      CHAR(64)     NOT NULL,
    key_prefix    VARCHAR(16)  NOT NULL,
    tenant_id     VARCHAR(128) NOT NULL,
    name          VARCHAR(128) NOT NULL DEFAULT '',
    permissions   JSON         NOT NULL,
    active        TINYINT(1)   NOT NULL DEFAULT 1,
    expires_at    DATETIME(6)  NULL,
    last_used_at  DATETIME(6)  NULL,
    created_at    DATETIME(6)  NOT NULL,
    UNIQUE KEY uq_api_key_hash_tenant (key_hash, tenant_id),
    KEY ix_api_key_tenant (tenant_id)
)`

const columns = `id, key_hash, key_prefix, tenant_id, name, permissions,
               active, expires_at, last_used_at, created_at`

const (
	lookupQuery = `SELECT ` + columns + `
          FROM api_key
         WHERE key_hash = ? AND tenant_id = ? AND active = TRUE
         LIMIT 1`

	touchQuery = `UPDATE api_key SET last_used_at = ? WHERE id = ?`

	insertQuery = `INSERT INTO api_key (` + columns + `)
        VALUES (:id, :key_hash, :key_prefix, :tenant_id, :name, :permissions,
                :active, :expires_at, :last_used_at, :created_at)`

	revokeQuery = `UPDATE api_key SET active = FALSE WHERE id = ?`

	listQuery = `SELECT ` + columns + `
          FROM api_key
         WHERE tenant_id = ?
         ORDER BY created_at`
)

// SQLStore implements Admin over *sqlx.DB.
type SQLStore struct {
	db *sqlx.DB
}

var _ Admin = (*SQLStore)(nil)

// NewSQLStore wraps db.
func NewSQLStore(db *sqlx.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Lookup(ctx context.Context, keyHash, tenantID string) (*Record, error) {
	var rec Record
	if err := s.db.GetContext(ctx, &rec, lookupQuery, keyHash, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("api key lookup: %w", err)
	}
	return &rec, nil
}

func (s *SQLStore) Touch(ctx context.Context, id string, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, touchQuery, at.UTC(), id); err != nil {
		return fmt.Errorf("api key touch: %w", err)
	}
	return nil
}

func (s *SQLStore) Create(ctx context.Context, rec *Record) error {
	if _, err := s.db.NamedExecContext(ctx, insertQuery, rec); err != nil {
		return fmt.Errorf("api key insert: %w", err)
	}
	return nil
}

func (s *SQLStore) Revoke(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, revokeQuery, id)
	if err != nil {
		return fmt.Errorf("api key revoke: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("api key revoke: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) ListByTenant(ctx context.Context, tenantID string) ([]Record, error) {
	var out []Record
	if err := s.db.SelectContext(ctx, &out, listQuery, tenantID); err != nil {
		return nil, fmt.Errorf("api key list: %w", err)
	}
	return out, nil
}
