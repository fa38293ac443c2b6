// Package database centralises sqlx connection helpers.  The default driver
// is go-sql-driver/mysql, which also works with MariaDB.
//
// OpenWithOptions pings the database before returning, retrying as
// configured, so callers can fail fast during bootstrap.  Callers should Close() the returned *sqlx.DB when no
// longer needed.
package database

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
)

// DriverName is the database/sql driver used by every store.
const DriverName = "mysql"

// Options tunes one connection pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retries         int           // extra ping attempts after the first
	RetryBackoff    time.Duration // sleep between attempts
}

// OpenWithOptions opens a pool and pings it, retrying opts.Retries times.
func OpenWithOptions(ctx context.Context, dsn string, opts Options) (*sqlx.DB, error) {
	db, err := sqlx.Open(DriverName, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	var lastErr error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if lastErr = db.PingContext(ctx); lastErr == nil {
			return db, nil
		}
		if attempt < opts.Retries {
			select {
			case <-ctx.Done():
				_ = db.Close()
				return nil, ctx.Err()
			case <-time.After(opts.RetryBackoff):
			}
		}
	}
	_ = db.Close()
	return nil, fmt.Errorf("database ping: %w", lastErr)
}
