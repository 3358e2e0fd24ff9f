// Package historydb maintains a relational index of validated pricing
// records for range queries, analytics exports and external tooling. The
// authoritative copy lives in the record store; rows here are derived and
// rebuildable.
package historydb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // SQLite driver
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const pingTimeout = 5 * time.Second

// Config holds connection settings for the history database.
type Config struct {
	// Driver selects "sqlite" or "postgres".
	Driver string

	// DSN is the driver-specific data source name.
	DSN string

	// MaxOpenConns bounds the connection pool. 0 keeps the driver
	// default.
	MaxOpenConns int

	// MaxIdleConns bounds idle pooled connections.
	MaxIdleConns int

	// ConnMaxLifetime recycles connections older than this.
	ConnMaxLifetime time.Duration
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDriver, c.Driver)
	}
	if c.DSN == "" {
		return ErrMissingDSN
	}
	return nil
}

// DB is a history database handle. Safe for concurrent use.
type DB struct {
	db     *sql.DB
	driver string
	log    zerolog.Logger
}

// Open connects to the configured database, verifies the connection and
// creates missing tables.
func Open(ctx context.Context, cfg Config, log zerolog.Logger) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, newQueryError("open", "failed to open database", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, newQueryError("open", "failed to ping database", err)
	}

	d := &DB{db: sqlDB, driver: cfg.Driver, log: log}
	if err := d.initSchema(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}

	d.log.Debug().Str("driver", cfg.Driver).Msg("history database opened")
	return d, nil
}

// Close closes the underlying connection pool.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	if err != nil {
		return newQueryError("close", "failed to close database", err)
	}
	return nil
}

// Ping verifies the connection is alive.
func (d *DB) Ping(ctx context.Context) error {
	if d.db == nil {
		return ErrDatabaseClosed
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := d.db.PingContext(pingCtx); err != nil {
		return newQueryError("ping", "database ping failed", err)
	}
	return nil
}

// Driver returns the configured driver name.
func (d *DB) Driver() string {
	return d.driver
}

// initSchema creates the history tables. uint64 rate fields are stored as
// decimal text so the full range survives both drivers.
func (d *DB) initSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS pricing_records (
			height BIGINT PRIMARY KEY,
			version BIGINT NOT NULL,
			spot TEXT NOT NULL,
			moving_average TEXT NOT NULL,
			quote_time BIGINT NOT NULL,
			signature TEXT NOT NULL,
			coin_burnt TEXT NOT NULL,
			coin_minted TEXT NOT NULL,
			asset_burnt TEXT NOT NULL,
			asset_minted TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS pricing_assets (
			height BIGINT NOT NULL,
			asset_id BIGINT NOT NULL,
			spot TEXT NOT NULL,
			moving_average TEXT NOT NULL,
			PRIMARY KEY (height, asset_id)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_pricing_records_quote_time ON pricing_records(quote_time)`,
		`CREATE INDEX IF NOT EXISTS idx_pricing_assets_height ON pricing_assets(height)`,
	}

	for _, query := range queries {
		if _, err := d.db.ExecContext(ctx, query); err != nil {
			return newQueryError("init_schema", "failed to execute schema query", err)
		}
	}
	return nil
}

// rebind converts ? placeholders into the $N form postgres expects.
// Queries in this package are written with ?, the form sqlite uses
// natively.
func (d *DB) rebind(query string) string {
	if d.driver != DriverPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
