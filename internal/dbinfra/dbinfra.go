// Package dbinfra opens bun databases for the drivers a query cache
// connection can be configured with.
package dbinfra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/jackc/pgx/v5"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported driver names. They match the database/sql registrations.
const (
	DriverSQLite   = "sqlite"
	DriverSQLite3  = "sqlite3"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

var (
	ErrUnsupportedDriver = errors.New("dbinfra: unsupported driver")
	ErrInvalidConfig     = errors.New("dbinfra: invalid database configuration")
	ErrOpenFailed        = errors.New("dbinfra: failed to open database connection")
)

// Config describes one database connection.
type Config struct {
	Name          string
	Driver        string
	DSN           string
	MaxOpenConns  int
	RetryAttempts int
	RetryInterval time.Duration
}

// Validate checks the connection settings.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Driver, validation.Required, validation.In(DriverSQLite, DriverSQLite3, DriverPostgres, DriverPgx)),
		validation.Field(&c.DSN, validation.Required),
		validation.Field(&c.MaxOpenConns, validation.Min(0)),
		validation.Field(&c.RetryAttempts, validation.Min(0)),
	)
}

// Open connects to the configured database and pings it, retrying with a
// linear backoff.
func Open(ctx context.Context, cfg Config) (*bun.DB, error) {
	if err := cfg.Validate(); err != nil {
		if isUnknownDriver(cfg.Driver) {
			return nil, fmt.Errorf("%w %q", ErrUnsupportedDriver, cfg.Driver)
		}
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	attempts := max(cfg.RetryAttempts, 1)
	var lastErr error
	for i := range attempts {
		db, err := open(cfg)
		if err == nil {
			if err = db.PingContext(ctx); err == nil {
				return db, nil
			}
			_ = db.Close()
		}
		lastErr = err

		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrOpenFailed, ctx.Err())
		case <-time.After(time.Duration(i+1) * cfg.RetryInterval):
		}
	}

	return nil, errors.Join(ErrOpenFailed, fmt.Errorf("connection %q: %w", cfg.Name, lastErr))
}

func open(cfg Config) (*bun.DB, error) {
	var (
		sqldb   *sql.DB
		dialect schema.Dialect
		err     error
	)

	switch cfg.Driver {
	case DriverPgx:
		if _, err := pgx.ParseConfig(cfg.DSN); err != nil {
			return nil, errors.Join(ErrInvalidConfig, err)
		}
		sqldb, err = sql.Open(cfg.Driver, cfg.DSN)
		dialect = pgdialect.New()
	case DriverPostgres:
		sqldb, err = sql.Open(cfg.Driver, cfg.DSN)
		dialect = pgdialect.New()
	default:
		sqldb, err = sql.Open(cfg.Driver, cfg.DSN)
		dialect = sqlitedialect.New()
	}
	if err != nil {
		return nil, err
	}

	switch {
	case isMemoryDSN(cfg):
		// every pooled connection would get its own empty database
		sqldb.SetMaxOpenConns(1)
	case cfg.MaxOpenConns > 0:
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return bun.NewDB(sqldb, dialect), nil
}

func isMemoryDSN(cfg Config) bool {
	if cfg.Driver != DriverSQLite && cfg.Driver != DriverSQLite3 {
		return false
	}
	return strings.Contains(cfg.DSN, ":memory:") || strings.Contains(cfg.DSN, "mode=memory")
}

func isUnknownDriver(driver string) bool {
	switch driver {
	case "", DriverSQLite, DriverSQLite3, DriverPostgres, DriverPgx:
		return false
	}
	return true
}
