package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, so read paths can run
// inside or outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// DB wraps the database connection with metrics
type DB struct {
	*sql.DB
	driver           string
	meter            metric.Meter
	connectionActive metric.Int64Gauge
	connectionIdle   metric.Int64Gauge
	serviceName      string
}

// NewDB opens an instrumented connection pool for the mysql or sqlite driver
func NewDB(driver, dsn string, meter metric.Meter, serviceName string) (*DB, error) {
	if driver != DriverMySQL && driver != DriverSQLite {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	systemAttr := attribute.String("db.system", driver)
	db, err := otelsql.Open(driver, dsn, otelsql.WithAttributes(systemAttr))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// one connection: an in-memory database lives and dies with it
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	connectionActive, err := meter.Int64Gauge(
		"db.client.connections.active",
		metric.WithDescription("Number of active database connections"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection active gauge: %w", err)
	}

	connectionIdle, err := meter.Int64Gauge(
		"db.client.connections.idle",
		metric.WithDescription("Number of idle database connections"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection idle gauge: %w", err)
	}

	if err := otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(
		systemAttr,
		attribute.String("service.name", serviceName),
	)); err != nil {
		log.Printf("Warning: failed to register otelsql stats metrics: %v", err)
	}

	return &DB{
		DB:               db,
		driver:           driver,
		meter:            meter,
		connectionActive: connectionActive,
		connectionIdle:   connectionIdle,
		serviceName:      serviceName,
	}, nil
}

// Driver returns the SQL dialect in use
func (db *DB) Driver() string {
	return db.driver
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.DB.Close()
}

// WithTx runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ForUpdate is the row-lock suffix for SELECTs inside a transaction.
// SQLite locks the whole database per write transaction and has no such clause.
func (db *DB) ForUpdate() string {
	if db.driver == DriverMySQL {
		return " FOR UPDATE"
	}
	return ""
}

// InsertIgnore is the INSERT verb that skips rows violating a unique key
func (db *DB) InsertIgnore() string {
	if db.driver == DriverMySQL {
		return "INSERT IGNORE"
	}
	return "INSERT OR IGNORE"
}

// RecordConnectionStats publishes the pool gauges
func (db *DB) RecordConnectionStats(ctx context.Context) {
	stats := db.Stats()
	attrs := metric.WithAttributes(
		attribute.String("db.system", db.driver),
		attribute.String("service.name", db.serviceName),
	)
	db.connectionActive.Record(ctx, int64(stats.InUse), attrs)
	db.connectionIdle.Record(ctx, int64(stats.Idle), attrs)
}

// IsDuplicate reports whether err is a unique or primary key violation
func IsDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
