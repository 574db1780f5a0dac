package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/iliyamo/event-booking/internal/config"
)

// Dialect names the SQL flavour behind a DB handle.  Repositories use it to
// pick row-locking syntax; error classification works for both.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

// DB wraps *sql.DB together with its dialect.
type DB struct {
	*sql.DB
	Dialect Dialect
}

// LockClause returns the suffix that turns a SELECT into a pessimistic row
// lock.  SQLite has no row locks; writers are serialised by the
// BEGIN IMMEDIATE transaction the driver opens instead.
func (d *DB) LockClause() string {
	if d.Dialect == MySQL {
		return " FOR UPDATE"
	}
	return ""
}

// Open connects to the configured store and verifies the connection.
func Open(cfg config.Database) (*DB, error) {
	switch cfg.Driver {
	case string(SQLite):
		return OpenSQLite(cfg.SQLitePath)
	case string(MySQL), "":
		return OpenMySQL(cfg.User, cfg.Pass, cfg.Host, cfg.Port, cfg.Name)
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
}

// OpenMySQL connects to MySQL and verifies the connection.
func OpenMySQL(user, pass, host, port, name string) (*DB, error) {
	auth := user
	if pass != "" {
		auth = fmt.Sprintf("%s:%s", user, pass)
	}
	// parseTime=true -> DATETIME -> time.Time | loc=UTC keeps times consistent
	dsn := fmt.Sprintf("%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
		auth, host, port, name)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, err
	}

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{DB: db, Dialect: MySQL}, nil
}

// OpenSQLite opens a SQLite database at path (":memory:" works).  The pool
// is pinned to one connection: SQLite allows a single writer anyway and an
// in-memory database only lives as long as its connection.  Reads therefore
// queue behind an open write transaction; use MySQL where that matters.
func OpenSQLite(path string) (*DB, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_txlock=immediate&_time_format=sqlite"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{DB: db, Dialect: SQLite}, nil
}

// ping with timeout
func ping(db *sql.DB) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}
