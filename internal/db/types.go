package db

import (
	"context"
	"database/sql"
)

// Driver identifies which underlying SQLite driver to use for the
// embedded backend.
type Driver string

const (
	// DriverModernc uses modernc.org/sqlite, a pure Go driver with no
	// CGO dependency. This is the default.
	DriverModernc Driver = "modernc"

	// DriverNcruces uses github.com/ncruces/go-sqlite3, which can load
	// the sqlite-vec extension for native vector search. Not yet wired.
	DriverNcruces Driver = "ncruces"

	// DriverMattn uses github.com/mattn/go-sqlite3 (CGO). Not yet wired.
	DriverMattn Driver = "mattn"
)

// Config describes how to open a backing store.
type Config struct {
	// Type selects the dialect: sqlite or postgres.
	Type DatabaseType

	// Driver selects the SQLite driver implementation. Only used when
	// Type is DatabaseSQLite or empty.
	Driver Driver

	// Path is the SQLite database file path, or ":memory:".
	Path string

	// DSN is the connection string for network-backed databases
	// (postgres).
	DSN string

	// EnableWAL turns on SQLite's write-ahead-log journal mode.
	EnableWAL bool

	// MaxOpenConns, MaxIdleConns and ConnMaxLifetime configure the
	// connection pool for network-backed databases. ConnMaxLifetime is
	// expressed in seconds.
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// DefaultConfig returns a Config for a local embedded SQLite database
// at the given path, using the default pure-Go driver.
func DefaultConfig(path string) Config {
	return Config{
		Type:      DatabaseSQLite,
		Driver:    DriverModernc,
		Path:      path,
		EnableWAL: true,
	}
}

// PostgresConfig returns a Config for a PostgreSQL database reached via
// the given DSN, with sensible pool defaults.
func PostgresConfig(dsn string) Config {
	return Config{
		Type:            DatabasePostgres,
		DSN:             dsn,
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 300,
	}
}

// DB abstracts the subset of *sql.DB operations the rest of the engine
// needs, so callers can depend on an interface instead of a concrete
// driver. ModerncDB, SQLWrapper, and the pgx-backed implementation all
// satisfy it.
type DB interface {
	Query(query string, args ...any) (Rows, error)
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	QueryRow(query string, args ...any) Row
	QueryRowContext(ctx context.Context, query string, args ...any) Row
	Exec(query string, args ...any) (Result, error)
	ExecContext(ctx context.Context, query string, args ...any) (Result, error)
	Begin() (Tx, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (Tx, error)
	Close() error
	Ping() error
	PingContext(ctx context.Context) error
}

// ExtendedDB is implemented by backends that can report native vector
// search support.
type ExtendedDB interface {
	DB
	VectorSearchAvailable() bool
}

// Tx abstracts a database transaction.
type Tx interface {
	Query(query string, args ...any) (Rows, error)
	QueryRow(query string, args ...any) Row
	Exec(query string, args ...any) (Result, error)
	Prepare(query string) (Stmt, error)
	Commit() error
	Rollback() error
}

// Stmt abstracts a prepared statement.
type Stmt interface {
	Exec(args ...any) (Result, error)
	Query(args ...any) (Rows, error)
	QueryRow(args ...any) Row
	Close() error
}

// Rows abstracts a result set.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Close() error
	Err() error
	Columns() ([]string, error)
}

// Row abstracts a single-row result.
type Row interface {
	Scan(dest ...any) error
	Err() error
}

// Result abstracts the outcome of an Exec call.
type Result interface {
	LastInsertId() (int64, error)
	RowsAffected() (int64, error)
}
