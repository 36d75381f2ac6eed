// Package sqlstore implements the repository interfaces on top of database/sql,
// using sqlx for scanning and goose for schema migrations.
//
// TWO DRIVERS, ONE SET OF QUERIES:
// Every query is written with "?" placeholders and passed through sqlx's Rebind
// before it runs. On SQLite the query is used as-is; on Postgres (pgx) the
// placeholders become $1, $2, ... The schema differs slightly per dialect
// (AUTOINCREMENT vs IDENTITY, group_concat vs string_agg), so each dialect has
// its own migrations directory.
//
// Supported drivers:
//   - "sqlite" (modernc.org/sqlite, pure Go, the default)
//   - "pgx"    (github.com/jackc/pgx/v5/stdlib)
package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	// Both drivers register themselves with database/sql in init().
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Driver names accepted by Open. They are also the database/sql driver names.
const (
	DriverSQLite = "sqlite"
	DriverPgx    = "pgx"
)

func init() {
	// sqlx only knows "sqlite3" as a question-mark driver out of the box.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// dialect holds everything that changes between SQLite and Postgres.
type dialect struct {
	driver        string
	goose         goose.Dialect
	migrationsDir string

	// syncUserSequence realigns the id generator after rows were inserted
	// with explicit ids. Empty when the database does this on its own.
	syncUserSequence string
}

var dialects = map[string]dialect{
	DriverSQLite: {
		driver:        DriverSQLite,
		goose:         goose.DialectSQLite3,
		migrationsDir: "migrations/sqlite",
	},
	DriverPgx: {
		driver:        DriverPgx,
		goose:         goose.DialectPostgres,
		migrationsDir: "migrations/postgres",
		syncUserSequence: `SELECT setval(pg_get_serial_sequence('users', 'user_id'),
			(SELECT COALESCE(MAX(user_id), 1) FROM users))`,
	},
}

// Config selects the driver and data source for Open.
type Config struct {
	Driver string
	DSN    string
}

// DB wraps an sqlx connection pool and hands out stores bound to it.
type DB struct {
	conn    *sqlx.DB
	dialect dialect
	logger  *slog.Logger
}

// New opens an SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/users.db" → file-based database (persistent)
//   - ":memory:"      → in-memory database (tests, lost on close)
func New(dbPath string) (*DB, error) {
	return Open(context.Background(), Config{Driver: DriverSQLite, DSN: dbPath}, slog.Default())
}

// Open connects to the configured database, verifies the connection and
// applies all pending migrations.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*DB, error) {
	d, ok := dialects[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", cfg.Driver)
	}
	if logger == nil {
		logger = slog.Default()
	}

	dsn := cfg.DSN
	if d.driver == DriverSQLite {
		dsn = sqliteDSN(dsn)
	}

	conn, err := sqlx.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening database: %w", err)
	}

	// An in-memory SQLite database exists per connection. Pin the pool to a
	// single connection so every request sees the same data.
	if d.driver == DriverSQLite && isMemory(cfg.DSN) {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: pinging database: %w", err)
	}

	db := &DB{conn: conn, dialect: d, logger: logger}

	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: running migrations: %w", err)
	}

	return db, nil
}

// sqliteDSN appends the connection pragmas modernc.org/sqlite applies to every
// new connection in the pool. A one-off PRAGMA exec would only configure the
// first connection.
func sqliteDSN(path string) string {
	params := []string{
		"_pragma=foreign_keys(1)",
		"_pragma=busy_timeout(5000)",
		"_txlock=immediate",
	}
	if !isMemory(path) {
		params = append(params, "_pragma=journal_mode(WAL)")
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + strings.Join(params, "&")
}

func isMemory(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// Driver reports the database/sql driver in use.
func (db *DB) Driver() string {
	return db.dialect.driver
}

// Ping checks that the database is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlstore: pinging database: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Hobbies returns a hobby store bound to the connection pool.
func (db *DB) Hobbies() *HobbyStore {
	return NewHobbyStore(db.conn)
}

// Links returns a link store bound to the connection pool.
func (db *DB) Links() *LinkStore {
	return NewLinkStore(db.conn)
}

// Users returns a user store bound to the connection pool. Each statement runs
// on its own; use WithinTx for multi-statement writes.
func (db *DB) Users() *UserStore {
	return newUserStore(db.conn, db.dialect)
}

// Accounts returns an account store bound to the connection pool.
func (db *DB) Accounts() *AccountStore {
	return NewAccountStore(db.conn)
}
