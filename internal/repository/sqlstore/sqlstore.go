// Package sqlstore implements the repository interfaces on top of database/sql.
//
// TWO BACKENDS, ONE CODE PATH:
// The blog normally runs on an embedded SQLite file (modernc.org/sqlite, pure
// Go, no CGo). When DB_URI points at Postgres (postgres://...), the same
// queries run through pgx's database/sql driver instead. Queries are written
// once with `?` placeholders; rebind rewrites them to `$1, $2, ...` for
// Postgres with sqlx.Rebind. Both engines support `INSERT ... RETURNING id`,
// so ID retrieval is identical.
//
// TRANSACTIONS:
// Every mutating method runs inside withTx. A multi-step operation (delete
// comments then post, check post then insert comment) therefore commits or
// rolls back as a unit.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/blog/internal/repository"
)

var _ repository.Store = (*DB)(nil)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func (d dialect) String() string {
	if d == dialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// DB wraps a sql.DB connection pool and provides repository methods.
type DB struct {
	conn    *sql.DB
	dialect dialect
}

// Open connects to the database named by uri and creates missing tables.
//
// uri examples:
//   - "sqlite:///data/posts.db"          → SQLite file data/posts.db (SQLAlchemy style)
//   - "data/posts.db" or ":memory:"      → SQLite
//   - "postgres://user:pw@host/blog"     → Postgres via pgx
func Open(ctx context.Context, uri string) (*DB, error) {
	driver, dsn, d := parseURI(uri)

	if d == dialectSQLite && dsn != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dsn), 0755); err != nil {
			return nil, fmt.Errorf("sqlstore: creating database directory: %w", err)
		}
	}

	if d == dialectSQLite {
		dsn = withPragmas(dsn)
	}

	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: opening %s database: %w", d, err)
	}

	if d == dialectSQLite {
		// SQLite allows a single writer.
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: pinging %s database: %w", d, err)
	}

	db := &DB{conn: conn, dialect: d}

	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: running migrations: %w", err)
	}

	return db, nil
}

// parseURI maps a DB_URI value to a driver name, DSN and dialect.
func parseURI(uri string) (driver, dsn string, d dialect) {
	switch {
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return "pgx", uri, dialectPostgres
	case uri == "sqlite://", uri == "sqlite:///:memory:":
		return "sqlite", ":memory:", dialectSQLite
	case strings.HasPrefix(uri, "sqlite:///"):
		return "sqlite", strings.TrimPrefix(uri, "sqlite:///"), dialectSQLite
	default:
		return "sqlite", uri, dialectSQLite
	}
}

// sqlitePragmas run on every new connection the driver opens, so a
// connection recycled by database/sql keeps foreign keys enforced.
var sqlitePragmas = []string{"foreign_keys(1)", "busy_timeout(5000)", "journal_mode(WAL)"}

// withPragmas appends sqlitePragmas to a modernc DSN as _pragma parameters.
func withPragmas(dsn string) string {
	q := url.Values{}
	for _, p := range sqlitePragmas {
		q.Add("_pragma", p)
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + q.Encode()
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database is reachable. Used by /healthz.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Dialect returns "sqlite" or "postgres".
func (db *DB) Dialect() string {
	return db.dialect.String()
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id       INTEGER PRIMARY KEY AUTOINCREMENT,
		email    VARCHAR(250) NOT NULL UNIQUE,
		password VARCHAR(250) NOT NULL,
		name     VARCHAR(250) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS blog_posts (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		title     VARCHAR(250) NOT NULL UNIQUE,
		subtitle  VARCHAR(250) NOT NULL,
		date      VARCHAR(250) NOT NULL,
		body      TEXT NOT NULL,
		img_url   VARCHAR(250) NOT NULL,
		author_id INTEGER REFERENCES users(id)
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		text      TEXT NOT NULL,
		author_id INTEGER REFERENCES users(id),
		post_id   INTEGER REFERENCES blog_posts(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id       SERIAL PRIMARY KEY,
		email    VARCHAR(250) NOT NULL UNIQUE,
		password VARCHAR(250) NOT NULL,
		name     VARCHAR(250) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS blog_posts (
		id        SERIAL PRIMARY KEY,
		title     VARCHAR(250) NOT NULL UNIQUE,
		subtitle  VARCHAR(250) NOT NULL,
		date      VARCHAR(250) NOT NULL,
		body      TEXT NOT NULL,
		img_url   VARCHAR(250) NOT NULL,
		author_id INTEGER REFERENCES users(id)
	)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id        SERIAL PRIMARY KEY,
		text      TEXT NOT NULL,
		author_id INTEGER REFERENCES users(id),
		post_id   INTEGER REFERENCES blog_posts(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id)`,
}

// migrate creates the three tables if they do not exist yet.
//
// The column layout matches what the blog has always used (users, blog_posts,
// comments), so an existing posts.db is picked up as-is. author_id and post_id
// stay nullable for the same reason; the application always sets them.
func (db *DB) migrate(ctx context.Context) error {
	schema := sqliteSchema
	if db.dialect == dialectPostgres {
		schema = postgresSchema
	}
	for _, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing %q: %w", firstLine(stmt), err)
		}
	}
	return nil
}

// withTx runs fn inside a transaction. Any error from fn rolls back.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("sqlstore: rolling back: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: committing transaction: %w", err)
	}
	return nil
}

// rebind rewrites `?` placeholders to `$n` for Postgres.
func (db *DB) rebind(query string) string {
	if db.dialect != dialectPostgres {
		return query
	}
	return sqlx.Rebind(sqlx.DOLLAR, query)
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure on
// either backend.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
