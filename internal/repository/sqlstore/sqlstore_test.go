package sqlstore

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blog/internal/model"
)

// TESTING WITH A TEMPORARY SQLITE FILE:
// Each test gets its own database inside t.TempDir(), which the test
// framework deletes afterwards. A file (rather than ":memory:") exercises the
// same WAL/foreign-key setup the server uses.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), "sqlite:///"+filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to create test db")
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, email, name string) *model.User {
	t.Helper()
	u := &model.User{Email: email, PasswordHash: "hash", Name: name}
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u
}

func createTestPost(t *testing.T, db *DB, authorID int64, title string) *model.BlogPost {
	t.Helper()
	p := &model.BlogPost{
		Title:    title,
		Subtitle: "sub " + title,
		Date:     "2024-05-01",
		Body:     "<p>body of " + title + "</p>",
		ImgURL:   "https://example.com/" + title + ".png",
		AuthorID: authorID,
	}
	require.NoError(t, db.CreatePost(context.Background(), p))
	return p
}

func createTestComment(t *testing.T, db *DB, authorID, postID int64, text string) *model.Comment {
	t.Helper()
	c := &model.Comment{Text: text, AuthorID: authorID, PostID: postID}
	require.NoError(t, db.CreateComment(context.Background(), c))
	return c
}

func countRows(t *testing.T, db *DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.conn.QueryRow(`SELECT COUNT(*) FROM `+table).Scan(&n))
	return n
}

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri        string
		wantDriver string
		wantDSN    string
		wantDial   dialect
	}{
		{"sqlite:///posts.db", "sqlite", "posts.db", dialectSQLite},
		{"sqlite:///data/posts.db", "sqlite", "data/posts.db", dialectSQLite},
		{"sqlite://", "sqlite", ":memory:", dialectSQLite},
		{"blog.db", "sqlite", "blog.db", dialectSQLite},
		{"postgres://u:p@localhost/blog", "pgx", "postgres://u:p@localhost/blog", dialectPostgres},
		{"postgresql://u@db/blog?sslmode=require", "pgx", "postgresql://u@db/blog?sslmode=require", dialectPostgres},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			driver, dsn, d := parseURI(tt.uri)
			assert.Equal(t, tt.wantDriver, driver)
			assert.Equal(t, tt.wantDSN, dsn)
			assert.Equal(t, tt.wantDial, d)
		})
	}
}

func TestRebind(t *testing.T) {
	pg := &DB{dialect: dialectPostgres}
	lite := &DB{dialect: dialectSQLite}
	q := `UPDATE t SET a = ?, b = ? WHERE id = ?`

	assert.Equal(t, `UPDATE t SET a = $1, b = $2 WHERE id = $3`, pg.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := "sqlite:///" + filepath.Join(t.TempDir(), "again.db")

	db, err := Open(context.Background(), path)
	require.NoError(t, err)
	createTestUser(t, db, "a@x.com", "A")
	require.NoError(t, db.Close())

	db, err = Open(context.Background(), path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.GetUserByEmail(context.Background(), "a@x.com")
	assert.NoError(t, err, "data survives reopening")
	assert.Equal(t, "sqlite", db.Dialect())
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.Ping(context.Background()))
}

func TestOpen_PragmasApplyToEveryConnection(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	db.conn.SetMaxOpenConns(2)

	first, err := db.conn.Conn(ctx)
	require.NoError(t, err)
	defer first.Close()
	second, err := db.conn.Conn(ctx)
	require.NoError(t, err)
	defer second.Close()

	for i, c := range []*sql.Conn{first, second} {
		var fk, busy int
		var mode string
		require.NoError(t, c.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
		require.NoError(t, c.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&busy))
		require.NoError(t, c.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
		assert.Equal(t, 1, fk, "connection %d", i)
		assert.Equal(t, 5000, busy, "connection %d", i)
		assert.Equal(t, "wal", mode, "connection %d", i)
	}

	_, err = second.ExecContext(ctx, `INSERT INTO comments (text, author_id, post_id) VALUES ('x', 1, 42)`)
	assert.Error(t, err, "foreign keys are enforced on a fresh connection")
}

func TestWithPragmas(t *testing.T) {
	assert.Equal(t,
		"posts.db?_pragma=foreign_keys%281%29&_pragma=busy_timeout%285000%29&_pragma=journal_mode%28WAL%29",
		withPragmas("posts.db"))
	assert.Contains(t, withPragmas("posts.db?cache=shared"), "posts.db?cache=shared&_pragma=")
}
