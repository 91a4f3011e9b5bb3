package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/model"
)

// postColumns selects a post joined with its author's name. LEFT JOIN keeps
// posts whose author_id is NULL in legacy databases visible.
const postColumns = `p.id, p.title, p.subtitle, p.date, p.body, p.img_url,
	COALESCE(p.author_id, 0), COALESCE(u.name, '')`

func scanPost(row interface{ Scan(...any) error }, p *model.PostView) error {
	return row.Scan(
		&p.ID, &p.Title, &p.Subtitle, &p.Date, &p.Body, &p.ImgURL,
		&p.AuthorID, &p.AuthorName,
	)
}

// CreatePost inserts a post and fills in post.ID.
// A duplicate title is reported as apperror.ErrConflict on the "title" field.
func (db *DB) CreatePost(ctx context.Context, post *model.BlogPost) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			db.rebind(`INSERT INTO blog_posts (title, subtitle, date, body, img_url, author_id)
			 VALUES (?, ?, ?, ?, ?, ?) RETURNING id`),
			post.Title, post.Subtitle, post.Date, post.Body, post.ImgURL, post.AuthorID,
		).Scan(&post.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("title", fmt.Sprintf("a post titled %q already exists", post.Title))
			}
			return fmt.Errorf("sqlstore: inserting post %q: %w", post.Title, err)
		}
		return nil
	})
}

// GetPost retrieves a single post with its author's name.
func (db *DB) GetPost(ctx context.Context, id int64) (*model.PostView, error) {
	var p model.PostView
	row := db.conn.QueryRowContext(ctx,
		db.rebind(`SELECT `+postColumns+`
		 FROM blog_posts p LEFT JOIN users u ON u.id = p.author_id
		 WHERE p.id = ?`), id)
	if err := scanPost(row, &p); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("post", id)
		}
		return nil, fmt.Errorf("sqlstore: getting post %d: %w", id, err)
	}
	return &p, nil
}

// ListPosts returns every post, oldest first.
func (db *DB) ListPosts(ctx context.Context) ([]model.PostView, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+postColumns+`
		 FROM blog_posts p LEFT JOIN users u ON u.id = p.author_id
		 ORDER BY p.id`)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing posts: %w", err)
	}
	defer rows.Close()

	posts := []model.PostView{}
	for rows.Next() {
		var p model.PostView
		if err := scanPost(rows, &p); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning post row: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating posts: %w", err)
	}
	return posts, nil
}

// UpdatePost overwrites title, subtitle, body, image and author of the row
// with post.ID and fills post.Date from the stored row. The date column is
// never written.
func (db *DB) UpdatePost(ctx context.Context, post *model.BlogPost) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			db.rebind(`UPDATE blog_posts
			 SET title = ?, subtitle = ?, body = ?, img_url = ?, author_id = ?
			 WHERE id = ?
			 RETURNING date`),
			post.Title, post.Subtitle, post.Body, post.ImgURL, post.AuthorID, post.ID,
		).Scan(&post.Date)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return apperror.NotFound("post", post.ID)
		case err != nil && isUniqueViolation(err):
			return apperror.Conflict("title", fmt.Sprintf("a post titled %q already exists", post.Title))
		case err != nil:
			return fmt.Errorf("sqlstore: updating post %d: %w", post.ID, err)
		}
		return nil
	})
}

// DeletePost removes a post and its comments in one transaction.
//
// Comments go first so the foreign key from comments.post_id is never left
// dangling. If the post row does not exist the whole transaction is rolled
// back and NotFound is returned, so stray comments are not removed either.
func (db *DB) DeletePost(ctx context.Context, id int64) (int64, error) {
	var removed int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, db.rebind(`DELETE FROM comments WHERE post_id = ?`), id)
		if err != nil {
			return fmt.Errorf("sqlstore: deleting comments of post %d: %w", id, err)
		}
		if removed, err = result.RowsAffected(); err != nil {
			return fmt.Errorf("sqlstore: checking rows affected: %w", err)
		}

		result, err = tx.ExecContext(ctx, db.rebind(`DELETE FROM blog_posts WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("sqlstore: deleting post %d: %w", id, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("sqlstore: checking rows affected: %w", err)
		}
		if n == 0 {
			return apperror.NotFound("post", id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
