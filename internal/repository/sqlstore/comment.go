package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/model"
)

// CreateComment inserts a comment after confirming, in the same transaction,
// that its parent post still exists.
func (db *DB) CreateComment(ctx context.Context, comment *model.Comment) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		var n int
		err := tx.QueryRowContext(ctx,
			db.rebind(`SELECT COUNT(*) FROM blog_posts WHERE id = ?`), comment.PostID,
		).Scan(&n)
		if err != nil {
			return fmt.Errorf("sqlstore: checking post %d: %w", comment.PostID, err)
		}
		if n == 0 {
			return apperror.NotFound("post", comment.PostID)
		}

		err = tx.QueryRowContext(ctx,
			db.rebind(`INSERT INTO comments (text, author_id, post_id) VALUES (?, ?, ?) RETURNING id`),
			comment.Text, comment.AuthorID, comment.PostID,
		).Scan(&comment.ID)
		if err != nil {
			return fmt.Errorf("sqlstore: inserting comment on post %d: %w", comment.PostID, err)
		}
		return nil
	})
}

// ListComments returns the comments of one post, oldest first, each with its
// author's name and email.
func (db *DB) ListComments(ctx context.Context, postID int64) ([]model.CommentView, error) {
	rows, err := db.conn.QueryContext(ctx,
		db.rebind(`SELECT c.id, c.text, COALESCE(c.author_id, 0), COALESCE(c.post_id, 0),
		        COALESCE(u.name, ''), COALESCE(u.email, '')
		 FROM comments c LEFT JOIN users u ON u.id = c.author_id
		 WHERE c.post_id = ?
		 ORDER BY c.id`), postID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: listing comments of post %d: %w", postID, err)
	}
	defer rows.Close()

	comments := []model.CommentView{}
	for rows.Next() {
		var c model.CommentView
		if err := rows.Scan(&c.ID, &c.Text, &c.AuthorID, &c.PostID, &c.AuthorName, &c.AuthorEmail); err != nil {
			return nil, fmt.Errorf("sqlstore: scanning comment row: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: iterating comments: %w", err)
	}
	return comments, nil
}
