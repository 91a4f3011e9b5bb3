// Package repository declares the storage interfaces the service layer depends on.
//
// Implementations live in sub-packages (sqlstore). Every mutating method runs
// as a single transaction in the implementation: it either applies all of its
// writes or none of them.
package repository

import (
	"context"

	"github.com/sakif/blog/internal/model"
)

type UserRepository interface {
	// CreateUser inserts the user and sets user.ID. Returns apperror.ErrDuplicateUser
	// when the email is already registered.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

type PostRepository interface {
	// CreatePost inserts the post and sets post.ID. Returns apperror.ErrConflict
	// on a duplicate title.
	CreatePost(ctx context.Context, post *model.BlogPost) error
	GetPost(ctx context.Context, id int64) (*model.PostView, error)
	ListPosts(ctx context.Context) ([]model.PostView, error)
	// UpdatePost overwrites every mutable field of the row with post.ID and
	// sets post.Date to the stored creation date.
	UpdatePost(ctx context.Context, post *model.BlogPost) error
	// DeletePost removes the post and all of its comments, returning how many
	// comments were removed.
	DeletePost(ctx context.Context, id int64) (int64, error)
}

type CommentRepository interface {
	// CreateComment inserts the comment and sets comment.ID. Returns
	// apperror.ErrNotFound if the parent post no longer exists.
	CreateComment(ctx context.Context, comment *model.Comment) error
	ListComments(ctx context.Context, postID int64) ([]model.CommentView, error)
}

// Store groups every repository; *sqlstore.DB implements it.
type Store interface {
	UserRepository
	PostRepository
	CommentRepository
	Ping(ctx context.Context) error
}
