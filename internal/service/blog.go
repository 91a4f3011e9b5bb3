package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/model"
	"github.com/sakif/blog/internal/repository"
)

// PostInput is the editable part of a post, as submitted by the admin.
type PostInput struct {
	Title    string
	Subtitle string
	ImgURL   string
	Body     string
}

func (in PostInput) normalize() (PostInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Subtitle = strings.TrimSpace(in.Subtitle)
	in.ImgURL = strings.TrimSpace(in.ImgURL)

	switch {
	case in.Title == "":
		return in, apperror.ValidationFailed("title", "title is required")
	case in.Subtitle == "":
		return in, apperror.ValidationFailed("subtitle", "subtitle is required")
	case in.ImgURL == "":
		return in, apperror.ValidationFailed("img_url", "image URL is required")
	case strings.TrimSpace(in.Body) == "":
		return in, apperror.ValidationFailed("body", "body is required")
	}
	return in, nil
}

// BlogService handles posts and comments.
//
// Every mutating method takes the acting principal and checks it against the
// Authorizer. The HTTP routes are gated by auth.Require as well; the check here
// keeps the rule true for any other caller.
type BlogService struct {
	posts    repository.PostRepository
	comments repository.CommentRepository
	authz    auth.Authorizer
	now      func() time.Time
	logger   *slog.Logger
}

func NewBlogService(
	posts repository.PostRepository,
	comments repository.CommentRepository,
	authz auth.Authorizer,
	logger *slog.Logger,
) *BlogService {
	return &BlogService{
		posts:    posts,
		comments: comments,
		authz:    authz,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock replaces the clock used to date new posts. For tests.
func (s *BlogService) WithClock(now func() time.Time) *BlogService {
	s.now = now
	return s
}

func (s *BlogService) allow(p auth.Principal, action auth.Action) error {
	if s.authz.Authorize(p, action) != auth.Allow {
		return apperror.Forbidden(fmt.Sprintf("not allowed to %s", action))
	}
	return nil
}

// ListPosts returns every post with its author's name, oldest first.
func (s *BlogService) ListPosts(ctx context.Context) ([]model.PostView, error) {
	posts, err := s.posts.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/blog: listing posts: %w", err)
	}
	return posts, nil
}

// GetPost returns the post with its comments.
// Returns apperror.ErrNotFound if the post doesn't exist.
func (s *BlogService) GetPost(ctx context.Context, id int64) (*model.PostDetail, error) {
	post, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return nil, err // already an apperror or wrapped by the store
	}

	comments, err := s.comments.ListComments(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/blog: listing comments of post %d: %w", id, err)
	}

	return &model.PostDetail{PostView: *post, Comments: comments}, nil
}

// CreatePost stores a new post dated today and authored by p.
// Returns apperror.ErrConflict if the title is already used.
func (s *BlogService) CreatePost(ctx context.Context, p auth.Principal, in PostInput) (*model.BlogPost, error) {
	if err := s.allow(p, auth.ActionCreatePost); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	post := &model.BlogPost{
		Title:    in.Title,
		Subtitle: in.Subtitle,
		Date:     s.now().Format(model.DateLayout),
		Body:     in.Body,
		ImgURL:   in.ImgURL,
		AuthorID: p.ID(),
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		s.logger.Error("failed to create post",
			slog.String("title", in.Title),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/blog: creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.Int64("postID", post.ID),
		slog.Int64("authorID", post.AuthorID),
	)
	return post, nil
}

// UpdatePost overwrites the post's title, subtitle, image URL and body and
// makes p its author. The date is left unchanged.
func (s *BlogService) UpdatePost(ctx context.Context, p auth.Principal, id int64, in PostInput) (*model.BlogPost, error) {
	if err := s.allow(p, auth.ActionEditPost); err != nil {
		return nil, err
	}
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	post := model.BlogPost{
		ID:       id,
		Title:    in.Title,
		Subtitle: in.Subtitle,
		ImgURL:   in.ImgURL,
		Body:     in.Body,
		AuthorID: p.ID(),
	}

	if err := s.posts.UpdatePost(ctx, &post); err != nil {
		if errors.Is(err, apperror.ErrConflict) || errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/blog: updating post %d: %w", id, err)
	}

	s.logger.Info("post updated", slog.Int64("postID", id), slog.Int64("authorID", post.AuthorID))
	return &post, nil
}

// DeletePost removes the post and all of its comments in one transaction.
// Returns apperror.ErrNotFound (and changes nothing) if the post doesn't exist.
func (s *BlogService) DeletePost(ctx context.Context, p auth.Principal, id int64) error {
	if err := s.allow(p, auth.ActionDeletePost); err != nil {
		return err
	}

	removed, err := s.posts.DeletePost(ctx, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return err
		}
		return fmt.Errorf("service/blog: deleting post %d: %w", id, err)
	}

	s.logger.Info("post deleted",
		slog.Int64("postID", id),
		slog.Int64("commentsRemoved", removed),
	)
	return nil
}

// AddComment attaches a comment by p to the post.
// Anonymous principals get apperror.ErrForbidden; a post deleted in the
// meantime gives apperror.ErrNotFound.
func (s *BlogService) AddComment(ctx context.Context, p auth.Principal, postID int64, text string) (*model.Comment, error) {
	if err := s.allow(p, auth.ActionComment); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperror.ValidationFailed("text", "comment is required")
	}

	comment := &model.Comment{Text: text, AuthorID: p.ID(), PostID: postID}
	if err := s.comments.CreateComment(ctx, comment); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("service/blog: commenting on post %d: %w", postID, err)
	}

	s.logger.Info("comment added",
		slog.Int64("commentID", comment.ID),
		slog.Int64("postID", postID),
		slog.Int64("authorID", comment.AuthorID),
	)
	return comment, nil
}
