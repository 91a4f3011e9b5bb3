package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/mail"
	"github.com/sakif/blog/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeStore is an in-memory UserRepository + PostRepository + CommentRepository.
// It enforces the same uniqueness and existence rules as the SQL store so
// service tests exercise the real error paths.
type fakeStore struct {
	mu       sync.Mutex
	users    map[int64]*model.User
	posts    map[int64]*model.BlogPost
	comments map[int64]*model.Comment
	nextID   int64

	postReads int

	// set to a non-nil error to simulate a database failure
	failWith error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    map[int64]*model.User{},
		posts:    map[int64]*model.BlogPost{},
		comments: map[int64]*model.Comment{},
	}
}

func (f *fakeStore) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeStore) CreateUser(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return apperror.DuplicateUser(u.Email)
		}
	}
	u.ID = f.id()
	copied := *u
	f.users[u.ID] = &copied
	return nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, u := range f.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, apperror.UnknownUser(email)
}

func (f *fakeStore) titleTaken(title string, except int64) bool {
	for _, p := range f.posts {
		if p.Title == title && p.ID != except {
			return true
		}
	}
	return false
}

func (f *fakeStore) view(p *model.BlogPost) model.PostView {
	v := model.PostView{BlogPost: *p}
	if u, ok := f.users[p.AuthorID]; ok {
		v.AuthorName = u.Name
	}
	return v
}

func (f *fakeStore) CreatePost(_ context.Context, p *model.BlogPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	if f.titleTaken(p.Title, 0) {
		return apperror.Conflict("title", "a post with this title already exists")
	}
	p.ID = f.id()
	copied := *p
	f.posts[p.ID] = &copied
	return nil
}

func (f *fakeStore) GetPost(_ context.Context, id int64) (*model.PostView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.postReads++
	p, ok := f.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", id)
	}
	v := f.view(p)
	return &v, nil
}

func (f *fakeStore) ListPosts(_ context.Context) ([]model.PostView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	out := make([]model.PostView, 0, len(f.posts))
	for _, p := range f.posts {
		out = append(out, f.view(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdatePost(_ context.Context, p *model.BlogPost) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.posts[p.ID]
	if !ok {
		return apperror.NotFound("post", p.ID)
	}
	if f.titleTaken(p.Title, p.ID) {
		return apperror.Conflict("title", "a post with this title already exists")
	}
	p.Date = existing.Date
	copied := *p
	f.posts[p.ID] = &copied
	return nil
}

func (f *fakeStore) DeletePost(_ context.Context, id int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[id]; !ok {
		return 0, apperror.NotFound("post", id)
	}
	var removed int64
	for cid, c := range f.comments {
		if c.PostID == id {
			delete(f.comments, cid)
			removed++
		}
	}
	delete(f.posts, id)
	return removed, nil
}

func (f *fakeStore) CreateComment(_ context.Context, c *model.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.posts[c.PostID]; !ok {
		return apperror.NotFound("post", c.PostID)
	}
	c.ID = f.id()
	copied := *c
	f.comments[c.ID] = &copied
	return nil
}

func (f *fakeStore) ListComments(_ context.Context, postID int64) ([]model.CommentView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.CommentView
	for _, c := range f.comments {
		if c.PostID != postID {
			continue
		}
		v := model.CommentView{Comment: *c}
		if u, ok := f.users[c.AuthorID]; ok {
			v.AuthorName, v.AuthorEmail = u.Name, u.Email
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) Ping(context.Context) error { return f.failWith }

// fakeSender records every message and optionally fails.
type fakeSender struct {
	sent []mail.ContactMessage
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mail.ContactMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

var errDB = errors.New("database is on fire")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
