package sqlstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/model"
)

func TestCreateComment_AndList(t *testing.T) {
	db := newTestDB(t)
	admin := createTestUser(t, db, "admin@x.com", "Admin")
	reader := createTestUser(t, db, "Reader@x.com", "Reader")
	p := createTestPost(t, db, admin.ID, "Post")
	other := createTestPost(t, db, admin.ID, "Other")

	c := createTestComment(t, db, reader.ID, p.ID, "<p>nice</p>")
	require.NotZero(t, c.ID)

	comments, err := db.ListComments(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "<p>nice</p>", comments[0].Text)
	assert.Equal(t, "Reader", comments[0].AuthorName)
	assert.Equal(t, "Reader@x.com", comments[0].AuthorEmail)
	assert.Equal(t, p.ID, comments[0].PostID)

	none, err := db.ListComments(context.Background(), other.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCreateComment_MissingPost(t *testing.T) {
	db := newTestDB(t)
	reader := createTestUser(t, db, "r@x.com", "Reader")

	err := db.CreateComment(context.Background(), &model.Comment{Text: "hi", AuthorID: reader.ID, PostID: 12})

	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
	assert.Equal(t, 0, countRows(t, db, "comments"))
}
