package model

// Comment is a reader's reply under a post. Comments are never edited and only
// disappear together with their post.
type Comment struct {
	ID       int64  `json:"id"       db:"id"`
	Text     string `json:"text"     db:"text"`
	AuthorID int64  `json:"authorId" db:"author_id"`
	PostID   int64  `json:"postId"   db:"post_id"`
}

// CommentView carries the author's name and email alongside the comment so
// the template can show a gravatar without another lookup.
type CommentView struct {
	Comment
	AuthorName  string `json:"authorName"`
	AuthorEmail string `json:"-"`
}
