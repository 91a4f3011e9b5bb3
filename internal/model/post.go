package model

// DateLayout is the format of BlogPost.Date (YYYY-MM-DD).
const DateLayout = "2006-01-02"

// BlogPost is a single article. Title is unique across the blog.
//
// Date is stored as a string, not a time.Time: it is a display value stamped
// once at creation and never used for arithmetic.
type BlogPost struct {
	ID       int64  `json:"id"       db:"id"`
	Title    string `json:"title"    db:"title"`
	Subtitle string `json:"subtitle" db:"subtitle"`
	Date     string `json:"date"     db:"date"`
	Body     string `json:"body"     db:"body"`
	ImgURL   string `json:"imgUrl"   db:"img_url"`
	AuthorID int64  `json:"authorId" db:"author_id"`
}

// PostView is a post joined with its author's display name, used by the index page.
type PostView struct {
	BlogPost
	AuthorName string `json:"authorName"`
}

// PostDetail is everything the single-post page needs.
type PostDetail struct {
	PostView
	Comments []CommentView `json:"comments"`
}
