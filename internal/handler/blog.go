package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/form"
	"github.com/sakif/blog/internal/metrics"
	"github.com/sakif/blog/internal/service"
)

// BlogHandler serves the post pages.
//
//   - Index         GET  /
//   - ShowPost      GET  /post/{id}
//   - AddComment    POST /post/{id}
//   - NewPost       GET  /new-post,        CreatePost POST /new-post
//   - EditPost      GET  /edit-post/{id},  UpdatePost POST /edit-post/{id}
//   - DeletePost    GET|POST /delete/{id}
//   - About         GET  /about
//
// The admin routes are gated by auth.Require in the router.
type BlogHandler struct {
	blog    *service.BlogService
	render  *Renderer
	flash   *Flasher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewBlogHandler(
	blog *service.BlogService,
	render *Renderer,
	flash *Flasher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *BlogHandler {
	return &BlogHandler{
		blog:    blog,
		render:  render,
		flash:   flash,
		metrics: m,
		logger:  logger,
	}
}

// postID reads the {id} path parameter. Anything that isn't a positive
// integer renders the 404 page and returns false.
func (h *BlogHandler) postID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.render.NotFound(w, r)
		return 0, false
	}
	return id, true
}

func (h *BlogHandler) Index(w http.ResponseWriter, r *http.Request) {
	posts, err := h.blog.ListPosts(r.Context())
	if err != nil {
		h.render.HandleError(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, pageIndex, View{Posts: posts})
}

func (h *BlogHandler) ShowPost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}
	h.showPost(w, r, id, http.StatusOK, form.Comment{}, nil)
}

func (h *BlogHandler) showPost(w http.ResponseWriter, r *http.Request, id int64, status int, f form.Comment, errs form.Errors) {
	post, err := h.blog.GetPost(r.Context(), id)
	if err != nil {
		h.render.HandleError(w, r, err)
		return
	}
	h.render.Render(w, r, status, pagePost, View{
		Title:  post.Title,
		Post:   post,
		Form:   f,
		Errors: errs,
	})
}

// AddComment handles the comment form under a post.
//
// A missing post is a 404 for everyone. Anonymous visitors are then sent to
// the login page with a flash. After a
// successful insert the browser is redirected back to the post (POST /
// redirect / GET) so a refresh does not post the comment twice.
func (h *BlogHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}

	if _, err := h.blog.GetPost(r.Context(), id); err != nil {
		h.render.HandleError(w, r, err)
		return
	}

	p := auth.PrincipalFrom(r.Context())
	if !p.Authenticated() {
		h.flash.Add(w, r, "You need to log in or register to comment.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.render.Error(w, r, http.StatusBadRequest, "Could not read the form.")
		return
	}
	f, errs := form.Parse[form.Comment](r.PostForm)
	if !errs.Valid() {
		h.showPost(w, r, id, http.StatusUnprocessableEntity, f, errs)
		return
	}

	if _, err := h.blog.AddComment(r.Context(), p, id, f.Text); err != nil {
		h.render.HandleError(w, r, err)
		return
	}
	h.metrics.Comments.Inc()

	http.Redirect(w, r, postURL(id), http.StatusSeeOther)
}

func (h *BlogHandler) NewPost(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, pageMakePost, View{Title: "New Post", Form: form.Post{}})
}

func (h *BlogHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	f, errs, ok := h.parsePostForm(w, r)
	if !ok {
		return
	}
	if !errs.Valid() {
		h.rerenderPost(w, r, f, errs, false)
		return
	}

	p := auth.PrincipalFrom(r.Context())
	if _, err := h.blog.CreatePost(r.Context(), p, postInput(f)); err != nil {
		if h.fieldError(err, errs) {
			h.rerenderPost(w, r, f, errs, false)
			return
		}
		h.render.HandleError(w, r, err)
		return
	}
	h.metrics.PostsCreated.Inc()

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *BlogHandler) EditPost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}
	post, err := h.blog.GetPost(r.Context(), id)
	if err != nil {
		h.render.HandleError(w, r, err)
		return
	}
	h.render.Render(w, r, http.StatusOK, pageMakePost, View{
		Title:  "Edit Post",
		Form:   form.PostFrom(post.BlogPost),
		IsEdit: true,
	})
}

func (h *BlogHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}
	f, errs, ok := h.parsePostForm(w, r)
	if !ok {
		return
	}
	if !errs.Valid() {
		h.rerenderPost(w, r, f, errs, true)
		return
	}

	p := auth.PrincipalFrom(r.Context())
	if _, err := h.blog.UpdatePost(r.Context(), p, id, postInput(f)); err != nil {
		if h.fieldError(err, errs) {
			h.rerenderPost(w, r, f, errs, true)
			return
		}
		h.render.HandleError(w, r, err)
		return
	}

	http.Redirect(w, r, postURL(id), http.StatusSeeOther)
}

func (h *BlogHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.postID(w, r)
	if !ok {
		return
	}

	p := auth.PrincipalFrom(r.Context())
	if err := h.blog.DeletePost(r.Context(), p, id); err != nil {
		h.render.HandleError(w, r, err)
		return
	}
	h.metrics.PostsDeleted.Inc()

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *BlogHandler) About(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, pageAbout, View{Title: "About"})
}

func (h *BlogHandler) parsePostForm(w http.ResponseWriter, r *http.Request) (form.Post, form.Errors, bool) {
	if err := r.ParseForm(); err != nil {
		h.render.Error(w, r, http.StatusBadRequest, "Could not read the form.")
		return form.Post{}, nil, false
	}
	f, errs := form.Parse[form.Post](r.PostForm)
	return f, errs, true
}

func (h *BlogHandler) rerenderPost(w http.ResponseWriter, r *http.Request, f form.Post, errs form.Errors, isEdit bool) {
	title := "New Post"
	if isEdit {
		title = "Edit Post"
	}
	h.render.Render(w, r, http.StatusUnprocessableEntity, pageMakePost, View{
		Title:  title,
		Form:   f,
		Errors: errs,
		IsEdit: isEdit,
	})
}

// fieldError records a duplicate title or a validation failure on its form
// field. It reports false for every other error.
func (h *BlogHandler) fieldError(err error, errs form.Errors) bool {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Field == "" {
		return false
	}
	if !errors.Is(err, apperror.ErrConflict) && !errors.Is(err, apperror.ErrValidation) {
		return false
	}
	errs.Add(appErr.Field, appErr.Message)
	return true
}

func postInput(f form.Post) service.PostInput {
	return service.PostInput{Title: f.Title, Subtitle: f.Subtitle, ImgURL: f.ImgURL, Body: f.Body}
}

func postURL(id int64) string {
	return fmt.Sprintf("/post/%d", id)
}
