// Package handler contains the blog's HTTP request handlers.
//
// HANDLER RESPONSIBILITIES:
//  1. Parse the incoming request (path params, form values)
//  2. Call the service layer
//  3. Render a page, or flash a message and redirect
//
// Handlers hold no business rules; they translate between HTTP and the
// service layer and map apperror kinds to pages (see errors.go).
package handler

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/form"
	"github.com/sakif/blog/internal/model"
)

// Page template names under templates/. Each is parsed together with base.html.
const (
	pageIndex    = "index.html"
	pagePost     = "post.html"
	pageMakePost = "make-post.html"
	pageRegister = "register.html"
	pageLogin    = "login.html"
	pageAbout    = "about.html"
	pageContact  = "contact.html"
	pageError    = "error.html"
)

var pages = []string{
	pageIndex, pagePost, pageMakePost, pageRegister,
	pageLogin, pageAbout, pageContact, pageError,
}

// View is the data every template receives. The common fields are filled
// in by Render; handlers set the page-specific ones.
type View struct {
	Title string

	// Common
	User          *model.User
	IsAdmin       bool
	Flashes       []string
	GitHubEnabled bool
	Year          int

	// Page-specific
	Posts   []model.PostView
	Post    *model.PostDetail
	Form    any
	Errors  form.Errors
	IsEdit  bool
	Status  int
	Message string
}

// Renderer executes the embedded page templates.
//
// Templates are parsed once at startup, one set per page, each set holding
// base.html plus the page so every page can define its own "content" block.
type Renderer struct {
	templates     map[string]*template.Template
	authz         auth.Authorizer
	flashes       *Flasher
	githubEnabled bool
	logger        *slog.Logger
}

// NewRenderer parses templates/base.html with every page from fsys.
func NewRenderer(fsys fs.FS, authz auth.Authorizer, flashes *Flasher, githubEnabled bool, logger *slog.Logger) (*Renderer, error) {
	funcs := templateFuncs()

	sets := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New(page).Funcs(funcs).ParseFS(fsys, "templates/base.html", "templates/"+page)
		if err != nil {
			return nil, fmt.Errorf("handler: parsing %s: %w", page, err)
		}
		sets[page] = tmpl
	}

	return &Renderer{
		templates:     sets,
		authz:         authz,
		flashes:       flashes,
		githubEnabled: githubEnabled,
		logger:        logger,
	}, nil
}

func templateFuncs() template.FuncMap {
	// UGC allows the formatting CKEditor produces and strips scripts, event
	// handlers and other active content.
	policy := bluemonday.UGCPolicy()

	return template.FuncMap{
		"sanitize": func(s string) template.HTML {
			return template.HTML(policy.Sanitize(s))
		},
		"gravatar": gravatarURL,
	}
}

// gravatarURL returns the avatar for email: 100px, G-rated, retro fallback.
func gravatarURL(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "https://www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?s=100&r=g&d=retro"
}

// Render executes page with v and writes it with status.
//
// The page is rendered into a buffer first so a template error produces a
// clean 500 instead of half a page.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, page string, v View) {
	tmpl, ok := rd.templates[page]
	if !ok {
		rd.logger.Error("unknown template", slog.String("page", page))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	p := auth.PrincipalFrom(r.Context())
	v.User = p.User
	v.IsAdmin = rd.authz.Authorize(p, auth.ActionCreatePost) == auth.Allow
	v.GitHubEnabled = rd.githubEnabled
	v.Year = time.Now().Year()
	v.Flashes = rd.flashes.Pop(w, r)
	if v.Errors == nil {
		v.Errors = form.Errors{}
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", v); err != nil {
		rd.logger.Error("failed to render template",
			slog.String("page", page),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		rd.logger.Debug("writing response", slog.String("error", err.Error()))
	}
}
