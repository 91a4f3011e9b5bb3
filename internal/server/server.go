// Package server sets up the HTTP server, router, and all route definitions.
//
// This package is the "wiring" layer. It decides:
//   - Which URL patterns map to which handler functions
//   - What middleware runs on which routes
//   - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
//
//	main.go: godotenv.Load → config.Load → server.New
//	server.New: sqlstore.Open → mail.NewSMTPMailer → services → handlers → routes
//
// This is the "composition root" pattern: all dependencies are wired in one
// place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/config"
	"github.com/sakif/blog/internal/handler"
	"github.com/sakif/blog/internal/mail"
	"github.com/sakif/blog/internal/metrics"
	"github.com/sakif/blog/internal/middleware"
	"github.com/sakif/blog/internal/repository/sqlstore"
	"github.com/sakif/blog/internal/service"
	"github.com/sakif/blog/web"
)

// Deps are the collaborators that tests replace. Zero values get the
// production defaults.
type Deps struct {
	Mailer    mail.Sender           // default: SMTP mailer built from cfg.Mail
	Passwords *auth.PasswordService // default: bcrypt cost 12
	Now       func() time.Time      // default: time.Now
}

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection. Start closes it after the HTTP
// server has drained; tests that never call Start call Close.
type Server struct {
	router  *chi.Mux
	cfg     config.Config
	logger  *slog.Logger
	db      *sqlstore.DB
	metrics *metrics.Metrics
}

// New opens the database, creates the schema if needed and wires every layer.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, deps Deps) (*Server, error) {
	db, err := sqlstore.Open(ctx, cfg.DatabaseURI)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if deps.Mailer == nil {
		deps.Mailer = mail.NewSMTPMailer(cfg.Mail, logger)
	}
	if deps.Passwords == nil {
		deps.Passwords = auth.NewPasswordService()
	}

	s := &Server{
		router:  chi.NewRouter(),
		cfg:     cfg,
		logger:  logger,
		db:      db,
		metrics: metrics.New(),
	}

	if err := s.setupRoutes(deps); err != nil {
		db.Close() // Clean up DB if route setup fails
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET       /                     → list posts
// GET,POST  /register, /login     → account forms
// GET       /logout               → clear session
// GET,POST  /post/{id}            → read post, add comment
// GET,POST  /new-post             → create post             [admin]
// GET,POST  /edit-post/{id}       → edit post               [admin]
// GET,POST  /delete/{id}          → delete post + comments  [admin]
// GET       /about                → static page
// GET,POST  /contact              → contact form
// GET       /auth/github/*        → GitHub sign-in (when configured)
// GET       /metrics, /healthz    → operations
// GET       /static/*             → embedded assets
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: assigns a unique ID to each request (for tracing)
//  2. RealIP: extracts the client IP from proxy headers
//  3. Recoverer: turns a panic into a 500 instead of crashing
//  4. Logger: logs each request with timing info
//  5. Metrics: observes request duration per route
//  6. LoadPrincipal: resolves the session cookie to the current user
func (s *Server) setupRoutes(deps Deps) error {
	tokens, err := auth.NewTokenService(s.cfg.SecretKey, s.cfg.SessionTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	policy := auth.NewPolicy(s.cfg.AdminIDs...)

	var github *auth.GitHubProvider
	if s.cfg.GitHub.Enabled() {
		github = auth.NewGitHubProvider(s.cfg.GitHub.ClientID, s.cfg.GitHub.ClientSecret, s.cfg.GitHub.CallbackURL)
	}

	flash := handler.NewFlasher(s.cfg.SecretKey, s.logger)
	render, err := handler.NewRenderer(web.FS, policy, flash, github != nil, s.logger)
	if err != nil {
		return err
	}

	// === Services ===
	authService := service.NewAuthService(s.db, tokens, deps.Passwords, s.logger)
	blogService := service.NewBlogService(s.db, s.db, policy, s.logger)
	if deps.Now != nil {
		blogService.WithClock(deps.Now)
	}
	contactService := service.NewContactService(deps.Mailer, s.logger)

	// === Handlers ===
	authHandler := handler.NewAuthHandler(authService, github, render, flash, s.metrics, s.logger)
	blogHandler := handler.NewBlogHandler(blogService, render, flash, s.metrics, s.logger)
	contactHandler := handler.NewContactHandler(contactService, render, flash, s.metrics, s.logger)

	// === Global Middleware ===
	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Logger(s.logger))
	r.Use(s.metrics.Middleware)
	r.Use(auth.LoadPrincipal(tokens, s.db, s.logger))

	r.NotFound(render.NotFound)
	r.MethodNotAllowed(render.MethodNotAllowed)

	// === Static Files ===
	static, err := fs.Sub(web.FS, "static")
	if err != nil {
		return fmt.Errorf("static assets: %w", err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	// === Operations ===
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	// === Accounts ===
	r.Get("/register", authHandler.RegisterPage)
	r.Post("/register", authHandler.Register)
	r.Get("/login", authHandler.LoginPage)
	r.Post("/login", authHandler.Login)
	r.Get("/logout", authHandler.Logout)
	if github != nil {
		r.Get("/auth/github/login", authHandler.GitHubLogin)
		r.Get("/auth/github/callback", authHandler.GitHubCallback)
	}

	// === Blog ===
	// Numeric ids only; anything else falls through to the 404 page.
	deny := http.HandlerFunc(render.Forbidden)
	r.Get("/", blogHandler.Index)
	r.Get("/post/{id:[0-9]+}", blogHandler.ShowPost)
	r.Post("/post/{id:[0-9]+}", blogHandler.AddComment)
	r.Get("/about", blogHandler.About)

	r.Group(func(r chi.Router) {
		r.Use(auth.Require(policy, auth.ActionCreatePost, deny))
		r.Get("/new-post", blogHandler.NewPost)
		r.Post("/new-post", blogHandler.CreatePost)
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.Require(policy, auth.ActionEditPost, deny))
		r.Get("/edit-post/{id:[0-9]+}", blogHandler.EditPost)
		r.Post("/edit-post/{id:[0-9]+}", blogHandler.UpdatePost)
	})
	r.Group(func(r chi.Router) {
		r.Use(auth.Require(policy, auth.ActionDeletePost, deny))
		r.Get("/delete/{id:[0-9]+}", blogHandler.DeletePost)
		r.Post("/delete/{id:[0-9]+}", blogHandler.DeletePost)
	})

	// === Contact ===
	r.Get("/contact", contactHandler.ContactPage)
	r.Post("/contact", contactHandler.Send)

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.db.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintln(w, "database unavailable")
		return
	}
	fmt.Fprintln(w, "ok")
}

// Handler exposes the router, for tests and for embedding in another server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the database connection (flushes WAL, releases file lock)
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second, // contact form waits on SMTP
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.cfg.Port)),
			slog.String("database", s.db.Dialect()),
			slog.Bool("mail", s.cfg.Mail.Enabled()),
			slog.Bool("github", s.cfg.GitHub.Enabled()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
