package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/blog/internal/apperror"
	"github.com/sakif/blog/internal/auth"
	"github.com/sakif/blog/internal/form"
	"github.com/sakif/blog/internal/metrics"
	"github.com/sakif/blog/internal/service"
)

const oauthStateCookie = "oauth_state"

// AuthHandler manages registration, login, logout and the optional GitHub
// OAuth flow.
//
// HANDLER RESPONSIBILITIES:
//   - Register / Login   → validate the form, call AuthService, set the session cookie
//   - Logout             → clear the session cookie
//   - GitHubLogin        → redirect the browser to GitHub's authorization page
//   - GitHubCallback     → receive the code, exchange it for a user, set the cookie
//
// github is nil when GitHub sign-in is not configured; the routes are then
// not mounted.
type AuthHandler struct {
	auth    *service.AuthService
	github  *auth.GitHubProvider
	render  *Renderer
	flash   *Flasher
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewAuthHandler(
	authService *service.AuthService,
	github *auth.GitHubProvider,
	render *Renderer,
	flash *Flasher,
	m *metrics.Metrics,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:    authService,
		github:  github,
		render:  render,
		flash:   flash,
		metrics: m,
		logger:  logger,
	}
}

func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, pageRegister, View{Title: "Register", Form: form.Register{}})
}

// Register creates the account and signs the user in.
//
// An already registered email is sent to the login page with a flash.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render.Error(w, r, http.StatusBadRequest, "Could not read the form.")
		return
	}
	f, errs := form.Parse[form.Register](r.PostForm)
	if !errs.Valid() {
		f.Password = ""
		h.render.Render(w, r, http.StatusUnprocessableEntity, pageRegister, View{Title: "Register", Form: f, Errors: errs})
		return
	}

	result, err := h.auth.Register(r.Context(), f.Email, f.Password, f.Name)
	if err != nil {
		switch {
		case errors.Is(err, apperror.ErrDuplicateUser):
			h.flash.Add(w, r, "You've already signed up with that email, log in instead!")
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		case errors.Is(err, apperror.ErrValidation):
			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || appErr.Field == "" {
				h.render.HandleError(w, r, err)
				return
			}
			errs.Add(appErr.Field, appErr.Message)
			f.Password = ""
			h.render.Render(w, r, http.StatusUnprocessableEntity, pageRegister, View{Title: "Register", Form: f, Errors: errs})
		default:
			h.render.HandleError(w, r, err)
		}
		return
	}
	h.metrics.Registrations.Inc()

	h.startSession(w, r, result)
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, r, http.StatusOK, pageLogin, View{Title: "Log In", Form: form.Login{}})
}

// Login checks the credentials.
//
// An unknown email is sent to the register page and a wrong password back to
// the login page, each with a flash. Neither sets a session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render.Error(w, r, http.StatusBadRequest, "Could not read the form.")
		return
	}
	f, errs := form.Parse[form.Login](r.PostForm)
	if !errs.Valid() {
		f.Password = ""
		h.render.Render(w, r, http.StatusUnprocessableEntity, pageLogin, View{Title: "Log In", Form: f, Errors: errs})
		return
	}

	result, err := h.auth.Login(r.Context(), f.Email, f.Password)
	if err != nil {
		switch {
		case errors.Is(err, apperror.ErrUnknownUser):
			h.metrics.LoginFailed("unknown_user")
			h.flash.Add(w, r, "That email does not exist, please register.")
			http.Redirect(w, r, "/register", http.StatusSeeOther)
		case errors.Is(err, apperror.ErrBadCredentials):
			h.metrics.LoginFailed("bad_credentials")
			h.flash.Add(w, r, "Password incorrect, please try again.")
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		default:
			h.metrics.LoginFailed("error")
			h.render.HandleError(w, r, err)
		}
		return
	}
	h.metrics.LoginSucceeded()

	h.startSession(w, r, result)
}

// Logout clears the session cookie. It is idempotent.
//
// Since the session is a stateless JWT, "logout" means deleting the cookie.
// The token stays technically valid until it expires, but the browser no
// longer sends it.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// GitHubLogin redirects the user to GitHub's authorization page.
//
// CSRF PROTECTION VIA STATE:
// A random state is stored in a short-lived cookie; GitHubCallback checks the
// state GitHub echoes back against it.
func (h *AuthHandler) GitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10 minutes
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// GitHubCallback completes the OAuth flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
func (h *AuthHandler) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(oauthStateCookie)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: invalid state")
		h.render.Error(w, r, http.StatusBadRequest, "Invalid sign-in attempt, please try again.")
		return
	}

	// Single-use.
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		h.flash.Add(w, r, "GitHub sign-in was cancelled.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.render.Error(w, r, http.StatusBadRequest, "Missing authorization code.")
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		h.render.Error(w, r, http.StatusBadGateway, "GitHub sign-in failed, please try again.")
		return
	}

	result, err := h.auth.LoginWithGitHub(r.Context(), ghUser)
	if err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			h.flash.Add(w, r, apperror.MessageOf(err, "GitHub sign-in failed."))
			http.Redirect(w, r, "/register", http.StatusSeeOther)
			return
		}
		h.render.HandleError(w, r, err)
		return
	}
	h.metrics.LoginSucceeded()

	h.startSession(w, r, result)
}

func (h *AuthHandler) startSession(w http.ResponseWriter, r *http.Request, result *service.AuthResult) {
	auth.SetSessionCookie(w, r, result.Token, h.auth.SessionTTL())
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
