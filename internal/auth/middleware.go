package auth

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/blog/internal/model"
)

// SessionCookie is the name of the cookie holding the session token.
const SessionCookie = "session"

// UserLookup is the one repository method the session middleware needs.
type UserLookup interface {
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
}

// LoadPrincipal is a middleware that resolves the current principal on every
// request and stores it in the request context.
//
// It never blocks a request: a missing, invalid or expired token, or a token
// for a user that no longer exists, simply leaves the request anonymous.
// Access control is the job of Require.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware takes an http.Handler and returns a new http.Handler that
// wraps it: req → M1 → M2 → Handler → M2 → M1 → resp.
func LoadPrincipal(tokens *TokenService, users UserLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := Anonymous

			if cookie, err := r.Cookie(SessionCookie); err == nil && cookie.Value != "" {
				userID, err := tokens.Validate(cookie.Value)
				if err != nil {
					logger.Debug("ignoring session cookie", slog.String("error", err.Error()))
				} else if user, err := users.GetUserByID(r.Context(), userID); err != nil {
					logger.Warn("session user lookup failed",
						slog.Int64("userID", userID),
						slog.String("error", err.Error()),
					)
				} else {
					p = Principal{User: user}
				}
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// Require is a middleware that lets a request through only if authz allows
// the current principal to perform action. Otherwise deny handles the request
// (the blog renders a 403 page).
func Require(authz Authorizer, action Action, deny http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if authz.Authorize(PrincipalFrom(r.Context()), action) != Allow {
				deny.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SetSessionCookie stores token in the HttpOnly session cookie.
//
// HttpOnly keeps JavaScript from reading it; SameSite=Lax keeps it off
// cross-site POSTs. Secure is set when the request arrived over TLS.
func SetSessionCookie(w http.ResponseWriter, r *http.Request, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie tells the browser to delete the session cookie.
// Safe to call when no session exists.
func ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
