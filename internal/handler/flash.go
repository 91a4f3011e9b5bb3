package handler

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"
)

// flashCookie is kept apart from auth.SessionCookie: flashes are UI state,
// not identity.
const flashCookie = "blog-flash"

// Flasher stores one-shot messages ("Wrong password.") in a signed cookie
// that survives exactly one redirect.
type Flasher struct {
	store  sessions.Store
	logger *slog.Logger
}

// NewFlasher signs flash cookies with secret.
func NewFlasher(secret string, logger *slog.Logger) *Flasher {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Flasher{store: store, logger: logger}
}

// Add queues msg for the next rendered page. Call before the redirect.
func (f *Flasher) Add(w http.ResponseWriter, r *http.Request, msg string) {
	sess, err := f.store.Get(r, flashCookie)
	if err != nil {
		// A cookie signed with an old secret: Get still returns a fresh session.
		f.logger.Debug("discarding unreadable flash cookie", slog.String("error", err.Error()))
	}
	sess.AddFlash(msg)
	if err := sess.Save(r, w); err != nil {
		f.logger.Error("saving flash", slog.String("error", err.Error()))
	}
}

// Pop returns and clears the queued messages. It writes a Set-Cookie header,
// so it must run before the response status is written.
func (f *Flasher) Pop(w http.ResponseWriter, r *http.Request) []string {
	if _, err := r.Cookie(flashCookie); err != nil {
		return nil
	}
	sess, err := f.store.Get(r, flashCookie)
	if err != nil {
		return nil
	}
	raw := sess.Flashes()
	if len(raw) == 0 {
		return nil
	}
	if err := sess.Save(r, w); err != nil {
		f.logger.Error("clearing flash", slog.String("error", err.Error()))
	}

	msgs := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			msgs = append(msgs, s)
		}
	}
	return msgs
}
