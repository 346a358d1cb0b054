// Package session gives every visitor a stable id in a cookie.
//
// Guests are identified by their session id: it owns the guest cart until
// the shopper logs in and the cart is merged into their account.
//
//	r.Use(session.Middleware(session.DefaultOptions()))
//	owner := session.FromCtx(r).ID()
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"
)

// Options configures the session cookie.
type Options struct {
	CookieName string
	TTL        time.Duration
	HTTPOnly   bool
	Secure     bool
	SameSite   http.SameSite
	Path       string
}

func DefaultOptions() Options {
	return Options{
		CookieName: "kirana_session",
		TTL:        30 * 24 * time.Hour,
		HTTPOnly:   true,
		SameSite:   http.SameSiteLaxMode,
		Path:       "/",
	}
}

type ctxKey struct{}

// Session is an in-request session handle.
type Session struct {
	id    string
	fresh bool
}

// newID generates a random 32-byte hex session ID.
func newID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// ID returns the session ID, which doubles as the guest owner id.
func (s *Session) ID() string { return s.id }

// Fresh reports whether the session was created by this request.
func (s *Session) Fresh() bool { return s.fresh }

// Middleware loads (or creates) the session for every request and injects
// it into the request context. A new session's cookie is written before
// the handler runs.
func Middleware(opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := &Session{}

			if cookie, err := r.Cookie(opts.CookieName); err == nil && cookie.Value != "" {
				sess.id = cookie.Value
			} else {
				id, err := newID()
				if err != nil {
					http.Error(w, "session unavailable", http.StatusInternalServerError)
					return
				}
				sess.id = id
				sess.fresh = true
				http.SetCookie(w, &http.Cookie{
					Name:     opts.CookieName,
					Value:    id,
					Path:     opts.Path,
					MaxAge:   int(opts.TTL.Seconds()),
					HttpOnly: opts.HTTPOnly,
					Secure:   opts.Secure,
					SameSite: opts.SameSite,
				})
			}

			ctx := context.WithValue(r.Context(), ctxKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// FromCtx retrieves the session from the request context. Without the
// middleware it returns a fresh, unsaved session.
func FromCtx(r *http.Request) *Session {
	if s, ok := r.Context().Value(ctxKey{}).(*Session); ok {
		return s
	}
	id, _ := newID()
	return &Session{id: id, fresh: true}
}
