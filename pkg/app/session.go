package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/georgemblack/snapgram/pkg/cache"
	"github.com/georgemblack/snapgram/pkg/errs"
	"github.com/georgemblack/snapgram/pkg/model"
	"github.com/google/uuid"
)

const SessionCookie = "snapgram_session"

type sessionContextKey struct{}

type requestSession struct {
	token   string
	session model.Session
}

// requestToken reads the gateway token from the session cookie or a bearer token.
func requestToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

// authenticated resolves the caller's platform session, rejecting the request without one.
func (h *handler) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := requestToken(r)
		if token == "" {
			writeError(w, errs.New(errs.NotAuthenticated, "session", "no session token"))
			return
		}

		record, err := h.cache.ReadSession(r.Context(), token)
		if err != nil {
			writeError(w, errs.Wrap(errs.RemoteUnavailable, "session", err))
			return
		}
		if record.IsEmpty() {
			writeError(w, errs.New(errs.NotAuthenticated, "session", "unknown or expired session"))
			return
		}

		ctx := context.WithValue(r.Context(), sessionContextKey{}, requestSession{token: token, session: record.Session()})
		next(w, r.WithContext(ctx))
	}
}

func sessionFrom(r *http.Request) (requestSession, bool) {
	rs, ok := r.Context().Value(sessionContextKey{}).(requestSession)
	return rs, ok
}

// startSession stores a platform session behind a fresh gateway token and sets the cookie.
func (h *handler) startSession(w http.ResponseWriter, r *http.Request, sess model.Session) (string, error) {
	token := uuid.NewString()
	err := h.cache.SaveSession(r.Context(), token, cache.NewSessionRecord(sess), h.sessionTTL)
	if err != nil {
		return "", err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.sessionTTL / time.Second),
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return token, nil
}

func (h *handler) endSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
