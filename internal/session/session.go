// Package session keeps the signed-in user id in a signed cookie.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"

	"skillswap/internal/config"
)

const (
	CookieName = "skillswap-session"
	userIDKey  = "user_id"
)

// ErrNoUser is returned when the request carries no signed-in user.
var ErrNoUser = errors.New("no user in session")

type contextKey struct{}

// Manager reads and writes the session cookie.
type Manager struct {
	store  *sessions.CookieStore
	logger *slog.Logger
}

// NewManager creates a cookie store signed with cfg.SessionSecret.
func NewManager(cfg *config.ServerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(cfg.SessionMaxAge.Seconds()),
	}
	return &Manager{store: store, logger: logger}
}

// UserID returns the user id stored in the request's session cookie.
func (m *Manager) UserID(r *http.Request) (int64, error) {
	if id, ok := r.Context().Value(contextKey{}).(int64); ok {
		return id, nil
	}
	s, err := m.store.Get(r, CookieName)
	if err != nil {
		return 0, err
	}
	id, ok := s.Values[userIDKey].(int64)
	if !ok || id <= 0 {
		return 0, ErrNoUser
	}
	return id, nil
}

// SetUserID signs the user in for the rest of the session.
func (m *Manager) SetUserID(w http.ResponseWriter, r *http.Request, userID int64) error {
	s, _ := m.store.Get(r, CookieName)
	s.Values[userIDKey] = userID
	return sessions.Save(r, w)
}

// Clear expires the session cookie.
func (m *Manager) Clear(w http.ResponseWriter, r *http.Request) error {
	s, _ := m.store.Get(r, CookieName)
	delete(s.Values, userIDKey)
	s.Options.MaxAge = -1
	return sessions.Save(r, w)
}

// RequireAuth rejects requests without a signed-in user and puts the user id
// on the request context for next.
func (m *Manager) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := m.UserID(r)
		if err != nil {
			if !errors.Is(err, ErrNoUser) {
				m.logger.Debug("unreadable session cookie", "error", err, "remote", r.RemoteAddr)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Authentication required"})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), id)))
	})
}

// WithUserID returns ctx carrying userID.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// FromContext returns the user id placed on ctx by RequireAuth.
func FromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(contextKey{}).(int64)
	return id, ok
}
