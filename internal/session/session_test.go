package session

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skillswap/internal/config"
)

func signedInRequest(t *testing.T, m *Manager, userID int64) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, m.SetUserID(rec, httptest.NewRequest(http.MethodPost, "/login", nil), userID))

	req := httptest.NewRequest(http.MethodGet, "/api/chats/1", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestManager_RoundTripsUserID(t *testing.T) {
	m := NewManager(config.DefaultServerConfig(), nil)

	rec := httptest.NewRecorder()
	require.NoError(t, m.SetUserID(rec, httptest.NewRequest(http.MethodPost, "/", nil), 42))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, 7*24*60*60, cookies[0].MaxAge)

	id, err := m.UserID(signedInRequest(t, m, 42))
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestManager_UserIDWithoutCookie(t *testing.T) {
	m := NewManager(config.DefaultServerConfig(), nil)

	_, err := m.UserID(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.ErrorIs(t, err, ErrNoUser)
}

func TestManager_RejectsCookieSignedWithOtherSecret(t *testing.T) {
	other := config.DefaultServerConfig()
	other.SessionSecret = "a-different-secret"
	req := signedInRequest(t, NewManager(other, nil), 42)

	_, err := NewManager(config.DefaultServerConfig(), nil).UserID(req)
	assert.Error(t, err)
}

func TestManager_ClearExpiresCookie(t *testing.T) {
	m := NewManager(config.DefaultServerConfig(), nil)
	req := signedInRequest(t, m, 42)

	rec := httptest.NewRecorder()
	require.NoError(t, m.Clear(rec, req))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestRequireAuth(t *testing.T) {
	m := NewManager(config.DefaultServerConfig(), nil)
	var seen int64
	protected := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"message":"Authentication required"}`, rec.Body.String())
	})

	t.Run("signed in", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, signedInRequest(t, m, 7))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, int64(7), seen)
	})
}
