package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func newManager(t *testing.T, store SessionStore, c *clock) *SessionManager {
	t.Helper()
	m, err := NewSessionManager(store, "session-test-secret", SessionOptions{Now: c.Now})
	require.NoError(t, err)
	return m
}

func startSession(t *testing.T, m *SessionManager, p Principal, existing ...*http.Cookie) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	for _, c := range existing {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, m.Create(context.Background(), rec, req, p))

	for _, c := range rec.Result().Cookies() {
		if c.Name == m.CookieName() && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie written")
	return nil
}

// probe runs a request through the middleware and returns the principal the
// downstream handler saw.
func probe(m *SessionManager, cookie *http.Cookie) (*Principal, *httptest.ResponseRecorder) {
	var seen *Principal
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/citizen", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return seen, rec
}

func TestNewSessionManagerValidation(t *testing.T) {
	_, err := NewSessionManager(nil, "secret", SessionOptions{})
	assert.Error(t, err)

	_, err = NewSessionManager(NewMemoryStore(), "   ", SessionOptions{})
	assert.Error(t, err)
}

func TestCreateWritesHardenedCookie(t *testing.T) {
	m, err := NewSessionManager(NewMemoryStore(), "s", SessionOptions{Secure: true})
	require.NoError(t, err)

	cookie := startSession(t, m, Principal{ID: 1, Roles: []string{"CITIZEN"}})
	assert.Equal(t, DefaultCookieName, cookie.Name)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, int((8 * time.Hour).Seconds()), cookie.MaxAge)
	assert.Contains(t, cookie.Value, ".")
}

func TestMiddlewareAttachesPrincipal(t *testing.T) {
	c := &clock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	m := newManager(t, NewMemoryStore(), c)
	cookie := startSession(t, m, Principal{ID: 5, FullName: "Ann", Roles: []string{"CITIZEN"}})

	seen, rec := probe(m, cookie)
	require.NotNil(t, seen)
	assert.Equal(t, int64(5), seen.ID)
	assert.Equal(t, "no-store, no-cache, must-revalidate, private", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
	assert.Equal(t, "0", rec.Header().Get("Expires"))

	seen, rec = probe(m, nil)
	assert.Nil(t, seen)
	assert.Empty(t, rec.Header().Get("Cache-Control"))
}

func TestSessionExpiresAfterFixedLifetime(t *testing.T) {
	store := NewMemoryStore()
	c := &clock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	m := newManager(t, store, c)
	cookie := startSession(t, m, Principal{ID: 5, Roles: []string{"CITIZEN"}})

	// Activity does not extend the lifetime.
	c.now = c.now.Add(4 * time.Hour)
	seen, _ := probe(m, cookie)
	require.NotNil(t, seen)

	c.now = c.now.Add(4*time.Hour - time.Second)
	seen, _ = probe(m, cookie)
	require.NotNil(t, seen)

	c.now = c.now.Add(time.Second)
	seen, rec := probe(m, cookie)
	assert.Nil(t, seen)
	assert.Zero(t, store.Len())
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}

func TestForgedAndForeignCookiesAreAnonymous(t *testing.T) {
	c := &clock{now: time.Now()}
	m := newManager(t, NewMemoryStore(), c)
	cookie := startSession(t, m, Principal{ID: 5, Roles: []string{"ADMIN"}})

	token, _, _ := strings.Cut(cookie.Value, ".")
	for _, value := range []string{
		token,
		token + ".",
		token + ".bm90LWEtc2lnbmF0dXJl",
		"other." + strings.SplitN(cookie.Value, ".", 2)[1],
	} {
		forged := *cookie
		forged.Value = value
		seen, rec := probe(m, &forged)
		assert.Nil(t, seen, value)
		assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0", value)
	}

	other, err := NewSessionManager(NewMemoryStore(), "a-different-secret", SessionOptions{})
	require.NoError(t, err)
	seen, _ := probe(other, cookie)
	assert.Nil(t, seen)
}

func TestDestroyPreventsReplay(t *testing.T) {
	store := NewMemoryStore()
	m := newManager(t, store, &clock{now: time.Now()})
	cookie := startSession(t, m, Principal{ID: 5, Roles: []string{"CITIZEN"}})

	req := httptest.NewRequest(http.MethodGet, "/auth/logout", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	require.NoError(t, m.Destroy(context.Background(), rec, req))
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
	assert.Zero(t, store.Len())

	seen, _ := probe(m, cookie)
	assert.Nil(t, seen)

	// Logging out twice is harmless.
	require.NoError(t, m.Destroy(context.Background(), httptest.NewRecorder(), req))
}

func TestCreateReplacesPreviousSession(t *testing.T) {
	store := NewMemoryStore()
	m := newManager(t, store, &clock{now: time.Now()})

	first := startSession(t, m, Principal{ID: 5, Roles: []string{"CITIZEN"}})
	second := startSession(t, m, Principal{ID: 5, Roles: []string{"CITIZEN"}}, first)

	assert.NotEqual(t, first.Value, second.Value)
	assert.Equal(t, 1, store.Len())
	seen, _ := probe(m, first)
	assert.Nil(t, seen)
}

func TestUpdateRewritesPrincipal(t *testing.T) {
	m := newManager(t, NewMemoryStore(), &clock{now: time.Now()})

	_, err := m.Update(context.Background(), func(*Principal) {})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	cookie := startSession(t, m, Principal{ID: 5, FullName: "Old", Roles: []string{"CITIZEN"}})
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		updated, err := m.Update(r.Context(), func(p *Principal) { p.FullName = "New" })
		require.NoError(t, err)
		assert.Equal(t, "New", updated.FullName)
	}))
	req := httptest.NewRequest(http.MethodPost, "/profile/update", nil)
	req.AddCookie(cookie)
	h.ServeHTTP(httptest.NewRecorder(), req)

	seen, _ := probe(m, cookie)
	require.NotNil(t, seen)
	assert.Equal(t, "New", seen.FullName)
	assert.Equal(t, []string{"CITIZEN"}, seen.Roles)
}

func TestSweepRemovesExpiredSessions(t *testing.T) {
	store := NewMemoryStore()
	c := &clock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	m := newManager(t, store, c)

	startSession(t, m, Principal{ID: 1})
	c.now = c.now.Add(2 * time.Hour)
	startSession(t, m, Principal{ID: 2})
	require.Equal(t, 2, store.Len())

	c.now = c.now.Add(7 * time.Hour)
	removed, err := m.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 1, store.Len())
}
