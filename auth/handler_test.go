package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eportal/backend/models"
)

func newTestHandler(t *testing.T) (http.Handler, *fakeCredentials) {
	t.Helper()
	creds := &fakeCredentials{
		users: map[string]*models.User{
			"admin@city.gov": {ID: 1, Email: "admin@city.gov", FullName: "Ada", PasswordHash: hashed(t, "admin-pass")},
		},
		roles: map[int64][]string{1: {"admin"}},
	}
	sessions := newManager(t, NewMemoryStore(), &clock{now: time.Now()})
	h := NewHandler(newTestService(t, creds), sessions, nil)
	return sessions.Middleware(h.Routes()), creds
}

func serve(h http.Handler, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLoginEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)

	rec := serve(h, http.MethodPost, "/login", `{"email":"admin@city.gov","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())

	rec = serve(h, http.MethodPost, "/login", `{"email":"admin@city.gov","password":"admin-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp loginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "/admin", resp.Redirect)
	assert.Equal(t, []string{"ADMIN"}, resp.User.Roles)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	rec = serve(h, http.MethodGet, "/check-session", "", cookies[0])
	assert.JSONEq(t, `{"loggedIn":true}`, rec.Body.String())

	rec = serve(h, http.MethodGet, "/session", "", cookies[0])
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"email":"admin@city.gov"`)

	rec = serve(h, http.MethodPost, "/logout", "", cookies[0])
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))

	rec = serve(h, http.MethodGet, "/check-session", "", cookies[0])
	assert.JSONEq(t, `{"loggedIn":false}`, rec.Body.String())
}

func TestLoginRejectsMalformedBody(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := serve(h, http.MethodPost, "/login", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionInfoRequiresLogin(t *testing.T) {
	h, _ := newTestHandler(t)
	assert.Equal(t, http.StatusUnauthorized, serve(h, http.MethodGet, "/session", "").Code)
}

func TestRegisterEndpoint(t *testing.T) {
	h, creds := newTestHandler(t)
	body := `{"name":"Ben","email":"ben@example.com","password":"long-enough","dob":"1991-01-01"}`

	rec := serve(h, http.MethodPost, "/register", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"redirect":"/auth/login?success=1"}`, rec.Body.String())
	assert.Len(t, creds.created, 1)

	rec = serve(h, http.MethodPost, "/register", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Could not create user"}`, rec.Body.String())

	rec = serve(h, http.MethodGet, "/login?success=1", "")
	assert.Contains(t, rec.Body.String(), "Account created successfully")
}

type failingDeleteStore struct {
	*MemoryStore
}

func (failingDeleteStore) Delete(context.Context, string) error {
	return errors.New("db down")
}

func TestLogoutReportsStoreFailure(t *testing.T) {
	creds := &fakeCredentials{
		users: map[string]*models.User{
			"ann@example.com": {ID: 5, Email: "ann@example.com", PasswordHash: hashed(t, "citizen-pass")},
		},
		roles: map[int64][]string{5: {"CITIZEN"}},
	}
	sessions := newManager(t, failingDeleteStore{NewMemoryStore()}, &clock{now: time.Now()})
	h := sessions.Middleware(NewHandler(newTestService(t, creds), sessions, nil).Routes())

	rec := serve(h, http.MethodPost, "/login", `{"email":"ann@example.com","password":"citizen-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)

	rec = serve(h, http.MethodGet, "/logout", "", cookies[0])
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Header().Get("Location"))
	assert.JSONEq(t, `{"error":"Server error"}`, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Set-Cookie"), "Max-Age=0")
}
