package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/eportal/backend/auth"
	"github.com/eportal/backend/httpx"
	"github.com/eportal/backend/models"
)

type area string

func (a area) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"area": string(a)})
	})
	return r
}

type fakeCreds struct {
	users map[string]*models.User
	roles map[int64][]string
	affs  map[int64]*models.Affiliation
}

func (f *fakeCreds) FindActiveByEmail(_ context.Context, email string) (*models.User, error) {
	if u, ok := f.users[email]; ok {
		return u, nil
	}
	return nil, models.ErrNotFound
}

func (f *fakeCreds) AssignedRoles(_ context.Context, userID int64) ([]string, error) {
	return f.roles[userID], nil
}

func (f *fakeCreds) Affiliation(_ context.Context, userID int64) (*models.Affiliation, error) {
	return f.affs[userID], nil
}

func (f *fakeCreds) CreateUserWithRole(context.Context, models.NewUser, string) (int64, error) {
	return 0, errors.New("not supported")
}

const password = "correct horse"

func newTestRouter(t *testing.T, ready func(context.Context) error) http.Handler {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	creds := &fakeCreds{
		users: map[string]*models.User{
			"citizen@example.com": {ID: 1, Email: "citizen@example.com", FullName: "Cit", PasswordHash: string(hash), IsActive: true},
			"officer@city.gov":    {ID: 2, Email: "officer@city.gov", FullName: "Off", PasswordHash: string(hash), IsActive: true},
		},
		roles: map[int64][]string{1: {"citizen"}},
		affs: map[int64]*models.Affiliation{
			2: {OfficerID: 7, DepartmentID: 3, DepartmentName: "Planning", PositionName: "OFFICER"},
		},
	}
	service, err := auth.NewService(creds, bcrypt.MinCost, nil)
	require.NoError(t, err)
	sessions, err := auth.NewSessionManager(auth.NewMemoryStore(), "router-test-secret", auth.SessionOptions{})
	require.NoError(t, err)

	return NewRouter(Options{
		Sessions: sessions,
		Auth:     auth.NewHandler(service, sessions, nil),
		Citizen:  area("citizen"),
		Officer:  area("officer"),
		DeptHead: area("depthead"),
		Admin:    area("admin"),
		Profile:  area("profile"),
		Ready:    ready,
	})
}

func login(t *testing.T, h http.Handler, email string) *http.Cookie {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"`+email+`","password":"`+password+`"}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.DefaultCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func get(h http.Handler, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestAnonymousRequestsRedirectToLogin(t *testing.T) {
	h := newTestRouter(t, nil)

	for _, path := range []string{"/", "/citizen", "/officer", "/depthead", "/admin", "/profile"} {
		rec := get(h, path, nil)
		assert.Equal(t, http.StatusFound, rec.Code, path)
		assert.Equal(t, LoginPath, rec.Header().Get("Location"), path)
	}
}

func TestCitizenAreaGates(t *testing.T) {
	h := newTestRouter(t, nil)
	cookie := login(t, h, "citizen@example.com")

	rec := get(h, "/citizen", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"area":"citizen"`)
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")

	for _, path := range []string{"/officer", "/depthead", "/admin"} {
		rec := get(h, path, cookie)
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "Forbidden: insufficient role", path)
	}

	assert.Equal(t, http.StatusOK, get(h, "/profile", cookie).Code)
}

func TestOfficerRoleComesFromPosition(t *testing.T) {
	h := newTestRouter(t, nil)
	cookie := login(t, h, "officer@city.gov")

	assert.Equal(t, http.StatusOK, get(h, "/officer", cookie).Code)
	assert.Equal(t, http.StatusForbidden, get(h, "/citizen", cookie).Code)
}

func TestSessionReplayAfterLogout(t *testing.T) {
	h := newTestRouter(t, nil)
	cookie := login(t, h, "citizen@example.com")
	require.Equal(t, http.StatusOK, get(h, "/citizen", cookie).Code)

	rec := get(h, "/auth/logout", cookie)
	require.Equal(t, http.StatusFound, rec.Code)

	rec = get(h, "/citizen", cookie)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))
}

func TestForgedCookieIsAnonymous(t *testing.T) {
	h := newTestRouter(t, nil)
	cookie := login(t, h, "citizen@example.com")

	forged := *cookie
	forged.Value = cookie.Value[:len(cookie.Value)-2] + "xx"
	assert.Equal(t, http.StatusFound, get(h, "/citizen", &forged).Code)
}

func TestHealth(t *testing.T) {
	rec := get(newTestRouter(t, nil), "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	failing := func(context.Context) error { return errors.New("db down") }
	rec = get(newTestRouter(t, failing), "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
