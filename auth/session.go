package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultCookieName names the session cookie.
	DefaultCookieName = "portal_session"

	// DefaultMaxAge is the fixed session lifetime.
	DefaultMaxAge = 8 * time.Hour

	tokenLength = 32
)

// SessionOptions tunes a SessionManager.
type SessionOptions struct {
	CookieName string
	MaxAge     time.Duration
	Secure     bool
	Logger     *slog.Logger
	Now        func() time.Time
}

// SessionManager owns the session lifecycle: create, read, update, destroy
// and sweep. Cookies carry an opaque random token signed with the session
// secret; the store only ever sees the token's hash.
type SessionManager struct {
	store      SessionStore
	secret     []byte
	cookieName string
	maxAge     time.Duration
	secure     bool
	logger     *slog.Logger
	now        func() time.Time
}

// NewSessionManager constructs a session manager with the provided HMAC
// secret. The secret is required and should be randomly generated for
// production deployments.
func NewSessionManager(store SessionStore, secret string, opts SessionOptions) (*SessionManager, error) {
	if store == nil {
		return nil, errors.New("session store must be configured")
	}
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return nil, errors.New("session secret must be configured")
	}

	m := &SessionManager{
		store:      store,
		secret:     []byte(trimmed),
		cookieName: opts.CookieName,
		maxAge:     opts.MaxAge,
		secure:     opts.Secure,
		logger:     opts.Logger,
		now:        opts.Now,
	}
	if m.cookieName == "" {
		m.cookieName = DefaultCookieName
	}
	if m.maxAge <= 0 {
		m.maxAge = DefaultMaxAge
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// CookieName returns the name of the session cookie.
func (m *SessionManager) CookieName() string {
	return m.cookieName
}

// Create binds principal to a fresh session and writes the cookie. Any
// session the request already carried is destroyed first.
func (m *SessionManager) Create(ctx context.Context, w http.ResponseWriter, r *http.Request, principal Principal) error {
	if key, ok := m.keyFromRequest(r); ok {
		if err := m.store.Delete(ctx, key); err != nil {
			m.logger.WarnContext(ctx, "failed to drop previous session", slog.Any("error", err))
		}
	}

	token, err := randomToken()
	if err != nil {
		return fmt.Errorf("generate session token: %w", err)
	}

	now := m.now()
	session := &Session{
		Key:       hashToken(token),
		Principal: principal.Clone(),
		CreatedAt: now,
		ExpiresAt: now.Add(m.maxAge),
	}
	if err := m.store.Create(ctx, session); err != nil {
		return fmt.Errorf("store session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    m.sign(token),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(m.maxAge.Seconds()),
		Expires:  session.ExpiresAt,
	})
	return nil
}

// Destroy deletes the request's session, if any, and clears the cookie. It
// succeeds on an already anonymous request.
func (m *SessionManager) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	defer m.clear(w)

	key, ok := m.keyFromRequest(r)
	if !ok {
		return nil
	}
	if err := m.store.Delete(ctx, key); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Update applies mutate to the principal of the request's session and
// writes it back. Concurrent updates to one session are last-writer-wins.
func (m *SessionManager) Update(ctx context.Context, mutate func(*Principal)) (*Principal, error) {
	key := sessionKeyFromContext(ctx)
	if key == "" {
		return nil, ErrSessionNotFound
	}
	session, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	principal := session.Principal.Clone()
	mutate(&principal)
	if err := m.store.Update(ctx, key, principal); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return &principal, nil
}

// Sweep removes expired sessions from the store.
func (m *SessionManager) Sweep(ctx context.Context) (int64, error) {
	return m.store.DeleteExpired(ctx, m.now())
}

// Middleware attaches the principal of a live session to the request
// context. Missing, forged, unknown or expired sessions leave the request
// anonymous. Authenticated responses are marked non-cacheable.
func (m *SessionManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := m.keyFromRequest(r)
		if !ok {
			if m.hasCookie(r) {
				m.clear(w)
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		session, err := m.store.Get(ctx, key)
		if err != nil {
			if !errors.Is(err, ErrSessionNotFound) {
				m.logger.ErrorContext(ctx, "session lookup failed", slog.Any("error", err))
			}
			m.clear(w)
			next.ServeHTTP(w, r)
			return
		}

		if session.Expired(m.now()) {
			if err := m.store.Delete(ctx, key); err != nil {
				m.logger.WarnContext(ctx, "failed to delete expired session", slog.Any("error", err))
			}
			m.clear(w)
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")

		ctx = WithPrincipal(ctx, session.Principal)
		ctx = withSessionKey(ctx, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *SessionManager) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

func (m *SessionManager) hasCookie(r *http.Request) bool {
	c, err := r.Cookie(m.cookieName)
	return err == nil && c.Value != ""
}

// keyFromRequest verifies the cookie signature and returns the store key.
func (m *SessionManager) keyFromRequest(r *http.Request) (string, bool) {
	c, err := r.Cookie(m.cookieName)
	if err != nil || c.Value == "" {
		return "", false
	}
	token, err := m.verify(c.Value)
	if err != nil {
		return "", false
	}
	return hashToken(token), true
}

func (m *SessionManager) sign(token string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(token))
	return token + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (m *SessionManager) verify(value string) (string, error) {
	token, sig, found := strings.Cut(value, ".")
	if !found || token == "" {
		return "", errors.New("session cookie structure is invalid")
	}

	providedSig, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(token))
	if !hmac.Equal(providedSig, mac.Sum(nil)) {
		return "", errors.New("session cookie signature mismatch")
	}
	return token, nil
}

func randomToken() (string, error) {
	b := make([]byte, tokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
