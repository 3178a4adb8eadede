package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eportal/backend/httpx"
	"github.com/eportal/backend/rbac"
)

// Handler exposes login, registration and session endpoints.
type Handler struct {
	service  *Service
	sessions *SessionManager
	logger   *slog.Logger
}

// NewHandler constructs an auth handler.
func NewHandler(service *Service, sessions *SessionManager, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, sessions: sessions, logger: logger}
}

// Routes exposes the auth endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/login", h.loginPage)
	r.Post("/login", h.login)
	r.Get("/register", h.registerPage)
	r.Post("/register", h.register)
	r.Get("/logout", h.logout)
	r.Post("/logout", h.logout)
	r.Get("/check-session", h.checkSession)
	r.Get("/session", h.sessionInfo)
	return r
}

type loginPageResponse struct {
	User    *Principal `json:"user"`
	Success string     `json:"success,omitempty"`
}

func (h *Handler) loginPage(w http.ResponseWriter, r *http.Request) {
	resp := loginPageResponse{User: FromContext(r.Context())}
	if r.URL.Query().Get("success") != "" {
		resp.Success = "Account created successfully! Please log in."
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

type loginResponse struct {
	Redirect string    `json:"redirect"`
	User     Principal `json:"user"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	principal, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			httpx.Error(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		httpx.ServerError(w, r, h.logger, "login error", err)
		return
	}

	if err := h.sessions.Create(r.Context(), w, r, *principal); err != nil {
		httpx.ServerError(w, r, h.logger, "failed to create session", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, loginResponse{
		Redirect: rbac.LandingPath(principal.Roles),
		User:     *principal,
	})
}

func (h *Handler) registerPage(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"user": FromContext(r.Context())})
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var payload Registration
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	if err := h.service.Register(r.Context(), payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Could not create user")
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]string{"redirect": "/auth/login?success=1"})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	// The cookie is cleared even when the store delete fails.
	if err := h.sessions.Destroy(r.Context(), w, r); err != nil {
		httpx.ServerError(w, r, h.logger, "logout error", err)
		return
	}
	http.Redirect(w, r, "/auth/login", http.StatusFound)
}

func (h *Handler) checkSession(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"loggedIn": FromContext(r.Context()) != nil})
}

func (h *Handler) sessionInfo(w http.ResponseWriter, r *http.Request) {
	principal := FromContext(r.Context())
	if principal == nil {
		httpx.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, principal)
}
