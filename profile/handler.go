package profile

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eportal/backend/auth"
	"github.com/eportal/backend/httpx"
	"github.com/eportal/backend/internal/timeutil"
	"github.com/eportal/backend/models"
	"github.com/eportal/backend/view"
)

// Store reads and edits profiles.
type Store interface {
	Profile(ctx context.Context, userID int64) (*models.Profile, error)
	UpdateProfile(ctx context.Context, userID int64, upd models.ProfileUpdate) error
}

// SessionUpdater rewrites the principal of the current session.
type SessionUpdater interface {
	Update(ctx context.Context, mutate func(*auth.Principal)) (*auth.Principal, error)
}

// Handler serves the profile of whoever is signed in.
type Handler struct {
	store    Store
	sessions SessionUpdater
	logger   *slog.Logger
}

// NewHandler creates a profile handler.
func NewHandler(store Store, sessions SessionUpdater, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, sessions: sessions, logger: logger}
}

// Routes registers profile routes. Any authenticated principal may use them.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.show)
	r.Post("/update", h.update)
	return r
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	principal := auth.FromContext(r.Context())
	prof, err := h.store.Profile(r.Context(), principal.ID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "profile not found")
			return
		}
		httpx.ServerError(w, r, h.logger, "profile fetch error", err)
		return
	}

	data := map[string]any{"profile": prof}
	if msg := r.URL.Query().Get("success"); msg != "" {
		data["success"] = msg
	}
	if msg := r.URL.Query().Get("error"); msg != "" {
		data["error"] = msg
	}
	view.Render(w, r, http.StatusOK, data)
}

type updatePayload struct {
	FullName    *string `json:"full_name" validate:"omitempty,max=200"`
	Phone       *string `json:"phone" validate:"omitempty,max=64"`
	DateOfBirth *string `json:"date_of_birth"`
	NickName    *string `json:"nick_name" validate:"omitempty,max=100"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	principal := auth.FromContext(r.Context())

	var payload updatePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := httpx.Validate(payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, "Failed to update profile")
		return
	}

	var dob *string
	if payload.DateOfBirth != nil {
		parsed, err := timeutil.ParseOptionalDate(*payload.DateOfBirth)
		if err != nil {
			httpx.Error(w, http.StatusBadRequest, "date_of_birth must be a date in YYYY-MM-DD format")
			return
		}
		formatted := ""
		if parsed != nil {
			formatted = timeutil.FormatDate(*parsed)
		}
		dob = &formatted
	}

	upd := models.ProfileUpdate{
		FullName:    payload.FullName,
		Phone:       payload.Phone,
		DateOfBirth: dob,
		NickName:    payload.NickName,
	}
	if err := h.store.UpdateProfile(r.Context(), principal.ID, upd); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "profile not found")
			return
		}
		httpx.ServerError(w, r, h.logger, "profile update error", err)
		return
	}

	updated, err := h.sessions.Update(r.Context(), func(p *auth.Principal) {
		if upd.FullName != nil && strings.TrimSpace(*upd.FullName) != "" {
			p.FullName = strings.TrimSpace(*upd.FullName)
		}
		if upd.Phone != nil {
			p.Phone = blankToNil(*upd.Phone)
		}
		if upd.DateOfBirth != nil {
			p.DateOfBirth = blankToNil(*upd.DateOfBirth)
		}
	})
	if err != nil {
		httpx.ServerError(w, r, h.logger, "profile session sync error", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"user":     updated,
		"redirect": "/profile?success=Profile+updated+successfully",
	})
}

func blankToNil(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
