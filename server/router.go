// Package server assembles the HTTP router: the shared middleware stack,
// session loading and the role gates in front of every resource area.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/eportal/backend/auth"
	"github.com/eportal/backend/httpx"
	"github.com/eportal/backend/notifications"
	"github.com/eportal/backend/rbac"
)

// LoginPath is where unauthenticated requests are sent.
const LoginPath = "/auth/login"

// Mountable is a resource handler exposing its own sub-router.
type Mountable interface {
	Routes() chi.Router
}

// Options wires the router. Every handler is required; Feed and Ready are
// optional.
type Options struct {
	Sessions *auth.SessionManager
	Feed     *notifications.Feed

	Auth     Mountable
	Citizen  Mountable
	Officer  Mountable
	DeptHead Mountable
	Admin    Mountable
	Profile  Mountable

	// Ready reports backing store health for /api/health.
	Ready  func(ctx context.Context) error
	Logger *slog.Logger
}

// Role requirements of each protected area.
var (
	CitizenArea  = rbac.MustRequire(rbac.RoleCitizen)
	OfficerArea  = rbac.MustRequire(rbac.RoleOfficer)
	DeptHeadArea = rbac.MustRequire(rbac.RoleDeptHead)
	AdminArea    = rbac.MustRequire(rbac.RoleAdmin)
)

// NewRouter builds the application router.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	router.Use(opts.Sessions.Middleware)
	if opts.Feed != nil {
		router.Use(opts.Feed.Middleware)
	}

	router.Get("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if opts.Ready != nil {
			if err := opts.Ready(r.Context()); err != nil {
				logger.ErrorContext(r.Context(), "health check failed", slog.Any("error", err))
				httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, LoginPath, http.StatusFound)
	})

	enforcer := rbac.NewEnforcer(auth.ResolveRoles, LoginPath)

	router.Mount("/auth", opts.Auth.Routes())
	mountGuarded(router, enforcer, "/citizen", CitizenArea, opts.Citizen)
	mountGuarded(router, enforcer, "/officer", OfficerArea, opts.Officer)
	mountGuarded(router, enforcer, "/depthead", DeptHeadArea, opts.DeptHead)
	mountGuarded(router, enforcer, "/admin", AdminArea, opts.Admin)

	router.Group(func(r chi.Router) {
		r.Use(enforcer.Authenticate())
		r.Mount("/profile", opts.Profile.Routes())
	})

	return router
}

func mountGuarded(router chi.Router, enforcer *rbac.Enforcer, prefix string, req rbac.Requirement, h Mountable) {
	router.Group(func(r chi.Router) {
		r.Use(enforcer.Authenticate(), enforcer.Require(req))
		r.Mount(prefix, h.Routes())
	})
}
