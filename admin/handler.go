package admin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/eportal/backend/httpx"
	"github.com/eportal/backend/internal/csvreport"
	"github.com/eportal/backend/models"
	"github.com/eportal/backend/rbac"
	"github.com/eportal/backend/view"
)

// ReportStore computes organization-wide statistics.
type ReportStore interface {
	DepartmentLoads(ctx context.Context) ([]models.DepartmentLoad, error)
	StatusCounts(ctx context.Context) ([]models.StatusCount, error)
	TotalCollected(ctx context.Context) (int64, error)
	ReportRows(ctx context.Context, departmentID *int64) ([]models.ReportRow, error)
}

// RequestStore lists requests across departments.
type RequestStore interface {
	ListAll(ctx context.Context, f models.RequestFilter) ([]models.RequestSummary, error)
}

// Catalog lists services and departments.
type Catalog interface {
	AllServices(ctx context.Context) ([]models.Service, error)
	Departments(ctx context.Context) ([]models.Department, error)
}

// UserStore creates staff accounts.
type UserStore interface {
	CreateStaffUser(ctx context.Context, user models.NewUser, role string, departmentID *int64) (int64, error)
}

// PasswordHasher hashes new account passwords.
type PasswordHasher interface {
	HashPassword(password string) (string, error)
}

// Dependencies wires an admin handler.
type Dependencies struct {
	Reports  ReportStore
	Requests RequestStore
	Catalog  Catalog
	Users    UserStore
	Hasher   PasswordHasher
	Logger   *slog.Logger
	Now      func() time.Time
}

// Handler serves the administrator dashboard, staff provisioning and the
// organization report.
type Handler struct {
	deps   Dependencies
	logger *slog.Logger
}

// NewHandler creates an admin handler.
func NewHandler(deps Dependencies) *Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Handler{deps: deps, logger: deps.Logger}
}

// Routes registers admin routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.dashboard)
	r.Get("/add-user", h.addUserPage)
	r.Post("/add-user", h.addUser)
	r.Get("/download-report", h.downloadReport)
	return r
}

type dashboardData struct {
	DepartmentStats []models.DepartmentLoad `json:"dept_stats"`
	StatusStats     []models.StatusCount    `json:"status_stats"`
	TotalCollected  int64                   `json:"total_collected"`
	Requests        []models.RequestSummary `json:"requests"`
	Services        []models.Service        `json:"services"`
	Filters         models.RequestFilter    `json:"filters"`
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	filter, err := models.ParseRequestFilter(r.URL.Query())
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	data := dashboardData{Filters: filter, Requests: []models.RequestSummary{}}

	if data.DepartmentStats, err = h.deps.Reports.DepartmentLoads(ctx); err != nil {
		httpx.ServerError(w, r, h.logger, "admin dashboard error", err)
		return
	}
	if data.StatusStats, err = h.deps.Reports.StatusCounts(ctx); err != nil {
		httpx.ServerError(w, r, h.logger, "admin dashboard error", err)
		return
	}
	if data.TotalCollected, err = h.deps.Reports.TotalCollected(ctx); err != nil {
		httpx.ServerError(w, r, h.logger, "admin dashboard error", err)
		return
	}
	// The request list stays empty until a filter narrows it.
	if !filter.Empty() {
		if data.Requests, err = h.deps.Requests.ListAll(ctx, filter); err != nil {
			httpx.ServerError(w, r, h.logger, "admin dashboard error", err)
			return
		}
	}
	if data.Services, err = h.deps.Catalog.AllServices(ctx); err != nil {
		httpx.ServerError(w, r, h.logger, "admin dashboard error", err)
		return
	}

	view.Render(w, r, http.StatusOK, data)
}

func (h *Handler) addUserPage(w http.ResponseWriter, r *http.Request) {
	depts, err := h.deps.Catalog.Departments(r.Context())
	if err != nil {
		httpx.ServerError(w, r, h.logger, "add user page error", err)
		return
	}
	view.Render(w, r, http.StatusOK, map[string]any{"depts": depts})
}

type addUserPayload struct {
	FullName     string `json:"full_name" validate:"required,max=200"`
	Email        string `json:"email" validate:"required,email,max=254"`
	Password     string `json:"password" validate:"required,min=8,max=72"`
	DepartmentID *int64 `json:"department_id" validate:"omitempty,gt=0"`
	Role         string `json:"role" validate:"required,oneof=CITIZEN OFFICER DEPT_HEAD ADMIN"`
}

func (h *Handler) addUser(w http.ResponseWriter, r *http.Request) {
	var payload addUserPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	payload.FullName = strings.TrimSpace(payload.FullName)
	payload.Email = strings.TrimSpace(payload.Email)
	payload.Role = string(rbac.Canonical(payload.Role))

	if err := httpx.Validate(payload); err != nil {
		h.logger.WarnContext(r.Context(), "add user rejected", slog.Any("error", err))
		httpx.Error(w, http.StatusBadRequest, "Could not add user")
		return
	}
	role := rbac.Role(payload.Role)
	if (role == rbac.RoleOfficer || role == rbac.RoleDeptHead) && payload.DepartmentID == nil {
		httpx.Error(w, http.StatusBadRequest, "department_id is required for staff roles")
		return
	}

	hash, err := h.deps.Hasher.HashPassword(payload.Password)
	if err != nil {
		httpx.ServerError(w, r, h.logger, "error adding user", err)
		return
	}

	userID, err := h.deps.Users.CreateStaffUser(r.Context(), models.NewUser{
		FullName:     payload.FullName,
		Email:        payload.Email,
		PasswordHash: hash,
	}, payload.Role, payload.DepartmentID)
	if err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			h.logger.WarnContext(r.Context(), "error adding user", slog.Any("error", err))
			httpx.Error(w, http.StatusBadRequest, "Could not add user")
			return
		}
		httpx.ServerError(w, r, h.logger, "error adding user", err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"user_id": userID,
		"success": fmt.Sprintf("%s added successfully", payload.Role),
	})
}

func (h *Handler) downloadReport(w http.ResponseWriter, r *http.Request) {
	rows, err := h.deps.Reports.ReportRows(r.Context(), nil)
	if err != nil {
		httpx.ServerError(w, r, h.logger, "download report error", err)
		return
	}

	var buf bytes.Buffer
	if err := csvreport.Write(&buf, rows, true); err != nil {
		httpx.ServerError(w, r, h.logger, "download report error", err)
		return
	}
	csvreport.Attach(w, fmt.Sprintf("organization_report_%d.csv", h.deps.Now().UnixMilli()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
