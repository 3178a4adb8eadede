package depthead

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/eportal/backend/auth"
	"github.com/eportal/backend/httpx"
	"github.com/eportal/backend/internal/csvreport"
	"github.com/eportal/backend/models"
	"github.com/eportal/backend/view"
)

// RequestStore lists a department's requests.
type RequestStore interface {
	ListForDepartment(ctx context.Context, departmentID int64, f models.RequestFilter) ([]models.RequestSummary, error)
}

// ReportStore computes department statistics and report rows.
type ReportStore interface {
	DepartmentStats(ctx context.Context, departmentID int64) (models.DepartmentStats, error)
	ReportRows(ctx context.Context, departmentID *int64) ([]models.ReportRow, error)
}

// ServiceCatalog lists the services of a department.
type ServiceCatalog interface {
	DepartmentServices(ctx context.Context, departmentID int64) ([]models.Service, error)
}

// Handler serves the department head dashboard and report.
type Handler struct {
	requests RequestStore
	reports  ReportStore
	services ServiceCatalog
	logger   *slog.Logger
}

// NewHandler creates a department head handler.
func NewHandler(requests RequestStore, reports ReportStore, services ServiceCatalog, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{requests: requests, reports: reports, services: services, logger: logger}
}

// Routes registers department head routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.dashboard)
	r.Get("/download-report", h.downloadReport)
	return r
}

type dashboardData struct {
	models.DepartmentStats
	Requests []models.RequestSummary `json:"requests"`
	Services []models.Service        `json:"services"`
	Filters  models.RequestFilter    `json:"filters"`
}

func departmentOf(w http.ResponseWriter, r *http.Request) (int64, bool) {
	principal := auth.FromContext(r.Context())
	if principal == nil || principal.DepartmentID == nil {
		httpx.Error(w, http.StatusForbidden, "No department assigned")
		return 0, false
	}
	return *principal.DepartmentID, true
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	deptID, ok := departmentOf(w, r)
	if !ok {
		return
	}
	filter, err := models.ParseRequestFilter(r.URL.Query())
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.reports.DepartmentStats(r.Context(), deptID)
	if err != nil {
		httpx.ServerError(w, r, h.logger, "dept head dashboard error", err)
		return
	}
	requests, err := h.requests.ListForDepartment(r.Context(), deptID, filter)
	if err != nil {
		httpx.ServerError(w, r, h.logger, "dept head dashboard error", err)
		return
	}
	services, err := h.services.DepartmentServices(r.Context(), deptID)
	if err != nil {
		httpx.ServerError(w, r, h.logger, "dept head dashboard error", err)
		return
	}

	view.Render(w, r, http.StatusOK, dashboardData{
		DepartmentStats: stats,
		Requests:        requests,
		Services:        services,
		Filters:         filter,
	})
}

func (h *Handler) downloadReport(w http.ResponseWriter, r *http.Request) {
	deptID, ok := departmentOf(w, r)
	if !ok {
		return
	}

	rows, err := h.reports.ReportRows(r.Context(), &deptID)
	if err != nil {
		httpx.ServerError(w, r, h.logger, "dept report download error", err)
		return
	}

	var buf bytes.Buffer
	if err := csvreport.Write(&buf, rows, false); err != nil {
		httpx.ServerError(w, r, h.logger, "dept report download error", err)
		return
	}
	csvreport.Attach(w, "dept_report.csv")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
