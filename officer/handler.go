package officer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eportal/backend/auth"
	"github.com/eportal/backend/httpx"
	"github.com/eportal/backend/models"
	"github.com/eportal/backend/storage"
	"github.com/eportal/backend/view"
)

// Store is the request data an officer works on. Every lookup is scoped to
// the officer's department.
type Store interface {
	ListForDepartment(ctx context.Context, departmentID int64, f models.RequestFilter) ([]models.RequestSummary, error)
	ForDepartment(ctx context.Context, departmentID, requestID int64) (*models.RequestDetail, error)
	Review(ctx context.Context, review models.Review) error
	Document(ctx context.Context, departmentID, requestID int64, fileName string) (*models.Document, error)
}

// ServiceCatalog lists the services of a department.
type ServiceCatalog interface {
	DepartmentServices(ctx context.Context, departmentID int64) ([]models.Service, error)
}

// FileStore opens stored documents.
type FileStore interface {
	Open(path string) (*os.File, error)
}

// Handler serves the officer review screens.
type Handler struct {
	store    Store
	services ServiceCatalog
	files    FileStore
	logger   *slog.Logger
}

// NewHandler creates an officer handler.
func NewHandler(store Store, services ServiceCatalog, files FileStore, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, services: services, files: files, logger: logger}
}

// Routes registers officer routes. The router mounting them applies the
// OFFICER requirement.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.dashboard)
	r.Get("/request/{requestID}", h.review)
	r.Post("/request/{requestID}/action", h.action)
	r.Get("/request/{requestID}/document/{filename}", h.download)
	return r
}

var actionStatus = map[string]string{
	"approve": models.StatusApproved,
	"reject":  models.StatusRejected,
}

// department returns the caller's department, answering 403 when the
// officer has none.
func department(w http.ResponseWriter, r *http.Request) (*auth.Principal, int64, bool) {
	principal := auth.FromContext(r.Context())
	if principal == nil || principal.DepartmentID == nil {
		httpx.Error(w, http.StatusForbidden, "No department assigned")
		return nil, 0, false
	}
	return principal, *principal.DepartmentID, true
}

func requestID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "requestID"), 10, 64)
	return id, err == nil
}

type dashboardData struct {
	Requests []models.RequestSummary `json:"requests"`
	Services []models.Service        `json:"services"`
	Filters  models.RequestFilter    `json:"filters"`
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	_, deptID, ok := department(w, r)
	if !ok {
		return
	}

	filter, err := models.ParseRequestFilter(r.URL.Query())
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	requests, err := h.store.ListForDepartment(r.Context(), deptID, filter)
	if err != nil {
		httpx.ServerError(w, r, h.logger, "officer dashboard error", err)
		return
	}
	services, err := h.services.DepartmentServices(r.Context(), deptID)
	if err != nil {
		httpx.ServerError(w, r, h.logger, "officer dashboard error", err)
		return
	}

	view.Render(w, r, http.StatusOK, dashboardData{Requests: requests, Services: services, Filters: filter})
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request) {
	_, deptID, ok := department(w, r)
	if !ok {
		return
	}
	id, ok := requestID(r)
	if !ok {
		httpx.Error(w, http.StatusNotFound, "request not found")
		return
	}

	detail, err := h.store.ForDepartment(r.Context(), deptID, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "request not found")
			return
		}
		httpx.ServerError(w, r, h.logger, "officer review error", err)
		return
	}

	view.Render(w, r, http.StatusOK, detail)
}

func (h *Handler) action(w http.ResponseWriter, r *http.Request) {
	principal, deptID, ok := department(w, r)
	if !ok {
		return
	}
	id, ok := requestID(r)
	if !ok {
		httpx.Error(w, http.StatusNotFound, "request not found")
		return
	}

	var payload struct {
		Action string `json:"action"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	status, ok := actionStatus[strings.ToLower(strings.TrimSpace(payload.Action))]
	if !ok {
		httpx.Error(w, http.StatusBadRequest, "Invalid action")
		return
	}
	if principal.OfficerID == nil {
		httpx.Error(w, http.StatusForbidden, "No department assigned")
		return
	}

	err := h.store.Review(r.Context(), models.Review{
		RequestID:    id,
		DepartmentID: deptID,
		OfficerID:    *principal.OfficerID,
		Status:       status,
		Message:      fmt.Sprintf("Your request #%d has been %s.", id, strings.ToLower(status)),
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "request not found")
			return
		}
		httpx.ServerError(w, r, h.logger, "error updating request status", err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"request_id": id,
		"status":     status,
		"redirect":   "/officer",
	})
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	_, deptID, ok := department(w, r)
	if !ok {
		return
	}
	id, ok := requestID(r)
	if !ok {
		httpx.Error(w, http.StatusNotFound, "File not found")
		return
	}

	doc, err := h.store.Document(r.Context(), deptID, id, chi.URLParam(r, "filename"))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "File not found")
			return
		}
		httpx.ServerError(w, r, h.logger, "download document error", err)
		return
	}

	f, err := h.files.Open(doc.FilePath)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "File not found on server")
			return
		}
		httpx.ServerError(w, r, h.logger, "download document error", err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		httpx.ServerError(w, r, h.logger, "download document error", err)
		return
	}

	if doc.MimeType != "" {
		w.Header().Set("Content-Type", doc.MimeType)
	}
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	http.ServeContent(w, r, doc.FileName, info.ModTime(), f)
}
