package citizen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/eportal/backend/auth"
	"github.com/eportal/backend/httpx"
	"github.com/eportal/backend/models"
	"github.com/eportal/backend/payment"
	"github.com/eportal/backend/storage"
	"github.com/eportal/backend/view"
)

const (
	// MaxDocuments is the number of files one application may carry.
	MaxDocuments = 6

	unreadOnDashboard = 10
	multipartMemory   = 8 << 20
)

// RequestStore persists the citizen's service requests.
type RequestStore interface {
	ListForCitizen(ctx context.Context, citizenID int64, f models.CitizenFilter) ([]models.RequestSummary, error)
	ForCitizen(ctx context.Context, citizenID, requestID int64) (*models.RequestDetail, error)
	Create(ctx context.Context, req models.NewRequest) (int64, error)
}

// ServiceCatalog lists the services open for applications.
type ServiceCatalog interface {
	ActiveServices(ctx context.Context) ([]models.Service, error)
	// ActiveService returns models.ErrNotFound for unknown or inactive services.
	ActiveService(ctx context.Context, serviceID int64) (*models.Service, error)
}

// Inbox reads and acknowledges notifications.
type Inbox interface {
	Unread(ctx context.Context, userID int64, limit int) ([]models.Notification, error)
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
}

// FileStore keeps uploaded documents.
type FileStore interface {
	Save(fh *multipart.FileHeader) (models.NewDocument, error)
	Remove(path string) error
}

// Dependencies wires a citizen handler.
type Dependencies struct {
	Requests RequestStore
	Services ServiceCatalog
	Inbox    Inbox
	Files    FileStore
	Payments payment.Gateway
	// MaxUploadBytes caps the whole multipart body.
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// Handler serves the citizen self-service screens.
type Handler struct {
	deps   Dependencies
	logger *slog.Logger
}

// NewHandler creates a citizen handler.
func NewHandler(deps Dependencies) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = 50 << 20
	}
	return &Handler{deps: deps, logger: logger}
}

// Routes registers citizen routes. The router mounting them applies the
// CITIZEN requirement.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.dashboard)
	r.Get("/apply", h.applyPage)
	r.Post("/apply", h.apply)
	r.Get("/request/{requestID}", h.request)
	r.Post("/notifications/read", h.markNotificationsRead)
	return r
}

type dashboardData struct {
	Requests      []models.RequestSummary `json:"requests"`
	Notifications []models.Notification   `json:"unread_notifications"`
	Search        string                  `json:"search"`
	Status        string                  `json:"status"`
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	principal := auth.FromContext(r.Context())
	filter := models.CitizenFilter{
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Status: strings.TrimSpace(r.URL.Query().Get("status")),
	}
	if filter.Status == "" {
		filter.Status = "All"
	}

	requests, err := h.deps.Requests.ListForCitizen(r.Context(), principal.ID, filter)
	if err != nil {
		httpx.ServerError(w, r, h.logger, "citizen dashboard error", err)
		return
	}
	unread, err := h.deps.Inbox.Unread(r.Context(), principal.ID, unreadOnDashboard)
	if err != nil {
		httpx.ServerError(w, r, h.logger, "citizen dashboard error", err)
		return
	}

	view.Render(w, r, http.StatusOK, dashboardData{
		Requests:      requests,
		Notifications: unread,
		Search:        filter.Search,
		Status:        filter.Status,
	})
}

func (h *Handler) applyPage(w http.ResponseWriter, r *http.Request) {
	services, err := h.deps.Services.ActiveServices(r.Context())
	if err != nil {
		httpx.ServerError(w, r, h.logger, "apply page error", err)
		return
	}
	view.Render(w, r, http.StatusOK, map[string]any{"services": services})
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	principal := auth.FromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.deps.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	rawServiceID := strings.TrimSpace(r.FormValue("service_id"))
	if rawServiceID == "" {
		httpx.Error(w, http.StatusBadRequest, "Service not selected")
		return
	}
	serviceID, err := strconv.ParseInt(rawServiceID, 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusBadRequest, "invalid service id")
		return
	}

	// Nothing is stored or charged for a service that cannot be applied for.
	if _, err := h.deps.Services.ActiveService(r.Context(), serviceID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			httpx.Error(w, http.StatusBadRequest, "Service not found")
			return
		}
		httpx.ServerError(w, r, h.logger, "service lookup error", err)
		return
	}

	files := r.MultipartForm.File["documents"]
	if len(files) > MaxDocuments {
		httpx.Error(w, http.StatusBadRequest, fmt.Sprintf("at most %d documents may be attached", MaxDocuments))
		return
	}

	docs := make([]models.NewDocument, 0, len(files))
	cleanup := func() {
		for _, doc := range docs {
			if err := h.deps.Files.Remove(doc.FilePath); err != nil {
				h.logger.WarnContext(r.Context(), "failed to remove orphaned upload", slog.Any("error", err))
			}
		}
	}
	for _, fh := range files {
		doc, err := h.deps.Files.Save(fh)
		if err != nil {
			cleanup()
			if errors.Is(err, storage.ErrTooLarge) {
				httpx.Error(w, http.StatusBadRequest, "file too large")
				return
			}
			httpx.ServerError(w, r, h.logger, "store upload error", err)
			return
		}
		docs = append(docs, doc)
	}

	charge, err := h.deps.Payments.Charge(r.Context(), principal.ID, serviceID)
	if err != nil {
		cleanup()
		httpx.ServerError(w, r, h.logger, "payment error", err)
		return
	}

	var details *string
	if d := strings.TrimSpace(r.FormValue("details")); d != "" {
		details = &d
	}

	requestID, err := h.deps.Requests.Create(r.Context(), models.NewRequest{
		CitizenID:   principal.ID,
		ServiceID:   serviceID,
		Details:     details,
		Documents:   docs,
		AmountCents: charge.AmountCents,
		PaymentOK:   charge.Succeeded,
	})
	if err != nil {
		cleanup()
		if errors.Is(err, models.ErrNotFound) {
			httpx.Error(w, http.StatusBadRequest, "Service not found")
			return
		}
		httpx.ServerError(w, r, h.logger, "submit application error", err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"request_id": requestID,
		"redirect":   fmt.Sprintf("/citizen/request/%d", requestID),
	})
}

func (h *Handler) request(w http.ResponseWriter, r *http.Request) {
	principal := auth.FromContext(r.Context())
	requestID, err := strconv.ParseInt(chi.URLParam(r, "requestID"), 10, 64)
	if err != nil {
		httpx.Error(w, http.StatusNotFound, "Not found")
		return
	}

	detail, err := h.deps.Requests.ForCitizen(r.Context(), principal.ID, requestID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			httpx.Error(w, http.StatusNotFound, "Not found")
			return
		}
		httpx.ServerError(w, r, h.logger, "request detail error", err)
		return
	}

	view.Render(w, r, http.StatusOK, detail)
}

func (h *Handler) markNotificationsRead(w http.ResponseWriter, r *http.Request) {
	principal := auth.FromContext(r.Context())
	marked, err := h.deps.Inbox.MarkAllRead(r.Context(), principal.ID)
	if err != nil {
		httpx.ServerError(w, r, h.logger, "mark notifications error", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"marked": marked, "redirect": "/citizen"})
}
