package notifications

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/eportal/backend/auth"
	"github.com/eportal/backend/models"
	"github.com/eportal/backend/rbac"
)

// FeedSize is the number of notifications attached to citizen requests.
const FeedSize = 5

// Source loads a user's most relevant notifications.
type Source interface {
	Recent(ctx context.Context, userID int64, limit int) ([]models.Notification, error)
}

type contextKey struct{}

// Feed attaches recent notifications to requests of authenticated citizens.
// Lookup failures are logged and leave an empty feed.
type Feed struct {
	source Source
	logger *slog.Logger
}

// NewFeed constructs the feed middleware.
func NewFeed(source Source, logger *slog.Logger) *Feed {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feed{source: source, logger: logger}
}

// Middleware loads the feed for citizen principals.
func (f *Feed) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal := auth.FromContext(r.Context())
		if principal == nil || !principal.HasRole(rbac.RoleCitizen) {
			next.ServeHTTP(w, r)
			return
		}

		items, err := f.source.Recent(r.Context(), principal.ID, FeedSize)
		if err != nil {
			f.logger.ErrorContext(r.Context(), "notification fetch error", slog.Any("error", err))
			items = nil
		}
		if items == nil {
			items = []models.Notification{}
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, items)))
	})
}

// FromContext returns the feed attached to ctx, or an empty list.
func FromContext(ctx context.Context) []models.Notification {
	items, _ := ctx.Value(contextKey{}).([]models.Notification)
	if items == nil {
		return []models.Notification{}
	}
	return items
}
