// Package view renders page payloads in the envelope every screen shares.
package view

import (
	"net/http"

	"github.com/eportal/backend/auth"
	"github.com/eportal/backend/httpx"
	"github.com/eportal/backend/models"
	"github.com/eportal/backend/notifications"
)

// Page is the response envelope: the signed-in principal, the citizen
// notification feed and the screen's own data.
type Page struct {
	User          *auth.Principal       `json:"user"`
	Notifications []models.Notification `json:"notifications"`
	Data          any                   `json:"data"`
}

// Render writes data wrapped in a Page.
func Render(w http.ResponseWriter, r *http.Request, status int, data any) {
	httpx.WriteJSON(w, status, Page{
		User:          auth.FromContext(r.Context()),
		Notifications: notifications.FromContext(r.Context()),
		Data:          data,
	})
}
