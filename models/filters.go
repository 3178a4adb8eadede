package models

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/eportal/backend/internal/timeutil"
)

// ParseRequestFilter reads the staff listing filters name, request_id,
// status, service_id and date (YYYY-MM-DD) from a query string.
func ParseRequestFilter(q url.Values) (RequestFilter, error) {
	f := RequestFilter{
		Name:      strings.TrimSpace(q.Get("name")),
		RequestID: strings.TrimSpace(q.Get("request_id")),
		Status:    strings.ToUpper(strings.TrimSpace(q.Get("status"))),
	}

	if raw := strings.TrimSpace(q.Get("service_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return RequestFilter{}, fmt.Errorf("invalid service_id %q", raw)
		}
		f.ServiceID = &id
	}

	date, err := timeutil.ParseOptionalDate(q.Get("date"))
	if err != nil {
		return RequestFilter{}, fmt.Errorf("invalid date: %w", err)
	}
	f.Date = date

	return f, nil
}
