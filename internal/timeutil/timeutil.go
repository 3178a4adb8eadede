package timeutil

import (
	"errors"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDate parses a calendar date. Browser datetime values such as
// "1990-04-02T00:00:00.000Z" are cut at the 'T' before parsing.
func ParseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, errors.New("date is required")
	}
	if i := strings.IndexByte(trimmed, 'T'); i >= 0 {
		trimmed = trimmed[:i]
	}
	parsed, err := time.ParseInLocation(dateLayout, trimmed, time.UTC)
	if err != nil {
		return time.Time{}, errors.New("date must be in YYYY-MM-DD format")
	}
	return parsed, nil
}

// ParseOptionalDate returns nil for blank input.
func ParseOptionalDate(value string) (*time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	parsed, err := ParseDate(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}
