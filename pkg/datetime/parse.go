// Package datetime provides date and time utility functions.
package datetime

import (
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/scheme-engine/pkg/constants"
)

const (
	// DateLayout is the scheme date format exchanged with the backend.
	DateLayout = constants.DateLayout

	// InvalidDate is printed in place of a date that cannot be parsed.
	InvalidDate = "Invalid Date"
)

// acceptedLayouts lists every layout ParseDate tries, in order.
var acceptedLayouts = []string{
	DateLayout,
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
}

// MustParseTime parses a date string using the given layout and panics on error.
// This is intended for use in tests where the date string is known to be valid.
func MustParseTime(layout, dateStr string) time.Time {
	t, err := time.Parse(layout, dateStr)
	if err != nil {
		panic(err)
	}
	return t
}

// ParseDate parses a plain date or an ISO timestamp as sent by date pickers.
// The result is normalized to UTC.
func ParseDate(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", value)
}

// FormatDisplay renders a date string as DD-MM-YYYY. Empty input renders as
// an empty string and unparseable input as InvalidDate.
func FormatDisplay(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	t, err := ParseDate(value)
	if err != nil {
		return InvalidDate
	}
	return t.Format(constants.DisplayDateLayout)
}

// FormatDate renders t in the backend date layout, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}
