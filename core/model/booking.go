package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidInput marks a request the engine refuses to process. Callers
// should test for it with errors.Is.
var ErrInvalidInput = errors.New("invalid input")

// Booking is a historical rental booking. Only the date is used for forecasting.
type Booking struct {
	Date     string `json:"date"`
	Location string `json:"location,omitempty"`
}

// DateLayout is the calendar day format used in every engine output.
const DateLayout = "2006-01-02"

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04Z07:00",
	DateLayout,
}

// ParseTime parses an ISO-8601 timestamp or calendar date. Values without an
// explicit zone are read as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty timestamp", ErrInvalidInput)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparsable timestamp %q", ErrInvalidInput, s)
}

// TimeOrNow parses s and falls back to now when it is empty or malformed. The
// second return value is false when the fallback was used.
func TimeOrNow(s string, now time.Time) (time.Time, bool) {
	t, err := ParseTime(s)
	if err != nil {
		return now.UTC(), false
	}
	return t, true
}

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
