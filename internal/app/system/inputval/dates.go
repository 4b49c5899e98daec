package inputval

import (
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// ParseDate parses a "YYYY-MM-DD" date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	return parseDate(s)
}

// ParseDateTime accepts RFC 3339 timestamps or bare "YYYY-MM-DD" dates.
func ParseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return parseDate(s)
}
