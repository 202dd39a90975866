package core

import (
	"strings"
	"time"
)

// DateLayout is the layout of calendar dates exchanged with clients.
const DateLayout = "2006-01-02"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// Now returns the current UTC time truncated to microseconds (postgres precision).
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
