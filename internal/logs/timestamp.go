package logs

import (
	"strconv"
	"strings"
	"time"
)

// Layouts accepted for backend timestamps, tried in order. Zone-less layouts
// are interpreted in the pipeline's location. A fractional second after the
// seconds field (".123" or ",123") is accepted by every layout.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"02/Jan/2006 15:04:05",
	"02/Jan/2006:15:04:05 -0700",
	"2006/01/02 15:04:05",
}

// ParseTimestamp parses a backend timestamp. Pure digit strings are taken as
// Unix seconds (10 digits) or milliseconds (13 digits).
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == NotAvailable {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}

	if isDigits(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		switch len(s) {
		case 10:
			return time.Unix(n, 0), true
		case 13:
			return time.UnixMilli(n), true
		default:
			return time.Time{}, false
		}
	}

	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
