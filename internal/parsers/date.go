package parsers

import (
	"fmt"
	"strings"
	"time"
)

// dateFormats is tried in order; the first layout that parses wins.
// Day-first "02-01-2006" precedes month-first "01/02/2006" because the dash and
// slash separators keep them from overlapping.
var dateFormats = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"02-01-2006",
	"01/02/2006 15:04:05",
	"01/02/2006",
	"2006/01/02",
	"02 Jan 2006 15:04",
	"02 Jan 2006 03:04 PM",
	"02 Jan 2006",
	"2 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"02.01.2006",
}

// ParseDate parses a statement date using the supported layouts. Dates without
// a zone are interpreted as UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date string cannot be empty")
	}

	var lastErr error
	for _, format := range dateFormats {
		t, err := time.Parse(format, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, fmt.Errorf("unable to parse date '%s': %w", s, lastErr)
}
