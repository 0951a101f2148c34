package extract

import (
	"strings"
	"time"
)

var datetimeLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02-01-2006 15:04:05",
	"02/01/06 15:04:05",
}

var dateOnlyLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
}

// parseClinicalDatetime tries the datetime layouts used across the provider's
// clinical templates, then falls back to the date-only forms taking just the
// first whitespace token.
func parseClinicalDatetime(candidate string) *time.Time {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return nil
	}
	for _, layout := range datetimeLayouts {
		if parsed, err := time.Parse(layout, candidate); err == nil {
			return &parsed
		}
	}
	fields := strings.Fields(candidate)
	if len(fields) == 0 {
		return nil
	}
	for _, layout := range dateOnlyLayouts {
		if parsed, err := time.Parse(layout, fields[0]); err == nil {
			return &parsed
		}
	}
	return nil
}
