package harvest

import (
	"strings"
	"time"
)

// ISODate formats a timestamp as the calendar-date string persisted in
// records.
func ISODate(t time.Time) string {
	return t.Format("2006-01-02")
}

// NormalizeDate coerces heterogeneous source date strings toward the
// YYYY-MM-DD form. Dotted and slashed separators are rewritten; strings that
// already start with an ISO calendar date are cut to it; anything else is
// returned as-is so provenance is not lost. Empty input yields nil.
func NormalizeDate(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	norm := strings.NewReplacer(".", "-", "/", "-").Replace(s)
	if len(norm) >= 10 && norm[4] == '-' && norm[7] == '-' {
		out := norm[:10]
		return &out
	}
	return &s
}
