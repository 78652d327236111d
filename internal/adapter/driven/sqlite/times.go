package sqlite

import (
	"fmt"
	"time"
)

// timeLayout is the fixed-width UTC format used for every timestamp column.
// Trailing zeros are kept so that lexicographic string comparison in SQL
// (range queries, ORDER BY) matches chronological order.
const timeLayout = "2006-01-02 15:04:05.000000000"

// formatTime renders t for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime reads a stored timestamp back. Accepts the canonical layout plus
// the bare CURRENT_TIMESTAMP form for rows written by SQLite defaults.
func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{timeLayout, "2006-01-02 15:04:05", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
