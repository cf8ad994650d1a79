package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// storedLayout is fixed-width UTC so stored timestamps sort as text.
const storedLayout = "2006-01-02T15:04:05.000000000Z07:00"

// FormatTime renders t the way every table stores timestamps.
func FormatTime(t time.Time) string {
	return t.UTC().Format(storedLayout)
}

// NullableTime returns nil for the zero time so the column stores NULL.
func NullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return FormatTime(t)
}

// ParseTime reads a stored timestamp. Besides RFC3339 it accepts the
// space-separated forms SQLite's own date functions produce.
func ParseTime(value string) (time.Time, error) {
	if idx := strings.Index(value, " m="); idx != -1 {
		value = value[:idx]
	}
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time format: %q", value)
}

// ParseNullTime reads an optional stored timestamp; NULL is the zero time.
func ParseNullTime(value sql.NullString) (time.Time, error) {
	if !value.Valid || value.String == "" {
		return time.Time{}, nil
	}
	return ParseTime(value.String)
}

// LikePattern wraps a search term for a LIKE ... ESCAPE '\' clause.
func LikePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}
