package database

import (
	"time"

	"github.com/truecost/backend/internal/models"
)

// Timestamps are stored as RFC3339 UTC strings with second precision, so
// the YYYY-MM period of a row is a plain prefix comparison.

func NowRFC3339() string {
	return time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
}

// NormalizeTimestamp validates an optional caller-supplied RFC3339 time
// and converts it to UTC; nil means now.
func NormalizeTimestamp(value *string) (string, error) {
	if value == nil || *value == "" {
		return NowRFC3339(), nil
	}
	parsed, err := time.Parse(time.RFC3339, *value)
	if err != nil {
		return "", models.NewValidationError("time must be RFC3339, e.g. 2026-02-22T12:00:00Z")
	}
	return parsed.UTC().Truncate(time.Second).Format(time.RFC3339), nil
}
