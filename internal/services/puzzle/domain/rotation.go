package domain

import (
	"time"

	apperrors "github.com/dailystump/stumpd/internal/platform/errors"
)

// ErrNoGeneratorsAvailable indicates an empty generator roster.
var ErrNoGeneratorsAvailable = apperrors.New(apperrors.CodeNoGeneratorsAvailable, "no generator models available")

// SelectGenerator deterministically assigns a generator model for one
// (date, category) pair. The index walks the roster daily, shifted by the
// category's fixed offset, so a fixed date spreads categories across
// distinct models whenever the roster is at least as large as the category
// set. Re-running selection for a past date always yields the same model.
func SelectGenerator(date time.Time, category Category, roster []string) (string, error) {
	if len(roster) == 0 {
		return "", ErrNoGeneratorsAvailable
	}
	index := (daysSinceEpoch(date) + category.RotationOffset()) % len(roster)
	return roster[index], nil
}

// daysSinceEpoch counts whole UTC days since the Unix epoch.
func daysSinceEpoch(date time.Time) int {
	utc := date.UTC()
	midnight := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	return int(midnight.Unix() / (24 * 60 * 60))
}
