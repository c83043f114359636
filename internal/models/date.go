package models

import (
	"time"

	"mkitchen-backend/internal/apperr"
)

// DateLayout is the storage format of every business date column.
const DateLayout = "2006-01-02"

// ParseDate normalizes a "YYYY-MM-DD" string; anything else is rejected.
func ParseDate(s string) (string, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", apperr.Validation("date %q must be YYYY-MM-DD", s)
	}
	return t.Format(DateLayout), nil
}

// PrevDate returns the previous calendar day of a normalized date.
func PrevDate(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(DateLayout)
}

func Today(now time.Time) string {
	return now.Format(DateLayout)
}
