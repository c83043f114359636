package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// ScanTime reads timestamps coming out of aggregates such as
// MAX(dispatched_at). Some drivers hand those back as text instead of
// time.Time, so both forms are accepted.
type ScanTime struct {
	Time  time.Time
	Valid bool
}

var scanLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

func (t *ScanTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = v, true
		return nil
	case []byte:
		return t.parse(string(v))
	case string:
		return t.parse(v)
	}
	return fmt.Errorf("ScanTime: unsupported type %T", src)
}

func (t *ScanTime) parse(s string) error {
	for _, layout := range scanLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time, t.Valid = parsed, true
			return nil
		}
	}
	return fmt.Errorf("ScanTime: cannot parse %q", s)
}

func (t ScanTime) Value() (driver.Value, error) {
	if !t.Valid {
		return nil, nil
	}
	return t.Time, nil
}

// Format renders the time with layout, or "" when NULL.
func (t ScanTime) Format(layout string) string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format(layout)
}
