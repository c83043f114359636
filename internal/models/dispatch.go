package models

import (
	"fmt"
	"time"

	"mkitchen-backend/internal/apperr"
)

type Session string

const (
	SessionLunch  Session = "Lunch"
	SessionDinner Session = "Dinner"
)

func ParseSession(s string) (Session, error) {
	switch Session(s) {
	case SessionLunch, SessionDinner:
		return Session(s), nil
	}
	return "", apperr.Validation("session must be Lunch or Dinner, got %q", s)
}

// Rank orders sessions inside a day: Lunch before Dinner.
func (s Session) Rank() int {
	if s == SessionDinner {
		return 1
	}
	return 0
}

// Precedes reports whether (date, s) comes strictly before (otherDate, other).
// Dates are normalized YYYY-MM-DD strings so they compare lexicographically.
func Precedes(date string, s Session, otherDate string, other Session) bool {
	if date != otherDate {
		return date < otherDate
	}
	return s.Rank() < other.Rank()
}

type DispatchStatus string

const (
	DispatchPending    DispatchStatus = "PENDING"
	DispatchDispatched DispatchStatus = "DISPATCHED"
)

// Transition is the only way a dispatch status changes.
func (s DispatchStatus) Transition(to DispatchStatus) (DispatchStatus, error) {
	if s == DispatchPending && to == DispatchDispatched {
		return to, nil
	}
	return s, apperr.Transition("dispatch %s -> %s", s, to)
}

// Dispatch: one kitchen send-out per (date, session). Branch orders and sale
// reports hang off its ID.
type Dispatch struct {
	ID           uint           `gorm:"primaryKey" json:"dispatch_id"`
	DispatchDate string         `gorm:"size:10;not null;uniqueIndex:idx_dispatch_date_session" json:"dispatch_date"`
	Session      Session        `gorm:"size:10;not null;uniqueIndex:idx_dispatch_date_session" json:"session"`
	Status       DispatchStatus `gorm:"size:20;not null;default:PENDING" json:"status"`
	DispatchedAt *time.Time     `json:"dispatched_at"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (d Dispatch) String() string {
	return fmt.Sprintf("%s/%s", d.DispatchDate, d.Session)
}
