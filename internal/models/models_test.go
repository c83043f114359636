package models

import (
	"errors"
	"testing"

	"mkitchen-backend/internal/apperr"
)

func TestPrecedes(t *testing.T) {
	tests := []struct {
		name       string
		date       string
		session    Session
		otherDate  string
		other      Session
		wantBefore bool
	}{
		{"earlier date", "2025-01-09", SessionDinner, "2025-01-10", SessionLunch, true},
		{"lunch before dinner same day", "2025-01-10", SessionLunch, "2025-01-10", SessionDinner, true},
		{"same slot is not strictly before", "2025-01-10", SessionLunch, "2025-01-10", SessionLunch, false},
		{"dinner after lunch same day", "2025-01-10", SessionDinner, "2025-01-10", SessionLunch, false},
		{"later date", "2025-01-11", SessionLunch, "2025-01-10", SessionDinner, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Precedes(tt.date, tt.session, tt.otherDate, tt.other); got != tt.wantBefore {
				t.Errorf("Precedes() = %v, want %v", got, tt.wantBefore)
			}
		})
	}
}

func TestOrderStatusTransition(t *testing.T) {
	got, err := OrderReceived.Transition(OrderDispatched)
	if err != nil || got != OrderDispatched {
		t.Fatalf("RECEIVED -> DISPATCHED: got %s, %v", got, err)
	}

	for _, from := range []OrderStatus{OrderDispatched} {
		for _, to := range []OrderStatus{OrderReceived, OrderDispatched} {
			if _, err := from.Transition(to); !errors.Is(err, apperr.ErrInvalidTransition) {
				t.Errorf("%s -> %s: expected invalid transition, got %v", from, to, err)
			}
		}
	}
	if _, err := OrderReceived.Transition(OrderReceived); err == nil {
		t.Error("RECEIVED -> RECEIVED should be rejected")
	}
}

func TestDispatchStatusTransition(t *testing.T) {
	if got, err := DispatchPending.Transition(DispatchDispatched); err != nil || got != DispatchDispatched {
		t.Fatalf("PENDING -> DISPATCHED: got %s, %v", got, err)
	}
	if _, err := DispatchDispatched.Transition(DispatchPending); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("DISPATCHED -> PENDING should be invalid, got %v", err)
	}
}

func TestParseSessionAndDate(t *testing.T) {
	if _, err := ParseSession("Breakfast"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
	if s, err := ParseSession("Dinner"); err != nil || s != SessionDinner {
		t.Errorf("ParseSession(Dinner) = %s, %v", s, err)
	}
	if _, err := ParseDate("10/01/2025"); err == nil {
		t.Error("expected error for non ISO date")
	}
	if got := PrevDate("2025-03-01"); got != "2025-02-28" {
		t.Errorf("PrevDate = %s", got)
	}
}

func TestScanTime(t *testing.T) {
	tests := []struct {
		name  string
		src   any
		valid bool
		want  string
	}{
		{"nil", nil, false, ""},
		{"sqlite text", "2025-03-01 12:30:00+00:00", true, "2025-03-01 12:30"},
		{"bytes", []byte("2025-03-01 12:30:00"), true, "2025-03-01 12:30"},
		{"rfc3339", "2025-03-01T12:30:00Z", true, "2025-03-01 12:30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var st ScanTime
			if err := st.Scan(tt.src); err != nil {
				t.Fatalf("Scan: %v", err)
			}
			if st.Valid != tt.valid || st.Format("2006-01-02 15:04") != tt.want {
				t.Errorf("got %+v (%q)", st, st.Format("2006-01-02 15:04"))
			}
		})
	}

	var st ScanTime
	if err := st.Scan(42); err == nil {
		t.Error("expected error for int")
	}
}
