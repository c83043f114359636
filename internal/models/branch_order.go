package models

import (
	"time"

	"mkitchen-backend/internal/apperr"
)

type OrderStatus string

const (
	OrderReceived   OrderStatus = "RECEIVED"
	OrderDispatched OrderStatus = "DISPATCHED"
)

// Transition: RECEIVED -> DISPATCHED is the only allowed move.
func (s OrderStatus) Transition(to OrderStatus) (OrderStatus, error) {
	if s == OrderReceived && to == OrderDispatched {
		return to, nil
	}
	return s, apperr.Transition("branch order %s -> %s", s, to)
}

// Editable reports whether quantities of a row may still change.
func (s OrderStatus) Editable() bool {
	return s == OrderReceived
}

// BranchOrder: quantity of one dish a branch asked for in one dispatch.
type BranchOrder struct {
	ID           uint        `gorm:"primaryKey" json:"order_id"`
	DispatchID   uint        `gorm:"not null;uniqueIndex:idx_branch_order_key" json:"dispatch_id"`
	Dispatch     *Dispatch   `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	BranchID     uint        `gorm:"not null;uniqueIndex:idx_branch_order_key;index" json:"branch_id"`
	DishCode     string      `gorm:"size:20;not null;uniqueIndex:idx_branch_order_key;index" json:"code_no"`
	Qty          float64     `gorm:"not null;default:0" json:"qty"`
	Status       OrderStatus `gorm:"size:20;not null;default:RECEIVED;index" json:"status"`
	DispatchedAt *time.Time  `json:"dispatched_at"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
