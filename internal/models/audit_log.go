package models

import "time"

type AuditAction string

const (
	AuditActionCreate  AuditAction = "create"
	AuditActionUpdate  AuditAction = "update"
	AuditActionReplace AuditAction = "replace"
	AuditActionConfirm AuditAction = "confirm"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// Which branch, if the entity belongs to one
	BranchID *uint `gorm:"index" json:"branch_id"`

	// Free-form operator name taken from the X-Actor header
	Actor string `gorm:"size:100" json:"actor"`

	// "dispatch", "branch_order", "sale_report", "daily_stat", "raw_stock"
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   uint   `gorm:"index" json:"entity_id"`

	Action      AuditAction `gorm:"size:20" json:"action"`
	Description string      `gorm:"size:255" json:"description"`

	AfterData string `gorm:"type:text" json:"after_data"`
}
