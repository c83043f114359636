package models

import "time"

// SaleReportEntry: a branch's reconciliation row for one dish of one dispatch.
// OB is nil when the branch had no earlier report ("-" on screen).
type SaleReportEntry struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DispatchID uint      `gorm:"not null;uniqueIndex:idx_sale_report_key" json:"dispatch_id"`
	Dispatch   *Dispatch `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	BranchID   uint      `gorm:"not null;uniqueIndex:idx_sale_report_key;index" json:"branch_id"`
	DishCode   string    `gorm:"size:20;not null;uniqueIndex:idx_sale_report_key" json:"code_no"`
	OB         *float64  `json:"ob"`
	Received   float64   `gorm:"not null;default:0" json:"received"`
	Total      float64   `gorm:"not null;default:0" json:"total"`
	Con        float64   `gorm:"not null;default:0" json:"con"`
	Others     float64   `gorm:"not null;default:0" json:"others"`
	Com        float64   `gorm:"not null;default:0" json:"com"`
	Total2     float64   `gorm:"not null;default:0" json:"total2"`
	CB         float64   `gorm:"not null;default:0" json:"cb"`
	SExes      float64   `gorm:"column:s_exes;not null;default:0" json:"s_exes"`
	Remarks    string    `gorm:"size:255" json:"remarks"`
	Report     string    `gorm:"size:255" json:"report"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
