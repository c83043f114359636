package models

import "time"

// DailyStat: manual kitchen entry per dish and day. Kg feeds the raw-stock
// mapper, Plates > 0 overrides the dispatched plate count on the statement.
type DailyStat struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	Date      string    `gorm:"size:10;not null;uniqueIndex:idx_daily_stat_key" json:"date"`
	DishCode  string    `gorm:"size:20;not null;uniqueIndex:idx_daily_stat_key" json:"code_no"`
	Kg        float64   `gorm:"not null;default:0" json:"kg"`
	Plates    float64   `gorm:"not null;default:0" json:"plates"`
	UpdatedAt time.Time `json:"updated_at"`
}
