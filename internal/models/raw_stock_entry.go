package models

import "time"

// RawStockEntry: daily ledger row of a raw item. Closing of day N is the
// opening balance of day N+1.
type RawStockEntry struct {
	ID          uint      `gorm:"primaryKey" json:"-"`
	Date        string    `gorm:"size:10;not null;uniqueIndex:idx_raw_stock_key" json:"date"`
	ItemCode    string    `gorm:"size:20;not null;uniqueIndex:idx_raw_stock_key" json:"item_code"`
	Received    float64   `gorm:"not null;default:0" json:"received"`
	Wastage     float64   `gorm:"not null;default:0" json:"wastage"`
	Consumption float64   `gorm:"not null;default:0" json:"consumption"`
	Closing     float64   `gorm:"not null;default:0" json:"closing"`
	UpdatedAt   time.Time `json:"updated_at"`
}
