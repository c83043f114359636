package models

// Dish: a menu item the kitchen dispatches. Code is the business key used by
// every ledger table (code_no on the wire).
type Dish struct {
	Code      string  `gorm:"primaryKey;size:20" json:"code_no"`
	Name      string  `gorm:"size:150;not null" json:"item_name"`
	Rate      float64 `gorm:"not null;default:0" json:"rate"`
	SortOrder int     `gorm:"not null;default:0" json:"sort_order"`
}

type Branch struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:100;not null;unique" json:"name"`
}

// RawItem: kitchen raw ingredient (chicken, mutton, paneer...). Codes look
// like "1a", "3a" and are matched by the consumption mapping table.
type RawItem struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"size:20;not null;uniqueIndex" json:"code"`
	Name string `gorm:"size:150;not null" json:"item_name"`
}
