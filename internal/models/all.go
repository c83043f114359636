package models

// All lists every table in migration order, catalog first.
func All() []any {
	return []any{
		&Dish{},
		&Branch{},
		&RawItem{},
		&Dispatch{},
		&BranchOrder{},
		&SaleReportEntry{},
		&DailyStat{},
		&RawStockEntry{},
		&AuditLog{},
	}
}
