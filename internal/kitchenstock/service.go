// Package kitchenstock keeps the daily raw ingredient ledger of the kitchen.
// Consumption is derived from dish level entries through the Mapping table.
package kitchenstock

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mkitchen-backend/internal/apperr"
	"mkitchen-backend/internal/audit"
	"mkitchen-backend/internal/catalog"
	"mkitchen-backend/internal/lock"
	"mkitchen-backend/internal/models"
)

type Service struct {
	db      *gorm.DB
	catalog *catalog.Service
	mapping *Mapping
	locker  lock.Locker
	now     func() time.Time
}

func NewService(db *gorm.DB, cat *catalog.Service, mapping *Mapping, locker lock.Locker, now func() time.Time) *Service {
	if locker == nil {
		locker = lock.Noop{}
	}
	if now == nil {
		now = time.Now
	}
	return &Service{db: db, catalog: cat, mapping: mapping, locker: locker, now: now}
}

type Row struct {
	Code        string  `json:"code_no"`
	Name        string  `json:"item_name"`
	OB          float64 `json:"ob"`
	Received    float64 `json:"received"`
	Consumption float64 `json:"consumption"`
	Wastage     float64 `json:"wastage"`
	Closing     float64 `json:"closing"`
	Saved       bool    `json:"saved"`
}

// inputs are the day's figures every consumption is derived from.
type inputs struct {
	prevClosing map[string]float64
	current     map[string]models.RawStockEntry
	kg          map[string]float64
	dispatched  map[string]float64
}

func loadInputs(db *gorm.DB, date string) (inputs, error) {
	in := inputs{
		prevClosing: map[string]float64{},
		current:     map[string]models.RawStockEntry{},
		kg:          map[string]float64{},
		dispatched:  map[string]float64{},
	}

	var prev []models.RawStockEntry
	if err := db.Where("date = ?", models.PrevDate(date)).Find(&prev).Error; err != nil {
		return in, apperr.Storage("load previous stock", err)
	}
	for _, e := range prev {
		in.prevClosing[e.ItemCode] = e.Closing
	}

	var cur []models.RawStockEntry
	if err := db.Where("date = ?", date).Find(&cur).Error; err != nil {
		return in, apperr.Storage("load stock", err)
	}
	for _, e := range cur {
		in.current[e.ItemCode] = e
	}

	var stats []models.DailyStat
	if err := db.Where("date = ?", date).Find(&stats).Error; err != nil {
		return in, apperr.Storage("load daily stats", err)
	}
	for _, st := range stats {
		in.kg[st.DishCode] = st.Kg
	}

	var disp []struct {
		DishCode string
		Qty      float64
	}
	if err := db.Table("branch_orders bo").
		Select("bo.dish_code, SUM(bo.qty) AS qty").
		Joins("JOIN dispatches d ON d.id = bo.dispatch_id").
		Where("d.dispatch_date = ? AND bo.status = ?", date, models.OrderDispatched).
		Group("bo.dish_code").
		Scan(&disp).Error; err != nil {
		return in, apperr.Storage("load dispatched qty", err)
	}
	for _, d := range disp {
		in.dispatched[d.DishCode] = d.Qty
	}
	return in, nil
}

// View merges, for every raw item, the previous day's closing with the
// day's figures. A saved row shows its stored consumption and closing; an
// unsaved one shows the derived consumption and ob + received - consumption - wastage.
func (s *Service) View(ctx context.Context, date string) ([]Row, error) {
	date, err := models.ParseDate(date)
	if err != nil {
		return nil, err
	}
	items, err := s.catalog.RawItems(ctx)
	if err != nil {
		return nil, err
	}
	in, err := loadInputs(s.db.WithContext(ctx), date)
	if err != nil {
		return nil, err
	}

	out := make([]Row, 0, len(items))
	for _, it := range items {
		row := Row{
			Code:        it.Code,
			Name:        it.Name,
			OB:          in.prevClosing[it.Code],
			Consumption: s.mapping.Consumption(it.Code, in.kg, in.dispatched),
		}
		if cur, ok := in.current[it.Code]; ok {
			row.Received, row.Wastage, row.Saved = cur.Received, cur.Wastage, true
			row.Consumption, row.Closing = cur.Consumption, cur.Closing
		} else {
			row.Closing = Closing(row.OB, row.Received, row.Consumption, row.Wastage)
		}
		out = append(out, row)
	}
	return out, nil
}

// Closing is the stock balance formula.
func Closing(ob, received, consumption, wastage float64) float64 {
	return ob + received - consumption - wastage
}

// SaveItem is one operator row. Nil Consumption takes the derived value,
// nil Closing takes the formula.
type SaveItem struct {
	Code        string   `json:"code_no" validate:"required"`
	Received    float64  `json:"received" validate:"gte=0"`
	Wastage     float64  `json:"wastage" validate:"gte=0"`
	Consumption *float64 `json:"consumption" validate:"omitempty,gte=0"`
	Closing     *float64 `json:"closing"`
}

// Save upserts the day's rows in one transaction, serialized per date.
func (s *Service) Save(ctx context.Context, date string, items []SaveItem, actor string) ([]models.RawStockEntry, error) {
	date, err := models.ParseDate(date)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperr.Validation("items must not be empty")
	}
	codes := make([]string, 0, len(items))
	for _, it := range items {
		if it.Code == "" || it.Received < 0 || it.Wastage < 0 {
			return nil, apperr.Validation("every item needs a code_no and non-negative received/wastage")
		}
		codes = append(codes, it.Code)
	}
	if err := s.catalog.RequireRawItems(ctx, codes); err != nil {
		return nil, err
	}

	release := s.locker.Acquire(ctx, "kitchen-stock:"+date)
	defer release()

	var saved []models.RawStockEntry
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		in, err := loadInputs(tx, date)
		if err != nil {
			return err
		}
		for _, it := range items {
			row := models.RawStockEntry{
				Date:        date,
				ItemCode:    it.Code,
				Received:    it.Received,
				Wastage:     it.Wastage,
				Consumption: s.mapping.Consumption(it.Code, in.kg, in.dispatched),
			}
			if it.Consumption != nil {
				row.Consumption = *it.Consumption
			}
			if it.Closing != nil {
				row.Closing = *it.Closing
			} else {
				row.Closing = Closing(in.prevClosing[it.Code], row.Received, row.Consumption, row.Wastage)
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "date"}, {Name: "item_code"}},
				DoUpdates: clause.AssignmentColumns([]string{"received", "wastage", "consumption", "closing", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return apperr.Storage("upsert raw stock", err)
			}
			saved = append(saved, row)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "raw_stock",
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("raw stock of %s saved: %d items", date, len(saved)),
			After:       saved,
		})
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}
