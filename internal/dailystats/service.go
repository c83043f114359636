// Package dailystats records the kitchen's manual kg / plate entries per dish
// and day.
package dailystats

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mkitchen-backend/internal/apperr"
	"mkitchen-backend/internal/audit"
	"mkitchen-backend/internal/catalog"
	"mkitchen-backend/internal/models"
)

type Service struct {
	db      *gorm.DB
	catalog *catalog.Service
	now     func() time.Time
}

func NewService(db *gorm.DB, cat *catalog.Service, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{db: db, catalog: cat, now: now}
}

type Item struct {
	Code   string  `json:"code_no" validate:"required"`
	Kg     float64 `json:"kg" validate:"gte=0"`
	Plates float64 `json:"plates" validate:"gte=0"`
}

// Upsert writes every item of the date in one transaction. The last write
// per (date, dish) wins; nothing accumulates.
func (s *Service) Upsert(ctx context.Context, date string, items []Item, actor string) (int, error) {
	date, err := models.ParseDate(date)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, apperr.Validation("items must not be empty")
	}
	codes := make([]string, 0, len(items))
	for _, it := range items {
		if it.Code == "" || it.Kg < 0 || it.Plates < 0 {
			return 0, apperr.Validation("every item needs a code_no and non-negative kg/plates")
		}
		codes = append(codes, it.Code)
	}
	if err := s.catalog.RequireDishes(ctx, codes); err != nil {
		return 0, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, it := range items {
			row := models.DailyStat{Date: date, DishCode: it.Code, Kg: it.Kg, Plates: it.Plates}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "date"}, {Name: "dish_code"}},
				DoUpdates: clause.AssignmentColumns([]string{"kg", "plates", "updated_at"}),
			}).Create(&row).Error; err != nil {
				return apperr.Storage("upsert daily stat", err)
			}
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "daily_stat",
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("daily stats of %s saved: %d dishes", date, len(items)),
			After:       items,
		})
	})
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (s *Service) List(ctx context.Context, date string) ([]models.DailyStat, error) {
	date, err := models.ParseDate(date)
	if err != nil {
		return nil, err
	}
	var stats []models.DailyStat
	if err := s.db.WithContext(ctx).Where("date = ?", date).Order("dish_code").Find(&stats).Error; err != nil {
		return nil, apperr.Storage("list daily stats", err)
	}
	return stats, nil
}

// ByDish indexes the stats of a date by dish code.
func ByDish(stats []models.DailyStat) map[string]models.DailyStat {
	out := make(map[string]models.DailyStat, len(stats))
	for _, st := range stats {
		out[st.DishCode] = st
	}
	return out
}
