// Package dispatch owns the (date, session) -> dispatch identity.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mkitchen-backend/internal/apperr"
	"mkitchen-backend/internal/audit"
	"mkitchen-backend/internal/models"
)

type Registry struct {
	db  *gorm.DB
	now func() time.Time
}

func NewRegistry(db *gorm.DB, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{db: db, now: now}
}

// GetOrCreate resolves the dispatch of (date, session), creating it PENDING
// when absent. The insert is conditional on the unique index, so concurrent
// callers converge on the same row.
func (r *Registry) GetOrCreate(ctx context.Context, date string, session models.Session) (models.Dispatch, error) {
	return GetOrCreateTx(r.db.WithContext(ctx), date, session)
}

// GetOrCreateTx is GetOrCreate on a caller-owned handle, typically the
// transaction that writes the orders or reports of the dispatch.
func GetOrCreateTx(tx *gorm.DB, date string, session models.Session) (models.Dispatch, error) {
	d := models.Dispatch{DispatchDate: date, Session: session, Status: models.DispatchPending}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dispatch_date"}, {Name: "session"}},
		DoNothing: true,
	}).Create(&d).Error
	if err != nil {
		return models.Dispatch{}, apperr.Storage("insert dispatch", err)
	}

	var found models.Dispatch
	if err := tx.Where("dispatch_date = ? AND session = ?", date, session).First(&found).Error; err != nil {
		return models.Dispatch{}, apperr.Storage(fmt.Sprintf("load dispatch %s/%s", date, session), err)
	}
	return found, nil
}

// Lookup returns the dispatch of (date, session) without creating it, nil
// when there is none.
func Lookup(db *gorm.DB, date string, session models.Session) (*models.Dispatch, error) {
	var d []models.Dispatch
	if err := db.
		Where("dispatch_date = ? AND session = ?", date, session).
		Limit(1).Find(&d).Error; err != nil {
		return nil, apperr.Storage("find dispatch", err)
	}
	if len(d) == 0 {
		return nil, nil
	}
	return &d[0], nil
}

func (r *Registry) ListByDate(ctx context.Context, date string) ([]models.Dispatch, error) {
	var list []models.Dispatch
	if err := r.db.WithContext(ctx).
		Where("dispatch_date = ?", date).
		Order("CASE WHEN session = 'Dinner' THEN 1 ELSE 0 END").
		Find(&list).Error; err != nil {
		return nil, apperr.Storage("list dispatches", err)
	}
	return list, nil
}

// MarkDispatched moves a dispatch from PENDING to DISPATCHED.
func (r *Registry) MarkDispatched(ctx context.Context, id uint, actor string) (models.Dispatch, error) {
	var out models.Dispatch
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d models.Dispatch
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&d, id).Error; err != nil {
			return apperr.Storage(fmt.Sprintf("dispatch %d", id), err)
		}
		next, err := d.Status.Transition(models.DispatchDispatched)
		if err != nil {
			return err
		}
		now := r.now()
		if err := tx.Model(&d).Updates(map[string]any{"status": next, "dispatched_at": now}).Error; err != nil {
			return apperr.Storage("update dispatch status", err)
		}
		d.Status, d.DispatchedAt = next, &now
		out = d
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "dispatch",
			EntityID:    d.ID,
			Action:      models.AuditActionConfirm,
			Description: fmt.Sprintf("dispatch %s marked dispatched", d),
			After:       d,
		})
	})
	return out, err
}

type DayStatus struct {
	DispatchDate string `json:"dispatch_date"`
	Lunch        bool   `json:"lunch"`
	Dinner       bool   `json:"dinner"`
}

// MonthStatus lists, for every date of the month that has any dispatch,
// which sessions exist.
func (r *Registry) MonthStatus(ctx context.Context, year, month int) ([]DayStatus, error) {
	if month < 1 || month > 12 || year < 2000 {
		return nil, apperr.Validation("invalid year/month %d/%d", year, month)
	}
	prefix := fmt.Sprintf("%04d-%02d-%%", year, month)

	var rows []struct {
		DispatchDate string
		Lunch        int
		Dinner       int
	}
	if err := r.db.WithContext(ctx).Model(&models.Dispatch{}).
		Select(`dispatch_date,
			MAX(CASE WHEN session = 'Lunch' THEN 1 ELSE 0 END) AS lunch,
			MAX(CASE WHEN session = 'Dinner' THEN 1 ELSE 0 END) AS dinner`).
		Where("dispatch_date LIKE ?", prefix).
		Group("dispatch_date").
		Order("dispatch_date").
		Scan(&rows).Error; err != nil {
		return nil, apperr.Storage("month status", err)
	}

	out := make([]DayStatus, 0, len(rows))
	for _, row := range rows {
		out = append(out, DayStatus{DispatchDate: row.DispatchDate, Lunch: row.Lunch == 1, Dinner: row.Dinner == 1})
	}
	return out, nil
}
