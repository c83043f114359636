package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"mkitchen-backend/internal/apperr"
	"mkitchen-backend/internal/models"
)

type LogOptions struct {
	BranchID    *uint
	Actor       string
	EntityType  string
	EntityID    uint
	Action      models.AuditAction
	Description string
	After       any
}

// WriteLog inserts an audit row on tx. Called inside the ledger transaction
// so the trail and the data commit or roll back together.
func WriteLog(tx *gorm.DB, opts LogOptions) error {
	afterStr := "null"
	if opts.After != nil {
		if b, err := json.Marshal(opts.After); err == nil {
			afterStr = string(b)
		}
	}

	log := models.AuditLog{
		BranchID:    opts.BranchID,
		Actor:       opts.Actor,
		EntityType:  opts.EntityType,
		EntityID:    opts.EntityID,
		Action:      opts.Action,
		Description: opts.Description,
		AfterData:   afterStr,
	}

	if err := tx.Create(&log).Error; err != nil {
		return apperr.Storage("write audit log", fmt.Errorf("audit log could not be saved: %w", err))
	}
	return nil
}

type Filter struct {
	BranchID   *uint
	EntityType string
	EntityID   uint
	Limit      int
}

func List(ctx context.Context, db *gorm.DB, f Filter) ([]models.AuditLog, error) {
	q := db.WithContext(ctx).Model(&models.AuditLog{})
	if f.BranchID != nil {
		q = q.Where("branch_id = ?", *f.BranchID)
	}
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", f.EntityType)
	}
	if f.EntityID > 0 {
		q = q.Where("entity_id = ?", f.EntityID)
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	var logs []models.AuditLog
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, apperr.Storage("list audit logs", err)
	}
	return logs, nil
}
