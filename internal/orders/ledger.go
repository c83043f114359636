// Package orders is the branch order ledger: what each branch asked the
// kitchen for per dispatch, and the RECEIVED -> DISPATCHED confirmation.
package orders

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mkitchen-backend/internal/apperr"
	"mkitchen-backend/internal/audit"
	"mkitchen-backend/internal/catalog"
	"mkitchen-backend/internal/database"
	"mkitchen-backend/internal/dispatch"
	"mkitchen-backend/internal/models"
)

type Ledger struct {
	db      *gorm.DB
	catalog *catalog.Service
	now     func() time.Time
}

func NewLedger(db *gorm.DB, cat *catalog.Service, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{db: db, catalog: cat, now: now}
}

type Item struct {
	Code string  `json:"code_no" validate:"required"`
	Qty  float64 `json:"qty" validate:"gte=0"`
}

// BatchRequest addresses the rows of one (dispatch, branch). An empty Date
// means today.
type BatchRequest struct {
	Date     string
	Session  models.Session
	BranchID uint
	Items    []Item
	Actor    string
}

type BatchResult struct {
	DispatchID uint `json:"dispatch_id"`
	Rows       int  `json:"rows"`
}

func (l *Ledger) normalize(req *BatchRequest) error {
	if req.Date == "" {
		req.Date = models.Today(l.now())
	}
	date, err := models.ParseDate(req.Date)
	if err != nil {
		return err
	}
	req.Date = date
	if _, err := models.ParseSession(string(req.Session)); err != nil {
		return err
	}
	if req.BranchID == 0 {
		return apperr.Validation("branch_id is required")
	}
	return nil
}

func (l *Ledger) requireRefs(ctx context.Context, branchID uint, items []Item) error {
	if err := l.catalog.RequireBranch(ctx, branchID); err != nil {
		return err
	}
	codes := make([]string, 0, len(items))
	for _, it := range items {
		codes = append(codes, it.Code)
	}
	return l.catalog.RequireDishes(ctx, codes)
}

// AddIncremental adds each item's qty to the existing row, inserting rows
// that do not exist yet. Calling it twice with the same batch doubles the
// quantities.
func (l *Ledger) AddIncremental(ctx context.Context, req BatchRequest) (BatchResult, error) {
	if err := l.normalize(&req); err != nil {
		return BatchResult{}, err
	}
	if len(req.Items) == 0 {
		return BatchResult{}, apperr.Validation("items must not be empty")
	}
	for _, it := range req.Items {
		if it.Code == "" || it.Qty <= 0 {
			return BatchResult{}, apperr.Validation("every item needs a code_no and a positive qty")
		}
	}
	if err := l.requireRefs(ctx, req.BranchID, req.Items); err != nil {
		return BatchResult{}, err
	}

	var res BatchResult
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := dispatch.GetOrCreateTx(tx, req.Date, req.Session)
		if err != nil {
			return err
		}
		res.DispatchID = d.ID

		codes := make([]string, 0, len(req.Items))
		for _, it := range req.Items {
			codes = append(codes, it.Code)
		}
		if err := rejectDispatched(tx, d.ID, req.BranchID, codes); err != nil {
			return err
		}

		now := l.now()
		for _, it := range req.Items {
			row := models.BranchOrder{
				DispatchID: d.ID,
				BranchID:   req.BranchID,
				DishCode:   it.Code,
				Qty:        it.Qty,
				Status:     models.OrderReceived,
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: orderKey,
				DoUpdates: clause.Assignments(map[string]any{
					"qty":        accumulateQty(tx),
					"updated_at": now,
				}),
			}).Create(&row).Error; err != nil {
				return apperr.Storage("add branch order", err)
			}
			res.Rows++
		}

		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &req.BranchID,
			Actor:       req.Actor,
			EntityType:  "branch_order",
			EntityID:    d.ID,
			Action:      models.AuditActionUpdate,
			Description: fmt.Sprintf("quick order for %s: %d items added", d, len(req.Items)),
			After:       req.Items,
		})
	})
	return res, err
}

// SaveReplace makes the rows of (dispatch, branch) equal to items, dropping
// zero quantities. Resubmitting the same list leaves the same rows.
func (l *Ledger) SaveReplace(ctx context.Context, req BatchRequest) (BatchResult, error) {
	if err := l.normalize(&req); err != nil {
		return BatchResult{}, err
	}
	seen := make(map[string]struct{}, len(req.Items))
	for _, it := range req.Items {
		if it.Code == "" || it.Qty < 0 {
			return BatchResult{}, apperr.Validation("every item needs a code_no and a non-negative qty")
		}
		if _, dup := seen[it.Code]; dup {
			return BatchResult{}, apperr.Validation("dish %s listed twice", it.Code)
		}
		seen[it.Code] = struct{}{}
	}
	if err := l.requireRefs(ctx, req.BranchID, req.Items); err != nil {
		return BatchResult{}, err
	}

	var res BatchResult
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := dispatch.GetOrCreateTx(tx, req.Date, req.Session)
		if err != nil {
			return err
		}
		res.DispatchID = d.ID

		if err := rejectDispatched(tx, d.ID, req.BranchID, nil); err != nil {
			return err
		}
		if err := tx.Where("dispatch_id = ? AND branch_id = ?", d.ID, req.BranchID).
			Delete(&models.BranchOrder{}).Error; err != nil {
			return apperr.Storage("clear branch orders", err)
		}

		rows := make([]models.BranchOrder, 0, len(req.Items))
		for _, it := range req.Items {
			if it.Qty <= 0 {
				continue
			}
			rows = append(rows, models.BranchOrder{
				DispatchID: d.ID,
				BranchID:   req.BranchID,
				DishCode:   it.Code,
				Qty:        it.Qty,
				Status:     models.OrderReceived,
			})
		}
		if len(rows) > 0 {
			if err := tx.Create(&rows).Error; err != nil {
				return apperr.Storage("insert branch orders", err)
			}
		}
		res.Rows = len(rows)

		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &req.BranchID,
			Actor:       req.Actor,
			EntityType:  "branch_order",
			EntityID:    d.ID,
			Action:      models.AuditActionReplace,
			Description: fmt.Sprintf("order for %s replaced with %d rows", d, len(rows)),
			After:       rows,
		})
	})
	return res, err
}

// ConfirmDate flips every RECEIVED row of the date to DISPATCHED and returns
// how many rows changed.
func (l *Ledger) ConfirmDate(ctx context.Context, date, actor string) (int64, error) {
	date, err := models.ParseDate(date)
	if err != nil {
		return 0, err
	}
	next, err := models.OrderReceived.Transition(models.OrderDispatched)
	if err != nil {
		return 0, err
	}

	var affected int64
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := tx.Model(&models.Dispatch{}).Select("id").Where("dispatch_date = ?", date)
		result := tx.Model(&models.BranchOrder{}).
			Where("status = ? AND dispatch_id IN (?)", models.OrderReceived, ids).
			Updates(map[string]any{"status": next, "dispatched_at": l.now()})
		if result.Error != nil {
			return apperr.Storage("confirm orders of "+date, result.Error)
		}
		affected = result.RowsAffected
		if affected == 0 {
			return nil
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       actor,
			EntityType:  "branch_order",
			Action:      models.AuditActionConfirm,
			Description: fmt.Sprintf("%d order rows of %s dispatched", affected, date),
		})
	})
	return affected, err
}

type ConfirmRequest struct {
	DispatchID uint
	BranchID   uint
	Overrides  []Item
	Actor      string
}

type ConfirmResult struct {
	Updated    int `json:"updated"`
	Dispatched int `json:"dispatched"`
}

// ConfirmBranch applies quantity overrides to RECEIVED rows of one
// (dispatch, branch) and then dispatches every RECEIVED row of the pair.
// An override that cannot be applied rolls back the whole unit.
func (l *Ledger) ConfirmBranch(ctx context.Context, req ConfirmRequest) (ConfirmResult, error) {
	if req.DispatchID == 0 || req.BranchID == 0 {
		return ConfirmResult{}, apperr.Validation("dispatch_id and branch_id are required")
	}
	for _, it := range req.Overrides {
		if it.Code == "" || it.Qty < 0 {
			return ConfirmResult{}, apperr.Validation("every override needs a code_no and a non-negative qty")
		}
	}
	if err := l.requireRefs(ctx, req.BranchID, req.Overrides); err != nil {
		return ConfirmResult{}, err
	}

	var res ConfirmResult
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d models.Dispatch
		if err := tx.First(&d, req.DispatchID).Error; err != nil {
			return apperr.Storage(fmt.Sprintf("dispatch %d", req.DispatchID), err)
		}

		var rows []models.BranchOrder
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("dispatch_id = ? AND branch_id = ?", d.ID, req.BranchID).
			Find(&rows).Error; err != nil {
			return apperr.Storage("load branch orders", err)
		}
		byCode := make(map[string]*models.BranchOrder, len(rows))
		for i := range rows {
			byCode[rows[i].DishCode] = &rows[i]
		}

		for _, it := range req.Overrides {
			row, ok := byCode[it.Code]
			if !ok {
				return apperr.NotFound("no order for dish %s in dispatch %s", it.Code, d)
			}
			if !row.Status.Editable() {
				return apperr.Transition("dish %s of dispatch %s is already %s", it.Code, d, row.Status)
			}
			if err := tx.Model(row).Update("qty", it.Qty).Error; err != nil {
				return apperr.Storage("override qty", err)
			}
			row.Qty = it.Qty
			res.Updated++
		}

		now := l.now()
		var ids []uint
		for i := range rows {
			if rows[i].Status != models.OrderReceived {
				continue
			}
			next, err := rows[i].Status.Transition(models.OrderDispatched)
			if err != nil {
				return err
			}
			rows[i].Status, rows[i].DispatchedAt = next, &now
			ids = append(ids, rows[i].ID)
		}
		if len(ids) == 0 {
			return nil
		}
		if err := tx.Model(&models.BranchOrder{}).
			Where("id IN ? AND status = ?", ids, models.OrderReceived).
			Updates(map[string]any{"status": models.OrderDispatched, "dispatched_at": now}).Error; err != nil {
			return apperr.Storage("dispatch branch orders", err)
		}
		res.Dispatched = len(ids)

		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &req.BranchID,
			Actor:       req.Actor,
			EntityType:  "branch_order",
			EntityID:    d.ID,
			Action:      models.AuditActionConfirm,
			Description: fmt.Sprintf("%s confirmed: %d overrides, %d rows dispatched", d, res.Updated, res.Dispatched),
			After:       rows,
		})
	})
	return res, err
}

var orderKey = []clause.Column{{Name: "dispatch_id"}, {Name: "branch_id"}, {Name: "dish_code"}}

// accumulateQty is the conflict update that adds the incoming qty.
func accumulateQty(tx *gorm.DB) clause.Expr {
	if database.Dialect(tx) == "mysql" {
		return gorm.Expr("qty + VALUES(qty)")
	}
	return gorm.Expr("branch_orders.qty + excluded.qty")
}

// rejectDispatched locks the targeted rows FOR UPDATE and fails when any of
// them is already DISPATCHED. The lock holds until the caller's transaction
// ends, so a confirm cannot flip a row between this check and the write. A
// nil codes slice targets every row of the pair.
func rejectDispatched(tx *gorm.DB, dispatchID, branchID uint, codes []string) error {
	q := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("dispatch_id = ? AND branch_id = ?", dispatchID, branchID)
	if codes != nil {
		q = q.Where("dish_code IN ?", codes)
	}
	var rows []models.BranchOrder
	if err := q.Find(&rows).Error; err != nil {
		return apperr.Storage("lock branch orders", err)
	}
	var locked []string
	for _, r := range rows {
		if !r.Status.Editable() {
			locked = append(locked, r.DishCode)
		}
	}
	if len(locked) > 0 {
		sort.Strings(locked)
		return apperr.Transition("dish %s is already dispatched", locked[0])
	}
	return nil
}
