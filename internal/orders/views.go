package orders

import (
	"context"

	"gorm.io/gorm"

	"mkitchen-backend/internal/apperr"
	"mkitchen-backend/internal/dispatch"
	"mkitchen-backend/internal/models"
)

// Group is one (dispatch, branch) block of order rows.
type Group struct {
	DispatchID   uint            `json:"dispatch_id"`
	DispatchDate string          `json:"dispatch_date"`
	Session      models.Session  `json:"session"`
	BranchID     uint            `json:"branch_id"`
	BranchName   string          `json:"branch_name"`
	TotalItems   int             `json:"total_items"`
	TotalQty     float64         `json:"total_qty"`
	LastDispatch models.ScanTime `json:"-"`
	DispatchTime string          `json:"dispatch_time,omitempty"`
}

const groupSelect = `d.id AS dispatch_id, d.dispatch_date, d.session,
	b.id AS branch_id, b.name AS branch_name,
	COUNT(bo.id) AS total_items, SUM(bo.qty) AS total_qty,
	MAX(bo.dispatched_at) AS last_dispatch`

const sessionOrder = "CASE WHEN d.session = 'Dinner' THEN 1 ELSE 0 END"

func (l *Ledger) groups(ctx context.Context, status models.OrderStatus) *gorm.DB {
	q := l.db.WithContext(ctx).Table("branch_orders bo").
		Select(groupSelect).
		Joins("JOIN dispatches d ON d.id = bo.dispatch_id").
		Joins("JOIN branches b ON b.id = bo.branch_id").
		Where("bo.status = ?", status).
		Group("d.id, d.dispatch_date, d.session, b.id, b.name")
	return q
}

// Pending lists the groups of a date still waiting for confirmation.
func (l *Ledger) Pending(ctx context.Context, date string) ([]Group, error) {
	date, err := models.ParseDate(date)
	if err != nil {
		return nil, err
	}
	var out []Group
	err = l.groups(ctx, models.OrderReceived).
		Where("d.dispatch_date = ?", date).
		Order(sessionOrder + ", b.name").
		Scan(&out).Error
	if err != nil {
		return nil, apperr.Storage("pending orders", err)
	}
	return out, nil
}

// History lists the dispatched groups of a date, latest confirmation first.
func (l *Ledger) History(ctx context.Context, date string) ([]Group, error) {
	date, err := models.ParseDate(date)
	if err != nil {
		return nil, err
	}
	var out []Group
	err = l.groups(ctx, models.OrderDispatched).
		Where("d.dispatch_date = ?", date).
		Order("MAX(bo.dispatched_at) DESC").
		Scan(&out).Error
	if err != nil {
		return nil, apperr.Storage("dispatch history", err)
	}
	return withTimes(out, "15:04"), nil
}

// BranchHistory is the last 100 dispatched groups, optionally of one branch.
func (l *Ledger) BranchHistory(ctx context.Context, branchID uint) ([]Group, error) {
	q := l.groups(ctx, models.OrderDispatched)
	if branchID > 0 {
		q = q.Where("bo.branch_id = ?", branchID)
	}
	var out []Group
	err := q.Order("MAX(bo.dispatched_at) DESC").Limit(100).Scan(&out).Error
	if err != nil {
		return nil, apperr.Storage("branch dispatch history", err)
	}
	return withTimes(out, "2006-01-02 15:04"), nil
}

func withTimes(groups []Group, layout string) []Group {
	for i := range groups {
		groups[i].DispatchTime = groups[i].LastDispatch.Format(layout)
	}
	return groups
}

type Line struct {
	OrderID  uint               `json:"order_id"`
	BranchID uint               `json:"branch_id"`
	Branch   string             `json:"branch_name"`
	Session  models.Session     `json:"session,omitempty"`
	Code     string             `json:"code_no"`
	Name     string             `json:"item_name"`
	Qty      float64            `json:"qty"`
	Status   models.OrderStatus `json:"status"`
}

const lineSelect = `bo.id AS order_id, bo.branch_id, b.name AS branch, d.session,
	bo.dish_code AS code, di.name, bo.qty, bo.status`

func (l *Ledger) lines(ctx context.Context) *gorm.DB {
	return l.db.WithContext(ctx).Table("branch_orders bo").
		Select(lineSelect).
		Joins("JOIN dispatches d ON d.id = bo.dispatch_id").
		Joins("JOIN branches b ON b.id = bo.branch_id").
		Joins("JOIN dishes di ON di.code = bo.dish_code")
}

// DispatchItems lists the rows of one (dispatch, branch) in menu order.
func (l *Ledger) DispatchItems(ctx context.Context, dispatchID, branchID uint) ([]Line, error) {
	var out []Line
	err := l.lines(ctx).
		Where("bo.dispatch_id = ? AND bo.branch_id = ?", dispatchID, branchID).
		Order("di.sort_order, di.code").
		Scan(&out).Error
	if err != nil {
		return nil, apperr.Storage("dispatch items", err)
	}
	return out, nil
}

// ReceivedToday lists every RECEIVED row of a date, grouped by branch.
func (l *Ledger) ReceivedToday(ctx context.Context, date string) ([]Line, error) {
	date, err := models.ParseDate(date)
	if err != nil {
		return nil, err
	}
	var out []Line
	err = l.lines(ctx).
		Where("d.dispatch_date = ? AND bo.status = ?", date, models.OrderReceived).
		Order("b.name, " + sessionOrder + ", di.sort_order, di.code").
		Scan(&out).Error
	if err != nil {
		return nil, apperr.Storage("received orders", err)
	}
	return out, nil
}

type SheetLine struct {
	Code   string             `json:"code_no"`
	Name   string             `json:"item_name"`
	Qty    float64            `json:"qty"`
	Status models.OrderStatus `json:"status,omitempty"`
}

// EntrySheet is the order form of a branch: every dish with its current
// qty. It is empty while no dispatch exists for (date, session).
func (l *Ledger) EntrySheet(ctx context.Context, date string, session models.Session, branchID uint) ([]SheetLine, error) {
	date, err := models.ParseDate(date)
	if err != nil {
		return nil, err
	}
	if _, err := models.ParseSession(string(session)); err != nil {
		return nil, err
	}

	d, err := dispatch.Lookup(l.db.WithContext(ctx), date, session)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return []SheetLine{}, nil
	}

	var rows []models.BranchOrder
	if err := l.db.WithContext(ctx).
		Where("dispatch_id = ? AND branch_id = ?", d.ID, branchID).
		Find(&rows).Error; err != nil {
		return nil, apperr.Storage("load branch orders", err)
	}
	byCode := make(map[string]models.BranchOrder, len(rows))
	for _, r := range rows {
		byCode[r.DishCode] = r
	}

	dishes, err := l.catalog.Dishes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SheetLine, 0, len(dishes))
	for _, dish := range dishes {
		line := SheetLine{Code: dish.Code, Name: dish.Name}
		if r, ok := byCode[dish.Code]; ok {
			line.Qty, line.Status = r.Qty, r.Status
		}
		out = append(out, line)
	}
	return out, nil
}
