// Package salereport keeps the branches' sale reconciliation rows and
// resolves each session's opening balance from the previous closing one.
package salereport

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"mkitchen-backend/internal/apperr"
	"mkitchen-backend/internal/audit"
	"mkitchen-backend/internal/catalog"
	"mkitchen-backend/internal/dispatch"
	"mkitchen-backend/internal/models"
)

type Ledger struct {
	db      *gorm.DB
	catalog *catalog.Service
}

func NewLedger(db *gorm.DB, cat *catalog.Service) *Ledger {
	return &Ledger{db: db, catalog: cat}
}

// Line is one submitted dish row. Derived columns are never taken from the
// client.
type Line struct {
	Code     string  `json:"code_no" validate:"required"`
	OB       Balance `json:"ob"`
	Received float64 `json:"received"`
	Con      float64 `json:"con"`
	Others   float64 `json:"others"`
	Com      float64 `json:"com"`
	SExes    float64 `json:"s_exes"`
	Remarks  string  `json:"remarks"`
	Report   string  `json:"report"`
}

// Key addresses the report of one branch for one dispatch.
type Key struct {
	BranchID uint
	Date     string
	Session  models.Session
}

func (k *Key) normalize() error {
	if k.BranchID == 0 {
		return apperr.Validation("branch_id is required")
	}
	date, err := models.ParseDate(k.Date)
	if err != nil {
		return err
	}
	k.Date = date
	_, err = models.ParseSession(string(k.Session))
	return err
}

type SubmitRequest struct {
	Key
	Lines []Line
	Actor string
}

type SubmitResult struct {
	DispatchID uint `json:"dispatch_id"`
	Rows       int  `json:"rows"`
}

func (l *Ledger) prepare(ctx context.Context, req *SubmitRequest) error {
	if err := req.Key.normalize(); err != nil {
		return err
	}
	if len(req.Lines) == 0 {
		return apperr.Validation("items must not be empty")
	}
	codes := make([]string, 0, len(req.Lines))
	seen := make(map[string]struct{}, len(req.Lines))
	for _, ln := range req.Lines {
		if ln.Code == "" {
			return apperr.Validation("every item needs a code_no")
		}
		if _, dup := seen[ln.Code]; dup {
			return apperr.Validation("dish %s listed twice", ln.Code)
		}
		seen[ln.Code] = struct{}{}
		codes = append(codes, ln.Code)
	}
	if err := l.catalog.RequireBranch(ctx, req.BranchID); err != nil {
		return err
	}
	return l.catalog.RequireDishes(ctx, codes)
}

func entryOf(dispatchID, branchID uint, ln Line) models.SaleReportEntry {
	d := Derive(ln.OB, ln.Received, ln.Con, ln.Others, ln.Com)
	return models.SaleReportEntry{
		DispatchID: dispatchID,
		BranchID:   branchID,
		DishCode:   ln.Code,
		OB:         ln.OB.Ptr(),
		Received:   ln.Received,
		Total:      d.Total,
		Con:        ln.Con,
		Others:     ln.Others,
		Com:        ln.Com,
		Total2:     d.Total2,
		CB:         d.CB,
		SExes:      ln.SExes,
		Remarks:    ln.Remarks,
		Report:     ln.Report,
	}
}

// Submit appends the branch's report. The first report per
// (dispatch, branch, dish) wins; resubmitting any dish fails the whole batch
// with ErrConflict and corrections go through Receive.
func (l *Ledger) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if err := l.prepare(ctx, &req); err != nil {
		return SubmitResult{}, err
	}

	var res SubmitResult
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := dispatch.GetOrCreateTx(tx, req.Date, req.Session)
		if err != nil {
			return err
		}
		res.DispatchID = d.ID

		codes := make([]string, 0, len(req.Lines))
		for _, ln := range req.Lines {
			codes = append(codes, ln.Code)
		}
		var existing []string
		if err := tx.Model(&models.SaleReportEntry{}).
			Where("dispatch_id = ? AND branch_id = ? AND dish_code IN ?", d.ID, req.BranchID, codes).
			Order("dish_code").
			Pluck("dish_code", &existing).Error; err != nil {
			return apperr.Storage("check sale report", err)
		}
		if len(existing) > 0 {
			return apperr.Conflict("sale report for dish %s of %s already submitted", existing[0], d)
		}

		rows := make([]models.SaleReportEntry, 0, len(req.Lines))
		for _, ln := range req.Lines {
			rows = append(rows, entryOf(d.ID, req.BranchID, ln))
		}
		if err := tx.Create(&rows).Error; err != nil {
			return apperr.Storage("insert sale report", err)
		}
		res.Rows = len(rows)

		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &req.BranchID,
			Actor:       req.Actor,
			EntityType:  "sale_report",
			EntityID:    d.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("sale report for %s submitted with %d rows", d, len(rows)),
			After:       rows,
		})
	})
	return res, err
}

var reportKey = []clause.Column{{Name: "dispatch_id"}, {Name: "branch_id"}, {Name: "dish_code"}}

var reportColumns = []string{
	"ob", "received", "total", "con", "others", "com", "total2", "cb",
	"s_exes", "remarks", "report", "updated_at",
}

// Receive upserts the report rows, overwriting earlier values per dish.
func (l *Ledger) Receive(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	if err := l.prepare(ctx, &req); err != nil {
		return SubmitResult{}, err
	}

	var res SubmitResult
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		d, err := dispatch.GetOrCreateTx(tx, req.Date, req.Session)
		if err != nil {
			return err
		}
		res.DispatchID = d.ID

		rows := make([]models.SaleReportEntry, 0, len(req.Lines))
		for _, ln := range req.Lines {
			row := entryOf(d.ID, req.BranchID, ln)
			if err := tx.Clauses(clause.OnConflict{
				Columns:   reportKey,
				DoUpdates: clause.AssignmentColumns(reportColumns),
			}).Create(&row).Error; err != nil {
				return apperr.Storage("upsert sale report", err)
			}
			rows = append(rows, row)
		}
		res.Rows = len(rows)

		return audit.WriteLog(tx, audit.LogOptions{
			BranchID:    &req.BranchID,
			Actor:       req.Actor,
			EntityType:  "sale_report",
			EntityID:    d.ID,
			Action:      models.AuditActionReplace,
			Description: fmt.Sprintf("sale report for %s received with %d rows", d, len(rows)),
			After:       rows,
		})
	})
	return res, err
}

// View is a stored report row as the screens show it.
type View struct {
	Code      string  `json:"code_no"`
	Name      string  `json:"item_name"`
	OB        Balance `json:"ob"`
	Received  float64 `json:"received"`
	Total     float64 `json:"total"`
	Con       float64 `json:"con"`
	Others    float64 `json:"others"`
	Com       float64 `json:"com"`
	Total2    float64 `json:"total2"`
	CB        float64 `json:"cb"`
	CBDisplay string  `json:"cb_display"`
	SExes     float64 `json:"s_exes"`
	Remarks   string  `json:"remarks"`
	Report    string  `json:"report"`
}

// Get returns the stored report of (branch, date, session) in menu order,
// empty when nothing was reported.
func (l *Ledger) Get(ctx context.Context, k Key) ([]View, error) {
	if err := k.normalize(); err != nil {
		return nil, err
	}
	db := l.db.WithContext(ctx)
	ids := db.Model(&models.Dispatch{}).Select("id").
		Where("dispatch_date = ? AND session = ?", k.Date, k.Session)
	var rows []models.SaleReportEntry
	if err := db.Where("branch_id = ? AND dispatch_id IN (?)", k.BranchID, ids).
		Find(&rows).Error; err != nil {
		return nil, apperr.Storage("get sale report", err)
	}

	dishes, err := l.catalog.Dishes(ctx)
	if err != nil {
		return nil, err
	}
	rank := make(map[string]int, len(dishes))
	names := make(map[string]string, len(dishes))
	for i, d := range dishes {
		rank[d.Code], names[d.Code] = i, d.Name
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rank[rows[i].DishCode] < rank[rows[j].DishCode]
	})

	out := make([]View, 0, len(rows))
	for _, r := range rows {
		out = append(out, View{
			Code:      r.DishCode,
			Name:      names[r.DishCode],
			OB:        BalanceOf(r.OB),
			Received:  r.Received,
			Total:     r.Total,
			Con:       r.Con,
			Others:    r.Others,
			Com:       r.Com,
			Total2:    r.Total2,
			CB:        r.CB,
			CBDisplay: CBDisplay(r.CB),
			SExes:     r.SExes,
			Remarks:   r.Remarks,
			Report:    r.Report,
		})
	}
	return out, nil
}

type ReceivedItem struct {
	Code string  `json:"code_no"`
	Name string  `json:"item_name"`
	Qty  float64 `json:"qty"`
}

// ReceivedItems sums the dispatched order qty per dish for the branch.
func (l *Ledger) ReceivedItems(ctx context.Context, k Key) ([]ReceivedItem, error) {
	if err := k.normalize(); err != nil {
		return nil, err
	}
	var out []ReceivedItem
	err := l.db.WithContext(ctx).Table("branch_orders bo").
		Select("bo.dish_code AS code, di.name, SUM(bo.qty) AS qty").
		Joins("JOIN dispatches d ON d.id = bo.dispatch_id").
		Joins("JOIN dishes di ON di.code = bo.dish_code").
		Where("bo.branch_id = ? AND d.dispatch_date = ? AND d.session = ? AND bo.status = ?",
			k.BranchID, k.Date, k.Session, models.OrderDispatched).
		Group("bo.dish_code, di.name, di.sort_order").
		Order("di.sort_order, bo.dish_code").
		Scan(&out).Error
	if err != nil {
		return nil, apperr.Storage("received items", err)
	}
	return out, nil
}

type OpeningBalance struct {
	Found       bool               `json:"found"`
	FromDate    string             `json:"from_date,omitempty"`
	FromSession models.Session     `json:"from_session,omitempty"`
	Balances    map[string]float64 `json:"balances"`
}

// Of returns the opening balance of a dish, "-" when it has none.
func (o OpeningBalance) Of(code string) Balance {
	if v, ok := o.Balances[code]; ok {
		return Balance{Value: v, Valid: true}
	}
	return Balance{}
}

// OpeningBalance resolves the latest dispatch strictly before
// (date, session) that already has a report of the branch, and returns that
// report's closing balances per dish.
func (l *Ledger) OpeningBalance(ctx context.Context, k Key) (OpeningBalance, error) {
	out := OpeningBalance{Balances: map[string]float64{}}
	if err := k.normalize(); err != nil {
		return out, err
	}
	db := l.db.WithContext(ctx)

	q := db.Model(&models.Dispatch{}).
		Where("EXISTS (SELECT 1 FROM sale_report_entries s WHERE s.dispatch_id = dispatches.id AND s.branch_id = ?)", k.BranchID)
	if k.Session == models.SessionDinner {
		q = q.Where("dispatch_date < ? OR (dispatch_date = ? AND session = ?)", k.Date, k.Date, models.SessionLunch)
	} else {
		q = q.Where("dispatch_date < ?", k.Date)
	}
	var prev []models.Dispatch
	if err := q.Order("dispatch_date DESC, CASE WHEN session = 'Dinner' THEN 1 ELSE 0 END DESC").
		Limit(1).Find(&prev).Error; err != nil {
		return out, apperr.Storage("find previous report", err)
	}
	if len(prev) == 0 {
		return out, nil
	}

	var rows []models.SaleReportEntry
	if err := db.Where("dispatch_id = ? AND branch_id = ?", prev[0].ID, k.BranchID).
		Find(&rows).Error; err != nil {
		return out, apperr.Storage("load previous report", err)
	}
	out.Found = true
	out.FromDate, out.FromSession = prev[0].DispatchDate, prev[0].Session
	for _, r := range rows {
		out.Balances[r.DishCode] = r.CB
	}
	return out, nil
}
