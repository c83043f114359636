// Package reports builds the kitchen's read models: daily statement, day
// analysis, the unified sales report and the per dish product report.
package reports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"mkitchen-backend/internal/apperr"
	"mkitchen-backend/internal/catalog"
	"mkitchen-backend/internal/dailystats"
	"mkitchen-backend/internal/models"
)

type Service struct {
	db      *gorm.DB
	catalog *catalog.Service
}

func NewService(db *gorm.DB, cat *catalog.Service) *Service {
	return &Service{db: db, catalog: cat}
}

type StatementLine struct {
	Code     string             `json:"code_no"`
	Name     string             `json:"item_name"`
	Kg       float64            `json:"kg"`
	Plate    float64            `json:"plate"`
	Branches map[string]float64 `json:"branches"`
}

type Statement struct {
	Date     string          `json:"date"`
	Branches []string        `json:"branches"`
	Items    []StatementLine `json:"items"`
}

// KitchenStatement lists every dish of the menu for a date. Plate is the
// manual plate entry when it is positive, else the ordered qty summed over
// all branches.
func (s *Service) KitchenStatement(ctx context.Context, date string) (Statement, error) {
	date, err := models.ParseDate(date)
	if err != nil {
		return Statement{}, err
	}
	dishes, err := s.catalog.Dishes(ctx)
	if err != nil {
		return Statement{}, err
	}
	branches, err := s.catalog.Branches(ctx)
	if err != nil {
		return Statement{}, err
	}
	db := s.db.WithContext(ctx)

	var ordered []struct {
		DishCode string
		BranchID uint
		Qty      float64
	}
	if err := db.Table("branch_orders bo").
		Select("bo.dish_code, bo.branch_id, SUM(bo.qty) AS qty").
		Joins("JOIN dispatches d ON d.id = bo.dispatch_id").
		Where("d.dispatch_date = ?", date).
		Group("bo.dish_code, bo.branch_id").
		Scan(&ordered).Error; err != nil {
		return Statement{}, apperr.Storage("statement orders", err)
	}

	var stats []models.DailyStat
	if err := db.Where("date = ?", date).Find(&stats).Error; err != nil {
		return Statement{}, apperr.Storage("statement daily stats", err)
	}
	statOf := dailystats.ByDish(stats)

	nameOf := make(map[uint]string, len(branches))
	out := Statement{Date: date, Branches: make([]string, 0, len(branches))}
	for _, b := range branches {
		nameOf[b.ID] = b.Name
		out.Branches = append(out.Branches, b.Name)
	}

	perDish := map[string]map[string]float64{}
	totals := map[string]float64{}
	for _, o := range ordered {
		if perDish[o.DishCode] == nil {
			perDish[o.DishCode] = map[string]float64{}
		}
		perDish[o.DishCode][nameOf[o.BranchID]] += o.Qty
		totals[o.DishCode] += o.Qty
	}

	out.Items = make([]StatementLine, 0, len(dishes))
	for _, d := range dishes {
		line := StatementLine{Code: d.Code, Name: d.Name, Branches: map[string]float64{}}
		for _, name := range out.Branches {
			line.Branches[name] = perDish[d.Code][name]
		}
		st := statOf[d.Code]
		line.Kg = st.Kg
		line.Plate = Plate(st.Plates, totals[d.Code])
		out.Items = append(out.Items, line)
	}
	return out, nil
}

// Plate applies the statement precedence: a positive manual entry wins over
// the ordered total.
func Plate(manual, ordered float64) float64 {
	if manual > 0 {
		return manual
	}
	return ordered
}

type AnalysisLine struct {
	Code        string  `json:"code_no"`
	Name        string  `json:"item_name"`
	Consumption float64 `json:"consump"`
	CB          float64 `json:"cb"`
	ExcessShort float64 `json:"excess_short"`
}

// DayAnalysis sums the branches' sale report figures per dish for a date.
func (s *Service) DayAnalysis(ctx context.Context, date string) ([]AnalysisLine, error) {
	date, err := models.ParseDate(date)
	if err != nil {
		return nil, err
	}
	var rows []struct {
		DishCode string
		Con      float64
		CB       float64
		Excess   float64
	}
	if err := s.db.WithContext(ctx).Table("sale_report_entries s").
		Select("s.dish_code, SUM(s.con) AS con, SUM(s.cb) AS cb, SUM(s.s_exes) AS excess").
		Joins("JOIN dispatches d ON d.id = s.dispatch_id").
		Where("d.dispatch_date = ?", date).
		Group("s.dish_code").
		Scan(&rows).Error; err != nil {
		return nil, apperr.Storage("day analysis", err)
	}

	byCode := make(map[string]AnalysisLine, len(rows))
	for _, r := range rows {
		byCode[r.DishCode] = AnalysisLine{Code: r.DishCode, Consumption: r.Con, CB: r.CB, ExcessShort: r.Excess}
	}
	dishes, err := s.catalog.Dishes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]AnalysisLine, 0, len(rows))
	for _, d := range dishes {
		if line, ok := byCode[d.Code]; ok {
			line.Name = d.Name
			out = append(out, line)
		}
	}
	return out, nil
}

type PeriodType string

const (
	PeriodDate  PeriodType = "date"
	PeriodRange PeriodType = "range"
	PeriodMonth PeriodType = "month"
	PeriodYear  PeriodType = "year"
)

type UnifiedQuery struct {
	Type     PeriodType
	Value    string // date, YYYY-MM or YYYY
	Start    string
	End      string
	BranchID uint // 0 means all branches
}

// scope turns the period into a condition on dispatches.dispatch_date.
func (q UnifiedQuery) scope(db *gorm.DB) (*gorm.DB, error) {
	switch q.Type {
	case PeriodDate:
		date, err := models.ParseDate(q.Value)
		if err != nil {
			return nil, err
		}
		return db.Where("d.dispatch_date = ?", date), nil
	case PeriodRange:
		start, err := models.ParseDate(q.Start)
		if err != nil {
			return nil, err
		}
		end, err := models.ParseDate(q.End)
		if err != nil {
			return nil, err
		}
		if end < start {
			return nil, apperr.Validation("range end %s is before start %s", end, start)
		}
		return db.Where("d.dispatch_date BETWEEN ? AND ?", start, end), nil
	case PeriodMonth:
		if _, err := time.Parse("2006-01", q.Value); err != nil {
			return nil, apperr.Validation("month %q must be YYYY-MM", q.Value)
		}
		return db.Where("d.dispatch_date LIKE ?", q.Value+"-%"), nil
	case PeriodYear:
		if _, err := time.Parse("2006", q.Value); err != nil {
			return nil, apperr.Validation("year %q must be YYYY", q.Value)
		}
		return db.Where("d.dispatch_date LIKE ?", q.Value+"-%"), nil
	}
	return nil, apperr.Validation("invalid type %q", q.Type)
}

type UnifiedLine struct {
	Code      string  `json:"code_no"`
	Name      string  `json:"item_name"`
	Rate      float64 `json:"rate"`
	LunchQty  float64 `json:"lunch_qty"`
	LunchVal  float64 `json:"lunch_val"`
	DinnerQty float64 `json:"dinner_qty"`
	DinnerVal float64 `json:"dinner_val"`
	TotalQty  float64 `json:"total_qty"`
	TotalVal  float64 `json:"total_val"`
}

type Unified struct {
	Items    []UnifiedLine `json:"items"`
	TotalQty float64       `json:"total_qty"`
	TotalVal float64       `json:"total_val"`
}

// Unified reports dispatched qty and value (qty x rate) per dish, split by
// session, over a date, range, month or year.
func (s *Service) Unified(ctx context.Context, q UnifiedQuery) (Unified, error) {
	base := s.db.WithContext(ctx).Table("branch_orders bo").
		Select("bo.dish_code, d.session, SUM(bo.qty) AS qty").
		Joins("JOIN dispatches d ON d.id = bo.dispatch_id").
		Where("bo.status = ?", models.OrderDispatched)
	scoped, err := q.scope(base)
	if err != nil {
		return Unified{}, err
	}
	if q.BranchID > 0 {
		scoped = scoped.Where("bo.branch_id = ?", q.BranchID)
	}

	var rows []struct {
		DishCode string
		Session  models.Session
		Qty      float64
	}
	if err := scoped.Group("bo.dish_code, d.session").Scan(&rows).Error; err != nil {
		return Unified{}, apperr.Storage("unified report", err)
	}

	type split struct{ lunch, dinner decimal.Decimal }
	qty := map[string]*split{}
	for _, r := range rows {
		sp := qty[r.DishCode]
		if sp == nil {
			sp = &split{}
			qty[r.DishCode] = sp
		}
		if r.Session == models.SessionDinner {
			sp.dinner = sp.dinner.Add(decimal.NewFromFloat(r.Qty))
		} else {
			sp.lunch = sp.lunch.Add(decimal.NewFromFloat(r.Qty))
		}
	}

	dishes, err := s.catalog.Dishes(ctx)
	if err != nil {
		return Unified{}, err
	}
	out := Unified{Items: make([]UnifiedLine, 0, len(qty))}
	var sumQty, sumVal decimal.Decimal
	for _, d := range dishes {
		sp, ok := qty[d.Code]
		if !ok {
			continue
		}
		rate := decimal.NewFromFloat(d.Rate)
		total := sp.lunch.Add(sp.dinner)
		line := UnifiedLine{
			Code:      d.Code,
			Name:      d.Name,
			Rate:      d.Rate,
			LunchQty:  sp.lunch.InexactFloat64(),
			LunchVal:  sp.lunch.Mul(rate).InexactFloat64(),
			DinnerQty: sp.dinner.InexactFloat64(),
			DinnerVal: sp.dinner.Mul(rate).InexactFloat64(),
			TotalQty:  total.InexactFloat64(),
			TotalVal:  total.Mul(rate).InexactFloat64(),
		}
		sumQty = sumQty.Add(total)
		sumVal = sumVal.Add(total.Mul(rate))
		out.Items = append(out.Items, line)
	}
	out.TotalQty, out.TotalVal = sumQty.InexactFloat64(), sumVal.InexactFloat64()
	return out, nil
}

type ProductLine struct {
	DispatchDate string         `json:"dispatch_date"`
	Session      models.Session `json:"session"`
	BranchID     uint           `json:"branch_id"`
	BranchName   string         `json:"branch_name"`
	DispatchQty  float64        `json:"dispatch_qty"`
	SaleCon      *float64       `json:"sale_con"`
	CB           *float64       `json:"cb"`
}

// ProductReport follows one dish over a date range: ordered qty per
// dispatch and branch next to the branch's reported consumption and
// closing balance for the same dispatch.
func (s *Service) ProductReport(ctx context.Context, code, from, to string) ([]ProductLine, error) {
	if code == "" {
		return nil, apperr.Validation("item_code is required")
	}
	from, err := models.ParseDate(from)
	if err != nil {
		return nil, err
	}
	to, err = models.ParseDate(to)
	if err != nil {
		return nil, err
	}

	var out []ProductLine
	if err := s.db.WithContext(ctx).Table("branch_orders bo").
		Select(`d.dispatch_date, d.session, bo.branch_id, b.name AS branch_name,
			bo.qty AS dispatch_qty, s.con AS sale_con, s.cb`).
		Joins("JOIN dispatches d ON d.id = bo.dispatch_id").
		Joins("JOIN branches b ON b.id = bo.branch_id").
		Joins(`LEFT JOIN sale_report_entries s ON s.dispatch_id = bo.dispatch_id
			AND s.branch_id = bo.branch_id AND s.dish_code = bo.dish_code`).
		Where("bo.dish_code = ? AND d.dispatch_date BETWEEN ? AND ?", code, from, to).
		Order("d.dispatch_date, CASE WHEN d.session = 'Dinner' THEN 1 ELSE 0 END, b.name").
		Scan(&out).Error; err != nil {
		return nil, apperr.Storage("product report", err)
	}
	return out, nil
}
