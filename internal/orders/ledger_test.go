package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"mkitchen-backend/internal/apperr"
	"mkitchen-backend/internal/catalog"
	"mkitchen-backend/internal/dispatch"
	"mkitchen-backend/internal/logging"
	"mkitchen-backend/internal/models"
	"mkitchen-backend/internal/testdb"
)

func fixedNow() time.Time { return time.Date(2025, 3, 1, 18, 45, 0, 0, time.UTC) }

func newLedger(t *testing.T) (*Ledger, *gorm.DB) {
	t.Helper()
	db := testdb.New(t)
	return NewLedger(db, catalog.New(db, nil, logging.Discard()), fixedNow), db
}

func orderRows(t *testing.T, db *gorm.DB, branchID uint) map[string]models.BranchOrder {
	t.Helper()
	var rows []models.BranchOrder
	if err := db.Where("branch_id = ?", branchID).Find(&rows).Error; err != nil {
		t.Fatal(err)
	}
	out := make(map[string]models.BranchOrder, len(rows))
	for _, r := range rows {
		out[r.DishCode] = r
	}
	return out
}

func TestSaveReplaceIsIdempotent(t *testing.T) {
	l, db := newLedger(t)
	ctx := context.Background()
	req := BatchRequest{
		Date:     "2025-03-01",
		Session:  models.SessionLunch,
		BranchID: testdb.BranchHNR,
		Items:    []Item{{Code: "1", Qty: 5}, {Code: "2", Qty: 3}, {Code: "4", Qty: 0}},
	}

	for i := 0; i < 2; i++ {
		res, err := l.SaveReplace(ctx, req)
		if err != nil {
			t.Fatalf("save #%d: %v", i+1, err)
		}
		if res.Rows != 2 {
			t.Errorf("save #%d rows = %d, want 2", i+1, res.Rows)
		}
	}

	rows := orderRows(t, db, testdb.BranchHNR)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows["1"].Qty != 5 || rows["2"].Qty != 3 {
		t.Errorf("unexpected quantities %+v", rows)
	}
	if _, ok := rows["4"]; ok {
		t.Error("zero qty row should not be stored")
	}

	req.Items = []Item{{Code: "2", Qty: 7}}
	if _, err := l.SaveReplace(ctx, req); err != nil {
		t.Fatal(err)
	}
	rows = orderRows(t, db, testdb.BranchHNR)
	if len(rows) != 1 || rows["2"].Qty != 7 {
		t.Errorf("replace left %+v", rows)
	}
}

func TestAddIncrementalAccumulates(t *testing.T) {
	l, db := newLedger(t)
	ctx := context.Background()
	req := BatchRequest{
		Date:     "2025-03-01",
		Session:  models.SessionDinner,
		BranchID: testdb.BranchINR,
		Items:    []Item{{Code: "1", Qty: 5}, {Code: "53", Qty: 2}},
	}

	for i := 0; i < 2; i++ {
		if _, err := l.AddIncremental(ctx, req); err != nil {
			t.Fatalf("add #%d: %v", i+1, err)
		}
	}

	rows := orderRows(t, db, testdb.BranchINR)
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows["1"].Qty != 10 || rows["53"].Qty != 4 {
		t.Errorf("quantities not doubled: %+v", rows)
	}
}

func TestAddIncrementalDefaultsToToday(t *testing.T) {
	l, db := newLedger(t)
	res, err := l.AddIncremental(context.Background(), BatchRequest{
		Session:  models.SessionLunch,
		BranchID: testdb.BranchHNR,
		Items:    []Item{{Code: "1", Qty: 1}},
	})
	if err != nil {
		t.Fatal(err)
	}
	var d models.Dispatch
	if err := db.First(&d, res.DispatchID).Error; err != nil {
		t.Fatal(err)
	}
	if d.DispatchDate != "2025-03-01" {
		t.Errorf("dispatch date = %s, want the injected today", d.DispatchDate)
	}
}

func TestWritesRejectDispatchedRows(t *testing.T) {
	l, db := newLedger(t)
	ctx := context.Background()
	req := BatchRequest{
		Date:     "2025-03-01",
		Session:  models.SessionLunch,
		BranchID: testdb.BranchHNR,
		Items:    []Item{{Code: "1", Qty: 5}},
	}
	if _, err := l.SaveReplace(ctx, req); err != nil {
		t.Fatal(err)
	}
	if _, err := l.ConfirmDate(ctx, "2025-03-01", "kitchen"); err != nil {
		t.Fatal(err)
	}

	if _, err := l.AddIncremental(ctx, req); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("add on dispatched row: err = %v", err)
	}
	if _, err := l.SaveReplace(ctx, req); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("replace on dispatched rows: err = %v", err)
	}

	// A dish that was never ordered can still be added.
	req.Items = []Item{{Code: "2", Qty: 1}}
	if _, err := l.AddIncremental(ctx, req); err != nil {
		t.Errorf("add of a new dish: %v", err)
	}
	if rows := orderRows(t, db, testdb.BranchHNR); rows["1"].Qty != 5 || rows["1"].Status != models.OrderDispatched {
		t.Errorf("dispatched row changed: %+v", rows["1"])
	}
}

func TestWritesValidateBeforeWriting(t *testing.T) {
	l, db := newLedger(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  BatchRequest
		want error
	}{
		{"unknown dish", BatchRequest{Date: "2025-03-01", Session: models.SessionLunch, BranchID: testdb.BranchHNR,
			Items: []Item{{Code: "1", Qty: 1}, {Code: "999", Qty: 1}}}, apperr.ErrReferentialIntegrity},
		{"unknown branch", BatchRequest{Date: "2025-03-01", Session: models.SessionLunch, BranchID: 42,
			Items: []Item{{Code: "1", Qty: 1}}}, apperr.ErrReferentialIntegrity},
		{"missing branch", BatchRequest{Date: "2025-03-01", Session: models.SessionLunch,
			Items: []Item{{Code: "1", Qty: 1}}}, apperr.ErrValidation},
		{"bad session", BatchRequest{Date: "2025-03-01", Session: "Breakfast", BranchID: testdb.BranchHNR,
			Items: []Item{{Code: "1", Qty: 1}}}, apperr.ErrValidation},
		{"bad date", BatchRequest{Date: "01/03/2025", Session: models.SessionLunch, BranchID: testdb.BranchHNR,
			Items: []Item{{Code: "1", Qty: 1}}}, apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := l.AddIncremental(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("AddIncremental err = %v, want %v", err, tt.want)
			}
			if _, err := l.SaveReplace(ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("SaveReplace err = %v, want %v", err, tt.want)
			}
		})
	}

	var dispatches, orders int64
	db.Model(&models.Dispatch{}).Count(&dispatches)
	db.Model(&models.BranchOrder{}).Count(&orders)
	if dispatches != 0 || orders != 0 {
		t.Errorf("rejected batches wrote %d dispatches and %d orders", dispatches, orders)
	}
}

func TestSaveReplaceRejectsDuplicateCodes(t *testing.T) {
	l, _ := newLedger(t)
	_, err := l.SaveReplace(context.Background(), BatchRequest{
		Date: "2025-03-01", Session: models.SessionLunch, BranchID: testdb.BranchHNR,
		Items: []Item{{Code: "1", Qty: 1}, {Code: "1", Qty: 2}},
	})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestConfirmDate(t *testing.T) {
	l, db := newLedger(t)
	ctx := context.Background()

	n, err := l.ConfirmDate(ctx, "2025-03-01", "kitchen")
	if err != nil || n != 0 {
		t.Fatalf("empty confirm = %d, %v; want 0, nil", n, err)
	}

	for _, req := range []BatchRequest{
		{Date: "2025-03-01", Session: models.SessionLunch, BranchID: testdb.BranchHNR, Items: []Item{{Code: "1", Qty: 2}}},
		{Date: "2025-03-01", Session: models.SessionDinner, BranchID: testdb.BranchINR, Items: []Item{{Code: "2", Qty: 3}}},
		{Date: "2025-03-02", Session: models.SessionLunch, BranchID: testdb.BranchKRM, Items: []Item{{Code: "4", Qty: 4}}},
	} {
		if _, err := l.SaveReplace(ctx, req); err != nil {
			t.Fatal(err)
		}
	}

	n, err = l.ConfirmDate(ctx, "2025-03-01", "kitchen")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("confirmed %d rows, want 2", n)
	}
	if r := orderRows(t, db, testdb.BranchHNR)["1"]; r.Status != models.OrderDispatched || r.DispatchedAt == nil {
		t.Errorf("HNR row not dispatched: %+v", r)
	}
	if r := orderRows(t, db, testdb.BranchKRM)["4"]; r.Status != models.OrderReceived {
		t.Errorf("other date row changed: %+v", r)
	}

	n, err = l.ConfirmDate(ctx, "2025-03-01", "kitchen")
	if err != nil || n != 0 {
		t.Errorf("second confirm = %d, %v; want 0, nil", n, err)
	}
}

func TestResolveReplaceConfirmWithOverride(t *testing.T) {
	l, db := newLedger(t)
	ctx := context.Background()
	reg := dispatch.NewRegistry(db, fixedNow)

	var wg sync.WaitGroup
	ids := make([]uint, 2)
	errs := make([]error, 2)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := reg.GetOrCreate(ctx, "2025-03-01", models.SessionLunch)
			ids[i], errs[i] = d.ID, err
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			t.Fatal(err)
		}
	}
	if ids[0] != ids[1] {
		t.Fatalf("concurrent resolve returned %d and %d", ids[0], ids[1])
	}
	var count int64
	db.Model(&models.Dispatch{}).Count(&count)
	if count != 1 {
		t.Fatalf("%d dispatch rows, want 1", count)
	}

	res, err := l.SaveReplace(ctx, BatchRequest{
		Date: "2025-03-01", Session: models.SessionLunch, BranchID: testdb.BranchKRM,
		Items: []Item{{Code: "12", Qty: 20}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.DispatchID != ids[0] {
		t.Errorf("save used dispatch %d, want %d", res.DispatchID, ids[0])
	}

	cres, err := l.ConfirmBranch(ctx, ConfirmRequest{
		DispatchID: ids[0],
		BranchID:   testdb.BranchKRM,
		Overrides:  []Item{{Code: "12", Qty: 18}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if cres.Updated != 1 || cres.Dispatched != 1 {
		t.Errorf("confirm result = %+v", cres)
	}

	row := orderRows(t, db, testdb.BranchKRM)["12"]
	if row.Qty != 18 || row.Status != models.OrderDispatched {
		t.Errorf("row = qty %v status %s, want 18 DISPATCHED", row.Qty, row.Status)
	}
}

func TestConfirmBranchRollsBackOnBadOverride(t *testing.T) {
	l, db := newLedger(t)
	ctx := context.Background()
	res, err := l.SaveReplace(ctx, BatchRequest{
		Date: "2025-03-01", Session: models.SessionLunch, BranchID: testdb.BranchHNR,
		Items: []Item{{Code: "1", Qty: 10}, {Code: "2", Qty: 4}},
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = l.ConfirmBranch(ctx, ConfirmRequest{
		DispatchID: res.DispatchID,
		BranchID:   testdb.BranchHNR,
		Overrides:  []Item{{Code: "1", Qty: 8}, {Code: "27", Qty: 1}},
	})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}

	rows := orderRows(t, db, testdb.BranchHNR)
	if rows["1"].Qty != 10 {
		t.Errorf("override committed despite rollback: qty %v", rows["1"].Qty)
	}
	for code, r := range rows {
		if r.Status != models.OrderReceived {
			t.Errorf("dish %s status %s after rollback", code, r.Status)
		}
	}
}

func TestConfirmBranchEdgeCases(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	reg := dispatch.NewRegistry(l.db, fixedNow)
	d, err := reg.GetOrCreate(ctx, "2025-03-01", models.SessionDinner)
	if err != nil {
		t.Fatal(err)
	}

	res, err := l.ConfirmBranch(ctx, ConfirmRequest{DispatchID: d.ID, BranchID: testdb.BranchINR})
	if err != nil {
		t.Fatalf("zero rows confirm: %v", err)
	}
	if res.Dispatched != 0 {
		t.Errorf("dispatched = %d", res.Dispatched)
	}

	if _, err := l.ConfirmBranch(ctx, ConfirmRequest{DispatchID: 999, BranchID: testdb.BranchINR}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown dispatch err = %v", err)
	}
	if _, err := l.ConfirmBranch(ctx, ConfirmRequest{DispatchID: d.ID, BranchID: testdb.BranchINR,
		Overrides: []Item{{Code: "999", Qty: 1}}}); !errors.Is(err, apperr.ErrReferentialIntegrity) {
		t.Errorf("unknown override dish err = %v", err)
	}

	if _, err := l.SaveReplace(ctx, BatchRequest{Date: "2025-03-01", Session: models.SessionDinner,
		BranchID: testdb.BranchINR, Items: []Item{{Code: "1", Qty: 3}}}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.ConfirmBranch(ctx, ConfirmRequest{DispatchID: d.ID, BranchID: testdb.BranchINR}); err != nil {
		t.Fatal(err)
	}
	_, err = l.ConfirmBranch(ctx, ConfirmRequest{DispatchID: d.ID, BranchID: testdb.BranchINR,
		Overrides: []Item{{Code: "1", Qty: 1}}})
	if !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Errorf("override of dispatched row err = %v", err)
	}
}

// recordOrderStatements logs, in order, locking reads and writes against
// branch_orders.
func recordOrderStatements(t *testing.T, db *gorm.DB) func() []string {
	t.Helper()
	var mu sync.Mutex
	var events []string
	note := func(event string) {
		mu.Lock()
		events = append(events, event)
		mu.Unlock()
	}
	onQuery := func(tx *gorm.DB) {
		if tx.Statement.Table != "branch_orders" {
			return
		}
		if _, ok := tx.Statement.Clauses["FOR"]; ok {
			note("lock")
		}
	}
	onWrite := func(event string) func(*gorm.DB) {
		return func(tx *gorm.DB) {
			if tx.Statement.Table == "branch_orders" {
				note(event)
			}
		}
	}
	if err := db.Callback().Query().Before("gorm:query").Register("record:lock", onQuery); err != nil {
		t.Fatal(err)
	}
	if err := db.Callback().Create().Before("gorm:create").Register("record:create", onWrite("create")); err != nil {
		t.Fatal(err)
	}
	if err := db.Callback().Delete().Before("gorm:delete").Register("record:delete", onWrite("delete")); err != nil {
		t.Fatal(err)
	}
	return func() []string {
		mu.Lock()
		defer mu.Unlock()
		out := append([]string(nil), events...)
		events = events[:0]
		return out
	}
}

func TestWritesLockRowsBeforeWriting(t *testing.T) {
	l, db := newLedger(t)
	ctx := context.Background()
	take := recordOrderStatements(t, db)

	base := BatchRequest{Date: "2025-03-01", Session: models.SessionLunch, BranchID: testdb.BranchHNR}

	tests := []struct {
		name  string
		write func() error
		first string
	}{
		{"add", func() error {
			req := base
			req.Items = []Item{{Code: "1", Qty: 2}}
			_, err := l.AddIncremental(ctx, req)
			return err
		}, "create"},
		{"replace", func() error {
			req := base
			req.Items = []Item{{Code: "2", Qty: 3}}
			_, err := l.SaveReplace(ctx, req)
			return err
		}, "delete"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			take()
			if err := tt.write(); err != nil {
				t.Fatal(err)
			}
			events := take()
			if len(events) < 2 || events[0] != "lock" || events[1] != tt.first {
				t.Errorf("statements = %v, want lock before %s", events, tt.first)
			}
		})
	}

	// once confirmed, the locked re-check rejects more quantity
	if _, err := l.ConfirmDate(ctx, "2025-03-01", "kitchen"); err != nil {
		t.Fatal(err)
	}
	req := base
	req.Items = []Item{{Code: "2", Qty: 1}}
	if _, err := l.AddIncremental(ctx, req); !errors.Is(err, apperr.ErrInvalidTransition) {
		t.Fatalf("add after confirm = %v, want invalid transition", err)
	}
	if got := orderRows(t, db, testdb.BranchHNR)["2"].Qty; got != 3 {
		t.Errorf("dispatched qty = %v, want 3 unchanged", got)
	}
}
