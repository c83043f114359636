package kitchenstock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"mkitchen-backend/internal/apperr"
	"mkitchen-backend/internal/catalog"
	"mkitchen-backend/internal/dailystats"
	"mkitchen-backend/internal/logging"
	"mkitchen-backend/internal/models"
	"mkitchen-backend/internal/orders"
	"mkitchen-backend/internal/testdb"
)

type recordingLocker struct {
	mu       sync.Mutex
	keys     []string
	released int
}

func (r *recordingLocker) Acquire(_ context.Context, key string) func() {
	r.mu.Lock()
	r.keys = append(r.keys, key)
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		r.released++
		r.mu.Unlock()
	}
}

func fixedNow() time.Time { return time.Date(2025, 3, 2, 20, 0, 0, 0, time.UTC) }

type fixture struct {
	db     *gorm.DB
	cat    *catalog.Service
	stock  *Service
	locker *recordingLocker
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db := testdb.New(t)
	cat := catalog.New(db, nil, logging.Discard())
	locker := &recordingLocker{}
	return fixture{
		db:     db,
		cat:    cat,
		stock:  NewService(db, cat, DefaultMapping(), locker, fixedNow),
		locker: locker,
	}
}

func ptr(v float64) *float64 { return &v }

func rowOf(t *testing.T, rows []Row, code string) Row {
	t.Helper()
	for _, r := range rows {
		if r.Code == code {
			return r
		}
	}
	t.Fatalf("no row for %s", code)
	return Row{}
}

func TestClosingChain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.stock.Save(ctx, "2025-03-01", []SaveItem{{Code: "2a", Received: 12}}, "kitchen"); err != nil {
		t.Fatal(err)
	}

	view, err := f.stock.View(ctx, "2025-03-02")
	if err != nil {
		t.Fatal(err)
	}
	r := rowOf(t, view, "2a")
	if r.OB != 12 || r.Closing != 12 || r.Saved {
		t.Errorf("unsaved day 2 = %+v, want ob 12 closing 12", r)
	}

	saved, err := f.stock.Save(ctx, "2025-03-02", []SaveItem{
		{Code: "2a", Received: 5, Wastage: 1, Consumption: ptr(3)},
	}, "kitchen")
	if err != nil {
		t.Fatal(err)
	}
	if saved[0].Closing != 13 {
		t.Errorf("saved closing = %v, want 13", saved[0].Closing)
	}

	view, _ = f.stock.View(ctx, "2025-03-02")
	r = rowOf(t, view, "2a")
	if r.OB != 12 || r.Received != 5 || r.Wastage != 1 || r.Closing != 13 || !r.Saved {
		t.Errorf("day 2 = %+v", r)
	}

	next, _ := f.stock.View(ctx, "2025-03-03")
	if got := rowOf(t, next, "2a").OB; got != 13 {
		t.Errorf("day 3 ob = %v, want 13", got)
	}
}

func TestClosingOverrideWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	saved, err := f.stock.Save(ctx, "2025-03-01", []SaveItem{{Code: "9a", Received: 10, Closing: ptr(4)}}, "kitchen")
	if err != nil {
		t.Fatal(err)
	}
	if saved[0].Closing != 4 {
		t.Errorf("closing = %v, want the override 4", saved[0].Closing)
	}
	view, _ := f.stock.View(ctx, "2025-03-01")
	if got := rowOf(t, view, "9a").Closing; got != 4 {
		t.Errorf("view closing = %v, want stored 4", got)
	}
}

func TestConsumptionIsDerived(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	stats := dailystats.NewService(f.db, f.cat, fixedNow)
	if _, err := stats.Upsert(ctx, "2025-03-02", []dailystats.Item{
		{Code: "1", Kg: 4}, {Code: "2", Kg: 6}, {Code: "27", Kg: 1.5},
	}, "kitchen"); err != nil {
		t.Fatal(err)
	}

	ol := orders.NewLedger(f.db, f.cat, fixedNow)
	for _, req := range []orders.BatchRequest{
		{Date: "2025-03-02", Session: models.SessionLunch, BranchID: testdb.BranchHNR, Items: []orders.Item{{Code: "508", Qty: 7}}},
		{Date: "2025-03-02", Session: models.SessionDinner, BranchID: testdb.BranchINR, Items: []orders.Item{{Code: "508", Qty: 2}}},
	} {
		if _, err := ol.SaveReplace(ctx, req); err != nil {
			t.Fatal(err)
		}
	}

	view, err := f.stock.View(ctx, "2025-03-02")
	if err != nil {
		t.Fatal(err)
	}
	if got := rowOf(t, view, "3a").Consumption; got != 0 {
		t.Errorf("CBL before dispatch = %v, want 0", got)
	}

	if _, err := ol.ConfirmDate(ctx, "2025-03-02", "kitchen"); err != nil {
		t.Fatal(err)
	}
	view, _ = f.stock.View(ctx, "2025-03-02")

	tests := []struct {
		code string
		want float64
	}{
		{"1a", 10},
		{"3a", 9},
		{"9a", 1.5},
		{"2a", 0},
	}
	for _, tt := range tests {
		r := rowOf(t, view, tt.code)
		if r.Consumption != tt.want {
			t.Errorf("%s consumption = %v, want %v", tt.code, r.Consumption, tt.want)
		}
		if r.Closing != -tt.want {
			t.Errorf("%s closing = %v, want %v", tt.code, r.Closing, -tt.want)
		}
	}

	saved, err := f.stock.Save(ctx, "2025-03-02", []SaveItem{{Code: "1a", Received: 20}}, "kitchen")
	if err != nil {
		t.Fatal(err)
	}
	if saved[0].Consumption != 10 || saved[0].Closing != 10 {
		t.Errorf("saved = %+v, want derived consumption 10 and closing 10", saved[0])
	}
}

func TestSaveRejectsUnknownItemAndLocks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.stock.Save(ctx, "2025-03-01", []SaveItem{{Code: "1a"}, {Code: "77a"}}, "kitchen")
	if !errors.Is(err, apperr.ErrReferentialIntegrity) {
		t.Fatalf("err = %v, want referential integrity", err)
	}
	var count int64
	f.db.Model(&models.RawStockEntry{}).Count(&count)
	if count != 0 {
		t.Errorf("%d rows written by rejected batch", count)
	}
	if len(f.locker.keys) != 0 {
		t.Errorf("lock taken for a rejected batch: %v", f.locker.keys)
	}

	if _, err := f.stock.Save(ctx, "2025-03-01", []SaveItem{{Code: "1a", Received: 1}}, "kitchen"); err != nil {
		t.Fatal(err)
	}
	if len(f.locker.keys) != 1 || f.locker.keys[0] != "kitchen-stock:2025-03-01" || f.locker.released != 1 {
		t.Errorf("locker = %+v", f.locker)
	}
}

func TestViewShowsStoredConsumption(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.stock.Save(ctx, "2025-03-01", []SaveItem{{Code: "2a", Received: 10, Consumption: ptr(3)}}, "kitchen"); err != nil {
		t.Fatal(err)
	}
	view, err := f.stock.View(ctx, "2025-03-01")
	if err != nil {
		t.Fatal(err)
	}
	r := rowOf(t, view, "2a")
	if !r.Saved || r.Consumption != 3 || r.Closing != 7 {
		t.Fatalf("saved row = %+v, want consumption 3 closing 7", r)
	}
	if got := Closing(r.OB, r.Received, r.Consumption, r.Wastage); got != r.Closing {
		t.Errorf("view breaks the balance formula: %v != %v", got, r.Closing)
	}

	// re-saving the view as shown keeps the override
	saved, err := f.stock.Save(ctx, "2025-03-01", []SaveItem{{Code: r.Code, Received: r.Received, Wastage: r.Wastage, Consumption: ptr(r.Consumption)}}, "kitchen")
	if err != nil {
		t.Fatal(err)
	}
	if saved[0].Consumption != 3 || saved[0].Closing != 7 {
		t.Errorf("re-saved = %+v", saved[0])
	}
}
