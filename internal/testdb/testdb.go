// Package testdb opens a migrated in-memory SQLite database seeded with a
// small catalog, for package tests.
package testdb

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"mkitchen-backend/internal/database"
	"mkitchen-backend/internal/models"
)

// Branch IDs of the seeded catalog.
const (
	BranchHNR uint = 1
	BranchINR uint = 2
	BranchKRM uint = 3
)

var Dishes = []models.Dish{
	{Code: "1", Name: "CHICKEN BIRYANI", Rate: 180, SortOrder: 1},
	{Code: "2", Name: "CHICKEN CURRY", Rate: 150, SortOrder: 2},
	{Code: "4", Name: "LEG PIECE", Rate: 120, SortOrder: 3},
	{Code: "12", Name: "VEG BIRYANI", Rate: 110, SortOrder: 4},
	{Code: "27", Name: "PANEER BUTTER MASALA", Rate: 160, SortOrder: 5},
	{Code: "53", Name: "MUTTON CURRY", Rate: 240, SortOrder: 6},
	{Code: "508", Name: "C.BONELESS", Rate: 200, SortOrder: 7},
}

var Branches = []models.Branch{
	{ID: BranchHNR, Name: "HNR"},
	{ID: BranchINR, Name: "INR"},
	{ID: BranchKRM, Name: "KRM"},
}

var RawItems = []models.RawItem{
	{ID: 1, Code: "1a", Name: "CHICKEN"},
	{ID: 2, Code: "2a", Name: "LEGES"},
	{ID: 3, Code: "3a", Name: "CBL"},
	{ID: 4, Code: "9a", Name: "PANNER"},
}

func New(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.ReplaceAll(uuid.NewString(), "-", "")
	db, err := database.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	// One connection: goroutines queue instead of hitting SQLITE_BUSY, and the
	// shared in-memory database lives as long as this connection.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetConnMaxLifetime(0)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	dishes := append([]models.Dish(nil), Dishes...)
	branches := append([]models.Branch(nil), Branches...)
	items := append([]models.RawItem(nil), RawItems...)
	if err := db.Create(&dishes).Error; err != nil {
		t.Fatalf("seed dishes: %v", err)
	}
	if err := db.Create(&branches).Error; err != nil {
		t.Fatalf("seed branches: %v", err)
	}
	if err := db.Create(&items).Error; err != nil {
		t.Fatalf("seed raw items: %v", err)
	}
	return db
}
