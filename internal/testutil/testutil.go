// Package testutil provides database fixtures for package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/xelth-com/eckmrpgo/internal/models"
)

// SetupTestDB opens a migrated SQLite database private to the test.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "eckmrp.db") + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// Fixtures are the reference records most tests need.
type Fixtures struct {
	Unit       models.Uom
	Meter      models.Uom
	Centimeter models.Uom
	Hour       models.Uom

	Assembly         models.OperationType
	Category         models.WorkCenterCategory
	AssemblerMachine models.WorkCenter
}

// Seed creates units, an operation type and a work center.
func Seed(t *testing.T, db *gorm.DB) *Fixtures {
	t.Helper()
	units := models.UomCategory{Name: "Units"}
	length := models.UomCategory{Name: "Length"}
	duration := models.UomCategory{Name: "Time"}
	for _, c := range []*models.UomCategory{&units, &length, &duration} {
		mustCreate(t, db, c)
	}

	f := &Fixtures{
		Unit:       models.Uom{Name: "Unit", Symbol: "u", CategoryID: units.ID, Factor: decimal.NewFromInt(1), Rounding: decimal.NewFromInt(1), Active: true},
		Meter:      models.Uom{Name: "Meter", Symbol: "m", CategoryID: length.ID, Factor: decimal.NewFromInt(1), Rounding: decimal.RequireFromString("0.01"), Active: true},
		Centimeter: models.Uom{Name: "Centimeter", Symbol: "cm", CategoryID: length.ID, Factor: decimal.RequireFromString("0.01"), Rounding: decimal.NewFromInt(1), Active: true},
		Hour:       models.Uom{Name: "Hour", Symbol: "h", CategoryID: duration.ID, Factor: decimal.NewFromInt(1), Rounding: decimal.RequireFromString("0.01"), Active: true},
	}
	for _, u := range []*models.Uom{&f.Unit, &f.Meter, &f.Centimeter, &f.Hour} {
		mustCreate(t, db, u)
	}

	f.Assembly = models.OperationType{Name: "Assembly"}
	mustCreate(t, db, &f.Assembly)
	f.Category = models.WorkCenterCategory{Name: "Default Category"}
	mustCreate(t, db, &f.Category)
	f.AssemblerMachine = models.WorkCenter{Name: "Assembler Machine", CategoryID: f.Category.ID, CostPrice: decimal.NewFromInt(25), Active: true}
	mustCreate(t, db, &f.AssemblerMachine)
	return f
}

// Product creates a producible goods product.
func Product(t *testing.T, db *gorm.DB, name, code string, uom models.Uom) *models.ProductProduct {
	t.Helper()
	p := &models.ProductProduct{
		Name:         name,
		DefaultCode:  models.ErpString(code),
		Active:       true,
		Type:         "goods",
		Producible:   true,
		DefaultUomID: uom.ID,
	}
	mustCreate(t, db, p)
	return p
}

func mustCreate(t *testing.T, db *gorm.DB, value interface{}) {
	t.Helper()
	if err := db.Create(value).Error; err != nil {
		t.Fatalf("create %T: %v", value, err)
	}
}
