package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/xelth-com/eckmrpgo/internal/models"
	"github.com/xelth-com/eckmrpgo/internal/process"
	"github.com/xelth-com/eckmrpgo/internal/testutil"
)

func TestBindingTakesProcessBomAndRoute(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.Seed(t, db)
	product := testutil.Product(t, db, "product", "PROD", f.Unit)
	processes := process.NewService(db, nil, nil)
	svc := NewService(db, nil)

	created, err := processes.Create(context.Background(), []process.ProcessDraft{{
		Name:  "Make product",
		UomID: f.Unit.ID,
		Steps: []process.StepDraft{{Name: "Only", Outputs: []process.LineDraft{{ProductID: product.ID, Quantity: decimal.NewFromInt(1)}}}},
	}})
	if err != nil {
		t.Fatalf("Create process failed: %v", err)
	}
	p := created[0]

	other := models.ProductionBom{Name: "Other", Active: true}
	db.Create(&other)

	bindings, err := svc.CreateBindings(context.Background(), []BindingDraft{{
		ProductID: product.ID,
		BomID:     &other.ID,
		ProcessID: &p.ID,
	}})
	if err != nil {
		t.Fatalf("CreateBindings failed: %v", err)
	}
	b := bindings[0]
	if b.BomID == nil || *b.BomID != p.BomID {
		t.Errorf("Expected BOM %d from process, got %v", p.BomID, b.BomID)
	}
	if b.RouteID == nil || *b.RouteID != p.RouteID {
		t.Errorf("Expected route %d from process, got %v", p.RouteID, b.RouteID)
	}

	loaded, err := svc.GetProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("GetProduct failed: %v", err)
	}
	if len(loaded.Boms) != 1 {
		t.Errorf("Expected 1 binding on product, got %d", len(loaded.Boms))
	}
}

func TestBindingRejectsProcessNotProducingProduct(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.Seed(t, db)
	product := testutil.Product(t, db, "product", "PROD", f.Unit)
	other := testutil.Product(t, db, "other", "OTHER", f.Unit)
	processes := process.NewService(db, nil, nil)
	svc := NewService(db, nil)

	created, _ := processes.Create(context.Background(), []process.ProcessDraft{{
		Name:  "Make other",
		UomID: f.Unit.ID,
		Steps: []process.StepDraft{{Name: "Only", Outputs: []process.LineDraft{{ProductID: other.ID, Quantity: decimal.NewFromInt(1)}}}},
	}})

	_, err := svc.CreateBindings(context.Background(), []BindingDraft{{ProductID: product.ID, ProcessID: &created[0].ID}})
	if !errors.Is(err, ErrProcessDoesNotProduce) {
		t.Fatalf("Expected ErrProcessDoesNotProduce, got %v", err)
	}

	bindings, _ := svc.ListBindings(context.Background(), product.ID)
	if len(bindings) != 0 {
		t.Errorf("Expected nothing stored, got %d bindings", len(bindings))
	}
}

func TestUpdateBindingAppliesProcess(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.Seed(t, db)
	product := testutil.Product(t, db, "product", "PROD", f.Unit)
	processes := process.NewService(db, nil, nil)
	svc := NewService(db, nil)

	bom := models.ProductionBom{Name: "Plain", Active: true}
	db.Create(&bom)
	bindings, err := svc.CreateBindings(context.Background(), []BindingDraft{{ProductID: product.ID, BomID: &bom.ID}})
	if err != nil {
		t.Fatalf("CreateBindings failed: %v", err)
	}

	created, _ := processes.Create(context.Background(), []process.ProcessDraft{{
		Name:  "Make product",
		UomID: f.Unit.ID,
		Steps: []process.StepDraft{{Name: "Only", Outputs: []process.LineDraft{{ProductID: product.ID, Quantity: decimal.NewFromInt(1)}}}},
	}})
	updated, err := svc.UpdateBinding(context.Background(), bindings[0].ID, BindingChanges{ProcessID: &created[0].ID})
	if err != nil {
		t.Fatalf("UpdateBinding failed: %v", err)
	}
	if *updated.BomID != created[0].BomID {
		t.Errorf("Expected BOM %d, got %d", created[0].BomID, *updated.BomID)
	}

	_, err = svc.CreateBindings(context.Background(), []BindingDraft{{ProductID: product.ID}})
	if !errors.Is(err, ErrBOMRequired) {
		t.Errorf("Expected ErrBOMRequired, got %v", err)
	}
}

func TestBindingsOrderedBySequence(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.Seed(t, db)
	product := testutil.Product(t, db, "product", "PROD", f.Unit)
	svc := NewService(db, nil)

	first := models.ProductionBom{Name: "First", Active: true}
	second := models.ProductionBom{Name: "Second", Active: true}
	db.Create(&first)
	db.Create(&second)

	_, err := svc.CreateBindings(context.Background(), []BindingDraft{
		{ProductID: product.ID, Sequence: 20, BomID: &second.ID},
		{ProductID: product.ID, Sequence: 10, BomID: &first.ID},
	})
	if err != nil {
		t.Fatalf("CreateBindings failed: %v", err)
	}
	bindings, _ := svc.ListBindings(context.Background(), product.ID)
	if len(bindings) != 2 || *bindings[0].BomID != first.ID {
		t.Errorf("Expected BOM %d first, got %+v", first.ID, bindings)
	}
}

func TestCopyProductDropsBindings(t *testing.T) {
	db := testutil.SetupTestDB(t)
	f := testutil.Seed(t, db)
	product := testutil.Product(t, db, "product", "PROD", f.Unit)
	svc := NewService(db, nil)

	bom := models.ProductionBom{Name: "Plain", Active: true}
	db.Create(&bom)
	if _, err := svc.CreateBindings(context.Background(), []BindingDraft{{ProductID: product.ID, BomID: &bom.ID}}); err != nil {
		t.Fatalf("CreateBindings failed: %v", err)
	}

	cp, err := svc.CopyProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("CopyProduct failed: %v", err)
	}
	if cp.ID == product.ID || cp.Name != product.Name {
		t.Errorf("Expected a new product named %q, got %+v", product.Name, cp)
	}
	bindings, _ := svc.ListBindings(context.Background(), cp.ID)
	if len(bindings) != 0 {
		t.Errorf("Expected copy without bindings, got %d", len(bindings))
	}
	original, _ := svc.ListBindings(context.Background(), product.ID)
	if len(original) != 1 {
		t.Errorf("Expected original to keep its binding, got %d", len(original))
	}
}
