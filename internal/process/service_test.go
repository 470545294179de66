package process

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/xelth-com/eckmrpgo/internal/models"
	"github.com/xelth-com/eckmrpgo/internal/testutil"
)

func setup(t *testing.T) (*Service, *gorm.DB, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	f := testutil.Seed(t, db)
	return NewService(db, nil, nil), db, f
}

func intPtr(v int) *int { return &v }

func uintPtr(v uint) *uint { return &v }

func createOne(t *testing.T, svc *Service, draft ProcessDraft) models.Process {
	t.Helper()
	created, err := svc.Create(context.Background(), []ProcessDraft{draft})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("Expected 1 process, got %d", len(created))
	}
	return created[0]
}

func TestCreateSynthesizesBomAndRoute(t *testing.T) {
	svc, db, f := setup(t)

	p := createOne(t, svc, ProcessDraft{Name: "Painting", UomID: f.Unit.ID})

	if p.BomID == 0 || p.RouteID == 0 {
		t.Fatalf("Expected BOM and route, got bom=%d route=%d", p.BomID, p.RouteID)
	}
	if !p.Active {
		t.Error("Expected new process to be active")
	}

	var bom models.ProductionBom
	if err := db.First(&bom, p.BomID).Error; err != nil {
		t.Fatalf("Failed to load BOM: %v", err)
	}
	if bom.Name != "Painting" {
		t.Errorf("Expected BOM name 'Painting', got %q", bom.Name)
	}

	var route models.ProductionRoute
	if err := db.First(&route, p.RouteID).Error; err != nil {
		t.Fatalf("Failed to load route: %v", err)
	}
	if route.Name != "Painting" {
		t.Errorf("Expected route name 'Painting', got %q", route.Name)
	}
	if route.UomID == nil || *route.UomID != f.Unit.ID {
		t.Errorf("Expected route UOM %d, got %v", f.Unit.ID, route.UomID)
	}
}

func TestCreateBatchKeepsExplicitBomAndRoute(t *testing.T) {
	svc, db, f := setup(t)

	bom := models.ProductionBom{Name: "Existing", Active: true}
	route := models.ProductionRoute{Name: "Existing", Active: true}
	db.Create(&bom)
	db.Create(&route)

	created, err := svc.Create(context.Background(), []ProcessDraft{
		{Name: "Auto", UomID: f.Unit.ID},
		{Name: "Explicit", UomID: f.Unit.ID, BomID: &bom.ID, RouteID: &route.ID},
		{Name: "Auto 2", UomID: f.Unit.ID},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	names := map[string]models.Process{}
	for _, p := range created {
		names[p.Name] = p
	}
	if names["Explicit"].BomID != bom.ID || names["Explicit"].RouteID != route.ID {
		t.Errorf("Explicit process should keep its BOM/route, got bom=%d route=%d",
			names["Explicit"].BomID, names["Explicit"].RouteID)
	}
	if names["Auto"].BomID == names["Auto 2"].BomID {
		t.Error("Synthesized processes should not share a BOM")
	}

	var boms int64
	db.Model(&models.ProductionBom{}).Count(&boms)
	if boms != 3 {
		t.Errorf("Expected 3 BOMs, got %d", boms)
	}
}

func TestCreateRejectsHalfSuppliedBomRoute(t *testing.T) {
	svc, db, f := setup(t)

	bom := models.ProductionBom{Name: "Lonely", Active: true}
	db.Create(&bom)

	_, err := svc.Create(context.Background(), []ProcessDraft{{Name: "Half", UomID: f.Unit.ID, BomID: &bom.ID}})
	if !errors.Is(err, ErrRouteRequired) {
		t.Fatalf("Expected ErrRouteRequired, got %v", err)
	}
	_, err = svc.Create(context.Background(), []ProcessDraft{{Name: "", UomID: f.Unit.ID}})
	if !errors.Is(err, ErrNameRequired) {
		t.Fatalf("Expected ErrNameRequired, got %v", err)
	}

	var count int64
	db.Model(&models.Process{}).Count(&count)
	if count != 0 {
		t.Errorf("Expected no process stored, got %d", count)
	}
}

func TestWriteRenamesBomAndRoute(t *testing.T) {
	svc, _, f := setup(t)
	a := createOne(t, svc, ProcessDraft{Name: "A", UomID: f.Unit.ID})
	b := createOne(t, svc, ProcessDraft{Name: "B", UomID: f.Unit.ID})

	name := "Renamed"
	updated, err := svc.Write(context.Background(), []uint{a.ID, b.ID}, Changes{Name: &name})
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	for _, p := range updated {
		if p.Name != name {
			t.Errorf("Expected process name %q, got %q", name, p.Name)
		}
		if p.Bom == nil || p.Bom.Name != name {
			t.Errorf("Expected BOM of process %d renamed", p.ID)
		}
		if p.Route == nil || p.Route.Name != name {
			t.Errorf("Expected route of process %d renamed", p.ID)
		}
	}
}

func TestWriteRenamesNewlyAssignedBom(t *testing.T) {
	svc, db, f := setup(t)
	p := createOne(t, svc, ProcessDraft{Name: "A", UomID: f.Unit.ID})

	bom := models.ProductionBom{Name: "Spare", Active: true}
	db.Create(&bom)

	name := "Fresh"
	if _, err := svc.Write(context.Background(), []uint{p.ID}, Changes{Name: &name, BomID: &bom.ID}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	db.First(&bom, bom.ID)
	if bom.Name != "Fresh" {
		t.Errorf("Expected newly assigned BOM renamed, got %q", bom.Name)
	}

	var old models.ProductionBom
	db.First(&old, p.BomID)
	if old.Name != "A" {
		t.Errorf("Expected previous BOM to keep its name, got %q", old.Name)
	}
}

func TestWriteRouteLockedOnceStepsExist(t *testing.T) {
	svc, db, f := setup(t)
	p := createOne(t, svc, ProcessDraft{
		Name:  "With steps",
		UomID: f.Unit.ID,
		Steps: []StepDraft{{Name: "Only"}},
	})

	route := models.ProductionRoute{Name: "Other", Active: true}
	db.Create(&route)

	_, err := svc.Write(context.Background(), []uint{p.ID}, Changes{RouteID: &route.ID})
	if !errors.Is(err, ErrRouteLocked) {
		t.Fatalf("Expected ErrRouteLocked, got %v", err)
	}

	empty := createOne(t, svc, ProcessDraft{Name: "Empty", UomID: f.Unit.ID})
	if _, err := svc.Write(context.Background(), []uint{empty.ID}, Changes{RouteID: &route.ID}); err != nil {
		t.Fatalf("Expected route change on a process without steps to succeed: %v", err)
	}
}

func TestDeleteRemovesOwnedBomAndRoute(t *testing.T) {
	svc, db, f := setup(t)
	keep := createOne(t, svc, ProcessDraft{Name: "Keep", UomID: f.Unit.ID})
	p := createOne(t, svc, ProcessDraft{
		Name:  "Drop",
		UomID: f.Unit.ID,
		Steps: []StepDraft{{Name: "Orphan"}},
	})

	if err := svc.Delete(context.Background(), []uint{p.ID}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	var count int64
	db.Model(&models.ProductionBom{}).Where("id = ?", p.BomID).Count(&count)
	if count != 0 {
		t.Error("Expected process BOM deleted")
	}
	db.Model(&models.ProductionRoute{}).Where("id = ?", p.RouteID).Count(&count)
	if count != 0 {
		t.Error("Expected process route deleted")
	}
	db.Model(&models.ProductionBom{}).Where("id = ?", keep.BomID).Count(&count)
	if count != 1 {
		t.Error("Expected unrelated BOM kept")
	}

	var step models.ProcessStep
	if err := db.Where("name = ?", "Orphan").First(&step).Error; err != nil {
		t.Fatalf("Expected step to survive: %v", err)
	}
	if step.ProcessID != nil {
		t.Errorf("Expected orphaned step, got process %d", *step.ProcessID)
	}
}

func TestDeleteReferencedBomFails(t *testing.T) {
	svc, db, f := setup(t)
	p := createOne(t, svc, ProcessDraft{Name: "Owner", UomID: f.Unit.ID})

	var bom models.ProductionBom
	db.First(&bom, p.BomID)
	err := db.Delete(&bom).Error
	if !errors.Is(err, models.ErrBOMInUse) {
		t.Fatalf("Expected ErrBOMInUse, got %v", err)
	}
	var inUse *models.InUseError
	if !errors.As(err, &inUse) {
		t.Fatalf("Expected *InUseError, got %T", err)
	}
	if inUse.Process != "Owner" || inUse.Record != "Owner" {
		t.Errorf("Expected error to name BOM and process, got %q", err.Error())
	}

	var route models.ProductionRoute
	db.First(&route, p.RouteID)
	err = db.Delete(&route).Error
	if !errors.Is(err, models.ErrRouteInUse) {
		t.Fatalf("Expected ErrRouteInUse, got %v", err)
	}
	if !strings.Contains(err.Error(), "route") {
		t.Errorf("Expected message to mention the route, got %q", err.Error())
	}

	free := models.ProductionBom{Name: "Free", Active: true}
	db.Create(&free)
	if err := db.Delete(&free).Error; err != nil {
		t.Errorf("Expected unreferenced BOM delete to succeed: %v", err)
	}
}

func TestCopyDuplicatesStepsWithFreshBomAndRoute(t *testing.T) {
	svc, db, f := setup(t)
	component := testutil.Product(t, db, "component", "COMP", f.Unit)
	product := testutil.Product(t, db, "product", "PROD", f.Unit)

	src := createOne(t, svc, ProcessDraft{
		Name:  "Assembly",
		UomID: f.Unit.ID,
		Steps: []StepDraft{{
			Name:     "Mount",
			Sequence: intPtr(1),
			Inputs:   []LineDraft{{ProductID: component.ID, Quantity: decimal.NewFromInt(5)}},
			Outputs:  []LineDraft{{ProductID: product.ID, Quantity: decimal.NewFromInt(1)}},
			Operations: []OperationDraft{{
				Sequence:             1,
				OperationTypeID:      f.Assembly.ID,
				WorkCenterCategoryID: f.Category.ID,
			}},
		}},
	})

	copies, err := svc.Copy(context.Background(), []uint{src.ID})
	if err != nil {
		t.Fatalf("Copy failed: %v", err)
	}
	if len(copies) != 1 {
		t.Fatalf("Expected 1 copy, got %d", len(copies))
	}
	cp := copies[0]
	if cp.Name != "Assembly (*)" {
		t.Errorf("Expected copy name 'Assembly (*)', got %q", cp.Name)
	}
	if cp.BomID == src.BomID || cp.RouteID == src.RouteID {
		t.Error("Copy must own a distinct BOM and route")
	}
	if len(cp.Steps) != 1 || cp.Steps[0].Name != "Mount" {
		t.Fatalf("Expected copied step 'Mount', got %+v", cp.Steps)
	}
	if len(cp.Inputs()) != 1 || !cp.Inputs()[0].Quantity.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected copied input of 5 on the new BOM, got %+v", cp.Inputs())
	}
	if len(cp.Operations()) != 1 {
		t.Errorf("Expected 1 operation on the new route, got %d", len(cp.Operations()))
	}

	original, _ := svc.Get(context.Background(), src.ID)
	if len(original.Inputs()) != 1 || len(original.Operations()) != 1 {
		t.Error("Copy must not move lines off the original process")
	}
}

func TestSearchByOutputProduct(t *testing.T) {
	svc, db, f := setup(t)
	product := testutil.Product(t, db, "product", "PROD", f.Unit)
	other := testutil.Product(t, db, "other", "OTHER", f.Unit)

	makes := createOne(t, svc, ProcessDraft{
		Name:  "Makes product",
		UomID: f.Unit.ID,
		Steps: []StepDraft{{Name: "S", Outputs: []LineDraft{{ProductID: product.ID, Quantity: decimal.NewFromInt(1)}}}},
	})
	createOne(t, svc, ProcessDraft{
		Name:  "Makes other",
		UomID: f.Unit.ID,
		Steps: []StepDraft{{Name: "S", Outputs: []LineDraft{{ProductID: other.ID, Quantity: decimal.NewFromInt(1)}}}},
	})

	found, err := svc.SearchByOutputProduct(context.Background(), product.ID)
	if err != nil {
		t.Fatalf("SearchByOutputProduct failed: %v", err)
	}
	if len(found) != 1 || found[0].ID != makes.ID {
		t.Fatalf("Expected only process %d, got %+v", makes.ID, found)
	}

	ok, err := Produces(db, makes.ID, other.ID)
	if err != nil || ok {
		t.Errorf("Expected process not to produce other, got %v (%v)", ok, err)
	}
	outputs, err := svc.OutputProducts(context.Background(), makes.ID)
	if err != nil || len(outputs) != 1 || outputs[0] != product.ID {
		t.Errorf("Expected output products [%d], got %v (%v)", product.ID, outputs, err)
	}
}
