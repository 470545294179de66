package process

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/xelth-com/eckmrpgo/internal/models"
	"github.com/xelth-com/eckmrpgo/internal/testutil"
)

func TestComputeFactorFirstStepWins(t *testing.T) {
	svc, db, f := setup(t)
	product := testutil.Product(t, db, "product", "PROD", f.Unit)
	other := testutil.Product(t, db, "other", "OTHER", f.Unit)

	// Step B is created first but sorts after A.
	p := createOne(t, svc, ProcessDraft{
		Name:  "Two producers",
		UomID: f.Unit.ID,
		Steps: []StepDraft{
			{Name: "B", Sequence: intPtr(2), Outputs: []LineDraft{{ProductID: product.ID, Quantity: decimal.RequireFromString("0.4")}}},
			{Name: "A", Sequence: intPtr(1), Outputs: []LineDraft{{ProductID: product.ID, Quantity: decimal.NewFromInt(1)}}},
		},
	})

	factor, err := svc.ComputeFactor(context.Background(), p.ID, product.ID, decimal.NewFromInt(2), f.Unit.ID)
	if err != nil {
		t.Fatalf("ComputeFactor failed: %v", err)
	}
	if !factor.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected factor 2 from step A, got %s", factor)
	}

	_, err = svc.ComputeFactor(context.Background(), p.ID, other.ID, decimal.NewFromInt(2), f.Unit.ID)
	if !errors.Is(err, ErrFactorNotFound) {
		t.Errorf("Expected ErrFactorNotFound, got %v", err)
	}
}

func TestComputeFactorConvertsUnits(t *testing.T) {
	svc, db, f := setup(t)
	cable := testutil.Product(t, db, "cable", "CABLE", f.Meter)

	p := createOne(t, svc, ProcessDraft{
		Name:  "Cut cable",
		UomID: f.Meter.ID,
		Steps: []StepDraft{{Name: "Cut", Outputs: []LineDraft{{ProductID: cable.ID, Quantity: decimal.NewFromInt(50), UomID: f.Centimeter.ID}}}},
	})

	// 3 m is 300 cm, six runs of 50 cm.
	factor, err := svc.ComputeFactor(context.Background(), p.ID, cable.ID, decimal.NewFromInt(3), f.Meter.ID)
	if err != nil {
		t.Fatalf("ComputeFactor failed: %v", err)
	}
	if !factor.Equal(decimal.NewFromInt(6)) {
		t.Errorf("Expected factor 6, got %s", factor)
	}
}

func TestStepFactorSortsSteps(t *testing.T) {
	first, second := 1, 2
	out := func(qty int64) []models.BomOutput {
		return []models.BomOutput{{BomLine: models.BomLine{ProductID: 7, Quantity: decimal.NewFromInt(qty)}}}
	}
	steps := []models.ProcessStep{
		{ID: 1, Name: "unsequenced", Outputs: out(10)},
		{ID: 2, Name: "second", Sequence: &second, Outputs: out(5)},
		{ID: 3, Name: "first", Sequence: &first, Outputs: out(1)},
	}
	factor, err := stepFactor(steps, 7, decimal.NewFromInt(2), nil)
	if err != nil {
		t.Fatalf("stepFactor failed: %v", err)
	}
	if !factor.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected factor 2 from the first sequenced step, got %s", factor)
	}
	if steps[0].Name != "unsequenced" {
		t.Error("Expected the caller's slice to keep its order")
	}
}
