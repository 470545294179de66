package printer

import (
	"bytes"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/xelth-com/eckmrpgo/internal/models"
)

func sampleProcess() *models.Process {
	seq := 1
	unit := &models.Uom{Name: "Unit", Symbol: "u"}
	return &models.Process{
		ID:     4,
		Name:   "Assembly components",
		Active: true,
		Uom:    unit,
		Steps: []models.ProcessStep{{
			Name:        "Prepare",
			Description: "Cut and sort",
			Sequence:    &seq,
			Inputs: []models.BomInput{{
				BomLine: models.BomLine{ProductID: 1, Quantity: decimal.NewFromInt(5)},
				Product: &models.ProductProduct{Name: "Component 1"},
				Uom:     unit,
			}},
			Outputs: []models.BomOutput{{
				BomLine: models.BomLine{ProductID: 2, Quantity: decimal.NewFromInt(1)},
				Uom:     unit,
			}},
			Operations: []models.RouteOperation{{
				Sequence:      1,
				OperationType: &models.OperationType{Name: "Assembly"},
				Time:          decimal.NewFromFloat(0.5),
				Calculation:   models.CalculationFixed,
			}},
		}, {
			Name: "Pack",
		}},
	}
}

func TestGenerateProcessSheet(t *testing.T) {
	pdf, err := GenerateProcessSheet(sampleProcess(), SheetOptions{})
	if err != nil {
		t.Fatalf("GenerateProcessSheet failed: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Errorf("Output is not a PDF")
	}
}

func TestQRContent(t *testing.T) {
	p := sampleProcess()
	if got := QRContent(p, SheetOptions{}); got != "PROCESS:4" {
		t.Errorf("Expected PROCESS:4, got %s", got)
	}
	if got := QRContent(p, SheetOptions{BaseURL: "https://mrp.example.com/"}); got != "HTTPS://MRP.EXAMPLE.COM/API/PROCESSES/4" {
		t.Errorf("Unexpected QR link %s", got)
	}
}
