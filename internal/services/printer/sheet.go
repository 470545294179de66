// Package printer renders production documents as PDF.
package printer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/skip2/go-qrcode"

	"github.com/xelth-com/eckmrpgo/internal/models"
)

// SheetOptions controls the routing sheet layout.
type SheetOptions struct {
	// BaseURL prefixes the QR link; without it the QR holds "PROCESS:<id>".
	BaseURL string `json:"baseUrl"`
	// Title is printed above the process name.
	Title string `json:"title"`
}

const (
	pageWidth  = 210.0
	marginLeft = 15.0
	qrSize     = 30.0
	lineHeight = 6.0
)

// QRContent returns what the sheet's QR code encodes for a process. Links
// are upper-cased so the code fits the denser alphanumeric mode; the API
// lower-cases request paths.
func QRContent(p *models.Process, opts SheetOptions) string {
	if opts.BaseURL == "" {
		return fmt.Sprintf("PROCESS:%d", p.ID)
	}
	return strings.ToUpper(fmt.Sprintf("%s/api/processes/%d", strings.TrimRight(opts.BaseURL, "/"), p.ID))
}

// GenerateProcessSheet renders the routing sheet of a process: a header
// with a QR code, then every step with its inputs, outputs and operations.
// The process must be loaded with its steps and their relations.
func GenerateProcessSheet(p *models.Process, opts SheetOptions) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLeft, 15, marginLeft)
	pdf.SetAutoPageBreak(true, 15)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	qrPng, err := qrcode.Encode(QRContent(p, opts), qrcode.Medium, 256)
	if err != nil {
		return nil, err
	}
	imgOptions := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	pdf.RegisterImageOptionsReader("qr", imgOptions, bytes.NewReader(qrPng))
	pdf.ImageOptions("qr", pageWidth-marginLeft-qrSize, 10, qrSize, qrSize, false, imgOptions, 0, "")

	title := opts.Title
	if title == "" {
		title = "Production process"
	}
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, lineHeight, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, tr(p.Name), "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	if p.Uom != nil {
		pdf.CellFormat(0, lineHeight, tr("Unit: "+p.Uom.Name), "", 1, "L", false, 0, "")
	}
	if !p.Active {
		pdf.CellFormat(0, lineHeight, "Inactive", "", 1, "L", false, 0, "")
	}
	pdf.SetY(45)

	for i, step := range p.Steps {
		pdf.SetFont("Arial", "B", 12)
		number := i + 1
		if step.Sequence != nil {
			number = *step.Sequence
		}
		heading := fmt.Sprintf("%d. %s", number, step.Name)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(0, 8, tr(heading), "", 1, "L", true, 0, "")
		pdf.SetFont("Arial", "", 9)
		if step.Description != "" {
			pdf.MultiCell(0, 5, tr(step.Description), "", "L", false)
		}

		for _, in := range step.Inputs {
			lineRow(pdf, tr, "In", in.BomLine, in.Product, in.Uom)
		}
		for _, out := range step.Outputs {
			lineRow(pdf, tr, "Out", out.BomLine, out.Product, out.Uom)
		}
		for _, op := range step.Operations {
			operationRow(pdf, tr, op)
		}
		pdf.Ln(3)
	}

	if pdf.Err() {
		return nil, pdf.Error()
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func lineRow(pdf *gofpdf.Fpdf, tr func(string) string, kind string, line models.BomLine, product *models.ProductProduct, unit *models.Uom) {
	name := fmt.Sprintf("#%d", line.ProductID)
	if product != nil {
		name = product.Name
		if code := product.DefaultCode.String(); code != "" {
			name = fmt.Sprintf("[%s] %s", code, name)
		}
	}
	qty := line.Quantity.String()
	if unit != nil {
		qty += " " + unit.Symbol
	}
	pdf.CellFormat(15, lineHeight, kind, "B", 0, "L", false, 0, "")
	pdf.CellFormat(125, lineHeight, tr(name), "B", 0, "L", false, 0, "")
	pdf.CellFormat(0, lineHeight, tr(qty), "B", 1, "R", false, 0, "")
}

func operationRow(pdf *gofpdf.Fpdf, tr func(string) string, op models.RouteOperation) {
	name := fmt.Sprintf("Operation %d", op.Sequence)
	if op.OperationType != nil {
		name = fmt.Sprintf("%d %s", op.Sequence, op.OperationType.Name)
	}
	if op.WorkCenter != nil {
		name += " @ " + op.WorkCenter.Name
	}
	detail := op.Time.String() + " h"
	if op.Calculation == models.CalculationFixed {
		detail += " fixed"
	}
	pdf.CellFormat(15, lineHeight, "Op", "B", 0, "L", false, 0, "")
	pdf.CellFormat(125, lineHeight, tr(name), "B", 0, "L", false, 0, "")
	pdf.CellFormat(0, lineHeight, detail, "B", 1, "R", false, 0, "")
}
