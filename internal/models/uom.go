package models

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrUomCategoryMismatch is returned when converting between units of
// different categories (e.g. meters into hours).
var ErrUomCategoryMismatch = errors.New("units belong to different categories")

// UomCategory mirrors 'product.uom.category'.
type UomCategory struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	ErpID *int64 `gorm:"uniqueIndex" json:"erp_id,omitempty"`
	Name  string `gorm:"not null" json:"name"`
}

func (UomCategory) TableName() string { return "product_uom_category" }

// Uom mirrors 'product.uom'.
// Factor is the size of one unit in the category reference unit
// (meter = 1, centimeter = 0.01).
type Uom struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	ErpID      *int64          `gorm:"uniqueIndex" json:"erp_id,omitempty"`
	Name       string          `gorm:"not null" json:"name"`
	Symbol     string          `gorm:"index" json:"symbol"`
	CategoryID uint            `gorm:"index" json:"category_id"`
	Factor     decimal.Decimal `gorm:"type:decimal(20,10);not null" json:"factor"`
	Rounding   decimal.Decimal `gorm:"type:decimal(20,10);not null" json:"rounding"`
	Active     bool            `json:"active"`

	Category *UomCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (Uom) TableName() string { return "product_uom" }

// Round rounds qty to the nearest multiple of the unit rounding.
func (u *Uom) Round(qty decimal.Decimal) decimal.Decimal {
	if u == nil || !u.Rounding.IsPositive() {
		return qty
	}
	return qty.Div(u.Rounding).Round(0).Mul(u.Rounding)
}

// Ceil rounds qty up to the next multiple of the unit rounding.
func (u *Uom) Ceil(qty decimal.Decimal) decimal.Decimal {
	if u == nil || !u.Rounding.IsPositive() {
		return qty
	}
	return qty.Div(u.Rounding).Ceil().Mul(u.Rounding)
}

// ConvertQty converts qty expressed in from into to without rounding.
// A nil unit on either side, or identical units, return qty unchanged.
func ConvertQty(from *Uom, qty decimal.Decimal, to *Uom) (decimal.Decimal, error) {
	if from == nil || to == nil || from.ID == to.ID {
		return qty, nil
	}
	if from.CategoryID != to.CategoryID {
		return decimal.Zero, fmt.Errorf("convert %s to %s: %w", from.Name, to.Name, ErrUomCategoryMismatch)
	}
	if to.Factor.IsZero() {
		return decimal.Zero, fmt.Errorf("unit %s has no factor", to.Name)
	}
	return qty.Mul(from.Factor).Div(to.Factor), nil
}

// ComputeQty converts qty from one unit into another, rounded to the
// target unit.
func ComputeQty(from *Uom, qty decimal.Decimal, to *Uom) (decimal.Decimal, error) {
	converted, err := ConvertQty(from, qty, to)
	if err != nil {
		return decimal.Zero, err
	}
	if from == nil || to == nil || from.ID == to.ID {
		return converted, nil
	}
	return to.Round(converted), nil
}
