package models

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductionBom mirrors 'production.bom'.
type ProductionBom struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Inputs  []BomInput  `gorm:"foreignKey:BomID" json:"inputs,omitempty"`
	Outputs []BomOutput `gorm:"foreignKey:BomID" json:"outputs,omitempty"`
}

func (ProductionBom) TableName() string { return "production_bom" }

// ComputeFactor returns how many times the BOM must run to produce quantity
// (expressed in unit) of product. The first output of product is used;
// found is false when the BOM does not output product at all.
// Outputs must be loaded with their Uom.
func (b *ProductionBom) ComputeFactor(productID uint, quantity decimal.Decimal, unit *Uom) (factor decimal.Decimal, found bool, err error) {
	for _, output := range b.Outputs {
		if output.ProductID != productID {
			continue
		}
		if output.Quantity.IsZero() {
			return decimal.Zero, true, nil
		}
		qty, err := ConvertQty(unit, quantity, output.Uom)
		if err != nil {
			return decimal.Zero, true, err
		}
		return qty.Div(output.Quantity), true, nil
	}
	return decimal.Zero, false, nil
}

// BeforeDelete refuses to delete a BOM a production process still owns.
func (b *ProductionBom) BeforeDelete(tx *gorm.DB) error {
	return guardOwned(tx, "bom_id", b.ID, ErrBOMInUse, b.TableName())
}

// AfterDelete drops the BOM lines and product selections of the BOM and
// detaches productions from it.
func (b *ProductionBom) AfterDelete(tx *gorm.DB) error {
	db := tx.Session(&gorm.Session{NewDB: true})
	if err := db.Where("bom_id = ?", b.ID).Delete(&BomInput{}).Error; err != nil {
		return err
	}
	if err := db.Where("bom_id = ?", b.ID).Delete(&BomOutput{}).Error; err != nil {
		return err
	}
	if err := db.Where("bom_id = ?", b.ID).Delete(&ProductBom{}).Error; err != nil {
		return err
	}
	return db.Model(&Production{}).Where("bom_id = ?", b.ID).Update("bom_id", nil).Error
}

// BomLine holds the columns shared by BOM inputs and outputs, including
// the production step the line belongs to.
type BomLine struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	BomID        *uint           `gorm:"index" json:"bom_id"`
	ProductID    uint            `gorm:"not null;index" json:"product_id"`
	Quantity     decimal.Decimal `gorm:"type:decimal(16,4);not null" json:"quantity"`
	UomID        uint            `gorm:"not null" json:"uom_id"`
	StepID       *uint           `gorm:"index" json:"step_id"`
	StepSequence *int            `json:"step_sequence"`
}

// factorPrecision drops the digits a repeating factor (2/3) leaves after
// multiplication, so 3 x 0.6666666666666667 rounds up to 2, not 3.
const factorPrecision = 12

// ComputeQuantity returns the line quantity for factor runs of the BOM,
// rounded up to unit.
func (l *BomLine) ComputeQuantity(factor decimal.Decimal, unit *Uom) decimal.Decimal {
	return unit.Ceil(l.Quantity.Mul(factor).Round(factorPrecision))
}

// inferBom fills the BOM from the step's process when only the step is set.
func (l *BomLine) inferBom(tx *gorm.DB) error {
	if l.BomID != nil || l.StepID == nil {
		return nil
	}
	bomID, err := StepBomID(tx, *l.StepID)
	if err != nil {
		return err
	}
	l.BomID = bomID
	return nil
}

// BomInput mirrors 'production.bom.input'.
type BomInput struct {
	BomLine
	Product *ProductProduct `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Uom     *Uom            `gorm:"foreignKey:UomID" json:"uom,omitempty"`
}

func (BomInput) TableName() string { return "production_bom_input" }

func (l *BomInput) BeforeCreate(tx *gorm.DB) error { return l.inferBom(tx) }

// BomOutput mirrors 'production.bom.output'.
type BomOutput struct {
	BomLine
	Product *ProductProduct `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Uom     *Uom            `gorm:"foreignKey:UomID" json:"uom,omitempty"`
}

func (BomOutput) TableName() string { return "production_bom_output" }

func (l *BomOutput) BeforeCreate(tx *gorm.DB) error { return l.inferBom(tx) }

// StepBomID returns the BOM of the process owning step, or nil when the
// step has no process.
func StepBomID(tx *gorm.DB, stepID uint) (*uint, error) {
	return stepProcessColumn(tx, stepID, "bom_id")
}

// StepRouteID returns the route of the process owning step, or nil when
// the step has no process.
func StepRouteID(tx *gorm.DB, stepID uint) (*uint, error) {
	return stepProcessColumn(tx, stepID, "route_id")
}

func stepProcessColumn(tx *gorm.DB, stepID uint, column string) (*uint, error) {
	var ids []uint
	err := tx.Session(&gorm.Session{NewDB: true}).
		Table("production_process_step AS s").
		Joins("JOIN production_process AS p ON p.id = s.process_id").
		Where("s.id = ?", stepID).
		Pluck("p."+column, &ids).Error
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return &ids[0], nil
}

// guardOwned returns an InUseError when a process references the record
// through column.
func guardOwned(tx *gorm.DB, column string, id uint, kind error, table string) error {
	if id == 0 {
		return nil
	}
	db := tx.Session(&gorm.Session{NewDB: true})
	var owner Process
	err := db.Select("id", "name").Where(column+" = ?", id).Order("id").Take(&owner).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	var names []string
	if err := db.Table(table).Where("id = ?", id).Pluck("name", &names).Error; err != nil {
		return err
	}
	record := ""
	if len(names) > 0 {
		record = names[0]
	}
	return &InUseError{Err: kind, Record: record, Process: owner.Name}
}
