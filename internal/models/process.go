package models

import (
	"sort"
	"time"
)

// Process mirrors 'production.process': a named sequence of steps that owns
// one BOM and one route built from the lines and operations of its steps.
type Process struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null;index" json:"name"`
	Active    bool      `gorm:"index" json:"active"`
	BomID     uint      `gorm:"not null;index" json:"bom_id"`
	RouteID   uint      `gorm:"not null;index" json:"route_id"`
	UomID     uint      `gorm:"not null" json:"uom_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Bom   *ProductionBom   `gorm:"foreignKey:BomID" json:"bom,omitempty"`
	Route *ProductionRoute `gorm:"foreignKey:RouteID" json:"route,omitempty"`
	Uom   *Uom             `gorm:"foreignKey:UomID" json:"uom,omitempty"`
	Steps []ProcessStep    `gorm:"foreignKey:ProcessID" json:"steps,omitempty"`
}

func (Process) TableName() string { return "production_process" }

// Inputs returns the inputs of the owned BOM (Bom must be loaded).
func (p *Process) Inputs() []BomInput {
	if p.Bom == nil {
		return nil
	}
	return p.Bom.Inputs
}

// Outputs returns the outputs of the owned BOM (Bom must be loaded).
func (p *Process) Outputs() []BomOutput {
	if p.Bom == nil {
		return nil
	}
	return p.Bom.Outputs
}

// OutputProducts returns the distinct products the process outputs, sorted.
func (p *Process) OutputProducts() []uint {
	seen := make(map[uint]bool)
	var ids []uint
	for _, output := range p.Outputs() {
		if !seen[output.ProductID] {
			seen[output.ProductID] = true
			ids = append(ids, output.ProductID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Produces reports whether productID is among the outputs.
func (p *Process) Produces(productID uint) bool {
	for _, output := range p.Outputs() {
		if output.ProductID == productID {
			return true
		}
	}
	return false
}

// Operations returns the operations of the owned route (Route must be loaded).
func (p *Process) Operations() []RouteOperation {
	if p.Route == nil {
		return nil
	}
	return p.Route.Operations
}

// ProcessStep mirrors 'production.process.step'.
type ProcessStep struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ProcessID   *uint     `gorm:"index" json:"process_id"`
	Name        string    `gorm:"not null" json:"name"`
	Description string    `json:"description"`
	Sequence    *int      `json:"sequence"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Process    *Process         `gorm:"foreignKey:ProcessID" json:"-"`
	Inputs     []BomInput       `gorm:"foreignKey:StepID" json:"inputs,omitempty"`
	Outputs    []BomOutput      `gorm:"foreignKey:StepID" json:"outputs,omitempty"`
	Operations []RouteOperation `gorm:"foreignKey:StepID" json:"operations,omitempty"`
}

func (ProcessStep) TableName() string { return "production_process_step" }

// Bom returns the lines of the step as a standalone BOM, used to compute
// the factor of the step for a product.
func (s *ProcessStep) Bom() *ProductionBom {
	return &ProductionBom{Name: s.Name, Inputs: s.Inputs, Outputs: s.Outputs}
}

// Less orders steps by sequence (unset last), then id.
func (s *ProcessStep) Less(other *ProcessStep) bool {
	switch {
	case s.Sequence == nil && other.Sequence == nil:
		return s.ID < other.ID
	case s.Sequence == nil:
		return false
	case other.Sequence == nil:
		return true
	case *s.Sequence != *other.Sequence:
		return *s.Sequence < *other.Sequence
	default:
		return s.ID < other.ID
	}
}
