package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Production states.
const (
	ProductionStateRequest   = "request"
	ProductionStateDraft     = "draft"
	ProductionStateWaiting   = "waiting"
	ProductionStateAssigned  = "assigned"
	ProductionStateRunning   = "running"
	ProductionStateDone      = "done"
	ProductionStateCancelled = "cancelled"
)

// ValidProductionState reports whether state is one of the production
// states.
func ValidProductionState(state string) bool {
	switch state {
	case ProductionStateRequest, ProductionStateDraft, ProductionStateWaiting,
		ProductionStateAssigned, ProductionStateRunning, ProductionStateDone,
		ProductionStateCancelled:
		return true
	}
	return false
}

// Production mirrors 'production' (a manufacturing order).
type Production struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Number      string          `gorm:"uniqueIndex;not null" json:"number"`
	State       string          `gorm:"not null;index" json:"state"`
	ProductID   *uint           `gorm:"index" json:"product_id"`
	Quantity    decimal.Decimal `gorm:"type:decimal(16,4)" json:"quantity"`
	UomID       *uint           `json:"uom_id"`
	BomID       *uint           `gorm:"index" json:"bom_id"`
	RouteID     *uint           `gorm:"index" json:"route_id"`
	ProcessID   *uint           `gorm:"index" json:"process_id"`
	WarehouseID *uint           `json:"warehouse_id"`
	LocationID  *uint           `json:"location_id"`
	PlannedDate *time.Time      `json:"planned_date,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Product    *ProductProduct       `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Uom        *Uom                  `gorm:"foreignKey:UomID" json:"uom,omitempty"`
	Bom        *ProductionBom        `gorm:"foreignKey:BomID" json:"-"`
	Route      *ProductionRoute      `gorm:"foreignKey:RouteID" json:"-"`
	Process    *Process              `gorm:"foreignKey:ProcessID" json:"-"`
	Inputs     []StockMove           `gorm:"foreignKey:ProductionInputID" json:"inputs,omitempty"`
	Outputs    []StockMove           `gorm:"foreignKey:ProductionOutputID" json:"outputs,omitempty"`
	Operations []ProductionOperation `gorm:"foreignKey:ProductionID" json:"operations,omitempty"`
}

func (Production) TableName() string { return "production" }

// BeforeCreate numbers the order and defaults its state.
func (p *Production) BeforeCreate(tx *gorm.DB) error {
	if p.Number == "" {
		p.Number = generateProductionNumber()
	}
	if p.State == "" {
		p.State = ProductionStateDraft
	}
	return nil
}

// ProcessEditable reports whether the process of the order may still be
// changed: only requests and drafts with no warehouse or location yet.
func (p *Production) ProcessEditable() bool {
	if p.State != ProductionStateRequest && p.State != ProductionStateDraft {
		return false
	}
	return p.WarehouseID == nil && p.LocationID == nil
}

func generateProductionNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("MO-%s-%s", time.Now().Format("20060102"), suffix)
}

// ProductionOperation is an operation of an order, mirrored from a route
// operation.
type ProductionOperation struct {
	ID                   uint   `gorm:"primaryKey" json:"id"`
	ProductionID         uint   `gorm:"not null;index" json:"production_id"`
	RouteOperationID     *uint  `json:"route_operation_id"`
	Sequence             int    `json:"sequence"`
	OperationTypeID      uint   `json:"operation_type_id"`
	WorkCenterCategoryID uint   `json:"work_center_category_id"`
	WorkCenterID         *uint  `json:"work_center_id"`
	State                string `gorm:"not null" json:"state"`

	OperationType *OperationType `gorm:"foreignKey:OperationTypeID" json:"operation_type,omitempty"`
}

func (ProductionOperation) TableName() string { return "production_operation" }

func (o *ProductionOperation) BeforeCreate(tx *gorm.DB) error {
	if o.State == "" {
		o.State = "planned"
	}
	return nil
}
