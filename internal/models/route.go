package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Route operation quantity calculations.
const (
	CalculationStandard = "standard"
	CalculationFixed    = "fixed"
)

// ProductionRoute mirrors 'production.route'.
type ProductionRoute struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	UomID     *uint     `json:"uom_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Uom        *Uom             `gorm:"foreignKey:UomID" json:"uom,omitempty"`
	Operations []RouteOperation `gorm:"foreignKey:RouteID" json:"operations,omitempty"`
}

func (ProductionRoute) TableName() string { return "production_route" }

// BeforeDelete refuses to delete a route a production process still owns.
func (r *ProductionRoute) BeforeDelete(tx *gorm.DB) error {
	return guardOwned(tx, "route_id", r.ID, ErrRouteInUse, r.TableName())
}

// AfterDelete drops the route operations and detaches product selections
// and productions.
func (r *ProductionRoute) AfterDelete(tx *gorm.DB) error {
	db := tx.Session(&gorm.Session{NewDB: true})
	if err := db.Where("route_id = ?", r.ID).Delete(&RouteOperation{}).Error; err != nil {
		return err
	}
	if err := db.Model(&ProductBom{}).Where("route_id = ?", r.ID).Update("route_id", nil).Error; err != nil {
		return err
	}
	return db.Model(&Production{}).Where("route_id = ?", r.ID).Update("route_id", nil).Error
}

// RouteOperation mirrors 'production.route.operation'.
type RouteOperation struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	RouteID              *uint           `gorm:"index" json:"route_id"`
	Sequence             int             `json:"sequence"`
	OperationTypeID      uint            `gorm:"not null" json:"operation_type_id"`
	WorkCenterCategoryID uint            `gorm:"not null" json:"work_center_category_id"`
	WorkCenterID         *uint           `json:"work_center_id"`
	Time                 decimal.Decimal `gorm:"type:decimal(16,4)" json:"time"`
	Quantity             decimal.Decimal `gorm:"type:decimal(16,4)" json:"quantity"`
	QuantityUomID        *uint           `json:"quantity_uom_id"`
	Calculation          string          `gorm:"not null" json:"calculation"`
	StepID               *uint           `gorm:"index" json:"step_id"`

	OperationType      *OperationType      `gorm:"foreignKey:OperationTypeID" json:"operation_type,omitempty"`
	WorkCenterCategory *WorkCenterCategory `gorm:"foreignKey:WorkCenterCategoryID" json:"work_center_category,omitempty"`
	WorkCenter         *WorkCenter         `gorm:"foreignKey:WorkCenterID" json:"work_center,omitempty"`
	QuantityUom        *Uom                `gorm:"foreignKey:QuantityUomID" json:"quantity_uom,omitempty"`
}

func (RouteOperation) TableName() string { return "production_route_operation" }

// BeforeCreate takes the route from the step's process when only the step
// is given, and rejects a route that is not the one of the step's process.
func (o *RouteOperation) BeforeCreate(tx *gorm.DB) error {
	if o.Calculation == "" {
		o.Calculation = CalculationStandard
	}
	if o.StepID == nil {
		return nil
	}
	routeID, err := StepRouteID(tx, *o.StepID)
	if err != nil {
		return err
	}
	if o.RouteID == nil {
		o.RouteID = routeID
		return nil
	}
	if routeID != nil && *routeID != *o.RouteID {
		return fmt.Errorf("operation on step %d: %w", *o.StepID, ErrRouteMismatch)
	}
	return nil
}

// OperationType mirrors 'production.routing.operation'.
type OperationType struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"not null;uniqueIndex" json:"name"`
}

func (OperationType) TableName() string { return "production_operation_type" }

// WorkCenterCategory mirrors 'production.work_center.category'.
type WorkCenterCategory struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"not null;uniqueIndex" json:"name"`
}

func (WorkCenterCategory) TableName() string { return "production_work_center_category" }

// WorkCenter mirrors 'production.work_center'.
type WorkCenter struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	Name       string          `gorm:"not null;uniqueIndex" json:"name"`
	CategoryID uint            `gorm:"index" json:"category_id"`
	CostPrice  decimal.Decimal `gorm:"type:decimal(16,4)" json:"cost_price"`
	CostUomID  *uint           `json:"cost_uom_id"`
	Active     bool            `json:"active"`

	Category *WorkCenterCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

func (WorkCenter) TableName() string { return "production_work_center" }
