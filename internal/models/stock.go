package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Stock location types.
const (
	LocationTypeWarehouse  = "warehouse"
	LocationTypeStorage    = "storage"
	LocationTypeProduction = "production"
)

// StockLocation mirrors 'stock.location'.
type StockLocation struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	ErpID    *int64 `gorm:"uniqueIndex" json:"erp_id,omitempty"`
	Name     string `gorm:"not null" json:"name"`
	Code     string `gorm:"index" json:"code"`
	Type     string `gorm:"not null" json:"type"`
	ParentID *uint  `gorm:"index" json:"parent_id"`
	Active   bool   `json:"active"`

	// Warehouse locations
	StorageLocationID    *uint `json:"storage_location_id,omitempty"`
	ProductionLocationID *uint `json:"production_location_id,omitempty"`

	Parent   *StockLocation  `gorm:"foreignKey:ParentID" json:"parent,omitempty"`
	Children []StockLocation `gorm:"foreignKey:ParentID" json:"children,omitempty"`
}

func (StockLocation) TableName() string {
	return "stock_location"
}

// StockMove mirrors 'stock.move'. A move belongs to a production either as
// an input (consumed) or as an output (produced), and remembers the process
// step whose BOM line it was built from.
type StockMove struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	ProductID          uint            `gorm:"not null;index" json:"product_id"`
	UomID              uint            `gorm:"not null" json:"uom_id"`
	Quantity           decimal.Decimal `gorm:"type:decimal(16,4);not null" json:"quantity"`
	FromLocationID     *uint           `json:"from_location_id"`
	ToLocationID       *uint           `json:"to_location_id"`
	PlannedDate        *time.Time      `json:"planned_date,omitempty"`
	State              string          `gorm:"not null;index" json:"state"`
	ProductionInputID  *uint           `gorm:"index" json:"production_input_id,omitempty"`
	ProductionOutputID *uint           `gorm:"index" json:"production_output_id,omitempty"`
	ProductionStepID   *uint           `gorm:"index" json:"production_step_id"`
	CreatedAt          time.Time       `json:"created_at"`

	Product        *ProductProduct `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Uom            *Uom            `gorm:"foreignKey:UomID" json:"uom,omitempty"`
	ProductionStep *ProcessStep    `gorm:"foreignKey:ProductionStepID" json:"production_step,omitempty"`
}

func (StockMove) TableName() string {
	return "stock_move"
}

func (m *StockMove) BeforeCreate(tx *gorm.DB) error {
	if m.State == "" {
		m.State = "draft"
	}
	return nil
}
