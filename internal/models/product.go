package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ProductProduct mirrors 'product.product'.
// Products pulled from the ERP carry ErpID; local ones leave it nil.
type ProductProduct struct {
	ID           uint            `gorm:"primaryKey" json:"id"`
	ErpID        *int64          `gorm:"uniqueIndex" json:"erp_id,omitempty"`
	DefaultCode  ErpString       `gorm:"index" json:"default_code"` // SKU
	Barcode      ErpString       `gorm:"index" json:"barcode"`
	Name         string          `gorm:"not null" json:"name"`
	Active       bool            `json:"active"`
	Type         string          `json:"type"`
	Producible   bool            `json:"producible"`
	DefaultUomID uint            `gorm:"index" json:"default_uom_id"`
	ListPrice    decimal.Decimal `gorm:"type:decimal(16,4)" json:"list_price"`
	CostPrice    decimal.Decimal `gorm:"type:decimal(16,4)" json:"cost_price"`
	WriteDate    *time.Time      `json:"write_date,omitempty"`

	LastSyncedAt *time.Time     `json:"last_synced_at,omitempty"`
	RawData      datatypes.JSON `json:"raw_data,omitempty"`

	DefaultUom *Uom         `gorm:"foreignKey:DefaultUomID" json:"default_uom,omitempty"`
	Boms       []ProductBom `gorm:"foreignKey:ProductID" json:"boms,omitempty"`
}

func (ProductProduct) TableName() string { return "product_product" }

// ProductBom mirrors 'product.product-production.bom': one BOM/route choice
// for manufacturing a product, optionally taken from a production process.
type ProductBom struct {
	ID        uint  `gorm:"primaryKey" json:"id"`
	ProductID uint  `gorm:"not null;index" json:"product_id"`
	Sequence  int   `json:"sequence"`
	BomID     *uint `gorm:"index" json:"bom_id"`
	RouteID   *uint `gorm:"index" json:"route_id"`
	ProcessID *uint `gorm:"index" json:"process_id"`

	Bom     *ProductionBom   `gorm:"foreignKey:BomID" json:"bom,omitempty"`
	Route   *ProductionRoute `gorm:"foreignKey:RouteID" json:"route,omitempty"`
	Process *Process         `gorm:"foreignKey:ProcessID" json:"process,omitempty"`
}

func (ProductBom) TableName() string { return "product_product_bom" }
