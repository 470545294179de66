package process

import "github.com/shopspring/decimal"

// ProcessDraft describes a process to create. When BomID and RouteID are
// both nil a BOM and a route named after the process are created for it.
type ProcessDraft struct {
	Name    string      `json:"name"`
	UomID   uint        `json:"uom_id"`
	Active  *bool       `json:"active,omitempty"`
	BomID   *uint       `json:"bom_id,omitempty"`
	RouteID *uint       `json:"route_id,omitempty"`
	Steps   []StepDraft `json:"steps,omitempty"`
}

// StepDraft describes a step created together with its process, or on its
// own with ProcessID.
type StepDraft struct {
	ProcessID   *uint            `json:"process_id,omitempty"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Sequence    *int             `json:"sequence,omitempty"`
	Inputs      []LineDraft      `json:"inputs,omitempty"`
	Outputs     []LineDraft      `json:"outputs,omitempty"`
	Operations  []OperationDraft `json:"operations,omitempty"`
}

// LineDraft describes a BOM input or output. UomID defaults to the
// product's unit, BomID to the BOM of the step's process.
type LineDraft struct {
	BomID        *uint           `json:"bom_id,omitempty"`
	StepID       *uint           `json:"step_id,omitempty"`
	StepSequence *int            `json:"step_sequence,omitempty"`
	ProductID    uint            `json:"product_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	UomID        uint            `json:"uom_id,omitempty"`
}

// OperationDraft describes a route operation. RouteID defaults to the
// route of the step's process.
type OperationDraft struct {
	RouteID              *uint           `json:"route_id,omitempty"`
	StepID               *uint           `json:"step_id,omitempty"`
	Sequence             int             `json:"sequence"`
	OperationTypeID      uint            `json:"operation_type_id"`
	WorkCenterCategoryID uint            `json:"work_center_category_id"`
	WorkCenterID         *uint           `json:"work_center_id,omitempty"`
	Time                 decimal.Decimal `json:"time"`
	Quantity             decimal.Decimal `json:"quantity"`
	QuantityUomID        *uint           `json:"quantity_uom_id,omitempty"`
	Calculation          string          `json:"calculation,omitempty"`
}

// Changes is a partial update of processes; nil fields are left alone.
type Changes struct {
	Name    *string `json:"name,omitempty"`
	Active  *bool   `json:"active,omitempty"`
	BomID   *uint   `json:"bom_id,omitempty"`
	RouteID *uint   `json:"route_id,omitempty"`
	UomID   *uint   `json:"uom_id,omitempty"`
}

// StepOverrides replaces fields on copied steps; nil fields keep the
// source value. A ProcessID pointing at 0 detaches the copies.
type StepOverrides struct {
	ProcessID *uint   `json:"process_id,omitempty"`
	Name      *string `json:"name,omitempty"`
	Sequence  *int    `json:"sequence,omitempty"`
}
