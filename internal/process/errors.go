package process

import "errors"

var (
	ErrNotFound        = errors.New("production process not found")
	ErrStepNotFound    = errors.New("production process step not found")
	ErrNameRequired    = errors.New("name is required")
	ErrUomRequired     = errors.New("unit of measure is required")
	ErrProductRequired = errors.New("product is required")
	ErrBOMRequired     = errors.New("bom is required")
	ErrRouteRequired   = errors.New("route is required")
	ErrRouteLocked     = errors.New("route cannot be changed once the process has steps")
	ErrFactorNotFound  = errors.New("no step of the process outputs the product")
)
