package models

import (
	"errors"
	"fmt"
)

var (
	ErrBOMInUse      = errors.New("bom is used by a production process")
	ErrRouteInUse    = errors.New("route is used by a production process")
	ErrRouteMismatch = errors.New("operation route differs from the route of its step's process")
)

// InUseError reports a BOM or route that cannot be deleted because a
// production process still references it. It unwraps to ErrBOMInUse or
// ErrRouteInUse.
type InUseError struct {
	Err     error
	Record  string
	Process string
}

func (e *InUseError) Error() string {
	kind := "route"
	if errors.Is(e.Err, ErrBOMInUse) {
		kind = "BOM"
	}
	return fmt.Sprintf("cannot delete %s %q: it is used by production process %q", kind, e.Record, e.Process)
}

func (e *InUseError) Unwrap() error { return e.Err }
