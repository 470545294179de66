package manufacturing

import "errors"

var (
	ErrProductionNotFound    = errors.New("production not found")
	ErrProductRequired       = errors.New("production has no product")
	ErrQuantityRequired      = errors.New("quantity is required when a process is set")
	ErrProcessReadonly       = errors.New("process can only be changed on requests and drafts without warehouse or location")
	ErrProcessDoesNotProduce = errors.New("process does not produce the product")
	ErrBOMReadonly           = errors.New("bom is set by the production process")
	ErrRouteReadonly         = errors.New("route is set by the production process")
	ErrBOMDoesNotProduce     = errors.New("bom does not output the product")
	ErrInvalidState          = errors.New("unknown production state")
)
