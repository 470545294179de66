// Package manufacturing manages production orders and keeps them in step
// with the production process, BOM and route they are made with.
package manufacturing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/eckmrpgo/internal/events"
	"github.com/xelth-com/eckmrpgo/internal/models"
	"github.com/xelth-com/eckmrpgo/internal/process"
)

// ProductionDraft describes a production order to create.
type ProductionDraft struct {
	ProductID   *uint           `json:"product_id,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UomID       *uint           `json:"uom_id,omitempty"`
	BomID       *uint           `json:"bom_id,omitempty"`
	RouteID     *uint           `json:"route_id,omitempty"`
	ProcessID   *uint           `json:"process_id,omitempty"`
	WarehouseID *uint           `json:"warehouse_id,omitempty"`
	LocationID  *uint           `json:"location_id,omitempty"`
	PlannedDate *time.Time      `json:"planned_date,omitempty"`
	State       string          `json:"state,omitempty"`
}

// Request describes a production requested by stock supply.
type Request struct {
	ProductID   uint            `json:"product_id"`
	WarehouseID *uint           `json:"warehouse_id,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	PlannedDate *time.Time      `json:"planned_date,omitempty"`
}

type Service struct {
	db     *gorm.DB
	logger *zap.Logger
	events events.Broadcaster
}

func NewService(db *gorm.DB, logger *zap.Logger, broadcaster events.Broadcaster) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if broadcaster == nil {
		broadcaster = events.Nop{}
	}
	return &Service{
		db:     db,
		logger: logger.Named("manufacturing"),
		events: broadcaster,
	}
}

// Get returns a production with its moves and operations.
func (s *Service) Get(ctx context.Context, id uint) (*models.Production, error) {
	var prod models.Production
	err := s.db.WithContext(ctx).
		Preload("Product").
		Preload("Uom").
		Preload("Inputs", moveOrder).
		Preload("Inputs.Product").
		Preload("Inputs.Uom").
		Preload("Outputs", moveOrder).
		Preload("Outputs.Product").
		Preload("Outputs.Uom").
		Preload("Operations", operationOrder).
		Preload("Operations.OperationType").
		First(&prod, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("production %d: %w", id, ErrProductionNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &prod, nil
}

// List returns productions, newest first, optionally filtered by state.
func (s *Service) List(ctx context.Context, state string, limit int) ([]models.Production, error) {
	query := s.db.WithContext(ctx).Order("id DESC")
	if state != "" {
		query = query.Where("state = ?", state)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var productions []models.Production
	if err := query.Find(&productions).Error; err != nil {
		return nil, err
	}
	return productions, nil
}

// Create stores a production. A process, when given, sets BOM and route
// and the moves and operations are derived from them.
func (s *Service) Create(ctx context.Context, d ProductionDraft) (*models.Production, error) {
	state := d.State
	if state == "" {
		state = models.ProductionStateDraft
	}
	if !models.ValidProductionState(state) {
		return nil, fmt.Errorf("%q: %w", d.State, ErrInvalidState)
	}

	var id uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prod := models.Production{
			State:       state,
			ProductID:   d.ProductID,
			Quantity:    d.Quantity,
			UomID:       d.UomID,
			BomID:       d.BomID,
			RouteID:     d.RouteID,
			WarehouseID: d.WarehouseID,
			LocationID:  d.LocationID,
			PlannedDate: d.PlannedDate,
		}
		if err := defaultUom(tx, &prod); err != nil {
			return err
		}

		var p *models.Process
		if d.ProcessID != nil {
			if !prod.ProcessEditable() {
				return ErrProcessReadonly
			}
			if prod.ProductID == nil {
				return ErrProductRequired
			}
			if !prod.Quantity.IsPositive() {
				return ErrQuantityRequired
			}
			var err error
			if p, err = processFor(tx, *d.ProcessID, *prod.ProductID); err != nil {
				return err
			}
		}

		if err := tx.Omit(clause.Associations).Create(&prod).Error; err != nil {
			return fmt.Errorf("create production: %w", err)
		}
		id = prod.ID

		if p != nil {
			return applyProcess(tx, &prod, p)
		}
		if err := changeRoute(tx, &prod); err != nil {
			return err
		}
		return explodeBOM(tx, &prod)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("production created", zap.Uint("id", id))
	s.events.Broadcast(events.New(events.ProductionUpdated, id))
	return s.Get(ctx, id)
}

// SetProcess selects the process of a production, or clears it when
// processID is nil. Selecting a process replaces BOM, route, moves and
// operations of the order. The quantity may be set afterwards with
// SetQuantity but can no longer be cleared.
func (s *Service) SetProcess(ctx context.Context, id uint, processID *uint) (*models.Production, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prod, err := findProduction(tx, id)
		if err != nil {
			return err
		}
		if !prod.ProcessEditable() {
			return fmt.Errorf("production %s: %w", prod.Number, ErrProcessReadonly)
		}
		if prod.ProductID == nil {
			return fmt.Errorf("production %s: %w", prod.Number, ErrProductRequired)
		}
		if processID == nil {
			return tx.Model(prod).Update("process_id", nil).Error
		}
		p, err := processFor(tx, *processID, *prod.ProductID)
		if err != nil {
			return err
		}
		return applyProcess(tx, prod, p)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("production process set", zap.Uint("id", id), zap.Uintp("process_id", processID))
	s.events.Broadcast(events.New(events.ProductionUpdated, id))
	return s.Get(ctx, id)
}

// SetQuantity changes the quantity of a production and explodes its BOM
// again.
func (s *Service) SetQuantity(ctx context.Context, id uint, quantity decimal.Decimal) (*models.Production, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prod, err := findProduction(tx, id)
		if err != nil {
			return err
		}
		if prod.ProcessID != nil && !quantity.IsPositive() {
			return fmt.Errorf("production %s: %w", prod.Number, ErrQuantityRequired)
		}
		prod.Quantity = quantity
		if err := tx.Model(prod).Update("quantity", quantity).Error; err != nil {
			return err
		}
		return explodeBOM(tx, prod)
	})
	if err != nil {
		return nil, err
	}
	s.events.Broadcast(events.New(events.ProductionUpdated, id))
	return s.Get(ctx, id)
}

// SetBOM replaces the BOM of a production without a process.
func (s *Service) SetBOM(ctx context.Context, id uint, bomID *uint) (*models.Production, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prod, err := findProduction(tx, id)
		if err != nil {
			return err
		}
		if prod.ProcessID != nil {
			return fmt.Errorf("production %s: %w", prod.Number, ErrBOMReadonly)
		}
		prod.BomID = bomID
		if err := tx.Model(prod).Update("bom_id", bomID).Error; err != nil {
			return err
		}
		return explodeBOM(tx, prod)
	})
	if err != nil {
		return nil, err
	}
	s.events.Broadcast(events.New(events.ProductionUpdated, id))
	return s.Get(ctx, id)
}

// SetRoute replaces the route of a production without a process.
func (s *Service) SetRoute(ctx context.Context, id uint, routeID *uint) (*models.Production, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		prod, err := findProduction(tx, id)
		if err != nil {
			return err
		}
		if prod.ProcessID != nil {
			return fmt.Errorf("production %s: %w", prod.Number, ErrRouteReadonly)
		}
		prod.RouteID = routeID
		if err := tx.Model(prod).Update("route_id", routeID).Error; err != nil {
			return err
		}
		return changeRoute(tx, prod)
	})
	if err != nil {
		return nil, err
	}
	s.events.Broadcast(events.New(events.ProductionUpdated, id))
	return s.Get(ctx, id)
}

// ComputeRequest creates a production request for a product. The first
// BOM selection of the product decides BOM, route and process.
func (s *Service) ComputeRequest(ctx context.Context, r Request) (*models.Production, error) {
	var id uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.ProductProduct
		err := tx.Preload("Boms", func(db *gorm.DB) *gorm.DB { return db.Order("sequence, id") }).
			First(&product, r.ProductID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("product %d: %w", r.ProductID, ErrProductRequired)
		}
		if err != nil {
			return err
		}

		productID, uomID := product.ID, product.DefaultUomID
		prod := models.Production{
			State:       models.ProductionStateRequest,
			ProductID:   &productID,
			Quantity:    r.Quantity,
			UomID:       &uomID,
			WarehouseID: r.WarehouseID,
			PlannedDate: r.PlannedDate,
		}
		var p *models.Process
		if len(product.Boms) > 0 {
			first := product.Boms[0]
			prod.BomID, prod.RouteID = first.BomID, first.RouteID
			if first.ProcessID != nil {
				if !prod.Quantity.IsPositive() {
					return fmt.Errorf("product %d: %w", product.ID, ErrQuantityRequired)
				}
				if p, err = processFor(tx, *first.ProcessID, product.ID); err != nil {
					return err
				}
			}
		}

		if err := tx.Omit(clause.Associations).Create(&prod).Error; err != nil {
			return fmt.Errorf("create production request: %w", err)
		}
		id = prod.ID

		if p != nil {
			return applyProcess(tx, &prod, p)
		}
		if err := changeRoute(tx, &prod); err != nil {
			return err
		}
		return explodeBOM(tx, &prod)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("production requested", zap.Uint("id", id), zap.Uint("product_id", r.ProductID))
	s.events.Broadcast(events.New(events.ProductionUpdated, id))
	return s.Get(ctx, id)
}

func findProduction(tx *gorm.DB, id uint) (*models.Production, error) {
	var prod models.Production
	err := tx.First(&prod, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("production %d: %w", id, ErrProductionNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &prod, nil
}

func defaultUom(tx *gorm.DB, prod *models.Production) error {
	if prod.ProductID == nil || prod.UomID != nil {
		return nil
	}
	var product models.ProductProduct
	if err := tx.Select("id", "default_uom_id").First(&product, *prod.ProductID).Error; err != nil {
		return fmt.Errorf("product %d: %w", *prod.ProductID, err)
	}
	uomID := product.DefaultUomID
	prod.UomID = &uomID
	return nil
}

// processFor loads a process that must output productID.
func processFor(tx *gorm.DB, processID, productID uint) (*models.Process, error) {
	var p models.Process
	err := tx.First(&p, processID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("process %d: %w", processID, process.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	ok, err := process.Produces(tx, p.ID, productID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("process %q, product %d: %w", p.Name, productID, ErrProcessDoesNotProduce)
	}
	return &p, nil
}

// applyProcess copies BOM and route from the process, then rebuilds the
// operations and moves of the production.
func applyProcess(tx *gorm.DB, prod *models.Production, p *models.Process) error {
	processID, bomID, routeID := p.ID, p.BomID, p.RouteID
	prod.ProcessID, prod.BomID, prod.RouteID = &processID, &bomID, &routeID
	err := tx.Model(prod).Updates(map[string]interface{}{
		"process_id": processID,
		"bom_id":     bomID,
		"route_id":   routeID,
	}).Error
	if err != nil {
		return fmt.Errorf("production %s: %w", prod.Number, err)
	}
	if err := changeRoute(tx, prod); err != nil {
		return err
	}
	return explodeBOM(tx, prod)
}

func moveOrder(db *gorm.DB) *gorm.DB {
	return db.Order("id")
}

func operationOrder(db *gorm.DB) *gorm.DB {
	return db.Order("sequence, id")
}
