// Package process manages production processes: named sequences of steps
// that own a BOM and a route built from the lines and operations of the
// steps.
package process

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/eckmrpgo/internal/events"
	"github.com/xelth-com/eckmrpgo/internal/models"
)

// Service handles the lifecycle of production processes.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
	events events.Broadcaster
}

// NewService creates a process service. A nil broadcaster discards events.
func NewService(db *gorm.DB, logger *zap.Logger, broadcaster events.Broadcaster) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if broadcaster == nil {
		broadcaster = events.Nop{}
	}
	return &Service{
		db:     db,
		logger: logger.Named("process"),
		events: broadcaster,
	}
}

// Get returns a process with its steps, BOM and route.
func (s *Service) Get(ctx context.Context, id uint) (*models.Process, error) {
	return loadProcess(s.db.WithContext(ctx), id)
}

// List returns processes ordered by name. Inactive ones are included only
// when includeInactive is set.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]models.Process, error) {
	query := s.db.WithContext(ctx).
		Preload("Bom.Outputs", lineOrder).
		Preload("Uom").
		Order("name, id")
	if !includeInactive {
		query = query.Where("active = ?", true)
	}
	var processes []models.Process
	if err := query.Find(&processes).Error; err != nil {
		return nil, err
	}
	return processes, nil
}

// Create stores the drafts in one transaction. Drafts without BOM and route
// get a BOM and a route named after them, all inserted in one batch each.
func (s *Service) Create(ctx context.Context, drafts []ProcessDraft) ([]models.Process, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := createProcesses(tx, drafts)
		if err != nil {
			return err
		}
		for _, p := range created {
			ids = append(ids, p.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("production processes created", zap.Uints("ids", ids))
	s.events.Broadcast(events.New(events.ProcessCreated, ids...))
	return loadProcesses(s.db.WithContext(ctx), ids)
}

func createProcesses(tx *gorm.DB, drafts []ProcessDraft) ([]models.Process, error) {
	processes := make([]models.Process, len(drafts))
	var (
		boms        []models.ProductionBom
		routes      []models.ProductionRoute
		synthesized []int
	)
	for i, d := range drafts {
		if strings.TrimSpace(d.Name) == "" {
			return nil, ErrNameRequired
		}
		if d.UomID == 0 {
			return nil, fmt.Errorf("process %q: %w", d.Name, ErrUomRequired)
		}
		p := models.Process{Name: d.Name, UomID: d.UomID, Active: true}
		if d.Active != nil {
			p.Active = *d.Active
		}
		switch {
		case d.BomID == nil && d.RouteID == nil:
			uomID := d.UomID
			boms = append(boms, models.ProductionBom{Name: d.Name, Active: true})
			routes = append(routes, models.ProductionRoute{Name: d.Name, UomID: &uomID, Active: true})
			synthesized = append(synthesized, i)
		case d.BomID == nil:
			return nil, fmt.Errorf("process %q: %w", d.Name, ErrBOMRequired)
		case d.RouteID == nil:
			return nil, fmt.Errorf("process %q: %w", d.Name, ErrRouteRequired)
		default:
			p.BomID = *d.BomID
			p.RouteID = *d.RouteID
		}
		processes[i] = p
	}

	if len(synthesized) > 0 {
		if err := tx.Omit(clause.Associations).Create(&boms).Error; err != nil {
			return nil, fmt.Errorf("create process boms: %w", err)
		}
		if err := tx.Omit(clause.Associations).Create(&routes).Error; err != nil {
			return nil, fmt.Errorf("create process routes: %w", err)
		}
		for j, i := range synthesized {
			processes[i].BomID = boms[j].ID
			processes[i].RouteID = routes[j].ID
		}
	}

	if len(processes) == 0 {
		return processes, nil
	}
	if err := tx.Omit(clause.Associations).Create(&processes).Error; err != nil {
		return nil, fmt.Errorf("create processes: %w", err)
	}

	for i, d := range drafts {
		if len(d.Steps) == 0 {
			continue
		}
		processID := processes[i].ID
		stepDrafts := make([]StepDraft, len(d.Steps))
		for j, sd := range d.Steps {
			sd.ProcessID = &processID
			stepDrafts[j] = sd
		}
		steps, err := createSteps(tx, stepDrafts)
		if err != nil {
			return nil, fmt.Errorf("process %q: %w", d.Name, err)
		}
		processes[i].Steps = steps
	}
	return processes, nil
}

// Write applies changes to every process in ids. A new name is carried to
// the BOM and route of each process. The route of a process that has steps
// cannot be replaced.
func (s *Service) Write(ctx context.Context, ids []uint, changes Changes) ([]models.Process, error) {
	ids = uniqueIDs(ids)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return writeProcesses(tx, ids, changes)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("production processes updated", zap.Uints("ids", ids))
	s.events.Broadcast(events.New(events.ProcessUpdated, ids...))
	return loadProcesses(s.db.WithContext(ctx), ids)
}

func writeProcesses(tx *gorm.DB, ids []uint, changes Changes) error {
	var processes []models.Process
	if err := tx.Where("id IN ?", ids).Order("id").Find(&processes).Error; err != nil {
		return err
	}
	if len(processes) != len(ids) {
		return ErrNotFound
	}

	updates := map[string]interface{}{}
	if changes.Name != nil {
		if strings.TrimSpace(*changes.Name) == "" {
			return ErrNameRequired
		}
		updates["name"] = *changes.Name
	}
	if changes.Active != nil {
		updates["active"] = *changes.Active
	}
	if changes.UomID != nil {
		if *changes.UomID == 0 {
			return ErrUomRequired
		}
		updates["uom_id"] = *changes.UomID
	}
	if changes.BomID != nil {
		if *changes.BomID == 0 {
			return ErrBOMRequired
		}
		updates["bom_id"] = *changes.BomID
	}
	if changes.RouteID != nil {
		if *changes.RouteID == 0 {
			return ErrRouteRequired
		}
		for _, p := range processes {
			if p.RouteID == *changes.RouteID {
				continue
			}
			var steps int64
			if err := tx.Model(&models.ProcessStep{}).Where("process_id = ?", p.ID).Count(&steps).Error; err != nil {
				return err
			}
			if steps > 0 {
				return fmt.Errorf("process %q: %w", p.Name, ErrRouteLocked)
			}
		}
		updates["route_id"] = *changes.RouteID
	}
	if len(updates) == 0 {
		return nil
	}

	if err := tx.Model(&models.Process{}).Where("id IN ?", ids).Updates(updates).Error; err != nil {
		return fmt.Errorf("update processes: %w", err)
	}

	if changes.Name == nil {
		return nil
	}
	// Each record may own a different BOM and route.
	bomIDs := make([]uint, 0, len(processes))
	routeIDs := make([]uint, 0, len(processes))
	for _, p := range processes {
		bomID, routeID := p.BomID, p.RouteID
		if changes.BomID != nil {
			bomID = *changes.BomID
		}
		if changes.RouteID != nil {
			routeID = *changes.RouteID
		}
		bomIDs = append(bomIDs, bomID)
		routeIDs = append(routeIDs, routeID)
	}
	if err := tx.Model(&models.ProductionBom{}).Where("id IN ?", uniqueIDs(bomIDs)).Update("name", *changes.Name).Error; err != nil {
		return fmt.Errorf("rename process boms: %w", err)
	}
	if err := tx.Model(&models.ProductionRoute{}).Where("id IN ?", uniqueIDs(routeIDs)).Update("name", *changes.Name).Error; err != nil {
		return fmt.Errorf("rename process routes: %w", err)
	}
	return nil
}

// Delete removes the processes together with their BOMs and routes. Steps
// survive without a process.
func (s *Service) Delete(ctx context.Context, ids []uint) error {
	ids = uniqueIDs(ids)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteProcesses(tx, ids)
	})
	if err != nil {
		return err
	}

	s.logger.Info("production processes deleted", zap.Uints("ids", ids))
	s.events.Broadcast(events.New(events.ProcessDeleted, ids...))
	return nil
}

func deleteProcesses(tx *gorm.DB, ids []uint) error {
	var processes []models.Process
	if err := tx.Where("id IN ?", ids).Find(&processes).Error; err != nil {
		return err
	}
	if len(processes) != len(ids) {
		return ErrNotFound
	}
	if len(processes) == 0 {
		return nil
	}

	bomIDs := make([]uint, 0, len(processes))
	routeIDs := make([]uint, 0, len(processes))
	for _, p := range processes {
		bomIDs = append(bomIDs, p.BomID)
		routeIDs = append(routeIDs, p.RouteID)
	}

	for _, model := range []interface{}{&models.ProcessStep{}, &models.Production{}, &models.ProductBom{}} {
		if err := tx.Model(model).Where("process_id IN ?", ids).Update("process_id", nil).Error; err != nil {
			return fmt.Errorf("detach %T: %w", model, err)
		}
	}
	if err := tx.Delete(&processes).Error; err != nil {
		return fmt.Errorf("delete processes: %w", err)
	}

	var boms []models.ProductionBom
	if err := tx.Where("id IN ?", uniqueIDs(bomIDs)).Find(&boms).Error; err != nil {
		return err
	}
	if len(boms) > 0 {
		if err := tx.Delete(&boms).Error; err != nil {
			return fmt.Errorf("delete process boms: %w", err)
		}
	}

	var routes []models.ProductionRoute
	if err := tx.Where("id IN ?", uniqueIDs(routeIDs)).Find(&routes).Error; err != nil {
		return err
	}
	if len(routes) > 0 {
		if err := tx.Delete(&routes).Error; err != nil {
			return fmt.Errorf("delete process routes: %w", err)
		}
	}
	return nil
}

// Copy duplicates processes. Each copy is named "<name> (*)", gets its own
// BOM and route and a copy of every step.
func (s *Service) Copy(ctx context.Context, ids []uint) ([]models.Process, error) {
	var copies []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, id := range ids {
			source, err := loadProcess(tx, id)
			if err != nil {
				return err
			}
			active := source.Active
			created, err := createProcesses(tx, []ProcessDraft{{
				Name:   fmt.Sprintf("%s (*)", source.Name),
				UomID:  source.UomID,
				Active: &active,
			}})
			if err != nil {
				return err
			}
			target := created[0].ID

			stepIDs := make([]uint, len(source.Steps))
			for i, step := range source.Steps {
				stepIDs[i] = step.ID
			}
			if _, err := copySteps(tx, stepIDs, StepOverrides{ProcessID: &target}); err != nil {
				return err
			}
			copies = append(copies, target)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("production processes copied", zap.Uints("from", ids), zap.Uints("to", copies))
	s.events.Broadcast(events.New(events.ProcessCreated, copies...))
	return loadProcesses(s.db.WithContext(ctx), copies)
}

// Inputs returns the BOM inputs of the process.
func (s *Service) Inputs(ctx context.Context, id uint) ([]models.BomInput, error) {
	p, err := loadProcess(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return p.Inputs(), nil
}

// Outputs returns the BOM outputs of the process.
func (s *Service) Outputs(ctx context.Context, id uint) ([]models.BomOutput, error) {
	p, err := loadProcess(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return p.Outputs(), nil
}

// OutputProducts returns the distinct products the process outputs.
func (s *Service) OutputProducts(ctx context.Context, id uint) ([]uint, error) {
	p, err := loadProcess(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return p.OutputProducts(), nil
}

// Operations returns the route operations of the process.
func (s *Service) Operations(ctx context.Context, id uint) ([]models.RouteOperation, error) {
	p, err := loadProcess(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	return p.Operations(), nil
}

// SearchByOutputProduct returns the active processes that output productID.
func (s *Service) SearchByOutputProduct(ctx context.Context, productID uint) ([]models.Process, error) {
	db := s.db.WithContext(ctx)
	outputs := db.Model(&models.BomOutput{}).Select("bom_id").Where("product_id = ?", productID)
	var processes []models.Process
	err := db.Preload("Bom.Outputs", lineOrder).
		Where("active = ?", true).
		Where("bom_id IN (?)", outputs).
		Order("name, id").
		Find(&processes).Error
	if err != nil {
		return nil, err
	}
	return processes, nil
}

// Produces reports whether the process outputs productID.
func Produces(tx *gorm.DB, processID, productID uint) (bool, error) {
	var count int64
	err := tx.Model(&models.Process{}).
		Joins("JOIN production_bom_output ON production_bom_output.bom_id = production_process.bom_id").
		Where("production_process.id = ? AND production_bom_output.product_id = ?", processID, productID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
