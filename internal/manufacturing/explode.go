package manufacturing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/eckmrpgo/internal/models"
)

// changeRoute replaces the operations of a production with one per
// operation of its route.
func changeRoute(tx *gorm.DB, prod *models.Production) error {
	if err := tx.Where("production_id = ?", prod.ID).Delete(&models.ProductionOperation{}).Error; err != nil {
		return fmt.Errorf("clear operations of %s: %w", prod.Number, err)
	}
	if prod.RouteID == nil {
		return nil
	}

	var routeOps []models.RouteOperation
	if err := tx.Where("route_id = ?", *prod.RouteID).Order("sequence, id").Find(&routeOps).Error; err != nil {
		return err
	}
	if len(routeOps) == 0 {
		return nil
	}
	ops := make([]models.ProductionOperation, len(routeOps))
	for i, ro := range routeOps {
		routeOpID := ro.ID
		ops[i] = models.ProductionOperation{
			ProductionID:         prod.ID,
			RouteOperationID:     &routeOpID,
			Sequence:             ro.Sequence,
			OperationTypeID:      ro.OperationTypeID,
			WorkCenterCategoryID: ro.WorkCenterCategoryID,
			WorkCenterID:         ro.WorkCenterID,
		}
	}
	if err := tx.Omit(clause.Associations).Create(&ops).Error; err != nil {
		return fmt.Errorf("create operations of %s: %w", prod.Number, err)
	}
	return nil
}

// explodeBOM replaces the input and output moves of a production with the
// lines of its BOM scaled to the production quantity.
func explodeBOM(tx *gorm.DB, prod *models.Production) error {
	err := tx.Where("production_input_id = ? OR production_output_id = ?", prod.ID, prod.ID).
		Delete(&models.StockMove{}).Error
	if err != nil {
		return fmt.Errorf("clear moves of %s: %w", prod.Number, err)
	}
	if prod.BomID == nil || prod.ProductID == nil {
		return nil
	}

	var bom models.ProductionBom
	err = tx.Preload("Inputs", lineOrder).
		Preload("Inputs.Uom").
		Preload("Outputs", lineOrder).
		Preload("Outputs.Uom").
		First(&bom, *prod.BomID).Error
	if err != nil {
		return fmt.Errorf("bom %d: %w", *prod.BomID, err)
	}

	var unit *models.Uom
	if prod.UomID != nil {
		unit = &models.Uom{}
		if err := tx.First(unit, *prod.UomID).Error; err != nil {
			return fmt.Errorf("unit %d: %w", *prod.UomID, err)
		}
	}
	factor, found, err := bom.ComputeFactor(*prod.ProductID, prod.Quantity, unit)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("bom %q: %w", bom.Name, ErrBOMDoesNotProduce)
	}

	storage, production, err := productionLocations(tx, prod)
	if err != nil {
		return err
	}

	inputLines := make([]models.BomLine, len(bom.Inputs))
	for i, in := range bom.Inputs {
		inputLines[i] = in.BomLine
	}
	outputLines := make([]models.BomLine, len(bom.Outputs))
	for i, out := range bom.Outputs {
		outputLines[i] = out.BomLine
	}

	productionID := prod.ID
	moves := make([]models.StockMove, 0, len(bom.Inputs)+len(bom.Outputs))
	for _, in := range bom.Inputs {
		move := newMove(prod, in.BomLine, in.Uom, factor)
		move.FromLocationID, move.ToLocationID = storage, production
		move.ProductionInputID = &productionID
		move.ProductionStepID = stepOf(inputLines, move.ProductID)
		moves = append(moves, move)
	}
	for _, out := range bom.Outputs {
		move := newMove(prod, out.BomLine, out.Uom, factor)
		move.FromLocationID, move.ToLocationID = production, storage
		move.ProductionOutputID = &productionID
		move.ProductionStepID = stepOf(outputLines, move.ProductID)
		moves = append(moves, move)
	}
	if len(moves) == 0 {
		return nil
	}
	if err := tx.Omit(clause.Associations).Create(&moves).Error; err != nil {
		return fmt.Errorf("create moves of %s: %w", prod.Number, err)
	}
	return nil
}

func newMove(prod *models.Production, line models.BomLine, unit *models.Uom, factor decimal.Decimal) models.StockMove {
	return models.StockMove{
		ProductID:   line.ProductID,
		UomID:       line.UomID,
		Quantity:    line.ComputeQuantity(factor, unit),
		PlannedDate: prod.PlannedDate,
		State:       "draft",
	}
}

// stepOf returns the step of the last line carrying a step for productID.
func stepOf(lines []models.BomLine, productID uint) *uint {
	var step *uint
	for _, line := range lines {
		if line.StepID == nil {
			continue
		}
		if line.ProductID == productID {
			id := *line.StepID
			step = &id
		}
	}
	return step
}

// productionLocations returns the storage and production locations of the
// production warehouse, or nil without one.
func productionLocations(tx *gorm.DB, prod *models.Production) (storage, production *uint, err error) {
	if prod.WarehouseID == nil {
		return nil, prod.LocationID, nil
	}
	var warehouse models.StockLocation
	err = tx.First(&warehouse, *prod.WarehouseID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, prod.LocationID, nil
	}
	if err != nil {
		return nil, nil, err
	}
	production = warehouse.ProductionLocationID
	if prod.LocationID != nil {
		production = prod.LocationID
	}
	return warehouse.StorageLocationID, production, nil
}

func lineOrder(db *gorm.DB) *gorm.DB {
	return db.Order("CASE WHEN step_sequence IS NULL THEN 1 ELSE 0 END, step_sequence, id")
}
