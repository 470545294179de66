package process

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/xelth-com/eckmrpgo/internal/models"
)

func stepOrder(db *gorm.DB) *gorm.DB {
	return db.Order("CASE WHEN sequence IS NULL THEN 1 ELSE 0 END, sequence, id")
}

func lineOrder(db *gorm.DB) *gorm.DB {
	return db.Order("CASE WHEN step_sequence IS NULL THEN 1 ELSE 0 END, step_sequence, id")
}

func operationOrder(db *gorm.DB) *gorm.DB {
	return db.Order("sequence, id")
}

// withSteps preloads the ordered steps with their lines and operations.
func withSteps(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Steps", stepOrder).
		Preload("Steps.Inputs", lineOrder).
		Preload("Steps.Inputs.Product").
		Preload("Steps.Inputs.Uom").
		Preload("Steps.Outputs", lineOrder).
		Preload("Steps.Outputs.Product").
		Preload("Steps.Outputs.Uom").
		Preload("Steps.Operations", operationOrder).
		Preload("Steps.Operations.OperationType").
		Preload("Steps.Operations.WorkCenter")
}

// withDetails preloads everything a process exposes.
func withDetails(db *gorm.DB) *gorm.DB {
	return withSteps(db).
		Preload("Uom").
		Preload("Bom").
		Preload("Bom.Inputs", lineOrder).
		Preload("Bom.Outputs", lineOrder).
		Preload("Bom.Outputs.Uom").
		Preload("Route").
		Preload("Route.Operations", operationOrder)
}

func loadProcess(tx *gorm.DB, id uint) (*models.Process, error) {
	var p models.Process
	err := withDetails(tx).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("process %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func loadProcesses(tx *gorm.DB, ids []uint) ([]models.Process, error) {
	var processes []models.Process
	if len(ids) == 0 {
		return processes, nil
	}
	if err := withDetails(tx).Where("id IN ?", ids).Order("id").Find(&processes).Error; err != nil {
		return nil, err
	}
	return processes, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
