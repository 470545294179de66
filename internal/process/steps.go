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

// CreateSteps stores steps with their lines and operations. Lines and
// operations land on the BOM and route of the step's process.
func (s *Service) CreateSteps(ctx context.Context, drafts []StepDraft) ([]models.ProcessStep, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps, err := createSteps(tx, drafts)
		if err != nil {
			return err
		}
		for _, step := range steps {
			ids = append(ids, step.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("process steps created", zap.Uints("ids", ids))
	s.notifyStepProcesses(ctx, ids)
	return s.loadSteps(ctx, ids)
}

// GetStep returns a step with its lines and operations.
func (s *Service) GetStep(ctx context.Context, id uint) (*models.ProcessStep, error) {
	steps, err := s.loadSteps(ctx, []uint{id})
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("step %d: %w", id, ErrStepNotFound)
	}
	return &steps[0], nil
}

// CopySteps duplicates steps with their inputs, outputs and operations.
// Copied lines and operations follow the BOM and route of the process the
// new step belongs to, or get none when the new step has no process.
func (s *Service) CopySteps(ctx context.Context, ids []uint, overrides StepOverrides) ([]models.ProcessStep, error) {
	var copies []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		steps, err := copySteps(tx, ids, overrides)
		if err != nil {
			return err
		}
		for _, step := range steps {
			copies = append(copies, step.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("process steps copied", zap.Uints("from", ids), zap.Uints("to", copies))
	s.notifyStepProcesses(ctx, copies)
	return s.loadSteps(ctx, copies)
}

// DeleteSteps removes steps. Their lines and operations stay on the BOM and
// route without a step.
func (s *Service) DeleteSteps(ctx context.Context, ids []uint) error {
	ids = uniqueIDs(ids)
	var processIDs []uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var steps []models.ProcessStep
		if err := tx.Where("id IN ?", ids).Find(&steps).Error; err != nil {
			return err
		}
		if len(steps) != len(ids) {
			return ErrStepNotFound
		}
		for _, step := range steps {
			if step.ProcessID != nil {
				processIDs = append(processIDs, *step.ProcessID)
			}
		}
		for _, model := range []interface{}{&models.BomInput{}, &models.BomOutput{}, &models.RouteOperation{}} {
			if err := tx.Model(model).Where("step_id IN ?", ids).Update("step_id", nil).Error; err != nil {
				return fmt.Errorf("detach %T: %w", model, err)
			}
		}
		if err := tx.Model(&models.StockMove{}).Where("production_step_id IN ?", ids).Update("production_step_id", nil).Error; err != nil {
			return fmt.Errorf("detach stock moves: %w", err)
		}
		return tx.Delete(&steps).Error
	})
	if err != nil {
		return err
	}
	s.logger.Info("process steps deleted", zap.Uints("ids", ids))
	if len(processIDs) > 0 {
		s.events.Broadcast(events.New(events.ProcessUpdated, uniqueIDs(processIDs)...))
	}
	return nil
}

func (s *Service) loadSteps(ctx context.Context, ids []uint) ([]models.ProcessStep, error) {
	var steps []models.ProcessStep
	if len(ids) == 0 {
		return steps, nil
	}
	err := stepOrder(s.db.WithContext(ctx)).
		Preload("Inputs", lineOrder).
		Preload("Inputs.Product").
		Preload("Inputs.Uom").
		Preload("Outputs", lineOrder).
		Preload("Outputs.Product").
		Preload("Outputs.Uom").
		Preload("Operations", operationOrder).
		Where("id IN ?", ids).
		Find(&steps).Error
	if err != nil {
		return nil, err
	}
	return steps, nil
}

func (s *Service) notifyStepProcesses(ctx context.Context, stepIDs []uint) {
	if len(stepIDs) == 0 {
		return
	}
	var processIDs []uint
	err := s.db.WithContext(ctx).Model(&models.ProcessStep{}).
		Where("id IN ? AND process_id IS NOT NULL", stepIDs).
		Distinct().Pluck("process_id", &processIDs).Error
	if err != nil {
		s.logger.Warn("failed to resolve step processes", zap.Error(err))
		return
	}
	if len(processIDs) > 0 {
		s.events.Broadcast(events.New(events.ProcessUpdated, processIDs...))
	}
}

func createSteps(tx *gorm.DB, drafts []StepDraft) ([]models.ProcessStep, error) {
	steps := make([]models.ProcessStep, 0, len(drafts))
	for _, d := range drafts {
		if strings.TrimSpace(d.Name) == "" {
			return nil, fmt.Errorf("step: %w", ErrNameRequired)
		}
		step := models.ProcessStep{
			ProcessID:   d.ProcessID,
			Name:        d.Name,
			Description: d.Description,
			Sequence:    d.Sequence,
		}
		if err := tx.Omit(clause.Associations).Create(&step).Error; err != nil {
			return nil, fmt.Errorf("create step %q: %w", d.Name, err)
		}

		var err error
		if step.Inputs, err = createInputs(tx, onStep(d.Inputs, step.ID)); err != nil {
			return nil, fmt.Errorf("step %q inputs: %w", d.Name, err)
		}
		if step.Outputs, err = createOutputs(tx, onStep(d.Outputs, step.ID)); err != nil {
			return nil, fmt.Errorf("step %q outputs: %w", d.Name, err)
		}
		ops := make([]OperationDraft, len(d.Operations))
		for i, op := range d.Operations {
			stepID := step.ID
			op.StepID = &stepID
			ops[i] = op
		}
		if step.Operations, err = createOperations(tx, ops); err != nil {
			return nil, fmt.Errorf("step %q operations: %w", d.Name, err)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func onStep(lines []LineDraft, stepID uint) []LineDraft {
	out := make([]LineDraft, len(lines))
	for i, line := range lines {
		id := stepID
		line.StepID = &id
		out[i] = line
	}
	return out
}

func copySteps(tx *gorm.DB, ids []uint, overrides StepOverrides) ([]models.ProcessStep, error) {
	ids = uniqueIDs(ids)
	var sources []models.ProcessStep
	if len(ids) == 0 {
		return sources, nil
	}
	err := stepOrder(tx).
		Preload("Inputs", lineOrder).
		Preload("Outputs", lineOrder).
		Preload("Operations", operationOrder).
		Where("id IN ?", ids).
		Find(&sources).Error
	if err != nil {
		return nil, err
	}
	if len(sources) != len(ids) {
		return nil, ErrStepNotFound
	}

	copies := make([]models.ProcessStep, 0, len(sources))
	for _, src := range sources {
		step := models.ProcessStep{
			ProcessID:   src.ProcessID,
			Name:        src.Name,
			Description: src.Description,
			Sequence:    src.Sequence,
		}
		if overrides.ProcessID != nil {
			step.ProcessID = nil
			if *overrides.ProcessID != 0 {
				processID := *overrides.ProcessID
				step.ProcessID = &processID
			}
		}
		if overrides.Name != nil {
			step.Name = *overrides.Name
		}
		if overrides.Sequence != nil {
			sequence := *overrides.Sequence
			step.Sequence = &sequence
		}
		if err := tx.Omit(clause.Associations).Create(&step).Error; err != nil {
			return nil, fmt.Errorf("copy step %q: %w", src.Name, err)
		}

		var bomID, routeID *uint
		if step.ProcessID != nil {
			if bomID, err = models.StepBomID(tx, step.ID); err != nil {
				return nil, err
			}
			if routeID, err = models.StepRouteID(tx, step.ID); err != nil {
				return nil, err
			}
		}

		inputs := make([]models.BomInput, len(src.Inputs))
		for i, in := range src.Inputs {
			inputs[i] = models.BomInput{BomLine: copyLine(in.BomLine, step.ID, bomID)}
		}
		outputs := make([]models.BomOutput, len(src.Outputs))
		for i, out := range src.Outputs {
			outputs[i] = models.BomOutput{BomLine: copyLine(out.BomLine, step.ID, bomID)}
		}
		operations := make([]models.RouteOperation, len(src.Operations))
		for i, op := range src.Operations {
			stepID := step.ID
			op.ID = 0
			op.StepID = &stepID
			op.RouteID = routeID
			op.OperationType = nil
			op.WorkCenterCategory = nil
			op.WorkCenter = nil
			op.QuantityUom = nil
			operations[i] = op
		}

		if len(inputs) > 0 {
			if err := tx.Omit(clause.Associations).Create(&inputs).Error; err != nil {
				return nil, fmt.Errorf("copy step %q inputs: %w", src.Name, err)
			}
		}
		if len(outputs) > 0 {
			if err := tx.Omit(clause.Associations).Create(&outputs).Error; err != nil {
				return nil, fmt.Errorf("copy step %q outputs: %w", src.Name, err)
			}
		}
		if len(operations) > 0 {
			if err := tx.Omit(clause.Associations).Create(&operations).Error; err != nil {
				return nil, fmt.Errorf("copy step %q operations: %w", src.Name, err)
			}
		}
		step.Inputs, step.Outputs, step.Operations = inputs, outputs, operations
		copies = append(copies, step)
	}
	return copies, nil
}

func copyLine(line models.BomLine, stepID uint, bomID *uint) models.BomLine {
	line.ID = 0
	line.StepID = &stepID
	line.BomID = bomID
	return line
}
