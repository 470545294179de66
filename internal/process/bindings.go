package process

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/eckmrpgo/internal/models"
)

// CreateInputs stores BOM inputs. An input given a step but no BOM is put
// on the BOM of the step's process.
func (s *Service) CreateInputs(ctx context.Context, drafts []LineDraft) ([]models.BomInput, error) {
	var inputs []models.BomInput
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		inputs, err = createInputs(tx, drafts)
		return err
	})
	return inputs, err
}

// CreateOutputs stores BOM outputs, inferring the BOM like CreateInputs.
func (s *Service) CreateOutputs(ctx context.Context, drafts []LineDraft) ([]models.BomOutput, error) {
	var outputs []models.BomOutput
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		outputs, err = createOutputs(tx, drafts)
		return err
	})
	return outputs, err
}

// CreateOperations stores route operations. An operation given a step but
// no route is put on the route of the step's process.
func (s *Service) CreateOperations(ctx context.Context, drafts []OperationDraft) ([]models.RouteOperation, error) {
	var operations []models.RouteOperation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		operations, err = createOperations(tx, drafts)
		return err
	})
	return operations, err
}

func createInputs(tx *gorm.DB, drafts []LineDraft) ([]models.BomInput, error) {
	inputs := make([]models.BomInput, len(drafts))
	for i, d := range drafts {
		line, err := newLine(tx, d)
		if err != nil {
			return nil, err
		}
		inputs[i] = models.BomInput{BomLine: line}
	}
	if len(inputs) == 0 {
		return inputs, nil
	}
	// BomInput.BeforeCreate resolves the BOM of the step.
	if err := tx.Omit(clause.Associations).Create(&inputs).Error; err != nil {
		return nil, fmt.Errorf("create bom inputs: %w", err)
	}
	return inputs, nil
}

func createOutputs(tx *gorm.DB, drafts []LineDraft) ([]models.BomOutput, error) {
	outputs := make([]models.BomOutput, len(drafts))
	for i, d := range drafts {
		line, err := newLine(tx, d)
		if err != nil {
			return nil, err
		}
		outputs[i] = models.BomOutput{BomLine: line}
	}
	if len(outputs) == 0 {
		return outputs, nil
	}
	if err := tx.Omit(clause.Associations).Create(&outputs).Error; err != nil {
		return nil, fmt.Errorf("create bom outputs: %w", err)
	}
	return outputs, nil
}

func createOperations(tx *gorm.DB, drafts []OperationDraft) ([]models.RouteOperation, error) {
	operations := make([]models.RouteOperation, len(drafts))
	for i, d := range drafts {
		operations[i] = models.RouteOperation{
			RouteID:              d.RouteID,
			StepID:               d.StepID,
			Sequence:             d.Sequence,
			OperationTypeID:      d.OperationTypeID,
			WorkCenterCategoryID: d.WorkCenterCategoryID,
			WorkCenterID:         d.WorkCenterID,
			Time:                 d.Time,
			Quantity:             d.Quantity,
			QuantityUomID:        d.QuantityUomID,
			Calculation:          d.Calculation,
		}
	}
	if len(operations) == 0 {
		return operations, nil
	}
	// RouteOperation.BeforeCreate resolves the route of the step.
	if err := tx.Omit(clause.Associations).Create(&operations).Error; err != nil {
		return nil, fmt.Errorf("create route operations: %w", err)
	}
	return operations, nil
}

// newLine builds a BOM line, defaulting the unit to the product's.
func newLine(tx *gorm.DB, d LineDraft) (models.BomLine, error) {
	if d.ProductID == 0 {
		return models.BomLine{}, ErrProductRequired
	}
	uomID := d.UomID
	if uomID == 0 {
		var product models.ProductProduct
		err := tx.Select("id", "default_uom_id").First(&product, d.ProductID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.BomLine{}, fmt.Errorf("product %d: %w", d.ProductID, ErrProductRequired)
		}
		if err != nil {
			return models.BomLine{}, err
		}
		uomID = product.DefaultUomID
	}
	if uomID == 0 {
		return models.BomLine{}, fmt.Errorf("product %d: %w", d.ProductID, ErrUomRequired)
	}
	return models.BomLine{
		BomID:        d.BomID,
		ProductID:    d.ProductID,
		Quantity:     d.Quantity,
		UomID:        uomID,
		StepID:       d.StepID,
		StepSequence: d.StepSequence,
	}, nil
}
