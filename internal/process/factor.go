package process

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/xelth-com/eckmrpgo/internal/models"
)

// ComputeFactor returns the factor for producing quantity (in uomID) of
// productID with the process. Steps are tried in order; the first step
// that outputs the product decides.
func (s *Service) ComputeFactor(ctx context.Context, processID, productID uint, quantity decimal.Decimal, uomID uint) (decimal.Decimal, error) {
	db := s.db.WithContext(ctx)

	var p models.Process
	err := withSteps(db).First(&p, processID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, fmt.Errorf("process %d: %w", processID, ErrNotFound)
	}
	if err != nil {
		return decimal.Zero, err
	}

	var unit *models.Uom
	if uomID != 0 {
		unit = &models.Uom{}
		if err := db.First(unit, uomID).Error; err != nil {
			return decimal.Zero, fmt.Errorf("unit %d: %w", uomID, err)
		}
	}
	return stepFactor(p.Steps, productID, quantity, unit)
}

func stepFactor(steps []models.ProcessStep, productID uint, quantity decimal.Decimal, unit *models.Uom) (decimal.Decimal, error) {
	steps = append([]models.ProcessStep(nil), steps...)
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Less(&steps[j]) })
	for i := range steps {
		factor, found, err := steps[i].Bom().ComputeFactor(productID, quantity, unit)
		if err != nil {
			return decimal.Zero, err
		}
		if found {
			return factor, nil
		}
	}
	return decimal.Zero, ErrFactorNotFound
}
