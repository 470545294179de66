// Package catalog manages products and the BOM, route or process each
// product is manufactured with.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/eckmrpgo/internal/models"
	"github.com/xelth-com/eckmrpgo/internal/process"
)

var (
	ErrProductNotFound       = errors.New("product not found")
	ErrBindingNotFound       = errors.New("product bom not found")
	ErrBOMRequired           = errors.New("bom is required")
	ErrProcessDoesNotProduce = errors.New("process does not produce the product")
)

// BindingDraft selects how a product is manufactured. With ProcessID set,
// the BOM and route of the process replace BomID and RouteID.
type BindingDraft struct {
	ProductID uint  `json:"product_id"`
	Sequence  int   `json:"sequence"`
	BomID     *uint `json:"bom_id,omitempty"`
	RouteID   *uint `json:"route_id,omitempty"`
	ProcessID *uint `json:"process_id,omitempty"`
}

// BindingChanges is a partial update of a binding. ClearProcess removes
// the process and keeps the BOM and route it had set.
type BindingChanges struct {
	Sequence     *int  `json:"sequence,omitempty"`
	BomID        *uint `json:"bom_id,omitempty"`
	RouteID      *uint `json:"route_id,omitempty"`
	ProcessID    *uint `json:"process_id,omitempty"`
	ClearProcess bool  `json:"clear_process,omitempty"`
}

type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: db, logger: logger.Named("catalog")}
}

// CreateProduct stores a local product.
func (s *Service) CreateProduct(ctx context.Context, product *models.ProductProduct) error {
	if strings.TrimSpace(product.Name) == "" {
		return fmt.Errorf("product: %w", process.ErrNameRequired)
	}
	if product.DefaultUomID == 0 {
		return fmt.Errorf("product %q: %w", product.Name, process.ErrUomRequired)
	}
	product.ID = 0
	product.Active = true
	return s.db.WithContext(ctx).Omit(clause.Associations).Create(product).Error
}

// GetProduct returns a product with its unit and ordered bindings.
func (s *Service) GetProduct(ctx context.Context, id uint) (*models.ProductProduct, error) {
	var product models.ProductProduct
	err := s.db.WithContext(ctx).
		Preload("DefaultUom").
		Preload("Boms", bindingOrder).
		First(&product, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ListProducts returns active products, optionally filtered by a search
// on name, code or barcode.
func (s *Service) ListProducts(ctx context.Context, search string, limit int) ([]models.ProductProduct, error) {
	query := s.db.WithContext(ctx).Where("active = ?", true).Order("name, id")
	if search != "" {
		like := "%" + search + "%"
		query = query.Where("name LIKE ? OR default_code LIKE ? OR barcode LIKE ?", like, like, like)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var products []models.ProductProduct
	if err := query.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// CopyProduct duplicates a product. Bindings are not copied.
func (s *Service) CopyProduct(ctx context.Context, id uint) (*models.ProductProduct, error) {
	var source models.ProductProduct
	err := s.db.WithContext(ctx).First(&source, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %d: %w", id, ErrProductNotFound)
	}
	if err != nil {
		return nil, err
	}

	cp := source
	cp.ID = 0
	cp.ErpID = nil
	cp.LastSyncedAt = nil
	cp.RawData = nil
	cp.Boms = nil
	cp.DefaultUom = nil
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&cp).Error; err != nil {
		return nil, fmt.Errorf("copy product %d: %w", id, err)
	}
	s.logger.Info("product copied", zap.Uint("from", id), zap.Uint("to", cp.ID))
	return &cp, nil
}

// ListBindings returns the bindings of a product in selection order.
func (s *Service) ListBindings(ctx context.Context, productID uint) ([]models.ProductBom, error) {
	var bindings []models.ProductBom
	err := bindingOrder(s.db.WithContext(ctx)).
		Where("product_id = ?", productID).
		Find(&bindings).Error
	if err != nil {
		return nil, err
	}
	return bindings, nil
}

// CreateBindings stores bindings in one transaction.
func (s *Service) CreateBindings(ctx context.Context, drafts []BindingDraft) ([]models.ProductBom, error) {
	bindings := make([]models.ProductBom, len(drafts))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, d := range drafts {
			b := models.ProductBom{
				ProductID: d.ProductID,
				Sequence:  d.Sequence,
				BomID:     d.BomID,
				RouteID:   d.RouteID,
				ProcessID: d.ProcessID,
			}
			if err := applyBindingProcess(tx, &b); err != nil {
				return err
			}
			bindings[i] = b
		}
		if len(bindings) == 0 {
			return nil
		}
		return tx.Omit(clause.Associations).Create(&bindings).Error
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("product boms created", zap.Int("count", len(bindings)))
	return bindings, nil
}

// UpdateBinding changes a binding and re-applies its process.
func (s *Service) UpdateBinding(ctx context.Context, id uint, changes BindingChanges) (*models.ProductBom, error) {
	var b models.ProductBom
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.First(&b, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("product bom %d: %w", id, ErrBindingNotFound)
		}
		if err != nil {
			return err
		}
		if changes.Sequence != nil {
			b.Sequence = *changes.Sequence
		}
		if changes.BomID != nil {
			b.BomID = changes.BomID
		}
		if changes.RouteID != nil {
			b.RouteID = changes.RouteID
		}
		if changes.ProcessID != nil {
			b.ProcessID = changes.ProcessID
		}
		if changes.ClearProcess {
			b.ProcessID = nil
		}
		if err := applyBindingProcess(tx, &b); err != nil {
			return err
		}
		return tx.Model(&b).Select("sequence", "bom_id", "route_id", "process_id").Updates(&b).Error
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// DeleteBinding removes a binding.
func (s *Service) DeleteBinding(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.ProductBom{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product bom %d: %w", id, ErrBindingNotFound)
	}
	return nil
}

// applyBindingProcess copies the BOM and route of the binding's process
// and checks the process outputs the product.
func applyBindingProcess(tx *gorm.DB, b *models.ProductBom) error {
	if b.ProductID == 0 {
		return process.ErrProductRequired
	}
	if b.ProcessID == nil {
		if b.BomID == nil {
			return ErrBOMRequired
		}
		return nil
	}

	var p models.Process
	err := tx.Select("id", "name", "bom_id", "route_id").First(&p, *b.ProcessID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("process %d: %w", *b.ProcessID, process.ErrNotFound)
	}
	if err != nil {
		return err
	}
	ok, err := process.Produces(tx, p.ID, b.ProductID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("process %q, product %d: %w", p.Name, b.ProductID, ErrProcessDoesNotProduce)
	}
	bomID, routeID := p.BomID, p.RouteID
	b.BomID = &bomID
	b.RouteID = &routeID
	return nil
}

func bindingOrder(db *gorm.DB) *gorm.DB {
	return db.Order("sequence, id")
}
