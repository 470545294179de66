// Package importer loads production process definitions from YAML files.
//
// A definition names products, units, operation types and work centers
// instead of using ids:
//
//	processes:
//	  - name: Assembly components
//	    uom: Unit
//	    steps:
//	      - name: Prepare
//	        sequence: 1
//	        inputs:
//	          - product: COMP1
//	            quantity: 5
//	        operations:
//	          - sequence: 1
//	            type: Assembly
//	            work_center_category: Default Category
//	            time: 0.5
package importer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/xelth-com/eckmrpgo/internal/models"
	"github.com/xelth-com/eckmrpgo/internal/process"
)

var (
	ErrEmptyDefinition   = errors.New("definition is empty")
	ErrUnknownProduct    = errors.New("unknown product")
	ErrAmbiguousProduct  = errors.New("product name matches several products")
	ErrUnknownUom        = errors.New("unknown unit of measure")
	ErrUnknownCategory   = errors.New("unknown work center category")
	ErrUnknownWorkCenter = errors.New("unknown work center")
)

// File is the on-disk schema of a definition file.
type File struct {
	Processes []ProcessDef `yaml:"processes"`
}

type ProcessDef struct {
	Name   string    `yaml:"name"`
	Uom    string    `yaml:"uom"`
	Active *bool     `yaml:"active,omitempty"`
	Steps  []StepDef `yaml:"steps,omitempty"`
}

type StepDef struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Sequence    *int           `yaml:"sequence,omitempty"`
	Inputs      []LineDef      `yaml:"inputs,omitempty"`
	Outputs     []LineDef      `yaml:"outputs,omitempty"`
	Operations  []OperationDef `yaml:"operations,omitempty"`
}

// LineDef references a product by default code or name. Uom defaults to
// the product's unit.
type LineDef struct {
	Product  string          `yaml:"product"`
	Quantity decimal.Decimal `yaml:"quantity"`
	Uom      string          `yaml:"uom,omitempty"`
}

// OperationDef creates its operation type when missing. The work center
// category and work center must exist.
type OperationDef struct {
	Sequence           int             `yaml:"sequence"`
	Type               string          `yaml:"type"`
	WorkCenterCategory string          `yaml:"work_center_category"`
	WorkCenter         string          `yaml:"work_center,omitempty"`
	Time               decimal.Decimal `yaml:"time"`
	Quantity           decimal.Decimal `yaml:"quantity,omitempty"`
	QuantityUom        string          `yaml:"quantity_uom,omitempty"`
	Calculation        string          `yaml:"calculation,omitempty"`
}

// Parse decodes and validates a definition payload.
func Parse(data []byte) (File, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return File{}, ErrEmptyDefinition
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("decode definition: %w", err)
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Validate checks the fields that do not need the database.
func (f File) Validate() error {
	if len(f.Processes) == 0 {
		return ErrEmptyDefinition
	}
	for i, p := range f.Processes {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("processes[%d]: %w", i, process.ErrNameRequired)
		}
		if strings.TrimSpace(p.Uom) == "" {
			return fmt.Errorf("process %q: %w", p.Name, process.ErrUomRequired)
		}
		for j, s := range p.Steps {
			if strings.TrimSpace(s.Name) == "" {
				return fmt.Errorf("process %q steps[%d]: %w", p.Name, j, process.ErrNameRequired)
			}
			for _, l := range append(append([]LineDef{}, s.Inputs...), s.Outputs...) {
				if strings.TrimSpace(l.Product) == "" {
					return fmt.Errorf("process %q step %q: %w", p.Name, s.Name, process.ErrProductRequired)
				}
			}
			for _, op := range s.Operations {
				if op.Type == "" || op.WorkCenterCategory == "" {
					return fmt.Errorf("process %q step %q: operation %d needs type and work_center_category", p.Name, s.Name, op.Sequence)
				}
				switch op.Calculation {
				case "", models.CalculationStandard, models.CalculationFixed:
				default:
					return fmt.Errorf("process %q step %q: unknown calculation %q", p.Name, s.Name, op.Calculation)
				}
			}
		}
	}
	return nil
}

// LoadFile reads and parses one definition file.
func LoadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// LoadPath parses a file, or every *.yaml/*.yml file of a directory in
// name order, into one File.
func LoadPath(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return LoadFile(path)
	}

	var files []string
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isYAMLFile(d.Name()) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return File{}, err
	}
	sort.Strings(files)

	var all File
	for _, p := range files {
		f, err := LoadFile(p)
		if err != nil {
			return File{}, err
		}
		all.Processes = append(all.Processes, f.Processes...)
	}
	if len(all.Processes) == 0 {
		return File{}, fmt.Errorf("%s: %w", path, ErrEmptyDefinition)
	}
	return all, nil
}

func isYAMLFile(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, ".yaml") || strings.HasSuffix(lower, ".yml")
}

// Importer resolves definition references and creates the processes.
type Importer struct {
	db        *gorm.DB
	processes *process.Service
	logger    *zap.Logger
}

func New(db *gorm.DB, processes *process.Service, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{db: db, processes: processes, logger: logger.Named("importer")}
}

// Import creates every process of f in one batch.
func (im *Importer) Import(ctx context.Context, f File) ([]models.Process, error) {
	r := &resolver{
		db:          im.db.WithContext(ctx),
		products:    map[string]*models.ProductProduct{},
		uoms:        map[string]uint{},
		opTypes:     map[string]uint{},
		categories:  map[string]uint{},
		workCenters: map[string]uint{},
	}

	drafts := make([]process.ProcessDraft, 0, len(f.Processes))
	for _, p := range f.Processes {
		d, err := r.process(p)
		if err != nil {
			return nil, fmt.Errorf("process %q: %w", p.Name, err)
		}
		drafts = append(drafts, d)
	}

	created, err := im.processes.Create(ctx, drafts)
	if err != nil {
		return nil, err
	}
	im.logger.Info("Imported production processes", zap.Int("count", len(created)))
	return created, nil
}

type resolver struct {
	db          *gorm.DB
	products    map[string]*models.ProductProduct
	uoms        map[string]uint
	opTypes     map[string]uint
	categories  map[string]uint
	workCenters map[string]uint
}

func (r *resolver) process(p ProcessDef) (process.ProcessDraft, error) {
	uomID, err := r.uom(p.Uom)
	if err != nil {
		return process.ProcessDraft{}, err
	}
	d := process.ProcessDraft{Name: p.Name, UomID: uomID, Active: p.Active}
	for _, s := range p.Steps {
		step := process.StepDraft{Name: s.Name, Description: s.Description, Sequence: s.Sequence}
		for _, l := range s.Inputs {
			line, err := r.line(l)
			if err != nil {
				return d, fmt.Errorf("step %q: %w", s.Name, err)
			}
			step.Inputs = append(step.Inputs, line)
		}
		for _, l := range s.Outputs {
			line, err := r.line(l)
			if err != nil {
				return d, fmt.Errorf("step %q: %w", s.Name, err)
			}
			step.Outputs = append(step.Outputs, line)
		}
		for _, op := range s.Operations {
			draft, err := r.operation(op)
			if err != nil {
				return d, fmt.Errorf("step %q: %w", s.Name, err)
			}
			step.Operations = append(step.Operations, draft)
		}
		d.Steps = append(d.Steps, step)
	}
	return d, nil
}

func (r *resolver) line(l LineDef) (process.LineDraft, error) {
	product, err := r.product(l.Product)
	if err != nil {
		return process.LineDraft{}, err
	}
	line := process.LineDraft{ProductID: product.ID, Quantity: l.Quantity, UomID: product.DefaultUomID}
	if l.Uom != "" {
		if line.UomID, err = r.uom(l.Uom); err != nil {
			return process.LineDraft{}, err
		}
	}
	return line, nil
}

func (r *resolver) operation(op OperationDef) (process.OperationDraft, error) {
	typeID, err := r.operationType(op.Type)
	if err != nil {
		return process.OperationDraft{}, err
	}
	categoryID, err := r.named(r.categories, &models.WorkCenterCategory{}, op.WorkCenterCategory, ErrUnknownCategory)
	if err != nil {
		return process.OperationDraft{}, err
	}
	d := process.OperationDraft{
		Sequence:             op.Sequence,
		OperationTypeID:      typeID,
		WorkCenterCategoryID: categoryID,
		Time:                 op.Time,
		Quantity:             op.Quantity,
		Calculation:          op.Calculation,
	}
	if op.WorkCenter != "" {
		id, err := r.named(r.workCenters, &models.WorkCenter{}, op.WorkCenter, ErrUnknownWorkCenter)
		if err != nil {
			return d, err
		}
		d.WorkCenterID = &id
	}
	if op.QuantityUom != "" {
		id, err := r.uom(op.QuantityUom)
		if err != nil {
			return d, err
		}
		d.QuantityUomID = &id
	}
	return d, nil
}

// product matches the default code first, then a unique name.
func (r *resolver) product(ref string) (*models.ProductProduct, error) {
	if p, ok := r.products[ref]; ok {
		return p, nil
	}
	var matches []models.ProductProduct
	if err := r.db.Where("default_code = ?", ref).Limit(2).Find(&matches).Error; err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		if err := r.db.Where("name = ?", ref).Limit(2).Find(&matches).Error; err != nil {
			return nil, err
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, ref)
	case 1:
		r.products[ref] = &matches[0]
		return &matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousProduct, ref)
	}
}

// uom matches a unit name or symbol.
func (r *resolver) uom(ref string) (uint, error) {
	if id, ok := r.uoms[ref]; ok {
		return id, nil
	}
	var u models.Uom
	err := r.db.Where("name = ? OR symbol = ?", ref, ref).Order("id").First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: %s", ErrUnknownUom, ref)
	}
	if err != nil {
		return 0, err
	}
	r.uoms[ref] = u.ID
	return u.ID, nil
}

func (r *resolver) operationType(name string) (uint, error) {
	if id, ok := r.opTypes[name]; ok {
		return id, nil
	}
	t := models.OperationType{Name: name}
	if err := r.db.Where(models.OperationType{Name: name}).FirstOrCreate(&t).Error; err != nil {
		return 0, fmt.Errorf("operation type %q: %w", name, err)
	}
	r.opTypes[name] = t.ID
	return t.ID, nil
}

// named looks up a record by its unique name.
func (r *resolver) named(cache map[string]uint, model interface{}, name string, notFound error) (uint, error) {
	if id, ok := cache[name]; ok {
		return id, nil
	}
	var ids []uint
	if err := r.db.Model(model).Where("name = ?", name).Limit(1).Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: %s", notFound, name)
	}
	cache[name] = ids[0]
	return ids[0], nil
}
