// Package erp pulls units of measure and products from an XML-RPC ERP.
package erp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xelth-com/eckmrpgo/internal/config"
	"github.com/xelth-com/eckmrpgo/internal/events"
	"github.com/xelth-com/eckmrpgo/internal/models"
)

const defaultSchedule = "@every 15m"

// ERP models pulled by the sync.
const (
	modelUomCategory = "uom.category"
	modelUom         = "uom.uom"
	modelProduct     = "product.product"
)

// erpTimeLayout is how the ERP formats datetime fields.
const erpTimeLayout = "2006-01-02 15:04:05"

type uomCategoryRecord struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type uomRecord struct {
	ID         int64           `json:"id"`
	Name       string          `json:"name"`
	CategoryID models.Many2One `json:"category_id"`
	Factor     float64         `json:"factor"`
	Rounding   float64         `json:"rounding"`
	Active     bool            `json:"active"`
}

type productRecord struct {
	ID            int64            `json:"id"`
	DefaultCode   models.ErpString `json:"default_code"`
	Barcode       models.ErpString `json:"barcode"`
	Name          string           `json:"name"`
	Type          models.ErpString `json:"type"`
	ListPrice     float64          `json:"list_price"`
	StandardPrice float64          `json:"standard_price"`
	UomID         models.Many2One  `json:"uom_id"`
	WriteDate     models.ErpString `json:"write_date"`
	Active        bool             `json:"active"`
}

var (
	uomCategoryFields = []string{"name"}
	uomFields         = []string{"name", "category_id", "factor", "rounding", "active"}
	productFields     = []string{"default_code", "barcode", "name", "type", "list_price", "standard_price", "uom_id", "write_date", "active"}
)

// Result counts the records written by one sync run.
type Result struct {
	Categories int `json:"categories"`
	Uoms       int `json:"uoms"`
	Products   int `json:"products"`
	Skipped    int `json:"skipped"`
}

// SyncService orchestrates synchronization between the ERP and the local DB
type SyncService struct {
	client *Client
	db     *gorm.DB
	cfg    config.ERPConfig
	logger *zap.Logger
	events events.Broadcaster
	cron   *cron.Cron

	// running serializes runs; a scheduled run is skipped while one is active.
	running sync.Mutex
}

// NewSyncService creates a new synchronization service
func NewSyncService(db *gorm.DB, cfg config.ERPConfig, logger *zap.Logger, broadcaster events.Broadcaster) *SyncService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if broadcaster == nil {
		broadcaster = events.Nop{}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	return &SyncService{
		client: NewClient(cfg.URL, cfg.Database, cfg.Username, cfg.Password),
		db:     db,
		cfg:    cfg,
		logger: logger.Named("erp"),
		events: broadcaster,
	}
}

// Start schedules RunOnce on ERP_SYNC_SCHEDULE. It does nothing when no
// ERP is configured.
func (s *SyncService) Start() error {
	if !s.cfg.Enabled() {
		s.logger.Info("ERP sync disabled: ERP_URL not configured")
		return nil
	}
	schedule := s.cfg.SyncSchedule
	if schedule == "" {
		schedule = defaultSchedule
	}

	s.cron = cron.New()
	_, err := s.cron.AddFunc(schedule, func() {
		if !s.running.TryLock() {
			s.logger.Warn("Previous ERP sync still running, skipping")
			return
		}
		defer s.running.Unlock()
		if _, err := s.runOnce(context.Background()); err != nil {
			s.logger.Error("ERP sync failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid ERP sync schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	s.logger.Info("ERP sync scheduled", zap.String("schedule", schedule))
	return nil
}

// Stop halts the scheduler and waits for a running sync to finish.
func (s *SyncService) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
}

// RunOnce pulls unit categories, units and changed products.
func (s *SyncService) RunOnce(ctx context.Context) (Result, error) {
	s.running.Lock()
	defer s.running.Unlock()
	return s.runOnce(ctx)
}

func (s *SyncService) runOnce(ctx context.Context) (Result, error) {
	var res Result
	start := time.Now()
	s.logger.Info("Starting ERP sync", zap.String("url", s.cfg.URL))

	if _, err := s.client.Authenticate(); err != nil {
		return res, err
	}

	var err error
	if res.Categories, err = s.syncCategories(ctx); err != nil {
		return res, err
	}
	if res.Uoms, err = s.syncUoms(ctx); err != nil {
		return res, err
	}
	if res.Products, res.Skipped, err = s.syncProducts(ctx); err != nil {
		return res, err
	}

	s.logger.Info("ERP sync completed",
		zap.Int("categories", res.Categories),
		zap.Int("uoms", res.Uoms),
		zap.Int("products", res.Products),
		zap.Int("skipped", res.Skipped),
		zap.Duration("took", time.Since(start)))
	s.events.Broadcast(events.New(events.CatalogSynced))
	return res, nil
}

// fetchAll pages through search_read until a short page comes back.
func (s *SyncService) fetchAll(ctx context.Context, model string, domain []interface{}, fields []string, page func(raw []map[string]interface{}) error) error {
	for offset := 0; ; offset += s.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := s.client.SearchReadRaw(model, domain, fields, s.cfg.BatchSize, offset)
		if err != nil {
			return err
		}
		if len(raw) > 0 {
			if err := page(raw); err != nil {
				return err
			}
		}
		if len(raw) < s.cfg.BatchSize {
			return nil
		}
	}
}

func (s *SyncService) syncCategories(ctx context.Context) (int, error) {
	count := 0
	err := s.fetchAll(ctx, modelUomCategory, []interface{}{}, uomCategoryFields, func(raw []map[string]interface{}) error {
		var records []uomCategoryRecord
		if err := decode(raw, &records); err != nil {
			return err
		}
		rows := make([]models.UomCategory, 0, len(records))
		for _, r := range records {
			erpID := r.ID
			rows = append(rows, models.UomCategory{ErpID: &erpID, Name: r.Name})
		}
		if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "erp_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name"}),
		}).Create(&rows).Error; err != nil {
			return fmt.Errorf("save unit categories: %w", err)
		}
		count += len(rows)
		return nil
	})
	return count, err
}

func (s *SyncService) syncUoms(ctx context.Context) (int, error) {
	categories, err := s.localIDs(ctx, &models.UomCategory{})
	if err != nil {
		return 0, err
	}

	count := 0
	domain := []interface{}{[]interface{}{"active", "in", []interface{}{true, false}}}
	err = s.fetchAll(ctx, modelUom, domain, uomFields, func(raw []map[string]interface{}) error {
		var records []uomRecord
		if err := decode(raw, &records); err != nil {
			return err
		}
		rows := make([]models.Uom, 0, len(records))
		for _, r := range records {
			categoryID, ok := categories[r.CategoryID.ID]
			if !ok || r.Factor == 0 {
				s.logger.Warn("Skipping unit", zap.Int64("erp_id", r.ID), zap.String("name", r.Name))
				continue
			}
			erpID := r.ID
			rows = append(rows, models.Uom{
				ErpID:      &erpID,
				Name:       r.Name,
				Symbol:     r.Name,
				CategoryID: categoryID,
				// The ERP counts units per reference unit; the local factor is
				// the size of one unit in the reference unit.
				Factor:   decimal.NewFromInt(1).DivRound(decimal.NewFromFloat(r.Factor), 10),
				Rounding: decimal.NewFromFloat(r.Rounding),
				Active:   r.Active,
			})
		}
		if len(rows) == 0 {
			return nil
		}
		if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "erp_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "category_id", "factor", "rounding", "active"}),
		}).Create(&rows).Error; err != nil {
			return fmt.Errorf("save units: %w", err)
		}
		count += len(rows)
		return nil
	})
	return count, err
}

// syncProducts pulls products changed since the newest local write date.
func (s *SyncService) syncProducts(ctx context.Context) (int, int, error) {
	uoms, err := s.localIDs(ctx, &models.Uom{})
	if err != nil {
		return 0, 0, err
	}

	lastWriteDate := "2000-01-01 00:00:00"
	var last models.ProductProduct
	if err := s.db.WithContext(ctx).Where("erp_id IS NOT NULL AND write_date IS NOT NULL").
		Order("write_date DESC").Limit(1).Find(&last).Error; err != nil {
		return 0, 0, err
	}
	if last.WriteDate != nil {
		lastWriteDate = last.WriteDate.UTC().Format(erpTimeLayout)
	}
	domain := []interface{}{
		[]interface{}{"write_date", ">", lastWriteDate},
		[]interface{}{"active", "in", []interface{}{true, false}},
	}

	count, skipped := 0, 0
	now := time.Now().UTC()
	err = s.fetchAll(ctx, modelProduct, domain, productFields, func(raw []map[string]interface{}) error {
		var records []productRecord
		if err := decode(raw, &records); err != nil {
			return err
		}
		rows := make([]models.ProductProduct, 0, len(records))
		for i, r := range records {
			uomID, ok := uoms[r.UomID.ID]
			if !ok {
				s.logger.Warn("Skipping product without known unit",
					zap.Int64("erp_id", r.ID), zap.String("name", r.Name))
				skipped++
				continue
			}
			payload, err := json.Marshal(raw[i])
			if err != nil {
				return err
			}
			erpID := r.ID
			product := models.ProductProduct{
				ErpID:        &erpID,
				DefaultCode:  r.DefaultCode,
				Barcode:      r.Barcode,
				Name:         r.Name,
				Active:       r.Active,
				Type:         r.Type.String(),
				DefaultUomID: uomID,
				ListPrice:    decimal.NewFromFloat(r.ListPrice),
				CostPrice:    decimal.NewFromFloat(r.StandardPrice),
				LastSyncedAt: &now,
				RawData:      datatypes.JSON(payload),
			}
			if t, err := time.Parse(erpTimeLayout, r.WriteDate.String()); err == nil {
				product.WriteDate = &t
			}
			rows = append(rows, product)
		}
		if len(rows) == 0 {
			return nil
		}
		// Producible is local planning data and survives the pull.
		if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "erp_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"default_code", "barcode", "name", "active", "type", "default_uom_id",
				"list_price", "cost_price", "write_date", "last_synced_at", "raw_data",
			}),
		}).Create(&rows).Error; err != nil {
			return fmt.Errorf("save products: %w", err)
		}
		count += len(rows)
		return nil
	})
	return count, skipped, err
}

// localIDs maps ERP ids to local ids for a synced table.
func (s *SyncService) localIDs(ctx context.Context, model interface{}) (map[int64]uint, error) {
	var rows []struct {
		ID    uint
		ErpID int64
	}
	if err := s.db.WithContext(ctx).Model(model).Where("erp_id IS NOT NULL").
		Select("id, erp_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	ids := make(map[int64]uint, len(rows))
	for _, r := range rows {
		ids[r.ErpID] = r.ID
	}
	return ids, nil
}
