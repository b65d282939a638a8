package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/pokeprice/internal/models"
)

// TCGCSVSyncService mirrors the TCGCSV catalog and its daily prices into the database
type TCGCSVSyncService struct {
	db          *gorm.DB
	tcgcsv      *TCGCSVService
	prices      *PriceService
	concurrency int
	now         func() time.Time

	mu      sync.Mutex
	running bool
}

// SyncOptions selects what a sync covers. Empty Categories means both Pokemon catalogs.
type SyncOptions struct {
	Categories []int `json:"categories"`
	PricesOnly bool  `json:"prices_only"`
}

// SyncResult contains the results of a sync operation
type SyncResult struct {
	RunID            string        `json:"run_id"`
	GroupsProcessed  int           `json:"groups_processed"`
	ProductsUpserted int           `json:"products_upserted"`
	PricesRecorded   int           `json:"prices_recorded"`
	ProductsPriced   int           `json:"products_priced"`
	Errors           []string      `json:"errors,omitempty"`
	Duration         time.Duration `json:"duration"`

	mu sync.Mutex
}

func (r *SyncResult) addGroup(products, prices, priced int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.GroupsProcessed++
	r.ProductsUpserted += products
	r.PricesRecorded += prices
	r.ProductsPriced += priced
}

func (r *SyncResult) addError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, err.Error())
}

// NewTCGCSVSyncService creates a new sync service. concurrency bounds how many groups are fetched at once.
func NewTCGCSVSyncService(db *gorm.DB, tcgcsv *TCGCSVService, prices *PriceService, concurrency int) *TCGCSVSyncService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &TCGCSVSyncService{
		db:          db,
		tcgcsv:      tcgcsv,
		prices:      prices,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// IsRunning returns whether a sync is currently in progress
func (s *TCGCSVSyncService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Sync runs a full sync. Returns (nil, nil) if another sync is already in progress.
// Per-group failures are collected in the result rather than aborting the run.
func (s *TCGCSVSyncService) Sync(ctx context.Context, opts SyncOptions) (*SyncResult, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, nil
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	categories := opts.Categories
	if len(categories) == 0 {
		categories = []int{models.CategoryPokemon, models.CategoryPokemonJapanese}
	}

	start := time.Now()
	result := &SyncResult{}
	run, err := trackRun(s.db, JobTCGCSVSync, func(run *models.CollectionRun) error {
		defer func() {
			run.Processed = result.GroupsProcessed
			run.Updated = result.ProductsUpserted + result.ProductsPriced
			run.Errors = len(result.Errors)
		}()
		for _, categoryID := range categories {
			if err := s.syncCategory(ctx, categoryID, opts.PricesOnly, result); err != nil {
				return err
			}
		}
		return nil
	})
	result.RunID = run.ID
	result.Duration = time.Since(start)

	log.Printf("TCGCSVSync: completed in %v - %d groups, %d products, %d prices, %d errors",
		result.Duration.Round(time.Millisecond), result.GroupsProcessed, result.ProductsUpserted, result.PricesRecorded, len(result.Errors))
	return result, err
}

func (s *TCGCSVSyncService) syncCategory(ctx context.Context, categoryID int, pricesOnly bool, result *SyncResult) error {
	groups, err := s.tcgcsv.GetGroups(ctx, categoryID)
	if err != nil {
		return err
	}
	log.Printf("TCGCSVSync: category %d has %d groups", categoryID, len(groups))

	if !pricesOnly {
		if err := s.upsertGroups(groups, categoryID); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, group := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := s.syncGroup(gctx, categoryID, group.GroupID, pricesOnly, result); err != nil {
				log.Printf("TCGCSVSync: group %d (%s) failed: %v", group.GroupID, group.Name, err)
				result.addError(fmt.Errorf("group %d: %w", group.GroupID, err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *TCGCSVSyncService) upsertGroups(groups []TCGCSVGroup, categoryID int) error {
	if len(groups) == 0 {
		return nil
	}
	rows := make([]models.Group, len(groups))
	for i, g := range groups {
		rows[i] = g.ToGroup(categoryID)
	}

	// release_date is admin-editable, so only fill it when empty
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "group_id"}},
		DoUpdates: append(
			clause.AssignmentColumns([]string{"name", "abbreviation", "is_supplemental", "category_id", "language", "published_on", "modified_on", "updated_at"}),
			clause.Assignment{Column: clause.Column{Name: "release_date"}, Value: gorm.Expr(`COALESCE("groups".release_date, excluded.release_date)`)},
		),
	}).CreateInBatches(&rows, 200).Error
	if err != nil {
		return fmt.Errorf("failed to upsert groups: %w", err)
	}
	return nil
}

// Columns TCGCSV owns outright
var tcgcsvProductColumns = []string{
	"name", "clean_name", "group_id", "category_id", "image_url", "url",
	"language", "is_sealed", "modified_on", "updated_at",
}

// Columns other jobs or admins may have filled; a blank TCGCSV value keeps them
var tcgcsvKeepColumns = []string{
	"number", "rarity", "artist", "supertype", "subtypes", "types", "stage",
	"card_text", "attacks", "weakness", "resistance",
}

func productUpsertClause() clause.OnConflict {
	updates := clause.AssignmentColumns(tcgcsvProductColumns)
	for _, col := range tcgcsvKeepColumns {
		updates = append(updates, clause.Assignment{
			Column: clause.Column{Name: col},
			Value:  gorm.Expr(fmt.Sprintf("CASE WHEN excluded.%[1]s <> '' THEN excluded.%[1]s ELSE products.%[1]s END", col)),
		})
	}
	for _, col := range []string{"hp", "retreat_cost"} {
		updates = append(updates, clause.Assignment{
			Column: clause.Column{Name: col},
			Value:  gorm.Expr(fmt.Sprintf("COALESCE(excluded.%[1]s, products.%[1]s)", col)),
		})
	}
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: updates,
	}
}

func (s *TCGCSVSyncService) syncGroup(ctx context.Context, categoryID, groupID int, pricesOnly bool, result *SyncResult) error {
	upserted := 0
	if !pricesOnly {
		products, err := s.tcgcsv.GetProducts(ctx, categoryID, groupID)
		if err != nil {
			return err
		}
		if len(products) > 0 {
			rows := make([]models.Product, len(products))
			for i, p := range products {
				rows[i] = p.ToProduct(categoryID)
			}
			if err := s.db.Clauses(productUpsertClause()).CreateInBatches(&rows, 200).Error; err != nil {
				return fmt.Errorf("failed to upsert products: %w", err)
			}
			upserted = len(rows)
		}
	}

	prices, err := s.tcgcsv.GetPrices(ctx, categoryID, groupID)
	if err != nil {
		return err
	}

	source := models.SourceTCGCSV
	if categoryID == models.CategoryPokemonJapanese {
		source = models.SourceTCGCSVJapanese
	}
	date := models.PriceDate(s.now())

	var rows []models.PriceHistory
	flags := make(map[int]*models.Product)
	for _, p := range prices {
		flag, ok := flags[p.ProductID]
		if !ok {
			flag = &models.Product{}
			flags[p.ProductID] = flag
		}
		flag.MarkVariant(p.Variant())

		price := p.BestPrice()
		if price <= 0 {
			continue
		}
		rows = append(rows, models.PriceHistory{
			ProductID:      p.ProductID,
			Date:           date,
			Variant:        p.Variant(),
			Condition:      models.PriceConditionNM,
			Source:         source,
			Price:          price,
			LowPrice:       deref(p.LowPrice),
			MidPrice:       deref(p.MidPrice),
			HighPrice:      deref(p.HighPrice),
			MarketPrice:    deref(p.MarketPrice),
			DirectLowPrice: deref(p.DirectLowPrice),
		})
	}

	for productID, flag := range flags {
		// Zero-valued flags are skipped by Updates, so flags only ever turn on
		err := s.db.Model(&models.Product{}).Where("product_id = ?", productID).
			Updates(models.Product{HasNormal: flag.HasNormal, HasHolofoil: flag.HasHolofoil, HasReverseHolo: flag.HasReverseHolo, HasFirstEdition: flag.HasFirstEdition}).Error
		if err != nil {
			return fmt.Errorf("failed to update variants for product %d: %w", productID, err)
		}
	}

	recorded, err := s.prices.RecordPrices(rows)
	if err != nil {
		return err
	}

	priced := make(map[int]bool)
	for _, r := range rows {
		if priced[r.ProductID] {
			continue
		}
		priced[r.ProductID] = true
		if err := s.prices.RefreshCurrentPrice(r.ProductID); err != nil {
			return err
		}
	}

	result.addGroup(upserted, recorded, len(priced))
	return nil
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
