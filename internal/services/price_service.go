package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/pokeprice/internal/metrics"
	"github.com/codyseavey/pokeprice/internal/models"
)

const (
	// PriceStalenessThreshold is how old a price can be before it's considered stale
	PriceStalenessThreshold = 24 * time.Hour

	// DefaultHistoryDays is the price chart window when none is requested
	DefaultHistoryDays = 90

	suspiciousPriceFloor = 10000.0
	implausiblePrice     = 50000.0
	historyPriceCap      = 15000.0
)

// Per-card ceilings for current prices above suspiciousPriceFloor
var priceLimits = struct {
	GoldStar, Star, Default float64
}{25000, 15000, 5000}

// Current price sources in preference order
var currentPriceSources = []string{
	models.SourceTCGCSV,
	models.SourceTCGCSVJapanese,
	models.SourcePokemonTCG,
	models.SourceTCGdex,
	models.SourcePokemonPriceTracker + "-raw",
}

// PriceService owns the price history log and the current price cached on products
type PriceService struct {
	db      *gorm.DB
	tracker *PokemonPriceTrackerService
	now     func() time.Time
}

// NewPriceService creates a new price service. tracker may be nil.
func NewPriceService(db *gorm.DB, tracker *PokemonPriceTrackerService) *PriceService {
	return &PriceService{
		db:      db,
		tracker: tracker,
		now:     time.Now,
	}
}

// RecordPrices upserts price history rows. A row that repeats an existing
// (product, date, variant, condition, grade, source) replaces its prices.
func (s *PriceService) RecordPrices(rows []models.PriceHistory) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	for i := range rows {
		if rows[i].Variant == "" {
			rows[i].Variant = models.VariantNormal
		}
		if rows[i].Condition == "" {
			rows[i].Condition = models.PriceConditionNM
		}
		if rows[i].Date == "" {
			rows[i].Date = models.PriceDate(s.now())
		}
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "product_id"}, {Name: "date"}, {Name: "variant"},
			{Name: "condition"}, {Name: "grade"}, {Name: "source"},
		},
		DoUpdates: clause.AssignmentColumns([]string{
			"price", "low_price", "mid_price", "high_price", "market_price",
			"direct_low_price", "volume", "population", "updated_at",
		}),
	}).CreateInBatches(&rows, 200).Error
	if err != nil {
		return 0, fmt.Errorf("failed to record prices: %w", err)
	}

	for _, r := range rows {
		metrics.PriceUpdatesTotal.WithLabelValues(sourceLabel(r.Source)).Inc()
	}
	return len(rows), nil
}

// sourceLabel collapses the per-condition and per-grade tags so the metric
// label set stays small
func sourceLabel(source string) string {
	switch {
	case strings.HasPrefix(source, models.SourcePokemonPriceTracker+"-psa-"):
		return "pokemonpricetracker-graded"
	case strings.HasPrefix(source, models.SourcePokemonPriceTracker):
		return models.SourcePokemonPriceTracker
	default:
		return source
	}
}

// RefreshCurrentPrice copies the newest raw near-mint price onto the product.
// Sources are ranked when several report the same day.
func (s *PriceService) RefreshCurrentPrice(productID int) error {
	var rows []models.PriceHistory
	err := s.db.
		Where("product_id = ? AND grade = '' AND condition = ? AND source IN ?", productID, models.PriceConditionNM, currentPriceSources).
		Order("date DESC, id ASC").
		Limit(20).
		Find(&rows).Error
	if err != nil {
		return fmt.Errorf("failed to load prices for product %d: %w", productID, err)
	}

	best := pickCurrentPrice(rows)
	updates := map[string]any{
		"market_price": 0.0,
		"low_price":    0.0,
		"mid_price":    0.0,
		"high_price":   0.0,
		"price_source": "",
	}
	if best != nil {
		updated := best.UpdatedAt
		if updated.IsZero() {
			updated = s.now()
		}
		updates = map[string]any{
			"market_price":     best.Price,
			"low_price":        best.LowPrice,
			"mid_price":        best.MidPrice,
			"high_price":       best.HighPrice,
			"price_source":     best.Source,
			"price_updated_at": updated,
		}
	}

	if err := s.db.Model(&models.Product{}).Where("product_id = ?", productID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update current price for product %d: %w", productID, err)
	}
	return nil
}

// pickCurrentPrice takes rows sorted newest first and returns the preferred
// one from the newest date. Within a source the Normal printing wins, then
// whichever row was written first.
func pickCurrentPrice(rows []models.PriceHistory) *models.PriceHistory {
	if len(rows) == 0 {
		return nil
	}
	latest := rows[0].Date

	var best *models.PriceHistory
	bestRank := len(currentPriceSources)
	for i := range rows {
		r := &rows[i]
		if r.Date != latest || r.Price <= 0 {
			continue
		}
		rank := sourceRank(r.Source)
		switch {
		case best == nil, rank < bestRank:
			best, bestRank = r, rank
		case rank == bestRank && best.Variant != models.VariantNormal && r.Variant == models.VariantNormal:
			best = r
		}
	}
	return best
}

func sourceRank(source string) int {
	for i, s := range currentPriceSources {
		if s == source {
			return i
		}
	}
	return len(currentPriceSources)
}

// GetHistory returns a product's price history for the last days days, oldest first
func (s *PriceService) GetHistory(productID, days int) ([]models.PriceHistory, error) {
	if days <= 0 {
		days = DefaultHistoryDays
	}
	since := models.PriceDate(s.now().AddDate(0, 0, -days))

	var rows []models.PriceHistory
	err := s.db.
		Where("product_id = ? AND date >= ?", productID, since).
		Order("date ASC, source ASC, variant ASC, condition ASC, grade ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get price history for product %d: %w", productID, err)
	}
	return rows, nil
}

// LastCollected returns when PokemonPriceTracker prices were last written for
// the product, or nil if never
func (s *PriceService) LastCollected(productID int) (*time.Time, error) {
	var row models.PriceHistory
	err := s.db.
		Where("product_id = ? AND source LIKE ?", productID, models.SourcePokemonPriceTracker+"%").
		Order("updated_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row.UpdatedAt, nil
}

// NeedsRefresh returns true if the product's condition prices are stale or missing
func (s *PriceService) NeedsRefresh(productID int) bool {
	last, err := s.LastCollected(productID)
	if err != nil {
		return true
	}
	return !s.isFresh(last)
}

// isFresh checks if a price update time is within the staleness threshold
func (s *PriceService) isFresh(updatedAt *time.Time) bool {
	if updatedAt == nil {
		return false
	}
	return s.now().Sub(*updatedAt) < PriceStalenessThreshold
}

// SuspiciousPriceReport counts what FixSuspiciousPrices changed
type SuspiciousPriceReport struct {
	ProductsCapped   int `json:"products_capped"`
	ProductsCleared  int `json:"products_cleared"`
	HistoryCapped    int `json:"history_capped"`
	HistoryDeleted   int `json:"history_deleted"`
	ProductsRepriced int `json:"products_repriced"`
}

// priceLimitFor returns the highest believable price for a card by name
func priceLimitFor(name string) float64 {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "gold star"):
		return priceLimits.GoldStar
	case strings.Contains(lower, "star"):
		return priceLimits.Star
	default:
		return priceLimits.Default
	}
}

// FixSuspiciousPrices repairs prices that are almost certainly data errors.
// Current prices over $10k are capped at a per-card limit, or cleared above
// $50k. History rows over $50k are deleted and the rest over $10k are capped.
// Touched products then take their current price from history again.
func (s *PriceService) FixSuspiciousPrices() (*SuspiciousPriceReport, error) {
	var report *SuspiciousPriceReport
	_, err := trackRun(s.db, JobSuspiciousPrices, func(run *models.CollectionRun) error {
		var err error
		report, err = s.fixSuspiciousPrices()
		if report != nil {
			run.Updated = report.ProductsCapped + report.ProductsCleared + report.HistoryCapped + report.HistoryDeleted
			run.Processed = report.ProductsRepriced
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *PriceService) fixSuspiciousPrices() (*SuspiciousPriceReport, error) {
	report := &SuspiciousPriceReport{}

	var products []models.Product
	if err := s.db.Where("market_price > ?", suspiciousPriceFloor).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to find suspicious prices: %w", err)
	}

	touched := make(map[int]bool)
	for _, p := range products {
		limit := priceLimitFor(p.Name)
		if p.MarketPrice <= limit {
			continue
		}
		price := limit
		if p.MarketPrice > implausiblePrice {
			price = 0
			report.ProductsCleared++
		} else {
			report.ProductsCapped++
		}
		log.Printf("Suspicious prices: %s (%d) %.2f -> %.2f", p.Name, p.ProductID, p.MarketPrice, price)
		if err := s.db.Model(&models.Product{}).Where("product_id = ?", p.ProductID).Update("market_price", price).Error; err != nil {
			return nil, fmt.Errorf("failed to fix price for product %d: %w", p.ProductID, err)
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var ids []int
		if err := tx.Model(&models.PriceHistory{}).Where("price > ?", suspiciousPriceFloor).Distinct().Pluck("product_id", &ids).Error; err != nil {
			return err
		}
		for _, id := range ids {
			touched[id] = true
		}

		deleted := tx.Where("price > ?", implausiblePrice).Delete(&models.PriceHistory{})
		if deleted.Error != nil {
			return deleted.Error
		}
		report.HistoryDeleted = int(deleted.RowsAffected)

		capped := tx.Model(&models.PriceHistory{}).Where("price > ?", historyPriceCap).Update("price", historyPriceCap)
		if capped.Error != nil {
			return capped.Error
		}
		report.HistoryCapped = int(capped.RowsAffected)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clean price history: %w", err)
	}

	for id := range touched {
		if err := s.RefreshCurrentPrice(id); err != nil {
			log.Printf("Suspicious prices: %v", err)
			continue
		}
		report.ProductsRepriced++
	}

	log.Printf("Suspicious prices: capped %d, cleared %d products; capped %d, deleted %d history rows",
		report.ProductsCapped, report.ProductsCleared, report.HistoryCapped, report.HistoryDeleted)
	return report, nil
}

// GetTrackerRequestsRemaining returns remaining PokemonPriceTracker requests today
func (s *PriceService) GetTrackerRequestsRemaining() int {
	if s.tracker == nil {
		return 0
	}
	return s.tracker.GetRequestsRemaining()
}

// GetTrackerDailyLimit returns the configured daily limit
func (s *PriceService) GetTrackerDailyLimit() int {
	if s.tracker == nil {
		return 0
	}
	return s.tracker.DailyLimit()
}

// GetTrackerResetTime returns the next daily reset time (midnight)
func (s *PriceService) GetTrackerResetTime() time.Time {
	now := s.now()
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
}
