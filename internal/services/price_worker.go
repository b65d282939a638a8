package services

import (
	"context"
	"errors"
	"log"
	"slices"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/pokeprice/internal/metrics"
	"github.com/codyseavey/pokeprice/internal/models"
)

const (
	defaultBatchSize      = 20
	defaultUpdateInterval = time.Hour
)

// UnmatchedProduct is a product PokemonPriceTracker has no record of
type UnmatchedProduct struct {
	ProductID int    `json:"product_id"`
	Name      string `json:"name"`
	Number    string `json:"number"`
	SetName   string `json:"set_name"`
	Reason    string `json:"reason"`
}

// PriceWorker collects condition and PSA graded prices in the background,
// spending the PokemonPriceTracker quota on the products that need it most
type PriceWorker struct {
	db             *gorm.DB
	priceService   *PriceService
	tracker        *PokemonPriceTrackerService
	updateInterval time.Duration
	batchSize      int
	now            func() time.Time
	mu             sync.RWMutex

	// Priority queue for user-requested refreshes
	urgentQueue []int
	urgentMu    sync.Mutex

	// Stats (reset at midnight)
	productsUpdatedToday int
	lastUpdateTime       time.Time
	lastStatsDay         time.Time

	unmatched []UnmatchedProduct
}

type PriceStatus struct {
	Running              bool      `json:"running"`
	LastUpdateTime       time.Time `json:"last_update_time"`
	NextUpdateTime       time.Time `json:"next_update_time"`
	ProductsUpdatedToday int       `json:"products_updated_today"`
	BatchSize            int       `json:"batch_size"`
	QueueSize            int       `json:"queue_size"`

	// PokemonPriceTracker quota
	DailyLimit int       `json:"daily_limit"`
	Remaining  int       `json:"remaining"`
	ResetsAt   time.Time `json:"resets_at,omitempty"`

	UnmatchedProducts []UnmatchedProduct `json:"unmatched_products,omitempty"`
}

func NewPriceWorker(db *gorm.DB, priceService *PriceService, tracker *PokemonPriceTrackerService, interval time.Duration, batchSize int) *PriceWorker {
	if interval <= 0 {
		interval = defaultUpdateInterval
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &PriceWorker{
		db:             db,
		priceService:   priceService,
		tracker:        tracker,
		batchSize:      batchSize,
		updateInterval: interval,
		now:            time.Now,
	}
}

// QueueRefresh adds a product to the high-priority refresh queue and returns
// its 1-indexed position
func (w *PriceWorker) QueueRefresh(productID int) int {
	w.urgentMu.Lock()
	defer w.urgentMu.Unlock()

	if i := slices.Index(w.urgentQueue, productID); i >= 0 {
		return i + 1
	}
	w.urgentQueue = append(w.urgentQueue, productID)
	metrics.PriceQueueSize.Set(float64(len(w.urgentQueue)))
	log.Printf("Price worker: queued refresh for product %d (queue size: %d)", productID, len(w.urgentQueue))
	return len(w.urgentQueue)
}

// GetQueueSize returns current urgent queue size
func (w *PriceWorker) GetQueueSize() int {
	w.urgentMu.Lock()
	defer w.urgentMu.Unlock()
	return len(w.urgentQueue)
}

func (w *PriceWorker) resetDailyStatsIfNeeded() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if w.lastStatsDay.Before(today) {
		if !w.lastStatsDay.IsZero() {
			log.Printf("Price worker: daily stats reset (previous day: %d products updated)", w.productsUpdatedToday)
		}
		w.productsUpdatedToday = 0
		w.lastStatsDay = today
		metrics.PriceUpdatesToday.Set(0)
	}
}

func (w *PriceWorker) configured() bool {
	return w.tracker != nil && w.tracker.IsConfigured()
}

// Start runs batches until ctx is cancelled
func (w *PriceWorker) Start(ctx context.Context) {
	if !w.configured() {
		log.Println("Price worker: PokemonPriceTracker API key not set, worker idle")
		<-ctx.Done()
		return
	}
	log.Printf("Price worker started: will price up to %d products every %v", w.batchSize, w.updateInterval)

	if updated, err := w.UpdateBatch(ctx); err != nil {
		log.Printf("Price worker: initial batch update failed: %v", err)
	} else {
		log.Printf("Price worker: initial batch updated %d products", updated)
	}

	ticker := time.NewTicker(w.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Price worker stopping...")
			return
		case <-ticker.C:
			if updated, err := w.UpdateBatch(ctx); err != nil {
				log.Printf("Price worker: batch update failed: %v", err)
			} else if updated > 0 {
				log.Printf("Price worker: batch updated %d products", updated)
			}
		}
	}
}

// UpdateBatch prices a batch of products with priority ordering:
// 1. User-requested refreshes
// 2. Cards with no condition prices yet, most valuable first
// 3. Cards whose condition prices are oldest
func (w *PriceWorker) UpdateBatch(ctx context.Context) (int, error) {
	w.resetDailyStatsIfNeeded()

	if !w.configured() {
		return 0, nil
	}
	remaining := w.tracker.GetRequestsRemaining()
	if remaining <= 0 {
		log.Printf("Price worker: quota exhausted, skipping until %s", w.priceService.GetTrackerResetTime().Format("15:04"))
		return 0, nil
	}

	products, err := w.selectBatch(min(w.batchSize, remaining))
	if err != nil {
		return 0, err
	}
	if len(products) == 0 {
		log.Println("Price worker: no products to update")
		return 0, nil
	}

	log.Printf("Price worker: updating prices for %d products", len(products))

	updated := 0
	_, err = trackRun(w.db, JobGradedPricing, func(run *models.CollectionRun) error {
		var runErr error
		updated, runErr = w.collect(ctx, products, run)
		return runErr
	})
	return updated, err
}

// selectBatch picks up to limit products in priority order
func (w *PriceWorker) selectBatch(limit int) ([]models.Product, error) {
	var picked []models.Product
	exclude := w.unmatchedIDs()

	w.urgentMu.Lock()
	urgentIDs := w.urgentQueue
	if len(urgentIDs) > limit {
		urgentIDs = urgentIDs[:limit]
		w.urgentQueue = slices.Clone(w.urgentQueue[limit:])
	} else {
		w.urgentQueue = nil
	}
	metrics.PriceQueueSize.Set(float64(len(w.urgentQueue)))
	w.urgentMu.Unlock()

	if len(urgentIDs) > 0 {
		var urgent []models.Product
		if err := w.db.Preload("Group").Where("product_id IN ?", urgentIDs).Find(&urgent).Error; err != nil {
			return nil, err
		}
		// Keep queue order
		slices.SortStableFunc(urgent, func(a, b models.Product) int {
			return slices.Index(urgentIDs, a.ProductID) - slices.Index(urgentIDs, b.ProductID)
		})
		picked = append(picked, urgent...)
		log.Printf("Price worker: processing %d urgent refresh requests", len(urgent))
	}
	for _, p := range picked {
		exclude = append(exclude, p.ProductID)
	}

	if n := limit - len(picked); n > 0 {
		var unpriced []models.Product
		q := w.db.Preload("Group").
			Where("is_sealed = ? AND language = ?", false, models.LanguageEnglish).
			Where("NOT EXISTS (SELECT 1 FROM price_history ph WHERE ph.product_id = products.product_id AND ph.source LIKE ?)", models.SourcePokemonPriceTracker+"%")
		if len(exclude) > 0 {
			q = q.Where("product_id NOT IN ?", exclude)
		}
		if err := q.Order("market_price DESC, product_id ASC").Limit(n).Find(&unpriced).Error; err != nil {
			return nil, err
		}
		picked = append(picked, unpriced...)
		for _, p := range unpriced {
			exclude = append(exclude, p.ProductID)
		}
	}

	if n := limit - len(picked); n > 0 {
		staleBefore := w.now().Add(-PriceStalenessThreshold)
		var ids []int
		q := w.db.Table("price_history").
			Select("product_id").
			Where("source LIKE ?", models.SourcePokemonPriceTracker+"%").
			Group("product_id").
			Having("MAX(updated_at) < ?", staleBefore).
			Order("MAX(updated_at) ASC").
			Limit(n)
		if len(exclude) > 0 {
			q = q.Where("product_id NOT IN ?", exclude)
		}
		if err := q.Pluck("product_id", &ids).Error; err != nil {
			return nil, err
		}
		if len(ids) > 0 {
			var oldest []models.Product
			if err := w.db.Preload("Group").Where("product_id IN ?", ids).Find(&oldest).Error; err != nil {
				return nil, err
			}
			slices.SortStableFunc(oldest, func(a, b models.Product) int {
				return slices.Index(ids, a.ProductID) - slices.Index(ids, b.ProductID)
			})
			picked = append(picked, oldest...)
		}
	}

	return picked, nil
}

func (w *PriceWorker) collect(ctx context.Context, products []models.Product, run *models.CollectionRun) (int, error) {
	start := time.Now()
	date := models.PriceDate(w.now())
	updated := 0

	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return updated, err
		}
		run.Processed++

		card, err := w.tracker.GetCardPricing(ctx, p.ProductID)
		if errors.Is(err, ErrQuotaExceeded) {
			log.Printf("Price worker: quota exhausted after %d products", updated)
			break
		}
		if err != nil {
			log.Printf("Price worker: failed to price %s (%d): %v", p.Name, p.ProductID, err)
			run.Errors++
			continue
		}
		if card == nil {
			w.markUnmatched(p, "not found in PokemonPriceTracker")
			run.Skipped++
			continue
		}

		rows := card.PriceRows(p.ProductID, date)
		if len(rows) == 0 {
			w.markUnmatched(p, "no prices in PokemonPriceTracker")
			run.Skipped++
			continue
		}
		if _, err := w.priceService.RecordPrices(rows); err != nil {
			log.Printf("Price worker: %v", err)
			run.Errors++
			continue
		}
		if err := w.priceService.RefreshCurrentPrice(p.ProductID); err != nil {
			log.Printf("Price worker: %v", err)
		}
		w.ClearUnmatchedProduct(p.ProductID)
		updated++
	}
	run.Updated = updated

	w.mu.Lock()
	w.productsUpdatedToday += updated
	w.lastUpdateTime = w.now()
	today := w.productsUpdatedToday
	w.mu.Unlock()

	metrics.PriceUpdatesToday.Set(float64(today))
	metrics.PriceBatchDuration.Observe(time.Since(start).Seconds())
	log.Printf("Price worker: batch updated %d of %d products", updated, len(products))
	return updated, nil
}

func (w *PriceWorker) markUnmatched(p models.Product, reason string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, u := range w.unmatched {
		if u.ProductID == p.ProductID {
			return
		}
	}
	log.Printf("Price worker: UNMATCHED %s (#%s, set: %s) - %s", p.Name, p.Number, p.SetName(), reason)
	w.unmatched = append(w.unmatched, UnmatchedProduct{
		ProductID: p.ProductID,
		Name:      p.Name,
		Number:    p.Number,
		SetName:   p.SetName(),
		Reason:    reason,
	})
}

func (w *PriceWorker) unmatchedIDs() []int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := make([]int, len(w.unmatched))
	for i, u := range w.unmatched {
		ids[i] = u.ProductID
	}
	return ids
}

// GetStatus returns the current status
func (w *PriceWorker) GetStatus() PriceStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return PriceStatus{
		Running:              w.configured(),
		LastUpdateTime:       w.lastUpdateTime,
		NextUpdateTime:       w.lastUpdateTime.Add(w.updateInterval),
		ProductsUpdatedToday: w.productsUpdatedToday,
		BatchSize:            w.batchSize,
		QueueSize:            w.GetQueueSize(),
		DailyLimit:           w.priceService.GetTrackerDailyLimit(),
		Remaining:            w.priceService.GetTrackerRequestsRemaining(),
		ResetsAt:             w.priceService.GetTrackerResetTime(),
		UnmatchedProducts:    slices.Clone(w.unmatched),
	}
}

// ClearUnmatchedProduct removes a product from the unmatched list (e.g., after manual fix)
func (w *PriceWorker) ClearUnmatchedProduct(productID int) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.unmatched = slices.DeleteFunc(w.unmatched, func(u UnmatchedProduct) bool {
		return u.ProductID == productID
	})
}
