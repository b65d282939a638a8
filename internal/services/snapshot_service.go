package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/pokeprice/internal/models"
)

// SnapshotService runs the daily TCGCSV price sync and records the day's
// collection counters
type SnapshotService struct {
	db            *gorm.DB
	sync          *TCGCSVSyncService
	snapshotHour  int // Hour of day to run (0-23)
	checkInterval time.Duration
	now           func() time.Time

	mu           sync.RWMutex
	lastSnapshot time.Time
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(db *gorm.DB, syncService *TCGCSVSyncService, snapshotHour int) *SnapshotService {
	return &SnapshotService{
		db:            db,
		sync:          syncService,
		snapshotHour:  snapshotHour,
		checkInterval: 15 * time.Minute,
		now:           time.Now,
	}
}

// Start begins the background snapshot worker
func (s *SnapshotService) Start(ctx context.Context) {
	log.Printf("Snapshot service started: will sync prices daily after %02d:00", s.snapshotHour)

	// Catch up on startup if today's snapshot is missing
	s.checkAndSnapshot(ctx)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Snapshot service stopping...")
			return
		case <-ticker.C:
			s.checkAndSnapshot(ctx)
		}
	}
}

func (s *SnapshotService) checkAndSnapshot(ctx context.Context) {
	now := s.now()
	if now.Hour() < s.snapshotHour {
		return
	}
	has, err := s.hasSnapshotForDate(models.PriceDate(now))
	if err != nil {
		log.Printf("Snapshot service: %v", err)
		return
	}
	if has {
		return
	}
	if _, err := s.TakeSnapshot(ctx); err != nil {
		log.Printf("Snapshot service: failed to take snapshot: %v", err)
	}
}

func (s *SnapshotService) hasSnapshotForDate(date string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.PriceCollectionStats{}).Where("date = ?", date).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check snapshot for %s: %w", date, err)
	}
	return count > 0, nil
}

// TakeSnapshot runs a prices-only TCGCSV sync and upserts today's PriceCollectionStats
func (s *SnapshotService) TakeSnapshot(ctx context.Context) (*models.PriceCollectionStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats *models.PriceCollectionStats
	_, err := trackRun(s.db, JobDailySnapshot, func(run *models.CollectionRun) error {
		result, err := s.sync.Sync(ctx, SyncOptions{PricesOnly: true})
		if err != nil {
			return fmt.Errorf("failed to sync prices: %w", err)
		}
		if result == nil {
			return fmt.Errorf("failed to sync prices: a TCGCSV sync is already running")
		}

		stats, err = s.calculateStats(models.PriceDate(s.now()))
		if err != nil {
			return err
		}
		stats.Errors = len(result.Errors)

		err = s.db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_cards", "updated", "skipped", "errors", "tcgcsv", "pokemon_tcg_api", "tcgdex_api", "price_tracker", "updated_at"}),
		}).Create(stats).Error
		if err != nil {
			return fmt.Errorf("failed to save collection stats: %w", err)
		}

		run.Processed = stats.TotalCards
		run.Updated = stats.Updated
		run.Skipped = stats.Skipped
		run.Errors = stats.Errors
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.lastSnapshot = s.now()
	log.Printf("Snapshot service: recorded stats for %s (%d of %d cards priced)", stats.Date, stats.Updated, stats.TotalCards)
	return stats, nil
}

// LastSnapshot returns when the last snapshot completed
func (s *SnapshotService) LastSnapshot() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSnapshot
}

// calculateStats counts distinct products priced on date, overall and per provider
func (s *SnapshotService) calculateStats(date string) (*models.PriceCollectionStats, error) {
	stats := &models.PriceCollectionStats{Date: date}

	var total int64
	if err := s.db.Model(&models.Product{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	stats.TotalCards = int(total)

	countPriced := func(sources ...string) (int, error) {
		var n int64
		q := s.db.Model(&models.PriceHistory{}).Where("date = ?", date)
		switch {
		case len(sources) == 1 && sources[0] == models.SourcePokemonPriceTracker:
			q = q.Where("source LIKE ?", models.SourcePokemonPriceTracker+"%")
		case len(sources) > 0:
			q = q.Where("source IN ?", sources)
		}
		if err := q.Distinct("product_id").Count(&n).Error; err != nil {
			return 0, fmt.Errorf("failed to count priced products: %w", err)
		}
		return int(n), nil
	}

	var err error
	if stats.Updated, err = countPriced(); err != nil {
		return nil, err
	}
	if stats.TCGCSV, err = countPriced(models.SourceTCGCSV, models.SourceTCGCSVJapanese); err != nil {
		return nil, err
	}
	if stats.PokemonTCGAPI, err = countPriced(models.SourcePokemonTCG); err != nil {
		return nil, err
	}
	if stats.TCGdexAPI, err = countPriced(models.SourceTCGdex); err != nil {
		return nil, err
	}
	if stats.PriceTracker, err = countPriced(models.SourcePokemonPriceTracker); err != nil {
		return nil, err
	}
	stats.Skipped = max(stats.TotalCards-stats.Updated, 0)
	return stats, nil
}
