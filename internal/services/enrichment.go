package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/pokeprice/internal/matching"
	"github.com/codyseavey/pokeprice/internal/metrics"
	"github.com/codyseavey/pokeprice/internal/models"
)

// maxUnmatchedLogged caps how many unmatched cards a job logs by name
const maxUnmatchedLogged = 25

// catalogIndex is the product catalog keyed for record linkage
type catalogIndex struct {
	products []models.Product
	index    *matching.Index[int]
}

// loadCatalogIndex indexes single cards (no sealed products) of one language
func loadCatalogIndex(db *gorm.DB, language models.CardLanguage, opts ...matching.Option) (*catalogIndex, error) {
	var products []models.Product
	err := db.Preload("Group").
		Where("language = ? AND is_sealed = ?", language, false).
		Order("product_id ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	ix := matching.NewIndex[int](opts...)
	for i, p := range products {
		ix.Add(productRecord(p), i)
	}
	return &catalogIndex{products: products, index: ix}, nil
}

func productRecord(p models.Product) matching.Record {
	return matching.Record{Name: p.Name, Set: p.SetName(), Number: p.Number}
}

// match looks up rec and counts the outcome under job
func (c *catalogIndex) match(job string, rec matching.Record) (*models.Product, bool) {
	i, strategy, ok := c.index.Match(rec)
	c.countOutcome(job, strategy, ok)
	if !ok {
		return nil, false
	}
	return &c.products[i], true
}

func (c *catalogIndex) countOutcome(job string, strategy matching.Strategy, ok bool) {
	if !ok {
		metrics.MatchOutcomesTotal.WithLabelValues(job, "unmatched").Inc()
		return
	}
	metrics.MatchOutcomesTotal.WithLabelValues(job, string(strategy)).Inc()
}

// EnrichResult counts what an enrichment job linked
type EnrichResult struct {
	RunID          string        `json:"run_id"`
	SetsProcessed  int           `json:"sets_processed"`
	CardsSeen      int           `json:"cards_seen"`
	Matched        int           `json:"matched"`
	Unmatched      int           `json:"unmatched"`
	PricesRecorded int           `json:"prices_recorded"`
	Errors         int           `json:"errors"`
	Duration       time.Duration `json:"duration"`
}

func (r *EnrichResult) countMatch(ok bool, rec matching.Record, job string) {
	r.CardsSeen++
	if ok {
		r.Matched++
		return
	}
	r.Unmatched++
	if r.Unmatched <= maxUnmatchedLogged {
		log.Printf("Enrichment: %s no match for %q #%s in %q", job, rec.Name, rec.Number, rec.Set)
	}
}

func (r *EnrichResult) fill(run *models.CollectionRun) {
	run.Processed = r.CardsSeen
	run.Updated = r.Matched
	run.Skipped = r.Unmatched
	run.Errors = r.Errors
}

// EnrichmentService links PokemonTCG.io and TCGdex cards to catalog products
type EnrichmentService struct {
	db         *gorm.DB
	pokemonTCG *PokemonTCGService
	tcgdex     *TCGdexService
	prices     *PriceService
	now        func() time.Time
}

func NewEnrichmentService(db *gorm.DB, pokemonTCG *PokemonTCGService, tcgdex *TCGdexService, prices *PriceService) *EnrichmentService {
	return &EnrichmentService{
		db:         db,
		pokemonTCG: pokemonTCG,
		tcgdex:     tcgdex,
		prices:     prices,
		now:        time.Now,
	}
}

// Product columns PokemonTCG.io enrichment writes
var enrichColumns = []string{
	"pokemon_tcg_id", "artist", "rarity", "number", "supertype", "subtypes", "types", "hp",
	"attacks", "abilities", "weakness", "resistance", "retreat_cost", "image_url",
}

// EnrichMetadata walks every PokemonTCG.io set, links its cards to English
// catalog products and fills their metadata and PokemonTCG.io prices.
// setIDs limits the run to those sets when non-empty.
func (s *EnrichmentService) EnrichMetadata(ctx context.Context, setIDs ...string) (*EnrichResult, error) {
	start := time.Now()
	result := &EnrichResult{}

	run, err := trackRun(s.db, JobEnrichMetadata, func(run *models.CollectionRun) error {
		defer result.fill(run)

		catalog, err := loadCatalogIndex(s.db, models.LanguageEnglish)
		if err != nil {
			return err
		}
		log.Printf("Enrichment: indexed %d catalog cards", catalog.index.Len())

		sets, err := s.pokemonTCG.GetSets(ctx)
		if err != nil {
			return err
		}
		sets = filterSets(sets, setIDs, func(set PokemonTCGSet) string { return set.ID })

		date := models.PriceDate(s.now())
		for _, set := range sets {
			if err := ctx.Err(); err != nil {
				return err
			}
			cards, err := s.pokemonTCG.GetCardsInSet(ctx, set.ID)
			if err != nil {
				log.Printf("Enrichment: set %s failed: %v", set.ID, err)
				result.Errors++
				continue
			}
			result.SetsProcessed++

			groups := make(map[int]bool)
			for _, card := range cards {
				rec := matching.Record{Name: card.Name, Set: set.Name, Number: card.Number}
				product, ok := catalog.match(JobEnrichMetadata, rec)
				result.countMatch(ok, rec, JobEnrichMetadata)
				if !ok {
					continue
				}

				card.ApplyTo(product)
				if err := s.db.Model(product).Select(enrichColumns).Updates(product).Error; err != nil {
					log.Printf("Enrichment: failed to update product %d: %v", product.ProductID, err)
					result.Errors++
					continue
				}
				groups[product.GroupID] = true

				n, err := s.recordAndReprice(product.ProductID, card.PriceRows(product.ProductID, date))
				if err != nil {
					log.Printf("Enrichment: failed to record prices for product %d: %v", product.ProductID, err)
					result.Errors++
				}
				result.PricesRecorded += n
			}

			for groupID := range groups {
				if err := s.applySetMetadata(groupID, set); err != nil {
					log.Printf("Enrichment: failed to update group %d: %v", groupID, err)
					result.Errors++
				}
			}
		}
		return nil
	})
	result.RunID = run.ID
	result.Duration = time.Since(start)
	return result, err
}

// applySetMetadata fills series, printed total and release date on a group where missing
func (s *EnrichmentService) applySetMetadata(groupID int, set PokemonTCGSet) error {
	updates := map[string]any{}
	if set.Series != "" {
		updates["series"] = gorm.Expr("CASE WHEN series = '' OR series IS NULL THEN ? ELSE series END", set.Series)
	}
	if set.PrintedTotal > 0 {
		updates["printed_total"] = gorm.Expr("CASE WHEN printed_total = 0 OR printed_total IS NULL THEN ? ELSE printed_total END", set.PrintedTotal)
	}
	if rd := set.ReleaseTime(); rd != nil {
		updates["release_date"] = gorm.Expr("COALESCE(release_date, ?)", *rd)
	}
	if len(updates) == 0 {
		return nil
	}
	return s.db.Model(&models.Group{}).Where("group_id = ?", groupID).Updates(updates).Error
}

func (s *EnrichmentService) recordAndReprice(productID int, rows []models.PriceHistory) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := s.prices.RecordPrices(rows)
	if err != nil {
		return 0, err
	}
	return n, s.prices.RefreshCurrentPrice(productID)
}

// CollectTCGdexPrices links TCGdex cards to catalog products and records
// their TCGplayer prices. setIDs limits the run to those sets when non-empty.
func (s *EnrichmentService) CollectTCGdexPrices(ctx context.Context, setIDs ...string) (*EnrichResult, error) {
	start := time.Now()
	result := &EnrichResult{}

	run, err := trackRun(s.db, JobTCGdexPricing, func(run *models.CollectionRun) error {
		defer result.fill(run)

		catalog, err := loadCatalogIndex(s.db, models.NormalizeLanguage(s.tcgdex.lang))
		if err != nil {
			return err
		}

		sets, err := s.tcgdex.GetSets(ctx)
		if err != nil {
			return err
		}
		sets = filterSets(sets, setIDs, func(set TCGdexSetBrief) string { return set.ID })

		date := models.PriceDate(s.now())
		for _, brief := range sets {
			if err := ctx.Err(); err != nil {
				return err
			}
			set, err := s.tcgdex.GetSet(ctx, brief.ID)
			if err != nil || set == nil {
				if err != nil {
					log.Printf("TCGdex: set %s failed: %v", brief.ID, err)
					result.Errors++
				}
				continue
			}
			result.SetsProcessed++

			for _, c := range set.Cards {
				rec := matching.Record{Name: c.Name, Set: set.Name, Number: c.LocalID}
				product, ok := catalog.match(JobTCGdexPricing, rec)
				result.countMatch(ok, rec, JobTCGdexPricing)
				if !ok {
					continue
				}

				card, err := s.tcgdex.GetCard(ctx, c.ID)
				if err != nil {
					log.Printf("TCGdex: card %s failed: %v", c.ID, err)
					result.Errors++
					continue
				}
				if card == nil {
					continue
				}

				updates := map[string]any{"tcgdex_id": card.ID}
				if product.Artist == "" && card.Illustrator != "" {
					updates["artist"] = card.Illustrator
				}
				if err := s.db.Model(&models.Product{}).Where("product_id = ?", product.ProductID).Updates(updates).Error; err != nil {
					result.Errors++
					continue
				}

				row, ok := card.PriceRow(product.ProductID, date)
				if !ok {
					continue
				}
				n, err := s.recordAndReprice(product.ProductID, []models.PriceHistory{row})
				if err != nil {
					log.Printf("TCGdex: failed to record price for product %d: %v", product.ProductID, err)
					result.Errors++
				}
				result.PricesRecorded += n
			}
		}
		return nil
	})
	result.RunID = run.ID
	result.Duration = time.Since(start)
	return result, err
}

func filterSets[T any](sets []T, ids []string, id func(T) string) []T {
	if len(ids) == 0 {
		return sets
	}
	want := make(map[string]bool, len(ids))
	for _, v := range ids {
		want[v] = true
	}
	var out []T
	for _, set := range sets {
		if want[id(set)] {
			out = append(out, set)
		}
	}
	return out
}
