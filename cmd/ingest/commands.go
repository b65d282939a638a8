package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/codyseavey/pokeprice/internal/models"
	"github.com/codyseavey/pokeprice/internal/services"
)

var (
	pricesOnly   bool
	categories   []int
	setIDs       []string
	tcgdexLang   string
	batchSize    int
	csvPath      string
	applyChanges bool
	language     string
)

var syncTCGCSVCmd = &cobra.Command{
	Use:   "sync-tcgcsv",
	Short: "Sync groups, products and prices from TCGCSV",
	Long: `Fetch every TCGCSV group for the Pokémon categories, upsert groups and
products, and record today's TCGCSV prices.

Fields filled by other jobs (artist, attacks, ...) are kept when TCGCSV
leaves them blank.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		prices := services.NewPriceService(db, nil)
		syncService := services.NewTCGCSVSyncService(db, services.NewTCGCSVService(cfg.ProviderRPS), prices, cfg.TCGCSVConcurrency)

		result, err := syncService.Sync(cmd.Context(), services.SyncOptions{Categories: categories, PricesOnly: pricesOnly})
		if result != nil {
			printResult(result)
		}
		return err
	},
}

var enrichMetadataCmd = &cobra.Command{
	Use:   "enrich-metadata",
	Short: "Fill card metadata and prices from PokemonTCG.io",
	RunE: func(cmd *cobra.Command, args []string) error {
		enrichment := newEnrichmentService()
		result, err := enrichment.EnrichMetadata(cmd.Context(), setIDs...)
		if result != nil {
			printResult(result)
		}
		return err
	},
}

var collectTCGdexCmd = &cobra.Command{
	Use:   "collect-tcgdex",
	Short: "Record TCGdex prices for linked cards",
	RunE: func(cmd *cobra.Command, args []string) error {
		enrichment := newEnrichmentService()
		result, err := enrichment.CollectTCGdexPrices(cmd.Context(), setIDs...)
		if result != nil {
			printResult(result)
		}
		return err
	},
}

var collectGradedCmd = &cobra.Command{
	Use:   "collect-graded",
	Short: "Run one PokemonPriceTracker condition and PSA price batch",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.PokemonPriceTrackerAPIKey == "" {
			return fmt.Errorf("POKEMON_PRICE_TRACKER_API_KEY is not set")
		}
		tracker := services.NewPokemonPriceTrackerService(cfg.PokemonPriceTrackerAPIKey, cfg.PriceTrackerDailyLimit, cfg.ProviderRPS)
		prices := services.NewPriceService(db, tracker)
		size := batchSize
		if size <= 0 {
			size = cfg.CollectorBatchSize
		}
		worker := services.NewPriceWorker(db, prices, tracker, cfg.CollectorInterval, size)

		updated, err := worker.UpdateBatch(cmd.Context())
		if err != nil {
			return err
		}
		status := worker.GetStatus()
		log.Printf("Collected prices for %d products (%d requests left today)", updated, status.Remaining)
		printResult(status)
		return nil
	},
}

var fixArtistsCmd = &cobra.Command{
	Use:   "fix-artists",
	Short: "Compare card artists against the illustrator CSV",
	Long: `Match the illustrator CSV (card_name,set,series,artist,release_date,set_num,id)
against English catalog cards and report every artist that differs.

Nothing is written unless --apply is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := csvPath
		if path == "" {
			path = cfg.IllustratorCSV
		}
		rows, err := services.LoadIllustratorCSV(path)
		if err != nil {
			return err
		}

		result, err := services.NewArtistFixer(db).Run(cmd.Context(), rows, applyChanges)
		if result != nil {
			printResult(result)
		}
		return err
	},
}

var extractNumbersCmd = &cobra.Command{
	Use:   "extract-numbers",
	Short: "Parse missing collector numbers out of product names",
	RunE: func(cmd *cobra.Command, args []string) error {
		lang := language
		if lang == "all" {
			lang = ""
		}
		result, err := services.ExtractNumbers(cmd.Context(), db, lang)
		if result != nil {
			printResult(result)
		}
		return err
	},
}

var fixSuspiciousPricesCmd = &cobra.Command{
	Use:   "fix-suspicious-prices",
	Short: "Cap or remove implausible prices and recompute current prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := services.NewPriceService(db, nil).FixSuspiciousPrices()
		if report != nil {
			printResult(report)
		}
		return err
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Run the daily TCGCSV price sync and record collection stats now",
	RunE: func(cmd *cobra.Command, args []string) error {
		prices := services.NewPriceService(db, nil)
		syncService := services.NewTCGCSVSyncService(db, services.NewTCGCSVService(cfg.ProviderRPS), prices, cfg.TCGCSVConcurrency)
		stats, err := services.NewSnapshotService(db, syncService, cfg.DailySyncHour).TakeSnapshot(cmd.Context())
		if stats != nil {
			printResult(stats)
		}
		return err
	},
}

func newEnrichmentService() *services.EnrichmentService {
	prices := services.NewPriceService(db, nil)
	return services.NewEnrichmentService(
		db,
		services.NewPokemonTCGService(cfg.PokemonTCGAPIKey, cfg.ProviderRPS),
		services.NewTCGdexService(tcgdexLang, cfg.ProviderRPS),
		prices,
	)
}

func init() {
	syncTCGCSVCmd.Flags().BoolVar(&pricesOnly, "prices-only", false, "Only record prices for known products")
	syncTCGCSVCmd.Flags().IntSliceVar(&categories, "category", nil, fmt.Sprintf("TCGCSV category id (default: %d and %d)", models.CategoryPokemon, models.CategoryPokemonJapanese))

	for _, cmd := range []*cobra.Command{enrichMetadataCmd, collectTCGdexCmd} {
		cmd.Flags().StringSliceVar(&setIDs, "set", nil, "Only process these provider set ids")
	}
	collectTCGdexCmd.Flags().StringVar(&tcgdexLang, "lang", "en", "TCGdex language")

	collectGradedCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Products to price (default: COLLECTOR_BATCH_SIZE)")

	fixArtistsCmd.Flags().StringVar(&csvPath, "csv", "", "Illustrator CSV path (default: ILLUSTRATOR_CSV)")
	fixArtistsCmd.Flags().BoolVar(&applyChanges, "apply", false, "Write the corrections")

	extractNumbersCmd.Flags().StringVar(&language, "language", string(models.LanguageJapanese), "Catalog language to scan (en, ja or all)")
}
