// ingest runs the catalog and price collection jobs from the command line.
//
// Usage: ingest <command> [flags]
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/codyseavey/pokeprice/internal/config"
	"github.com/codyseavey/pokeprice/internal/database"
)

var (
	dbPath string

	cfg *config.Config
	db  *gorm.DB
)

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Pokémon card catalog and price ingestion jobs",
	Long: `ingest pulls catalog data and prices from TCGCSV, PokemonTCG.io, TCGdex
and PokemonPriceTracker into the price tracker database, and runs the
catalog repair jobs.

Every run is recorded in collection_runs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(); err != nil {
			return err
		}
		if dbPath != "" {
			cfg.DBPath = dbPath
		}
		if err := database.Initialize(cfg.DBPath); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		db = database.GetDB()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db == nil {
			return
		}
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (default: DB_PATH or ./pokeprice.db)")

	rootCmd.AddCommand(syncTCGCSVCmd)
	rootCmd.AddCommand(enrichMetadataCmd)
	rootCmd.AddCommand(collectTCGdexCmd)
	rootCmd.AddCommand(collectGradedCmd)
	rootCmd.AddCommand(fixArtistsCmd)
	rootCmd.AddCommand(extractNumbersCmd)
	rootCmd.AddCommand(fixSuspiciousPricesCmd)
	rootCmd.AddCommand(snapshotCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printResult writes a job result to stdout as indented JSON
func printResult(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("failed to encode result: %v", err)
		return
	}
	fmt.Println(string(out))
}
