package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codyseavey/pokeprice/internal/api"
	"github.com/codyseavey/pokeprice/internal/config"
	"github.com/codyseavey/pokeprice/internal/database"
	"github.com/codyseavey/pokeprice/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	if err := database.Initialize(cfg.DBPath); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	db := database.GetDB()

	// Initialize services
	tracker := services.NewPokemonPriceTrackerService(cfg.PokemonPriceTrackerAPIKey, cfg.PriceTrackerDailyLimit, cfg.ProviderRPS)
	priceService := services.NewPriceService(db, tracker)
	catalogService := services.NewCatalogService(db)
	tcgcsvSync := services.NewTCGCSVSyncService(db, services.NewTCGCSVService(cfg.ProviderRPS), priceService, cfg.TCGCSVConcurrency)

	// Graded and condition prices from PokemonPriceTracker
	priceWorker := services.NewPriceWorker(db, priceService, tracker, cfg.CollectorInterval, cfg.CollectorBatchSize)

	// Daily TCGCSV price sync and collection stats
	snapshotService := services.NewSnapshotService(db, tcgcsvSync, cfg.DailySyncHour)

	// Create a cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start price worker in background with panic recovery
	go func() {
		for {
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Printf("PANIC in price worker: %v - restarting in 30 seconds", r)
					}
				}()
				priceWorker.Start(ctx)
			}()

			select {
			case <-ctx.Done():
				return // Graceful shutdown
			case <-time.After(30 * time.Second):
				log.Println("Price worker restarting after panic recovery...")
			}
		}
	}()

	// Start snapshot service in background
	go snapshotService.Start(ctx)

	router := api.SetupRouter(cfg, api.Services{
		DB:          db,
		Catalog:     catalogService,
		Prices:      priceService,
		PriceWorker: priceWorker,
		TCGCSVSync:  tcgcsvSync,
	})

	// Create HTTP server for graceful shutdown
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Cancel the context to stop the background workers
	cancel()

	// Give outstanding requests a deadline to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
