package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/codyseavey/pokeprice/internal/api/handlers"
	"github.com/codyseavey/pokeprice/internal/config"
	"github.com/codyseavey/pokeprice/internal/services"
)

// Services are the dependencies the HTTP handlers call into
type Services struct {
	DB          *gorm.DB
	Catalog     *services.CatalogService
	Prices      *services.PriceService
	PriceWorker *services.PriceWorker
	TCGCSVSync  *services.TCGCSVSyncService
}

func SetupRouter(cfg *config.Config, svc Services) *gin.Engine {
	router := gin.Default()
	router.Use(requestMetrics())

	frontendPath := cfg.FrontendDistPath
	serveFrontend := frontendPath != "" && dirExists(frontendPath)

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowCredentials = false // Explicitly set
	router.Use(cors.New(corsConfig))

	// Initialize handlers
	setHandler := handlers.NewSetHandler(svc.Catalog)
	cardHandler := handlers.NewCardHandler(svc.Catalog)
	priceHandler := handlers.NewPriceHandler(svc.PriceWorker, svc.Prices, svc.Catalog)
	adminHandler := handlers.NewAdminHandler(svc.DB, svc.Catalog, svc.TCGCSVSync)

	// API routes
	api := router.Group("/api")
	{
		sets := api.Group("/sets")
		{
			sets.GET("", setHandler.ListSets)
			sets.GET("/:id", setHandler.GetSet)
			sets.GET("/:id/cards", setHandler.GetSetCards)
		}

		cards := api.Group("/cards")
		{
			cards.GET("", cardHandler.SearchCards)
			cards.GET("/:id", cardHandler.GetCard)
			cards.GET("/:id/prices", priceHandler.GetCardPrices)
			cards.POST("/:id/refresh-price", priceHandler.RefreshCardPrice)
		}

		prices := api.Group("/prices")
		{
			prices.GET("/status", priceHandler.GetPriceStatus)
		}

		admin := api.Group("/admin", adminAuth(cfg.AdminToken))
		{
			admin.GET("/dashboard/stats", adminHandler.GetDashboardStats)
			admin.GET("/cards/missing/summary", adminHandler.GetMissingSummary)
			admin.PUT("/cards/:id", adminHandler.UpdateCard)
			admin.PUT("/groups/release-date", adminHandler.UpdateReleaseDate)
			admin.POST("/match", adminHandler.MatchRecords)
			admin.POST("/sync/tcgcsv", adminHandler.TriggerTCGCSVSync)
			admin.GET("/runs", adminHandler.ListRuns)
		}
	}

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Serve frontend static files
	if serveFrontend {
		indexPath := filepath.Join(frontendPath, "index.html")

		router.Static("/assets", filepath.Join(frontendPath, "assets"))
		router.StaticFile("/vite.svg", filepath.Join(frontendPath, "vite.svg"))

		router.GET("/", func(c *gin.Context) {
			c.File(indexPath)
		})

		// SPA fallback - serve index.html for all non-API routes
		router.NoRoute(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api") {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.File(indexPath)
		})
	}

	return router
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
