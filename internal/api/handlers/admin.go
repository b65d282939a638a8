package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/codyseavey/pokeprice/internal/services"
)

type AdminHandler struct {
	db          *gorm.DB
	catalog     *services.CatalogService
	syncService *services.TCGCSVSyncService
}

func NewAdminHandler(db *gorm.DB, catalog *services.CatalogService, syncService *services.TCGCSVSyncService) *AdminHandler {
	return &AdminHandler{
		db:          db,
		catalog:     catalog,
		syncService: syncService,
	}
}

func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.catalog.DashboardStats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *AdminHandler) GetMissingSummary(c *gin.Context) {
	summary, err := h.catalog.MissingData()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}

// UpdateCard applies a manual correction to a card
func (h *AdminHandler) UpdateCard(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid card id"})
		return
	}

	var update services.ProductUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	card, err := h.catalog.UpdateProduct(id, update)
	if errors.Is(err, services.ErrInvalidUpdate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if card == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		return
	}
	c.JSON(http.StatusOK, card)
}

type releaseDateRequest struct {
	GroupID     int    `json:"group_id" binding:"required"`
	ReleaseDate string `json:"release_date" binding:"required"` // YYYY-MM-DD
}

func (h *AdminHandler) UpdateReleaseDate(c *gin.Context) {
	var req releaseDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := time.Parse("2006-01-02", req.ReleaseDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "release_date must be YYYY-MM-DD"})
		return
	}

	found, err := h.catalog.UpdateReleaseDate(req.GroupID, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "set not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"group_id": req.GroupID, "release_date": req.ReleaseDate})
}

// MatchRecords links external card records to catalog products
func (h *AdminHandler) MatchRecords(c *gin.Context) {
	var req services.MatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Records) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "records are required"})
		return
	}

	results, err := services.MatchProducts(h.db, req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	matched := 0
	for _, r := range results {
		if r.Matched {
			matched++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"results":   results,
		"matched":   matched,
		"unmatched": len(results) - matched,
	})
}

// TriggerTCGCSVSync starts a TCGCSV sync in the background
func (h *AdminHandler) TriggerTCGCSVSync(c *gin.Context) {
	var opts services.SyncOptions
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&opts); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if h.syncService.IsRunning() {
		c.JSON(http.StatusConflict, gin.H{"error": "a TCGCSV sync is already running"})
		return
	}

	ctx := context.WithoutCancel(c.Request.Context())
	go func() {
		result, err := h.syncService.Sync(ctx, opts)
		if err != nil {
			log.Printf("Admin: TCGCSV sync failed: %v", err)
			return
		}
		if result == nil {
			log.Println("Admin: TCGCSV sync skipped, another sync is running")
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{"message": "TCGCSV sync started", "prices_only": opts.PricesOnly})
}

func (h *AdminHandler) ListRuns(c *gin.Context) {
	limit, err := intQuery(c, "limit", 50)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
		return
	}
	runs, err := h.catalog.ListRuns(c.Query("job"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}
