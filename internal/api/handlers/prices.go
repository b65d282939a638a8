package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/pokeprice/internal/services"
)

type PriceHandler struct {
	priceWorker  *services.PriceWorker
	priceService *services.PriceService
	catalog      *services.CatalogService
}

func NewPriceHandler(priceWorker *services.PriceWorker, priceService *services.PriceService, catalog *services.CatalogService) *PriceHandler {
	return &PriceHandler{
		priceWorker:  priceWorker,
		priceService: priceService,
		catalog:      catalog,
	}
}

// GetPriceStatus returns the collector status and API quota
func (h *PriceHandler) GetPriceStatus(c *gin.Context) {
	status := h.priceWorker.GetStatus()
	c.JSON(http.StatusOK, status)
}

// GetCardPrices returns a card's price history over the last ?days= days
func (h *PriceHandler) GetCardPrices(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid card id"})
		return
	}
	days, err := intQuery(c, "days", services.DefaultHistoryDays)
	if err != nil || days <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive number"})
		return
	}

	card, err := h.catalog.GetProduct(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if card == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		return
	}

	history, err := h.priceService.GetHistory(id, days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	lastCollected, err := h.priceService.LastCollected(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product_id":     id,
		"days":           days,
		"market_price":   card.MarketPrice,
		"price_source":   card.PriceSource,
		"history":        history,
		"last_collected": lastCollected,
		"needs_refresh":  h.priceService.NeedsRefresh(id),
	})
}

// RefreshCardPrice queues a card for the next collector batch
func (h *PriceHandler) RefreshCardPrice(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid card id"})
		return
	}

	card, err := h.catalog.GetProduct(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if card == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "card not found"})
		return
	}

	position := h.priceWorker.QueueRefresh(id)
	status := h.priceWorker.GetStatus()
	c.JSON(http.StatusAccepted, gin.H{
		"queued":           true,
		"position":         position,
		"next_update_time": status.NextUpdateTime,
		"remaining":        status.Remaining,
	})
}
