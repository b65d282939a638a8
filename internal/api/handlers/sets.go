package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/pokeprice/internal/services"
)

type SetHandler struct {
	catalog *services.CatalogService
}

func NewSetHandler(catalog *services.CatalogService) *SetHandler {
	return &SetHandler{catalog: catalog}
}

// ListSets returns every set with its product count, newest first
func (h *SetHandler) ListSets(c *gin.Context) {
	sets, err := h.catalog.ListSets(c.Query("language"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sets": sets, "total_count": len(sets)})
}

func (h *SetHandler) GetSet(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid set id"})
		return
	}

	set, err := h.catalog.GetSet(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if set == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "set not found"})
		return
	}
	c.JSON(http.StatusOK, set)
}

func (h *SetHandler) GetSetCards(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid set id"})
		return
	}

	set, err := h.catalog.GetSet(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if set == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "set not found"})
		return
	}

	cards, err := h.catalog.GetSetCards(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"set": set, "cards": cards, "total_count": len(cards)})
}
