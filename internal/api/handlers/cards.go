package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/codyseavey/pokeprice/internal/services"
)

type CardHandler struct {
	catalog *services.CatalogService
}

func NewCardHandler(catalog *services.CatalogService) *CardHandler {
	return &CardHandler{catalog: catalog}
}

// SearchCards lists cards filtered by name/number, set and language.
// set may be a group id or part of a set name.
func (h *CardHandler) SearchCards(c *gin.Context) {
	params := services.SearchParams{
		Query:    c.Query("q"),
		Language: c.Query("language"),
	}
	if set := c.Query("set"); set != "" {
		if id, err := strconv.Atoi(set); err == nil {
			params.GroupID = id
		} else {
			params.SetName = set
		}
	}

	var err error
	if params.Page, err = intQuery(c, "page", 1); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be a number"})
		return
	}
	if params.PageSize, err = intQuery(c, "page_size", services.DefaultPageSize); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page_size must be a number"})
		return
	}

	result, err := h.catalog.SearchProducts(params)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *CardHandler) GetCard(c *gin.Context) {
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
	c.JSON(http.StatusOK, card)
}
