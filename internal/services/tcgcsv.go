package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/codyseavey/pokeprice/internal/models"
)

const tcgcsvBaseURL = "https://tcgcsv.com/tcgplayer"

// TCGCSVService reads the daily TCGplayer catalog dumps published by tcgcsv.com
type TCGCSVService struct {
	http    *providerClient
	baseURL string
}

func NewTCGCSVService(rps float64) *TCGCSVService {
	return &TCGCSVService{
		http:    newProviderClient("tcgcsv", rps),
		baseURL: tcgcsvBaseURL,
	}
}

type tcgcsvResponse[T any] struct {
	Success bool     `json:"success"`
	Errors  []string `json:"errors"`
	Results []T      `json:"results"`
}

type TCGCSVGroup struct {
	GroupID        int    `json:"groupId"`
	Name           string `json:"name"`
	Abbreviation   string `json:"abbreviation"`
	IsSupplemental bool   `json:"isSupplemental"`
	PublishedOn    string `json:"publishedOn"`
	ModifiedOn     string `json:"modifiedOn"`
	CategoryID     int    `json:"categoryId"`
}

type TCGCSVProduct struct {
	ProductID    int                  `json:"productId"`
	Name         string               `json:"name"`
	CleanName    string               `json:"cleanName"`
	ImageURL     string               `json:"imageUrl"`
	CategoryID   int                  `json:"categoryId"`
	GroupID      int                  `json:"groupId"`
	URL          string               `json:"url"`
	ModifiedOn   string               `json:"modifiedOn"`
	ImageCount   int                  `json:"imageCount"`
	ExtendedData []TCGCSVExtendedData `json:"extendedData"`
}

type TCGCSVExtendedData struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Value       string `json:"value"`
}

type TCGCSVPrice struct {
	ProductID      int      `json:"productId"`
	LowPrice       *float64 `json:"lowPrice"`
	MidPrice       *float64 `json:"midPrice"`
	HighPrice      *float64 `json:"highPrice"`
	MarketPrice    *float64 `json:"marketPrice"`
	DirectLowPrice *float64 `json:"directLowPrice"`
	SubTypeName    string   `json:"subTypeName"`
}

func (s *TCGCSVService) fetch(ctx context.Context, path string, out any) error {
	found, err := s.http.getJSON(ctx, s.baseURL+path, out)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("tcgcsv has no data at %s", path)
	}
	return nil
}

// GetGroups lists every set in a TCGCSV category
func (s *TCGCSVService) GetGroups(ctx context.Context, categoryID int) ([]TCGCSVGroup, error) {
	var resp tcgcsvResponse[TCGCSVGroup]
	if err := s.fetch(ctx, fmt.Sprintf("/%d/groups", categoryID), &resp); err != nil {
		return nil, fmt.Errorf("failed to get groups for category %d: %w", categoryID, err)
	}
	if !resp.Success && len(resp.Errors) > 0 {
		return nil, fmt.Errorf("tcgcsv groups error: %s", strings.Join(resp.Errors, "; "))
	}
	return resp.Results, nil
}

// GetProducts lists the products of one group
func (s *TCGCSVService) GetProducts(ctx context.Context, categoryID, groupID int) ([]TCGCSVProduct, error) {
	var resp tcgcsvResponse[TCGCSVProduct]
	if err := s.fetch(ctx, fmt.Sprintf("/%d/%d/products", categoryID, groupID), &resp); err != nil {
		return nil, fmt.Errorf("failed to get products for group %d: %w", groupID, err)
	}
	if !resp.Success && len(resp.Errors) > 0 {
		return nil, fmt.Errorf("tcgcsv products error: %s", strings.Join(resp.Errors, "; "))
	}
	return resp.Results, nil
}

// GetPrices lists today's prices for one group, one row per product and sub type
func (s *TCGCSVService) GetPrices(ctx context.Context, categoryID, groupID int) ([]TCGCSVPrice, error) {
	var resp tcgcsvResponse[TCGCSVPrice]
	if err := s.fetch(ctx, fmt.Sprintf("/%d/%d/prices", categoryID, groupID), &resp); err != nil {
		return nil, fmt.Errorf("failed to get prices for group %d: %w", groupID, err)
	}
	if !resp.Success && len(resp.Errors) > 0 {
		return nil, fmt.Errorf("tcgcsv prices error: %s", strings.Join(resp.Errors, "; "))
	}
	return resp.Results, nil
}

// parseTCGCSVTime parses the timestamps TCGCSV emits, which usually lack a zone
func parseTCGCSVTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// ToGroup converts a TCGCSV group to the catalog model
func (g TCGCSVGroup) ToGroup(categoryID int) models.Group {
	if g.CategoryID == 0 {
		g.CategoryID = categoryID
	}
	return models.Group{
		GroupID:        g.GroupID,
		Name:           strings.TrimSpace(g.Name),
		Abbreviation:   g.Abbreviation,
		IsSupplemental: g.IsSupplemental,
		CategoryID:     g.CategoryID,
		Language:       models.LanguageForCategory(g.CategoryID),
		PublishedOn:    parseTCGCSVTime(g.PublishedOn),
		ReleaseDate:    parseTCGCSVTime(g.PublishedOn),
		ModifiedOn:     parseTCGCSVTime(g.ModifiedOn),
	}
}

// ToProduct converts a TCGCSV product, with its extended data, to the catalog model
func (p TCGCSVProduct) ToProduct(categoryID int) models.Product {
	if p.CategoryID == 0 {
		p.CategoryID = categoryID
	}
	product := models.Product{
		ProductID:  p.ProductID,
		Name:       strings.TrimSpace(p.Name),
		CleanName:  p.CleanName,
		GroupID:    p.GroupID,
		CategoryID: p.CategoryID,
		ImageURL:   p.ImageURL,
		URL:        p.URL,
		Language:   models.LanguageForCategory(p.CategoryID),
		ModifiedOn: parseTCGCSVTime(p.ModifiedOn),
	}
	ParseExtendedData(p.ExtendedData).Apply(&product)
	return product
}

// Variant returns the printing a price row applies to
func (p TCGCSVPrice) Variant() models.Variant {
	return models.NormalizeVariant(p.SubTypeName)
}

// BestPrice returns the market price, falling back to mid then low
func (p TCGCSVPrice) BestPrice() float64 {
	for _, v := range []*float64{p.MarketPrice, p.MidPrice, p.LowPrice} {
		if v != nil && *v > 0 {
			return *v
		}
	}
	return 0
}
