package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/pokeprice/internal/metrics"
	"github.com/codyseavey/pokeprice/internal/models"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// ErrInvalidUpdate is returned for admin edits that cannot be applied
var ErrInvalidUpdate = errors.New("invalid update")

// CatalogService answers read queries over sets and cards and applies admin edits
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

// SearchParams filters a card listing. Zero values mean no filter.
type SearchParams struct {
	Query    string
	GroupID  int
	SetName  string
	Language string
	Page     int
	PageSize int
}

func (p *SearchParams) normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
}

// ListSets returns sets with their product counts, newest first
func (s *CatalogService) ListSets(language string) ([]models.GroupSummary, error) {
	q := s.db.Model(&models.Group{}).
		Select(`"groups".*, COUNT(products.product_id) AS product_count`).
		Joins(`LEFT JOIN products ON products.group_id = "groups".group_id`).
		Group(`"groups".group_id`).
		Order(`"groups".release_date DESC, "groups".name ASC`)
	if language != "" {
		q = q.Where(`"groups".language = ?`, models.NormalizeLanguage(language))
	}

	var sets []models.GroupSummary
	if err := q.Scan(&sets).Error; err != nil {
		return nil, fmt.Errorf("failed to list sets: %w", err)
	}
	return sets, nil
}

// GetSet returns nil when the group does not exist
func (s *CatalogService) GetSet(groupID int) (*models.Group, error) {
	var g models.Group
	err := s.db.First(&g, "group_id = ?", groupID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get set %d: %w", groupID, err)
	}
	return &g, nil
}

// GetSetCards returns a set's products in collector number order
func (s *CatalogService) GetSetCards(groupID int) ([]models.Product, error) {
	var products []models.Product
	err := s.db.
		Where("group_id = ?", groupID).
		Order("is_sealed ASC, CAST(number AS INTEGER) ASC, number ASC, name ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get cards for set %d: %w", groupID, err)
	}
	return products, nil
}

// SearchProducts pages through products matching the filters
func (s *CatalogService) SearchProducts(params SearchParams) (*models.ProductSearchResult, error) {
	params.normalize()

	q := s.db.Model(&models.Product{})
	if query := strings.TrimSpace(params.Query); query != "" {
		like := "%" + strings.ToLower(query) + "%"
		q = q.Where("LOWER(products.name) LIKE ? OR LOWER(products.clean_name) LIKE ? OR products.number = ?", like, like, query)
	}
	if params.GroupID > 0 {
		q = q.Where("products.group_id = ?", params.GroupID)
	}
	if params.SetName != "" {
		q = q.Where(`products.group_id IN (SELECT group_id FROM "groups" WHERE LOWER(name) LIKE ?)`, "%"+strings.ToLower(params.SetName)+"%")
	}
	if params.Language != "" {
		q = q.Where("products.language = ?", models.NormalizeLanguage(params.Language))
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	var products []models.Product
	err := q.Preload("Group").
		Order("products.market_price DESC, products.name ASC").
		Offset((params.Page - 1) * params.PageSize).
		Limit(params.PageSize).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	return &models.ProductSearchResult{
		Products:   products,
		TotalCount: total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		HasMore:    int64(params.Page*params.PageSize) < total,
	}, nil
}

// GetProduct returns nil when the product does not exist
func (s *CatalogService) GetProduct(productID int) (*models.Product, error) {
	var p models.Product
	err := s.db.Preload("Group").First(&p, "product_id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", productID, err)
	}
	return &p, nil
}

// ProductUpdate is an admin correction. Nil fields are left alone.
type ProductUpdate struct {
	Name      *string `json:"name"`
	Number    *string `json:"number"`
	Rarity    *string `json:"rarity"`
	Artist    *string `json:"artist"`
	Supertype *string `json:"supertype"`
	ImageURL  *string `json:"image_url"`
	HP        *int    `json:"hp"`
}

func (u ProductUpdate) columns() map[string]any {
	cols := make(map[string]any)
	set := func(name string, v *string) {
		if v != nil {
			cols[name] = strings.TrimSpace(*v)
		}
	}
	set("name", u.Name)
	set("number", u.Number)
	set("rarity", u.Rarity)
	set("artist", u.Artist)
	set("supertype", u.Supertype)
	set("image_url", u.ImageURL)
	if u.HP != nil {
		cols["hp"] = *u.HP
	}
	return cols
}

// UpdateProduct applies an admin edit and returns the updated product, or nil if it does not exist
func (s *CatalogService) UpdateProduct(productID int, update ProductUpdate) (*models.Product, error) {
	cols := update.columns()
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: no fields to update", ErrInvalidUpdate)
	}
	if name, ok := cols["name"].(string); ok && name == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidUpdate)
	}

	result := s.db.Model(&models.Product{}).Where("product_id = ?", productID).Updates(cols)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update product %d: %w", productID, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return s.GetProduct(productID)
}

// UpdateReleaseDate sets a group's release date. Returns false if the group does not exist.
func (s *CatalogService) UpdateReleaseDate(groupID int, date time.Time) (bool, error) {
	result := s.db.Model(&models.Group{}).Where("group_id = ?", groupID).Update("release_date", date)
	if result.Error != nil {
		return false, fmt.Errorf("failed to update release date for group %d: %w", groupID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DashboardStats summarizes the catalog and refreshes the catalog gauges
func (s *CatalogService) DashboardStats() (*models.DashboardStats, error) {
	stats := &models.DashboardStats{ProductsByLanguage: make(map[string]int64)}

	if err := s.db.Model(&models.Group{}).Count(&stats.TotalGroups).Error; err != nil {
		return nil, fmt.Errorf("failed to count groups: %w", err)
	}
	if err := s.db.Model(&models.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	if err := s.db.Model(&models.Product{}).Where("market_price > 0").Count(&stats.PricedProducts).Error; err != nil {
		return nil, fmt.Errorf("failed to count priced products: %w", err)
	}
	if err := s.db.Model(&models.PriceHistory{}).Count(&stats.PriceHistoryRows).Error; err != nil {
		return nil, fmt.Errorf("failed to count price history: %w", err)
	}
	if err := s.db.Model(&models.Product{}).Select("COALESCE(SUM(market_price), 0)").Scan(&stats.TotalMarketValue).Error; err != nil {
		return nil, fmt.Errorf("failed to sum market value: %w", err)
	}

	var byLang []struct {
		Language string
		Count    int64
	}
	if err := s.db.Model(&models.Product{}).Select("language, COUNT(*) AS count").Group("language").Scan(&byLang).Error; err != nil {
		return nil, fmt.Errorf("failed to count products by language: %w", err)
	}
	for _, row := range byLang {
		stats.ProductsByLanguage[row.Language] = row.Count
		metrics.CatalogProductsByLanguage.WithLabelValues(row.Language).Set(float64(row.Count))
	}

	var last models.CollectionRun
	err := s.db.Order("started_at DESC").First(&last).Error
	if err == nil {
		stats.LastRun = &last
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to get last run: %w", err)
	}

	metrics.CatalogGroupsTotal.Set(float64(stats.TotalGroups))
	metrics.CatalogMarketValueUSD.Set(stats.TotalMarketValue)
	return stats, nil
}

// MissingData counts single cards lacking each enrichable field. Sealed
// products are excluded since they have no number, artist or rarity.
func (s *CatalogService) MissingData() (*models.MissingDataSummary, error) {
	summary := &models.MissingDataSummary{}
	cards := func() *gorm.DB {
		return s.db.Model(&models.Product{}).Where("is_sealed = ?", false)
	}

	counts := []struct {
		dst   *int64
		where string
	}{
		{&summary.TotalProducts, ""},
		{&summary.MissingNumber, "number IS NULL OR number = ''"},
		{&summary.MissingArtist, "artist IS NULL OR artist = ''"},
		{&summary.MissingRarity, "rarity IS NULL OR rarity = ''"},
		{&summary.MissingImage, "image_url IS NULL OR image_url = ''"},
		{&summary.MissingPrice, "market_price IS NULL OR market_price = 0"},
		{&summary.MissingTypes, "supertype IS NULL OR supertype = ''"},
	}
	for _, c := range counts {
		q := cards()
		if c.where != "" {
			q = q.Where(c.where)
		}
		if err := q.Count(c.dst).Error; err != nil {
			return nil, fmt.Errorf("failed to count missing data: %w", err)
		}
	}
	return summary, nil
}

// ListRuns returns the most recent ingestion runs, optionally for one job
func (s *CatalogService) ListRuns(job string, limit int) ([]models.CollectionRun, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	q := s.db.Order("started_at DESC").Limit(limit)
	if job != "" {
		q = q.Where("job = ?", job)
	}
	var runs []models.CollectionRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}
