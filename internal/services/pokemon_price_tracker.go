package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/codyseavey/pokeprice/internal/metrics"
	"github.com/codyseavey/pokeprice/internal/models"
)

const pokemonPriceTrackerBaseURL = "https://www.pokemonpricetracker.com/api/v2"

// ErrQuotaExceeded is returned once the day's PokemonPriceTracker requests are spent
var ErrQuotaExceeded = errors.New("pokemon price tracker daily quota exceeded")

// PokemonPriceTrackerService fetches condition and PSA graded prices.
// The API is metered per day, so every request is counted against dailyLimit.
type PokemonPriceTrackerService struct {
	http       *providerClient
	baseURL    string
	apiKey     string
	dailyLimit int
	now        func() time.Time

	mu             sync.Mutex
	requestsToday  int
	lastRequestDay time.Time
}

func NewPokemonPriceTrackerService(apiKey string, dailyLimit int, rps float64) *PokemonPriceTrackerService {
	if dailyLimit <= 0 {
		dailyLimit = 100
	}
	client := newProviderClient("pokemonpricetracker", rps)
	client.authorize = func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	metrics.PriceTrackerQuotaLimit.Set(float64(dailyLimit))
	metrics.PriceTrackerQuotaRemaining.Set(float64(dailyLimit))

	return &PokemonPriceTrackerService{
		http:       client,
		baseURL:    pokemonPriceTrackerBaseURL,
		apiKey:     apiKey,
		dailyLimit: dailyLimit,
		now:        time.Now,
	}
}

// IsConfigured reports whether an API key was provided
func (s *PokemonPriceTrackerService) IsConfigured() bool {
	return s.apiKey != ""
}

type pptCardResponse struct {
	Data json.RawMessage `json:"data"`
}

// PPTCard is a card with its pricing and eBay sales
type PPTCard struct {
	TCGPlayerID string    `json:"tcgPlayerId"`
	Name        string    `json:"name"`
	SetName     string    `json:"setName"`
	CardNumber  string    `json:"cardNumber"`
	Prices      pptPrices `json:"prices"`
	Ebay        *pptEbay  `json:"ebay"`
}

type pptPrices struct {
	Market     float64                                 `json:"market"`
	Listings   int                                     `json:"listings"`
	Conditions map[string]pptConditionPrice            `json:"conditions"`
	Variants   map[string]map[string]pptConditionPrice `json:"variants"`
}

type pptConditionPrice struct {
	Price    float64 `json:"price"`
	Listings int     `json:"listings"`
}

type pptEbay struct {
	SalesByGrade map[string]pptGradeSales `json:"salesByGrade"`
}

type pptGradeSales struct {
	Count           int     `json:"count"`
	AveragePrice    float64 `json:"averagePrice"`
	MedianPrice     float64 `json:"medianPrice"`
	MarketPrice7Day float64 `json:"marketPrice7Day"`
}

// checkRateLimit counts a request against today's quota.
// Returns false if the quota is spent.
func (s *PokemonPriceTrackerService) checkRateLimit() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetIfNewDayLocked()
	if s.requestsToday >= s.dailyLimit {
		return false
	}
	s.requestsToday++
	metrics.PriceTrackerQuotaRemaining.Set(float64(s.dailyLimit - s.requestsToday))
	return true
}

func (s *PokemonPriceTrackerService) resetIfNewDayLocked() {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if s.lastRequestDay.Before(today) {
		s.requestsToday = 0
		s.lastRequestDay = today
	}
}

// GetRequestsRemaining returns the number of requests remaining today
func (s *PokemonPriceTrackerService) GetRequestsRemaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetIfNewDayLocked()
	return max(s.dailyLimit-s.requestsToday, 0)
}

// DailyLimit returns the configured daily quota
func (s *PokemonPriceTrackerService) DailyLimit() int {
	return s.dailyLimit
}

// GetCardPricing fetches pricing for a TCGplayer product id. Returns nil if
// the card is unknown to PokemonPriceTracker.
func (s *PokemonPriceTrackerService) GetCardPricing(ctx context.Context, tcgPlayerID int) (*PPTCard, error) {
	if !s.checkRateLimit() {
		return nil, ErrQuotaExceeded
	}

	params := url.Values{}
	params.Set("tcgPlayerId", fmt.Sprint(tcgPlayerID))
	params.Set("includeEbay", "true")

	var resp pptCardResponse
	found, err := s.http.getJSON(ctx, s.baseURL+"/cards?"+params.Encode(), &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to get pricing for product %d: %w", tcgPlayerID, err)
	}
	if !found {
		return nil, nil
	}
	return decodePPTCard(resp.Data)
}

// decodePPTCard accepts data as either a single card or a list of cards
func decodePPTCard(raw json.RawMessage) (*PPTCard, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var cards []PPTCard
		if err := json.Unmarshal(raw, &cards); err != nil {
			return nil, fmt.Errorf("failed to decode pricing list: %w", err)
		}
		if len(cards) == 0 {
			return nil, nil
		}
		return &cards[0], nil
	}
	var card PPTCard
	if err := json.Unmarshal(raw, &card); err != nil {
		return nil, fmt.Errorf("failed to decode pricing: %w", err)
	}
	return &card, nil
}

// PriceRows flattens the card's pricing into price history rows: raw market,
// per condition, per variant and condition, and PSA grades from eBay sales
func (c PPTCard) PriceRows(productID int, date string) []models.PriceHistory {
	var rows []models.PriceHistory

	if c.Prices.Market > 0 {
		rows = append(rows, models.PriceHistory{
			ProductID:   productID,
			Date:        date,
			Variant:     models.VariantNormal,
			Condition:   models.PriceConditionNM,
			Source:      models.SourcePokemonPriceTracker + "-raw",
			Price:       c.Prices.Market,
			MarketPrice: c.Prices.Market,
			Volume:      c.Prices.Listings,
		})
	}

	for _, cond := range sortedKeys(c.Prices.Conditions) {
		p := c.Prices.Conditions[cond]
		if p.Price <= 0 {
			continue
		}
		rows = append(rows, models.PriceHistory{
			ProductID: productID,
			Date:      date,
			Variant:   models.VariantNormal,
			Condition: conditionOrRaw(cond),
			Source:    models.ConditionSource("", cond),
			Price:     p.Price,
			Volume:    p.Listings,
		})
	}

	for _, variant := range sortedKeys(c.Prices.Variants) {
		conditions := c.Prices.Variants[variant]
		for _, cond := range sortedKeys(conditions) {
			p := conditions[cond]
			if p.Price <= 0 {
				continue
			}
			rows = append(rows, models.PriceHistory{
				ProductID: productID,
				Date:      date,
				Variant:   models.NormalizeVariant(variant),
				Condition: conditionOrRaw(cond),
				Source:    models.ConditionSource(variant, cond),
				Price:     p.Price,
				Volume:    p.Listings,
			})
		}
	}

	if c.Ebay != nil {
		for _, key := range sortedKeys(c.Ebay.SalesByGrade) {
			sales := c.Ebay.SalesByGrade[key]
			grade := strings.TrimPrefix(strings.ToLower(key), "psa")
			price := firstPositive(sales.MarketPrice7Day, sales.AveragePrice, sales.MedianPrice)
			if grade == "" || price <= 0 {
				continue
			}
			rows = append(rows, models.PriceHistory{
				ProductID:  productID,
				Date:       date,
				Variant:    models.VariantNormal,
				Condition:  models.PriceConditionGraded,
				Grade:      grade,
				Source:     models.GradedSource(grade),
				Price:      price,
				Population: sales.Count,
			})
		}
	}

	return rows
}

func conditionOrRaw(cond string) models.PriceCondition {
	if c := models.MapConditionName(cond); c != "" {
		return c
	}
	return models.PriceCondition(cond)
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
