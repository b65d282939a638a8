package services

import (
	"context"
	"fmt"
	"net/url"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/codyseavey/pokeprice/internal/models"
)

const (
	tcgdexBaseURL    = "https://api.tcgdex.net/v2"
	tcgdexSetCacheSz = 256
)

// TCGdexService reads card lists and TCGplayer pricing from TCGdex.
// Set bodies are large and rarely change, so they are kept in an LRU.
type TCGdexService struct {
	http     *providerClient
	baseURL  string
	lang     string
	setCache *lru.Cache[string, *TCGdexSet]
}

func NewTCGdexService(lang string, rps float64) *TCGdexService {
	if lang == "" {
		lang = string(models.LanguageEnglish)
	}
	cache, _ := lru.New[string, *TCGdexSet](tcgdexSetCacheSz)
	return &TCGdexService{
		http:     newProviderClient("tcgdex", rps),
		baseURL:  tcgdexBaseURL,
		lang:     lang,
		setCache: cache,
	}
}

// TCGdexSetBrief is an entry of the set list
type TCGdexSetBrief struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	CardCount tcgdexCardCount `json:"cardCount"`
}

type tcgdexCardCount struct {
	Total    int `json:"total"`
	Official int `json:"official"`
}

// TCGdexSet is one set with its card list
type TCGdexSet struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	ReleaseDate string            `json:"releaseDate"`
	CardCount   tcgdexCardCount   `json:"cardCount"`
	Serie       tcgdexSerie       `json:"serie"`
	Cards       []TCGdexCardBrief `json:"cards"`
}

type tcgdexSerie struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TCGdexCardBrief struct {
	ID      string `json:"id"`
	LocalID string `json:"localId"`
	Name    string `json:"name"`
	Image   string `json:"image"`
}

// TCGdexCard is a full card record
type TCGdexCard struct {
	ID          string         `json:"id"`
	LocalID     string         `json:"localId"`
	Name        string         `json:"name"`
	Illustrator string         `json:"illustrator"`
	Rarity      string         `json:"rarity"`
	Category    string         `json:"category"`
	Image       string         `json:"image"`
	HP          int            `json:"hp"`
	Set         TCGdexSetBrief `json:"set"`
	Pricing     *tcgdexPricing `json:"pricing"`
}

type tcgdexPricing struct {
	TCGPlayer *tcgdexTCGPlayer `json:"tcgplayer"`
}

type tcgdexTCGPlayer struct {
	Updated  string              `json:"updated"`
	Unit     string              `json:"unit"`
	Normal   *tcgdexPriceVariant `json:"normal"`
	Holofoil *tcgdexPriceVariant `json:"holofoil"`
	Reverse  *tcgdexPriceVariant `json:"reverse-holofoil"`
}

type tcgdexPriceVariant struct {
	LowPrice       float64 `json:"lowPrice"`
	MidPrice       float64 `json:"midPrice"`
	HighPrice      float64 `json:"highPrice"`
	MarketPrice    float64 `json:"marketPrice"`
	DirectLowPrice float64 `json:"directLowPrice"`
}

func (s *TCGdexService) url(path string) string {
	return fmt.Sprintf("%s/%s%s", s.baseURL, s.lang, path)
}

// GetSets lists every set in the service's language
func (s *TCGdexService) GetSets(ctx context.Context) ([]TCGdexSetBrief, error) {
	var sets []TCGdexSetBrief
	if _, err := s.http.getJSON(ctx, s.url("/sets"), &sets); err != nil {
		return nil, fmt.Errorf("failed to list tcgdex sets: %w", err)
	}
	return sets, nil
}

// GetSet returns a set with its card list, or nil if TCGdex does not know it
func (s *TCGdexService) GetSet(ctx context.Context, id string) (*TCGdexSet, error) {
	if set, ok := s.setCache.Get(id); ok {
		return set, nil
	}

	var set TCGdexSet
	found, err := s.http.getJSON(ctx, s.url("/sets/"+url.PathEscape(id)), &set)
	if err != nil {
		return nil, fmt.Errorf("failed to get tcgdex set %s: %w", id, err)
	}
	if !found {
		return nil, nil
	}
	s.setCache.Add(id, &set)
	return &set, nil
}

// GetCard fetches a single card with pricing data
func (s *TCGdexService) GetCard(ctx context.Context, id string) (*TCGdexCard, error) {
	var card TCGdexCard
	found, err := s.http.getJSON(ctx, s.url("/cards/"+url.PathEscape(id)), &card)
	if err != nil {
		return nil, fmt.Errorf("failed to get card from tcgdex: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &card, nil
}

// PriceRow picks the card's TCGplayer price. Holofoil is preferred over
// normal, then reverse holo. Returns false if there is no usable price.
func (c TCGdexCard) PriceRow(productID int, date string) (models.PriceHistory, bool) {
	if c.Pricing == nil || c.Pricing.TCGPlayer == nil {
		return models.PriceHistory{}, false
	}
	tp := c.Pricing.TCGPlayer

	candidates := []struct {
		variant models.Variant
		prices  *tcgdexPriceVariant
	}{
		{models.VariantHolofoil, tp.Holofoil},
		{models.VariantNormal, tp.Normal},
		{models.VariantReverseHolo, tp.Reverse},
	}
	for _, cand := range candidates {
		if cand.prices == nil {
			continue
		}
		price := validatedMarketPrice(*cand.prices)
		if price <= 0 {
			continue
		}
		return models.PriceHistory{
			ProductID:      productID,
			Date:           date,
			Variant:        cand.variant,
			Condition:      models.PriceConditionNM,
			Source:         models.SourceTCGdex,
			Price:          price,
			LowPrice:       cand.prices.LowPrice,
			MidPrice:       cand.prices.MidPrice,
			HighPrice:      cand.prices.HighPrice,
			MarketPrice:    cand.prices.MarketPrice,
			DirectLowPrice: cand.prices.DirectLowPrice,
		}, true
	}
	return models.PriceHistory{}, false
}

// validatedMarketPrice returns the market price unless it is under half the
// low price, which TCGdex reports for stale listings. Then mid is used, or
// the low/high midpoint when mid is missing.
func validatedMarketPrice(p tcgdexPriceVariant) float64 {
	market := p.MarketPrice
	if market > 0 && (p.LowPrice <= 0 || market >= p.LowPrice*0.5) {
		return market
	}
	if p.MidPrice > 0 {
		return p.MidPrice
	}
	if p.LowPrice > 0 && p.HighPrice > 0 {
		return (p.LowPrice + p.HighPrice) / 2
	}
	if market > 0 {
		return market
	}
	return p.LowPrice
}
