package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codyseavey/pokeprice/internal/models"
)

const (
	pokemonTCGBaseURL  = "https://api.pokemontcg.io/v2"
	pokemonTCGPageSize = 250
)

type PokemonTCGService struct {
	http    *providerClient
	baseURL string
}

func NewPokemonTCGService(apiKey string, rps float64) *PokemonTCGService {
	client := newProviderClient("pokemontcg", rps)
	if apiKey != "" {
		client.authorize = func(req *http.Request) {
			req.Header.Set("X-Api-Key", apiKey)
		}
	}
	return &PokemonTCGService{
		http:    client,
		baseURL: pokemonTCGBaseURL,
	}
}

type pokemonListResponse[T any] struct {
	Data       []T `json:"data"`
	TotalCount int `json:"totalCount"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Count      int `json:"count"`
}

// PokemonTCGSet is a set as PokemonTCG.io reports it
type PokemonTCGSet struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Series       string `json:"series"`
	PrintedTotal int    `json:"printedTotal"`
	Total        int    `json:"total"`
	PtcgoCode    string `json:"ptcgoCode"`
	ReleaseDate  string `json:"releaseDate"` // 2006/01/02
}

// PokemonTCGCard is a card with the fields enrichment uses
type PokemonTCGCard struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Supertype   string              `json:"supertype"`
	Subtypes    []string            `json:"subtypes"`
	Types       []string            `json:"types"`
	HP          string              `json:"hp"`
	Number      string              `json:"number"`
	Artist      string              `json:"artist"`
	Rarity      string              `json:"rarity"`
	Attacks     []pokemonTCGAttack  `json:"attacks"`
	Abilities   []models.Ability    `json:"abilities"`
	Weaknesses  []pokemonTCGTypeMod `json:"weaknesses"`
	Resistances []pokemonTCGTypeMod `json:"resistances"`
	RetreatCost []string            `json:"retreatCost"`
	Set         PokemonTCGSet       `json:"set"`
	Images      pokemonTCGImages    `json:"images"`
	TCGPlayer   *pokemonTCGPlayer   `json:"tcgplayer"`
}

type pokemonTCGAttack struct {
	Name   string   `json:"name"`
	Cost   []string `json:"cost"`
	Damage string   `json:"damage"`
	Text   string   `json:"text"`
}

type pokemonTCGTypeMod struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type pokemonTCGImages struct {
	Small string `json:"small"`
	Large string `json:"large"`
}

type pokemonTCGPlayer struct {
	URL       string                     `json:"url"`
	UpdatedAt string                     `json:"updatedAt"`
	Prices    map[string]pokemonPriceSet `json:"prices"`
}

type pokemonPriceSet struct {
	Low       float64 `json:"low"`
	Mid       float64 `json:"mid"`
	High      float64 `json:"high"`
	Market    float64 `json:"market"`
	DirectLow float64 `json:"directLow"`
}

// GetSets lists every set, oldest first
func (s *PokemonTCGService) GetSets(ctx context.Context) ([]PokemonTCGSet, error) {
	var sets []PokemonTCGSet
	for page := 1; ; page++ {
		var resp pokemonListResponse[PokemonTCGSet]
		reqURL := fmt.Sprintf("%s/sets?orderBy=releaseDate&page=%d&pageSize=%d", s.baseURL, page, pokemonTCGPageSize)
		if _, err := s.http.getJSON(ctx, reqURL, &resp); err != nil {
			return nil, fmt.Errorf("failed to list pokemon tcg sets: %w", err)
		}
		sets = append(sets, resp.Data...)
		if len(resp.Data) < pokemonTCGPageSize || len(sets) >= resp.TotalCount {
			return sets, nil
		}
	}
}

// GetCardsInSet returns all cards of one set, following pagination
func (s *PokemonTCGService) GetCardsInSet(ctx context.Context, setID string) ([]PokemonTCGCard, error) {
	query := url.QueryEscape("set.id:" + setID)
	var cards []PokemonTCGCard
	for page := 1; ; page++ {
		var resp pokemonListResponse[PokemonTCGCard]
		reqURL := fmt.Sprintf("%s/cards?q=%s&page=%d&pageSize=%d", s.baseURL, query, page, pokemonTCGPageSize)
		found, err := s.http.getJSON(ctx, reqURL, &resp)
		if err != nil {
			return nil, fmt.Errorf("failed to get cards for set %s: %w", setID, err)
		}
		if !found {
			return cards, nil
		}
		cards = append(cards, resp.Data...)
		if len(resp.Data) < pokemonTCGPageSize || len(cards) >= resp.TotalCount {
			return cards, nil
		}
	}
}

// GetCard returns nil when PokemonTCG.io does not know the id
func (s *PokemonTCGService) GetCard(ctx context.Context, id string) (*PokemonTCGCard, error) {
	var resp struct {
		Data PokemonTCGCard `json:"data"`
	}
	found, err := s.http.getJSON(ctx, fmt.Sprintf("%s/cards/%s", s.baseURL, url.PathEscape(id)), &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to get card from pokemon tcg: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &resp.Data, nil
}

// ReleaseTime parses the set's release date, which uses slashes
func (s PokemonTCGSet) ReleaseTime() *time.Time {
	if s.ReleaseDate == "" {
		return nil
	}
	t, err := time.Parse("2006/01/02", s.ReleaseDate)
	if err != nil {
		return nil
	}
	return &t
}

// ApplyTo fills a catalog product's metadata from the card. Values already on
// the product win for artist and rarity since TCGCSV is closer to the print.
func (c PokemonTCGCard) ApplyTo(p *models.Product) {
	p.PokemonTCGID = c.ID
	if p.Artist == "" {
		p.Artist = c.Artist
	}
	if p.Rarity == "" {
		p.Rarity = c.Rarity
	}
	if p.Number == "" {
		p.Number = c.Number
	}
	if c.Supertype != "" {
		p.Supertype = c.Supertype
	}
	if len(c.Subtypes) > 0 {
		p.Subtypes = models.EncodeJSONList(c.Subtypes)
	}
	if len(c.Types) > 0 {
		p.Types = models.EncodeJSONList(c.Types)
	}
	if hp := parseFirstInt(c.HP); hp != nil {
		p.HP = hp
	}
	if len(c.Attacks) > 0 {
		attacks := make([]models.Attack, len(c.Attacks))
		for i, a := range c.Attacks {
			attacks[i] = models.Attack{Name: a.Name, Cost: a.Cost, Damage: a.Damage, Text: a.Text}
		}
		p.Attacks = models.EncodeJSONList(attacks)
	}
	if len(c.Abilities) > 0 {
		p.Abilities = models.EncodeJSONList(c.Abilities)
	}
	if len(c.Weaknesses) > 0 {
		p.Weakness = formatTypeMods(c.Weaknesses)
	}
	if len(c.Resistances) > 0 {
		p.Resistance = formatTypeMods(c.Resistances)
	}
	if len(c.RetreatCost) > 0 {
		n := len(c.RetreatCost)
		p.RetreatCost = &n
	}
	if p.ImageURL == "" {
		p.ImageURL = c.Images.Large
	}
}

func formatTypeMods(mods []pokemonTCGTypeMod) string {
	parts := make([]string, len(mods))
	for i, m := range mods {
		parts[i] = strings.TrimSpace(m.Type + " " + m.Value)
	}
	return strings.Join(parts, ", ")
}

// PriceRows converts the card's TCGplayer prices to price history rows, one per variant
func (c PokemonTCGCard) PriceRows(productID int, date string) []models.PriceHistory {
	if c.TCGPlayer == nil {
		return nil
	}
	var rows []models.PriceHistory
	for key, p := range c.TCGPlayer.Prices {
		price := p.Market
		if price <= 0 {
			price = p.Mid
		}
		if price <= 0 {
			continue
		}
		rows = append(rows, models.PriceHistory{
			ProductID:      productID,
			Date:           date,
			Variant:        models.NormalizeVariant(key),
			Condition:      models.PriceConditionNM,
			Source:         models.SourcePokemonTCG,
			Price:          price,
			LowPrice:       p.Low,
			MidPrice:       p.Mid,
			HighPrice:      p.High,
			MarketPrice:    p.Market,
			DirectLowPrice: p.DirectLow,
		})
	}
	return rows
}
