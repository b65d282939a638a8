package models

import (
	"encoding/json"
	"time"
)

// Product is a sellable card printing (or sealed item) keyed by its TCGplayer product ID
type Product struct {
	ProductID   int          `json:"product_id" gorm:"primaryKey;autoIncrement:false"`
	Name        string       `json:"name" gorm:"not null;index"`
	CleanName   string       `json:"clean_name"`
	GroupID     int          `json:"group_id" gorm:"not null;index"`
	Group       *Group       `json:"group,omitempty" gorm:"foreignKey:GroupID;references:GroupID"`
	CategoryID  int          `json:"category_id"`
	Number      string       `json:"number" gorm:"index"`
	Rarity      string       `json:"rarity"`
	Artist      string       `json:"artist"`
	Supertype   string       `json:"supertype"`
	Subtypes    string       `json:"subtypes"` // JSON array
	Types       string       `json:"types"`    // JSON array
	HP          *int         `json:"hp"`
	Stage       string       `json:"stage"`
	CardText    string       `json:"card_text"`
	Attacks     string       `json:"attacks"`   // JSON array
	Abilities   string       `json:"abilities"` // JSON array
	Weakness    string       `json:"weakness"`
	Resistance  string       `json:"resistance"`
	RetreatCost *int         `json:"retreat_cost"`
	ImageURL    string       `json:"image_url"`
	URL         string       `json:"url"`
	Language    CardLanguage `json:"language" gorm:"not null;default:'en';index"`
	IsSealed    bool         `json:"is_sealed"`

	// Variant flags, set from the sub types a price feed reports
	HasNormal       bool `json:"has_normal"`
	HasHolofoil     bool `json:"has_holofoil"`
	HasReverseHolo  bool `json:"has_reverse_holo"`
	HasFirstEdition bool `json:"has_first_edition"`

	MarketPrice    float64    `json:"market_price" gorm:"index"`
	LowPrice       float64    `json:"low_price"`
	MidPrice       float64    `json:"mid_price"`
	HighPrice      float64    `json:"high_price"`
	PriceSource    string     `json:"price_source"`
	PriceUpdatedAt *time.Time `json:"price_updated_at"`

	PokemonTCGID string `json:"pokemontcg_id" gorm:"column:pokemon_tcg_id;index"`
	TCGdexID     string `json:"tcgdex_id" gorm:"column:tcgdex_id;index"`

	ModifiedOn *time.Time `json:"modified_on"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Attack is one attack line as stored in Product.Attacks
type Attack struct {
	Name   string   `json:"name"`
	Cost   []string `json:"cost,omitempty"`
	Damage string   `json:"damage,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Ability is one ability as stored in Product.Abilities
type Ability struct {
	Name string `json:"name"`
	Text string `json:"text,omitempty"`
	Type string `json:"type,omitempty"`
}

// SetName returns the name of the product's group, if it was loaded
func (p *Product) SetName() string {
	if p.Group == nil {
		return ""
	}
	return p.Group.Name
}

// MarkVariant flips the variant flag for a printing
func (p *Product) MarkVariant(v Variant) {
	switch v {
	case VariantHolofoil:
		p.HasHolofoil = true
	case VariantReverseHolo:
		p.HasReverseHolo = true
	case Variant1stEdition, Variant1stEditionHolo:
		p.HasFirstEdition = true
	default:
		p.HasNormal = true
	}
}

// EncodeJSONList marshals a value for one of the JSON-encoded text columns.
// Empty slices encode to the empty string so missing data stays distinguishable.
func EncodeJSONList[T any](items []T) string {
	if len(items) == 0 {
		return ""
	}
	b, err := json.Marshal(items)
	if err != nil {
		return ""
	}
	return string(b)
}

// DecodeJSONList is the inverse of EncodeJSONList
func DecodeJSONList[T any](raw string) []T {
	if raw == "" {
		return nil
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil
	}
	return items
}

// ProductSearchResult is a page of products
type ProductSearchResult struct {
	Products   []Product `json:"products"`
	TotalCount int64     `json:"total_count"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	HasMore    bool      `json:"has_more"`
}
