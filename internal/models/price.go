package models

import (
	"strings"
	"time"
)

// PriceCondition represents the condition bucket a price applies to
type PriceCondition string

const (
	PriceConditionNM     PriceCondition = "NM"  // Near Mint
	PriceConditionLP     PriceCondition = "LP"  // Lightly Played
	PriceConditionMP     PriceCondition = "MP"  // Moderately Played
	PriceConditionHP     PriceCondition = "HP"  // Heavily Played
	PriceConditionDMG    PriceCondition = "DMG" // Damaged
	PriceConditionGraded PriceCondition = "Graded"
)

// Variant represents a card printing as reported by TCGplayer sub types
type Variant string

const (
	VariantNormal         Variant = "Normal"
	VariantHolofoil       Variant = "Holofoil"
	VariantReverseHolo    Variant = "Reverse Holofoil"
	Variant1stEdition     Variant = "1st Edition"
	Variant1stEditionHolo Variant = "1st Edition Holofoil"
	VariantUnlimited      Variant = "Unlimited"
	VariantUnlimitedHolo  Variant = "Unlimited Holofoil"
)

// CardLanguage is the catalog language of a set or product
type CardLanguage string

const (
	LanguageEnglish  CardLanguage = "en"
	LanguageJapanese CardLanguage = "ja"
)

// Price sources as written to price_history.source
const (
	SourceTCGCSV              = "TCGCSV"
	SourceTCGCSVJapanese      = "TCGCSV-JA"
	SourcePokemonTCG          = "PokemonTCG.io"
	SourceTCGdex              = "TCGdex"
	SourcePokemonPriceTracker = "pokemonpricetracker"
)

// PriceHistory is one observed price. Rows are keyed by
// (product, date, variant, condition, grade, source) and the last write wins.
type PriceHistory struct {
	ID             uint           `json:"id" gorm:"primaryKey"`
	ProductID      int            `json:"product_id" gorm:"not null;uniqueIndex:idx_price_natural_key;index"`
	Date           string         `json:"date" gorm:"not null;uniqueIndex:idx_price_natural_key;index"` // YYYY-MM-DD
	Variant        Variant        `json:"variant" gorm:"not null;default:'';uniqueIndex:idx_price_natural_key"`
	Condition      PriceCondition `json:"condition" gorm:"not null;default:'';uniqueIndex:idx_price_natural_key"`
	Grade          string         `json:"grade" gorm:"not null;default:'';uniqueIndex:idx_price_natural_key"`
	Source         string         `json:"source" gorm:"not null;uniqueIndex:idx_price_natural_key;index"`
	Price          float64        `json:"price"`
	LowPrice       float64        `json:"low_price"`
	MidPrice       float64        `json:"mid_price"`
	HighPrice      float64        `json:"high_price"`
	MarketPrice    float64        `json:"market_price"`
	DirectLowPrice float64        `json:"direct_low_price"`
	Volume         int            `json:"volume"`
	Population     int            `json:"population"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (PriceHistory) TableName() string {
	return "price_history"
}

// PriceDate formats a time as a price_history date key
func PriceDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// AllPriceConditions returns all raw (ungraded) price conditions
func AllPriceConditions() []PriceCondition {
	return []PriceCondition{
		PriceConditionNM,
		PriceConditionLP,
		PriceConditionMP,
		PriceConditionHP,
		PriceConditionDMG,
	}
}

// MapConditionName maps provider condition strings to our PriceCondition type.
// Returns "" for anything unrecognised.
func MapConditionName(condition string) PriceCondition {
	switch strings.ToUpper(strings.TrimSpace(condition)) {
	case "NM", "NEAR MINT", "MINT":
		return PriceConditionNM
	case "LP", "LIGHTLY PLAYED", "EXCELLENT":
		return PriceConditionLP
	case "MP", "MODERATELY PLAYED", "GOOD":
		return PriceConditionMP
	case "HP", "HEAVILY PLAYED", "PLAYED":
		return PriceConditionHP
	case "DMG", "DAMAGED", "POOR":
		return PriceConditionDMG
	case "GRADED":
		return PriceConditionGraded
	default:
		return ""
	}
}

// NormalizeVariant maps TCGCSV sub type names and provider variant keys to a Variant.
// Empty input is treated as Normal.
func NormalizeVariant(name string) Variant {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("-", " ", "_", " ").Replace(key)
	switch key {
	case "", "normal":
		return VariantNormal
	case "holofoil", "holo", "foil", "holo foil":
		return VariantHolofoil
	case "reverse holofoil", "reverseholofoil", "reverse holo", "reverse":
		return VariantReverseHolo
	case "1st edition", "1stedition", "1st edition normal", "first edition":
		return Variant1stEdition
	case "1st edition holofoil", "1steditionholofoil", "1st edition holo":
		return Variant1stEditionHolo
	case "unlimited":
		return VariantUnlimited
	case "unlimited holofoil", "unlimitedholofoil", "unlimited holo":
		return VariantUnlimitedHolo
	default:
		return Variant(strings.TrimSpace(name))
	}
}

// IsFoilVariant returns true if this printing is a foil/holographic variant.
// 1st Edition is NOT a foil variant - it's a different print run of the same card.
func (v Variant) IsFoilVariant() bool {
	return v == VariantHolofoil || v == VariantReverseHolo || v == Variant1stEditionHolo || v == VariantUnlimitedHolo
}

// NormalizeLanguage maps language strings from the providers and ISO codes to CardLanguage.
// Returns LanguageEnglish as default for unknown/empty values.
func NormalizeLanguage(lang string) CardLanguage {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "japanese", "jp", "ja", "jpn":
		return LanguageJapanese
	default:
		return LanguageEnglish
	}
}

// GradedSource returns the price_history source tag for a PSA grade bucket
func GradedSource(grade string) string {
	return SourcePokemonPriceTracker + "-psa-" + grade
}

// ConditionSource returns the price_history source tag for a raw condition price,
// optionally scoped to a variant ("Reverse Holofoil" + "Near Mint" -> pokemonpricetracker-reverse-holofoil-near-mint)
func ConditionSource(variant, condition string) string {
	parts := []string{SourcePokemonPriceTracker}
	if variant != "" {
		parts = append(parts, slugify(variant))
	}
	parts = append(parts, slugify(condition))
	return strings.Join(parts, "-")
}

func slugify(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}
