package models

import (
	"time"
)

// TCGCSV category IDs for the two Pokemon catalogs
const (
	CategoryPokemon         = 3
	CategoryPokemonJapanese = 85
)

// Group is a released card set as TCGCSV models it
type Group struct {
	GroupID        int          `json:"group_id" gorm:"primaryKey;autoIncrement:false"`
	Name           string       `json:"name" gorm:"not null;index"`
	Abbreviation   string       `json:"abbreviation"`
	Series         string       `json:"series"`
	PrintedTotal   int          `json:"printed_total"`
	ReleaseDate    *time.Time   `json:"release_date"`
	Language       CardLanguage `json:"language" gorm:"not null;default:'en';index"`
	IsSupplemental bool         `json:"is_supplemental"`
	CategoryID     int          `json:"category_id" gorm:"index"`
	PublishedOn    *time.Time   `json:"published_on"`
	ModifiedOn     *time.Time   `json:"modified_on"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// GroupSummary is a group with its product count, used by set listings
type GroupSummary struct {
	Group
	ProductCount int `json:"product_count"`
}

// LanguageForCategory returns the catalog language of a TCGCSV category
func LanguageForCategory(categoryID int) CardLanguage {
	if categoryID == CategoryPokemonJapanese {
		return LanguageJapanese
	}
	return LanguageEnglish
}
