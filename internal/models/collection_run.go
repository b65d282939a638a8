package models

import (
	"time"
)

// CollectionRun records one execution of an ingestion job
type CollectionRun struct {
	ID         string     `json:"id" gorm:"primaryKey"`
	Job        string     `json:"job" gorm:"not null;index"`
	StartedAt  time.Time  `json:"started_at" gorm:"index"`
	FinishedAt *time.Time `json:"finished_at"`
	Processed  int        `json:"processed"`
	Updated    int        `json:"updated"`
	Skipped    int        `json:"skipped"`
	Errors     int        `json:"errors"`
	ErrorText  string     `json:"error_text,omitempty"`
}

// PriceCollectionStats aggregates a day's price collection counters
type PriceCollectionStats struct {
	Date          string    `json:"date" gorm:"primaryKey"` // YYYY-MM-DD
	TotalCards    int       `json:"total_cards"`
	Updated       int       `json:"updated"`
	Skipped       int       `json:"skipped"`
	Errors        int       `json:"errors"`
	TCGCSV        int       `json:"tcgcsv"`
	PokemonTCGAPI int       `json:"pokemon_tcg_api"`
	TCGdexAPI     int       `json:"tcgdex_api"`
	PriceTracker  int       `json:"price_tracker"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (PriceCollectionStats) TableName() string {
	return "price_collection_stats"
}

// DashboardStats is the admin overview of the catalog
type DashboardStats struct {
	TotalGroups        int64            `json:"total_groups"`
	TotalProducts      int64            `json:"total_products"`
	PricedProducts     int64            `json:"priced_products"`
	PriceHistoryRows   int64            `json:"price_history_rows"`
	TotalMarketValue   float64          `json:"total_market_value"`
	ProductsByLanguage map[string]int64 `json:"products_by_language"`
	LastRun            *CollectionRun   `json:"last_run,omitempty"`
}

// MissingDataSummary counts products lacking each enrichable field
type MissingDataSummary struct {
	TotalProducts int64 `json:"total_products"`
	MissingNumber int64 `json:"missing_number"`
	MissingArtist int64 `json:"missing_artist"`
	MissingRarity int64 `json:"missing_rarity"`
	MissingImage  int64 `json:"missing_image"`
	MissingPrice  int64 `json:"missing_price"`
	MissingTypes  int64 `json:"missing_types"`
}
