// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath           string
	Port             string
	CORSOrigins      []string
	AdminToken       string
	FrontendDistPath string

	PokemonTCGAPIKey          string
	PokemonPriceTrackerAPIKey string
	PriceTrackerDailyLimit    int
	ProviderRPS               float64

	CollectorInterval  time.Duration
	CollectorBatchSize int
	DailySyncHour      int
	TCGCSVConcurrency  int

	IllustratorCSV string
}

// Load reads the environment, after loading .env if one exists
func Load() (*Config, error) {
	// Load .env file if exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:                    getEnv("DB_PATH", "./pokeprice.db"),
		Port:                      getEnv("PORT", "8080"),
		CORSOrigins:               splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		AdminToken:                getEnv("ADMIN_TOKEN", ""),
		FrontendDistPath:          getEnv("FRONTEND_DIST_PATH", "../frontend/dist"),
		PokemonTCGAPIKey:          getEnv("POKEMONTCG_API_KEY", ""),
		PokemonPriceTrackerAPIKey: getEnv("POKEMON_PRICE_TRACKER_API_KEY", ""),
		IllustratorCSV:            getEnv("ILLUSTRATOR_CSV", "./data/pokemon_illustrators.csv"),
	}

	var err error
	if cfg.PriceTrackerDailyLimit, err = getInt("PPT_DAILY_LIMIT", 100); err != nil {
		return nil, err
	}
	if cfg.CollectorBatchSize, err = getInt("COLLECTOR_BATCH_SIZE", 20); err != nil {
		return nil, err
	}
	if cfg.DailySyncHour, err = getInt("DAILY_SYNC_HOUR", 4); err != nil {
		return nil, err
	}
	if cfg.DailySyncHour < 0 || cfg.DailySyncHour > 23 {
		return nil, fmt.Errorf("invalid DAILY_SYNC_HOUR: %d is not an hour of the day", cfg.DailySyncHour)
	}
	if cfg.TCGCSVConcurrency, err = getInt("TCGCSV_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.TCGCSVConcurrency < 1 {
		return nil, fmt.Errorf("invalid TCGCSV_CONCURRENCY: must be at least 1")
	}

	if rps := getEnv("PROVIDER_RPS", "5"); rps != "" {
		r, err := strconv.ParseFloat(rps, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid PROVIDER_RPS: %w", err)
		}
		cfg.ProviderRPS = r
	}

	if interval := getEnv("COLLECTOR_INTERVAL", "1h"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return nil, fmt.Errorf("invalid COLLECTOR_INTERVAL: %w", err)
		}
		cfg.CollectorInterval = d
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
