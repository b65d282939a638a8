package database

import (
	"fmt"
	"log"
	"strings"

	"github.com/codyseavey/pokeprice/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Initialize opens the application database and stores it in DB
func Initialize(dbPath string) error {
	db, err := Open(dbPath, logger.Warn)
	if err != nil {
		return err
	}
	DB = db
	return nil
}

// Open connects to a SQLite file, cleans up legacy rows and migrates the schema
func Open(dbPath string, level logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn(dbPath)), &gorm.Config{
		Logger:                                   logger.Default.LogMode(level),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	log.Println("Database connected successfully")

	// Must run before AutoMigrate adds the natural key index
	if err := cleanupDuplicatePriceHistory(db); err != nil {
		return nil, fmt.Errorf("failed to clean up price history: %w", err)
	}

	err = db.AutoMigrate(
		&models.Group{},
		&models.Product{},
		&models.PriceHistory{},
		&models.CollectionRun{},
		&models.PriceCollectionStats{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	log.Println("Database migration completed")
	return db, nil
}

// dsn adds a busy timeout and WAL mode so concurrent sync workers wait on
// each other instead of failing with "database is locked"
func dsn(path string) string {
	if strings.Contains(path, "?") || path == ":memory:" {
		return path
	}
	return path + "?_busy_timeout=5000&_journal_mode=WAL"
}

func GetDB() *gorm.DB {
	return DB
}
