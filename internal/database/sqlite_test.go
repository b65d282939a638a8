package database

import (
	"path/filepath"
	"testing"

	"github.com/codyseavey/pokeprice/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestOpenMigratesSchema(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), logger.Silent)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	for _, table := range []string{"groups", "products", "price_history", "collection_runs", "price_collection_stats"} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("table %s was not created", table)
		}
	}
	if !db.Migrator().HasIndex(&models.PriceHistory{}, "idx_price_natural_key") {
		t.Error("price_history natural key index was not created")
	}
}

func TestOpenCleansDuplicatePriceHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	// Legacy schema without the natural key index
	legacy, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open legacy db: %v", err)
	}
	stmts := []string{
		`CREATE TABLE price_history (id INTEGER PRIMARY KEY AUTOINCREMENT, product_id INTEGER, date TEXT, variant TEXT, condition TEXT, grade TEXT, source TEXT, price REAL)`,
		`INSERT INTO price_history (product_id, date, variant, condition, grade, source, price) VALUES (1, '2025-01-01', NULL, 'Near Mint', NULL, 'TCGCSV', 1.00)`,
		`INSERT INTO price_history (product_id, date, variant, condition, grade, source, price) VALUES (1, '2025-01-01', 'Normal', 'NM', '', 'TCGCSV', 2.00)`,
		`INSERT INTO price_history (product_id, date, variant, condition, grade, source, price) VALUES (1, '2025-01-02', 'Normal', 'NM', '', 'TCGCSV', 3.00)`,
	}
	for _, stmt := range stmts {
		if err := legacy.Exec(stmt).Error; err != nil {
			t.Fatalf("legacy setup %q: %v", stmt, err)
		}
	}
	sqlDB, _ := legacy.DB()
	sqlDB.Close()

	db, err := Open(path, logger.Silent)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	var prices []float64
	if err := db.Model(&models.PriceHistory{}).Order("date").Pluck("price", &prices).Error; err != nil {
		t.Fatalf("failed to read prices: %v", err)
	}
	if len(prices) != 2 || prices[0] != 2.00 || prices[1] != 3.00 {
		t.Errorf("prices after cleanup = %v, want [2 3]", prices)
	}
}

func TestMigrateLanguageField(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"), logger.Silent)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if err := db.Exec(`INSERT INTO "groups" (group_id, name, language, category_id) VALUES (1, 'Base Set', 'English', 3), (2, 'SV1S', 'English', 85)`).Error; err != nil {
		t.Fatalf("insert groups: %v", err)
	}
	if err := RunMigrations(db); err != nil {
		t.Fatalf("RunMigrations() error = %v", err)
	}

	var groups []models.Group
	if err := db.Order("group_id").Find(&groups).Error; err != nil {
		t.Fatalf("failed to load groups: %v", err)
	}
	if groups[0].Language != models.LanguageEnglish || groups[1].Language != models.LanguageJapanese {
		t.Errorf("languages = %q, %q; want en, ja", groups[0].Language, groups[1].Language)
	}
}
