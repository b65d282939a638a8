package database

import (
	"log"

	"gorm.io/gorm"
)

// cleanupDuplicatePriceHistory removes duplicate price_history entries before the unique constraint is added
// This runs BEFORE AutoMigrate to prevent constraint violations
func cleanupDuplicatePriceHistory(db *gorm.DB) error {
	if !db.Migrator().HasTable("price_history") {
		return nil
	}
	if db.Migrator().HasIndex("price_history", "idx_price_natural_key") {
		return nil
	}

	// Older imports left variant, condition and grade empty or NULL for raw prices
	result := db.Exec(`UPDATE price_history SET variant = 'Normal' WHERE variant IS NULL OR variant = ''`)
	if result.Error != nil {
		log.Printf("Warning: failed to normalize variant values: %v", result.Error)
	}
	if db.Migrator().HasColumn("price_history", "condition") {
		result = db.Exec(`UPDATE price_history SET condition = 'NM' WHERE condition IS NULL OR condition = '' OR condition = 'Near Mint'`)
		if result.Error != nil {
			log.Printf("Warning: failed to normalize condition values: %v", result.Error)
		}
	}
	if db.Migrator().HasColumn("price_history", "grade") {
		result = db.Exec(`UPDATE price_history SET grade = '' WHERE grade IS NULL`)
		if result.Error != nil {
			log.Printf("Warning: failed to normalize grade values: %v", result.Error)
		}
	}

	groupBy := "product_id, date, variant, source"
	if db.Migrator().HasColumn("price_history", "condition") {
		groupBy += ", condition"
	}
	if db.Migrator().HasColumn("price_history", "grade") {
		groupBy += ", grade"
	}

	// Keep the newest row per natural key, matching INSERT OR REPLACE semantics
	result = db.Exec(`
		DELETE FROM price_history
		WHERE id NOT IN (
			SELECT MAX(id)
			FROM price_history
			GROUP BY ` + groupBy + `
		)
	`)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d duplicate price_history entries", result.RowsAffected)
	}

	return nil
}

// RunMigrations runs any custom data migrations after schema changes
func RunMigrations(db *gorm.DB) error {
	if err := migrateLanguageField(db); err != nil {
		return err
	}
	return nil
}

// migrateLanguageField rewrites legacy language names to ISO codes and backfills
// Japanese catalog rows from their TCGCSV category
func migrateLanguageField(db *gorm.DB) error {
	for _, table := range []string{"groups", "products"} {
		if !db.Migrator().HasColumn(table, "language") {
			continue
		}
		quoted := `"` + table + `"`
		updates := []string{
			`UPDATE ` + quoted + ` SET language = 'en' WHERE language IS NULL OR language = '' OR language = 'English'`,
			`UPDATE ` + quoted + ` SET language = 'ja' WHERE language IN ('Japanese', 'JP', 'jp') OR category_id = 85`,
		}
		for _, stmt := range updates {
			if err := db.Exec(stmt).Error; err != nil {
				log.Printf("Warning: failed to migrate %s language values: %v", table, err)
			}
		}
	}
	return nil
}
