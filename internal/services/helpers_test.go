package services

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codyseavey/pokeprice/internal/database"
	"github.com/codyseavey/pokeprice/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"), logger.Silent)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func seedGroup(t *testing.T, db *gorm.DB, g models.Group) {
	t.Helper()
	if g.Language == "" {
		g.Language = models.LanguageEnglish
	}
	if err := db.Create(&g).Error; err != nil {
		t.Fatalf("failed to seed group %d: %v", g.GroupID, err)
	}
}

func seedProduct(t *testing.T, db *gorm.DB, p models.Product) {
	t.Helper()
	if p.Language == "" {
		p.Language = models.LanguageEnglish
	}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("failed to seed product %d: %v", p.ProductID, err)
	}
}
