package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/pokeprice/internal/matching"
	"github.com/codyseavey/pokeprice/internal/models"
)

// NumberExtractResult reports a number extraction run
type NumberExtractResult struct {
	RunID     string        `json:"run_id"`
	Checked   int           `json:"checked"`
	Extracted int           `json:"extracted"`
	Duration  time.Duration `json:"duration"`
}

// ExtractNumbers fills missing collector numbers from product names, which
// the Japanese catalog often uses in place of a Number field. Only single
// cards are touched: products with a card type or HP. An empty language
// covers the whole catalog.
func ExtractNumbers(ctx context.Context, db *gorm.DB, language string) (*NumberExtractResult, error) {
	start := time.Now()
	result := &NumberExtractResult{}

	run, err := trackRun(db, JobNumberExtraction, func(run *models.CollectionRun) error {
		defer func() {
			run.Processed = result.Checked
			run.Updated = result.Extracted
			run.Skipped = result.Checked - result.Extracted
		}()

		q := db.Model(&models.Product{}).
			Where("(number IS NULL OR number = '')").
			Where("(supertype <> '' OR hp IS NOT NULL)").
			Where("is_sealed = ?", false)
		if language != "" {
			q = q.Where("language = ?", models.NormalizeLanguage(language))
		}

		var products []models.Product
		if err := q.Select("product_id", "name").Find(&products).Error; err != nil {
			return fmt.Errorf("failed to find products without numbers: %w", err)
		}

		for _, p := range products {
			if err := ctx.Err(); err != nil {
				return err
			}
			result.Checked++

			number := matching.NumberFromName(p.Name)
			if number == "" {
				continue
			}
			if err := db.Model(&models.Product{}).Where("product_id = ?", p.ProductID).Update("number", number).Error; err != nil {
				return fmt.Errorf("failed to set number for product %d: %w", p.ProductID, err)
			}
			result.Extracted++
		}
		return nil
	})
	result.RunID = run.ID
	result.Duration = time.Since(start)

	log.Printf("Number extraction: %d of %d products got a number", result.Extracted, result.Checked)
	return result, err
}
