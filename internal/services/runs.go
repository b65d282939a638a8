package services

import (
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codyseavey/pokeprice/internal/metrics"
	"github.com/codyseavey/pokeprice/internal/models"
)

// Job names as stored in collection_runs.job
const (
	JobTCGCSVSync       = "tcgcsv-sync"
	JobEnrichMetadata   = "enrich-metadata"
	JobTCGdexPricing    = "tcgdex-pricing"
	JobGradedPricing    = "graded-pricing"
	JobArtistFix        = "artist-fix"
	JobNumberExtraction = "number-extraction"
	JobSuspiciousPrices = "suspicious-prices"
	JobDailySnapshot    = "daily-snapshot"
)

// trackRun records a job execution in collection_runs and the job metrics.
// fn fills in the counters on the run it is given.
func trackRun(db *gorm.DB, job string, fn func(run *models.CollectionRun) error) (*models.CollectionRun, error) {
	run := &models.CollectionRun{
		ID:        uuid.NewString(),
		Job:       job,
		StartedAt: time.Now(),
	}
	if err := db.Create(run).Error; err != nil {
		log.Printf("Runs: failed to record start of %s: %v", job, err)
	}

	err := fn(run)

	finished := time.Now()
	run.FinishedAt = &finished
	result := "success"
	if err != nil {
		result = "failed"
		run.ErrorText = err.Error()
	}
	if saveErr := db.Save(run).Error; saveErr != nil {
		log.Printf("Runs: failed to record end of %s: %v", job, saveErr)
	}

	metrics.JobRunsTotal.WithLabelValues(job, result).Inc()
	metrics.JobDuration.WithLabelValues(job).Observe(finished.Sub(run.StartedAt).Seconds())
	log.Printf("Runs: %s %s in %v (processed=%d updated=%d skipped=%d errors=%d)",
		job, result, finished.Sub(run.StartedAt).Round(time.Millisecond), run.Processed, run.Updated, run.Skipped, run.Errors)
	return run, err
}
