package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/codyseavey/pokeprice/internal/matching"
	"github.com/codyseavey/pokeprice/internal/models"
)

// JobAdminMatch labels match outcomes from the admin match tool
const JobAdminMatch = "admin-match"

// MatchRequest asks which catalog products a batch of external records link to
type MatchRequest struct {
	Language       string            `json:"language"`
	AllowSetNumber bool              `json:"allow_set_number"`
	Records        []matching.Record `json:"records"`
}

// MatchResult is the outcome for one record of a MatchRequest
type MatchResult struct {
	Record   matching.Record   `json:"record"`
	Matched  bool              `json:"matched"`
	Strategy matching.Strategy `json:"strategy,omitempty"`
	Product  *models.Product   `json:"product,omitempty"`
}

// MatchProducts links each record to a catalog product of the requested language
func MatchProducts(db *gorm.DB, req MatchRequest) ([]MatchResult, error) {
	if len(req.Records) == 0 {
		return nil, fmt.Errorf("no records to match")
	}

	var opts []matching.Option
	if req.AllowSetNumber {
		opts = append(opts, matching.AllowSetNumber())
	}
	catalog, err := loadCatalogIndex(db, models.NormalizeLanguage(req.Language), opts...)
	if err != nil {
		return nil, err
	}

	results := make([]MatchResult, len(req.Records))
	for i, rec := range req.Records {
		results[i] = MatchResult{Record: rec}
		idx, strategy, ok := catalog.index.Match(rec)
		catalog.countOutcome(JobAdminMatch, strategy, ok)
		if !ok {
			continue
		}
		results[i].Matched = true
		results[i].Strategy = strategy
		results[i].Product = &catalog.products[idx]
	}
	return results, nil
}
