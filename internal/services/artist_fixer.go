package services

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/codyseavey/pokeprice/internal/matching"
	"github.com/codyseavey/pokeprice/internal/models"
)

// IllustratorRow is one line of the illustrator master list
type IllustratorRow struct {
	CardName    string `json:"card_name"`
	Set         string `json:"set"`
	Series      string `json:"series"`
	Artist      string `json:"artist"`
	ReleaseDate string `json:"release_date"`
	SetNum      string `json:"set_num"`
	ID          string `json:"id"`
}

var illustratorColumns = []string{"card_name", "set", "series", "artist", "release_date", "set_num", "id"}

// ReadIllustratorCSV parses the illustrator list. Columns are found by header
// name; card_name, set and artist are required.
func ReadIllustratorCSV(r io.Reader) ([]IllustratorRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read illustrator header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{"card_name", "set", "artist"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("illustrator csv is missing column %q", required)
		}
	}

	var rows []IllustratorRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read illustrator csv: %w", err)
		}

		field := func(name string) string {
			i, ok := cols[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		values := make(map[string]string, len(illustratorColumns))
		for _, c := range illustratorColumns {
			values[c] = field(c)
		}
		if values["card_name"] == "" || values["artist"] == "" {
			continue
		}
		rows = append(rows, IllustratorRow{
			CardName:    values["card_name"],
			Set:         values["set"],
			Series:      values["series"],
			Artist:      values["artist"],
			ReleaseDate: values["release_date"],
			SetNum:      values["set_num"],
			ID:          values["id"],
		})
	}
	return rows, nil
}

// LoadIllustratorCSV reads the illustrator list from a file
func LoadIllustratorCSV(path string) ([]IllustratorRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open illustrator csv: %w", err)
	}
	defer f.Close()
	return ReadIllustratorCSV(f)
}

// ArtistCorrection is a proposed artist change for one product
type ArtistCorrection struct {
	ProductID      int               `json:"product_id"`
	Name           string            `json:"name"`
	Set            string            `json:"set"`
	Number         string            `json:"number"`
	CurrentArtist  string            `json:"current_artist"`
	ProposedArtist string            `json:"proposed_artist"`
	Strategy       matching.Strategy `json:"strategy"`
}

// ArtistFixResult reports an artist fix run
type ArtistFixResult struct {
	RunID       string             `json:"run_id"`
	Checked     int                `json:"checked"`
	Matched     int                `json:"matched"`
	Corrections []ArtistCorrection `json:"corrections"`
	Applied     int                `json:"applied"`
	Duration    time.Duration      `json:"duration"`
}

// ArtistFixer compares catalog artists against the illustrator list
type ArtistFixer struct {
	db *gorm.DB
}

func NewArtistFixer(db *gorm.DB) *ArtistFixer {
	return &ArtistFixer{db: db}
}

// Run proposes a correction for every English card whose artist differs from
// its illustrator list entry. Corrections are written only when apply is set.
func (f *ArtistFixer) Run(ctx context.Context, rows []IllustratorRow, apply bool) (*ArtistFixResult, error) {
	start := time.Now()
	result := &ArtistFixResult{}

	run, err := trackRun(f.db, JobArtistFix, func(run *models.CollectionRun) error {
		defer func() {
			run.Processed = result.Checked
			run.Updated = result.Applied
			run.Skipped = result.Checked - result.Matched
		}()

		ix := matching.NewIndex[int]()
		for i, row := range rows {
			ix.Add(matching.Record{Name: row.CardName, Set: row.Set, Number: row.SetNum}, i)
		}
		log.Printf("Artist fix: indexed %d illustrator rows", len(rows))

		var products []models.Product
		err := f.db.Preload("Group").
			Where("language = ? AND is_sealed = ?", models.LanguageEnglish, false).
			Order("product_id ASC").
			Find(&products).Error
		if err != nil {
			return fmt.Errorf("failed to load products: %w", err)
		}

		for _, p := range products {
			if err := ctx.Err(); err != nil {
				return err
			}
			result.Checked++

			i, strategy, ok := ix.Match(productRecord(p))
			if !ok {
				continue
			}
			result.Matched++

			proposed := rows[i].Artist
			if matching.ArtistsMatch(p.Artist, proposed) {
				continue
			}
			result.Corrections = append(result.Corrections, ArtistCorrection{
				ProductID:      p.ProductID,
				Name:           p.Name,
				Set:            p.SetName(),
				Number:         p.Number,
				CurrentArtist:  p.Artist,
				ProposedArtist: proposed,
				Strategy:       strategy,
			})
		}

		if !apply {
			return nil
		}
		applied := 0
		err = f.db.Transaction(func(tx *gorm.DB) error {
			for _, c := range result.Corrections {
				if err := tx.Model(&models.Product{}).Where("product_id = ?", c.ProductID).Update("artist", c.ProposedArtist).Error; err != nil {
					return fmt.Errorf("failed to update artist for product %d: %w", c.ProductID, err)
				}
				applied++
			}
			return nil
		})
		if err != nil {
			return err
		}
		// Only a committed transaction counts
		result.Applied = applied
		return nil
	})
	result.RunID = run.ID
	result.Duration = time.Since(start)

	log.Printf("Artist fix: checked %d, matched %d, %d corrections, %d applied",
		result.Checked, result.Matched, len(result.Corrections), result.Applied)
	return result, err
}
