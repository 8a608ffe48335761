package reconciler

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang-transfer-reconciler/internal/models"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// DataPreprocessor cleans the normalized pool before matching
type DataPreprocessor struct {
	config *PreprocessingConfig
}

// PreprocessingConfig contains configuration for data preprocessing
type PreprocessingConfig struct {
	// Date normalization options. Calendar-day comparisons use the
	// location of each date, so mixed offsets are moved into one zone.
	NormalizeTimezone bool
	DefaultTimezone   *time.Location

	// String normalization options
	CollapseWhitespace bool

	// Date range filtering. Undated transactions are kept.
	StartDate *time.Time
	EndDate   *time.Time
}

// DefaultPreprocessingConfig returns a default preprocessing configuration
func DefaultPreprocessingConfig() *PreprocessingConfig {
	return &PreprocessingConfig{
		NormalizeTimezone:  true,
		DefaultTimezone:    time.UTC,
		CollapseWhitespace: true,
	}
}

// Validate validates the configuration
func (c *PreprocessingConfig) Validate() error {
	if c.NormalizeTimezone && c.DefaultTimezone == nil {
		return fmt.Errorf("default timezone is required when timezone normalization is enabled")
	}
	if c.StartDate != nil && c.EndDate != nil && c.StartDate.After(*c.EndDate) {
		return fmt.Errorf("start date must be before end date")
	}
	return nil
}

// NewDataPreprocessor creates a new data preprocessor
func NewDataPreprocessor(config *PreprocessingConfig) *DataPreprocessor {
	if config == nil {
		config = DefaultPreprocessingConfig()
	}
	return &DataPreprocessor{config: config}
}

// PreprocessingStats contains statistics about preprocessing operations
type PreprocessingStats struct {
	TotalRecordsProcessed int `json:"total_records_processed"`
	RecordsNormalized     int `json:"records_normalized"`
	RecordsExcluded       int `json:"records_excluded"`
}

// Preprocess normalizes descriptions and dates in place and drops dated
// transactions outside the configured range. Ingestion order is preserved.
func (dp *DataPreprocessor) Preprocess(transactions []*models.Transaction) ([]*models.Transaction, PreprocessingStats) {
	stats := PreprocessingStats{TotalRecordsProcessed: len(transactions)}
	kept := make([]*models.Transaction, 0, len(transactions))

	for _, tx := range transactions {
		if !dp.inRange(tx) {
			stats.RecordsExcluded++
			continue
		}
		if dp.normalize(tx) {
			stats.RecordsNormalized++
		}
		kept = append(kept, tx)
	}

	return kept, stats
}

func (dp *DataPreprocessor) normalize(tx *models.Transaction) bool {
	changed := false

	if dp.config.CollapseWhitespace {
		description := strings.TrimSpace(whitespaceRun.ReplaceAllString(tx.Description, " "))
		if description != tx.Description {
			tx.Description = description
			changed = true
		}
	}

	if dp.config.NormalizeTimezone && tx.HasDate() && tx.Date.Location() != dp.config.DefaultTimezone {
		tx.Date = tx.Date.In(dp.config.DefaultTimezone)
		changed = true
	}

	return changed
}

func (dp *DataPreprocessor) inRange(tx *models.Transaction) bool {
	if !tx.HasDate() {
		return true
	}
	if dp.config.StartDate != nil && tx.Date.Before(*dp.config.StartDate) {
		return false
	}
	if dp.config.EndDate != nil && tx.Date.After(*dp.config.EndDate) {
		return false
	}
	return true
}
