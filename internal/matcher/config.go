// Package matcher provides the transfer matching engine and its configuration.
//
// The engine decides which transactions in a pool of already-normalized
// statement lines are the two ledger sides of one money movement:
//   - currency conversions inside one owner's accounts
//   - cross-bank transfers matched by amount, exchange amount or name phrases
//
// Matching runs in stages over one ordered pool:
//  1. Candidate detection against configurable transfer-intent patterns
//  2. Currency conversion matching (matched transactions leave the pool)
//  3. Cross-bank matching on what remains
//  4. Assignment: highest confidence first, ingestion order on ties, with
//     equally plausible leftovers reported as conflicts
//  5. Flagging of unmatched transactions that still look like transfers
//
// Example usage:
//
//	config := matcher.DefaultMatchingConfig()
//	config.DisplayName = "Ammar Qazi"
//
//	engine, err := matcher.NewEngine(config, log)
//	if err != nil {
//		return err
//	}
//	result, err := engine.Run(ctx, transactions)
package matcher

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"golang-transfer-reconciler/internal/models"
)

// MatchingConfig holds every tunable of the matching engine. The engine never
// reads hidden defaults; everything it uses is in this value.
//
// Use the provided factory functions for common scenarios:
//   - DefaultMatchingConfig(): 72h window, 0.7 acceptance threshold
//   - StrictMatchingConfig(): 24h window, higher threshold, tighter name tolerance
//   - RelaxedMatchingConfig(): 5 day window, lower threshold
type MatchingConfig struct {
	// DisplayName is substituted for {name} in named patterns
	DisplayName string `json:"display_name"`

	// DateToleranceHours is the maximum distance between the two sides of a pair
	DateToleranceHours int `json:"date_tolerance_hours"`

	// AmountEpsilon is the absolute tolerance for amount equality
	AmountEpsilon decimal.Decimal `json:"amount_epsilon"`

	// LargeAmountThreshold flags unmatched transfer-looking transactions above it
	LargeAmountThreshold decimal.Decimal `json:"large_amount_threshold"`

	// MinConfidence is the acceptance threshold for cross-bank pairs
	MinConfidence float64 `json:"min_confidence"`

	// NameAmountTolerance is the maximum relative amount difference for name matches (1.0 = 100%)
	NameAmountTolerance float64 `json:"name_amount_tolerance"`

	Patterns             []TransferPattern `json:"patterns"`
	ConversionExtractors []string          `json:"conversion_extractors"`
	TransferKeywords     []string          `json:"transfer_keywords"`

	Weights ConfidenceWeights `json:"weights"`
}

// ConfidenceWeights is the weight table of the confidence calculator. Bases are
// per strategy; bonuses apply at most once each.
type ConfidenceWeights struct {
	ConversionBase float64 `json:"conversion_base" mapstructure:"conversion_base"`
	ExchangeBase   float64 `json:"exchange_base" mapstructure:"exchange_base"`
	ExactBase      float64 `json:"exact_base" mapstructure:"exact_base"`
	NameBase       float64 `json:"name_base" mapstructure:"name_base"`

	ExactAmountBonus          float64 `json:"exact_amount_bonus" mapstructure:"exact_amount_bonus"`
	SameDayBonus              float64 `json:"same_day_bonus" mapstructure:"same_day_bonus"`
	ExchangeAmountBonus       float64 `json:"exchange_amount_bonus" mapstructure:"exchange_amount_bonus"`
	NamedPatternBonus         float64 `json:"named_pattern_bonus" mapstructure:"named_pattern_bonus"`
	IdenticalDescriptionBonus float64 `json:"identical_description_bonus" mapstructure:"identical_description_bonus"`

	CorrespondenceBonus      float64 `json:"correspondence_bonus" mapstructure:"correspondence_bonus"`
	ConversionKeywordBonus   float64 `json:"conversion_keyword_bonus" mapstructure:"conversion_keyword_bonus"`
	IdenticalExtractionBonus float64 `json:"identical_extraction_bonus" mapstructure:"identical_extraction_bonus"`

	// NameAmountPenalty is multiplied by the relative amount difference
	NameAmountPenalty float64 `json:"name_amount_penalty" mapstructure:"name_amount_penalty"`

	// NameStrategyCeiling caps name-only matches below exact and exchange matches
	NameStrategyCeiling float64 `json:"name_strategy_ceiling" mapstructure:"name_strategy_ceiling"`
}

// DefaultConfidenceWeights returns the standard weight table
func DefaultConfidenceWeights() ConfidenceWeights {
	return ConfidenceWeights{
		ConversionBase:            0.5,
		ExchangeBase:              0.5,
		ExactBase:                 0.5,
		NameBase:                  0.4,
		ExactAmountBonus:          0.2,
		SameDayBonus:              0.2,
		ExchangeAmountBonus:       0.3,
		NamedPatternBonus:         0.2,
		IdenticalDescriptionBonus: 0.1,
		CorrespondenceBonus:       0.3,
		ConversionKeywordBonus:    0.2,
		IdenticalExtractionBonus:  0.1,
		NameAmountPenalty:         0.1,
		NameStrategyCeiling:       0.85,
	}
}

// DefaultMatchingConfig returns a configuration with sensible defaults
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		DateToleranceHours:   72,
		AmountEpsilon:        decimal.RequireFromString("0.01"),
		LargeAmountThreshold: decimal.NewFromInt(10000),
		MinConfidence:        0.7,
		NameAmountTolerance:  1.0,
		Patterns:             DefaultTransferPatterns(),
		ConversionExtractors: DefaultConversionExtractors(),
		TransferKeywords:     DefaultTransferKeywords(),
		Weights:              DefaultConfidenceWeights(),
	}
}

// StrictMatchingConfig returns a configuration for strict matching
func StrictMatchingConfig() *MatchingConfig {
	config := DefaultMatchingConfig()
	config.DateToleranceHours = 24
	config.MinConfidence = 0.85
	config.NameAmountTolerance = 0.5
	return config
}

// RelaxedMatchingConfig returns a configuration for relaxed matching
func RelaxedMatchingConfig() *MatchingConfig {
	config := DefaultMatchingConfig()
	config.DateToleranceHours = 120
	config.MinConfidence = 0.6
	config.LargeAmountThreshold = decimal.NewFromInt(5000)
	return config
}

// DateTolerance returns the tolerance window as a duration
func (mc *MatchingConfig) DateTolerance() time.Duration {
	return time.Duration(mc.DateToleranceHours) * time.Hour
}

// Validate checks if the matching configuration is valid. Regular expressions
// are checked when the configuration is compiled.
func (mc *MatchingConfig) Validate() error {
	if mc.DateToleranceHours < 0 {
		return fmt.Errorf("date tolerance hours cannot be negative: %d", mc.DateToleranceHours)
	}

	if !mc.AmountEpsilon.IsPositive() {
		return fmt.Errorf("amount epsilon must be positive: %s", mc.AmountEpsilon)
	}

	if mc.LargeAmountThreshold.IsNegative() {
		return fmt.Errorf("large amount threshold cannot be negative: %s", mc.LargeAmountThreshold)
	}

	if mc.MinConfidence < 0.0 || mc.MinConfidence > 1.0 {
		return fmt.Errorf("minimum confidence must be between 0.0 and 1.0: %f", mc.MinConfidence)
	}

	if mc.NameAmountTolerance <= 0.0 || mc.NameAmountTolerance > 1.0 {
		return fmt.Errorf("name amount tolerance must be in (0.0, 1.0]: %f", mc.NameAmountTolerance)
	}

	seen := make(map[string]bool, len(mc.Patterns))
	for i, p := range mc.Patterns {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("pattern %d: %w", i, err)
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate pattern id: %s", p.ID)
		}
		seen[p.ID] = true
	}

	for i, extractor := range mc.ConversionExtractors {
		if strings.TrimSpace(extractor) == "" {
			return fmt.Errorf("conversion extractor %d is empty", i)
		}
	}

	if err := mc.Weights.Validate(); err != nil {
		return fmt.Errorf("invalid weights: %w", err)
	}

	return nil
}

// Validate checks if the confidence weights are valid
func (w *ConfidenceWeights) Validate() error {
	values := map[string]float64{
		"conversion_base":             w.ConversionBase,
		"exchange_base":               w.ExchangeBase,
		"exact_base":                  w.ExactBase,
		"name_base":                   w.NameBase,
		"exact_amount_bonus":          w.ExactAmountBonus,
		"same_day_bonus":              w.SameDayBonus,
		"exchange_amount_bonus":       w.ExchangeAmountBonus,
		"named_pattern_bonus":         w.NamedPatternBonus,
		"identical_description_bonus": w.IdenticalDescriptionBonus,
		"correspondence_bonus":        w.CorrespondenceBonus,
		"conversion_keyword_bonus":    w.ConversionKeywordBonus,
		"identical_extraction_bonus":  w.IdenticalExtractionBonus,
		"name_amount_penalty":         w.NameAmountPenalty,
		"name_strategy_ceiling":       w.NameStrategyCeiling,
	}
	for _, name := range sortedKeys(values) {
		if v := values[name]; v < 0.0 || v > 1.0 {
			return fmt.Errorf("%s must be between 0.0 and 1.0: %f", name, v)
		}
	}

	// name-only evidence must never outrank amount evidence
	if w.NameBase >= w.ExactBase || w.NameBase >= w.ExchangeBase {
		return fmt.Errorf("name base %.2f must be below exact (%.2f) and exchange (%.2f) bases",
			w.NameBase, w.ExactBase, w.ExchangeBase)
	}

	return nil
}

// Clone creates a deep copy of the matching configuration
func (mc *MatchingConfig) Clone() *MatchingConfig {
	if mc == nil {
		return nil
	}

	clone := *mc
	clone.Patterns = make([]TransferPattern, len(mc.Patterns))
	for i, p := range mc.Patterns {
		clone.Patterns[i] = p
		clone.Patterns[i].Banks = append([]models.BankTag(nil), p.Banks...)
	}
	clone.ConversionExtractors = append([]string(nil), mc.ConversionExtractors...)
	clone.TransferKeywords = append([]string(nil), mc.TransferKeywords...)
	return &clone
}

// String returns a human-readable description of the configuration
func (mc *MatchingConfig) String() string {
	name := mc.DisplayName
	if name == "" {
		name = "<none>"
	}
	return fmt.Sprintf("MatchingConfig{DisplayName: %s, DateTolerance: %dh, Epsilon: %s, LargeAmount: %s, MinConfidence: %.2f, Patterns: %d}",
		name, mc.DateToleranceHours, mc.AmountEpsilon, mc.LargeAmountThreshold, mc.MinConfidence, len(mc.Patterns))
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
