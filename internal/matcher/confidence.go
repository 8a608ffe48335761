package matcher

import (
	"math"

	"golang-transfer-reconciler/internal/models"
)

// Signals is the evidence collected for one (outgoing, incoming) tuple
type Signals struct {
	ExactAmount          bool
	ExchangeAmount       bool
	SameDay              bool
	NamedPattern         bool
	IdenticalDescription bool

	// RelativeAmountDiff is |a-b| / max(a,b), used by the name strategy
	RelativeAmountDiff float64

	// conversion evidence
	ExactCorrespondence bool
	ConversionKeyword   bool
	IdenticalExtraction bool
}

// Reasons lists the signals that fired, for logs and reports
func (s Signals) Reasons() []string {
	var reasons []string
	if s.ExchangeAmount {
		reasons = append(reasons, "exchange amount equal")
	}
	if s.ExactAmount {
		reasons = append(reasons, "amount equal")
	}
	if s.ExactCorrespondence {
		reasons = append(reasons, "conversion amounts correspond")
	}
	if s.SameDay {
		reasons = append(reasons, "same day")
	}
	if s.NamedPattern {
		reasons = append(reasons, "named pattern on both sides")
	}
	if s.ConversionKeyword {
		reasons = append(reasons, "conversion keyword on both sides")
	}
	if s.IdenticalExtraction {
		reasons = append(reasons, "identical conversion text")
	}
	if s.IdenticalDescription {
		reasons = append(reasons, "identical description")
	}
	return reasons
}

// ConfidenceCalculator turns matched signals into a score in [0,1]
type ConfidenceCalculator struct {
	weights ConfidenceWeights
}

// NewConfidenceCalculator creates a calculator over a weight table
func NewConfidenceCalculator(weights ConfidenceWeights) *ConfidenceCalculator {
	return &ConfidenceCalculator{weights: weights}
}

// Score depends only on the strategy and the signals.
func (cc *ConfidenceCalculator) Score(_, _ *models.Transaction, strategy models.MatchStrategy, s Signals) float64 {
	w := cc.weights
	var score float64

	switch strategy {
	case models.StrategyCurrencyConversion:
		score = w.ConversionBase
		score += bonus(s.ExactCorrespondence, w.CorrespondenceBonus)
		score += bonus(s.SameDay, w.SameDayBonus)
		score += bonus(s.ConversionKeyword, w.ConversionKeywordBonus)
		score += bonus(s.IdenticalExtraction, w.IdenticalExtractionBonus)
		return clamp(score)

	case models.StrategyCrossBankExchange:
		score = w.ExchangeBase
	case models.StrategyCrossBankExact:
		score = w.ExactBase
	case models.StrategyCrossBankName:
		score = w.NameBase
	default:
		return 0
	}

	score += bonus(s.ExchangeAmount, w.ExchangeAmountBonus)
	score += bonus(s.ExactAmount, w.ExactAmountBonus)
	score += bonus(s.SameDay, w.SameDayBonus)
	score += bonus(s.NamedPattern, w.NamedPatternBonus)
	score += bonus(s.IdenticalDescription, w.IdenticalDescriptionBonus)

	if strategy == models.StrategyCrossBankName {
		score -= w.NameAmountPenalty * s.RelativeAmountDiff
		score = math.Min(score, w.NameStrategyCeiling)
	}

	return clamp(score)
}

func bonus(fired bool, weight float64) float64 {
	if fired {
		return weight
	}
	return 0
}

// clamp bounds the score to [0,1] and rounds away float noise so equal
// evidence always yields bit-identical scores
func clamp(score float64) float64 {
	score = math.Round(score*1e6) / 1e6
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
