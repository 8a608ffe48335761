package matcher

import (
	"strings"

	"github.com/shopspring/decimal"

	"golang-transfer-reconciler/internal/models"
	"golang-transfer-reconciler/internal/parsers"
)

// Extraction is the "converted X CUR to Y CUR" content of one description
type Extraction struct {
	FromAmount   decimal.Decimal
	FromCurrency string
	ToAmount     decimal.Decimal
	ToCurrency   string
	Text         string
}

// Equal compares the four fields with an absolute amount tolerance
func (e *Extraction) Equal(other *Extraction, epsilon decimal.Decimal) bool {
	return e.FromCurrency == other.FromCurrency &&
		e.ToCurrency == other.ToCurrency &&
		models.CompareAmountsWithTolerance(e.FromAmount, other.FromAmount, epsilon) &&
		models.CompareAmountsWithTolerance(e.ToAmount, other.ToAmount, epsilon)
}

// conversionEntry is a pool transaction that shows conversion evidence.
// extraction is nil for keyword-only entries.
type conversionEntry struct {
	tx         *models.Transaction
	extraction *Extraction
	keyword    bool
}

// ConversionMatcher pairs the two ledger entries of one currency conversion
type ConversionMatcher struct {
	config     *MatchingConfig
	patterns   *PatternSet
	calculator *ConfidenceCalculator
}

// NewConversionMatcher creates a matcher over a validated configuration
func NewConversionMatcher(config *MatchingConfig, patterns *PatternSet, calculator *ConfidenceCalculator) *ConversionMatcher {
	return &ConversionMatcher{
		config:     config,
		patterns:   patterns,
		calculator: calculator,
	}
}

// Extract pulls conversion fields out of the description. The first extractor
// that matches with parseable amounts wins.
func (cm *ConversionMatcher) Extract(tx *models.Transaction) (*Extraction, bool) {
	for _, re := range cm.patterns.extractors {
		m := re.FindStringSubmatch(tx.Description)
		if m == nil {
			continue
		}

		from, err := parsers.ParseAmount(m[re.SubexpIndex("from_amount")])
		if err != nil {
			continue
		}
		to, err := parsers.ParseAmount(m[re.SubexpIndex("to_amount")])
		if err != nil {
			continue
		}

		return &Extraction{
			FromAmount:   from.Abs(),
			FromCurrency: strings.ToUpper(m[re.SubexpIndex("from_currency")]),
			ToAmount:     to.Abs(),
			ToCurrency:   strings.ToUpper(m[re.SubexpIndex("to_currency")]),
			Text:         m[0],
		}, true
	}
	return nil, false
}

// Enumerate returns every valid conversion tuple over the pool without
// committing any of them. Transactions for which isFree returns false are skipped.
func (cm *ConversionMatcher) Enumerate(pool []*models.Transaction, isFree func(*models.Transaction) bool) []*MatchTuple {
	entries := make([]*conversionEntry, 0)
	for _, tx := range pool {
		if !isFree(tx) || tx.Amount.IsZero() || !tx.HasDate() {
			continue
		}
		extraction, _ := cm.Extract(tx)
		keyword := cm.patterns.HasConversionKeyword(tx)
		if extraction == nil && !keyword {
			continue
		}
		entries = append(entries, &conversionEntry{tx: tx, extraction: extraction, keyword: keyword})
	}

	tuples := make([]*MatchTuple, 0)
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if t := cm.evaluate(entries[i], entries[j]); t != nil {
				tuples = append(tuples, t)
			}
		}
	}
	return tuples
}

func (cm *ConversionMatcher) evaluate(a, b *conversionEntry) *MatchTuple {
	if a.tx.SourceID == b.tx.SourceID {
		return nil
	}
	if a.tx.Amount.Sign() == b.tx.Amount.Sign() {
		return nil
	}
	if !a.tx.WithinTolerance(b.tx, cm.config.DateTolerance()) {
		return nil
	}

	out, in := a, b
	if out.tx.IsIncoming() {
		out, in = b, a
	}

	var signals Signals
	var exchange *decimal.Decimal

	switch {
	case out.extraction != nil && in.extraction != nil:
		if !out.extraction.Equal(in.extraction, cm.config.AmountEpsilon) {
			return nil
		}
		if !cm.ownsAmount(out) || !cm.ownsAmount(in) {
			return nil
		}
		signals.ExactCorrespondence = cm.corresponds(out.tx, in.tx, out.extraction)
		signals.IdenticalExtraction = out.extraction.Text == in.extraction.Text
		to := out.extraction.ToAmount
		exchange = &to

	case out.extraction != nil || in.extraction != nil:
		full, partner := out, in
		if full.extraction == nil {
			full, partner = in, out
		}
		if !partner.keyword {
			return nil
		}
		if !cm.corresponds(out.tx, in.tx, full.extraction) {
			return nil
		}
		if !cm.partnerCurrencyFits(partner, full.extraction) {
			return nil
		}
		signals.ExactCorrespondence = true
		to := full.extraction.ToAmount
		exchange = &to

	default:
		return nil
	}

	signals.SameDay = out.tx.SameCalendarDay(in.tx)
	signals.ConversionKeyword = out.keyword && in.keyword

	return &MatchTuple{
		Outgoing:       out.tx,
		Incoming:       in.tx,
		Strategy:       models.StrategyCurrencyConversion,
		Confidence:     cm.calculator.Score(out.tx, in.tx, models.StrategyCurrencyConversion, signals),
		ExchangeAmount: exchange,
		Signals:        signals,
	}
}

// ownsAmount checks that the transaction amount is one of the two amounts its
// own description mentions
func (cm *ConversionMatcher) ownsAmount(e *conversionEntry) bool {
	abs := e.tx.Amount.Abs()
	eps := cm.config.AmountEpsilon
	return models.CompareAmountsWithTolerance(abs, e.extraction.FromAmount, eps) ||
		models.CompareAmountsWithTolerance(abs, e.extraction.ToAmount, eps)
}

// corresponds checks the direction-consistent reading: money left as the
// from amount and arrived as the to amount
func (cm *ConversionMatcher) corresponds(out, in *models.Transaction, e *Extraction) bool {
	eps := cm.config.AmountEpsilon
	return models.CompareAmountsWithTolerance(out.Amount.Abs(), e.FromAmount, eps) &&
		models.CompareAmountsWithTolerance(in.Amount.Abs(), e.ToAmount, eps)
}

func (cm *ConversionMatcher) partnerCurrencyFits(partner *conversionEntry, e *Extraction) bool {
	if partner.tx.Currency == "" {
		return true
	}
	if partner.tx.IsOutgoing() {
		return partner.tx.Currency == e.FromCurrency
	}
	return partner.tx.Currency == e.ToCurrency
}
