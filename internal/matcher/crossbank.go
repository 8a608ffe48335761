package matcher

import (
	"time"

	"github.com/shopspring/decimal"

	"golang-transfer-reconciler/internal/models"
)

// CrossBankMatcher pairs outgoing candidates with incoming transactions from a
// different statement
type CrossBankMatcher struct {
	config     *MatchingConfig
	patterns   *PatternSet
	calculator *ConfidenceCalculator
}

// NewCrossBankMatcher creates a matcher over a validated configuration
func NewCrossBankMatcher(config *MatchingConfig, patterns *PatternSet, calculator *ConfidenceCalculator) *CrossBankMatcher {
	return &CrossBankMatcher{
		config:     config,
		patterns:   patterns,
		calculator: calculator,
	}
}

// Enumerate returns every tuple at or above the acceptance threshold. Outgoing
// sides come from the candidates, incoming sides from the whole pool. For each
// (outgoing, incoming) the first satisfied strategy in priority order decides:
// exchange, then exact, then name. The stats describe the incoming-side index.
func (cb *CrossBankMatcher) Enumerate(candidates []*models.Candidate, pool []*models.Transaction, isFree func(*models.Transaction) bool) ([]*MatchTuple, IndexStats) {
	incoming := make([]*models.Transaction, 0)
	for _, tx := range pool {
		if tx.IsIncoming() && tx.HasDate() && isFree(tx) {
			incoming = append(incoming, tx)
		}
	}
	index := NewTransactionIndex(incoming, cb.config.AmountEpsilon)
	tolerance := cb.config.DateTolerance()

	tuples := make([]*MatchTuple, 0)
	for _, c := range candidates {
		out := c.Transaction
		if !out.IsOutgoing() || !out.HasDate() || !isFree(out) {
			continue
		}

		outNamed := cb.patterns.MatchesNamed(out, DirectionOut)
		for _, in := range cb.partners(out, outNamed, index, tolerance) {
			if in.SourceID == out.SourceID || !out.WithinTolerance(in, tolerance) {
				continue
			}
			t := cb.evaluate(out, in, outNamed)
			if t == nil || t.Confidence < cb.config.MinConfidence {
				continue
			}
			tuples = append(tuples, t)
		}
	}
	return tuples, index.GetIndexStats()
}

// partners narrows the incoming side via the index: amount neighbours of the
// ledger and exchange amounts, plus everything in the date window when the
// outgoing side carries a named phrase
func (cb *CrossBankMatcher) partners(out *models.Transaction, outNamed bool, index *TransactionIndex, tolerance time.Duration) []*models.Transaction {
	seen := make(map[int]bool)
	var result []*models.Transaction
	add := func(txs []*models.Transaction) {
		for _, tx := range txs {
			if !seen[tx.Ordinal] {
				seen[tx.Ordinal] = true
				result = append(result, tx)
			}
		}
	}

	add(index.GetByAmount(out.Amount))
	if out.HasExchangeAmount() {
		add(index.GetByAmount(*out.ExchangeAmount))
	}
	if outNamed {
		add(index.GetByDateRange(out.Date.Add(-tolerance), out.Date.Add(tolerance)))
	}

	sortByOrdinal(result)
	return result
}

func (cb *CrossBankMatcher) evaluate(out, in *models.Transaction, outNamed bool) *MatchTuple {
	eps := cb.config.AmountEpsilon
	outAbs := out.Amount.Abs()

	signals := Signals{
		SameDay:              out.SameCalendarDay(in),
		ExactAmount:          models.CompareAmountsWithTolerance(outAbs, in.Amount, eps),
		NamedPattern:         outNamed && cb.patterns.MatchesNamed(in, DirectionIn),
		IdenticalDescription: out.Description == in.Description,
	}
	if out.HasExchangeAmount() {
		signals.ExchangeAmount = models.CompareAmountsWithTolerance(*out.ExchangeAmount, in.Amount, eps)
	}

	var strategy models.MatchStrategy
	var exchange *decimal.Decimal

	switch {
	case signals.ExchangeAmount:
		strategy = models.StrategyCrossBankExchange
		exchange = out.ExchangeAmount
	case signals.ExactAmount:
		strategy = models.StrategyCrossBankExact
	case signals.NamedPattern:
		diff := relativeDifference(outAbs, in.Amount)
		if diff >= cb.config.NameAmountTolerance {
			return nil
		}
		signals.RelativeAmountDiff = diff
		strategy = models.StrategyCrossBankName
		exchange = out.ExchangeAmount
	default:
		return nil
	}

	return &MatchTuple{
		Outgoing:       out,
		Incoming:       in,
		Strategy:       strategy,
		Confidence:     cb.calculator.Score(out, in, strategy, signals),
		ExchangeAmount: exchange,
		Signals:        signals,
	}
}

// relativeDifference returns |a-b| / max(a,b) for positive amounts
func relativeDifference(a, b decimal.Decimal) float64 {
	larger := decimal.Max(a, b)
	if !larger.IsPositive() {
		return 1
	}
	diff, _ := a.Sub(b).Abs().Div(larger).Float64()
	return diff
}
