package matcher

import (
	"context"

	"golang-transfer-reconciler/internal/models"
	"golang-transfer-reconciler/pkg/errors"
	"golang-transfer-reconciler/pkg/logger"
)

// Engine runs candidate detection, both matchers, assignment and flagging over
// one transaction pool. An Engine holds no state between runs and may be shared
// by concurrent callers.
type Engine struct {
	config     *MatchingConfig
	patterns   *PatternSet
	finder     *CandidateFinder
	conversion *ConversionMatcher
	crossBank  *CrossBankMatcher
	logger     logger.Logger
}

// Result is the raw outcome of one engine run
type Result struct {
	Candidates          []*models.Candidate
	Pairs               []*models.TransferPair
	Conflicts           []*models.Conflict
	UnmatchedCandidates []*models.Candidate
	Flagged             []*models.FlaggedTransaction
	States              map[models.TransactionKey]MatchState
	ConversionPairs     int
	CrossBankPairs      int
}

// Stage names used in logs and cancellation errors
const (
	StageCandidates = "candidate_detection"
	StageConversion = "currency_conversion"
	StageCrossBank  = "cross_bank"
	StageFlagging   = "flagging"
)

// NewEngine validates and compiles the configuration. A nil config means the defaults.
func NewEngine(config *MatchingConfig, log logger.Logger) (*Engine, error) {
	if config == nil {
		config = DefaultMatchingConfig()
	}
	if log == nil {
		log = logger.Discard()
	}

	config = config.Clone()
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "matching", err.Error(), err)
	}

	patterns, err := CompilePatterns(config)
	if err != nil {
		return nil, err
	}

	calculator := NewConfidenceCalculator(config.Weights)
	engine := &Engine{
		config:     config,
		patterns:   patterns,
		finder:     NewCandidateFinder(patterns),
		conversion: NewConversionMatcher(config, patterns, calculator),
		crossBank:  NewCrossBankMatcher(config, patterns, calculator),
		logger:     log.WithComponent("matcher"),
	}

	if skipped := patterns.Skipped(); len(skipped) > 0 {
		engine.logger.WithField("patterns", skipped).Debug("Named patterns disabled: no display name configured")
	}

	return engine, nil
}

// Run matches the pool. Processing is sequential in ingestion order; ctx is
// checked between stages.
func (e *Engine) Run(ctx context.Context, transactions []*models.Transaction) (*Result, error) {
	resolver := NewConflictResolver()
	isFree := func(tx *models.Transaction) bool { return !resolver.IsConsumed(tx) }

	if err := checkContext(ctx, StageCandidates); err != nil {
		return nil, err
	}
	candidates := e.finder.Find(transactions)

	if err := checkContext(ctx, StageConversion); err != nil {
		return nil, err
	}
	conversionPairs, conversionConflicts := resolver.Resolve(e.conversion.Enumerate(transactions, isFree))
	e.logPairs(StageConversion, conversionPairs)

	if err := checkContext(ctx, StageCrossBank); err != nil {
		return nil, err
	}
	crossTuples, indexStats := e.crossBank.Enumerate(candidates, transactions, isFree)
	e.logger.WithFields(logger.Fields{
		"indexed":        indexStats.TotalTransactions,
		"dated":          indexStats.DatedTransactions,
		"amount_buckets": indexStats.AmountBuckets,
		"tuples":         len(crossTuples),
	}).Debug("Cross-bank index built")
	crossPairs, crossConflicts := resolver.Resolve(crossTuples)
	e.logPairs(StageCrossBank, crossPairs)

	if err := checkContext(ctx, StageFlagging); err != nil {
		return nil, err
	}
	unmatched, flagged := e.flag(transactions, candidates, resolver)

	result := &Result{
		Candidates:          candidates,
		Pairs:               append(conversionPairs, crossPairs...),
		Conflicts:           append(conversionConflicts, crossConflicts...),
		UnmatchedCandidates: unmatched,
		Flagged:             flagged,
		States:              resolver.states,
		ConversionPairs:     len(conversionPairs),
		CrossBankPairs:      len(crossPairs),
	}

	for _, c := range result.Conflicts {
		e.logger.WithFields(logger.Fields{
			"anchor":    c.Anchor.Key().String(),
			"competing": len(c.Competing),
			"strategy":  c.Strategy,
		}).Debug("Ambiguous match recorded")
	}

	return result, nil
}

// flag walks the pool in ingestion order. A transaction may carry both reasons;
// the large-amount flag comes first.
func (e *Engine) flag(transactions []*models.Transaction, candidates []*models.Candidate, resolver *ConflictResolver) ([]*models.Candidate, []*models.FlaggedTransaction) {
	byOrdinal := make(map[int]*models.Candidate, len(candidates))
	for _, c := range candidates {
		byOrdinal[c.Transaction.Ordinal] = c
	}

	unmatched := make([]*models.Candidate, 0)
	flagged := make([]*models.FlaggedTransaction, 0)

	for _, tx := range transactions {
		if resolver.IsConsumed(tx) {
			continue
		}

		if tx.Amount.Abs().GreaterThan(e.config.LargeAmountThreshold) && e.patterns.HasTransferKeyword(tx) {
			flagged = append(flagged, &models.FlaggedTransaction{Transaction: tx, Reason: models.FlagLargeAmount})
		}

		if c, ok := byOrdinal[tx.Ordinal]; ok {
			unmatched = append(unmatched, c)
			flagged = append(flagged, &models.FlaggedTransaction{Transaction: tx, Reason: models.FlagUnmatchedCandidate})
		}
	}

	return unmatched, flagged
}

func (e *Engine) logPairs(stage string, pairs []*models.TransferPair) {
	for _, p := range pairs {
		e.logger.WithFields(logger.Fields{
			"stage":      stage,
			"pair_id":    p.PairID,
			"outgoing":   p.Outgoing.Key().String(),
			"incoming":   p.Incoming.Key().String(),
			"strategy":   p.Strategy,
			"confidence": p.Confidence,
		}).Debug("Transfer pair confirmed")
	}
}

// Patterns returns the compiled pattern set
func (e *Engine) Patterns() *PatternSet {
	return e.patterns
}

// GetConfiguration returns a copy of the effective configuration
func (e *Engine) GetConfiguration() *MatchingConfig {
	return e.config.Clone()
}

func checkContext(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return errors.ReconciliationError(errors.CodeCanceled, stage, err)
	}
	return nil
}
