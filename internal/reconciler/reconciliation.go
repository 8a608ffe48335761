// Package reconciler runs a complete reconciliation request: it normalizes the
// raw statement batches, preprocesses the pool, hands it to the matching
// engine and assembles the report.
//
// The service holds no per-request state; one instance may serve concurrent
// requests.
//
// Example usage:
//
//	service, err := reconciler.NewReconciliationService(matcher.DefaultMatchingConfig(), nil, log)
//	if err != nil {
//		return err
//	}
//	report, err := service.Reconcile(ctx, batches)
//	overrides := reconciler.ApplyCategorization(report.Pairs)
package reconciler

import (
	"context"
	"fmt"
	"time"

	"golang-transfer-reconciler/internal/matcher"
	"golang-transfer-reconciler/internal/models"
	"golang-transfer-reconciler/internal/parsers"
	"golang-transfer-reconciler/pkg/errors"
	"golang-transfer-reconciler/pkg/logger"
)

// ReconciliationService orchestrates the complete reconciliation process
type ReconciliationService struct {
	engine       *matcher.Engine
	preprocessor *DataPreprocessor
	config       *Config
	logger       logger.Logger
}

// Config holds configuration options for the reconciliation service
type Config struct {
	// Preprocessing applied to the pool before matching
	Preprocessing *PreprocessingConfig

	// IncludeDiagnostics keeps parse fallbacks in the report. They are
	// logged either way.
	IncludeDiagnostics bool
}

// DefaultConfig returns a default configuration for the reconciliation service
func DefaultConfig() *Config {
	return &Config{
		Preprocessing:      DefaultPreprocessingConfig(),
		IncludeDiagnostics: true,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Preprocessing == nil {
		return fmt.Errorf("preprocessing configuration is required")
	}
	return c.Preprocessing.Validate()
}

// NewReconciliationService creates the service. Nil configs mean the defaults.
func NewReconciliationService(matchingConfig *matcher.MatchingConfig, config *Config, log logger.Logger) (*ReconciliationService, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reconciliation", err.Error(), err)
	}

	engine, err := matcher.NewEngine(matchingConfig, log)
	if err != nil {
		return nil, err
	}

	return &ReconciliationService{
		engine:       engine,
		preprocessor: NewDataPreprocessor(config.Preprocessing),
		config:       config,
		logger:       log.WithComponent("reconciliation_service"),
	}, nil
}

// Reconcile runs one request over already-decoded batches. Validation
// failures return an InputValidationError; parse fallbacks do not fail the
// request.
func (rs *ReconciliationService) Reconcile(ctx context.Context, batches []parsers.RawBatch) (*models.ReconciliationReport, error) {
	start := time.Now()
	op := logger.NewOperationLogger("reconcile", rs.logger).WithField("batches", len(batches))

	normalized, err := parsers.NormalizeBatches(batches)
	if err != nil {
		op.Error(err, "Input validation failed")
		return nil, err
	}
	for _, d := range normalized.Diagnostics {
		rs.logger.WithFields(logger.Fields{
			"transaction": d.Key.String(),
			"code":        d.Code,
			"field":       d.Field,
			"value":       d.Value,
		}).Warn(d.Message)
	}
	op.Step("normalize", logger.Fields{
		"transactions": len(normalized.Transactions),
		"diagnostics":  len(normalized.Diagnostics),
	})

	pool, stats := rs.preprocessor.Preprocess(normalized.Transactions)
	op.Step("preprocess", logger.Fields{
		"normalized": stats.RecordsNormalized,
		"excluded":   stats.RecordsExcluded,
	})

	result, err := rs.engine.Run(ctx, pool)
	if err != nil {
		op.Error(err, "Matching failed")
		return nil, err
	}
	op.Step("match", logger.Fields{
		"candidates":           len(result.Candidates),
		"currency_conversions": result.ConversionPairs,
		"cross_bank_transfers": result.CrossBankPairs,
		"conflicts":            len(result.Conflicts),
		"flagged":              len(result.Flagged),
	})

	report := models.NewReconciliationReport()
	report.Pairs = result.Pairs
	report.UnmatchedCandidates = result.UnmatchedCandidates
	report.Conflicts = result.Conflicts
	report.Flagged = result.Flagged
	if rs.config.IncludeDiagnostics {
		report.Diagnostics = normalized.Diagnostics
	}
	report.Summary.Excluded = stats.RecordsExcluded
	report.Summarize(len(normalized.Transactions), len(result.Candidates))
	report.ProcessingTime = time.Since(start)

	op.Success("Reconciliation completed")
	return report, nil
}

// ReconcileFile loads batches from a JSON or YAML file and reconciles them
func (rs *ReconciliationService) ReconcileFile(ctx context.Context, path string, format parsers.Format) (*models.ReconciliationReport, error) {
	batches, err := parsers.LoadBatches(path, format)
	if err != nil {
		rs.logger.WithError(err).WithField("file", path).Error("Failed to load batches")
		return nil, err
	}
	return rs.Reconcile(ctx, batches)
}

// GetMatchingConfig returns a copy of the effective matching configuration
func (rs *ReconciliationService) GetMatchingConfig() *matcher.MatchingConfig {
	return rs.engine.GetConfiguration()
}

// Patterns returns the effective transfer patterns in evaluation order
func (rs *ReconciliationService) Patterns() []matcher.TransferPattern {
	return rs.engine.Patterns().Patterns()
}
