package cmd

import (
	"github.com/spf13/cobra"

	"golang-transfer-reconciler/cmd/reconciler/config"
	"golang-transfer-reconciler/internal/parsers"
	"golang-transfer-reconciler/internal/reconciler"
	"golang-transfer-reconciler/internal/reporter"
	"golang-transfer-reconciler/pkg/errors"
	"golang-transfer-reconciler/pkg/logger"
)

// reconcileFlags maps flag names onto setting keys
var reconcileFlags = map[string]string{
	"input":                  config.KeyInput,
	"format":                 config.KeyInputFormat,
	"date-tolerance-hours":   config.KeyDateToleranceHours,
	"min-confidence":         config.KeyMinConfidence,
	"large-amount":           config.KeyLargeAmount,
	"start-date":             config.KeyStartDate,
	"end-date":               config.KeyEndDate,
	"timezone":               config.KeyTimezone,
	"include-diagnostics":    config.KeyIncludeDiagnostics,
	"include-categorization": config.KeyIncludeCategorization,
	"output-format":          config.KeyOutputFormat,
	"output-file":            config.KeyOutputFile,
	"colors":                 config.KeyColors,
	"max-items":              config.KeyMaxItems,
}

func (c *cli) reconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Find transfer pairs across statement batches",
		Long: `Reconcile pairs the outgoing and incoming sides of internal transfers
found in a batch document, reports ambiguous matches as conflicts and flags
unmatched transactions that still look like transfers.

The input document is either a list of batches or an object with a "batches"
key. Each batch has an account_id, a bank_tag and its transactions.`,
		Example: `  # Console report
  reconciler reconcile --input statements.json --display-name "Ammar Qazi"

  # Strict matching, JSON report written to a file
  reconciler reconcile -i statements.yaml --profile strict \
    --output-format json --output-file report.json

  # Only June, categorization overrides as CSV
  reconciler reconcile -i statements.json --start-date 2025-06-01 \
    --end-date 2025-06-30 --output-format csv`,
		Args: cobra.NoArgs,
		RunE: c.runReconcile,
	}

	flags := cmd.Flags()
	flags.StringP("input", "i", "", "path to the batch document (JSON or YAML)")
	flags.String("format", string(parsers.FormatAuto), "input format: auto, json, yaml")

	flags.Int("date-tolerance-hours", 72, "maximum hours between the two sides of a pair")
	flags.Float64("min-confidence", 0.7, "acceptance threshold for cross-bank pairs (0.0-1.0)")
	flags.String("large-amount", "10000", "flag unmatched transfer-like transactions above this amount")

	flags.String("start-date", "", "ignore transactions before this date (YYYY-MM-DD)")
	flags.String("end-date", "", "ignore transactions after this date (YYYY-MM-DD)")
	flags.String("timezone", "UTC", "time zone dates are normalized to")

	flags.Bool("include-diagnostics", true, "include parse fallbacks in the report")
	flags.Bool("include-categorization", false, "include categorization overrides in JSON and YAML reports")
	flags.StringP("output-format", "f", string(reporter.FormatConsole), "output format: console, json, yaml, csv")
	flags.StringP("output-file", "o", "", "output file path (default: stdout)")
	flags.Bool("colors", true, "colored console output")
	flags.Int("max-items", 20, "maximum items per console section (0 for all)")

	for name, key := range reconcileFlags {
		_ = c.v.BindPFlag(key, flags.Lookup(name))
	}

	return cmd
}

func (c *cli) runReconcile(cmd *cobra.Command, _ []string) error {
	input := c.v.GetString(config.KeyInput)
	if input == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, config.KeyInput, nil, nil).
			WithSuggestion("Pass --input or set input in the config file")
	}

	format, err := parsers.ParseFormat(c.v.GetString(config.KeyInputFormat))
	if err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, config.KeyInputFormat, c.v.GetString(config.KeyInputFormat), err).
			WithSuggestion("Valid input formats: auto, json, yaml")
	}

	matchingConfig, err := config.CreateMatchingConfig(c.v)
	if err != nil {
		return err
	}
	reconcilerConfig, err := config.CreateReconcilerConfig(c.v)
	if err != nil {
		return err
	}
	reportConfig, err := config.CreateReportConfig(c.v)
	if err != nil {
		return err
	}

	c.log.WithFields(logger.Fields{
		"input":         input,
		"format":        format,
		"output_format": reportConfig.Format,
		"matching":      matchingConfig.String(),
	}).Debug("Starting reconciliation")

	service, err := reconciler.NewReconciliationService(matchingConfig, reconcilerConfig, logger.GetGlobalLogger())
	if err != nil {
		return err
	}

	report, err := service.ReconcileFile(cmd.Context(), input, format)
	if err != nil {
		return err
	}

	generator, err := reporter.NewSafeReportGenerator(reportConfig, logger.GetGlobalLogger())
	if err != nil {
		return err
	}

	if outputFile := c.v.GetString(config.KeyOutputFile); outputFile != "" {
		if err := generator.WriteReportFile(report, outputFile); err != nil {
			return err
		}
		c.log.WithFields(logger.Fields{
			"file":  outputFile,
			"pairs": report.Summary.PairsFound,
		}).Info("Report written")
		return nil
	}

	return generator.GenerateReportSafely(report, cmd.OutOrStdout())
}
