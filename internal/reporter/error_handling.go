package reporter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang-transfer-reconciler/internal/models"
	"golang-transfer-reconciler/pkg/errors"
	"golang-transfer-reconciler/pkg/logger"
)

// SafeReportGenerator wraps ReportGenerator with error classification and a console fallback
type SafeReportGenerator struct {
	*ReportGenerator
	logger logger.Logger
}

// NewSafeReportGenerator creates a new safe report generator with error handling
func NewSafeReportGenerator(config *ReportConfig, log logger.Logger) (*SafeReportGenerator, error) {
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	generator, err := NewReportGenerator(config)
	if err != nil {
		return nil, errors.ConfigurationError(
			errors.CodeInvalidConfig,
			"report_config",
			config,
			err,
		).WithSuggestion("Check the report configuration values")
	}

	return &SafeReportGenerator{
		ReportGenerator: generator,
		logger:          log.WithComponent("reporter"),
	}, nil
}

// GenerateReportSafely generates a report, falling back to console output when a
// structured format cannot be rendered
func (srg *SafeReportGenerator) GenerateReportSafely(report *models.ReconciliationReport, writer io.Writer) error {
	srg.logger.WithFields(logger.Fields{
		"format": srg.config.Format,
		"output": getWriterDescription(writer),
	}).Debug("Starting report generation")

	if report == nil {
		return errors.New(errors.CategoryValidation, errors.CodeMissingField, "reconciliation report is required").
			WithSuggestion("Run a reconciliation before generating a report")
	}
	if writer == nil {
		return errors.New(errors.CategoryValidation, errors.CodeMissingField, "output writer is required").
			WithSuggestion("Provide a valid output writer")
	}

	err := srg.GenerateReport(report, writer)
	if err == nil {
		return nil
	}

	srg.logger.WithError(err).Warn("Primary report generation failed")

	if srg.config.Format == FormatConsole {
		return srg.wrapGenerationError(err)
	}
	return srg.generateWithFormatFallback(report, writer, err)
}

// generateWithFormatFallback renders the report as console text after a structured format failed
func (srg *SafeReportGenerator) generateWithFormatFallback(report *models.ReconciliationReport, writer io.Writer, originalErr error) error {
	fallbackConfig := *srg.config
	fallbackConfig.Format = FormatConsole
	fallbackConfig.UseColors = false

	srg.logger.WithField("fallback_format", FormatConsole).Info("Attempting format fallback")

	fallbackGenerator, err := NewReportGenerator(&fallbackConfig)
	if err != nil {
		return srg.wrapGenerationError(originalErr)
	}

	fmt.Fprintf(writer, "NOTE: Report generated in fallback format due to error with requested format\n")
	fmt.Fprintf(writer, "Original error: %v\n\n", originalErr)

	if err := fallbackGenerator.GenerateReport(report, writer); err != nil {
		return errors.InternalError(
			errors.CodeUnexpectedError,
			"report_fallback",
			fmt.Errorf("both primary and fallback generation failed: primary=%v, fallback=%v", originalErr, err),
		)
	}
	return nil
}

// WriteReportFile renders the report into path, creating parent directories as needed
func (srg *SafeReportGenerator) WriteReportFile(report *models.ReconciliationReport, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.FileError(errors.CodeDirectoryError, filepath.Dir(path), err)
	}

	file, err := os.Create(path)
	if err != nil {
		code := errors.CodeFileNotFound
		if os.IsPermission(err) {
			code = errors.CodeFilePermission
		}
		return errors.FileError(code, path, err)
	}

	if err := srg.GenerateReportSafely(report, file); err != nil {
		file.Close()
		return err
	}

	if err := file.Close(); err != nil {
		return errors.FileError(errors.CodeFilePermission, path, err)
	}

	srg.logger.WithField("file", path).Info("Report written")
	return nil
}

// wrapGenerationError keeps classified errors and wraps everything else as internal
func (srg *SafeReportGenerator) wrapGenerationError(err error) error {
	if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
		return reconcilerErr
	}

	return errors.InternalError(
		errors.CodeProcessingError,
		"report_generation",
		err,
	).WithSuggestion("Check the output destination and report format settings")
}

func getWriterDescription(writer io.Writer) string {
	switch w := writer.(type) {
	case nil:
		return "none"
	case *os.File:
		if w.Name() != "" {
			return fmt.Sprintf("file:%s", w.Name())
		}
		return "file:unnamed"
	default:
		return fmt.Sprintf("writer:%T", writer)
	}
}
