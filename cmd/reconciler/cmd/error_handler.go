package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"golang-transfer-reconciler/pkg/errors"
	"golang-transfer-reconciler/pkg/logger"
)

// CLIErrorHandler provides user-friendly error handling for CLI operations
type CLIErrorHandler struct {
	out     io.Writer
	logger  logger.Logger
	verbose bool
}

// NewCLIErrorHandler creates a new CLI error handler writing to out
func NewCLIErrorHandler(out io.Writer, verbose bool) *CLIErrorHandler {
	return &CLIErrorHandler{
		out:     out,
		logger:  logger.GetGlobalLogger().WithComponent("cli"),
		verbose: verbose,
	}
}

// HandleError prints err and returns the process exit code
func (h *CLIErrorHandler) HandleError(err error) int {
	if err == nil {
		return 0
	}

	h.logger.WithError(err).Debug("Command failed")

	if summary, ok := errors.AsErrorSummary(err); ok && summary.Total > 1 {
		return h.handleErrorSummary(summary)
	}

	if reconcilerErr, ok := errors.AsReconcilerError(err); ok {
		return h.handleReconcilerError(reconcilerErr)
	}

	return h.handleGenericError(err)
}

// handleReconcilerError prints the message, context and suggestion of err
func (h *CLIErrorHandler) handleReconcilerError(err *errors.ReconcilerError) int {
	fmt.Fprintf(h.out, "Error: %s\n", err.Message)

	if len(err.Context) > 0 {
		fmt.Fprintf(h.out, "\nContext:\n")
		keys := make([]string, 0, len(err.Context))
		for key := range err.Context {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintf(h.out, "  %s: %v\n", key, err.Context[key])
		}
	}

	if err.Suggestion != "" {
		fmt.Fprintf(h.out, "\nSuggestion: %s\n", err.Suggestion)
	}

	fmt.Fprintf(h.out, "\n%s\n", h.getCategoryHelp(err.Category))

	if err.Cause != nil && (h.verbose || err.Category == errors.CategoryConfiguration) {
		fmt.Fprintf(h.out, "\nUnderlying error: %v\n", err.Cause)
	}

	return err.GetExitCode()
}

// maxListedErrors bounds the per-error lines printed for a summary
const maxListedErrors = 10

// handleErrorSummary lists the collected errors and exits with the most
// severe category's code
func (h *CLIErrorHandler) handleErrorSummary(summary *errors.ErrorSummary) int {
	fmt.Fprintf(h.out, "Error: %s\n\n", summary.Error())

	for i, err := range summary.Errors {
		if i == maxListedErrors {
			fmt.Fprintf(h.out, "  ... and %d more\n", summary.Total-maxListedErrors)
			break
		}
		fmt.Fprintf(h.out, "  - %s\n", err.Message)
	}

	first := summary.Errors[0]
	if first.Suggestion != "" {
		fmt.Fprintf(h.out, "\nSuggestion: %s\n", first.Suggestion)
	}
	fmt.Fprintf(h.out, "\n%s\n", h.getCategoryHelp(first.Category))

	return summary.GetExitCode()
}

// handleGenericError handles errors that carry no category, mostly cobra usage errors
func (h *CLIErrorHandler) handleGenericError(err error) int {
	if os.IsNotExist(err) {
		fmt.Fprintf(h.out, "Error: File not found\n")
		fmt.Fprintf(h.out, "Suggestion: Check if the file path is correct and the file exists\n")
		return 2
	}

	if os.IsPermission(err) {
		fmt.Fprintf(h.out, "Error: Permission denied\n")
		fmt.Fprintf(h.out, "Suggestion: Check file permissions and ensure you have read access\n")
		return 2
	}

	fmt.Fprintf(h.out, "Error: %v\n", err)
	if h.isUsageError(err) {
		fmt.Fprintf(h.out, "Run 'reconciler --help' for usage.\n")
	}
	return 1
}

// getCategoryHelp returns category-specific help text
func (h *CLIErrorHandler) getCategoryHelp(category errors.ErrorCategory) string {
	switch category {
	case errors.CategoryFile:
		return `File error help:
• Check that the input file exists and is readable
• Use an absolute path if the relative one is ambiguous
• Make sure the output directory is writable`

	case errors.CategoryParse:
		return `Parse error help:
• The input must be a JSON or YAML batch document
• Use a list of batches or an object with a "batches" key
• Pass --format json or --format yaml if the file extension is unusual`

	case errors.CategoryValidation:
		return `Validation error help:
• Every batch needs a non-empty, unique account_id
• Every transaction needs a date, an amount and a description
• The context above names the batch and record that failed`

	case errors.CategoryConfiguration:
		return `Configuration error help:
• Check your command-line flags and the --config file
• Run 'reconciler patterns' to check the transfer patterns compile
• Use 'reconciler reconcile --help' to see all available options`

	case errors.CategoryReconciliation:
		return `Reconciliation error help:
• The run was interrupted or the matcher could not finish
• Rerun the command; nothing was written`

	default:
		return `For more help:
• Use 'reconciler --help' for general help
• Use 'reconciler reconcile --help' for command-specific help
• Rerun with --verbose for debug logging`
	}
}

func (h *CLIErrorHandler) isUsageError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "unknown flag") ||
		strings.Contains(msg, "unknown command") ||
		strings.Contains(msg, "unknown shorthand flag") ||
		strings.Contains(msg, "accepts 0 arg")
}
