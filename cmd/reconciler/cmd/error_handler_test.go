package cmd

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"testing"

	"golang-transfer-reconciler/pkg/errors"
)

func TestCLIErrorHandler_ExitCodes(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
	}{
		{"no error", nil, 0},
		{"file", errors.FileError(errors.CodeFileNotFound, "in.json", os.ErrNotExist), 2},
		{"parse", errors.ParseError(errors.CodeInvalidFormat, "json input", fmt.Errorf("unexpected EOF")), 3},
		{"validation", errors.InputValidationError(errors.CodeMissingField, "wise", 2, "description"), 3},
		{"configuration", errors.ConfigurationError(errors.CodeInvalidConfig, "min_confidence", 2.0, nil), 4},
		{"reconciliation", errors.ReconciliationError(errors.CodeCanceled, "cross_bank", nil), 5},
		{"wrapped", fmt.Errorf("outer: %w", errors.ConfigurationError(errors.CodeMissingConfig, "input", nil, nil)), 4},
		{"summary", errors.NewErrorSummary([]*errors.ReconcilerError{
			errors.InputValidationError(errors.CodeMissingField, "wise", 0, "date"),
			errors.FileError(errors.CodeFileNotFound, "in.json", nil),
		}), 3},
		{"plain not exist", os.ErrNotExist, 2},
		{"generic", fmt.Errorf("something broke"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			code := NewCLIErrorHandler(&out, false).HandleError(tt.err)
			if code != tt.expectedCode {
				t.Errorf("expected exit code %d, got %d", tt.expectedCode, code)
			}
			if tt.err == nil && out.Len() != 0 {
				t.Errorf("expected no output for nil error, got %q", out.String())
			}
		})
	}
}

func TestCLIErrorHandler_ReconcilerErrorOutput(t *testing.T) {
	err := errors.InputValidationError(errors.CodeMissingField, "wise-usd", 3, "amount")

	var out bytes.Buffer
	NewCLIErrorHandler(&out, false).HandleError(err)
	output := out.String()

	if !strings.HasPrefix(output, "Error: ") {
		t.Errorf("expected error prefix, got %q", output)
	}
	expected := []string{
		"Context:\n  field: amount\n  index: 3\n  source_id: wise-usd\n",
		"Suggestion: ",
		"Validation error help",
	}
	for _, s := range expected {
		if !strings.Contains(output, s) {
			t.Errorf("expected output to contain %q, got:\n%s", s, output)
		}
	}
}

func TestCLIErrorHandler_ErrorSummaryOutput(t *testing.T) {
	var errs []*errors.ReconcilerError
	for i := 0; i < 12; i++ {
		errs = append(errs, errors.InputValidationError(errors.CodeMissingField, "wise-usd", i, "amount"))
	}

	var out bytes.Buffer
	code := NewCLIErrorHandler(&out, false).HandleError(errors.NewErrorSummary(errs))
	if code != 3 {
		t.Errorf("expected exit code 3, got %d", code)
	}

	output := out.String()
	expected := []string{
		"Error: 12 errors occurred (validation: 12)",
		"  - transaction 0 in batch 'wise-usd' is missing required field 'amount'\n",
		"  - transaction 9 in batch 'wise-usd'",
		"  ... and 2 more\n",
		"Validation error help",
	}
	for _, s := range expected {
		if !strings.Contains(output, s) {
			t.Errorf("expected output to contain %q, got:\n%s", s, output)
		}
	}
	if strings.Contains(output, "transaction 10 in batch") {
		t.Errorf("expected the list to stop after 10 entries:\n%s", output)
	}
}

func TestCLIErrorHandler_VerboseShowsCause(t *testing.T) {
	err := errors.ReconciliationError(errors.CodeProcessingError, "matching", fmt.Errorf("index corrupted"))

	var quiet bytes.Buffer
	NewCLIErrorHandler(&quiet, false).HandleError(err)
	if strings.Contains(quiet.String(), "Underlying error") {
		t.Error("cause should only be shown in verbose mode")
	}

	var verbose bytes.Buffer
	NewCLIErrorHandler(&verbose, true).HandleError(err)
	if !strings.Contains(verbose.String(), "Underlying error: index corrupted") {
		t.Errorf("expected cause in verbose output, got:\n%s", verbose.String())
	}
}

func TestCLIErrorHandler_UsageHint(t *testing.T) {
	var out bytes.Buffer
	code := NewCLIErrorHandler(&out, false).HandleError(fmt.Errorf("unknown flag: --bank-files"))
	if code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
	if !strings.Contains(out.String(), "reconciler --help") {
		t.Errorf("expected usage hint, got %q", out.String())
	}
}
