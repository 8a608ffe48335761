package config

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"golang-transfer-reconciler/internal/matcher"
	"golang-transfer-reconciler/internal/models"
	"golang-transfer-reconciler/internal/reporter"
	"golang-transfer-reconciler/pkg/errors"
	"golang-transfer-reconciler/pkg/logger"
)

func TestCreateMatchingConfig_Defaults(t *testing.T) {
	config, err := CreateMatchingConfig(viper.New())
	if err != nil {
		t.Fatalf("failed to create matching config: %v", err)
	}

	if config.DateToleranceHours != 72 {
		t.Errorf("expected 72h tolerance, got %d", config.DateToleranceHours)
	}
	if config.MinConfidence != 0.7 {
		t.Errorf("expected min confidence 0.7, got %f", config.MinConfidence)
	}
	if !config.LargeAmountThreshold.Equal(decimal.NewFromInt(10000)) {
		t.Errorf("expected large amount 10000, got %s", config.LargeAmountThreshold)
	}
	if len(config.Patterns) != len(matcher.DefaultTransferPatterns()) {
		t.Errorf("expected default patterns, got %d", len(config.Patterns))
	}
	if config.DisplayName != "" {
		t.Errorf("expected no display name, got %q", config.DisplayName)
	}
}

func TestCreateMatchingConfig_Overrides(t *testing.T) {
	v := viper.New()
	v.Set(KeyDisplayName, "  Ammar Qazi ")
	v.Set(KeyDateToleranceHours, 48)
	v.Set(KeyLargeAmount, "5000.50")
	v.Set(KeyAmountEpsilon, 0.05)
	v.Set(KeyMinConfidence, 0.8)
	v.Set(KeyNameAmountTolerance, 0.25)

	config, err := CreateMatchingConfig(v)
	if err != nil {
		t.Fatalf("failed to create matching config: %v", err)
	}

	if config.DisplayName != "Ammar Qazi" {
		t.Errorf("expected trimmed display name, got %q", config.DisplayName)
	}
	if config.DateToleranceHours != 48 {
		t.Errorf("expected 48h tolerance, got %d", config.DateToleranceHours)
	}
	if !config.LargeAmountThreshold.Equal(decimal.RequireFromString("5000.50")) {
		t.Errorf("expected large amount 5000.50, got %s", config.LargeAmountThreshold)
	}
	if !config.AmountEpsilon.Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("expected epsilon 0.05, got %s", config.AmountEpsilon)
	}
	if config.MinConfidence != 0.8 || config.NameAmountTolerance != 0.25 {
		t.Errorf("unexpected thresholds %f / %f", config.MinConfidence, config.NameAmountTolerance)
	}
}

func TestCreateMatchingConfig_Profiles(t *testing.T) {
	tests := []struct {
		profile       string
		override      int
		expectedHours int
	}{
		{profile: "default", expectedHours: 72},
		{profile: "strict", expectedHours: 24},
		{profile: "RELAXED", expectedHours: 120},
		{profile: "strict", override: 36, expectedHours: 36},
	}

	for _, tt := range tests {
		t.Run(tt.profile, func(t *testing.T) {
			v := viper.New()
			v.Set(KeyProfile, tt.profile)
			if tt.override != 0 {
				v.Set(KeyDateToleranceHours, tt.override)
			}

			config, err := CreateMatchingConfig(v)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if config.DateToleranceHours != tt.expectedHours {
				t.Errorf("expected %dh, got %dh", tt.expectedHours, config.DateToleranceHours)
			}
		})
	}
}

func TestCreateMatchingConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  interface{}
	}{
		{"unknown profile", KeyProfile, "lenient"},
		{"bad large amount", KeyLargeAmount, "ten thousand"},
		{"bad epsilon", KeyAmountEpsilon, "0"},
		{"confidence above one", KeyMinConfidence, 1.5},
		{"negative tolerance", KeyDateToleranceHours, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set(tt.key, tt.val)

			_, err := CreateMatchingConfig(v)
			reconcilerErr, ok := errors.AsReconcilerError(err)
			if !ok {
				t.Fatalf("expected ReconcilerError, got %v", err)
			}
			if reconcilerErr.Category != errors.CategoryConfiguration {
				t.Errorf("expected configuration category, got %s", reconcilerErr.Category)
			}
		})
	}
}

func TestCreateMatchingConfig_FromFile(t *testing.T) {
	const file = `
display_name: Ammar Qazi
transfer_keywords: [transfer, remittance]
patterns:
  - id: payroll_move
    kind: generic
    direction: out
    regex: "move to savings"
    banks: [Wise]
weights:
  name_base: 0.3
`
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(file)); err != nil {
		t.Fatalf("failed to read config: %v", err)
	}

	config, err := CreateMatchingConfig(v)
	if err != nil {
		t.Fatalf("failed to create matching config: %v", err)
	}

	if config.DisplayName != "Ammar Qazi" {
		t.Errorf("expected display name from file, got %q", config.DisplayName)
	}
	if strings.Join(config.TransferKeywords, ",") != "transfer,remittance" {
		t.Errorf("unexpected keywords %v", config.TransferKeywords)
	}
	if len(config.Patterns) != 1 {
		t.Fatalf("expected 1 pattern, got %d", len(config.Patterns))
	}

	p := config.Patterns[0]
	if p.ID != "payroll_move" || p.Kind != models.PatternKindGeneric || p.Direction != matcher.DirectionOut {
		t.Errorf("unexpected pattern %+v", p)
	}
	if len(p.Banks) != 1 || p.Banks[0] != models.BankWise {
		t.Errorf("expected bank tag to be normalized, got %v", p.Banks)
	}
	if config.Weights.NameBase != 0.3 {
		t.Errorf("expected name base 0.3, got %f", config.Weights.NameBase)
	}
	if config.Weights.ExactBase != 0.5 {
		t.Errorf("weights missing from the file should keep defaults, got exact base %f", config.Weights.ExactBase)
	}
}

func TestCreateMatchingConfig_FromEnvironment(t *testing.T) {
	t.Setenv("RECONCILER_DISPLAY_NAME", "Jane Doe")
	t.Setenv("RECONCILER_MIN_CONFIDENCE", "0.9")

	v := viper.New()
	Configure(v)

	config, err := CreateMatchingConfig(v)
	if err != nil {
		t.Fatalf("failed to create matching config: %v", err)
	}
	if config.DisplayName != "Jane Doe" {
		t.Errorf("expected display name from environment, got %q", config.DisplayName)
	}
	if config.MinConfidence != 0.9 {
		t.Errorf("expected min confidence from environment, got %f", config.MinConfidence)
	}
}

func TestCreateReconcilerConfig(t *testing.T) {
	v := viper.New()
	v.Set(KeyStartDate, "2025-06-01")
	v.Set(KeyEndDate, "2025-06-30")
	v.Set(KeyIncludeDiagnostics, false)

	config, err := CreateReconcilerConfig(v)
	if err != nil {
		t.Fatalf("failed to create reconciler config: %v", err)
	}

	if config.IncludeDiagnostics {
		t.Error("expected diagnostics to be disabled")
	}
	start := config.Preprocessing.StartDate
	end := config.Preprocessing.EndDate
	if start == nil || !start.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected start date %v", start)
	}
	if end == nil || !end.Equal(time.Date(2025, 6, 30, 23, 59, 59, 0, time.UTC)) {
		t.Errorf("expected end date to cover the whole day, got %v", end)
	}
}

func TestCreateReconcilerConfig_Errors(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]interface{}
	}{
		{"bad start date", map[string]interface{}{KeyStartDate: "06/01/2025"}},
		{"bad end date", map[string]interface{}{KeyEndDate: "June"}},
		{"start after end", map[string]interface{}{KeyStartDate: "2025-07-01", KeyEndDate: "2025-06-01"}},
		{"unknown timezone", map[string]interface{}{KeyTimezone: "Mars/Olympus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.settings {
				v.Set(k, val)
			}
			if _, err := CreateReconcilerConfig(v); err == nil {
				t.Error("expected error but got none")
			}
		})
	}
}

func TestCreateReportConfig(t *testing.T) {
	tests := []struct {
		name           string
		settings       map[string]interface{}
		expectedFormat reporter.OutputFormat
		expectColors   bool
		expectError    bool
	}{
		{
			name:           "defaults",
			settings:       map[string]interface{}{},
			expectedFormat: reporter.FormatConsole,
			expectColors:   true,
		},
		{
			name:           "json",
			settings:       map[string]interface{}{KeyOutputFormat: "JSON"},
			expectedFormat: reporter.FormatJSON,
			expectColors:   true,
		},
		{
			name:           "console to file",
			settings:       map[string]interface{}{KeyOutputFile: "report.txt"},
			expectedFormat: reporter.FormatConsole,
			expectColors:   false,
		},
		{
			name:        "invalid format",
			settings:    map[string]interface{}{KeyOutputFormat: "xml"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.settings {
				v.Set(k, val)
			}

			config, err := CreateReportConfig(v)
			if tt.expectError {
				if err == nil {
					t.Error("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if config.Format != tt.expectedFormat {
				t.Errorf("expected format %s, got %s", tt.expectedFormat, config.Format)
			}
			if config.UseColors != tt.expectColors {
				t.Errorf("expected UseColors %v, got %v", tt.expectColors, config.UseColors)
			}
		})
	}
}

func TestCreateLoggerConfig(t *testing.T) {
	v := viper.New()
	config, err := CreateLoggerConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Level != logger.InfoLevel {
		t.Errorf("expected info level, got %s", config.Level)
	}

	v.Set(KeyLogLevel, "WARN")
	v.Set(KeyLogFormat, "json")
	config, err = CreateLoggerConfig(v)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Level != logger.WarnLevel || config.Format != logger.JSONFormat {
		t.Errorf("unexpected logger config %+v", config)
	}

	v.Set(KeyVerbose, true)
	config, _ = CreateLoggerConfig(v)
	if config.Level != logger.DebugLevel {
		t.Errorf("verbose should force debug level, got %s", config.Level)
	}

	v.Set(KeyLogOutput, "file")
	if _, err := CreateLoggerConfig(v); err == nil {
		t.Error("expected error for file output without a path")
	}
}
