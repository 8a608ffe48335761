// Package config turns viper settings (flags, RECONCILER_* environment
// variables and an optional config file) into the configuration values of the
// matcher, reconciler, reporter and logger packages.
//
// Every builder starts from the package defaults and only overrides a value
// when its key is set somewhere, so an unchanged flag never masks a value from
// the config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"golang-transfer-reconciler/internal/matcher"
	"golang-transfer-reconciler/internal/models"
	"golang-transfer-reconciler/internal/reconciler"
	"golang-transfer-reconciler/internal/reporter"
	"golang-transfer-reconciler/pkg/errors"
	"golang-transfer-reconciler/pkg/logger"
)

// Setting keys shared by flags, environment variables and config files
const (
	KeyInput       = "input"
	KeyInputFormat = "format"

	KeyProfile             = "profile"
	KeyDisplayName         = "display_name"
	KeyDateToleranceHours  = "date_tolerance_hours"
	KeyAmountEpsilon       = "amount_epsilon"
	KeyLargeAmount         = "large_amount"
	KeyMinConfidence       = "min_confidence"
	KeyNameAmountTolerance = "name_amount_tolerance"
	KeyPatterns            = "patterns"
	KeyConversionExtractor = "conversion_extractors"
	KeyTransferKeywords    = "transfer_keywords"
	KeyWeights             = "weights"

	KeyStartDate          = "start_date"
	KeyEndDate            = "end_date"
	KeyTimezone           = "timezone"
	KeyIncludeDiagnostics = "include_diagnostics"

	KeyOutputFormat          = "output_format"
	KeyOutputFile            = "output_file"
	KeyIncludeCategorization = "include_categorization"
	KeyColors                = "colors"
	KeyMaxItems              = "max_items"

	KeyLogLevel  = "log.level"
	KeyLogFormat = "log.format"
	KeyLogOutput = "log.output"
	KeyLogFile   = "log.file"
	KeyVerbose   = "verbose"
)

// DateLayout is the layout of --start-date and --end-date
const DateLayout = "2006-01-02"

// Matching profiles selectable with the profile key
const (
	ProfileDefault = "default"
	ProfileStrict  = "strict"
	ProfileRelaxed = "relaxed"
)

// Configure applies the environment conventions of the CLI to v
func Configure(v *viper.Viper) {
	v.SetEnvPrefix("RECONCILER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// CreateMatchingConfig builds the matching configuration from the selected
// profile and any overrides
func CreateMatchingConfig(v *viper.Viper) (*matcher.MatchingConfig, error) {
	var config *matcher.MatchingConfig
	switch profile := strings.ToLower(v.GetString(KeyProfile)); profile {
	case "", ProfileDefault:
		config = matcher.DefaultMatchingConfig()
	case ProfileStrict:
		config = matcher.StrictMatchingConfig()
	case ProfileRelaxed:
		config = matcher.RelaxedMatchingConfig()
	default:
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyProfile, profile, nil).
			WithSuggestion("Use one of: default, strict, relaxed")
	}

	if v.IsSet(KeyDisplayName) {
		config.DisplayName = strings.TrimSpace(v.GetString(KeyDisplayName))
	}
	if v.IsSet(KeyDateToleranceHours) {
		config.DateToleranceHours = v.GetInt(KeyDateToleranceHours)
	}
	if v.IsSet(KeyMinConfidence) {
		config.MinConfidence = v.GetFloat64(KeyMinConfidence)
	}
	if v.IsSet(KeyNameAmountTolerance) {
		config.NameAmountTolerance = v.GetFloat64(KeyNameAmountTolerance)
	}

	var err error
	if v.IsSet(KeyAmountEpsilon) {
		if config.AmountEpsilon, err = decimalSetting(v, KeyAmountEpsilon); err != nil {
			return nil, err
		}
	}
	if v.IsSet(KeyLargeAmount) {
		if config.LargeAmountThreshold, err = decimalSetting(v, KeyLargeAmount); err != nil {
			return nil, err
		}
	}

	if v.IsSet(KeyPatterns) {
		var patterns []matcher.TransferPattern
		if err := v.UnmarshalKey(KeyPatterns, &patterns); err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidPattern, KeyPatterns, nil, err)
		}
		for i := range patterns {
			for j, bank := range patterns[i].Banks {
				patterns[i].Banks[j] = models.ParseBankTag(string(bank))
			}
		}
		config.Patterns = patterns
	}
	if v.IsSet(KeyConversionExtractor) {
		config.ConversionExtractors = v.GetStringSlice(KeyConversionExtractor)
	}
	if v.IsSet(KeyTransferKeywords) {
		config.TransferKeywords = v.GetStringSlice(KeyTransferKeywords)
	}
	if v.IsSet(KeyWeights) {
		if err := v.UnmarshalKey(KeyWeights, &config.Weights); err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyWeights, nil, err)
		}
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "matching", config.String(), err)
	}
	return config, nil
}

// CreateReconcilerConfig builds the service configuration. The end date is
// inclusive through the end of that day.
func CreateReconcilerConfig(v *viper.Viper) (*reconciler.Config, error) {
	config := reconciler.DefaultConfig()

	if v.IsSet(KeyIncludeDiagnostics) {
		config.IncludeDiagnostics = v.GetBool(KeyIncludeDiagnostics)
	}

	if v.IsSet(KeyTimezone) {
		name := v.GetString(KeyTimezone)
		location, err := time.LoadLocation(name)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyTimezone, name, err).
				WithSuggestion("Use an IANA time zone name such as UTC or Europe/Vienna")
		}
		config.Preprocessing.DefaultTimezone = location
	}

	if s := v.GetString(KeyStartDate); s != "" {
		start, err := time.ParseInLocation(DateLayout, s, config.Preprocessing.DefaultTimezone)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyStartDate, s, err).
				WithSuggestion("Use the YYYY-MM-DD format")
		}
		config.Preprocessing.StartDate = &start
	}
	if s := v.GetString(KeyEndDate); s != "" {
		end, err := time.ParseInLocation(DateLayout, s, config.Preprocessing.DefaultTimezone)
		if err != nil {
			return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyEndDate, s, err).
				WithSuggestion("Use the YYYY-MM-DD format")
		}
		end = end.Add(24*time.Hour - time.Second)
		config.Preprocessing.EndDate = &end
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "reconciliation", nil, err)
	}
	return config, nil
}

// CreateReportConfig builds the report configuration for the requested output format
func CreateReportConfig(v *viper.Viper) (*reporter.ReportConfig, error) {
	config := reporter.DefaultReportConfig()

	if v.IsSet(KeyOutputFormat) {
		config.Format = reporter.OutputFormat(strings.ToLower(v.GetString(KeyOutputFormat)))
	}
	if v.IsSet(KeyIncludeCategorization) {
		config.IncludeCategorization = v.GetBool(KeyIncludeCategorization)
	}
	if v.IsSet(KeyIncludeDiagnostics) {
		config.IncludeDiagnostics = v.GetBool(KeyIncludeDiagnostics)
	}
	if v.IsSet(KeyColors) {
		config.UseColors = v.GetBool(KeyColors)
	}
	if v.IsSet(KeyMaxItems) {
		config.MaxItems = v.GetInt(KeyMaxItems)
	}

	// files get plain text
	if v.GetString(KeyOutputFile) != "" {
		config.UseColors = false
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, KeyOutputFormat, config.Format, err).
			WithSuggestion("Valid output formats: console, json, yaml, csv")
	}
	return config, nil
}

// CreateLoggerConfig builds the logger configuration. Verbose forces debug level.
func CreateLoggerConfig(v *viper.Viper) (*logger.Config, error) {
	config := logger.DefaultConfig()

	if v.IsSet(KeyLogLevel) {
		config.Level = logger.Level(strings.ToLower(v.GetString(KeyLogLevel)))
	}
	if v.IsSet(KeyLogFormat) {
		config.Format = logger.Format(strings.ToLower(v.GetString(KeyLogFormat)))
	}
	if v.IsSet(KeyLogOutput) {
		config.Output = logger.Output(strings.ToLower(v.GetString(KeyLogOutput)))
	}
	if v.IsSet(KeyLogFile) {
		config.File = v.GetString(KeyLogFile)
	}
	if v.GetBool(KeyVerbose) {
		config.Level = logger.DebugLevel
	}

	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "log", nil, err)
	}
	return config, nil
}

func decimalSetting(v *viper.Viper, key string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(v.GetString(key))
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, errors.ConfigurationError(errors.CodeInvalidConfig, key, raw, fmt.Errorf("not a decimal number: %w", err))
	}
	return value, nil
}
