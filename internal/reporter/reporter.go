// Package reporter renders reconciliation reports.
//
// Supported output formats:
//   - Console: human-readable sections for terminal display
//   - JSON: structured data for programmatic consumption
//   - YAML: the same document as JSON, for people who read config files
//   - CSV: the categorization overrides, one row per paired transaction
//
// Example usage:
//
//	config := reporter.DefaultReportConfig()
//	config.Format = reporter.FormatJSON
//	generator, err := reporter.NewReportGenerator(config)
//	if err != nil {
//		return err
//	}
//	err = generator.GenerateReport(report, os.Stdout)
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"golang-transfer-reconciler/internal/models"
	"golang-transfer-reconciler/internal/reconciler"
)

// OutputFormat represents the supported report output formats
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatYAML    OutputFormat = "yaml"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatYAML, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds configuration options for report generation
type ReportConfig struct {
	Format OutputFormat `json:"format" mapstructure:"format"`

	// Section options
	IncludePairs          bool `json:"include_pairs" mapstructure:"include_pairs"`
	IncludeConflicts      bool `json:"include_conflicts" mapstructure:"include_conflicts"`
	IncludeFlagged        bool `json:"include_flagged" mapstructure:"include_flagged"`
	IncludeUnmatched      bool `json:"include_unmatched" mapstructure:"include_unmatched"`
	IncludeDiagnostics    bool `json:"include_diagnostics" mapstructure:"include_diagnostics"`
	IncludeCategorization bool `json:"include_categorization" mapstructure:"include_categorization"`

	// Console formatting options
	UseColors     bool `json:"use_colors" mapstructure:"use_colors"`
	TableMaxWidth int  `json:"table_max_width" mapstructure:"table_max_width"`
	MaxItems      int  `json:"max_items" mapstructure:"max_items"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter" mapstructure:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers" mapstructure:"csv_headers"`
}

// DefaultReportConfig returns a default report configuration
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:                FormatConsole,
		IncludePairs:          true,
		IncludeConflicts:      true,
		IncludeFlagged:        true,
		IncludeUnmatched:      true,
		IncludeDiagnostics:    true,
		IncludeCategorization: false,
		UseColors:             true,
		TableMaxWidth:         120,
		MaxItems:              20,
		CSVDelimiter:          ',',
		CSVHeaders:            true,
	}
}

// Validate validates the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}

	if c.TableMaxWidth < 50 {
		return fmt.Errorf("table max width must be at least 50 characters, got %d", c.TableMaxWidth)
	}

	if c.MaxItems < 0 {
		return fmt.Errorf("max items cannot be negative, got %d", c.MaxItems)
	}

	return nil
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// ReportGenerator generates reconciliation reports in various formats
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a new report generator with the specified configuration
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{
		config: config,
	}, nil
}

// GenerateReport writes the report to writer in the configured format
func (rg *ReportGenerator) GenerateReport(report *models.ReconciliationReport, writer io.Writer) error {
	if report == nil {
		return fmt.Errorf("reconciliation report cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(report, writer)
	case FormatJSON:
		return rg.generateJSONReport(report, writer)
	case FormatYAML:
		return rg.generateYAMLReport(report, writer)
	case FormatCSV:
		return rg.generateCSVReport(report, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) generateJSONReport(report *models.ReconciliationReport, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewReportDocument(report, rg.config))
}

func (rg *ReportGenerator) generateYAMLReport(report *models.ReconciliationReport, writer io.Writer) error {
	encoder := yaml.NewEncoder(writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(NewReportDocument(report, rg.config)); err != nil {
		return err
	}
	return encoder.Close()
}

// generateCSVReport writes the categorization overrides for every paired transaction
func (rg *ReportGenerator) generateCSVReport(report *models.ReconciliationReport, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter

	if rg.config.CSVHeaders {
		if err := csvWriter.Write([]string{"source_id", "local_index", "category", "note"}); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, o := range reconciler.ApplyCategorization(report.Pairs) {
		record := []string{o.SourceID, strconv.Itoa(o.LocalIndex), o.Category, o.Note}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write categorization record: %w", err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func (rg *ReportGenerator) generateConsoleReport(report *models.ReconciliationReport, writer io.Writer) error {
	fmt.Fprintf(writer, "%s\n", rg.style(titleStyle, "TRANSFER RECONCILIATION REPORT"))
	fmt.Fprintf(writer, "Generated: %s\n", report.ProcessedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(writer, "Processing Duration: %v\n\n", report.ProcessingTime)

	rg.section(writer, "SUMMARY")
	rg.printSummary(report.Summary, writer)
	fmt.Fprintln(writer)

	if rg.config.IncludePairs && len(report.Pairs) > 0 {
		rg.section(writer, "TRANSFER PAIRS")
		rg.printPairs(report.Pairs, writer)
		fmt.Fprintln(writer)
	}

	if rg.config.IncludeConflicts && len(report.Conflicts) > 0 {
		rg.section(writer, "CONFLICTS (MANUAL REVIEW)")
		rg.printConflicts(report.Conflicts, writer)
		fmt.Fprintln(writer)
	}

	if rg.config.IncludeFlagged && len(report.Flagged) > 0 {
		rg.section(writer, "FLAGGED TRANSACTIONS")
		for i, f := range report.Flagged {
			if rg.truncated(writer, i, len(report.Flagged)) {
				break
			}
			fmt.Fprintf(writer, "  %d. [%s] %s\n", i+1, f.Reason, rg.describe(f.Transaction))
		}
		fmt.Fprintln(writer)
	}

	if rg.config.IncludeUnmatched && len(report.UnmatchedCandidates) > 0 {
		rg.section(writer, "UNMATCHED TRANSFER CANDIDATES")
		for i, c := range report.UnmatchedCandidates {
			if rg.truncated(writer, i, len(report.UnmatchedCandidates)) {
				break
			}
			fmt.Fprintf(writer, "  %d. %s %s\n", i+1, rg.describe(c.Transaction),
				rg.style(mutedStyle, "(pattern "+c.PatternID+")"))
		}
		fmt.Fprintln(writer)
	}

	if rg.config.IncludeDiagnostics && len(report.Diagnostics) > 0 {
		rg.section(writer, "DIAGNOSTICS")
		for i, d := range report.Diagnostics {
			if rg.truncated(writer, i, len(report.Diagnostics)) {
				break
			}
			fmt.Fprintf(writer, "  %d. %s %s %s=%q: %s\n", i+1, d.Key, rg.style(warnStyle, string(d.Code)), d.Field, d.Value, d.Message)
		}
		fmt.Fprintln(writer)
	}

	return nil
}

func (rg *ReportGenerator) printSummary(s models.Summary, writer io.Writer) {
	fmt.Fprintf(writer, "Transactions:          %d\n", s.TotalTransactions)
	if s.Excluded > 0 {
		fmt.Fprintf(writer, "  Outside Date Range:  %d\n", s.Excluded)
	}
	fmt.Fprintf(writer, "Transfer Candidates:   %d\n", s.Candidates)
	fmt.Fprintf(writer, "Pairs Found:           %d (%.1f%% of transactions paired)\n",
		s.PairsFound, rg.calculatePercentage(s.PairsFound*2, s.TotalTransactions))
	fmt.Fprintf(writer, "  Currency Conversions: %d\n", s.CurrencyConversions)
	fmt.Fprintf(writer, "  Cross-Bank Transfers: %d\n", s.CrossBankTransfers)
	fmt.Fprintf(writer, "Unmatched Candidates:  %d\n", s.UnmatchedCandidates)
	fmt.Fprintf(writer, "Conflicts:             %d\n", s.Conflicts)
	fmt.Fprintf(writer, "Flagged:               %d\n", s.Flagged)
	fmt.Fprintf(writer, "Diagnostics:           %d\n", s.Diagnostics)
}

func (rg *ReportGenerator) printPairs(pairs []*models.TransferPair, writer io.Writer) {
	for i, p := range pairs {
		if rg.truncated(writer, i, len(pairs)) {
			break
		}
		fmt.Fprintf(writer, "  %d. %s confidence=%.2f amount=%s", i+1, p.Strategy, p.Confidence, p.MatchedAmount.StringFixed(2))
		if p.ExchangeAmount != nil {
			fmt.Fprintf(writer, " exchange=%s", p.ExchangeAmount.StringFixed(2))
		}
		fmt.Fprintf(writer, " %s\n", rg.style(mutedStyle, p.PairID))
		fmt.Fprintf(writer, "     out: %s\n", rg.describe(p.Outgoing))
		fmt.Fprintf(writer, "     in:  %s\n", rg.describe(p.Incoming))
	}
}

func (rg *ReportGenerator) printConflicts(conflicts []*models.Conflict, writer io.Writer) {
	for i, c := range conflicts {
		if rg.truncated(writer, i, len(conflicts)) {
			break
		}
		fmt.Fprintf(writer, "  %d. %s %s confidence=%.2f\n", i+1, rg.style(warnStyle, string(c.Reason)), c.Strategy, c.Confidence)
		fmt.Fprintf(writer, "     anchor:    %s\n", rg.describe(c.Anchor))
		fmt.Fprintf(writer, "     selected:  %s\n", rg.describe(c.Selected))
		for _, tx := range c.Competing {
			fmt.Fprintf(writer, "     competing: %s\n", rg.describe(tx))
		}
	}
}

// describe renders one transaction on a single line, cut to the table width
func (rg *ReportGenerator) describe(tx *models.Transaction) string {
	date := "no date"
	if tx.HasDate() {
		date = tx.Date.Format("2006-01-02")
	}
	line := fmt.Sprintf("%s %s %s %s %q", tx.Key(), date, tx.Amount.StringFixed(2), tx.Currency, tx.Description)
	line = strings.Join(strings.Fields(line), " ")
	if width := rg.config.TableMaxWidth; len(line) > width {
		line = line[:width-3] + "..."
	}
	return line
}

func (rg *ReportGenerator) section(writer io.Writer, title string) {
	fmt.Fprintf(writer, "%s\n", rg.style(sectionStyle, "=== "+title+" ==="))
}

func (rg *ReportGenerator) style(style lipgloss.Style, s string) string {
	if !rg.config.UseColors {
		return s
	}
	return style.Render(s)
}

// truncated prints the overflow line once the list passes MaxItems. Zero means no limit.
func (rg *ReportGenerator) truncated(writer io.Writer, i, total int) bool {
	if rg.config.MaxItems == 0 || i < rg.config.MaxItems {
		return false
	}
	fmt.Fprintf(writer, "  ... and %d more\n", total-i)
	return true
}

func (rg *ReportGenerator) calculatePercentage(part, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return float64(part) / float64(total) * 100.0
}

// UpdateConfiguration updates the report generator configuration
func (rg *ReportGenerator) UpdateConfiguration(config *ReportConfig) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid report configuration: %w", err)
	}

	rg.config = config
	return nil
}

// GetConfiguration returns the current configuration
func (rg *ReportGenerator) GetConfiguration() *ReportConfig {
	return rg.config
}
