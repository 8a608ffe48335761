package reporter

import (
	"time"

	"golang-transfer-reconciler/internal/models"
	"golang-transfer-reconciler/internal/reconciler"
)

// ReportDocument is the serialized shape of a report. Amounts are decimal
// strings so no precision is lost in JSON or YAML.
type ReportDocument struct {
	Summary             models.Summary            `json:"summary" yaml:"summary"`
	ProcessedAt         string                    `json:"processed_at" yaml:"processed_at"`
	ProcessingTime      string                    `json:"processing_time" yaml:"processing_time"`
	Pairs               []PairDocument            `json:"pairs,omitempty" yaml:"pairs,omitempty"`
	Conflicts           []ConflictDocument        `json:"conflicts,omitempty" yaml:"conflicts,omitempty"`
	Flagged             []FlagDocument            `json:"flagged,omitempty" yaml:"flagged,omitempty"`
	UnmatchedCandidates []CandidateDocument       `json:"unmatched_candidates,omitempty" yaml:"unmatched_candidates,omitempty"`
	Diagnostics         []models.Diagnostic       `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	Categorization      []models.CategoryOverride `json:"categorization,omitempty" yaml:"categorization,omitempty"`
}

// TransactionDocument is one statement line
type TransactionDocument struct {
	SourceID         string `json:"source_id" yaml:"source_id"`
	LocalIndex       int    `json:"local_index" yaml:"local_index"`
	Date             string `json:"date,omitempty" yaml:"date,omitempty"`
	Amount           string `json:"amount" yaml:"amount"`
	Currency         string `json:"currency,omitempty" yaml:"currency,omitempty"`
	Description      string `json:"description" yaml:"description"`
	BankTag          string `json:"bank_tag" yaml:"bank_tag"`
	ExchangeAmount   string `json:"exchange_amount,omitempty" yaml:"exchange_amount,omitempty"`
	ExchangeCurrency string `json:"exchange_currency,omitempty" yaml:"exchange_currency,omitempty"`
}

// PairDocument is one confirmed transfer pair
type PairDocument struct {
	PairID         string              `json:"pair_id" yaml:"pair_id"`
	Strategy       string              `json:"match_strategy" yaml:"match_strategy"`
	Confidence     float64             `json:"confidence" yaml:"confidence"`
	MatchedAmount  string              `json:"matched_amount" yaml:"matched_amount"`
	ExchangeAmount string              `json:"exchange_amount,omitempty" yaml:"exchange_amount,omitempty"`
	Date           string              `json:"date,omitempty" yaml:"date,omitempty"`
	Outgoing       TransactionDocument `json:"outgoing" yaml:"outgoing"`
	Incoming       TransactionDocument `json:"incoming" yaml:"incoming"`
}

// ConflictDocument is one ambiguous match left for review
type ConflictDocument struct {
	Anchor               TransactionDocument   `json:"anchor" yaml:"anchor"`
	Selected             TransactionDocument   `json:"selected" yaml:"selected"`
	Competing            []TransactionDocument `json:"competing" yaml:"competing"`
	Strategy             string                `json:"match_strategy" yaml:"match_strategy"`
	Confidence           float64               `json:"confidence" yaml:"confidence"`
	Reason               string                `json:"reason" yaml:"reason"`
	RequiresManualReview bool                  `json:"requires_manual_review" yaml:"requires_manual_review"`
}

// FlagDocument is one flagged transaction
type FlagDocument struct {
	Reason      string              `json:"reason" yaml:"reason"`
	Transaction TransactionDocument `json:"transaction" yaml:"transaction"`
}

// CandidateDocument is a transfer candidate that found no partner
type CandidateDocument struct {
	PatternID   string              `json:"pattern_id" yaml:"pattern_id"`
	PatternKind string              `json:"pattern_kind" yaml:"pattern_kind"`
	Transaction TransactionDocument `json:"transaction" yaml:"transaction"`
}

// NewReportDocument converts a report, keeping only the sections enabled in config
func NewReportDocument(report *models.ReconciliationReport, config *ReportConfig) *ReportDocument {
	doc := &ReportDocument{
		Summary:        report.Summary,
		ProcessedAt:    report.ProcessedAt.UTC().Format(time.RFC3339),
		ProcessingTime: report.ProcessingTime.String(),
	}

	if config.IncludePairs {
		for _, p := range report.Pairs {
			doc.Pairs = append(doc.Pairs, pairDocument(p))
		}
	}
	if config.IncludeConflicts {
		for _, c := range report.Conflicts {
			doc.Conflicts = append(doc.Conflicts, conflictDocument(c))
		}
	}
	if config.IncludeFlagged {
		for _, f := range report.Flagged {
			doc.Flagged = append(doc.Flagged, FlagDocument{Reason: string(f.Reason), Transaction: transactionDocument(f.Transaction)})
		}
	}
	if config.IncludeUnmatched {
		for _, c := range report.UnmatchedCandidates {
			doc.UnmatchedCandidates = append(doc.UnmatchedCandidates, CandidateDocument{
				PatternID:   c.PatternID,
				PatternKind: string(c.PatternKind),
				Transaction: transactionDocument(c.Transaction),
			})
		}
	}
	if config.IncludeDiagnostics {
		doc.Diagnostics = report.Diagnostics
	}
	if config.IncludeCategorization {
		doc.Categorization = reconciler.ApplyCategorization(report.Pairs)
	}

	return doc
}

func transactionDocument(tx *models.Transaction) TransactionDocument {
	doc := TransactionDocument{
		SourceID:         tx.SourceID,
		LocalIndex:       tx.LocalIndex,
		Amount:           tx.Amount.String(),
		Currency:         tx.Currency,
		Description:      tx.Description,
		BankTag:          tx.BankTag.String(),
		ExchangeCurrency: tx.ExchangeCurrency,
	}
	if tx.HasDate() {
		doc.Date = tx.Date.Format(time.RFC3339)
	}
	if tx.HasExchangeAmount() {
		doc.ExchangeAmount = tx.ExchangeAmount.String()
	}
	return doc
}

func pairDocument(p *models.TransferPair) PairDocument {
	doc := PairDocument{
		PairID:        p.PairID,
		Strategy:      string(p.Strategy),
		Confidence:    p.Confidence,
		MatchedAmount: p.MatchedAmount.String(),
		Outgoing:      transactionDocument(p.Outgoing),
		Incoming:      transactionDocument(p.Incoming),
	}
	if p.ExchangeAmount != nil {
		doc.ExchangeAmount = p.ExchangeAmount.String()
	}
	if !p.Date.IsZero() {
		doc.Date = p.Date.Format("2006-01-02")
	}
	return doc
}

func conflictDocument(c *models.Conflict) ConflictDocument {
	doc := ConflictDocument{
		Anchor:               transactionDocument(c.Anchor),
		Selected:             transactionDocument(c.Selected),
		Competing:            make([]TransactionDocument, 0, len(c.Competing)),
		Strategy:             string(c.Strategy),
		Confidence:           c.Confidence,
		Reason:               string(c.Reason),
		RequiresManualReview: c.RequiresManualReview,
	}
	for _, tx := range c.Competing {
		doc.Competing = append(doc.Competing, transactionDocument(tx))
	}
	return doc
}
