package models

import "time"

// ReconciliationReport is the result of one reconciliation run
type ReconciliationReport struct {
	Pairs               []*TransferPair       `json:"pairs"`
	UnmatchedCandidates []*Candidate          `json:"unmatched_candidates"`
	Conflicts           []*Conflict           `json:"conflicts"`
	Flagged             []*FlaggedTransaction `json:"flagged"`
	Diagnostics         []Diagnostic          `json:"diagnostics"`
	Summary             Summary               `json:"summary"`
	ProcessedAt         time.Time             `json:"processed_at"`
	ProcessingTime      time.Duration         `json:"processing_time"`
}

// Summary holds the headline counts of a report
type Summary struct {
	TotalTransactions   int `json:"total_transactions" yaml:"total_transactions"`
	Excluded            int `json:"excluded" yaml:"excluded"`
	Candidates          int `json:"candidates" yaml:"candidates"`
	PairsFound          int `json:"pairs_found" yaml:"pairs_found"`
	CurrencyConversions int `json:"currency_conversions" yaml:"currency_conversions"`
	CrossBankTransfers  int `json:"cross_bank_transfers" yaml:"cross_bank_transfers"`
	UnmatchedCandidates int `json:"unmatched_candidates" yaml:"unmatched_candidates"`
	Conflicts           int `json:"conflicts" yaml:"conflicts"`
	Flagged             int `json:"flagged" yaml:"flagged"`
	Diagnostics         int `json:"diagnostics" yaml:"diagnostics"`
}

// NewReconciliationReport returns an empty report with non-nil slices
func NewReconciliationReport() *ReconciliationReport {
	return &ReconciliationReport{
		Pairs:               []*TransferPair{},
		UnmatchedCandidates: []*Candidate{},
		Conflicts:           []*Conflict{},
		Flagged:             []*FlaggedTransaction{},
		Diagnostics:         []Diagnostic{},
		ProcessedAt:         time.Now(),
	}
}

// Summarize recomputes Summary from the report contents. totalTransactions
// counts every normalized transaction, including those a date filter excluded.
func (r *ReconciliationReport) Summarize(totalTransactions, candidates int) {
	s := Summary{
		TotalTransactions:   totalTransactions,
		Excluded:            r.Summary.Excluded,
		Candidates:          candidates,
		PairsFound:          len(r.Pairs),
		UnmatchedCandidates: len(r.UnmatchedCandidates),
		Conflicts:           len(r.Conflicts),
		Flagged:             len(r.Flagged),
		Diagnostics:         len(r.Diagnostics),
	}
	for _, p := range r.Pairs {
		if p.Strategy == StrategyCurrencyConversion {
			s.CurrencyConversions++
		} else if p.Strategy.IsCrossBank() {
			s.CrossBankTransfers++
		}
	}
	r.Summary = s
}

// PairedKeys returns the set of transaction keys that belong to a confirmed pair
func (r *ReconciliationReport) PairedKeys() map[TransactionKey]bool {
	keys := make(map[TransactionKey]bool, len(r.Pairs)*2)
	for _, p := range r.Pairs {
		keys[p.Outgoing.Key()] = true
		keys[p.Incoming.Key()] = true
	}
	return keys
}
