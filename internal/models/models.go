package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BankTag identifies the statement provider a batch was extracted from
type BankTag string

const (
	BankWise    BankTag = "wise"
	BankNayaPay BankTag = "nayapay"
	BankErste   BankTag = "erste"
	BankRevolut BankTag = "revolut"
	BankGeneric BankTag = "generic"
)

// BankProfile holds per-provider defaults used during normalization
type BankProfile struct {
	Tag             BankTag
	DisplayName     string
	DefaultCurrency string
}

var bankProfiles = map[BankTag]BankProfile{
	BankWise:    {Tag: BankWise, DisplayName: "Wise", DefaultCurrency: ""},
	BankNayaPay: {Tag: BankNayaPay, DisplayName: "NayaPay", DefaultCurrency: "PKR"},
	BankErste:   {Tag: BankErste, DisplayName: "Erste Bank", DefaultCurrency: "EUR"},
	BankRevolut: {Tag: BankRevolut, DisplayName: "Revolut", DefaultCurrency: ""},
	BankGeneric: {Tag: BankGeneric, DisplayName: "Generic", DefaultCurrency: ""},
}

// ParseBankTag maps a free-form tag onto a known BankTag. Unknown tags map to BankGeneric.
func ParseBankTag(s string) BankTag {
	tag := BankTag(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := bankProfiles[tag]; ok {
		return tag
	}
	return BankGeneric
}

// Profile returns the lookup-table entry for the tag
func (b BankTag) Profile() BankProfile {
	if p, ok := bankProfiles[b]; ok {
		return p
	}
	return bankProfiles[BankGeneric]
}

// String returns the string representation of BankTag
func (b BankTag) String() string {
	return string(b)
}

// TransactionKey identifies a transaction by its provenance
type TransactionKey struct {
	SourceID   string `json:"source_id" yaml:"source_id"`
	LocalIndex int    `json:"local_index" yaml:"local_index"`
}

// String returns "source#index"
func (k TransactionKey) String() string {
	return fmt.Sprintf("%s#%d", k.SourceID, k.LocalIndex)
}

// Transaction is one normalized statement line. The sign of Amount encodes the
// direction in its own account: negative is outgoing, positive is incoming.
// A zero Date means the statement date could not be parsed.
type Transaction struct {
	SourceID         string
	LocalIndex       int
	Ordinal          int
	Date             time.Time
	Amount           decimal.Decimal
	Currency         string
	Description      string
	BankTag          BankTag
	ExchangeAmount   *decimal.Decimal
	ExchangeCurrency string
}

// Key returns the provenance key of the transaction
func (t *Transaction) Key() TransactionKey {
	return TransactionKey{SourceID: t.SourceID, LocalIndex: t.LocalIndex}
}

// IsOutgoing returns true for money leaving the account
func (t *Transaction) IsOutgoing() bool {
	return t.Amount.IsNegative()
}

// IsIncoming returns true for money entering the account
func (t *Transaction) IsIncoming() bool {
	return t.Amount.IsPositive()
}

// GetAbsoluteAmount returns the absolute value of the transaction amount
func (t *Transaction) GetAbsoluteAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// HasDate reports whether the statement date was parsed
func (t *Transaction) HasDate() bool {
	return !t.Date.IsZero()
}

// HasExchangeAmount reports whether the statement carried a converted-to amount
func (t *Transaction) HasExchangeAmount() bool {
	return t.ExchangeAmount != nil
}

// SameCalendarDay compares the calendar dates of two transactions
func (t *Transaction) SameCalendarDay(other *Transaction) bool {
	if !t.HasDate() || !other.HasDate() {
		return false
	}
	return t.Date.Format("2006-01-02") == other.Date.Format("2006-01-02")
}

// WithinTolerance reports whether both dates are known and at most tolerance apart
func (t *Transaction) WithinTolerance(other *Transaction, tolerance time.Duration) bool {
	if !t.HasDate() || !other.HasDate() {
		return false
	}
	diff := t.Date.Sub(other.Date)
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance
}

// String returns a string representation of the Transaction
func (t *Transaction) String() string {
	date := "unknown"
	if t.HasDate() {
		date = t.Date.Format("2006-01-02")
	}
	return fmt.Sprintf("Transaction{Key: %s, Amount: %s %s, Date: %s, Description: %q}",
		t.Key(), t.Amount.String(), t.Currency, date, t.Description)
}

// MarshalJSON implements custom JSON marshaling for Transaction
func (t *Transaction) MarshalJSON() ([]byte, error) {
	var exchange string
	if t.ExchangeAmount != nil {
		exchange = t.ExchangeAmount.String()
	}
	var date string
	if t.HasDate() {
		date = t.Date.Format(time.RFC3339)
	}
	return json.Marshal(&struct {
		SourceID         string  `json:"source_id"`
		LocalIndex       int     `json:"local_index"`
		Date             string  `json:"date,omitempty"`
		Amount           string  `json:"amount"`
		Currency         string  `json:"currency,omitempty"`
		Description      string  `json:"description"`
		BankTag          BankTag `json:"bank_tag"`
		ExchangeAmount   string  `json:"exchange_amount,omitempty"`
		ExchangeCurrency string  `json:"exchange_currency,omitempty"`
	}{
		SourceID:         t.SourceID,
		LocalIndex:       t.LocalIndex,
		Date:             date,
		Amount:           t.Amount.String(),
		Currency:         t.Currency,
		Description:      t.Description,
		BankTag:          t.BankTag,
		ExchangeAmount:   exchange,
		ExchangeCurrency: t.ExchangeCurrency,
	})
}

// PatternKind groups transfer-intent patterns by what they detect
type PatternKind string

const (
	PatternKindConversion PatternKind = "conversion"
	PatternKindNamed      PatternKind = "named"
	PatternKindGeneric    PatternKind = "generic"
)

// Candidate is a transaction whose description matched a transfer-intent pattern
type Candidate struct {
	Transaction *Transaction `json:"transaction"`
	PatternID   string       `json:"pattern_id"`
	PatternKind PatternKind  `json:"pattern_kind"`
}

// MatchStrategy names the rule that produced a transfer pair
type MatchStrategy string

const (
	StrategyCurrencyConversion MatchStrategy = "currency_conversion"
	StrategyCrossBankExact     MatchStrategy = "cross_bank_exact"
	StrategyCrossBankExchange  MatchStrategy = "cross_bank_exchange"
	StrategyCrossBankName      MatchStrategy = "cross_bank_name"
)

// IsCrossBank reports whether the strategy belongs to the cross-bank matcher
func (s MatchStrategy) IsCrossBank() bool {
	return s == StrategyCrossBankExact || s == StrategyCrossBankExchange || s == StrategyCrossBankName
}

// TransferPair links the two ledger sides of one money movement.
// Outgoing.Amount is always negative and Incoming.Amount always positive.
type TransferPair struct {
	PairID         string           `json:"pair_id"`
	Outgoing       *Transaction     `json:"outgoing"`
	Incoming       *Transaction     `json:"incoming"`
	MatchedAmount  decimal.Decimal  `json:"matched_amount"`
	ExchangeAmount *decimal.Decimal `json:"exchange_amount,omitempty"`
	Date           time.Time        `json:"date"`
	Confidence     float64          `json:"confidence"`
	Strategy       MatchStrategy    `json:"match_strategy"`
}

// Validate checks the direction invariant of the pair
func (p *TransferPair) Validate() error {
	if p.Outgoing == nil || p.Incoming == nil {
		return fmt.Errorf("transfer pair %s is missing a side", p.PairID)
	}
	if !p.Outgoing.IsOutgoing() {
		return fmt.Errorf("transfer pair %s outgoing amount %s is not negative", p.PairID, p.Outgoing.Amount)
	}
	if !p.Incoming.IsIncoming() {
		return fmt.Errorf("transfer pair %s incoming amount %s is not positive", p.PairID, p.Incoming.Amount)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return fmt.Errorf("transfer pair %s confidence %f outside [0,1]", p.PairID, p.Confidence)
	}
	return nil
}

// ConflictReason explains why a conflict was raised
type ConflictReason string

const (
	ReasonAmbiguousMatch ConflictReason = "ambiguous_match_conflict"
)

// Conflict is raised when a transaction had more than one equally plausible partner
type Conflict struct {
	Anchor               *Transaction   `json:"anchor"`
	Selected             *Transaction   `json:"selected,omitempty"`
	Competing            []*Transaction `json:"competing"`
	Strategy             MatchStrategy  `json:"match_strategy"`
	Confidence           float64        `json:"confidence"`
	Reason               ConflictReason `json:"reason"`
	RequiresManualReview bool           `json:"requires_manual_review"`
}

// FlagReason explains why an unmatched transaction was flagged
type FlagReason string

const (
	FlagLargeAmount        FlagReason = "large_amount_potential_transfer"
	FlagUnmatchedCandidate FlagReason = "unmatched_transfer_candidate"
)

// FlaggedTransaction is an unmatched transaction that deserves a second look
type FlaggedTransaction struct {
	Transaction *Transaction `json:"transaction"`
	Reason      FlagReason   `json:"reason"`
}

// DiagnosticCode classifies non-fatal input problems
type DiagnosticCode string

const (
	DiagnosticAmountFallback DiagnosticCode = "amount_parse_fallback"
	DiagnosticDateFallback   DiagnosticCode = "date_parse_fallback"
)

// Diagnostic records a value that was substituted during normalization
type Diagnostic struct {
	Key     TransactionKey `json:"key" yaml:"key"`
	Code    DiagnosticCode `json:"code" yaml:"code"`
	Field   string         `json:"field" yaml:"field"`
	Value   string         `json:"value" yaml:"value"`
	Message string         `json:"message" yaml:"message"`
}

// CategoryOverride is handed to the categorization collaborator for each paired transaction
type CategoryOverride struct {
	SourceID   string `json:"source_id" yaml:"source_id"`
	LocalIndex int    `json:"local_index" yaml:"local_index"`
	Category   string `json:"category" yaml:"category"`
	Note       string `json:"note" yaml:"note"`
}

// CategoryBalanceCorrection is the category assigned to both sides of a transfer
const CategoryBalanceCorrection = "Balance Correction"

// CompareAmountsWithTolerance reports whether |a-b| < tolerance
func CompareAmountsWithTolerance(a, b, tolerance decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(tolerance)
}
