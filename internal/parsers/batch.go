// Package parsers turns raw statement batches into the normalized transaction
// pool the matcher works on.
//
// Batches arrive already extracted from bank statements, one batch per
// account, as JSON or YAML documents. Normalization:
//   - validates required fields and fails the whole request, reporting every gap
//   - parses free-form amounts and dates with multi-format fallback
//   - flattens the batches into one pool ordered batch-by-batch, record-by-record
//
// Example usage:
//
//	batches, err := parsers.LoadBatches("statements.json", parsers.FormatAuto)
//	if err != nil {
//		return err
//	}
//	result, err := parsers.NormalizeBatches(batches)
//
// Amounts or dates that cannot be parsed are not errors. The amount degrades
// to zero and the date to absent, and a Diagnostic records the substitution.
package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"golang-transfer-reconciler/internal/models"
	"golang-transfer-reconciler/pkg/errors"
)

// RawBatch is one statement as handed over by the extraction layer
type RawBatch struct {
	AccountID    string           `json:"account_id" yaml:"account_id"`
	BankTag      string           `json:"bank_tag" yaml:"bank_tag"`
	Transactions []RawTransaction `json:"transactions" yaml:"transactions"`
}

// RawTransaction is a statement line before parsing
type RawTransaction struct {
	Date             string `json:"date" yaml:"date"`
	Amount           string `json:"amount" yaml:"amount"`
	Currency         string `json:"currency,omitempty" yaml:"currency,omitempty"`
	Description      string `json:"description" yaml:"description"`
	ExchangeAmount   string `json:"exchange_amount,omitempty" yaml:"exchange_amount,omitempty"`
	ExchangeCurrency string `json:"exchange_currency,omitempty" yaml:"exchange_currency,omitempty"`
}

// UnmarshalJSON accepts amount and exchange_amount either as strings or numbers
func (r *RawTransaction) UnmarshalJSON(data []byte) error {
	type Alias RawTransaction
	aux := &struct {
		Amount         json.RawMessage `json:"amount"`
		ExchangeAmount json.RawMessage `json:"exchange_amount"`
		*Alias
	}{
		Alias: (*Alias)(r),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	amount, err := scalarString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %w", err)
	}
	exchange, err := scalarString(aux.ExchangeAmount)
	if err != nil {
		return fmt.Errorf("invalid exchange_amount: %w", err)
	}

	r.Amount = amount
	r.ExchangeAmount = exchange
	return nil
}

// scalarString returns the text of a JSON string or number
func scalarString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", err
	}
	return n.String(), nil
}

// NormalizeResult holds the flattened pool and the fallbacks applied while building it
type NormalizeResult struct {
	Transactions []*models.Transaction
	Diagnostics  []models.Diagnostic
}

// ValidateBatches checks the structural requirements of the input. A single
// violation is returned as an input validation error; several are returned
// together as an ErrorSummary that unwraps to the first one.
func ValidateBatches(batches []RawBatch) error {
	seen := make(map[string]bool, len(batches))
	var violations []*errors.ReconcilerError

	for i, batch := range batches {
		accountID := strings.TrimSpace(batch.AccountID)
		switch {
		case accountID == "":
			violations = append(violations, errors.InputValidationError(errors.CodeInvalidBatch, "", i, "account_id"))
		case seen[accountID]:
			violations = append(violations, errors.InputValidationError(errors.CodeDuplicateSource, accountID, i, "account_id"))
		}
		seen[accountID] = true

		for j, record := range batch.Transactions {
			if field := firstMissingField(record); field != "" {
				violations = append(violations, errors.InputValidationError(errors.CodeMissingField, accountID, j, field))
			}
		}
	}

	switch len(violations) {
	case 0:
		return nil
	case 1:
		return violations[0]
	default:
		return errors.NewErrorSummary(violations)
	}
}

func firstMissingField(record RawTransaction) string {
	switch {
	case strings.TrimSpace(record.Date) == "":
		return "date"
	case strings.TrimSpace(record.Amount) == "":
		return "amount"
	case strings.TrimSpace(record.Description) == "":
		return "description"
	default:
		return ""
	}
}

// NormalizeBatches validates and flattens batches into the transaction pool.
// Ordinals follow ingestion order and are what every tie-break falls back to.
func NormalizeBatches(batches []RawBatch) (*NormalizeResult, error) {
	if err := ValidateBatches(batches); err != nil {
		return nil, err
	}

	result := &NormalizeResult{
		Transactions: make([]*models.Transaction, 0, countRecords(batches)),
		Diagnostics:  []models.Diagnostic{},
	}

	ordinal := 0
	for _, batch := range batches {
		tag := models.ParseBankTag(batch.BankTag)
		profile := tag.Profile()
		sourceID := strings.TrimSpace(batch.AccountID)

		for j, record := range batch.Transactions {
			tx := &models.Transaction{
				SourceID:         sourceID,
				LocalIndex:       j,
				Ordinal:          ordinal,
				Currency:         normalizeCurrency(record.Currency, profile.DefaultCurrency),
				Description:      strings.TrimSpace(record.Description),
				BankTag:          tag,
				ExchangeCurrency: normalizeCurrency(record.ExchangeCurrency, ""),
			}
			ordinal++

			amount, err := ParseAmount(record.Amount)
			if err != nil {
				result.Diagnostics = append(result.Diagnostics,
					fallback(tx, models.DiagnosticAmountFallback, "amount", record.Amount, err))
			} else {
				tx.Amount = amount
			}

			date, err := ParseDate(record.Date)
			if err != nil {
				result.Diagnostics = append(result.Diagnostics,
					fallback(tx, models.DiagnosticDateFallback, "date", record.Date, err))
			} else {
				tx.Date = date
			}

			if strings.TrimSpace(record.ExchangeAmount) != "" {
				exchange, err := ParseAmount(record.ExchangeAmount)
				if err != nil {
					result.Diagnostics = append(result.Diagnostics,
						fallback(tx, models.DiagnosticAmountFallback, "exchange_amount", record.ExchangeAmount, err))
				} else {
					exchange = exchange.Abs()
					tx.ExchangeAmount = &exchange
				}
			}

			result.Transactions = append(result.Transactions, tx)
		}
	}

	return result, nil
}

func normalizeCurrency(currency, fallback string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return fallback
	}
	return currency
}

func fallback(tx *models.Transaction, code models.DiagnosticCode, field, value string, err error) models.Diagnostic {
	return models.Diagnostic{
		Key:     tx.Key(),
		Code:    code,
		Field:   field,
		Value:   value,
		Message: err.Error(),
	}
}

func countRecords(batches []RawBatch) int {
	total := 0
	for _, b := range batches {
		total += len(b.Transactions)
	}
	return total
}
