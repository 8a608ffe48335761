package reconciler

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang-transfer-reconciler/internal/matcher"
	"golang-transfer-reconciler/internal/models"
	"golang-transfer-reconciler/internal/parsers"
	"golang-transfer-reconciler/pkg/errors"
	"golang-transfer-reconciler/pkg/logger"
)

func namedConfig() *matcher.MatchingConfig {
	config := matcher.DefaultMatchingConfig()
	config.DisplayName = "Ammar Qazi"
	return config
}

func newService(t *testing.T, config *matcher.MatchingConfig) *ReconciliationService {
	t.Helper()
	service, err := NewReconciliationService(config, nil, logger.Discard())
	require.NoError(t, err)
	return service
}

func exchangeBatches() []parsers.RawBatch {
	return []parsers.RawBatch{
		{
			AccountID: "wise-usd",
			BankTag:   "wise",
			Transactions: []parsers.RawTransaction{
				{Date: "2025-06-04", Amount: "-108.99", Currency: "USD", Description: "Sent money to Ammar Qazi",
					ExchangeAmount: "30000", ExchangeCurrency: "PKR"},
				{Date: "2025-06-05", Amount: "-12.50", Currency: "USD", Description: "Coffee"},
			},
		},
		{
			AccountID: "nayapay-main",
			BankTag:   "nayapay",
			Transactions: []parsers.RawTransaction{
				{Date: "2025-06-04", Amount: "30,000", Description: "Incoming fund transfer from Ammar Qazi Bank Alfalah-2050"},
			},
		},
	}
}

func TestReconcile_ExchangeScenario(t *testing.T) {
	report, err := newService(t, namedConfig()).Reconcile(context.Background(), exchangeBatches())
	require.NoError(t, err)

	require.Len(t, report.Pairs, 1)
	pair := report.Pairs[0]
	assert.Equal(t, models.StrategyCrossBankExchange, pair.Strategy)
	assert.GreaterOrEqual(t, pair.Confidence, 0.9)
	assert.Equal(t, models.TransactionKey{SourceID: "wise-usd", LocalIndex: 0}, pair.Outgoing.Key())
	assert.Equal(t, models.TransactionKey{SourceID: "nayapay-main", LocalIndex: 0}, pair.Incoming.Key())
	assert.Equal(t, "PKR", pair.Incoming.Currency)

	assert.Equal(t, models.Summary{
		TotalTransactions:  3,
		Candidates:         2,
		PairsFound:         1,
		CrossBankTransfers: 1,
	}, report.Summary)
	assert.Empty(t, report.Diagnostics)
	assert.False(t, report.ProcessedAt.IsZero())
}

func TestReconcile_ConversionScenario(t *testing.T) {
	batches := []parsers.RawBatch{
		{AccountID: "A", Transactions: []parsers.RawTransaction{
			{Date: "2025-06-04", Amount: "-100.00", Description: "Converted 100.00 USD to 92.00 EUR"},
		}},
		{AccountID: "B", Transactions: []parsers.RawTransaction{
			{Date: "2025-06-04", Amount: "92.00", Description: "Converted USD from USD balance"},
		}},
	}

	report, err := newService(t, nil).Reconcile(context.Background(), batches)
	require.NoError(t, err)

	require.Len(t, report.Pairs, 1)
	assert.Equal(t, models.StrategyCurrencyConversion, report.Pairs[0].Strategy)
	assert.Equal(t, 1, report.Summary.CurrencyConversions)
	assert.Equal(t, 0, report.Summary.CrossBankTransfers)
}

func TestReconcile_NegativeScenario(t *testing.T) {
	batches := []parsers.RawBatch{
		{AccountID: "A", Transactions: []parsers.RawTransaction{
			{Date: "2025-06-01", Amount: "-100", Description: "Grocery store"},
		}},
		{AccountID: "B", Transactions: []parsers.RawTransaction{
			{Date: "2025-06-11", Amount: "100", Description: "Salary"},
		}},
	}

	report, err := newService(t, namedConfig()).Reconcile(context.Background(), batches)
	require.NoError(t, err)

	assert.Empty(t, report.Pairs)
	assert.Empty(t, report.Flagged)
	assert.Empty(t, report.Conflicts)
	assert.Equal(t, 2, report.Summary.TotalTransactions)
}

func TestReconcile_ConflictScenario(t *testing.T) {
	batches := []parsers.RawBatch{
		{AccountID: "wise", BankTag: "wise", Transactions: []parsers.RawTransaction{
			{Date: "2025-06-04", Amount: "-500", Description: "Sent money to Ammar Qazi"},
		}},
		{AccountID: "bank-b", Transactions: []parsers.RawTransaction{
			{Date: "2025-06-04", Amount: "500", Description: "Transfer from Ammar Qazi"},
		}},
		{AccountID: "bank-c", Transactions: []parsers.RawTransaction{
			{Date: "2025-06-04", Amount: "500", Description: "Transfer from Ammar Qazi"},
		}},
	}

	report, err := newService(t, namedConfig()).Reconcile(context.Background(), batches)
	require.NoError(t, err)

	require.Len(t, report.Pairs, 1)
	assert.Equal(t, "bank-b", report.Pairs[0].Incoming.SourceID)

	require.Len(t, report.Conflicts, 1)
	require.Len(t, report.Conflicts[0].Competing, 1)
	assert.Equal(t, "bank-c", report.Conflicts[0].Competing[0].SourceID)
	assert.True(t, report.Conflicts[0].RequiresManualReview)

	assert.Equal(t, 1, report.Summary.Conflicts)
	assert.Equal(t, 1, report.Summary.UnmatchedCandidates)
	assert.Equal(t, 1, report.Summary.Flagged)
}

func TestReconcile_Diagnostics(t *testing.T) {
	batches := []parsers.RawBatch{
		{AccountID: "A", Transactions: []parsers.RawTransaction{
			{Date: "sometime in June", Amount: "-100", Description: "Transfer to savings"},
			{Date: "2025-06-04", Amount: "lots", Description: "Transfer to savings"},
		}},
		{AccountID: "B", Transactions: []parsers.RawTransaction{
			{Date: "2025-06-04", Amount: "100", Description: "Incoming fund transfer"},
		}},
	}

	var buf bytes.Buffer
	service, err := NewReconciliationService(nil, nil, logger.NewWithWriter(&buf, logger.WarnLevel))
	require.NoError(t, err)

	report, err := service.Reconcile(context.Background(), batches)
	require.NoError(t, err)

	assert.Empty(t, report.Pairs, "an undated or zero-amount transaction never pairs")
	require.Len(t, report.Diagnostics, 2)
	assert.Equal(t, models.DiagnosticDateFallback, report.Diagnostics[0].Code)
	assert.Equal(t, models.DiagnosticAmountFallback, report.Diagnostics[1].Code)
	assert.Equal(t, 2, report.Summary.Diagnostics)

	logs := buf.String()
	assert.Contains(t, logs, `"code":"date_parse_fallback"`)
	assert.Contains(t, logs, `"code":"amount_parse_fallback"`)
	assert.Contains(t, logs, `"transaction":"A#0"`)
}

func TestReconcile_DiagnosticsCanBeOmitted(t *testing.T) {
	config := DefaultConfig()
	config.IncludeDiagnostics = false
	service, err := NewReconciliationService(nil, config, logger.Discard())
	require.NoError(t, err)

	report, err := service.Reconcile(context.Background(), []parsers.RawBatch{
		{AccountID: "A", Transactions: []parsers.RawTransaction{{Date: "never", Amount: "1", Description: "x"}}},
	})
	require.NoError(t, err)
	assert.Empty(t, report.Diagnostics)
	assert.NotNil(t, report.Diagnostics)
}

func TestReconcile_InputValidation(t *testing.T) {
	tests := []struct {
		name    string
		batches []parsers.RawBatch
		code    errors.ErrorCode
	}{
		{
			name:    "missing account id",
			batches: []parsers.RawBatch{{Transactions: []parsers.RawTransaction{{Date: "2025-06-04", Amount: "1", Description: "x"}}}},
			code:    errors.CodeInvalidBatch,
		},
		{
			name: "duplicate account id",
			batches: []parsers.RawBatch{
				{AccountID: "A"},
				{AccountID: "A"},
			},
			code: errors.CodeDuplicateSource,
		},
		{
			name:    "missing amount",
			batches: []parsers.RawBatch{{AccountID: "A", Transactions: []parsers.RawTransaction{{Date: "2025-06-04", Description: "x"}}}},
			code:    errors.CodeMissingField,
		},
	}

	service := newService(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := service.Reconcile(context.Background(), tt.batches)
			assert.Nil(t, report)
			require.True(t, errors.IsInputValidation(err), "expected input validation error, got %v", err)

			re, _ := errors.AsReconcilerError(err)
			assert.Equal(t, tt.code, re.Code)
			assert.Equal(t, 3, re.GetExitCode())
		})
	}
}

func TestReconcile_EmptyInput(t *testing.T) {
	report, err := newService(t, nil).Reconcile(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Pairs)
	assert.Equal(t, models.Summary{}, report.Summary)
}

func TestReconcile_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newService(t, namedConfig()).Reconcile(ctx, exchangeBatches())
	re, ok := errors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeCanceled, re.Code)
}

func TestReconcile_ConcurrentRequests(t *testing.T) {
	service := newService(t, namedConfig())

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			report, err := service.Reconcile(context.Background(), exchangeBatches())
			if assert.NoError(t, err) && assert.Len(t, report.Pairs, 1) {
				ids[i] = report.Pairs[0].PairID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestReconcile_DateRangeFilter(t *testing.T) {
	config := DefaultConfig()
	start := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	config.Preprocessing.StartDate = &start

	service, err := NewReconciliationService(namedConfig(), config, logger.Discard())
	require.NoError(t, err)

	report, err := service.Reconcile(context.Background(), exchangeBatches())
	require.NoError(t, err)
	assert.Empty(t, report.Pairs)
	assert.Equal(t, 3, report.Summary.TotalTransactions, "excluded transactions still count toward the total")
	assert.Equal(t, 2, report.Summary.Excluded)
}

func TestReconcileFile(t *testing.T) {
	content := `
- account_id: A
  transactions:
    - date: "2025-06-04"
      amount: "-100.00"
      description: Converted 100.00 USD to 92.00 EUR
- account_id: B
  transactions:
    - date: "2025-06-04"
      amount: "92.00"
      description: Converted USD from USD balance
`
	path := filepath.Join(t.TempDir(), "batches.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.TrimSpace(content)), 0o644))

	report, err := newService(t, nil).ReconcileFile(context.Background(), path, parsers.FormatAuto)
	require.NoError(t, err)
	assert.Len(t, report.Pairs, 1)

	_, err = newService(t, nil).ReconcileFile(context.Background(), filepath.Join(t.TempDir(), "missing.json"), parsers.FormatAuto)
	re, ok := errors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeFileNotFound, re.Code)
}

func TestNewReconciliationService_InvalidConfig(t *testing.T) {
	config := DefaultConfig()
	end := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	start := end.Add(24 * time.Hour)
	config.Preprocessing.StartDate = &start
	config.Preprocessing.EndDate = &end

	_, err := NewReconciliationService(nil, config, logger.Discard())
	re, ok := errors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeInvalidConfig, re.Code)

	matching := matcher.DefaultMatchingConfig()
	matching.DateToleranceHours = -1
	_, err = NewReconciliationService(matching, nil, logger.Discard())
	re, ok = errors.AsReconcilerError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeInvalidConfig, re.Code)
}

func TestReconciliationService_Patterns(t *testing.T) {
	anonymous := newService(t, nil)
	named := newService(t, namedConfig())

	assert.Less(t, len(anonymous.Patterns()), len(named.Patterns()))
	assert.Equal(t, "Ammar Qazi", named.GetMatchingConfig().DisplayName)
}
