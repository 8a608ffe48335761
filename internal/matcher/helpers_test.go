package matcher

import (
	"time"

	"github.com/shopspring/decimal"

	"golang-transfer-reconciler/internal/models"
)

var testDay = time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)

func newTx(source, amount, description string, date time.Time) *models.Transaction {
	return &models.Transaction{
		SourceID:    source,
		Date:        date,
		Amount:      decimal.RequireFromString(amount),
		Description: description,
		BankTag:     models.ParseBankTag(source),
	}
}

func withExchange(tx *models.Transaction, amount, currency string) *models.Transaction {
	d := decimal.RequireFromString(amount)
	tx.ExchangeAmount = &d
	tx.ExchangeCurrency = currency
	return tx
}

func withCurrency(tx *models.Transaction, currency string) *models.Transaction {
	tx.Currency = currency
	return tx
}

// poolOf assigns ordinals in argument order and local indexes per source
func poolOf(txs ...*models.Transaction) []*models.Transaction {
	perSource := make(map[string]int)
	for i, tx := range txs {
		tx.Ordinal = i
		tx.LocalIndex = perSource[tx.SourceID]
		perSource[tx.SourceID]++
	}
	return txs
}

func namedConfig() *MatchingConfig {
	config := DefaultMatchingConfig()
	config.DisplayName = "Ammar Qazi"
	return config
}

func mustPatterns(config *MatchingConfig) *PatternSet {
	ps, err := CompilePatterns(config)
	if err != nil {
		panic(err)
	}
	return ps
}

func alwaysFree(*models.Transaction) bool { return true }
