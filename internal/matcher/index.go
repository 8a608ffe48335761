package matcher

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"golang-transfer-reconciler/internal/models"
)

// TransactionIndex narrows partner lookups for the cross-bank matcher. Amounts
// are bucketed in units of the amount epsilon, so any two amounts closer than
// epsilon land in the same or an adjacent bucket.
type TransactionIndex struct {
	epsilon decimal.Decimal

	// AmountBuckets maps floor(|amount| / epsilon) to transactions
	AmountBuckets map[int64][]*models.Transaction

	// DateSorted holds dated transactions ordered by date, then ordinal
	DateSorted []*models.Transaction

	// AllTransactions holds all indexed transactions in ingestion order
	AllTransactions []*models.Transaction
}

// NewTransactionIndex creates a new index from transactions in ingestion order
func NewTransactionIndex(transactions []*models.Transaction, epsilon decimal.Decimal) *TransactionIndex {
	index := &TransactionIndex{
		epsilon:         epsilon,
		AmountBuckets:   make(map[int64][]*models.Transaction),
		AllTransactions: transactions,
	}

	index.buildIndexes()
	return index
}

func (ti *TransactionIndex) buildIndexes() {
	for _, tx := range ti.AllTransactions {
		key := ti.bucket(tx.Amount)
		ti.AmountBuckets[key] = append(ti.AmountBuckets[key], tx)

		if tx.HasDate() {
			ti.DateSorted = append(ti.DateSorted, tx)
		}
	}

	sort.SliceStable(ti.DateSorted, func(i, j int) bool {
		a, b := ti.DateSorted[i], ti.DateSorted[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return a.Ordinal < b.Ordinal
	})
}

func (ti *TransactionIndex) bucket(amount decimal.Decimal) int64 {
	return amount.Abs().Div(ti.epsilon).Floor().IntPart()
}

// GetByAmount returns transactions whose absolute amount is within epsilon of
// the given amount, in ingestion order
func (ti *TransactionIndex) GetByAmount(amount decimal.Decimal) []*models.Transaction {
	key := ti.bucket(amount)
	target := amount.Abs()

	var result []*models.Transaction
	for _, k := range []int64{key - 1, key, key + 1} {
		for _, tx := range ti.AmountBuckets[k] {
			if models.CompareAmountsWithTolerance(tx.Amount.Abs(), target, ti.epsilon) {
				result = append(result, tx)
			}
		}
	}

	sortByOrdinal(result)
	return result
}

// GetByDateRange returns dated transactions within [start, end] (inclusive), in ingestion order
func (ti *TransactionIndex) GetByDateRange(start, end time.Time) []*models.Transaction {
	startIdx := sort.Search(len(ti.DateSorted), func(i int) bool {
		return !ti.DateSorted[i].Date.Before(start)
	})

	var result []*models.Transaction
	for i := startIdx; i < len(ti.DateSorted); i++ {
		tx := ti.DateSorted[i]
		if tx.Date.After(end) {
			break
		}
		result = append(result, tx)
	}

	sortByOrdinal(result)
	return result
}

// GetIndexStats returns statistics about the index
func (ti *TransactionIndex) GetIndexStats() IndexStats {
	return IndexStats{
		TotalTransactions: len(ti.AllTransactions),
		AmountBuckets:     len(ti.AmountBuckets),
		DatedTransactions: len(ti.DateSorted),
	}
}

// IndexStats provides statistics about index usage
type IndexStats struct {
	TotalTransactions int
	AmountBuckets     int
	DatedTransactions int
}

func sortByOrdinal(txs []*models.Transaction) {
	sort.Slice(txs, func(i, j int) bool {
		return txs[i].Ordinal < txs[j].Ordinal
	})
}
