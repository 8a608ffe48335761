package reconciler

import (
	"fmt"

	"golang-transfer-reconciler/internal/models"
)

// ApplyCategorization returns one override per transaction in every confirmed
// pair, pair by pair with the outgoing side first. Both sides are categorized
// as a balance correction so transfers drop out of income and expense totals.
func ApplyCategorization(pairs []*models.TransferPair) []models.CategoryOverride {
	overrides := make([]models.CategoryOverride, 0, len(pairs)*2)
	for _, p := range pairs {
		overrides = append(overrides,
			override(p.Outgoing, "outgoing", p),
			override(p.Incoming, "incoming", p),
		)
	}
	return overrides
}

// noteFormat is the override note read by the export side
const noteFormat = "%s transfer \u2014 strategy=%s pair=%s"

func override(tx *models.Transaction, direction string, p *models.TransferPair) models.CategoryOverride {
	return models.CategoryOverride{
		SourceID:   tx.SourceID,
		LocalIndex: tx.LocalIndex,
		Category:   models.CategoryBalanceCorrection,
		Note:       fmt.Sprintf(noteFormat, direction, p.Strategy, p.PairID),
	}
}
