package matcher

import (
	"golang-transfer-reconciler/internal/models"
)

// CandidateFinder tags transactions whose description matches a transfer-intent pattern
type CandidateFinder struct {
	patterns *PatternSet
}

// NewCandidateFinder creates a finder over a compiled pattern set
func NewCandidateFinder(patterns *PatternSet) *CandidateFinder {
	return &CandidateFinder{patterns: patterns}
}

// Find returns the candidates in input order. Transactions that match no
// pattern are left out.
func (cf *CandidateFinder) Find(transactions []*models.Transaction) []*models.Candidate {
	candidates := make([]*models.Candidate, 0)
	for _, tx := range transactions {
		if c, ok := cf.Match(tx); ok {
			candidates = append(candidates, c)
		}
	}
	return candidates
}

// Match tests one transaction. The first matching pattern wins.
func (cf *CandidateFinder) Match(tx *models.Transaction) (*models.Candidate, bool) {
	pattern, ok := cf.patterns.Match(tx)
	if !ok {
		return nil, false
	}
	return &models.Candidate{
		Transaction: tx,
		PatternID:   pattern.ID,
		PatternKind: pattern.Kind,
	}, true
}
