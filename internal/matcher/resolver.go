package matcher

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"golang-transfer-reconciler/internal/models"
)

// tieEpsilon decides when two confidences count as equal
const tieEpsilon = 1e-9

// pairNamespace seeds the name-based pair ids, so identical input yields identical ids
var pairNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:golang-transfer-reconciler:pair"))

// MatchTuple is one valid (outgoing, incoming) pairing produced by a matcher
// before assignment
type MatchTuple struct {
	Outgoing       *models.Transaction
	Incoming       *models.Transaction
	Strategy       models.MatchStrategy
	Confidence     float64
	ExchangeAmount *decimal.Decimal
	Signals        Signals
}

// MatchState tracks a transaction through assignment
type MatchState int

const (
	StateUnseen MatchState = iota
	StateCandidateFound
	StateConfirmed
	StateConflicted
)

// String returns the string representation of MatchState
func (s MatchState) String() string {
	switch s {
	case StateUnseen:
		return "unseen"
	case StateCandidateFound:
		return "candidate_found"
	case StateConfirmed:
		return "confirmed"
	case StateConflicted:
		return "conflicted"
	default:
		return "unknown"
	}
}

// ConflictResolver commits tuples into pairs so that every transaction ends up
// in at most one pair. It keeps state across calls: a transaction consumed by
// one matching stage is unavailable to the next.
type ConflictResolver struct {
	states map[models.TransactionKey]MatchState
}

// NewConflictResolver creates a resolver with every transaction unseen
func NewConflictResolver() *ConflictResolver {
	return &ConflictResolver{states: make(map[models.TransactionKey]MatchState)}
}

// State returns the assignment state of a transaction
func (r *ConflictResolver) State(tx *models.Transaction) MatchState {
	return r.states[tx.Key()]
}

// IsConsumed reports whether the transaction already belongs to a pair
func (r *ConflictResolver) IsConsumed(tx *models.Transaction) bool {
	s := r.states[tx.Key()]
	return s == StateConfirmed || s == StateConflicted
}

// Resolve assigns tuples highest confidence first, then by outgoing and incoming
// ingestion order. Once selection is finished, a committed tuple that still has
// an equally confident rival with a free other side records a conflict against
// the shared transaction. The committed pair stands; the conflict asks for review.
func (r *ConflictResolver) Resolve(tuples []*MatchTuple) ([]*models.TransferPair, []*models.Conflict) {
	live := make([]*MatchTuple, 0, len(tuples))
	for _, t := range tuples {
		if r.IsConsumed(t.Outgoing) || r.IsConsumed(t.Incoming) {
			continue
		}
		live = append(live, t)
		r.markSeen(t.Outgoing)
		r.markSeen(t.Incoming)
	}

	sort.SliceStable(live, func(i, j int) bool {
		a, b := live[i], live[j]
		if math.Abs(a.Confidence-b.Confidence) >= tieEpsilon {
			return a.Confidence > b.Confidence
		}
		if a.Outgoing.Ordinal != b.Outgoing.Ordinal {
			return a.Outgoing.Ordinal < b.Outgoing.Ordinal
		}
		return a.Incoming.Ordinal < b.Incoming.Ordinal
	})

	pairs := make([]*models.TransferPair, 0)
	pending := make([]*models.Conflict, 0)

	for i, t := range live {
		if r.IsConsumed(t.Outgoing) || r.IsConsumed(t.Incoming) {
			continue
		}

		r.states[t.Outgoing.Key()] = StateConfirmed
		r.states[t.Incoming.Key()] = StateConfirmed
		pairs = append(pairs, newTransferPair(t))

		if c := r.rivals(live, i, t.Outgoing, t.Incoming, func(o *MatchTuple) *models.Transaction { return o.Incoming }); c != nil {
			pending = append(pending, c)
		}
		if c := r.rivals(live, i, t.Incoming, t.Outgoing, func(o *MatchTuple) *models.Transaction { return o.Outgoing }); c != nil {
			pending = append(pending, c)
		}
	}

	conflicts := make([]*models.Conflict, 0, len(pending))
	for _, c := range pending {
		free := c.Competing[:0]
		for _, partner := range c.Competing {
			if !r.IsConsumed(partner) {
				free = append(free, partner)
			}
		}
		if len(free) == 0 {
			continue
		}
		c.Competing = free
		r.states[c.Anchor.Key()] = StateConflicted
		conflicts = append(conflicts, c)
	}

	return pairs, conflicts
}

// rivals collects tuples that share anchor with the committed tuple at index i,
// have the same confidence and whose other side is free at commit time
func (r *ConflictResolver) rivals(live []*MatchTuple, i int, anchor, selected *models.Transaction, other func(*MatchTuple) *models.Transaction) *models.Conflict {
	committed := live[i]
	var competing []*models.Transaction

	for j, o := range live {
		if j == i {
			continue
		}
		if o.Outgoing != anchor && o.Incoming != anchor {
			continue
		}
		if math.Abs(o.Confidence-committed.Confidence) >= tieEpsilon {
			continue
		}
		partner := other(o)
		if partner == selected || r.IsConsumed(partner) {
			continue
		}
		competing = append(competing, partner)
	}

	if len(competing) == 0 {
		return nil
	}

	return &models.Conflict{
		Anchor:               anchor,
		Selected:             selected,
		Competing:            competing,
		Strategy:             committed.Strategy,
		Confidence:           committed.Confidence,
		Reason:               models.ReasonAmbiguousMatch,
		RequiresManualReview: true,
	}
}

func (r *ConflictResolver) markSeen(tx *models.Transaction) {
	if r.states[tx.Key()] == StateUnseen {
		r.states[tx.Key()] = StateCandidateFound
	}
}

func newTransferPair(t *MatchTuple) *models.TransferPair {
	return &models.TransferPair{
		PairID:         PairID(t.Outgoing, t.Incoming),
		Outgoing:       t.Outgoing,
		Incoming:       t.Incoming,
		MatchedAmount:  t.Outgoing.Amount.Abs(),
		ExchangeAmount: t.ExchangeAmount,
		Date:           t.Outgoing.Date,
		Confidence:     t.Confidence,
		Strategy:       t.Strategy,
	}
}

// PairID derives a stable id from the two transaction keys
func PairID(outgoing, incoming *models.Transaction) string {
	name := outgoing.Key().String() + "|" + incoming.Key().String()
	return uuid.NewSHA1(pairNamespace, []byte(name)).String()
}
