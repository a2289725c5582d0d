package matching

import (
	"sort"
	"time"

	"backoffice-reconciliation/internal/ledger"
	"backoffice-reconciliation/internal/models"

	"github.com/shopspring/decimal"
)

// MaxCandidates caps how many ranked candidates are surfaced for manual
// review.
const MaxCandidates = 3

var (
	hundred          = decimal.NewFromInt(100)
	maxDiffPercent   = decimal.NewFromInt(10)
	maxDiffAbsolute  = decimal.NewFromInt(10)
	exactDiffPercent = decimal.NewFromInt(1)
)

// ScoredCandidate pairs a candidate cash-flow record with its ranking score
// and the distances the score was derived from.
type ScoredCandidate struct {
	Cashflow        *models.LedgerCashflow
	Invoice         *models.LedgerInvoice
	EffectiveAmount decimal.Decimal
	Score           decimal.Decimal
	AmountDiffPct   decimal.Decimal
	DateDiffDays    int
}

// RankCandidates scores cash-flow records as manual-review suggestions for a
// movement that the exact matcher could not explain. A record is eligible
// when no other matched or manual movement already references it and its
// effective amount is within 10% or 10 currency units of the movement.
// Scores reward amount proximity (up to 100) and payment dates within three
// days of the posting date (flat 50). At most MaxCandidates entries are
// returned, descending by score. The ranking never applies a match on its
// own.
func RankCandidates(movement *models.BankMovement, cashflows []*models.LedgerCashflow, invoices []*models.LedgerInvoice, allMovements []*models.BankMovement) []ScoredCandidate {
	consumed := consumedCashflowIDs(movement.ID, allMovements)

	var candidates []ScoredCandidate
	for _, cashflow := range cashflows {
		if consumed[cashflow.ID] {
			continue
		}

		effective, ok := ledger.EffectiveAmount(cashflow, invoices)
		if !ok {
			continue
		}

		diff := effective.Sub(movement.Amount).Abs()
		var diffPct decimal.Decimal
		if movement.Amount.IsZero() {
			diffPct = hundred
		} else {
			diffPct = diff.Mul(hundred).Div(movement.Amount)
		}

		if diffPct.GreaterThanOrEqual(maxDiffPercent) && diff.GreaterThanOrEqual(maxDiffAbsolute) {
			continue
		}

		score := hundred
		if diffPct.GreaterThanOrEqual(exactDiffPercent) {
			score = hundred.Sub(diffPct)
		}

		dateDiff := wholeDaysBetween(cashflow.PaymentDate, movement.PostingDate)
		if dateDiff < 3 {
			score = score.Add(decimal.NewFromInt(50))
		}

		candidate := ScoredCandidate{
			Cashflow:        cashflow,
			EffectiveAmount: effective,
			Score:           score,
			AmountDiffPct:   diffPct,
			DateDiffDays:    dateDiff,
		}
		if cashflow.InvoiceID != nil {
			for _, invoice := range invoices {
				if invoice.ID == *cashflow.InvoiceID {
					candidate.Invoice = invoice
					break
				}
			}
		}

		candidates = append(candidates, candidate)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score.GreaterThan(candidates[j].Score)
	})

	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}
	return candidates
}

// consumedCashflowIDs collects cash-flow ids already claimed by another
// movement in a matched or manual state.
func consumedCashflowIDs(movementID string, movements []*models.BankMovement) map[string]bool {
	consumed := make(map[string]bool)
	for _, other := range movements {
		if other.ID == movementID {
			continue
		}
		if other.MatchStatus != models.StatusMatched && other.MatchStatus != models.StatusManual {
			continue
		}
		if other.MatchedCashflowID != nil {
			consumed[*other.MatchedCashflowID] = true
		}
	}
	return consumed
}

func wholeDaysBetween(a, b time.Time) int {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return int(diff.Hours() / 24)
}
