// Package matching implements the deterministic exact-amount matcher and the
// scored candidate ranker. Both are pure functions over a ledger snapshot;
// neither mutates movements or ledger entities.
package matching

import (
	"backoffice-reconciliation/internal/ledger"
	"backoffice-reconciliation/internal/models"

	"github.com/shopspring/decimal"
)

// amountTolerance is the strict upper bound on the absolute difference
// between a movement amount and a ledger amount for an exact match.
var amountTolerance = decimal.RequireFromString("0.01")

const (
	// ConfidenceCashflowMatch is assigned when a movement matches an
	// existing cash-flow record exactly.
	ConfidenceCashflowMatch = 95

	// ConfidenceInvoiceMatch is assigned when a movement matches an
	// unpaid invoice exactly.
	ConfidenceInvoiceMatch = 85

	ReasonCashflowMatch = "exact amount match against an existing cash-flow record"
	ReasonInvoiceMatch  = "exact amount match against an unpaid invoice"
)

// QuickMatch looks for an exact amount match for the movement, cash-flow
// records first, then invoices with no cash-flow record referencing them.
// The first hit wins; candidates are visited in the order the slices carry
// them, which snapshot implementations keep ascending by id so that two
// simultaneously eligible matches resolve the same way on every run.
// Returns nil when nothing matches exactly.
func QuickMatch(movement *models.BankMovement, invoices []*models.LedgerInvoice, cashflows []*models.LedgerCashflow) *models.MatchSuggestion {
	for _, cashflow := range cashflows {
		if cashflow.Direction != movement.Direction {
			continue
		}

		effective, ok := ledger.EffectiveAmount(cashflow, invoices)
		if !ok {
			continue
		}

		if effective.Sub(movement.Amount).Abs().LessThan(amountTolerance) {
			suggestion := &models.MatchSuggestion{
				CashflowID: models.StringPtr(cashflow.ID),
				Confidence: ConfidenceCashflowMatch,
				Reason:     ReasonCashflowMatch,
			}
			if cashflow.InvoiceID != nil {
				suggestion.InvoiceID = models.StringPtr(*cashflow.InvoiceID)
			}
			return suggestion
		}
	}

	referenced := referencedInvoiceIDs(cashflows)
	for _, invoice := range invoices {
		if invoice.Direction != movement.Direction {
			continue
		}
		if referenced[invoice.ID] {
			continue
		}

		if invoice.Total().Sub(movement.Amount).Abs().LessThan(amountTolerance) {
			return &models.MatchSuggestion{
				InvoiceID:  models.StringPtr(invoice.ID),
				Confidence: ConfidenceInvoiceMatch,
				Reason:     ReasonInvoiceMatch,
			}
		}
	}

	return nil
}

// referencedInvoiceIDs collects the ids of invoices that already have a
// cash-flow record pointing at them. Such invoices are considered paid and
// are not eligible for the invoice pass.
func referencedInvoiceIDs(cashflows []*models.LedgerCashflow) map[string]bool {
	referenced := make(map[string]bool, len(cashflows))
	for _, cashflow := range cashflows {
		if cashflow.InvoiceID != nil {
			referenced[*cashflow.InvoiceID] = true
		}
	}
	return referenced
}
