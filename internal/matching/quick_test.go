package matching

import (
	"testing"
	"time"

	"backoffice-reconciliation/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingMovement(amount string, direction models.Direction) *models.BankMovement {
	return models.NewBankMovement(
		time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		"test movement",
		decimal.RequireFromString(amount),
		direction,
	)
}

func TestQuickMatchPrefersCashflowOverInvoice(t *testing.T) {
	// Both an unpaid invoice and a standalone cash-flow record carry the
	// movement's exact amount; the cash-flow pass runs first.
	amount := decimal.RequireFromString("250.00")
	invoices := []*models.LedgerInvoice{
		{ID: "inv-1", Direction: models.DirectionInflow, NetAmount: amount},
	}
	cashflows := []*models.LedgerCashflow{
		{ID: "cf-1", Direction: models.DirectionInflow, ExplicitAmount: &amount},
	}

	suggestion := QuickMatch(pendingMovement("250.00", models.DirectionInflow), invoices, cashflows)
	require.NotNil(t, suggestion)
	assert.Equal(t, ConfidenceCashflowMatch, suggestion.Confidence)
	require.NotNil(t, suggestion.CashflowID)
	assert.Equal(t, "cf-1", *suggestion.CashflowID)
	assert.Nil(t, suggestion.InvoiceID, "standalone cash-flow record names no invoice")
	assert.Equal(t, ReasonCashflowMatch, suggestion.Reason)
}

func TestQuickMatchCashflowCarriesLinkedInvoice(t *testing.T) {
	invoices := []*models.LedgerInvoice{
		{ID: "inv-1", Direction: models.DirectionInflow,
			NetAmount: decimal.NewFromInt(100), TaxAmount: decimal.NewFromInt(22)},
	}
	cashflows := []*models.LedgerCashflow{
		{ID: "cf-1", Direction: models.DirectionInflow, InvoiceID: models.StringPtr("inv-1")},
	}

	suggestion := QuickMatch(pendingMovement("122.00", models.DirectionInflow), invoices, cashflows)
	require.NotNil(t, suggestion)
	require.NotNil(t, suggestion.InvoiceID)
	assert.Equal(t, "inv-1", *suggestion.InvoiceID)
	require.NotNil(t, suggestion.CashflowID)
	assert.Equal(t, "cf-1", *suggestion.CashflowID)
}

func TestQuickMatchFallsBackToUnreferencedInvoice(t *testing.T) {
	invoices := []*models.LedgerInvoice{
		{ID: "inv-1", Direction: models.DirectionInflow, NetAmount: decimal.RequireFromString("99.99")},
	}

	suggestion := QuickMatch(pendingMovement("99.99", models.DirectionInflow), invoices, nil)
	require.NotNil(t, suggestion)
	assert.Equal(t, ConfidenceInvoiceMatch, suggestion.Confidence)
	require.NotNil(t, suggestion.InvoiceID)
	assert.Equal(t, "inv-1", *suggestion.InvoiceID)
	assert.Nil(t, suggestion.CashflowID)
	assert.Equal(t, ReasonInvoiceMatch, suggestion.Reason)
}

func TestQuickMatchSkipsReferencedInvoices(t *testing.T) {
	// The invoice is already paid by a cash-flow record of a different
	// amount, so neither pass may claim it.
	other := decimal.RequireFromString("500.00")
	invoices := []*models.LedgerInvoice{
		{ID: "inv-1", Direction: models.DirectionInflow, NetAmount: decimal.RequireFromString("99.99")},
	}
	cashflows := []*models.LedgerCashflow{
		{ID: "cf-1", Direction: models.DirectionInflow,
			InvoiceID: models.StringPtr("inv-1"), ExplicitAmount: &other},
	}

	assert.Nil(t, QuickMatch(pendingMovement("99.99", models.DirectionInflow), invoices, cashflows))
}

func TestQuickMatchToleranceIsStrict(t *testing.T) {
	invoices := []*models.LedgerInvoice{
		{ID: "inv-1", Direction: models.DirectionInflow, NetAmount: decimal.RequireFromString("100.00")},
	}

	// A difference of exactly 0.01 is not a match.
	assert.Nil(t, QuickMatch(pendingMovement("100.01", models.DirectionInflow), invoices, nil))

	// 0.009 is.
	suggestion := QuickMatch(pendingMovement("100.009", models.DirectionInflow), invoices, nil)
	require.NotNil(t, suggestion)
	assert.Equal(t, ConfidenceInvoiceMatch, suggestion.Confidence)
}

func TestQuickMatchFiltersByDirection(t *testing.T) {
	amount := decimal.RequireFromString("75.00")
	invoices := []*models.LedgerInvoice{
		{ID: "inv-1", Direction: models.DirectionOutflow, NetAmount: amount},
	}
	cashflows := []*models.LedgerCashflow{
		{ID: "cf-1", Direction: models.DirectionOutflow, ExplicitAmount: &amount},
	}

	assert.Nil(t, QuickMatch(pendingMovement("75.00", models.DirectionInflow), invoices, cashflows))
}

func TestQuickMatchResolvesTiesByID(t *testing.T) {
	amount := decimal.RequireFromString("42.00")
	cashflows := []*models.LedgerCashflow{
		{ID: "cf-1", Direction: models.DirectionInflow, ExplicitAmount: &amount},
		{ID: "cf-2", Direction: models.DirectionInflow, ExplicitAmount: &amount},
	}

	suggestion := QuickMatch(pendingMovement("42.00", models.DirectionInflow), nil, cashflows)
	require.NotNil(t, suggestion)
	require.NotNil(t, suggestion.CashflowID)
	assert.Equal(t, "cf-1", *suggestion.CashflowID)
}

func TestQuickMatchReturnsNilWithoutCandidates(t *testing.T) {
	assert.Nil(t, QuickMatch(pendingMovement("10.00", models.DirectionInflow), nil, nil))
}
