package matching

import (
	"testing"
	"time"

	"backoffice-reconciliation/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cashflowAt(id, amount string, paymentDate time.Time) *models.LedgerCashflow {
	value := decimal.RequireFromString(amount)
	return &models.LedgerCashflow{
		ID:             id,
		Direction:      models.DirectionInflow,
		ExplicitAmount: &value,
		PaymentDate:    paymentDate,
	}
}

func TestRankCandidatesOrdersByScore(t *testing.T) {
	posting := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	movement := models.NewBankMovement(posting, "incasso", decimal.NewFromInt(100), models.DirectionInflow)

	// 0% diff but 10 days out: 100. 5% diff 1 day out: 95 + 50 = 145.
	// 9% diff same day: 91 + 50 = 141.
	cashflows := []*models.LedgerCashflow{
		cashflowAt("cf-exact-far", "100.00", posting.AddDate(0, 0, 10)),
		cashflowAt("cf-close-near", "105.00", posting.AddDate(0, 0, 1)),
		cashflowAt("cf-wide-today", "109.00", posting),
	}

	candidates := RankCandidates(movement, cashflows, nil, nil)
	require.Len(t, candidates, 3)
	assert.Equal(t, "cf-close-near", candidates[0].Cashflow.ID)
	assert.Equal(t, "145", candidates[0].Score.String())
	assert.Equal(t, "cf-wide-today", candidates[1].Cashflow.ID)
	assert.Equal(t, "141", candidates[1].Score.String())
	assert.Equal(t, "cf-exact-far", candidates[2].Cashflow.ID)
	assert.Equal(t, "100", candidates[2].Score.String())
}

func TestRankCandidatesSubPercentDiffScoresFull(t *testing.T) {
	posting := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	movement := models.NewBankMovement(posting, "incasso", decimal.NewFromInt(1000), models.DirectionInflow)

	// 0.5% off and two days out: full 100 for amount plus the date bonus.
	candidates := RankCandidates(movement,
		[]*models.LedgerCashflow{cashflowAt("cf-1", "1005.00", posting.AddDate(0, 0, 2))}, nil, nil)
	require.Len(t, candidates, 1)
	assert.Equal(t, "150", candidates[0].Score.String())
}

func TestRankCandidatesEligibilityWindow(t *testing.T) {
	posting := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	movement := models.NewBankMovement(posting, "incasso", decimal.NewFromInt(100), models.DirectionInflow)

	// 15% off and 15 units off: ineligible on both conditions.
	candidates := RankCandidates(movement,
		[]*models.LedgerCashflow{cashflowAt("cf-out", "115.00", posting)}, nil, nil)
	assert.Empty(t, candidates)

	// 50% off a large movement but only 5 units away: the absolute
	// condition admits it.
	small := models.NewBankMovement(posting, "piccolo", decimal.NewFromInt(10), models.DirectionInflow)
	candidates = RankCandidates(small,
		[]*models.LedgerCashflow{cashflowAt("cf-abs", "15.00", posting)}, nil, nil)
	require.Len(t, candidates, 1)
	assert.Equal(t, "cf-abs", candidates[0].Cashflow.ID)
}

func TestRankCandidatesExcludesConsumedCashflows(t *testing.T) {
	posting := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	movement := models.NewBankMovement(posting, "incasso", decimal.NewFromInt(100), models.DirectionInflow)

	claimed := models.NewBankMovement(posting, "altro", decimal.NewFromInt(100), models.DirectionInflow)
	claimed.MatchStatus = models.StatusMatched
	claimed.MatchedCashflowID = models.StringPtr("cf-1")

	ignored := models.NewBankMovement(posting, "ignorato", decimal.NewFromInt(100), models.DirectionInflow)
	ignored.MatchStatus = models.StatusIgnored

	cashflows := []*models.LedgerCashflow{
		cashflowAt("cf-1", "100.00", posting),
		cashflowAt("cf-2", "101.00", posting),
	}

	candidates := RankCandidates(movement, cashflows, nil,
		[]*models.BankMovement{movement, claimed, ignored})
	require.Len(t, candidates, 1)
	assert.Equal(t, "cf-2", candidates[0].Cashflow.ID)
}

func TestRankCandidatesCapsAtThree(t *testing.T) {
	posting := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	movement := models.NewBankMovement(posting, "incasso", decimal.NewFromInt(100), models.DirectionInflow)

	cashflows := []*models.LedgerCashflow{
		cashflowAt("cf-1", "100.00", posting),
		cashflowAt("cf-2", "101.00", posting),
		cashflowAt("cf-3", "102.00", posting),
		cashflowAt("cf-4", "103.00", posting),
		cashflowAt("cf-5", "104.00", posting),
	}

	candidates := RankCandidates(movement, cashflows, nil, nil)
	assert.Len(t, candidates, MaxCandidates)
}

func TestRankCandidatesResolvesLinkedInvoice(t *testing.T) {
	posting := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	movement := models.NewBankMovement(posting, "incasso", decimal.NewFromInt(122), models.DirectionInflow)

	invoices := []*models.LedgerInvoice{
		{ID: "inv-1", Direction: models.DirectionInflow,
			NetAmount: decimal.NewFromInt(100), TaxAmount: decimal.NewFromInt(22)},
	}
	cashflows := []*models.LedgerCashflow{
		{ID: "cf-1", Direction: models.DirectionInflow,
			InvoiceID: models.StringPtr("inv-1"), PaymentDate: posting},
	}

	candidates := RankCandidates(movement, cashflows, invoices, nil)
	require.Len(t, candidates, 1)
	require.NotNil(t, candidates[0].Invoice)
	assert.Equal(t, "inv-1", candidates[0].Invoice.ID)
	assert.Equal(t, "122", candidates[0].EffectiveAmount.String())
	assert.Equal(t, "150", candidates[0].Score.String())
}
