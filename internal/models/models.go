// Package models defines the domain types shared by the reconciliation core:
// bank movements parsed from statement exports, the read-only ledger entities
// they are matched against, and the ephemeral match suggestions that flow
// between the matchers and the state machine.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Direction indicates whether money moved into or out of the account.
// It replaces sign-based amount representation: stored amounts are always
// non-negative magnitudes.
type Direction string

const (
	DirectionInflow  Direction = "Inflow"
	DirectionOutflow Direction = "Outflow"
)

// String returns the string representation of Direction.
func (d Direction) String() string {
	return string(d)
}

// IsValid checks if the direction is valid.
func (d Direction) IsValid() bool {
	return d == DirectionInflow || d == DirectionOutflow
}

// DirectionFromAmount derives a direction from a signed amount: zero or
// positive means inflow, negative means outflow.
func DirectionFromAmount(amount decimal.Decimal) Direction {
	if amount.IsNegative() {
		return DirectionOutflow
	}
	return DirectionInflow
}

// MatchStatus is the lifecycle state of a bank movement.
type MatchStatus string

const (
	StatusPending MatchStatus = "pending"
	StatusMatched MatchStatus = "matched"
	StatusManual  MatchStatus = "manual"
	StatusIgnored MatchStatus = "ignored"
)

// String returns the string representation of MatchStatus.
func (s MatchStatus) String() string {
	return string(s)
}

// IsValid checks if the match status is valid.
func (s MatchStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusMatched, StatusManual, StatusIgnored:
		return true
	default:
		return false
	}
}

// InvoiceStatus describes how firm an invoice's figures are.
type InvoiceStatus string

const (
	InvoiceEstimated InvoiceStatus = "Estimated"
	InvoiceActual    InvoiceStatus = "Actual"
	InvoiceNone      InvoiceStatus = "None"
)

// BankMovement is one row of an imported bank statement after normalization.
type BankMovement struct {
	ID             string           `json:"id"`
	PostingDate    time.Time        `json:"postingDate"`
	ValueDate      *time.Time       `json:"valueDate,omitempty"`
	Narrative      string           `json:"narrative,omitempty"`
	Description    string           `json:"description"`
	Amount         decimal.Decimal  `json:"amount"`
	Direction      Direction        `json:"direction"`
	RunningBalance *decimal.Decimal `json:"runningBalance,omitempty"`

	MatchStatus       MatchStatus `json:"matchStatus"`
	MatchedInvoiceID  *string     `json:"matchedInvoiceId,omitempty"`
	MatchedCashflowID *string     `json:"matchedCashflowId,omitempty"`
	MatchConfidence   *int        `json:"matchConfidence,omitempty"`
	MatchReason       *string     `json:"matchReason,omitempty"`

	// Suggestion holds the unconfirmed suggestion produced by the quick
	// matcher or the advisor while the movement is pending. It is never
	// persisted as its own entity.
	Suggestion *MatchSuggestion `json:"suggestion,omitempty"`
}

// NewBankMovement creates a pending movement with a generated id.
func NewBankMovement(postingDate time.Time, description string, amount decimal.Decimal, direction Direction) *BankMovement {
	return &BankMovement{
		ID:          uuid.NewString(),
		PostingDate: postingDate,
		Description: description,
		Amount:      amount,
		Direction:   direction,
		MatchStatus: StatusPending,
	}
}

// Validate performs basic validation on the BankMovement.
func (m *BankMovement) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("movement id cannot be empty")
	}

	if m.PostingDate.IsZero() {
		return fmt.Errorf("movement posting date cannot be zero")
	}

	if m.Amount.IsNegative() {
		return fmt.Errorf("movement amount must be a non-negative magnitude, got %s", m.Amount)
	}

	if !m.Direction.IsValid() {
		return fmt.Errorf("invalid movement direction: %s", m.Direction)
	}

	if !m.MatchStatus.IsValid() {
		return fmt.Errorf("invalid match status: %s", m.MatchStatus)
	}

	return nil
}

// HasSuggestion reports whether an unconfirmed suggestion is stored.
func (m *BankMovement) HasSuggestion() bool {
	return m.Suggestion != nil
}

// Clone returns a deep copy of the movement. State machine transitions
// operate on a clone and commit it atomically.
func (m *BankMovement) Clone() *BankMovement {
	clone := *m

	clone.ValueDate = cloneTime(m.ValueDate)
	clone.RunningBalance = cloneDecimal(m.RunningBalance)
	clone.MatchedInvoiceID = cloneString(m.MatchedInvoiceID)
	clone.MatchedCashflowID = cloneString(m.MatchedCashflowID)
	clone.MatchConfidence = cloneInt(m.MatchConfidence)
	clone.MatchReason = cloneString(m.MatchReason)

	if m.Suggestion != nil {
		suggestion := *m.Suggestion
		suggestion.InvoiceID = cloneString(m.Suggestion.InvoiceID)
		suggestion.CashflowID = cloneString(m.Suggestion.CashflowID)
		clone.Suggestion = &suggestion
	}

	return &clone
}

// String returns a string representation of the BankMovement.
func (m *BankMovement) String() string {
	return fmt.Sprintf("BankMovement{ID: %s, Date: %s, Amount: %s %s, Status: %s}",
		m.ID, m.PostingDate.Format("2006-01-02"), m.Amount.String(), m.Direction, m.MatchStatus)
}

// LedgerInvoice is an invoice owned by the persistence collaborator,
// read-only to this core.
type LedgerInvoice struct {
	ID        string          `json:"id"`
	Direction Direction       `json:"direction"`
	NetAmount decimal.Decimal `json:"netAmount"`
	TaxAmount decimal.Decimal `json:"taxAmount"`
	Status    InvoiceStatus   `json:"status"`
	Date      time.Time       `json:"date"`
	Label     string          `json:"label,omitempty"`
}

// Total returns the invoice total: net amount plus tax.
func (i *LedgerInvoice) Total() decimal.Decimal {
	return i.NetAmount.Add(i.TaxAmount)
}

// LedgerCashflow is a cash-flow record owned by the persistence collaborator.
// It may stand alone or reference an invoice; when no explicit amount is set,
// the effective amount is derived from the linked invoice's total.
type LedgerCashflow struct {
	ID             string           `json:"id"`
	InvoiceID      *string          `json:"invoiceId,omitempty"`
	ExplicitAmount *decimal.Decimal `json:"explicitAmount,omitempty"`
	PaymentDate    time.Time        `json:"paymentDate"`
	Direction      Direction        `json:"direction"`
	Label          string           `json:"label,omitempty"`
}

// MatchSuggestion is an ephemeral proposal produced by the deterministic
// matcher or the advisor, consumed immediately by the state machine or
// discarded. Confidence is always within [0, 100].
type MatchSuggestion struct {
	InvoiceID  *string `json:"invoiceId"`
	CashflowID *string `json:"cashflowId"`
	Confidence int     `json:"confidence"`
	Reason     string  `json:"reason"`
}

// ZeroSuggestion returns an empty suggestion carrying only a diagnostic
// reason. The advisor degrades to this shape on any failure.
func ZeroSuggestion(reason string) *MatchSuggestion {
	return &MatchSuggestion{Confidence: 0, Reason: reason}
}

// IsEmpty reports whether the suggestion names no ledger entity.
func (s *MatchSuggestion) IsEmpty() bool {
	return s.InvoiceID == nil && s.CashflowID == nil
}

// NamesInvoice reports whether the suggestion names the given invoice id.
func (s *MatchSuggestion) NamesInvoice(invoiceID string) bool {
	return s.InvoiceID != nil && *s.InvoiceID == invoiceID
}

// NamesCashflow reports whether the suggestion names the given cashflow id.
func (s *MatchSuggestion) NamesCashflow(cashflowID string) bool {
	return s.CashflowID != nil && *s.CashflowID == cashflowID
}

// StatementMetadata holds account-level information extracted once per
// imported file. Create-once, read-only thereafter.
type StatementMetadata struct {
	AccountNumber  string           `json:"accountNumber,omitempty"`
	AsOfDate       *time.Time       `json:"asOfDate,omitempty"`
	OpeningBalance *decimal.Decimal `json:"openingBalance,omitempty"`
	ClosingBalance *decimal.Decimal `json:"closingBalance,omitempty"`
	PeriodStart    *time.Time       `json:"periodStart,omitempty"`
	PeriodEnd      *time.Time       `json:"periodEnd,omitempty"`
}

// ClampConfidence coerces a confidence value into the [0, 100] range.
func ClampConfidence(confidence int) int {
	if confidence < 0 {
		return 0
	}
	if confidence > 100 {
		return 100
	}
	return confidence
}

// StringPtr returns a pointer to s. Helper for optional reference fields.
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to n.
func IntPtr(n int) *int {
	return &n
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt(n *int) *int {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
