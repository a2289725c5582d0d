package lifecycle

import (
	"context"
	"time"

	"backoffice-reconciliation/internal/ledger"
	"backoffice-reconciliation/internal/models"
	"backoffice-reconciliation/pkg/errors"
	"backoffice-reconciliation/pkg/logger"

	"github.com/shopspring/decimal"
)

// Suggester produces a fuzzy match suggestion for a pending movement. It
// never fails; failures surface as zero-confidence suggestions.
type Suggester interface {
	Suggest(ctx context.Context, movement *models.BankMovement, snapshot ledger.Snapshot) *models.MatchSuggestion
}

// Machine applies state transitions to bank movements. Every operation
// mutates a clone of the movement and writes the clone back over the
// original only after all checks pass, so a failed transition leaves the
// movement exactly as it was.
type Machine struct {
	snapshot ledger.Snapshot
	mutator  ledger.Mutator
	advisor  Suggester
	log      logger.Logger
}

// NewMachine creates a state machine over the given ledger views. The
// mutator and advisor may be nil when the corresponding operations
// (CreateLedgerEntryAndMatch, RunAdvisor) are not needed.
func NewMachine(snapshot ledger.Snapshot, mutator ledger.Mutator, advisor Suggester, log logger.Logger) *Machine {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Machine{
		snapshot: snapshot,
		mutator:  mutator,
		advisor:  advisor,
		log:      log.WithComponent("lifecycle"),
	}
}

// Confirm accepts the stored suggestion's invoice. The movement must be
// pending and its suggestion must already name the given invoice; the
// suggestion's cash-flow reference, when present, is carried over.
func (m *Machine) Confirm(movement *models.BankMovement, invoiceID string) error {
	if err := m.requireStatus(string(ActionConfirm), movement, models.StatusPending); err != nil {
		return err
	}

	if !movement.HasSuggestion() || !movement.Suggestion.NamesInvoice(invoiceID) {
		return errors.SuggestionError(string(ActionConfirm), invoiceID)
	}

	clone := movement.Clone()
	clone.MatchedInvoiceID = models.StringPtr(invoiceID)
	clone.MatchedCashflowID = nil
	if clone.Suggestion.CashflowID != nil {
		clone.MatchedCashflowID = models.StringPtr(*clone.Suggestion.CashflowID)
	}
	clone.MatchConfidence = models.IntPtr(clone.Suggestion.Confidence)
	clone.MatchReason = models.StringPtr(clone.Suggestion.Reason)
	clone.MatchStatus = models.StatusMatched
	clone.Suggestion = nil

	m.commit(movement, clone, ActionConfirm)
	return nil
}

// ConfirmCashflow matches the movement against a specific cash-flow record,
// pulling in its linked invoice when it has one. Valid from pending only.
func (m *Machine) ConfirmCashflow(movement *models.BankMovement, cashflowID string) error {
	if err := m.requireStatus(string(ActionConfirmCashflow), movement, models.StatusPending); err != nil {
		return err
	}

	cashflow := ledger.FindCashflow(m.snapshot, cashflowID)
	if cashflow == nil {
		return errors.ValidationError(errors.CodeUnknownReference, "cashflowId", cashflowID)
	}
	if cashflow.Direction != movement.Direction {
		return errors.ValidationError(errors.CodeInvalidFormat, "direction", string(cashflow.Direction)).
			WithSuggestion("pick a cash-flow record moving money the same way as the movement")
	}

	clone := movement.Clone()
	clone.MatchedCashflowID = models.StringPtr(cashflowID)
	clone.MatchedInvoiceID = nil
	if cashflow.InvoiceID != nil {
		clone.MatchedInvoiceID = models.StringPtr(*cashflow.InvoiceID)
	}
	if clone.Suggestion != nil && clone.Suggestion.NamesCashflow(cashflowID) {
		clone.MatchConfidence = models.IntPtr(clone.Suggestion.Confidence)
		clone.MatchReason = models.StringPtr(clone.Suggestion.Reason)
	}
	clone.MatchStatus = models.StatusMatched
	clone.Suggestion = nil

	m.commit(movement, clone, ActionConfirmCashflow)
	return nil
}

// ManualMatch records a user-chosen invoice, bypassing any suggestion.
// Valid from any state; clears the cash-flow reference.
func (m *Machine) ManualMatch(movement *models.BankMovement, invoiceID string) error {
	if invoice := ledger.FindInvoice(m.snapshot, invoiceID); invoice == nil {
		return errors.ValidationError(errors.CodeUnknownReference, "invoiceId", invoiceID)
	}

	clone := movement.Clone()
	clone.MatchedInvoiceID = models.StringPtr(invoiceID)
	clone.MatchedCashflowID = nil
	clone.MatchConfidence = nil
	clone.MatchReason = nil
	clone.MatchStatus = models.StatusManual
	clone.Suggestion = nil

	m.commit(movement, clone, ActionManualMatch)
	return nil
}

// Ignore marks a pending movement as not ledger-relevant, for example a
// bank fee.
func (m *Machine) Ignore(movement *models.BankMovement) error {
	if err := m.requireStatus(string(ActionIgnore), movement, models.StatusPending); err != nil {
		return err
	}

	clone := movement.Clone()
	clearMatchFields(clone)
	clone.MatchStatus = models.StatusIgnored

	m.commit(movement, clone, ActionIgnore)
	return nil
}

// Unmatch returns a matched, manual or ignored movement to pending,
// clearing every match field.
func (m *Machine) Unmatch(movement *models.BankMovement) error {
	switch movement.MatchStatus {
	case models.StatusMatched, models.StatusManual, models.StatusIgnored:
	default:
		return errors.TransitionError(string(ActionUnmatch), string(movement.MatchStatus))
	}

	clone := movement.Clone()
	clearMatchFields(clone)
	clone.MatchStatus = models.StatusPending

	m.commit(movement, clone, ActionUnmatch)
	return nil
}

// RunAdvisor asks the advisor for a suggestion and stores it on the
// movement without changing its status. Confirming remains a separate,
// explicit step.
func (m *Machine) RunAdvisor(ctx context.Context, movement *models.BankMovement) error {
	if err := m.requireStatus(string(ActionRunAdvisor), movement, models.StatusPending); err != nil {
		return err
	}
	if m.advisor == nil {
		return errors.ConfigurationError(errors.CodeMissingConfig, "advisor", nil)
	}

	suggestion := m.advisor.Suggest(ctx, movement, m.snapshot)

	clone := movement.Clone()
	clone.Suggestion = suggestion
	clone.MatchConfidence = models.IntPtr(suggestion.Confidence)
	clone.MatchReason = models.StringPtr(suggestion.Reason)

	m.commit(movement, clone, ActionRunAdvisor)
	return nil
}

// EntryKind selects which ledger entity CreateLedgerEntryAndMatch creates.
type EntryKind string

const (
	EntryInvoice  EntryKind = "invoice"
	EntryCashflow EntryKind = "cashflow"
)

// CreateLedgerEntryAndMatch creates a ledger entry shaped after the
// movement and matches the movement against it in one operation, landing in
// the matched state. When the create fails the movement stays pending and
// untouched.
func (m *Machine) CreateLedgerEntryAndMatch(ctx context.Context, movement *models.BankMovement, kind EntryKind, label string) error {
	if err := m.requireStatus(string(ActionCreateAndMatch), movement, models.StatusPending); err != nil {
		return err
	}
	if m.mutator == nil {
		return errors.ConfigurationError(errors.CodeMissingConfig, "mutator", nil)
	}

	clone := movement.Clone()

	switch kind {
	case EntryInvoice:
		invoice, err := m.mutator.CreateInvoice(ctx, ledger.InvoiceFields{
			Direction: movement.Direction,
			NetAmount: movement.Amount,
			TaxAmount: decimal.Zero,
			Status:    models.InvoiceNone,
			Date:      movement.PostingDate,
			Label:     label,
		})
		if err != nil {
			m.log.WithError(err).WithField("movement_id", movement.ID).
				Warn("ledger entry creation failed, movement left pending")
			return err
		}
		clone.MatchedInvoiceID = models.StringPtr(invoice.ID)
		clone.MatchedCashflowID = nil

	case EntryCashflow:
		amount := movement.Amount
		cashflow, err := m.mutator.CreateCashflow(ctx, ledger.CashflowFields{
			ExplicitAmount: &amount,
			PaymentDate:    movement.PostingDate,
			Direction:      movement.Direction,
			Label:          label,
		})
		if err != nil {
			m.log.WithError(err).WithField("movement_id", movement.ID).
				Warn("ledger entry creation failed, movement left pending")
			return err
		}
		clone.MatchedCashflowID = models.StringPtr(cashflow.ID)
		clone.MatchedInvoiceID = nil

	default:
		return errors.ValidationError(errors.CodeInvalidFormat, "kind", string(kind))
	}

	clone.MatchConfidence = nil
	clone.MatchReason = nil
	clone.MatchStatus = models.StatusMatched
	clone.Suggestion = nil

	m.commit(movement, clone, ActionCreateAndMatch)
	return nil
}

// RunAdvisorBatch runs the advisor across every pending movement in order,
// waiting delay between calls to stay under provider rate limits. Failures
// degrade per movement; the batch itself never fails. The progress callback,
// when set, receives (processed, total) after each movement.
func (m *Machine) RunAdvisorBatch(ctx context.Context, movements []*models.BankMovement, delay time.Duration, progress logger.ProgressFunc) int {
	var pending []*models.BankMovement
	for _, movement := range movements {
		if movement.MatchStatus == models.StatusPending {
			pending = append(pending, movement)
		}
	}

	tracker := logger.NewProgressTracker("advisor batch", len(pending), progress)
	for i, movement := range pending {
		if err := ctx.Err(); err != nil {
			m.log.WithError(err).Warn("advisor batch cancelled")
			break
		}

		if err := m.RunAdvisor(ctx, movement); err != nil {
			m.log.WithError(err).WithField("movement_id", movement.ID).
				Warn("advisor run failed for movement")
		}
		tracker.Increment()

		if delay > 0 && i < len(pending)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
		}
	}
	tracker.Done()

	return tracker.Processed()
}

func (m *Machine) requireStatus(operation string, movement *models.BankMovement, want models.MatchStatus) error {
	if movement.MatchStatus != want {
		return errors.TransitionError(operation, string(movement.MatchStatus))
	}
	return nil
}

// commit writes the transitioned clone back over the original movement.
func (m *Machine) commit(movement, clone *models.BankMovement, action Action) {
	*movement = *clone
	m.log.WithFields(logger.Fields{
		"movement_id": movement.ID,
		"action":      string(action),
		"status":      string(movement.MatchStatus),
	}).Debug("movement transitioned")
}

func clearMatchFields(movement *models.BankMovement) {
	movement.MatchedInvoiceID = nil
	movement.MatchedCashflowID = nil
	movement.MatchConfidence = nil
	movement.MatchReason = nil
	movement.Suggestion = nil
}
