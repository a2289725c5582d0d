// Package ledger defines the narrow contracts through which the
// reconciliation core reads and (rarely) mutates the invoice and cash-flow
// records owned by the persistence collaborator, plus an in-memory
// implementation used by tests and the CLI demo flow.
package ledger

import (
	"context"
	"time"

	"backoffice-reconciliation/internal/models"

	"github.com/shopspring/decimal"
)

// Snapshot is the read-only view of the ledger used for one matching pass.
// Implementations must return entities in a stable, documented order; the
// in-memory implementation sorts ascending by id. Callers treat the snapshot
// as immutable for the duration of a match attempt and re-fetch between
// attempts.
type Snapshot interface {
	// ListInvoices returns invoices, optionally filtered by direction.
	ListInvoices(direction *models.Direction) []*models.LedgerInvoice

	// ListCashflows returns all cash-flow records.
	ListCashflows() []*models.LedgerCashflow
}

// InvoiceFields carries the data needed to create a new invoice.
type InvoiceFields struct {
	Direction models.Direction
	NetAmount decimal.Decimal
	TaxAmount decimal.Decimal
	Status    models.InvoiceStatus
	Date      time.Time
	Label     string
}

// CashflowFields carries the data needed to create a new cash-flow record.
type CashflowFields struct {
	InvoiceID      *string
	ExplicitAmount *decimal.Decimal
	PaymentDate    time.Time
	Direction      models.Direction
	Label          string
}

// Mutator is the ledger mutation contract. It is used only by the state
// machine's create-and-match operation; everything else in the core is
// read-only against the ledger.
type Mutator interface {
	// CreateInvoice persists a new invoice and returns it with its
	// assigned id, or fails with a persistence error.
	CreateInvoice(ctx context.Context, fields InvoiceFields) (*models.LedgerInvoice, error)

	// CreateCashflow persists a new cash-flow record and returns it with
	// its assigned id, or fails with a persistence error.
	CreateCashflow(ctx context.Context, fields CashflowFields) (*models.LedgerCashflow, error)
}

// FindInvoice looks up an invoice by id in the snapshot.
func FindInvoice(snapshot Snapshot, id string) *models.LedgerInvoice {
	for _, invoice := range snapshot.ListInvoices(nil) {
		if invoice.ID == id {
			return invoice
		}
	}
	return nil
}

// FindCashflow looks up a cash-flow record by id in the snapshot.
func FindCashflow(snapshot Snapshot, id string) *models.LedgerCashflow {
	for _, cashflow := range snapshot.ListCashflows() {
		if cashflow.ID == id {
			return cashflow
		}
	}
	return nil
}

// EffectiveAmount resolves a cash-flow record's amount: the explicit amount
// when present, otherwise the linked invoice's total. The second return is
// false when neither source is available.
func EffectiveAmount(cashflow *models.LedgerCashflow, invoices []*models.LedgerInvoice) (decimal.Decimal, bool) {
	if cashflow.ExplicitAmount != nil {
		return *cashflow.ExplicitAmount, true
	}

	if cashflow.InvoiceID != nil {
		for _, invoice := range invoices {
			if invoice.ID == *cashflow.InvoiceID {
				return invoice.Total(), true
			}
		}
	}

	return decimal.Zero, false
}
