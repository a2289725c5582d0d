package ledger

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"sync"

	"backoffice-reconciliation/internal/models"
	"backoffice-reconciliation/pkg/errors"

	"github.com/google/uuid"
)

// MemoryLedger is an in-memory Snapshot and Mutator. Listings are returned
// in ascending id order, which gives the matchers a deterministic iteration
// order regardless of insertion or re-fetch order.
type MemoryLedger struct {
	mutex     sync.RWMutex
	invoices  map[string]*models.LedgerInvoice
	cashflows map[string]*models.LedgerCashflow
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		invoices:  make(map[string]*models.LedgerInvoice),
		cashflows: make(map[string]*models.LedgerCashflow),
	}
}

// ledgerFile is the JSON fixture shape accepted by LoadFile.
type ledgerFile struct {
	Invoices  []*models.LedgerInvoice  `json:"invoices"`
	Cashflows []*models.LedgerCashflow `json:"cashflows"`
}

// LoadFile populates the ledger from a JSON fixture of invoices and
// cash-flow records.
func (l *MemoryLedger) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.FileError(errors.CodeFileNotFound, path, err)
		}
		return errors.FileError(errors.CodeFileUnreadable, path, err)
	}

	var file ledgerFile
	if err := json.Unmarshal(data, &file); err != nil {
		return errors.Wrap(err, errors.CategoryFile, errors.CodeFileUnreadable,
			"ledger fixture is not valid JSON").WithContext("file_path", path)
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()
	for _, invoice := range file.Invoices {
		l.invoices[invoice.ID] = invoice
	}
	for _, cashflow := range file.Cashflows {
		l.cashflows[cashflow.ID] = cashflow
	}

	return nil
}

// AddInvoice inserts an invoice, assigning an id when absent.
func (l *MemoryLedger) AddInvoice(invoice *models.LedgerInvoice) *models.LedgerInvoice {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if invoice.ID == "" {
		invoice.ID = uuid.NewString()
	}
	l.invoices[invoice.ID] = invoice
	return invoice
}

// AddCashflow inserts a cash-flow record, assigning an id when absent.
func (l *MemoryLedger) AddCashflow(cashflow *models.LedgerCashflow) *models.LedgerCashflow {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if cashflow.ID == "" {
		cashflow.ID = uuid.NewString()
	}
	l.cashflows[cashflow.ID] = cashflow
	return cashflow
}

// ListInvoices implements Snapshot. Results are sorted ascending by id.
func (l *MemoryLedger) ListInvoices(direction *models.Direction) []*models.LedgerInvoice {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	result := make([]*models.LedgerInvoice, 0, len(l.invoices))
	for _, invoice := range l.invoices {
		if direction != nil && invoice.Direction != *direction {
			continue
		}
		result = append(result, invoice)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// ListCashflows implements Snapshot. Results are sorted ascending by id.
func (l *MemoryLedger) ListCashflows() []*models.LedgerCashflow {
	l.mutex.RLock()
	defer l.mutex.RUnlock()

	result := make([]*models.LedgerCashflow, 0, len(l.cashflows))
	for _, cashflow := range l.cashflows {
		result = append(result, cashflow)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// CreateInvoice implements Mutator.
func (l *MemoryLedger) CreateInvoice(_ context.Context, fields InvoiceFields) (*models.LedgerInvoice, error) {
	invoice := &models.LedgerInvoice{
		ID:        uuid.NewString(),
		Direction: fields.Direction,
		NetAmount: fields.NetAmount,
		TaxAmount: fields.TaxAmount,
		Status:    fields.Status,
		Date:      fields.Date,
		Label:     fields.Label,
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.invoices[invoice.ID] = invoice
	return invoice, nil
}

// CreateCashflow implements Mutator.
func (l *MemoryLedger) CreateCashflow(_ context.Context, fields CashflowFields) (*models.LedgerCashflow, error) {
	cashflow := &models.LedgerCashflow{
		ID:             uuid.NewString(),
		InvoiceID:      fields.InvoiceID,
		ExplicitAmount: fields.ExplicitAmount,
		PaymentDate:    fields.PaymentDate,
		Direction:      fields.Direction,
		Label:          fields.Label,
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.cashflows[cashflow.ID] = cashflow
	return cashflow, nil
}
