// Package advisor implements AI-assisted fuzzy matching for movements the
// deterministic matcher could not explain. The advisor never fails outward:
// transport, parsing and validation errors all degrade into a
// zero-confidence suggestion whose reason carries the diagnostic.
package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"backoffice-reconciliation/internal/ledger"
	"backoffice-reconciliation/internal/models"
	"backoffice-reconciliation/pkg/logger"
)

// Collaborator is the external reasoning service the advisor consults. One
// prompt in, one textual completion out.
type Collaborator interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

const (
	// DefaultBatchDelay spaces successive collaborator calls to respect
	// provider rate limits.
	DefaultBatchDelay = 1 * time.Second

	reasonNoCounterpart = "no counterpart of this direction exists"
	reasonDefault       = "analysis completed"
)

// Advisor wraps a Collaborator with prompt construction and response
// validation.
type Advisor struct {
	collaborator Collaborator
	log          logger.Logger
}

// New creates an Advisor over the given collaborator.
func New(collaborator Collaborator, log logger.Logger) *Advisor {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Advisor{
		collaborator: collaborator,
		log:          log.WithComponent("advisor"),
	}
}

// Suggest asks the collaborator for a match suggestion. Ledger entries are
// filtered to the movement's direction first; when none remain the
// collaborator is not contacted at all. The returned suggestion may name
// ledger ids that do not exist, the caller validates references before
// confirming.
func (a *Advisor) Suggest(ctx context.Context, movement *models.BankMovement, snapshot ledger.Snapshot) *models.MatchSuggestion {
	direction := movement.Direction
	invoices := snapshot.ListInvoices(&direction)

	var cashflows []*models.LedgerCashflow
	for _, cashflow := range snapshot.ListCashflows() {
		if cashflow.Direction == direction {
			cashflows = append(cashflows, cashflow)
		}
	}

	if len(invoices) == 0 && len(cashflows) == 0 {
		return models.ZeroSuggestion(reasonNoCounterpart)
	}

	prompt := buildPrompt(movement, invoices, cashflows)

	reply, err := a.collaborator.Complete(ctx, prompt)
	if err != nil {
		a.log.WithError(err).WithField("movement_id", movement.ID).
			Warn("advisor call failed")
		return models.ZeroSuggestion(fmt.Sprintf("advisor unavailable: %v", err))
	}

	return parseReply(reply)
}

// SuggestBatch runs Suggest over the pending movements only, in order,
// waiting delay between collaborator calls. Per-item failures become
// zero-confidence suggestions and never abort the batch. The progress
// callback, when set, receives (processed, total) after each movement.
// Returns the suggestions keyed by movement id.
func (a *Advisor) SuggestBatch(ctx context.Context, movements []*models.BankMovement, snapshot ledger.Snapshot, delay time.Duration, progress logger.ProgressFunc) map[string]*models.MatchSuggestion {
	var pending []*models.BankMovement
	for _, movement := range movements {
		if movement.MatchStatus == models.StatusPending {
			pending = append(pending, movement)
		}
	}

	results := make(map[string]*models.MatchSuggestion, len(pending))
	tracker := logger.NewProgressTracker("advisor batch", len(pending), progress)

	for i, movement := range pending {
		if err := ctx.Err(); err != nil {
			a.log.WithError(err).Warn("advisor batch cancelled")
			break
		}

		results[movement.ID] = a.Suggest(ctx, movement, snapshot)
		tracker.Increment()

		if delay > 0 && i < len(pending)-1 {
			select {
			case <-ctx.Done():
			case <-time.After(delay):
			}
		}
	}
	tracker.Done()

	return results
}

// buildPrompt renders the movement and the direction-filtered ledger entries
// into a bounded textual context plus strict output instructions.
func buildPrompt(movement *models.BankMovement, invoices []*models.LedgerInvoice, cashflows []*models.LedgerCashflow) string {
	var b strings.Builder

	b.WriteString("You reconcile bank statement movements against a small-business ledger.\n\n")
	b.WriteString("Movement:\n")
	fmt.Fprintf(&b, "  date=%s amount=%s direction=%s description=%q",
		movement.PostingDate.Format("2006-01-02"), movement.Amount.String(),
		movement.Direction, movement.Description)
	if movement.Narrative != "" {
		fmt.Fprintf(&b, " narrative=%q", movement.Narrative)
	}
	b.WriteString("\n\nInvoices:\n")
	if len(invoices) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, invoice := range invoices {
		fmt.Fprintf(&b, "  id=%s date=%s total=%s label=%q status=%s\n",
			invoice.ID, invoice.Date.Format("2006-01-02"), invoice.Total().String(),
			invoice.Label, invoice.Status)
	}
	b.WriteString("\nCash-flow records:\n")
	if len(cashflows) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, cashflow := range cashflows {
		amount := "derived"
		if cashflow.ExplicitAmount != nil {
			amount = cashflow.ExplicitAmount.String()
		}
		linked := "null"
		if cashflow.InvoiceID != nil {
			linked = *cashflow.InvoiceID
		}
		fmt.Fprintf(&b, "  id=%s paymentDate=%s amount=%s linkedInvoiceId=%s label=%q\n",
			cashflow.ID, cashflow.PaymentDate.Format("2006-01-02"), amount, linked, cashflow.Label)
	}

	b.WriteString("\nPick the single best match, or none. Answer with JSON only, no prose:\n")
	b.WriteString(`{"invoiceId": string or null, "cashflowId": string or null, "confidence": 0-100, "reason": string}` + "\n")

	return b.String()
}

// advisorReply mirrors MatchSuggestion with a loosely-typed confidence,
// since collaborators return it as a number or a quoted string.
type advisorReply struct {
	InvoiceID  *string     `json:"invoiceId"`
	CashflowID *string     `json:"cashflowId"`
	Confidence interface{} `json:"confidence"`
	Reason     string      `json:"reason"`
}

// parseReply validates a collaborator completion into a suggestion. Any
// parse failure degrades to zero confidence.
func parseReply(reply string) *models.MatchSuggestion {
	payload := stripCodeFences(reply)

	var parsed advisorReply
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return models.ZeroSuggestion(fmt.Sprintf("advisor returned malformed JSON: %v", err))
	}

	reason := parsed.Reason
	if reason == "" {
		reason = reasonDefault
	}

	return &models.MatchSuggestion{
		InvoiceID:  parsed.InvoiceID,
		CashflowID: parsed.CashflowID,
		Confidence: models.ClampConfidence(coerceConfidence(parsed.Confidence)),
		Reason:     reason,
	}
}

func coerceConfidence(value interface{}) int {
	switch v := value.(type) {
	case float64:
		return int(v)
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return int(n)
		}
	}
	return 0
}

// stripCodeFences removes surrounding markdown fences, with or without a
// language tag, that chat-tuned collaborators like to wrap JSON in.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 {
		first := strings.TrimSpace(trimmed[:newline])
		if first == "" || !strings.ContainsAny(first, "{[") {
			trimmed = trimmed[newline+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
