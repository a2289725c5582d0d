// Package session orchestrates one import and review pass: normalize a
// statement export, quick-match every movement, surface ranked candidates
// for whatever remains and, when enabled, consult the AI advisor.
package session

import (
	"context"
	"io"
	"time"

	"backoffice-reconciliation/internal/ledger"
	"backoffice-reconciliation/internal/lifecycle"
	"backoffice-reconciliation/internal/matching"
	"backoffice-reconciliation/internal/models"
	"backoffice-reconciliation/internal/statement"
	"backoffice-reconciliation/pkg/logger"
)

// Options controls optional steps of a session run.
type Options struct {
	// AutoConfirm accepts exact quick-match suggestions immediately
	// instead of leaving them pending for review.
	AutoConfirm bool

	// RunAdvisor consults the AI advisor for movements still pending
	// after the deterministic pass.
	RunAdvisor bool

	// AdvisorDelay spaces successive advisor calls. Zero means no delay.
	AdvisorDelay time.Duration

	// Progress, when set, receives (processed, total) updates during the
	// advisor batch.
	Progress logger.ProgressFunc
}

// Result is the outcome of one session run.
type Result struct {
	Statement *statement.Statement
	Movements []*models.BankMovement

	// Candidates holds ranked manual-review suggestions keyed by movement
	// id, for movements the quick matcher could not explain.
	Candidates map[string][]matching.ScoredCandidate

	// QuickMatched counts movements that received an exact suggestion.
	QuickMatched int

	// AutoConfirmed counts movements confirmed from those suggestions.
	AutoConfirmed int

	// AdvisorRuns counts movements the advisor was consulted for.
	AdvisorRuns int
}

// StatusCounts tallies movements per lifecycle state.
func (r *Result) StatusCounts() map[models.MatchStatus]int {
	counts := make(map[models.MatchStatus]int, 4)
	for _, movement := range r.Movements {
		counts[movement.MatchStatus]++
	}
	return counts
}

// Session runs import and review passes against one ledger.
type Session struct {
	parser   *statement.Parser
	snapshot ledger.Snapshot
	machine  *lifecycle.Machine
	log      logger.Logger
}

// New creates a session. The advisor may be nil when Options.RunAdvisor is
// never used.
func New(parser *statement.Parser, snapshot ledger.Snapshot, mutator ledger.Mutator, advisor lifecycle.Suggester, log logger.Logger) *Session {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Session{
		parser:   parser,
		snapshot: snapshot,
		machine:  lifecycle.NewMachine(snapshot, mutator, advisor, log),
		log:      log.WithComponent("session"),
	}
}

// Machine exposes the state machine for interactive follow-up operations on
// the movements of a finished run.
func (s *Session) Machine() *lifecycle.Machine {
	return s.machine
}

// ImportFile parses a statement export and runs the review pass over its
// movements.
func (s *Session) ImportFile(ctx context.Context, path string, opts Options) (*Result, error) {
	stmt, err := s.parser.ParseFile(path)
	if err != nil {
		return nil, err
	}
	return s.review(ctx, stmt, opts)
}

// Import parses a statement export from a reader and runs the review pass
// over its movements.
func (s *Session) Import(ctx context.Context, r io.Reader, opts Options) (*Result, error) {
	stmt, err := s.parser.Parse(r)
	if err != nil {
		return nil, err
	}
	return s.review(ctx, stmt, opts)
}

// review runs quick matching, candidate ranking and the optional advisor
// batch over a parsed statement.
func (s *Session) review(ctx context.Context, stmt *statement.Statement, opts Options) (*Result, error) {
	result := &Result{
		Statement:  stmt,
		Movements:  stmt.Movements,
		Candidates: make(map[string][]matching.ScoredCandidate),
	}

	invoices := s.snapshot.ListInvoices(nil)
	cashflows := s.snapshot.ListCashflows()

	for _, movement := range result.Movements {
		suggestion := matching.QuickMatch(movement, invoices, cashflows)
		if suggestion == nil {
			continue
		}

		movement.Suggestion = suggestion
		movement.MatchConfidence = models.IntPtr(suggestion.Confidence)
		movement.MatchReason = models.StringPtr(suggestion.Reason)
		result.QuickMatched++

		if !opts.AutoConfirm {
			continue
		}

		var confirmErr error
		if suggestion.CashflowID != nil {
			confirmErr = s.machine.ConfirmCashflow(movement, *suggestion.CashflowID)
		} else if suggestion.InvoiceID != nil {
			confirmErr = s.machine.Confirm(movement, *suggestion.InvoiceID)
		}
		if confirmErr != nil {
			s.log.WithError(confirmErr).WithField("movement_id", movement.ID).
				Warn("auto-confirm failed, movement left pending")
			continue
		}
		result.AutoConfirmed++
	}

	for _, movement := range result.Movements {
		if movement.MatchStatus != models.StatusPending || movement.HasSuggestion() {
			continue
		}
		candidates := matching.RankCandidates(movement, cashflows, invoices, result.Movements)
		if len(candidates) > 0 {
			result.Candidates[movement.ID] = candidates
		}
	}

	if opts.RunAdvisor {
		result.AdvisorRuns = s.machine.RunAdvisorBatch(ctx, unexplained(result.Movements), opts.AdvisorDelay, opts.Progress)
	}

	s.log.WithFields(logger.Fields{
		"rows_parsed":    stmt.RowsParsed,
		"rows_skipped":   stmt.RowsSkipped,
		"quick_matched":  result.QuickMatched,
		"auto_confirmed": result.AutoConfirmed,
		"advisor_runs":   result.AdvisorRuns,
	}).Info("import pass completed")

	return result, nil
}

// unexplained returns the pending movements that carry no suggestion yet.
func unexplained(movements []*models.BankMovement) []*models.BankMovement {
	var out []*models.BankMovement
	for _, movement := range movements {
		if movement.MatchStatus == models.StatusPending && !movement.HasSuggestion() {
			out = append(out, movement)
		}
	}
	return out
}
