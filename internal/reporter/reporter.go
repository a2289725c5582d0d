// Package reporter renders the outcome of an import session.
//
// Supported output formats:
//   - Console: human-readable summary for terminal display
//   - JSON: structured data for programmatic consumption
//   - CSV: per-movement rows for spreadsheet applications
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"backoffice-reconciliation/internal/models"
	"backoffice-reconciliation/internal/session"
	"backoffice-reconciliation/pkg/errors"
)

// OutputFormat selects how a session report is rendered.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported.
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// Config holds report generation options.
type Config struct {
	Format OutputFormat

	// IncludeCandidates adds ranked manual-review candidates to console
	// and JSON output.
	IncludeCandidates bool

	// CSVDelimiter defaults to a comma.
	CSVDelimiter rune
}

// DefaultConfig returns the default report configuration.
func DefaultConfig() *Config {
	return &Config{
		Format:            FormatConsole,
		IncludeCandidates: true,
		CSVDelimiter:      ',',
	}
}

// Generator renders session results in the configured format.
type Generator struct {
	config *Config
}

// NewGenerator creates a report generator. A nil config uses defaults.
func NewGenerator(config *Config) (*Generator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if !config.Format.IsValid() {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "output_format", string(config.Format))
	}
	if config.CSVDelimiter == 0 {
		config.CSVDelimiter = ','
	}

	return &Generator{config: config}, nil
}

// Generate writes a report of the session result to the writer.
func (g *Generator) Generate(result *session.Result, writer io.Writer) error {
	if result == nil {
		return errors.ValidationError(errors.CodeMissingField, "result", nil)
	}

	switch g.config.Format {
	case FormatConsole:
		return g.writeConsole(result, writer)
	case FormatJSON:
		return g.writeJSON(result, writer)
	case FormatCSV:
		return g.writeCSV(result, writer)
	default:
		return errors.ConfigurationError(errors.CodeInvalidConfig, "output_format", string(g.config.Format))
	}
}

func (g *Generator) writeConsole(result *session.Result, w io.Writer) error {
	fmt.Fprintf(w, "IMPORT REPORT\n")
	fmt.Fprintf(w, "Generated: %s\n\n", time.Now().Format(time.RFC3339))

	meta := result.Statement.Metadata
	if meta.AccountNumber != "" {
		fmt.Fprintf(w, "Account: %s\n", meta.AccountNumber)
	}
	if meta.PeriodStart != nil && meta.PeriodEnd != nil {
		fmt.Fprintf(w, "Period: %s to %s\n",
			meta.PeriodStart.Format("2006-01-02"), meta.PeriodEnd.Format("2006-01-02"))
	}

	fmt.Fprintf(w, "Rows parsed: %d, skipped: %d\n\n", result.Statement.RowsParsed, result.Statement.RowsSkipped)

	counts := result.StatusCounts()
	fmt.Fprintf(w, "=== MOVEMENTS ===\n")
	for _, status := range []models.MatchStatus{models.StatusMatched, models.StatusManual, models.StatusIgnored, models.StatusPending} {
		fmt.Fprintf(w, "%-8s %d\n", status, counts[status])
	}
	fmt.Fprintf(w, "\nExact matches found: %d, auto-confirmed: %d, advisor consultations: %d\n",
		result.QuickMatched, result.AutoConfirmed, result.AdvisorRuns)

	if !g.config.IncludeCandidates || len(result.Candidates) == 0 {
		return nil
	}

	fmt.Fprintf(w, "\n=== REVIEW CANDIDATES ===\n")
	for _, movement := range result.Movements {
		candidates, ok := result.Candidates[movement.ID]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s %s %s %s\n",
			movement.PostingDate.Format("2006-01-02"), movement.Amount.String(),
			movement.Direction, movement.Description)
		for _, candidate := range candidates {
			fmt.Fprintf(w, "  cashflow=%s amount=%s score=%s (amount diff %s%%, %d days apart)\n",
				candidate.Cashflow.ID, candidate.EffectiveAmount.String(),
				candidate.Score.String(), candidate.AmountDiffPct.StringFixed(2), candidate.DateDiffDays)
		}
	}

	return nil
}

// jsonReport is the JSON rendering of a session result.
type jsonReport struct {
	GeneratedAt   time.Time                      `json:"generatedAt"`
	Metadata      models.StatementMetadata       `json:"metadata"`
	RowsParsed    int                            `json:"rowsParsed"`
	RowsSkipped   int                            `json:"rowsSkipped"`
	StatusCounts  map[models.MatchStatus]int     `json:"statusCounts"`
	QuickMatched  int                            `json:"quickMatched"`
	AutoConfirmed int                            `json:"autoConfirmed"`
	AdvisorRuns   int                            `json:"advisorRuns"`
	Movements     []*models.BankMovement         `json:"movements"`
	Candidates    map[string][]jsonCandidate     `json:"candidates,omitempty"`
}

type jsonCandidate struct {
	CashflowID      string `json:"cashflowId"`
	InvoiceID       string `json:"invoiceId,omitempty"`
	EffectiveAmount string `json:"effectiveAmount"`
	Score           string `json:"score"`
	AmountDiffPct   string `json:"amountDiffPct"`
	DateDiffDays    int    `json:"dateDiffDays"`
}

func (g *Generator) writeJSON(result *session.Result, w io.Writer) error {
	report := jsonReport{
		GeneratedAt:   time.Now(),
		Metadata:      result.Statement.Metadata,
		RowsParsed:    result.Statement.RowsParsed,
		RowsSkipped:   result.Statement.RowsSkipped,
		StatusCounts:  result.StatusCounts(),
		QuickMatched:  result.QuickMatched,
		AutoConfirmed: result.AutoConfirmed,
		AdvisorRuns:   result.AdvisorRuns,
		Movements:     result.Movements,
	}

	if g.config.IncludeCandidates && len(result.Candidates) > 0 {
		report.Candidates = make(map[string][]jsonCandidate, len(result.Candidates))
		for movementID, candidates := range result.Candidates {
			rendered := make([]jsonCandidate, 0, len(candidates))
			for _, candidate := range candidates {
				jc := jsonCandidate{
					CashflowID:      candidate.Cashflow.ID,
					EffectiveAmount: candidate.EffectiveAmount.String(),
					Score:           candidate.Score.String(),
					AmountDiffPct:   candidate.AmountDiffPct.StringFixed(2),
					DateDiffDays:    candidate.DateDiffDays,
				}
				if candidate.Invoice != nil {
					jc.InvoiceID = candidate.Invoice.ID
				}
				rendered = append(rendered, jc)
			}
			report.Candidates[movementID] = rendered
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func (g *Generator) writeCSV(result *session.Result, w io.Writer) error {
	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = g.config.CSVDelimiter

	headers := []string{
		"ID", "Posting_Date", "Description", "Amount", "Direction",
		"Status", "Matched_Invoice", "Matched_Cashflow", "Confidence", "Reason",
	}
	if err := csvWriter.Write(headers); err != nil {
		return errors.InternalError("writing CSV report headers", err)
	}

	for _, movement := range result.Movements {
		record := []string{
			movement.ID,
			movement.PostingDate.Format("2006-01-02"),
			movement.Description,
			movement.Amount.String(),
			string(movement.Direction),
			string(movement.MatchStatus),
			stringOrEmpty(movement.MatchedInvoiceID),
			stringOrEmpty(movement.MatchedCashflowID),
			confidenceOrEmpty(movement.MatchConfidence),
			stringOrEmpty(movement.MatchReason),
		}
		if err := csvWriter.Write(record); err != nil {
			return errors.InternalError("writing CSV report record", err)
		}
	}

	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return errors.InternalError("writing CSV report", err)
	}
	return nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func confidenceOrEmpty(n *int) string {
	if n == nil {
		return ""
	}
	return fmt.Sprintf("%d", *n)
}
