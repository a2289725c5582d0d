package statement

import (
	"strings"

	"backoffice-reconciliation/internal/models"
)

// Metadata label synonyms, matched as case-insensitive substrings against
// trimmed cell text. The value is expected in the adjacent cell.
var (
	accountLabels     = []string{"account number", "numero conto", "iban"}
	asOfLabels        = []string{"as of", "aggiornato al", "saldo al"}
	openingLabels     = []string{"opening balance", "saldo iniziale"}
	closingLabels     = []string{"closing balance", "saldo finale"}
	periodStartLabels = []string{"period start", "periodo dal", "inizio periodo"}
	periodEndLabels   = []string{"period end", "periodo al", "fine periodo"}
)

// extractMetadata scans the first scanRows rows for label/value pairs. The
// first match per label wins; later occurrences are ignored.
func extractMetadata(rows [][]string, scanRows int) models.StatementMetadata {
	var meta models.StatementMetadata

	limit := len(rows)
	if scanRows < limit {
		limit = scanRows
	}

	for _, row := range rows[:limit] {
		for i, cell := range row {
			label := strings.ToLower(strings.TrimSpace(cell))
			if label == "" || i+1 >= len(row) {
				continue
			}
			value := strings.TrimSpace(row[i+1])
			if value == "" {
				continue
			}

			switch {
			case meta.AccountNumber == "" && matchesAny(label, accountLabels):
				meta.AccountNumber = value
			case meta.AsOfDate == nil && matchesAny(label, asOfLabels):
				if t, ok := ParseDate(value); ok {
					meta.AsOfDate = &t
				}
			case meta.OpeningBalance == nil && matchesAny(label, openingLabels):
				if d, err := ParseAmount(value); err == nil {
					meta.OpeningBalance = &d
				}
			case meta.ClosingBalance == nil && matchesAny(label, closingLabels):
				if d, err := ParseAmount(value); err == nil {
					meta.ClosingBalance = &d
				}
			case meta.PeriodStart == nil && matchesAny(label, periodStartLabels):
				if t, ok := ParseDate(value); ok {
					meta.PeriodStart = &t
				}
			case meta.PeriodEnd == nil && matchesAny(label, periodEndLabels):
				if t, ok := ParseDate(value); ok {
					meta.PeriodEnd = &t
				}
			}
		}
	}

	return meta
}

func matchesAny(cell string, labels []string) bool {
	for _, label := range labels {
		if strings.Contains(cell, label) {
			return true
		}
	}
	return false
}
