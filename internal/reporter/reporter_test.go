package reporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"backoffice-reconciliation/internal/ledger"
	"backoffice-reconciliation/internal/models"
	"backoffice-reconciliation/internal/session"
	"backoffice-reconciliation/internal/statement"
	"backoffice-reconciliation/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const reportExport = `Numero conto;IT60X0542811101000000123456
Periodo dal;01/03/2026
Periodo al;31/03/2026

Data operazione;Data valuta;Causale;Descrizione;Importo;Saldo
05/03/2026;05/03/2026;BON;Bonifico cliente Rossi;100,00;100,00
07/03/2026;07/03/2026;BON;Versamento ignoto;555,55;655,55
`

func sessionResult(t *testing.T) *session.Result {
	t.Helper()

	l := ledger.NewMemoryLedger()
	amount := decimal.NewFromInt(100)
	l.AddCashflow(&models.LedgerCashflow{
		ID:             "cf-1",
		Direction:      models.DirectionInflow,
		ExplicitAmount: &amount,
		PaymentDate:    time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
	})
	near := decimal.RequireFromString("556.00")
	l.AddCashflow(&models.LedgerCashflow{
		ID:             "cf-near",
		Direction:      models.DirectionInflow,
		ExplicitAmount: &near,
		PaymentDate:    time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC),
	})

	sess := session.New(statement.NewParser(nil), l, l, nil, nil)
	result, err := sess.Import(context.Background(), strings.NewReader(reportExport),
		session.Options{AutoConfirm: true})
	require.NoError(t, err)
	return result
}

func TestConsoleReport(t *testing.T) {
	generator, err := NewGenerator(nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, generator.Generate(sessionResult(t), &buf))

	out := buf.String()
	assert.Contains(t, out, "IMPORT REPORT")
	assert.Contains(t, out, "Account: IT60X0542811101000000123456")
	assert.Contains(t, out, "Period: 2026-03-01 to 2026-03-31")
	assert.Contains(t, out, "Rows parsed: 2, skipped: 0")
	assert.Contains(t, out, "matched  1")
	assert.Contains(t, out, "pending  1")
	assert.Contains(t, out, "REVIEW CANDIDATES")
	assert.Contains(t, out, "cashflow=cf-near")
}

func TestJSONReport(t *testing.T) {
	generator, err := NewGenerator(&Config{Format: FormatJSON, IncludeCandidates: true})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, generator.Generate(sessionResult(t), &buf))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, float64(2), decoded["rowsParsed"])
	assert.Equal(t, float64(1), decoded["quickMatched"])

	counts, ok := decoded["statusCounts"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), counts["matched"])
	assert.Equal(t, float64(1), counts["pending"])

	candidates, ok := decoded["candidates"].(map[string]interface{})
	require.True(t, ok)
	assert.Len(t, candidates, 1)
}

func TestCSVReport(t *testing.T) {
	generator, err := NewGenerator(&Config{Format: FormatCSV})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, generator.Generate(sessionResult(t), &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus two movements")
	assert.Equal(t, "ID", records[0][0])
	assert.Equal(t, "matched", records[1][5])
	assert.Equal(t, "cf-1", records[1][7])
	assert.Equal(t, "95", records[1][8])
	assert.Equal(t, "pending", records[2][5])
	assert.Empty(t, records[2][7])
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, fmt.Errorf("pipe closed")
}

func TestCSVReportSurfacesWriteFailure(t *testing.T) {
	generator, err := NewGenerator(&Config{Format: FormatCSV})
	require.NoError(t, err)

	err = generator.Generate(sessionResult(t), failingWriter{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryInternal))
}

func TestGeneratorRejectsUnknownFormat(t *testing.T) {
	_, err := NewGenerator(&Config{Format: OutputFormat("xml")})
	require.Error(t, err)
}

func TestGenerateRejectsNilResult(t *testing.T) {
	generator, err := NewGenerator(nil)
	require.NoError(t, err)
	require.Error(t, generator.Generate(nil, &bytes.Buffer{}))
}
