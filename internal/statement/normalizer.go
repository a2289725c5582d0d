// Package statement parses tabular bank-export files into typed bank
// movements plus account metadata.
//
// Real exports are messy: the header row floats below preamble rows, labels
// vary by bank and language, amounts mix Italian and English separator
// conventions, and footer rows carry no dates. The normalizer tolerates all
// of that at row level (skipping what it cannot read, counting the skips)
// and only rejects an import outright when no usable header can be found.
package statement

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"backoffice-reconciliation/internal/encoding"
	"backoffice-reconciliation/internal/models"
	"backoffice-reconciliation/pkg/errors"
	"backoffice-reconciliation/pkg/logger"
)

// Statement is the result of one import: account metadata plus the
// normalized movements, with row accounting for observability.
type Statement struct {
	Metadata    models.StatementMetadata `json:"metadata"`
	Movements   []*models.BankMovement   `json:"movements"`
	RowsParsed  int                      `json:"rowsParsed"`
	RowsSkipped int                      `json:"rowsSkipped"`
}

// Config holds the normalizer's layout-detection parameters.
type Config struct {
	// Delimiter forces a field separator; zero means sniff between
	// semicolon, comma and tab.
	Delimiter rune

	// HeaderScanRows is how many leading rows are scanned for a header.
	HeaderScanRows int

	// MetadataScanRows is how many leading rows are scanned for
	// label/value metadata pairs.
	MetadataScanRows int

	// MinHeaderLabels is how many of the six expected column labels a row
	// must contain to qualify as the header.
	MinHeaderLabels int

	// FallbackDataRow is the row index where data starts when no header is
	// found and the legacy fixed layout is assumed.
	FallbackDataRow int
}

// DefaultConfig returns the layout parameters the system was built around.
func DefaultConfig() *Config {
	return &Config{
		HeaderScanRows:   15,
		MetadataScanRows: 10,
		MinHeaderLabels:  3,
		FallbackDataRow:  6,
	}
}

// Parser is the statement normalizer.
type Parser struct {
	config *Config
	logger logger.Logger
}

// NewParser creates a Parser with the given configuration.
func NewParser(config *Config) *Parser {
	if config == nil {
		config = DefaultConfig()
	}

	return &Parser{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("statement_parser"),
	}
}

// columnLayout maps the six semantic columns to cell indexes; -1 means the
// column is absent from the detected header.
type columnLayout struct {
	OperationDate int
	ValueDate     int
	Reason        int
	Description   int
	Amount        int
	Balance       int
}

// legacyLayout is the fixed column order the original single-bank export
// used: op-date, value-date, reason, description, amount, balance.
var legacyLayout = columnLayout{
	OperationDate: 0,
	ValueDate:     1,
	Reason:        2,
	Description:   3,
	Amount:        4,
	Balance:       5,
}

// Header label synonyms per semantic column, matched as case-insensitive
// substrings.
var headerLabels = []struct {
	assign func(*columnLayout, int)
	labels []string
}{
	{func(l *columnLayout, i int) { l.OperationDate = i }, []string{"data operazione", "data contabile", "operation date", "posting date"}},
	{func(l *columnLayout, i int) { l.ValueDate = i }, []string{"data valuta", "value date"}},
	{func(l *columnLayout, i int) { l.Reason = i }, []string{"causale", "reason"}},
	{func(l *columnLayout, i int) { l.Description = i }, []string{"descrizione", "description"}},
	{func(l *columnLayout, i int) { l.Amount = i }, []string{"importo", "amount"}},
	{func(l *columnLayout, i int) { l.Balance = i }, []string{"saldo", "balance"}},
}

// ParseFile opens and parses a statement export from disk.
func (p *Parser) ParseFile(path string) (*Statement, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, errors.FileError(errors.CodeFileUnreadable, path, err)
	}
	defer file.Close()

	return p.Parse(file)
}

// Parse reads a tabular export and returns the normalized statement. It
// fails with a parse error when the source cannot be decoded or no
// header-like row is found and the legacy fallback does not apply; bad rows
// are skipped, never fatal.
func (p *Parser) Parse(r io.Reader) (*Statement, error) {
	rows, err := p.readRows(r)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, errors.ParseError(errors.CodeInvalidFormat, "file contains no rows", nil)
	}

	layout, dataRow, found := p.detectHeader(rows)
	if !found {
		// Legacy fallback: the single layout the system was originally
		// built around has its data starting at a fixed row. This keeps
		// old exports importable but silently mis-parses unrelated
		// layouts; a known limitation.
		if len(rows) > p.config.FallbackDataRow {
			p.logger.Warn("No header row detected, assuming legacy fixed layout")
			layout = legacyLayout
			dataRow = p.config.FallbackDataRow
		} else {
			return nil, errors.ParseError(errors.CodeNoHeaderRow,
				fmt.Sprintf("scanned first %d rows without finding %d of the expected column labels",
					p.config.HeaderScanRows, p.config.MinHeaderLabels), nil)
		}
	}

	statement := &Statement{
		Metadata: extractMetadata(rows, p.config.MetadataScanRows),
	}

	for _, row := range rows[dataRow:] {
		movement, ok := p.parseRow(row, layout)
		if !ok {
			statement.RowsSkipped++
			continue
		}
		statement.Movements = append(statement.Movements, movement)
		statement.RowsParsed++
	}

	p.logger.WithFields(logger.Fields{
		"rows_parsed":  statement.RowsParsed,
		"rows_skipped": statement.RowsSkipped,
		"account":      statement.Metadata.AccountNumber,
	}).Info("Statement normalized")

	return statement, nil
}

// readRows decodes the input to UTF-8, sniffs the delimiter and reads all
// records.
func (p *Parser) readRows(r io.Reader) ([][]string, error) {
	utf8r, err := encoding.NewUTF8Reader(r)
	if err != nil {
		return nil, errors.ParseError(errors.CodeEncodingError, "could not decode input", err)
	}

	data, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, errors.ParseError(errors.CodeEncodingError, "could not read input", err)
	}

	delimiter := p.config.Delimiter
	if delimiter == 0 {
		delimiter = sniffDelimiter(data)
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.ParseError(errors.CodeInvalidFormat, "input is not valid tabular data", err)
	}

	return rows, nil
}

// sniffDelimiter picks the most frequent candidate separator in the first
// few lines. Semicolon wins ties since European bank exports favor it.
func sniffDelimiter(data []byte) rune {
	sample := data
	if idx := indexNthLine(data, 10); idx > 0 {
		sample = data[:idx]
	}

	counts := map[rune]int{';': 0, ',': 0, '\t': 0}
	for _, b := range sample {
		if _, ok := counts[rune(b)]; ok {
			counts[rune(b)]++
		}
	}

	best := ';'
	for _, candidate := range []rune{';', '\t', ','} {
		if counts[candidate] > counts[best] {
			best = candidate
		}
	}
	return best
}

func indexNthLine(data []byte, n int) int {
	count := 0
	for i, b := range data {
		if b == '\n' {
			count++
			if count == n {
				return i
			}
		}
	}
	return -1
}

// detectHeader scans the leading rows for one containing enough of the
// expected column labels. Returns the resulting layout and the index of the
// first data row.
func (p *Parser) detectHeader(rows [][]string) (columnLayout, int, bool) {
	limit := len(rows)
	if p.config.HeaderScanRows < limit {
		limit = p.config.HeaderScanRows
	}

	for rowIdx := 0; rowIdx < limit; rowIdx++ {
		layout := columnLayout{OperationDate: -1, ValueDate: -1, Reason: -1, Description: -1, Amount: -1, Balance: -1}
		matched := 0
		claimed := make(map[int]bool)

		for cellIdx, cell := range rows[rowIdx] {
			text := strings.ToLower(strings.TrimSpace(cell))
			if text == "" || claimed[cellIdx] {
				continue
			}

			for _, group := range headerLabels {
				if matchesAny(text, group.labels) {
					group.assign(&layout, cellIdx)
					claimed[cellIdx] = true
					matched++
					break
				}
			}
		}

		if matched >= p.config.MinHeaderLabels {
			p.logger.WithFields(logger.Fields{
				"header_row":     rowIdx,
				"labels_matched": matched,
			}).Debug("Header row detected")
			return layout, rowIdx + 1, true
		}
	}

	return columnLayout{}, 0, false
}

// parseRow converts one data row into a movement. It reports false for rows
// that must be skipped: missing or unparseable operation date, unparseable
// amount, or an amount of exactly zero.
func (p *Parser) parseRow(row []string, layout columnLayout) (*models.BankMovement, bool) {
	postingDate, ok := ParseDate(cellValue(row, layout.OperationDate))
	if !ok {
		return nil, false
	}

	amount, err := ParseAmount(cellValue(row, layout.Amount))
	if err != nil || amount.IsZero() {
		return nil, false
	}

	movement := models.NewBankMovement(
		postingDate,
		cellValue(row, layout.Description),
		amount.Abs(),
		models.DirectionFromAmount(amount),
	)
	movement.Narrative = cellValue(row, layout.Reason)

	if valueDate, ok := ParseDate(cellValue(row, layout.ValueDate)); ok {
		movement.ValueDate = &valueDate
	}

	if balance, err := ParseAmount(cellValue(row, layout.Balance)); err == nil {
		movement.RunningBalance = &balance
	}

	return movement, true
}

// cellValue safely gets a trimmed cell value from a row; idx -1 means the
// column is absent.
func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
