package statement

import (
	"strconv"
	"strings"
	"time"
)

// serialEpoch is the spreadsheet serial-date epoch (Excel/LibreOffice,
// 1900 date system with the historical leap-year quirk already absorbed).
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Serial numbers outside this window are treated as ordinary numeric cells
// rather than dates (roughly 1954-2118).
const (
	minSerialDate = 20000
	maxSerialDate = 80000
)

var dateLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"2006-01-02",
}

// ParseDate parses the date notations accepted in statement cells:
// spreadsheet serial numbers, DD/MM/YYYY, DD-MM-YYYY and ISO YYYY-MM-DD.
// It reports false for empty or unparseable cells; the caller skips the row.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial < minSerialDate || serial > maxSerialDate {
			return time.Time{}, false
		}
		return serialEpoch.AddDate(0, 0, int(serial)), true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}
