// Package statement turns bank-statement files into normalized rows and
// computes their deduplication fingerprints.
//
// The adapter reads a semicolon-separated export, one movement per line:
//
//	date;amount;description[;currency]
//
// Dates may be ISO (2024-01-31) or European (31.01.2024, 31/01/2024).
// Amounts are signed and accept either "." or "," as decimal separator.
// Blank lines and lines starting with '#' are ignored, and a header line
// is skipped when its first column is not a date.
package statement

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"crocus/internal/dates"

	"github.com/shopspring/decimal"
)

// Row is one normalized statement movement.
type Row struct {
	Line        int             `json:"line"`
	Date        string          `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Currency    string          `json:"currency,omitempty"`
}

// RowError describes a line that could not be parsed.
type RowError struct {
	Line int    `json:"line"`
	Raw  string `json:"raw"`
	Err  error  `json:"-"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

var dateLayouts = []string{dates.Layout, "02.01.2006", "02/01/2006", "2.1.2006"}

// ParseLines reads every row of a statement. Malformed rows are returned
// as RowErrors and do not stop the scan; only a read failure of the
// underlying reader is returned as an error.
func ParseLines(r io.Reader) ([]Row, []RowError, error) {
	reader := csv.NewReader(r)
	reader.Comma = ';'
	reader.Comment = '#'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	var rows []Row
	var rowErrs []RowError
	first := true

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				rowErrs = append(rowErrs, RowError{Line: parseErr.StartLine, Err: parseErr.Err})
				continue
			}
			return nil, nil, fmt.Errorf("reading statement: %w", err)
		}

		line, _ := reader.FieldPos(0)
		isFirst := first
		first = false
		if isBlank(record) {
			continue
		}

		row, err := parseRecord(record)
		if err != nil {
			if isFirst && !looksLikeDate(record[0]) {
				continue
			}
			rowErrs = append(rowErrs, RowError{Line: line, Raw: strings.Join(record, ";"), Err: err})
			continue
		}
		row.Line = line
		rows = append(rows, row)
	}

	return rows, rowErrs, nil
}

func isBlank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func parseRecord(record []string) (Row, error) {
	if len(record) < 3 {
		return Row{}, fmt.Errorf("expected at least 3 columns, got %d", len(record))
	}

	date, err := ParseDate(record[0])
	if err != nil {
		return Row{}, err
	}

	amount, err := ParseAmount(record[1])
	if err != nil {
		return Row{}, err
	}

	row := Row{
		Date:        date,
		Amount:      amount,
		Description: NormalizeDescription(record[2]),
	}
	if len(record) > 3 {
		row.Currency = strings.ToUpper(strings.TrimSpace(record[3]))
	}
	return row, nil
}

func looksLikeDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// ParseDate accepts the supported statement date layouts and returns the
// canonical YYYY-MM-DD form.
func ParseDate(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return dates.Format(t), nil
		}
	}
	return "", fmt.Errorf("invalid date %q", s)
}

// ParseAmount parses a signed amount. When both "." and "," are present
// the last one is the decimal separator and the other groups thousands.
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := strings.NewReplacer(" ", "", "\u00a0", "", "'", "").Replace(strings.TrimSpace(s))
	if clean == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	// Trailing minus as printed by some banks: "12,50-".
	if strings.HasSuffix(clean, "-") && !strings.HasPrefix(clean, "-") {
		clean = "-" + strings.TrimSuffix(clean, "-")
	}

	lastDot := strings.LastIndex(clean, ".")
	lastComma := strings.LastIndex(clean, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0 && lastComma > lastDot:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.Replace(clean, ",", ".", 1)
	case lastDot >= 0 && lastComma >= 0:
		clean = strings.ReplaceAll(clean, ",", "")
	case lastComma >= 0:
		if strings.Count(clean, ",") > 1 {
			return decimal.Zero, fmt.Errorf("invalid amount %q", s)
		}
		clean = strings.Replace(clean, ",", ".", 1)
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return d, nil
}

// NormalizeDescription trims and collapses internal whitespace.
func NormalizeDescription(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
