// Package fx converts money between currencies through the EUR pivot.
//
// A Table holds, for each non-pivot currency, the number of units of that
// currency per one EUR. The pivot itself is implicitly 1 and never stored.
package fx

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"crocus/internal/config"

	"github.com/shopspring/decimal"
)

var (
	// ErrMissingRate is returned when a currency is absent from the table.
	ErrMissingRate = errors.New("fx: rate not available")
	// ErrInvalidRate is returned for zero or negative rates.
	ErrInvalidRate = errors.New("fx: rate must be positive")
	// ErrNoRates is returned when a rate book is empty.
	ErrNoRates = errors.New("fx: no rate tables published")
)

// Table maps a currency code to units of that currency per one pivot unit.
type Table map[string]decimal.Decimal

// Rate returns the rate of a currency, 1 for the pivot.
func (t Table) Rate(currency string) (decimal.Decimal, error) {
	ccy := strings.ToUpper(currency)
	if ccy == config.PivotCurrency {
		return decimal.NewFromInt(1), nil
	}
	r, ok := t[ccy]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrMissingRate, ccy)
	}
	if !r.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s=%s", ErrInvalidRate, ccy, r.String())
	}
	return r, nil
}

// Round2 rounds a monetary amount to cents.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Convert converts amount from one currency to another via the pivot.
// Same-currency conversions return the amount unchanged. The result is
// rounded to two decimals once, after both legs are applied.
func Convert(amount decimal.Decimal, from, to string, table Table) (decimal.Decimal, error) {
	from = strings.ToUpper(from)
	to = strings.ToUpper(to)
	if from == to {
		return amount, nil
	}

	fromRate, err := table.Rate(from)
	if err != nil {
		return decimal.Zero, err
	}
	toRate, err := table.Rate(to)
	if err != nil {
		return decimal.Zero, err
	}

	return Round2(amount.Mul(toRate).DivRound(fromRate, 12)), nil
}

// RateBook indexes published tables by calendar day. Each currency is
// resolved on its own: a day's table is completed with that currency's
// most recent earlier rate, else its latest rate overall, so a day with a
// partial table never drops a currency another day knows.
type RateBook struct {
	days   []string
	tables map[string]Table
}

// NewRateBook builds a book from tables keyed by YYYY-MM-DD.
func NewRateBook(tables map[string]Table) *RateBook {
	b := &RateBook{tables: make(map[string]Table, len(tables))}
	for day := range tables {
		b.days = append(b.days, day)
	}
	sort.Strings(b.days)

	carried := make(Table)
	for _, day := range b.days {
		for ccy, r := range tables[day] {
			carried[strings.ToUpper(ccy)] = r
		}
		b.tables[day] = carried.clone()
	}

	// carried now holds the latest rate of every currency ever published.
	for _, day := range b.days {
		t := b.tables[day]
		for ccy, r := range carried {
			if _, ok := t[ccy]; !ok {
				t[ccy] = r
			}
		}
	}
	return b
}

func (t Table) clone() Table {
	out := make(Table, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Len returns the number of published days.
func (b *RateBook) Len() int {
	return len(b.days)
}

// ForDate returns the table to use for day: the exact day, else the most
// recent day on or before it, else the latest table overall. The second
// return value is the day of the selected table.
func (b *RateBook) ForDate(day string) (Table, string, error) {
	if len(b.days) == 0 {
		return nil, "", ErrNoRates
	}
	if t, ok := b.tables[day]; ok {
		return t, day, nil
	}

	// First index with days[i] > day; the one before it is on or before day.
	i := sort.Search(len(b.days), func(i int) bool { return b.days[i] > day })
	if i > 0 {
		d := b.days[i-1]
		return b.tables[d], d, nil
	}

	return b.Latest()
}

// Latest returns the most recently dated table.
func (b *RateBook) Latest() (Table, string, error) {
	if len(b.days) == 0 {
		return nil, "", ErrNoRates
	}
	d := b.days[len(b.days)-1]
	return b.tables[d], d, nil
}
