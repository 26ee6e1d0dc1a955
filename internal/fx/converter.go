package fx

import (
	"crocus/internal/config"
	"crocus/internal/logger"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Converter converts with a RateBook and fails closed: any missing or bad
// rate is logged and yields zero so that batch jobs keep going.
type Converter struct {
	book *RateBook
	log  *zap.SugaredLogger
}

// NewConverter creates a Converter over the given book.
func NewConverter(book *RateBook) *Converter {
	return &Converter{book: book, log: logger.Component("fx")}
}

// Book returns the underlying rate book.
func (c *Converter) Book() *RateBook {
	return c.book
}

// Convert converts amount on day. It never returns an error.
func (c *Converter) Convert(amount decimal.Decimal, from, to, day string) decimal.Decimal {
	if from == to {
		return amount
	}
	table, _, err := c.book.ForDate(day)
	if err != nil {
		c.log.Warnw("No rates for conversion", "date", day, "from", from, "to", to, "error", err)
		return decimal.Zero
	}
	out, err := Convert(amount, from, to, table)
	if err != nil {
		c.log.Warnw("Conversion failed", "date", day, "from", from, "to", to, "error", err)
		return decimal.Zero
	}
	return out
}

// ToPivot converts amount in currency to the pivot currency on day.
func (c *Converter) ToPivot(amount decimal.Decimal, currency, day string) decimal.Decimal {
	return c.Convert(amount, currency, config.PivotCurrency, day)
}

// LatestToPivot converts with the most recent table available.
func (c *Converter) LatestToPivot(amount decimal.Decimal, currency string) decimal.Decimal {
	_, day, err := c.book.Latest()
	if err != nil {
		if currency == config.PivotCurrency {
			return amount
		}
		c.log.Warnw("No rates for conversion", "currency", currency, "error", err)
		return decimal.Zero
	}
	return c.ToPivot(amount, currency, day)
}
