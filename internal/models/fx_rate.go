package models

import "github.com/shopspring/decimal"

// FxRate is one published rate: units of Currency per one unit of the pivot
// currency on Date.
type FxRate struct {
	Date     string          `gorm:"type:varchar(10);primaryKey" json:"date"`
	Currency string          `gorm:"type:varchar(3);primaryKey" json:"currency"`
	Rate     decimal.Decimal `gorm:"type:numeric(18,6);not null" json:"rate"`
	Source   string          `json:"source"`
}
