package models

import "github.com/shopspring/decimal"

// Account is a cash or bank account of the agency. Its balance is never
// stored; it is derived from the opening balance and the ledger.
type Account struct {
	Base
	Name           string          `gorm:"not null" json:"name"`
	Currency       string          `gorm:"type:varchar(3);not null" json:"currency"`
	OpeningBalance decimal.Decimal `gorm:"type:numeric(18,2);not null;default:0" json:"opening_balance"`
	Archived       bool            `gorm:"not null;default:false" json:"archived"`
}

// Counterparty is an optional tag on a transaction (client, supplier, owner).
type Counterparty struct {
	Base
	Name     string `gorm:"not null" json:"name"`
	Archived bool   `gorm:"not null;default:false" json:"archived"`
}
