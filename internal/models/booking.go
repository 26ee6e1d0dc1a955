package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Booking is owned by the intake system. The ledger only reads it.
type Booking struct {
	ID          string          `gorm:"primaryKey" json:"id"`
	Type        string          `json:"type"`
	Brutto      decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"brutto"`
	InternalNet decimal.Decimal `gorm:"type:numeric(18,2);not null" json:"internal_net"`
	Operator    string          `json:"operator"`
	CreatedDate string          `gorm:"type:varchar(10);not null" json:"created_date"`
	CheckInDate *string         `gorm:"type:varchar(10)" json:"check_in_date,omitempty"`
	BaseOwner   *string         `json:"base_owner,omitempty"`

	// ManualSplit holds absolute owner amounts; SplitPercents holds owner
	// percentages (0-100) for the default booking type.
	ManualSplit   datatypes.JSON `json:"manual_split,omitempty"`
	SplitPercents datatypes.JSON `json:"split_percents,omitempty"`
}

// Commission is the company's margin on the booking. It may be negative.
func (b *Booking) Commission() decimal.Decimal {
	return b.Brutto.Sub(b.InternalNet)
}

// ManualOverride decodes the manual owner split, if any.
func (b *Booking) ManualOverride() (OwnerAmounts, bool) {
	return decodeOwnerAmounts(b.ManualSplit)
}

// Percents decodes the configured owner percentage table, if any.
func (b *Booking) Percents() (OwnerAmounts, bool) {
	return decodeOwnerAmounts(b.SplitPercents)
}

func decodeOwnerAmounts(raw datatypes.JSON) (OwnerAmounts, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, false
	}
	var out OwnerAmounts
	if err := json.Unmarshal(raw, &out); err != nil || len(out) == 0 {
		return nil, false
	}
	return out, true
}
