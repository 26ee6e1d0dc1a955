package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Owner is one of the company's profit-sharing founders.
type Owner struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Share   float64  `yaml:"share"`
	Aliases []string `yaml:"aliases"`
}

// ShareDecimal returns the owner's global share as a decimal fraction.
func (o Owner) ShareDecimal() decimal.Decimal {
	return decimal.NewFromFloat(o.Share)
}

// PaymentKeywords lists the description markers for each payment method.
type PaymentKeywords struct {
	Card     []string `yaml:"card"`
	IBAN     []string `yaml:"iban"`
	Cash     []string `yaml:"cash"`
	Transfer []string `yaml:"transfer"`
}

// SystemCategoryKeys names the categories used by automated postings.
type SystemCategoryKeys struct {
	ClientPayment string `yaml:"client_payment"`
	RefundOther   string `yaml:"refund_other"`
}

// Rules holds the tunable business rules of the ledger.
type Rules struct {
	Owners             []Owner            `yaml:"owners"`
	PaymentKeywords    PaymentKeywords    `yaml:"payment_keywords"`
	CogsMarkers        []string           `yaml:"cogs_markers"`
	SystemCategories   SystemCategoryKeys `yaml:"system_categories"`
	DefaultBookingType string             `yaml:"default_booking_type"`
}

// DefaultRules returns the compiled-in rule set.
func DefaultRules() Rules {
	return Rules{
		Owners: []Owner{
			{ID: "A", Name: "Owner A", Share: 0.5},
			{ID: "B", Name: "Owner B", Share: 0.5},
		},
		PaymentKeywords: PaymentKeywords{
			Card:     []string{"POS", "CARD", "VISA", "MASTERCARD", "KARTE"},
			IBAN:     []string{"IBAN"},
			Cash:     []string{"CASH", "ATM", "BARGELD"},
			Transfer: []string{"TRANSFER", "SEPA", "UEBERWEISUNG", "WIRE"},
		},
		CogsMarkers: []string{"cost", "operator", "supplier"},
		SystemCategories: SystemCategoryKeys{
			ClientPayment: "client_payment",
			RefundOther:   "refund_other",
		},
		DefaultBookingType: "standard",
	}
}

// LoadRules reads a YAML rules file. Sections missing from the file keep
// their defaults. An empty path returns DefaultRules.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}

	var fromFile Rules
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return Rules{}, fmt.Errorf("failed to parse rules file: %w", err)
	}

	if len(fromFile.Owners) > 0 {
		rules.Owners = fromFile.Owners
	}
	if len(fromFile.PaymentKeywords.Card) > 0 {
		rules.PaymentKeywords.Card = fromFile.PaymentKeywords.Card
	}
	if len(fromFile.PaymentKeywords.IBAN) > 0 {
		rules.PaymentKeywords.IBAN = fromFile.PaymentKeywords.IBAN
	}
	if len(fromFile.PaymentKeywords.Cash) > 0 {
		rules.PaymentKeywords.Cash = fromFile.PaymentKeywords.Cash
	}
	if len(fromFile.PaymentKeywords.Transfer) > 0 {
		rules.PaymentKeywords.Transfer = fromFile.PaymentKeywords.Transfer
	}
	if len(fromFile.CogsMarkers) > 0 {
		rules.CogsMarkers = fromFile.CogsMarkers
	}
	if fromFile.SystemCategories.ClientPayment != "" {
		rules.SystemCategories.ClientPayment = fromFile.SystemCategories.ClientPayment
	}
	if fromFile.SystemCategories.RefundOther != "" {
		rules.SystemCategories.RefundOther = fromFile.SystemCategories.RefundOther
	}
	if fromFile.DefaultBookingType != "" {
		rules.DefaultBookingType = fromFile.DefaultBookingType
	}

	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// Validate checks owner ids are unique and shares are within [0,1] and sum to 1.
func (r Rules) Validate() error {
	if len(r.Owners) == 0 {
		return fmt.Errorf("rules: at least one owner is required")
	}
	seen := make(map[string]bool, len(r.Owners))
	total := decimal.Zero
	for _, o := range r.Owners {
		if o.ID == "" {
			return fmt.Errorf("rules: owner id is required")
		}
		if seen[o.ID] {
			return fmt.Errorf("rules: duplicate owner id %q", o.ID)
		}
		seen[o.ID] = true
		if o.Share < 0 || o.Share > 1 {
			return fmt.Errorf("rules: owner %q share %v outside [0,1]", o.ID, o.Share)
		}
		total = total.Add(o.ShareDecimal())
	}
	if !total.Round(4).Equal(decimal.NewFromInt(1)) {
		return fmt.Errorf("rules: owner shares sum to %s, expected 1", total.String())
	}
	return nil
}
