package heuristics

import (
	"testing"

	"crocus/internal/config"
	"crocus/internal/models"
)

func TestPaymentMethod(t *testing.T) {
	kw := config.DefaultRules().PaymentKeywords

	tests := []struct {
		desc string
		want models.PaymentMethod
	}{
		{"POS 4711 HOTEL ATLANTIS", models.PaymentCard},
		{"Visa purchase airline", models.PaymentCard},
		{"IBAN DE89370400440532013000 client deposit", models.PaymentIBAN},
		{"ATM withdrawal", models.PaymentCash},
		{"SEPA credit transfer", models.PaymentBank},
		{"something unrecognised", models.PaymentBank},
		{"DEPOSIT from client", models.PaymentBank},
		{"card payment via IBAN", models.PaymentCard},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			if got := PaymentMethod(tt.desc, kw); got != tt.want {
				t.Errorf("PaymentMethod(%q) = %s, want %s", tt.desc, got, tt.want)
			}
		})
	}
}

func TestDetectOwner(t *testing.T) {
	owners := []config.Owner{
		{ID: "A", Name: "Anna Petrova", Aliases: []string{"Anya"}},
		{ID: "B", Name: "Boris", Aliases: []string{"B. Ivanov"}},
	}

	tests := []struct {
		name   string
		text   string
		want   string
		wantOK bool
	}{
		{"full name", "Payout to Anna Petrova", "A", true},
		{"alias", "anya dividends", "A", true},
		{"single name", "Transfer BORIS", "B", true},
		{"partial name does not match", "Anna Karenina book", "", false},
		{"both owners is ambiguous", "Anya and Boris dinner", "", false},
		{"no owner", "Hotel invoice", "", false},
		{"empty", "   ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DetectOwner(tt.text, owners)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("DetectOwner(%q) = (%q, %v), want (%q, %v)", tt.text, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestIsCogs(t *testing.T) {
	markers := config.DefaultRules().CogsMarkers

	tests := []struct {
		name string
		cat  *models.Category
		want bool
	}{
		{"nil category", nil, false},
		{"explicit cogs side", &models.Category{Name: "Hotels", Side: models.CategorySideCogs}, true},
		{"expense with operator marker", &models.Category{Name: "Tour Operator payments", Side: models.CategorySideExpense}, true},
		{"expense with cost marker", &models.Category{Name: "Direct costs", Side: models.CategorySideExpense}, true},
		{"plain expense", &models.Category{Name: "Office rent", Side: models.CategorySideExpense}, false},
		{"income never cogs", &models.Category{Name: "Supplier rebates", Side: models.CategorySideIncome}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsCogs(tt.cat, markers); got != tt.want {
				t.Errorf("IsCogs() = %v, want %v", got, tt.want)
			}
		})
	}
}
