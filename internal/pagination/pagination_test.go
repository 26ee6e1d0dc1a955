package pagination

import (
	"errors"
	"testing"
)

func TestPageRequest_Defaults(t *testing.T) {
	tests := []struct {
		name         string
		in           PageRequest
		wantPage     int
		wantPageSize int
	}{
		{"empty", PageRequest{}, 1, DefaultPageSize},
		{"kept", PageRequest{Page: 3, PageSize: 50}, 3, 50},
		{"capped", PageRequest{Page: 2, PageSize: 5000}, 2, MaxPageSize},
		{"negative", PageRequest{Page: -1, PageSize: -10}, 1, DefaultPageSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.in
			p.Defaults()
			if p.Page != tt.wantPage || p.PageSize != tt.wantPageSize {
				t.Errorf("Defaults() = %d/%d, want %d/%d", p.Page, p.PageSize, tt.wantPage, tt.wantPageSize)
			}
		})
	}
}

func TestSorting_OrderBy(t *testing.T) {
	sorting := Sorting{
		Columns:  map[string]string{"date": "date", "amount": "base_amount", "id": "id"},
		Default:  "-date",
		Tiebreak: "id",
	}

	tests := []struct {
		name string
		key  string
		want string
	}{
		{"default", "", "date DESC, id DESC"},
		{"ascending", "date", "date ASC, id ASC"},
		{"mapped column", "-amount", "base_amount DESC, id DESC"},
		{"tiebreak not repeated", "id", "id ASC"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sorting.OrderBy(tt.key)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("OrderBy(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}

	t.Run("unknown key", func(t *testing.T) {
		_, err := sorting.OrderBy("description; DROP TABLE transactions")
		if !errors.Is(err, ErrUnknownSort) {
			t.Errorf("expected ErrUnknownSort, got %v", err)
		}
	})
}

func TestNewPageResponse(t *testing.T) {
	resp := NewPageResponse[string](nil, 2, 20, 41)
	if resp.TotalPages != 3 {
		t.Errorf("expected 3 pages, got %d", resp.TotalPages)
	}
	if resp.Data == nil {
		t.Error("expected an empty slice, not nil")
	}
}
