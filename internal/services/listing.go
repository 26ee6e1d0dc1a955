package services

import (
	"crocus/internal/pagination"

	apperrors "crocus/internal/errors"
)

// Sort keys offered by the paginated listings.
var (
	transactionSorting = pagination.Sorting{
		Columns: map[string]string{
			"date":       "date",
			"due_date":   "due_date",
			"amount":     "base_amount",
			"created_at": "created_at",
		},
		Default:  "-date",
		Tiebreak: "id",
	}
	importSorting = pagination.Sorting{
		Columns:  map[string]string{"created_at": "created_at", "imported": "imported"},
		Default:  "-created_at",
		Tiebreak: "id",
	}
	nameSorting = pagination.Sorting{
		Columns:  map[string]string{"name": "name", "created_at": "created_at"},
		Default:  "name",
		Tiebreak: "id",
	}
)

// pageOrder fills page defaults and resolves its sort key.
func pageOrder(page *pagination.PageRequest, sorting pagination.Sorting) (string, error) {
	page.Defaults()
	order, err := sorting.OrderBy(page.Sort)
	if err != nil {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error())
	}
	return order, nil
}
