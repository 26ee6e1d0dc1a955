package pagination

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// Page size bounds. Requests through the API are bound by the binding tags;
// Defaults clamps the rest (CLI and service callers).
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ErrUnknownSort is returned for a sort key a listing does not offer.
var ErrUnknownSort = errors.New("pagination: unknown sort key")

// PageRequest holds pagination parameters parsed from query strings.
// Sort names one of the listing's sort keys; a leading "-" reverses it.
type PageRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Sort     string `form:"sort" binding:"omitempty,max=32"`
}

// Defaults fills in default values when page or page_size are not provided
// and caps the page size.
func (p *PageRequest) Defaults() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
}

// Offset returns the SQL OFFSET for the current page.
func (p *PageRequest) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// Sorting describes the orders a listing accepts. Columns maps each sort
// key to its column. Tiebreak is appended in the same direction so rows
// with equal keys keep a stable position across pages.
type Sorting struct {
	Columns  map[string]string
	Default  string
	Tiebreak string
}

// OrderBy resolves a sort key (empty means the default) to an ORDER BY clause.
func (s Sorting) OrderBy(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		key = s.Default
	}

	dir := "ASC"
	name := key
	if strings.HasPrefix(key, "-") {
		dir = "DESC"
		name = key[1:]
	}
	col, ok := s.Columns[name]
	if !ok {
		return "", fmt.Errorf("%w %q, expected one of %s", ErrUnknownSort, key, strings.Join(s.Keys(), ", "))
	}

	order := col + " " + dir
	if s.Tiebreak != "" && s.Tiebreak != col {
		order += ", " + s.Tiebreak + " " + dir
	}
	return order, nil
}

// Keys lists the accepted sort keys in ascending order.
func (s Sorting) Keys() []string {
	keys := make([]string, 0, len(s.Columns))
	for k := range s.Columns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PageResponse wraps a paginated list of items with metadata.
type PageResponse[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// NewPageResponse creates a PageResponse from the given data and total count.
func NewPageResponse[T any](data []T, page, pageSize int, totalItems int64) PageResponse[T] {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(math.Ceil(float64(totalItems) / float64(pageSize)))
	}
	if data == nil {
		data = []T{}
	}
	return PageResponse[T]{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
	}
}

// Paginate returns a GORM scope that applies OFFSET and LIMIT for the given page request.
func Paginate(req PageRequest) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(req.Offset()).Limit(req.PageSize)
	}
}
