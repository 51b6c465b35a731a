package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// sort key -> column
var SortColumns = map[string]string{
	"price":     "price",
	"name":      "name",
	"createdAt": "created_at",
}

type Filter struct {
	Page     int
	Limit    int
	Sort     string // field, '-' prefix for descending
	Category string
	Search   string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	VendorID string
	// IncludeInactive lists deactivated products too (vendor views).
	IncludeInactive bool
}

func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	if f.Limit > MaxLimit {
		f.Limit = MaxLimit
	}
	if _, ok := SortColumns[strings.TrimPrefix(f.Sort, "-")]; !ok {
		f.Sort = "-createdAt"
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// SortKey returns the sort field and whether it is descending.
func (f Filter) SortKey() (string, bool) {
	return strings.TrimPrefix(f.Sort, "-"), strings.HasPrefix(f.Sort, "-")
}

func (f Filter) Offset() int { return (f.Page - 1) * f.Limit }

type Page struct {
	Items []Product `json:"items"`
	Page  int       `json:"page"`
	Limit int       `json:"limit"`
	Total int       `json:"total"`
	Pages int       `json:"pages"`
}

func NewPage(items []Product, total int, f Filter) Page {
	pages := 0
	if f.Limit > 0 {
		pages = (total + f.Limit - 1) / f.Limit
	}
	if items == nil {
		items = []Product{}
	}
	return Page{Items: items, Page: f.Page, Limit: f.Limit, Total: total, Pages: pages}
}
