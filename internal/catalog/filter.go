package catalog

import (
	"github.com/shopspring/decimal"
)

// Sort directions.
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// DefaultSortBy is the sort key used until the user picks one.
const DefaultSortBy = "name"

// Filters is the user controlled narrowing and ordering of the product list.
type Filters struct {
	Categories []string
	Warehouses []int64
	PriceMin   *decimal.Decimal
	PriceMax   *decimal.Decimal
	StockMin   *float64
	StockMax   *float64
	SortBy     string
	SortOrder  string
}

// DefaultFilters returns empty filters sorted by name, descending.
func DefaultFilters() Filters {
	return Filters{SortBy: DefaultSortBy, SortOrder: SortDesc}
}

// Active reports whether any narrowing filter is set.
func (f Filters) Active() bool {
	return len(f.Categories) > 0 || len(f.Warehouses) > 0 ||
		f.PriceMin != nil || f.PriceMax != nil ||
		f.StockMin != nil || f.StockMax != nil
}

// Clone returns a deep copy so callers can hand filters across goroutines.
func (f Filters) Clone() Filters {
	out := f
	out.Categories = append([]string(nil), f.Categories...)
	out.Warehouses = append([]int64(nil), f.Warehouses...)
	return out
}

// Filter returns the products matching f, in their original order. It never
// mutates the input and applying it to its own output is a no-op.
func Filter(products []Product, f Filters) []Product {
	out := make([]Product, 0, len(products))
	for _, p := range products {
		if Matches(p, f) {
			out = append(out, p)
		}
	}
	return out
}

// Matches reports whether a single product passes f.
func Matches(p Product, f Filters) bool {
	if len(f.Categories) > 0 && !matchesCategory(p, f.Categories) {
		return false
	}
	if f.PriceMin != nil && (p.Price == nil || p.Price.LessThan(*f.PriceMin)) {
		return false
	}
	if f.PriceMax != nil && (p.Price == nil || p.Price.GreaterThan(*f.PriceMax)) {
		return false
	}

	stock := 0.0
	if p.TotalStock != nil {
		stock = *p.TotalStock
	}
	if len(f.Warehouses) > 0 {
		stock = p.StockSum(f.Warehouses)
		if stock <= 0 {
			return false
		}
	}
	if f.StockMin != nil && stock < *f.StockMin {
		return false
	}
	if f.StockMax != nil && stock > *f.StockMax {
		return false
	}
	return true
}

func matchesCategory(p Product, categories []string) bool {
	for _, c := range categories {
		if c == p.Category {
			return true
		}
		if p.OriginalCategory != "" && c == p.OriginalCategory {
			return true
		}
	}
	return false
}

// TotalStock sums stocks over the selected warehouses, or over every known
// warehouse when none are selected.
func TotalStock(stocks map[int64]float64, selected []int64, known []int64) float64 {
	ids := selected
	if len(ids) == 0 {
		ids = known
	}
	var sum float64
	for _, id := range ids {
		sum += stocks[id]
	}
	return sum
}
