package catalog

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sort key prefixes for per price list and per warehouse columns.
const (
	PriceKeyPrefix     = "price_"
	WarehouseKeyPrefix = "wh_"
)

// NewCollator builds a locale aware string collator. Unknown tags fall back
// to Russian, the catalog's data language.
func NewCollator(lang string) *collate.Collator {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		tag = language.Russian
	}
	return collate.New(tag, collate.IgnoreCase)
}

// WarehouseSortKey is the sort key for a warehouse stock column.
func WarehouseSortKey(id int64) string {
	return WarehouseKeyPrefix + strconv.FormatInt(id, 10)
}

// PriceSortKey is the sort key for a price list column.
func PriceSortKey(listID string) string {
	return PriceKeyPrefix + listID
}

// SortProducts returns a copy of products ordered by key. String keys compare
// through coll; numeric keys treat missing values as zero. Order is either
// SortAsc or SortDesc. The sort is stable so ties keep their input order.
func SortProducts(products []Product, key, order string, coll *collate.Collator) []Product {
	out := append([]Product(nil), products...)
	if coll == nil {
		coll = NewCollator("ru")
	}
	dir := -1
	if order == SortAsc {
		dir = 1
	}
	cmp := comparator(key, coll)
	if cmp == nil {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		return cmp(out[i], out[j])*dir < 0
	})
	return out
}

func comparator(key string, coll *collate.Collator) func(a, b Product) int {
	if key == "" {
		key = DefaultSortBy
	}
	switch {
	case key == "name":
		return func(a, b Product) int { return coll.CompareString(a.Name, b.Name) }
	case key == "category":
		return func(a, b Product) int { return coll.CompareString(a.Category, b.Category) }
	case key == "price":
		return numeric(func(p Product) float64 {
			if p.Price == nil {
				return 0
			}
			return p.Price.InexactFloat64()
		})
	case key == "total":
		return numeric(func(p Product) float64 {
			if p.TotalStock == nil {
				return 0
			}
			return *p.TotalStock
		})
	case strings.HasPrefix(key, PriceKeyPrefix):
		listID := strings.TrimPrefix(key, PriceKeyPrefix)
		return numeric(func(p Product) float64 {
			amount, ok := p.Prices[listID]
			if !ok {
				return 0
			}
			return amount.InexactFloat64()
		})
	case strings.HasPrefix(key, WarehouseKeyPrefix):
		id, err := strconv.ParseInt(strings.TrimPrefix(key, WarehouseKeyPrefix), 10, 64)
		if err != nil {
			return nil
		}
		return numeric(func(p Product) float64 { return p.Stock(id) })
	}
	return nil
}

func numeric(value func(Product) float64) func(a, b Product) int {
	return func(a, b Product) int {
		va, vb := value(a), value(b)
		switch {
		case va < vb:
			return -1
		case va > vb:
			return 1
		}
		return 0
	}
}

// OrderMembers returns members ordered by order_index. Equal indexes keep
// their array position.
func OrderMembers(members []SubtabProduct) []SubtabProduct {
	out := append([]SubtabProduct(nil), members...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OrderIndex < out[j].OrderIndex
	})
	return out
}

// OrderByMembership sorts reconciled products by their membership order_index.
func OrderByMembership(products []Product) []Product {
	out := append([]Product(nil), products...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OrderIndex < out[j].OrderIndex
	})
	return out
}

// OrderTabs sorts tabs by order_index, keeping array position on ties.
func OrderTabs(tabs []Tab) []Tab {
	out := append([]Tab(nil), tabs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OrderIndex < out[j].OrderIndex
	})
	return out
}

// OrderSubtabs sorts subtabs by order_index, keeping array position on ties.
func OrderSubtabs(subtabs []Subtab) []Subtab {
	out := append([]Subtab(nil), subtabs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OrderIndex < out[j].OrderIndex
	})
	return out
}

// Categories returns the distinct non-empty categories in collation order.
func Categories(products []Product, coll *collate.Collator) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range products {
		for _, c := range []string{p.Category, p.OriginalCategory} {
			if c == "" {
				continue
			}
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	if coll == nil {
		coll = NewCollator("ru")
	}
	coll.SortStrings(out)
	return out
}

// ServerSortable reports whether the backend can sort by key.
func ServerSortable(key string) bool {
	switch key {
	case "name", "category", "price", "total":
		return true
	}
	return strings.HasPrefix(key, WarehouseKeyPrefix)
}

// ServerSortKey maps a client sort key to the backend's field name.
func ServerSortKey(key string) string {
	if key == "total" {
		return "total_stock"
	}
	return key
}
