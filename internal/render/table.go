// Package render turns an ordered product list into the cells of the
// product table. Cells are keyed by column so reordering never mixes values
// between columns.
package render

import (
	"fmt"
	"strings"

	"github.com/remstock/catalog-tui/internal/catalog"
	"github.com/remstock/catalog-tui/internal/columns"
)

// Markers used in cell text.
const (
	Unavailable  = "n/a"
	Empty        = "-"
	CustomMark   = "✓"
	MissingBadge = "[missing]"
	ArrowAsc     = "↑"
	ArrowDesc    = "↓"
	photoMark    = "▣"
	maxPhotos    = 3
)

var priceListTitles = map[string]string{
	"48388":  "Retail",
	"97150":  "Partner",
	"377836": "Parts",
	"555169": "Parts VIP",
}

// Header is one column heading.
type Header struct {
	Key     string
	Title   string
	SortKey string
	Arrow   string
}

// Cell is one table cell.
type Cell struct {
	Key         string
	Text        string
	Unavailable bool
}

// Row is the rendering of one product.
type Row struct {
	Product catalog.Product
	Meta    string
	Cells   []Cell
}

// Text returns the text of the cell with key, or "".
func (r Row) Text(key string) string {
	for _, c := range r.Cells {
		if c.Key == key {
			return c.Text
		}
	}
	return ""
}

// Table is the rendered product table.
type Table struct {
	Headers []Header
	Rows    []Row
}

// Keys returns the column keys in display order.
func (t Table) Keys() []string {
	keys := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		keys[i] = h.Key
	}
	return keys
}

// Layout describes which columns to show and how the list is sorted.
type Layout struct {
	// Columns are the visible column keys in display order. Nil shows every
	// present column in default order.
	Columns    []string
	Warehouses []catalog.Warehouse
	// Selected are the warehouses chosen in the filter. When set only their
	// stock columns are present.
	Selected  []int64
	SortBy    string
	SortOrder string
	// Unsorted hides the sort arrows while rows keep their membership order.
	Unsorted bool
}

// WarehousesToShow returns the warehouses that get a stock column.
func WarehousesToShow(all []catalog.Warehouse, selected []int64) []catalog.Warehouse {
	if len(selected) == 0 {
		return all
	}
	chosen := make(map[int64]struct{}, len(selected))
	for _, id := range selected {
		chosen[id] = struct{}{}
	}
	out := make([]catalog.Warehouse, 0, len(selected))
	for _, wh := range all {
		if _, ok := chosen[wh.RemonlineID]; ok {
			out = append(out, wh)
		}
	}
	return out
}

// Present returns every column the table can have for the layout, in
// default order.
func Present(warehouses []catalog.Warehouse, selected []int64) []string {
	return columns.DefaultOrder(catalog.WarehouseIDs(WarehousesToShow(warehouses, selected)))
}

// Build renders products. It builds every present cell, drops hidden
// columns and then orders the rest by key. Calling it twice with the same
// input gives the same table.
func Build(products []catalog.Product, layout Layout) Table {
	shown := WarehousesToShow(layout.Warehouses, layout.Selected)
	present := columns.DefaultOrder(catalog.WarehouseIDs(shown))
	titles := make(map[int64]string, len(shown))
	for _, wh := range shown {
		titles[wh.RemonlineID] = wh.Title
	}

	keys := present
	if layout.Columns != nil {
		keys = visibleKeys(present, layout.Columns)
	}

	headers := make([]Header, 0, len(keys))
	for _, key := range keys {
		h := Header{Key: key, Title: title(key, titles), SortKey: SortKey(key)}
		if !layout.Unsorted && h.SortKey != "" && h.SortKey == sortBy(layout.SortBy) {
			h.Arrow = ArrowDesc
			if layout.SortOrder == catalog.SortAsc {
				h.Arrow = ArrowAsc
			}
		}
		headers = append(headers, h)
	}

	rows := make([]Row, 0, len(products))
	for _, p := range products {
		all := cells(p, present)
		rows = append(rows, Row{
			Product: p,
			Meta:    meta(p),
			Cells:   columns.Arrange(keys, pick(all, keys), func(c Cell) string { return c.Key }),
		})
	}
	return Table{Headers: headers, Rows: rows}
}

func sortBy(key string) string {
	if key == "" {
		return catalog.DefaultSortBy
	}
	return key
}

// visibleKeys keeps the keys of order that are present, in order's order.
func visibleKeys(present, order []string) []string {
	set := make(map[string]struct{}, len(present))
	for _, k := range present {
		set[k] = struct{}{}
	}
	out := make([]string, 0, len(order))
	for _, k := range order {
		if _, ok := set[k]; ok {
			out = append(out, k)
		}
	}
	return out
}

func pick(all []Cell, keys []string) []Cell {
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	out := make([]Cell, 0, len(keys))
	for _, c := range all {
		if _, ok := want[c.Key]; ok {
			out = append(out, c)
		}
	}
	return out
}

// SortKey maps a column key to the list sort key, or "" when the column
// cannot be sorted.
func SortKey(key string) string {
	switch key {
	case columns.Name, columns.Category, columns.Total:
		return key
	case columns.PriceBase:
		return "price"
	}
	if id, ok := columns.WarehouseID(key); ok {
		return catalog.WarehouseSortKey(id)
	}
	if listID, ok := strings.CutPrefix(key, "price-"); ok {
		return catalog.PriceSortKey(listID)
	}
	return ""
}

// ColumnTitle is the heading of key for the given warehouses.
func ColumnTitle(key string, warehouses []catalog.Warehouse) string {
	titles := make(map[int64]string, len(warehouses))
	for _, wh := range warehouses {
		titles[wh.RemonlineID] = wh.Title
	}
	return title(key, titles)
}

func title(key string, warehouses map[int64]string) string {
	switch key {
	case columns.Photos:
		return "Photos"
	case columns.Name:
		return "Product"
	case columns.Category:
		return "Category"
	case columns.PriceBase:
		return "Price"
	case columns.Total:
		return "Total stock"
	}
	if id, ok := columns.WarehouseID(key); ok {
		if t, ok := warehouses[id]; ok && t != "" {
			return t
		}
		return catalog.MissingName(id)
	}
	if listID, ok := strings.CutPrefix(key, "price-"); ok {
		if t, ok := priceListTitles[listID]; ok {
			return fmt.Sprintf("%s (%s)", t, listID)
		}
		return listID
	}
	return key
}

func meta(p catalog.Product) string {
	sku := p.SKU
	if sku == "" {
		sku = Empty
	}
	return fmt.Sprintf("RemID: %d · SKU: %s · updated %s", p.RemonlineID, sku, catalog.FormatTimestamp(p.UpdatedAt))
}

func cells(p catalog.Product, keys []string) []Cell {
	out := make([]Cell, 0, len(keys))
	for _, key := range keys {
		out = append(out, cell(p, key))
	}
	return out
}

func cell(p catalog.Product, key string) Cell {
	switch key {
	case columns.Photos:
		return Cell{Key: key, Text: photos(p), Unavailable: p.IsMissing}
	case columns.Name:
		text := p.Name
		if p.HasCustomName {
			text += " " + CustomMark
		}
		if p.IsMissing {
			text += " " + MissingBadge
		}
		return Cell{Key: key, Text: text}
	case columns.Category:
		text := p.Category
		if text == "" {
			text = Empty
		}
		if p.HasCustomCategory {
			text += " " + CustomMark
		}
		return Cell{Key: key, Text: text}
	}

	if p.IsMissing {
		return Cell{Key: key, Text: Unavailable, Unavailable: true}
	}
	switch key {
	case columns.PriceBase:
		return Cell{Key: key, Text: catalog.FormatPrice(p.Price)}
	case columns.Total:
		total := 0.0
		if p.TotalStock != nil {
			total = *p.TotalStock
		}
		return Cell{Key: key, Text: catalog.FormatQuantity(total)}
	}
	if id, ok := columns.WarehouseID(key); ok {
		return Cell{Key: key, Text: catalog.FormatQuantity(p.Stock(id))}
	}
	if listID, ok := strings.CutPrefix(key, "price-"); ok {
		amount, found := p.Prices[listID]
		if !found {
			return Cell{Key: key, Text: Empty}
		}
		return Cell{Key: key, Text: catalog.FormatAmount(amount)}
	}
	return Cell{Key: key, Text: Empty}
}

func photos(p catalog.Product) string {
	if p.IsMissing {
		return Unavailable
	}
	n := len(p.Images)
	if n == 0 {
		return Empty
	}
	shown := n
	if shown > maxPhotos {
		shown = maxPhotos
	}
	text := strings.Repeat(photoMark, shown)
	if n > maxPhotos {
		text += fmt.Sprintf("+%d", n-maxPhotos)
	}
	return text
}
