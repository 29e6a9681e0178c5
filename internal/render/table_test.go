package render

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/remstock/catalog-tui/internal/catalog"
	"github.com/remstock/catalog-tui/internal/columns"
)

var warehouses = []catalog.Warehouse{
	{RemonlineID: 52226, Title: "05. Виртуальный склад"},
	{RemonlineID: 37746, Title: "01. Запчасти Ростов"},
}

func product() catalog.Product {
	price := decimal.RequireFromString("12500.5")
	total := 1234.0
	return catalog.Product{
		ID:          7,
		RemonlineID: 101,
		Name:        "Дисплей iPhone 12",
		SKU:         "DSP-12",
		Category:    "Дисплеи",
		Price:       &price,
		Prices:      map[string]decimal.Decimal{"48388": decimal.NewFromInt(13000)},
		Images:      []catalog.Image{{Full: "a"}, {Full: "b"}, {Full: "c"}, {Full: "d"}},
		Stocks:      map[int64]float64{52226: 1234},
		TotalStock:  &total,
		UpdatedAt:   time.Date(2024, 5, 1, 10, 30, 0, 0, time.Local),
	}
}

func TestBuildAllColumns(t *testing.T) {
	table := Build([]catalog.Product{product()}, Layout{Warehouses: warehouses})

	require.Equal(t, append(columns.StaticKeys(), "wh-52226", "wh-37746"), table.Keys())
	row := table.Rows[0]
	require.Equal(t, table.Keys(), cellKeys(row))
	require.Equal(t, "▣▣▣+1", row.Text(columns.Photos))
	require.Equal(t, "Дисплей iPhone 12", row.Text(columns.Name))
	require.Equal(t, "12 500,5", row.Text(columns.PriceBase))
	require.Equal(t, "13 000", row.Text(columns.Price48388))
	require.Equal(t, Empty, row.Text(columns.Price97150))
	require.Equal(t, "1 234", row.Text(columns.Total))
	require.Equal(t, "1 234", row.Text("wh-52226"))
	require.Equal(t, "0", row.Text("wh-37746"))
	require.Equal(t, "RemID: 101 · SKU: DSP-12 · updated 2024-05-01 10:30", row.Meta)
}

func cellKeys(row Row) []string {
	out := make([]string, len(row.Cells))
	for i, c := range row.Cells {
		out[i] = c.Key
	}
	return out
}

func TestBuildMissingProductIsUnavailable(t *testing.T) {
	missing := catalog.Product{RemonlineID: 102, Name: "#102", IsMissing: true}
	table := Build([]catalog.Product{missing}, Layout{Warehouses: warehouses})

	row := table.Rows[0]
	require.Equal(t, "#102 [missing]", row.Text(columns.Name))
	for _, key := range []string{columns.PriceBase, columns.Price48388, columns.Total, "wh-52226", columns.Photos} {
		require.Equal(t, Unavailable, row.Text(key), key)
	}
	require.Equal(t, "RemID: 102 · SKU: - · updated -", row.Meta)
}

func TestBuildCustomMarks(t *testing.T) {
	p := product()
	p.HasCustomName = true
	p.HasCustomCategory = true
	row := Build([]catalog.Product{p}, Layout{Warehouses: warehouses}).Rows[0]

	require.Equal(t, "Дисплей iPhone 12 ✓", row.Text(columns.Name))
	require.Equal(t, "Дисплеи ✓", row.Text(columns.Category))
}

func TestBuildAppliesVisibilityThenOrder(t *testing.T) {
	layout := Layout{
		Columns:    []string{"wh-37746", columns.Total, columns.Name, "wh-99"},
		Warehouses: warehouses,
	}
	table := Build([]catalog.Product{product(), product()}, layout)

	require.Equal(t, []string{"wh-37746", columns.Total, columns.Name}, table.Keys())
	for _, row := range table.Rows {
		require.Equal(t, table.Keys(), cellKeys(row))
	}
	require.Equal(t, table, Build([]catalog.Product{product(), product()}, layout))
}

func TestBuildSelectedWarehousesOnly(t *testing.T) {
	table := Build(nil, Layout{Warehouses: warehouses, Selected: []int64{37746}})
	require.Equal(t, append(columns.StaticKeys(), "wh-37746"), table.Keys())
	require.Equal(t, "01. Запчасти Ростов", table.Headers[len(table.Headers)-1].Title)
	require.Empty(t, table.Rows)
}

func TestSortArrows(t *testing.T) {
	table := Build(nil, Layout{Warehouses: warehouses, SortBy: "wh_52226", SortOrder: catalog.SortAsc})
	for _, h := range table.Headers {
		if h.Key == "wh-52226" {
			require.Equal(t, ArrowAsc, h.Arrow)
			continue
		}
		require.Empty(t, h.Arrow, h.Key)
	}

	table = Build(nil, Layout{Warehouses: warehouses})
	require.Equal(t, ArrowDesc, table.Headers[1].Arrow)

	table = Build(nil, Layout{Warehouses: warehouses, Unsorted: true})
	for _, h := range table.Headers {
		require.Empty(t, h.Arrow, h.Key)
	}
}

func TestSortKey(t *testing.T) {
	require.Equal(t, "price", SortKey(columns.PriceBase))
	require.Equal(t, "price_48388", SortKey(columns.Price48388))
	require.Equal(t, "wh_52226", SortKey("wh-52226"))
	require.Equal(t, "total", SortKey(columns.Total))
	require.Empty(t, SortKey(columns.Photos))
}

func TestPresent(t *testing.T) {
	require.Equal(t, columns.DefaultOrder([]int64{52226, 37746}), Present(warehouses, nil))
	require.Equal(t, columns.DefaultOrder([]int64{52226}), Present(warehouses, []int64{52226}))
}

func TestColumnTitle(t *testing.T) {
	require.Equal(t, "Product", ColumnTitle(columns.Name, nil))
	require.Equal(t, "Retail (48388)", ColumnTitle(columns.Price48388, nil))
	require.Equal(t, warehouses[0].Title, ColumnTitle(columns.WarehouseKey(warehouses[0].RemonlineID), warehouses))
	require.Equal(t, catalog.MissingName(999), ColumnTitle(columns.WarehouseKey(999), warehouses))
}
