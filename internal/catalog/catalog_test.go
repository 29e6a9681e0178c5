package catalog

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func qty(v float64) *float64 { return &v }

func strptr(s string) *string { return &s }

func sampleProducts() []Product {
	return []Product{
		{RemonlineID: 1, Name: "Чехол iPhone 15", Category: "Чехлы", Price: price("990"), Stocks: map[int64]float64{10: 3, 20: 0}, TotalStock: qty(3)},
		{RemonlineID: 2, Name: "Аккумулятор Galaxy S21", Category: "Аккумуляторы", Price: price("2500"), Stocks: map[int64]float64{10: 0, 20: 0}, TotalStock: qty(0)},
		{RemonlineID: 3, Name: "Дисплей Pixel 7", Category: "Дисплеи", Stocks: map[int64]float64{10: 1, 20: 4}, TotalStock: qty(5)},
		{RemonlineID: 4, Name: "Стекло защитное", Category: "Стекла", OriginalCategory: "Аксессуары", Price: price("150.5"), Stocks: map[int64]float64{20: 12}, TotalStock: qty(12)},
	}
}

func names(products []Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.Name)
	}
	return out
}

func TestFilterIsIdempotent(t *testing.T) {
	filters := []Filters{
		{},
		{Categories: []string{"Аксессуары"}},
		{Warehouses: []int64{20}},
		{PriceMin: price("500"), PriceMax: price("3000")},
		{StockMin: qty(1), StockMax: qty(6)},
		{Categories: []string{"Чехлы", "Дисплеи"}, Warehouses: []int64{10}, StockMin: qty(1)},
	}
	for _, f := range filters {
		once := Filter(sampleProducts(), f)
		twice := Filter(once, f)
		require.Equal(t, once, twice)
	}
}

func TestFilterMatchesOriginalCategory(t *testing.T) {
	got := Filter(sampleProducts(), Filters{Categories: []string{"Аксессуары"}})
	require.Equal(t, []string{"Стекло защитное"}, names(got))
}

func TestFilterPriceBoundsRejectMissingPrice(t *testing.T) {
	got := Filter(sampleProducts(), Filters{PriceMin: price("0")})
	require.NotContains(t, names(got), "Дисплей Pixel 7")

	got = Filter(sampleProducts(), Filters{PriceMin: price("990"), PriceMax: price("2500")})
	require.Equal(t, []string{"Чехол iPhone 15", "Аккумулятор Galaxy S21"}, names(got))
}

func TestFilterWarehouseSumExcludesZeroStock(t *testing.T) {
	got := Filter(sampleProducts(), Filters{Warehouses: []int64{10}})
	require.Equal(t, []string{"Чехол iPhone 15", "Дисплей Pixel 7"}, names(got))
}

func TestSortToggleReverses(t *testing.T) {
	products := sampleProducts()
	coll := NewCollator("ru")
	for _, key := range []string{"name", "category", "total", "price"} {
		asc := SortProducts(products, key, SortAsc, coll)
		desc := SortProducts(products, key, SortDesc, coll)
		reversed := make([]Product, len(desc))
		for i := range desc {
			reversed[len(desc)-1-i] = desc[i]
		}
		require.Equal(t, names(asc), names(reversed), key)
	}
}

func TestSortMissingNumbersCountAsZero(t *testing.T) {
	got := SortProducts(sampleProducts(), "price", SortAsc, nil)
	require.Equal(t, "Дисплей Pixel 7", got[0].Name)
}

func TestSortIsStableOnTies(t *testing.T) {
	products := []Product{
		{Name: "a", TotalStock: qty(1)},
		{Name: "b", TotalStock: qty(1)},
		{Name: "c", TotalStock: qty(1)},
	}
	require.Equal(t, []string{"a", "b", "c"}, names(SortProducts(products, "total", SortDesc, nil)))
	require.Equal(t, []string{"a", "b", "c"}, names(SortProducts(products, "total", SortAsc, nil)))
}

func TestSortByPriceList(t *testing.T) {
	products := []Product{
		{Name: "x", Prices: map[string]decimal.Decimal{"48388": decimal.NewFromInt(5)}},
		{Name: "y", Prices: map[string]decimal.Decimal{"48388": decimal.NewFromInt(50)}},
		{Name: "z"},
	}
	got := SortProducts(products, PriceSortKey("48388"), SortDesc, nil)
	require.Equal(t, []string{"y", "x", "z"}, names(got))
}

func TestReconcileMissingMember(t *testing.T) {
	members := []SubtabProduct{
		{ID: 7, ProductRemonlineID: 103, OrderIndex: 2, IsActive: true},
		{ID: 5, ProductRemonlineID: 101, OrderIndex: 0, IsActive: true, CustomName: strptr("Кастом")},
		{ID: 6, ProductRemonlineID: 102, OrderIndex: 1, IsActive: true},
	}
	products := []Product{
		{RemonlineID: 101, Name: "Оригинал", Category: "A", Price: price("10"), TotalStock: qty(2)},
		{RemonlineID: 103, Name: "Третий", Category: "B", Price: price("30"), TotalStock: qty(1)},
	}

	got := Reconcile(members, products)
	require.Len(t, got, 3)
	require.Equal(t, []int64{101, 102, 103}, []int64{got[0].RemonlineID, got[1].RemonlineID, got[2].RemonlineID})

	require.Equal(t, "Кастом", got[0].Name)
	require.Equal(t, "Оригинал", got[0].OriginalName)
	require.True(t, got[0].HasCustomName)
	require.False(t, got[0].HasCustomCategory)

	missing := got[1]
	require.True(t, missing.IsMissing)
	require.Nil(t, missing.Price)
	require.Nil(t, missing.TotalStock)
	require.Nil(t, missing.Stocks)
	require.Empty(t, missing.Images)
	require.EqualValues(t, 6, missing.MembershipID)

	require.False(t, got[2].IsMissing)
}

func TestMemberIDsSkipsInactive(t *testing.T) {
	members := []SubtabProduct{
		{ProductRemonlineID: 3, OrderIndex: 1, IsActive: true},
		{ProductRemonlineID: 2, OrderIndex: 0, IsActive: false},
		{ProductRemonlineID: 1, OrderIndex: 0, IsActive: true},
	}
	require.Equal(t, []int64{1, 3}, MemberIDs(members))
}

func TestParseBulkIDs(t *testing.T) {
	got := ParseBulkIDs("101, 102\n103 104")
	require.Equal(t, []int64{101, 102, 103, 104}, got.IDs)
	require.Empty(t, got.Invalid)
	require.NoError(t, got.Validate())

	got = ParseBulkIDs("5,5, abc\t-3 0 6\n5")
	require.Equal(t, []int64{5, 6}, got.IDs)
	require.Equal(t, []string{"abc", "-3", "0"}, got.Invalid)
	require.Equal(t, 2, got.Duplicates)
}

func TestParseBulkIDsValidation(t *testing.T) {
	var verr *ValidationError
	require.ErrorAs(t, ParseBulkIDs("   ").Validate(), &verr)
	require.ErrorAs(t, ParseBulkIDs("x y").Validate(), &verr)
	require.Contains(t, verr.Error(), "2 invalid")
}

func TestNormalizeImages(t *testing.T) {
	raw := json.RawMessage(`{"images":[
		{"thumbnail":"http://cdn/a_s.jpg","original":"http://cdn/a.jpg"},
		"http://cdn/b.jpg",
		{"preview":"http://cdn/a_p.jpg","full":"http://cdn/a.jpg"},
		{"caption":"no url"},
		{"link":"https://cdn/c.jpg"}
	]}`)
	got := NormalizeImages(raw)
	require.Equal(t, []Image{
		{Thumbnail: "http://cdn/a_s.jpg", Full: "http://cdn/a.jpg"},
		{Thumbnail: "http://cdn/b.jpg", Full: "http://cdn/b.jpg"},
		{Thumbnail: "https://cdn/c.jpg", Full: "https://cdn/c.jpg"},
	}, got)

	require.Nil(t, NormalizeImages(nil))
	require.Nil(t, NormalizeImages(json.RawMessage(`null`)))
	require.Len(t, NormalizeImages(json.RawMessage(`{"src":"http://x/y.png"}`)), 1)
}

func TestNormalizePrices(t *testing.T) {
	raw := json.RawMessage(`{"48388": 1200.5, "97150": "1 234,50", "377836": {"amount": "99"}, "555169": {"price": 10}, "bad": "n/a"}`)
	got := NormalizePrices(raw)
	require.Len(t, got, 4)
	require.True(t, decimal.RequireFromString("1200.5").Equal(got["48388"]))
	require.True(t, decimal.RequireFromString("1234.5").Equal(got["97150"]))
	require.True(t, decimal.NewFromInt(99).Equal(got["377836"]))
	require.True(t, decimal.NewFromInt(10).Equal(got["555169"]))

	require.Empty(t, NormalizePrices(json.RawMessage(`[1,2]`)))
}

func TestFormatAmount(t *testing.T) {
	require.Equal(t, "1 234 567,89", FormatAmount(decimal.RequireFromString("1234567.891")))
	require.Equal(t, "990", FormatAmount(decimal.NewFromInt(990)))
	require.Equal(t, "-1 000,5", FormatAmount(decimal.RequireFromString("-1000.50")))
	require.Equal(t, "-", FormatPrice(nil))
}

func TestTimestamps(t *testing.T) {
	ts := ParseTimestamp("2024-03-05T09:07:00.123456")
	require.Equal(t, "2024-03-05 09:07", FormatTimestamp(ts))
	require.True(t, ParseTimestamp("garbage").IsZero())
	require.Equal(t, "-", FormatTimestamp(time.Time{}))
}

func TestPageWindow(t *testing.T) {
	require.Equal(t, []int{1, 2, 3, 4, Gap, 10}, PageWindow(2, 10))
	require.Equal(t, []int{1, Gap, 4, 5, 6, 7, 8, Gap, 10}, PageWindow(6, 10))
	require.Equal(t, []int{1}, PageWindow(1, 1))
	require.Equal(t, 3, TotalPages(101, 50))
	require.Equal(t, 1, TotalPages(0, 50))
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	require.Equal(t, []int{3, 4}, Slice(items, 2, 2))
	require.Equal(t, []int{5}, Slice(items, 3, 2))
	require.Nil(t, Slice(items, 4, 2))
}

func TestServerSortKeys(t *testing.T) {
	require.True(t, ServerSortable("wh_52226"))
	require.False(t, ServerSortable("price_48388"))
	require.Equal(t, "total_stock", ServerSortKey("total"))
}
