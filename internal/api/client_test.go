package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/remstock/catalog-tui/internal/catalog"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(t *testing.T, fn roundTripFunc) *Client {
	t.Helper()
	return NewClient(
		WithBaseURL("http://backend.test/api/v1/"),
		WithHTTPClient(&http.Client{Transport: fn}),
	)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient()
	require.Equal(t, DefaultBaseURL, c.BaseURL())
	require.Equal(t, "http://localhost:8000/api/v1/tabs/?active_only=true", c.URL("/tabs/", url.Values{"active_only": {"true"}}))
}

func TestListProductsFirstPageQuery(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		got = req
		return jsonResponse(http.StatusOK, `{"success":true,"data":[],"count":0}`), nil
	})

	page, err := c.ListProducts(context.Background(), ListParams{Skip: 0, Limit: 50})
	require.NoError(t, err)
	require.Empty(t, page.Products)
	require.False(t, page.HasTotal)

	require.Equal(t, "/api/v1/products/", got.URL.Path)
	require.Equal(t, url.Values{"skip": {"0"}, "limit": {"50"}}, got.URL.Query())
}

func TestFilterProductsSendsFirstCategoryOnly(t *testing.T) {
	var got *http.Request
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		got = req
		return jsonResponse(http.StatusOK, `{"success":true,"data":[],"total":0,"count":0}`), nil
	})

	f := catalog.DefaultFilters()
	f.Categories = []string{"Дисплеи", "Аккумуляторы"}
	f.SortBy = "photos"

	page, err := c.FilterProducts(context.Background(), NewFilterParams(f, 0, 50, ""))
	require.NoError(t, err)
	require.True(t, page.HasTotal)
	require.Equal(t, url.Values{"skip": {"0"}, "limit": {"50"}, "category": {"Дисплеи"}}, got.URL.Query())
}

func TestFilterParamsSortWhitelist(t *testing.T) {
	cases := []struct {
		sortBy string
		want   string
	}{
		{sortBy: "name", want: "name"},
		{sortBy: "category", want: "category"},
		{sortBy: "price", want: "price"},
		{sortBy: "total", want: "total_stock"},
		{sortBy: "wh_52226", want: "wh_52226"},
		{sortBy: "price_48388", want: ""},
		{sortBy: "photos", want: ""},
	}
	for _, tc := range cases {
		t.Run(tc.sortBy, func(t *testing.T) {
			q := FilterParams{Limit: 50, SortBy: tc.sortBy, SortOrder: catalog.SortAsc}.Values()
			require.Equal(t, tc.want, q.Get("sort_by"))
			if tc.want == "" {
				require.Empty(t, q.Get("sort_order"))
				return
			}
			require.Equal(t, catalog.SortAsc, q.Get("sort_order"))
		})
	}
}

func TestFilterParamsBounds(t *testing.T) {
	floor := decimal.RequireFromString("100.5")
	stock := 3.0
	q := FilterParams{
		Limit:        10,
		Name:         "  экран ",
		WarehouseIDs: []int64{52226, 37746},
		PriceMin:     &floor,
		StockMin:     &stock,
		RemonlineIDs: []int64{101, 102},
	}.Values()

	require.Equal(t, "экран", q.Get("name"))
	require.Equal(t, "52226,37746", q.Get("warehouse_ids"))
	require.Equal(t, "100.5", q.Get("price_min"))
	require.Equal(t, "3", q.Get("stock_min"))
	require.Equal(t, "101,102", q.Get("remonline_ids"))
	require.Empty(t, q.Get("price_max"))
	require.Equal(t, "name", q.Get("sort_by"))
	require.Equal(t, catalog.SortDesc, q.Get("sort_order"))
}

func TestNonSuccessStatusIsError(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"detail":"Tab not found"}`), nil
	})

	_, err := c.GetTab(context.Background(), 7)
	require.Error(t, err)
	require.True(t, IsNotFound(err))

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.MethodGet, apiErr.Method)
	require.Equal(t, "/tabs/7", apiErr.Path)
	require.Contains(t, apiErr.Error(), "Tab not found")
}

func TestErrorBodyIsTruncated(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusInternalServerError, strings.Repeat("x", 4096)), nil
	})

	err := c.SyncAll(context.Background())
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	require.Len(t, apiErr.Body, int(errorBodyReadLimit))
}

func TestTransportErrorIsWrapped(t *testing.T) {
	boom := errors.New("connection refused")
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return nil, boom
	})

	_, err := c.ListTabs(context.Background(), TabQuery{ActiveOnly: true})
	require.ErrorIs(t, err, boom)
}

func TestNonArrayListsBecomeEmpty(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		switch req.URL.Path {
		case "/api/v1/tabs/":
			return jsonResponse(http.StatusOK, `{"detail":"unexpected"}`), nil
		case "/api/v1/warehouses/":
			return jsonResponse(http.StatusOK, `{"success":true,"data":{"oops":1}}`), nil
		}
		return jsonResponse(http.StatusOK, `null`), nil
	})

	tabs, err := c.ListTabs(context.Background(), TabQuery{ActiveOnly: true, Limit: 1000})
	require.NoError(t, err)
	require.NotNil(t, tabs)
	require.Empty(t, tabs)

	warehouses, err := c.ListWarehouses(context.Background(), true, 1000)
	require.NoError(t, err)
	require.Empty(t, warehouses)

	members, err := c.ListSubtabProducts(context.Background(), 3, 0)
	require.NoError(t, err)
	require.Empty(t, members)
}

func TestProductCatalogConversion(t *testing.T) {
	raw := `{"id":5,"remonline_id":101,"name":"Дисплей iPhone 12","sku":"DSP-12","category":"Дисплеи",
		"price":"1250.50","images_json":["https://img.test/a.jpg"],"prices_json":{"48388":"1 300,00"},
		"is_active":true,"updated_at":"2024-05-01T10:00:00"}`
	var p Product
	require.NoError(t, json.Unmarshal([]byte(raw), &p))

	out := p.Catalog()
	require.Equal(t, int64(101), out.RemonlineID)
	require.Equal(t, "DSP-12", out.SKU)
	require.NotNil(t, out.Price)
	require.True(t, out.Price.Equal(decimal.RequireFromString("1250.5")))
	require.True(t, out.Prices["48388"].Equal(decimal.NewFromInt(1300)))
	require.Len(t, out.Images, 1)
	require.Equal(t, 2024, out.UpdatedAt.Year())
	require.Nil(t, out.Stocks)
}

func TestProductCatalogNullPrice(t *testing.T) {
	var p Product
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"remonline_id":2,"name":"x","price":null}`), &p))
	require.Nil(t, p.Catalog().Price)
	require.True(t, p.Catalog().IsActive)
}

func TestStockMapSumsPerWarehouse(t *testing.T) {
	var entries []StockEntry
	require.NoError(t, json.Unmarshal([]byte(`[
		{"warehouse":{"remonline_id":52226},"available_quantity":2},
		{"warehouse":{"remonline_id":52226},"available_quantity":3},
		{"warehouse":{"remonline_id":37746},"available_quantity":null},
		{"warehouse":{},"available_quantity":9}
	]`), &entries))

	require.Equal(t, map[int64]float64{52226: 5, 37746: 0}, StockMap(entries))
}

func TestSyncProgressTreatsMalformedAsIdle(t *testing.T) {
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{"success":true,"data":"weird"}`), nil
	})

	status, err := c.SyncProgress(context.Background())
	require.NoError(t, err)
	require.Equal(t, SyncIdle, status.Status)
	require.Equal(t, "sync: not started", status.Text())
}

func TestSyncStatusText(t *testing.T) {
	require.Equal(t, "sync: 3/10", SyncStatus{Status: SyncRunning, Processed: 3, Total: 10}.Text())
	require.Equal(t, 30, SyncStatus{Status: SyncRunning, Processed: 3, Total: 10}.Percent())
	require.Equal(t, 0, SyncStatus{Status: SyncRunning}.Percent())
	require.True(t, SyncStatus{Status: SyncFailed}.Done())
}

func TestReorderBodies(t *testing.T) {
	var bodies []string
	c := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		b, _ := io.ReadAll(req.Body)
		bodies = append(bodies, req.URL.Path+" "+string(b))
		return jsonResponse(http.StatusOK, `{"message":"ok"}`), nil
	})

	require.NoError(t, c.ReorderTab(context.Background(), 4, 2))
	require.NoError(t, c.ReorderSubtabProducts(context.Background(), 9, []MemberOrder{{ID: 1, OrderIndex: 0}}))
	require.Equal(t, []string{
		`/api/v1/tabs/4/reorder {"new_order":2}`,
		`/api/v1/tabs/subtabs/9/products/reorder {"items":[{"id":1,"order_index":0}]}`,
	}, bodies)
}

func TestMemberPatchAlwaysSendsCustomFields(t *testing.T) {
	payload, err := json.Marshal(MemberPatch{})
	require.NoError(t, err)
	require.JSONEq(t, `{"custom_name":null,"custom_category":null}`, string(payload))
}
