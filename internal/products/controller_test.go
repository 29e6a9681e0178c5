package products

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/remstock/catalog-tui/internal/api"
	"github.com/remstock/catalog-tui/internal/apitest"
	"github.com/remstock/catalog-tui/internal/catalog"
)

func newController(t *testing.T, opts Options) (*apitest.Server, *Controller) {
	t.Helper()
	srv := apitest.New(t)
	opts.Log = zerolog.Nop()
	ctrl := NewController(srv.Client(), opts)
	ctrl.SetWarehouses([]int64{52226, 37746})
	return srv, ctrl
}

func names(products []catalog.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}

func TestFirstPageWithoutFilters(t *testing.T) {
	srv, ctrl := newController(t, Options{})
	srv.AddProduct(101, "Дисплей", "Дисплеи", 100, map[int64]float64{52226: 2})

	page, err := ctrl.Load(context.Background(), ctrl.WantsServerFilters())
	require.NoError(t, err)
	require.Len(t, page.Products, 1)

	reqs := srv.RequestsTo(http.MethodGet, "/products/")
	require.Len(t, reqs, 1)
	require.Equal(t, url.Values{"skip": {"0"}, "limit": {"50"}}, reqs[0].Query)

	state := ctrl.State()
	require.False(t, state.HasMore)
	require.Equal(t, 1, state.TotalPages)
	require.False(t, state.Loading)
}

func TestServerFiltersSendCategory(t *testing.T) {
	srv, ctrl := newController(t, Options{})
	srv.AddProduct(101, "Дисплей", "Дисплеи", 100, nil)

	f := catalog.DefaultFilters()
	f.Categories = []string{"Дисплеи"}
	ctrl.ApplyFilters(f)
	require.True(t, ctrl.WantsServerFilters())

	_, err := ctrl.Load(context.Background(), true)
	require.NoError(t, err)

	reqs := srv.RequestsTo(http.MethodGet, "/products/filtered")
	require.Len(t, reqs, 1)
	q := reqs[0].Query
	require.Equal(t, "0", q.Get("skip"))
	require.Equal(t, "50", q.Get("limit"))
	require.Equal(t, "Дисплеи", q.Get("category"))
	require.Equal(t, "name", q.Get("sort_by"))
	require.Equal(t, catalog.SortDesc, q.Get("sort_order"))
}

func TestUnfilteredPagingEstimatesNextPage(t *testing.T) {
	srv, ctrl := newController(t, Options{PageSize: 2})
	for i := int64(0); i < 3; i++ {
		srv.AddProduct(100+i, "p", "c", 1, nil)
	}

	_, err := ctrl.Load(context.Background(), false)
	require.NoError(t, err)
	state := ctrl.State()
	require.True(t, state.HasMore)
	require.Equal(t, 2, state.TotalPages)

	require.True(t, ctrl.GoToPage(2))
	_, err = ctrl.Load(context.Background(), false)
	require.NoError(t, err)
	state = ctrl.State()
	require.False(t, state.HasMore)
	require.Equal(t, 2, state.TotalPages)
	require.Len(t, state.Products, 1)
	require.False(t, ctrl.GoToPage(9))
}

func seedSubtab(srv *apitest.Server) catalog.Subtab {
	tab := srv.AddTab("iPhone", catalog.MainTabApple)
	subtab := srv.AddSubtab(tab.ID, "Основной список")
	srv.AddMember(subtab.ID, 101, 0, "")
	srv.AddMember(subtab.ID, 102, 1, "")
	srv.AddMember(subtab.ID, 103, 2, "Гамма")
	return subtab
}

func TestSubtabReconcilesMissingProducts(t *testing.T) {
	srv, ctrl := newController(t, Options{})
	subtab := seedSubtab(srv)
	beta := srv.AddProduct(101, "Бета", "Дисплеи", 10, map[int64]float64{52226: 1})
	srv.AddProduct(103, "Экран", "Дисплеи", 30, map[int64]float64{37746: 4})

	ctrl.SetActiveSubtab(&subtab)
	page, err := ctrl.Load(context.Background(), false)
	require.NoError(t, err)

	require.Len(t, page.Products, 3)
	require.Equal(t, []string{"Бета", "#102", "Гамма"}, names(page.Products))
	missing := page.Products[1]
	require.True(t, missing.IsMissing)
	require.Nil(t, missing.Price)
	require.Nil(t, missing.Stocks)
	require.Nil(t, missing.TotalStock)
	require.True(t, page.Products[2].HasCustomName)
	require.Equal(t, "Экран", page.Products[2].OriginalName)

	reqs := srv.RequestsTo(http.MethodGet, "/products/filtered")
	require.Len(t, reqs, 1)
	require.Equal(t, "101,102,103", reqs[0].Query.Get("remonline_ids"))
	require.Equal(t, "10000", reqs[0].Query.Get("limit"))
	require.Len(t, srv.RequestsTo(http.MethodGet, "/stocks/product/"+strconv.FormatInt(beta.ID, 10)), 1)
}

func TestSubtabResolvesEveryMember(t *testing.T) {
	srv, ctrl := newController(t, Options{})
	tab := srv.AddTab("iPhone", catalog.MainTabApple)
	subtab := srv.AddSubtab(tab.ID, "Большой")
	for i := 0; i < 150; i++ {
		srv.AddMember(subtab.ID, int64(1000+i), i, "")
	}

	ctrl.SetActiveSubtab(&subtab)
	page, err := ctrl.Load(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, page.Fetched, 150)
	require.Equal(t, 150, page.Total)
	require.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Products, 50)

	reqs := srv.RequestsTo(http.MethodGet, "/tabs/subtabs/"+strconv.FormatInt(subtab.ID, 10)+"/products")
	require.Len(t, reqs, 1)
	require.Equal(t, "10000", reqs[0].Query.Get("limit"))
	require.Equal(t, "true", reqs[0].Query.Get("active_only"))
}

func TestSubtabUserSortAndReset(t *testing.T) {
	srv, ctrl := newController(t, Options{})
	subtab := seedSubtab(srv)
	other := srv.AddSubtab(subtab.TabID, "Второй")
	srv.AddProduct(101, "Бета", "c", 1, nil)
	srv.AddProduct(102, "Альфа", "c", 1, nil)
	srv.AddProduct(103, "Экран", "c", 1, nil)
	ctx := context.Background()

	ctrl.SetActiveSubtab(&subtab)
	page, err := ctrl.Load(ctx, false)
	require.NoError(t, err)
	require.Equal(t, []string{"Бета", "Альфа", "Гамма"}, names(page.Products))

	ctrl.ToggleSort("name")
	page, err = ctrl.Load(ctx, false)
	require.NoError(t, err)
	require.Equal(t, []string{"Гамма", "Бета", "Альфа"}, names(page.Products))
	require.True(t, ctrl.State().UserSortActive)

	ctrl.ToggleSort("name")
	page, err = ctrl.Load(ctx, false)
	require.NoError(t, err)
	require.Equal(t, []string{"Альфа", "Бета", "Гамма"}, names(page.Products))

	ctrl.SetActiveSubtab(&other)
	require.False(t, ctrl.State().UserSortActive)
	ctrl.SetActiveSubtab(&subtab)
	page, err = ctrl.Load(ctx, false)
	require.NoError(t, err)
	require.Equal(t, []string{"Бета", "Альфа", "Гамма"}, names(page.Products))
}

func TestToggleSortDirection(t *testing.T) {
	_, ctrl := newController(t, Options{})
	ctrl.ToggleSort("price")
	f := ctrl.State().Filters
	require.Equal(t, "price", f.SortBy)
	require.Equal(t, catalog.SortDesc, f.SortOrder)

	ctrl.ToggleSort("price")
	require.Equal(t, catalog.SortAsc, ctrl.State().Filters.SortOrder)

	ctrl.ToggleSort("name")
	require.Equal(t, catalog.SortDesc, ctrl.State().Filters.SortOrder)

	ctrl.ResetFilters()
	require.Equal(t, catalog.DefaultFilters(), ctrl.State().Filters)
	require.False(t, ctrl.State().UserSortActive)
}

func TestBeginGuardsReentry(t *testing.T) {
	_, ctrl := newController(t, Options{})

	req, ok := ctrl.Begin(false)
	require.True(t, ok)
	_, ok = ctrl.Begin(true)
	require.False(t, ok)

	_, pending := ctrl.TakePending()
	require.False(t, pending, "pending is only released once the load ends")

	ctrl.Abort(req.Seq)
	server, pending := ctrl.TakePending()
	require.True(t, pending)
	require.True(t, server)

	_, pending = ctrl.TakePending()
	require.False(t, pending)
}

func TestLoadInFlight(t *testing.T) {
	_, ctrl := newController(t, Options{})
	_, ok := ctrl.Begin(false)
	require.True(t, ok)

	_, err := ctrl.Load(context.Background(), false)
	require.ErrorIs(t, err, ErrLoadInFlight)
}

func TestStalePageIsDropped(t *testing.T) {
	srv, ctrl := newController(t, Options{})
	subtab := seedSubtab(srv)
	srv.AddProduct(101, "Бета", "c", 1, nil)
	ctx := context.Background()

	req, ok := ctrl.Begin(false)
	require.True(t, ok)
	page, err := ctrl.Fetch(ctx, req)
	require.NoError(t, err)

	ctrl.SetActiveSubtab(&subtab)
	require.False(t, ctrl.Apply(page))
	require.Empty(t, ctrl.State().Products)
	require.False(t, ctrl.State().Loading)

	_, pending := ctrl.TakePending()
	require.True(t, pending)
	page, err = ctrl.Load(ctx, false)
	require.NoError(t, err)
	require.Len(t, page.Products, 3)
}

func TestStockFailureKeepsLastKnown(t *testing.T) {
	srv, ctrl := newController(t, Options{})
	p := srv.AddProduct(101, "Бета", "c", 1, map[int64]float64{52226: 7})
	ctx := context.Background()

	page, err := ctrl.Load(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 7.0, page.Products[0].Stock(52226))

	srv.Fail(http.MethodGet, "/stocks/product/"+strconv.FormatInt(p.ID, 10), http.StatusInternalServerError)
	page, err = ctrl.Load(ctx, false)
	require.NoError(t, err)
	require.Equal(t, 7.0, page.Products[0].Stock(52226))
	require.Equal(t, 7.0, *page.Products[0].TotalStock)
}

func TestStockFailureWithoutHistoryIsZero(t *testing.T) {
	srv, ctrl := newController(t, Options{})
	p := srv.AddProduct(101, "Бета", "c", 1, map[int64]float64{52226: 7})
	srv.Fail(http.MethodGet, "/stocks/product/"+strconv.FormatInt(p.ID, 10), http.StatusBadGateway)

	page, err := ctrl.Load(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, map[int64]float64{52226: 0, 37746: 0}, page.Products[0].Stocks)
	require.Zero(t, *page.Products[0].TotalStock)
}

func TestStockPoolIsBounded(t *testing.T) {
	srv, ctrl := newController(t, Options{StockConcurrency: 3})
	for i := int64(0); i < 12; i++ {
		srv.AddProduct(200+i, "p", "c", 1, map[int64]float64{52226: 1})
	}
	srv.SetStockDelay(20 * time.Millisecond)

	page, err := ctrl.Load(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, page.Products, 12)
	require.LessOrEqual(t, srv.MaxStockInFlight(), 3)
	for _, p := range page.Products {
		require.Equal(t, 1.0, *p.TotalStock)
	}
}

func TestTotalStockFollowsWarehouseFilter(t *testing.T) {
	srv, ctrl := newController(t, Options{})
	srv.AddProduct(101, "Бета", "c", 1, map[int64]float64{52226: 2, 37746: 5})
	srv.AddProduct(102, "Альфа", "c", 1, map[int64]float64{37746: 3})

	page, err := ctrl.Load(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 7.0, *page.Products[0].TotalStock)

	f := catalog.DefaultFilters()
	f.Warehouses = []int64{52226}
	ctrl.ApplyFilters(f)
	page, err = ctrl.Load(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, []string{"Бета"}, names(page.Products))
	require.Equal(t, 2.0, *page.Products[0].TotalStock)
}

func TestSubtabFiltersAndSearchAreClientSide(t *testing.T) {
	srv, ctrl := newController(t, Options{PageSize: 1})
	subtab := seedSubtab(srv)
	srv.AddProduct(101, "Бета", "Дисплеи", 10, nil)
	srv.AddProduct(103, "Экран", "Корпуса", 30, nil)
	ctx := context.Background()

	ctrl.SetActiveSubtab(&subtab)
	_, err := ctrl.Load(ctx, false)
	require.NoError(t, err)
	state := ctrl.State()
	require.Equal(t, 3, state.Total)
	require.Equal(t, 3, state.TotalPages)
	require.Equal(t, []int{1, 2, 3}, ctrl.PageWindow())

	floor := decimal.NewFromInt(20)
	f := catalog.DefaultFilters()
	f.PriceMin = &floor
	ctrl.ApplyFilters(f)
	page, err := ctrl.Load(ctx, true)
	require.NoError(t, err)
	require.Equal(t, []string{"Гамма"}, names(page.Products))

	ctrl.ResetFilters()
	require.True(t, ctrl.SetSearch("бет"))
	require.False(t, ctrl.SetSearch(" бет "))
	page, err = ctrl.Load(ctx, false)
	require.NoError(t, err)
	require.Equal(t, []string{"Бета"}, names(page.Products))
	require.Equal(t, []string{"Дисплеи", "Корпуса"}, ctrl.Categories())
}

func TestRefreshAllWarehousesBatches(t *testing.T) {
	srv, ctrl := newController(t, Options{RefreshBatchSize: 3})
	warehouses := []int64{1, 2, 3, 4, 5, 6, 7}
	srv.Fail(http.MethodPost, "/products/55/refresh", http.StatusInternalServerError)

	var mu sync.Mutex
	var seen []int
	final, err := ctrl.RefreshAllWarehouses(context.Background(), 55, warehouses, func(p RefreshProgress) {
		mu.Lock()
		seen = append(seen, p.Done)
		mu.Unlock()
	})
	require.NoError(t, err)
	require.Equal(t, []int{3, 6, 7}, seen)
	require.True(t, final.Finished())
	require.Equal(t, 7, final.Failed)
	require.Len(t, srv.RequestsTo(http.MethodPost, "/products/55/refresh"), 7)
}

func TestRefreshAllWarehousesStopsOnCancel(t *testing.T) {
	_, ctrl := newController(t, Options{RefreshBatchSize: 1, RefreshBatchDelay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())

	progress, err := ctrl.RefreshAllWarehouses(ctx, 9, []int64{1, 2}, func(RefreshProgress) { cancel() })
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, progress.Done)
}

func TestFormatETA(t *testing.T) {
	require.Equal(t, "00:00", FormatETA(-time.Second))
	require.Equal(t, "01:05", FormatETA(65*time.Second))
	require.Equal(t, "refreshing 3/7, eta 00:04", RefreshProgress{Done: 3, Total: 7, ETA: 4 * time.Second}.String())
}

func TestSyncProgressInterval(t *testing.T) {
	_, ctrl := newController(t, Options{})
	ctx := context.Background()

	status, wait, err := ctrl.SyncProgress(ctx)
	require.NoError(t, err)
	require.Equal(t, api.SyncIdle, status.Status)
	require.Equal(t, 5*time.Second, wait)

	require.NoError(t, ctrl.SyncAll(ctx))
	status, wait, err = ctrl.SyncProgress(ctx)
	require.NoError(t, err)
	require.True(t, status.Running())
	require.Equal(t, time.Second, wait)
}

func TestRegistryFallsBack(t *testing.T) {
	srv := apitest.New(t)
	srv.Fail(http.MethodGet, "/warehouses/", http.StatusServiceUnavailable)
	reg := NewRegistry(srv.Client(), 0, zerolog.Nop())

	list := reg.Load(context.Background())
	require.Equal(t, catalog.FallbackWarehouses(), list)
	require.True(t, reg.UsingFallback())
	require.Equal(t, "05. Виртуальный склад", reg.Title(52226))
	require.Equal(t, "#1", reg.Title(1))

	reqs := srv.RequestsTo(http.MethodGet, "/warehouses/")
	require.Equal(t, "true", reqs[0].Query.Get("active_only"))
	require.Equal(t, "1000", reqs[0].Query.Get("limit"))
}

func TestRegistryDropsIncompleteEntries(t *testing.T) {
	srv := apitest.New(t)
	srv.AddWarehouse(52226, "05. Виртуальный склад")
	srv.AddWarehouse(0, "без id")
	srv.AddWarehouse(37746, "  ")
	reg := NewRegistry(srv.Client(), 1000, zerolog.Nop())

	require.Equal(t, []int64{52226}, catalog.WarehouseIDs(reg.Load(context.Background())))
	require.False(t, reg.UsingFallback())
	require.Equal(t, []int64{52226}, reg.IDs())
}
