package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/remstock/catalog-tui/internal/api"
	"github.com/remstock/catalog-tui/internal/apitest"
	"github.com/remstock/catalog-tui/internal/catalog"
	"github.com/remstock/catalog-tui/internal/config"
)

func newTestApp(t *testing.T, stdin string) (*apitest.Server, *app, *bytes.Buffer) {
	t.Helper()
	srv := apitest.New(t)
	cfg := &config.Config{}
	cfg.List.PageSize = 50
	cfg.Refresh.BatchSize = 3
	out := &bytes.Buffer{}
	return srv, &app{
		cfg:    cfg,
		client: srv.Client(),
		log:    zerolog.Nop(),
		in:     strings.NewReader(stdin),
		out:    out,
	}, out
}

func seed(srv *apitest.Server) catalog.Subtab {
	srv.AddWarehouse(52226, "Main")
	srv.AddWarehouse(37746, "Kyiv")
	srv.AddProduct(101, "Дисплей iPhone 11", "Дисплеи", 4500, map[int64]float64{52226: 3})
	srv.AddProduct(102, "Аккумулятор iPhone 11", "Аккумуляторы", 1900, nil)
	tab := srv.AddTab("iPhone", catalog.MainTabApple)
	sub := srv.AddSubtab(tab.ID, "Дисплеи")
	srv.AddMember(sub.ID, 101, 0, "")
	return sub
}

func TestRunRequiresCommand(t *testing.T) {
	_, a, _ := newTestApp(t, "")
	require.ErrorIs(t, a.run(context.Background(), nil), errUsage)
	require.ErrorContains(t, a.run(context.Background(), []string{"nope"}), `unknown command "nope"`)
}

func TestWarehouses(t *testing.T) {
	srv, a, out := newTestApp(t, "")
	seed(srv)
	require.NoError(t, a.run(context.Background(), []string{"warehouses"}))
	require.Contains(t, out.String(), "52226")
	require.Contains(t, out.String(), "Kyiv")
}

func TestListPrintsTable(t *testing.T) {
	srv, a, out := newTestApp(t, "")
	seed(srv)
	require.NoError(t, a.run(context.Background(), []string{"list", "-sort", "name", "-asc"}))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	require.Contains(t, lines[0], "Product ↑")
	require.Contains(t, lines[0], "Main")
	require.Contains(t, lines[1], "Аккумулятор iPhone 11")
	require.Contains(t, lines[2], "Дисплей iPhone 11")
	require.True(t, strings.HasPrefix(lines[3], "page 1/1"))
}

func TestListSubtabKeepsMembershipOrder(t *testing.T) {
	srv, a, out := newTestApp(t, "")
	sub := seed(srv)
	require.NoError(t, a.run(context.Background(), []string{"list", "-subtab", fmt.Sprint(sub.ID)}))
	require.Contains(t, out.String(), "Дисплей iPhone 11")
	require.NotContains(t, out.String(), "Аккумулятор")
	require.NotContains(t, out.String(), "↓")
}

func TestListFilterUsesServer(t *testing.T) {
	srv, a, _ := newTestApp(t, "")
	seed(srv)
	require.NoError(t, a.run(context.Background(), []string{"list", "-filter", "cat=Дисплеи"}))
	reqs := srv.RequestsTo("GET", "/products/filtered")
	require.Len(t, reqs, 1)
	require.Equal(t, "Дисплеи", reqs[0].Query.Get("category"))
}

func TestListRejectsBadFilter(t *testing.T) {
	_, a, _ := newTestApp(t, "")
	err := a.run(context.Background(), []string{"list", "-filter", "wh=abc"})
	var verr *catalog.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestLookup(t *testing.T) {
	srv, a, out := newTestApp(t, "")
	seed(srv)
	require.NoError(t, a.run(context.Background(), []string{"lookup", "101"}))
	require.Contains(t, out.String(), "Дисплей iPhone 11")
	require.Contains(t, out.String(), "/products/remonline/101")
	require.Contains(t, out.String(), "stock Main")

	var verr *catalog.ValidationError
	require.True(t, errors.As(a.run(context.Background(), []string{"lookup", "x"}), &verr))
}

func TestBulkAddReadsStdin(t *testing.T) {
	srv, a, out := newTestApp(t, "101, 102\n102 abc")
	sub := seed(srv)
	require.NoError(t, a.run(context.Background(), []string{"bulk-add", "-subtab", fmt.Sprint(sub.ID)}))
	require.Len(t, srv.Members(sub.ID), 2)
	require.Contains(t, out.String(), "added 1")
	require.Contains(t, out.String(), "invalid 1")
}

func TestBulkAddNeedsSubtab(t *testing.T) {
	_, a, _ := newTestApp(t, "")
	var verr *catalog.ValidationError
	require.True(t, errors.As(a.run(context.Background(), []string{"bulk-add", "101"}), &verr))
}

func TestRefreshEveryWarehouse(t *testing.T) {
	srv, a, out := newTestApp(t, "")
	seed(srv)
	p, err := a.client.ProductByRemonline(context.Background(), 101)
	require.NoError(t, err)

	require.NoError(t, a.run(context.Background(), []string{"refresh", "101"}))
	require.Len(t, srv.RequestsTo("POST", fmt.Sprintf("/products/%d/refresh", p.ID)), 2)
	require.Contains(t, out.String(), "refreshed 2 warehouses")
}

func TestSync(t *testing.T) {
	srv, a, out := newTestApp(t, "")
	require.NoError(t, a.run(context.Background(), []string{"sync"}))
	require.Len(t, srv.RequestsTo("POST", "/stocks/sync_all"), 1)
	require.Contains(t, out.String(), "sync requested")

	srv.SetSync(api.SyncStatus{Status: api.SyncRunning, Processed: 1, Total: 4})
	require.ErrorContains(t, a.run(context.Background(), []string{"sync"}), "already running")
	require.Len(t, srv.RequestsTo("POST", "/stocks/sync_all"), 1)
}
