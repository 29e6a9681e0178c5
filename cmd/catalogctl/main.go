package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/remstock/catalog-tui/internal/api"
	"github.com/remstock/catalog-tui/internal/catalog"
	"github.com/remstock/catalog-tui/internal/columns"
	"github.com/remstock/catalog-tui/internal/config"
	"github.com/remstock/catalog-tui/internal/logger"
	"github.com/remstock/catalog-tui/internal/prefs"
	"github.com/remstock/catalog-tui/internal/products"
	"github.com/remstock/catalog-tui/internal/render"
	"github.com/remstock/catalog-tui/internal/tabs"
)

const usage = `usage: catalogctl [-api URL] <command> [flags]

commands:
  warehouses                  list warehouses
  list [flags]                print one page of products
  lookup <remonline-id>       show one product
  bulk-add -subtab ID <ids>   add products to a subtab (ids may also come on stdin)
  refresh <remonline-id>      refresh a product's stock in every warehouse
  sync [-wait]                start the full stock sync`

var errUsage = errors.New(usage)

type app struct {
	cfg    *config.Config
	client *api.Client
	prefs  *prefs.Store
	log    zerolog.Logger
	in     io.Reader
	out    io.Writer
}

func main() {
	apiURL := flag.String("api", "", "Backend base URL, overrides CATALOG_API_BASE_URL")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()

	_ = godotenv.Load()
	if *apiURL != "" {
		os.Setenv("CATALOG_API_BASE_URL", *apiURL)
	}
	cfg, err := config.Load()
	if err != nil {
		exit(err)
	}
	log := logger.New(logger.Options{
		Component: "catalogctl",
		Level:     logger.ParseLevel(cfg.Log.Level),
		Format:    "console",
		Output:    os.Stderr,
	})
	store, err := prefs.Open(prefs.DefaultPath(cfg.Prefs.Dir), cfg.Prefs.Scope, log)
	if err != nil {
		log.Warn().Err(err).Msg("preference store unavailable, using default columns")
		store = nil
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a := &app{
		cfg: cfg,
		client: api.NewClient(
			api.WithBaseURL(cfg.API.BaseURL),
			api.WithTimeout(cfg.API.Timeout),
			api.WithLogger(log),
		),
		prefs: store,
		log:   log,
		in:    os.Stdin,
		out:   os.Stdout,
	}
	if err := a.run(ctx, flag.Args()); err != nil {
		exit(err)
	}
}

func exit(err error) {
	fmt.Fprintf(os.Stderr, "catalogctl: %v\n", err)
	os.Exit(1)
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "warehouses":
		return a.warehouses(ctx)
	case "list":
		return a.list(ctx, rest)
	case "lookup":
		return a.lookup(ctx, rest)
	case "bulk-add":
		return a.bulkAdd(ctx, rest)
	case "refresh":
		return a.refresh(ctx, rest)
	case "sync":
		return a.sync(ctx, rest)
	}
	return fmt.Errorf("unknown command %q\n%s", cmd, usage)
}

func (a *app) registry(ctx context.Context) *products.Registry {
	r := products.NewRegistry(a.client, a.cfg.List.WarehouseFetchLimit, a.log)
	r.Load(ctx)
	if r.UsingFallback() {
		a.log.Warn().Msg("warehouse list unavailable, using the built-in list")
	}
	return r
}

func (a *app) controller(pageSize int) *products.Controller {
	return products.NewController(a.client, products.Options{
		PageSize:           pageSize,
		StockConcurrency:   a.cfg.List.StockConcurrency,
		SubtabResolveLimit: a.cfg.List.SubtabResolveLimit,
		RefreshBatchSize:   a.cfg.Refresh.BatchSize,
		RefreshBatchDelay:  a.cfg.Refresh.BatchDelay,
		SyncPollInterval:   a.cfg.List.SyncPollInterval,
		SyncStatusInterval: a.cfg.List.SyncStatusInterval,
		Collation:          a.cfg.List.Collation,
		Log:                a.log,
	})
}

func (a *app) warehouses(ctx context.Context) error {
	r := a.registry(ctx)
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE")
	for _, wh := range r.List() {
		fmt.Fprintf(w, "%d\t%s\n", wh.RemonlineID, wh.Title)
	}
	return w.Flush()
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	page := fs.Int("page", 1, "page number")
	size := fs.Int("size", a.cfg.List.PageSize, "page size")
	search := fs.String("search", "", "name search")
	query := fs.String("filter", "", `filter query, e.g. "cat=Дисплеи wh=52226 price=100..5000"`)
	sortBy := fs.String("sort", "", "sort key: name, category, price, total, wh_<id> or price_<list>")
	asc := fs.Bool("asc", false, "sort ascending")
	subtabID := fs.Int64("subtab", 0, "show a subtab's products in membership order")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("list: %w", err)
	}
	filters, err := catalog.ParseQuery(*query)
	if err != nil {
		return err
	}

	r := a.registry(ctx)
	list := a.controller(*size)
	list.SetWarehouses(r.IDs())
	if *subtabID != 0 {
		sub, err := a.client.GetSubtab(ctx, *subtabID)
		if err != nil {
			return fmt.Errorf("load subtab %d: %w", *subtabID, err)
		}
		list.SetActiveSubtab(&sub)
	}
	list.ApplyFilters(filters)
	if *sortBy != "" {
		list.ToggleSort(*sortBy)
		if *asc {
			list.ToggleSort(*sortBy)
		}
	}
	list.SetSearch(*search)
	if *page > 1 {
		// Page bounds are only known after the first load.
		if _, err := list.Load(ctx, filters.Active()); err != nil {
			return err
		}
		list.GoToPage(*page)
	}
	if _, err := list.Load(ctx, filters.Active()); err != nil {
		return err
	}

	st := list.State()
	engine := columns.NewEngine(a.prefs, a.prefs.LoadVisibility(), a.prefs.LoadOrder())
	if err := engine.SetWarehouses(r.IDs()); err != nil {
		a.log.Warn().Err(err).Msg("save column visibility")
	}
	warehouses := r.List()
	table := render.Build(st.Products, render.Layout{
		Columns:    engine.Layout(render.Present(warehouses, st.Filters.Warehouses)),
		Warehouses: warehouses,
		Selected:   st.Filters.Warehouses,
		SortBy:     st.Filters.SortBy,
		SortOrder:  st.Filters.SortOrder,
		Unsorted:   st.ActiveSubtab != nil && !st.UserSortActive,
	})
	if err := writeTable(a.out, table); err != nil {
		return err
	}
	summary := fmt.Sprintf("page %d/%d", st.Page, st.TotalPages)
	if st.HasTotal {
		summary += fmt.Sprintf(", %d products", st.Total)
	}
	_, err = fmt.Fprintln(a.out, summary)
	return err
}

func writeTable(out io.Writer, table render.Table) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	titles := make([]string, len(table.Headers))
	for i, h := range table.Headers {
		titles[i] = h.Title
		if h.Arrow != "" {
			titles[i] += " " + h.Arrow
		}
	}
	fmt.Fprintln(w, strings.Join(titles, "\t"))
	for _, row := range table.Rows {
		texts := make([]string, len(row.Cells))
		for i, c := range row.Cells {
			texts[i] = c.Text
		}
		fmt.Fprintln(w, strings.Join(texts, "\t"))
	}
	return w.Flush()
}

func remonlineArg(cmd string, args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%s: expected one remonline id", cmd)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, &catalog.ValidationError{Field: "remonline_id", Message: fmt.Sprintf("bad id %q", args[0])}
	}
	return id, nil
}

func (a *app) lookup(ctx context.Context, args []string) error {
	rid, err := remonlineArg("lookup", args)
	if err != nil {
		return err
	}
	record, err := a.client.ProductByRemonline(ctx, rid)
	if err != nil {
		return fmt.Errorf("lookup %d: %w", rid, err)
	}
	entries, err := a.client.ProductStocks(ctx, record.ID)
	if err != nil {
		a.log.Warn().Err(err).Int64("product_id", record.ID).Msg("load stocks")
	}
	p := record.Catalog()
	p.Stocks = api.StockMap(entries)

	r := a.registry(ctx)
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "name\t%s\n", p.Name)
	fmt.Fprintf(w, "remonline id\t%d\n", p.RemonlineID)
	fmt.Fprintf(w, "category\t%s\n", p.Category)
	fmt.Fprintf(w, "url\t%s\n", a.client.URL("/products/remonline/"+strconv.FormatInt(rid, 10), nil))
	for _, wh := range r.List() {
		if qty, ok := p.Stocks[wh.RemonlineID]; ok {
			fmt.Fprintf(w, "stock %s\t%s\n", wh.Title, strconv.FormatFloat(qty, 'f', -1, 64))
		}
	}
	return w.Flush()
}

func (a *app) bulkAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bulk-add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	subtabID := fs.Int64("subtab", 0, "target subtab id")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("bulk-add: %w", err)
	}
	if *subtabID <= 0 {
		return &catalog.ValidationError{Field: "subtab", Message: "a subtab id is required"}
	}
	input := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(input) == "" && a.in != nil {
		data, err := io.ReadAll(a.in)
		if err != nil {
			return fmt.Errorf("read ids: %w", err)
		}
		input = string(data)
	}

	editor := tabs.NewEditor(a.client, *subtabID, a.log)
	if err := editor.Load(ctx); err != nil {
		return err
	}
	result, err := editor.BulkAdd(ctx, input)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "subtab %d: %s\n", *subtabID, result)
	return err
}

func (a *app) refresh(ctx context.Context, args []string) error {
	rid, err := remonlineArg("refresh", args)
	if err != nil {
		return err
	}
	record, err := a.client.ProductByRemonline(ctx, rid)
	if err != nil {
		return fmt.Errorf("lookup %d: %w", rid, err)
	}
	r := a.registry(ctx)
	list := a.controller(a.cfg.List.PageSize)
	final, err := list.RefreshAllWarehouses(ctx, record.ID, r.IDs(), func(p products.RefreshProgress) {
		fmt.Fprintln(a.out, p.String())
	})
	if err != nil {
		return err
	}
	if final.Failed > 0 {
		return fmt.Errorf("refresh %d: %d of %d warehouses failed", rid, final.Failed, final.Total)
	}
	return nil
}

func (a *app) sync(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	wait := fs.Bool("wait", false, "poll until the sync finishes")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	list := a.controller(a.cfg.List.PageSize)
	if status, _, err := list.SyncProgress(ctx); err == nil && status.Running() {
		return fmt.Errorf("a sync is already running (%s)", status.Text())
	}
	if err := list.SyncAll(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "sync requested")
	if !*wait {
		return nil
	}
	for {
		status, next, err := list.SyncProgress(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s (%d%%)\n", status.Text(), status.Percent())
		if !status.Running() {
			if status.Status == api.SyncFailed {
				return errors.New("stock sync failed")
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(next):
		}
	}
}
