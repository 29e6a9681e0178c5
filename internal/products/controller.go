// Package products drives the product list: paging, filters, sorting, the
// active subtab and the per-product stock breakdown.
package products

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/collate"

	"github.com/remstock/catalog-tui/internal/api"
	"github.com/remstock/catalog-tui/internal/catalog"
)

// ErrLoadInFlight is returned by Load when another load has not finished.
var ErrLoadInFlight = errors.New("product load already in flight")

// Backend is the part of the API client the controller uses.
type Backend interface {
	ListProducts(ctx context.Context, params api.ListParams) (api.ProductPage, error)
	FilterProducts(ctx context.Context, params api.FilterParams) (api.ProductPage, error)
	ProductStocks(ctx context.Context, productID int64) ([]api.StockEntry, error)
	ListSubtabProducts(ctx context.Context, subtabID int64, limit int) ([]catalog.SubtabProduct, error)
	RefreshProduct(ctx context.Context, id, warehouseID int64) error
	SyncAll(ctx context.Context) error
	SyncProgress(ctx context.Context) (api.SyncStatus, error)
}

// Options tunes the controller. Zero values take the defaults.
type Options struct {
	PageSize           int
	StockConcurrency   int
	SubtabResolveLimit int
	RefreshBatchSize   int
	RefreshBatchDelay  time.Duration
	SyncPollInterval   time.Duration
	SyncStatusInterval time.Duration
	Collation          string
	Log                zerolog.Logger
}

func (o *Options) fillDefaults() {
	if o.PageSize <= 0 {
		o.PageSize = 50
	}
	if o.StockConcurrency <= 0 {
		o.StockConcurrency = 6
	}
	if o.SubtabResolveLimit <= 0 {
		o.SubtabResolveLimit = 10000
	}
	if o.RefreshBatchSize <= 0 {
		o.RefreshBatchSize = 3
	}
	if o.RefreshBatchDelay < 0 {
		o.RefreshBatchDelay = 0
	}
	if o.SyncPollInterval <= 0 {
		o.SyncPollInterval = time.Second
	}
	if o.SyncStatusInterval <= 0 {
		o.SyncStatusInterval = 5 * time.Second
	}
	if o.Collation == "" {
		o.Collation = "ru"
	}
}

// Request is a snapshot of the list state taken by Begin. Fetch works only
// from the snapshot so the controller can keep changing while I/O runs.
type Request struct {
	Seq           uint64
	Page          int
	PageSize      int
	Search        string
	Filters       catalog.Filters
	ServerFilters bool
	UserSort      bool
	Subtab        *catalog.Subtab
	Warehouses    []int64
}

// Page is the outcome of one Fetch.
type Page struct {
	Seq        uint64
	Products   []catalog.Product
	Fetched    []catalog.Product
	Total      int
	HasTotal   bool
	HasMore    bool
	TotalPages int
	Duration   time.Duration
}

// State is a read-only view of the controller.
type State struct {
	Page           int
	PageSize       int
	TotalPages     int
	Total          int
	HasTotal       bool
	HasMore        bool
	Search         string
	Filters        catalog.Filters
	UserSortActive bool
	ActiveSubtab   *catalog.Subtab
	Loading        bool
	Products       []catalog.Product
	Warehouses     []int64
}

// Controller owns the product list state. It is safe for concurrent use:
// the TUI mutates it from Update while Fetch runs inside a command.
type Controller struct {
	backend Backend
	opts    Options
	coll    *collate.Collator
	log     zerolog.Logger

	mu             sync.Mutex
	page           int
	pageSize       int
	search         string
	filters        catalog.Filters
	userSortActive bool
	activeSubtab   *catalog.Subtab
	warehouses     []int64

	loading       bool
	pending       bool
	pendingServer bool
	seq           uint64
	inflight      uint64

	products   []catalog.Product
	fetched    []catalog.Product
	total      int
	hasTotal   bool
	hasMore    bool
	totalPages int
	stockCache map[int64]map[int64]float64
}

// NewController builds a controller on page 1 with default filters.
func NewController(backend Backend, opts Options) *Controller {
	opts.fillDefaults()
	return &Controller{
		backend:    backend,
		opts:       opts,
		coll:       catalog.NewCollator(opts.Collation),
		log:        opts.Log.With().Str("component", "products").Logger(),
		page:       1,
		pageSize:   opts.PageSize,
		filters:    catalog.DefaultFilters(),
		totalPages: 1,
		stockCache: make(map[int64]map[int64]float64),
	}
}

// SetWarehouses sets the known warehouse ids used for total stock.
func (c *Controller) SetWarehouses(ids []int64) {
	c.mu.Lock()
	c.warehouses = append([]int64(nil), ids...)
	c.mu.Unlock()
}

// Begin starts a load. When one is already running it records that another
// load is wanted and returns false; see TakePending.
func (c *Controller) Begin(useServerFilters bool) (Request, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading {
		c.pending = true
		c.pendingServer = c.pendingServer || useServerFilters
		return Request{}, false
	}
	c.loading = true
	c.seq++
	c.inflight = c.seq

	req := Request{
		Seq:           c.seq,
		Page:          c.page,
		PageSize:      c.pageSize,
		Search:        c.search,
		Filters:       c.filters.Clone(),
		ServerFilters: useServerFilters,
		UserSort:      c.userSortActive,
		Warehouses:    append([]int64(nil), c.warehouses...),
	}
	if c.activeSubtab != nil {
		subtab := *c.activeSubtab
		req.Subtab = &subtab
	}
	return req, true
}

// TakePending reports and clears a load requested while another was running.
func (c *Controller) TakePending() (useServerFilters bool, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.pending || c.loading {
		return false, false
	}
	useServerFilters = c.pendingServer
	c.pending = false
	c.pendingServer = false
	return useServerFilters, true
}

// Fetch performs the I/O for req and runs the client-side pipeline.
func (c *Controller) Fetch(ctx context.Context, req Request) (Page, error) {
	start := time.Now()
	var (
		page Page
		err  error
	)
	if req.Subtab != nil {
		page, err = c.fetchSubtab(ctx, req)
	} else {
		page, err = c.fetchCatalog(ctx, req)
	}
	if err != nil {
		return Page{Seq: req.Seq}, err
	}
	page.Seq = req.Seq
	page.Duration = time.Since(start)
	c.log.Debug().
		Uint64("seq", req.Seq).
		Int("page", req.Page).
		Int("count", len(page.Products)).
		Dur("duration", page.Duration).
		Msg("products loaded")
	return page, nil
}

func (c *Controller) fetchCatalog(ctx context.Context, req Request) (Page, error) {
	skip := (req.Page - 1) * req.PageSize
	var (
		result api.ProductPage
		err    error
	)
	if req.ServerFilters {
		result, err = c.backend.FilterProducts(ctx, api.NewFilterParams(req.Filters, skip, req.PageSize, req.Search))
	} else {
		result, err = c.backend.ListProducts(ctx, api.ListParams{Skip: skip, Limit: req.PageSize, Name: req.Search})
	}
	if err != nil {
		return Page{}, fmt.Errorf("load products: %w", err)
	}

	fetched := convert(result.Products)
	if err := c.attachStocks(ctx, fetched, req); err != nil {
		return Page{}, err
	}
	visible := catalog.SortProducts(catalog.Filter(fetched, req.Filters), sortKey(req.Filters), req.Filters.SortOrder, c.coll)

	page := Page{Products: visible, Fetched: fetched}
	if result.HasTotal {
		page.Total = result.Total
		page.HasTotal = true
		page.TotalPages = catalog.TotalPages(result.Total, req.PageSize)
		page.HasMore = req.Page < page.TotalPages
		return page, nil
	}
	page.HasMore = len(result.Products) == req.PageSize
	page.TotalPages = req.Page
	if page.HasMore {
		page.TotalPages = req.Page + 1
	}
	return page, nil
}

func (c *Controller) fetchSubtab(ctx context.Context, req Request) (Page, error) {
	members, err := c.backend.ListSubtabProducts(ctx, req.Subtab.ID, c.opts.SubtabResolveLimit)
	if err != nil {
		return Page{}, fmt.Errorf("load subtab %d members: %w", req.Subtab.ID, err)
	}

	var records []api.Product
	if ids := catalog.MemberIDs(members); len(ids) > 0 {
		result, err := c.backend.FilterProducts(ctx, api.FilterParams{
			Limit:        c.opts.SubtabResolveLimit,
			RemonlineIDs: ids,
		})
		if err != nil {
			return Page{}, fmt.Errorf("resolve subtab %d products: %w", req.Subtab.ID, err)
		}
		records = result.Products
	}

	fetched := convert(records)
	if err := c.attachStocks(ctx, fetched, req); err != nil {
		return Page{}, err
	}
	reconciled := catalog.Reconcile(members, fetched)
	filtered := catalog.Filter(reconciled, req.Filters)
	if search := strings.ToLower(strings.TrimSpace(req.Search)); search != "" {
		filtered = matchName(filtered, search)
	}

	var ordered []catalog.Product
	if req.UserSort {
		ordered = catalog.SortProducts(filtered, sortKey(req.Filters), req.Filters.SortOrder, c.coll)
	} else {
		ordered = catalog.OrderByMembership(filtered)
	}

	total := len(ordered)
	totalPages := catalog.TotalPages(total, req.PageSize)
	return Page{
		Products:   catalog.Slice(ordered, req.Page, req.PageSize),
		Fetched:    reconciled,
		Total:      total,
		HasTotal:   true,
		HasMore:    req.Page < totalPages,
		TotalPages: totalPages,
	}, nil
}

func matchName(products []catalog.Product, search string) []catalog.Product {
	out := make([]catalog.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), search) ||
			strings.Contains(strings.ToLower(p.OriginalName), search) ||
			strings.Contains(strings.ToLower(p.SKU), search) {
			out = append(out, p)
		}
	}
	return out
}

func sortKey(f catalog.Filters) string {
	if f.SortBy == "" {
		return catalog.DefaultSortBy
	}
	return f.SortBy
}

func convert(records []api.Product) []catalog.Product {
	out := make([]catalog.Product, 0, len(records))
	for _, r := range records {
		out = append(out, r.Catalog())
	}
	return out
}

// Apply stores a fetched page. Pages from a superseded request are dropped
// and Apply returns false.
func (c *Controller) Apply(page Page) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if page.Seq == c.inflight {
		c.loading = false
	}
	if page.Seq != c.seq {
		c.log.Debug().Uint64("seq", page.Seq).Uint64("latest", c.seq).Msg("dropping stale product page")
		return false
	}
	c.products = page.Products
	c.fetched = page.Fetched
	c.total = page.Total
	c.hasTotal = page.HasTotal
	c.hasMore = page.HasMore
	c.totalPages = page.TotalPages
	if c.totalPages < 1 {
		c.totalPages = 1
	}
	for _, p := range page.Fetched {
		if p.IsMissing || p.Stocks == nil {
			continue
		}
		c.stockCache[p.ID] = p.Stocks
	}
	return true
}

// Latest reports whether seq is the most recent load issued. Results of
// older loads, failures included, are to be ignored.
func (c *Controller) Latest(seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return seq == c.seq
}

// Abort ends the load seq after a failed Fetch. The previous page stays.
func (c *Controller) Abort(seq uint64) {
	c.mu.Lock()
	if seq == c.inflight {
		c.loading = false
	}
	c.mu.Unlock()
}

// Load runs Begin, Fetch and Apply in one call for non-interactive callers.
func (c *Controller) Load(ctx context.Context, useServerFilters bool) (Page, error) {
	req, ok := c.Begin(useServerFilters)
	if !ok {
		return Page{}, ErrLoadInFlight
	}
	page, err := c.Fetch(ctx, req)
	if err != nil {
		c.Abort(req.Seq)
		return Page{}, err
	}
	c.Apply(page)
	return page, nil
}

// State returns a snapshot of the list.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := State{
		Page:           c.page,
		PageSize:       c.pageSize,
		TotalPages:     c.totalPages,
		Total:          c.total,
		HasTotal:       c.hasTotal,
		HasMore:        c.hasMore,
		Search:         c.search,
		Filters:        c.filters.Clone(),
		UserSortActive: c.userSortActive,
		Loading:        c.loading,
		Products:       append([]catalog.Product(nil), c.products...),
		Warehouses:     append([]int64(nil), c.warehouses...),
	}
	if c.activeSubtab != nil {
		subtab := *c.activeSubtab
		s.ActiveSubtab = &subtab
	}
	return s
}

// PageWindow lists the page numbers to show for the current page.
func (c *Controller) PageWindow() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return catalog.PageWindow(c.page, c.totalPages)
}

// Categories returns the distinct categories of the last fetched data.
func (c *Controller) Categories() []string {
	c.mu.Lock()
	fetched := c.fetched
	c.mu.Unlock()
	return catalog.Categories(fetched, c.coll)
}

// invalidate makes responses to requests issued so far stale.
func (c *Controller) invalidate() {
	c.seq++
	if c.loading {
		c.pending = true
	}
}

// ToggleSort flips the direction when key is already the sort key, otherwise
// sorts by key descending. Either way the user sort overrides subtab order.
func (c *Controller) ToggleSort(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.filters.SortBy == key {
		if c.filters.SortOrder == catalog.SortDesc {
			c.filters.SortOrder = catalog.SortAsc
		} else {
			c.filters.SortOrder = catalog.SortDesc
		}
	} else {
		c.filters.SortBy = key
		c.filters.SortOrder = catalog.SortDesc
	}
	c.userSortActive = true
	c.invalidate()
}

// SetActiveSubtab switches the list to a subtab, or back to the whole catalog
// when s is nil. The page resets and subtab order replaces any user sort.
func (c *Controller) SetActiveSubtab(s *catalog.Subtab) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s == nil {
		c.activeSubtab = nil
	} else {
		subtab := *s
		c.activeSubtab = &subtab
	}
	c.page = 1
	c.userSortActive = false
	c.invalidate()
}

// ApplyFilters replaces the narrowing filters and keeps the current sort.
func (c *Controller) ApplyFilters(f catalog.Filters) {
	c.mu.Lock()
	defer c.mu.Unlock()
	next := f.Clone()
	next.SortBy = c.filters.SortBy
	next.SortOrder = c.filters.SortOrder
	c.filters = next
	c.page = 1
	c.invalidate()
}

// ResetFilters restores the default filters and sort.
func (c *Controller) ResetFilters() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = catalog.DefaultFilters()
	c.userSortActive = false
	c.page = 1
	c.invalidate()
}

// SetPageSize changes the page size and returns to page 1.
func (c *Controller) SetPageSize(size int) {
	if size <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pageSize = size
	c.page = 1
	c.invalidate()
}

// SetSearch sets the name search. It reports whether the term changed.
func (c *Controller) SetSearch(term string) bool {
	term = strings.TrimSpace(term)
	c.mu.Lock()
	defer c.mu.Unlock()
	if term == c.search {
		return false
	}
	c.search = term
	c.page = 1
	c.invalidate()
	return true
}

// GoToPage moves to page, clamped to the known range. It reports whether the
// page changed.
func (c *Controller) GoToPage(page int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if page < 1 {
		page = 1
	}
	if page > c.totalPages {
		page = c.totalPages
	}
	if page == c.page {
		return false
	}
	c.page = page
	c.invalidate()
	return true
}

// WantsServerFilters reports whether the current state needs the filtered
// endpoint rather than the plain list.
func (c *Controller) WantsServerFilters() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters.Active() || c.userSortActive
}
