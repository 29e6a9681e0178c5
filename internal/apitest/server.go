// Package apitest runs an in-memory catalog backend for tests.
package apitest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/remstock/catalog-tui/internal/api"
	"github.com/remstock/catalog-tui/internal/catalog"
)

// Request is a call received by the fake backend.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// Server is a fake backend. Seed it with the Add helpers and inspect calls
// with Requests.
type Server struct {
	*httptest.Server

	mu         sync.Mutex
	products   []api.Product
	stocks     map[int64]map[int64]float64
	warehouses []catalog.Warehouse
	tabs       []catalog.Tab
	subtabs    []catalog.Subtab
	members    []catalog.SubtabProduct
	sync       api.SyncStatus
	requests   []Request
	failures   map[string]int
	nextID     int64

	stockDelay    time.Duration
	stockInFlight int
	stockMax      int
}

// New starts a fake backend that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		stocks:   make(map[int64]map[int64]float64),
		failures: make(map[string]int),
		sync:     api.SyncStatus{Status: api.SyncIdle},
		nextID:   1000,
	}
	s.Server = httptest.NewServer(s.routes())
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the /api/v1 root of the fake backend.
func (s *Server) BaseURL() string {
	return s.URL + "/api/v1"
}

// Client returns an API client bound to the fake backend.
func (s *Server) Client(opts ...api.Option) *api.Client {
	all := append([]api.Option{api.WithBaseURL(s.BaseURL()), api.WithHTTPClient(s.Server.Client())}, opts...)
	return api.NewClient(all...)
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products/", s.listProducts)
		r.Get("/products/filtered", s.filteredProducts)
		r.Get("/products/remonline/{rid}", s.productByRemonline)
		r.Post("/products/create-from-remonline/{rid}", s.createFromRemonline)
		r.Get("/products/{id}", s.getProduct)
		r.Post("/products/{id}/refresh", s.refreshProduct)
		r.Put("/products/{id}/activate", s.activateProduct)

		r.Get("/warehouses/", s.listWarehouses)

		r.Get("/stocks/product/{id}", s.productStocks)
		r.Post("/stocks/sync_all", s.syncAll)
		r.Get("/stocks/sync_progress", s.syncProgress)

		r.Get("/tabs/", s.listTabs)
		r.Post("/tabs/", s.createTab)
		r.Get("/tabs/{id}", s.getTab)
		r.Put("/tabs/{id}", s.updateTab)
		r.Delete("/tabs/{id}", s.deleteTab)
		r.Post("/tabs/{id}/reorder", s.reorderTab)
		r.Get("/tabs/{id}/subtabs", s.listSubtabs)
		r.Post("/tabs/{id}/subtabs", s.createSubtab)
		r.Get("/tabs/subtabs/{id}", s.getSubtab)
		r.Put("/tabs/subtabs/{id}", s.updateSubtab)
		r.Delete("/tabs/subtabs/{id}", s.deleteSubtab)
		r.Post("/tabs/subtabs/{id}/reorder", s.reorderSubtab)
		r.Get("/tabs/subtabs/{id}/products", s.listMembers)
		r.Post("/tabs/subtabs/{id}/products", s.addMembers)
		r.Post("/tabs/subtabs/{id}/products/reorder", s.reorderMembers)
		r.Delete("/tabs/subtabs/{id}/products/{rid}", s.removeMember)
		r.Put("/tabs/subtabs/products/{id}", s.updateMember)
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		path := strings.TrimPrefix(r.URL.Path, "/api/v1")

		s.mu.Lock()
		s.requests = append(s.requests, Request{Method: r.Method, Path: path, Query: r.URL.Query(), Body: body})
		status, fail := s.failures[r.Method+" "+path]
		s.mu.Unlock()

		if fail {
			http.Error(w, `{"detail":"injected failure"}`, status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Fail makes every request with method and path (relative to /api/v1)
// answer with status.
func (s *Server) Fail(method, path string, status int) {
	s.mu.Lock()
	s.failures[method+" "+path] = status
	s.mu.Unlock()
}

// Heal removes an injected failure.
func (s *Server) Heal(method, path string) {
	s.mu.Lock()
	delete(s.failures, method+" "+path)
	s.mu.Unlock()
}

// Requests returns the calls received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// RequestsTo returns the calls received for method and path.
func (s *Server) RequestsTo(method, path string) []Request {
	var out []Request
	for _, req := range s.Requests() {
		if req.Method == method && req.Path == path {
			out = append(out, req)
		}
	}
	return out
}

// ResetRequests forgets recorded calls.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	s.requests = nil
	s.mu.Unlock()
}

// SetStockDelay slows down stock breakdown requests.
func (s *Server) SetStockDelay(d time.Duration) {
	s.mu.Lock()
	s.stockDelay = d
	s.mu.Unlock()
}

// MaxStockInFlight is the highest number of concurrent stock requests seen.
func (s *Server) MaxStockInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stockMax
}

// SetSync sets the reported stock sync progress.
func (s *Server) SetSync(status api.SyncStatus) {
	s.mu.Lock()
	s.sync = status
	s.mu.Unlock()
}

// AddProduct seeds a product with its per-warehouse stock.
func (s *Server) AddProduct(remonlineID int64, name, category string, price float64, stocks map[int64]float64) api.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	p := api.Product{
		ID:          s.nextID,
		RemonlineID: remonlineID,
		Name:        name,
		Category:    &category,
		Price:       decimal.NewNullDecimal(decimal.NewFromFloat(price)),
		UpdatedAt:   "2024-05-01T10:00:00",
	}
	active := true
	p.IsActive = &active
	s.products = append(s.products, p)
	if stocks != nil {
		s.stocks[p.ID] = stocks
	}
	return p
}

// AddWarehouse seeds a warehouse.
func (s *Server) AddWarehouse(remonlineID int64, title string) {
	s.mu.Lock()
	s.warehouses = append(s.warehouses, catalog.Warehouse{RemonlineID: remonlineID, Title: title})
	s.mu.Unlock()
}

// AddTab seeds a tab at the end of the tab order.
func (s *Server) AddTab(name, mainTabType string) catalog.Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	tab := catalog.Tab{ID: s.nextID, Name: name, OrderIndex: len(s.tabs), IsActive: true}
	if mainTabType != "" {
		kind := mainTabType
		tab.MainTabType = &kind
	}
	s.tabs = append(s.tabs, tab)
	return tab
}

// AddSubtab seeds a subtab at the end of its tab.
func (s *Server) AddSubtab(tabID int64, name string) catalog.Subtab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertSubtab(tabID, name, true)
}

// AddMember seeds a membership at the given order_index.
func (s *Server) AddMember(subtabID, remonlineID int64, orderIndex int, customName string) catalog.SubtabProduct {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	m := catalog.SubtabProduct{ID: s.nextID, SubtabID: subtabID, ProductRemonlineID: remonlineID, OrderIndex: orderIndex, IsActive: true}
	if customName != "" {
		name := customName
		m.CustomName = &name
	}
	s.members = append(s.members, m)
	return m
}

// Tabs returns the stored tabs in order.
func (s *Server) Tabs() []catalog.Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return catalog.OrderTabs(s.tabs)
}

// Subtabs returns the stored subtabs of a tab in order.
func (s *Server) Subtabs(tabID int64) []catalog.Subtab {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subtabsOf(tabID)
}

// Members returns the stored memberships of a subtab in order.
func (s *Server) Members(subtabID int64) []catalog.SubtabProduct {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.membersOf(subtabID)
}

func (s *Server) insertSubtab(tabID int64, name string, active bool) catalog.Subtab {
	s.nextID++
	order := 0
	for _, st := range s.subtabs {
		if st.TabID == tabID && st.OrderIndex >= order {
			order = st.OrderIndex + 1
		}
	}
	st := catalog.Subtab{ID: s.nextID, TabID: tabID, Name: name, OrderIndex: order, IsActive: active}
	s.subtabs = append(s.subtabs, st)
	return st
}

func (s *Server) subtabsOf(tabID int64) []catalog.Subtab {
	var out []catalog.Subtab
	for _, st := range s.subtabs {
		if st.TabID == tabID {
			out = append(out, st)
		}
	}
	return catalog.OrderSubtabs(out)
}

func (s *Server) membersOf(subtabID int64) []catalog.SubtabProduct {
	var out []catalog.SubtabProduct
	for _, m := range s.members {
		if m.SubtabID == subtabID {
			out = append(out, m)
		}
	}
	return catalog.OrderMembers(out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"detail": "not found"})
}

func idParam(r *http.Request, name string) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id
}

func intQuery(q url.Values, key string, def int) int {
	if v, err := strconv.Atoi(q.Get(key)); err == nil {
		return v
	}
	return def
}

func envelopeOf(data any, total *int, count int) map[string]any {
	out := map[string]any{"success": true, "data": data, "count": count}
	if total != nil {
		out["total"] = *total
	}
	return out
}

func page[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	end := skip + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[skip:end]
}

func (s *Server) matchName(p api.Product, name string) bool {
	return name == "" || strings.Contains(strings.ToLower(p.Name), strings.ToLower(name))
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s.mu.Lock()
	var matched []api.Product
	for _, p := range s.products {
		if s.matchName(p, q.Get("name")) {
			matched = append(matched, p)
		}
	}
	s.mu.Unlock()
	data := page(matched, intQuery(q, "skip", 0), intQuery(q, "limit", 100))
	writeJSON(w, http.StatusOK, envelopeOf(data, nil, len(data)))
}

func (s *Server) filteredProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ids := make(map[int64]struct{})
	for _, part := range strings.Split(q.Get("remonline_ids"), ",") {
		if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil {
			ids[id] = struct{}{}
		}
	}
	category := q.Get("category")

	s.mu.Lock()
	var matched []api.Product
	for _, p := range s.products {
		if len(ids) > 0 {
			if _, ok := ids[p.RemonlineID]; !ok {
				continue
			}
		}
		if !s.matchName(p, q.Get("name")) {
			continue
		}
		if category != "" && (p.Category == nil || *p.Category != category) {
			continue
		}
		matched = append(matched, p)
	}
	s.mu.Unlock()

	if q.Get("sort_by") == "name" {
		sort.SliceStable(matched, func(i, j int) bool {
			if q.Get("sort_order") == catalog.SortAsc {
				return matched[i].Name < matched[j].Name
			}
			return matched[i].Name > matched[j].Name
		})
	}
	total := len(matched)
	data := page(matched, intQuery(q, "skip", 0), intQuery(q, "limit", 100))
	writeJSON(w, http.StatusOK, envelopeOf(data, &total, len(data)))
}

func (s *Server) findProduct(match func(api.Product) bool) (int, bool) {
	for i, p := range s.products {
		if match(p) {
			return i, true
		}
	}
	return -1, false
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	s.mu.Lock()
	i, ok := s.findProduct(func(p api.Product) bool { return p.ID == id })
	var p api.Product
	if ok {
		p = s.products[i]
	}
	s.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, envelopeOf(p, nil, 1))
}

func (s *Server) productByRemonline(w http.ResponseWriter, r *http.Request) {
	rid := idParam(r, "rid")
	s.mu.Lock()
	i, ok := s.findProduct(func(p api.Product) bool { return p.RemonlineID == rid })
	var p api.Product
	if ok {
		p = s.products[i]
	}
	s.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, envelopeOf(p, nil, 1))
}

func (s *Server) createFromRemonline(w http.ResponseWriter, r *http.Request) {
	rid := idParam(r, "rid")
	s.mu.Lock()
	_, exists := s.findProduct(func(p api.Product) bool { return p.RemonlineID == rid })
	s.mu.Unlock()
	if exists {
		writeJSON(w, http.StatusConflict, map[string]string{"detail": "already exists"})
		return
	}
	p := s.AddProduct(rid, "Remonline "+strconv.FormatInt(rid, 10), "", 0, nil)
	writeJSON(w, http.StatusOK, envelopeOf(p, nil, 1))
}

func (s *Server) activateProduct(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	s.mu.Lock()
	i, ok := s.findProduct(func(p api.Product) bool { return p.ID == id })
	var p api.Product
	if ok {
		active := true
		s.products[i].IsActive = &active
		p = s.products[i]
	}
	s.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, envelopeOf(p, nil, 1))
}

func (s *Server) refreshProduct(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]int64{"product_id": id}})
}

func (s *Server) listWarehouses(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	data := append([]catalog.Warehouse{}, s.warehouses...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, envelopeOf(data, nil, len(data)))
}

func (s *Server) productStocks(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	s.mu.Lock()
	s.stockInFlight++
	if s.stockInFlight > s.stockMax {
		s.stockMax = s.stockInFlight
	}
	delay := s.stockDelay
	stocks := s.stocks[id]
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	whIDs := make([]int64, 0, len(stocks))
	for wh := range stocks {
		whIDs = append(whIDs, wh)
	}
	sort.Slice(whIDs, func(i, j int) bool { return whIDs[i] < whIDs[j] })
	data := make([]map[string]any, 0, len(whIDs))
	for _, wh := range whIDs {
		data = append(data, map[string]any{
			"warehouse":          map[string]any{"remonline_id": wh},
			"available_quantity": stocks[wh],
		})
	}

	s.mu.Lock()
	s.stockInFlight--
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, envelopeOf(data, nil, len(data)))
}

func (s *Server) syncAll(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.sync = api.SyncStatus{Status: api.SyncRunning, Processed: 0, Total: len(s.products)}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "started"})
}

func (s *Server) syncProgress(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	st := s.sync
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": st})
}

func (s *Server) listTabs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := q.Get("main_tab_type")
	s.mu.Lock()
	var out []catalog.Tab
	for _, tab := range catalog.OrderTabs(s.tabs) {
		if kind != "" && tab.Category() != kind {
			continue
		}
		tab.Subtabs = s.subtabsOf(tab.ID)
		out = append(out, tab)
	}
	s.mu.Unlock()
	if out == nil {
		out = []catalog.Tab{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) tabIndex(id int64) (int, bool) {
	for i, tab := range s.tabs {
		if tab.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (s *Server) getTab(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	s.mu.Lock()
	i, ok := s.tabIndex(id)
	var tab catalog.Tab
	if ok {
		tab = s.tabs[i]
		tab.Subtabs = s.subtabsOf(id)
	}
	s.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, tab)
}

func (s *Server) createTab(w http.ResponseWriter, r *http.Request) {
	var in api.TabInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Name) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid tab"})
		return
	}
	kind := ""
	if in.MainTabType != nil {
		kind = *in.MainTabType
	}
	tab := s.AddTab(in.Name, kind)
	writeJSON(w, http.StatusOK, tab)
}

func (s *Server) updateTab(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	var patch api.TabPatch
	_ = json.NewDecoder(r.Body).Decode(&patch)
	s.mu.Lock()
	i, ok := s.tabIndex(id)
	var tab catalog.Tab
	if ok {
		if patch.Name != nil {
			s.tabs[i].Name = *patch.Name
		}
		if patch.IsActive != nil {
			s.tabs[i].IsActive = *patch.IsActive
		}
		if patch.MainTabType != nil {
			kind := *patch.MainTabType
			s.tabs[i].MainTabType = &kind
		}
		tab = s.tabs[i]
	}
	s.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, tab)
}

func (s *Server) deleteTab(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	s.mu.Lock()
	i, ok := s.tabIndex(id)
	if ok {
		s.tabs = append(s.tabs[:i], s.tabs[i+1:]...)
		kept := s.subtabs[:0]
		for _, st := range s.subtabs {
			if st.TabID != id {
				kept = append(kept, st)
			}
		}
		s.subtabs = kept
	}
	s.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

type reorderRequest struct {
	NewOrder int `json:"new_order"`
}

// shiftOrder moves the item at idx to newOrder and shifts the items in
// between, the way the backend does.
func shiftOrder(orders []*int, idx, newOrder int) {
	old := *orders[idx]
	for i, o := range orders {
		if i == idx {
			continue
		}
		if newOrder > old && *o > old && *o <= newOrder {
			*o--
		} else if newOrder < old && *o >= newOrder && *o < old {
			*o++
		}
	}
	*orders[idx] = newOrder
}

func (s *Server) reorderTab(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	var body reorderRequest
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	i, ok := s.tabIndex(id)
	if ok {
		orders := make([]*int, len(s.tabs))
		for j := range s.tabs {
			orders[j] = &s.tabs[j].OrderIndex
		}
		shiftOrder(orders, i, body.NewOrder)
	}
	s.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "reordered"})
}

func (s *Server) listSubtabs(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	activeOnly := r.URL.Query().Get("active_only") == "true"
	s.mu.Lock()
	var out []catalog.Subtab
	for _, st := range s.subtabsOf(id) {
		if activeOnly && !st.IsActive {
			continue
		}
		st.Products = s.membersOf(st.ID)
		out = append(out, st)
	}
	s.mu.Unlock()
	if out == nil {
		out = []catalog.Subtab{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createSubtab(w http.ResponseWriter, r *http.Request) {
	tabID := idParam(r, "id")
	var in api.SubtabInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || strings.TrimSpace(in.Name) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"detail": "invalid subtab"})
		return
	}
	s.mu.Lock()
	_, ok := s.tabIndex(tabID)
	var st catalog.Subtab
	if ok {
		st = s.insertSubtab(tabID, in.Name, in.IsActive)
	}
	s.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) subtabIndex(id int64) (int, bool) {
	for i, st := range s.subtabs {
		if st.ID == id {
			return i, true
		}
	}
	return -1, false
}

func (s *Server) getSubtab(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	s.mu.Lock()
	i, ok := s.subtabIndex(id)
	var st catalog.Subtab
	if ok {
		st = s.subtabs[i]
		st.Products = s.membersOf(id)
	}
	s.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) updateSubtab(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	var patch api.SubtabPatch
	_ = json.NewDecoder(r.Body).Decode(&patch)
	s.mu.Lock()
	i, ok := s.subtabIndex(id)
	var st catalog.Subtab
	if ok {
		if patch.Name != nil {
			s.subtabs[i].Name = *patch.Name
		}
		if patch.IsActive != nil {
			s.subtabs[i].IsActive = *patch.IsActive
		}
		st = s.subtabs[i]
	}
	s.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) deleteSubtab(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	s.mu.Lock()
	i, ok := s.subtabIndex(id)
	if ok {
		s.subtabs = append(s.subtabs[:i], s.subtabs[i+1:]...)
	}
	s.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

func (s *Server) reorderSubtab(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	var body reorderRequest
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	i, ok := s.subtabIndex(id)
	if ok {
		tabID := s.subtabs[i].TabID
		var orders []*int
		idx := -1
		for j := range s.subtabs {
			if s.subtabs[j].TabID != tabID {
				continue
			}
			if j == i {
				idx = len(orders)
			}
			orders = append(orders, &s.subtabs[j].OrderIndex)
		}
		shiftOrder(orders, idx, body.NewOrder)
	}
	s.mu.Unlock()
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "reordered"})
}

// listMembers pages like the backend: skip 0, limit 100 and active_only true
// unless the query says otherwise.
func (s *Server) listMembers(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	q := r.URL.Query()
	skip := max(intQuery(q, "skip", 0), 0)
	limit := max(intQuery(q, "limit", 100), 0)
	activeOnly := q.Get("active_only") != "false"

	s.mu.Lock()
	all := s.membersOf(id)
	s.mu.Unlock()
	out := []catalog.SubtabProduct{}
	for _, m := range all {
		if activeOnly && !m.IsActive {
			continue
		}
		out = append(out, m)
	}
	if skip > len(out) {
		skip = len(out)
	}
	out = out[skip:min(skip+limit, len(out))]
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) addMembers(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	var body struct {
		IDs []int64 `json:"product_remonline_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.IDs) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "product_remonline_ids required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subtabIndex(id); !ok {
		notFound(w)
		return
	}
	existing := make(map[int64]struct{})
	order := 0
	for _, m := range s.membersOf(id) {
		existing[m.ProductRemonlineID] = struct{}{}
		if m.OrderIndex >= order {
			order = m.OrderIndex + 1
		}
	}
	added := []catalog.SubtabProduct{}
	for _, rid := range body.IDs {
		if _, dup := existing[rid]; dup {
			continue
		}
		existing[rid] = struct{}{}
		s.nextID++
		m := catalog.SubtabProduct{ID: s.nextID, SubtabID: id, ProductRemonlineID: rid, OrderIndex: order, IsActive: true}
		order++
		s.members = append(s.members, m)
		added = append(added, m)
	}
	writeJSON(w, http.StatusOK, added)
}

func (s *Server) reorderMembers(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	var body struct {
		Items []api.MemberOrder `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid body"})
		return
	}
	s.mu.Lock()
	for _, item := range body.Items {
		for i := range s.members {
			if s.members[i].ID == item.ID && s.members[i].SubtabID == id {
				s.members[i].OrderIndex = item.OrderIndex
			}
		}
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"message": "reordered"})
}

func (s *Server) removeMember(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	rid := idParam(r, "rid")
	s.mu.Lock()
	found := false
	kept := s.members[:0]
	for _, m := range s.members {
		if m.SubtabID == id && m.ProductRemonlineID == rid {
			found = true
			continue
		}
		kept = append(kept, m)
	}
	s.members = kept
	s.mu.Unlock()
	if !found {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "removed"})
}

func (s *Server) updateMember(w http.ResponseWriter, r *http.Request) {
	id := idParam(r, "id")
	var patch api.MemberPatch
	_ = json.NewDecoder(r.Body).Decode(&patch)
	s.mu.Lock()
	var member catalog.SubtabProduct
	found := false
	for i := range s.members {
		if s.members[i].ID != id {
			continue
		}
		found = true
		if patch.CustomName != nil {
			s.members[i].CustomName = emptyToNil(*patch.CustomName)
		}
		if patch.CustomCategory != nil {
			s.members[i].CustomCategory = emptyToNil(*patch.CustomCategory)
		}
		if patch.OrderIndex != nil {
			s.members[i].OrderIndex = *patch.OrderIndex
		}
		member = s.members[i]
	}
	s.mu.Unlock()
	if !found {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, member)
}

func emptyToNil(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
