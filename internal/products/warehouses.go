package products

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/remstock/catalog-tui/internal/catalog"
)

// WarehouseLister is the part of the API client the registry needs.
type WarehouseLister interface {
	ListWarehouses(ctx context.Context, activeOnly bool, limit int) ([]catalog.Warehouse, error)
}

// Registry caches the active warehouses. When the backend cannot be reached
// it serves the built-in fallback list.
type Registry struct {
	client WarehouseLister
	limit  int
	log    zerolog.Logger

	mu       sync.RWMutex
	list     []catalog.Warehouse
	fallback bool
}

// NewRegistry builds an empty registry. Call Load before use.
func NewRegistry(client WarehouseLister, limit int, log zerolog.Logger) *Registry {
	if limit <= 0 {
		limit = 1000
	}
	return &Registry{
		client: client,
		limit:  limit,
		log:    log.With().Str("component", "warehouses").Logger(),
	}
}

// Load fetches the active warehouses. Entries without an id or a name are
// dropped. On error the fallback list is installed and returned; the error
// is logged, never returned.
func (r *Registry) Load(ctx context.Context) []catalog.Warehouse {
	list, err := r.client.ListWarehouses(ctx, true, r.limit)
	fallback := false
	if err != nil {
		r.log.Error().Err(err).Msg("load warehouses, using fallback list")
		list = catalog.FallbackWarehouses()
		fallback = true
	}
	kept := make([]catalog.Warehouse, 0, len(list))
	for _, wh := range list {
		wh.Title = strings.TrimSpace(wh.Title)
		if wh.RemonlineID == 0 || wh.Title == "" {
			continue
		}
		kept = append(kept, wh)
	}

	r.mu.Lock()
	r.list = kept
	r.fallback = fallback
	r.mu.Unlock()
	return append([]catalog.Warehouse(nil), kept...)
}

// List returns the loaded warehouses in backend order.
func (r *Registry) List() []catalog.Warehouse {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]catalog.Warehouse(nil), r.list...)
}

// IDs returns the remonline ids of the loaded warehouses.
func (r *Registry) IDs() []int64 {
	return catalog.WarehouseIDs(r.List())
}

// Title returns the display name of a warehouse, or its id when unknown.
func (r *Registry) Title(id int64) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, wh := range r.list {
		if wh.RemonlineID == id {
			return wh.Title
		}
	}
	return catalog.MissingName(id)
}

// UsingFallback reports whether the last Load fell back to the built-in list.
func (r *Registry) UsingFallback() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fallback
}
