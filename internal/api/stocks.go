package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/remstock/catalog-tui/internal/catalog"
)

// StockEntry is one row of a product's per-warehouse stock breakdown.
type StockEntry struct {
	Warehouse struct {
		RemonlineID int64  `json:"remonline_id"`
		Name        string `json:"name"`
	} `json:"warehouse"`
	AvailableQuantity *float64 `json:"available_quantity"`
}

// StockMap sums available quantities per warehouse remonline id.
func StockMap(entries []StockEntry) map[int64]float64 {
	out := make(map[int64]float64, len(entries))
	for _, e := range entries {
		if e.Warehouse.RemonlineID == 0 {
			continue
		}
		if e.AvailableQuantity != nil {
			out[e.Warehouse.RemonlineID] += *e.AvailableQuantity
		} else if _, ok := out[e.Warehouse.RemonlineID]; !ok {
			out[e.Warehouse.RemonlineID] = 0
		}
	}
	return out
}

// ProductStocks calls GET /stocks/product/{id}?include_details=true.
func (c *Client) ProductStocks(ctx context.Context, productID int64) ([]StockEntry, error) {
	path := fmt.Sprintf("/stocks/product/%d", productID)
	env, err := c.getEnvelope(ctx, path, url.Values{"include_details": {"true"}})
	if err != nil {
		return nil, err
	}
	return decodeList[StockEntry](c.log, path, env.Data), nil
}

// Sync states reported by /stocks/sync_progress.
const (
	SyncIdle     = "idle"
	SyncRunning  = "running"
	SyncFinished = "finished"
	SyncFailed   = "failed"
)

// SyncStatus is the progress of the backend's full stock synchronisation.
type SyncStatus struct {
	Status    string `json:"status"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
}

// Running reports whether a sync is in progress.
func (s SyncStatus) Running() bool {
	return s.Status == SyncRunning
}

// Done reports whether the last sync reached a terminal state.
func (s SyncStatus) Done() bool {
	return s.Status == SyncFinished || s.Status == SyncFailed
}

// Percent is the completed share in 0..100.
func (s SyncStatus) Percent() int {
	total := s.Total
	if total <= 0 {
		total = 1
	}
	pct := s.Processed * 100 / total
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Text is a short human readable status line.
func (s SyncStatus) Text() string {
	switch s.Status {
	case SyncRunning:
		return fmt.Sprintf("sync: %d/%d", s.Processed, s.Total)
	case SyncFinished:
		return "sync finished"
	case SyncFailed:
		return "sync failed"
	}
	return "sync: not started"
}

// SyncAll calls POST /stocks/sync_all.
func (c *Client) SyncAll(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/stocks/sync_all", nil, nil, nil)
}

// SyncProgress calls GET /stocks/sync_progress.
func (c *Client) SyncProgress(ctx context.Context) (SyncStatus, error) {
	env, err := c.getEnvelope(ctx, "/stocks/sync_progress", nil)
	if err != nil {
		return SyncStatus{}, err
	}
	status := SyncStatus{Status: SyncIdle}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &status); err != nil {
			c.log.Warn().Err(err).Msg("malformed sync progress, treating as idle")
			return SyncStatus{Status: SyncIdle}, nil
		}
	}
	if status.Status == "" {
		status.Status = SyncIdle
	}
	return status, nil
}

// ListWarehouses calls GET /warehouses/.
func (c *Client) ListWarehouses(ctx context.Context, activeOnly bool, limit int) ([]catalog.Warehouse, error) {
	q := url.Values{}
	q.Set("active_only", strconv.FormatBool(activeOnly))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	env, err := c.getEnvelope(ctx, "/warehouses/", q)
	if err != nil {
		return nil, err
	}
	return decodeList[catalog.Warehouse](c.log, "/warehouses/", env.Data), nil
}
