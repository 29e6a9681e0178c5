package products

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/remstock/catalog-tui/internal/api"
	"github.com/remstock/catalog-tui/internal/catalog"
)

// attachStocks fills Stocks and TotalStock for every product in place. The
// breakdowns are fetched through a bounded pool; a product whose request
// fails keeps its last known stocks, or zeros.
func (c *Controller) attachStocks(ctx context.Context, products []catalog.Product, req Request) error {
	results := make([]map[int64]float64, len(products))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.StockConcurrency)
	for i := range products {
		if products[i].IsMissing || products[i].ID == 0 {
			continue
		}
		i := i
		id := products[i].ID
		g.Go(func() error {
			entries, err := c.backend.ProductStocks(gctx, id)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.log.Warn().Err(err).Int64("product_id", id).Msg("stock breakdown failed, keeping last known")
				results[i] = c.cachedStocks(id)
				return nil
			}
			results[i] = api.StockMap(entries)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("load stocks: %w", err)
	}

	for i := range products {
		if products[i].IsMissing {
			continue
		}
		stocks := results[i]
		if stocks == nil {
			stocks = make(map[int64]float64, len(req.Warehouses))
		}
		for _, wh := range req.Warehouses {
			if _, ok := stocks[wh]; !ok {
				stocks[wh] = 0
			}
		}
		total := catalog.TotalStock(stocks, req.Filters.Warehouses, req.Warehouses)
		products[i].Stocks = stocks
		products[i].TotalStock = &total
	}
	return nil
}

func (c *Controller) cachedStocks(productID int64) map[int64]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	cached := c.stockCache[productID]
	out := make(map[int64]float64, len(cached))
	for k, v := range cached {
		out[k] = v
	}
	return out
}

// RefreshProgress reports how far a refresh-all has come.
type RefreshProgress struct {
	Done   int
	Total  int
	Failed int
	ETA    time.Duration
}

// Finished reports whether every warehouse has been processed.
func (p RefreshProgress) Finished() bool {
	return p.Done >= p.Total
}

func (p RefreshProgress) String() string {
	if p.Finished() {
		if p.Failed > 0 {
			return fmt.Sprintf("refreshed %d/%d warehouses, %d failed", p.Done-p.Failed, p.Total, p.Failed)
		}
		return fmt.Sprintf("refreshed %d warehouses", p.Total)
	}
	return fmt.Sprintf("refreshing %d/%d, eta %s", p.Done, p.Total, FormatETA(p.ETA))
}

// FormatETA renders d as mm:ss.
func FormatETA(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// RefreshAllWarehouses asks the backend to refresh productID in every given
// warehouse. Warehouses are processed in batches with a pause in between;
// progress is called after each batch. Individual failures are counted, not
// returned. Only a cancelled ctx stops the run early.
func (c *Controller) RefreshAllWarehouses(ctx context.Context, productID int64, warehouses []int64, progress func(RefreshProgress)) (RefreshProgress, error) {
	state := RefreshProgress{Total: len(warehouses)}
	start := time.Now()
	size := c.opts.RefreshBatchSize

	for offset := 0; offset < len(warehouses); offset += size {
		end := offset + size
		if end > len(warehouses) {
			end = len(warehouses)
		}
		batch := warehouses[offset:end]
		failed := make([]bool, len(batch))

		var g errgroup.Group
		for i, wh := range batch {
			i, wh := i, wh
			g.Go(func() error {
				if err := c.backend.RefreshProduct(ctx, productID, wh); err != nil {
					c.log.Warn().Err(err).Int64("product_id", productID).Int64("warehouse_id", wh).Msg("refresh failed")
					failed[i] = true
				}
				return nil
			})
		}
		_ = g.Wait()
		if err := ctx.Err(); err != nil {
			return state, err
		}

		state.Done = end
		for _, f := range failed {
			if f {
				state.Failed++
			}
		}
		avg := time.Since(start) / time.Duration(state.Done)
		state.ETA = avg * time.Duration(state.Total-state.Done)
		if progress != nil {
			progress(state)
		}

		if end < len(warehouses) && c.opts.RefreshBatchDelay > 0 {
			timer := time.NewTimer(c.opts.RefreshBatchDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return state, ctx.Err()
			case <-timer.C:
			}
		}
	}
	return state, nil
}

// SyncAll starts the backend's full stock synchronisation.
func (c *Controller) SyncAll(ctx context.Context) error {
	if err := c.backend.SyncAll(ctx); err != nil {
		return fmt.Errorf("start stock sync: %w", err)
	}
	return nil
}

// SyncProgress reads the synchronisation status and the delay before the
// next poll: short while a sync runs, longer otherwise.
func (c *Controller) SyncProgress(ctx context.Context) (api.SyncStatus, time.Duration, error) {
	status, err := c.backend.SyncProgress(ctx)
	if err != nil {
		return api.SyncStatus{}, c.opts.SyncStatusInterval, fmt.Errorf("read stock sync progress: %w", err)
	}
	if status.Running() {
		return status, c.opts.SyncPollInterval, nil
	}
	return status, c.opts.SyncStatusInterval, nil
}
