package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/remstock/catalog-tui/internal/catalog"
)

// Product is the backend's product record.
type Product struct {
	ID          int64               `json:"id"`
	RemonlineID int64               `json:"remonline_id"`
	Name        string              `json:"name"`
	SKU         *string             `json:"sku"`
	Category    *string             `json:"category"`
	Price       decimal.NullDecimal `json:"price"`
	ImagesJSON  json.RawMessage     `json:"images_json"`
	PricesJSON  json.RawMessage     `json:"prices_json"`
	IsActive    *bool               `json:"is_active"`
	UpdatedAt   string              `json:"updated_at"`
}

// Catalog converts the record into a display product without stock data.
func (p Product) Catalog() catalog.Product {
	out := catalog.Product{
		ID:          p.ID,
		RemonlineID: p.RemonlineID,
		Name:        p.Name,
		Images:      catalog.NormalizeImages(p.ImagesJSON),
		Prices:      catalog.NormalizePrices(p.PricesJSON),
		UpdatedAt:   catalog.ParseTimestamp(p.UpdatedAt),
		IsActive:    p.IsActive == nil || *p.IsActive,
	}
	if p.SKU != nil {
		out.SKU = *p.SKU
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.Price.Valid {
		price := p.Price.Decimal
		out.Price = &price
	}
	return out
}

// ProductPage is one page of products. Total is only reported by the
// filtered endpoint.
type ProductPage struct {
	Products []Product
	Total    int
	HasTotal bool
}

// ListParams are the query parameters of GET /products/.
type ListParams struct {
	Skip  int
	Limit int
	Name  string
}

// Values encodes the parameters.
func (p ListParams) Values() url.Values {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(p.Skip))
	q.Set("limit", strconv.Itoa(p.Limit))
	if name := strings.TrimSpace(p.Name); name != "" {
		q.Set("name", name)
	}
	return q
}

// FilterParams are the query parameters of GET /products/filtered.
type FilterParams struct {
	Skip         int
	Limit        int
	Name         string
	Category     string
	WarehouseIDs []int64
	PriceMin     *decimal.Decimal
	PriceMax     *decimal.Decimal
	StockMin     *float64
	StockMax     *float64
	SortBy       string
	SortOrder    string
	RemonlineIDs []int64
	IsActive     *bool
}

// NewFilterParams maps list filters onto the filtered endpoint. The backend
// accepts a single category, so only the first selected one is sent.
func NewFilterParams(f catalog.Filters, skip, limit int, name string) FilterParams {
	p := FilterParams{
		Skip:         skip,
		Limit:        limit,
		Name:         name,
		WarehouseIDs: append([]int64(nil), f.Warehouses...),
		PriceMin:     f.PriceMin,
		PriceMax:     f.PriceMax,
		StockMin:     f.StockMin,
		StockMax:     f.StockMax,
		SortBy:       f.SortBy,
		SortOrder:    f.SortOrder,
	}
	if len(f.Categories) > 0 {
		p.Category = f.Categories[0]
	}
	return p
}

// Values encodes the parameters. sort_by and sort_order are only sent for
// keys the backend can sort on.
func (p FilterParams) Values() url.Values {
	q := url.Values{}
	q.Set("skip", strconv.Itoa(p.Skip))
	q.Set("limit", strconv.Itoa(p.Limit))
	if name := strings.TrimSpace(p.Name); name != "" {
		q.Set("name", name)
	}
	if p.Category != "" {
		q.Set("category", p.Category)
	}
	if len(p.WarehouseIDs) > 0 {
		q.Set("warehouse_ids", joinIDs(p.WarehouseIDs))
	}
	if p.PriceMin != nil {
		q.Set("price_min", p.PriceMin.String())
	}
	if p.PriceMax != nil {
		q.Set("price_max", p.PriceMax.String())
	}
	if p.StockMin != nil {
		q.Set("stock_min", strconv.FormatFloat(*p.StockMin, 'f', -1, 64))
	}
	if p.StockMax != nil {
		q.Set("stock_max", strconv.FormatFloat(*p.StockMax, 'f', -1, 64))
	}
	if len(p.RemonlineIDs) > 0 {
		q.Set("remonline_ids", joinIDs(p.RemonlineIDs))
	}
	if p.IsActive != nil {
		q.Set("is_active", strconv.FormatBool(*p.IsActive))
	}
	sortBy := p.SortBy
	if sortBy == "" {
		sortBy = catalog.DefaultSortBy
	}
	if catalog.ServerSortable(sortBy) {
		order := p.SortOrder
		if order == "" {
			order = catalog.SortDesc
		}
		q.Set("sort_by", catalog.ServerSortKey(sortBy))
		q.Set("sort_order", order)
	}
	return q
}

func joinIDs(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

func (c *Client) productPage(ctx context.Context, path string, query url.Values) (ProductPage, error) {
	env, err := c.getEnvelope(ctx, path, query)
	if err != nil {
		return ProductPage{}, err
	}
	page := ProductPage{Products: decodeList[Product](c.log, path, env.Data)}
	if env.Total != nil {
		page.Total = *env.Total
		page.HasTotal = true
	}
	return page, nil
}

// ListProducts calls GET /products/.
func (c *Client) ListProducts(ctx context.Context, params ListParams) (ProductPage, error) {
	return c.productPage(ctx, "/products/", params.Values())
}

// FilterProducts calls GET /products/filtered.
func (c *Client) FilterProducts(ctx context.Context, params FilterParams) (ProductPage, error) {
	return c.productPage(ctx, "/products/filtered", params.Values())
}

func (c *Client) productEnvelope(ctx context.Context, method, path string, query url.Values) (Product, error) {
	var env envelope
	if err := c.do(ctx, method, path, query, nil, &env); err != nil {
		return Product{}, err
	}
	var product Product
	if len(env.Data) == 0 {
		return product, nil
	}
	if err := json.Unmarshal(env.Data, &product); err != nil {
		return Product{}, fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return product, nil
}

// GetProduct calls GET /products/{id}.
func (c *Client) GetProduct(ctx context.Context, id int64) (Product, error) {
	return c.productEnvelope(ctx, http.MethodGet, fmt.Sprintf("/products/%d", id), nil)
}

// ProductByRemonline calls GET /products/remonline/{remonlineId}.
func (c *Client) ProductByRemonline(ctx context.Context, remonlineID int64) (Product, error) {
	return c.productEnvelope(ctx, http.MethodGet, fmt.Sprintf("/products/remonline/%d", remonlineID), nil)
}

// CreateFromRemonline calls POST /products/create-from-remonline/{remonlineId}.
func (c *Client) CreateFromRemonline(ctx context.Context, remonlineID int64) (Product, error) {
	return c.productEnvelope(ctx, http.MethodPost, fmt.Sprintf("/products/create-from-remonline/%d", remonlineID), nil)
}

// ActivateProduct calls PUT /products/{id}/activate.
func (c *Client) ActivateProduct(ctx context.Context, id int64) (Product, error) {
	return c.productEnvelope(ctx, http.MethodPut, fmt.Sprintf("/products/%d/activate", id), nil)
}

// RefreshProduct calls POST /products/{id}/refresh for a single warehouse.
func (c *Client) RefreshProduct(ctx context.Context, id, warehouseID int64) error {
	q := url.Values{}
	if warehouseID > 0 {
		q.Set("warehouse_id", strconv.FormatInt(warehouseID, 10))
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/products/%d/refresh", id), q, nil, nil)
}
