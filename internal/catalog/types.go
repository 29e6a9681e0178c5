// Package catalog holds the product catalog domain model and the pure list
// operations the admin client runs over it.
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Image is a normalised product picture.
type Image struct {
	Thumbnail string
	Full      string
}

// Product is a catalog product enriched for display. Products synthesised for
// subtab members without a backend record carry IsMissing and leave Price,
// Stocks and TotalStock nil.
type Product struct {
	ID          int64
	RemonlineID int64
	Name        string
	SKU         string
	Category    string
	Price       *decimal.Decimal
	Prices      map[string]decimal.Decimal
	Images      []Image
	Stocks      map[int64]float64
	TotalStock  *float64
	UpdatedAt   time.Time
	IsActive    bool

	OriginalName      string
	OriginalCategory  string
	HasCustomName     bool
	HasCustomCategory bool
	IsMissing         bool
	MembershipID      int64
	OrderIndex        int
}

// Stock returns the quantity held in the given warehouse, zero when unknown.
func (p Product) Stock(warehouseID int64) float64 {
	if p.Stocks == nil {
		return 0
	}
	return p.Stocks[warehouseID]
}

// StockSum adds up the quantities for the given warehouses.
func (p Product) StockSum(warehouseIDs []int64) float64 {
	var sum float64
	for _, id := range warehouseIDs {
		sum += p.Stock(id)
	}
	return sum
}

// Warehouse is a stock location known to the backend.
type Warehouse struct {
	RemonlineID int64  `json:"remonline_id"`
	Title       string `json:"name"`
}

// WarehouseIDs lists the remonline ids of the given warehouses in order.
func WarehouseIDs(warehouses []Warehouse) []int64 {
	ids := make([]int64, 0, len(warehouses))
	for _, wh := range warehouses {
		ids = append(ids, wh.RemonlineID)
	}
	return ids
}

// FallbackWarehouses is used when the warehouse list cannot be fetched.
func FallbackWarehouses() []Warehouse {
	return []Warehouse{
		{RemonlineID: 2272079, Title: "29. Склад Китай"},
		{RemonlineID: 52226, Title: "05. Виртуальный склад"},
		{RemonlineID: 37746, Title: "01. Запчасти Ростов"},
	}
}

// Main tab categories.
const (
	MainTabApple   = "apple"
	MainTabAndroid = "android"
)

// Tab is a top level grouping of subtabs.
type Tab struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	OrderIndex  int      `json:"order_index"`
	IsActive    bool     `json:"is_active"`
	MainTabType *string  `json:"main_tab_type"`
	Subtabs     []Subtab `json:"subtabs,omitempty"`
}

// Category returns the main tab type or an empty string.
func (t Tab) Category() string {
	if t.MainTabType == nil {
		return ""
	}
	return *t.MainTabType
}

// Subtab is a named, ordered list of product memberships.
type Subtab struct {
	ID         int64           `json:"id"`
	TabID      int64           `json:"tab_id"`
	Name       string          `json:"name"`
	OrderIndex int             `json:"order_index"`
	IsActive   bool            `json:"is_active"`
	Products   []SubtabProduct `json:"products,omitempty"`
}

// ProductIDs returns the remonline ids of the active members in membership order.
func (s Subtab) ProductIDs() []int64 {
	return MemberIDs(s.Products)
}

// SubtabProduct links a subtab to an external product id and carries display
// overrides.
type SubtabProduct struct {
	ID                 int64   `json:"id"`
	SubtabID           int64   `json:"subtab_id"`
	ProductRemonlineID int64   `json:"product_remonline_id"`
	CustomName         *string `json:"custom_name"`
	CustomCategory     *string `json:"custom_category"`
	OrderIndex         int     `json:"order_index"`
	IsActive           bool    `json:"is_active"`
	UpdatedAt          string  `json:"updated_at,omitempty"`
}

// MemberIDs returns remonline ids of active members ordered by order_index.
func MemberIDs(members []SubtabProduct) []int64 {
	ordered := OrderMembers(members)
	ids := make([]int64, 0, len(ordered))
	for _, m := range ordered {
		if !m.IsActive {
			continue
		}
		ids = append(ids, m.ProductRemonlineID)
	}
	return ids
}
