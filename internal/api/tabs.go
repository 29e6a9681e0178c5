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

// TabQuery are the query parameters of GET /tabs/.
type TabQuery struct {
	ActiveOnly  bool
	Limit       int
	MainTabType string
}

// TabInput is the body for creating a tab.
type TabInput struct {
	Name        string  `json:"name" validate:"required,max=255"`
	OrderIndex  int     `json:"order_index" validate:"gte=0"`
	IsActive    bool    `json:"is_active"`
	MainTabType *string `json:"main_tab_type,omitempty" validate:"omitempty,oneof=apple android"`
}

// TabPatch is the body for updating a tab. Nil fields are left unchanged.
type TabPatch struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	OrderIndex  *int    `json:"order_index,omitempty" validate:"omitempty,gte=0"`
	IsActive    *bool   `json:"is_active,omitempty"`
	MainTabType *string `json:"main_tab_type,omitempty" validate:"omitempty,oneof=apple android"`
}

// SubtabInput is the body for creating a subtab.
type SubtabInput struct {
	TabID      int64  `json:"tab_id" validate:"required,gt=0"`
	Name       string `json:"name" validate:"required,max=255"`
	OrderIndex int    `json:"order_index" validate:"gte=0"`
	IsActive   bool   `json:"is_active"`
}

// SubtabPatch is the body for updating a subtab.
type SubtabPatch struct {
	Name       *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	OrderIndex *int    `json:"order_index,omitempty" validate:"omitempty,gte=0"`
	IsActive   *bool   `json:"is_active,omitempty"`
}

// MemberPatch is the body for updating a subtab membership. Custom fields
// are always sent so an empty string clears the override.
type MemberPatch struct {
	CustomName     *string `json:"custom_name"`
	CustomCategory *string `json:"custom_category"`
	OrderIndex     *int    `json:"order_index,omitempty"`
	IsActive       *bool   `json:"is_active,omitempty"`
}

// MemberOrder assigns an order_index to a membership.
type MemberOrder struct {
	ID         int64 `json:"id"`
	OrderIndex int   `json:"order_index"`
}

type reorderBody struct {
	NewOrder int `json:"new_order"`
}

type bulkAddBody struct {
	ProductRemonlineIDs []int64 `json:"product_remonline_ids"`
}

type memberReorderBody struct {
	Items []MemberOrder `json:"items"`
}

// ListTabs calls GET /tabs/.
func (c *Client) ListTabs(ctx context.Context, query TabQuery) ([]catalog.Tab, error) {
	q := url.Values{}
	q.Set("active_only", strconv.FormatBool(query.ActiveOnly))
	if query.Limit > 0 {
		q.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.MainTabType != "" {
		q.Set("main_tab_type", query.MainTabType)
	}
	return getList[catalog.Tab](ctx, c, "/tabs/", q)
}

// GetTab calls GET /tabs/{id}.
func (c *Client) GetTab(ctx context.Context, id int64) (catalog.Tab, error) {
	var tab catalog.Tab
	err := c.get(ctx, fmt.Sprintf("/tabs/%d", id), nil, &tab)
	return tab, err
}

// CreateTab calls POST /tabs/.
func (c *Client) CreateTab(ctx context.Context, in TabInput) (catalog.Tab, error) {
	var tab catalog.Tab
	err := c.do(ctx, http.MethodPost, "/tabs/", nil, in, &tab)
	return tab, err
}

// UpdateTab calls PUT /tabs/{id}.
func (c *Client) UpdateTab(ctx context.Context, id int64, patch TabPatch) (catalog.Tab, error) {
	var tab catalog.Tab
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/tabs/%d", id), nil, patch, &tab)
	return tab, err
}

// DeleteTab calls DELETE /tabs/{id}.
func (c *Client) DeleteTab(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/tabs/%d", id), nil, nil, nil)
}

// ReorderTab calls POST /tabs/{id}/reorder, moving the tab to newOrder.
func (c *Client) ReorderTab(ctx context.Context, id int64, newOrder int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/tabs/%d/reorder", id), nil, reorderBody{NewOrder: newOrder}, nil)
}

// ListSubtabs calls GET /tabs/{id}/subtabs.
func (c *Client) ListSubtabs(ctx context.Context, tabID int64, activeOnly bool) ([]catalog.Subtab, error) {
	q := url.Values{}
	q.Set("active_only", strconv.FormatBool(activeOnly))
	return getList[catalog.Subtab](ctx, c, fmt.Sprintf("/tabs/%d/subtabs", tabID), q)
}

// CreateSubtab calls POST /tabs/{id}/subtabs.
func (c *Client) CreateSubtab(ctx context.Context, in SubtabInput) (catalog.Subtab, error) {
	var subtab catalog.Subtab
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/tabs/%d/subtabs", in.TabID), nil, in, &subtab)
	return subtab, err
}

// GetSubtab calls GET /tabs/subtabs/{id}.
func (c *Client) GetSubtab(ctx context.Context, id int64) (catalog.Subtab, error) {
	var subtab catalog.Subtab
	err := c.get(ctx, fmt.Sprintf("/tabs/subtabs/%d", id), nil, &subtab)
	return subtab, err
}

// UpdateSubtab calls PUT /tabs/subtabs/{id}.
func (c *Client) UpdateSubtab(ctx context.Context, id int64, patch SubtabPatch) (catalog.Subtab, error) {
	var subtab catalog.Subtab
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/tabs/subtabs/%d", id), nil, patch, &subtab)
	return subtab, err
}

// DeleteSubtab calls DELETE /tabs/subtabs/{id}.
func (c *Client) DeleteSubtab(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/tabs/subtabs/%d", id), nil, nil, nil)
}

// ReorderSubtab calls POST /tabs/subtabs/{id}/reorder.
func (c *Client) ReorderSubtab(ctx context.Context, id int64, newOrder int) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/tabs/subtabs/%d/reorder", id), nil, reorderBody{NewOrder: newOrder}, nil)
}

// ListSubtabProducts calls GET /tabs/subtabs/{id}/products for the active
// memberships. The backend pages this list at 100 when no limit is sent.
func (c *Client) ListSubtabProducts(ctx context.Context, subtabID int64, limit int) ([]catalog.SubtabProduct, error) {
	q := url.Values{}
	q.Set("active_only", "true")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return getList[catalog.SubtabProduct](ctx, c, fmt.Sprintf("/tabs/subtabs/%d/products", subtabID), q)
}

// AddSubtabProducts calls POST /tabs/subtabs/{id}/products and returns the
// memberships the backend created. Ids already in the subtab are skipped by
// the backend and do not appear in the result.
func (c *Client) AddSubtabProducts(ctx context.Context, subtabID int64, remonlineIDs []int64) ([]catalog.SubtabProduct, error) {
	path := fmt.Sprintf("/tabs/subtabs/%d/products", subtabID)
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, path, nil, bulkAddBody{ProductRemonlineIDs: remonlineIDs}, &raw); err != nil {
		return nil, err
	}
	return decodeList[catalog.SubtabProduct](c.log, path, raw), nil
}

// UpdateSubtabProduct calls PUT /tabs/subtabs/products/{id}.
func (c *Client) UpdateSubtabProduct(ctx context.Context, membershipID int64, patch MemberPatch) (catalog.SubtabProduct, error) {
	var member catalog.SubtabProduct
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/tabs/subtabs/products/%d", membershipID), nil, patch, &member)
	return member, err
}

// RemoveSubtabProduct calls DELETE /tabs/subtabs/{id}/products/{remonlineId}.
func (c *Client) RemoveSubtabProduct(ctx context.Context, subtabID, remonlineID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/tabs/subtabs/%d/products/%d", subtabID, remonlineID), nil, nil, nil)
}

// ReorderSubtabProducts calls POST /tabs/subtabs/{id}/products/reorder with
// the complete new ordering.
func (c *Client) ReorderSubtabProducts(ctx context.Context, subtabID int64, items []MemberOrder) error {
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/tabs/subtabs/%d/products/reorder", subtabID), nil, memberReorderBody{Items: items}, nil)
}
