package tabs

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/remstock/catalog-tui/internal/api"
	"github.com/remstock/catalog-tui/internal/catalog"
)

// EditorBackend is the part of the API client the membership editor uses.
type EditorBackend interface {
	ListProducts(ctx context.Context, params api.ListParams) (api.ProductPage, error)
	ListSubtabProducts(ctx context.Context, subtabID int64, limit int) ([]catalog.SubtabProduct, error)
	AddSubtabProducts(ctx context.Context, subtabID int64, remonlineIDs []int64) ([]catalog.SubtabProduct, error)
	UpdateSubtabProduct(ctx context.Context, membershipID int64, patch api.MemberPatch) (catalog.SubtabProduct, error)
	RemoveSubtabProduct(ctx context.Context, subtabID, remonlineID int64) error
	ReorderSubtabProducts(ctx context.Context, subtabID int64, items []api.MemberOrder) error
}

// EditState is the lifecycle of a custom name/category edit.
type EditState int

const (
	EditIdle EditState = iota
	EditOpen
	EditPending
	EditConfirmed
	EditRolledBack
)

func (s EditState) String() string {
	switch s {
	case EditOpen:
		return "editing"
	case EditPending:
		return "saving"
	case EditConfirmed:
		return "saved"
	case EditRolledBack:
		return "reverted"
	}
	return "idle"
}

// Edit is the in-progress override of one membership.
type Edit struct {
	MembershipID int64
	Name         string
	Category     string
	State        EditState
	Err          error
}

// Editor edits the membership list of one subtab.
type Editor struct {
	client   EditorBackend
	subtabID int64
	log      zerolog.Logger

	mu         sync.Mutex
	all        []catalog.Product
	members    []catalog.SubtabProduct
	search     string
	selected   map[int64]bool
	edits      map[int64]*Edit
	orderDirty bool
}

// NewEditor builds an editor for subtabID. Call Load before use.
func NewEditor(client EditorBackend, subtabID int64, log zerolog.Logger) *Editor {
	return &Editor{
		client:   client,
		subtabID: subtabID,
		log:      log.With().Str("component", "subtab-editor").Int64("subtab_id", subtabID).Logger(),
		selected: make(map[int64]bool),
		edits:    make(map[int64]*Edit),
	}
}

// SubtabID is the subtab being edited.
func (e *Editor) SubtabID() int64 {
	return e.subtabID
}

// Load fetches the product catalog and the subtab's memberships.
func (e *Editor) Load(ctx context.Context) error {
	page, err := e.client.ListProducts(ctx, api.ListParams{Limit: listLimit})
	if err != nil {
		return fmt.Errorf("load products: %w", err)
	}
	all := make([]catalog.Product, 0, len(page.Products))
	for _, p := range page.Products {
		all = append(all, p.Catalog())
	}
	e.mu.Lock()
	e.all = all
	e.mu.Unlock()
	return e.Refresh(ctx)
}

// Refresh refetches the memberships only.
func (e *Editor) Refresh(ctx context.Context) error {
	members, err := e.client.ListSubtabProducts(ctx, e.subtabID, listLimit)
	if err != nil {
		return fmt.Errorf("load subtab %d members: %w", e.subtabID, err)
	}
	e.mu.Lock()
	e.members = catalog.OrderMembers(members)
	e.orderDirty = false
	e.mu.Unlock()
	return nil
}

// SetSearch filters the available products by name.
func (e *Editor) SetSearch(term string) {
	e.mu.Lock()
	e.search = strings.ToLower(strings.TrimSpace(term))
	e.mu.Unlock()
}

// Available returns products not yet in the subtab that match the search.
func (e *Editor) Available() []catalog.Product {
	e.mu.Lock()
	defer e.mu.Unlock()
	available, _ := catalog.SplitMembers(e.all, e.members)
	if e.search == "" {
		return available
	}
	out := make([]catalog.Product, 0, len(available))
	for _, p := range available {
		if strings.Contains(strings.ToLower(p.Name), e.search) || strings.Contains(strings.ToLower(p.SKU), e.search) {
			out = append(out, p)
		}
	}
	return out
}

// Members returns the subtab's products in membership order, with
// placeholders for ids the catalog does not know.
func (e *Editor) Members() []catalog.Product {
	e.mu.Lock()
	defer e.mu.Unlock()
	return catalog.Reconcile(e.members, e.all)
}

// ToggleSelected flips the checkbox of an available product.
func (e *Editor) ToggleSelected(remonlineID int64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.selected[remonlineID] {
		delete(e.selected, remonlineID)
		return false
	}
	e.selected[remonlineID] = true
	return true
}

// Selected returns the checked product ids in catalog order.
func (e *Editor) Selected() []int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	var ids []int64
	for _, p := range e.all {
		if e.selected[p.RemonlineID] {
			ids = append(ids, p.RemonlineID)
		}
	}
	return ids
}

// AddSelected adds the checked products and clears the selection.
func (e *Editor) AddSelected(ctx context.Context) (catalog.BulkResult, error) {
	ids := e.Selected()
	if len(ids) == 0 {
		return catalog.BulkResult{}, &catalog.ValidationError{Field: "selection", Message: "select at least one product"}
	}
	result, err := e.add(ctx, ids)
	if err != nil {
		return result, err
	}
	e.mu.Lock()
	e.selected = make(map[int64]bool)
	e.mu.Unlock()
	return result, nil
}

// BulkAdd adds the ids pasted into input. A *catalog.ValidationError is
// returned when nothing in input can be submitted.
func (e *Editor) BulkAdd(ctx context.Context, input string) (catalog.BulkResult, error) {
	parsed := catalog.ParseBulkIDs(input)
	if err := parsed.Validate(); err != nil {
		return catalog.BulkResult{Invalid: len(parsed.Invalid)}, err
	}
	result, err := e.add(ctx, parsed.IDs)
	result.Requested += parsed.Duplicates
	result.Skipped += parsed.Duplicates
	result.Invalid = len(parsed.Invalid)
	return result, err
}

func (e *Editor) add(ctx context.Context, ids []int64) (catalog.BulkResult, error) {
	result := catalog.BulkResult{Requested: len(ids)}
	created, err := e.client.AddSubtabProducts(ctx, e.subtabID, ids)
	if err != nil {
		return result, fmt.Errorf("add products to subtab %d: %w", e.subtabID, err)
	}
	result.Added = len(created)
	result.Skipped = len(ids) - len(created)
	e.log.Info().Int("requested", len(ids)).Int("added", result.Added).Msg("products added")
	return result, e.Refresh(ctx)
}

// BeginEdit opens an override edit for a membership, prefilled with its
// current custom values.
func (e *Editor) BeginEdit(membershipID int64) (Edit, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := indexOfMember(e.members, membershipID)
	if i < 0 {
		return Edit{}, fmt.Errorf("edit membership %d: not in subtab", membershipID)
	}
	m := e.members[i]
	edit := &Edit{MembershipID: membershipID, State: EditOpen}
	if m.CustomName != nil {
		edit.Name = *m.CustomName
	}
	if m.CustomCategory != nil {
		edit.Category = *m.CustomCategory
	}
	e.edits[membershipID] = edit
	return *edit, nil
}

// CommitEdit saves the override. The displayed membership only changes when
// the backend accepts it; on failure the edit is rolled back. Empty values
// clear the override.
func (e *Editor) CommitEdit(ctx context.Context, membershipID int64, name, category string) error {
	name = strings.TrimSpace(name)
	category = strings.TrimSpace(category)
	if len([]rune(name)) > 255 || len([]rune(category)) > 255 {
		return &catalog.ValidationError{Field: "custom_name", Message: "must be at most 255 characters"}
	}

	e.mu.Lock()
	edit, ok := e.edits[membershipID]
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("commit membership %d: no open edit", membershipID)
	}
	edit.Name, edit.Category = name, category
	edit.State = EditPending
	edit.Err = nil
	e.mu.Unlock()

	updated, err := e.client.UpdateSubtabProduct(ctx, membershipID, api.MemberPatch{CustomName: &name, CustomCategory: &category})

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		edit.State = EditRolledBack
		edit.Err = err
		return fmt.Errorf("save membership %d: %w", membershipID, err)
	}
	if i := indexOfMember(e.members, membershipID); i >= 0 {
		e.members[i].CustomName = nonEmpty(updated.CustomName, name)
		e.members[i].CustomCategory = nonEmpty(updated.CustomCategory, category)
	}
	edit.State = EditConfirmed
	return nil
}

// nonEmpty prefers the backend's value and falls back to what was sent.
func nonEmpty(server *string, sent string) *string {
	if server != nil {
		return server
	}
	if sent == "" {
		return nil
	}
	return &sent
}

// CancelEdit abandons an open edit.
func (e *Editor) CancelEdit(membershipID int64) {
	e.mu.Lock()
	if edit, ok := e.edits[membershipID]; ok {
		edit.State = EditRolledBack
	}
	e.mu.Unlock()
}

// EditOf returns the edit state of a membership.
func (e *Editor) EditOf(membershipID int64) Edit {
	e.mu.Lock()
	defer e.mu.Unlock()
	if edit, ok := e.edits[membershipID]; ok {
		return *edit
	}
	return Edit{MembershipID: membershipID}
}

// MoveMember shifts a membership delta positions in the local order. It
// reports whether anything moved. CommitOrder persists the result.
func (e *Editor) MoveMember(membershipID int64, delta int) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := indexOfMember(e.members, membershipID)
	if i < 0 || delta == 0 {
		return false
	}
	j := i + delta
	if j < 0 {
		j = 0
	}
	if j > len(e.members)-1 {
		j = len(e.members) - 1
	}
	if j == i {
		return false
	}
	m := e.members[i]
	rest := append(append([]catalog.SubtabProduct(nil), e.members[:i]...), e.members[i+1:]...)
	out := append([]catalog.SubtabProduct(nil), rest[:j]...)
	out = append(out, m)
	out = append(out, rest[j:]...)
	e.members = out
	e.orderDirty = true
	return true
}

// OrderDirty reports whether the local order has unsaved moves.
func (e *Editor) OrderDirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.orderDirty
}

// CommitOrder renumbers the memberships 0..n-1 in their current order and
// pushes the whole ordering in one request. On failure the backend order is
// reloaded.
func (e *Editor) CommitOrder(ctx context.Context) error {
	e.mu.Lock()
	items := make([]api.MemberOrder, len(e.members))
	for i, m := range e.members {
		items[i] = api.MemberOrder{ID: m.ID, OrderIndex: i}
	}
	e.mu.Unlock()

	if err := e.client.ReorderSubtabProducts(ctx, e.subtabID, items); err != nil {
		if rerr := e.Refresh(ctx); rerr != nil {
			e.log.Warn().Err(rerr).Msg("reload after failed reorder")
		}
		return fmt.Errorf("reorder subtab %d: %w", e.subtabID, err)
	}

	e.mu.Lock()
	for i := range e.members {
		e.members[i].OrderIndex = i
	}
	e.orderDirty = false
	e.mu.Unlock()
	return nil
}

// Remove deletes a product from the subtab and refreshes the memberships.
func (e *Editor) Remove(ctx context.Context, remonlineID int64) error {
	if err := e.client.RemoveSubtabProduct(ctx, e.subtabID, remonlineID); err != nil {
		return fmt.Errorf("remove %d from subtab %d: %w", remonlineID, e.subtabID, err)
	}
	return e.Refresh(ctx)
}

func indexOfMember(members []catalog.SubtabProduct, id int64) int {
	for i := range members {
		if members[i].ID == id {
			return i
		}
	}
	return -1
}
