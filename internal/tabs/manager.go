// Package tabs manages the tab and subtab hierarchy and the product
// memberships of a subtab.
package tabs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/remstock/catalog-tui/internal/api"
	"github.com/remstock/catalog-tui/internal/catalog"
)

// DefaultSubtabName is given to the subtab created for a tab that has none.
const DefaultSubtabName = "Основной список"

const listLimit = 1000

// ErrNoActiveSubtab is returned when an operation needs an active subtab.
var ErrNoActiveSubtab = errors.New("no active subtab")

// ErrNoSelectedTab is returned when an operation needs a selected tab.
var ErrNoSelectedTab = errors.New("no selected tab")

// Backend is the part of the API client the manager uses.
type Backend interface {
	ListTabs(ctx context.Context, query api.TabQuery) ([]catalog.Tab, error)
	CreateTab(ctx context.Context, in api.TabInput) (catalog.Tab, error)
	UpdateTab(ctx context.Context, id int64, patch api.TabPatch) (catalog.Tab, error)
	DeleteTab(ctx context.Context, id int64) error
	ReorderTab(ctx context.Context, id int64, newOrder int) error
	ListSubtabs(ctx context.Context, tabID int64, activeOnly bool) ([]catalog.Subtab, error)
	CreateSubtab(ctx context.Context, in api.SubtabInput) (catalog.Subtab, error)
	UpdateSubtab(ctx context.Context, id int64, patch api.SubtabPatch) (catalog.Subtab, error)
	DeleteSubtab(ctx context.Context, id int64) error
	ReorderSubtab(ctx context.Context, id int64, newOrder int) error
}

// Manager holds the loaded tabs, the selected tab with its subtabs and the
// active subtab. At most one tab is selected and at most one subtab active.
type Manager struct {
	client   Backend
	validate *validator.Validate
	log      zerolog.Logger
	onChange func(*catalog.Subtab)

	mu          sync.Mutex
	mainTabType string
	tabs        []catalog.Tab
	selected    int64
	subtabs     []catalog.Subtab
	active      int64
}

// NewManager builds a manager. onChange is called with the newly active
// subtab, or nil when none is active; it may be nil.
func NewManager(client Backend, log zerolog.Logger, onChange func(*catalog.Subtab)) *Manager {
	return &Manager{
		client:   client,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		log:      log.With().Str("component", "tabs").Logger(),
		onChange: onChange,
	}
}

// Load fetches the active tabs, optionally limited to one main tab type.
func (m *Manager) Load(ctx context.Context, mainTabType string) ([]catalog.Tab, error) {
	tabs, err := m.client.ListTabs(ctx, api.TabQuery{ActiveOnly: true, Limit: listLimit, MainTabType: mainTabType})
	if err != nil {
		return nil, fmt.Errorf("load tabs: %w", err)
	}
	ordered := catalog.OrderTabs(tabs)

	m.mu.Lock()
	m.mainTabType = mainTabType
	m.tabs = ordered
	if m.selected != 0 && indexOfTab(ordered, m.selected) < 0 {
		m.selected = 0
		m.subtabs = nil
		m.active = 0
	}
	m.mu.Unlock()
	return append([]catalog.Tab(nil), ordered...), nil
}

// Tabs returns the loaded tabs in order.
func (m *Manager) Tabs() []catalog.Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]catalog.Tab(nil), m.tabs...)
}

// MainTabType is the category the tabs were loaded for.
func (m *Manager) MainTabType() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mainTabType
}

// Selected returns the selected tab.
func (m *Manager) Selected() (catalog.Tab, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := indexOfTab(m.tabs, m.selected)
	if i < 0 {
		return catalog.Tab{}, false
	}
	return m.tabs[i], true
}

// Subtabs returns the subtabs of the selected tab in order.
func (m *Manager) Subtabs() []catalog.Subtab {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]catalog.Subtab(nil), m.subtabs...)
}

// ActiveSubtab returns the active subtab.
func (m *Manager) ActiveSubtab() (catalog.Subtab, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := indexOfSubtab(m.subtabs, m.active)
	if i < 0 {
		return catalog.Subtab{}, false
	}
	return m.subtabs[i], true
}

// SelectTab selects tab id, collapsing any other. Its subtabs are loaded; a
// tab without subtabs gets a default one. The first active subtab becomes
// active.
func (m *Manager) SelectTab(ctx context.Context, id int64) error {
	m.mu.Lock()
	known := indexOfTab(m.tabs, id) >= 0
	m.mu.Unlock()
	if !known {
		return fmt.Errorf("select tab %d: not loaded", id)
	}

	subtabs, err := m.loadSubtabs(ctx, id)
	if err != nil {
		return err
	}
	if len(subtabs) == 0 {
		created, err := m.client.CreateSubtab(ctx, api.SubtabInput{TabID: id, Name: DefaultSubtabName, IsActive: true})
		if err != nil {
			return fmt.Errorf("create default subtab for tab %d: %w", id, err)
		}
		m.log.Info().Int64("tab_id", id).Int64("subtab_id", created.ID).Msg("created default subtab")
		subtabs = []catalog.Subtab{created}
	}

	var next *catalog.Subtab
	m.mu.Lock()
	m.selected = id
	m.subtabs = subtabs
	m.active = 0
	for i := range subtabs {
		if subtabs[i].IsActive {
			m.active = subtabs[i].ID
			s := subtabs[i]
			next = &s
			break
		}
	}
	m.mu.Unlock()
	m.notify(next)
	return nil
}

// ToggleTab selects an unselected tab, or collapses the selected one. It
// reports whether the tab ended up selected.
func (m *Manager) ToggleTab(ctx context.Context, id int64) (bool, error) {
	m.mu.Lock()
	selected := m.selected == id
	m.mu.Unlock()
	if !selected {
		return true, m.SelectTab(ctx, id)
	}
	m.mu.Lock()
	m.selected = 0
	m.subtabs = nil
	m.active = 0
	m.mu.Unlock()
	m.notify(nil)
	return false, nil
}

// ActivateSubtab makes subtab id of the selected tab active.
func (m *Manager) ActivateSubtab(id int64) error {
	m.mu.Lock()
	i := indexOfSubtab(m.subtabs, id)
	if i < 0 {
		m.mu.Unlock()
		return fmt.Errorf("activate subtab %d: %w", id, ErrNoActiveSubtab)
	}
	m.active = id
	s := m.subtabs[i]
	m.mu.Unlock()
	m.notify(&s)
	return nil
}

func (m *Manager) notify(s *catalog.Subtab) {
	if m.onChange != nil {
		m.onChange(s)
	}
}

func (m *Manager) loadSubtabs(ctx context.Context, tabID int64) ([]catalog.Subtab, error) {
	subtabs, err := m.client.ListSubtabs(ctx, tabID, false)
	if err != nil {
		return nil, fmt.Errorf("load subtabs of tab %d: %w", tabID, err)
	}
	return catalog.OrderSubtabs(subtabs), nil
}

// CreateTab appends a tab under the current main tab type.
func (m *Manager) CreateTab(ctx context.Context, name string) (catalog.Tab, error) {
	m.mu.Lock()
	in := api.TabInput{Name: strings.TrimSpace(name), OrderIndex: len(m.tabs), IsActive: true}
	if m.mainTabType != "" {
		kind := m.mainTabType
		in.MainTabType = &kind
	}
	m.mu.Unlock()
	if err := m.check(in); err != nil {
		return catalog.Tab{}, err
	}

	tab, err := m.client.CreateTab(ctx, in)
	if err != nil {
		return catalog.Tab{}, fmt.Errorf("create tab: %w", err)
	}
	m.mu.Lock()
	m.tabs = catalog.OrderTabs(append(m.tabs, tab))
	m.mu.Unlock()
	return tab, nil
}

// RenameTab renames tab id. The local copy changes only after the backend
// accepted the new name.
func (m *Manager) RenameTab(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if err := m.checkName(name); err != nil {
		return err
	}
	if _, err := m.client.UpdateTab(ctx, id, api.TabPatch{Name: &name}); err != nil {
		return fmt.Errorf("rename tab %d: %w", id, err)
	}
	m.mu.Lock()
	if i := indexOfTab(m.tabs, id); i >= 0 {
		m.tabs[i].Name = name
	}
	m.mu.Unlock()
	return nil
}

// DeleteTab deletes tab id and reloads the tab list. When the deleted tab was
// selected its neighbour is selected instead.
func (m *Manager) DeleteTab(ctx context.Context, id int64) error {
	m.mu.Lock()
	idx := indexOfTab(m.tabs, id)
	wasSelected := m.selected == id
	kind := m.mainTabType
	m.mu.Unlock()

	if err := m.client.DeleteTab(ctx, id); err != nil {
		return fmt.Errorf("delete tab %d: %w", id, err)
	}
	if wasSelected {
		m.mu.Lock()
		m.selected = 0
		m.subtabs = nil
		m.active = 0
		m.mu.Unlock()
		m.notify(nil)
	}
	tabs, err := m.Load(ctx, kind)
	if err != nil {
		return err
	}
	if !wasSelected || len(tabs) == 0 {
		return nil
	}
	if idx > len(tabs)-1 {
		idx = len(tabs) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return m.SelectTab(ctx, tabs[idx].ID)
}

// MoveTab moves dragged to the position of target and reloads, keeping the
// selection.
func (m *Manager) MoveTab(ctx context.Context, dragged, target int64) error {
	if dragged == target {
		return nil
	}
	m.mu.Lock()
	ti := indexOfTab(m.tabs, target)
	di := indexOfTab(m.tabs, dragged)
	var newOrder int
	if ti >= 0 {
		newOrder = m.tabs[ti].OrderIndex
	}
	kind := m.mainTabType
	m.mu.Unlock()
	if ti < 0 || di < 0 {
		return fmt.Errorf("move tab %d onto %d: not loaded", dragged, target)
	}

	if err := m.client.ReorderTab(ctx, dragged, newOrder); err != nil {
		return fmt.Errorf("move tab %d: %w", dragged, err)
	}
	_, err := m.Load(ctx, kind)
	return err
}

// CreateSubtab appends a subtab to the selected tab.
func (m *Manager) CreateSubtab(ctx context.Context, name string) (catalog.Subtab, error) {
	m.mu.Lock()
	tabID := m.selected
	m.mu.Unlock()
	if tabID == 0 {
		return catalog.Subtab{}, ErrNoSelectedTab
	}
	in := api.SubtabInput{TabID: tabID, Name: strings.TrimSpace(name), IsActive: true}
	if err := m.check(in); err != nil {
		return catalog.Subtab{}, err
	}

	subtab, err := m.client.CreateSubtab(ctx, in)
	if err != nil {
		return catalog.Subtab{}, fmt.Errorf("create subtab: %w", err)
	}
	m.mu.Lock()
	if m.selected == tabID {
		m.subtabs = catalog.OrderSubtabs(append(m.subtabs, subtab))
	}
	m.mu.Unlock()
	return subtab, nil
}

// RenameSubtab renames subtab id after the backend accepted it.
func (m *Manager) RenameSubtab(ctx context.Context, id int64, name string) error {
	name = strings.TrimSpace(name)
	if err := m.checkName(name); err != nil {
		return err
	}
	if _, err := m.client.UpdateSubtab(ctx, id, api.SubtabPatch{Name: &name}); err != nil {
		return fmt.Errorf("rename subtab %d: %w", id, err)
	}
	m.mu.Lock()
	if i := indexOfSubtab(m.subtabs, id); i >= 0 {
		m.subtabs[i].Name = name
	}
	m.mu.Unlock()
	return nil
}

// DeleteSubtab deletes subtab id and reloads its siblings. When it was the
// active subtab the neighbour at the same position becomes active.
func (m *Manager) DeleteSubtab(ctx context.Context, id int64) error {
	m.mu.Lock()
	tabID := m.selected
	idx := indexOfSubtab(m.subtabs, id)
	wasActive := m.active == id
	m.mu.Unlock()
	if tabID == 0 {
		return ErrNoSelectedTab
	}

	if err := m.client.DeleteSubtab(ctx, id); err != nil {
		return fmt.Errorf("delete subtab %d: %w", id, err)
	}
	subtabs, err := m.loadSubtabs(ctx, tabID)
	if err != nil {
		return err
	}

	var next *catalog.Subtab
	m.mu.Lock()
	m.subtabs = subtabs
	changed := wasActive
	if wasActive {
		m.active = 0
		if len(subtabs) > 0 {
			if idx > len(subtabs)-1 {
				idx = len(subtabs) - 1
			}
			if idx < 0 {
				idx = 0
			}
			m.active = subtabs[idx].ID
			s := subtabs[idx]
			next = &s
		}
	}
	m.mu.Unlock()
	if changed {
		m.notify(next)
	}
	return nil
}

// MoveSubtab moves dragged to the position of target within the selected
// tab and reloads the subtabs.
func (m *Manager) MoveSubtab(ctx context.Context, dragged, target int64) error {
	if dragged == target {
		return nil
	}
	m.mu.Lock()
	tabID := m.selected
	ti := indexOfSubtab(m.subtabs, target)
	di := indexOfSubtab(m.subtabs, dragged)
	var newOrder int
	if ti >= 0 {
		newOrder = m.subtabs[ti].OrderIndex
	}
	m.mu.Unlock()
	if ti < 0 || di < 0 {
		return fmt.Errorf("move subtab %d onto %d: not loaded", dragged, target)
	}

	if err := m.client.ReorderSubtab(ctx, dragged, newOrder); err != nil {
		return fmt.Errorf("move subtab %d: %w", dragged, err)
	}
	subtabs, err := m.loadSubtabs(ctx, tabID)
	if err != nil {
		return err
	}
	m.mu.Lock()
	if m.selected == tabID {
		m.subtabs = subtabs
	}
	m.mu.Unlock()
	return nil
}

// ReloadSubtabs refetches the selected tab's subtabs, keeping the active one.
// When the active subtab is gone its neighbour takes over, like after
// DeleteSubtab, and the change callback runs.
func (m *Manager) ReloadSubtabs(ctx context.Context) error {
	m.mu.Lock()
	tabID := m.selected
	m.mu.Unlock()
	if tabID == 0 {
		return ErrNoSelectedTab
	}
	subtabs, err := m.loadSubtabs(ctx, tabID)
	if err != nil {
		return err
	}

	var next *catalog.Subtab
	changed := false
	m.mu.Lock()
	if m.selected == tabID {
		if m.active != 0 && indexOfSubtab(subtabs, m.active) < 0 {
			changed = true
			idx := min(max(indexOfSubtab(m.subtabs, m.active), 0), len(subtabs)-1)
			m.active = 0
			if idx >= 0 {
				m.active = subtabs[idx].ID
				s := subtabs[idx]
				next = &s
			}
		}
		m.subtabs = subtabs
	}
	m.mu.Unlock()
	if changed {
		m.notify(next)
	}
	return nil
}

func (m *Manager) checkName(name string) error {
	return validationError("name", m.validate.Var(name, "required,max=255"))
}

func (m *Manager) check(v any) error {
	return validationError("", m.validate.Struct(v))
}

func validationError(field string, err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	if field == "" {
		field = strings.ToLower(fe.Field())
	}
	msg := fe.Tag()
	switch fe.Tag() {
	case "required":
		msg = "must not be empty"
	case "max":
		msg = fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		msg = fmt.Sprintf("must be one of %s", fe.Param())
	case "gt", "gte":
		msg = fmt.Sprintf("must be %s %s", fe.Tag(), fe.Param())
	}
	return &catalog.ValidationError{Field: field, Message: msg}
}

func indexOfTab(tabs []catalog.Tab, id int64) int {
	for i := range tabs {
		if tabs[i].ID == id {
			return i
		}
	}
	return -1
}

func indexOfSubtab(subtabs []catalog.Subtab, id int64) int {
	if id == 0 {
		return -1
	}
	for i := range subtabs {
		if subtabs[i].ID == id {
			return i
		}
	}
	return -1
}
