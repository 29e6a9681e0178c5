package main

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/remstock/catalog-tui/internal/api"
	"github.com/remstock/catalog-tui/internal/catalog"
	"github.com/remstock/catalog-tui/internal/products"
	"github.com/remstock/catalog-tui/internal/tiles"
)

type warehousesLoadedMsg struct {
	warehouses []catalog.Warehouse
	fallback   bool
}

type productsLoadedMsg struct {
	req  products.Request
	page products.Page
	err  error
}

type tabsLoadedMsg struct {
	err error
}

// tabsChangedMsg reports a finished tab or subtab operation.
type tabsChangedMsg struct {
	note          string
	err           error
	subtabChanged bool
}

type tilesLoadedMsg struct {
	err    error
	atRoot bool
}

type editorLoadedMsg struct {
	subtabID int64
	err      error
}

// editorResultMsg reports a finished membership operation.
type editorResultMsg struct {
	note    string
	err     error
	changed bool
}

type searchDebounceMsg struct {
	token int
	term  string
}

type editorSearchDebounceMsg struct {
	token int
	term  string
}

type syncPollMsg struct{}

type syncStatusMsg struct {
	status api.SyncStatus
	next   time.Duration
	err    error
}

type clipboardMsg struct {
	label string
	err   error
}

func (m *model) loadWarehousesCmd() tea.Cmd {
	registry := m.registry
	return func() tea.Msg {
		list := registry.Load(context.Background())
		return warehousesLoadedMsg{warehouses: list, fallback: registry.UsingFallback()}
	}
}

// loadProductsCmd starts a list load. When one is already running the
// controller records the request and nil is returned; the load is reissued
// once the running one lands.
func (m *model) loadProductsCmd(useServerFilters bool) tea.Cmd {
	req, ok := m.list.Begin(useServerFilters || m.list.WantsServerFilters())
	if !ok {
		return nil
	}
	list := m.list
	return func() tea.Msg {
		page, err := list.Fetch(context.Background(), req)
		return productsLoadedMsg{req: req, page: page, err: err}
	}
}

func (m *model) loadTabsCmd(mainTabType string) tea.Cmd {
	manager := m.tabs
	return func() tea.Msg {
		_, err := manager.Load(context.Background(), mainTabType)
		return tabsLoadedMsg{err: err}
	}
}

// tabsCmd runs a tab operation off the update loop.
func (m *model) tabsCmd(note string, subtabChanged bool, op func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		err := op(context.Background())
		return tabsChangedMsg{note: note, err: err, subtabChanged: subtabChanged}
	}
}

func (m *model) openCategoryCmd(category string) tea.Cmd {
	nav := m.nav
	return func() tea.Msg {
		return tilesLoadedMsg{err: nav.OpenCategory(context.Background(), category)}
	}
}

func (m *model) openTabTileCmd(tab catalog.Tab) tea.Cmd {
	nav := m.nav
	return func() tea.Msg {
		return tilesLoadedMsg{err: nav.OpenTab(context.Background(), tab)}
	}
}

func (m *model) tilesBackCmd() tea.Cmd {
	nav := m.nav
	return func() tea.Msg {
		moved, err := nav.Back(context.Background())
		return tilesLoadedMsg{err: err, atRoot: !moved}
	}
}

func (m *model) loadEditorCmd() tea.Cmd {
	editor := m.editor
	return func() tea.Msg {
		return editorLoadedMsg{subtabID: editor.SubtabID(), err: editor.Load(context.Background())}
	}
}

func (m *model) editorCmd(op func(ctx context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		note, err := op(context.Background())
		return editorResultMsg{note: note, err: err, changed: err == nil}
	}
}

func debounceSearch(delay time.Duration, token int, term string) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return searchDebounceMsg{token: token, term: term}
	})
}

func debounceEditorSearch(delay time.Duration, token int, term string) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return editorSearchDebounceMsg{token: token, term: term}
	})
}

func (m *model) syncStatusCmd() tea.Cmd {
	list := m.list
	return func() tea.Msg {
		status, next, err := list.SyncProgress(context.Background())
		return syncStatusMsg{status: status, next: next, err: err}
	}
}

func scheduleSyncPoll(after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg { return syncPollMsg{} })
}

// refreshJob refreshes one product in every known warehouse.
func (m *model) refreshJob(p catalog.Product) jobRequest {
	list := m.list
	warehouses := m.registry.IDs()
	title := "Refresh " + p.Name
	return jobRequest{
		kind:  jobRefresh,
		title: title,
		run: func(ctx context.Context, report jobReporter) error {
			_, err := list.RefreshAllWarehouses(ctx, p.ID, warehouses, func(rp products.RefreshProgress) {
				report(rp.String(), ratio(rp.Done, rp.Total))
			})
			return err
		},
		onFinish: func(err error) tea.Cmd {
			if err != nil {
				return nil
			}
			return m.loadProductsCmd(false)
		},
	}
}

// syncJob starts the backend sync of every product and hands over to the
// status poller.
func (m *model) syncJob() jobRequest {
	list := m.list
	return jobRequest{
		kind:  jobSync,
		title: "Sync all stocks",
		run: func(ctx context.Context, report jobReporter) error {
			report("sync requested", 0)
			return list.SyncAll(ctx)
		},
		onFinish: func(err error) tea.Cmd {
			if err != nil {
				return nil
			}
			return m.syncStatusCmd()
		},
	}
}

func ratio(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) / float64(total)
}

func tilesTitle(level tiles.Level) string {
	switch level {
	case tiles.LevelTabs:
		return "Tabs"
	case tiles.LevelSubtabs:
		return "Subtabs"
	}
	return "Categories"
}
