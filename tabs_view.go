package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/remstock/catalog-tui/internal/catalog"
)

func (m *model) handleTabsLoaded(msg tabsLoadedMsg) {
	if m.reportError("load tabs", msg.err) {
		return
	}
	m.refreshTabColumns()
	m.appendLog(fmt.Sprintf("[INFO] %d tabs loaded.", len(m.tabs.Tabs())))
}

func (m *model) handleTabsChanged(msg tabsChangedMsg) tea.Cmd {
	m.refreshTabColumns()
	if m.reportError("tabs", msg.err) {
		if msg.subtabChanged {
			return m.loadProductsCmd(false)
		}
		return nil
	}
	if msg.note != "" {
		m.setToast(msg.note, 3*time.Second)
		m.appendLog("[INFO] " + msg.note)
	}
	if !msg.subtabChanged {
		return nil
	}
	m.refreshTable()
	if !m.warehousesReady {
		return nil
	}
	return m.loadProductsCmd(false)
}

func (m *model) handleTabSelected(id int64) tea.Cmd {
	m.telemetry.Emit(telemetryEvent{Event: "tab_select", TabID: id})
	return m.tabsCmd("", true, func(ctx context.Context) error {
		return m.tabs.SelectTab(ctx, id)
	})
}

func (m *model) handleSubtabSelected(id int64) tea.Cmd {
	if m.reportError("activate subtab", m.tabs.ActivateSubtab(id)) {
		return nil
	}
	m.emit("subtab_open", nil)
	m.refreshTabColumns()
	m.refreshTable()
	m.focusColumn(m.tableCol)
	return m.loadProductsCmd(false)
}

// refreshTabColumns rebuilds both tab panels from the manager, keeping the
// cursors where they were.
func (m *model) refreshTabColumns() {
	selected, hasSelected := m.tabs.Selected()
	highlighted := m.highlightedID(m.tabsCol)
	if highlighted == 0 && hasSelected {
		highlighted = selected.ID
	}

	tabList := m.tabs.Tabs()
	entries := make([]listEntry, 0, len(tabList))
	for _, tab := range tabList {
		title := tab.Name
		if m.uiConfig.isPinned(tab.ID) {
			title = "★ " + title
		}
		if hasSelected && tab.ID == selected.ID {
			title = "▸ " + title
		}
		desc := tab.Category()
		if desc == "" {
			desc = "all"
		}
		entries = append(entries, listEntry{title: title, desc: desc, payload: tab.ID})
	}
	m.tabsCol.SetItems(entries, func(payload any) bool { return payload == highlighted })
	title := "Tabs"
	if mt := m.tabs.MainTabType(); mt != "" {
		title += " · " + mt
	}
	m.tabsCol.SetTitle(title)

	active, _ := m.tabs.ActiveSubtab()
	subHighlighted := m.highlightedID(m.subtabsCol)
	if subHighlighted == 0 {
		subHighlighted = active.ID
	}
	subtabs := m.tabs.Subtabs()
	subEntries := make([]listEntry, 0, len(subtabs))
	for _, sub := range subtabs {
		title := sub.Name
		if sub.ID == active.ID {
			title = "● " + title
		}
		desc := ""
		if sub.Products != nil {
			desc = fmt.Sprintf("%d products", len(sub.ProductIDs()))
		}
		if !sub.IsActive {
			desc = strings.TrimPrefix(desc+" · inactive", " · ")
		}
		subEntries = append(subEntries, listEntry{title: title, desc: desc, payload: sub.ID})
	}
	m.subtabsCol.SetItems(subEntries, func(payload any) bool { return payload == subHighlighted })
	if hasSelected {
		m.subtabsCol.SetTitle("Subtabs · " + selected.Name)
	} else {
		m.subtabsCol.SetTitle("Subtabs")
	}
}

func (m *model) highlightedID(col *selectableColumn) int64 {
	entry, ok := col.SelectedEntry()
	if !ok {
		return 0
	}
	id, _ := entry.payload.(int64)
	return id
}

func (m *model) handleTabsKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	id := m.highlightedID(m.tabsCol)
	switch {
	case key.Matches(msg, m.keys.collapse):
		if id == 0 {
			return true, nil
		}
		return true, m.tabsCmd("", true, func(ctx context.Context) error {
			_, err := m.tabs.ToggleTab(ctx, id)
			return err
		})
	case key.Matches(msg, m.keys.newItem):
		m.openInput("New tab name", "", inputNewTab)
		return true, nil
	case key.Matches(msg, m.keys.rename):
		if tab, ok := m.tabByID(id); ok {
			m.openInput("Rename tab", tab.Name, inputRenameTab)
			m.pendingID = tab.ID
		}
		return true, nil
	case key.Matches(msg, m.keys.remove):
		if tab, ok := m.tabByID(id); ok {
			m.openInput(fmt.Sprintf("Delete tab %q and its subtabs? (y/N)", tab.Name), "", inputDeleteTab)
			m.pendingID = tab.ID
		}
		return true, nil
	case key.Matches(msg, m.keys.moveUp), key.Matches(msg, m.keys.moveDown):
		delta := 1
		if key.Matches(msg, m.keys.moveUp) {
			delta = -1
		}
		target, ok := neighbour(m.tabs.Tabs(), id, delta, func(t catalog.Tab) int64 { return t.ID })
		if !ok {
			return true, nil
		}
		return true, m.tabsCmd("Tab moved", false, func(ctx context.Context) error {
			return m.tabs.MoveTab(ctx, id, target)
		})
	case key.Matches(msg, m.keys.togglePin):
		if id == 0 {
			return true, nil
		}
		pinned := m.uiConfig.togglePin(id)
		m.saveUI()
		m.refreshTabColumns()
		m.setToast(map[bool]string{true: "Tab pinned", false: "Tab unpinned"}[pinned], 2*time.Second)
		return true, nil
	case key.Matches(msg, m.keys.reload):
		return true, m.loadTabsCmd(m.tabs.MainTabType())
	}

	switch msg.String() {
	case "1", "2", "0":
		kind := map[string]string{"1": catalog.MainTabApple, "2": catalog.MainTabAndroid, "0": ""}[msg.String()]
		m.uiConfig.MainTabType = kind
		m.saveUI()
		m.emit("main_tab_type", map[string]string{"type": kind})
		return true, m.loadTabsCmd(kind)
	}
	return false, nil
}

func (m *model) handleSubtabsKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	id := m.highlightedID(m.subtabsCol)
	switch {
	case key.Matches(msg, m.keys.newItem):
		if _, ok := m.tabs.Selected(); !ok {
			m.setToast("Select a tab first", 2*time.Second)
			return true, nil
		}
		m.openInput("New subtab name", "", inputNewSubtab)
		return true, nil
	case key.Matches(msg, m.keys.rename):
		if sub, ok := m.subtabByID(id); ok {
			m.openInput("Rename subtab", sub.Name, inputRenameSubtab)
			m.pendingID = sub.ID
		}
		return true, nil
	case key.Matches(msg, m.keys.remove):
		if sub, ok := m.subtabByID(id); ok {
			m.openInput(fmt.Sprintf("Delete subtab %q? (y/N)", sub.Name), "", inputDeleteSubtab)
			m.pendingID = sub.ID
		}
		return true, nil
	case key.Matches(msg, m.keys.moveUp), key.Matches(msg, m.keys.moveDown):
		delta := 1
		if key.Matches(msg, m.keys.moveUp) {
			delta = -1
		}
		target, ok := neighbour(m.tabs.Subtabs(), id, delta, func(s catalog.Subtab) int64 { return s.ID })
		if !ok {
			return true, nil
		}
		return true, m.tabsCmd("Subtab moved", false, func(ctx context.Context) error {
			return m.tabs.MoveSubtab(ctx, id, target)
		})
	case key.Matches(msg, m.keys.openEditor):
		if id == 0 {
			return true, nil
		}
		m.telemetry.Emit(telemetryEvent{Event: "editor_open", SubtabID: id})
		return true, m.openEditor(id)
	case key.Matches(msg, m.keys.reload):
		return true, m.tabsCmd("Subtabs reloaded", false, m.tabs.ReloadSubtabs)
	}
	return false, nil
}

func (m *model) tabByID(id int64) (catalog.Tab, bool) {
	for _, tab := range m.tabs.Tabs() {
		if tab.ID == id {
			return tab, true
		}
	}
	return catalog.Tab{}, false
}

func (m *model) subtabByID(id int64) (catalog.Subtab, bool) {
	for _, sub := range m.tabs.Subtabs() {
		if sub.ID == id {
			return sub, true
		}
	}
	return catalog.Subtab{}, false
}

// neighbour returns the id delta positions away from id.
func neighbour[T any](items []T, id int64, delta int, idOf func(T) int64) (int64, bool) {
	for i, item := range items {
		if idOf(item) != id {
			continue
		}
		j := i + delta
		if j < 0 || j >= len(items) {
			return 0, false
		}
		return idOf(items[j]), true
	}
	return 0, false
}
