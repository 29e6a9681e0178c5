package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/remstock/catalog-tui/internal/catalog"
	"github.com/remstock/catalog-tui/internal/tabs"
)

const editorHelp = `**Catalog** (left)

- space: check a product
- a: add checked products
- b: paste ids in bulk
- /: search by name

**Members** (right)

- r or enter: override name and category
- x: remove from subtab
- K / J: move, w: save order

esc returns to the list.`

// openEditor switches to the membership editor of a subtab.
func (m *model) openEditor(subtabID int64) tea.Cmd {
	m.editor = tabs.NewEditor(m.client, subtabID, m.log)
	m.editorChanged = false
	m.editorSearchToken = 0
	m.availableCol.SetItems(nil, nil)
	m.membersCol.SetItems(nil, nil)
	m.availableCol.SetHighlightFunc(m.editorHighlight)
	m.membersCol.SetHighlightFunc(m.editorHighlight)
	m.previewCol.SetContent("Editor", RenderMarkdown(editorHelp))
	m.refreshColumns()
	m.focusColumn(m.availableCol)
	return m.loadEditorCmd()
}

func (m *model) editorHighlight(entry listEntry) tea.Cmd {
	p, ok := entry.payload.(catalog.Product)
	if !ok {
		return nil
	}
	return func() tea.Msg { return productHighlightedMsg{product: p} }
}

// closeEditor leaves the editor. Unsaved order changes are dropped; list
// and subtab panels reload when memberships changed.
func (m *model) closeEditor() tea.Cmd {
	if m.editor == nil {
		return nil
	}
	if m.editor.OrderDirty() {
		m.setToast("Unsaved member order discarded", 4*time.Second)
	}
	changed := m.editorChanged
	m.editor = nil
	m.refreshColumns()
	m.focusColumn(m.tableCol)
	if !changed {
		return nil
	}
	cmds := []tea.Cmd{m.loadProductsCmd(false)}
	if m.mode() == viewClassic {
		cmds = append(cmds, m.tabsCmd("", false, m.tabs.ReloadSubtabs))
	}
	return tea.Batch(cmds...)
}

func (m *model) editorTitle() string {
	if m.editor == nil {
		return ""
	}
	id := m.editor.SubtabID()
	if sub, ok := m.subtabByID(id); ok {
		return sub.Name
	}
	if sub := m.nav.Subtab(); sub.ID == id {
		return sub.Name
	}
	return "subtab " + strconv.FormatInt(id, 10)
}

func (m *model) handleEditorLoaded(msg editorLoadedMsg) {
	if m.editor == nil || m.editor.SubtabID() != msg.subtabID {
		return
	}
	if m.reportError("load subtab editor", msg.err) {
		return
	}
	m.refreshEditorColumns()
}

func (m *model) handleEditorResult(msg editorResultMsg) {
	if m.editor == nil {
		return
	}
	if !m.reportError("subtab editor", msg.err) {
		if msg.changed {
			m.editorChanged = true
		}
		if msg.note != "" {
			m.setToast(msg.note, 4*time.Second)
			m.appendLog("[INFO] " + msg.note)
		}
	}
	m.refreshEditorColumns()
}

func (m *model) handleEditorSearchDebounce(msg editorSearchDebounceMsg) {
	if m.editor == nil || msg.token != m.editorSearchToken {
		return
	}
	m.editor.SetSearch(msg.term)
	m.refreshEditorColumns()
}

func (m *model) refreshEditorColumns() {
	if m.editor == nil {
		return
	}
	checked := make(map[int64]bool)
	for _, id := range m.editor.Selected() {
		checked[id] = true
	}

	keepAvailable := m.selectedEditorProduct(m.availableCol)
	available := m.editor.Available()
	entries := make([]listEntry, 0, len(available))
	for _, p := range available {
		mark := "[ ] "
		if checked[p.RemonlineID] {
			mark = "[x] "
		}
		entries = append(entries, listEntry{
			title:   mark + p.Name,
			desc:    fmt.Sprintf("%d · %s", p.RemonlineID, p.Category),
			payload: p,
		})
	}
	m.availableCol.SetItems(entries, func(payload any) bool {
		p, ok := payload.(catalog.Product)
		return ok && p.RemonlineID == keepAvailable.RemonlineID
	})
	m.availableCol.SetTitle(fmt.Sprintf("Catalog · %d · %d checked", len(available), len(checked)))

	keepMember := m.selectedEditorProduct(m.membersCol)
	members := m.editor.Members()
	memberEntries := make([]listEntry, 0, len(members))
	for _, p := range members {
		title := p.Name
		if p.HasCustomName || p.HasCustomCategory {
			title += " ✓"
		}
		desc := fmt.Sprintf("%d · %s", p.RemonlineID, p.Category)
		if state := m.editor.EditOf(p.MembershipID).State; state != tabs.EditIdle {
			desc += " · " + state.String()
		}
		memberEntries = append(memberEntries, listEntry{title: title, desc: desc, payload: p})
	}
	m.membersCol.SetItems(memberEntries, func(payload any) bool {
		p, ok := payload.(catalog.Product)
		return ok && p.MembershipID == keepMember.MembershipID
	})
	title := fmt.Sprintf("Members · %d", len(members))
	if m.editor.OrderDirty() {
		title += " · order not saved"
	}
	m.membersCol.SetTitle(title)
}

func (m *model) selectedEditorProduct(col *selectableColumn) catalog.Product {
	entry, ok := col.SelectedEntry()
	if !ok {
		return catalog.Product{}
	}
	p, _ := entry.payload.(catalog.Product)
	return p
}

func (m *model) handleEditorKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	if m.editor == nil {
		return false, nil
	}
	editor := m.editor
	switch msg.String() {
	case "esc":
		return true, m.closeEditor()
	case "/":
		m.openInput("Search catalog", "", inputEditorSearch)
		return true, nil
	case "b":
		m.openTextarea("Paste product ids (comma, space or newline separated)", "", inputBulkAdd)
		return true, nil
	}

	if m.focusedColumn() == m.availableCol {
		switch msg.String() {
		case " ":
			p := m.selectedEditorProduct(m.availableCol)
			if p.RemonlineID == 0 {
				return true, nil
			}
			editor.ToggleSelected(p.RemonlineID)
			m.refreshEditorColumns()
			return true, nil
		case "a":
			return true, m.editorCmd(func(ctx context.Context) (string, error) {
				result, err := editor.AddSelected(ctx)
				if err != nil {
					return "", err
				}
				m.telemetry.Emit(telemetryEvent{Event: "members_add", SubtabID: editor.SubtabID(), Extra: map[string]string{"added": strconv.Itoa(result.Added)}})
				return "Added: " + result.String(), nil
			})
		}
		return false, nil
	}

	p := m.selectedEditorProduct(m.membersCol)
	switch msg.String() {
	case "r", "enter":
		if p.MembershipID == 0 {
			return true, nil
		}
		edit, err := editor.BeginEdit(p.MembershipID)
		if m.reportError("edit member", err) {
			return true, nil
		}
		m.openInput(fmt.Sprintf("Override for %s (name | category)", p.OriginalName), edit.Name+" | "+edit.Category, inputEditOverride)
		m.pendingID = p.MembershipID
		m.refreshEditorColumns()
		return true, nil
	case "x":
		if p.RemonlineID == 0 {
			return true, nil
		}
		return true, m.editorCmd(func(ctx context.Context) (string, error) {
			if err := editor.Remove(ctx, p.RemonlineID); err != nil {
				return "", err
			}
			return fmt.Sprintf("Removed %d", p.RemonlineID), nil
		})
	case "K", "J":
		delta := 1
		if msg.String() == "K" {
			delta = -1
		}
		if editor.MoveMember(p.MembershipID, delta) {
			m.refreshEditorColumns()
			m.membersCol.model.Select(m.membersCol.model.Index() + delta)
		}
		return true, nil
	case "w":
		if !editor.OrderDirty() {
			m.setToast("Order unchanged", 2*time.Second)
			return true, nil
		}
		return true, m.editorCmd(func(ctx context.Context) (string, error) {
			if err := editor.CommitOrder(ctx); err != nil {
				return "", err
			}
			return "Member order saved", nil
		})
	}
	return false, nil
}

func (m *model) submitEditorInput(value string) (tea.Cmd, bool) {
	if m.editor == nil {
		return nil, false
	}
	editor := m.editor
	switch m.inputMode {
	case inputEditorSearch:
		m.editorSearchToken++
		m.handleEditorSearchDebounce(editorSearchDebounceMsg{token: m.editorSearchToken, term: value})
		return nil, false
	case inputBulkAdd:
		if strings.TrimSpace(value) == "" {
			m.inputError = "paste at least one id"
			return nil, true
		}
		if err := catalog.ParseBulkIDs(value).Validate(); err != nil {
			m.inputError = err.Error()
			return nil, true
		}
		return m.editorCmd(func(ctx context.Context) (string, error) {
			result, err := editor.BulkAdd(ctx, value)
			if err != nil {
				return "", err
			}
			m.telemetry.Emit(telemetryEvent{Event: "members_bulk_add", SubtabID: editor.SubtabID(), Extra: map[string]string{"added": strconv.Itoa(result.Added)}})
			return "Bulk add: " + result.String(), nil
		}), false
	case inputEditOverride:
		membershipID := m.pendingID
		// The edit now belongs to the commit; closing the prompt must not cancel it.
		m.pendingID = 0
		name, category, _ := strings.Cut(value, "|")
		return m.editorCmd(func(ctx context.Context) (string, error) {
			if err := editor.CommitEdit(ctx, membershipID, name, category); err != nil {
				return "", err
			}
			return "Override saved", nil
		}), false
	}
	return nil, false
}
