package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/remstock/catalog-tui/internal/catalog"
	"github.com/remstock/catalog-tui/internal/columns"
	"github.com/remstock/catalog-tui/internal/render"
	"github.com/remstock/catalog-tui/internal/tiles"
)

func (m *model) handleGlobalKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		m.jobRunner.Cancel()
		m.emit("session_end", nil)
		return true, tea.Quit
	case key.Matches(msg, m.keys.nextFocus):
		if len(m.columns) > 0 {
			m.focus = (m.focus + 1) % len(m.columns)
		}
		return true, nil
	case key.Matches(msg, m.keys.prevFocus):
		if len(m.columns) > 0 {
			m.focus = (m.focus - 1 + len(m.columns)) % len(m.columns)
		}
		return true, nil
	case key.Matches(msg, m.keys.toggleLogs):
		m.showLogs = !m.showLogs
		m.uiConfig.ShowLogs = &m.showLogs
		m.saveUI()
		return true, nil
	case key.Matches(msg, m.keys.togglePreview):
		m.showPreview = !m.showPreview
		m.uiConfig.ShowPreview = &m.showPreview
		m.saveUI()
		m.refreshColumns()
		return true, nil
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return true, nil
	case key.Matches(msg, m.keys.markdownTheme):
		m.markdownTheme = nextMarkdownTheme(m.markdownTheme)
		setMarkdownTheme(m.markdownTheme)
		m.uiConfig.MarkdownTheme = m.markdownTheme.String()
		m.saveUI()
		m.setToast("Preview theme: "+m.markdownTheme.String(), 3*time.Second)
		if p, ok := m.tableCol.SelectedProduct(); ok {
			m.showProduct(p)
		}
		return true, nil
	case key.Matches(msg, m.keys.cancelJob):
		if m.jobRunner.Cancel() {
			m.appendLog("[job] cancel requested")
		} else {
			m.setToast("No job running", 2*time.Second)
		}
		return true, nil
	case key.Matches(msg, m.keys.toggleTheme):
		if m.mode() == viewEditor {
			return false, nil
		}
		return true, m.toggleTheme()
	}
	return false, nil
}

func (m *model) handleFocusedKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch m.focusedColumn() {
	case m.tabsCol:
		return m.handleTabsKey(msg)
	case m.subtabsCol:
		return m.handleSubtabsKey(msg)
	case m.tableCol:
		if handled, cmd := m.handleTableKey(msg); handled {
			return true, cmd
		}
	case m.availableCol, m.membersCol:
		return m.handleEditorKey(msg)
	}
	if m.mode() == viewTiles && key.Matches(msg, m.keys.back) {
		return true, m.tilesBackCmd()
	}
	if m.mode() == viewEditor && key.Matches(msg, m.keys.back) {
		return true, m.closeEditor()
	}
	return false, nil
}

// toggleTheme switches between tile and classic navigation. The list is
// pointed at whatever the new mode has active.
func (m *model) toggleTheme() tea.Cmd {
	theme, err := m.theme.Toggle()
	if err != nil {
		m.log.Warn().Err(err).Msg("save navigation theme")
	}
	m.emit("theme_toggle", map[string]string{"theme": theme})
	m.setToast("Navigation: "+theme, 3*time.Second)

	var cmds []tea.Cmd
	if m.theme.Tile() {
		m.nav.Reset()
		m.list.SetActiveSubtab(nil)
		m.refreshTiles()
	} else {
		if sub, ok := m.tabs.ActiveSubtab(); ok {
			m.list.SetActiveSubtab(&sub)
		} else {
			m.list.SetActiveSubtab(nil)
		}
		if len(m.tabs.Tabs()) == 0 {
			cmds = append(cmds, m.loadTabsCmd(m.uiConfig.MainTabType))
		}
		if m.warehousesReady {
			cmds = append(cmds, m.loadProductsCmd(false))
		}
	}
	m.refreshColumns()
	m.refreshTable()
	return tea.Batch(cmds...)
}

func (m *model) handleWarehousesLoaded(msg warehousesLoadedMsg) tea.Cmd {
	ids := catalog.WarehouseIDs(msg.warehouses)
	m.list.SetWarehouses(ids)
	if err := m.engine.SetWarehouses(ids); err != nil {
		m.log.Warn().Err(err).Msg("save column layout for new warehouses")
	}
	m.warehousesReady = true
	if msg.fallback {
		m.appendLog("[WARN] Warehouse list unavailable, using the built-in list.")
		m.setToast("Warehouses: using fallback list", 5*time.Second)
	} else {
		m.appendLog(fmt.Sprintf("[INFO] %d warehouses loaded.", len(msg.warehouses)))
	}
	m.refreshTable()
	if m.mode() == viewTiles && !m.nav.ChromeHidden() {
		return nil
	}
	return m.loadProductsCmd(false)
}

func (m *model) handleProductsLoaded(msg productsLoadedMsg) tea.Cmd {
	if msg.err != nil {
		m.list.Abort(msg.req.Seq)
		if m.list.Latest(msg.req.Seq) {
			m.log.Error().Err(msg.err).Uint64("seq", msg.req.Seq).Msg("load products")
			m.appendLog("[ERROR] load products: " + msg.err.Error())
			m.alert = "Could not load products.\n" + msg.err.Error()
		} else {
			m.log.Debug().Err(msg.err).Uint64("seq", msg.req.Seq).Msg("dropping failure of a superseded load")
		}
	} else if m.list.Apply(msg.page) {
		m.refreshTable()
		if p, ok := m.tableCol.SelectedProduct(); ok {
			m.showProduct(p)
		} else {
			m.previewCol.SetContent("Preview", "")
		}
		m.log.Debug().Int("rows", len(msg.page.Products)).Dur("took", msg.page.Duration).Msg("products loaded")
	}
	if useServer, ok := m.list.TakePending(); ok {
		return m.loadProductsCmd(useServer)
	}
	return nil
}

func (m *model) refreshTable() {
	st := m.list.State()
	warehouses := m.registry.List()
	table := render.Build(st.Products, render.Layout{
		Columns:    m.engine.Layout(render.Present(warehouses, st.Filters.Warehouses)),
		Warehouses: warehouses,
		Selected:   st.Filters.Warehouses,
		SortBy:     st.Filters.SortBy,
		SortOrder:  st.Filters.SortOrder,
		Unsorted:   st.ActiveSubtab != nil && !st.UserSortActive,
	})
	m.tableCol.SetData(table, m.engine.Dragging())

	title := "Products"
	if st.ActiveSubtab != nil {
		title = st.ActiveSubtab.Name
	}
	m.tableCol.SetTitle(title)
}

func (m *model) showProduct(p catalog.Product) {
	apiURL := ""
	if !p.IsMissing && p.RemonlineID != 0 {
		apiURL = m.client.URL("/products/remonline/"+strconv.FormatInt(p.RemonlineID, 10), nil)
	}
	m.previewCol.SetContent("Preview", RenderMarkdown(productMarkdown(p, m.registry.List(), apiURL)))
}

func (m *model) handleProductActivated(p catalog.Product) {
	if !m.showPreview {
		m.showPreview = true
		m.refreshColumns()
	}
	m.showProduct(p)
	m.focusColumn(m.previewCol)
	m.emit("product_open", map[string]string{"remonline_id": strconv.FormatInt(p.RemonlineID, 10)})
}

func (m *model) handleSearchDebounce(msg searchDebounceMsg) tea.Cmd {
	if msg.token != m.searchToken {
		return nil
	}
	if !m.list.SetSearch(msg.term) {
		return nil
	}
	m.emit("search", map[string]string{"term": strings.TrimSpace(msg.term)})
	return m.loadProductsCmd(false)
}

func (m *model) handleTableKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.search):
		m.openInput("Search products", m.list.State().Search, inputSearch)
		return true, nil
	case key.Matches(msg, m.keys.filter):
		m.openInput("Filter products", catalog.FormatQuery(m.list.State().Filters), inputFilter)
		return true, nil
	case key.Matches(msg, m.keys.resetFilter):
		m.list.ResetFilters()
		m.emit("filters_reset", nil)
		m.setToast("Filters reset", 2*time.Second)
		m.refreshTable()
		return true, m.loadProductsCmd(false)
	case key.Matches(msg, m.keys.nextPage):
		return true, m.goToPage(m.list.State().Page + 1)
	case key.Matches(msg, m.keys.prevPage):
		return true, m.goToPage(m.list.State().Page - 1)
	case key.Matches(msg, m.keys.jumpPage):
		m.openInput("Go to page", "", inputJumpPage)
		return true, nil
	case key.Matches(msg, m.keys.pageSizeUp):
		return true, m.stepPageSize(1)
	case key.Matches(msg, m.keys.pageSizeDown):
		return true, m.stepPageSize(-1)
	case key.Matches(msg, m.keys.sort):
		return true, m.sortByColumn(m.tableCol.SelectedKey())
	case key.Matches(msg, m.keys.moveColLeft):
		m.shiftColumn(-1)
		return true, nil
	case key.Matches(msg, m.keys.moveColRight):
		m.shiftColumn(1)
		return true, nil
	case key.Matches(msg, m.keys.columnsMenu):
		m.columnsMenu = true
		m.columnsMenuIndex = 0
		return true, nil
	case key.Matches(msg, m.keys.copyID):
		p, ok := m.tableCol.SelectedProduct()
		if !ok {
			return true, nil
		}
		return true, copyCmd("id "+strconv.FormatInt(p.RemonlineID, 10), strconv.FormatInt(p.RemonlineID, 10))
	case key.Matches(msg, m.keys.copyURL):
		p, ok := m.tableCol.SelectedProduct()
		if !ok {
			return true, nil
		}
		u := m.client.URL("/products/remonline/"+strconv.FormatInt(p.RemonlineID, 10), nil)
		return true, copyCmd("api url", u)
	case key.Matches(msg, m.keys.refresh):
		return true, m.startRefresh()
	case key.Matches(msg, m.keys.syncAll):
		return true, m.startSync()
	case key.Matches(msg, m.keys.reload):
		return true, m.loadProductsCmd(false)
	}
	return false, nil
}

func (m *model) goToPage(page int) tea.Cmd {
	if !m.list.GoToPage(page) {
		return nil
	}
	return m.loadProductsCmd(false)
}

func (m *model) stepPageSize(delta int) tea.Cmd {
	current := m.list.State().PageSize
	idx := 0
	for i, size := range pageSizes {
		if size <= current {
			idx = i
		}
	}
	idx += delta
	if idx < 0 || idx >= len(pageSizes) {
		return nil
	}
	m.list.SetPageSize(pageSizes[idx])
	m.uiConfig.PageSize = pageSizes[idx]
	m.saveUI()
	m.setToast(fmt.Sprintf("%d per page", pageSizes[idx]), 2*time.Second)
	return m.loadProductsCmd(false)
}

func (m *model) sortByColumn(colKey string) tea.Cmd {
	sortKey := render.SortKey(colKey)
	if sortKey == "" {
		m.setToast("This column cannot be sorted", 2*time.Second)
		return nil
	}
	m.list.ToggleSort(sortKey)
	st := m.list.State()
	m.emit("sort", map[string]string{"by": st.Filters.SortBy, "order": st.Filters.SortOrder})
	m.refreshTable()
	return m.loadProductsCmd(false)
}

func (m *model) shiftColumn(delta int) {
	colKey := m.tableCol.SelectedKey()
	if colKey == "" {
		return
	}
	if err := m.engine.Shift(colKey, delta); err != nil {
		m.reportError("move column", err)
	}
	m.refreshTable()
}

func copyCmd(label, value string) tea.Cmd {
	return func() tea.Msg {
		return clipboardMsg{label: label, err: clipboard.WriteAll(value)}
	}
}

func (m *model) startRefresh() tea.Cmd {
	p, ok := m.tableCol.SelectedProduct()
	if !ok {
		return nil
	}
	if p.IsMissing || p.ID == 0 {
		m.setToast("Product is not in the catalog", 3*time.Second)
		return nil
	}
	if m.jobRunner.Busy(jobRefresh) {
		m.setToast("A stock refresh is already running", 3*time.Second)
		return nil
	}
	m.emit("stock_refresh", map[string]string{"remonline_id": strconv.FormatInt(p.RemonlineID, 10)})
	return m.jobRunner.Enqueue(m.refreshJob(p))
}

func (m *model) startSync() tea.Cmd {
	if m.jobRunner.Busy(jobSync) || (m.syncKnown && m.syncStatus.Running()) {
		m.setToast("A sync is already running", 3*time.Second)
		return nil
	}
	m.emit("stock_sync", nil)
	return m.jobRunner.Enqueue(m.syncJob())
}

func (m *model) handleColumnsMenuKey(msg tea.KeyMsg) tea.Cmd {
	keys := m.menuKeys()
	switch msg.String() {
	case "esc", "c", "q":
		m.columnsMenu = false
	case "up", "k":
		if m.columnsMenuIndex > 0 {
			m.columnsMenuIndex--
		}
	case "down", "j":
		if m.columnsMenuIndex < len(keys)-1 {
			m.columnsMenuIndex++
		}
	case " ", "enter", "x":
		if m.columnsMenuIndex < len(keys) {
			colKey := keys[m.columnsMenuIndex]
			if err := m.engine.Toggle(colKey); err != nil {
				m.reportError("save column visibility", err)
			}
			m.emit("column_toggle", map[string]string{"column": colKey, "visible": strconv.FormatBool(m.engine.Visible(colKey))})
			m.refreshTable()
		}
	}
	return nil
}

// menuKeys lists every column the table can show, in display order.
func (m *model) menuKeys() []string {
	present := render.Present(m.registry.List(), m.list.State().Filters.Warehouses)
	known := make(map[string]bool, len(present))
	for _, k := range present {
		known[k] = true
	}
	var out []string
	for _, k := range m.engine.Order() {
		if known[k] {
			out = append(out, k)
		}
	}
	return out
}

func (m *model) renderColumnsMenu() string {
	var b strings.Builder
	b.WriteString(m.styles.cmdPrompt.Render("Columns"))
	b.WriteRune('\n')
	warehouses := m.registry.List()
	for i, k := range m.menuKeys() {
		mark := "[ ]"
		if m.engine.Visible(k) {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %s", mark, render.ColumnTitle(k, warehouses))
		if i == m.columnsMenuIndex {
			line = m.styles.listSel.Render(line)
		} else {
			line = m.styles.listItem.Render(line)
		}
		b.WriteString(line)
		b.WriteRune('\n')
	}
	b.WriteString(m.styles.cmdHint.Render("space toggle • </> on the table moves • esc close"))
	width := min(56, max(m.width-4, 24))
	overlay := m.styles.cmdOverlay.Width(width).Render(b.String())
	return lipgloss.Place(m.width, m.height/2, lipgloss.Center, lipgloss.Center, overlay)
}

// handleMouse turns presses and releases on the table header into a column
// drag. Releasing on the pressed header sorts by it.
func (m *model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	idx := -1
	for i, col := range m.columns {
		if col == m.tableCol {
			idx = i
		}
	}
	if idx < 0 || idx >= len(m.colWidths) || m.inputActive || m.columnsMenu {
		return nil
	}
	left := 0
	for i := 0; i < idx; i++ {
		left += m.colWidths[i]
	}
	x := msg.X - left
	onHeader := msg.Y == tableHeaderRow && x >= 0 && x < m.colWidths[idx]

	switch msg.Type {
	case tea.MouseLeft:
		if !onHeader {
			return nil
		}
		colKey, _, _, ok := m.tableCol.HeaderAt(x)
		if !ok {
			return nil
		}
		if err := m.engine.BeginDrag(colKey); err != nil {
			return nil
		}
		m.focus = idx
		m.refreshTable()
	case tea.MouseRelease:
		src := m.engine.Dragging()
		if src == "" {
			return nil
		}
		var (
			target        string
			offset, width int
			ok            bool
		)
		if onHeader {
			target, offset, width, ok = m.tableCol.HeaderAt(x)
		}
		if !ok {
			m.engine.CancelDrag()
			m.refreshTable()
			return nil
		}
		if target == src {
			m.engine.CancelDrag()
			return m.sortByColumn(target)
		}
		if err := m.engine.Drop(target, offset, width); err != nil && !errors.Is(err, columns.ErrNoDrag) {
			m.reportError("save column order", err)
		}
		m.emit("column_move", map[string]string{"column": src, "target": target})
		m.refreshTable()
		m.tableCol.SelectKey(src)
	}
	return nil
}

func (m *model) handleSyncStatus(msg syncStatusMsg) tea.Cmd {
	next := msg.next
	if next <= 0 {
		next = m.cfg.List.SyncStatusInterval
	}
	if msg.err != nil {
		m.log.Debug().Err(msg.err).Msg("sync status")
		return scheduleSyncPoll(next)
	}
	wasRunning := m.syncKnown && m.syncStatus.Running()
	m.syncStatus = msg.status
	m.syncKnown = true
	if wasRunning && !msg.status.Running() {
		m.appendLog(fmt.Sprintf("[INFO] Stock sync %s: %d/%d products.", msg.status.Status, msg.status.Processed, msg.status.Total))
		m.setToast("Stock sync "+msg.status.Status, 4*time.Second)
		if m.tableShown() {
			return tea.Batch(m.loadProductsCmd(false), scheduleSyncPoll(next))
		}
	}
	return scheduleSyncPoll(next)
}

func (m *model) handleJobMessage(msg jobMsg) tea.Cmd {
	var cmds []tea.Cmd
	switch message := msg.(type) {
	case jobStartedMsg:
		m.jobTitle = message.Title
		m.jobLine = ""
		m.jobRatio = 0
		m.appendLog("[job] started: " + message.Title)
		cmds = append(cmds, m.jobStopwatch.Reset(), m.jobStopwatch.Start())
	case jobProgressMsg:
		if message.Line != m.jobLine {
			m.appendLog("[job] " + message.Line)
		}
		m.jobLine = message.Line
		m.jobRatio = message.Ratio
	case jobFinishedMsg:
		switch {
		case errors.Is(message.Err, context.Canceled):
			m.appendLog("[job] cancelled: " + message.Title)
			m.setToast("Cancelled "+message.Title, 3*time.Second)
		case message.Err != nil:
			m.reportError(message.Title, message.Err)
		default:
			m.appendLog("[job] finished: " + message.Title)
			m.setToast("Done: "+message.Title, 3*time.Second)
		}
		cmds = append(cmds, m.jobStopwatch.Stop())
	case jobChannelClosedMsg:
		m.jobTitle = ""
		m.jobLine = ""
		m.jobRatio = 0
	}
	cmds = append(cmds, m.jobRunner.Handle(msg))
	return tea.Batch(cmds...)
}

func (m *model) refreshTiles() {
	m.tilesCol.SetTiles(tilesTitle(m.nav.Level()), m.nav.Tiles())
}

func (m *model) handleTileSelected(tile tiles.Tile) tea.Cmd {
	switch m.nav.Level() {
	case tiles.LevelCategories:
		m.emit("tile_category", map[string]string{"category": tile.Key})
		return m.openCategoryCmd(tile.Key)
	case tiles.LevelTabs:
		return m.openTabTileCmd(catalog.Tab{ID: tile.ID, Name: tile.Title})
	case tiles.LevelSubtabs:
		sub, err := m.nav.OpenSubtab(tile.ID)
		if m.reportError("open subtab", err) {
			return nil
		}
		m.list.SetActiveSubtab(&sub)
		m.telemetry.Emit(telemetryEvent{Event: "subtab_open", TabID: sub.TabID, SubtabID: sub.ID})
		m.refreshColumns()
		m.focusColumn(m.tableCol)
		m.refreshTable()
		return m.loadProductsCmd(false)
	}
	return nil
}

func (m *model) handleTilesLoaded(msg tilesLoadedMsg) {
	m.reportError("load tiles", msg.err)
	if !m.nav.ChromeHidden() && m.list.State().ActiveSubtab != nil {
		m.list.SetActiveSubtab(nil)
	}
	m.refreshTiles()
	m.refreshColumns()
}

func (m *model) handleInputSubmit(value string) (tea.Cmd, bool) {
	switch m.inputMode {
	case inputSearch:
		m.searchToken++
		return m.handleSearchDebounce(searchDebounceMsg{token: m.searchToken, term: value}), false
	case inputFilter:
		f, err := catalog.ParseQuery(value)
		if err != nil {
			m.inputError = err.Error()
			return nil, true
		}
		m.list.ApplyFilters(f)
		m.emit("filters_apply", map[string]string{"query": catalog.FormatQuery(f)})
		m.refreshTable()
		return m.loadProductsCmd(true), false
	case inputJumpPage:
		page, err := strconv.Atoi(value)
		if err != nil || page < 1 {
			m.inputError = "enter a page number"
			return nil, true
		}
		return m.goToPage(page), false
	case inputNewTab, inputRenameTab, inputNewSubtab, inputRenameSubtab, inputDeleteTab, inputDeleteSubtab:
		return m.submitTabInput(value)
	case inputEditorSearch, inputBulkAdd, inputEditOverride:
		return m.submitEditorInput(value)
	}
	return nil, false
}

var errEmptyName = &catalog.ValidationError{Field: "name", Message: "name is required"}

func (m *model) submitTabInput(value string) (tea.Cmd, bool) {
	id := m.pendingID
	mode := m.inputMode
	switch mode {
	case inputNewTab, inputRenameTab, inputNewSubtab, inputRenameSubtab:
		if strings.TrimSpace(value) == "" {
			m.inputError = errEmptyName.Error()
			return nil, true
		}
	case inputDeleteTab, inputDeleteSubtab:
		if v := strings.ToLower(value); v != "y" && v != "yes" {
			return nil, false
		}
	}

	switch mode {
	case inputNewTab:
		return m.tabsCmd("Tab created", false, func(ctx context.Context) error {
			_, err := m.tabs.CreateTab(ctx, value)
			return err
		}), false
	case inputRenameTab:
		return m.tabsCmd("Tab renamed", false, func(ctx context.Context) error {
			return m.tabs.RenameTab(ctx, id, value)
		}), false
	case inputDeleteTab:
		m.emit("tab_delete", map[string]string{"tab_id": strconv.FormatInt(id, 10)})
		return m.tabsCmd("Tab deleted", true, func(ctx context.Context) error {
			return m.tabs.DeleteTab(ctx, id)
		}), false
	case inputNewSubtab:
		return m.tabsCmd("Subtab created", false, func(ctx context.Context) error {
			_, err := m.tabs.CreateSubtab(ctx, value)
			return err
		}), false
	case inputRenameSubtab:
		return m.tabsCmd("Subtab renamed", false, func(ctx context.Context) error {
			return m.tabs.RenameSubtab(ctx, id, value)
		}), false
	case inputDeleteSubtab:
		m.emit("subtab_delete", map[string]string{"subtab_id": strconv.FormatInt(id, 10)})
		return m.tabsCmd("Subtab deleted", true, func(ctx context.Context) error {
			return m.tabs.DeleteSubtab(ctx, id)
		}), false
	}
	return nil, false
}
