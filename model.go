package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/stopwatch"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/remstock/catalog-tui/internal/api"
	"github.com/remstock/catalog-tui/internal/catalog"
	"github.com/remstock/catalog-tui/internal/columns"
	"github.com/remstock/catalog-tui/internal/config"
	"github.com/remstock/catalog-tui/internal/prefs"
	"github.com/remstock/catalog-tui/internal/products"
	"github.com/remstock/catalog-tui/internal/tabs"
	"github.com/remstock/catalog-tui/internal/tiles"
)

type viewMode int

const (
	viewClassic viewMode = iota
	viewTiles
	viewEditor
)

type inputMode int

const (
	inputNone inputMode = iota
	inputSearch
	inputFilter
	inputJumpPage
	inputNewTab
	inputRenameTab
	inputDeleteTab
	inputNewSubtab
	inputRenameSubtab
	inputDeleteSubtab
	inputEditorSearch
	inputBulkAdd
	inputEditOverride
)

// tableHeaderRow is the screen row of the product table header: top bar,
// panel border, column title.
const tableHeaderRow = 3

var pageSizes = []int{25, 50, 100, 200}

type tabSelectedMsg struct {
	id int64
}

type subtabSelectedMsg struct {
	id int64
}

type tileSelectedMsg struct {
	tile tiles.Tile
}

type productHighlightedMsg struct {
	product catalog.Product
}

type productActivatedMsg struct {
	product catalog.Product
}

type keyMap struct {
	quit          key.Binding
	nextFocus     key.Binding
	prevFocus     key.Binding
	back          key.Binding
	toggleLogs    key.Binding
	togglePreview key.Binding
	toggleTheme   key.Binding
	markdownTheme key.Binding
	search        key.Binding
	filter        key.Binding
	resetFilter   key.Binding
	nextPage      key.Binding
	prevPage      key.Binding
	jumpPage      key.Binding
	pageSizeUp    key.Binding
	pageSizeDown  key.Binding
	sort          key.Binding
	moveColLeft   key.Binding
	moveColRight  key.Binding
	columnsMenu   key.Binding
	copyID        key.Binding
	copyURL       key.Binding
	refresh       key.Binding
	syncAll       key.Binding
	reload        key.Binding
	newItem       key.Binding
	rename        key.Binding
	remove        key.Binding
	moveUp        key.Binding
	moveDown      key.Binding
	togglePin     key.Binding
	collapse      key.Binding
	openEditor    key.Binding
	cancelJob     key.Binding
	toggleHelp    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		nextFocus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next panel"),
		),
		prevFocus: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev panel"),
		),
		back: key.NewBinding(
			key.WithKeys("esc", "backspace"),
			key.WithHelp("esc", "back"),
		),
		toggleLogs: key.NewBinding(
			key.WithKeys("f6"),
			key.WithHelp("F6", "toggle logs"),
		),
		togglePreview: key.NewBinding(
			key.WithKeys("P"),
			key.WithHelp("P", "toggle preview"),
		),
		toggleTheme: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "tiles/classic"),
		),
		markdownTheme: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "preview theme"),
		),
		search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		filter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "filter"),
		),
		resetFilter: key.NewBinding(
			key.WithKeys("F"),
			key.WithHelp("F", "reset filters"),
		),
		nextPage: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next page"),
		),
		prevPage: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "prev page"),
		),
		jumpPage: key.NewBinding(
			key.WithKeys("#"),
			key.WithHelp("#", "go to page"),
		),
		pageSizeUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+/-", "page size"),
		),
		pageSizeDown: key.NewBinding(
			key.WithKeys("-"),
		),
		sort: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sort column"),
		),
		moveColLeft: key.NewBinding(
			key.WithKeys("<", ","),
			key.WithHelp("</>", "move column"),
		),
		moveColRight: key.NewBinding(
			key.WithKeys(">", "."),
		),
		columnsMenu: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "columns"),
		),
		copyID: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy id"),
		),
		copyURL: key.NewBinding(
			key.WithKeys("Y"),
			key.WithHelp("Y", "copy api url"),
		),
		refresh: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "refresh stock"),
		),
		syncAll: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "sync all"),
		),
		reload: key.NewBinding(
			key.WithKeys("r", "ctrl+r"),
			key.WithHelp("r", "reload"),
		),
		newItem: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		rename: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "rename"),
		),
		remove: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "delete"),
		),
		moveUp: key.NewBinding(
			key.WithKeys("K"),
			key.WithHelp("K/J", "move"),
		),
		moveDown: key.NewBinding(
			key.WithKeys("J"),
		),
		togglePin: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pin tab"),
		),
		collapse: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "expand/collapse"),
		),
		openEditor: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit products"),
		),
		cancelJob: key.NewBinding(
			key.WithKeys("ctrl+k"),
			key.WithHelp("ctrl+k", "cancel job"),
		),
		toggleHelp: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.nextFocus,
		k.search,
		k.filter,
		k.sort,
		k.columnsMenu,
		k.toggleTheme,
		k.toggleHelp,
		k.quit,
	}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.nextFocus, k.prevFocus, k.back, k.toggleTheme},
		{k.search, k.filter, k.resetFilter, k.nextPage, k.prevPage, k.jumpPage, k.pageSizeUp},
		{k.sort, k.moveColLeft, k.columnsMenu, k.copyID, k.copyURL},
		{k.newItem, k.rename, k.remove, k.moveUp, k.togglePin, k.collapse, k.openEditor},
		{k.refresh, k.syncAll, k.reload, k.cancelJob},
		{k.togglePreview, k.markdownTheme, k.toggleLogs, k.toggleHelp, k.quit},
	}
}

// deps are the collaborators built by main.
type deps struct {
	cfg       *config.Config
	log       zerolog.Logger
	client    *api.Client
	prefs     *prefs.Store
	ui        *uiConfig
	uiPath    string
	telemetry *telemetryLogger
}

type model struct {
	width  int
	height int
	styles styles
	keys   keyMap
	help   help.Model

	cfg          *config.Config
	log          zerolog.Logger
	client       *api.Client
	prefs        *prefs.Store
	uiConfig     *uiConfig
	uiConfigPath string
	telemetry    *telemetryLogger

	registry      *products.Registry
	list          *products.Controller
	tabs          *tabs.Manager
	editor        *tabs.Editor
	nav           *tiles.Navigator
	theme         *tiles.ThemeManager
	engine        *columns.Engine
	markdownTheme markdownTheme

	tabsCol      *selectableColumn
	subtabsCol   *selectableColumn
	tilesCol     *tileGridColumn
	tableCol     *productTableColumn
	previewCol   *previewColumn
	availableCol *selectableColumn
	membersCol   *selectableColumn
	columns      []column
	colWidths    []int
	focus        int
	showPreview  bool

	showLogs   bool
	logsHeight int
	logs       viewport.Model
	logLines   []string

	inputActive     bool
	inputMode       inputMode
	inputPrompt     string
	inputField      textinput.Model
	inputArea       textarea.Model
	textAreaEnabled bool
	inputError      string
	pendingID       int64

	columnsMenu      bool
	columnsMenuIndex int
	alert            string

	spinner           spinner.Model
	searchToken       int
	editorSearchToken int

	jobRunner    *jobManager
	jobTitle     string
	jobLine      string
	jobRatio     float64
	jobProgress  progress.Model
	jobStopwatch stopwatch.Model

	syncStatus api.SyncStatus
	syncKnown  bool

	warehousesReady bool
	editorChanged   bool
	toastMessage    string
	toastExpires    time.Time
}

func newModel(d deps) *model {
	s := newStyles()
	pageSize := d.cfg.List.PageSize
	if d.ui.PageSize > 0 {
		pageSize = d.ui.PageSize
	}

	list := products.NewController(d.client, products.Options{
		PageSize:           pageSize,
		StockConcurrency:   d.cfg.List.StockConcurrency,
		SubtabResolveLimit: d.cfg.List.SubtabResolveLimit,
		RefreshBatchSize:   d.cfg.Refresh.BatchSize,
		RefreshBatchDelay:  d.cfg.Refresh.BatchDelay,
		SyncPollInterval:   d.cfg.List.SyncPollInterval,
		SyncStatusInterval: d.cfg.List.SyncStatusInterval,
		Collation:          d.cfg.List.Collation,
		Log:                d.log,
	})

	m := &model{
		styles:        s,
		keys:          newKeyMap(),
		help:          help.New(),
		cfg:           d.cfg,
		log:           d.log.With().Str("component", "tui").Logger(),
		client:        d.client,
		prefs:         d.prefs,
		uiConfig:      d.ui,
		uiConfigPath:  d.uiPath,
		telemetry:     d.telemetry,
		registry:      products.NewRegistry(d.client, d.cfg.List.WarehouseFetchLimit, d.log),
		list:          list,
		tabs:          tabs.NewManager(d.client, d.log, list.SetActiveSubtab),
		nav:           tiles.NewNavigator(d.client, d.log),
		theme:         tiles.NewThemeManager(d.prefs),
		engine:        columns.NewEngine(d.prefs, d.prefs.LoadVisibility(), d.prefs.LoadOrder()),
		markdownTheme: markdownThemeFromString(d.ui.MarkdownTheme),
		showPreview:   boolOr(d.ui.ShowPreview, true),
		showLogs:      boolOr(d.ui.ShowLogs, false),
		logsHeight:    8,
		jobRunner:     newJobManager(),
		logLines: []string{
			"[INFO] Loading warehouses and tabs.",
			"[TIP] Tab/Shift+Tab move focus; t switches between tiles and classic tabs.",
		},
	}
	setMarkdownTheme(m.markdownTheme)

	m.help.ShortSeparator = " │ "
	m.help.Styles.ShortKey = m.styles.statusHint.Copy()
	m.help.Styles.ShortDesc = m.styles.statusHint.Copy()
	m.help.Styles.ShortSeparator = m.styles.statusSeg.Copy()
	m.help.Styles.Ellipsis = m.styles.statusSeg.Copy()
	m.help.Styles.FullKey = m.styles.statusHint.Copy()
	m.help.Styles.FullDesc = m.styles.statusHint.Copy()
	m.help.Styles.FullSeparator = m.styles.statusSeg.Copy()

	m.inputField = textinput.New()
	m.inputField.Prompt = "> "
	m.inputField.CharLimit = 256
	m.inputArea = textarea.New()
	m.inputArea.Prompt = ""
	m.inputArea.CharLimit = 20000
	m.inputArea.ShowLineNumbers = false
	m.inputArea.SetHeight(6)
	m.inputArea.SetWidth(48)
	m.inputArea.Blur()
	m.spinner = spinner.New(spinner.WithSpinner(spinner.Dot))
	m.spinner.Style = m.styles.statusHint.Copy().Bold(true)
	m.jobProgress = progress.New(progress.WithDefaultGradient(), progress.WithWidth(24), progress.WithoutPercentage())
	m.jobStopwatch = stopwatch.NewWithInterval(time.Second)
	m.logs = viewport.New(80, m.logsHeight-2)

	m.tabsCol = newSelectableColumn("Tabs", 24, func(entry listEntry) tea.Cmd {
		id, _ := entry.payload.(int64)
		return func() tea.Msg { return tabSelectedMsg{id: id} }
	}, s)
	m.subtabsCol = newSelectableColumn("Subtabs", 26, func(entry listEntry) tea.Cmd {
		id, _ := entry.payload.(int64)
		return func() tea.Msg { return subtabSelectedMsg{id: id} }
	}, s)
	m.tilesCol = newTileGridColumn("Categories", func(tile tiles.Tile) tea.Cmd {
		return func() tea.Msg { return tileSelectedMsg{tile: tile} }
	})
	m.tableCol = newProductTableColumn("Products")
	m.tableCol.SetCallbacks(
		func(p catalog.Product) tea.Cmd {
			return func() tea.Msg { return productHighlightedMsg{product: p} }
		},
		func(p catalog.Product) tea.Cmd {
			return func() tea.Msg { return productActivatedMsg{product: p} }
		},
	)
	m.previewCol = newPreviewColumn(40)
	m.availableCol = newSelectableColumn("Catalog", 40, nil, s)
	m.membersCol = newSelectableColumn("Members", 40, nil, s)

	m.refreshTiles()
	m.refreshColumns()
	m.refreshLogs()
	return m
}

func (m *model) mode() viewMode {
	switch {
	case m.editor != nil:
		return viewEditor
	case m.theme.Tile():
		return viewTiles
	}
	return viewClassic
}

func (m *model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.loadWarehousesCmd(), m.syncStatusCmd()}
	if m.mode() == viewClassic {
		cmds = append(cmds, m.loadTabsCmd(m.uiConfig.MainTabType))
	}
	m.emit("session_start", nil)
	return tea.Batch(cmds...)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if tick, ok := msg.(spinner.TickMsg); ok {
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(tick)
		return m, cmd
	}
	switch sw := msg.(type) {
	case stopwatch.TickMsg, stopwatch.StartStopMsg, stopwatch.ResetMsg:
		var cmd tea.Cmd
		m.jobStopwatch, cmd = m.jobStopwatch.Update(sw)
		return m, cmd
	}

	if m.inputActive {
		if cmd, handled := m.updateInput(msg); handled {
			return m, cmd
		}
	}

	switch message := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = message.Width, message.Height
		m.applyLayout()
		return m, nil

	case tea.MouseMsg:
		if cmd := m.handleMouse(message); cmd != nil {
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if m.alert != "" {
			switch message.String() {
			case "esc", "enter", " ", "q":
				m.alert = ""
			}
			return m, nil
		}
		if m.columnsMenu {
			return m, m.handleColumnsMenuKey(message)
		}
		if handled, cmd := m.handleGlobalKey(message); handled {
			m.applyLayout()
			return m, cmd
		}
		if handled, cmd := m.handleFocusedKey(message); handled {
			m.applyLayout()
			return m, cmd
		}
	}

	if m.focus >= 0 && m.focus < len(m.columns) {
		col := m.columns[m.focus]
		var cmd tea.Cmd
		m.columns[m.focus], cmd = col.Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	switch message := msg.(type) {
	case warehousesLoadedMsg:
		cmds = append(cmds, m.handleWarehousesLoaded(message))
	case productsLoadedMsg:
		cmds = append(cmds, m.handleProductsLoaded(message))
	case tabsLoadedMsg:
		m.handleTabsLoaded(message)
	case tabsChangedMsg:
		cmds = append(cmds, m.handleTabsChanged(message))
	case tabSelectedMsg:
		cmds = append(cmds, m.handleTabSelected(message.id))
	case subtabSelectedMsg:
		cmds = append(cmds, m.handleSubtabSelected(message.id))
	case tileSelectedMsg:
		cmds = append(cmds, m.handleTileSelected(message.tile))
	case tilesLoadedMsg:
		m.handleTilesLoaded(message)
	case productHighlightedMsg:
		m.showProduct(message.product)
	case productActivatedMsg:
		m.handleProductActivated(message.product)
	case searchDebounceMsg:
		cmds = append(cmds, m.handleSearchDebounce(message))
	case editorLoadedMsg:
		m.handleEditorLoaded(message)
	case editorResultMsg:
		m.handleEditorResult(message)
	case editorSearchDebounceMsg:
		m.handleEditorSearchDebounce(message)
	case syncPollMsg:
		cmds = append(cmds, m.syncStatusCmd())
	case syncStatusMsg:
		cmds = append(cmds, m.handleSyncStatus(message))
	case clipboardMsg:
		if message.err != nil {
			m.setToast("Copy failed: "+message.err.Error(), 4*time.Second)
		} else {
			m.setToast("Copied "+message.label, 3*time.Second)
		}
	case jobMsg:
		cmds = append(cmds, m.handleJobMessage(message))
	}

	m.applyLayout()
	return m, tea.Batch(cmds...)
}

func (m *model) View() string {
	var builder strings.Builder

	helpWidth := m.width - 4
	if helpWidth < 0 {
		helpWidth = 0
	}
	m.help.Width = helpWidth

	builder.WriteString(m.styles.topBar.Width(m.width).Render(m.renderTopBar()))
	builder.WriteRune('\n')

	var colViews []string
	for i, col := range m.columns {
		colViews = append(colViews, col.View(m.styles, i == m.focus))
	}
	builder.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, colViews...))
	builder.WriteRune('\n')

	if m.showLogs {
		logTitle := m.styles.columnTitle.Render("Jobs / Logs")
		builder.WriteString(m.styles.panel.Width(m.width - 2).Render(logTitle + "\n" + m.logs.View()))
		builder.WriteRune('\n')
	}

	if helpView := m.help.View(m.keys); helpView != "" {
		builder.WriteString(helpView)
		if !strings.HasSuffix(helpView, "\n") {
			builder.WriteRune('\n')
		}
	}

	builder.WriteString(m.renderStatus())

	switch {
	case m.alert != "":
		builder.WriteString("\n")
		builder.WriteString(m.renderAlert())
	case m.columnsMenu:
		builder.WriteString("\n")
		builder.WriteString(m.renderColumnsMenu())
	case m.inputActive:
		builder.WriteString("\n")
		builder.WriteString(m.renderInput())
	}

	return m.styles.app.Render(builder.String())
}

func (m *model) renderTopBar() string {
	title := "catalog • " + m.theme.Theme()
	switch m.mode() {
	case viewTiles:
		title += " • " + m.nav.Breadcrumb()
	case viewEditor:
		title += " • editing " + m.editorTitle()
	default:
		if tab, ok := m.tabs.Selected(); ok {
			title += " • " + tab.Name
			if sub, ok := m.tabs.ActiveSubtab(); ok {
				title += " / " + sub.Name
			}
		}
		if mt := m.tabs.MainTabType(); mt != "" {
			title += " [" + mt + "]"
		}
	}
	return title
}

func (m *model) renderAlert() string {
	width := min(64, m.width-4)
	if width < 24 {
		width = 24
	}
	body := m.styles.alertTitle.Render("Error") + "\n" + m.alert + "\n\n" + m.styles.cmdHint.Render("enter/esc dismiss")
	overlay := m.styles.alertOverlay.Width(width).Render(body)
	return lipgloss.Place(m.width, m.height/2, lipgloss.Center, lipgloss.Center, overlay)
}

func (m *model) renderInput() string {
	overlayWidth := min(64, m.width-4)
	if overlayWidth < 24 {
		overlayWidth = 24
	}
	var b strings.Builder
	b.WriteString(m.styles.cmdPrompt.Render(m.inputPrompt))
	b.WriteRune('\n')
	if m.textAreaEnabled {
		areaWidth := overlayWidth - 4
		if areaWidth < 24 {
			areaWidth = 24
		}
		m.inputArea.SetWidth(areaWidth)
		lines := strings.Count(m.inputArea.Value(), "\n") + 1
		m.inputArea.SetHeight(max(4, min(12, lines+1)))
		b.WriteString(m.inputArea.View())
		b.WriteRune('\n')
		b.WriteString(m.styles.cmdHint.Render("ctrl+s save • esc cancel"))
	} else {
		b.WriteString(m.inputField.View())
		b.WriteRune('\n')
		hint := "enter confirm • esc cancel"
		switch m.inputMode {
		case inputSearch, inputEditorSearch:
			hint = "results update as you type • enter close"
		case inputFilter:
			hint = "cat=a,b wh=id,id price=lo..hi stock=lo..hi • empty clears"
		case inputEditOverride:
			hint = "name | category • empty part restores the original"
		}
		b.WriteString(m.styles.cmdHint.Render(hint))
	}
	if m.inputError != "" {
		b.WriteRune('\n')
		b.WriteString(m.styles.errorMsg.Render(m.inputError))
	}
	overlay := m.styles.cmdOverlay.Width(overlayWidth).Render(strings.TrimRight(b.String(), "\n"))
	return lipgloss.Place(m.width, m.height/2, lipgloss.Center, lipgloss.Center, overlay)
}

func (m *model) renderStatus() string {
	var segments []string
	if m.focus >= 0 && m.focus < len(m.columns) {
		focusValue := strings.TrimSpace(m.columns[m.focus].FocusValue())
		if focusValue == "" {
			focusValue = "—"
		}
		segments = append(segments, m.styles.statusSeg.Render(fmt.Sprintf("%s: %s", m.columns[m.focus].Title(), focusValue)))
	}
	if m.tableShown() {
		st := m.list.State()
		segments = append(segments, m.styles.statusSeg.Render(m.renderPages(st)))
		if st.Search != "" {
			segments = append(segments, m.styles.statusSeg.Render("Search: "+st.Search))
		}
		if st.Filters.Active() {
			segments = append(segments, m.styles.statusSeg.Render("Filters: "+catalog.FormatQuery(st.Filters)))
		}
		if st.Loading {
			segments = append(segments, m.styles.statusSeg.Render(m.spinner.View()+" loading"))
		}
	}
	if m.registry.UsingFallback() {
		segments = append(segments, m.styles.statusSeg.Render("Warehouses: fallback"))
	}
	if m.jobTitle != "" {
		job := fmt.Sprintf("%s %s %s", m.jobTitle, m.jobProgress.ViewAs(m.jobRatio), m.jobStopwatch.View())
		if pending := m.jobRunner.Pending(); pending > 0 {
			job += fmt.Sprintf(" (+%d queued)", pending)
		}
		segments = append(segments, m.styles.statusSeg.Render(job))
	}
	if m.syncKnown && m.syncStatus.Running() {
		sync := fmt.Sprintf("Sync %d/%d %s", m.syncStatus.Processed, m.syncStatus.Total,
			m.jobProgress.ViewAs(ratio(m.syncStatus.Processed, m.syncStatus.Total)))
		segments = append(segments, m.styles.statusSeg.Render(sync))
	}
	if m.toastMessage != "" {
		if time.Now().After(m.toastExpires) {
			m.toastMessage = ""
		} else {
			segments = append(segments, m.styles.statusSeg.Render(m.toastMessage))
		}
	}
	content := strings.Join(segments, lipgloss.NewStyle().Render("│"))
	return m.styles.statusBar.Width(m.width).Render(content)
}

// renderPages shows the page window, with gaps as ellipses.
func (m *model) renderPages(st products.State) string {
	var parts []string
	for _, p := range m.list.PageWindow() {
		switch {
		case p == catalog.Gap:
			parts = append(parts, "…")
		case p == st.Page:
			parts = append(parts, fmt.Sprintf("[%d]", p))
		default:
			parts = append(parts, fmt.Sprintf("%d", p))
		}
	}
	total := fmt.Sprintf("%d", st.Total)
	if !st.HasTotal {
		total = fmt.Sprintf("%d+", st.Total)
	}
	return fmt.Sprintf("Page %s • %s items • %d/page", strings.Join(parts, " "), total, st.PageSize)
}

// refreshColumns picks the panels for the current mode.
func (m *model) refreshColumns() {
	var next []column
	switch m.mode() {
	case viewEditor:
		next = []column{m.availableCol, m.membersCol, m.previewCol}
	case viewTiles:
		if m.nav.ChromeHidden() {
			next = []column{m.tableCol}
			if m.showPreview {
				next = append(next, m.previewCol)
			}
		} else {
			next = []column{m.tilesCol}
		}
	default:
		next = []column{m.tabsCol, m.subtabsCol, m.tableCol}
		if m.showPreview {
			next = append(next, m.previewCol)
		}
	}
	prev := m.focusedColumn()
	m.columns = next
	m.focus = 0
	for i, col := range next {
		if col == prev {
			m.focus = i
		}
	}
	m.applyLayout()
}

func (m *model) focusedColumn() column {
	if m.focus >= 0 && m.focus < len(m.columns) {
		return m.columns[m.focus]
	}
	return nil
}

func (m *model) focusColumn(target column) {
	for i, col := range m.columns {
		if col == target {
			m.focus = i
			return
		}
	}
}

func (m *model) tableShown() bool {
	for _, col := range m.columns {
		if col == m.tableCol {
			return true
		}
	}
	return false
}

func (m *model) applyLayout() {
	if m.width == 0 || m.height == 0 {
		return
	}

	topChrome := 1
	bottomChrome := 1
	m.help.Width = max(m.width-4, 0)
	if helpView := m.help.View(m.keys); helpView != "" {
		bottomChrome += lipgloss.Height(helpView)
	}

	bodyHeight := m.height - topChrome - bottomChrome
	if m.showLogs {
		bodyHeight -= m.logsHeight
		m.logs.Width = max(m.width-4, 10)
		m.logs.Height = m.logsHeight - 3
	}
	if bodyHeight < 6 {
		bodyHeight = 6
	}

	var widths []int
	switch m.mode() {
	case viewEditor:
		preview := min(36, m.width/4)
		half := (m.width - preview) / 2
		widths = []int{half, m.width - preview - half, preview}
	case viewTiles:
		widths = []int{m.width}
		if len(m.columns) == 2 {
			preview := min(44, m.width/3)
			widths = []int{m.width - preview, preview}
		}
	default:
		widths = []int{24, 26}
		remaining := m.width - 50
		if m.showPreview {
			preview := min(44, m.width/4)
			widths = append(widths, max(remaining-preview, 30), preview)
		} else {
			widths = append(widths, max(remaining, 30))
		}
	}

	m.colWidths = widths
	for i, col := range m.columns {
		if i < len(widths) {
			col.SetSize(widths[i], bodyHeight)
		}
	}
	setMarkdownWordWrap(max(m.previewCol.width-4, 20))
}

func (m *model) appendLog(line string) {
	if line == "" {
		return
	}
	m.logLines = append(m.logLines, line)
	if len(m.logLines) > 400 {
		m.logLines = m.logLines[len(m.logLines)-400:]
	}
	m.refreshLogs()
}

func (m *model) refreshLogs() {
	m.logs.SetContent(strings.Join(m.logLines, "\n"))
	m.logs.GotoBottom()
}

func (m *model) setToast(msg string, duration time.Duration) {
	trimmed := strings.TrimSpace(msg)
	if trimmed == "" {
		m.toastMessage = ""
		m.toastExpires = time.Time{}
		return
	}
	if duration <= 0 {
		duration = 5 * time.Second
	}
	m.toastMessage = trimmed
	m.toastExpires = time.Now().Add(duration)
}

// reportError logs err, shows it briefly and returns true when err is set.
func (m *model) reportError(what string, err error) bool {
	if err == nil {
		return false
	}
	m.log.Error().Err(err).Msg(what)
	m.appendLog(fmt.Sprintf("[ERROR] %s: %v", what, err))
	m.setToast(fmt.Sprintf("%s: %v", what, err), 6*time.Second)
	return true
}

func (m *model) emit(event string, extra map[string]string) {
	ev := telemetryEvent{Event: event, Extra: extra}
	if sub, ok := m.tabs.ActiveSubtab(); ok {
		ev.TabID = sub.TabID
		ev.SubtabID = sub.ID
	}
	m.telemetry.Emit(ev)
}

func (m *model) saveUI() {
	if err := saveUIConfig(m.uiConfig, m.uiConfigPath); err != nil {
		m.log.Warn().Err(err).Str("path", m.uiConfigPath).Msg("save ui config")
	}
}

func (m *model) openInput(prompt, value string, mode inputMode) {
	m.inputMode = mode
	m.inputPrompt = prompt
	m.inputActive = true
	m.inputError = ""
	m.textAreaEnabled = false
	m.inputField.SetValue(value)
	m.inputField.CursorEnd()
	m.inputField.Focus()
}

func (m *model) openTextarea(prompt, initial string, mode inputMode) {
	m.inputMode = mode
	m.inputPrompt = prompt
	m.inputActive = true
	m.inputError = ""
	m.textAreaEnabled = true
	m.inputField.Blur()
	m.inputArea.SetValue(initial)
	m.inputArea.CursorEnd()
	m.inputArea.Focus()
}

func (m *model) closeInput() {
	m.inputActive = false
	m.textAreaEnabled = false
	m.inputError = ""
	m.inputField.Blur()
	m.inputField.SetValue("")
	m.inputArea.Blur()
	m.inputArea.Reset()
	if m.inputMode == inputEditOverride && m.editor != nil {
		m.editor.CancelEdit(m.pendingID)
	}
	m.inputMode = inputNone
	m.pendingID = 0
}

// updateInput routes messages to the open prompt. Non-key messages fall
// through to the regular handlers.
func (m *model) updateInput(msg tea.Msg) (tea.Cmd, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil, false
	}

	if m.textAreaEnabled {
		switch keyMsg.String() {
		case "esc":
			m.closeInput()
			return nil, true
		case "ctrl+s", "ctrl+enter":
			cmd, keepOpen := m.handleInputSubmit(m.inputArea.Value())
			if !keepOpen {
				m.closeInput()
			}
			return cmd, true
		}
		var cmd tea.Cmd
		m.inputArea, cmd = m.inputArea.Update(msg)
		return cmd, true
	}

	switch keyMsg.String() {
	case "esc":
		m.closeInput()
		return nil, true
	case "enter":
		cmd, keepOpen := m.handleInputSubmit(strings.TrimSpace(m.inputField.Value()))
		if !keepOpen {
			m.closeInput()
		}
		return cmd, true
	}

	before := m.inputField.Value()
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.inputField, cmd = m.inputField.Update(msg)
	cmds = append(cmds, cmd)
	if value := m.inputField.Value(); value != before {
		m.inputError = ""
		switch m.inputMode {
		case inputSearch:
			m.searchToken++
			cmds = append(cmds, debounceSearch(m.cfg.List.SearchDebounce, m.searchToken, value))
		case inputEditorSearch:
			m.editorSearchToken++
			cmds = append(cmds, debounceEditorSearch(m.cfg.List.SearchDebounce, m.editorSearchToken, value))
		}
	}
	return tea.Batch(cmds...), true
}
