package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/remstock/catalog-tui/internal/catalog"
	"github.com/remstock/catalog-tui/internal/columns"
	"github.com/remstock/catalog-tui/internal/render"
	"github.com/remstock/catalog-tui/internal/tiles"
)

type column interface {
	SetSize(width, height int)
	Update(msg tea.Msg) (column, tea.Cmd)
	View(styles styles, focused bool) string
	Title() string
	FocusValue() string
}

type selectableColumn struct {
	title       string
	model       list.Model
	width       int
	height      int
	onSelect    func(entry listEntry) tea.Cmd
	onHighlight func(entry listEntry) tea.Cmd
}

type listEntry struct {
	title   string
	desc    string
	payload any
}

func (e listEntry) Title() string       { return e.title }
func (e listEntry) Description() string { return e.desc }
func (e listEntry) FilterValue() string { return e.title }

func newSelectableColumn(title string, width int, onSelect func(listEntry) tea.Cmd, s styles) *selectableColumn {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = s.listSel
	delegate.Styles.SelectedDesc = s.listSel
	delegate.Styles.NormalTitle = s.listItem
	delegate.Styles.NormalDesc = s.listItem.Copy().Foreground(palette.textMuted)

	m := list.New(nil, delegate, width, 20)
	m.Title = title
	m.SetShowTitle(false)
	m.SetShowStatusBar(false)
	m.SetFilteringEnabled(false)
	m.SetShowHelp(false)
	m.SetShowPagination(false)
	m.KeyMap.Quit.SetEnabled(false)

	return &selectableColumn{
		title:    title,
		model:    m,
		width:    width,
		onSelect: onSelect,
	}
}

// SetItems replaces the entries and keeps the cursor on the entry whose
// payload matches keep, when given.
func (c *selectableColumn) SetItems(entries []listEntry, keep func(any) bool) {
	items := make([]list.Item, len(entries))
	selected := 0
	for i, entry := range entries {
		items[i] = entry
		if keep != nil && keep(entry.payload) {
			selected = i
		}
	}
	c.model.SetItems(items)
	if len(items) > 0 {
		c.model.Select(selected)
	}
}

func (c *selectableColumn) SetTitle(title string) {
	c.title = title
}

func (c *selectableColumn) SetSize(width, height int) {
	c.width = width
	if height < 3 {
		height = 3
	}
	c.height = height
	c.model.SetSize(width-2, height-3)
}

func (c *selectableColumn) Update(msg tea.Msg) (column, tea.Cmd) {
	prev := c.model.Index()
	if m, ok := msg.(tea.KeyMsg); ok && m.String() == "enter" && c.onSelect != nil {
		if item, ok := c.model.SelectedItem().(listEntry); ok {
			return c, c.onSelect(item)
		}
	}
	var cmd tea.Cmd
	c.model, cmd = c.model.Update(msg)
	if c.model.Index() != prev && c.onHighlight != nil {
		if item, ok := c.model.SelectedItem().(listEntry); ok {
			if run := c.onHighlight(item); run != nil {
				return c, tea.Batch(cmd, run)
			}
		}
	}
	return c, cmd
}

func (c *selectableColumn) View(s styles, focused bool) string {
	body := lipgloss.JoinVertical(lipgloss.Left, s.columnTitle.Render(c.title), c.model.View())
	if focused {
		return s.panelFocused.Width(c.width - 2).Render(body)
	}
	return s.panel.Width(c.width - 2).Render(body)
}

func (c *selectableColumn) Title() string {
	return c.title
}

func (c *selectableColumn) FocusValue() string {
	if item, ok := c.model.SelectedItem().(listEntry); ok {
		return item.title
	}
	return ""
}

func (c *selectableColumn) SelectedEntry() (listEntry, bool) {
	if entry, ok := c.model.SelectedItem().(listEntry); ok {
		return entry, true
	}
	return listEntry{}, false
}

func (c *selectableColumn) Len() int {
	return len(c.model.Items())
}

func (c *selectableColumn) SetHighlightFunc(fn func(listEntry) tea.Cmd) {
	c.onHighlight = fn
}

const tileWidth = 24

// tileGridColumn lays tiles out as a grid of cards.
type tileGridColumn struct {
	title    string
	cards    []tiles.Tile
	cursor   int
	width    int
	height   int
	onSelect func(tiles.Tile) tea.Cmd
}

func newTileGridColumn(title string, onSelect func(tiles.Tile) tea.Cmd) *tileGridColumn {
	return &tileGridColumn{title: title, onSelect: onSelect}
}

func (c *tileGridColumn) SetTiles(title string, cards []tiles.Tile) {
	c.title = title
	c.cards = cards
	if c.cursor >= len(cards) {
		c.cursor = 0
	}
}

func (c *tileGridColumn) perRow() int {
	n := (c.width - 2) / (tileWidth + 4)
	if n < 1 {
		return 1
	}
	return n
}

func (c *tileGridColumn) SetSize(width, height int) {
	c.width = width
	c.height = height
}

func (c *tileGridColumn) Update(msg tea.Msg) (column, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || len(c.cards) == 0 {
		return c, nil
	}
	switch keyMsg.String() {
	case "left", "h":
		c.cursor--
	case "right", "l":
		c.cursor++
	case "up", "k":
		c.cursor -= c.perRow()
	case "down", "j":
		c.cursor += c.perRow()
	case "enter":
		if c.onSelect != nil {
			return c, c.onSelect(c.cards[c.cursor])
		}
	}
	if c.cursor < 0 {
		c.cursor = 0
	}
	if c.cursor >= len(c.cards) {
		c.cursor = len(c.cards) - 1
	}
	return c, nil
}

func (c *tileGridColumn) View(s styles, focused bool) string {
	var rows []string
	var row []string
	for i, card := range c.cards {
		body := card.Title
		switch {
		case card.HasCount:
			body += "\n" + s.tileCount.Render(fmt.Sprintf("%d products", card.Count))
		case card.Note != "":
			body += "\n" + s.tileCount.Render(card.Note)
		default:
			body += "\n "
		}
		style := s.tile
		if i == c.cursor {
			style = s.tileSelected
		}
		row = append(row, style.Width(tileWidth).Render(body))
		if len(row) == c.perRow() {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	content := "nothing here yet"
	if len(rows) > 0 {
		content = lipgloss.JoinVertical(lipgloss.Left, rows...)
	}
	body := lipgloss.JoinVertical(lipgloss.Left, s.columnTitle.Render(c.title), content)
	panel := s.panel
	if focused {
		panel = s.panelFocused
	}
	return panel.Width(c.width - 2).Height(c.height - 2).Render(body)
}

func (c *tileGridColumn) Title() string {
	return c.title
}

func (c *tileGridColumn) FocusValue() string {
	if c.cursor < len(c.cards) {
		return c.cards[c.cursor].Title
	}
	return ""
}

// productTableColumn shows a rendered product table and keeps a column
// cursor for sort, reorder and visibility actions.
type productTableColumn struct {
	title       string
	table       table.Model
	width       int
	height      int
	data        render.Table
	widths      []int
	colCursor   int
	dragging    string
	onHighlight func(catalog.Product) tea.Cmd
	onActivate  func(catalog.Product) tea.Cmd
}

func newProductTableColumn(title string) *productTableColumn {
	model := table.New(
		table.WithFocused(true),
		table.WithHeight(10),
	)
	tStyles := table.DefaultStyles()
	tStyles.Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(palette.textMuted).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(palette.border).
		BorderBottom(true).
		Padding(0, 1)
	tStyles.Cell = lipgloss.NewStyle().
		Padding(0, 1)
	tStyles.Selected = lipgloss.NewStyle().
		Foreground(palette.text).
		Background(palette.selection)
	model.SetStyles(tStyles)

	return &productTableColumn{
		title: title,
		table: model,
	}
}

func (c *productTableColumn) SetCallbacks(onHighlight, onActivate func(catalog.Product) tea.Cmd) {
	c.onHighlight = onHighlight
	c.onActivate = onActivate
}

func (c *productTableColumn) SetTitle(title string) {
	c.title = title
}

// SetData installs a freshly built table. The column cursor follows its key
// when the column is still shown.
func (c *productTableColumn) SetData(data render.Table, dragging string) {
	prevKey := c.SelectedKey()
	c.data = data
	c.dragging = dragging
	c.colCursor = 0
	for i, h := range data.Headers {
		if h.Key == prevKey {
			c.colCursor = i
		}
	}
	c.relayout()

	rows := make([]table.Row, len(data.Rows))
	for i, r := range data.Rows {
		cells := make(table.Row, len(r.Cells))
		for j, cell := range r.Cells {
			cells[j] = cell.Text
		}
		rows[i] = cells
	}
	cursor := c.table.Cursor()
	c.table.SetRows(rows)
	if cursor >= len(rows) {
		cursor = 0
	}
	c.table.SetCursor(cursor)
}

func (c *productTableColumn) relayout() {
	c.widths = columnWidths(c.data.Headers, c.width-2)
	cols := make([]table.Column, len(c.data.Headers))
	for i, h := range c.data.Headers {
		title := h.Title
		if h.Arrow != "" {
			title += " " + h.Arrow
		}
		switch {
		case h.Key == c.dragging:
			title = "⇄ " + title
		case i == c.colCursor:
			title = "› " + title
		}
		cols[i] = table.Column{Title: title, Width: c.widths[i]}
	}
	// Rows must be cleared first so the table never renders more cells than
	// columns while both change.
	c.table.SetRows(nil)
	c.table.SetColumns(cols)
}

func columnWidths(headers []render.Header, total int) []int {
	widths := make([]int, len(headers))
	fixed := 0
	nameIdx := -1
	for i, h := range headers {
		switch {
		case h.Key == columns.Name:
			nameIdx = i
			continue
		case h.Key == columns.Photos:
			widths[i] = 7
		case h.Key == columns.Category:
			widths[i] = 16
		case h.Key == columns.Total:
			widths[i] = 9
		default:
			widths[i] = 11
		}
		fixed += widths[i] + 2
	}
	if nameIdx >= 0 {
		name := total - fixed - 2
		if name < 20 {
			name = 20
		}
		widths[nameIdx] = name
	}
	return widths
}

func (c *productTableColumn) SetSize(width, height int) {
	if width < 30 {
		width = 30
	}
	if height < 6 {
		height = 6
	}
	c.width = width
	c.height = height
	c.table.SetWidth(width - 2)
	c.table.SetHeight(height - 4)
	c.SetData(c.data, c.dragging)
}

func (c *productTableColumn) SelectedProduct() (catalog.Product, bool) {
	row, ok := c.selectedRow()
	return row.Product, ok
}

func (c *productTableColumn) selectedRow() (render.Row, bool) {
	idx := c.table.Cursor()
	if idx < 0 || idx >= len(c.data.Rows) {
		return render.Row{}, false
	}
	return c.data.Rows[idx], true
}

// SelectedKey is the column key under the column cursor.
func (c *productTableColumn) SelectedKey() string {
	if c.colCursor < 0 || c.colCursor >= len(c.data.Headers) {
		return ""
	}
	return c.data.Headers[c.colCursor].Key
}

func (c *productTableColumn) SelectKey(key string) {
	for i, h := range c.data.Headers {
		if h.Key == key {
			c.colCursor = i
			c.SetData(c.data, c.dragging)
			return
		}
	}
}

func (c *productTableColumn) moveColumnCursor(delta int) {
	if len(c.data.Headers) == 0 {
		return
	}
	c.colCursor += delta
	if c.colCursor < 0 {
		c.colCursor = 0
	}
	if c.colCursor >= len(c.data.Headers) {
		c.colCursor = len(c.data.Headers) - 1
	}
	c.SetData(c.data, c.dragging)
}

// HeaderAt maps an x offset inside the panel to the header under it, with
// the offset and width of that header cell.
func (c *productTableColumn) HeaderAt(x int) (key string, offset, width int, ok bool) {
	x-- // left border
	left := 0
	for i, w := range c.widths {
		cell := w + 2
		if x >= left && x < left+cell {
			return c.data.Headers[i].Key, x - left, cell, true
		}
		left += cell
	}
	return "", 0, 0, false
}

func (c *productTableColumn) Update(msg tea.Msg) (column, tea.Cmd) {
	var cmds []tea.Cmd
	prev := c.table.Cursor()

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "left", "h":
			c.moveColumnCursor(-1)
			return c, nil
		case "right", "l":
			c.moveColumnCursor(1)
			return c, nil
		case "enter":
			if p, ok := c.SelectedProduct(); ok && c.onActivate != nil {
				return c, c.onActivate(p)
			}
			return c, nil
		}
	}

	var cmd tea.Cmd
	c.table, cmd = c.table.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	if c.table.Cursor() != prev {
		if p, ok := c.SelectedProduct(); ok && c.onHighlight != nil {
			cmds = append(cmds, c.onHighlight(p))
		}
	}
	return c, tea.Batch(cmds...)
}

func (c *productTableColumn) View(s styles, focused bool) string {
	content := c.table.View()
	if len(c.data.Rows) == 0 {
		content = lipgloss.JoinVertical(lipgloss.Left, content, s.statusHint.Render("  no products"))
	}
	body := lipgloss.JoinVertical(lipgloss.Left, s.columnTitle.Render(c.title), content)
	if focused {
		return s.panelFocused.Width(c.width - 2).Render(body)
	}
	return s.panel.Width(c.width - 2).Render(body)
}

func (c *productTableColumn) Title() string {
	return c.title
}

func (c *productTableColumn) FocusValue() string {
	row, ok := c.selectedRow()
	if !ok {
		return ""
	}
	name := row.Text(columns.Name)
	if name == "" {
		name = row.Product.Name
	}
	return strings.TrimSpace(name)
}

// Meta is the secondary line of the selected row.
func (c *productTableColumn) Meta() string {
	row, ok := c.selectedRow()
	if !ok {
		return ""
	}
	return row.Meta
}

type previewColumn struct {
	title   string
	width   int
	height  int
	content string
	view    viewport.Model
}

func newPreviewColumn(width int) *previewColumn {
	vp := viewport.New(width, 20)
	return &previewColumn{
		title: "Preview",
		view:  vp,
	}
}

func (p *previewColumn) SetSize(width, height int) {
	p.width = width
	if height < 3 {
		height = 3
	}
	p.height = height
	p.view.Width = width - 2
	p.view.Height = height - 3
}

func (p *previewColumn) SetContent(title, content string) {
	if title != "" {
		p.title = title
	}
	p.content = content
	p.view.SetContent(content)
	p.view.GotoTop()
}

func (p *previewColumn) Update(msg tea.Msg) (column, tea.Cmd) {
	var cmd tea.Cmd
	p.view, cmd = p.view.Update(msg)
	return p, cmd
}

func (p *previewColumn) View(s styles, focused bool) string {
	header := s.columnTitle.Render(p.title)
	body := header + "\n" + p.view.View()
	if focused {
		return s.panelFocused.Width(p.width - 2).Render(body)
	}
	return s.panel.Width(p.width - 2).Render(body)
}

func (p *previewColumn) Title() string {
	return p.title
}

func (p *previewColumn) FocusValue() string {
	return ""
}
