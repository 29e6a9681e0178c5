package main

import "github.com/charmbracelet/lipgloss"

var palette = struct {
	text, textMuted, border, accent, selection, danger, missing lipgloss.AdaptiveColor
}{
	text:      lipgloss.AdaptiveColor{Light: "#1f2328", Dark: "#e6edf3"},
	textMuted: lipgloss.AdaptiveColor{Light: "#656d76", Dark: "#8d96a0"},
	border:    lipgloss.AdaptiveColor{Light: "#d0d7de", Dark: "#30363d"},
	accent:    lipgloss.AdaptiveColor{Light: "#0969da", Dark: "#4493f8"},
	selection: lipgloss.AdaptiveColor{Light: "#ddf4ff", Dark: "#1f3a5f"},
	danger:    lipgloss.AdaptiveColor{Light: "#cf222e", Dark: "#f85149"},
	missing:   lipgloss.AdaptiveColor{Light: "#9a6700", Dark: "#d29922"},
}

type styles struct {
	app, topBar, breadcrumbs           lipgloss.Style
	columnTitle                        lipgloss.Style
	panel, panelFocused                lipgloss.Style
	tabActive, tabInactive, tabsRow    lipgloss.Style
	statusBar, statusSeg, statusHint   lipgloss.Style
	listItem, listSel                  lipgloss.Style
	tile, tileSelected, tileCount      lipgloss.Style
	headerSelected, headerDragging     lipgloss.Style
	unavailable                        lipgloss.Style
	cmdOverlay, cmdPrompt, cmdHint     lipgloss.Style
	alertOverlay, alertTitle, errorMsg lipgloss.Style
}

func newStyles() styles {
	base := lipgloss.NewStyle()
	panelBorder := lipgloss.NormalBorder()
	focusedBorder := lipgloss.DoubleBorder()

	return styles{
		app:            base,
		topBar:         base.Copy().Bold(true).Padding(0, 1),
		breadcrumbs:    base.Copy().Foreground(palette.textMuted).Padding(0, 1),
		columnTitle:    base.Copy().Bold(true).Padding(0, 1),
		panel:          base.Copy().BorderStyle(panelBorder).BorderForeground(palette.border),
		panelFocused:   base.Copy().BorderStyle(focusedBorder).BorderForeground(palette.accent),
		tabActive:      base.Copy().Bold(true).Underline(true).Padding(0, 1),
		tabInactive:    base.Copy().Foreground(palette.textMuted).Padding(0, 1),
		tabsRow:        base.Padding(0, 1),
		statusBar:      base.Padding(0, 1),
		statusSeg:      base.Copy().Padding(0, 1).MarginRight(1),
		statusHint:     base.Copy().Foreground(palette.textMuted),
		listItem:       base.Copy().Padding(0, 1),
		listSel:        base.Copy().Padding(0, 1).Bold(true).Foreground(palette.accent),
		tile:           base.Copy().Border(lipgloss.RoundedBorder()).BorderForeground(palette.border).Padding(0, 1),
		tileSelected:   base.Copy().Border(lipgloss.ThickBorder()).BorderForeground(palette.accent).Padding(0, 1).Bold(true),
		tileCount:      base.Copy().Foreground(palette.textMuted),
		headerSelected: base.Copy().Bold(true).Foreground(palette.accent),
		headerDragging: base.Copy().Bold(true).Reverse(true),
		unavailable:    base.Copy().Foreground(palette.missing).Italic(true),
		cmdOverlay:     base.Copy().Border(lipgloss.RoundedBorder()).Padding(1, 2),
		cmdPrompt:      base.Copy().Bold(true),
		cmdHint:        base.Copy().Faint(true),
		alertOverlay:   base.Copy().Border(lipgloss.ThickBorder()).BorderForeground(palette.danger).Padding(1, 2),
		alertTitle:     base.Copy().Bold(true).Foreground(palette.danger),
		errorMsg:       base.Copy().Foreground(palette.danger),
	}
}
