package main

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"github.com/remstock/catalog-tui/internal/catalog"
	"github.com/remstock/catalog-tui/internal/render"
)

type markdownTheme string

const (
	markdownThemeAuto  markdownTheme = "auto"
	markdownThemeDark  markdownTheme = "dark"
	markdownThemeLight markdownTheme = "light"
)

// markdownThemes is the cycle order used by the theme key.
var markdownThemes = []markdownTheme{markdownThemeAuto, markdownThemeDark, markdownThemeLight}

// rendererKey identifies a glamour renderer; a new one is built whenever the
// theme or wrap width changes.
type rendererKey struct {
	theme markdownTheme
	wrap  int
}

var preview = struct {
	sync.Mutex
	key      rendererKey
	renderer *glamour.TermRenderer
}{key: rendererKey{theme: markdownThemeAuto, wrap: 60}}

// RenderMarkdown returns content rendered for the terminal, or content as is
// when glamour cannot render it.
func RenderMarkdown(content string) string {
	renderer := previewRenderer()
	if renderer == nil {
		return content
	}
	out, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return out
}

func previewRenderer() *glamour.TermRenderer {
	preview.Lock()
	defer preview.Unlock()
	if preview.renderer != nil {
		return preview.renderer
	}
	style := glamour.WithAutoStyle()
	if preview.key.theme != markdownThemeAuto {
		style = glamour.WithStandardStyle(string(preview.key.theme))
	}
	renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(preview.key.wrap))
	if err != nil {
		return nil
	}
	preview.renderer = renderer
	return renderer
}

func updatePreview(change func(*rendererKey)) {
	preview.Lock()
	defer preview.Unlock()
	key := preview.key
	change(&key)
	if preview.key != key {
		preview.key = key
		preview.renderer = nil
	}
}

func setMarkdownWordWrap(width int) {
	updatePreview(func(k *rendererKey) { k.wrap = max(width, 0) })
}

func setMarkdownTheme(theme markdownTheme) {
	updatePreview(func(k *rendererKey) { k.theme = markdownThemeFromString(string(theme)) })
}

func markdownThemeFromString(value string) markdownTheme {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, theme := range markdownThemes {
		if string(theme) == value {
			return theme
		}
	}
	return markdownThemeAuto
}

func (t markdownTheme) String() string {
	return string(markdownThemeFromString(string(t)))
}

func nextMarkdownTheme(theme markdownTheme) markdownTheme {
	for i, candidate := range markdownThemes {
		if candidate == theme {
			return markdownThemes[(i+1)%len(markdownThemes)]
		}
	}
	return markdownThemeAuto
}

// productMarkdown describes one product for the preview pane.
func productMarkdown(p catalog.Product, warehouses []catalog.Warehouse, apiURL string) string {
	var b strings.Builder
	title := p.Name
	if title == "" {
		title = catalog.MissingName(p.RemonlineID)
	}
	fmt.Fprintf(&b, "# %s\n\n", escapeMarkdown(title))
	if p.IsMissing {
		fmt.Fprintf(&b, "> Product %d is listed in this subtab but the catalog has no record for it.\n\n", p.RemonlineID)
	}

	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| RemID | %d |\n", p.RemonlineID)
	if p.SKU != "" {
		fmt.Fprintf(&b, "| SKU | %s |\n", escapeMarkdown(p.SKU))
	}
	category := p.Category
	if category == "" {
		category = render.Empty
	}
	fmt.Fprintf(&b, "| Category | %s |\n", escapeMarkdown(category))
	if p.HasCustomName && p.OriginalName != "" {
		fmt.Fprintf(&b, "| Catalog name | %s |\n", escapeMarkdown(p.OriginalName))
	}
	if p.HasCustomCategory && p.OriginalCategory != "" {
		fmt.Fprintf(&b, "| Catalog category | %s |\n", escapeMarkdown(p.OriginalCategory))
	}
	if !p.IsMissing {
		fmt.Fprintf(&b, "| Price | %s |\n", catalog.FormatPrice(p.Price))
		fmt.Fprintf(&b, "| Updated | %s |\n", catalog.FormatTimestamp(p.UpdatedAt))
	}
	b.WriteString("\n")

	if p.IsMissing {
		return b.String()
	}

	if len(p.Prices) > 0 {
		b.WriteString("## Price lists\n\n")
		ids := make([]string, 0, len(p.Prices))
		for id := range p.Prices {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Fprintf(&b, "- %s: %s\n", id, catalog.FormatAmount(p.Prices[id]))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Stock\n\n")
	for _, wh := range warehouses {
		fmt.Fprintf(&b, "- %s: %s\n", escapeMarkdown(wh.Title), catalog.FormatQuantity(p.Stock(wh.RemonlineID)))
	}
	total := 0.0
	if p.TotalStock != nil {
		total = *p.TotalStock
	}
	fmt.Fprintf(&b, "\n**Total:** %s\n\n", catalog.FormatQuantity(total))

	if len(p.Images) > 0 {
		b.WriteString("## Photos\n\n")
		for _, img := range p.Images {
			fmt.Fprintf(&b, "- %s\n", img.Full)
		}
		b.WriteString("\n")
	}
	if apiURL != "" {
		fmt.Fprintf(&b, "`%s`\n", apiURL)
	}
	return b.String()
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`).Replace(s)
}
