package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/remstock/catalog-tui/internal/catalog"
)

func TestMarkdownThemeCycle(t *testing.T) {
	require.Equal(t, markdownThemeDark, nextMarkdownTheme(markdownThemeAuto))
	require.Equal(t, markdownThemeLight, nextMarkdownTheme(markdownThemeDark))
	require.Equal(t, markdownThemeAuto, nextMarkdownTheme(markdownThemeLight))
	require.Equal(t, markdownThemeAuto, nextMarkdownTheme("sepia"))

	require.Equal(t, markdownThemeLight, markdownThemeFromString(" LIGHT "))
	require.Equal(t, "auto", markdownTheme("sepia").String())
}

func TestProductMarkdown(t *testing.T) {
	total := 5.0
	p := catalog.Product{
		ID:          1,
		RemonlineID: 101,
		Name:        "Display | iPhone 11",
		Category:    "Displays",
		Stocks:      map[int64]float64{52226: 5},
		TotalStock:  &total,
	}
	out := productMarkdown(p, []catalog.Warehouse{{RemonlineID: 52226, Title: "Main"}}, "http://api/products/1")
	require.Contains(t, out, `# Display \| iPhone 11`)
	require.Contains(t, out, "| RemID | 101 |")
	require.Contains(t, out, "- Main: 5")
	require.Contains(t, out, "`http://api/products/1`")

	missing := productMarkdown(catalog.Product{RemonlineID: 7, IsMissing: true}, nil, "")
	require.Contains(t, missing, "# #7")
	require.Contains(t, missing, "no record")
	require.NotContains(t, missing, "## Stock")
}
