package tiles

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/remstock/catalog-tui/internal/api"
	"github.com/remstock/catalog-tui/internal/catalog"
)

// Level is a step of the drill-down.
type Level int

const (
	LevelCategories Level = iota
	LevelTabs
	LevelSubtabs
	LevelTable
)

func (l Level) String() string {
	switch l {
	case LevelTabs:
		return "tabs"
	case LevelSubtabs:
		return "subtabs"
	case LevelTable:
		return "table"
	}
	return "categories"
}

// NoData is shown on a subtab tile whose member count could not be read.
const NoData = "no data"

const countConcurrency = 4

// countLimit bounds the member list fetched to count a subtab tile.
const countLimit = 10000

// Tile is one selectable card.
type Tile struct {
	ID       int64
	Key      string
	Title    string
	Count    int
	HasCount bool
	Note     string
}

// Backend is the part of the API client the navigator uses.
type Backend interface {
	ListTabs(ctx context.Context, query api.TabQuery) ([]catalog.Tab, error)
	ListSubtabs(ctx context.Context, tabID int64, activeOnly bool) ([]catalog.Subtab, error)
	ListSubtabProducts(ctx context.Context, subtabID int64, limit int) ([]catalog.SubtabProduct, error)
}

// Navigator is the tile drill-down state machine.
type Navigator struct {
	client Backend
	log    zerolog.Logger

	mu       sync.Mutex
	level    Level
	category string
	tab      catalog.Tab
	subtabs  []catalog.Subtab
	subtab   catalog.Subtab
	tiles    []Tile
}

// NewNavigator starts at the category level.
func NewNavigator(client Backend, log zerolog.Logger) *Navigator {
	n := &Navigator{client: client, log: log.With().Str("component", "tiles").Logger()}
	n.tiles = categoryTiles()
	return n
}

func categoryTiles() []Tile {
	return []Tile{
		{Key: catalog.MainTabApple, Title: "Apple"},
		{Key: catalog.MainTabAndroid, Title: "Android"},
	}
}

// Level returns the current level.
func (n *Navigator) Level() Level {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.level
}

// Tiles returns the cards of the current level.
func (n *Navigator) Tiles() []Tile {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Tile(nil), n.tiles...)
}

// Category is the chosen main tab type.
func (n *Navigator) Category() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.category
}

// Tab is the chosen tab, valid from LevelSubtabs on.
func (n *Navigator) Tab() catalog.Tab {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.tab
}

// Subtab is the chosen subtab, valid at LevelTable.
func (n *Navigator) Subtab() catalog.Subtab {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.subtab
}

// ChromeHidden reports whether the classic tab bars should be hidden.
func (n *Navigator) ChromeHidden() bool {
	return n.Level() == LevelTable
}

// Breadcrumb describes the path to the current level.
func (n *Navigator) Breadcrumb() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := "Catalog"
	if n.level >= LevelTabs {
		out += " / " + n.category
	}
	if n.level >= LevelSubtabs {
		out += " / " + n.tab.Name
	}
	if n.level == LevelTable {
		out += " / " + n.subtab.Name
	}
	return out
}

// OpenCategory shows the tabs of a main tab type.
func (n *Navigator) OpenCategory(ctx context.Context, category string) error {
	tabs, err := n.client.ListTabs(ctx, api.TabQuery{ActiveOnly: true, Limit: 1000, MainTabType: category})
	if err != nil {
		return fmt.Errorf("load %s tabs: %w", category, err)
	}
	tiles := make([]Tile, 0, len(tabs))
	for _, tab := range catalog.OrderTabs(tabs) {
		tiles = append(tiles, Tile{ID: tab.ID, Title: tab.Name, Count: len(tab.Subtabs), HasCount: tab.Subtabs != nil})
	}

	n.mu.Lock()
	n.level = LevelTabs
	n.category = category
	n.tiles = tiles
	n.mu.Unlock()
	return nil
}

// OpenTab shows the subtabs of tab with their member counts. Counts are
// fetched concurrently; a failed count shows NoData.
func (n *Navigator) OpenTab(ctx context.Context, tab catalog.Tab) error {
	subtabs, err := n.client.ListSubtabs(ctx, tab.ID, true)
	if err != nil {
		return fmt.Errorf("load subtabs of %q: %w", tab.Name, err)
	}
	subtabs = catalog.OrderSubtabs(subtabs)

	tiles := make([]Tile, len(subtabs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(countConcurrency)
	for i, s := range subtabs {
		i, s := i, s
		tiles[i] = Tile{ID: s.ID, Title: s.Name}
		g.Go(func() error {
			members, err := n.client.ListSubtabProducts(gctx, s.ID, countLimit)
			if err != nil {
				n.log.Warn().Err(err).Int64("subtab_id", s.ID).Msg("subtab count failed")
				tiles[i].Note = NoData
				return nil
			}
			tiles[i].Count = len(catalog.MemberIDs(members))
			tiles[i].HasCount = true
			return nil
		})
	}
	_ = g.Wait()

	n.mu.Lock()
	n.level = LevelSubtabs
	n.tab = tab
	n.subtabs = subtabs
	n.tiles = tiles
	n.mu.Unlock()
	return nil
}

// OpenSubtab enters table mode for a subtab of the current tab.
func (n *Navigator) OpenSubtab(subtabID int64) (catalog.Subtab, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.level != LevelSubtabs {
		return catalog.Subtab{}, fmt.Errorf("open subtab %d: not at subtab level", subtabID)
	}
	for _, s := range n.subtabs {
		if s.ID == subtabID {
			n.level = LevelTable
			n.subtab = s
			n.tiles = nil
			return s, nil
		}
	}
	return catalog.Subtab{}, fmt.Errorf("open subtab %d: not in tab %d", subtabID, n.tab.ID)
}

// Back returns to the previous level and refetches its list. It reports
// false at the category level.
func (n *Navigator) Back(ctx context.Context) (bool, error) {
	n.mu.Lock()
	level, category, tab := n.level, n.category, n.tab
	n.mu.Unlock()

	switch level {
	case LevelTable:
		return true, n.OpenTab(ctx, tab)
	case LevelSubtabs:
		return true, n.OpenCategory(ctx, category)
	case LevelTabs:
		n.Reset()
		return true, nil
	}
	return false, nil
}

// Reset returns to the category level.
func (n *Navigator) Reset() {
	n.mu.Lock()
	n.level = LevelCategories
	n.category = ""
	n.tab = catalog.Tab{}
	n.subtab = catalog.Subtab{}
	n.subtabs = nil
	n.tiles = categoryTiles()
	n.mu.Unlock()
}
