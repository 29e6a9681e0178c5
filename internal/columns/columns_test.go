package columns

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	visibility []Visibility
	orders     [][]string
}

func (m *memoryStore) SaveVisibility(v Visibility) error {
	m.visibility = append(m.visibility, v)
	return nil
}

func (m *memoryStore) SaveOrder(order []string) error {
	m.orders = append(m.orders, append([]string(nil), order...))
	return nil
}

type cell struct {
	key   string
	value string
}

func TestArrangeIsIdempotent(t *testing.T) {
	order := Resolve([]string{Total, Name, WarehouseKey(52226), Photos}, DefaultOrder([]int64{52226, 37746}))
	row := []cell{
		{Photos, "p"}, {Name, "n"}, {Category, "c"}, {Total, "t"},
		{WarehouseKey(52226), "w1"}, {WarehouseKey(37746), "w2"}, {"extra", "x"},
	}
	key := func(c cell) string { return c.key }

	once := Arrange(order, row, key)
	twice := Arrange(order, once, key)
	require.Equal(t, once, twice)
	require.Equal(t, Total, once[0].key)
	require.Equal(t, Name, once[1].key)
	require.Equal(t, WarehouseKey(52226), once[2].key)
	require.Equal(t, "extra", once[len(once)-1].key)
}

func TestResolveIsTotalOverKnownColumns(t *testing.T) {
	known := DefaultOrder([]int64{1, 2})
	got := Resolve([]string{"wh-999", Name, Name, "bogus", "wh-2"}, known)
	require.ElementsMatch(t, known, got)
	require.Equal(t, []string{Name, "wh-2", Photos}, got[:3])
	require.Len(t, got, len(known))
}

func TestMove(t *testing.T) {
	order := []string{"a", "b", "c", "d"}
	require.Equal(t, []string{"b", "c", "a", "d"}, Move(order, "a", "d", false))
	require.Equal(t, []string{"b", "c", "d", "a"}, Move(order, "a", "d", true))
	require.Equal(t, []string{"d", "a", "b", "c"}, Move(order, "d", "a", false))
	require.Equal(t, order, Move(order, "x", "a", false))
	require.Equal(t, []string{"a", "b", "c", "d"}, order)
}

func TestDecodeVisibilityWithoutWarehouses(t *testing.T) {
	v, err := DecodeVisibility([]byte(`{"photos":false,"price_base":false}`))
	require.NoError(t, err)
	require.NotNil(t, v.Warehouses)
	require.Empty(t, v.Warehouses)
	require.False(t, v.Visible(Photos))
	require.False(t, v.Visible(PriceBase))
	require.True(t, v.Visible(Name))

	require.True(t, v.EnsureWarehouses([]int64{52226}))
	require.True(t, v.Visible(WarehouseKey(52226)))
	require.False(t, v.EnsureWarehouses([]int64{52226}))
}

func TestDecodeVisibilityCorrupt(t *testing.T) {
	v, err := DecodeVisibility([]byte(`{not json`))
	require.Error(t, err)
	require.Equal(t, DefaultVisibility(), v)
}

func TestVisibilityRoundTripKeepsStoredKeys(t *testing.T) {
	v := DefaultVisibility()
	v.Set(Price48388, false)
	v.Set(WarehouseKey(37746), false)
	data, err := json.Marshal(v)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Equal(t, false, doc["price_48388"])
	require.Equal(t, map[string]any{"37746": false}, doc["warehouses"])
}

func TestEngineDropUsesMidpoint(t *testing.T) {
	store := &memoryStore{}
	e := NewEngine(store, DefaultVisibility(), nil)
	require.NoError(t, e.SetWarehouses([]int64{52226}))
	require.Len(t, store.visibility, 1)

	require.NoError(t, e.BeginDrag(Photos))
	require.ErrorIs(t, e.BeginDrag(Name), ErrDragActive)
	require.NoError(t, e.Drop(Category, 3, 10))
	require.Equal(t, []string{Name, Photos, Category}, e.Order()[:3])

	require.NoError(t, e.BeginDrag(Photos))
	require.NoError(t, e.Drop(Category, 7, 10))
	require.Equal(t, []string{Name, Category, Photos}, e.Order()[:3])

	require.Len(t, store.orders, 2)
	require.Equal(t, e.Order(), store.orders[1])
	require.ErrorIs(t, e.Drop(Name, 0, 10), ErrNoDrag)
}

func TestEngineHiddenColumnsStayInOrder(t *testing.T) {
	store := &memoryStore{}
	e := NewEngine(store, DefaultVisibility(), nil)
	require.NoError(t, e.Toggle(Category))
	require.False(t, e.Visible(Category))
	require.Contains(t, e.Order(), Category)
	require.NotContains(t, e.Layout(StaticKeys()), Category)

	require.NoError(t, e.Shift(Name, 1))
	layout := e.Layout(StaticKeys())
	require.Equal(t, []string{Photos, PriceBase, Name}, layout[:3])
}

func TestEngineKeepsStoredOrderAcrossWarehouseChanges(t *testing.T) {
	stored := []string{"wh-2", Total, Name}
	e := NewEngine(nil, DefaultVisibility(), stored)
	require.NoError(t, e.SetWarehouses([]int64{1, 2}))
	order := e.Order()
	require.Equal(t, []string{"wh-2", Total, Name}, order[:3])
	require.Equal(t, "wh-1", order[len(order)-1])

	require.NoError(t, e.SetWarehouses([]int64{1}))
	require.NotContains(t, e.Order(), "wh-2")
}

func TestEngineMoveBeforeWarehousesKeepsStoredWarehouseSlots(t *testing.T) {
	store := &memoryStore{}
	stored := append([]string{"wh-5"}, StaticKeys()...)
	e := NewEngine(store, DefaultVisibility(), stored)
	require.NotContains(t, e.Order(), "wh-5")

	require.NoError(t, e.Shift(Name, 1))
	require.Len(t, store.orders, 1)
	require.Equal(t, []string{"wh-5", Photos, Category, Name}, store.orders[0][:4])

	require.NoError(t, e.SetWarehouses([]int64{5}))
	require.Equal(t, []string{"wh-5", Photos, Category, Name}, e.Order()[:4])
}
