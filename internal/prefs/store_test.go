package prefs

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/remstock/catalog-tui/internal/columns"
)

func openTestStore(t *testing.T, scope string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prefs.sqlite")
	store, err := Open(path, scope, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLoadDefaultsWhenEmpty(t *testing.T) {
	store := openTestStore(t, "http://localhost:8000/api/v1")
	require.Equal(t, columns.DefaultVisibility(), store.LoadVisibility())
	require.Equal(t, columns.StaticKeys(), store.LoadOrder())
	require.Empty(t, store.LoadTheme())
}

func TestVisibilityPartialDocumentMerges(t *testing.T) {
	store := openTestStore(t, "a")
	require.NoError(t, store.Put(KeyColumnsVisibility, []byte(`{"category":false}`)))

	v := store.LoadVisibility()
	require.False(t, v.Visible(columns.Category))
	require.True(t, v.Visible(columns.Photos))
	require.NotNil(t, v.Warehouses)
	require.Empty(t, v.Warehouses)
}

func TestCorruptDocumentsFallBack(t *testing.T) {
	store := openTestStore(t, "a")
	require.NoError(t, store.Put(KeyColumnsVisibility, []byte(`{"category":`)))
	require.NoError(t, store.Put(KeyColumnOrder, []byte(`"not a list"`)))

	require.Equal(t, columns.DefaultVisibility(), store.LoadVisibility())
	require.Equal(t, columns.StaticKeys(), store.LoadOrder())
}

func TestSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.sqlite")
	store, err := Open(path, "a", zerolog.Nop())
	require.NoError(t, err)

	v := columns.DefaultVisibility()
	v.Set(columns.WarehouseKey(52226), false)
	require.NoError(t, store.SaveVisibility(v))
	require.NoError(t, store.SaveOrder([]string{columns.Total, columns.Name}))
	require.NoError(t, store.SaveTheme("classic"))
	require.NoError(t, store.Close())

	reopened, err := Open(path, "a", zerolog.Nop())
	require.NoError(t, err)
	defer reopened.Close()
	require.False(t, reopened.LoadVisibility().Visible(columns.WarehouseKey(52226)))
	require.Equal(t, []string{columns.Total, columns.Name}, reopened.LoadOrder())
	require.Equal(t, "classic", reopened.LoadTheme())
}

func TestScopesAreIsolated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.sqlite")
	first, err := Open(path, "one", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, first.SaveTheme("classic"))
	require.NoError(t, first.Close())

	second, err := Open(path, "two", zerolog.Nop())
	require.NoError(t, err)
	defer second.Close()
	require.Empty(t, second.LoadTheme())
}

func TestNilStoreIsUsable(t *testing.T) {
	var store *Store
	require.NoError(t, store.SaveTheme("tile"))
	require.Equal(t, columns.DefaultVisibility(), store.LoadVisibility())
	require.NoError(t, store.Close())
}
