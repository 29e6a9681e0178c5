package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	f, err := ParseQuery(`cat=Дисплеи,'Запчасти iPhone' wh=52226,37746 price=100..5000 stock=1..`)
	require.NoError(t, err)
	require.Equal(t, []string{"Дисплеи", "Запчасти iPhone"}, f.Categories)
	require.Equal(t, []int64{52226, 37746}, f.Warehouses)
	require.Equal(t, "100", f.PriceMin.String())
	require.Equal(t, "5000", f.PriceMax.String())
	require.Equal(t, 1.0, *f.StockMin)
	require.Nil(t, f.StockMax)
	require.True(t, f.Active())
}

func TestParseQueryEmptyClearsFilters(t *testing.T) {
	f, err := ParseQuery("   ")
	require.NoError(t, err)
	require.False(t, f.Active())
}

func TestParseQueryExactValue(t *testing.T) {
	f, err := ParseQuery("stock=0")
	require.NoError(t, err)
	require.Equal(t, 0.0, *f.StockMin)
	require.Equal(t, 0.0, *f.StockMax)
}

func TestParseQueryErrors(t *testing.T) {
	for _, input := range []string{
		"cat",
		"color=red",
		"wh=abc",
		"wh=-1",
		"price=..",
		"price=cheap..",
		"stock=1..many",
		`cat="unterminated`,
	} {
		_, err := ParseQuery(input)
		var verr *ValidationError
		require.True(t, errors.As(err, &verr), input)
	}
}

func TestFormatQueryRoundTrip(t *testing.T) {
	in := `cat=Дисплеи,'Запчасти iPhone' wh=52226 price=..5000 stock=2..10`
	f, err := ParseQuery(in)
	require.NoError(t, err)

	again, err := ParseQuery(FormatQuery(f))
	require.NoError(t, err)
	require.Equal(t, f.Categories, again.Categories)
	require.Equal(t, f.Warehouses, again.Warehouses)
	require.Nil(t, again.PriceMin)
	require.True(t, f.PriceMax.Equal(*again.PriceMax))
	require.Equal(t, *f.StockMin, *again.StockMin)
	require.Equal(t, *f.StockMax, *again.StockMax)
}
