package grid_test

import (
	"math/big"
	"testing"

	"github.com/hazelcast/hazelcast-go-client/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shubham-shewale/stock-demo/cmd/stockdemo/internal/grid"
)

func TestToDecimal(t *testing.T) {
	d := types.NewDecimal(big.NewInt(12345), 2)
	assert.Equal(t, "123.45", grid.ToDecimal(d).String())

	assert.True(t, grid.ToDecimal(types.Decimal{}).IsZero())
}

func TestFromDecimal_RoundTrip(t *testing.T) {
	price := decimal.RequireFromString("101.07")
	assert.True(t, price.Equal(grid.ToDecimal(grid.FromDecimal(price))))
}

func TestDecimalToFloat(t *testing.T) {
	f, err := grid.DecimalToFloat(types.NewDecimal(big.NewInt(9999), 2))
	require.NoError(t, err)
	assert.InDelta(t, 99.99, f, 1e-9)
}

func TestDecimalToFloat_Overflow(t *testing.T) {
	huge := new(big.Int).Exp(big.NewInt(10), big.NewInt(400), nil)
	_, err := grid.DecimalToFloat(types.NewDecimal(huge, 0))
	assert.ErrorIs(t, err, grid.ErrDecimalOverflow)
}

func TestFormatPrice_Truncates(t *testing.T) {
	assert.Equal(t, "123.456", grid.FormatPrice(decimal.RequireFromString("123.4569")))
	assert.Equal(t, "50.100", grid.FormatPrice(decimal.RequireFromString("50.1")))
}
