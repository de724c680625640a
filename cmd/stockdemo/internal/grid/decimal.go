package grid

import (
	"errors"
	"fmt"
	"math"

	"github.com/hazelcast/hazelcast-go-client/types"
	"github.com/shopspring/decimal"
)

var ErrDecimalOverflow = errors.New("decimal does not fit in a float64")

// ToDecimal converts a grid DECIMAL. The grid scale counts digits after the
// point, the shopspring exponent is its negation.
func ToDecimal(d types.Decimal) decimal.Decimal {
	if d.UnscaledValue() == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(d.UnscaledValue(), int32(-d.Scale()))
}

// FromDecimal is the inverse of ToDecimal.
func FromDecimal(d decimal.Decimal) types.Decimal {
	return types.NewDecimal(d.Coefficient(), int(-d.Exponent()))
}

// DecimalToFloat is used where a price leaves the system as a plain number.
func DecimalToFloat(d types.Decimal) (float64, error) {
	f, _ := ToDecimal(d).Float64()
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, fmt.Errorf("%w: %s", ErrDecimalOverflow, ToDecimal(d).String())
	}
	return f, nil
}

// FormatPrice truncates to three decimals for log output.
func FormatPrice(d decimal.Decimal) string {
	return d.Truncate(3).StringFixed(3)
}
