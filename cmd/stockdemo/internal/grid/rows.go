package grid

import (
	"fmt"

	"github.com/hazelcast/hazelcast-go-client/types"

	"github.com/shubham-shewale/stock-demo/pkg/models"
)

// DecodeTradeMapRow reads a trade_map row. The price must also fit in a
// float64 since subscribers receive it as a plain number.
func DecodeTradeMapRow(row Row) (models.MaterializedTrade, error) {
	var t models.MaterializedTrade
	var err error
	if t.ID, err = int64Column(row, "id"); err != nil {
		return t, err
	}
	if t.Ticker, err = stringColumn(row, "ticker"); err != nil {
		return t, err
	}
	if t.Name, err = stringColumn(row, "name"); err != nil {
		return t, err
	}
	price, err := decimalColumn(row, "price")
	if err != nil {
		return t, err
	}
	if _, err := DecimalToFloat(price); err != nil {
		return t, fmt.Errorf("column price: %w", err)
	}
	t.Price = ToDecimal(price)
	if t.Quantity, err = int64Column(row, "qty"); err != nil {
		return t, err
	}
	return t, nil
}

// DecodeTradesRow reads a row streamed from the trades mapping.
func DecodeTradesRow(row Row) (models.TradeEvent, error) {
	var t models.TradeEvent
	var err error
	if t.ID, err = int64Column(row, "id"); err != nil {
		return t, err
	}
	if t.Ticker, err = stringColumn(row, "ticker"); err != nil {
		return t, err
	}
	price, err := decimalColumn(row, "price")
	if err != nil {
		return t, err
	}
	t.Price = ToDecimal(price)
	if t.Quantity, err = int64Column(row, "qty"); err != nil {
		return t, err
	}
	return t, nil
}

func int64Column(row Row, name string) (int64, error) {
	v, err := row.GetByColumnName(name)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", name, err)
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("column %s: unexpected type %T", name, v)
	}
}

func stringColumn(row Row, name string) (string, error) {
	v, err := row.GetByColumnName(name)
	if err != nil {
		return "", fmt.Errorf("column %s: %w", name, err)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("column %s: unexpected type %T", name, v)
	}
	return s, nil
}

func decimalColumn(row Row, name string) (types.Decimal, error) {
	v, err := row.GetByColumnName(name)
	if err != nil {
		return types.Decimal{}, fmt.Errorf("column %s: %w", name, err)
	}
	switch d := v.(type) {
	case types.Decimal:
		return d, nil
	case *types.Decimal:
		if d == nil {
			return types.Decimal{}, fmt.Errorf("column %s: null", name)
		}
		return *d, nil
	default:
		return types.Decimal{}, fmt.Errorf("column %s: unexpected type %T", name, v)
	}
}

// RowID reads only the id column, for rows that failed to decode as a whole.
func RowID(row Row) (int64, error) {
	return int64Column(row, "id")
}
