package models

// StockReference is a row of the static reference data joined against trades.
type StockReference struct {
	Ticker    string  `json:"ticker"`
	Name      string  `json:"name"`
	MarketCap float64 `json:"cap"`
}

// Stocks is the reference list used to seed the grid and to pick tickers for
// synthetic trades.
var Stocks = []StockReference{
	{Ticker: "GOOG", Name: "Google", MarketCap: 1.2345},
	{Ticker: "APPL", Name: "Apple", MarketCap: 7.65432},
}

// Tickers returns the tickers of the reference list, in order.
func Tickers() []string {
	out := make([]string, len(Stocks))
	for i, s := range Stocks {
		out[i] = s.Ticker
	}
	return out
}
