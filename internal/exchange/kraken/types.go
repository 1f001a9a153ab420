package kraken

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// --------------------------------------------------------------------------
// Kraken API DTOs
// --------------------------------------------------------------------------

type envelope struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

// TickerInfo is one pair's entry from /0/public/Ticker. Each array holds
// decimal strings; index 0 is the price.
type TickerInfo struct {
	Ask  []string `json:"a"`
	Bid  []string `json:"b"`
	Last []string `json:"c"`
}

// DepthInfo is one pair's entry from /0/public/Depth. Each level is
// [price, volume, timestamp] with price and volume as strings.
type DepthInfo struct {
	Asks [][]json.RawMessage `json:"asks"`
	Bids [][]json.RawMessage `json:"bids"`
}

// AssetPair is one entry from /0/public/AssetPairs.
type AssetPair struct {
	Altname string `json:"altname"`
	WSName  string `json:"wsname"`
	Base    string `json:"base"`
	Quote   string `json:"quote"`
	Status  string `json:"status"`
}

// AddOrderResult is the result of /0/private/AddOrder.
type AddOrderResult struct {
	Descr struct {
		Order string `json:"order"`
	} `json:"descr"`
	TxID []string `json:"txid"`
}

// OrderInfo is one order from QueryOrders or OpenOrders.
type OrderInfo struct {
	Status  string `json:"status"` // pending, open, closed, canceled, expired
	Vol     string `json:"vol"`
	VolExec string `json:"vol_exec"`
	Cost    string `json:"cost"`
	Price   string `json:"price"` // average fill price
	Descr   struct {
		Pair      string `json:"pair"`
		Type      string `json:"type"`
		OrderType string `json:"ordertype"`
		Price     string `json:"price"`
	} `json:"descr"`
}

// CancelResult is the result of CancelOrder and CancelAll.
type CancelResult struct {
	Count int `json:"count"`
}

// parseDecimal parses a Kraken decimal string. An empty string is zero.
func parseDecimal(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("kraken: parse decimal %q: %w", s, err)
	}
	return d.InexactFloat64(), nil
}

// firstDecimal parses the first element of a ticker field.
func firstDecimal(field []string) (float64, error) {
	if len(field) == 0 {
		return 0, nil
	}
	return parseDecimal(field[0])
}

// levelValues parses [price, volume, ...] from a depth entry.
func levelValues(level []json.RawMessage) (price, volume float64, err error) {
	if len(level) < 2 {
		return 0, 0, fmt.Errorf("kraken: malformed depth level")
	}
	var ps, vs string
	if err := json.Unmarshal(level[0], &ps); err != nil {
		return 0, 0, fmt.Errorf("kraken: depth price: %w", err)
	}
	if err := json.Unmarshal(level[1], &vs); err != nil {
		return 0, 0, fmt.Errorf("kraken: depth volume: %w", err)
	}
	if price, err = parseDecimal(ps); err != nil {
		return 0, 0, err
	}
	if volume, err = parseDecimal(vs); err != nil {
		return 0, 0, err
	}
	return price, volume, nil
}
