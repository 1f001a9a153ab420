package domain

import (
	"strings"
	"time"
)

// PriceLevel is a single price+size entry in an order book.
type PriceLevel struct {
	Price float64
	Size  float64
}

// Ticker is the top-of-book quote for a symbol on one exchange.
type Ticker struct {
	Exchange  string
	Symbol    string
	Bid       float64
	Ask       float64
	Last      float64
	Timestamp time.Time
}

// Valid reports whether both sides of the quote are usable.
func (t Ticker) Valid() bool {
	return t.Bid > 0 && t.Ask > 0
}

// Mid returns (bid+ask)/2.
func (t Ticker) Mid() float64 {
	return (t.Bid + t.Ask) / 2
}

// SpreadPercent returns (ask-bid)/bid*100, or 0 when bid is not positive.
func (t Ticker) SpreadPercent() float64 {
	if t.Bid <= 0 {
		return 0
	}
	return (t.Ask - t.Bid) / t.Bid * 100
}

// OrderBook is a shallow depth snapshot limited to N levels per side.
type OrderBook struct {
	Exchange  string
	Symbol    string
	Bids      []PriceLevel
	Asks      []PriceLevel
	Timestamp time.Time
}

// Quote is one exchange's contribution to a MarketView.
type Quote struct {
	Exchange string
	Ticker   Ticker
	Book     *OrderBook
}

// MarketView is the per-cycle snapshot of a symbol across exchanges. Quotes
// keep the configured exchange order, which is also the tie-break order used
// by strategies. A view is never mutated after NewMarketView returns.
type MarketView struct {
	symbol    string
	quotes    []Quote
	createdAt time.Time
}

// NewMarketView builds a view over a private copy of quotes.
func NewMarketView(symbol string, quotes []Quote, at time.Time) MarketView {
	cp := make([]Quote, len(quotes))
	copy(cp, quotes)
	return MarketView{symbol: symbol, quotes: cp, createdAt: at}
}

// Symbol returns the canonical BASE/QUOTE symbol of the view.
func (v MarketView) Symbol() string { return v.symbol }

// CreatedAt returns the time the view was assembled.
func (v MarketView) CreatedAt() time.Time { return v.createdAt }

// Len returns the number of exchanges present in the view.
func (v MarketView) Len() int { return len(v.quotes) }

// Quotes returns a copy of all quotes in exchange order.
func (v MarketView) Quotes() []Quote {
	out := make([]Quote, len(v.quotes))
	copy(out, v.quotes)
	return out
}

// ValidQuotes returns the quotes whose ticker has a positive bid and ask,
// preserving exchange order.
func (v MarketView) ValidQuotes() []Quote {
	out := make([]Quote, 0, len(v.quotes))
	for _, q := range v.quotes {
		if q.Ticker.Valid() {
			out = append(out, q)
		}
	}
	return out
}

// SplitSymbol splits a canonical "BASE/QUOTE" symbol. ok is false when the
// symbol does not have exactly one separator with non-empty halves.
func SplitSymbol(symbol string) (base, quote string, ok bool) {
	parts := strings.Split(symbol, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
