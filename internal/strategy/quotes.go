package strategy

import "github.com/alanyoungcy/cexbot/internal/domain"

// crossVenue is the cheapest ask and richest bid found across a set of
// quotes.
type crossVenue struct {
	buy           domain.Quote
	sell          domain.Quote
	profitPercent float64
}

// sameVenue reports whether both legs landed on one exchange, which only
// happens with a crossed book.
func (c crossVenue) sameVenue() bool {
	return c.buy.Exchange == c.sell.Exchange
}

// pickCrossVenue selects the minimum ask and maximum bid. Comparisons are
// strict so equal prices keep the earliest exchange in view order. quotes
// must be non-empty and valid.
func pickCrossVenue(quotes []domain.Quote) crossVenue {
	buy, sell := quotes[0], quotes[0]
	for _, q := range quotes[1:] {
		if q.Ticker.Ask < buy.Ticker.Ask {
			buy = q
		}
		if q.Ticker.Bid > sell.Ticker.Bid {
			sell = q
		}
	}
	c := crossVenue{buy: buy, sell: sell}
	if ask := buy.Ticker.Ask; ask > 0 {
		c.profitPercent = (sell.Ticker.Bid - ask) / ask * 100
	}
	return c
}
