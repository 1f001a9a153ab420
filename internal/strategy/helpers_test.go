package strategy

import (
	"io"
	"log/slog"
	"time"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func quote(exchange string, bid, ask float64) domain.Quote {
	return domain.Quote{
		Exchange: exchange,
		Ticker:   domain.Ticker{Exchange: exchange, Symbol: "BTC/USDT", Bid: bid, Ask: ask, Last: bid},
	}
}

func viewOf(quotes ...domain.Quote) domain.MarketView {
	return domain.NewMarketView("BTC/USDT", quotes, time.Now())
}
