package strategy

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

// ArbitrageConfig holds the thresholds for cross-exchange arbitrage.
type ArbitrageConfig struct {
	MinProfitThreshold float64 // percent
	MaxTradeAmount     float64 // quote currency per signal
}

// Arbitrage buys on the exchange with the lowest ask and sells on the one
// with the highest bid when the gap exceeds MinProfitThreshold.
type Arbitrage struct {
	toggle
	cfg    ArbitrageConfig
	logger *slog.Logger
}

// NewArbitrage creates an enabled Arbitrage strategy.
func NewArbitrage(cfg ArbitrageConfig, logger *slog.Logger) *Arbitrage {
	return &Arbitrage{
		cfg:    cfg,
		logger: logger.With(slog.String("strategy", "Arbitrage")),
	}
}

// Name returns the strategy identifier.
func (a *Arbitrage) Name() string { return "Arbitrage" }

// Analyze needs at least two exchanges with valid quotes.
func (a *Arbitrage) Analyze(ctx context.Context, view domain.MarketView) (domain.Signal, error) {
	if !a.Enabled() {
		return nil, nil
	}
	quotes := view.ValidQuotes()
	if len(quotes) < 2 {
		a.logger.DebugContext(ctx, "not enough valid quotes",
			slog.String("symbol", view.Symbol()),
			slog.Int("valid", len(quotes)),
		)
		return nil, nil
	}

	pick := pickCrossVenue(quotes)
	if pick.sameVenue() {
		a.logger.WarnContext(ctx, "best bid and ask on one exchange, skipping",
			slog.String("symbol", view.Symbol()),
			slog.String("exchange", pick.buy.Exchange),
		)
		return nil, nil
	}
	if pick.profitPercent <= a.cfg.MinProfitThreshold {
		return nil, nil
	}

	buyAsk := pick.buy.Ticker.Ask
	sig := domain.ArbitrageSignal{
		SignalMeta:    newMeta(a.Name(), view.Symbol(), a.cfg.MaxTradeAmount/buyAsk, 0),
		BuyExchange:   pick.buy.Exchange,
		SellExchange:  pick.sell.Exchange,
		BuyPrice:      buyAsk,
		SellPrice:     pick.sell.Ticker.Bid,
		ProfitPercent: pick.profitPercent,
	}

	a.logger.InfoContext(ctx, "arbitrage opportunity",
		slog.String("symbol", view.Symbol()),
		slog.String("buy_exchange", sig.BuyExchange),
		slog.Float64("buy_price", sig.BuyPrice),
		slog.String("sell_exchange", sig.SellExchange),
		slog.Float64("sell_price", sig.SellPrice),
		slog.Float64("profit_percent", sig.ProfitPercent),
	)
	return sig, nil
}

var _ Strategy = (*Arbitrage)(nil)
