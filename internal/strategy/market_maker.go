package strategy

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

// MarketMakerConfig holds quoting parameters.
type MarketMakerConfig struct {
	SpreadPercent float64 // full spread; each side sits half of it from mid
	OrderSize     float64 // quote currency per side
}

// MarketMaker continuously quotes both sides around the mid of the first
// exchange with a valid ticker. It has no profitability gate.
type MarketMaker struct {
	toggle
	cfg    MarketMakerConfig
	logger *slog.Logger
}

// NewMarketMaker creates an enabled MarketMaker strategy.
func NewMarketMaker(cfg MarketMakerConfig, logger *slog.Logger) *MarketMaker {
	return &MarketMaker{
		cfg:    cfg,
		logger: logger.With(slog.String("strategy", "MarketMaker")),
	}
}

// Name returns the strategy identifier.
func (m *MarketMaker) Name() string { return "MarketMaker" }

func (m *MarketMaker) Analyze(ctx context.Context, view domain.MarketView) (domain.Signal, error) {
	if !m.Enabled() {
		return nil, nil
	}
	quotes := view.ValidQuotes()
	if len(quotes) == 0 {
		return nil, nil
	}

	q := quotes[0]
	mid := q.Ticker.Mid()
	half := m.cfg.SpreadPercent / 200
	sig := domain.MarketMakeSignal{
		SignalMeta:    newMeta(m.Name(), view.Symbol(), m.cfg.OrderSize/mid, 0),
		Exchange:      q.Exchange,
		MidPrice:      mid,
		BuyPrice:      mid * (1 - half),
		SellPrice:     mid * (1 + half),
		SpreadPercent: m.cfg.SpreadPercent,
	}

	m.logger.DebugContext(ctx, "quoting",
		slog.String("symbol", view.Symbol()),
		slog.String("exchange", q.Exchange),
		slog.Float64("mid", mid),
		slog.Float64("buy_price", sig.BuyPrice),
		slog.Float64("sell_price", sig.SellPrice),
	)
	return sig, nil
}

var _ Strategy = (*MarketMaker)(nil)
