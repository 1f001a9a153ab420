package strategy

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

const (
	// spreadMultiplier bounds the spread a scalp will enter on:
	// spread% < ProfitTarget*spreadMultiplier.
	spreadMultiplier = 2.0
	// microArbitrageThreshold is the minimum cross-exchange gap, in percent,
	// for the fallback micro-arbitrage.
	microArbitrageThreshold = 0.05
	minValidPrice           = 0.0001
)

// ScalpingConfig holds scalping parameters.
type ScalpingConfig struct {
	ProfitTarget   float64 // percent
	MinTradeAmount float64 // quote currency
	// LoopMode closes each scalp at market instead of resting a target.
	LoopMode bool
}

// Scalping looks for tight spreads on a single exchange first and falls
// back to low-threshold cross-exchange arbitrage.
type Scalping struct {
	toggle
	cfg    ScalpingConfig
	logger *slog.Logger
}

// NewScalping creates an enabled Scalping strategy.
func NewScalping(cfg ScalpingConfig, logger *slog.Logger) *Scalping {
	return &Scalping{
		cfg:    cfg,
		logger: logger.With(slog.String("strategy", "Scalping")),
	}
}

// Name returns the strategy identifier.
func (s *Scalping) Name() string { return "Scalping" }

func (s *Scalping) Analyze(ctx context.Context, view domain.MarketView) (domain.Signal, error) {
	if !s.Enabled() {
		return nil, nil
	}
	quotes := view.ValidQuotes()
	if len(quotes) == 0 {
		return nil, nil
	}

	if sig, ok := s.tightSpread(ctx, view.Symbol(), quotes); ok {
		return sig, nil
	}
	if len(quotes) < 2 {
		return nil, nil
	}
	if sig, ok := s.microArbitrage(ctx, view.Symbol(), quotes); ok {
		return sig, nil
	}
	return nil, nil
}

// tightSpread returns a scalp on the first exchange whose spread is positive
// and under the entry bound.
func (s *Scalping) tightSpread(ctx context.Context, symbol string, quotes []domain.Quote) (domain.ScalpSignal, bool) {
	limit := s.cfg.ProfitTarget * spreadMultiplier
	for _, q := range quotes {
		spread := q.Ticker.SpreadPercent()
		if spread <= 0 || spread >= limit {
			continue
		}
		mid := q.Ticker.Mid()
		if mid <= 0 || mid < minValidPrice {
			continue
		}

		ask := q.Ticker.Ask
		sig := domain.ScalpSignal{
			SignalMeta: newMeta(s.Name(), symbol,
				s.cfg.MinTradeAmount/mid,
				s.cfg.MinTradeAmount*s.cfg.ProfitTarget/100,
			),
			Exchange:      q.Exchange,
			MidPrice:      mid,
			BuyPrice:      ask,
			SpreadPercent: spread,
		}
		if !s.cfg.LoopMode {
			sig.TargetPrice = ask * (1 + s.cfg.ProfitTarget/100)
		}

		s.logger.InfoContext(ctx, "scalp opportunity",
			slog.String("symbol", symbol),
			slog.String("exchange", q.Exchange),
			slog.Float64("spread_percent", spread),
			slog.Float64("buy_price", ask),
			slog.Float64("target_price", sig.TargetPrice),
		)
		return sig, true
	}
	return domain.ScalpSignal{}, false
}

func (s *Scalping) microArbitrage(ctx context.Context, symbol string, quotes []domain.Quote) (domain.ArbitrageSignal, bool) {
	pick := pickCrossVenue(quotes)
	buyAsk := pick.buy.Ticker.Ask
	if buyAsk <= minValidPrice || pick.sameVenue() {
		return domain.ArbitrageSignal{}, false
	}
	if pick.profitPercent <= microArbitrageThreshold {
		return domain.ArbitrageSignal{}, false
	}

	sig := domain.ArbitrageSignal{
		SignalMeta: newMeta(s.Name(), symbol,
			s.cfg.MinTradeAmount/buyAsk,
			s.cfg.MinTradeAmount*pick.profitPercent/100,
		),
		Micro:         true,
		BuyExchange:   pick.buy.Exchange,
		SellExchange:  pick.sell.Exchange,
		BuyPrice:      buyAsk,
		SellPrice:     pick.sell.Ticker.Bid,
		ProfitPercent: pick.profitPercent,
	}

	s.logger.InfoContext(ctx, "micro-arbitrage opportunity",
		slog.String("symbol", symbol),
		slog.String("buy_exchange", sig.BuyExchange),
		slog.String("sell_exchange", sig.SellExchange),
		slog.Float64("profit_percent", sig.ProfitPercent),
	)
	return sig, true
}

var _ Strategy = (*Scalping)(nil)
