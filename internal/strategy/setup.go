package strategy

import "log/slog"

// Options selects and parameterises the built-in strategies.
type Options struct {
	ScalpingEnabled    bool
	MarketMakerEnabled bool
	// Disabled strategies are registered but start disabled. Names that
	// were not registered are ignored and reported by Build.
	Disabled []string
	Arbitrage          ArbitrageConfig
	MarketMaker        MarketMakerConfig
	Scalping           ScalpingConfig
}

// Build registers the built-in strategies in evaluation order: Scalping when
// enabled, Arbitrage when at least two exchanges are configured, then
// MarketMaker when enabled. Names in opts.Disabled that matched nothing are
// logged.
func Build(opts Options, exchanges int, logger *slog.Logger) *Registry {
	reg := NewRegistry()
	if opts.ScalpingEnabled {
		reg.Register(NewScalping(opts.Scalping, logger))
	}
	if exchanges >= 2 {
		reg.Register(NewArbitrage(opts.Arbitrage, logger))
	}
	if opts.MarketMakerEnabled {
		reg.Register(NewMarketMaker(opts.MarketMaker, logger))
	}
	for _, name := range opts.Disabled {
		if err := reg.SetEnabled(name, false); err != nil {
			logger.Warn("cannot disable strategy", slog.String("error", err.Error()))
		}
	}
	return reg
}
