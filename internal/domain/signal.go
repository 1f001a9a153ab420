package domain

import (
	"fmt"
	"time"
)

// SignalKind identifies the variant of a Signal.
type SignalKind string

const (
	SignalArbitrage      SignalKind = "arbitrage"
	SignalMicroArbitrage SignalKind = "micro_arbitrage"
	SignalMarketMake     SignalKind = "market_make"
	SignalScalp          SignalKind = "scalp"
)

// SignalMeta is carried by every Signal variant.
type SignalMeta struct {
	ID             string // UUID
	Strategy       string
	Symbol         string
	Amount         float64 // base currency
	ExpectedProfit float64 // quote currency, 0 when the strategy has no estimate
	CreatedAt      time.Time
}

// Signal is the immutable value a strategy hands to the executor. The
// concrete type is one of ArbitrageSignal, MarketMakeSignal or ScalpSignal;
// the executor switches on it.
type Signal interface {
	Kind() SignalKind
	Meta() SignalMeta
	// Notional is the trade size in quote currency at the entry price.
	Notional() float64
	Validate() error
}

// ArbitrageSignal buys on one exchange and sells on another. Micro marks the
// low-threshold variant emitted by the scalping strategy.
type ArbitrageSignal struct {
	SignalMeta
	Micro         bool
	BuyExchange   string
	SellExchange  string
	BuyPrice      float64
	SellPrice     float64
	ProfitPercent float64
}

func (s ArbitrageSignal) Kind() SignalKind {
	if s.Micro {
		return SignalMicroArbitrage
	}
	return SignalArbitrage
}

func (s ArbitrageSignal) Meta() SignalMeta  { return s.SignalMeta }
func (s ArbitrageSignal) Notional() float64 { return s.Amount * s.BuyPrice }

func (s ArbitrageSignal) Validate() error {
	if err := validateMeta(s.SignalMeta); err != nil {
		return err
	}
	if s.BuyPrice <= 0 || s.SellPrice <= 0 {
		return fmt.Errorf("%w: %s needs buy and sell prices", ErrInvalidSignal, s.Kind())
	}
	if s.BuyExchange == "" || s.SellExchange == "" {
		return fmt.Errorf("%w: %s needs both exchanges", ErrInvalidSignal, s.Kind())
	}
	if s.BuyExchange == s.SellExchange {
		return fmt.Errorf("%w: %s legs on the same exchange %s", ErrInvalidSignal, s.Kind(), s.BuyExchange)
	}
	return nil
}

// MarketMakeSignal quotes both sides around the mid on a single exchange.
type MarketMakeSignal struct {
	SignalMeta
	Exchange      string
	MidPrice      float64
	BuyPrice      float64
	SellPrice     float64
	SpreadPercent float64
}

func (s MarketMakeSignal) Kind() SignalKind  { return SignalMarketMake }
func (s MarketMakeSignal) Meta() SignalMeta  { return s.SignalMeta }
func (s MarketMakeSignal) Notional() float64 { return s.Amount * s.MidPrice }

func (s MarketMakeSignal) Validate() error {
	if err := validateMeta(s.SignalMeta); err != nil {
		return err
	}
	if s.Exchange == "" {
		return fmt.Errorf("%w: market_make needs an exchange", ErrInvalidSignal)
	}
	if s.BuyPrice <= 0 || s.SellPrice <= 0 || s.BuyPrice >= s.SellPrice {
		return fmt.Errorf("%w: market_make prices buy=%g sell=%g", ErrInvalidSignal, s.BuyPrice, s.SellPrice)
	}
	return nil
}

// ScalpSignal is a one-exchange round trip. A zero TargetPrice means the
// position is closed immediately at market.
type ScalpSignal struct {
	SignalMeta
	Exchange      string
	MidPrice      float64
	BuyPrice      float64
	TargetPrice   float64
	SpreadPercent float64
}

func (s ScalpSignal) Kind() SignalKind { return SignalScalp }
func (s ScalpSignal) Meta() SignalMeta { return s.SignalMeta }

// Notional uses the mid the position was sized from, falling back to the
// entry price.
func (s ScalpSignal) Notional() float64 {
	if s.MidPrice > 0 {
		return s.Amount * s.MidPrice
	}
	return s.Amount * s.BuyPrice
}

// HasTarget reports whether the exit is a resting limit order.
func (s ScalpSignal) HasTarget() bool { return s.TargetPrice > 0 }

func (s ScalpSignal) Validate() error {
	if err := validateMeta(s.SignalMeta); err != nil {
		return err
	}
	if s.Exchange == "" {
		return fmt.Errorf("%w: scalp needs an exchange", ErrInvalidSignal)
	}
	if s.BuyPrice <= 0 {
		return fmt.Errorf("%w: scalp buy price %g", ErrInvalidSignal, s.BuyPrice)
	}
	if s.HasTarget() && s.TargetPrice <= s.BuyPrice {
		return fmt.Errorf("%w: scalp target %g not above buy %g", ErrInvalidSignal, s.TargetPrice, s.BuyPrice)
	}
	return nil
}

func validateMeta(m SignalMeta) error {
	if m.Symbol == "" {
		return fmt.Errorf("%w: missing symbol", ErrInvalidSignal)
	}
	if m.Amount <= 0 {
		return fmt.Errorf("%w: amount must be > 0, got %g", ErrInvalidSignal, m.Amount)
	}
	return nil
}

// Compile-time interface checks.
var (
	_ Signal = ArbitrageSignal{}
	_ Signal = MarketMakeSignal{}
	_ Signal = ScalpSignal{}
)
