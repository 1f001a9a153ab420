package executor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

func TestSimulator_Outcome(t *testing.T) {
	sig := domain.ArbitrageSignal{
		SignalMeta:  domain.SignalMeta{ID: "a", Symbol: "BTC/USDT", Amount: 1},
		BuyExchange: "binance", SellExchange: "kraken", BuyPrice: 100, SellPrice: 101,
	}

	t.Run("win without expected profit uses notional share", func(t *testing.T) {
		o := NewSimulatorFunc(func() float64 { return 0.59 }).Outcome(sig)
		assert.InDelta(t, 0.2, o.Profit, 1e-12)
		assert.True(t, o.Simulated)
		assert.Equal(t, domain.SignalArbitrage, o.Kind)
	})

	t.Run("boundary draw is a loss", func(t *testing.T) {
		o := NewSimulatorFunc(func() float64 { return 0.6 }).Outcome(sig)
		assert.Equal(t, -1.0, o.Profit)
	})

	t.Run("expected profit wins", func(t *testing.T) {
		s := sig
		s.ExpectedProfit = 0.75
		o := NewSimulatorFunc(func() float64 { return 0 }).Outcome(s)
		assert.Equal(t, 0.75, o.Profit)
	})
}

func TestSimulator_SeedIsReproducible(t *testing.T) {
	sig := domain.ScalpSignal{
		SignalMeta: domain.SignalMeta{ID: "s", Symbol: "BTC/USDT", Amount: 1},
		Exchange:   "binance", MidPrice: 10, BuyPrice: 10,
	}
	a, b := NewSimulator(42), NewSimulator(42)
	for i := 0; i < 50; i++ {
		assert.Equal(t, a.Outcome(sig).Profit, b.Outcome(sig).Profit)
	}
}

func TestSimulator_WinRateConverges(t *testing.T) {
	sig := domain.ScalpSignal{
		SignalMeta: domain.SignalMeta{ID: "s", Symbol: "BTC/USDT", Amount: 1},
		Exchange:   "binance", MidPrice: 10, BuyPrice: 10,
	}
	s := NewSimulator(7)
	wins := 0
	const n = 20000
	for i := 0; i < n; i++ {
		if s.Outcome(sig).Win() {
			wins++
		}
	}
	assert.InDelta(t, 0.6, float64(wins)/n, 0.02)
}
