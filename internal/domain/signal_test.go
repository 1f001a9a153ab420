package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func meta(amount float64) SignalMeta {
	return SignalMeta{ID: "sig-1", Strategy: "test", Symbol: "BTC/USDT", Amount: amount, CreatedAt: time.Now()}
}

func TestArbitrageSignal(t *testing.T) {
	sig := ArbitrageSignal{
		SignalMeta:   meta(0.5),
		BuyExchange:  "binance",
		SellExchange: "kraken",
		BuyPrice:     100,
		SellPrice:    101,
	}
	assert.NoError(t, sig.Validate())
	assert.Equal(t, SignalArbitrage, sig.Kind())
	assert.InDelta(t, 50.0, sig.Notional(), 1e-9)

	sig.Micro = true
	assert.Equal(t, SignalMicroArbitrage, sig.Kind())

	t.Run("same exchange", func(t *testing.T) {
		bad := sig
		bad.SellExchange = "binance"
		assert.ErrorIs(t, bad.Validate(), ErrInvalidSignal)
	})

	t.Run("missing sell price", func(t *testing.T) {
		bad := sig
		bad.SellPrice = 0
		assert.ErrorIs(t, bad.Validate(), ErrInvalidSignal)
	})

	t.Run("zero amount", func(t *testing.T) {
		bad := sig
		bad.Amount = 0
		assert.ErrorIs(t, bad.Validate(), ErrInvalidSignal)
	})
}

func TestMarketMakeSignal_Validate(t *testing.T) {
	sig := MarketMakeSignal{SignalMeta: meta(1), Exchange: "binance", MidPrice: 101, BuyPrice: 100.5, SellPrice: 101.5}
	assert.NoError(t, sig.Validate())

	sig.BuyPrice = 102
	assert.ErrorIs(t, sig.Validate(), ErrInvalidSignal)
}

func TestScalpSignal_Validate(t *testing.T) {
	sig := ScalpSignal{SignalMeta: meta(0.1), Exchange: "kraken", BuyPrice: 100, TargetPrice: 100.15}
	assert.True(t, sig.HasTarget())
	assert.NoError(t, sig.Validate())

	loop := sig
	loop.TargetPrice = 0
	assert.False(t, loop.HasTarget())
	assert.NoError(t, loop.Validate())

	bad := sig
	bad.TargetPrice = 99
	assert.ErrorIs(t, bad.Validate(), ErrInvalidSignal)
}

func TestMarketView(t *testing.T) {
	quotes := []Quote{
		{Exchange: "a", Ticker: Ticker{Bid: 100, Ask: 101}},
		{Exchange: "b", Ticker: Ticker{Bid: 0, Ask: 104}},
		{Exchange: "c", Ticker: Ticker{Bid: 102, Ask: 103}},
	}
	view := NewMarketView("BTC/USDT", quotes, time.Now())

	quotes[0].Exchange = "mutated"
	got := view.Quotes()
	assert.Equal(t, "a", got[0].Exchange)

	valid := view.ValidQuotes()
	if assert.Len(t, valid, 2) {
		assert.Equal(t, "a", valid[0].Exchange)
		assert.Equal(t, "c", valid[1].Exchange)
	}
}

func TestSplitSymbol(t *testing.T) {
	base, quote, ok := SplitSymbol("ETH/USDC")
	assert.True(t, ok)
	assert.Equal(t, "ETH", base)
	assert.Equal(t, "USDC", quote)

	_, _, ok = SplitSymbol("ETHUSDC")
	assert.False(t, ok)
	_, _, ok = SplitSymbol("/USDC")
	assert.False(t, ok)
}
