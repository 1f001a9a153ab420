package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

func TestScalping_TightSpread(t *testing.T) {
	ctx := context.Background()
	sc := NewScalping(ScalpingConfig{ProfitTarget: 0.15, MinTradeAmount: 10}, discardLogger())

	// Spread 0.1% < 0.3% bound.
	sig, err := sc.Analyze(ctx, viewOf(quote("A", 100, 100.5), quote("B", 1000, 1001)))
	require.NoError(t, err)
	s, ok := sig.(domain.ScalpSignal)
	require.True(t, ok)
	assert.Equal(t, "B", s.Exchange)
	assert.Equal(t, 1001.0, s.BuyPrice)
	assert.InDelta(t, 1001*1.0015, s.TargetPrice, 1e-9)
	assert.InDelta(t, 10/1000.5, s.Amount, 1e-12)
	assert.InDelta(t, 0.015, s.ExpectedProfit, 1e-12)
	assert.True(t, s.HasTarget())
}

func TestScalping_LoopModeHasNoTarget(t *testing.T) {
	sc := NewScalping(ScalpingConfig{ProfitTarget: 0.15, MinTradeAmount: 10, LoopMode: true}, discardLogger())
	sig, err := sc.Analyze(context.Background(), viewOf(quote("A", 1000, 1001)))
	require.NoError(t, err)
	s := sig.(domain.ScalpSignal)
	assert.False(t, s.HasTarget())
}

func TestScalping_MicroArbitrage(t *testing.T) {
	ctx := context.Background()
	sc := NewScalping(ScalpingConfig{ProfitTarget: 0.15, MinTradeAmount: 10}, discardLogger())

	// Both spreads are 1%, too wide for phase one. Cross gap is 0.1%.
	sig, err := sc.Analyze(ctx, viewOf(quote("A", 99, 100), quote("B", 100.1, 101.1)))
	require.NoError(t, err)
	a, ok := sig.(domain.ArbitrageSignal)
	require.True(t, ok)
	assert.Equal(t, domain.SignalMicroArbitrage, a.Kind())
	assert.Equal(t, "A", a.BuyExchange)
	assert.Equal(t, "B", a.SellExchange)
	assert.InDelta(t, 0.1, a.ProfitPercent, 1e-9)
	assert.InDelta(t, 0.1, a.Amount, 1e-12)
	assert.InDelta(t, 0.01, a.ExpectedProfit, 1e-9)
}

func TestScalping_NothingQualifies(t *testing.T) {
	ctx := context.Background()
	sc := NewScalping(ScalpingConfig{ProfitTarget: 0.15, MinTradeAmount: 10}, discardLogger())

	t.Run("wide spread single exchange", func(t *testing.T) {
		sig, err := sc.Analyze(ctx, viewOf(quote("A", 99, 100)))
		require.NoError(t, err)
		assert.Nil(t, sig)
	})

	t.Run("gap below micro threshold", func(t *testing.T) {
		sig, err := sc.Analyze(ctx, viewOf(quote("A", 99, 100), quote("B", 100.04, 101)))
		require.NoError(t, err)
		assert.Nil(t, sig)
	})

	t.Run("degenerate prices", func(t *testing.T) {
		sig, err := sc.Analyze(ctx, viewOf(quote("A", 0.00001, 0.0000100001)))
		require.NoError(t, err)
		assert.Nil(t, sig)
	})
}
