package forecast

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPredictor(t *testing.T) {
	_, err := NewPredictor(nil)
	assert.Error(t, err)

	_, err = NewPredictor(map[string]float64{"binance": -1, "kraken": 10})
	assert.Error(t, err)

	p, err := NewPredictor(map[string]float64{"binance": 50, "kraken": 30})
	require.NoError(t, err)
	assert.Equal(t, 80.0, p.TotalCapital())
	assert.Equal(t, []string{"binance", "kraken"}, p.Venues())
}

func TestArbitrage(t *testing.T) {
	p, err := NewPredictor(map[string]float64{"binance": 50, "kraken": 30})
	require.NoError(t, err)

	t.Run("sized by smallest venue", func(t *testing.T) {
		e := p.Arbitrage(0.5, 4, 0.5, 0.125)
		require.True(t, e.Feasible)
		assert.Equal(t, 30.0, e.EffectiveCapital)
		assert.Equal(t, 0.25, e.NetPercent)
		assert.InDelta(t, 0.075, e.PerTrade, 1e-12)
		assert.InDelta(t, 0.15, e.Daily, 1e-12)
		assert.InDelta(t, 4.5, e.Monthly, 1e-9)
		assert.InDelta(t, 54.75, e.Yearly, 1e-9)
		assert.InDelta(t, 0.15/80*100, e.DailyROI, 1e-12)
	})

	t.Run("fees exceed spread", func(t *testing.T) {
		e := p.Arbitrage(0.2, 5, 0.8, 0.1)
		assert.False(t, e.Feasible)
		assert.NotEmpty(t, e.Reason)
	})

	t.Run("single funded venue", func(t *testing.T) {
		single, err := NewPredictor(map[string]float64{"binance": 100, "kraken": 0})
		require.NoError(t, err)
		e := single.Arbitrage(0.5, 5, 0.8, 0.1)
		assert.False(t, e.Feasible)
	})
}

func TestMarketMaking(t *testing.T) {
	p, err := NewPredictor(map[string]float64{"binance": 50, "kraken": 30})
	require.NoError(t, err)

	e := p.MarketMaking(0.5, 10, 0.5, 0.25)
	require.True(t, e.Feasible)
	assert.Equal(t, 80.0, e.EffectiveCapital)
	assert.InDelta(t, 80*0.2*0.25/100, e.PerTrade, 1e-12)
	assert.InDelta(t, e.PerTrade*10*0.5, e.Daily, 1e-12)

	assert.False(t, p.MarketMaking(0.1, 10, 0.7, 0.1).Feasible)
}

func TestScenarios(t *testing.T) {
	p, err := NewPredictor(map[string]float64{"binance": 50, "kraken": 30})
	require.NoError(t, err)
	params := Params{
		ArbSpreadPercent: 0.3, TradesPerDay: 4, SuccessRate: 0.8, FeePercent: 0.1,
		MMSpreadPercent: 0.5, FillsPerDay: 10, MMSuccessRate: 0.7,
	}

	sc := p.Scenarios(params)
	require.Len(t, sc, 3)
	assert.Equal(t, "conservative", sc[0].Name)
	assert.Equal(t, 2.0, sc[0].Arbitrage.TradesPerDay)
	assert.Equal(t, 4.0, sc[1].Arbitrage.TradesPerDay)
	assert.Equal(t, 6.0, sc[2].Arbitrage.TradesPerDay)
	assert.Equal(t, 15.0, sc[2].MarketMaking.TradesPerDay)
	assert.Less(t, sc[0].CombinedDaily(), sc[2].CombinedDaily())
}

func TestRender(t *testing.T) {
	p, err := NewPredictor(map[string]float64{"binance": 50, "kraken": 30})
	require.NoError(t, err)
	sc := p.Scenarios(Params{
		ArbSpreadPercent: 0.1, TradesPerDay: 4, SuccessRate: 0.8, FeePercent: 0.1,
		MMSpreadPercent: 0.5, FillsPerDay: 10, MMSuccessRate: 0.7,
	})

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, p, sc, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)))
	out := buf.String()
	assert.Contains(t, out, "PROFIT FORECAST")
	assert.Contains(t, out, "binance")
	assert.Contains(t, out, "Scenario: optimistic")
	assert.Contains(t, out, "not feasible")
	assert.Contains(t, out, "2026-03-01T00:00:00Z")
}
