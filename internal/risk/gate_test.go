package risk

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

func newTestGate(maxLosses int, lossLimit float64) *Gate {
	return NewGate(Limits{MaxConsecutiveLosses: maxLosses, SessionLossLimit: lossLimit},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func outcome(profit float64) domain.TradeOutcome {
	return domain.TradeOutcome{Strategy: "test", Kind: domain.SignalArbitrage, Symbol: "BTC/USDT", Profit: profit}
}

func TestGate_Record(t *testing.T) {
	g := newTestGate(5, 500)

	st := g.Record(outcome(2))
	assert.Equal(t, 1, st.TotalTrades)
	assert.Equal(t, 1, st.WinningTrades)
	assert.Equal(t, 0, st.ConsecutiveLosses)

	g.Record(outcome(-1))
	st = g.Record(outcome(0))
	assert.Equal(t, 3, st.TotalTrades)
	assert.Equal(t, 2, st.LosingTrades)
	assert.Equal(t, 2, st.ConsecutiveLosses, "zero profit counts as a loss")
	assert.InDelta(t, 1.0, st.SessionPnL, 1e-12)

	st = g.Record(outcome(0.5))
	assert.Equal(t, 0, st.ConsecutiveLosses, "a win resets the streak")
	assert.InDelta(t, 50.0, st.WinRate(), 1e-9)
}

func TestGate_LossStreakScenario(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(5, 500)

	var halts int
	g.OnHalt(func(context.Context, error) { halts++ })

	// Five simulated losses of trade_amount*1% at trade_amount=100.
	for i := 0; i < 5; i++ {
		require.NoError(t, g.Check(ctx), "trade %d should be allowed", i+1)
		g.Record(outcome(-1))
	}
	assert.Equal(t, 5, g.Snapshot().ConsecutiveLosses)

	err := g.Check(ctx)
	assert.ErrorIs(t, err, domain.ErrLossStreak)
	called := false
	assert.ErrorIs(t, g.Guard(ctx, func() Settlement { called = true; return Settlement{} }), domain.ErrLossStreak)
	assert.False(t, called)
	assert.True(t, g.Halted())
	assert.Equal(t, 1, halts, "halt hook fires once")
}

func TestGate_SessionLossLimit(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(100, 10)

	g.Record(outcome(-10))
	assert.NoError(t, g.Check(ctx), "equal to the limit is still allowed")

	g.Record(outcome(-0.01))
	assert.ErrorIs(t, g.Check(ctx), domain.ErrDailyLossLimit)
}

func TestGate_Monotonic(t *testing.T) {
	ctx := context.Background()
	g := newTestGate(2, 1000)
	g.Record(outcome(-1))
	g.Record(outcome(-1))
	for i := 0; i < 10; i++ {
		assert.Error(t, g.Check(ctx))
	}

	// Only a win clears the streak.
	g.Record(outcome(3))
	assert.NoError(t, g.Check(ctx))
}

func TestGate_SequenceDeterminesState(t *testing.T) {
	seq := []float64{1, -2, -0.5, 3, 0, -1}
	a := newTestGate(10, 100)
	b := newTestGate(10, 100)
	for _, p := range seq {
		a.Record(outcome(p))
	}
	for _, p := range seq {
		b.Record(outcome(p))
	}
	assert.Equal(t, a.Snapshot(), b.Snapshot())

	before := a.Snapshot()
	after := a.Record(outcome(-4))
	assert.Equal(t, before.apply(outcome(-4)), after)
}

func TestGate_PenalizeSettlement(t *testing.T) {
	g := newTestGate(5, 100)
	require.NoError(t, g.Guard(context.Background(), func() Settlement { return Settlement{Penalize: true} }))
	st := g.Snapshot()
	assert.Equal(t, 1, st.ConsecutiveLosses)
	assert.Equal(t, 0, st.TotalTrades)
	assert.Equal(t, 0.0, st.SessionPnL)
}

func TestGate_Guard(t *testing.T) {
	ctx := context.Background()

	t.Run("records settlement", func(t *testing.T) {
		g := newTestGate(3, 100)
		o := outcome(-2)
		err := g.Guard(ctx, func() Settlement { return Settlement{Outcome: &o, Penalize: true} })
		require.NoError(t, err)
		st := g.Snapshot()
		assert.Equal(t, 1, st.TotalTrades)
		assert.Equal(t, 2, st.ConsecutiveLosses)
	})

	t.Run("skips fn when vetoed", func(t *testing.T) {
		g := newTestGate(1, 100)
		g.Record(outcome(-1))
		called := false
		err := g.Guard(ctx, func() Settlement { called = true; return Settlement{} })
		assert.ErrorIs(t, err, domain.ErrLossStreak)
		assert.False(t, called)
	})

	t.Run("panic in fn releases the lock", func(t *testing.T) {
		g := newTestGate(3, 100)
		assert.PanicsWithValue(t, "adapter bug", func() {
			_ = g.Guard(ctx, func() Settlement { panic("adapter bug") })
		})

		done := make(chan State, 1)
		go func() { done <- g.Snapshot() }()
		select {
		case st := <-done:
			assert.Zero(t, st.TotalTrades)
			assert.Zero(t, st.ConsecutiveLosses)
		case <-time.After(time.Second):
			t.Fatal("gate still locked after a panic in fn")
		}
		assert.NoError(t, g.Guard(ctx, func() Settlement { return Settlement{} }))
	})

	t.Run("concurrent callers cannot overshoot", func(t *testing.T) {
		g := newTestGate(3, 1000)
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				o := outcome(-1)
				_ = g.Guard(ctx, func() Settlement { return Settlement{Outcome: &o} })
			}()
		}
		wg.Wait()
		assert.Equal(t, 3, g.Snapshot().TotalTrades)
	})
}
