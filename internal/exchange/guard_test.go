package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/cexbot/internal/domain"
	"github.com/alanyoungcy/cexbot/internal/exchange/exchangetest"
)

// bareAdapter implements only domain.ExchangeAdapter.
type bareAdapter struct{}

func (bareAdapter) Name() string { return "bare" }
func (bareAdapter) Ticker(context.Context, string) (domain.Ticker, error) {
	return domain.Ticker{}, nil
}
func (bareAdapter) OrderBook(context.Context, string, int) (domain.OrderBook, error) {
	return domain.OrderBook{}, nil
}
func (bareAdapter) Balance(context.Context, string) (float64, error) { return 0, nil }
func (bareAdapter) CreateOrder(context.Context, domain.OrderRequest) (domain.OrderResult, error) {
	return domain.OrderResult{}, nil
}

type countingLimiter struct {
	keys []string
	err  error
}

func (l *countingLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return true, nil
}

func (l *countingLimiter) Wait(_ context.Context, key string, _ int, _ time.Duration) error {
	l.keys = append(l.keys, key)
	return l.err
}

func TestGuard_PassesThrough(t *testing.T) {
	m := exchangetest.NewAdapter("binance")
	want := domain.Ticker{Exchange: "binance", Symbol: "BTC/USDT", Bid: 100, Ask: 101}
	m.On("Ticker", mock.Anything, "BTC/USDT").Return(want, nil).Once()

	g := Guard(m, GuardConfig{Timeout: time.Second})
	got, err := g.Ticker(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "binance", g.Name())
	m.AssertExpectations(t)
}

func TestGuard_Timeout(t *testing.T) {
	m := exchangetest.NewAdapter("kraken")
	release := make(chan struct{})
	defer close(release)
	m.On("Balance", mock.Anything, "USDT").
		Run(func(mock.Arguments) { <-release }).
		Return(0.0, nil)

	g := Guard(m, GuardConfig{Timeout: 20 * time.Millisecond})
	start := time.Now()
	_, err := g.Balance(context.Background(), "USDT")
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGuard_ParentCancelIsNotTimeout(t *testing.T) {
	m := exchangetest.NewAdapter("kraken")
	release := make(chan struct{})
	defer close(release)
	m.On("Balance", mock.Anything, "USDT").
		Run(func(mock.Arguments) { <-release }).
		Return(0.0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := Guard(m, GuardConfig{Timeout: time.Second})
	_, err := g.Balance(ctx, "USDT")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrTimeout)
}

func TestGuard_AdapterPanicBecomesError(t *testing.T) {
	for name, timeout := range map[string]time.Duration{
		"with timeout":    time.Second,
		"without timeout": 0,
	} {
		t.Run(name, func(t *testing.T) {
			m := exchangetest.NewAdapter("binance")
			m.On("CreateOrder", mock.Anything, mock.Anything).
				Run(func(mock.Arguments) { panic("nil map") }).
				Return(domain.OrderResult{}, nil)

			g := Guard(m, GuardConfig{Timeout: timeout})
			var (
				res domain.OrderResult
				err error
			)
			require.NotPanics(t, func() {
				res, err = g.CreateOrder(context.Background(), domain.OrderRequest{
					Symbol: "BTC/USDT", Type: domain.OrderTypeMarket, Side: domain.OrderSideBuy, Amount: 1,
				})
			})
			require.Error(t, err)
			assert.Equal(t, "exchange: binance create_order: panic: nil map", err.Error())
			assert.Zero(t, res)
		})
	}
}

func TestGuard_CreateOrderValidates(t *testing.T) {
	m := exchangetest.NewAdapter("binance")
	g := Guard(m, GuardConfig{Timeout: time.Second})

	_, err := g.CreateOrder(context.Background(), domain.OrderRequest{
		Symbol: "BTC/USDT", Type: domain.OrderTypeLimit, Side: domain.OrderSideSell, Amount: 1,
	})
	assert.ErrorIs(t, err, domain.ErrLimitOrderMissingPrice)
	m.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestGuard_RateLimit(t *testing.T) {
	m := exchangetest.NewAdapter("binance")
	m.On("Balance", mock.Anything, "BTC").Return(1.5, nil)

	t.Run("waits per venue key", func(t *testing.T) {
		lim := &countingLimiter{}
		g := Guard(m, GuardConfig{Limiter: lim, RatePerSecond: 5})
		got, err := g.Balance(context.Background(), "BTC")
		require.NoError(t, err)
		assert.Equal(t, 1.5, got)
		assert.Equal(t, []string{"exchange:binance"}, lim.keys)
	})

	t.Run("limiter error stops the call", func(t *testing.T) {
		lim := &countingLimiter{err: errors.New("redis down")}
		g := Guard(m, GuardConfig{Limiter: lim, RatePerSecond: 5})
		_, err := g.Balance(context.Background(), "BTC")
		assert.Error(t, err)
	})
}

func TestGuard_OptionalCapabilities(t *testing.T) {
	t.Run("forwarded when implemented", func(t *testing.T) {
		m := exchangetest.NewAdapter("binance")
		m.On("Symbols", mock.Anything, "USDT").Return([]string{"BTC/USDT"}, nil)
		m.On("CancelOpenOrders", mock.Anything, "BTC/USDT").Return(2, nil)
		m.On("Balances", mock.Anything).Return(map[string]float64{"BTC": 1}, nil)

		g := Guard(m, GuardConfig{})
		syms, err := g.Symbols(context.Background(), "USDT")
		require.NoError(t, err)
		assert.Equal(t, []string{"BTC/USDT"}, syms)

		n, err := g.CancelOpenOrders(context.Background(), "BTC/USDT")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		bals, err := g.Balances(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1.0, bals["BTC"])
	})

	t.Run("unsupported otherwise", func(t *testing.T) {
		g := Guard(bareAdapter{}, GuardConfig{})
		_, err := g.Symbols(context.Background(), "USDT")
		assert.ErrorIs(t, err, domain.ErrUnsupported)
		_, err = g.CancelOpenOrders(context.Background(), "BTC/USDT")
		assert.ErrorIs(t, err, domain.ErrUnsupported)
		_, err = g.Balances(context.Background())
		assert.ErrorIs(t, err, domain.ErrUnsupported)
	})
}
