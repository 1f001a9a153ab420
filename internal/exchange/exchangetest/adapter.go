// Package exchangetest provides a testify mock of the exchange adapter
// interfaces for use in other packages' tests.
package exchangetest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

// Adapter is a mock domain.ExchangeAdapter that also implements
// domain.SymbolLister and domain.PositionCloser.
type Adapter struct {
	mock.Mock
	name string
}

// NewAdapter returns a mock reporting the given venue name.
func NewAdapter(name string) *Adapter {
	return &Adapter{name: name}
}

func (m *Adapter) Name() string { return m.name }

func (m *Adapter) Ticker(ctx context.Context, symbol string) (domain.Ticker, error) {
	args := m.Called(ctx, symbol)
	return args.Get(0).(domain.Ticker), args.Error(1)
}

func (m *Adapter) OrderBook(ctx context.Context, symbol string, depth int) (domain.OrderBook, error) {
	args := m.Called(ctx, symbol, depth)
	return args.Get(0).(domain.OrderBook), args.Error(1)
}

func (m *Adapter) Balance(ctx context.Context, currency string) (float64, error) {
	args := m.Called(ctx, currency)
	return args.Get(0).(float64), args.Error(1)
}

func (m *Adapter) CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.OrderResult), args.Error(1)
}

func (m *Adapter) Symbols(ctx context.Context, quote string) ([]string, error) {
	args := m.Called(ctx, quote)
	var out []string
	if v := args.Get(0); v != nil {
		out = v.([]string)
	}
	return out, args.Error(1)
}

func (m *Adapter) CancelOpenOrders(ctx context.Context, symbol string) (int, error) {
	args := m.Called(ctx, symbol)
	return args.Int(0), args.Error(1)
}

func (m *Adapter) Balances(ctx context.Context) (map[string]float64, error) {
	args := m.Called(ctx)
	var out map[string]float64
	if v := args.Get(0); v != nil {
		out = v.(map[string]float64)
	}
	return out, args.Error(1)
}

// Side matches an OrderRequest by side for use with mock.MatchedBy.
func Side(side domain.OrderSide) any {
	return mock.MatchedBy(func(req domain.OrderRequest) bool { return req.Side == side })
}

var (
	_ domain.ExchangeAdapter = (*Adapter)(nil)
	_ domain.SymbolLister    = (*Adapter)(nil)
	_ domain.PositionCloser  = (*Adapter)(nil)
)
