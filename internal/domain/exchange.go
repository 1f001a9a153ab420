package domain

import "context"

// ExchangeAdapter is the per-venue boundary. Implementations own transport,
// authentication and symbol translation; symbols crossing this interface are
// always canonical "BASE/QUOTE".
type ExchangeAdapter interface {
	Name() string
	Ticker(ctx context.Context, symbol string) (Ticker, error)
	OrderBook(ctx context.Context, symbol string, depth int) (OrderBook, error)
	Balance(ctx context.Context, currency string) (float64, error)
	// CreateOrder fails with ErrLimitOrderMissingPrice for a limit order
	// without a price.
	CreateOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
}

// SymbolLister is implemented by adapters that can enumerate tradable
// symbols for a quote currency.
type SymbolLister interface {
	Symbols(ctx context.Context, quote string) ([]string, error)
}

// PositionCloser is implemented by adapters that support flattening an
// account: cancelling resting orders and listing every non-zero balance.
type PositionCloser interface {
	CancelOpenOrders(ctx context.Context, symbol string) (int, error)
	Balances(ctx context.Context) (map[string]float64, error)
}
