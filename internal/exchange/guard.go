package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

// GuardConfig bounds every call made through a Guarded adapter.
type GuardConfig struct {
	// Timeout caps each call. Zero disables the cap.
	Timeout time.Duration
	// Limiter, when set, throttles calls to RatePerSecond per venue.
	Limiter       domain.RateLimiter
	RatePerSecond int
}

// Guarded decorates an adapter with a per-call timeout and an optional
// shared rate limit. A call that outlives its timeout returns an error
// wrapping domain.ErrTimeout even if the inner adapter ignores its context.
type Guarded struct {
	inner domain.ExchangeAdapter
	cfg   GuardConfig
}

// Guard wraps inner.
func Guard(inner domain.ExchangeAdapter, cfg GuardConfig) *Guarded {
	return &Guarded{inner: inner, cfg: cfg}
}

// Unwrap returns the decorated adapter.
func (g *Guarded) Unwrap() domain.ExchangeAdapter { return g.inner }

func (g *Guarded) Name() string { return g.inner.Name() }

func (g *Guarded) Ticker(ctx context.Context, symbol string) (domain.Ticker, error) {
	return guardCall(ctx, g, "ticker", func(ctx context.Context) (domain.Ticker, error) {
		return g.inner.Ticker(ctx, symbol)
	})
}

func (g *Guarded) OrderBook(ctx context.Context, symbol string, depth int) (domain.OrderBook, error) {
	return guardCall(ctx, g, "order_book", func(ctx context.Context) (domain.OrderBook, error) {
		return g.inner.OrderBook(ctx, symbol, depth)
	})
}

func (g *Guarded) Balance(ctx context.Context, currency string) (float64, error) {
	return guardCall(ctx, g, "balance", func(ctx context.Context) (float64, error) {
		return g.inner.Balance(ctx, currency)
	})
}

func (g *Guarded) CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if err := req.Validate(); err != nil {
		return domain.OrderResult{}, fmt.Errorf("exchange: %s create_order: %w", g.Name(), err)
	}
	return guardCall(ctx, g, "create_order", func(ctx context.Context) (domain.OrderResult, error) {
		return g.inner.CreateOrder(ctx, req)
	})
}

// Symbols forwards to the inner adapter when it implements
// domain.SymbolLister.
func (g *Guarded) Symbols(ctx context.Context, quote string) ([]string, error) {
	lister, ok := g.inner.(domain.SymbolLister)
	if !ok {
		return nil, fmt.Errorf("exchange: %s symbols: %w", g.Name(), domain.ErrUnsupported)
	}
	return guardCall(ctx, g, "symbols", func(ctx context.Context) ([]string, error) {
		return lister.Symbols(ctx, quote)
	})
}

// CancelOpenOrders forwards to the inner adapter when it implements
// domain.PositionCloser.
func (g *Guarded) CancelOpenOrders(ctx context.Context, symbol string) (int, error) {
	closer, ok := g.inner.(domain.PositionCloser)
	if !ok {
		return 0, fmt.Errorf("exchange: %s cancel_open_orders: %w", g.Name(), domain.ErrUnsupported)
	}
	return guardCall(ctx, g, "cancel_open_orders", func(ctx context.Context) (int, error) {
		return closer.CancelOpenOrders(ctx, symbol)
	})
}

// Balances forwards to the inner adapter when it implements
// domain.PositionCloser.
func (g *Guarded) Balances(ctx context.Context) (map[string]float64, error) {
	closer, ok := g.inner.(domain.PositionCloser)
	if !ok {
		return nil, fmt.Errorf("exchange: %s balances: %w", g.Name(), domain.ErrUnsupported)
	}
	return guardCall(ctx, g, "balances", func(ctx context.Context) (map[string]float64, error) {
		return closer.Balances(ctx)
	})
}

type callResult[T any] struct {
	val T
	err error
}

// guardCall applies the rate limit and timeout around fn. fn runs on its
// own goroutine so an adapter that never returns cannot stall the caller
// past the timeout; its late result is discarded.
func guardCall[T any](ctx context.Context, g *Guarded, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if g.cfg.Limiter != nil && g.cfg.RatePerSecond > 0 {
		if err := g.cfg.Limiter.Wait(ctx, "exchange:"+g.Name(), g.cfg.RatePerSecond, time.Second); err != nil {
			return zero, fmt.Errorf("exchange: %s %s: %w", g.Name(), op, err)
		}
	}
	if g.cfg.Timeout <= 0 {
		r := safeCall(ctx, g, op, fn)
		return r.val, r.err
	}

	cctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	done := make(chan callResult[T], 1)
	go func() {
		done <- safeCall(cctx, g, op, fn)
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-cctx.Done():
		if ctx.Err() != nil {
			return zero, fmt.Errorf("exchange: %s %s: %w", g.Name(), op, ctx.Err())
		}
		return zero, fmt.Errorf("%w: %s %s after %s", domain.ErrTimeout, g.Name(), op, g.cfg.Timeout)
	}
}

// safeCall runs fn, turning a panic inside the adapter into an error.
func safeCall[T any](ctx context.Context, g *Guarded, op string, fn func(context.Context) (T, error)) (r callResult[T]) {
	defer func() {
		if p := recover(); p != nil {
			r = callResult[T]{err: fmt.Errorf("exchange: %s %s: panic: %v", g.Name(), op, p)}
		}
	}()
	v, err := fn(ctx)
	return callResult[T]{val: v, err: err}
}

// Compile-time interface checks.
var (
	_ domain.ExchangeAdapter = (*Guarded)(nil)
	_ domain.SymbolLister    = (*Guarded)(nil)
	_ domain.PositionCloser  = (*Guarded)(nil)
)
