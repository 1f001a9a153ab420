// Package binance implements domain.ExchangeAdapter on the Binance spot API
// via github.com/adshao/go-binance/v2.
package binance

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

// Name is the venue name used in views, signals and config.
const Name = "binance"

// Config holds the adapter's credentials.
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
}

// symbolInfo is the subset of exchange info needed to place orders.
type symbolInfo struct {
	canonical string
	trading   bool
	stepSize  decimal.Decimal
	tickSize  decimal.Decimal
}

// Adapter implements the domain exchange interfaces for Binance spot.
type Adapter struct {
	client *gobinance.Client
	logger *slog.Logger

	mu      sync.Mutex
	symbols map[string]symbolInfo // keyed by Binance symbol, lazily loaded
}

// NewAdapter builds a spot client. Testnet switches the library's global
// endpoint selection, so it must be decided before any client is created.
func NewAdapter(cfg Config, logger *slog.Logger) *Adapter {
	if cfg.Testnet {
		gobinance.UseTestnet = true
	}
	return &Adapter{
		client: gobinance.NewClient(cfg.APIKey, cfg.APISecret),
		logger: logger.With(slog.String("component", "binance")),
	}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Ticker(ctx context.Context, symbol string) (domain.Ticker, error) {
	sym, err := symbolFor(symbol)
	if err != nil {
		return domain.Ticker{}, err
	}
	books, err := a.client.NewListBookTickersService().Symbol(sym).Do(ctx)
	if err != nil {
		return domain.Ticker{}, fmt.Errorf("binance: book ticker %s: %w", sym, mapError(err))
	}
	if len(books) == 0 {
		return domain.Ticker{}, fmt.Errorf("binance: book ticker %s: %w", sym, domain.ErrNotFound)
	}
	bid, err := parseDecimal(books[0].BidPrice)
	if err != nil {
		return domain.Ticker{}, err
	}
	ask, err := parseDecimal(books[0].AskPrice)
	if err != nil {
		return domain.Ticker{}, err
	}

	t := domain.Ticker{
		Exchange:  Name,
		Symbol:    symbol,
		Bid:       bid,
		Ask:       ask,
		Timestamp: time.Now().UTC(),
	}

	// Last price is informational; a failure here does not void the quote.
	prices, err := a.client.NewListPricesService().Symbol(sym).Do(ctx)
	if err != nil {
		a.logger.DebugContext(ctx, "last price unavailable",
			slog.String("symbol", symbol),
			slog.String("error", err.Error()),
		)
	} else if len(prices) > 0 {
		if last, perr := parseDecimal(prices[0].Price); perr == nil {
			t.Last = last
		}
	}
	return t, nil
}

func (a *Adapter) OrderBook(ctx context.Context, symbol string, depth int) (domain.OrderBook, error) {
	sym, err := symbolFor(symbol)
	if err != nil {
		return domain.OrderBook{}, err
	}
	svc := a.client.NewDepthService().Symbol(sym)
	if depth > 0 {
		svc = svc.Limit(depthLimit(depth))
	}
	res, err := svc.Do(ctx)
	if err != nil {
		return domain.OrderBook{}, fmt.Errorf("binance: depth %s: %w", sym, mapError(err))
	}
	bids, err := levels(len(res.Bids), depth, func(i int) (string, string) {
		return res.Bids[i].Price, res.Bids[i].Quantity
	})
	if err != nil {
		return domain.OrderBook{}, err
	}
	asks, err := levels(len(res.Asks), depth, func(i int) (string, string) {
		return res.Asks[i].Price, res.Asks[i].Quantity
	})
	if err != nil {
		return domain.OrderBook{}, err
	}
	return domain.OrderBook{
		Exchange:  Name,
		Symbol:    symbol,
		Bids:      bids,
		Asks:      asks,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (a *Adapter) Balance(ctx context.Context, currency string) (float64, error) {
	all, err := a.Balances(ctx)
	if err != nil {
		return 0, err
	}
	return all[strings.ToUpper(currency)], nil
}

// Balances returns every non-zero free balance keyed by asset.
func (a *Adapter) Balances(ctx context.Context) (map[string]float64, error) {
	acct, err := a.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance: account: %w", mapError(err))
	}
	out := make(map[string]float64, len(acct.Balances))
	for _, b := range acct.Balances {
		free, err := parseDecimal(b.Free)
		if err != nil {
			return nil, err
		}
		if free > 0 {
			out[b.Asset] = free
		}
	}
	return out, nil
}

func (a *Adapter) CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if err := req.Validate(); err != nil {
		return domain.OrderResult{}, err
	}
	sym, err := symbolFor(req.Symbol)
	if err != nil {
		return domain.OrderResult{}, err
	}

	info := a.symbolInfo(ctx, sym)
	qty := quantize(req.Amount, info.stepSize)
	if d, _ := decimal.NewFromString(qty); !d.IsPositive() {
		return domain.OrderResult{}, fmt.Errorf("%w: amount %g below lot size for %s", domain.ErrInvalidOrder, req.Amount, sym)
	}

	svc := a.client.NewCreateOrderService().
		Symbol(sym).
		Side(sideType(req.Side)).
		Type(orderType(req.Type)).
		Quantity(qty)
	if req.Type == domain.OrderTypeLimit {
		svc = svc.TimeInForce(gobinance.TimeInForceTypeGTC).Price(quantize(req.Price, info.tickSize))
	}
	if req.ClientOrderID != "" {
		svc = svc.NewClientOrderID(req.ClientOrderID)
	}

	res, err := svc.Do(ctx)
	if err != nil {
		return domain.OrderResult{}, fmt.Errorf("binance: create order %s: %w", sym, mapError(err))
	}

	filled, err := parseDecimal(res.ExecutedQuantity)
	if err != nil {
		return domain.OrderResult{}, err
	}
	avg, err := averagePrice(res.ExecutedQuantity, res.CummulativeQuoteQuantity)
	if err != nil {
		return domain.OrderResult{}, err
	}
	return domain.OrderResult{
		ID:           strconv.FormatInt(res.OrderID, 10),
		Status:       mapStatus(res.Status),
		FilledAmount: filled,
		AveragePrice: avg,
	}, nil
}

// Symbols lists trading symbols quoted in quote, in canonical form.
func (a *Adapter) Symbols(ctx context.Context, quote string) ([]string, error) {
	infos, err := a.loadSymbols(ctx)
	if err != nil {
		return nil, err
	}
	suffix := "/" + strings.ToUpper(quote)
	var out []string
	for _, si := range infos {
		if si.trading && strings.HasSuffix(si.canonical, suffix) {
			out = append(out, si.canonical)
		}
	}
	return out, nil
}

// CancelOpenOrders cancels every resting order on symbol, or on every
// symbol when it is empty.
func (a *Adapter) CancelOpenOrders(ctx context.Context, symbol string) (int, error) {
	svc := a.client.NewListOpenOrdersService()
	if symbol != "" {
		sym, err := symbolFor(symbol)
		if err != nil {
			return 0, err
		}
		svc = svc.Symbol(sym)
	}
	orders, err := svc.Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("binance: open orders %q: %w", symbol, mapError(err))
	}
	cancelled := 0
	for _, o := range orders {
		if _, err := a.client.NewCancelOrderService().Symbol(o.Symbol).OrderID(o.OrderID).Do(ctx); err != nil {
			return cancelled, fmt.Errorf("binance: cancel order %s %d: %w", o.Symbol, o.OrderID, mapError(err))
		}
		cancelled++
	}
	return cancelled, nil
}

// symbolInfo returns cached filters for sym. When exchange info cannot be
// loaded the zero value is returned and orders go out unrounded.
func (a *Adapter) symbolInfo(ctx context.Context, sym string) symbolInfo {
	infos, err := a.loadSymbols(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "exchange info unavailable, sending unrounded order",
			slog.String("symbol", sym),
			slog.String("error", err.Error()),
		)
		return symbolInfo{}
	}
	return infos[sym]
}

func (a *Adapter) loadSymbols(ctx context.Context) (map[string]symbolInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.symbols != nil {
		return a.symbols, nil
	}

	info, err := a.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance: exchange info: %w", mapError(err))
	}
	out := make(map[string]symbolInfo, len(info.Symbols))
	for i := range info.Symbols {
		s := &info.Symbols[i]
		si := symbolInfo{
			canonical: s.BaseAsset + "/" + s.QuoteAsset,
			trading:   s.Status == "TRADING",
		}
		if f := s.LotSizeFilter(); f != nil {
			si.stepSize, _ = decimal.NewFromString(f.StepSize)
		}
		if f := s.PriceFilter(); f != nil {
			si.tickSize, _ = decimal.NewFromString(f.TickSize)
		}
		out[s.Symbol] = si
	}
	a.symbols = out
	return out, nil
}

// depthLimit rounds depth up to a limit the depth endpoint accepts.
func depthLimit(depth int) int {
	for _, l := range []int{5, 10, 20, 50, 100, 500, 1000, 5000} {
		if depth <= l {
			return l
		}
	}
	return 5000
}

// Compile-time interface checks.
var (
	_ domain.ExchangeAdapter = (*Adapter)(nil)
	_ domain.SymbolLister    = (*Adapter)(nil)
	_ domain.PositionCloser  = (*Adapter)(nil)
)
