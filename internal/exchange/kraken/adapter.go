package kraken

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

// Name is the venue name used in views, signals and config.
const Name = "kraken"

// Adapter implements the domain exchange interfaces on top of Client.
type Adapter struct {
	client *Client
	logger *slog.Logger
}

// NewAdapter wraps client.
func NewAdapter(client *Client, logger *slog.Logger) *Adapter {
	return &Adapter{
		client: client,
		logger: logger.With(slog.String("component", "kraken")),
	}
}

func (a *Adapter) Name() string { return Name }

func (a *Adapter) Ticker(ctx context.Context, symbol string) (domain.Ticker, error) {
	pair, err := pairFor(symbol)
	if err != nil {
		return domain.Ticker{}, err
	}
	info, err := a.client.Ticker(ctx, pair)
	if err != nil {
		return domain.Ticker{}, err
	}
	bid, err := firstDecimal(info.Bid)
	if err != nil {
		return domain.Ticker{}, err
	}
	ask, err := firstDecimal(info.Ask)
	if err != nil {
		return domain.Ticker{}, err
	}
	last, err := firstDecimal(info.Last)
	if err != nil {
		return domain.Ticker{}, err
	}
	return domain.Ticker{
		Exchange:  Name,
		Symbol:    symbol,
		Bid:       bid,
		Ask:       ask,
		Last:      last,
		Timestamp: time.Now().UTC(),
	}, nil
}

func (a *Adapter) OrderBook(ctx context.Context, symbol string, depth int) (domain.OrderBook, error) {
	pair, err := pairFor(symbol)
	if err != nil {
		return domain.OrderBook{}, err
	}
	info, err := a.client.Depth(ctx, pair, depth)
	if err != nil {
		return domain.OrderBook{}, err
	}
	bids, err := levels(info.Bids, depth)
	if err != nil {
		return domain.OrderBook{}, err
	}
	asks, err := levels(info.Asks, depth)
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

// Balances returns every non-zero spot balance keyed by canonical asset.
func (a *Adapter) Balances(ctx context.Context) (map[string]float64, error) {
	raw, err := a.client.Balance(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(raw))
	for asset, v := range raw {
		if strings.Contains(asset, ".") {
			continue
		}
		amt, err := parseDecimal(v)
		if err != nil {
			return nil, err
		}
		if amt == 0 {
			continue
		}
		out[canonicalAsset(asset)] += amt
	}
	return out, nil
}

func (a *Adapter) CreateOrder(ctx context.Context, req domain.OrderRequest) (domain.OrderResult, error) {
	if err := req.Validate(); err != nil {
		return domain.OrderResult{}, err
	}
	pair, err := pairFor(req.Symbol)
	if err != nil {
		return domain.OrderResult{}, err
	}

	params := url.Values{
		"pair":      {pair},
		"type":      {string(req.Side)},
		"ordertype": {string(req.Type)},
		"volume":    {decimal.NewFromFloat(req.Amount).String()},
	}
	if req.Type == domain.OrderTypeLimit {
		params.Set("price", decimal.NewFromFloat(req.Price).String())
	}
	if req.ClientOrderID != "" {
		params.Set("cl_ord_id", req.ClientOrderID)
	}

	txids, err := a.client.AddOrder(ctx, params)
	if err != nil {
		return domain.OrderResult{}, err
	}
	txid := txids[0]

	info, err := a.client.QueryOrder(ctx, txid)
	if err != nil {
		// The order exists; only its fill state is unknown.
		a.logger.WarnContext(ctx, "order placed but status query failed",
			slog.String("txid", txid),
			slog.String("symbol", req.Symbol),
			slog.String("error", err.Error()),
		)
		return domain.OrderResult{ID: txid, Status: domain.OrderStatusOpen}, nil
	}
	return orderResult(txid, info)
}

// Symbols lists online pairs quoted in quote, in canonical form.
func (a *Adapter) Symbols(ctx context.Context, quote string) ([]string, error) {
	pairs, err := a.client.AssetPairs(ctx)
	if err != nil {
		return nil, err
	}
	quote = strings.ToUpper(quote)
	var out []string
	for _, p := range pairs {
		if p.Status != "" && p.Status != "online" {
			continue
		}
		sym, ok := symbolFromWSName(p.WSName)
		if !ok {
			continue
		}
		if _, q, _ := domain.SplitSymbol(sym); q == quote {
			out = append(out, sym)
		}
	}
	return out, nil
}

// CancelOpenOrders cancels resting orders for symbol, or every open order
// when symbol is empty.
func (a *Adapter) CancelOpenOrders(ctx context.Context, symbol string) (int, error) {
	if symbol == "" {
		return a.client.CancelAll(ctx)
	}
	pair, err := pairFor(symbol)
	if err != nil {
		return 0, err
	}
	open, err := a.client.OpenOrders(ctx)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for txid, o := range open {
		if o.Descr.Pair != pair {
			continue
		}
		n, err := a.client.CancelOrder(ctx, txid)
		if err != nil {
			return cancelled, err
		}
		cancelled += n
	}
	return cancelled, nil
}

func levels(raw [][]json.RawMessage, depth int) ([]domain.PriceLevel, error) {
	if depth > 0 && len(raw) > depth {
		raw = raw[:depth]
	}
	out := make([]domain.PriceLevel, 0, len(raw))
	for _, l := range raw {
		price, size, err := levelValues(l)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.PriceLevel{Price: price, Size: size})
	}
	return out, nil
}

func orderResult(txid string, info OrderInfo) (domain.OrderResult, error) {
	filled, err := parseDecimal(info.VolExec)
	if err != nil {
		return domain.OrderResult{}, err
	}
	avg, err := parseDecimal(info.Price)
	if err != nil {
		return domain.OrderResult{}, err
	}
	return domain.OrderResult{
		ID:           txid,
		Status:       mapStatus(info.Status, filled),
		FilledAmount: filled,
		AveragePrice: avg,
	}, nil
}

// mapStatus normalises a Kraken order status. A canceled or expired order
// that filled partially is reported as partially filled so the filled
// volume is not mistaken for nothing.
func mapStatus(status string, filled float64) domain.OrderStatus {
	switch status {
	case "closed":
		return domain.OrderStatusFilled
	case "pending", "open":
		if filled > 0 {
			return domain.OrderStatusPartiallyFilled
		}
		return domain.OrderStatusOpen
	case "canceled", "expired":
		if filled > 0 {
			return domain.OrderStatusPartiallyFilled
		}
		return domain.OrderStatusCanceled
	default:
		return domain.OrderStatusRejected
	}
}

// Compile-time interface checks.
var (
	_ domain.ExchangeAdapter = (*Adapter)(nil)
	_ domain.SymbolLister    = (*Adapter)(nil)
	_ domain.PositionCloser  = (*Adapter)(nil)
)
