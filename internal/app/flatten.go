package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/cexbot/internal/domain"
	"github.com/alanyoungcy/cexbot/internal/notify"
)

type flattenSummary struct {
	Cancelled int
	Sold      int
	Skipped   int
}

// FlattenMode cancels every resting order and market-sells every non-quote
// balance worth at least the scalping minimum, on all venues concurrently.
// One venue failing does not stop the others.
func (a *App) FlattenMode(ctx context.Context, deps *Dependencies) error {
	quote := a.flattenQuote()
	dust := a.cfg.Scalping.MinTrade
	venues := deps.Venues.All()
	a.logger.InfoContext(ctx, "starting flatten mode",
		slog.String("quote", quote),
		slog.Float64("dust", dust),
		slog.Any("venues", deps.Venues.Names()),
	)

	errs := make([]error, len(venues))
	var g errgroup.Group
	for i, v := range venues {
		g.Go(func() error {
			sum, err := flattenVenue(ctx, v, quote, dust, a.logger)
			errs[i] = err
			attrs := []any{
				slog.String("exchange", v.Name()),
				slog.Int("cancelled", sum.Cancelled),
				slog.Int("sold", sum.Sold),
				slog.Int("skipped", sum.Skipped),
			}
			if err != nil {
				a.logger.ErrorContext(ctx, "flatten failed", append(attrs, slog.String("error", err.Error()))...)
			} else {
				a.logger.InfoContext(ctx, "flatten complete", attrs...)
			}
			return nil
		})
	}
	_ = g.Wait()

	err := errors.Join(errs...)
	if err != nil && deps.Notifier != nil {
		if nerr := deps.Notifier.Notify(ctx, notify.EventError, "Flatten incomplete", err.Error()); nerr != nil {
			a.logger.WarnContext(ctx, "notification failed", slog.String("error", nerr.Error()))
		}
	}
	return err
}

// flattenQuote is the currency positions are sold into.
func (a *App) flattenQuote() string {
	if a.cfg.Trading.MultiPair {
		return strings.ToUpper(a.cfg.Trading.QuoteCurrency)
	}
	_, quote, _ := domain.SplitSymbol(a.cfg.Trading.Pair)
	return strings.ToUpper(quote)
}

func flattenVenue(ctx context.Context, venue domain.ExchangeAdapter, quote string, dust float64, logger *slog.Logger) (flattenSummary, error) {
	var sum flattenSummary
	name := venue.Name()

	closer, ok := venue.(domain.PositionCloser)
	if !ok {
		return sum, fmt.Errorf("%s: %w", name, domain.ErrUnsupported)
	}

	n, err := closer.CancelOpenOrders(ctx, "")
	if err != nil {
		return sum, fmt.Errorf("%s: cancel open orders: %w", name, err)
	}
	sum.Cancelled = n

	balances, err := closer.Balances(ctx)
	if err != nil {
		return sum, fmt.Errorf("%s: balances: %w", name, err)
	}

	assets := make([]string, 0, len(balances))
	for asset := range balances {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	var errs []error
	for _, asset := range assets {
		amount := balances[asset]
		if strings.EqualFold(asset, quote) || amount <= 0 {
			continue
		}
		symbol := strings.ToUpper(asset) + "/" + quote

		t, err := venue.Ticker(ctx, symbol)
		if err != nil || !t.Valid() {
			logger.DebugContext(ctx, "no market to flatten into",
				slog.String("exchange", name),
				slog.String("symbol", symbol),
			)
			sum.Skipped++
			continue
		}
		if amount*t.Bid < dust {
			sum.Skipped++
			continue
		}

		res, err := venue.CreateOrder(ctx, domain.OrderRequest{
			Symbol:        symbol,
			Type:          domain.OrderTypeMarket,
			Side:          domain.OrderSideSell,
			Amount:        amount,
			ClientOrderID: uuid.NewString(),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("sell %s: %w", symbol, err))
			continue
		}
		logger.InfoContext(ctx, "position sold",
			slog.String("exchange", name),
			slog.String("symbol", symbol),
			slog.Float64("amount", amount),
			slog.String("order_id", res.ID),
			slog.String("status", string(res.Status)),
		)
		sum.Sold++
	}

	if len(errs) > 0 {
		return sum, fmt.Errorf("%s: %w", name, errors.Join(errs...))
	}
	return sum, nil
}
