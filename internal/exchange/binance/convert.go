package binance

import (
	"errors"
	"fmt"
	"strings"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

// symbolFor converts canonical "BTC/USDT" to Binance's "BTCUSDT".
func symbolFor(symbol string) (string, error) {
	base, quote, ok := domain.SplitSymbol(symbol)
	if !ok {
		return "", fmt.Errorf("%w: symbol %q", domain.ErrInvalidOrder, symbol)
	}
	return strings.ToUpper(base + quote), nil
}

func parseDecimal(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("binance: parse decimal %q: %w", s, err)
	}
	return d.InexactFloat64(), nil
}

// quantize rounds v down to a multiple of step. A zero step leaves v as is.
func quantize(v float64, step decimal.Decimal) string {
	d := decimal.NewFromFloat(v)
	if step.IsPositive() {
		d = d.Div(step).Floor().Mul(step)
	}
	return d.String()
}

// levels converts n depth entries; at returns the price and quantity
// strings of entry i.
func levels(n, depth int, at func(i int) (price, qty string)) ([]domain.PriceLevel, error) {
	if depth > 0 && n > depth {
		n = depth
	}
	out := make([]domain.PriceLevel, 0, n)
	for i := 0; i < n; i++ {
		ps, qs := at(i)
		p, err := parseDecimal(ps)
		if err != nil {
			return nil, err
		}
		q, err := parseDecimal(qs)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.PriceLevel{Price: p, Size: q})
	}
	return out, nil
}

func sideType(s domain.OrderSide) gobinance.SideType {
	if s == domain.OrderSideSell {
		return gobinance.SideTypeSell
	}
	return gobinance.SideTypeBuy
}

func orderType(t domain.OrderType) gobinance.OrderType {
	if t == domain.OrderTypeLimit {
		return gobinance.OrderTypeLimit
	}
	return gobinance.OrderTypeMarket
}

func mapStatus(s gobinance.OrderStatusType) domain.OrderStatus {
	switch s {
	case gobinance.OrderStatusTypeNew:
		return domain.OrderStatusOpen
	case gobinance.OrderStatusTypePartiallyFilled:
		return domain.OrderStatusPartiallyFilled
	case gobinance.OrderStatusTypeFilled:
		return domain.OrderStatusFilled
	case gobinance.OrderStatusTypeCanceled, gobinance.OrderStatusTypeExpired:
		return domain.OrderStatusCanceled
	default:
		return domain.OrderStatusRejected
	}
}

// averagePrice derives the average fill price from the executed base
// quantity and the cumulative quote spent or received.
func averagePrice(executedQty, cumQuote string) (float64, error) {
	if executedQty == "" || cumQuote == "" {
		return 0, nil
	}
	qty, err := decimal.NewFromString(executedQty)
	if err != nil {
		return 0, fmt.Errorf("binance: parse executed qty %q: %w", executedQty, err)
	}
	if !qty.IsPositive() {
		return 0, nil
	}
	quote, err := decimal.NewFromString(cumQuote)
	if err != nil {
		return 0, fmt.Errorf("binance: parse quote qty %q: %w", cumQuote, err)
	}
	return quote.Div(qty).InexactFloat64(), nil
}

// mapError wraps API errors with the matching domain sentinel.
func mapError(err error) error {
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Code {
	case -1003, -1015:
		return fmt.Errorf("%w: binance: %s", domain.ErrRateLimited, apiErr.Message)
	case -1002, -1022, -2014, -2015:
		return fmt.Errorf("%w: binance: %s", domain.ErrUnauthorized, apiErr.Message)
	case -1121, -2013:
		return fmt.Errorf("%w: binance: %s", domain.ErrNotFound, apiErr.Message)
	case -1013, -1100, -1102, -1111, -2010:
		return fmt.Errorf("%w: binance: %s", domain.ErrInvalidOrder, apiErr.Message)
	default:
		return fmt.Errorf("binance: code %d: %s", apiErr.Code, apiErr.Message)
	}
}
