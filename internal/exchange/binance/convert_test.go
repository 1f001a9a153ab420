package binance

import (
	"errors"
	"testing"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

func TestSymbolFor(t *testing.T) {
	s, err := symbolFor("BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", s)

	s, err = symbolFor("eth/usdc")
	require.NoError(t, err)
	assert.Equal(t, "ETHUSDC", s)

	_, err = symbolFor("BTCUSDT")
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)
}

func TestQuantize(t *testing.T) {
	step := decimal.RequireFromString("0.00001")
	assert.Equal(t, "0.00123", quantize(0.001239, step))
	assert.Equal(t, "0", quantize(0.000001, step))
	assert.Equal(t, "0.5", quantize(0.5, decimal.Zero))
	assert.Equal(t, "50000.1", quantize(50000.17, decimal.RequireFromString("0.1")))
}

func TestMapStatus(t *testing.T) {
	cases := map[gobinance.OrderStatusType]domain.OrderStatus{
		gobinance.OrderStatusTypeNew:             domain.OrderStatusOpen,
		gobinance.OrderStatusTypePartiallyFilled: domain.OrderStatusPartiallyFilled,
		gobinance.OrderStatusTypeFilled:          domain.OrderStatusFilled,
		gobinance.OrderStatusTypeCanceled:        domain.OrderStatusCanceled,
		gobinance.OrderStatusTypeExpired:         domain.OrderStatusCanceled,
		gobinance.OrderStatusTypeRejected:        domain.OrderStatusRejected,
	}
	for in, want := range cases {
		assert.Equal(t, want, mapStatus(in), string(in))
	}
}

func TestAveragePrice(t *testing.T) {
	avg, err := averagePrice("0.5", "25000")
	require.NoError(t, err)
	assert.Equal(t, 50000.0, avg)

	avg, err = averagePrice("0", "0")
	require.NoError(t, err)
	assert.Zero(t, avg)

	_, err = averagePrice("x", "1")
	assert.Error(t, err)
}

func TestLevels(t *testing.T) {
	raw := [][2]string{{"100.5", "1"}, {"100.0", "2"}, {"99.5", "3"}}
	got, err := levels(len(raw), 2, func(i int) (string, string) { return raw[i][0], raw[i][1] })
	require.NoError(t, err)
	assert.Equal(t, []domain.PriceLevel{{Price: 100.5, Size: 1}, {Price: 100, Size: 2}}, got)
}

func TestMapError(t *testing.T) {
	cases := map[int64]error{
		-1003: domain.ErrRateLimited,
		-2015: domain.ErrUnauthorized,
		-1121: domain.ErrNotFound,
		-2010: domain.ErrInvalidOrder,
	}
	for code, want := range cases {
		err := mapError(&common.APIError{Code: code, Message: "x"})
		assert.ErrorIs(t, err, want)
	}

	plain := errors.New("dial tcp: timeout")
	assert.Equal(t, plain, mapError(plain))
}

func TestDepthLimit(t *testing.T) {
	assert.Equal(t, 5, depthLimit(3))
	assert.Equal(t, 10, depthLimit(6))
	assert.Equal(t, 5000, depthLimit(10000))
}

func TestSideAndType(t *testing.T) {
	assert.Equal(t, gobinance.SideTypeSell, sideType(domain.OrderSideSell))
	assert.Equal(t, gobinance.SideTypeBuy, sideType(domain.OrderSideBuy))
	assert.Equal(t, gobinance.OrderTypeLimit, orderType(domain.OrderTypeLimit))
	assert.Equal(t, gobinance.OrderTypeMarket, orderType(domain.OrderTypeMarket))
}
