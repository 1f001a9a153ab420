package kraken

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

type fakeKraken struct {
	mu       sync.Mutex
	forms    map[string]http.Header
	posted   map[string]map[string]string
	handlers map[string]string
}

func newFakeKraken() *fakeKraken {
	return &fakeKraken{
		forms:    map[string]http.Header{},
		posted:   map[string]map[string]string{},
		handlers: map[string]string{},
	}
}

func (f *fakeKraken) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.Method == http.MethodPost {
		_ = r.ParseForm()
		form := map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		f.posted[r.URL.Path] = form
		f.forms[r.URL.Path] = r.Header.Clone()
	}
	body, ok := f.handlers[r.URL.Path]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":["EGeneral:Unknown method"]}`)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, body)
}

func newTestAdapter(t *testing.T, f *fakeKraken) *Adapter {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	secret := base64.StdEncoding.EncodeToString([]byte("test-secret"))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAdapter(NewClient(srv.URL, "test-key", secret), logger)
}

func TestAdapter_Ticker(t *testing.T) {
	f := newFakeKraken()
	f.handlers["/0/public/Ticker"] = `{"error":[],"result":{"XBTUSDT":{"a":["50010.5","1","1.000"],"b":["50000.1","2","2.000"],"c":["50005.0","0.1"]}}}`
	a := newTestAdapter(t, f)

	tk, err := a.Ticker(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, "kraken", tk.Exchange)
	assert.Equal(t, "BTC/USDT", tk.Symbol)
	assert.Equal(t, 50000.1, tk.Bid)
	assert.Equal(t, 50010.5, tk.Ask)
	assert.Equal(t, 50005.0, tk.Last)
	assert.False(t, tk.Timestamp.IsZero())
}

func TestAdapter_OrderBook(t *testing.T) {
	f := newFakeKraken()
	f.handlers["/0/public/Depth"] = `{"error":[],"result":{"XXBTZUSD":{
		"asks":[["101.0","1.5",1616663113],["102.0","2.0",1616663114],["103.0","1.0",1616663115]],
		"bids":[["100.0","3.0",1616663112],["99.0","1.0",1616663110]]}}}`
	a := newTestAdapter(t, f)

	ob, err := a.OrderBook(context.Background(), "BTC/USD", 2)
	require.NoError(t, err)
	require.Len(t, ob.Asks, 2)
	require.Len(t, ob.Bids, 2)
	assert.Equal(t, domain.PriceLevel{Price: 101, Size: 1.5}, ob.Asks[0])
	assert.Equal(t, domain.PriceLevel{Price: 100, Size: 3}, ob.Bids[0])
}

func TestAdapter_Balances(t *testing.T) {
	f := newFakeKraken()
	f.handlers["/0/private/Balance"] = `{"error":[],"result":{"XXBT":"0.5","ZUSD":"100.0","XBT.F":"1.0","USDT":"0.0000"}}`
	a := newTestAdapter(t, f)

	bals, err := a.Balances(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"BTC": 0.5, "USD": 100}, bals)

	btc, err := a.Balance(context.Background(), "btc")
	require.NoError(t, err)
	assert.Equal(t, 0.5, btc)

	h := f.forms["/0/private/Balance"]
	assert.Equal(t, "test-key", h.Get("API-Key"))
	assert.NotEmpty(t, h.Get("API-Sign"))
	assert.NotEmpty(t, f.posted["/0/private/Balance"]["nonce"])
}

func TestAdapter_CreateOrder(t *testing.T) {
	t.Run("market order resolves fill via query", func(t *testing.T) {
		f := newFakeKraken()
		f.handlers["/0/private/AddOrder"] = `{"error":[],"result":{"descr":{"order":"buy 0.01 XBTUSDT @ market"},"txid":["OABC-123"]}}`
		f.handlers["/0/private/QueryOrders"] = `{"error":[],"result":{"OABC-123":{"status":"closed","vol":"0.01","vol_exec":"0.01","price":"50010.5"}}}`
		a := newTestAdapter(t, f)

		res, err := a.CreateOrder(context.Background(), domain.OrderRequest{
			Symbol: "BTC/USDT", Type: domain.OrderTypeMarket, Side: domain.OrderSideBuy, Amount: 0.01,
		})
		require.NoError(t, err)
		assert.Equal(t, "OABC-123", res.ID)
		assert.Equal(t, domain.OrderStatusFilled, res.Status)
		assert.Equal(t, 0.01, res.FilledAmount)
		assert.Equal(t, 50010.5, res.AveragePrice)

		form := f.posted["/0/private/AddOrder"]
		assert.Equal(t, "XBTUSDT", form["pair"])
		assert.Equal(t, "buy", form["type"])
		assert.Equal(t, "market", form["ordertype"])
		assert.Equal(t, "0.01", form["volume"])
		assert.Empty(t, form["price"])
		assert.Equal(t, "OABC-123", f.posted["/0/private/QueryOrders"]["txid"])
	})

	t.Run("limit order sends price", func(t *testing.T) {
		f := newFakeKraken()
		f.handlers["/0/private/AddOrder"] = `{"error":[],"result":{"txid":["OLIM-1"]}}`
		f.handlers["/0/private/QueryOrders"] = `{"error":[],"result":{"OLIM-1":{"status":"open","vol":"1","vol_exec":"0","price":"0"}}}`
		a := newTestAdapter(t, f)

		res, err := a.CreateOrder(context.Background(), domain.OrderRequest{
			Symbol: "ETH/USDT", Type: domain.OrderTypeLimit, Side: domain.OrderSideSell, Amount: 1, Price: 2500.25,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusOpen, res.Status)
		assert.Equal(t, "2500.25", f.posted["/0/private/AddOrder"]["price"])
		assert.Equal(t, "ETHUSDT", f.posted["/0/private/AddOrder"]["pair"])
	})

	t.Run("limit without price never reaches the wire", func(t *testing.T) {
		f := newFakeKraken()
		a := newTestAdapter(t, f)
		_, err := a.CreateOrder(context.Background(), domain.OrderRequest{
			Symbol: "BTC/USDT", Type: domain.OrderTypeLimit, Side: domain.OrderSideBuy, Amount: 1,
		})
		assert.ErrorIs(t, err, domain.ErrLimitOrderMissingPrice)
		assert.Empty(t, f.posted)
	})

	t.Run("api error maps to sentinel", func(t *testing.T) {
		f := newFakeKraken()
		f.handlers["/0/private/AddOrder"] = `{"error":["EOrder:Insufficient funds"]}`
		a := newTestAdapter(t, f)
		_, err := a.CreateOrder(context.Background(), domain.OrderRequest{
			Symbol: "BTC/USDT", Type: domain.OrderTypeMarket, Side: domain.OrderSideBuy, Amount: 1,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidOrder)
	})
}

func TestAdapter_Symbols(t *testing.T) {
	f := newFakeKraken()
	f.handlers["/0/public/AssetPairs"] = `{"error":[],"result":{
		"XBTUSDC":{"altname":"XBTUSDC","wsname":"XBT/USDC","status":"online"},
		"ETHUSDC":{"altname":"ETHUSDC","wsname":"ETH/USDC","status":"online"},
		"XDGUSDC":{"altname":"XDGUSDC","wsname":"XDG/USDC","status":"cancel_only"},
		"XXBTZUSD":{"altname":"XBTUSD","wsname":"XBT/USD","status":"online"}}}`
	a := newTestAdapter(t, f)

	syms, err := a.Symbols(context.Background(), "usdc")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"BTC/USDC", "ETH/USDC"}, syms)
}

func TestAdapter_CancelOpenOrders(t *testing.T) {
	f := newFakeKraken()
	f.handlers["/0/private/OpenOrders"] = `{"error":[],"result":{"open":{
		"O1":{"status":"open","descr":{"pair":"XBTUSDT"}},
		"O2":{"status":"open","descr":{"pair":"ETHUSDT"}}}}}`
	f.handlers["/0/private/CancelOrder"] = `{"error":[],"result":{"count":1}}`
	a := newTestAdapter(t, f)

	n, err := a.CancelOpenOrders(context.Background(), "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "O1", f.posted["/0/private/CancelOrder"]["txid"])
}

func TestClient_Errors(t *testing.T) {
	t.Run("http status", func(t *testing.T) {
		f := newFakeKraken()
		a := newTestAdapter(t, f)
		_, err := a.Ticker(context.Background(), "BTC/USDT")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("envelope errors", func(t *testing.T) {
		cases := map[string]error{
			"EAPI:Invalid key":           domain.ErrUnauthorized,
			"EAPI:Rate limit exceeded":   domain.ErrRateLimited,
			"EQuery:Unknown asset pair":  domain.ErrNotFound,
			"EGeneral:Invalid arguments": domain.ErrInvalidOrder,
		}
		for msg, want := range cases {
			assert.ErrorIs(t, checkAPIErrors([]string{msg}), want, msg)
		}
		assert.NoError(t, checkAPIErrors(nil))
	})

	t.Run("private call without credentials", func(t *testing.T) {
		c := NewClient("http://127.0.0.1:0", "", "")
		_, err := c.Balance(context.Background())
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestSymbolMapping(t *testing.T) {
	p, err := pairFor("BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, "XBTUSDT", p)

	p, err = pairFor("DOGE/USD")
	require.NoError(t, err)
	assert.Equal(t, "XDGUSD", p)

	_, err = pairFor("BTCUSDT")
	assert.ErrorIs(t, err, domain.ErrInvalidOrder)

	assert.Equal(t, "BTC", canonicalAsset("XXBT"))
	assert.Equal(t, "BTC", canonicalAsset("XBT.F"))
	assert.Equal(t, "SOL", canonicalAsset("SOL"))
}

func TestMapStatus(t *testing.T) {
	assert.Equal(t, domain.OrderStatusFilled, mapStatus("closed", 1))
	assert.Equal(t, domain.OrderStatusOpen, mapStatus("open", 0))
	assert.Equal(t, domain.OrderStatusPartiallyFilled, mapStatus("open", 0.5))
	assert.Equal(t, domain.OrderStatusCanceled, mapStatus("canceled", 0))
	assert.Equal(t, domain.OrderStatusPartiallyFilled, mapStatus("expired", 0.2))
	assert.Equal(t, domain.OrderStatusRejected, mapStatus("weird", 0))
}
