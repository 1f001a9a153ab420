package kraken

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

// Kraken names a few assets differently from the rest of the market.
var toKrakenAsset = map[string]string{
	"BTC":  "XBT",
	"DOGE": "XDG",
}

// Balance keys carry legacy X/Z prefixes for older assets.
var fromKrakenAsset = map[string]string{
	"XBT":  "BTC",
	"XXBT": "BTC",
	"XDG":  "DOGE",
	"XXDG": "DOGE",
	"XETH": "ETH",
	"XXRP": "XRP",
	"XLTC": "LTC",
	"XXLM": "XLM",
	"XETC": "ETC",
	"XZEC": "ZEC",
	"XXMR": "XMR",
	"ZUSD": "USD",
	"ZEUR": "EUR",
	"ZGBP": "GBP",
	"ZCAD": "CAD",
	"ZJPY": "JPY",
}

// pairFor converts canonical "BTC/USDT" to Kraken's "XBTUSDT".
func pairFor(symbol string) (string, error) {
	base, quote, ok := domain.SplitSymbol(symbol)
	if !ok {
		return "", fmt.Errorf("%w: symbol %q", domain.ErrInvalidOrder, symbol)
	}
	return krakenAsset(base) + krakenAsset(quote), nil
}

func krakenAsset(a string) string {
	a = strings.ToUpper(a)
	if k, ok := toKrakenAsset[a]; ok {
		return k
	}
	return a
}

// canonicalAsset maps a Kraken asset code to the common ticker symbol.
// Suffixes used for staked or earning balances (e.g. "XBT.F") are dropped.
func canonicalAsset(a string) string {
	if i := strings.IndexByte(a, '.'); i > 0 {
		a = a[:i]
	}
	if c, ok := fromKrakenAsset[a]; ok {
		return c
	}
	return a
}

// symbolFromWSName converts an AssetPairs wsname like "XBT/USDT" to the
// canonical form.
func symbolFromWSName(ws string) (string, bool) {
	base, quote, ok := domain.SplitSymbol(ws)
	if !ok {
		return "", false
	}
	return canonicalAsset(base) + "/" + canonicalAsset(quote), true
}
