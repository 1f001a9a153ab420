package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

// quoteTTL bounds how long a quote survives after the bot stops refreshing it.
const quoteTTL = 5 * time.Minute

// QuoteCache implements domain.QuoteCache with one hash per exchange and
// symbol at "{namespace}:quote:{exchange}:{symbol}".
type QuoteCache struct {
	c *Client
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{c: c}
}

func tickerFields(t domain.Ticker) map[string]interface{} {
	return map[string]interface{}{
		"bid":  strconv.FormatFloat(t.Bid, 'f', -1, 64),
		"ask":  strconv.FormatFloat(t.Ask, 'f', -1, 64),
		"last": strconv.FormatFloat(t.Last, 'f', -1, 64),
		"ts":   strconv.FormatInt(t.Timestamp.UnixNano(), 10),
	}
}

// SetQuote stores the ticker and refreshes its TTL in one pipeline.
func (qc *QuoteCache) SetQuote(ctx context.Context, t domain.Ticker) error {
	key := qc.c.key("quote", t.Exchange, t.Symbol)
	pipe := qc.c.rdb.TxPipeline()
	pipe.HSet(ctx, key, tickerFields(t))
	pipe.Expire(ctx, key, quoteTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", key, err)
	}
	return nil
}

// GetQuote returns domain.ErrNotFound when no quote is cached.
func (qc *QuoteCache) GetQuote(ctx context.Context, exchange, symbol string) (domain.Ticker, error) {
	key := qc.c.key("quote", exchange, symbol)
	vals, err := qc.c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.Ticker{}, fmt.Errorf("redis: get quote %s: %w", key, err)
	}
	if len(vals) == 0 {
		return domain.Ticker{}, domain.ErrNotFound
	}
	t, err := parseTicker(vals)
	if err != nil {
		return domain.Ticker{}, fmt.Errorf("redis: get quote %s: %w", key, err)
	}
	t.Exchange, t.Symbol = exchange, symbol
	return t, nil
}

func parseTicker(vals map[string]string) (domain.Ticker, error) {
	var t domain.Ticker
	for field, dst := range map[string]*float64{"bid": &t.Bid, "ask": &t.Ask, "last": &t.Last} {
		raw, ok := vals[field]
		if !ok {
			if field == "last" {
				continue
			}
			return domain.Ticker{}, fmt.Errorf("missing field %q", field)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.Ticker{}, fmt.Errorf("parse %s: %w", field, err)
		}
		*dst = v
	}
	if raw, ok := vals["ts"]; ok {
		ns, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return domain.Ticker{}, fmt.Errorf("parse ts: %w", err)
		}
		t.Timestamp = time.Unix(0, ns)
	}
	return t, nil
}

var _ domain.QuoteCache = (*QuoteCache)(nil)
