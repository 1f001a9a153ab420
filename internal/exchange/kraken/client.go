// Package kraken implements domain.ExchangeAdapter over Kraken's spot REST
// API.
package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alanyoungcy/cexbot/internal/crypto"
	"github.com/alanyoungcy/cexbot/internal/domain"
)

// DefaultBaseURL is the production REST root.
const DefaultBaseURL = "https://api.kraken.com"

// Client is a thin REST client for Kraken's public and private endpoints.
type Client struct {
	baseURL    string
	auth       *crypto.KrakenAuth
	httpClient *http.Client
}

// NewClient creates a REST client. key and secret may be empty for
// public-only use; private calls then fail with domain.ErrUnauthorized.
func NewClient(baseURL, key, secret string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    &crypto.KrakenAuth{Key: key, Secret: secret},
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Ticker calls /0/public/Ticker for a single Kraken pair.
func (c *Client) Ticker(ctx context.Context, pair string) (TickerInfo, error) {
	var res map[string]TickerInfo
	if err := c.public(ctx, "Ticker", url.Values{"pair": {pair}}, &res); err != nil {
		return TickerInfo{}, fmt.Errorf("kraken: ticker %s: %w", pair, err)
	}
	for _, t := range res {
		return t, nil
	}
	return TickerInfo{}, fmt.Errorf("kraken: ticker %s: %w", pair, domain.ErrNotFound)
}

// Depth calls /0/public/Depth.
func (c *Client) Depth(ctx context.Context, pair string, count int) (DepthInfo, error) {
	params := url.Values{"pair": {pair}}
	if count > 0 {
		params.Set("count", fmt.Sprint(count))
	}
	var res map[string]DepthInfo
	if err := c.public(ctx, "Depth", params, &res); err != nil {
		return DepthInfo{}, fmt.Errorf("kraken: depth %s: %w", pair, err)
	}
	for _, d := range res {
		return d, nil
	}
	return DepthInfo{}, fmt.Errorf("kraken: depth %s: %w", pair, domain.ErrNotFound)
}

// AssetPairs calls /0/public/AssetPairs.
func (c *Client) AssetPairs(ctx context.Context) (map[string]AssetPair, error) {
	var res map[string]AssetPair
	if err := c.public(ctx, "AssetPairs", nil, &res); err != nil {
		return nil, fmt.Errorf("kraken: asset pairs: %w", err)
	}
	return res, nil
}

// Balance calls /0/private/Balance. Values are decimal strings keyed by
// Kraken asset code.
func (c *Client) Balance(ctx context.Context) (map[string]string, error) {
	var res map[string]string
	if err := c.private(ctx, "Balance", url.Values{}, &res); err != nil {
		return nil, fmt.Errorf("kraken: balance: %w", err)
	}
	return res, nil
}

// AddOrder calls /0/private/AddOrder and returns the transaction ids.
func (c *Client) AddOrder(ctx context.Context, params url.Values) ([]string, error) {
	var res AddOrderResult
	if err := c.private(ctx, "AddOrder", params, &res); err != nil {
		return nil, fmt.Errorf("kraken: add order: %w", err)
	}
	if len(res.TxID) == 0 {
		return nil, fmt.Errorf("kraken: add order: no txid returned")
	}
	return res.TxID, nil
}

// QueryOrder calls /0/private/QueryOrders for a single txid.
func (c *Client) QueryOrder(ctx context.Context, txid string) (OrderInfo, error) {
	var res map[string]OrderInfo
	if err := c.private(ctx, "QueryOrders", url.Values{"txid": {txid}}, &res); err != nil {
		return OrderInfo{}, fmt.Errorf("kraken: query order %s: %w", txid, err)
	}
	info, ok := res[txid]
	if !ok {
		return OrderInfo{}, fmt.Errorf("kraken: query order %s: %w", txid, domain.ErrNotFound)
	}
	return info, nil
}

// OpenOrders calls /0/private/OpenOrders.
func (c *Client) OpenOrders(ctx context.Context) (map[string]OrderInfo, error) {
	var res struct {
		Open map[string]OrderInfo `json:"open"`
	}
	if err := c.private(ctx, "OpenOrders", url.Values{}, &res); err != nil {
		return nil, fmt.Errorf("kraken: open orders: %w", err)
	}
	return res.Open, nil
}

// CancelOrder calls /0/private/CancelOrder.
func (c *Client) CancelOrder(ctx context.Context, txid string) (int, error) {
	var res CancelResult
	if err := c.private(ctx, "CancelOrder", url.Values{"txid": {txid}}, &res); err != nil {
		return 0, fmt.Errorf("kraken: cancel order %s: %w", txid, err)
	}
	return res.Count, nil
}

// CancelAll calls /0/private/CancelAll.
func (c *Client) CancelAll(ctx context.Context) (int, error) {
	var res CancelResult
	if err := c.private(ctx, "CancelAll", url.Values{}, &res); err != nil {
		return 0, fmt.Errorf("kraken: cancel all: %w", err)
	}
	return res.Count, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

func (c *Client) public(ctx context.Context, method string, params url.Values, out any) error {
	path := "/0/public/" + method
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, out)
}

// private signs and POSTs a request. The nonce is added to params.
func (c *Client) private(ctx context.Context, method string, params url.Values, out any) error {
	if c.auth.Key == "" || c.auth.Secret == "" {
		return fmt.Errorf("%w: kraken credentials not configured", domain.ErrUnauthorized)
	}
	path := "/0/private/" + method
	nonce := c.auth.Nonce()
	params.Set("nonce", nonce)
	body := params.Encode()

	headers, err := c.auth.Headers(path, nonce, body)
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if err := checkStatus(resp.StatusCode, env.Error); err != nil {
		return err
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if err := checkAPIErrors(env.Error); err != nil {
		return err
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// checkStatus maps non-2xx HTTP status codes to domain errors.
func checkStatus(statusCode int, apiErrs []string) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}
	msg := strings.Join(apiErrs, "; ")
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: kraken: %s", domain.ErrNotFound, msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: kraken: %s", domain.ErrUnauthorized, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: kraken: %s", domain.ErrRateLimited, msg)
	default:
		return fmt.Errorf("kraken: HTTP %d: %s", statusCode, msg)
	}
}

// checkAPIErrors maps the error strings of the response envelope. Kraken
// reports most failures with HTTP 200 and a non-empty error array.
func checkAPIErrors(apiErrs []string) error {
	if len(apiErrs) == 0 {
		return nil
	}
	msg := strings.Join(apiErrs, "; ")
	first := apiErrs[0]
	switch {
	case strings.Contains(first, "Rate limit"), strings.Contains(first, "Throttled"):
		return fmt.Errorf("%w: kraken: %s", domain.ErrRateLimited, msg)
	case strings.HasPrefix(first, "EAPI:Invalid key"),
		strings.HasPrefix(first, "EAPI:Invalid signature"),
		strings.HasPrefix(first, "EAPI:Invalid nonce"),
		strings.HasPrefix(first, "EGeneral:Permission denied"):
		return fmt.Errorf("%w: kraken: %s", domain.ErrUnauthorized, msg)
	case strings.HasPrefix(first, "EQuery:Unknown asset pair"),
		strings.HasPrefix(first, "EOrder:Unknown order"):
		return fmt.Errorf("%w: kraken: %s", domain.ErrNotFound, msg)
	case strings.HasPrefix(first, "EOrder:"), strings.HasPrefix(first, "EGeneral:Invalid arguments"):
		return fmt.Errorf("%w: kraken: %s", domain.ErrInvalidOrder, msg)
	default:
		return fmt.Errorf("kraken: %s", msg)
	}
}
