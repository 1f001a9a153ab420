// Package config defines the top-level configuration for the trading bot
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by CEXBOT_* environment variables.
type Config struct {
	Exchanges   ExchangesConfig   `toml:"exchanges"`
	Trading     TradingConfig     `toml:"trading"`
	Scalping    ScalpingConfig    `toml:"scalping"`
	MarketMaker MarketMakerConfig `toml:"market_maker"`
	Risk        RiskConfig        `toml:"risk"`
	DryRun      DryRunConfig      `toml:"dry_run"`
	Forecast    ForecastConfig    `toml:"forecast"`
	Postgres    PostgresConfig    `toml:"postgres"`
	Redis       RedisConfig       `toml:"redis"`
	S3          S3Config          `toml:"s3"`
	Notify      NotifyConfig      `toml:"notify"`
	Mode        string            `toml:"mode"`
	LogLevel    string            `toml:"log_level"`
}

// ExchangesConfig holds per-venue credentials. A venue with no key and no
// secret is simply not traded.
type ExchangesConfig struct {
	Binance BinanceConfig `toml:"binance"`
	Kraken  KrakenConfig  `toml:"kraken"`
}

// BinanceConfig holds Binance spot API credentials.
type BinanceConfig struct {
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
	Testnet   bool   `toml:"testnet"`
}

// KrakenConfig holds Kraken spot API credentials.
type KrakenConfig struct {
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
	BaseURL   string `toml:"base_url"`
}

// TradingConfig controls the decision loop.
type TradingConfig struct {
	Pair               string   `toml:"pair"`
	MultiPair          bool     `toml:"multi_pair"`
	QuoteCurrency      string   `toml:"quote_currency"`
	MaxPairs           int      `toml:"max_pairs"`
	MinProfitThreshold float64  `toml:"min_profit_threshold"` // percent
	MaxTradeAmount     float64  `toml:"max_trade_amount"`     // quote currency
	CheckInterval      duration `toml:"check_interval"`
	CallTimeout        duration `toml:"call_timeout"`
	OrderBookDepth     int      `toml:"order_book_depth"`
	RateLimitPerSecond int      `toml:"rate_limit_per_second"`
	// MaxCycles stops the loop after that many cycles. Zero runs until
	// interrupted.
	MaxCycles int `toml:"max_cycles"`
	// DisabledStrategies names strategies that are registered but start
	// disabled, e.g. ["MarketMaker"].
	DisabledStrategies []string `toml:"disabled_strategies"`
}

// ScalpingConfig holds the scalping strategy parameters.
type ScalpingConfig struct {
	Enabled      bool    `toml:"enabled"`
	ProfitTarget float64 `toml:"profit_target"` // percent
	MinTrade     float64 `toml:"min_trade"`     // quote currency
	LoopMode     bool    `toml:"loop_mode"`
}

// MarketMakerConfig holds the market-maker parameters. Enabled left unset
// means "on unless scalping is on".
type MarketMakerConfig struct {
	Enabled       *bool   `toml:"enabled"`
	SpreadPercent float64 `toml:"spread_percent"`
	OrderSize     float64 `toml:"order_size"` // 0 means max_trade_amount/2
}

// RiskConfig holds the session risk limits.
type RiskConfig struct {
	MaxConsecutiveLosses int     `toml:"max_consecutive_losses"`
	SessionLossLimit     float64 `toml:"session_loss_limit"`
	// DailyLossLimit is the legacy name for SessionLossLimit, honoured when
	// session_loss_limit is not set.
	DailyLossLimit float64 `toml:"daily_loss_limit"`
}

// DryRunConfig controls the outcome simulator.
type DryRunConfig struct {
	Seed int64 `toml:"seed"` // 0 seeds from the clock
}

// ForecastConfig holds the assumptions for the profit forecast.
type ForecastConfig struct {
	Capital          map[string]float64 `toml:"capital"`
	ArbSpreadPercent float64            `toml:"arbitrage_spread_percent"`
	TradesPerDay     float64            `toml:"trades_per_day"`
	SuccessRate      float64            `toml:"success_rate"`
	FeePercent       float64            `toml:"fee_percent"`
	SpreadPercent    float64            `toml:"spread_percent"`
	FillsPerDay      float64            `toml:"fills_per_day"`
	MMSuccessRate    float64            `toml:"mm_success_rate"`
}

// PostgresConfig holds the trade journal connection.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled      bool     `toml:"enabled"`
	Addr         string   `toml:"addr"`
	Password     string   `toml:"password"`
	DB           int      `toml:"db"`
	PoolSize     int      `toml:"pool_size"`
	MaxRetries   int      `toml:"max_retries"`
	TLSEnabled   bool     `toml:"tls_enabled"`
	LockTTL      duration `toml:"lock_ttl"`
	StreamMaxLen int64    `toml:"stream_max_len"`
	Namespace    string   `toml:"namespace"`
}

// S3Config holds the session archive bucket.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the built-in defaults.
func Defaults() Config {
	return Config{
		Exchanges: ExchangesConfig{
			Kraken: KrakenConfig{BaseURL: "https://api.kraken.com"},
		},
		Trading: TradingConfig{
			Pair:               "BTC/USDT",
			QuoteCurrency:      "USDC",
			MaxPairs:           10,
			MinProfitThreshold: 0.5,
			MaxTradeAmount:     100,
			CheckInterval:      duration{10 * time.Second},
			CallTimeout:        duration{10 * time.Second},
			OrderBookDepth:     5,
			RateLimitPerSecond: 5,
		},
		Scalping: ScalpingConfig{
			ProfitTarget: 0.15,
			MinTrade:     10,
		},
		MarketMaker: MarketMakerConfig{
			SpreadPercent: 0.5,
		},
		Risk: RiskConfig{
			MaxConsecutiveLosses: 5,
			SessionLossLimit:     100,
		},
		Forecast: ForecastConfig{
			ArbSpreadPercent: 0.3,
			TradesPerDay:     5,
			SuccessRate:      0.8,
			FeePercent:       0.1,
			SpreadPercent:    0.5,
			FillsPerDay:      10,
			MMSuccessRate:    0.7,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "cexbot",
			User:          "cexbot",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     10,
			MaxRetries:   3,
			LockTTL:      duration{30 * time.Second},
			StreamMaxLen: 10000,
			Namespace:    "cexbot",
		},
		S3: S3Config{
			Region:         "us-east-1",
			UseSSL:         true,
			ForcePathStyle: true,
			Prefix:         "sessions",
		},
		Notify: NotifyConfig{
			Events: []string{"trade_executed", "trade_aborted", "risk_halt", "session_report", "error"},
		},
		Mode:     "trade",
		LogLevel: "info",
	}
}

// MarketMakerEnabled resolves the market-maker toggle.
func (c *Config) MarketMakerEnabled() bool {
	if c.MarketMaker.Enabled != nil {
		return *c.MarketMaker.Enabled
	}
	return !c.Scalping.Enabled
}

// MarketMakerOrderSize resolves the per-side order size.
func (c *Config) MarketMakerOrderSize() float64 {
	if c.MarketMaker.OrderSize > 0 {
		return c.MarketMaker.OrderSize
	}
	return c.Trading.MaxTradeAmount / 2
}

// ConfiguredVenues lists venues with a complete key and secret, in the
// fixed evaluation order.
func (c *Config) ConfiguredVenues() []string {
	var out []string
	if c.Exchanges.Binance.APIKey != "" && c.Exchanges.Binance.APISecret != "" {
		out = append(out, "binance")
	}
	if c.Exchanges.Kraken.APIKey != "" && c.Exchanges.Kraken.APISecret != "" {
		out = append(out, "kraken")
	}
	return out
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"trade":    true,
	"flatten":  true,
	"forecast": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string
	mode := strings.ToLower(c.Mode)

	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: trade, flatten, forecast)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Credentials come in pairs; forecast runs offline and needs none.
	pairs := []struct{ venue, key, secret string }{
		{"binance", c.Exchanges.Binance.APIKey, c.Exchanges.Binance.APISecret},
		{"kraken", c.Exchanges.Kraken.APIKey, c.Exchanges.Kraken.APISecret},
	}
	for _, p := range pairs {
		if (p.key == "") != (p.secret == "") {
			errs = append(errs, fmt.Sprintf("exchanges.%s: api_key and api_secret must be set together", p.venue))
		}
	}
	if mode != "forecast" && len(c.ConfiguredVenues()) == 0 {
		errs = append(errs, "exchanges: at least one exchange needs api_key and api_secret")
	}

	t := c.Trading
	if _, _, ok := domain.SplitSymbol(t.Pair); !ok {
		errs = append(errs, fmt.Sprintf("trading: pair %q must look like BASE/QUOTE", t.Pair))
	}
	if t.MultiPair {
		if strings.TrimSpace(t.QuoteCurrency) == "" {
			errs = append(errs, "trading: quote_currency is required when multi_pair is set")
		}
		if t.MaxPairs < 1 {
			errs = append(errs, "trading: max_pairs must be >= 1")
		}
	}
	if t.MinProfitThreshold <= 0 {
		errs = append(errs, "trading: min_profit_threshold must be > 0")
	}
	if t.MaxTradeAmount <= 0 {
		errs = append(errs, "trading: max_trade_amount must be > 0")
	}
	if t.CheckInterval.Duration <= 0 {
		errs = append(errs, "trading: check_interval must be > 0")
	}
	if t.CallTimeout.Duration <= 0 {
		errs = append(errs, "trading: call_timeout must be > 0")
	}
	if t.OrderBookDepth < 1 {
		errs = append(errs, "trading: order_book_depth must be >= 1")
	}
	if t.RateLimitPerSecond < 0 {
		errs = append(errs, "trading: rate_limit_per_second must be >= 0")
	}
	if t.MaxCycles < 0 {
		errs = append(errs, "trading: max_cycles must be >= 0")
	}

	if c.Scalping.Enabled {
		if c.Scalping.ProfitTarget <= 0 {
			errs = append(errs, "scalping: profit_target must be > 0 when enabled")
		}
		if c.Scalping.MinTrade <= 0 {
			errs = append(errs, "scalping: min_trade must be > 0 when enabled")
		}
	}
	if c.MarketMakerEnabled() && c.MarketMaker.SpreadPercent <= 0 {
		errs = append(errs, "market_maker: spread_percent must be > 0 when enabled")
	}
	if c.MarketMaker.OrderSize < 0 {
		errs = append(errs, "market_maker: order_size must be >= 0")
	}

	if c.Risk.MaxConsecutiveLosses < 1 {
		errs = append(errs, "risk: max_consecutive_losses must be >= 1")
	}
	if c.Risk.SessionLossLimit <= 0 {
		errs = append(errs, "risk: session_loss_limit must be > 0")
	}

	if mode == "forecast" {
		f := c.Forecast
		if len(f.Capital) == 0 {
			errs = append(errs, "forecast: capital must list at least one venue")
		}
		if f.SuccessRate < 0 || f.SuccessRate > 1 || f.MMSuccessRate < 0 || f.MMSuccessRate > 1 {
			errs = append(errs, "forecast: success rates must be between 0 and 1")
		}
		if f.TradesPerDay < 0 || f.FillsPerDay < 0 || f.FeePercent < 0 {
			errs = append(errs, "forecast: trades_per_day, fills_per_day and fee_percent must be >= 0")
		}
	}

	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.LockTTL.Duration < time.Second {
			errs = append(errs, "redis: lock_ttl must be at least 1s")
		}
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty")
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty")
		}
	}

	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
