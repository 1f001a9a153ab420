package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies environment overrides, and returns the final
// Config. A missing file is not an error. The returned Config has NOT been
// validated; the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		default:
			if md.IsDefined("risk", "daily_loss_limit") && !md.IsDefined("risk", "session_loss_limit") {
				cfg.Risk.SessionLossLimit = cfg.Risk.DailyLossLimit
			}
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyLegacyEnv(&cfg)
	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyLegacyEnv honours the bare variable names used by earlier .env files.
// CEXBOT_* variables are applied afterwards and win.
func applyLegacyEnv(cfg *Config) {
	setStr(&cfg.Exchanges.Binance.APIKey, "BINANCE_API_KEY")
	setStr(&cfg.Exchanges.Binance.APISecret, "BINANCE_API_SECRET")
	setStr(&cfg.Exchanges.Kraken.APIKey, "KRAKEN_API_KEY")
	setStr(&cfg.Exchanges.Kraken.APISecret, "KRAKEN_API_SECRET")

	setStr(&cfg.Trading.Pair, "TRADING_PAIR")
	setBool(&cfg.Trading.MultiPair, "MULTI_PAIR_MODE")
	setStr(&cfg.Trading.QuoteCurrency, "QUOTE_CURRENCY")
	setFloat64(&cfg.Trading.MinProfitThreshold, "MIN_PROFIT_THRESHOLD")
	setFloat64(&cfg.Trading.MaxTradeAmount, "MAX_TRADE_AMOUNT")
	setSeconds(&cfg.Trading.CheckInterval, "CHECK_INTERVAL")

	setBool(&cfg.Scalping.Enabled, "SCALPING_MODE")
	setFloat64(&cfg.Scalping.ProfitTarget, "SCALPING_PROFIT_TARGET")
	setFloat64(&cfg.Scalping.MinTrade, "SCALPING_MIN_TRADE")
}

// applyEnvOverrides reads well-known CEXBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Exchanges ──
	setStr(&cfg.Exchanges.Binance.APIKey, "CEXBOT_BINANCE_API_KEY")
	setStr(&cfg.Exchanges.Binance.APISecret, "CEXBOT_BINANCE_API_SECRET")
	setBool(&cfg.Exchanges.Binance.Testnet, "CEXBOT_BINANCE_TESTNET")
	setStr(&cfg.Exchanges.Kraken.APIKey, "CEXBOT_KRAKEN_API_KEY")
	setStr(&cfg.Exchanges.Kraken.APISecret, "CEXBOT_KRAKEN_API_SECRET")
	setStr(&cfg.Exchanges.Kraken.BaseURL, "CEXBOT_KRAKEN_BASE_URL")

	// ── Trading ──
	setStr(&cfg.Trading.Pair, "CEXBOT_TRADING_PAIR")
	setBool(&cfg.Trading.MultiPair, "CEXBOT_TRADING_MULTI_PAIR")
	setStr(&cfg.Trading.QuoteCurrency, "CEXBOT_TRADING_QUOTE_CURRENCY")
	setInt(&cfg.Trading.MaxPairs, "CEXBOT_TRADING_MAX_PAIRS")
	setFloat64(&cfg.Trading.MinProfitThreshold, "CEXBOT_TRADING_MIN_PROFIT_THRESHOLD")
	setFloat64(&cfg.Trading.MaxTradeAmount, "CEXBOT_TRADING_MAX_TRADE_AMOUNT")
	setDuration(&cfg.Trading.CheckInterval, "CEXBOT_TRADING_CHECK_INTERVAL")
	setDuration(&cfg.Trading.CallTimeout, "CEXBOT_TRADING_CALL_TIMEOUT")
	setInt(&cfg.Trading.OrderBookDepth, "CEXBOT_TRADING_ORDER_BOOK_DEPTH")
	setInt(&cfg.Trading.RateLimitPerSecond, "CEXBOT_TRADING_RATE_LIMIT_PER_SECOND")
	setInt(&cfg.Trading.MaxCycles, "CEXBOT_TRADING_MAX_CYCLES")
	setStringSlice(&cfg.Trading.DisabledStrategies, "CEXBOT_TRADING_DISABLED_STRATEGIES")

	// ── Strategies ──
	setBool(&cfg.Scalping.Enabled, "CEXBOT_SCALPING_ENABLED")
	setFloat64(&cfg.Scalping.ProfitTarget, "CEXBOT_SCALPING_PROFIT_TARGET")
	setFloat64(&cfg.Scalping.MinTrade, "CEXBOT_SCALPING_MIN_TRADE")
	setBool(&cfg.Scalping.LoopMode, "CEXBOT_SCALPING_LOOP_MODE")
	setBoolPtr(&cfg.MarketMaker.Enabled, "CEXBOT_MARKET_MAKER_ENABLED")
	setFloat64(&cfg.MarketMaker.SpreadPercent, "CEXBOT_MARKET_MAKER_SPREAD_PERCENT")
	setFloat64(&cfg.MarketMaker.OrderSize, "CEXBOT_MARKET_MAKER_ORDER_SIZE")

	// ── Risk ──
	setInt(&cfg.Risk.MaxConsecutiveLosses, "CEXBOT_RISK_MAX_CONSECUTIVE_LOSSES")
	setFloat64(&cfg.Risk.SessionLossLimit, "CEXBOT_RISK_SESSION_LOSS_LIMIT")
	setInt64(&cfg.DryRun.Seed, "CEXBOT_DRY_RUN_SEED")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "CEXBOT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "CEXBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "CEXBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "CEXBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "CEXBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "CEXBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "CEXBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "CEXBOT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "CEXBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "CEXBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "CEXBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "CEXBOT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "CEXBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "CEXBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "CEXBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "CEXBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "CEXBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "CEXBOT_REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.LockTTL, "CEXBOT_REDIS_LOCK_TTL")
	setStr(&cfg.Redis.Namespace, "CEXBOT_REDIS_NAMESPACE")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "CEXBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "CEXBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "CEXBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "CEXBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "CEXBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "CEXBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "CEXBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "CEXBOT_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "CEXBOT_S3_PREFIX")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "CEXBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "CEXBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "CEXBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "CEXBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "CEXBOT_MODE")
	setStr(&cfg.LogLevel, "CEXBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setBoolPtr(dst **bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = &b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

// setSeconds accepts a plain number of seconds, as the legacy variables use.
func setSeconds(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			dst.Duration = time.Duration(f * float64(time.Second))
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
