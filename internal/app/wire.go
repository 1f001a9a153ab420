package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/cexbot/internal/blob/s3"
	"github.com/alanyoungcy/cexbot/internal/cache/redis"
	"github.com/alanyoungcy/cexbot/internal/config"
	"github.com/alanyoungcy/cexbot/internal/domain"
	"github.com/alanyoungcy/cexbot/internal/exchange"
	"github.com/alanyoungcy/cexbot/internal/exchange/binance"
	"github.com/alanyoungcy/cexbot/internal/exchange/kraken"
	"github.com/alanyoungcy/cexbot/internal/notify"
	"github.com/alanyoungcy/cexbot/internal/store/postgres"
)

// Dependencies bundles everything the modes need. Optional sinks stay nil
// when their backend is disabled.
type Dependencies struct {
	Venues *exchange.Venues

	// Storage
	Journal domain.TradeJournal
	Archive domain.SessionArchiver

	// Caches
	Quotes      domain.QuoteCache
	RateLimiter domain.RateLimiter
	Locks       domain.LockManager
	Bus         domain.EventBus

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL trade journal ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		deps.Journal = postgres.NewJournalStore(pgClient.Pool())
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			Namespace:  cfg.Redis.Namespace,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Quotes = redis.NewQuoteCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.Locks = redis.NewLockManager(redisClient)
		deps.Bus = redis.NewEventBus(redisClient, cfg.Redis.StreamMaxLen)
	}

	// --- S3 session archive ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		if err := s3Client.Health(ctx); err != nil {
			logger.WarnContext(ctx, "s3 bucket not reachable, archives may fail",
				slog.String("bucket", cfg.S3.Bucket),
				slog.String("error", err.Error()),
			)
		}
		deps.Archive = s3blob.NewSessionArchive(s3Client, cfg.S3.Prefix)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Exchanges ---
	venues, err := buildVenues(cfg, deps.RateLimiter, logger)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: exchanges: %w", err)
	}
	deps.Venues = venues

	return deps, cleanup, nil
}

// buildVenues creates an adapter for every venue with credentials, in the
// fixed order binance, kraken. Each is wrapped with the call timeout and,
// when Redis is available, the shared rate limit.
func buildVenues(cfg *config.Config, limiter domain.RateLimiter, logger *slog.Logger) (*exchange.Venues, error) {
	guard := exchange.GuardConfig{
		Timeout:       cfg.Trading.CallTimeout.Duration,
		Limiter:       limiter,
		RatePerSecond: cfg.Trading.RateLimitPerSecond,
	}

	var adapters []domain.ExchangeAdapter
	for _, name := range cfg.ConfiguredVenues() {
		var a domain.ExchangeAdapter
		switch name {
		case binance.Name:
			b := cfg.Exchanges.Binance
			a = binance.NewAdapter(binance.Config{APIKey: b.APIKey, APISecret: b.APISecret, Testnet: b.Testnet}, logger)
		case kraken.Name:
			k := cfg.Exchanges.Kraken
			a = kraken.NewAdapter(kraken.NewClient(k.BaseURL, k.APIKey, k.APISecret), logger)
		default:
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownExchange, name)
		}
		adapters = append(adapters, exchange.Guard(a, guard))
	}
	return exchange.NewVenues(adapters...)
}
