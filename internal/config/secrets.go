package config

// RedactedConfig returns a copy of cfg with sensitive fields replaced by the
// redaction placeholder "***". Use this when logging or printing the active
// configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Exchanges.Binance.APIKey)
	redact(&out.Exchanges.Binance.APISecret)
	redact(&out.Exchanges.Kraken.APIKey)
	redact(&out.Exchanges.Kraken.APISecret)

	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	redact(&out.Redis.Password)

	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy reference types so callers cannot mutate the original through the
	// redacted copy.
	if cfg.Notify.Events != nil {
		out.Notify.Events = make([]string, len(cfg.Notify.Events))
		copy(out.Notify.Events, cfg.Notify.Events)
	}
	if cfg.Forecast.Capital != nil {
		out.Forecast.Capital = make(map[string]float64, len(cfg.Forecast.Capital))
		for k, v := range cfg.Forecast.Capital {
			out.Forecast.Capital[k] = v
		}
	}
	if cfg.MarketMaker.Enabled != nil {
		v := *cfg.MarketMaker.Enabled
		out.MarketMaker.Enabled = &v
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
