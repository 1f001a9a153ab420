// Command cexbot trades spot crypto across Binance and Kraken. It loads
// configuration, validates it, asks for confirmation before touching real
// funds, and runs the selected mode until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alanyoungcy/cexbot/internal/app"
	"github.com/alanyoungcy/cexbot/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.toml", "path to configuration file")
	mode := flag.String("mode", "", "override the configured mode: trade, flatten or forecast")
	live := flag.Bool("live", false, "send real orders (default is dry-run)")
	flag.Parse()

	// Setup structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		return 1
	}
	if *mode != "" {
		cfg.Mode = *mode
	}
	cfg.Mode = strings.ToLower(cfg.Mode)

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		return 1
	}
	logger.Debug("configuration loaded", slog.Any("config", config.RedactedConfig(cfg)))

	if cfg.Mode == "flatten" {
		*live = true
	}
	if *live && cfg.Mode != "forecast" {
		if !confirm(os.Stdin, os.Stderr, liveWarning(cfg)) {
			logger.Info("live trading not confirmed, exiting")
			return 0
		}
	}

	logger.Info("cexbot starting",
		slog.String("mode", cfg.Mode),
		slog.Bool("live", *live),
		slog.String("config", *configPath),
	)

	application := app.New(cfg, app.Options{Live: *live}, logger)
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Run(ctx); err != nil {
		// context.Canceled is expected on clean shutdown.
		if errors.Is(err, context.Canceled) {
			logger.Info("application shut down gracefully")
		} else {
			logger.Error("application exited with error",
				slog.String("error", err.Error()),
			)
			fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
			return 1
		}
	}

	logger.Info("cexbot stopped")
	return 0
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
