// Package app provides the top-level application lifecycle for the trading
// bot. It wires exchanges, storage, caches and notifications and runs the
// selected mode: trade, flatten or forecast.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alanyoungcy/cexbot/internal/config"
)

// Options are the command-line choices that are not part of Config.
type Options struct {
	// Live sends real orders. Without it trade mode simulates outcomes.
	Live bool
	// Out receives the forecast report. Defaults to os.Stdout.
	Out io.Writer
}

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	opts    Options
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, opts Options, logger *slog.Logger) *App {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	return &App{
		cfg:    cfg,
		opts:   opts,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires what the mode needs and blocks until the mode finishes or ctx is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	mode := strings.ToLower(a.cfg.Mode)
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", mode),
		slog.Bool("live", a.opts.Live),
		slog.String("log_level", a.cfg.LogLevel),
	)

	// Forecast is pure arithmetic over config.
	if mode == "forecast" {
		return a.ForecastMode(ctx)
	}

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch mode {
	case "trade":
		return a.TradeMode(ctx, deps)
	case "flatten":
		return a.FlattenMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
