package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/cexbot/internal/domain"
	"github.com/alanyoungcy/cexbot/internal/executor"
	"github.com/alanyoungcy/cexbot/internal/forecast"
	"github.com/alanyoungcy/cexbot/internal/notify"
	"github.com/alanyoungcy/cexbot/internal/report"
	"github.com/alanyoungcy/cexbot/internal/risk"
	"github.com/alanyoungcy/cexbot/internal/scheduler"
	"github.com/alanyoungcy/cexbot/internal/strategy"
)

const (
	// traderLockKey keeps two traders off the same accounts.
	traderLockKey = "trader"
	// profitLookback is the window of journalled profit logged at startup.
	profitLookback = 24 * time.Hour
)

// TradeMode runs the decision loop until ctx is cancelled, the configured
// cycle count is reached, or the trader lock is lost. When Redis is enabled
// the loop runs under a lock kept alive by a heartbeat.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	sessionID := uuid.NewString()
	runMode := "dry_run"
	if a.opts.Live {
		runMode = "live"
	}
	log := a.logger.With(slog.String("session_id", sessionID), slog.String("run_mode", runMode))
	log.InfoContext(ctx, "starting trade mode", slog.Any("venues", deps.Venues.Names()))

	var lease domain.Lease
	ttl := a.cfg.Redis.LockTTL.Duration
	if deps.Locks != nil {
		var err error
		lease, err = deps.Locks.Acquire(ctx, traderLockKey, ttl)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				return fmt.Errorf("app: another trader is running: %w", err)
			}
			return fmt.Errorf("app: acquire trader lock: %w", err)
		}
		defer lease.Release()
	}

	if deps.Journal != nil {
		profit, err := deps.Journal.SumProfit(ctx, time.Now().Add(-profitLookback))
		if err != nil {
			log.WarnContext(ctx, "journal profit lookup failed", slog.String("error", err.Error()))
		} else {
			log.InfoContext(ctx, "journalled profit", slog.Duration("window", profitLookback), slog.Float64("profit", profit))
		}
	}

	// A nil *notify.Notifier must not become a non-nil interface.
	var (
		execNotifier   executor.Notifier
		reportNotifier report.Notifier
	)
	if deps.Notifier != nil {
		execNotifier, reportNotifier = deps.Notifier, deps.Notifier
	}

	gate := risk.NewGate(risk.Limits{
		MaxConsecutiveLosses: a.cfg.Risk.MaxConsecutiveLosses,
		SessionLossLimit:     a.cfg.Risk.SessionLossLimit,
	}, a.logger)
	if deps.Notifier != nil {
		gate.OnHalt(func(ctx context.Context, reason error) {
			if err := deps.Notifier.Notify(ctx, notify.EventRiskHalt, "Trading halted", reason.Error()); err != nil {
				log.WarnContext(ctx, "halt notification failed", slog.String("error", err.Error()))
			}
		})
	}

	registry := strategy.Build(a.strategyOptions(), deps.Venues.Len(), a.logger)
	log.InfoContext(ctx, "strategies registered", slog.Any("strategies", registry.List()))
	engine := strategy.NewEngine(registry, a.logger)
	exec := executor.New(deps.Venues, gate, executor.Options{
		DryRun:    !a.opts.Live,
		SessionID: sessionID,
		Simulator: executor.NewSimulator(uint64(a.cfg.DryRun.Seed)),
		Journal:   deps.Journal,
		Bus:       deps.Bus,
		Notifier:  execNotifier,
	}, a.logger)
	publisher := report.NewPublisher(report.Sinks{
		Notifier: reportNotifier,
		Journal:  deps.Journal,
		Archive:  deps.Archive,
	}, a.logger)

	t := a.cfg.Trading
	sched := scheduler.New(scheduler.Config{
		SessionID:     sessionID,
		Mode:          runMode,
		Pair:          t.Pair,
		MultiPair:     t.MultiPair,
		QuoteCurrency: t.QuoteCurrency,
		MaxPairs:      t.MaxPairs,
		Interval:      t.CheckInterval.Duration,
		BookDepth:     t.OrderBookDepth,
		MaxCycles:     t.MaxCycles,
	}, deps.Venues.All(), engine, exec, gate, scheduler.Options{
		Quotes:  deps.Quotes,
		Reports: publisher,
	}, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	g.Go(func() error {
		defer close(done)
		rep, err := sched.Run(gctx)
		log.InfoContext(ctx, "trade mode finished",
			slog.Int("cycles", rep.Cycles),
			slog.Int("trades", rep.TotalTrades),
			slog.Float64("session_pnl", rep.SessionPnL),
			slog.Bool("halted", rep.Halted),
		)
		for _, info := range engine.ListInfo() {
			log.InfoContext(ctx, "strategy summary",
				slog.String("strategy", info.Name),
				slog.Bool("enabled", info.Enabled),
				slog.Int64("signals", info.SignalsSent),
				slog.Int64("errors", info.ErrorCount),
			)
		}
		return err
	})

	if lease != nil {
		g.Go(func() error {
			return heartbeat(gctx, lease, ttl/3, done, log)
		})
	}

	return g.Wait()
}

// heartbeat refreshes lease every interval until done closes. Losing the
// lock to another holder is fatal; transient refresh errors are retried on
// the next tick.
func heartbeat(ctx context.Context, lease domain.Lease, every time.Duration, done <-chan struct{}, log *slog.Logger) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-done:
			return nil
		case <-ticker.C:
			err := lease.Refresh(ctx)
			switch {
			case err == nil:
			case errors.Is(err, domain.ErrLockHeld):
				return fmt.Errorf("app: trader lock lost: %w", err)
			default:
				log.WarnContext(ctx, "trader lock refresh failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (a *App) strategyOptions() strategy.Options {
	return strategy.Options{
		ScalpingEnabled:    a.cfg.Scalping.Enabled,
		MarketMakerEnabled: a.cfg.MarketMakerEnabled(),
		Disabled:           a.cfg.Trading.DisabledStrategies,
		Arbitrage: strategy.ArbitrageConfig{
			MinProfitThreshold: a.cfg.Trading.MinProfitThreshold,
			MaxTradeAmount:     a.cfg.Trading.MaxTradeAmount,
		},
		MarketMaker: strategy.MarketMakerConfig{
			SpreadPercent: a.cfg.MarketMaker.SpreadPercent,
			OrderSize:     a.cfg.MarketMakerOrderSize(),
		},
		Scalping: strategy.ScalpingConfig{
			ProfitTarget:   a.cfg.Scalping.ProfitTarget,
			MinTradeAmount: a.cfg.Scalping.MinTrade,
			LoopMode:       a.cfg.Scalping.LoopMode,
		},
	}
}

// ForecastMode prints projected returns for the configured capital.
func (a *App) ForecastMode(ctx context.Context) error {
	f := a.cfg.Forecast
	p, err := forecast.NewPredictor(f.Capital)
	if err != nil {
		return fmt.Errorf("app: %w", err)
	}
	scenarios := p.Scenarios(forecast.Params{
		ArbSpreadPercent: f.ArbSpreadPercent,
		TradesPerDay:     f.TradesPerDay,
		SuccessRate:      f.SuccessRate,
		FeePercent:       f.FeePercent,
		MMSpreadPercent:  f.SpreadPercent,
		FillsPerDay:      f.FillsPerDay,
		MMSuccessRate:    f.MMSuccessRate,
	})
	a.logger.DebugContext(ctx, "forecast computed", slog.Float64("total_capital", p.TotalCapital()))
	if err := forecast.Render(a.opts.Out, p, scenarios, time.Now()); err != nil {
		return fmt.Errorf("app: render forecast: %w", err)
	}
	return nil
}
