// Package scheduler runs the trading loop: build a market view per symbol,
// evaluate every strategy against it in order and hand signals to the
// executor, then sleep and repeat until stopped.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/alanyoungcy/cexbot/internal/domain"
	"github.com/alanyoungcy/cexbot/internal/exchange"
	"github.com/alanyoungcy/cexbot/internal/executor"
	"github.com/alanyoungcy/cexbot/internal/report"
	"github.com/alanyoungcy/cexbot/internal/risk"
	"github.com/alanyoungcy/cexbot/internal/strategy"
)

// reportTimeout bounds report publishing after the loop has stopped.
const reportTimeout = 15 * time.Second

// Executor runs one signal. *executor.Executor satisfies it.
type Executor interface {
	Execute(ctx context.Context, sig domain.Signal) (executor.Report, error)
}

// ReportPublisher receives the final session report.
type ReportPublisher interface {
	Publish(ctx context.Context, rep domain.SessionReport) error
}

// Config controls the loop.
type Config struct {
	SessionID string
	Mode      string // "dry_run" or "live"

	Pair          string
	MultiPair     bool
	QuoteCurrency string
	MaxPairs      int

	Interval  time.Duration
	BookDepth int // 0 skips order book fetches
	// MaxCycles stops the loop after that many cycles. Zero runs until the
	// context is cancelled.
	MaxCycles int
}

// CycleStats summarises one RunCycle call.
type CycleStats struct {
	Symbols  int
	Quotes   int
	Signals  int
	Executed int
	Vetoed   int
}

// Scheduler is the single cooperative loop goroutine. It is not safe to
// call Run or RunCycle concurrently.
type Scheduler struct {
	cfg     Config
	venues  []domain.ExchangeAdapter
	engine  *strategy.Engine
	exec    Executor
	gate    *risk.Gate
	quotes  domain.QuoteCache
	reports ReportPublisher
	logger  *slog.Logger

	symbols []string
	totals  report.Counters
}

// Options carries the scheduler's optional collaborators.
type Options struct {
	Quotes  domain.QuoteCache
	Reports ReportPublisher
}

// New creates a Scheduler over venues in their configured order.
func New(cfg Config, venues []domain.ExchangeAdapter, engine *strategy.Engine, exec Executor, gate *risk.Gate, opts Options, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cfg:     cfg,
		venues:  venues,
		engine:  engine,
		exec:    exec,
		gate:    gate,
		quotes:  opts.Quotes,
		reports: opts.Reports,
		logger:  logger.With(slog.String("component", "scheduler")),
	}
}

// Symbols returns the symbols resolved at the start of Run.
func (s *Scheduler) Symbols() []string {
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out
}

// Run loops until ctx is cancelled or MaxCycles is reached. Cancellation is
// observed between cycles and during the sleep; a cycle in progress always
// completes. The session report is built and published on every exit path,
// including a recovered panic, which is returned as an error.
func (s *Scheduler) Run(ctx context.Context) (rep domain.SessionReport, err error) {
	started := time.Now().UTC()
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "scheduler panicked",
				slog.String("error", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("scheduler: panic: %v", r)
		}
		rep = s.finish(ctx, started)
	}()

	s.symbols = s.resolveSymbols(ctx)
	s.logger.InfoContext(ctx, "scheduler started",
		slog.String("session_id", s.cfg.SessionID),
		slog.String("mode", s.cfg.Mode),
		slog.Any("symbols", s.symbols),
		slog.Any("strategies", strategyNames(s.engine)),
		slog.Duration("interval", s.cfg.Interval),
	)

	for ctx.Err() == nil {
		s.RunCycle(ctx)
		if s.cfg.MaxCycles > 0 && s.totals.Cycles >= s.cfg.MaxCycles {
			break
		}
		if !sleep(ctx, s.cfg.Interval) {
			break
		}
	}
	return rep, nil
}

// RunCycle evaluates every symbol once. The cycle runs detached from ctx's
// cancellation so in-flight executions are never cut; each adapter call is
// still bounded by its own timeout.
func (s *Scheduler) RunCycle(ctx context.Context) CycleStats {
	if s.symbols == nil {
		s.symbols = s.resolveSymbols(ctx)
	}
	cctx := context.WithoutCancel(ctx)
	var stats CycleStats

	for _, symbol := range s.symbols {
		view := s.buildView(cctx, symbol)
		stats.Symbols++
		stats.Quotes += view.Len()
		if view.Len() == 0 {
			continue
		}

		for _, st := range s.engine.Strategies() {
			sig := s.engine.Evaluate(cctx, st, view)
			if sig == nil {
				continue
			}
			stats.Signals++

			res, err := s.exec.Execute(cctx, sig)
			if err != nil {
				s.logger.WarnContext(cctx, "signal not executed",
					slog.String("strategy", st.Name()),
					slog.String("symbol", symbol),
					slog.String("error", err.Error()),
				)
				continue
			}
			switch res.Record.Status {
			case domain.ExecVetoed:
				stats.Vetoed++
			case domain.ExecExecuted, domain.ExecPlaced, domain.ExecSimulated:
				stats.Executed++
			}
		}
	}

	s.totals.Cycles++
	s.totals.Signals += stats.Signals
	s.totals.Vetoed += stats.Vetoed

	snap := s.gate.Snapshot()
	s.logger.DebugContext(ctx, "cycle complete",
		slog.Int("cycle", s.totals.Cycles),
		slog.Int("symbols", stats.Symbols),
		slog.Int("quotes", stats.Quotes),
		slog.Int("signals", stats.Signals),
		slog.Int("executed", stats.Executed),
		slog.Int("vetoed", stats.Vetoed),
		slog.Float64("session_pnl", snap.SessionPnL),
	)
	return stats
}

// buildView queries each venue in order. A venue whose ticker fails is left
// out of the view; a failed book keeps the quote without depth.
func (s *Scheduler) buildView(ctx context.Context, symbol string) domain.MarketView {
	quotes := make([]domain.Quote, 0, len(s.venues))
	for _, v := range s.venues {
		t, err := v.Ticker(ctx, symbol)
		if err != nil {
			s.logger.WarnContext(ctx, "ticker fetch failed",
				slog.String("exchange", v.Name()),
				slog.String("symbol", symbol),
				slog.String("error", err.Error()),
			)
			continue
		}
		q := domain.Quote{Exchange: v.Name(), Ticker: t}

		if s.cfg.BookDepth > 0 {
			book, err := v.OrderBook(ctx, symbol, s.cfg.BookDepth)
			if err != nil {
				s.logger.DebugContext(ctx, "order book fetch failed",
					slog.String("exchange", v.Name()),
					slog.String("symbol", symbol),
					slog.String("error", err.Error()),
				)
			} else {
				q.Book = &book
			}
		}

		if s.quotes != nil {
			if err := s.quotes.SetQuote(ctx, t); err != nil {
				s.logger.DebugContext(ctx, "quote cache write failed",
					slog.String("exchange", v.Name()),
					slog.String("error", err.Error()),
				)
			}
		}
		quotes = append(quotes, q)
	}
	return domain.NewMarketView(symbol, quotes, time.Now().UTC())
}

func (s *Scheduler) resolveSymbols(ctx context.Context) []string {
	if !s.cfg.MultiPair {
		return []string{s.cfg.Pair}
	}
	return exchange.ResolveSymbols(ctx, s.venues, s.cfg.QuoteCurrency, s.cfg.MaxPairs, s.cfg.Pair, s.logger)
}

// finish builds and publishes the session report. Publishing runs on a
// fresh deadline since ctx is usually already cancelled by now.
func (s *Scheduler) finish(ctx context.Context, started time.Time) domain.SessionReport {
	rep := report.Build(s.cfg.SessionID, s.cfg.Mode, started, time.Now().UTC(),
		s.totals, s.gate.Snapshot(), s.gate.Halted())

	if s.reports != nil {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
		defer cancel()
		if err := s.reports.Publish(pctx, rep); err != nil {
			s.logger.WarnContext(pctx, "session report incomplete", slog.String("error", err.Error()))
		}
	}
	s.logger.InfoContext(ctx, "scheduler stopped",
		slog.Int("cycles", rep.Cycles),
		slog.Float64("session_pnl", rep.SessionPnL),
	)
	return rep
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func strategyNames(e *strategy.Engine) []string {
	all := e.Strategies()
	names := make([]string, len(all))
	for i, st := range all {
		names[i] = st.Name()
	}
	return names
}
