// Package report builds the end-of-session summary and hands it to every
// configured sink.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/cexbot/internal/domain"
	"github.com/alanyoungcy/cexbot/internal/risk"
)

// EventSessionReport is the notifier event type for session summaries.
const EventSessionReport = "session_report"

// Counters are the scheduler-side totals that the risk state does not hold.
type Counters struct {
	Cycles  int
	Signals int
	Vetoed  int
}

// Build assembles a SessionReport from the final risk state.
func Build(sessionID, mode string, started, ended time.Time, c Counters, st risk.State, halted bool) domain.SessionReport {
	rep := domain.SessionReport{
		SessionID:         sessionID,
		Mode:              mode,
		StartedAt:         started,
		EndedAt:           ended,
		Cycles:            c.Cycles,
		Signals:           c.Signals,
		Vetoed:            c.Vetoed,
		TotalTrades:       st.TotalTrades,
		WinningTrades:     st.WinningTrades,
		LosingTrades:      st.LosingTrades,
		WinRate:           st.WinRate(),
		SessionPnL:        st.SessionPnL,
		ConsecutiveLosses: st.ConsecutiveLosses,
		Halted:            halted,
	}
	if halted {
		if err := st.Check(); err != nil {
			rep.HaltReason = err.Error()
		}
	}
	return rep
}

// Format renders rep as plain text for chat notifications.
func Format(rep domain.SessionReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s (%s)\n", rep.SessionID, rep.Mode)
	fmt.Fprintf(&b, "Duration: %s, cycles: %d\n", rep.EndedAt.Sub(rep.StartedAt).Round(time.Second), rep.Cycles)
	fmt.Fprintf(&b, "Signals: %d, vetoed: %d\n", rep.Signals, rep.Vetoed)
	fmt.Fprintf(&b, "Trades: %d (won %d, lost %d), win rate %.1f%%\n",
		rep.TotalTrades, rep.WinningTrades, rep.LosingTrades, rep.WinRate)
	fmt.Fprintf(&b, "Session P&L: %.4f", rep.SessionPnL)
	if rep.Halted {
		fmt.Fprintf(&b, "\nHalted: %s", rep.HaltReason)
	}
	return b.String()
}

// Notifier delivers operator alerts. notify.Notifier satisfies it.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Sinks are the optional destinations of a report.
type Sinks struct {
	Notifier Notifier
	Journal  domain.TradeJournal
	Archive  domain.SessionArchiver
}

// Publisher logs a report and forwards it to the configured sinks.
type Publisher struct {
	sinks  Sinks
	logger *slog.Logger
}

// NewPublisher creates a Publisher.
func NewPublisher(sinks Sinks, logger *slog.Logger) *Publisher {
	return &Publisher{
		sinks:  sinks,
		logger: logger.With(slog.String("component", "report")),
	}
}

// Publish always logs rep, then tries every sink. Sink failures are logged
// and returned joined; one failing sink does not skip the others.
func (p *Publisher) Publish(ctx context.Context, rep domain.SessionReport) error {
	p.logger.InfoContext(ctx, "session report",
		slog.String("session_id", rep.SessionID),
		slog.String("mode", rep.Mode),
		slog.Duration("duration", rep.EndedAt.Sub(rep.StartedAt)),
		slog.Int("cycles", rep.Cycles),
		slog.Int("signals", rep.Signals),
		slog.Int("vetoed", rep.Vetoed),
		slog.Int("total_trades", rep.TotalTrades),
		slog.Int("winning_trades", rep.WinningTrades),
		slog.Int("losing_trades", rep.LosingTrades),
		slog.Float64("win_rate", rep.WinRate),
		slog.Float64("session_pnl", rep.SessionPnL),
		slog.Bool("halted", rep.Halted),
	)

	var errs []error
	fail := func(sink string, err error) {
		p.logger.WarnContext(ctx, "report sink failed",
			slog.String("sink", sink),
			slog.String("error", err.Error()),
		)
		errs = append(errs, fmt.Errorf("report: %s: %w", sink, err))
	}

	var execs []domain.ExecutionRecord
	if j := p.sinks.Journal; j != nil {
		if err := j.RecordSession(ctx, rep); err != nil {
			fail("journal", err)
		}
		if p.sinks.Archive != nil {
			var err error
			if execs, err = j.ListExecutions(ctx, rep.SessionID, 0); err != nil {
				fail("journal", err)
			}
		}
	}

	if a := p.sinks.Archive; a != nil {
		key, err := a.ArchiveSession(ctx, rep, execs)
		if err != nil {
			fail("archive", err)
		} else {
			p.logger.InfoContext(ctx, "session archived", slog.String("key", key))
		}
	}

	if n := p.sinks.Notifier; n != nil {
		if err := n.Notify(ctx, EventSessionReport, "Session report", Format(rep)); err != nil {
			fail("notifier", err)
		}
	}

	return errors.Join(errs...)
}
