// Package risk holds the session risk state and the gate every execution
// passes through. The state lives for one process; nothing rolls it over or
// reloads it.
package risk

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

// Limits configures when the gate halts trading.
type Limits struct {
	MaxConsecutiveLosses int
	// SessionLossLimit is compared against the running session P&L. It is
	// not reset at midnight.
	SessionLossLimit float64
}

// State is a snapshot of the session's risk counters.
type State struct {
	SessionPnL        float64
	TotalTrades       int
	WinningTrades     int
	LosingTrades      int
	ConsecutiveLosses int
	Limits            Limits
}

// WinRate returns winning trades as a percentage of all trades.
func (s State) WinRate() float64 {
	if s.TotalTrades == 0 {
		return 0
	}
	return float64(s.WinningTrades) / float64(s.TotalTrades) * 100
}

// Check returns nil when trading may continue, or an error wrapping
// domain.ErrDailyLossLimit or domain.ErrLossStreak.
func (s State) Check() error {
	if s.SessionPnL < -s.Limits.SessionLossLimit {
		return fmt.Errorf("%w: session pnl %.4f below -%.4f",
			domain.ErrDailyLossLimit, s.SessionPnL, s.Limits.SessionLossLimit)
	}
	if s.ConsecutiveLosses >= s.Limits.MaxConsecutiveLosses {
		return fmt.Errorf("%w: %d consecutive losses (max %d)",
			domain.ErrLossStreak, s.ConsecutiveLosses, s.Limits.MaxConsecutiveLosses)
	}
	return nil
}

// apply folds one outcome into the state.
func (s State) apply(o domain.TradeOutcome) State {
	if o.Win() {
		s.WinningTrades++
		s.ConsecutiveLosses = 0
	} else {
		s.LosingTrades++
		s.ConsecutiveLosses++
	}
	s.SessionPnL += o.Profit
	s.TotalTrades++
	return s
}

// Settlement is what an execution hands back to the gate once it is done.
type Settlement struct {
	// Outcome is recorded when non-nil.
	Outcome *domain.TradeOutcome
	// Penalize bumps the loss streak without counting a trade, for failures
	// that may have left capital committed.
	Penalize bool
}

// Gate owns the session State. All methods are safe for concurrent use.
type Gate struct {
	mu     sync.Mutex
	state  State
	halted bool
	onHalt func(ctx context.Context, reason error)
	logger *slog.Logger
}

// NewGate creates a Gate with zeroed counters.
func NewGate(limits Limits, logger *slog.Logger) *Gate {
	return &Gate{
		state:  State{Limits: limits},
		logger: logger.With(slog.String("component", "risk_gate")),
	}
}

// OnHalt registers fn to be called once, the first time the gate vetoes.
// fn runs outside the gate's lock.
func (g *Gate) OnHalt(fn func(ctx context.Context, reason error)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onHalt = fn
}

// Check evaluates the limits without changing any counters.
func (g *Gate) Check(ctx context.Context) error {
	g.mu.Lock()
	first, err := g.checkLocked()
	hook := g.onHalt
	g.mu.Unlock()

	g.announce(ctx, err, first, hook)
	return err
}

// Record folds an outcome into the state and returns the new snapshot.
func (g *Gate) Record(o domain.TradeOutcome) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = g.state.apply(o)
	return g.state
}

// Guard runs check, fn and the resulting settlement under a single lock
// acquisition, so concurrent callers cannot both pass the check before
// either records. It returns the veto error without calling fn when the
// gate is closed. fn must not call back into the gate. A panic in fn
// releases the lock and propagates without settling anything.
func (g *Gate) Guard(ctx context.Context, fn func() Settlement) error {
	first, hook, err := g.guardLocked(fn)
	g.announce(ctx, err, first, hook)
	return err
}

func (g *Gate) guardLocked(fn func() Settlement) (bool, func(context.Context, error), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	first, err := g.checkLocked()
	if err != nil {
		return first, g.onHalt, err
	}
	st := fn()
	if st.Outcome != nil {
		g.state = g.state.apply(*st.Outcome)
	}
	if st.Penalize {
		g.state.ConsecutiveLosses++
	}
	return false, g.onHalt, nil
}

// Snapshot returns a copy of the current state.
func (g *Gate) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Halted reports whether the gate has vetoed at least once.
func (g *Gate) Halted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.halted
}

// checkLocked must be called with g.mu held. first is true only on the
// transition into the halted state.
func (g *Gate) checkLocked() (first bool, err error) {
	err = g.state.Check()
	if err != nil && !g.halted {
		g.halted = true
		first = true
	}
	return first, err
}

func (g *Gate) announce(ctx context.Context, err error, first bool, hook func(context.Context, error)) {
	if err == nil {
		return
	}
	if !first {
		g.logger.DebugContext(ctx, "execution vetoed", slog.String("reason", err.Error()))
		return
	}
	snap := g.Snapshot()
	g.logger.WarnContext(ctx, "trading halted by risk gate",
		slog.String("reason", err.Error()),
		slog.Float64("session_pnl", snap.SessionPnL),
		slog.Int("consecutive_losses", snap.ConsecutiveLosses),
		slog.Int("total_trades", snap.TotalTrades),
	)
	if hook != nil {
		hook(ctx, err)
	}
}
