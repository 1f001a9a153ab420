package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

// Engine evaluates registered strategies against a MarketView. It isolates
// each strategy: errors and panics are logged and counted, never returned,
// so one failing strategy cannot stop the others or the cycle.
type Engine struct {
	registry *Registry
	logger   *slog.Logger

	mu    sync.Mutex
	stats map[string]*StrategyInfo
}

// NewEngine creates an Engine over registry.
func NewEngine(registry *Registry, logger *slog.Logger) *Engine {
	return &Engine{
		registry: registry,
		logger:   logger.With(slog.String("component", "strategy_engine")),
		stats:    make(map[string]*StrategyInfo),
	}
}

// Strategies returns the registered strategies in evaluation order.
func (e *Engine) Strategies() []Strategy {
	return e.registry.All()
}

// Evaluate runs s.Analyze on view and returns its signal, or nil on any
// failure. Invalid signals are dropped here so the executor only sees
// well-formed ones.
func (e *Engine) Evaluate(ctx context.Context, s Strategy, view domain.MarketView) (sig domain.Signal) {
	name := s.Name()
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "strategy panicked",
				slog.String("strategy", name),
				slog.String("symbol", view.Symbol()),
				slog.String("error", fmt.Sprint(r)),
			)
			e.countError(name)
			sig = nil
		}
	}()

	out, err := s.Analyze(ctx, view)
	if err != nil {
		e.logger.WarnContext(ctx, "strategy analyze failed",
			slog.String("strategy", name),
			slog.String("symbol", view.Symbol()),
			slog.String("error", err.Error()),
		)
		e.countError(name)
		return nil
	}
	if out == nil {
		return nil
	}
	if err := out.Validate(); err != nil {
		e.logger.ErrorContext(ctx, "strategy emitted invalid signal",
			slog.String("strategy", name),
			slog.String("symbol", view.Symbol()),
			slog.String("kind", string(out.Kind())),
			slog.String("error", err.Error()),
		)
		e.countError(name)
		return nil
	}

	e.record(name)
	return out
}

// ListInfo returns runtime counters for every registered strategy in
// registration order.
func (e *Engine) ListInfo() []StrategyInfo {
	strategies := e.registry.All()
	e.mu.Lock()
	defer e.mu.Unlock()
	infos := make([]StrategyInfo, 0, len(strategies))
	for _, s := range strategies {
		info := StrategyInfo{Name: s.Name()}
		if st, ok := e.stats[s.Name()]; ok {
			info = *st
		}
		info.Enabled = s.Enabled()
		infos = append(infos, info)
	}
	return infos
}

func (e *Engine) record(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.statFor(name)
	st.SignalsSent++
	now := time.Now().UTC()
	st.LastSignal = &now
}

func (e *Engine) countError(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.statFor(name).ErrorCount++
}

// statFor must be called with e.mu held.
func (e *Engine) statFor(name string) *StrategyInfo {
	st, ok := e.stats[name]
	if !ok {
		st = &StrategyInfo{Name: name}
		e.stats[name] = st
	}
	return st
}
