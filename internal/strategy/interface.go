// Package strategy turns a per-cycle MarketView into at most one Signal per
// strategy. Strategies never call exchanges; everything they see is in the
// view the scheduler built.
package strategy

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

// Strategy defines the contract for trading strategies. Analyze returns a
// nil Signal when there is nothing to do this cycle; a disabled strategy
// always returns nil, nil.
type Strategy interface {
	Name() string
	Enabled() bool
	Enable()
	Disable()
	Analyze(ctx context.Context, view domain.MarketView) (domain.Signal, error)
}

// toggle implements the enable/disable half of Strategy. Strategies start
// enabled.
type toggle struct {
	disabled atomic.Bool
}

func (t *toggle) Enabled() bool { return !t.disabled.Load() }
func (t *toggle) Enable()       { t.disabled.Store(false) }
func (t *toggle) Disable()      { t.disabled.Store(true) }

func newMeta(strategy, symbol string, amount, expectedProfit float64) domain.SignalMeta {
	return domain.SignalMeta{
		ID:             uuid.NewString(),
		Strategy:       strategy,
		Symbol:         symbol,
		Amount:         amount,
		ExpectedProfit: expectedProfit,
		CreatedAt:      time.Now().UTC(),
	}
}
