package executor

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

const (
	simWinProbability = 0.6
	simDefaultWinRate = 0.002 // of notional, when the signal has no expected profit
	simLossRate       = 0.01  // of notional
)

// Simulator draws dry-run outcomes. It is safe for concurrent use.
type Simulator struct {
	mu   sync.Mutex
	draw func() float64
}

// NewSimulator returns a simulator over a PCG source. A zero seed is
// replaced by the current time.
func NewSimulator(seed uint64) *Simulator {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return &Simulator{draw: r.Float64}
}

// NewSimulatorFunc returns a simulator whose draws in [0,1) come from draw.
func NewSimulatorFunc(draw func() float64) *Simulator {
	return &Simulator{draw: draw}
}

// Outcome draws a win with fixed probability. A win pays the signal's
// expected profit, or a small share of notional when it has none; a loss
// costs a fixed share of notional.
func (s *Simulator) Outcome(sig domain.Signal) domain.TradeOutcome {
	s.mu.Lock()
	u := s.draw()
	s.mu.Unlock()

	meta := sig.Meta()
	notional := sig.Notional()

	var profit float64
	if u < simWinProbability {
		profit = meta.ExpectedProfit
		if profit <= 0 {
			profit = notional * simDefaultWinRate
		}
	} else {
		profit = -notional * simLossRate
	}

	return domain.TradeOutcome{
		SignalID:  meta.ID,
		Strategy:  meta.Strategy,
		Kind:      sig.Kind(),
		Symbol:    meta.Symbol,
		Profit:    profit,
		Simulated: true,
	}
}
