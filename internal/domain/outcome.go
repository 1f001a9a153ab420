package domain

import "time"

// TradeOutcome is the realised (or simulated) result of one signal. Profit
// is revenue minus cost in quote currency.
type TradeOutcome struct {
	SignalID  string
	Strategy  string
	Kind      SignalKind
	Symbol    string
	Profit    float64
	Simulated bool
}

// Win reports whether the outcome counts as a winning trade.
func (o TradeOutcome) Win() bool { return o.Profit > 0 }

// ExecStatus is the final state of an execution attempt.
type ExecStatus string

const (
	ExecExecuted  ExecStatus = "executed"  // round trip completed, outcome recorded
	ExecPlaced    ExecStatus = "placed"    // resting orders placed, no outcome yet
	ExecAborted   ExecStatus = "aborted"   // first leg failed, nothing else attempted
	ExecFailed    ExecStatus = "failed"    // a later leg failed or nothing could be placed
	ExecSimulated ExecStatus = "simulated" // dry-run outcome
	ExecVetoed    ExecStatus = "vetoed"    // risk gate refused
)

// LegRecord is one adapter call made while executing a signal.
type LegRecord struct {
	Exchange     string
	Side         OrderSide
	Type         OrderType
	Amount       float64
	Price        float64
	OrderID      string
	Status       OrderStatus
	FilledAmount float64
	AveragePrice float64
	Error        string
}

// ExecutionRecord is the journal entry written for every dispatched signal.
type ExecutionRecord struct {
	ID          string
	SessionID   string
	SignalID    string
	Strategy    string
	Kind        SignalKind
	Symbol      string
	Amount      float64
	Status      ExecStatus
	Profit      *float64
	Simulated   bool
	Reason      string
	Legs        []LegRecord
	StartedAt   time.Time
	CompletedAt time.Time
}

// SessionReport summarises one bot process from start to stop.
type SessionReport struct {
	SessionID         string
	Mode              string // "dry_run" or "live"
	StartedAt         time.Time
	EndedAt           time.Time
	Cycles            int
	Signals           int
	Vetoed            int
	TotalTrades       int
	WinningTrades     int
	LosingTrades      int
	WinRate           float64 // percent
	SessionPnL        float64
	ConsecutiveLosses int
	Halted            bool
	HaltReason        string
}
