// Package executor turns approved signals into exchange orders. It owns leg
// ordering, the abort rules for multi-leg trades and the dry-run simulator,
// and reports every outcome back to the risk gate.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/cexbot/internal/domain"
	"github.com/alanyoungcy/cexbot/internal/exchange"
	"github.com/alanyoungcy/cexbot/internal/risk"
)

// Event types sent to the notifier.
const (
	EventTradeExecuted = "trade_executed"
	EventTradeAborted  = "trade_aborted"
	EventError         = "error"
)

// Bus destinations for execution events.
const (
	ExecutionsChannel = "executions"
	OutcomesStream    = "outcomes"
)

// Notifier delivers operator alerts. notify.Notifier satisfies it.
type Notifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Options configures an Executor. Journal, Bus and Notifier are optional
// sinks; a failure in any of them is logged and never alters an outcome.
type Options struct {
	DryRun    bool
	SessionID string
	Simulator *Simulator
	Journal   domain.TradeJournal
	Bus       domain.EventBus
	Notifier  Notifier
}

// Report is the result of one Execute call.
type Report struct {
	Record  domain.ExecutionRecord
	Outcome *domain.TradeOutcome
}

// Executor dispatches signals to exchange adapters through the risk gate.
type Executor struct {
	venues *exchange.Venues
	gate   *risk.Gate
	opts   Options
	logger *slog.Logger
}

// New creates an Executor. In dry-run mode a nil Simulator is replaced by a
// time-seeded one.
func New(venues *exchange.Venues, gate *risk.Gate, opts Options, logger *slog.Logger) *Executor {
	if opts.DryRun && opts.Simulator == nil {
		opts.Simulator = NewSimulator(0)
	}
	return &Executor{
		venues: venues,
		gate:   gate,
		opts:   opts,
		logger: logger.With(slog.String("component", "executor")),
	}
}

// DryRun reports whether orders are simulated.
func (e *Executor) DryRun() bool { return e.opts.DryRun }

// Execute validates sig, passes it through the risk gate and runs it. A veto
// is reported through the record status, not as an error; the returned error
// is non-nil only for a signal that fails validation.
func (e *Executor) Execute(ctx context.Context, sig domain.Signal) (Report, error) {
	if sig == nil {
		return Report{}, fmt.Errorf("executor: %w: nil signal", domain.ErrInvalidSignal)
	}
	meta := sig.Meta()
	log := e.logger.With(
		slog.String("signal_id", meta.ID),
		slog.String("strategy", meta.Strategy),
		slog.String("kind", string(sig.Kind())),
		slog.String("symbol", meta.Symbol),
	)

	rec := domain.ExecutionRecord{
		ID:        uuid.NewString(),
		SessionID: e.opts.SessionID,
		SignalID:  meta.ID,
		Strategy:  meta.Strategy,
		Kind:      sig.Kind(),
		Symbol:    meta.Symbol,
		Amount:    meta.Amount,
		Simulated: e.opts.DryRun,
		StartedAt: time.Now().UTC(),
	}

	if err := sig.Validate(); err != nil {
		log.WarnContext(ctx, "invalid signal refused", slog.String("error", err.Error()))
		return Report{Record: rec}, fmt.Errorf("executor: %w", err)
	}

	var outcome *domain.TradeOutcome
	veto := e.gate.Guard(ctx, func() (st risk.Settlement) {
		defer func() {
			if r := recover(); r != nil {
				log.ErrorContext(ctx, "execution panicked", slog.String("error", fmt.Sprint(r)))
				rec.Status = domain.ExecFailed
				rec.Reason = fmt.Sprintf("panic: %v", r)
				// A live leg may already be on the book.
				st = risk.Settlement{Penalize: !e.opts.DryRun}
			}
		}()
		if e.opts.DryRun {
			st = e.simulate(sig, &rec)
		} else {
			st = e.dispatch(ctx, log, sig, &rec)
		}
		outcome = st.Outcome
		return st
	})
	if veto != nil {
		rec.Status = domain.ExecVetoed
		rec.Reason = veto.Error()
	}
	rec.CompletedAt = time.Now().UTC()

	switch rec.Status {
	case domain.ExecExecuted, domain.ExecSimulated:
		log.InfoContext(ctx, "signal executed",
			slog.String("status", string(rec.Status)),
			slog.Float64("profit", *rec.Profit),
		)
	case domain.ExecPlaced:
		log.InfoContext(ctx, "orders placed", slog.Int("legs", len(rec.Legs)))
	case domain.ExecAborted:
		log.WarnContext(ctx, "execution aborted", slog.String("reason", rec.Reason))
	case domain.ExecFailed:
		log.ErrorContext(ctx, "execution failed", slog.String("reason", rec.Reason))
	}

	e.publish(ctx, log, rec, outcome)
	return Report{Record: rec, Outcome: outcome}, nil
}

func (e *Executor) simulate(sig domain.Signal, rec *domain.ExecutionRecord) risk.Settlement {
	o := e.opts.Simulator.Outcome(sig)
	rec.Status = domain.ExecSimulated
	rec.Profit = &o.Profit
	return risk.Settlement{Outcome: &o}
}

func (e *Executor) dispatch(ctx context.Context, log *slog.Logger, sig domain.Signal, rec *domain.ExecutionRecord) risk.Settlement {
	switch s := sig.(type) {
	case domain.ArbitrageSignal:
		return e.twoLeg(ctx, s, rec)
	case domain.MarketMakeSignal:
		e.marketMake(ctx, s, rec)
		return risk.Settlement{}
	case domain.ScalpSignal:
		if s.HasTarget() {
			e.scalpWithTarget(ctx, s, rec)
			return risk.Settlement{}
		}
		return e.scalpLoop(ctx, s, rec)
	default:
		log.ErrorContext(ctx, "unknown signal type", slog.String("type", fmt.Sprintf("%T", sig)))
		rec.Status = domain.ExecFailed
		rec.Reason = fmt.Sprintf("unknown signal type %T", sig)
		return risk.Settlement{}
	}
}

// twoLeg buys on one venue and, only once the buy is confirmed filled,
// sells the filled amount on the other.
func (e *Executor) twoLeg(ctx context.Context, s domain.ArbitrageSignal, rec *domain.ExecutionRecord) risk.Settlement {
	buy, err := e.placeLeg(ctx, rec, s.BuyExchange, domain.OrderRequest{
		Symbol: s.Symbol, Type: domain.OrderTypeMarket, Side: domain.OrderSideBuy, Amount: s.Amount,
	})
	if err != nil || buy.Status.Failed() {
		rec.Status = domain.ExecAborted
		rec.Reason = legFailure("buy", s.BuyExchange, buy, err)
		return risk.Settlement{}
	}
	if !buy.Confirmed() {
		rec.Status = domain.ExecFailed
		rec.Reason = unconfirmed("buy", s.BuyExchange, buy)
		return risk.Settlement{}
	}

	sell, err := e.placeLeg(ctx, rec, s.SellExchange, domain.OrderRequest{
		Symbol: s.Symbol, Type: domain.OrderTypeMarket, Side: domain.OrderSideSell, Amount: buy.FilledAmount,
	})
	if err != nil || sell.Status.Failed() {
		rec.Status = domain.ExecFailed
		rec.Reason = "unhedged: " + legFailure("sell", s.SellExchange, sell, err)
		return risk.Settlement{}
	}
	if !sell.Confirmed() {
		rec.Status = domain.ExecFailed
		rec.Reason = "unhedged: " + unconfirmed("sell", s.SellExchange, sell)
		return risk.Settlement{}
	}

	o := realise(s.SignalMeta, s.Kind(), buy, sell)
	rec.Status = domain.ExecExecuted
	rec.Profit = &o.Profit
	return risk.Settlement{Outcome: &o}
}

// marketMake places both limit orders independently; one failing does not
// cancel the other.
func (e *Executor) marketMake(ctx context.Context, s domain.MarketMakeSignal, rec *domain.ExecutionRecord) {
	var reasons []error
	placed := 0
	for _, leg := range []struct {
		side  domain.OrderSide
		price float64
	}{
		{domain.OrderSideBuy, s.BuyPrice},
		{domain.OrderSideSell, s.SellPrice},
	} {
		res, err := e.placeLeg(ctx, rec, s.Exchange, domain.OrderRequest{
			Symbol: s.Symbol, Type: domain.OrderTypeLimit, Side: leg.side, Amount: s.Amount, Price: leg.price,
		})
		if err != nil || res.Status.Failed() {
			reasons = append(reasons, errors.New(legFailure(string(leg.side), s.Exchange, res, err)))
			continue
		}
		placed++
	}
	if placed == 0 {
		rec.Status = domain.ExecFailed
	} else {
		rec.Status = domain.ExecPlaced
	}
	if len(reasons) > 0 {
		rec.Reason = errors.Join(reasons...).Error()
	}
}

// scalpWithTarget enters at market and leaves a resting limit sell at the
// target price.
func (e *Executor) scalpWithTarget(ctx context.Context, s domain.ScalpSignal, rec *domain.ExecutionRecord) {
	buy, err := e.placeLeg(ctx, rec, s.Exchange, domain.OrderRequest{
		Symbol: s.Symbol, Type: domain.OrderTypeMarket, Side: domain.OrderSideBuy, Amount: s.Amount,
	})
	if err != nil || buy.Status.Failed() {
		rec.Status = domain.ExecAborted
		rec.Reason = legFailure("buy", s.Exchange, buy, err)
		return
	}
	if !buy.Confirmed() {
		rec.Status = domain.ExecFailed
		rec.Reason = unconfirmed("buy", s.Exchange, buy)
		return
	}
	sell, err := e.placeLeg(ctx, rec, s.Exchange, domain.OrderRequest{
		Symbol: s.Symbol, Type: domain.OrderTypeLimit, Side: domain.OrderSideSell,
		Amount: buy.FilledAmount, Price: s.TargetPrice,
	})
	if err != nil || sell.Status.Failed() {
		rec.Status = domain.ExecFailed
		rec.Reason = "unhedged: " + legFailure("sell", s.Exchange, sell, err)
		return
	}
	rec.Status = domain.ExecPlaced
}

// scalpLoop is a market round trip on one venue with a synchronous outcome.
// Adapter errors and unconfirmed fills on either leg count against the loss
// streak because they may leave capital committed.
func (e *Executor) scalpLoop(ctx context.Context, s domain.ScalpSignal, rec *domain.ExecutionRecord) risk.Settlement {
	buy, err := e.placeLeg(ctx, rec, s.Exchange, domain.OrderRequest{
		Symbol: s.Symbol, Type: domain.OrderTypeMarket, Side: domain.OrderSideBuy, Amount: s.Amount,
	})
	if err != nil {
		rec.Status = domain.ExecAborted
		rec.Reason = legFailure("buy", s.Exchange, buy, err)
		return risk.Settlement{Penalize: true}
	}
	if buy.Status.Failed() {
		rec.Status = domain.ExecAborted
		rec.Reason = legFailure("buy", s.Exchange, buy, nil)
		return risk.Settlement{}
	}
	if !buy.Confirmed() {
		rec.Status = domain.ExecFailed
		rec.Reason = unconfirmed("buy", s.Exchange, buy)
		return risk.Settlement{Penalize: true}
	}

	sell, err := e.placeLeg(ctx, rec, s.Exchange, domain.OrderRequest{
		Symbol: s.Symbol, Type: domain.OrderTypeMarket, Side: domain.OrderSideSell, Amount: buy.FilledAmount,
	})
	if err != nil || sell.Status.Failed() {
		rec.Status = domain.ExecFailed
		rec.Reason = "unhedged: " + legFailure("sell", s.Exchange, sell, err)
		return risk.Settlement{Penalize: true}
	}
	if !sell.Confirmed() {
		rec.Status = domain.ExecFailed
		rec.Reason = "unhedged: " + unconfirmed("sell", s.Exchange, sell)
		return risk.Settlement{Penalize: true}
	}

	o := realise(s.SignalMeta, s.Kind(), buy, sell)
	rec.Status = domain.ExecExecuted
	rec.Profit = &o.Profit
	return risk.Settlement{Outcome: &o}
}

// placeLeg sends one order and appends its LegRecord to rec.
func (e *Executor) placeLeg(ctx context.Context, rec *domain.ExecutionRecord, venue string, req domain.OrderRequest) (domain.OrderResult, error) {
	req.ClientOrderID = uuid.NewString()
	leg := domain.LegRecord{
		Exchange: venue,
		Side:     req.Side,
		Type:     req.Type,
		Amount:   req.Amount,
		Price:    req.Price,
	}

	adapter, err := e.venues.Get(venue)
	if err == nil {
		var res domain.OrderResult
		res, err = adapter.CreateOrder(ctx, req)
		if err == nil {
			leg.OrderID = res.ID
			leg.Status = res.Status
			leg.FilledAmount = res.FilledAmount
			leg.AveragePrice = res.AveragePrice
			rec.Legs = append(rec.Legs, leg)
			return res, nil
		}
	}

	leg.Error = err.Error()
	rec.Legs = append(rec.Legs, leg)
	e.logger.ErrorContext(ctx, "order failed",
		slog.String("exchange", venue),
		slog.String("signal_id", rec.SignalID),
		slog.String("strategy", rec.Strategy),
		slog.String("kind", string(rec.Kind)),
		slog.String("symbol", req.Symbol),
		slog.String("side", string(req.Side)),
		slog.String("error", err.Error()),
	)
	return domain.OrderResult{}, err
}

// realise computes revenue minus cost from two confirmed fills.
func realise(meta domain.SignalMeta, kind domain.SignalKind, buy, sell domain.OrderResult) domain.TradeOutcome {
	cost := buy.AveragePrice * buy.FilledAmount
	revenue := sell.AveragePrice * sell.FilledAmount
	return domain.TradeOutcome{
		SignalID: meta.ID,
		Strategy: meta.Strategy,
		Kind:     kind,
		Symbol:   meta.Symbol,
		Profit:   revenue - cost,
	}
}


func legFailure(side, venue string, res domain.OrderResult, err error) string {
	if err != nil {
		return fmt.Sprintf("%s on %s: %v", side, venue, err)
	}
	return fmt.Sprintf("%s on %s: order %s %s", side, venue, res.ID, res.Status)
}

func unconfirmed(side, venue string, res domain.OrderResult) string {
	return fmt.Sprintf("%s on %s: order %s %s without a confirmed fill", side, venue, res.ID, res.Status)
}

// executionEvent is the bus payload for an execution.
type executionEvent struct {
	ID        string            `json:"id"`
	SessionID string            `json:"session_id"`
	SignalID  string            `json:"signal_id"`
	Strategy  string            `json:"strategy"`
	Kind      domain.SignalKind `json:"kind"`
	Symbol    string            `json:"symbol"`
	Amount    float64           `json:"amount"`
	Status    domain.ExecStatus `json:"status"`
	Profit    *float64          `json:"profit,omitempty"`
	Simulated bool              `json:"simulated"`
	Reason    string            `json:"reason,omitempty"`
	Legs      int               `json:"legs"`
	At        time.Time         `json:"at"`
}

// publish fans the record out to the optional sinks.
func (e *Executor) publish(ctx context.Context, log *slog.Logger, rec domain.ExecutionRecord, outcome *domain.TradeOutcome) {
	if e.opts.Journal != nil {
		if err := e.opts.Journal.RecordExecution(ctx, rec); err != nil {
			log.WarnContext(ctx, "journal write failed", slog.String("error", err.Error()))
		}
	}

	if e.opts.Bus != nil {
		payload, err := json.Marshal(executionEvent{
			ID: rec.ID, SessionID: rec.SessionID, SignalID: rec.SignalID,
			Strategy: rec.Strategy, Kind: rec.Kind, Symbol: rec.Symbol,
			Amount: rec.Amount, Status: rec.Status, Profit: rec.Profit,
			Simulated: rec.Simulated, Reason: rec.Reason, Legs: len(rec.Legs),
			At: rec.CompletedAt,
		})
		if err == nil {
			if err := e.opts.Bus.Publish(ctx, ExecutionsChannel, payload); err != nil {
				log.WarnContext(ctx, "event publish failed", slog.String("error", err.Error()))
			}
			if outcome != nil {
				if err := e.opts.Bus.StreamAppend(ctx, OutcomesStream, payload); err != nil {
					log.WarnContext(ctx, "outcome stream append failed", slog.String("error", err.Error()))
				}
			}
		}
	}

	if e.opts.Notifier != nil {
		event, title := notification(rec)
		if event != "" {
			msg := fmt.Sprintf("%s %s %s amount=%.8g", rec.Strategy, rec.Kind, rec.Symbol, rec.Amount)
			if rec.Profit != nil {
				msg += fmt.Sprintf(" profit=%.4f", *rec.Profit)
			}
			if rec.Reason != "" {
				msg += "\n" + rec.Reason
			}
			if err := e.opts.Notifier.Notify(ctx, event, title, msg); err != nil {
				log.WarnContext(ctx, "notification failed", slog.String("error", err.Error()))
			}
		}
	}
}

func notification(rec domain.ExecutionRecord) (event, title string) {
	switch rec.Status {
	case domain.ExecExecuted, domain.ExecPlaced:
		return EventTradeExecuted, "Trade executed"
	case domain.ExecAborted:
		return EventTradeAborted, "Trade aborted"
	case domain.ExecFailed:
		return EventError, "Execution failed"
	default:
		return "", ""
	}
}
