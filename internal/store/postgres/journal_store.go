package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

// JournalStore implements domain.TradeJournal using PostgreSQL.
type JournalStore struct {
	pool *pgxpool.Pool
}

// NewJournalStore creates a JournalStore backed by the given connection pool.
func NewJournalStore(pool *pgxpool.Pool) *JournalStore {
	return &JournalStore{pool: pool}
}

const insertExecution = `
	INSERT INTO executions (
		id, session_id, signal_id, strategy, kind, symbol, amount,
		status, profit, simulated, reason, started_at, completed_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (id) DO NOTHING`

const insertLeg = `
	INSERT INTO execution_legs (
		execution_id, leg_index, exchange, side, order_type, amount, price,
		order_id, status, filled_amount, average_price, error
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (execution_id, leg_index) DO NOTHING`

// RecordExecution writes the execution and its legs in one transaction.
// Re-recording the same execution ID is a no-op.
func (s *JournalStore) RecordExecution(ctx context.Context, rec domain.ExecutionRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: record execution %s: begin: %w", rec.ID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, insertExecution,
		rec.ID, rec.SessionID, rec.SignalID, rec.Strategy, string(rec.Kind), rec.Symbol, rec.Amount,
		string(rec.Status), rec.Profit, rec.Simulated, rec.Reason, rec.StartedAt, rec.CompletedAt,
	); err != nil {
		return fmt.Errorf("postgres: record execution %s: %w", rec.ID, err)
	}

	if len(rec.Legs) > 0 {
		batch := &pgx.Batch{}
		for i, l := range rec.Legs {
			batch.Queue(insertLeg,
				rec.ID, i, l.Exchange, string(l.Side), string(l.Type), l.Amount, l.Price,
				l.OrderID, string(l.Status), l.FilledAmount, l.AveragePrice, l.Error,
			)
		}
		br := tx.SendBatch(ctx, batch)
		for i := range rec.Legs {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("postgres: record execution %s: leg %d: %w", rec.ID, i, err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("postgres: record execution %s: legs: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: record execution %s: commit: %w", rec.ID, err)
	}
	return nil
}

// RecordSession upserts the session summary.
func (s *JournalStore) RecordSession(ctx context.Context, rep domain.SessionReport) error {
	const query = `
		INSERT INTO sessions (
			session_id, mode, started_at, ended_at, cycles, signals, vetoed,
			total_trades, winning_trades, losing_trades, win_rate, session_pnl,
			consecutive_losses, halted, halt_reason
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (session_id) DO UPDATE SET
			ended_at = EXCLUDED.ended_at,
			cycles = EXCLUDED.cycles,
			signals = EXCLUDED.signals,
			vetoed = EXCLUDED.vetoed,
			total_trades = EXCLUDED.total_trades,
			winning_trades = EXCLUDED.winning_trades,
			losing_trades = EXCLUDED.losing_trades,
			win_rate = EXCLUDED.win_rate,
			session_pnl = EXCLUDED.session_pnl,
			consecutive_losses = EXCLUDED.consecutive_losses,
			halted = EXCLUDED.halted,
			halt_reason = EXCLUDED.halt_reason`

	_, err := s.pool.Exec(ctx, query,
		rep.SessionID, rep.Mode, rep.StartedAt, rep.EndedAt, rep.Cycles, rep.Signals, rep.Vetoed,
		rep.TotalTrades, rep.WinningTrades, rep.LosingTrades, rep.WinRate, rep.SessionPnL,
		rep.ConsecutiveLosses, rep.Halted, rep.HaltReason,
	)
	if err != nil {
		return fmt.Errorf("postgres: record session %s: %w", rep.SessionID, err)
	}
	return nil
}

// ListExecutions returns the session's executions oldest first, with legs.
// A limit of zero or less returns all of them.
func (s *JournalStore) ListExecutions(ctx context.Context, sessionID string, limit int) ([]domain.ExecutionRecord, error) {
	query := `
		SELECT id, session_id, signal_id, strategy, kind, symbol, amount,
			status, profit, simulated, reason, started_at, completed_at
		FROM executions
		WHERE session_id = $1
		ORDER BY started_at, id`
	args := []any{sessionID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list executions %s: %w", sessionID, err)
	}
	recs, err := scanExecutionRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: list executions %s: scan: %w", sessionID, err)
	}
	if len(recs) == 0 {
		return recs, nil
	}

	ids := make([]string, len(recs))
	index := make(map[string]int, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
		index[r.ID] = i
	}
	if err := s.attachLegs(ctx, ids, func(id string, leg domain.LegRecord) {
		if i, ok := index[id]; ok {
			recs[i].Legs = append(recs[i].Legs, leg)
		}
	}); err != nil {
		return nil, fmt.Errorf("postgres: list executions %s: legs: %w", sessionID, err)
	}
	return recs, nil
}

func scanExecutionRows(rows pgx.Rows) ([]domain.ExecutionRecord, error) {
	defer rows.Close()
	var recs []domain.ExecutionRecord
	for rows.Next() {
		var (
			r            domain.ExecutionRecord
			kind, status string
		)
		if err := rows.Scan(
			&r.ID, &r.SessionID, &r.SignalID, &r.Strategy, &kind, &r.Symbol, &r.Amount,
			&status, &r.Profit, &r.Simulated, &r.Reason, &r.StartedAt, &r.CompletedAt,
		); err != nil {
			return nil, err
		}
		r.Kind = domain.SignalKind(kind)
		r.Status = domain.ExecStatus(status)
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

func (s *JournalStore) attachLegs(ctx context.Context, ids []string, add func(string, domain.LegRecord)) error {
	rows, err := s.pool.Query(ctx, `
		SELECT execution_id, exchange, side, order_type, amount, price,
			order_id, status, filled_amount, average_price, error
		FROM execution_legs
		WHERE execution_id = ANY($1)
		ORDER BY execution_id, leg_index`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id                   string
			l                    domain.LegRecord
			side, typ, legStatus string
		)
		if err := rows.Scan(&id, &l.Exchange, &side, &typ, &l.Amount, &l.Price,
			&l.OrderID, &legStatus, &l.FilledAmount, &l.AveragePrice, &l.Error); err != nil {
			return err
		}
		l.Side = domain.OrderSide(side)
		l.Type = domain.OrderType(typ)
		l.Status = domain.OrderStatus(legStatus)
		add(id, l)
	}
	return rows.Err()
}

// SumProfit totals realised, non-simulated profit completed at or after since.
func (s *JournalStore) SumProfit(ctx context.Context, since time.Time) (float64, error) {
	var total float64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(profit), 0)
		FROM executions
		WHERE profit IS NOT NULL AND NOT simulated AND completed_at >= $1`, since).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("postgres: sum profit: %w", err)
	}
	return total, nil
}

var _ domain.TradeJournal = (*JournalStore)(nil)
