package domain

import (
	"context"
	"time"
)

// TradeJournal persists execution attempts and session summaries. It is a
// write-mostly audit sink; nothing in the decision loop reads it back.
type TradeJournal interface {
	RecordExecution(ctx context.Context, rec ExecutionRecord) error
	RecordSession(ctx context.Context, rep SessionReport) error
	ListExecutions(ctx context.Context, sessionID string, limit int) ([]ExecutionRecord, error)
	SumProfit(ctx context.Context, since time.Time) (float64, error)
}
