package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

// multipartThreshold is the executions payload size above which the upload
// switches to the multipart uploader.
const multipartThreshold = minPartSize

// SessionArchive implements domain.SessionArchiver. Each session is written
// under {prefix}/YYYY/MM/DD/{session_id}/ as report.json plus
// executions.jsonl.
type SessionArchive struct {
	writer domain.BlobWriter
	prefix string
}

// NewSessionArchive creates a SessionArchive. An empty prefix defaults to
// "sessions".
func NewSessionArchive(writer domain.BlobWriter, prefix string) *SessionArchive {
	if prefix == "" {
		prefix = "sessions"
	}
	return &SessionArchive{writer: writer, prefix: prefix}
}

// ArchiveSession uploads the report and, when there are any, the executions.
// It returns the report's object key.
func (a *SessionArchive) ArchiveSession(ctx context.Context, rep domain.SessionReport, execs []domain.ExecutionRecord) (string, error) {
	dir := archiveDir(a.prefix, rep.SessionID, rep.StartedAt)

	if len(execs) > 0 {
		docs := make([]executionDoc, len(execs))
		for i, e := range execs {
			docs[i] = toExecutionDoc(e)
		}
		data, err := marshalJSONL(docs)
		if err != nil {
			return "", fmt.Errorf("s3blob: archive session %s: %w", rep.SessionID, err)
		}
		key := path.Join(dir, "executions.jsonl")
		if int64(len(data)) > multipartThreshold {
			err = a.writer.PutMultipart(ctx, key, bytes.NewReader(data), minPartSize)
		} else {
			err = a.writer.Put(ctx, key, bytes.NewReader(data), "application/x-ndjson")
		}
		if err != nil {
			return "", fmt.Errorf("s3blob: archive session %s: executions: %w", rep.SessionID, err)
		}
	}

	data, err := json.MarshalIndent(toSessionDoc(rep, len(execs)), "", "  ")
	if err != nil {
		return "", fmt.Errorf("s3blob: archive session %s: marshal report: %w", rep.SessionID, err)
	}
	key := path.Join(dir, "report.json")
	if err := a.writer.Put(ctx, key, bytes.NewReader(data), "application/json"); err != nil {
		return "", fmt.Errorf("s3blob: archive session %s: report: %w", rep.SessionID, err)
	}
	return key, nil
}

// archiveDir returns the session's directory, dated by its start in UTC:
//
//	sessions/2026/03/01/4f1c.../
func archiveDir(prefix, sessionID string, started time.Time) string {
	return path.Join(prefix, started.UTC().Format("2006/01/02"), sessionID)
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

type sessionDoc struct {
	SessionID         string    `json:"session_id"`
	Mode              string    `json:"mode"`
	StartedAt         time.Time `json:"started_at"`
	EndedAt           time.Time `json:"ended_at"`
	Cycles            int       `json:"cycles"`
	Signals           int       `json:"signals"`
	Vetoed            int       `json:"vetoed"`
	Executions        int       `json:"executions"`
	TotalTrades       int       `json:"total_trades"`
	WinningTrades     int       `json:"winning_trades"`
	LosingTrades      int       `json:"losing_trades"`
	WinRate           float64   `json:"win_rate"`
	SessionPnL        float64   `json:"session_pnl"`
	ConsecutiveLosses int       `json:"consecutive_losses"`
	Halted            bool      `json:"halted"`
	HaltReason        string    `json:"halt_reason,omitempty"`
}

func toSessionDoc(r domain.SessionReport, execs int) sessionDoc {
	return sessionDoc{
		SessionID: r.SessionID, Mode: r.Mode, StartedAt: r.StartedAt, EndedAt: r.EndedAt,
		Cycles: r.Cycles, Signals: r.Signals, Vetoed: r.Vetoed, Executions: execs,
		TotalTrades: r.TotalTrades, WinningTrades: r.WinningTrades, LosingTrades: r.LosingTrades,
		WinRate: r.WinRate, SessionPnL: r.SessionPnL, ConsecutiveLosses: r.ConsecutiveLosses,
		Halted: r.Halted, HaltReason: r.HaltReason,
	}
}

type legDoc struct {
	Exchange     string  `json:"exchange"`
	Side         string  `json:"side"`
	Type         string  `json:"type"`
	Amount       float64 `json:"amount"`
	Price        float64 `json:"price,omitempty"`
	OrderID      string  `json:"order_id,omitempty"`
	Status       string  `json:"status,omitempty"`
	FilledAmount float64 `json:"filled_amount"`
	AveragePrice float64 `json:"average_price,omitempty"`
	Error        string  `json:"error,omitempty"`
}

type executionDoc struct {
	ID          string    `json:"id"`
	SignalID    string    `json:"signal_id"`
	Strategy    string    `json:"strategy"`
	Kind        string    `json:"kind"`
	Symbol      string    `json:"symbol"`
	Amount      float64   `json:"amount"`
	Status      string    `json:"status"`
	Profit      *float64  `json:"profit,omitempty"`
	Simulated   bool      `json:"simulated"`
	Reason      string    `json:"reason,omitempty"`
	Legs        []legDoc  `json:"legs,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

func toExecutionDoc(e domain.ExecutionRecord) executionDoc {
	d := executionDoc{
		ID: e.ID, SignalID: e.SignalID, Strategy: e.Strategy, Kind: string(e.Kind),
		Symbol: e.Symbol, Amount: e.Amount, Status: string(e.Status), Profit: e.Profit,
		Simulated: e.Simulated, Reason: e.Reason, StartedAt: e.StartedAt, CompletedAt: e.CompletedAt,
	}
	for _, l := range e.Legs {
		d.Legs = append(d.Legs, legDoc{
			Exchange: l.Exchange, Side: string(l.Side), Type: string(l.Type), Amount: l.Amount,
			Price: l.Price, OrderID: l.OrderID, Status: string(l.Status),
			FilledAmount: l.FilledAmount, AveragePrice: l.AveragePrice, Error: l.Error,
		})
	}
	return d
}

var (
	_ domain.SessionArchiver = (*SessionArchive)(nil)
	_ domain.BlobWriter      = (*Writer)(nil)
)
