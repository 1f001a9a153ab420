package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/cexbot/internal/domain"
)

type upload struct {
	contentType string
	multipart   bool
	body        []byte
}

type fakeWriter struct {
	objects map[string]upload
	failOn  string
}

func newFakeWriter() *fakeWriter { return &fakeWriter{objects: map[string]upload{}} }

func (f *fakeWriter) Put(_ context.Context, p string, data io.Reader, contentType string) error {
	if p == f.failOn {
		return errors.New("boom")
	}
	b, _ := io.ReadAll(data)
	f.objects[p] = upload{contentType: contentType, body: b}
	return nil
}

func (f *fakeWriter) PutMultipart(_ context.Context, p string, data io.Reader, _ int64) error {
	b, _ := io.ReadAll(data)
	f.objects[p] = upload{multipart: true, body: b}
	return nil
}

func testReport() domain.SessionReport {
	return domain.SessionReport{
		SessionID: "sess-1",
		Mode:      "dry_run",
		StartedAt: time.Date(2026, 3, 1, 23, 30, 0, 0, time.FixedZone("X", -2*3600)),
		EndedAt:   time.Date(2026, 3, 2, 1, 0, 0, 0, time.UTC),
		Cycles:    12, TotalTrades: 3, WinningTrades: 2, LosingTrades: 1,
		WinRate: 66.7, SessionPnL: 0.4,
	}
}

func TestArchiveSession(t *testing.T) {
	w := newFakeWriter()
	a := NewSessionArchive(w, "")
	profit := 0.25

	key, err := a.ArchiveSession(context.Background(), testReport(), []domain.ExecutionRecord{
		{ID: "e1", SignalID: "s1", Strategy: "Arbitrage", Kind: domain.SignalArbitrage, Symbol: "BTC/USDT",
			Amount: 0.001, Status: domain.ExecExecuted, Profit: &profit,
			Legs: []domain.LegRecord{{Exchange: "binance", Side: domain.OrderSideBuy, Type: domain.OrderTypeMarket, Amount: 0.001}}},
		{ID: "e2", Status: domain.ExecAborted, Reason: "buy failed"},
	})
	require.NoError(t, err)
	// Dated by the UTC start.
	assert.Equal(t, "sessions/2026/03/02/sess-1/report.json", key)

	rep, ok := w.objects[key]
	require.True(t, ok)
	assert.Equal(t, "application/json", rep.contentType)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(rep.body, &doc))
	assert.Equal(t, "sess-1", doc["session_id"])
	assert.EqualValues(t, 2, doc["executions"])

	ex, ok := w.objects["sessions/2026/03/02/sess-1/executions.jsonl"]
	require.True(t, ok)
	assert.False(t, ex.multipart)
	assert.Equal(t, "application/x-ndjson", ex.contentType)

	sc := bufio.NewScanner(bytes.NewReader(ex.body))
	var lines []map[string]any
	for sc.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		lines = append(lines, m)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, 0.25, lines[0]["profit"])
	assert.Equal(t, "buy", lines[0]["legs"].([]any)[0].(map[string]any)["side"])
	assert.NotContains(t, lines[1], "profit")
}

func TestArchiveSessionWithoutExecutions(t *testing.T) {
	w := newFakeWriter()
	_, err := NewSessionArchive(w, "bot/history").ArchiveSession(context.Background(), testReport(), nil)
	require.NoError(t, err)
	require.Len(t, w.objects, 1)
	for k := range w.objects {
		assert.True(t, strings.HasPrefix(k, "bot/history/"))
	}
}

func TestArchiveSessionLargeUsesMultipart(t *testing.T) {
	w := newFakeWriter()
	execs := make([]domain.ExecutionRecord, 1)
	execs[0] = domain.ExecutionRecord{ID: "big", Reason: strings.Repeat("x", int(minPartSize)+1)}

	_, err := NewSessionArchive(w, "").ArchiveSession(context.Background(), testReport(), execs)
	require.NoError(t, err)
	assert.True(t, w.objects["sessions/2026/03/02/sess-1/executions.jsonl"].multipart)
}

func TestArchiveSessionError(t *testing.T) {
	w := newFakeWriter()
	w.failOn = "sessions/2026/03/02/sess-1/report.json"
	_, err := NewSessionArchive(w, "").ArchiveSession(context.Background(), testReport(), nil)
	assert.ErrorContains(t, err, "sess-1")
}

func TestNormaliseEndpoint(t *testing.T) {
	assert.Equal(t, "https://s3.example.com", normaliseEndpoint("https://s3.example.com", false))
	assert.Equal(t, "https://s3.local", normaliseEndpoint("s3.local", true))
	assert.Equal(t, "http://s3.local", normaliseEndpoint("s3.local", false))
	assert.Equal(t, "http://minio:9000", normaliseEndpoint("minio:9000", false))
}
