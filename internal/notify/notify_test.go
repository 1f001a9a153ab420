package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	name  string
	err   error
	calls []string
}

func (r *recordingSender) Send(_ context.Context, title, _ string) error {
	r.calls = append(r.calls, title)
	return r.err
}

func (r *recordingSender) Name() string { return r.name }

func discardLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestNotifierFiltersEvents(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, []string{EventRiskHalt, " " + EventError + " "}, discardLogger())

	require.NoError(t, n.Notify(context.Background(), EventTradeExecuted, "skipped", ""))
	require.NoError(t, n.Notify(context.Background(), EventRiskHalt, "halt", ""))
	require.NoError(t, n.Notify(context.Background(), EventError, "err", ""))

	assert.Equal(t, []string{"halt", "err"}, s.calls)
}

func TestNotifierEmptyFilterAllowsEverything(t *testing.T) {
	n := NewNotifier(nil, nil, discardLogger())
	assert.True(t, n.Allows(EventSessionReport))
	assert.NoError(t, n.Notify(context.Background(), EventError, "x", "y"))
}

func TestNotifierCombinesSenderErrors(t *testing.T) {
	bad := &recordingSender{name: "bad", err: errors.New("down")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discardLogger())

	err := n.Notify(context.Background(), EventError, "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad: down")
	assert.NotContains(t, err.Error(), "good")
	assert.Len(t, good.calls, 1)
}

func TestTelegramSender(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramSender("TOKEN", "42")
	s.baseURL = srv.URL
	require.NoError(t, s.Send(context.Background(), "Trade executed", "BTC_USDT profit=0.1"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "Trade executed\nBTC_USDT profit=0.1", got["text"])
}

func TestDiscordSender(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, NewDiscordSender(srv.URL).Send(context.Background(), "Halt", strings.Repeat("x", 3000)))
	assert.True(t, strings.HasPrefix(got["content"], "**Halt**\n"))
	assert.Equal(t, discordMaxContent, utf8.RuneCountInString(got["content"]))
}

func TestSenderStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad webhook", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewDiscordSender(srv.URL).Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord: unexpected status 400")
}
