package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	telegramAPI = "https://api.telegram.org"
	// telegramMaxText is the Bot API limit for one message.
	telegramMaxText = 4096
)

// TelegramSender delivers notifications via the Telegram Bot API.
type TelegramSender struct {
	baseURL string
	token   string
	chatID  string
	client  *http.Client
}

// NewTelegramSender creates a TelegramSender for the given bot token and chat.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		baseURL: telegramAPI,
		token:   token,
		chatID:  chatID,
		client:  newHTTPClient(),
	}
}

// Send posts title and message as plain text. Plain text avoids Markdown
// escaping of symbols such as BTC_USDT.
func (t *TelegramSender) Send(ctx context.Context, title, message string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(t.baseURL, "/"), t.token)
	payload := map[string]any{
		"chat_id":                  t.chatID,
		"text":                     truncate(title+"\n"+message, telegramMaxText),
		"disable_web_page_preview": true,
	}
	return postJSON(ctx, t.client, "telegram", url, payload)
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}
