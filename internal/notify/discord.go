package notify

import (
	"context"
	"fmt"
	"net/http"
)

// discordMaxContent is the webhook limit for message content.
const discordMaxContent = 2000

// DiscordSender delivers notifications via a Discord webhook.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a DiscordSender for the given webhook URL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     newHTTPClient(),
	}
}

// Send posts to the webhook with the title in bold. Discord answers 204.
func (d *DiscordSender) Send(ctx context.Context, title, message string) error {
	content := truncate(fmt.Sprintf("**%s**\n%s", title, message), discordMaxContent)
	return postJSON(ctx, d.client, "discord", d.webhookURL, map[string]string{"content": content})
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}
