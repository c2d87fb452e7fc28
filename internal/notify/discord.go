package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Embed sidebar colors per severity: green, amber, red.
var discordColors = map[Severity]int{
	SeverityInfo:     0x2ecc71,
	SeverityWarning:  0xf1c40f,
	SeverityCritical: 0xe74c3c,
}

// DiscordSender delivers engine events via a Discord webhook.
type DiscordSender struct {
	webhookURL string
	client     *http.Client
}

// NewDiscordSender creates a sender for the given webhook URL.
func NewDiscordSender(webhookURL string) *DiscordSender {
	return &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the event as a Discord embed, colored by severity, with the
// event type in the footer so alerts remain filterable in the channel.
func (d *DiscordSender) Send(ctx context.Context, ev Event) error {
	payload := map[string]any{
		"embeds": []map[string]any{{
			"title":       ev.Title,
			"description": ev.Body,
			"color":       discordColors[ev.Severity],
			"footer":      map[string]string{"text": ev.Type},
		}},
	}
	if err := postJSON(ctx, d.client, d.webhookURL, payload); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (d *DiscordSender) Name() string {
	return "discord"
}
