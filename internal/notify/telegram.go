package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// TelegramSender delivers engine events via the Telegram Bot API.
type TelegramSender struct {
	token  string
	chatID string
	client *http.Client
}

// NewTelegramSender creates a sender for the given bot token and chat ID.
func NewTelegramSender(token, chatID string) *TelegramSender {
	return &TelegramSender{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts the event to the configured chat. Warnings and criticals carry
// an upper-case severity prefix so they stand out in the message stream, and
// the event type rides along as a hashtag for Telegram's chat search.
func (t *TelegramSender) Send(ctx context.Context, ev Event) error {
	text := fmt.Sprintf("*%s*\n%s\n#%s", ev.Title, ev.Body, ev.Type)
	if ev.Severity != SeverityInfo {
		text = fmt.Sprintf("[%s] %s", strings.ToUpper(ev.Severity.String()), text)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.token)
	payload := map[string]string{
		"chat_id":    t.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	}
	if err := postJSON(ctx, t.client, url, payload); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}

// Name returns the sender identifier.
func (t *TelegramSender) Name() string {
	return "telegram"
}
