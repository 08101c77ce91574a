// Package slack posts processing summaries to squad incoming webhooks.
package slack

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/slack-go/slack"
)

// Notifier posts a text message to an incoming webhook.
type Notifier interface {
	Post(ctx context.Context, webhookURL, text string) error
}

type webhookNotifier struct {
	http *http.Client
}

// NewWebhookNotifier returns a Notifier with its own HTTP timeout.
func NewWebhookNotifier(timeout time.Duration) Notifier {
	return &webhookNotifier{http: &http.Client{Timeout: timeout}}
}

func (n *webhookNotifier) Post(ctx context.Context, webhookURL, text string) error {
	if webhookURL == "" {
		return fmt.Errorf("no webhook configured")
	}
	msg := &slack.WebhookMessage{Text: text}
	if err := slack.PostWebhookCustomHTTPContext(ctx, webhookURL, n.http, msg); err != nil {
		return fmt.Errorf("slack webhook: %w", err)
	}
	return nil
}

// SummaryText is the per-site message:
//
//	*loja_x*
//	ROAS: 2,50
//	MC: R$ 150,00
func SummaryText(site, roas, mc string) string {
	return fmt.Sprintf("*%s*\nROAS: %s\nMC: %s", site, roas, mc)
}
