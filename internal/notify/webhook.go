package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// Webhook posts notifications as JSON to a configured URL. Each delivery
// carries a fresh id so receivers can correlate retried HTTP requests.
type Webhook struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

type webhookPayload struct {
	ID      string `json:"id"`
	Target  string `json:"target"`
	Message string `json:"message"`
}

func NewWebhook(logger *slog.Logger, url string) *Webhook {
	return &Webhook{url: url, httpClient: http.DefaultClient, logger: logger}
}

// NewWebhookClient is like NewWebhook with an explicit HTTP client.
func NewWebhookClient(logger *slog.Logger, url string, httpClient *http.Client) *Webhook {
	return &Webhook{url: url, httpClient: httpClient, logger: logger}
}

func (w *Webhook) Notify(ctx context.Context, target, message string) error {
	body, err := json.Marshal(webhookPayload{
		ID:      uuid.New().String(),
		Target:  target,
		Message: message,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}
	w.logger.Debug("Sending webhook", "url", w.url, "target", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook notification failed: %s", resp.Status)
	}
	return nil
}
