package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"btg-funds/internal/core/services"
)

// Webhook POSTs each notification as JSON to a fixed URL
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a webhook notifier
func NewWebhook(url string, client *http.Client) *Webhook {
	if client == nil {
		client = http.DefaultClient
	}
	return &Webhook{url: url, client: client}
}

func (w *Webhook) Name() string { return "webhook" }

type webhookPayload struct {
	services.Notification
	Text string `json:"text"`
}

// Send posts the notification; any non-2xx status is an error
func (w *Webhook) Send(ctx context.Context, n services.Notification) error {
	body, err := json.Marshal(webhookPayload{Notification: n, Text: n.Text()})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return nil
}
