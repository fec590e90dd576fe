package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"analytics_framework/internal/analytics"
	"analytics_framework/internal/format"
)

// Webhook posts run-completion summaries to a configured URL. A zero URL
// disables delivery, so callers can invoke it unconditionally.
type Webhook struct {
	url    string
	client *http.Client
}

func NewWebhook(url string, client *http.Client) *Webhook {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Webhook{url: url, client: client}
}

func (w *Webhook) Enabled() bool { return w.url != "" }

// SendRunCompleted posts a short text plus the full run result.
func (w *Webhook) SendRunCompleted(ctx context.Context, ev analytics.RunCompleted) error {
	if !w.Enabled() {
		return nil
	}
	text := fmt.Sprintf("analytics run for %s: %d processed, %d skipped, %d failed",
		ev.TargetDate, ev.Result.Processed, ev.Result.Skipped, ev.Result.Failed)
	if ev.Result.Status == analytics.RunStatusFailed {
		text = fmt.Sprintf("analytics run for %s FAILED: %s", ev.TargetDate, ev.Result.Error)
	} else {
		text += fmt.Sprintf(", duration %s", format.Minutes(ev.Result.DurationSeconds/60))
	}

	payload := map[string]any{"text": text, "run": ev.Result}
	buf, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook status %d", resp.StatusCode)
	}
	return nil
}
