package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const webhookTimeout = 5 * time.Second

// WebhookCallback posts batches of call records to an HTTP endpoint.
type WebhookCallback struct {
	*BatchLogger
	url     string
	client  *http.Client
	headers map[string]string
}

// NewWebhookCallback creates a webhook callback. Call Start to enable
// periodic flushing and Stop to drain the queue.
func NewWebhookCallback(url string, headers map[string]string, batchSize int, interval time.Duration) *WebhookCallback {
	w := &WebhookCallback{
		url:     url,
		client:  &http.Client{Timeout: webhookTimeout},
		headers: headers,
	}
	w.BatchLogger = NewBatchLogger(w.post, batchSize, interval)
	return w
}

type webhookEvent struct {
	Event            string  `json:"event"`
	CallID           string  `json:"call_id"`
	Provider         string  `json:"provider"`
	Model            string  `json:"model,omitempty"`
	Endpoint         string  `json:"endpoint"`
	StatusCode       int     `json:"status_code"`
	Stream           bool    `json:"stream"`
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Latency          float64 `json:"latency_seconds"`
	Error            string  `json:"error,omitempty"`
	Timestamp        string  `json:"timestamp"`
}

func toWebhookEvent(data LogData) webhookEvent {
	ev := webhookEvent{
		Event:            "passthrough.success",
		CallID:           data.CallID,
		Provider:         data.Provider,
		Model:            data.Model,
		Endpoint:         data.Endpoint,
		StatusCode:       data.StatusCode,
		Stream:           data.Stream,
		PromptTokens:     data.PromptTokens,
		CompletionTokens: data.CompletionTokens,
		TotalTokens:      data.TotalTokens,
		Latency:          data.Latency.Seconds(),
		Timestamp:        data.EndTime.UTC().Format(time.RFC3339),
	}
	if data.Error != nil {
		ev.Event = "passthrough.failure"
		ev.Error = data.Error.Error()
	}
	return ev
}

func (w *WebhookCallback) post(batch []LogData) error {
	events := make([]webhookEvent, len(batch))
	for i, d := range batch {
		events[i] = toWebhookEvent(d)
	}
	body, err := json.Marshal(map[string]any{"events": events})
	if err != nil {
		return fmt.Errorf("webhook marshal: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
