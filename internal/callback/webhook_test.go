package callback

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type webhookBody struct {
	Events []webhookEvent `json:"events"`
}

func TestWebhookCallback_PostsBatch(t *testing.T) {
	var (
		mu      sync.Mutex
		bodies  []webhookBody
		headers []http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var b webhookBody
		_ = json.Unmarshal(raw, &b)
		mu.Lock()
		bodies = append(bodies, b)
		headers = append(headers, r.Header.Clone())
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhookCallback(srv.URL, map[string]string{"X-Hook-Token": "secret"}, 2, time.Hour)
	defer w.Stop()
	end := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	w.LogSuccess(LogData{
		CallID:           "c1",
		Provider:         "anthropic",
		Model:            "claude-3-haiku",
		Endpoint:         "/v1/messages",
		StatusCode:       200,
		PromptTokens:     3,
		CompletionTokens: 4,
		TotalTokens:      7,
		Latency:          1500 * time.Millisecond,
		EndTime:          end,
	})
	w.LogFailure(LogData{
		CallID:     "c2",
		Provider:   "anthropic",
		StatusCode: 502,
		Error:      errors.New("upstream request failed"),
		EndTime:    end,
	})

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, bodies, 1, "second event fills the batch and flushes synchronously")
	require.Len(t, bodies[0].Events, 2)

	ok := bodies[0].Events[0]
	assert.Equal(t, "passthrough.success", ok.Event)
	assert.Equal(t, "c1", ok.CallID)
	assert.Equal(t, 7, ok.TotalTokens)
	assert.InDelta(t, 1.5, ok.Latency, 1e-9)
	assert.Equal(t, "2026-01-02T03:04:05Z", ok.Timestamp)

	fail := bodies[0].Events[1]
	assert.Equal(t, "passthrough.failure", fail.Event)
	assert.Equal(t, "upstream request failed", fail.Error)
	assert.Equal(t, 502, fail.StatusCode)

	assert.Equal(t, "secret", headers[0].Get("X-Hook-Token"))
	assert.Equal(t, "application/json", headers[0].Get("Content-Type"))
}

func TestWebhookCallback_StopDrains(t *testing.T) {
	var (
		mu    sync.Mutex
		count int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var b webhookBody
		_ = json.NewDecoder(r.Body).Decode(&b)
		mu.Lock()
		count += len(b.Events)
		mu.Unlock()
	}))
	defer srv.Close()

	w := NewWebhookCallback(srv.URL, nil, 100, time.Hour)
	w.Start()
	w.LogSuccess(LogData{CallID: "a"})
	w.LogSuccess(LogData{CallID: "b"})
	assert.Equal(t, 2, w.QueueLen())

	w.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, count)
}

func TestWebhookCallback_PostErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWebhookCallback(srv.URL, nil, 10, time.Hour)
	defer w.Stop()

	err := w.post([]LogData{{CallID: "x"}})
	assert.ErrorContains(t, err, "status 500")
}
