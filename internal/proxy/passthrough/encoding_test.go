package passthrough

import (
	"bytes"
	"compress/gzip"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxisllmlab/passthru/internal/provider/anthropic"
)

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestRouter_GzipBufferedUsageLogged(t *testing.T) {
	payload := gzipBytes(t, `{"id":"msg_1","usage":{"input_tokens":5,"output_tokens":7}}`)
	rec := &upstream{}
	backend := newBackend(t, rec, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(payload)
	})
	rt, logs := newTestRouter(t, backend.URL, anthropic.NewPassthrough(anthropic.Defaults{}), Options{})

	req := httptest.NewRequest(http.MethodPost, "/anthropic/v1/messages",
		strings.NewReader(`{"model":"claude-3-haiku"}`))
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	w := httptest.NewRecorder()
	rt.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip, deflate", rec.snapshot().header.Get("Accept-Encoding"))
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	assert.Equal(t, payload, w.Body.Bytes(), "client must receive the compressed bytes unchanged")

	require.Len(t, logs.success, 1)
	assert.Equal(t, 5, logs.success[0].PromptTokens)
	assert.Equal(t, 7, logs.success[0].CompletionTokens)
	assert.Equal(t, 12, logs.success[0].TotalTokens)
}

func TestRouter_GzipStreamUsageLogged(t *testing.T) {
	events := "event: message_start\n" +
		`data: {"type":"message_start","message":{"usage":{"input_tokens":11,"output_tokens":1}}}` + "\n\n" +
		"event: message_delta\n" +
		`data: {"type":"message_delta","usage":{"output_tokens":9}}` + "\n\n"
	payload := gzipBytes(t, events)

	rec := &upstream{}
	backend := newBackend(t, rec, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Content-Encoding", "gzip")
		flusher := w.(http.Flusher)
		half := len(payload) / 2
		_, _ = w.Write(payload[:half])
		flusher.Flush()
		_, _ = w.Write(payload[half:])
	})
	rt, logs := newTestRouter(t, backend.URL, anthropic.NewPassthrough(anthropic.Defaults{}), Options{})

	req := httptest.NewRequest(http.MethodPost, "/anthropic/v1/messages",
		strings.NewReader(`{"model":"claude-3-5-sonnet","stream":true}`))
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	rt.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, payload, w.Body.Bytes())

	require.Len(t, logs.success, 1)
	assert.Equal(t, 11, logs.success[0].PromptTokens)
	assert.Equal(t, 9, logs.success[0].CompletionTokens)
}

func TestRouter_UnknownEncodingRelayedWithoutUsage(t *testing.T) {
	rec := &upstream{}
	backend := newBackend(t, rec, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Encoding", "br")
		_, _ = w.Write([]byte("\x1b\x00opaque"))
	})
	rt, logs := newTestRouter(t, backend.URL, anthropic.NewPassthrough(anthropic.Defaults{}), Options{})

	req := httptest.NewRequest(http.MethodPost, "/anthropic/v1/messages", nil)
	req.Header.Set("Accept-Encoding", "br")
	w := httptest.NewRecorder()
	rt.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "\x1b\x00opaque", w.Body.String())
	require.Len(t, logs.success, 1)
	assert.Zero(t, logs.success[0].TotalTokens)
}

func TestUsageBody(t *testing.T) {
	plain := `{"usage":{"input_tokens":1}}`
	assert.Equal(t, []byte(plain), usageBody("", []byte(plain)))
	assert.Equal(t, []byte(plain), usageBody("identity", []byte(plain)))
	assert.Equal(t, []byte(plain), usageBody("gzip", gzipBytes(t, plain)))
	assert.Nil(t, usageBody("gzip", []byte("not gzip")))
	assert.Nil(t, usageBody("br", []byte(plain)))
}

func TestContentEncoding(t *testing.T) {
	h := http.Header{}
	assert.Equal(t, "", contentEncoding(h))
	h.Set("Content-Encoding", " GZIP ")
	assert.Equal(t, "gzip", contentEncoding(h))
}

type lineCollector struct{ buf bytes.Buffer }

func (c *lineCollector) Write(p []byte) (int, error) { return c.buf.Write(p) }

func TestGunzipTap(t *testing.T) {
	payload := gzipBytes(t, "data: one\n\ndata: two\n\n")
	out := &lineCollector{}
	tap := newGunzipTap(out)
	for _, b := range payload {
		n, err := tap.Write([]byte{b})
		require.NoError(t, err)
		require.Equal(t, 1, n)
	}
	require.NoError(t, tap.Close())
	assert.Equal(t, "data: one\n\ndata: two\n\n", out.buf.String())
}

func TestGunzipTap_GarbageIsIgnored(t *testing.T) {
	out := &lineCollector{}
	tap := newGunzipTap(out)
	n, err := tap.Write([]byte("definitely not gzip, but long enough to fill a header"))
	assert.NoError(t, err)
	assert.Equal(t, 53, n)
	n, err = tap.Write([]byte("more"))
	assert.NoError(t, err)
	assert.Equal(t, 4, n)
	require.NoError(t, tap.Close())
	assert.Zero(t, out.buf.Len())
}
