package passthrough

import (
	"bytes"
)

// maxPendingLine bounds the partial SSE line kept between reads. A line
// longer than this is dropped from usage accounting but still relayed.
const maxPendingLine = 1 << 20

// sseTap watches a relayed event stream and feeds each "data:" payload to
// a LoggingHandler. It never alters the bytes the client receives.
type sseTap struct {
	handler  LoggingHandler
	usage    Usage
	pending  []byte
	overflow bool
}

func newSSETap(h LoggingHandler) *sseTap {
	return &sseTap{handler: h}
}

// Write consumes a chunk exactly as read from upstream.
func (t *sseTap) Write(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		i := bytes.IndexByte(p, '\n')
		if i < 0 {
			t.buffer(p)
			break
		}
		t.buffer(p[:i])
		t.line()
		p = p[i+1:]
	}
	return n, nil
}

// Close flushes a final line not terminated by a newline.
func (t *sseTap) Close() error {
	if len(t.pending) > 0 {
		t.line()
	}
	return nil
}

func (t *sseTap) buffer(p []byte) {
	if t.overflow {
		return
	}
	if len(t.pending)+len(p) > maxPendingLine {
		t.overflow = true
		t.pending = t.pending[:0]
		return
	}
	t.pending = append(t.pending, p...)
}

func (t *sseTap) line() {
	defer func() {
		t.pending = t.pending[:0]
		t.overflow = false
	}()
	if t.overflow {
		return
	}
	line := bytes.TrimRight(t.pending, "\r")
	data, ok := bytes.CutPrefix(line, []byte("data:"))
	if !ok {
		return
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("[DONE]")) {
		return
	}
	t.handler.ParseStreamEvent(data, &t.usage)
}
