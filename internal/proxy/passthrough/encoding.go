package passthrough

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"strings"
)

const (
	contentEncodingGzip     = "gzip"
	contentEncodingIdentity = "identity"
)

// contentEncoding returns the normalised Content-Encoding of h.
func contentEncoding(h http.Header) string {
	return strings.ToLower(strings.TrimSpace(h.Get("Content-Encoding")))
}

// usageBody returns body with its content coding removed so usage can be
// parsed. The relayed bytes are never touched; a body that cannot be
// decoded yields nil.
func usageBody(encoding string, body []byte) []byte {
	switch encoding {
	case "", contentEncodingIdentity:
		return body
	case contentEncodingGzip:
		zr, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil
		}
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err != nil {
			return nil
		}
		return out
	default:
		return nil
	}
}

// gunzipTap decompresses a gzip stream as it is written and hands the
// plain bytes to next. Decoding errors stop the tap silently; the relay
// itself is unaffected.
type gunzipTap struct {
	pw   *io.PipeWriter
	done chan struct{}
}

func newGunzipTap(next io.Writer) *gunzipTap {
	pr, pw := io.Pipe()
	t := &gunzipTap{pw: pw, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		zr, err := gzip.NewReader(pr)
		if err == nil {
			_, err = io.Copy(next, zr)
			_ = zr.Close()
		}
		_ = pr.CloseWithError(err)
	}()
	return t
}

func (t *gunzipTap) Write(p []byte) (int, error) {
	// A closed reader means decoding ended; keep accepting the relay.
	_, _ = t.pw.Write(p)
	return len(p), nil
}

// Close ends the compressed stream and waits for the decoder to drain.
func (t *gunzipTap) Close() error {
	_ = t.pw.Close()
	<-t.done
	return nil
}
