package passthrough

import (
	"net/http"
	"strings"

	"github.com/praxisllmlab/passthru/internal/provider"
)

// hopHeaders are connection-scoped and never cross the proxy, whatever
// the forward policy says.
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// requestOnlyHeaders are recomputed by the outbound client.
var requestOnlyHeaders = []string{"Host", "Content-Length"}

// forwardHeaders copies the client headers the policy admits onto a new
// header map and strips hop-by-hop fields.
func forwardHeaders(policy provider.ForwardPolicy, src http.Header) http.Header {
	dst := policy.Filter(src)
	removeHopHeaders(dst, src)
	for _, h := range requestOnlyHeaders {
		dst.Del(h)
	}
	return dst
}

// copyResponseHeaders relays upstream response headers to the client.
// Content-Length is left to the server since the body is rewritten.
func copyResponseHeaders(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
	removeHopHeaders(dst, src)
	dst.Del("Content-Length")
}

// removeHopHeaders deletes the fixed hop-by-hop set plus any header named
// in the Connection field of orig.
func removeHopHeaders(h, orig http.Header) {
	for _, f := range orig.Values("Connection") {
		for _, name := range strings.Split(f, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
}

// addStaticHeaders sets configured endpoint headers that the request does
// not already carry.
func addStaticHeaders(h http.Header, static map[string]string) {
	for k, v := range static {
		if v == "" || h.Get(k) != "" {
			continue
		}
		h.Set(k, v)
	}
}
