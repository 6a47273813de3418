package provider

import (
	"net/url"
	"strings"
)

// QueryParam is a single key/value pair of a query string. Raw holds the
// client's original text for pairs that cannot be re-encoded faithfully
// (bad escapes, bare keys); Encode writes it back unchanged.
type QueryParam struct {
	Key   string
	Value string
	Raw   string
}

// QueryParams is an ordered query string. Order is preserved from the
// input so composed URLs are deterministic.
type QueryParams []QueryParam

// ParseQuery splits a raw query string keeping the original pair order.
// Pairs with invalid escapes, and keys without '=', keep their raw text.
func ParseQuery(raw string) QueryParams {
	if raw == "" {
		return nil
	}
	var q QueryParams
	for _, part := range strings.Split(raw, "&") {
		if part == "" {
			continue
		}
		k, v, hasValue := strings.Cut(part, "=")
		uk, kerr := url.QueryUnescape(k)
		uv, verr := url.QueryUnescape(v)
		p := QueryParam{Key: k, Value: v}
		if kerr == nil {
			p.Key = uk
		}
		if verr == nil {
			p.Value = uv
		}
		if kerr != nil || verr != nil || !hasValue {
			p.Raw = part
		}
		q = append(q, p)
	}
	return q
}

// Get returns the first value for key.
func (q QueryParams) Get(key string) (string, bool) {
	for _, p := range q {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Encode renders the pairs as key=value joined by '&', in order. Pairs
// carrying Raw text are written verbatim.
func (q QueryParams) Encode() string {
	if len(q) == 0 {
		return ""
	}
	var b strings.Builder
	for i, p := range q {
		if i > 0 {
			b.WriteByte('&')
		}
		if p.Raw != "" {
			b.WriteString(p.Raw)
			continue
		}
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
	}
	return b.String()
}

// NormalizeEndpoint guarantees a leading path separator.
func NormalizeEndpoint(endpoint string) string {
	if !strings.HasPrefix(endpoint, "/") {
		return "/" + endpoint
	}
	return endpoint
}

// FormatURL joins base, endpoint and query. Trailing slashes on base are
// dropped so the join never doubles the separator; anything else in base is
// used verbatim, validating it is the transport's job.
func FormatURL(base, endpoint string, q QueryParams) string {
	u := strings.TrimRight(base, "/") + NormalizeEndpoint(endpoint)
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}
