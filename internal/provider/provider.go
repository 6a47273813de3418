package provider

import (
	"net/http"
	"strings"
)

// PassthroughConfig is the policy a vendor exposes to the passthrough
// dispatcher. It decides where a request goes and which headers travel
// with it; it never performs the network call.
//
// Implementations must be pure: every method is a function of its
// arguments and the defaults captured at construction.
type PassthroughConfig interface {
	// IsStreamingRequest reports whether the upstream response should be
	// relayed as a stream.
	IsStreamingRequest(endpoint string, body map[string]any) bool

	// CompleteURL returns the fully composed upstream URL and the bare
	// base URL it was built from.
	CompleteURL(apiBase, apiKey, model, endpoint string, query QueryParams, params Params) (completeURL, baseTargetURL string)

	// Models always returns an empty list in passthrough mode. An empty
	// list means enumeration is unsupported, not that no models exist.
	Models(apiKey, apiBase string) []string

	// APIKey resolves the fallback credential. ok is false when none is
	// configured.
	APIKey(explicit string) (key string, ok bool)

	// APIBase resolves the upstream origin.
	APIBase(explicit string) string

	// ForwardPolicy declares which inbound client headers the dispatcher
	// copies onto the upstream request.
	ForwardPolicy() ForwardPolicy

	// ValidateEnvironment prepares the upstream headers after forwarding.
	ValidateEnvironment(headers http.Header, model string, messages []map[string]any, optionalParams map[string]any, params Params, apiKey, apiBase string) http.Header

	// BaseModel strips the provider namespace from a model name.
	BaseModel(model string) string
}

// Params carries gateway-side overrides for a single passthrough call.
// Extra holds anything the gateway config had that the resolver does not
// interpret.
type Params struct {
	APIBase string
	APIKey  string
	Extra   map[string]any
}

// CredentialPolicy selects how a resolver supplies gateway-held keys.
type CredentialPolicy int

const (
	// CredentialFallback injects the resolved key only where the client
	// sent no credential of its own.
	CredentialFallback CredentialPolicy = iota
	// CredentialForwardOnly leaves headers untouched; credentials reach
	// the vendor purely through header forwarding.
	CredentialForwardOnly
)

func (c CredentialPolicy) String() string {
	switch c {
	case CredentialFallback:
		return "fallback"
	case CredentialForwardOnly:
		return "forward_only"
	default:
		return "unknown"
	}
}

// ParseCredentialPolicy maps a config value to a CredentialPolicy.
// Empty selects CredentialFallback.
func ParseCredentialPolicy(s string) (CredentialPolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fallback":
		return CredentialFallback, true
	case "forward_only", "forward-only", "none":
		return CredentialForwardOnly, true
	default:
		return CredentialFallback, false
	}
}

// ForwardMode is the coarse header-forwarding decision.
type ForwardMode int

const (
	ForwardAll       ForwardMode = iota // every client header except hop-by-hop
	ForwardNone                         // no client headers
	ForwardAllowlist                    // only headers named in the allowlist
)

func (m ForwardMode) String() string {
	switch m {
	case ForwardAll:
		return "all"
	case ForwardNone:
		return "none"
	case ForwardAllowlist:
		return "allowlist"
	default:
		return "unknown"
	}
}

// ForwardPolicy describes which client headers reach the upstream.
type ForwardPolicy struct {
	Mode  ForwardMode
	Allow []string // canonicalised header names, used by ForwardAllowlist
}

// ForwardAllHeaders copies every client header verbatim.
func ForwardAllHeaders() ForwardPolicy { return ForwardPolicy{Mode: ForwardAll} }

// ForwardNoHeaders copies nothing from the client.
func ForwardNoHeaders() ForwardPolicy { return ForwardPolicy{Mode: ForwardNone} }

// ForwardHeaders copies only the named headers.
func ForwardHeaders(names ...string) ForwardPolicy {
	allow := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			allow = append(allow, http.CanonicalHeaderKey(n))
		}
	}
	return ForwardPolicy{Mode: ForwardAllowlist, Allow: allow}
}

// ParseForwardPolicy builds a policy from config values.
func ParseForwardPolicy(mode string, allow []string) (ForwardPolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "all":
		return ForwardAllHeaders(), true
	case "none":
		return ForwardNoHeaders(), true
	case "allowlist":
		return ForwardHeaders(allow...), true
	default:
		return ForwardAllHeaders(), false
	}
}

// Allows reports whether the named header may be forwarded.
func (p ForwardPolicy) Allows(name string) bool {
	switch p.Mode {
	case ForwardAll:
		return true
	case ForwardAllowlist:
		name = http.CanonicalHeaderKey(name)
		for _, a := range p.Allow {
			if a == name {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// Filter returns a new header map holding the forwardable subset of src.
// Values are copied, so the result can be mutated without touching src.
func (p ForwardPolicy) Filter(src http.Header) http.Header {
	dst := make(http.Header, len(src))
	for k, vv := range src {
		if !p.Allows(k) {
			continue
		}
		dst[k] = append([]string(nil), vv...)
	}
	return dst
}
