package anthropic

import (
	"net/http"
	"strings"

	"github.com/praxisllmlab/passthru/internal/provider"
)

const (
	defaultBaseURL = "https://api.anthropic.com"
	apiVersion     = "2023-06-01"
	modelPrefix    = "anthropic/"

	EnvAPIBase = "ANTHROPIC_API_BASE"
	EnvAPIKey  = "ANTHROPIC_API_KEY"
)

// DefaultBaseURL is the production API origin used when nothing else is
// configured.
func DefaultBaseURL() string { return defaultBaseURL }

// Defaults are the process-wide fallbacks for base URL and key.
type Defaults struct {
	APIBase string
	APIKey  string
}

// DefaultsFromEnv reads each variable once. Call it at startup and pass
// the result to NewPassthrough.
func DefaultsFromEnv(getenv func(string) string) Defaults {
	return Defaults{
		APIBase: getenv(EnvAPIBase),
		APIKey:  getenv(EnvAPIKey),
	}
}

// Passthrough forwards requests to the native Anthropic API. Client
// headers are forwarded so OAuth bearer tokens obtained by the client
// reach Anthropic unmodified.
type Passthrough struct {
	defaults   Defaults
	credential provider.CredentialPolicy
	forward    provider.ForwardPolicy
}

var _ provider.PassthroughConfig = (*Passthrough)(nil)

// Option customises a Passthrough.
type Option func(*Passthrough)

// WithCredentialPolicy overrides the default CredentialFallback policy.
func WithCredentialPolicy(c provider.CredentialPolicy) Option {
	return func(p *Passthrough) { p.credential = c }
}

// WithForwardPolicy overrides the default forward-all policy.
func WithForwardPolicy(f provider.ForwardPolicy) Option {
	return func(p *Passthrough) { p.forward = f }
}

// NewPassthrough returns a resolver using d as its fallback base URL and
// key. Without options it uses CredentialFallback and forwards all headers.
func NewPassthrough(d Defaults, opts ...Option) *Passthrough {
	p := &Passthrough{
		defaults:   d,
		credential: provider.CredentialFallback,
		forward:    provider.ForwardAllHeaders(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// CredentialPolicy reports the configured credential policy.
func (p *Passthrough) CredentialPolicy() provider.CredentialPolicy { return p.credential }

// IsStreamingRequest is driven by the "stream" field of the body. Anything
// other than boolean true means buffered relay.
func (p *Passthrough) IsStreamingRequest(_ string, body map[string]any) bool {
	stream, ok := body["stream"].(bool)
	return ok && stream
}

// CompleteURL joins the resolved base, endpoint and query. The second
// return value is the base alone.
func (p *Passthrough) CompleteURL(apiBase, _, _, endpoint string, query provider.QueryParams, _ provider.Params) (string, string) {
	base := p.APIBase(apiBase)
	return provider.FormatURL(base, endpoint, query), base
}

// Models is always empty; model listing is not offered for Anthropic.
func (p *Passthrough) Models(_, _ string) []string {
	return []string{}
}

// APIKey prefers explicit, then the default key.
func (p *Passthrough) APIKey(explicit string) (string, bool) {
	key := firstNonEmpty(explicit, p.defaults.APIKey)
	return key, key != ""
}

// APIBase is also what CompleteURL uses, so the signing base and the
// request URL always agree.
func (p *Passthrough) APIBase(explicit string) string {
	return firstNonEmpty(explicit, p.defaults.APIBase, defaultBaseURL)
}

// ForwardPolicy reports which client headers travel upstream.
func (p *Passthrough) ForwardPolicy() provider.ForwardPolicy {
	return p.forward
}

// ValidateEnvironment applies the credential policy to headers that have
// already been forwarded from the client.
//
// Under CredentialFallback a resolved key is only written where the client
// left the slot empty: a regular key goes to x-api-key, an OAuth token to
// Authorization. Client credentials are never removed or overwritten. An
// OAuth bearer on the final headers gets the oauth beta flag merged in.
//
// Under CredentialForwardOnly headers are returned untouched.
func (p *Passthrough) ValidateEnvironment(headers http.Header, _ string, _ []map[string]any, _ map[string]any, params provider.Params, apiKey, _ string) http.Header {
	if headers == nil {
		headers = http.Header{}
	}
	if p.credential == provider.CredentialForwardOnly {
		return headers
	}

	if key, ok := p.APIKey(firstNonEmpty(apiKey, params.APIKey)); ok {
		injected := false
		if IsOAuthToken(key) {
			if headers.Get(HeaderAuthorization) == "" {
				headers.Set(HeaderAuthorization, "Bearer "+key)
				injected = true
			}
		} else if headers.Get(HeaderAPIKey) == "" {
			headers.Set(HeaderAPIKey, key)
			injected = true
		}
		if injected && headers.Get(HeaderVersion) == "" {
			headers.Set(HeaderVersion, apiVersion)
		}
	}

	if token, ok := BearerToken(headers); ok && IsOAuthToken(token) {
		MergeBeta(headers, OAuthBetaHeader)
	}
	return headers
}

// BaseModel strips the "anthropic/" namespace. Repeated prefixes are all
// removed so the result is stable under reapplication.
func (p *Passthrough) BaseModel(model string) string {
	for strings.HasPrefix(model, modelPrefix) {
		model = model[len(modelPrefix):]
	}
	return model
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
