package anthropic

import (
	"net/http"
	"strings"
)

const (
	OAuthTokenPrefix = "sk-ant-oat"
	OAuthBetaHeader  = "oauth-2025-04-20"
)

// Wire header names. Anthropic accepts either x-api-key or an OAuth bearer
// in Authorization; the latter also needs the oauth beta flag.
const (
	HeaderAuthorization = "Authorization"
	HeaderAPIKey        = "x-api-key"
	HeaderBeta          = "anthropic-beta"
	HeaderVersion       = "anthropic-version"
)

// IsOAuthToken checks if the API key is an Anthropic OAuth token.
func IsOAuthToken(apiKey string) bool {
	return strings.HasPrefix(apiKey, OAuthTokenPrefix)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(h http.Header) (string, bool) {
	auth := strings.TrimSpace(h.Get(HeaderAuthorization))
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(auth[7:])
	return token, token != ""
}

// MergeBeta adds flag to anthropic-beta, keeping every value already
// present. A flag that is already listed is not added twice.
func MergeBeta(h http.Header, flag string) {
	existing := h.Values(HeaderBeta)
	var parts []string
	for _, v := range existing {
		for _, p := range strings.Split(v, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if p == flag {
				return
			}
			parts = append(parts, p)
		}
	}
	h.Set(HeaderBeta, strings.Join(append(parts, flag), ","))
}
