package anthropic

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsOAuthToken(t *testing.T) {
	tests := []struct {
		name   string
		apiKey string
		want   bool
	}{
		{"oauth token", "sk-ant-oat01-abc123", true},
		{"oauth prefix exact", "sk-ant-oat", true},
		{"regular key", "sk-ant-api03-abc123", false},
		{"empty string", "", false},
		{"almost matching", "sk-ant-oa", false},
		{"different prefix", "sk-ant-xyz", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsOAuthToken(tt.apiKey))
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
		wantOK bool
	}{
		{"bearer", "Bearer tok123", "tok123", true},
		{"lowercase scheme", "bearer tok123", "tok123", true},
		{"padded", "  Bearer   tok123  ", "tok123", true},
		{"basic", "Basic dXNlcjpwYXNz", "", false},
		{"scheme only", "Bearer ", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.header != "" {
				h.Set("Authorization", tt.header)
			}
			got, ok := BearerToken(h)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// MergeBeta must keep existing beta flags rather than overwrite them.
func TestMergeBeta_PreservesExisting(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderBeta, "prompt-caching-2024-07-31")

	MergeBeta(h, OAuthBetaHeader)

	assert.Equal(t, "prompt-caching-2024-07-31,"+OAuthBetaHeader, h.Get(HeaderBeta))
}

func TestMergeBeta_NoPriorHeader(t *testing.T) {
	h := http.Header{}
	MergeBeta(h, OAuthBetaHeader)

	values := h.Values(HeaderBeta)
	assert.Len(t, values, 1, "should have exactly one beta header value")
	assert.Equal(t, OAuthBetaHeader, values[0])
}

func TestMergeBeta_AlreadyPresent(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderBeta, "a, "+OAuthBetaHeader)

	MergeBeta(h, OAuthBetaHeader)

	assert.Equal(t, "a, "+OAuthBetaHeader, h.Get(HeaderBeta), "header must be left untouched")
}

func TestMergeBeta_MultipleHeaderLines(t *testing.T) {
	h := http.Header{}
	h.Add(HeaderBeta, "a")
	h.Add(HeaderBeta, "b,c")

	MergeBeta(h, OAuthBetaHeader)

	assert.Equal(t, []string{"a,b,c," + OAuthBetaHeader}, h.Values(HeaderBeta))
}
