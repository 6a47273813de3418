package passthrough

import (
	"github.com/tidwall/gjson"
)

// Usage is the token accounting observed on one upstream response.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// LoggingHandler extracts usage/metadata from provider-specific responses.
type LoggingHandler interface {
	// ParseUsage extracts token usage from a buffered response body.
	ParseUsage(body []byte) (promptTokens, completionTokens int)
	// ParseStreamEvent folds one SSE data payload into u.
	ParseStreamEvent(data []byte, u *Usage)
	// ProviderName returns the name of this provider.
	ProviderName() string
}

// BaseLoggingHandler is a no-op logging handler for providers without
// specific usage parsing.
type BaseLoggingHandler struct {
	Name string
}

func (h *BaseLoggingHandler) ParseUsage(_ []byte) (int, int)      { return 0, 0 }
func (h *BaseLoggingHandler) ParseStreamEvent(_ []byte, _ *Usage) {}
func (h *BaseLoggingHandler) ProviderName() string                { return h.Name }

// AnthropicLoggingHandler extracts usage from Messages API responses.
type AnthropicLoggingHandler struct{}

func (h *AnthropicLoggingHandler) ProviderName() string { return "anthropic" }

func (h *AnthropicLoggingHandler) ParseUsage(body []byte) (int, int) {
	if !gjson.ValidBytes(body) {
		return 0, 0
	}
	usage := gjson.GetBytes(body, "usage")
	return int(usage.Get("input_tokens").Int()), int(usage.Get("output_tokens").Int())
}

// ParseStreamEvent reads message_start for the prompt count and
// message_delta for the running output count. message_delta carries a
// cumulative total, so it replaces rather than adds.
func (h *AnthropicLoggingHandler) ParseStreamEvent(data []byte, u *Usage) {
	if !gjson.ValidBytes(data) {
		return
	}
	ev := gjson.ParseBytes(data)
	switch ev.Get("type").String() {
	case "message_start":
		usage := ev.Get("message.usage")
		u.PromptTokens = int(usage.Get("input_tokens").Int())
		u.CompletionTokens = int(usage.Get("output_tokens").Int())
	case "message_delta":
		usage := ev.Get("usage")
		if in := usage.Get("input_tokens"); in.Exists() && in.Int() > 0 {
			u.PromptTokens = int(in.Int())
		}
		if out := usage.Get("output_tokens"); out.Exists() {
			u.CompletionTokens = int(out.Int())
		}
	}
}
