package callback

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogCallback writes one structured line per passthrough call.
type LogCallback struct {
	logger zerolog.Logger
}

// NewLogCallback uses the global zerolog logger.
func NewLogCallback() *LogCallback {
	return &LogCallback{logger: log.Logger}
}

// NewLogCallbackWith logs to l instead of the global logger.
func NewLogCallbackWith(l zerolog.Logger) *LogCallback {
	return &LogCallback{logger: l}
}

func (c *LogCallback) LogSuccess(data LogData) {
	c.event(c.logger.Info(), data).Msg("passthrough call")
}

func (c *LogCallback) LogFailure(data LogData) {
	c.event(c.logger.Warn(), data).Err(data.Error).Msg("passthrough call failed")
}

func (c *LogCallback) event(e *zerolog.Event, data LogData) *zerolog.Event {
	return e.
		Str("call_id", data.CallID).
		Str("provider", data.Provider).
		Str("model", data.Model).
		Str("endpoint", data.Endpoint).
		Int("status", data.StatusCode).
		Bool("stream", data.Stream).
		Dur("latency", data.Latency).
		Int("prompt_tokens", data.PromptTokens).
		Int("completion_tokens", data.CompletionTokens)
}
