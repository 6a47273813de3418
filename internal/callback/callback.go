package callback

import (
	"time"
)

// LogData holds everything observed about one passthrough call.
type LogData struct {
	CallID           string
	Model            string
	Provider         string
	Endpoint         string
	UpstreamURL      string
	StatusCode       int
	Stream           bool
	Error            error
	StartTime        time.Time
	EndTime          time.Time
	Latency          time.Duration
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CustomLogger is the interface for observability callbacks.
type CustomLogger interface {
	LogSuccess(data LogData)
	LogFailure(data LogData)
}
