package callback

import (
	"fmt"
	"time"
)

// Spec describes one configured callback.
type Spec struct {
	Type          string
	URL           string
	Headers       map[string]string
	BatchSize     int
	FlushInterval time.Duration
}

// Types lists the callback types NewFromConfig understands.
var Types = []string{"log", "prometheus", "redis_usage", "webhook"}

// NewFromConfig creates a CustomLogger from a Spec. rdb is only consulted
// for redis_usage. Batching loggers are returned already started; stop
// them through the Stopper interface.
func NewFromConfig(spec Spec, rdb UsageStore) (CustomLogger, error) {
	switch spec.Type {
	case "log":
		return NewLogCallback(), nil
	case "prometheus":
		return NewPrometheusCallback(), nil
	case "redis_usage":
		if rdb == nil {
			return nil, fmt.Errorf("callback redis_usage: general_settings.redis_url is not set")
		}
		return NewRedisUsageCallback(rdb), nil
	case "webhook":
		if spec.URL == "" {
			return nil, fmt.Errorf("callback webhook: url is required")
		}
		w := NewWebhookCallback(spec.URL, spec.Headers, spec.BatchSize, spec.FlushInterval)
		w.Start()
		return w, nil
	default:
		return nil, fmt.Errorf("unknown callback type: %q", spec.Type)
	}
}

// Stopper is implemented by callbacks holding background resources.
type Stopper interface {
	Stop()
}
