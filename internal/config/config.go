package config

// ProxyConfig represents the top-level proxy_config.yaml structure.
type ProxyConfig struct {
	GeneralSettings      GeneralSettings       `yaml:"general_settings"`
	PassThroughEndpoints []PassThroughEndpoint `yaml:"pass_through_endpoints,omitempty"`
	EnvironmentVariables map[string]string     `yaml:"environment_variables,omitempty"`

	// Metrics configuration.
	Metrics MetricsConfig `yaml:"metrics,omitempty"`

	// Callbacks are extra per-call sinks beyond the built-in log line.
	Callbacks []CallbackConfig `yaml:"callbacks,omitempty"`

	// Overflow captures any unknown top-level YAML fields so configs
	// written for other gateways still load.
	Overflow map[string]any `yaml:",inline"`
}

// GeneralSettings holds server-wide settings.
type GeneralSettings struct {
	Port     int    `yaml:"port"`
	RedisURL string `yaml:"redis_url,omitempty"`

	// MaxRequestBodyBytes bounds the body read before forwarding.
	MaxRequestBodyBytes int64 `yaml:"max_request_body_bytes,omitempty"`
	// UpstreamTimeout is the per-request upstream timeout in seconds.
	// Zero leaves the request bound only by the client connection.
	UpstreamTimeout int `yaml:"upstream_timeout,omitempty"`

	JSONLogs bool   `yaml:"json_logs"`
	LogLevel string `yaml:"log_level,omitempty"`

	// DisableBuiltinEndpoints drops the built-in /anthropic route so only
	// pass_through_endpoints are served.
	DisableBuiltinEndpoints bool `yaml:"disable_builtin_endpoints"`

	Overflow map[string]any `yaml:",inline"`
}

// PassThroughEndpoint defines a pass-through route to a vendor API.
type PassThroughEndpoint struct {
	Path     string `yaml:"path"`
	Provider string `yaml:"provider"`

	// Target overrides the provider's default upstream origin.
	Target string `yaml:"target,omitempty"`
	APIKey string `yaml:"api_key,omitempty"`

	// ForwardHeaders is one of all, none, allowlist.
	ForwardHeaders string   `yaml:"forward_headers,omitempty"`
	AllowedHeaders []string `yaml:"allowed_headers,omitempty"`

	// CredentialPolicy is one of fallback, forward_only.
	CredentialPolicy string `yaml:"credential_policy,omitempty"`

	// Headers are static headers added when the request lacks them.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Overflow captures pass-through-specific fields.
	Overflow map[string]any `yaml:",inline"`
}

// MetricsConfig controls the Prometheus metrics exporter.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// CallbackConfig configures one callback sink.
type CallbackConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`

	// BatchSize and FlushInterval (seconds) tune batching sinks.
	BatchSize     int `yaml:"batch_size,omitempty"`
	FlushInterval int `yaml:"flush_interval,omitempty"`
}
