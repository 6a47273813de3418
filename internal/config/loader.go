package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort                = 4000
	defaultMaxRequestBodyBytes = 32 << 20
	defaultProvider            = "anthropic"
)

// Load reads a proxy_config.yaml file and returns a ProxyConfig
// with all environment variables resolved.
func Load(path string) (*ProxyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML config bytes and applies env resolution, defaults
// and validation.
func Parse(data []byte) (*ProxyConfig, error) {
	var cfg ProxyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}

	applyEnvironmentVariables(&cfg)
	resolveEnvVars(&cfg)
	setDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no config file exists.
func Default() *ProxyConfig {
	cfg := &ProxyConfig{}
	setDefaults(cfg)
	return cfg
}

// applyEnvironmentVariables sets OS env vars from the config's
// environment_variables section. This runs before provider defaults are
// read, so it can supply ANTHROPIC_API_BASE and friends.
func applyEnvironmentVariables(cfg *ProxyConfig) {
	for k, v := range cfg.EnvironmentVariables {
		os.Setenv(k, ResolveEnvVar(v))
	}
}

func resolveEnvVars(cfg *ProxyConfig) {
	cfg.GeneralSettings.RedisURL = ResolveEnvVar(cfg.GeneralSettings.RedisURL)

	for i := range cfg.Callbacks {
		cb := &cfg.Callbacks[i]
		cb.URL = ResolveEnvVar(cb.URL)
		for k, v := range cb.Headers {
			cb.Headers[k] = ResolveEnvVar(v)
		}
	}

	for i := range cfg.PassThroughEndpoints {
		ep := &cfg.PassThroughEndpoints[i]
		ep.Target = ResolveEnvVar(ep.Target)
		ep.APIKey = ResolveEnvVar(ep.APIKey)
		for k, v := range ep.Headers {
			ep.Headers[k] = ResolveEnvVar(v)
		}
	}
}

func setDefaults(cfg *ProxyConfig) {
	if cfg.GeneralSettings.Port == 0 {
		cfg.GeneralSettings.Port = defaultPort
	}
	if cfg.GeneralSettings.MaxRequestBodyBytes <= 0 {
		cfg.GeneralSettings.MaxRequestBodyBytes = defaultMaxRequestBodyBytes
	}
	if cfg.GeneralSettings.LogLevel == "" {
		cfg.GeneralSettings.LogLevel = "info"
	}
	for i := range cfg.PassThroughEndpoints {
		ep := &cfg.PassThroughEndpoints[i]
		ep.Path = NormalizePath(ep.Path)
		if ep.Provider == "" {
			ep.Provider = defaultProvider
		}
	}
}

// NormalizePath gives a route prefix exactly one leading slash and no
// trailing slash.
func NormalizePath(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return ""
	}
	return "/" + p
}
