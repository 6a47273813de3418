package config

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/praxisllmlab/passthru/internal/callback"
	"github.com/praxisllmlab/passthru/internal/provider"
)

// ReservedPathPrefix is served by the proxy itself; pass-through endpoints
// at or below it would never be reached.
const ReservedPathPrefix = "/health"

func isReservedPath(p string) bool {
	p = NormalizePath(p)
	return p == ReservedPathPrefix || strings.HasPrefix(p, ReservedPathPrefix+"/")
}

// Validate checks the config. Unknown fields are logged and ignored;
// invalid values are returned as a joined error.
func Validate(cfg *ProxyConfig) error {
	warnOverflow("config", cfg.Overflow)
	warnOverflow("general_settings", cfg.GeneralSettings.Overflow)

	var errs []error
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.GeneralSettings.LogLevel)); err != nil {
		errs = append(errs, fmt.Errorf("general_settings.log_level: %q is not a log level", cfg.GeneralSettings.LogLevel))
	}
	if cfg.GeneralSettings.UpstreamTimeout < 0 {
		errs = append(errs, errors.New("general_settings.upstream_timeout: must not be negative"))
	}

	for i, cb := range cfg.Callbacks {
		if !slices.Contains(callback.Types, cb.Type) {
			errs = append(errs, fmt.Errorf("callbacks[%d]: unknown type %q", i, cb.Type))
		}
		if cb.Type == "webhook" && cb.URL == "" {
			errs = append(errs, fmt.Errorf("callbacks[%d]: webhook needs url", i))
		}
		if cb.Type == "redis_usage" && cfg.GeneralSettings.RedisURL == "" {
			errs = append(errs, fmt.Errorf("callbacks[%d]: redis_usage needs general_settings.redis_url", i))
		}
	}

	seen := make(map[string]int, len(cfg.PassThroughEndpoints))
	for i, p := range cfg.PassThroughEndpoints {
		section := fmt.Sprintf("pass_through_endpoints[%d](%s)", i, p.Path)
		warnOverflow(section, p.Overflow)

		if p.Path == "" {
			errs = append(errs, fmt.Errorf("%s: path is required", section))
		} else if isReservedPath(p.Path) {
			errs = append(errs, fmt.Errorf("%s: path %s is reserved for health checks", section, ReservedPathPrefix))
		} else if prev, dup := seen[p.Path]; dup {
			errs = append(errs, fmt.Errorf("%s: path duplicates pass_through_endpoints[%d]", section, prev))
		} else {
			seen[p.Path] = i
		}

		fwd, ok := provider.ParseForwardPolicy(p.ForwardHeaders, p.AllowedHeaders)
		if !ok {
			errs = append(errs, fmt.Errorf("%s: forward_headers %q must be all, none or allowlist", section, p.ForwardHeaders))
		} else if fwd.Mode == provider.ForwardAllowlist && len(fwd.Allow) == 0 {
			errs = append(errs, fmt.Errorf("%s: forward_headers allowlist needs allowed_headers", section))
		}
		if _, ok := provider.ParseCredentialPolicy(p.CredentialPolicy); !ok {
			errs = append(errs, fmt.Errorf("%s: credential_policy %q must be fallback or forward_only", section, p.CredentialPolicy))
		}
	}
	return errors.Join(errs...)
}

func warnOverflow(section string, overflow map[string]any) {
	if len(overflow) == 0 {
		return
	}
	keys := make([]string, 0, len(overflow))
	for k := range overflow {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		log.Warn().Str("section", section).Str("field", k).Msg("unrecognized config field ignored")
	}
}
