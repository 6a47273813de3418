package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/praxisllmlab/passthru/internal/provider"
	"github.com/praxisllmlab/passthru/internal/provider/anthropic"
)

type resolveOptions struct {
	provider         string
	model            string
	endpoint         string
	apiBase          string
	apiKey           string
	query            string
	body             string
	headers          []string
	credentialPolicy string
	forwardHeaders   string
	allowedHeaders   []string
	showSecrets      bool
}

func newResolveCmd() *cobra.Command {
	var o resolveOptions
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show where a passthrough request would go and with which headers",
		Long: "resolve runs the provider resolver without sending anything: it prints the " +
			"complete upstream URL, the base URL, the API base, the base model and the " +
			"headers the gateway would send.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()
			setupLogging(rootLogLevel, false)
			return runResolve(cmd.OutOrStdout(), o, os.Getenv)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.provider, "provider", "anthropic", "Provider name")
	f.StringVar(&o.model, "model", "", "Model name, e.g. anthropic/claude-3-5-sonnet")
	f.StringVar(&o.endpoint, "endpoint", "/v1/messages", "Vendor endpoint path")
	f.StringVar(&o.apiBase, "api-base", "", "Explicit API base")
	f.StringVar(&o.apiKey, "api-key", "", "Explicit fallback API key")
	f.StringVar(&o.query, "query", "", "Raw query string, e.g. beta=true")
	f.StringVar(&o.body, "body", "", "JSON request body used for stream detection")
	f.StringArrayVarP(&o.headers, "header", "H", nil, `Client header "Name: value" (repeatable)`)
	f.StringVar(&o.credentialPolicy, "credential-policy", "", "fallback or forward_only")
	f.StringVar(&o.forwardHeaders, "forward-headers", "", "all, none or allowlist")
	f.StringSliceVar(&o.allowedHeaders, "allowed-headers", nil, "Headers forwarded under allowlist")
	f.BoolVar(&o.showSecrets, "show-secrets", false, "Print credentials unmasked")
	return cmd
}

func runResolve(w io.Writer, o resolveOptions, getenv func(string) string) error {
	fwd, ok := provider.ParseForwardPolicy(o.forwardHeaders, o.allowedHeaders)
	if !ok {
		return fmt.Errorf("invalid --forward-headers %q", o.forwardHeaders)
	}
	cred, ok := provider.ParseCredentialPolicy(o.credentialPolicy)
	if !ok {
		return fmt.Errorf("invalid --credential-policy %q", o.credentialPolicy)
	}

	var cfg provider.PassthroughConfig
	if o.provider == "anthropic" {
		cfg = anthropic.NewPassthrough(anthropic.DefaultsFromEnv(getenv),
			anthropic.WithCredentialPolicy(cred),
			anthropic.WithForwardPolicy(fwd))
	} else {
		var err error
		if cfg, err = provider.GetPassthrough(o.provider); err != nil {
			return err
		}
	}

	client, err := parseHeaders(o.headers)
	if err != nil {
		return err
	}
	body := map[string]any{}
	if o.body != "" {
		if err := json.Unmarshal([]byte(o.body), &body); err != nil {
			return fmt.Errorf("parse --body: %w", err)
		}
	}

	params := provider.Params{APIBase: o.apiBase, APIKey: o.apiKey}
	completeURL, baseURL := cfg.CompleteURL(o.apiBase, o.apiKey, o.model, o.endpoint, provider.ParseQuery(o.query), params)
	prepared := cfg.ValidateEnvironment(cfg.ForwardPolicy().Filter(client), o.model, nil, nil, params, o.apiKey, o.apiBase)
	_, hasKey := cfg.APIKey(o.apiKey)

	fmt.Fprintf(w, "complete_url: %s\n", completeURL)
	fmt.Fprintf(w, "base_url:     %s\n", baseURL)
	fmt.Fprintf(w, "api_base:     %s\n", cfg.APIBase(o.apiBase))
	fmt.Fprintf(w, "base_model:   %s\n", cfg.BaseModel(o.model))
	fmt.Fprintf(w, "stream:       %t\n", cfg.IsStreamingRequest(o.endpoint, body))
	fmt.Fprintf(w, "has_api_key:  %t\n", hasKey)
	fmt.Fprintln(w, "headers:")

	names := make([]string, 0, len(prepared))
	for k := range prepared {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		for _, v := range prepared[k] {
			if !o.showSecrets && isSecretHeader(k) {
				v = maskSecret(v)
			}
			fmt.Fprintf(w, "  %s: %s\n", k, v)
		}
	}
	return nil
}

func parseHeaders(raw []string) (http.Header, error) {
	h := http.Header{}
	for _, line := range raw {
		name, value, ok := strings.Cut(line, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid header %q, want \"Name: value\"", line)
		}
		h.Add(name, strings.TrimSpace(value))
	}
	return h, nil
}

func isSecretHeader(name string) bool {
	switch http.CanonicalHeaderKey(name) {
	case "Authorization", "X-Api-Key", "Proxy-Authorization":
		return true
	}
	return false
}

// maskSecret keeps the scheme and a short prefix so a key can be
// recognised without being leaked.
func maskSecret(v string) string {
	scheme := ""
	if i := strings.IndexByte(v, ' '); i > 0 {
		scheme, v = v[:i+1], v[i+1:]
	}
	if len(v) <= 12 {
		return scheme + "****"
	}
	return scheme + v[:8] + "****" + v[len(v)-4:]
}
