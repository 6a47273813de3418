package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/praxisllmlab/passthru/internal/callback"
	"github.com/praxisllmlab/passthru/internal/config"
	"github.com/praxisllmlab/passthru/internal/metrics"
	"github.com/praxisllmlab/passthru/internal/provider"
	"github.com/praxisllmlab/passthru/internal/provider/anthropic"
	"github.com/praxisllmlab/passthru/internal/proxy"
	"github.com/praxisllmlab/passthru/internal/proxy/passthrough"
)

const (
	defaultConfigPath = "proxy_config.yaml"
	builtinPath       = "/anthropic"
)

func newServeCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the passthrough gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = godotenv.Load()

			cfg, err := loadConfig(configPath, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.GeneralSettings.Port = port
			}
			level := cfg.GeneralSettings.LogLevel
			if rootLogLevel != "" {
				level = rootLogLevel
			}
			setupLogging(level, cfg.GeneralSettings.JSONLogs)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", defaultConfigPath, "Path to proxy config YAML")
	cmd.Flags().IntVar(&port, "port", 0, "Override general_settings.port")
	return cmd
}

// loadConfig reads the config file. A missing default file is not an
// error; a missing file that was asked for explicitly is.
func loadConfig(path string, explicit bool) (*config.ProxyConfig, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) && !explicit {
		log.Info().Str("path", path).Msg("no config file, using defaults")
		return config.Default(), nil
	}
	return nil, fmt.Errorf("load config: %w", err)
}

func serve(ctx context.Context, cfg *config.ProxyConfig) error {
	defaults := anthropic.DefaultsFromEnv(os.Getenv)
	provider.RegisterPassthrough("anthropic", anthropic.NewPassthrough(defaults))

	endpoints, err := buildEndpoints(cfg, defaults)
	if err != nil {
		return err
	}

	callbacks, closeCallbacks, err := buildCallbacks(cfg)
	if err != nil {
		return err
	}
	defer closeCallbacks()
	log.Info().Strs("callbacks", callbacks.Names()).Msg("callbacks registered")

	rt, err := passthrough.NewRouter(endpoints, passthrough.Options{
		MaxBodyBytes:    cfg.GeneralSettings.MaxRequestBodyBytes,
		UpstreamTimeout: time.Duration(cfg.GeneralSettings.UpstreamTimeout) * time.Second,
		Callbacks:       callbacks,
	})
	if err != nil {
		return fmt.Errorf("build passthrough router: %w", err)
	}
	for _, ep := range rt.Endpoints() {
		log.Info().Str("path", ep.Path).Str("provider", ep.Provider).
			Str("api_base", ep.Config.APIBase(ep.APIBase)).Msg("pass-through endpoint")
	}

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.ListenAndServe(ctx, metrics.Addr()); err != nil {
				log.Error().Err(err).Msg("metrics server")
			}
		}()
	}

	srv := proxy.NewServer(proxy.ServerConfig{Passthrough: rt, Version: version})
	addr := ":" + strconv.Itoa(cfg.GeneralSettings.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	log.Info().Str("addr", addr).Str("version", version).Msg("passthru listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// buildEndpoints turns pass_through_endpoints into router endpoints. The
// built-in /anthropic route is added unless disabled or already defined.
func buildEndpoints(cfg *config.ProxyConfig, defaults anthropic.Defaults) ([]passthrough.Endpoint, error) {
	var endpoints []passthrough.Endpoint
	seen := map[string]bool{}

	for _, pe := range cfg.PassThroughEndpoints {
		fwd, ok := provider.ParseForwardPolicy(pe.ForwardHeaders, pe.AllowedHeaders)
		if !ok {
			return nil, fmt.Errorf("endpoint %s: invalid forward_headers %q", pe.Path, pe.ForwardHeaders)
		}
		cred, ok := provider.ParseCredentialPolicy(pe.CredentialPolicy)
		if !ok {
			return nil, fmt.Errorf("endpoint %s: invalid credential_policy %q", pe.Path, pe.CredentialPolicy)
		}

		ep := passthrough.Endpoint{
			Path:     pe.Path,
			Provider: pe.Provider,
			APIBase:  pe.Target,
			APIKey:   pe.APIKey,
			Headers:  pe.Headers,
		}
		if pe.Provider == "anthropic" {
			ep.Config = anthropic.NewPassthrough(defaults,
				anthropic.WithCredentialPolicy(cred),
				anthropic.WithForwardPolicy(fwd))
		}
		endpoints = append(endpoints, ep)
		seen[pe.Path] = true
	}

	if !cfg.GeneralSettings.DisableBuiltinEndpoints && !seen[builtinPath] {
		endpoints = append(endpoints, passthrough.Endpoint{
			Path:     builtinPath,
			Provider: "anthropic",
			Config:   anthropic.NewPassthrough(defaults),
		})
	}
	return endpoints, nil
}

// buildCallbacks registers the structured log callback, Prometheus when
// metrics are enabled, Redis usage counters when redis_url is set, and any
// sinks listed under callbacks. The returned func releases what was opened
// here.
func buildCallbacks(cfg *config.ProxyConfig) (*callback.Registry, func(), error) {
	reg := callback.NewRegistry()
	var (
		store    callback.UsageStore
		stoppers []callback.Stopper
		rdb      *redis.Client
	)
	closer := func() {
		for _, s := range stoppers {
			s.Stop()
		}
		if rdb != nil {
			if err := rdb.Close(); err != nil {
				log.Warn().Err(err).Msg("close redis")
			}
		}
	}

	if cfg.GeneralSettings.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.GeneralSettings.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse redis_url: %w", err)
		}
		rdb = redis.NewClient(opts)
		store = rdb
	}

	specs := []callback.Spec{{Type: "log"}}
	if cfg.Metrics.Enabled {
		specs = append(specs, callback.Spec{Type: "prometheus"})
	}
	if store != nil {
		specs = append(specs, callback.Spec{Type: "redis_usage"})
	}
	for _, cc := range cfg.Callbacks {
		specs = append(specs, callback.Spec{
			Type:          cc.Type,
			URL:           cc.URL,
			Headers:       cc.Headers,
			BatchSize:     cc.BatchSize,
			FlushInterval: time.Duration(cc.FlushInterval) * time.Second,
		})
	}

	added := map[string]bool{}
	for _, spec := range specs {
		// log, prometheus and redis_usage are singletons; webhooks may repeat.
		if spec.Type != "webhook" && added[spec.Type] {
			continue
		}
		logger, err := callback.NewFromConfig(spec, store)
		if err != nil {
			closer()
			return nil, nil, err
		}
		if s, ok := logger.(callback.Stopper); ok {
			stoppers = append(stoppers, s)
		}
		reg.Register(logger)
		added[spec.Type] = true
	}
	return reg, closer, nil
}
