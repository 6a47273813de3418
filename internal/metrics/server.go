package metrics

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/praxisllmlab/passthru/internal/callback"
)

const (
	envPort     = "METRICS_PORT"
	defaultAddr = ":9090"
)

// Addr returns the metrics listen address from METRICS_PORT. Unset
// selects ":9090"; set but empty disables the server and returns "".
func Addr() string {
	port, ok := os.LookupEnv(envPort)
	if !ok {
		return defaultAddr
	}
	port = strings.TrimSpace(port)
	if port == "" {
		return ""
	}
	if !strings.Contains(port, ":") {
		port = ":" + port
	}
	return port
}

// NewServer builds the dedicated metrics listener serving /metrics.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", callback.Handler())
	return &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// ListenAndServe runs the metrics server on addr until ctx is cancelled.
// An empty addr disables it.
func ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		log.Info().Msg("METRICS_PORT is empty, metrics server disabled")
		return nil
	}
	srv := NewServer(addr)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("metrics server shutdown")
		}
	}()

	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
