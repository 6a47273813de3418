package proxy

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/praxisllmlab/passthru/internal/provider"
	"github.com/praxisllmlab/passthru/internal/proxy/passthrough"
)

// Server holds dependencies for the HTTP proxy server.
type Server struct {
	Router      chi.Router
	Passthrough *passthrough.Router
	version     string
}

// ServerConfig holds configuration for creating a new Server.
type ServerConfig struct {
	Passthrough *passthrough.Router
	Version     string
}

// NewServer creates a chi router with all routes configured.
func NewServer(cfg ServerConfig) *Server {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)

	s := &Server{
		Router:      r,
		Passthrough: cfg.Passthrough,
		version:     cfg.Version,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.Router

	r.Route("/health", func(r chi.Router) {
		r.Get("/", s.healthCheck)
		r.Get("/passthrough", s.passthroughHealth)
	})

	// Everything else is /{provider}/*; the passthrough router answers
	// unknown prefixes with a JSON 404.
	if s.Passthrough != nil {
		r.Handle("/*", s.Passthrough)
	}
}

func (s *Server) healthCheck(w http.ResponseWriter, _ *http.Request) {
	body := map[string]string{"status": "healthy"}
	if s.version != "" {
		body["version"] = s.version
	}
	writeJSON(w, http.StatusOK, body)
}

type endpointStatus struct {
	Path             string `json:"path"`
	Provider         string `json:"provider"`
	APIBase          string `json:"api_base"`
	HasAPIKey        bool   `json:"has_api_key"`
	ForwardHeaders   string `json:"forward_headers"`
	CredentialPolicy string `json:"credential_policy,omitempty"`
}

type credentialPolicier interface {
	CredentialPolicy() provider.CredentialPolicy
}

// passthroughHealth lists configured endpoints without revealing keys.
func (s *Server) passthroughHealth(w http.ResponseWriter, _ *http.Request) {
	out := []endpointStatus{}
	if s.Passthrough != nil {
		for _, ep := range s.Passthrough.Endpoints() {
			_, hasKey := ep.Config.APIKey(ep.APIKey)
			st := endpointStatus{
				Path:           ep.Path,
				Provider:       ep.Provider,
				APIBase:        ep.Config.APIBase(ep.APIBase),
				HasAPIKey:      hasKey,
				ForwardHeaders: ep.Config.ForwardPolicy().Mode.String(),
			}
			if cp, ok := ep.Config.(credentialPolicier); ok {
				st.CredentialPolicy = cp.CredentialPolicy().String()
			}
			out = append(out, st)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"endpoints": out})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
