package passthrough

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/praxisllmlab/passthru/internal/callback"
	"github.com/praxisllmlab/passthru/internal/provider"
)

// HeaderCallID is set on every response so clients can correlate logs.
const HeaderCallID = "x-passthru-call-id"

// DefaultMaxBodyBytes bounds the request body when Options leaves it unset.
const DefaultMaxBodyBytes int64 = 32 << 20

// Endpoint represents a configured pass-through endpoint.
type Endpoint struct {
	Path     string // route path prefix, e.g. "/anthropic"
	Provider string
	APIBase  string // overrides the provider default origin
	APIKey   string // explicit fallback credential
	Headers  map[string]string
	Config   provider.PassthroughConfig
}

// Options tunes a Router. Zero values select defaults.
type Options struct {
	MaxBodyBytes    int64
	UpstreamTimeout time.Duration
	Client          *http.Client
	Callbacks       *callback.Registry
}

// Router dispatches pass-through requests to their provider resolver and
// relays the upstream response.
type Router struct {
	endpoints []Endpoint
	loggers   map[string]LoggingHandler
	client    *http.Client
	callbacks *callback.Registry
	maxBody   int64
	timeout   time.Duration
}

// NewRouter creates a new pass-through router. Endpoints without a Config
// are resolved from the provider registry by name.
func NewRouter(endpoints []Endpoint, opts Options) (*Router, error) {
	eps := make([]Endpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		if ep.Config == nil {
			cfg, err := provider.GetPassthrough(ep.Provider)
			if err != nil {
				return nil, fmt.Errorf("endpoint %s: %w", ep.Path, err)
			}
			ep.Config = cfg
		}
		ep.Path = "/" + strings.Trim(ep.Path, "/")
		eps = append(eps, ep)
	}
	// Longest prefix wins.
	sort.SliceStable(eps, func(i, j int) bool { return len(eps[i].Path) > len(eps[j].Path) })

	rt := &Router{
		endpoints: eps,
		loggers:   map[string]LoggingHandler{"anthropic": &AnthropicLoggingHandler{}},
		client:    opts.Client,
		callbacks: opts.Callbacks,
		maxBody:   opts.MaxBodyBytes,
		timeout:   opts.UpstreamTimeout,
	}
	if rt.client == nil {
		rt.client = &http.Client{}
	}
	if rt.callbacks == nil {
		rt.callbacks = callback.NewRegistry()
	}
	if rt.maxBody <= 0 {
		rt.maxBody = DefaultMaxBodyBytes
	}
	return rt, nil
}

// Endpoints returns the configured endpoints, longest path first.
func (rt *Router) Endpoints() []Endpoint {
	out := make([]Endpoint, len(rt.endpoints))
	copy(out, rt.endpoints)
	return out
}

func (rt *Router) match(path string) (*Endpoint, string) {
	for i := range rt.endpoints {
		ep := &rt.endpoints[i]
		if path == ep.Path {
			return ep, "/"
		}
		if strings.HasPrefix(path, ep.Path+"/") {
			return ep, path[len(ep.Path):]
		}
	}
	return nil, ""
}

func (rt *Router) logger(providerName string) LoggingHandler {
	if l, ok := rt.loggers[providerName]; ok {
		return l
	}
	return &BaseLoggingHandler{Name: providerName}
}

// ServeHTTP handles all pass-through routes.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	callID := uuid.NewString()
	w.Header().Set(HeaderCallID, callID)

	ep, endpoint := rt.match(r.URL.Path)
	if ep == nil {
		writeError(w, http.StatusNotFound, "not_found_error", "unknown pass-through endpoint")
		return
	}
	cfg := ep.Config

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, rt.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request_too_large",
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request_error", "failed to read request body")
		return
	}

	body := decodeBody(raw)
	model, _ := body["model"].(string)
	stream := cfg.IsStreamingRequest(endpoint, body)
	params := provider.Params{APIBase: ep.APIBase, APIKey: ep.APIKey}

	completeURL, _ := cfg.CompleteURL(ep.APIBase, ep.APIKey, model, endpoint, provider.ParseQuery(r.URL.RawQuery), params)

	headers := forwardHeaders(cfg.ForwardPolicy(), r.Header)
	headers = cfg.ValidateEnvironment(headers, model, messagesOf(body), nil, params, ep.APIKey, ep.APIBase)
	if headers == nil {
		headers = http.Header{}
	}
	addStaticHeaders(headers, ep.Headers)

	data := callback.LogData{
		CallID:      callID,
		Model:       cfg.BaseModel(model),
		Provider:    ep.Provider,
		Endpoint:    endpoint,
		UpstreamURL: completeURL,
		Stream:      stream,
		StartTime:   start,
	}

	ctx := r.Context()
	if rt.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, rt.timeout)
		defer cancel()
	}

	var reqBody io.Reader = http.NoBody
	if len(raw) > 0 {
		reqBody = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, completeURL, reqBody)
	if err != nil {
		rt.fail(data, 0, err)
		writeError(w, http.StatusBadGateway, "api_error", "invalid upstream URL")
		return
	}
	req.Header = headers

	resp, err := rt.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("provider", ep.Provider).Str("call_id", callID).Msg("pass-through upstream request failed")
		rt.fail(data, 0, err)
		writeError(w, http.StatusBadGateway, "api_connection_error", "upstream request failed")
		return
	}
	defer resp.Body.Close()

	copyResponseHeaders(w.Header(), resp.Header)
	w.Header().Set(HeaderCallID, callID)
	w.WriteHeader(resp.StatusCode)

	handler := rt.logger(ep.Provider)
	var usage Usage
	encoding := contentEncoding(resp.Header)
	if stream || isEventStream(resp.Header) {
		tap := newSSETap(handler)
		switch encoding {
		case "", contentEncodingIdentity:
			err = relayStream(w, resp.Body, tap)
		case contentEncodingGzip:
			gz := newGunzipTap(tap)
			err = relayStream(w, resp.Body, gz)
			_ = gz.Close()
		default:
			err = relayStream(w, resp.Body, io.Discard)
		}
		_ = tap.Close()
		usage = tap.usage
	} else {
		var out []byte
		out, err = io.ReadAll(resp.Body)
		if len(out) > 0 {
			_, _ = w.Write(out)
		}
		if err == nil && resp.StatusCode < http.StatusBadRequest {
			if plain := usageBody(encoding, out); plain != nil {
				usage.PromptTokens, usage.CompletionTokens = handler.ParseUsage(plain)
			}
		}
	}

	data.PromptTokens = usage.PromptTokens
	data.CompletionTokens = usage.CompletionTokens
	data.TotalTokens = usage.PromptTokens + usage.CompletionTokens

	switch {
	case err != nil:
		log.Warn().Err(err).Str("provider", ep.Provider).Str("call_id", callID).Msg("pass-through relay interrupted")
		rt.fail(data, resp.StatusCode, err)
	case resp.StatusCode >= http.StatusBadRequest:
		rt.fail(data, resp.StatusCode, fmt.Errorf("upstream returned status %d", resp.StatusCode))
	default:
		rt.succeed(data, resp.StatusCode)
	}
}

func (rt *Router) succeed(data callback.LogData, status int) {
	finish(&data, status)
	rt.callbacks.LogSuccess(data)
}

func (rt *Router) fail(data callback.LogData, status int, err error) {
	finish(&data, status)
	data.Error = err
	rt.callbacks.LogFailure(data)
}

func finish(data *callback.LogData, status int) {
	data.StatusCode = status
	data.EndTime = time.Now()
	data.Latency = data.EndTime.Sub(data.StartTime)
}

// relayStream copies src to w, flushing after every read so events reach
// the client as they arrive.
func relayStream(w http.ResponseWriter, src io.Reader, tap io.Writer) error {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			_, _ = tap.Write(buf[:n])
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func isEventStream(h http.Header) bool {
	return strings.HasPrefix(strings.ToLower(h.Get("Content-Type")), "text/event-stream")
}

// decodeBody parses a JSON object body. Anything else yields an empty
// map; the raw bytes are still forwarded unchanged.
func decodeBody(raw []byte) map[string]any {
	body := map[string]any{}
	if len(raw) == 0 {
		return body
	}
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		return map[string]any{}
	}
	return body
}

func messagesOf(body map[string]any) []map[string]any {
	list, ok := body["messages"].([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(list))
	for _, m := range list {
		if msg, ok := m.(map[string]any); ok {
			out = append(out, msg)
		}
	}
	return out
}

func writeError(w http.ResponseWriter, status int, errType, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"message": msg,
			"type":    errType,
		},
	})
}
