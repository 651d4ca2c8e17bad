package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"cropsim-platform/pkg/logging"
	"cropsim-platform/pkg/metrics"
)

// ProxyConfig configures the forwarding proxy
type ProxyConfig struct {
	UpstreamURL string
	Timeout     time.Duration
	StaticDir   string
}

// ProxyHandler forwards browser requests to the simulation endpoint and
// answers CORS preflights, so a local frontend can call it without CORS errors
type ProxyHandler struct {
	client   *http.Client
	upstream string
	static   http.Handler
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
}

// NewProxyHandler creates a new proxy handler
func NewProxyHandler(cfg ProxyConfig, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ProxyHandler {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var static http.Handler
	if cfg.StaticDir != "" {
		static = http.FileServer(http.Dir(cfg.StaticDir))
	}

	return &ProxyHandler{
		client:   &http.Client{Timeout: timeout},
		upstream: cfg.UpstreamURL,
		static:   static,
		logger:   logger,
		metrics:  metricsCollector,
	}
}

// statusError is a non-2xx upstream response
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP Error %d: %s", e.code, http.StatusText(e.code))
}

// Preflight answers OPTIONS on any path
func (h *ProxyHandler) Preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Forward handles POST /api-proxy
func (h *ProxyHandler) Forward(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	timer := h.metrics.NewTimer(h.metrics.ProxyForwardDuration)
	defer timer.ObserveDuration()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.fail(ctx, w, r, "read_body", fmt.Errorf("internal error: %w", err))
		return
	}

	status, data, err := h.forward(ctx, body)
	if err != nil {
		var se *statusError
		errType := "transport"
		if errors.As(err, &se) {
			errType = "status_" + strconv.Itoa(se.code)
		}
		h.fail(ctx, w, r, errType, err)
		return
	}

	h.metrics.ProxyBytesRelayedTotal.Add(float64(len(data)))
	h.metrics.RecordAPIRequest("/api-proxy", r.Method, strconv.Itoa(status))
	h.logger.Debug(ctx, "[PROXY_FORWARD] Request relayed", logging.Fields{
		"status":         status,
		"request_bytes":  len(body),
		"response_bytes": len(data),
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

// forward posts body to the upstream and returns its status and full response body
func (h *ProxyHandler) forward(ctx context.Context, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.upstream, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return 0, nil, &statusError{code: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, data, nil
}

func (h *ProxyHandler) fail(ctx context.Context, w http.ResponseWriter, r *http.Request, errType string, err error) {
	h.logger.Error(ctx, "[PROXY_FORWARD_ERROR] Upstream request failed", logging.Fields{
		"upstream":   h.upstream,
		"error_type": errType,
	}, err)
	h.metrics.RecordProxyError(errType)
	h.metrics.RecordAPIRequest("/api-proxy", r.Method, strconv.Itoa(http.StatusInternalServerError))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// Unsupported answers POST on paths other than /api-proxy with 501
func (h *ProxyHandler) Unsupported(w http.ResponseWriter, r *http.Request) {
	h.logger.Warn(r.Context(), "[PROXY_UNSUPPORTED] No handler for path", logging.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	})
	h.metrics.RecordAPIRequest("unsupported", r.Method, strconv.Itoa(http.StatusNotImplemented))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotImplemented)
	json.NewEncoder(w).Encode(map[string]string{
		"error": fmt.Sprintf("Unsupported method ('%s') for path %s", r.Method, r.URL.Path),
	})
}

// HealthCheck handles GET /health
func (h *ProxyHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":   "healthy",
		"upstream": h.upstream,
	})
}

// RegisterRoutes registers the proxy routes. The catch-all routes match every
// POST and GET, so register other routes first. Wrap the router in
// CORSMiddleware so unmatched paths carry CORS headers too.
func (h *ProxyHandler) RegisterRoutes(router *mux.Router) {
	router.Methods(http.MethodOptions).HandlerFunc(h.Preflight)
	router.HandleFunc("/api-proxy", h.Forward).Methods(http.MethodPost)
	router.Methods(http.MethodPost).HandlerFunc(h.Unsupported)
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	if h.static != nil {
		router.Methods(http.MethodGet, http.MethodHead).Handler(h.static)
	}
}
