package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"cropsim-platform/internal/models"
	"cropsim-platform/pkg/logging"
	"cropsim-platform/pkg/metrics"
)

// maxRequestBody bounds simulation request bodies
const maxRequestBody = 1 << 20

// Simulator runs a validated simulation request
type Simulator interface {
	Simulate(ctx context.Context, req *models.SimulationRequest) (*models.SimulationResult, error)
}

// SimulationHandler exposes the crop simulation over HTTP and Lambda
type SimulationHandler struct {
	simulator Simulator
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// NewSimulationHandler creates a new simulation handler
func NewSimulationHandler(simulator Simulator, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *SimulationHandler {
	return &SimulationHandler{
		simulator: simulator,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error        string `json:"error"`
	Details      string `json:"details,omitempty"`
	ValidRegions []int  `json:"regioes_validas,omitempty"`
	Format       string `json:"formato,omitempty"`
}

// Execute parses body, runs the simulation and returns the status code and
// response payload. Failures are mapped to an ErrorResponse; the returned
// error is only for logging and metrics.
func (h *SimulationHandler) Execute(ctx context.Context, body []byte) (int, interface{}, error) {
	req, err := models.ParseSimulationRequest(body)
	if err != nil {
		status, resp := errorResponse(err)
		return status, resp, err
	}

	result, err := h.simulator.Simulate(ctx, req)
	if err != nil {
		status, resp := errorResponse(err)
		return status, resp, err
	}

	return http.StatusOK, result, nil
}

// errorResponse classifies err into a status code and response body
func errorResponse(err error) (int, ErrorResponse) {
	var validation *models.ValidationError
	if errors.As(err, &validation) {
		resp := ErrorResponse{Error: validation.Message}
		switch validation.Field {
		case "regiao":
			resp.ValidRegions = models.RegionIDs()
		case "dates":
			resp.Format = "YYYY-MM-DD"
		}
		return http.StatusBadRequest, resp
	}

	if models.IsUpstreamError(err) {
		return http.StatusBadGateway, ErrorResponse{
			Error:   "failed to fetch climate data from NASA POWER",
			Details: err.Error(),
		}
	}

	return http.StatusInternalServerError, ErrorResponse{
		Error:   "internal server error",
		Details: err.Error(),
	}
}

// errorType labels err for the API error counter
func errorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusBadGateway:
		return "upstream_error"
	default:
		return "internal_error"
	}
}

// Simulate handles POST /simulate
func (h *SimulationHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	startTime := time.Now()

	defer func() {
		duration := time.Since(startTime)
		h.metrics.APIRequestDuration.WithLabelValues("/simulate").Observe(duration.Seconds())
	}()

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		h.metrics.RecordAPIError("validation_error", "/simulate")
		h.sendJSON(w, r, ErrorResponse{Error: "failed to read request body", Details: err.Error()}, http.StatusBadRequest)
		return
	}

	status, resp, err := h.Execute(ctx, body)
	if err != nil {
		h.logFailure(ctx, status, err)
		h.metrics.RecordAPIError(errorType(status), "/simulate")
	}

	h.sendJSON(w, r, resp, status)
}

// ListRegions handles GET /api/regions
func (h *SimulationHandler) ListRegions(w http.ResponseWriter, r *http.Request) {
	h.sendJSON(w, r, models.Regions(), http.StatusOK)
}

// HealthCheck handles GET /health
func (h *SimulationHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	h.logger.Debug(r.Context(), "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, r, status, http.StatusOK)
}

func (h *SimulationHandler) logFailure(ctx context.Context, status int, err error) {
	if status == http.StatusBadRequest {
		h.logger.Warn(ctx, "[SIM_REJECTED] Invalid simulation request", logging.Fields{
			"status": status,
			"reason": err.Error(),
		})
		return
	}
	h.logger.Error(ctx, "[SIM_ERROR] Simulation failed", logging.Fields{"status": status}, err)
}

// sendJSON sends a JSON response and records the request
func (h *SimulationHandler) sendJSON(w http.ResponseWriter, r *http.Request, data interface{}, statusCode int) {
	route := r.URL.Path
	if current := mux.CurrentRoute(r); current != nil {
		if tmpl, err := current.GetPathTemplate(); err == nil {
			route = tmpl
		}
	}
	h.metrics.RecordAPIRequest(route, r.Method, strconv.Itoa(statusCode))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// RegisterRoutes registers the simulation API routes
func (h *SimulationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/simulate", h.Simulate).Methods("POST")
	router.HandleFunc("/api/regions", h.ListRegions).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
