package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"cropsim-platform/internal/models"
	"cropsim-platform/pkg/logging"
	"cropsim-platform/pkg/metrics"
)

type stubSimulator struct {
	result *models.SimulationResult
	err    error
	got    *models.SimulationRequest
}

func (s *stubSimulator) Simulate(ctx context.Context, req *models.SimulationRequest) (*models.SimulationResult, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	if _, err := models.LookupRegion(req.Region); err != nil {
		return nil, err
	}
	return &models.SimulationResult{
		Growth: []models.GrowthPoint{{RootDepthCm: 30, BiomassTons: 0.01}, {RootDepthCm: 31.5, BiomassTons: 0.05}},
		Soil:   models.SoilBalance{Region: "Darling Downs-Queensland", Infiltration: 120.5, Yield: 1.2},
	}, nil
}

func testLogger() *logging.StructuredLogger {
	logger := logging.NewStructuredLogger("test", "0.0.0", logging.DebugLevel)
	logger.SetOutput(io.Discard)
	return logger
}

func testMetrics() *metrics.Collector {
	return metrics.NewCollectorWithRegisterer("test", prometheus.NewRegistry())
}

func newSimulationRouter(sim Simulator) *mux.Router {
	h := NewSimulationHandler(sim, testLogger(), testMetrics())
	router := mux.NewRouter()
	router.Use(RequestIDMiddleware)
	h.RegisterRoutes(router)
	RegisterDocsRoutes(router)
	return router
}

func postSimulate(t *testing.T, router http.Handler, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/simulate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response is not a JSON object: %q", rec.Body.String())
	}
	return rec, decoded
}

func TestSimulate_Success(t *testing.T) {
	sim := &stubSimulator{}
	router := newSimulationRouter(sim)

	rec, body := postSimulate(t, router, `{"regiao": 60, "dt_i": "2024-10-15", "dt_f": "2025-03-01"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("missing request id header")
	}

	growth, ok := body["crescimento"].([]interface{})
	if !ok || len(growth) != 2 {
		t.Fatalf("crescimento = %v", body["crescimento"])
	}
	first := growth[0].(map[string]interface{})
	if first["alt_cm"] != 30.0 || first["bio_ton"] != 0.01 {
		t.Errorf("crescimento[0] = %v", first)
	}
	solo, ok := body["solo"].(map[string]interface{})
	if !ok || solo["regiao"] != "Darling Downs-Queensland" {
		t.Errorf("solo = %v", body["solo"])
	}
	for _, key := range []string{"infilt", "escoa", "percol", "stress", "efic", "prod"} {
		if _, ok := solo[key]; !ok {
			t.Errorf("solo missing %q", key)
		}
	}

	if sim.got.Water != "FC" || sim.got.Crop != "Maize" || !sim.got.Daily {
		t.Errorf("defaults not applied: %+v", sim.got)
	}
}

func TestSimulate_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		simErr     error
		wantStatus int
		wantKeys   []string
	}{
		{
			name:       "missing region",
			body:       `{"dt_i": "2024-10-15", "dt_f": "2025-03-01"}`,
			wantStatus: http.StatusBadRequest,
			wantKeys:   []string{"error", "regioes_validas"},
		},
		{
			name:       "missing dates",
			body:       `{"regiao": 60, "dt_i": "2024-10-15"}`,
			wantStatus: http.StatusBadRequest,
			wantKeys:   []string{"error", "formato"},
		},
		{
			name:       "malformed dates",
			body:       `{"regiao": 60, "dt_i": "15/10/2024", "dt_f": "2025-03-01"}`,
			wantStatus: http.StatusBadRequest,
			wantKeys:   []string{"error"},
		},
		{
			name:       "unknown region",
			body:       `{"regiao": 99, "dt_i": "2024-10-15", "dt_f": "2025-03-01"}`,
			wantStatus: http.StatusBadRequest,
			wantKeys:   []string{"error", "regioes_validas"},
		},
		{
			name:       "not json",
			body:       `regiao=60`,
			wantStatus: http.StatusBadRequest,
			wantKeys:   []string{"error"},
		},
		{
			name:       "climate failure",
			body:       `{"regiao": 60, "dt_i": "2024-10-15", "dt_f": "2025-03-01"}`,
			simErr:     &models.UpstreamError{Service: "nasa_power", StatusCode: 503, Err: errors.New("unavailable")},
			wantStatus: http.StatusBadGateway,
			wantKeys:   []string{"error", "details"},
		},
		{
			name:       "internal failure",
			body:       `{"regiao": 60, "dt_i": "2024-10-15", "dt_f": "2025-03-01"}`,
			simErr:     errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantKeys:   []string{"error", "details"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newSimulationRouter(&stubSimulator{err: tt.simErr})
			rec, body := postSimulate(t, router, tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			for _, key := range tt.wantKeys {
				if _, ok := body[key]; !ok {
					t.Errorf("body missing %q: %v", key, body)
				}
			}
		})
	}
}

func TestSimulate_UnknownRegionListsValidIDs(t *testing.T) {
	router := newSimulationRouter(&stubSimulator{})
	_, body := postSimulate(t, router, `{"regiao": "99", "dt_i": "2024-10-15", "dt_f": "2025-03-01"}`)

	msg, _ := body["error"].(string)
	if !strings.Contains(msg, "60") || !strings.Contains(msg, "99") {
		t.Errorf("error %q should name the region and list valid ids", msg)
	}
	ids, _ := body["regioes_validas"].([]interface{})
	if len(ids) != len(models.RegionIDs()) {
		t.Errorf("regioes_validas has %d ids, want %d", len(ids), len(models.RegionIDs()))
	}
}

func TestListRegionsAndDocs(t *testing.T) {
	router := newSimulationRouter(&stubSimulator{})

	for _, path := range []string{"/api/regions", "/health", "/api/docs/openapi.json", "/api/docs"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/regions", nil))
	var regions []models.Region
	if err := json.Unmarshal(rec.Body.Bytes(), &regions); err != nil {
		t.Fatalf("decode regions: %v", err)
	}
	if len(regions) != 22 || regions[0].ID != 1 {
		t.Errorf("regions = %d entries, first %+v", len(regions), regions[0])
	}
}
